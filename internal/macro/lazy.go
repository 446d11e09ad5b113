// Provides deferred resolution of associations between facades.

package macro

import (
	"log/slog"
	"sync"
)

// Loader resolves one association slot. The host provides one per slot.
type Loader[T any] func() (T, error)

// Ref is a handle that resolves its Loader on first access and caches the
// outcome for the lifetime of the handle.
//
// The loader runs at most once, even under concurrent first access. A failed
// resolution is cached too; the handle never retries.
type Ref[T any] struct {
	name string
	load func() (T, error)
}

// NewRef returns a Ref named after the association it resolves. The name only
// shows up in logs and errors.
func NewRef[T any](name string, l Loader[T]) *Ref[T] {
	r := &Ref[T]{name: name}
	if l != nil {
		r.load = sync.OnceValues(func() (T, error) {
			slog.Debug("Resolving association", "ref", name)
			v, err := l()
			if err != nil {
				var zero T
				return zero, HostUnavailable("load "+name, err)
			}
			return v, nil
		})
	}
	return r
}

// Load returns the resolved value, invoking the loader on first call only.
//
// A nil Ref or one without a loader fails with ErrHostUnavailable.
func (r *Ref[T]) Load() (T, error) {
	if r == nil || r.load == nil {
		var zero T
		name := "association"
		if r != nil {
			name = r.name
		}
		return zero, HostUnavailable("load "+name, errNotWired)
	}
	return r.load()
}
