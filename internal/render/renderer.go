package render

import (
	"context"
	"log/slog"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/maruel/macrokit/internal/macro"
)

// Result is the output of a macro.
type Result struct {
	Output string
	// Cacheable is true when the output does not depend on the current time,
	// user or card.
	Cacheable bool
	// Hit is true when Output came from the cache.
	Hit bool
}

// Renderer renders macros, reusing the output of cacheable ones.
type Renderer struct {
	cache *cache.Cache
}

// NewRenderer returns a Renderer keeping cacheable output for ttl. A ttl of
// zero or less disables the cache.
func NewRenderer(ttl time.Duration) *Renderer {
	r := &Renderer{}
	if ttl > 0 {
		r.cache = cache.New(ttl, 2*ttl)
	}
	return r
}

// Render renders m against p.
func (r *Renderer) Render(ctx context.Context, p *macro.Project, m Macro) (Result, error) {
	ok, err := m.CanBeCached(ctx, p)
	if err != nil {
		return Result{}, err
	}
	key := p.Identifier() + "\x00" + m.Key()
	if ok && r.cache != nil {
		if v, found := r.cache.Get(key); found {
			slog.DebugContext(ctx, "Render cache hit", "project", p.Identifier(), "macro", m.Key())
			return Result{Output: v.(string), Cacheable: true, Hit: true}, nil
		}
	}
	out, err := m.Render(ctx, p)
	if err != nil {
		return Result{}, err
	}
	if ok && r.cache != nil {
		slog.DebugContext(ctx, "Render cache miss", "project", p.Identifier(), "macro", m.Key())
		r.cache.SetDefault(key, out)
	}
	return Result{Output: out, Cacheable: ok}, nil
}

// Invalidate drops every cached output. Call it when the workspace changes.
func (r *Renderer) Invalidate() {
	if r.cache != nil {
		r.cache.Flush()
	}
}

// Len returns the number of cached outputs, expired ones included until
// they are evicted.
func (r *Renderer) Len() int {
	if r.cache == nil {
		return 0
	}
	return r.cache.ItemCount()
}
