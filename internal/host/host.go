package host

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"sync"
	"sync/atomic"
	"time"

	"github.com/maruel/macrokit/internal/macro"
	"github.com/maruel/macrokit/internal/mql"
)

// Options configures a Host.
type Options struct {
	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

// Host serves the projects of a loaded workspace to macros.
type Host struct {
	store  *Store
	engine *mql.Engine
	now    func() time.Time

	mu     sync.Mutex
	scopes map[*scope]struct{}
}

// New returns a Host over store.
func New(store *Store, opts Options) *Host {
	h := &Host{store: store, now: opts.Now, scopes: map[*scope]struct{}{}}
	if h.now == nil {
		h.now = time.Now
	}
	h.engine = mql.New(h)
	return h
}

// Projects returns the identifiers of every project.
func (h *Host) Projects() ([]string, error) {
	cfgs, err := h.store.Projects()
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(cfgs))
	for _, c := range cfgs {
		ids = append(ids, c.Identifier)
	}
	return ids, nil
}

// Project returns the macro facade of a project. Associations are loaded on
// first access.
func (h *Host) Project(ctx context.Context, identifier string, opts macro.QueryOptions) (*macro.Project, error) {
	cfg, ok, err := h.store.Project(identifier)
	if err != nil {
		return nil, macro.HostUnavailable("load project "+identifier, err)
	}
	if !ok {
		return nil, macro.NotFound("project", identifier)
	}
	slog.DebugContext(ctx, "Building project facade", "project", identifier)
	return newGraph(h, cfg).build(opts), nil
}

// OpenScopes returns the number of active project scopes not yet closed.
func (h *Host) OpenScopes() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.scopes)
}

func (h *Host) enter(ctx context.Context, project string) (*scope, error) {
	if _, ok, err := h.store.Project(project); err != nil {
		return nil, err
	} else if !ok {
		return nil, fmt.Errorf("project %q was removed", project)
	}
	s := &scope{h: h, project: project}
	h.mu.Lock()
	h.scopes[s] = struct{}{}
	n := len(h.scopes)
	h.mu.Unlock()
	slog.DebugContext(ctx, "Entered project", "project", project, "open", n)
	return s, nil
}

// scope is an active project. Close is idempotent.
type scope struct {
	h       *Host
	project string
	closed  atomic.Bool
}

func (s *scope) Project() string {
	return s.project
}

func (s *scope) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	s.h.mu.Lock()
	delete(s.h.scopes, s)
	s.h.mu.Unlock()
	return nil
}

type ctxKey int

const (
	ctxUser ctxKey = iota
	ctxCard
)

// WithCurrentUser returns a context rendering macros on behalf of the user
// with login. It is the value of CURRENT USER in MQL.
func WithCurrentUser(ctx context.Context, login string) context.Context {
	return context.WithValue(ctx, ctxUser, login)
}

// WithCurrentCard returns a context rendering macros on the card with
// number. It is the value of THIS CARD in MQL.
func WithCurrentCard(ctx context.Context, number int) context.Context {
	return context.WithValue(ctx, ctxCard, number)
}

// mql.Source

func (h *Host) config(project string) (*ProjectConfig, error) {
	cfg, ok, err := h.store.Project(project)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, macro.NotFound("project", project)
	}
	return cfg, nil
}

// Properties implements mql.Source.
func (h *Host) Properties(ctx context.Context, project string) ([]mql.Property, error) {
	if _, err := h.config(project); err != nil {
		return nil, err
	}
	recs, err := h.store.PropertyDefinitions(project)
	if err != nil {
		return nil, err
	}
	out := make([]mql.Property, 0, len(recs))
	for _, r := range recs {
		out = append(out, mql.Property{Name: r.Name, Type: r.Type})
	}
	return out, nil
}

// Cards implements mql.Source.
func (h *Host) Cards(ctx context.Context, project string) ([]mql.Card, error) {
	recs, err := h.store.Cards(project)
	if err != nil {
		return nil, err
	}
	out := make([]mql.Card, 0, len(recs))
	for _, r := range recs {
		out = append(out, mql.Card{Number: r.Number, Name: r.Name, Type: r.CardType, Values: maps.Clone(r.Properties)})
	}
	slog.DebugContext(ctx, "Read cards", "project", project, "cards", len(out))
	return out, nil
}

// ProjectVariable implements mql.Source. Names match case insensitively.
func (h *Host) ProjectVariable(ctx context.Context, project, name string) (string, bool, error) {
	cfg, err := h.config(project)
	if err != nil {
		return "", false, err
	}
	v, ok := cfg.variable(name)
	if !ok {
		return "", false, nil
	}
	return v.Value, true, nil
}

// FormatNumber implements mql.Source.
func (h *Host) FormatNumber(project string, n float64) string {
	cfg, err := h.config(project)
	if err != nil {
		return formatNumber(n, defaultPrecision)
	}
	return cfg.FormatNumber(n)
}

// CurrentUser implements mql.Source.
func (h *Host) CurrentUser(ctx context.Context) (string, bool) {
	login, ok := ctx.Value(ctxUser).(string)
	return login, ok && login != ""
}

// CurrentCard implements mql.Source.
func (h *Host) CurrentCard(ctx context.Context) (int, bool) {
	n, ok := ctx.Value(ctxCard).(int)
	return n, ok && n > 0
}

// Now implements mql.Source. The time is in the project time zone.
func (h *Host) Now(project string) time.Time {
	t := h.now()
	if cfg, err := h.config(project); err == nil {
		return t.In(cfg.Location())
	}
	return t
}
