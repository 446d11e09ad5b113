package macro

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"
)

// Project is the entry point handed to a macro.
//
// It exposes the project's configuration and the MQL facilities of the host.
type Project struct {
	src    ProjectSource
	engine QueryEngine
	opts   QueryOptions

	cardTypes           *Ref[[]*CardType]
	propertyDefinitions *Ref[[]*PropertyDefinition]
	team                *Ref[[]*User]
	projectVariables    *Ref[[]*ProjectVariable]
}

// ProjectWiring installs the loaders of a Project.
type ProjectWiring struct {
	p *Project
}

// NewProject returns a bare Project and its wiring handle.
func NewProject(src ProjectSource, engine QueryEngine, opts QueryOptions) (*Project, *ProjectWiring) {
	p := &Project{src: src, engine: engine, opts: opts}
	return p, &ProjectWiring{p: p}
}

// CardTypes installs the loader of the card types.
func (w *ProjectWiring) CardTypes(l Loader[[]*CardType]) {
	w.p.cardTypes = NewRef("card types of project "+w.p.src.Identifier(), l)
}

// PropertyDefinitions installs the loader of the property definitions.
func (w *ProjectWiring) PropertyDefinitions(l Loader[[]*PropertyDefinition]) {
	w.p.propertyDefinitions = NewRef("property definitions of project "+w.p.src.Identifier(), l)
}

// Team installs the loader of the team members.
func (w *ProjectWiring) Team(l Loader[[]*User]) {
	w.p.team = NewRef("team of project "+w.p.src.Identifier(), l)
}

// ProjectVariables installs the loader of the project variables.
func (w *ProjectWiring) ProjectVariables(l Loader[[]*ProjectVariable]) {
	w.p.projectVariables = NewRef("project variables of project "+w.p.src.Identifier(), l)
}

// Identifier returns the identifier of the project.
func (p *Project) Identifier() string {
	return p.src.Identifier()
}

// Name returns the name of the project.
func (p *Project) Name() string {
	return p.src.Name()
}

// CardTypes returns the card types of the project. There is always at least
// one.
func (p *Project) CardTypes() ([]*CardType, error) {
	return loadClone(p.cardTypes)
}

// PropertyDefinitions returns the property definitions of the project. The
// list may be empty.
func (p *Project) PropertyDefinitions() ([]*PropertyDefinition, error) {
	return loadClone(p.propertyDefinitions)
}

// Team returns the members of the project.
func (p *Project) Team() ([]*User, error) {
	return loadClone(p.team)
}

// ProjectVariables returns the project variables.
func (p *Project) ProjectVariables() ([]*ProjectVariable, error) {
	return loadClone(p.projectVariables)
}

// ValueOfProjectVariable returns the display value of the project variable
// named exactly name. The match is case sensitive; a missing variable fails
// with ErrNotFound.
func (p *Project) ValueOfProjectVariable(name string) (string, error) {
	vars, err := p.projectVariables.Load()
	if err != nil {
		return "", err
	}
	for _, v := range vars {
		if v.Name() == name {
			return v.Value(), nil
		}
	}
	return "", NotFound("project variable", name)
}

// ExecuteMQL runs mql and returns one Row per result row.
//
// Selected properties are keyed by their name lowercased, with spaces and
// punctuation replaced by underscores:
//
//	SELECT number, 'defect status' WHERE type = defect
//	→ {"number": "106", "defect_status": "Fixed"}, ...
//
// With V2, aggregate columns follow the same rule ("count"); V1 keeps their
// legacy names ("Count(*)"). The empty version selects V2.
func (p *Project) ExecuteMQL(ctx context.Context, mql string, version APIVersion) ([]Row, error) {
	switch version {
	case "":
		version = V2
	case V1, V2:
	default:
		p.alert(fmt.Sprintf("Unknown API version %q; using %s", version, V2))
		version = V2
	}
	var rows []Row
	err := p.withActiveProject(ctx, func(s Scope) error {
		q, err := p.engine.Parse(ctx, s, mql, p.opts)
		if err != nil {
			return err
		}
		rows, err = q.ValuesFor(ctx, version)
		return err
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// ExecuteMQLDefault runs mql with V2 result keys.
func (p *Project) ExecuteMQLDefault(ctx context.Context, mql string) ([]Row, error) {
	return p.ExecuteMQL(ctx, mql, V2)
}

// CanBeCached reports whether the result of mql may be reused across renders.
//
// It is false when the query uses TODAY, CURRENT USER, THIS CARD or another
// project. Macros use it to report whether the page they are on can be
// cached.
func (p *Project) CanBeCached(ctx context.Context, mql string) (bool, error) {
	var ok bool
	err := p.withActiveProject(ctx, func(s Scope) error {
		q, err := p.engine.Parse(ctx, s, mql, p.opts)
		if err != nil {
			return err
		}
		ok = q.CanBeCached()
		return nil
	})
	if err != nil {
		return false, err
	}
	return ok, nil
}

// FormatNumberWithProjectPrecision formats n with the precision configured
// for the project.
func (p *Project) FormatNumberWithProjectPrecision(n float64) string {
	return p.src.FormatNumber(n)
}

// FormatDateWithProjectDateFormat formats t with the date format configured
// for the project.
func (p *Project) FormatDateWithProjectDateFormat(t time.Time) string {
	return p.src.FormatDate(t)
}

// alert forwards message to the alert receiver, if one is configured.
func (p *Project) alert(message string) {
	if p.opts.AlertReceiver != nil {
		p.opts.AlertReceiver.Alert(message)
	}
}

func (p *Project) String() string {
	return "Project[identifier=" + p.Identifier() + ",name=" + p.Name() + "]"
}

// withActiveProject runs fn with the project active. The scope is closed on
// every path out of fn, panics included.
func (p *Project) withActiveProject(ctx context.Context, fn func(Scope) error) (err error) {
	s, err := p.src.EnterActiveProject(ctx)
	if err != nil {
		return HostUnavailable("enter active project "+p.Identifier(), err)
	}
	slog.DebugContext(ctx, "Entered active project", "project", s.Project())
	defer func() {
		if cerr := s.Close(); cerr != nil {
			err = errors.Join(err, HostUnavailable("exit active project "+p.Identifier(), cerr))
		}
		slog.DebugContext(ctx, "Exited active project", "project", p.Identifier())
	}()
	return fn(s)
}

// loadClone resolves r and returns a copy of the slice so callers cannot
// reorder the cached one.
func loadClone[T any](r *Ref[[]T]) ([]T, error) {
	v, err := r.Load()
	if err != nil {
		return nil, err
	}
	return slices.Clone(v), nil
}
