package macro

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

type cardTypeRec struct {
	name     string
	color    string
	position int
}

func (r cardTypeRec) Name() string  { return r.name }
func (r cardTypeRec) Color() string { return r.color }
func (r cardTypeRec) Position() int { return r.position }

type joinRec struct {
	position int
}

func (r joinRec) Position() int { return r.position }

type propDefRec struct {
	name        string
	description string
	typ         PropertyType
}

func (r propDefRec) Name() string        { return r.name }
func (r propDefRec) Description() string { return r.description }
func (r propDefRec) Type() PropertyType  { return r.typ }

type valueRec struct {
	display, db, url, color string
}

func (r valueRec) DisplayValue() string  { return r.display }
func (r valueRec) DBIdentifier() string  { return r.db }
func (r valueRec) URLIdentifier() string { return r.url }
func (r valueRec) Color() string         { return r.color }

type variableRec struct {
	name, value string
}

func (r variableRec) Name() string         { return r.name }
func (r variableRec) DisplayValue() string { return r.value }

type userRec struct {
	login, name, email, vcs string
}

func (r userRec) Login() string                  { return r.login }
func (r userRec) Name() string                   { return r.name }
func (r userRec) Email() string                  { return r.email }
func (r userRec) VersionControlUserName() string { return r.vcs }

// fakeProject counts active project scopes.
type fakeProject struct {
	identifier string
	name       string
	enterErr   error
	closeErr   error
	entered    int
	closed     int
}

func (p *fakeProject) Identifier() string            { return p.identifier }
func (p *fakeProject) Name() string                  { return p.name }
func (p *fakeProject) FormatNumber(n float64) string { return fmt.Sprintf("%.2f", n) }
func (p *fakeProject) FormatDate(t time.Time) string { return t.Format("02 Jan 2006") }

func (p *fakeProject) EnterActiveProject(ctx context.Context) (Scope, error) {
	if p.enterErr != nil {
		return nil, p.enterErr
	}
	p.entered++
	return &fakeScope{p: p}, nil
}

func (p *fakeProject) open() int { return p.entered - p.closed }

type fakeScope struct {
	p *fakeProject
}

func (s *fakeScope) Project() string { return s.p.identifier }

func (s *fakeScope) Close() error {
	s.p.closed++
	return s.p.closeErr
}

// fakeEngine returns canned results and records what it was called with.
type fakeEngine struct {
	rows      map[APIVersion][]Row
	cacheable bool
	parseErr  error
	valuesErr error
	panicMsg  string

	lastMQL   string
	lastScope Scope
	lastOpts  QueryOptions
}

func (e *fakeEngine) Parse(ctx context.Context, scope Scope, mql string, opts QueryOptions) (ParsedQuery, error) {
	e.lastMQL = mql
	e.lastScope = scope
	e.lastOpts = opts
	if e.panicMsg != "" {
		panic(e.panicMsg)
	}
	if e.parseErr != nil {
		return nil, e.parseErr
	}
	return &fakeQuery{e: e}, nil
}

type fakeQuery struct {
	e *fakeEngine
}

func (q *fakeQuery) ValuesFor(ctx context.Context, version APIVersion) ([]Row, error) {
	if q.e.valuesErr != nil {
		return nil, q.e.valuesErr
	}
	return q.e.rows[version], nil
}

func (q *fakeQuery) CanBeCached() bool { return q.e.cacheable }

type recordingAlerts struct {
	messages []string
}

func (r *recordingAlerts) Alert(message string) {
	r.messages = append(r.messages, message)
}

// neverLoad returns a loader that fails the test when invoked.
func neverLoad[T any](t *testing.T) Loader[T] {
	return func() (T, error) {
		t.Helper()
		t.Errorf("loader must not be called")
		var zero T
		return zero, errors.New("unexpected load")
	}
}

func str(s string) *string { return &s }

// storyDefectGraph is two card types, Story (1) and Defect (2), sharing the
// managed text property Status. The Status → card types associations are
// deliberately loaded in reverse position order.
type storyDefectGraph struct {
	project *Project
	story   *CardType
	defect  *CardType
	status  *PropertyDefinition
	open    *PropertyValue
	closed  *PropertyValue
	loads   map[string]int
}

func newStoryDefectGraph(t *testing.T) *storyDefectGraph {
	g := &storyDefectGraph{loads: map[string]int{}}
	count := func(name string) { g.loads[name]++ }

	story, storyW := NewCardType(cardTypeRec{name: "Story", color: "#00FF00", position: 1})
	defect, defectW := NewCardType(cardTypeRec{name: "Defect", color: "ff0000", position: 2})
	status, statusW := NewPropertyDefinition(propDefRec{name: "Status", description: "Workflow state", typ: PropertyTypeManagedText})
	g.story, g.defect, g.status = story, defect, status

	join := func(ct *CardType, pd *PropertyDefinition, pos int) *CardTypePropertyDefinition {
		j, w := NewCardTypePropertyDefinition(joinRec{position: pos})
		w.CardType(func() (*CardType, error) { return ct, nil })
		w.PropertyDefinition(func() (*PropertyDefinition, error) { return pd, nil })
		return j
	}
	storyStatus := join(story, status, 1)
	defectStatus := join(defect, status, 1)

	storyW.PropertyDefinitions(func() ([]*CardTypePropertyDefinition, error) {
		count("story.property_definitions")
		return []*CardTypePropertyDefinition{storyStatus}, nil
	})
	defectW.PropertyDefinitions(func() ([]*CardTypePropertyDefinition, error) {
		count("defect.property_definitions")
		return []*CardTypePropertyDefinition{defectStatus}, nil
	})
	statusW.CardTypes(func() ([]*CardTypePropertyDefinition, error) {
		count("status.card_types")
		return []*CardTypePropertyDefinition{defectStatus, storyStatus}, nil
	})

	value := func(display, color string) *PropertyValue {
		v, w := NewPropertyValue(valueRec{display: display, db: display, url: display, color: color})
		w.PropertyDefinition(func() (*PropertyDefinition, error) { return status, nil })
		return v
	}
	g.open = value("Open", "#abcdef")
	g.closed = value("Closed", "123456")
	statusW.Values(func() ([]*PropertyValue, error) {
		count("status.values")
		return []*PropertyValue{g.open, g.closed}, nil
	})

	p, pw := NewProject(&fakeProject{identifier: "demo", name: "Demo"}, &fakeEngine{}, QueryOptions{})
	pw.CardTypes(func() ([]*CardType, error) {
		count("project.card_types")
		return []*CardType{story, defect}, nil
	})
	pw.PropertyDefinitions(func() ([]*PropertyDefinition, error) {
		count("project.property_definitions")
		return []*PropertyDefinition{status}, nil
	})
	pw.Team(func() ([]*User, error) {
		count("project.team")
		return []*User{NewUser(userRec{login: "bob", name: "Bob", email: "bob@example.com", vcs: "bobby"})}, nil
	})
	pw.ProjectVariables(func() ([]*ProjectVariable, error) {
		count("project.project_variables")
		return []*ProjectVariable{
			NewProjectVariable(variableRec{name: "x", value: "lower"}),
			NewProjectVariable(variableRec{name: "Current Release", value: "#3 Release 1"}),
		}, nil
	})
	g.project = p
	return g
}

func names[T interface{ Name() string }](items []T) []string {
	out := make([]string, 0, len(items))
	for _, i := range items {
		out = append(out, i.Name())
	}
	return out
}
