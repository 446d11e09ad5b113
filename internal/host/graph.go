// Builds the lazily resolved facade graph of one project.

package host

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/maruel/macrokit/internal/macro"
)

// notSet is the display value of a project variable without a value.
const notSet = "(not set)"

// userPalette assigns a stable color to each team member.
var userPalette = []string{"#3366ff", "#ff6633", "#33cc66", "#cc33cc", "#ffcc00", "#00cccc", "#996633", "#666699"}

// graph memoizes facades so each record maps to a single facade instance
// even though card types and property definitions refer to each other.
type graph struct {
	h   *Host
	cfg *ProjectConfig

	mu        sync.Mutex
	cardTypes map[int]*macro.CardType
	propDefs  map[int]*macro.PropertyDefinition
}

func newGraph(h *Host, cfg *ProjectConfig) *graph {
	return &graph{
		h:         h,
		cfg:       cfg,
		cardTypes: map[int]*macro.CardType{},
		propDefs:  map[int]*macro.PropertyDefinition{},
	}
}

func (g *graph) id() string {
	return g.cfg.Identifier
}

func (g *graph) build(opts macro.QueryOptions) *macro.Project {
	p, w := macro.NewProject(&projectSource{g: g}, g.h.engine, opts)
	w.CardTypes(func() ([]*macro.CardType, error) {
		recs, err := g.h.store.CardTypes(g.id())
		if err != nil {
			return nil, err
		}
		out := make([]*macro.CardType, 0, len(recs))
		for _, r := range recs {
			out = append(out, g.cardType(r))
		}
		return out, nil
	})
	w.PropertyDefinitions(func() ([]*macro.PropertyDefinition, error) {
		recs, err := g.h.store.PropertyDefinitions(g.id())
		if err != nil {
			return nil, err
		}
		out := make([]*macro.PropertyDefinition, 0, len(recs))
		for _, r := range recs {
			out = append(out, g.propertyDefinition(r))
		}
		return out, nil
	})
	w.Team(func() ([]*macro.User, error) {
		recs, err := g.h.store.Team(g.id())
		if err != nil {
			return nil, err
		}
		out := make([]*macro.User, 0, len(recs))
		for _, r := range recs {
			out = append(out, macro.NewUser(userSource{r}))
		}
		return out, nil
	})
	w.ProjectVariables(func() ([]*macro.ProjectVariable, error) {
		out := make([]*macro.ProjectVariable, 0, len(g.cfg.Variables))
		for i := range g.cfg.Variables {
			v := &g.cfg.Variables[i]
			display, err := g.variableDisplay(v)
			if err != nil {
				return nil, fmt.Errorf("project variable %q: %w", v.Name, err)
			}
			out = append(out, macro.NewProjectVariable(variableSource{name: v.Name, display: display}))
		}
		return out, nil
	})
	return p
}

func (g *graph) cardType(r *CardTypeRecord) *macro.CardType {
	g.mu.Lock()
	defer g.mu.Unlock()
	if ct := g.cardTypes[r.ID]; ct != nil {
		return ct
	}
	ct, w := macro.NewCardType(cardTypeSource{r})
	w.PropertyDefinitions(func() ([]*macro.CardTypePropertyDefinition, error) {
		joins, err := g.h.store.JoinsForCardType(g.id(), r.ID)
		if err != nil {
			return nil, err
		}
		out := make([]*macro.CardTypePropertyDefinition, 0, len(joins))
		for _, j := range joins {
			out = append(out, g.join(j))
		}
		return out, nil
	})
	g.cardTypes[r.ID] = ct
	return ct
}

func (g *graph) propertyDefinition(r *PropertyDefinitionRecord) *macro.PropertyDefinition {
	g.mu.Lock()
	defer g.mu.Unlock()
	if pd := g.propDefs[r.ID]; pd != nil {
		return pd
	}
	pd, w := macro.NewPropertyDefinition(propertyDefinitionSource{r})
	w.CardTypes(func() ([]*macro.CardTypePropertyDefinition, error) {
		joins, err := g.h.store.JoinsForPropertyDefinition(g.id(), r.ID)
		if err != nil {
			return nil, err
		}
		out := make([]*macro.CardTypePropertyDefinition, 0, len(joins))
		for _, j := range joins {
			out = append(out, g.join(j))
		}
		return out, nil
	})
	w.Values(func() ([]*macro.PropertyValue, error) {
		return g.values(pd, r)
	})
	g.propDefs[r.ID] = pd
	return pd
}

// join returns a new association facade. Joins are not shared; each side
// resolves to the shared card type and property definition facades.
func (g *graph) join(r *CardTypePropertyDefinitionRecord) *macro.CardTypePropertyDefinition {
	j, w := macro.NewCardTypePropertyDefinition(joinSource{r})
	w.CardType(func() (*macro.CardType, error) {
		ct, ok, err := g.h.store.CardType(g.id(), r.CardTypeID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, macro.NotFound("card type", strconv.Itoa(r.CardTypeID))
		}
		return g.cardType(ct), nil
	})
	w.PropertyDefinition(func() (*macro.PropertyDefinition, error) {
		pd, ok, err := g.h.store.PropertyDefinition(g.id(), r.PropertyDefinitionID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, macro.NotFound("property definition", strconv.Itoa(r.PropertyDefinitionID))
		}
		return g.propertyDefinition(pd), nil
	})
	return j
}

// values lists the values of an enumerable property definition: managed
// values in position order, or the team for user properties.
func (g *graph) values(pd *macro.PropertyDefinition, r *PropertyDefinitionRecord) ([]*macro.PropertyValue, error) {
	var srcs []valueSource
	switch r.Type {
	case macro.PropertyTypeUser:
		users, err := g.h.store.Team(g.id())
		if err != nil {
			return nil, err
		}
		for _, u := range users {
			srcs = append(srcs, userValue(u))
		}
	case macro.PropertyTypeManagedText, macro.PropertyTypeManagedNumber:
		recs, err := g.h.store.Values(g.id(), r.ID)
		if err != nil {
			return nil, err
		}
		for _, v := range recs {
			srcs = append(srcs, valueSource{display: v.Value, db: v.Value, url: v.Value, color: v.Color})
		}
	case macro.PropertyTypeAnyText, macro.PropertyTypeAnyNumber, macro.PropertyTypeDate,
		macro.PropertyTypeFormula, macro.PropertyTypeAggregate, macro.PropertyTypeCard,
		macro.PropertyTypeTreeRelationship:
		return nil, macro.UnsupportedOperation("values", r.Type)
	}
	out := make([]*macro.PropertyValue, 0, len(srcs))
	for _, src := range srcs {
		v, w := macro.NewPropertyValue(src)
		w.PropertyDefinition(func() (*macro.PropertyDefinition, error) { return pd, nil })
		out = append(out, v)
	}
	return out, nil
}

// variableDisplay resolves the display value of a project variable the way
// a property value of the same type is displayed.
func (g *graph) variableDisplay(v *VariableConfig) (string, error) {
	if v.Value == "" {
		return notSet, nil
	}
	t, err := v.PropertyType()
	if err != nil {
		return "", err
	}
	src, err := g.valueOf(t, v.Value)
	if err != nil {
		return "", err
	}
	return src.display, nil
}

// valueOf returns the representations of a stored value of type t.
func (g *graph) valueOf(t macro.PropertyType, stored string) (valueSource, error) {
	switch t {
	case macro.PropertyTypeUser:
		u, ok, err := g.h.store.UserByLogin(stored)
		if err != nil {
			return valueSource{}, err
		}
		if !ok {
			return valueSource{}, macro.NotFound("user", stored)
		}
		return userValue(u), nil
	case macro.PropertyTypeDate:
		d, err := time.Parse(isoDate, stored)
		if err != nil {
			return valueSource{}, fmt.Errorf("invalid date %q: %w", stored, err)
		}
		f := g.cfg.FormatDate(d)
		return valueSource{display: f, db: stored, url: f}, nil
	case macro.PropertyTypeCard, macro.PropertyTypeTreeRelationship:
		n, err := strconv.Atoi(stored)
		if err != nil {
			return valueSource{}, fmt.Errorf("invalid card number %q: %w", stored, err)
		}
		c, ok, err := g.h.store.Card(g.id(), n)
		if err != nil {
			return valueSource{}, err
		}
		if !ok {
			return valueSource{}, macro.NotFound("card", "#"+stored)
		}
		label := fmt.Sprintf("#%d %s", c.Number, c.Name)
		return valueSource{display: label, db: stored, url: label}, nil
	case macro.PropertyTypeManagedText, macro.PropertyTypeAnyText, macro.PropertyTypeManagedNumber,
		macro.PropertyTypeAnyNumber, macro.PropertyTypeFormula, macro.PropertyTypeAggregate:
	}
	return valueSource{display: stored, db: stored, url: stored}, nil
}

func userValue(u *UserRecord) valueSource {
	return valueSource{
		display: u.Name,
		db:      strconv.Itoa(u.ID),
		url:     u.Login,
		color:   userPalette[(u.ID-1+len(userPalette))%len(userPalette)],
	}
}

// Adapters from records to the facade source interfaces.

type projectSource struct {
	g *graph
}

func (s *projectSource) Identifier() string            { return s.g.cfg.Identifier }
func (s *projectSource) Name() string                  { return s.g.cfg.Name }
func (s *projectSource) FormatNumber(n float64) string { return s.g.cfg.FormatNumber(n) }
func (s *projectSource) FormatDate(t time.Time) string { return s.g.cfg.FormatDate(t) }

func (s *projectSource) EnterActiveProject(ctx context.Context) (macro.Scope, error) {
	return s.g.h.enter(ctx, s.g.cfg.Identifier)
}

type cardTypeSource struct{ r *CardTypeRecord }

func (s cardTypeSource) Name() string  { return s.r.Name }
func (s cardTypeSource) Color() string { return s.r.Color }
func (s cardTypeSource) Position() int { return s.r.Position }

type joinSource struct {
	r *CardTypePropertyDefinitionRecord
}

func (s joinSource) Position() int { return s.r.Position }

type propertyDefinitionSource struct {
	r *PropertyDefinitionRecord
}

func (s propertyDefinitionSource) Name() string             { return s.r.Name }
func (s propertyDefinitionSource) Description() string      { return s.r.Description }
func (s propertyDefinitionSource) Type() macro.PropertyType { return s.r.Type }

type valueSource struct {
	display, db, url, color string
}

func (s valueSource) DisplayValue() string  { return s.display }
func (s valueSource) DBIdentifier() string  { return s.db }
func (s valueSource) URLIdentifier() string { return s.url }
func (s valueSource) Color() string         { return s.color }

type variableSource struct {
	name, display string
}

func (s variableSource) Name() string         { return s.name }
func (s variableSource) DisplayValue() string { return s.display }

type userSource struct {
	r *UserRecord
}

func (s userSource) Login() string                  { return s.r.Login }
func (s userSource) Name() string                   { return s.r.Name }
func (s userSource) Email() string                  { return s.r.Email }
func (s userSource) VersionControlUserName() string { return s.r.VersionControlUserName }
