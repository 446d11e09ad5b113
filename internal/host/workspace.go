// Loads and validates a workspace directory.

package host

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/maruel/macrokit/internal/jsonldb"
	"github.com/maruel/macrokit/internal/macro"
)

// Workspace file names.
const (
	ProjectConfigFile        = "project.yaml"
	UsersFile                = "users.jsonl"
	CardTypesFile            = "card_types.jsonl"
	PropertyDefinitionsFile  = "property_definitions.jsonl"
	CardTypePropertyDefsFile = "card_type_property_definitions.jsonl"
	ValuesFile               = "values.jsonl"
	TeamFile                 = "team.jsonl"
	CardsFile                = "cards.jsonl"
)

// isoDate is the layout of stored dates.
const isoDate = "2006-01-02"

// reservedPropertyNames are the built-in MQL columns.
var reservedPropertyNames = []string{"number", "name", "type"}

// workspace is the raw content of a workspace directory.
type workspace struct {
	users    []*UserRecord
	projects []*projectData
}

type projectData struct {
	config              *ProjectConfig
	cardTypes           []*CardTypeRecord
	propertyDefinitions []*PropertyDefinitionRecord
	joins               []*CardTypePropertyDefinitionRecord
	values              []*EnumerationValueRecord
	members             []*MemberRecord
	cards               []*CardRecord
}

// LoadWorkspace reads every project under dir, validates the whole
// workspace and indexes it. All validation problems are reported together.
func LoadWorkspace(ctx context.Context, dir string) (*Store, error) {
	start := time.Now()
	w, err := readWorkspace(dir)
	if err != nil {
		return nil, err
	}
	if err := w.Validate(); err != nil {
		return nil, fmt.Errorf("invalid workspace %s: %w", dir, err)
	}
	s, err := NewStore()
	if err != nil {
		return nil, err
	}
	if err := s.insert(w); err != nil {
		return nil, err
	}
	cards := 0
	for _, p := range w.projects {
		cards += len(p.cards)
	}
	slog.InfoContext(ctx, "Loaded workspace", "dir", dir, "projects", len(w.projects), "users", len(w.users), "cards", cards, "dur", time.Since(start).Round(time.Millisecond))
	return s, nil
}

func loadTable[T jsonldb.Row[T]](path string) ([]T, error) {
	t, err := jsonldb.NewTable[T](path)
	if err != nil {
		return nil, err
	}
	return slices.Collect(t.All()), nil
}

func readWorkspace(dir string) (*workspace, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read workspace: %w", err)
	}
	w := &workspace{}
	var errs *multierror.Error
	if w.users, err = loadTable[*UserRecord](filepath.Join(dir, UsersFile)); err != nil {
		errs = multierror.Append(errs, err)
	}
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		cfgPath := filepath.Join(dir, e.Name(), ProjectConfigFile)
		if _, err := os.Stat(cfgPath); errors.Is(err, os.ErrNotExist) {
			continue
		}
		p, err := readProject(filepath.Join(dir, e.Name()))
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("project %s: %w", e.Name(), err))
			continue
		}
		if p.config.Identifier != e.Name() {
			errs = multierror.Append(errs, fmt.Errorf("project %s: identifier %q does not match the directory name", e.Name(), p.config.Identifier))
			continue
		}
		w.projects = append(w.projects, p)
	}
	if err := errs.ErrorOrNil(); err != nil {
		return nil, err
	}
	return w, nil
}

func readProject(dir string) (*projectData, error) {
	cfg, err := ParseProjectConfig(filepath.Join(dir, ProjectConfigFile))
	if err != nil {
		return nil, err
	}
	p := &projectData{config: cfg}
	var errs *multierror.Error
	if p.cardTypes, err = loadTable[*CardTypeRecord](filepath.Join(dir, CardTypesFile)); err != nil {
		errs = multierror.Append(errs, err)
	}
	if p.propertyDefinitions, err = loadTable[*PropertyDefinitionRecord](filepath.Join(dir, PropertyDefinitionsFile)); err != nil {
		errs = multierror.Append(errs, err)
	}
	if p.joins, err = loadTable[*CardTypePropertyDefinitionRecord](filepath.Join(dir, CardTypePropertyDefsFile)); err != nil {
		errs = multierror.Append(errs, err)
	}
	if p.values, err = loadTable[*EnumerationValueRecord](filepath.Join(dir, ValuesFile)); err != nil {
		errs = multierror.Append(errs, err)
	}
	if p.members, err = loadTable[*MemberRecord](filepath.Join(dir, TeamFile)); err != nil {
		errs = multierror.Append(errs, err)
	}
	if p.cards, err = loadTable[*CardRecord](filepath.Join(dir, CardsFile)); err != nil {
		errs = multierror.Append(errs, err)
	}
	if err := errs.ErrorOrNil(); err != nil {
		return nil, err
	}
	p.setProject(cfg.Identifier)
	return p, nil
}

func (p *projectData) setProject(id string) {
	for _, r := range p.cardTypes {
		r.Project = id
	}
	for _, r := range p.propertyDefinitions {
		r.Project = id
	}
	for _, r := range p.joins {
		r.Project = id
	}
	for _, r := range p.values {
		r.Project = id
	}
	for _, r := range p.members {
		r.Project = id
	}
	for _, r := range p.cards {
		r.Project = id
	}
}

// Validate checks cross references across the workspace.
func (w *workspace) Validate() error {
	var errs *multierror.Error
	usersByID := make(map[int]*UserRecord, len(w.users))
	logins := make(map[string]bool, len(w.users))
	for _, u := range w.users {
		if usersByID[u.ID] != nil {
			errs = multierror.Append(errs, fmt.Errorf("users: id %d is used twice", u.ID))
		}
		usersByID[u.ID] = u
		if logins[u.Login] {
			errs = multierror.Append(errs, fmt.Errorf("users: login %q is used twice", u.Login))
		}
		logins[u.Login] = true
	}
	for _, p := range w.projects {
		v := &projectValidator{p: p, usersByID: usersByID}
		for _, err := range v.validate() {
			errs = multierror.Append(errs, fmt.Errorf("project %s: %w", p.config.Identifier, err))
		}
	}
	return errs.ErrorOrNil()
}

// projectValidator checks one project against its own indexes.
type projectValidator struct {
	p         *projectData
	usersByID map[int]*UserRecord
	errs      []error

	cardTypes     map[int]*CardTypeRecord
	cardTypeNames map[string]*CardTypeRecord
	propDefs      map[int]*PropertyDefinitionRecord
	propDefNames  map[string]*PropertyDefinitionRecord
	applicable    map[[2]int]bool
	values        map[int][]string
	members       map[string]bool
	cardNumbers   map[int]bool
}

func (v *projectValidator) fail(format string, args ...any) {
	v.errs = append(v.errs, fmt.Errorf(format, args...))
}

func (v *projectValidator) validate() []error {
	p := v.p
	v.cardTypes = map[int]*CardTypeRecord{}
	v.cardTypeNames = map[string]*CardTypeRecord{}
	if len(p.cardTypes) == 0 {
		v.fail("a project needs at least one card type")
	}
	positions := map[int]*CardTypeRecord{}
	for _, r := range p.cardTypes {
		if other := positions[r.Position]; other != nil {
			v.fail("card types %q and %q are both at position %d", other.Name, r.Name, r.Position)
		}
		positions[r.Position] = r
		if v.cardTypes[r.ID] != nil {
			v.fail("card type id %d is used twice", r.ID)
		}
		v.cardTypes[r.ID] = r
		if v.cardTypeNames[strings.ToLower(r.Name)] != nil {
			v.fail("card type %q is defined twice", r.Name)
		}
		v.cardTypeNames[strings.ToLower(r.Name)] = r
	}

	v.propDefs = map[int]*PropertyDefinitionRecord{}
	v.propDefNames = map[string]*PropertyDefinitionRecord{}
	for _, r := range p.propertyDefinitions {
		if v.propDefs[r.ID] != nil {
			v.fail("property definition id %d is used twice", r.ID)
		}
		v.propDefs[r.ID] = r
		lower := strings.ToLower(r.Name)
		if slices.Contains(reservedPropertyNames, lower) {
			v.fail("property %q is reserved for a built-in column", r.Name)
		}
		if v.propDefNames[lower] != nil {
			v.fail("property %q is defined twice", r.Name)
		}
		v.propDefNames[lower] = r
	}

	v.applicable = map[[2]int]bool{}
	for _, r := range p.joins {
		if v.cardTypes[r.CardTypeID] == nil {
			v.fail("card type %d of a card type property definition does not exist", r.CardTypeID)
		}
		if v.propDefs[r.PropertyDefinitionID] == nil {
			v.fail("property definition %d of a card type property definition does not exist", r.PropertyDefinitionID)
		}
		k := [2]int{r.CardTypeID, r.PropertyDefinitionID}
		if v.applicable[k] {
			v.fail("property definition %d is attached twice to card type %d", r.PropertyDefinitionID, r.CardTypeID)
		}
		v.applicable[k] = true
	}

	v.values = map[int][]string{}
	valueIDs := map[int]bool{}
	for _, r := range p.values {
		if valueIDs[r.ID] {
			v.fail("value id %d is used twice", r.ID)
		}
		valueIDs[r.ID] = true
		pd := v.propDefs[r.PropertyDefinitionID]
		switch {
		case pd == nil:
			v.fail("value %q: property definition %d does not exist", r.Value, r.PropertyDefinitionID)
			continue
		case pd.Type != macro.PropertyTypeManagedText && pd.Type != macro.PropertyTypeManagedNumber:
			v.fail("value %q: property %q is %s and has no managed values", r.Value, pd.Name, pd.Type.Description())
			continue
		case pd.Type == macro.PropertyTypeManagedNumber:
			if _, err := strconv.ParseFloat(r.Value, 64); err != nil {
				v.fail("value %q of %q is not a number", r.Value, pd.Name)
			}
		}
		if slices.ContainsFunc(v.values[pd.ID], func(s string) bool { return strings.EqualFold(s, r.Value) }) {
			v.fail("value %q of %q is defined twice", r.Value, pd.Name)
		}
		v.values[pd.ID] = append(v.values[pd.ID], r.Value)
	}

	v.members = map[string]bool{}
	for _, r := range p.members {
		u := v.usersByID[r.UserID]
		if u == nil {
			v.fail("team member %d is not a user", r.UserID)
			continue
		}
		if v.members[u.Login] {
			v.fail("user %q is a team member twice", u.Login)
		}
		v.members[u.Login] = true
	}

	v.cardNumbers = map[int]bool{}
	for _, c := range p.cards {
		if v.cardNumbers[c.Number] {
			v.fail("card #%d is defined twice", c.Number)
		}
		v.cardNumbers[c.Number] = true
	}
	for _, c := range p.cards {
		v.validateCard(c)
	}
	for _, pv := range p.config.Variables {
		if pv.Value == "" {
			continue
		}
		t, err := pv.PropertyType()
		if err != nil {
			continue
		}
		if err := v.checkValue(t, 0, pv.Value); err != nil {
			v.fail("project variable %q: %w", pv.Name, err)
		}
	}
	return v.errs
}

func (v *projectValidator) validateCard(c *CardRecord) {
	ct := v.cardTypeNames[strings.ToLower(c.CardType)]
	if ct == nil {
		v.fail("card #%d: card type %q does not exist", c.Number, c.CardType)
		return
	}
	if ct.Name != c.CardType {
		v.fail("card #%d: card type %q must be spelled %q", c.Number, c.CardType, ct.Name)
	}
	names := make([]string, 0, len(c.Properties))
	for name := range c.Properties {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		pd := v.propDefNames[strings.ToLower(name)]
		if pd == nil {
			v.fail("card #%d: property %q does not exist", c.Number, name)
			continue
		}
		if pd.Name != name {
			v.fail("card #%d: property %q must be spelled %q", c.Number, name, pd.Name)
		}
		if !v.applicable[[2]int{ct.ID, pd.ID}] {
			v.fail("card #%d: property %q does not apply to %s", c.Number, pd.Name, ct.Name)
		}
		if err := v.checkValue(pd.Type, pd.ID, c.Properties[name]); err != nil {
			v.fail("card #%d: property %q: %w", c.Number, pd.Name, err)
		}
	}
}

// checkValue validates a stored value for a property of type t. propDefID
// is used for managed values and is 0 for project variables.
func (v *projectValidator) checkValue(t macro.PropertyType, propDefID int, value string) error {
	switch t {
	case macro.PropertyTypeManagedText:
		if propDefID != 0 && !slices.Contains(v.values[propDefID], value) {
			return fmt.Errorf("%q is not a managed value", value)
		}
	case macro.PropertyTypeManagedNumber:
		if _, err := strconv.ParseFloat(value, 64); err != nil {
			return fmt.Errorf("%q is not a number", value)
		}
		if propDefID != 0 && !slices.Contains(v.values[propDefID], value) {
			return fmt.Errorf("%q is not a managed value", value)
		}
	case macro.PropertyTypeAnyNumber, macro.PropertyTypeFormula, macro.PropertyTypeAggregate:
		if _, err := strconv.ParseFloat(value, 64); err != nil {
			return fmt.Errorf("%q is not a number", value)
		}
	case macro.PropertyTypeDate:
		if _, err := time.Parse(isoDate, value); err != nil {
			return fmt.Errorf("%q is not a YYYY-MM-DD date", value)
		}
	case macro.PropertyTypeUser:
		if !v.members[value] {
			return fmt.Errorf("%q is not a team member", value)
		}
	case macro.PropertyTypeCard, macro.PropertyTypeTreeRelationship:
		n, err := strconv.Atoi(value)
		if err != nil || !v.cardNumbers[n] {
			return fmt.Errorf("%q is not a card number", value)
		}
	case macro.PropertyTypeAnyText:
	}
	return nil
}
