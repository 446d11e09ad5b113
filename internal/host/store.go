// Indexes workspace records in memory.

package host

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/hashicorp/go-memdb"
)

const (
	tableProjects            = "projects"
	tableCardTypes           = "card_types"
	tablePropertyDefinitions = "property_definitions"
	tableJoins               = "card_type_property_definitions"
	tableValues              = "values"
	tableUsers               = "users"
	tableMembers             = "members"
	tableCards               = "cards"

	indexID                 = "id"
	indexProject            = "project"
	indexLogin              = "login"
	indexCardType           = "card_type"
	indexPropertyDefinition = "property_definition"
)

func projectIndex() *memdb.IndexSchema {
	return &memdb.IndexSchema{
		Name:    indexProject,
		Indexer: &memdb.StringFieldIndex{Field: "Project"},
	}
}

// compound indexes the project followed by the given fields.
func compound(name string, unique bool, indexes ...memdb.Indexer) *memdb.IndexSchema {
	return &memdb.IndexSchema{
		Name:    name,
		Unique:  unique,
		Indexer: &memdb.CompoundIndex{Indexes: append([]memdb.Indexer{&memdb.StringFieldIndex{Field: "Project"}}, indexes...)},
	}
}

func schema() *memdb.DBSchema {
	return &memdb.DBSchema{
		Tables: map[string]*memdb.TableSchema{
			tableProjects: {
				Name: tableProjects,
				Indexes: map[string]*memdb.IndexSchema{
					indexID: {Name: indexID, Unique: true, Indexer: &memdb.StringFieldIndex{Field: "Identifier"}},
				},
			},
			tableCardTypes: {
				Name: tableCardTypes,
				Indexes: map[string]*memdb.IndexSchema{
					indexID:      compound(indexID, true, &memdb.IntFieldIndex{Field: "ID"}),
					indexProject: projectIndex(),
				},
			},
			tablePropertyDefinitions: {
				Name: tablePropertyDefinitions,
				Indexes: map[string]*memdb.IndexSchema{
					indexID:      compound(indexID, true, &memdb.IntFieldIndex{Field: "ID"}),
					indexProject: projectIndex(),
				},
			},
			tableJoins: {
				Name: tableJoins,
				Indexes: map[string]*memdb.IndexSchema{
					indexID:                 compound(indexID, true, &memdb.IntFieldIndex{Field: "CardTypeID"}, &memdb.IntFieldIndex{Field: "PropertyDefinitionID"}),
					indexCardType:           compound(indexCardType, false, &memdb.IntFieldIndex{Field: "CardTypeID"}),
					indexPropertyDefinition: compound(indexPropertyDefinition, false, &memdb.IntFieldIndex{Field: "PropertyDefinitionID"}),
				},
			},
			tableValues: {
				Name: tableValues,
				Indexes: map[string]*memdb.IndexSchema{
					indexID:                 compound(indexID, true, &memdb.IntFieldIndex{Field: "ID"}),
					indexPropertyDefinition: compound(indexPropertyDefinition, false, &memdb.IntFieldIndex{Field: "PropertyDefinitionID"}),
				},
			},
			tableUsers: {
				Name: tableUsers,
				Indexes: map[string]*memdb.IndexSchema{
					indexID:    {Name: indexID, Unique: true, Indexer: &memdb.IntFieldIndex{Field: "ID"}},
					indexLogin: {Name: indexLogin, Unique: true, Indexer: &memdb.StringFieldIndex{Field: "Login"}},
				},
			},
			tableMembers: {
				Name: tableMembers,
				Indexes: map[string]*memdb.IndexSchema{
					indexID:      compound(indexID, true, &memdb.IntFieldIndex{Field: "UserID"}),
					indexProject: projectIndex(),
				},
			},
			tableCards: {
				Name: tableCards,
				Indexes: map[string]*memdb.IndexSchema{
					indexID:      compound(indexID, true, &memdb.IntFieldIndex{Field: "Number"}),
					indexProject: projectIndex(),
				},
			},
		},
	}
}

// Store is an immutable in-memory index of a loaded workspace.
type Store struct {
	db *memdb.MemDB
}

// NewStore returns an empty store.
func NewStore() (*Store, error) {
	db, err := memdb.NewMemDB(schema())
	if err != nil {
		return nil, fmt.Errorf("failed to create store: %w", err)
	}
	return &Store{db: db}, nil
}

// insert adds every record of w in one transaction.
func (s *Store) insert(w *workspace) error {
	txn := s.db.Txn(true)
	defer txn.Abort()
	ins := func(table string, obj any) error {
		if err := txn.Insert(table, obj); err != nil {
			return fmt.Errorf("failed to insert into %s: %w", table, err)
		}
		return nil
	}
	for _, u := range w.users {
		if err := ins(tableUsers, u); err != nil {
			return err
		}
	}
	for _, p := range w.projects {
		if err := ins(tableProjects, p.config); err != nil {
			return err
		}
		for _, r := range p.cardTypes {
			if err := ins(tableCardTypes, r); err != nil {
				return err
			}
		}
		for _, r := range p.propertyDefinitions {
			if err := ins(tablePropertyDefinitions, r); err != nil {
				return err
			}
		}
		for _, r := range p.joins {
			if err := ins(tableJoins, r); err != nil {
				return err
			}
		}
		for _, r := range p.values {
			if err := ins(tableValues, r); err != nil {
				return err
			}
		}
		for _, r := range p.members {
			if err := ins(tableMembers, r); err != nil {
				return err
			}
		}
		for _, r := range p.cards {
			if err := ins(tableCards, r); err != nil {
				return err
			}
		}
	}
	txn.Commit()
	return nil
}

func list[T any](s *Store, table, index string, args ...any) ([]T, error) {
	txn := s.db.Txn(false)
	defer txn.Abort()
	it, err := txn.Get(table, index, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", table, err)
	}
	var out []T
	for raw := it.Next(); raw != nil; raw = it.Next() {
		out = append(out, raw.(T))
	}
	return out, nil
}

func first[T any](s *Store, table, index string, args ...any) (T, bool, error) {
	var zero T
	txn := s.db.Txn(false)
	defer txn.Abort()
	raw, err := txn.First(table, index, args...)
	if err != nil {
		return zero, false, fmt.Errorf("failed to query %s: %w", table, err)
	}
	if raw == nil {
		return zero, false, nil
	}
	return raw.(T), true, nil
}

// Projects returns the project configs sorted by identifier.
func (s *Store) Projects() ([]*ProjectConfig, error) {
	return list[*ProjectConfig](s, tableProjects, indexID+"_prefix", "")
}

// Project returns the config of the project.
func (s *Store) Project(identifier string) (*ProjectConfig, bool, error) {
	return first[*ProjectConfig](s, tableProjects, indexID, identifier)
}

// CardTypes returns the card types of project sorted by position.
func (s *Store) CardTypes(project string) ([]*CardTypeRecord, error) {
	out, err := list[*CardTypeRecord](s, tableCardTypes, indexProject, project)
	slices.SortStableFunc(out, func(a, b *CardTypeRecord) int {
		return cmp.Or(cmp.Compare(a.Position, b.Position), cmp.Compare(a.ID, b.ID))
	})
	return out, err
}

// CardType returns a card type by id.
func (s *Store) CardType(project string, id int) (*CardTypeRecord, bool, error) {
	return first[*CardTypeRecord](s, tableCardTypes, indexID, project, id)
}

// PropertyDefinitions returns the property definitions of project sorted by
// name, case insensitively.
func (s *Store) PropertyDefinitions(project string) ([]*PropertyDefinitionRecord, error) {
	out, err := list[*PropertyDefinitionRecord](s, tablePropertyDefinitions, indexProject, project)
	slices.SortStableFunc(out, func(a, b *PropertyDefinitionRecord) int {
		return cmp.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	})
	return out, err
}

// PropertyDefinition returns a property definition by id.
func (s *Store) PropertyDefinition(project string, id int) (*PropertyDefinitionRecord, bool, error) {
	return first[*PropertyDefinitionRecord](s, tablePropertyDefinitions, indexID, project, id)
}

// JoinsForCardType returns the property definitions of a card type sorted
// by their position on the card.
func (s *Store) JoinsForCardType(project string, cardTypeID int) ([]*CardTypePropertyDefinitionRecord, error) {
	out, err := list[*CardTypePropertyDefinitionRecord](s, tableJoins, indexCardType, project, cardTypeID)
	slices.SortStableFunc(out, func(a, b *CardTypePropertyDefinitionRecord) int {
		return cmp.Compare(a.Position, b.Position)
	})
	return out, err
}

// JoinsForPropertyDefinition returns the card types using a property
// definition, in index order.
func (s *Store) JoinsForPropertyDefinition(project string, propertyDefinitionID int) ([]*CardTypePropertyDefinitionRecord, error) {
	return list[*CardTypePropertyDefinitionRecord](s, tableJoins, indexPropertyDefinition, project, propertyDefinitionID)
}

// Values returns the managed values of a property definition sorted by
// position.
func (s *Store) Values(project string, propertyDefinitionID int) ([]*EnumerationValueRecord, error) {
	out, err := list[*EnumerationValueRecord](s, tableValues, indexPropertyDefinition, project, propertyDefinitionID)
	slices.SortStableFunc(out, func(a, b *EnumerationValueRecord) int {
		return cmp.Or(cmp.Compare(a.Position, b.Position), cmp.Compare(a.ID, b.ID))
	})
	return out, err
}

// User returns a user by id.
func (s *Store) User(id int) (*UserRecord, bool, error) {
	return first[*UserRecord](s, tableUsers, indexID, id)
}

// UserByLogin returns a user by login.
func (s *Store) UserByLogin(login string) (*UserRecord, bool, error) {
	return first[*UserRecord](s, tableUsers, indexLogin, login)
}

// Team returns the members of project sorted by name.
func (s *Store) Team(project string) ([]*UserRecord, error) {
	members, err := list[*MemberRecord](s, tableMembers, indexProject, project)
	if err != nil {
		return nil, err
	}
	out := make([]*UserRecord, 0, len(members))
	for _, m := range members {
		u, ok, err := s.User(m.UserID)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, u)
		}
	}
	slices.SortStableFunc(out, func(a, b *UserRecord) int {
		return cmp.Or(cmp.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name)), cmp.Compare(a.ID, b.ID))
	})
	return out, nil
}

// Cards returns the cards of project sorted by number.
func (s *Store) Cards(project string) ([]*CardRecord, error) {
	out, err := list[*CardRecord](s, tableCards, indexProject, project)
	slices.SortStableFunc(out, func(a, b *CardRecord) int {
		return cmp.Compare(a.Number, b.Number)
	})
	return out, err
}

// Card returns a card by number.
func (s *Store) Card(project string, number int) (*CardRecord, bool, error) {
	return first[*CardRecord](s, tableCards, indexID, project, number)
}
