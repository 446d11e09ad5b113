// Defines the rows stored in the workspace tables.

package host

import (
	"errors"
	"fmt"
	"maps"

	"github.com/maruel/macrokit/internal/macro"
)

// CardTypeRecord is a row of card_types.jsonl.
type CardTypeRecord struct {
	Project  string `json:"-"`
	ID       int    `json:"id" jsonschema:"description=Identifier unique in the project"`
	Name     string `json:"name"`
	Color    string `json:"color,omitempty" jsonschema:"description=Hex color such as #3366ff"`
	Position int    `json:"position"`
}

// Clone returns a copy of the record.
func (r *CardTypeRecord) Clone() *CardTypeRecord {
	c := *r
	return &c
}

// Validate checks the record on its own.
func (r *CardTypeRecord) Validate() error {
	if r.ID <= 0 {
		return fmt.Errorf("card type %q: id must be positive", r.Name)
	}
	if r.Name == "" {
		return fmt.Errorf("card type %d: name is required", r.ID)
	}
	if r.Position <= 0 {
		return fmt.Errorf("card type %q: position must be positive", r.Name)
	}
	return nil
}

// PropertyDefinitionRecord is a row of property_definitions.jsonl.
type PropertyDefinitionRecord struct {
	Project     string             `json:"-"`
	ID          int                `json:"id" jsonschema:"description=Identifier unique in the project"`
	Name        string             `json:"name"`
	Description string             `json:"description,omitempty"`
	Type        macro.PropertyType `json:"type" jsonschema:"description=Property type tag such as managed_text"`
}

// Clone returns a copy of the record.
func (r *PropertyDefinitionRecord) Clone() *PropertyDefinitionRecord {
	c := *r
	return &c
}

// Validate checks the record on its own.
func (r *PropertyDefinitionRecord) Validate() error {
	if r.ID <= 0 {
		return fmt.Errorf("property definition %q: id must be positive", r.Name)
	}
	if r.Name == "" {
		return fmt.Errorf("property definition %d: name is required", r.ID)
	}
	if !r.Type.IsValid() {
		return fmt.Errorf("property definition %q: invalid type", r.Name)
	}
	return nil
}

// CardTypePropertyDefinitionRecord is a row of
// card_type_property_definitions.jsonl.
type CardTypePropertyDefinitionRecord struct {
	Project              string `json:"-"`
	CardTypeID           int    `json:"card_type_id"`
	PropertyDefinitionID int    `json:"property_definition_id"`
	Position             int    `json:"position" jsonschema:"description=Position of the property on cards of the type"`
}

// Clone returns a copy of the record.
func (r *CardTypePropertyDefinitionRecord) Clone() *CardTypePropertyDefinitionRecord {
	c := *r
	return &c
}

// Validate checks the record on its own.
func (r *CardTypePropertyDefinitionRecord) Validate() error {
	if r.CardTypeID <= 0 || r.PropertyDefinitionID <= 0 {
		return errors.New("card_type_id and property_definition_id are required")
	}
	return nil
}

// EnumerationValueRecord is a row of values.jsonl: one allowed value of a
// managed text or managed number property.
type EnumerationValueRecord struct {
	Project              string `json:"-"`
	ID                   int    `json:"id"`
	PropertyDefinitionID int    `json:"property_definition_id"`
	Value                string `json:"value"`
	Color                string `json:"color,omitempty"`
	Position             int    `json:"position"`
}

// Clone returns a copy of the record.
func (r *EnumerationValueRecord) Clone() *EnumerationValueRecord {
	c := *r
	return &c
}

// Validate checks the record on its own.
func (r *EnumerationValueRecord) Validate() error {
	if r.ID <= 0 {
		return fmt.Errorf("value %q: id must be positive", r.Value)
	}
	if r.PropertyDefinitionID <= 0 {
		return fmt.Errorf("value %q: property_definition_id is required", r.Value)
	}
	if r.Value == "" {
		return fmt.Errorf("value %d: value is required", r.ID)
	}
	return nil
}

// UserRecord is a row of users.jsonl, shared by every project.
type UserRecord struct {
	ID                     int    `json:"id"`
	Login                  string `json:"login"`
	Name                   string `json:"name"`
	Email                  string `json:"email,omitempty"`
	VersionControlUserName string `json:"version_control_user_name,omitempty"`
}

// Clone returns a copy of the record.
func (r *UserRecord) Clone() *UserRecord {
	c := *r
	return &c
}

// Validate checks the record on its own.
func (r *UserRecord) Validate() error {
	if r.ID <= 0 {
		return fmt.Errorf("user %q: id must be positive", r.Login)
	}
	if r.Login == "" {
		return fmt.Errorf("user %d: login is required", r.ID)
	}
	if r.Name == "" {
		return fmt.Errorf("user %q: name is required", r.Login)
	}
	return nil
}

// MemberRecord is a row of team.jsonl.
type MemberRecord struct {
	Project string `json:"-"`
	UserID  int    `json:"user_id"`
}

// Clone returns a copy of the record.
func (r *MemberRecord) Clone() *MemberRecord {
	c := *r
	return &c
}

// Validate checks the record on its own.
func (r *MemberRecord) Validate() error {
	if r.UserID <= 0 {
		return errors.New("user_id is required")
	}
	return nil
}

// CardRecord is a row of cards.jsonl.
type CardRecord struct {
	Project  string `json:"-"`
	Number   int    `json:"number"`
	Name     string `json:"name"`
	CardType string `json:"card_type"`
	// Properties maps property names to stored values: a login for users, a
	// card number for cards and an ISO date for dates. Missing means not set.
	Properties map[string]string `json:"properties,omitempty"`
}

// Clone returns a deep copy of the record.
func (r *CardRecord) Clone() *CardRecord {
	c := *r
	c.Properties = maps.Clone(r.Properties)
	return &c
}

// Validate checks the record on its own.
func (r *CardRecord) Validate() error {
	if r.Number <= 0 {
		return fmt.Errorf("card %q: number must be positive", r.Name)
	}
	if r.Name == "" {
		return fmt.Errorf("card #%d: name is required", r.Number)
	}
	if r.CardType == "" {
		return fmt.Errorf("card #%d: card_type is required", r.Number)
	}
	return nil
}
