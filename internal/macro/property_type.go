package macro

import "fmt"

// PropertyType is the closed set of property definition types.
type PropertyType int

const (
	// Text types

	// PropertyTypeManagedText only accepts values from a configured list.
	PropertyTypeManagedText PropertyType = iota + 1
	// PropertyTypeAnyText accepts any text.
	PropertyTypeAnyText

	// Number types

	// PropertyTypeManagedNumber only accepts numbers from a configured list.
	PropertyTypeManagedNumber
	// PropertyTypeAnyNumber accepts any number.
	PropertyTypeAnyNumber

	// PropertyTypeDate stores a calendar date.
	PropertyTypeDate

	// Calculated types

	// PropertyTypeFormula is computed from other properties of the card.
	PropertyTypeFormula
	// PropertyTypeAggregate is computed over the descendants of a tree node.
	PropertyTypeAggregate

	// Reference types

	// PropertyTypeUser references a member of the project team.
	PropertyTypeUser
	// PropertyTypeCard references another card.
	PropertyTypeCard
	// PropertyTypeTreeRelationship references the parent card in a tree.
	PropertyTypeTreeRelationship
)

// PropertyTypes lists every property type in declaration order.
var PropertyTypes = []PropertyType{
	PropertyTypeManagedText,
	PropertyTypeAnyText,
	PropertyTypeManagedNumber,
	PropertyTypeAnyNumber,
	PropertyTypeDate,
	PropertyTypeFormula,
	PropertyTypeAggregate,
	PropertyTypeUser,
	PropertyTypeCard,
	PropertyTypeTreeRelationship,
}

// String returns the stable tag of the type, e.g. "managed_text".
func (t PropertyType) String() string {
	switch t {
	case PropertyTypeManagedText:
		return "managed_text"
	case PropertyTypeAnyText:
		return "any_text"
	case PropertyTypeManagedNumber:
		return "managed_number"
	case PropertyTypeAnyNumber:
		return "any_number"
	case PropertyTypeDate:
		return "date"
	case PropertyTypeFormula:
		return "formula"
	case PropertyTypeAggregate:
		return "aggregate"
	case PropertyTypeUser:
		return "user"
	case PropertyTypeCard:
		return "card"
	case PropertyTypeTreeRelationship:
		return "tree_relationship"
	}
	return fmt.Sprintf("PropertyType(%d)", int(t))
}

// Description returns the host's human readable type description.
func (t PropertyType) Description() string {
	switch t {
	case PropertyTypeManagedText:
		return "Managed text list"
	case PropertyTypeAnyText:
		return "Any text"
	case PropertyTypeManagedNumber:
		return "Managed number list"
	case PropertyTypeAnyNumber:
		return "Any number"
	case PropertyTypeDate:
		return "Date"
	case PropertyTypeFormula:
		return "Formula"
	case PropertyTypeAggregate:
		return "Aggregate"
	case PropertyTypeUser:
		return "Automatically generated from the team list"
	case PropertyTypeCard:
		return "Card"
	case PropertyTypeTreeRelationship:
		return "Any card used in tree"
	}
	return t.String()
}

// IsValid reports whether t is one of the declared types.
func (t PropertyType) IsValid() bool {
	return t >= PropertyTypeManagedText && t <= PropertyTypeTreeRelationship
}

// IsTextual reports whether values are free or managed text.
func (t PropertyType) IsTextual() bool {
	switch t {
	case PropertyTypeManagedText, PropertyTypeAnyText:
		return true
	case PropertyTypeManagedNumber, PropertyTypeAnyNumber, PropertyTypeDate,
		PropertyTypeFormula, PropertyTypeAggregate, PropertyTypeUser,
		PropertyTypeCard, PropertyTypeTreeRelationship:
		return false
	}
	return false
}

// IsNumeric reports whether values are free or managed numbers.
func (t PropertyType) IsNumeric() bool {
	switch t {
	case PropertyTypeManagedNumber, PropertyTypeAnyNumber:
		return true
	case PropertyTypeManagedText, PropertyTypeAnyText, PropertyTypeDate,
		PropertyTypeFormula, PropertyTypeAggregate, PropertyTypeUser,
		PropertyTypeCard, PropertyTypeTreeRelationship:
		return false
	}
	return false
}

// IsCalculated reports whether values are computed by the host.
func (t PropertyType) IsCalculated() bool {
	switch t {
	case PropertyTypeFormula, PropertyTypeAggregate:
		return true
	case PropertyTypeManagedText, PropertyTypeAnyText, PropertyTypeManagedNumber,
		PropertyTypeAnyNumber, PropertyTypeDate, PropertyTypeUser,
		PropertyTypeCard, PropertyTypeTreeRelationship:
		return false
	}
	return false
}

// IsDate reports whether values are dates.
func (t PropertyType) IsDate() bool {
	switch t {
	case PropertyTypeDate:
		return true
	case PropertyTypeManagedText, PropertyTypeAnyText, PropertyTypeManagedNumber,
		PropertyTypeAnyNumber, PropertyTypeFormula, PropertyTypeAggregate,
		PropertyTypeUser, PropertyTypeCard, PropertyTypeTreeRelationship:
		return false
	}
	return false
}

// HasEnumerableValues reports whether the host keeps an explicit list of
// values for the type. Only those types support PropertyDefinition.Values;
// the others need an MQL query such as "SELECT name" to list actual values.
func (t PropertyType) HasEnumerableValues() bool {
	switch t {
	case PropertyTypeManagedText, PropertyTypeManagedNumber, PropertyTypeUser:
		return true
	case PropertyTypeAnyText, PropertyTypeAnyNumber, PropertyTypeDate,
		PropertyTypeFormula, PropertyTypeAggregate, PropertyTypeCard,
		PropertyTypeTreeRelationship:
		return false
	}
	return false
}

// ParsePropertyType accepts either a tag ("managed_text") or a host
// description ("Managed text list").
func ParsePropertyType(s string) (PropertyType, error) {
	for _, t := range PropertyTypes {
		if s == t.String() || s == t.Description() {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown property type %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (t PropertyType) MarshalText() ([]byte, error) {
	if !t.IsValid() {
		return nil, fmt.Errorf("invalid property type %d", int(t))
	}
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *PropertyType) UnmarshalText(b []byte) error {
	v, err := ParsePropertyType(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}
