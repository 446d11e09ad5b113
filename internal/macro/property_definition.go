package macro

import (
	"fmt"
	"slices"
)

// PropertyDefinition is a property configured on the project.
type PropertyDefinition struct {
	src       PropertyDefinitionSource
	cardTypes *Ref[[]*CardTypePropertyDefinition]
	values    *Ref[[]*PropertyValue]
}

// PropertyDefinitionWiring installs the loaders of a PropertyDefinition.
type PropertyDefinitionWiring struct {
	pd *PropertyDefinition
}

// NewPropertyDefinition returns a bare PropertyDefinition and its wiring
// handle.
func NewPropertyDefinition(src PropertyDefinitionSource) (*PropertyDefinition, *PropertyDefinitionWiring) {
	pd := &PropertyDefinition{src: src}
	return pd, &PropertyDefinitionWiring{pd: pd}
}

// CardTypes installs the loader of the card type associations.
func (w *PropertyDefinitionWiring) CardTypes(l Loader[[]*CardTypePropertyDefinition]) {
	w.pd.cardTypes = NewRef("card types of property "+w.pd.src.Name(), l)
}

// Values installs the loader of the configured values.
func (w *PropertyDefinitionWiring) Values(l Loader[[]*PropertyValue]) {
	w.pd.values = NewRef("values of property "+w.pd.src.Name(), l)
}

// Name returns the name of the property definition.
func (pd *PropertyDefinition) Name() string {
	return pd.src.Name()
}

// Description returns the description of the property definition.
func (pd *PropertyDefinition) Description() string {
	return pd.src.Description()
}

// Type returns the property type.
func (pd *PropertyDefinition) Type() PropertyType {
	return pd.src.Type()
}

// TypeDescription returns the host's description of the property type, e.g.
// "Managed text list".
func (pd *PropertyDefinition) TypeDescription() string {
	return pd.src.Type().Description()
}

// CardTypes returns the card types this property definition is valid for,
// sorted by position.
func (pd *PropertyDefinition) CardTypes() ([]*CardType, error) {
	joins, err := pd.cardTypes.Load()
	if err != nil {
		return nil, err
	}
	out := make([]*CardType, 0, len(joins))
	for _, j := range joins {
		ct, err := j.CardType()
		if err != nil {
			return nil, err
		}
		out = append(out, ct)
	}
	slices.SortStableFunc(out, func(a, b *CardType) int {
		return a.Position() - b.Position()
	})
	return out, nil
}

// Values returns the values explicitly configured for this property
// definition.
//
// Only managed text, managed number and user properties have such a list;
// any other type fails with ErrUnsupportedOperation. Use MQL, e.g.
// "SELECT 'property name'", to list the values in use for those.
func (pd *PropertyDefinition) Values() ([]*PropertyValue, error) {
	if t := pd.Type(); !t.HasEnumerableValues() {
		return nil, UnsupportedOperation("Values", t)
	}
	return loadClone(pd.values)
}

// IsTextual reports whether the property holds managed or free text.
func (pd *PropertyDefinition) IsTextual() bool {
	return pd.Type().IsTextual()
}

// IsNumeric reports whether the property holds managed or free numbers.
func (pd *PropertyDefinition) IsNumeric() bool {
	return pd.Type().IsNumeric()
}

// IsCalculated reports whether the property is a formula or an aggregate.
func (pd *PropertyDefinition) IsCalculated() bool {
	return pd.Type().IsCalculated()
}

// IsDate reports whether the property holds dates.
func (pd *PropertyDefinition) IsDate() bool {
	return pd.Type().IsDate()
}

func (pd *PropertyDefinition) String() string {
	return fmt.Sprintf("PropertyDefinition[name=%s,type=%s]", pd.Name(), pd.TypeDescription())
}
