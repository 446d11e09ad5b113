package macro

import (
	"fmt"
	"strings"
)

// PropertyValue is one value of a property definition.
//
// The three representations depend on the property type:
//
//	type            DisplayValue          DBIdentifier        URLIdentifier
//	text, number    the value             the value           the value
//	date            project date format   ISO date            project date format
//	user            user name             user id             user login
//	card            "#number name"        card id             "#number name"
type PropertyValue struct {
	src                PropertyValueSource
	propertyDefinition *Ref[*PropertyDefinition]
}

// PropertyValueWiring installs the loaders of a PropertyValue.
type PropertyValueWiring struct {
	pv *PropertyValue
}

// NewPropertyValue returns a bare PropertyValue and its wiring handle.
func NewPropertyValue(src PropertyValueSource) (*PropertyValue, *PropertyValueWiring) {
	pv := &PropertyValue{src: src}
	return pv, &PropertyValueWiring{pv: pv}
}

// PropertyDefinition installs the loader of the owning property definition.
func (w *PropertyValueWiring) PropertyDefinition(l Loader[*PropertyDefinition]) {
	w.pv.propertyDefinition = NewRef("property definition of value "+w.pv.src.DisplayValue(), l)
}

// DisplayValue returns the value as it should be shown to users.
func (pv *PropertyValue) DisplayValue() string {
	return pv.src.DisplayValue()
}

// DBIdentifier returns the value as stored by the host. Macros rarely need
// it.
func (pv *PropertyValue) DBIdentifier() string {
	return pv.src.DBIdentifier()
}

// URLIdentifier returns a unique representation of the value usable in links
// back into the host.
func (pv *PropertyValue) URLIdentifier() string {
	return pv.src.URLIdentifier()
}

// Color returns the hex color code of the value, without '#'.
func (pv *PropertyValue) Color() string {
	return stripHash(pv.src.Color())
}

// PropertyDefinition returns the property definition this value belongs to.
func (pv *PropertyValue) PropertyDefinition() (*PropertyDefinition, error) {
	return pv.propertyDefinition.Load()
}

func (pv *PropertyValue) String() string {
	return fmt.Sprintf("PropertyValue[display_value=%s,db_identifier=%s,url_identifier=%s]",
		pv.DisplayValue(), pv.DBIdentifier(), pv.URLIdentifier())
}

// stripHash removes every '#' from a host color. Case and digits are left as
// the host stored them.
func stripHash(color string) string {
	return strings.ReplaceAll(color, "#", "")
}
