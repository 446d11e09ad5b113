package macro

import "fmt"

// CardType is a card type configured on the project.
type CardType struct {
	src                 CardTypeSource
	propertyDefinitions *Ref[[]*CardTypePropertyDefinition]
}

// CardTypeWiring installs the loaders of a CardType.
type CardTypeWiring struct {
	ct *CardType
}

// NewCardType returns a bare CardType and its wiring handle.
func NewCardType(src CardTypeSource) (*CardType, *CardTypeWiring) {
	ct := &CardType{src: src}
	return ct, &CardTypeWiring{ct: ct}
}

// PropertyDefinitions installs the loader of the property definition
// associations.
func (w *CardTypeWiring) PropertyDefinitions(l Loader[[]*CardTypePropertyDefinition]) {
	w.ct.propertyDefinitions = NewRef("property definitions of card type "+w.ct.src.Name(), l)
}

// Name returns the name of the card type.
func (ct *CardType) Name() string {
	return ct.src.Name()
}

// Color returns the hex color code of the card type, without '#'.
func (ct *CardType) Color() string {
	return stripHash(ct.src.Color())
}

// Position returns the 1-based position of the card type in the project.
func (ct *CardType) Position() int {
	return ct.src.Position()
}

// PropertyDefinitions returns the property definitions of this card type in
// the order the host loaded the associations. Unlike
// PropertyDefinition.CardTypes, the result is not re-sorted.
func (ct *CardType) PropertyDefinitions() ([]*PropertyDefinition, error) {
	joins, err := ct.propertyDefinitions.Load()
	if err != nil {
		return nil, err
	}
	out := make([]*PropertyDefinition, 0, len(joins))
	for _, j := range joins {
		pd, err := j.PropertyDefinition()
		if err != nil {
			return nil, err
		}
		out = append(out, pd)
	}
	return out, nil
}

func (ct *CardType) String() string {
	return fmt.Sprintf("CardType[name=%s,color=%s,position=%d]", ct.Name(), ct.Color(), ct.Position())
}
