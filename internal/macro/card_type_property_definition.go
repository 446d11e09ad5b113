package macro

// CardTypePropertyDefinition associates a card type with one of its property
// definitions.
type CardTypePropertyDefinition struct {
	src                CardTypePropertyDefinitionSource
	cardType           *Ref[*CardType]
	propertyDefinition *Ref[*PropertyDefinition]
}

// CardTypePropertyDefinitionWiring installs the loaders of a
// CardTypePropertyDefinition.
type CardTypePropertyDefinitionWiring struct {
	j *CardTypePropertyDefinition
}

// NewCardTypePropertyDefinition returns a bare association and its wiring
// handle.
func NewCardTypePropertyDefinition(src CardTypePropertyDefinitionSource) (*CardTypePropertyDefinition, *CardTypePropertyDefinitionWiring) {
	j := &CardTypePropertyDefinition{src: src}
	return j, &CardTypePropertyDefinitionWiring{j: j}
}

// CardType installs the loader of the card type side.
func (w *CardTypePropertyDefinitionWiring) CardType(l Loader[*CardType]) {
	w.j.cardType = NewRef("card type of association", l)
}

// PropertyDefinition installs the loader of the property definition side.
func (w *CardTypePropertyDefinitionWiring) PropertyDefinition(l Loader[*PropertyDefinition]) {
	w.j.propertyDefinition = NewRef("property definition of association", l)
}

// Position returns the 1-based position of the property definition within
// the card type.
func (j *CardTypePropertyDefinition) Position() int {
	return j.src.Position()
}

// CardType returns the card type side of the association.
func (j *CardTypePropertyDefinition) CardType() (*CardType, error) {
	return j.cardType.Load()
}

// PropertyDefinition returns the property definition side of the
// association.
func (j *CardTypePropertyDefinition) PropertyDefinition() (*PropertyDefinition, error) {
	return j.propertyDefinition.Load()
}
