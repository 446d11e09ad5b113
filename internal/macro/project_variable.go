package macro

// ProjectVariable is a named value that stands for a property value in MQL
// and card defaults.
type ProjectVariable struct {
	src ProjectVariableSource
}

// NewProjectVariable returns a ProjectVariable.
func NewProjectVariable(src ProjectVariableSource) *ProjectVariable {
	return &ProjectVariable{src: src}
}

// Name returns the name of the variable.
func (v *ProjectVariable) Name() string {
	return v.src.Name()
}

// Value returns the display value of the variable.
func (v *ProjectVariable) Value() string {
	return v.src.DisplayValue()
}
