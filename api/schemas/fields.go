package schemas

// InputKind is the kind of form control a DetectedField represents.
type InputKind string

const (
	InputText     InputKind = "text"
	InputEmail    InputKind = "email"
	InputTel      InputKind = "tel"
	InputDate     InputKind = "date"
	InputNumber   InputKind = "number"
	InputSelect   InputKind = "select"
	InputTextarea InputKind = "textarea"
	InputCheckbox InputKind = "checkbox"
	InputRadio    InputKind = "radio"
)

// SelectOption is one <option> of a select control.
type SelectOption struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// DetectedField is a form control discovered on a page. It lives only for
// the duration of one automation run.
type DetectedField struct {
	Name        string         `json:"name"`
	Selector    string         `json:"selector"`
	Kind        InputKind      `json:"kind"`
	Label       string         `json:"label,omitempty"`
	Placeholder string         `json:"placeholder,omitempty"`
	Required    bool           `json:"required"`
	Options     []SelectOption `json:"options,omitempty"`
}

// FieldMapping is a detected field paired with the transformed value that
// should be written into it.
type FieldMapping struct {
	Field     DetectedField `json:"field"`
	Attribute Attribute     `json:"attribute"`
	Value     string        `json:"value"`
}
