package types

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type InputType string

const (
	InputText           InputType = "text"
	InputMultipleChoice InputType = "multipleChoice"
	InputDropdownSelect InputType = "dropdownSelect"
	InputRating         InputType = "rating"
	InputDatePicker     InputType = "datePicker"
)

type FieldConfiguration struct {
	InputType InputType `json:"inputType" jsonschema:"description=How the respondent enters the value"`
	Options   []string  `json:"options,omitempty" jsonschema:"description=Allowed choices for selection input types"`
}

// Field is one slot of the form. A non-nil FieldValue means the field is filled.
type Field struct {
	FieldName          string             `json:"fieldName" jsonschema:"required,description=Name of the form field"`
	FieldDescription   string             `json:"fieldDescription,omitempty" jsonschema:"description=What the field collects"`
	FieldConfiguration FieldConfiguration `json:"fieldConfiguration"`
	FieldValue         *string            `json:"fieldValue" jsonschema:"description=Value given by the respondent"`
}

func (f Field) Filled() bool {
	return f.FieldValue != nil
}

func (f Field) Value() string {
	if f.FieldValue == nil {
		return ""
	}
	return *f.FieldValue
}

type TranscriptEntry struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

func (e TranscriptEntry) Valid() bool {
	return e.Role == RoleUser || e.Role == RoleAssistant
}

// ExtractionVerdict is the judgment of one extraction attempt.
// ExtractedAnswer must not be stored when IsAnswerExtracted is false.
type ExtractionVerdict struct {
	IsAnswerExtracted bool    `json:"isAnswerExtracted" jsonschema:"required,description=True only if the latest user reply answers the current field"`
	ExtractedAnswer   string  `json:"extractedAnswer" jsonschema:"required,description=The answer for the current field normalised to a plain value"`
	ReasonForFailure  *string `json:"reasonForFailure" jsonschema:"description=Short human readable reason when no answer could be extracted"`
	OtherFieldsData   []Field `json:"otherFieldsData" jsonschema:"description=Values the user volunteered for other fields of the form"`
}

// NewVerdict returns the negative verdict used whenever nothing better is known.
func NewVerdict() ExtractionVerdict {
	return ExtractionVerdict{
		OtherFieldsData: []Field{},
	}
}

// StreamData is the side-channel progress payload sent next to a question stream.
type StreamData map[string]any

func StringPtr(s string) *string {
	return &s
}
