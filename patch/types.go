package patch

const (
	OperationAdd     = "add"
	OperationReplace = "replace"
	OperationRemove  = "remove"
)

// Operation is one RFC 6902 operation against the collected field list.
type Operation struct {
	Op    string `json:"op"`
	Path  string `json:"path"`
	Value any    `json:"value,omitempty"`
}

// FieldValuePattern matches the value slot of any field.
const FieldValuePattern = "/*/fieldValue"

// DefaultAllowedPaths only lets operations touch field values.
func DefaultAllowedPaths() map[string]bool {
	return map[string]bool{FieldValuePattern: true}
}
