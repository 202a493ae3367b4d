package patch

import (
	"fmt"
	"strings"

	"github.com/tbxark/convoform/types"
)

func fieldValuePath(index int) string {
	return fmt.Sprintf("/%d/fieldValue", index)
}

// BuildOperations turns a verdict into operations on fields. The current field
// is written only when a non-blank answer was extracted, so a verdict without
// a usable answer leaves it to be asked again. Volunteered values for other
// fields are matched by name, case-insensitively, and never overwrite a value
// that is already there.
func BuildOperations(fields []types.Field, currentIndex int, verdict *types.ExtractionVerdict) []Operation {
	if verdict == nil {
		return nil
	}
	ops := make([]Operation, 0, 1+len(verdict.OtherFieldsData))
	written := make(map[int]bool)
	if verdict.IsAnswerExtracted && !blank(verdict.ExtractedAnswer) && currentIndex >= 0 && currentIndex < len(fields) {
		ops = append(ops, Operation{Op: OperationReplace, Path: fieldValuePath(currentIndex), Value: verdict.ExtractedAnswer})
		written[currentIndex] = true
	}
	for _, other := range verdict.OtherFieldsData {
		if other.FieldValue == nil || blank(*other.FieldValue) {
			continue
		}
		idx := indexByName(fields, other.FieldName)
		if idx < 0 || written[idx] || fields[idx].Filled() {
			continue
		}
		ops = append(ops, Operation{Op: OperationReplace, Path: fieldValuePath(idx), Value: *other.FieldValue})
		written[idx] = true
	}
	return ops
}

// PrefillOperations seeds empty fields from known values keyed by field name.
func PrefillOperations(fields []types.Field, values map[string]string) []Operation {
	ops := make([]Operation, 0, len(values))
	for i, field := range fields {
		if field.Filled() {
			continue
		}
		for name, value := range values {
			if strings.EqualFold(name, field.FieldName) {
				ops = append(ops, Operation{Op: OperationReplace, Path: fieldValuePath(i), Value: value})
				break
			}
		}
	}
	return ops
}

func indexByName(fields []types.Field, name string) int {
	name = strings.TrimSpace(name)
	for i, field := range fields {
		if strings.EqualFold(field.FieldName, name) {
			return i
		}
	}
	return -1
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}
