package patch

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/bytedance/sonic"
	jsonpatch "github.com/evanphx/json-patch/v5"
	"github.com/tbxark/convoform/types"
)

// Apply returns a copy of fields with ops applied. The input is not modified.
func Apply(fields []types.Field, ops []Operation) ([]types.Field, error) {
	if len(ops) == 0 {
		return cloneFields(fields), nil
	}

	currentJSON, err := sonic.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal fields: %w", err)
	}

	ops = FixOperation(currentJSON, ops)

	patchJSON, err := sonic.Marshal(ops)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal patch operations: %w", err)
	}

	p, err := jsonpatch.DecodePatch(patchJSON)
	if err != nil {
		return nil, fmt.Errorf("failed to decode patch: %w", err)
	}

	modifiedJSON, err := p.Apply(currentJSON)
	if err != nil {
		return nil, fmt.Errorf("failed to apply patch: %w", err)
	}

	var result []types.Field
	if err := sonic.Unmarshal(modifiedJSON, &result); err != nil {
		return nil, fmt.Errorf("patch produced an invalid field list: %w", err)
	}
	return result, nil
}

// FixOperation downgrades replace to add when the target is missing and drops
// removals of missing paths, so a sloppy operation does not fail the batch.
func FixOperation(currentJSON []byte, ops []Operation) []Operation {
	var doc any
	if err := sonic.Unmarshal(currentJSON, &doc); err != nil {
		return ops
	}

	fixed := make([]Operation, 0, len(ops))
	for _, op := range ops {
		switch op.Op {
		case OperationReplace:
			if !pathExists(doc, op.Path) {
				op.Op = OperationAdd
			}
			fixed = append(fixed, op)
		case OperationRemove:
			if pathExists(doc, op.Path) {
				fixed = append(fixed, op)
			}
		default:
			fixed = append(fixed, op)
		}
	}
	return fixed
}

func pathExists(doc any, path string) bool {
	if path == "" {
		return true
	}
	if !strings.HasPrefix(path, "/") {
		return false
	}

	cur := doc
	for _, token := range strings.Split(path[1:], "/") {
		token = strings.ReplaceAll(token, "~1", "/")
		token = strings.ReplaceAll(token, "~0", "~")
		switch node := cur.(type) {
		case map[string]any:
			value, ok := node[token]
			if !ok {
				return false
			}
			cur = value
		case []any:
			index, err := strconv.Atoi(token)
			if err != nil || index < 0 || index >= len(node) {
				return false
			}
			cur = node[index]
		default:
			return false
		}
	}
	return true
}

func cloneFields(fields []types.Field) []types.Field {
	if fields == nil {
		return nil
	}
	out := make([]types.Field, len(fields))
	for i, f := range fields {
		if f.FieldValue != nil {
			f.FieldValue = types.StringPtr(*f.FieldValue)
		}
		if f.FieldConfiguration.Options != nil {
			f.FieldConfiguration.Options = append([]string(nil), f.FieldConfiguration.Options...)
		}
		out[i] = f
	}
	return out
}
