package envelope

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/tbxark/convoform/types"
)

// Marshal converts data into a JSON-safe shape and serialises it.
// Times become RFC3339 strings and non-finite floats become null before
// encoding; functions, channels, complex numbers and cycles are rejected.
func Marshal(data types.StreamData) ([]byte, error) {
	safe, err := Sanitize(data)
	if err != nil {
		return nil, fmt.Errorf("sanitize stream data: %w", err)
	}
	out, err := sonic.Marshal(safe)
	if err != nil {
		return nil, fmt.Errorf("marshal stream data: %w", err)
	}
	return out, nil
}

// maxDepth bounds nesting so a self-referencing value fails instead of recursing forever.
const maxDepth = 64

var (
	timeType      = reflect.TypeOf(time.Time{})
	marshalerType = reflect.TypeOf((*json.Marshaler)(nil)).Elem()
)

// Sanitize returns a copy of data made of JSON-safe values. Structs are walked
// field by field using their json tags, so nested values get the same treatment.
func Sanitize(data types.StreamData) (map[string]any, error) {
	out := make(map[string]any, len(data))
	for k, v := range data {
		safe, err := sanitizeValue(reflect.ValueOf(v), 1)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", k, err)
		}
		out[k] = safe
	}
	return out, nil
}

func sanitizeValue(v reflect.Value, depth int) (any, error) {
	if !v.IsValid() {
		return nil, nil
	}
	if depth > maxDepth {
		return nil, fmt.Errorf("value nested deeper than %d levels", maxDepth)
	}
	if v.Type() == timeType && v.CanInterface() {
		return v.Interface().(time.Time).Format(time.RFC3339Nano), nil
	}
	if k := v.Kind(); k != reflect.Pointer && k != reflect.Interface && v.CanInterface() && v.Type().Implements(marshalerType) {
		return v.Interface(), nil
	}
	switch v.Kind() {
	case reflect.Pointer, reflect.Interface:
		if v.IsNil() {
			return nil, nil
		}
		return sanitizeValue(v.Elem(), depth+1)
	case reflect.Float32, reflect.Float64:
		f := v.Float()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, nil
		}
		return f, nil
	case reflect.Map:
		if v.IsNil() {
			return nil, nil
		}
		if v.Type().Key().Kind() != reflect.String {
			return nil, fmt.Errorf("unsupported map key type %s", v.Type().Key())
		}
		out := make(map[string]any, v.Len())
		iter := v.MapRange()
		for iter.Next() {
			safe, err := sanitizeValue(iter.Value(), depth+1)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", iter.Key().String(), err)
			}
			out[iter.Key().String()] = safe
		}
		return out, nil
	case reflect.Slice:
		if v.IsNil() {
			return nil, nil
		}
		if v.Type().Elem().Kind() == reflect.Uint8 {
			return v.Bytes(), nil
		}
		fallthrough
	case reflect.Array:
		out := make([]any, v.Len())
		for i := 0; i < v.Len(); i++ {
			safe, err := sanitizeValue(v.Index(i), depth+1)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			out[i] = safe
		}
		return out, nil
	case reflect.Struct:
		out := make(map[string]any, v.NumField())
		if err := sanitizeStruct(v, depth, out); err != nil {
			return nil, err
		}
		return out, nil
	case reflect.Bool:
		return v.Bool(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return v.Uint(), nil
	case reflect.String:
		return v.String(), nil
	default:
		return nil, fmt.Errorf("unsupported value of kind %s", v.Kind())
	}
}

// sanitizeStruct copies the exported fields of v into out under their json
// names. "-" and omitempty are honoured; untagged embedded structs are inlined.
func sanitizeStruct(v reflect.Value, depth int, out map[string]any) error {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		name, opts, _ := strings.Cut(sf.Tag.Get("json"), ",")
		if name == "-" && opts == "" {
			continue
		}
		fv := v.Field(i)
		if sf.Anonymous && name == "" {
			ft := sf.Type
			if ft.Kind() == reflect.Pointer {
				if fv.IsNil() {
					continue
				}
				fv, ft = fv.Elem(), ft.Elem()
			}
			if ft.Kind() == reflect.Struct {
				if err := sanitizeStruct(fv, depth+1, out); err != nil {
					return err
				}
				continue
			}
		}
		if !sf.IsExported() {
			continue
		}
		if name == "" {
			name = sf.Name
		}
		if strings.Contains(","+opts+",", ",omitempty,") && isEmptyValue(fv) {
			continue
		}
		safe, err := sanitizeValue(fv, depth+1)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		out[name] = safe
	}
	return nil
}

func isEmptyValue(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Array, reflect.Map, reflect.Slice, reflect.String:
		return v.Len() == 0
	case reflect.Bool, reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64, reflect.Interface, reflect.Pointer:
		return v.IsZero()
	default:
		return false
	}
}
