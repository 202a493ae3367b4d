package structured

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/bytedance/sonic"
)

var ErrNotObject = errors.New("model output is not a JSON object")

// Object is a decoded JSON object from model output. Every accessor takes a
// default that is returned when the key is missing or holds the wrong shape,
// so callers decide field by field what survives a sloppy response.
type Object struct {
	fields map[string]any
}

// Parse decodes raw model output. Markdown code fences around the JSON are tolerated.
func Parse(raw string) (Object, error) {
	text := trimCodeFence(raw)
	if text == "" {
		return Object{}, fmt.Errorf("parse model output: %w", ErrNotObject)
	}
	var value any
	if err := sonic.UnmarshalString(text, &value); err != nil {
		return Object{}, fmt.Errorf("parse model output: %w", err)
	}
	fields, ok := value.(map[string]any)
	if !ok {
		return Object{}, fmt.Errorf("parse model output: %w", ErrNotObject)
	}
	return Object{fields: fields}, nil
}

func (o Object) Has(key string) bool {
	_, ok := o.fields[key]
	return ok
}

func (o Object) Bool(key string, def bool) bool {
	if v, ok := o.fields[key].(bool); ok {
		return v
	}
	return def
}

func (o Object) String(key string, def string) string {
	if v, ok := o.fields[key].(string); ok {
		return v
	}
	return def
}

// Text reads a scalar as text. Numbers and booleans are formatted the way
// they appear in JSON; anything else yields def.
func (o Object) Text(key string, def string) string {
	switch v := o.fields[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return def
	}
}

func (o Object) StringPtr(key string, def *string) *string {
	if v, ok := o.fields[key].(string); ok {
		return &v
	}
	return def
}

func (o Object) Array(key string) ([]any, bool) {
	v, ok := o.fields[key].([]any)
	return v, ok
}

func (o Object) Object(key string) (Object, bool) {
	v, ok := o.fields[key].(map[string]any)
	if !ok {
		return Object{}, false
	}
	return Object{fields: v}, true
}

// AsObject wraps an element taken from Array when it is itself an object.
func AsObject(v any) (Object, bool) {
	m, ok := v.(map[string]any)
	if !ok {
		return Object{}, false
	}
	return Object{fields: m}, true
}

func trimCodeFence(raw string) string {
	text := strings.TrimSpace(raw)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```")
	if nl := strings.IndexByte(text, '\n'); nl >= 0 {
		// drop the info string, e.g. ```json
		text = text[nl+1:]
	}
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}
