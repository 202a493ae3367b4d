package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/tbxark/convoform/types"
)

// FormSpec describes the form a conversation fills.
type FormSpec interface {
	Overview() string
	// Fields returns the empty field list in asking order.
	Fields() []types.Field
}

// FormManager receives each conversation once all fields are filled.
type FormManager interface {
	Submit(ctx context.Context, state *State) error
}

type staticForm struct {
	overview string
	fields   []types.Field
}

// NewStaticForm returns a FormSpec with a fixed overview and field list.
func NewStaticForm(overview string, fields []types.Field) FormSpec {
	return &staticForm{overview: overview, fields: fields}
}

func (f *staticForm) Overview() string {
	return f.overview
}

func (f *staticForm) Fields() []types.Field {
	return (&State{Fields: f.fields}).Clone().Fields
}

type formFile struct {
	FormOverview string        `json:"formOverview"`
	Fields       []types.Field `json:"fields"`
}

// DecodeForm reads a form definition of the shape
// {"formOverview": "...", "fields": [{"fieldName": "...", ...}]}.
// Values present in the file are kept as prefilled answers.
func DecodeForm(data []byte) (FormSpec, error) {
	var file formFile
	if err := sonic.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse form: %w", err)
	}
	if len(file.Fields) == 0 {
		return nil, errors.New("form has no fields")
	}
	seen := make(map[string]bool, len(file.Fields))
	for i, f := range file.Fields {
		name := strings.ToLower(strings.TrimSpace(f.FieldName))
		if name == "" {
			return nil, fmt.Errorf("field %d has no name", i)
		}
		if seen[name] {
			return nil, fmt.Errorf("duplicate field %q", f.FieldName)
		}
		seen[name] = true
		if f.FieldConfiguration.InputType == "" {
			file.Fields[i].FieldConfiguration.InputType = types.InputText
		}
	}
	return NewStaticForm(file.FormOverview, file.Fields), nil
}
