package extract

import (
	"github.com/tbxark/convoform/structured"
	"github.com/tbxark/convoform/types"
)

// DecodeVerdict reads an ExtractionVerdict from raw oracle output. Each field
// falls back to its default on its own; the error only reports that the
// output was not a JSON object, in which case the defaults are returned.
func DecodeVerdict(raw string) (types.ExtractionVerdict, error) {
	verdict := types.NewVerdict()
	obj, err := structured.Parse(raw)
	if err != nil {
		return verdict, err
	}
	verdict.IsAnswerExtracted = obj.Bool("isAnswerExtracted", verdict.IsAnswerExtracted)
	verdict.ExtractedAnswer = obj.Text("extractedAnswer", verdict.ExtractedAnswer)
	verdict.ReasonForFailure = obj.StringPtr("reasonForFailure", verdict.ReasonForFailure)
	if items, ok := obj.Array("otherFieldsData"); ok {
		verdict.OtherFieldsData = decodeFields(items)
	}
	return verdict, nil
}

// decodeFields keeps the elements that name a field; anything else is dropped.
func decodeFields(items []any) []types.Field {
	fields := make([]types.Field, 0, len(items))
	for _, item := range items {
		obj, ok := structured.AsObject(item)
		if !ok {
			continue
		}
		name := obj.String("fieldName", "")
		if name == "" {
			continue
		}
		field := types.Field{
			FieldName:        name,
			FieldDescription: obj.String("fieldDescription", ""),
		}
		if value := obj.Text("fieldValue", ""); value != "" {
			field.FieldValue = &value
		}
		if cfg, ok := obj.Object("fieldConfiguration"); ok {
			field.FieldConfiguration.InputType = types.InputType(cfg.String("inputType", ""))
		}
		fields = append(fields, field)
	}
	return fields
}
