package prompt

import (
	"fmt"
	"sync"

	"github.com/bytedance/sonic"
	"github.com/cloudwego/eino/schema"
	"github.com/eino-contrib/jsonschema"
	"github.com/tbxark/convoform/types"
)

const DefaultExtractionSystemPrompt = `You extract form answers from a conversation between a respondent (user) and a form assistant (assistant).

Decide whether the respondent's latest reply answers the current field.
- Set isAnswerExtracted to true only when the reply contains a usable answer for the current field.
- Put the answer in extractedAnswer, cleaned up to a plain value (no surrounding sentence).
- When no usable answer is present, set isAnswerExtracted to false, extractedAnswer to "" and explain briefly in reasonForFailure.
- If the respondent also volunteered values for other fields of the form, list them in otherFieldsData with fieldName and fieldValue.
- Respond with a single JSON object that matches the response schema exactly. No prose, no markdown.`

var verdictSchema = sync.OnceValues(func() (string, error) {
	s := jsonschema.Reflect(&types.ExtractionVerdict{})
	s.Title = "ExtractionVerdict"
	out, err := sonic.MarshalString(s)
	if err != nil {
		return "", fmt.Errorf("marshal verdict schema: %w", err)
	}
	return out, nil
})

type ExtractionInput struct {
	Transcript   []types.TranscriptEntry
	CurrentField types.Field
	FormOverview string
}

// Extraction renders the system message asking the oracle for an ExtractionVerdict as JSON.
func (b *Builder) Extraction(in ExtractionInput) (*schema.Message, error) {
	responseSchema, err := verdictSchema()
	if err != nil {
		return nil, err
	}
	content := joinSections(
		b.extractionSystemPrompt,
		fmt.Sprintf("# Form overview:\n%s", in.FormOverview),
		fmt.Sprintf("# Current field:\n%s", types.FormatField(in.CurrentField)),
		fmt.Sprintf("# Transcript:\n%s", types.FormatTranscript(in.Transcript)),
		fmt.Sprintf("# Response schema JSON:\n```json\n%s\n```", responseSchema),
		b.currentDateSection(),
	)
	return schema.SystemMessage(content), nil
}
