package prompt

import (
	"fmt"

	"github.com/cloudwego/eino/schema"
	"github.com/tbxark/convoform/types"
)

// DefaultQuestionSystemPrompt may contain a single "%s" placeholder for the language.
const DefaultQuestionSystemPrompt = `You are a friendly assistant collecting answers for a form through a natural conversation.

Ask the respondent exactly one question, about the current field only.
- Keep it short and conversational, no lists or bullet points.
- If the field has options, mention them naturally.
- Never ask about fields that are already collected.
- Reply in %s.`

const (
	firstQuestionGuide = `# Tone:
This is the opening question. Greet the respondent briefly and ask the question directly, without referring to earlier answers.`
	followUpQuestionGuide = `# Tone:
The conversation is already under way. Briefly acknowledge the respondent's previous reply, then ask the question. Do not greet again.`
)

type QuestionInput struct {
	FormOverview    string
	CurrentField    types.Field
	FilledFields    []types.Field
	IsFirstQuestion bool
}

// Question renders the system message that asks the oracle for the next question.
func (b *Builder) Question(in QuestionInput) (*schema.Message, error) {
	filled, err := types.FormatFieldsTable(in.FilledFields)
	if err != nil {
		return nil, fmt.Errorf("format filled fields: %w", err)
	}
	guide := followUpQuestionGuide
	if in.IsFirstQuestion {
		guide = firstQuestionGuide
	}
	content := joinSections(
		withLang(b.questionSystemPrompt, b.lang),
		fmt.Sprintf("# Form overview:\n%s", in.FormOverview),
		fmt.Sprintf("# Current field:\n%s", types.FormatField(in.CurrentField)),
		fmt.Sprintf("# Already collected:\n%s", filled),
		guide,
		b.currentDateSection(),
	)
	return schema.SystemMessage(content), nil
}
