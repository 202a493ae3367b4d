package prompt

import (
	"fmt"

	"github.com/cloudwego/eino/schema"
	"github.com/tbxark/convoform/types"
)

const DefaultNamingSystemPrompt = `You name finished form conversations so they are easy to find in a list.

Create a short title (at most six words) from the form's purpose and the collected answers, for example the respondent's name followed by the form topic.
Respond with a single JSON object: {"conversationName": "<title>"}. No prose, no markdown.`

type NamingInput struct {
	FormOverview string
	FilledFields []types.Field
}

func (b *Builder) Naming(in NamingInput) (*schema.Message, error) {
	filled, err := types.FormatFieldsTable(in.FilledFields)
	if err != nil {
		return nil, fmt.Errorf("format filled fields: %w", err)
	}
	content := joinSections(
		b.namingSystemPrompt,
		fmt.Sprintf("# Form overview:\n%s", in.FormOverview),
		fmt.Sprintf("# Collected answers:\n%s", filled),
	)
	return schema.SystemMessage(content), nil
}
