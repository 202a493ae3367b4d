package oracle

import (
	"context"

	"github.com/cloudwego/eino/schema"
)

// Gateway is the language model as seen by the conversation engine.
type Gateway interface {
	// StructuredComplete sends messages and returns the response expected to hold JSON text.
	StructuredComplete(ctx context.Context, messages []*schema.Message) (*Completion, error)
	// StreamComplete streams response text. onFinal is called once with the
	// full text after the last chunk and before the stream reports io.EOF.
	StreamComplete(ctx context.Context, messages []*schema.Message, onFinal func(fullText string)) (*schema.StreamReader[string], error)
}

type Completion struct {
	Choices []Choice `json:"choices"`
}

type Choice struct {
	Message ChoiceMessage `json:"message"`
}

type ChoiceMessage struct {
	Content *string `json:"content"`
}

// FirstContent returns the first choice's content. ok is false when there is none.
func (c *Completion) FirstContent() (string, bool) {
	if c == nil || len(c.Choices) == 0 || c.Choices[0].Message.Content == nil {
		return "", false
	}
	return *c.Choices[0].Message.Content, true
}

func NewCompletion(content string) *Completion {
	return &Completion{
		Choices: []Choice{{Message: ChoiceMessage{Content: &content}}},
	}
}
