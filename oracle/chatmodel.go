package oracle

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// ChatModelGateway adapts an eino chat model to Gateway.
type ChatModelGateway struct {
	chatModel model.BaseChatModel
	opts      []model.Option
}

var _ Gateway = (*ChatModelGateway)(nil)

// NewChatModelGateway wraps chatModel. opts are passed to every call, e.g. model.WithTemperature.
func NewChatModelGateway(chatModel model.BaseChatModel, opts ...model.Option) *ChatModelGateway {
	return &ChatModelGateway{chatModel: chatModel, opts: opts}
}

func (g *ChatModelGateway) StructuredComplete(ctx context.Context, messages []*schema.Message) (*Completion, error) {
	response, err := g.chatModel.Generate(ctx, messages, g.opts...)
	if err != nil {
		return nil, fmt.Errorf("LLM call failed: %w", err)
	}
	if response == nil || response.Content == "" {
		return &Completion{}, nil
	}
	return NewCompletion(response.Content), nil
}

func (g *ChatModelGateway) StreamComplete(ctx context.Context, messages []*schema.Message, onFinal func(fullText string)) (*schema.StreamReader[string], error) {
	stream, err := g.chatModel.Stream(ctx, messages, g.opts...)
	if err != nil {
		return nil, fmt.Errorf("LLM stream call failed: %w", err)
	}
	textStream := schema.StreamReaderWithConvert[*schema.Message, string](stream, func(message *schema.Message) (string, error) {
		if message == nil {
			return "", schema.ErrNoValue
		}
		return message.Content, nil
	})
	return WithFinal(ctx, textStream, onFinal), nil
}
