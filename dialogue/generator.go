package dialogue

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cloudwego/eino/schema"
	"github.com/tbxark/convoform/envelope"
	"github.com/tbxark/convoform/oracle"
	"github.com/tbxark/convoform/prompt"
	"github.com/tbxark/convoform/types"
)

type Generator struct {
	oracle     oracle.Gateway
	prompts    *prompt.Builder
	endMessage string
	logger     *slog.Logger
}

type generatorOptions struct {
	prompts    *prompt.Builder
	endMessage string
	logger     *slog.Logger
}

type GeneratorOption func(*generatorOptions)

func WithPromptBuilder(b *prompt.Builder) GeneratorOption {
	return func(o *generatorOptions) {
		o.prompts = b
	}
}

// WithEndMessage overrides DefaultEndMessage.
func WithEndMessage(message string) GeneratorOption {
	return func(o *generatorOptions) {
		o.endMessage = message
	}
}

func WithLogger(logger *slog.Logger) GeneratorOption {
	return func(o *generatorOptions) {
		o.logger = logger
	}
}

func NewGenerator(gateway oracle.Gateway, opts ...GeneratorOption) *Generator {
	options := generatorOptions{
		endMessage: DefaultEndMessage,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}
	if options.prompts == nil {
		options.prompts = prompt.NewBuilder()
	}
	if options.endMessage == "" {
		options.endMessage = DefaultEndMessage
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}
	return &Generator{
		oracle:     gateway,
		prompts:    options.prompts,
		endMessage: options.endMessage,
		logger:     options.logger,
	}
}

// GenerateQuestion streams the question for req.CurrentField. The side payload
// is serialised before the oracle is called, so a payload that cannot be
// encoded fails the call without opening a stream.
func (g *Generator) GenerateQuestion(ctx context.Context, req *QuestionRequest) (*envelope.Envelope, error) {
	filled := types.FilledFields(req.CollectedData)
	systemMessage, err := g.prompts.Question(prompt.QuestionInput{
		FormOverview:    req.FormOverview,
		CurrentField:    req.CurrentField,
		FilledFields:    filled,
		IsFirstQuestion: types.IsFirstQuestion(len(filled), len(req.Transcript)),
	})
	if err != nil {
		return nil, fmt.Errorf("build question prompt: %w", err)
	}
	data, err := envelope.Marshal(req.StreamData)
	if err != nil {
		return nil, err
	}

	messages := make([]*schema.Message, 0, len(req.Transcript)+1)
	messages = append(messages, systemMessage)
	for _, entry := range req.Transcript {
		messages = append(messages, &schema.Message{
			Role:    schema.RoleType(entry.Role),
			Content: entry.Content,
		})
	}

	g.logger.Debug("Generating question", "field", req.CurrentField.FieldName, "transcript_len", len(req.Transcript))
	return envelope.Open(data, req.OnStreamFinish, func(finalize func(string)) (*schema.StreamReader[string], error) {
		stream, err := g.oracle.StreamComplete(ctx, messages, finalize)
		if err != nil {
			return nil, fmt.Errorf("stream question: %w", err)
		}
		return stream, nil
	})
}

// GenerateEndMessage sends the fixed closing message in the same envelope
// shape as a question. The oracle is not involved.
func (g *Generator) GenerateEndMessage(ctx context.Context, data types.StreamData, onFinish func(message string)) (*envelope.Envelope, error) {
	payload, err := envelope.Marshal(data)
	if err != nil {
		return nil, err
	}
	return envelope.Open(payload, onFinish, func(finalize func(string)) (*schema.StreamReader[string], error) {
		return oracle.WithFinal(ctx, schema.StreamReaderFromArray([]string{g.endMessage}), finalize), nil
	})
}

func (g *Generator) EndMessage() string {
	return g.endMessage
}
