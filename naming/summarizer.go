package naming

import (
	"context"
	"log/slog"

	"github.com/cloudwego/eino/schema"
	"github.com/tbxark/convoform/oracle"
	"github.com/tbxark/convoform/prompt"
	"github.com/tbxark/convoform/structured"
	"github.com/tbxark/convoform/types"
)

// DefaultConversationName is used whenever the oracle gives no usable name.
const DefaultConversationName = "Finished conversation"

const namingInstruction = "Generate conversation name"

type Request struct {
	FormOverview string
	FilledFields []types.Field
}

type Summarizer struct {
	oracle  oracle.Gateway
	prompts *prompt.Builder
	logger  *slog.Logger
}

type SummarizerOption func(*Summarizer)

func WithPromptBuilder(b *prompt.Builder) SummarizerOption {
	return func(s *Summarizer) {
		s.prompts = b
	}
}

func WithLogger(logger *slog.Logger) SummarizerOption {
	return func(s *Summarizer) {
		s.logger = logger
	}
}

func NewSummarizer(gateway oracle.Gateway, opts ...SummarizerOption) *Summarizer {
	s := &Summarizer{oracle: gateway}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.prompts == nil {
		s.prompts = prompt.NewBuilder()
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// GenerateConversationName titles a finished conversation. It never fails:
// every problem is logged and DefaultConversationName is returned instead.
func (s *Summarizer) GenerateConversationName(ctx context.Context, req *Request) string {
	systemMessage, err := s.prompts.Naming(prompt.NamingInput{
		FormOverview: req.FormOverview,
		FilledFields: types.FilledFields(req.FilledFields),
	})
	if err != nil {
		s.logger.Warn("Failed to build naming prompt", "error", err)
		return DefaultConversationName
	}
	completion, err := s.oracle.StructuredComplete(ctx, []*schema.Message{
		systemMessage,
		schema.UserMessage(namingInstruction),
	})
	if err != nil {
		s.logger.Warn("Conversation naming failed", "error", err)
		return DefaultConversationName
	}
	raw, ok := completion.FirstContent()
	if !ok {
		return DefaultConversationName
	}
	obj, err := structured.Parse(raw)
	if err != nil {
		s.logger.Warn("Discarding malformed naming response", "error", err, "raw", raw)
		return DefaultConversationName
	}
	name := obj.String("conversationName", "")
	if name == "" {
		return DefaultConversationName
	}
	return name
}
