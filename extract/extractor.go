package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cloudwego/eino/schema"
	"github.com/tbxark/convoform/oracle"
	"github.com/tbxark/convoform/prompt"
	"github.com/tbxark/convoform/types"
)

// MinTranscriptEntries is the opening message, the assistant's question and the reply.
const MinTranscriptEntries = 3

const extractInstruction = "Extract answer"

var ErrInsufficientTranscript = errors.New("does not have enough transcript data to extract answer")

type Request struct {
	Transcript   []types.TranscriptEntry
	CurrentField types.Field
	FormOverview string
}

type Extractor struct {
	oracle  oracle.Gateway
	prompts *prompt.Builder
	policy  types.ValidationPolicy
	logger  *slog.Logger
}

type extractorOptions struct {
	prompts *prompt.Builder
	policy  types.ValidationPolicy
	logger  *slog.Logger
}

type ExtractorOption func(*extractorOptions)

func WithPromptBuilder(b *prompt.Builder) ExtractorOption {
	return func(o *extractorOptions) {
		o.prompts = b
	}
}

// WithValidationPolicy sets the input types answered without the oracle.
// The default is types.DefaultSkipSet.
func WithValidationPolicy(policy types.ValidationPolicy) ExtractorOption {
	return func(o *extractorOptions) {
		o.policy = policy
	}
}

func WithLogger(logger *slog.Logger) ExtractorOption {
	return func(o *extractorOptions) {
		o.logger = logger
	}
}

func NewExtractor(gateway oracle.Gateway, opts ...ExtractorOption) *Extractor {
	options := extractorOptions{}
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}
	if options.prompts == nil {
		options.prompts = prompt.NewBuilder()
	}
	if options.policy == nil {
		options.policy = types.DefaultSkipSet()
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}
	return &Extractor{
		oracle:  gateway,
		prompts: options.prompts,
		policy:  options.policy,
		logger:  options.logger,
	}
}

// ExtractAnswer judges whether the latest reply in the transcript answers the
// current field. Malformed oracle output yields a negative verdict instead of
// an error; transport failures and a short transcript are returned as errors.
func (e *Extractor) ExtractAnswer(ctx context.Context, req *Request) (*types.ExtractionVerdict, error) {
	if err := checkTranscript(req.Transcript); err != nil {
		return nil, err
	}

	if e.policy.SkipValidation(req.CurrentField.FieldConfiguration.InputType) {
		verdict := types.NewVerdict()
		verdict.IsAnswerExtracted = true
		verdict.ExtractedAnswer = req.Transcript[len(req.Transcript)-1].Content
		return &verdict, nil
	}

	systemMessage, err := e.prompts.Extraction(prompt.ExtractionInput{
		Transcript:   req.Transcript,
		CurrentField: req.CurrentField,
		FormOverview: req.FormOverview,
	})
	if err != nil {
		return nil, fmt.Errorf("build extraction prompt: %w", err)
	}
	completion, err := e.oracle.StructuredComplete(ctx, []*schema.Message{
		systemMessage,
		schema.UserMessage(extractInstruction),
	})
	if err != nil {
		return nil, fmt.Errorf("extract answer: %w", err)
	}

	verdict := types.NewVerdict()
	raw, ok := completion.FirstContent()
	if !ok {
		e.logger.Warn("Extraction response has no content", "field", req.CurrentField.FieldName)
		return &verdict, nil
	}
	verdict, err = DecodeVerdict(raw)
	if err != nil {
		e.logger.Warn("Discarding malformed extraction response", "field", req.CurrentField.FieldName, "error", err, "raw", raw)
	}
	e.logger.Debug("Extracted answer", "field", req.CurrentField.FieldName, "extracted", verdict.IsAnswerExtracted)
	return &verdict, nil
}

func checkTranscript(transcript []types.TranscriptEntry) error {
	if len(transcript) < MinTranscriptEntries {
		return fmt.Errorf("%w: got %d entries, need %d", ErrInsufficientTranscript, len(transcript), MinTranscriptEntries)
	}
	for i, entry := range transcript {
		if !entry.Valid() {
			return fmt.Errorf("%w: entry %d has role %q", ErrInsufficientTranscript, i, entry.Role)
		}
	}
	return nil
}
