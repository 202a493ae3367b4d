package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/tbxark/convoform/dialogue"
	"github.com/tbxark/convoform/envelope"
	"github.com/tbxark/convoform/extract"
	"github.com/tbxark/convoform/naming"
	"github.com/tbxark/convoform/oracle"
	"github.com/tbxark/convoform/patch"
	"github.com/tbxark/convoform/prompt"
	"github.com/tbxark/convoform/types"
)

var (
	ErrEmptyInput           = errors.New("user input is empty")
	ErrConversationFinished = errors.New("conversation is already finished")
)

// FormFlow runs one conversation turn: record the reply, extract, patch the
// collected data, then stream either the next question or the end message.
// Turns on the same conversation id are serialised within the process.
type FormFlow struct {
	spec       FormSpec
	store      *StateStore
	extractor  *extract.Extractor
	generator  *dialogue.Generator
	summarizer *naming.Summarizer
	manager    FormManager
	logger     *slog.Logger
	now        func() time.Time
	locks      keyedMutex
}

type flowOptions struct {
	manager    FormManager
	logger     *slog.Logger
	now        func() time.Time
	prompts    *prompt.Builder
	policy     types.ValidationPolicy
	endMessage string
}

type FlowOption func(*flowOptions)

func WithLogger(logger *slog.Logger) FlowOption {
	return func(o *flowOptions) {
		o.logger = logger
	}
}

// WithFormManager sets the hook that receives finished conversations.
func WithFormManager(manager FormManager) FlowOption {
	return func(o *flowOptions) {
		o.manager = manager
	}
}

func WithClock(now func() time.Time) FlowOption {
	return func(o *flowOptions) {
		o.now = now
	}
}

// WithPromptBuilder is used by NewGatewayFormFlow for every component.
func WithPromptBuilder(b *prompt.Builder) FlowOption {
	return func(o *flowOptions) {
		o.prompts = b
	}
}

func WithValidationPolicy(policy types.ValidationPolicy) FlowOption {
	return func(o *flowOptions) {
		o.policy = policy
	}
}

func WithEndMessage(message string) FlowOption {
	return func(o *flowOptions) {
		o.endMessage = message
	}
}

func buildFlowOptions(opts []FlowOption) flowOptions {
	options := flowOptions{}
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}
	if options.now == nil {
		options.now = time.Now
	}
	if options.prompts == nil {
		options.prompts = prompt.NewBuilder()
	}
	return options
}

func NewFormFlow(
	spec FormSpec,
	store *StateStore,
	extractor *extract.Extractor,
	generator *dialogue.Generator,
	summarizer *naming.Summarizer,
	opts ...FlowOption,
) *FormFlow {
	options := buildFlowOptions(opts)
	if store == nil {
		store = NewMemoryStateStore()
	}
	return &FormFlow{
		spec:       spec,
		store:      store,
		extractor:  extractor,
		generator:  generator,
		summarizer: summarizer,
		manager:    options.manager,
		logger:     options.logger,
		now:        options.now,
	}
}

// NewGatewayFormFlow wires every component to the same oracle.
func NewGatewayFormFlow(spec FormSpec, gateway oracle.Gateway, store *StateStore, opts ...FlowOption) *FormFlow {
	options := buildFlowOptions(opts)
	extractorOpts := []extract.ExtractorOption{
		extract.WithPromptBuilder(options.prompts),
		extract.WithLogger(options.logger),
	}
	if options.policy != nil {
		extractorOpts = append(extractorOpts, extract.WithValidationPolicy(options.policy))
	}
	return NewFormFlow(
		spec,
		store,
		extract.NewExtractor(gateway, extractorOpts...),
		dialogue.NewGenerator(gateway,
			dialogue.WithPromptBuilder(options.prompts),
			dialogue.WithEndMessage(options.endMessage),
			dialogue.WithLogger(options.logger),
		),
		naming.NewSummarizer(gateway,
			naming.WithPromptBuilder(options.prompts),
			naming.WithLogger(options.logger),
		),
		opts...,
	)
}

func NewChatModelFormFlow(spec FormSpec, chatModel model.BaseChatModel, store *StateStore, opts ...FlowOption) *FormFlow {
	return NewGatewayFormFlow(spec, oracle.NewChatModelGateway(chatModel), store, opts...)
}

// Start creates a fresh conversation for the id in ctx, replacing any
// previous one, and seeds it with prefill.
func (f *FormFlow) Start(ctx context.Context, prefill map[string]string) (*State, error) {
	unlock, err := f.lock(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	state := f.newState()
	previous, ok, err := f.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load state: %w", err)
	}
	if ok {
		state.Revision = previous.Revision + 1
	}
	if err := f.applyPrefill(state, prefill); err != nil {
		return nil, err
	}
	if err := f.store.Save(ctx, state); err != nil {
		return nil, fmt.Errorf("save state: %w", err)
	}
	return state.Clone(), nil
}

// Snapshot returns the stored state for the id in ctx.
func (f *FormFlow) Snapshot(ctx context.Context) (*State, bool, error) {
	return f.store.Load(ctx)
}

func (f *FormFlow) Reset(ctx context.Context) error {
	unlock, err := f.lock(ctx)
	if err != nil {
		return err
	}
	defer unlock()
	return f.store.Remove(ctx)
}

func (f *FormFlow) Invoke(ctx context.Context, req *Request) (*Response, error) {
	input := strings.TrimSpace(req.UserInput)
	if input == "" {
		return nil, ErrEmptyInput
	}
	unlock, err := f.lock(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	state, ok, err := f.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load state: %w", err)
	}
	if !ok {
		state = f.newState()
	}
	if state.Phase == PhaseFinished {
		return nil, ErrConversationFinished
	}
	if err := f.applyPrefill(state, req.Prefill); err != nil {
		return nil, err
	}
	state.Transcript = appendTranscript(state.Transcript, types.TranscriptEntry{Role: types.RoleUser, Content: input})

	verdict, err := f.extractAnswer(ctx, state)
	if err != nil {
		return nil, err
	}

	state.UpdatedAt = f.now()
	state.Revision++
	next := types.NextEmptyIndex(state.Fields)
	if next < 0 {
		state.Phase = PhaseFinished
		state.Name = f.summarizer.GenerateConversationName(ctx, &naming.Request{
			FormOverview: f.spec.Overview(),
			FilledFields: state.Fields,
		})
		if f.manager != nil {
			if err := f.manager.Submit(ctx, state.Clone()); err != nil {
				return nil, fmt.Errorf("submit form: %w", err)
			}
		}
	}

	key, _ := stateKeyOrDefault(ctx)
	data := progressData(key, state, next)

	committed := make(chan bool, 1)
	saved := false
	defer func() { committed <- saved }()
	onFinish := f.persistReply(ctx, state.Revision, committed)

	var env *envelope.Envelope
	if next < 0 {
		env, err = f.generator.GenerateEndMessage(ctx, data, onFinish)
	} else {
		env, err = f.generator.GenerateQuestion(ctx, &dialogue.QuestionRequest{
			FormOverview:   f.spec.Overview(),
			CurrentField:   state.Fields[next],
			CollectedData:  state.Fields,
			StreamData:     data,
			Transcript:     state.Transcript,
			OnStreamFinish: onFinish,
		})
	}
	if err != nil {
		return nil, fmt.Errorf("generate reply: %w", err)
	}
	if err := f.store.Save(ctx, state); err != nil {
		env.Close()
		return nil, fmt.Errorf("save state: %w", err)
	}
	saved = true

	f.logger.Debug("Turn complete", "conversation", key, "phase", state.Phase, "next_field", next)
	return &Response{
		Envelope: env,
		State:    state.Clone(),
		Verdict:  verdict,
		Finished: state.Phase == PhaseFinished,
	}, nil
}

// extractAnswer runs the extractor for the field being asked and patches its
// result into state. It returns nil when the transcript has no reply to judge.
func (f *FormFlow) extractAnswer(ctx context.Context, state *State) (*types.ExtractionVerdict, error) {
	current := types.NextEmptyIndex(state.Fields)
	if current < 0 || len(state.Transcript) < extract.MinTranscriptEntries {
		return nil, nil
	}
	verdict, err := f.extractor.ExtractAnswer(ctx, &extract.Request{
		Transcript:   state.Transcript,
		CurrentField: state.Fields[current],
		FormOverview: f.spec.Overview(),
	})
	if err != nil {
		return nil, err
	}
	if !verdict.IsAnswerExtracted {
		reason := ""
		if verdict.ReasonForFailure != nil {
			reason = *verdict.ReasonForFailure
		}
		f.logger.Info("Answer not extracted", "field", state.Fields[current].FieldName, "reason", reason)
	}
	if err := f.applyOps(state, patch.BuildOperations(state.Fields, current, verdict)); err != nil {
		return nil, err
	}
	return verdict, nil
}

func (f *FormFlow) applyPrefill(state *State, values map[string]string) error {
	if len(values) == 0 {
		return nil
	}
	return f.applyOps(state, patch.PrefillOperations(state.Fields, values))
}

func (f *FormFlow) applyOps(state *State, ops []patch.Operation) error {
	if len(ops) == 0 {
		return nil
	}
	if err := patch.ValidateOperations(ops, patch.DefaultAllowedPaths()); err != nil {
		return fmt.Errorf("invalid patch: %w", err)
	}
	fields, err := patch.Apply(state.Fields, ops)
	if err != nil {
		return fmt.Errorf("apply patch: %w", err)
	}
	f.logger.Debug("Applied patch", "ops", len(ops))
	state.Fields = fields
	return nil
}

// persistReply returns the stream finaliser that records the assistant's
// message. It waits for the turn to commit, then appends the message only if
// no later turn has replaced the state in the meantime.
func (f *FormFlow) persistReply(ctx context.Context, revision int64, committed <-chan bool) func(string) {
	ctx = context.WithoutCancel(ctx)
	return func(message string) {
		if message == "" || !<-committed {
			return
		}
		unlock, err := f.lock(ctx)
		if err != nil {
			f.logger.Error("Failed to persist assistant message", "error", err)
			return
		}
		defer unlock()
		state, ok, err := f.store.Load(ctx)
		if err != nil {
			f.logger.Error("Failed to persist assistant message", "error", err)
			return
		}
		if !ok || state.Revision != revision {
			f.logger.Warn("Dropping assistant message of a superseded turn", "revision", revision)
			return
		}
		state.Transcript = appendTranscript(state.Transcript, types.TranscriptEntry{Role: types.RoleAssistant, Content: message})
		if err := f.store.Save(ctx, state); err != nil {
			f.logger.Error("Failed to persist assistant message", "error", err)
		}
	}
}

func (f *FormFlow) lock(ctx context.Context) (func(), error) {
	key, _ := stateKeyOrDefault(ctx)
	unlock, err := f.locks.Lock(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("wait for conversation %s: %w", key, err)
	}
	return unlock, nil
}

func (f *FormFlow) newState() *State {
	return &State{
		Phase:      PhaseCollecting,
		Fields:     f.spec.Fields(),
		Transcript: []types.TranscriptEntry{},
		UpdatedAt:  f.now(),
	}
}

func progressData(id string, state *State, next int) types.StreamData {
	data := types.StreamData{
		"id":                       id,
		"currentFieldIndex":        next,
		"totalFields":              len(state.Fields),
		"filledFields":             len(types.FilledFields(state.Fields)),
		"collectedData":            state.Fields,
		"isFormSubmissionFinished": state.Phase == PhaseFinished,
		"updatedAt":                state.UpdatedAt,
	}
	if next >= 0 {
		data["currentField"] = state.Fields[next].FieldName
	} else {
		data["currentField"] = nil
		data["conversationName"] = state.Name
	}
	return data
}
