package agent

import (
	"context"
	"strings"
	"time"

	"github.com/tbxark/convoform/types"
)

type Phase string

const (
	PhaseCollecting Phase = "collecting"
	PhaseFinished   Phase = "finished"
)

// State is everything persisted for one conversation. Revision counts the
// committed turns and restarts under the same id.
type State struct {
	Revision   int64                   `json:"revision"`
	Phase      Phase                   `json:"phase"`
	Fields     []types.Field           `json:"fields"`
	Transcript []types.TranscriptEntry `json:"transcript"`
	Name       string                  `json:"name,omitempty"`
	UpdatedAt  time.Time               `json:"updatedAt"`
}

func (s *State) Clone() *State {
	if s == nil {
		return nil
	}
	out := *s
	out.Fields = make([]types.Field, len(s.Fields))
	for i, f := range s.Fields {
		if f.FieldValue != nil {
			f.FieldValue = types.StringPtr(*f.FieldValue)
		}
		out.Fields[i] = f
	}
	out.Transcript = append([]types.TranscriptEntry(nil), s.Transcript...)
	return &out
}

// appendTranscript appends entries, skipping empty ones and exact repeats of
// the previous entry so a retried request does not duplicate a message.
func appendTranscript(transcript []types.TranscriptEntry, entries ...types.TranscriptEntry) []types.TranscriptEntry {
	out := transcript
	for _, entry := range entries {
		if strings.TrimSpace(entry.Content) == "" {
			continue
		}
		if len(out) > 0 {
			last := out[len(out)-1]
			if last.Role == entry.Role && last.Content == entry.Content {
				continue
			}
		}
		out = append(out, entry)
	}
	return out
}

type stateKeyContext struct{}

const defaultStateKey = "default"

// WithStateKey sets the conversation id used to route state in the context.
func WithStateKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, stateKeyContext{}, key)
}

// StateKeyFromContext gets the conversation id from the context.
func StateKeyFromContext(ctx context.Context) (string, bool) {
	key, ok := ctx.Value(stateKeyContext{}).(string)
	return key, ok
}

func stateKeyOrDefault(ctx context.Context) (string, bool) {
	key, ok := StateKeyFromContext(ctx)
	if ok && key != "" {
		return key, true
	}
	return defaultStateKey, true
}

// StateStore keeps one State per conversation id. Values are cloned on the way
// in and out so callers never share a State with the cache.
type StateStore struct {
	store Store[*State]
}

func NewStateStore(core Cache[*State]) *StateStore {
	return &StateStore{
		store: NewStore(core, "convoform:state", stateKeyOrDefault),
	}
}

func NewMemoryStateStore(opts ...MemoryCacheOption) *StateStore {
	return NewStateStore(NewMemoryCache[*State](opts...))
}

func (s *StateStore) Load(ctx context.Context) (*State, bool, error) {
	state, ok, err := s.store.Get(ctx)
	if err != nil || !ok || state == nil {
		return nil, false, err
	}
	return state.Clone(), true, nil
}

func (s *StateStore) Save(ctx context.Context, state *State) error {
	return s.store.Set(ctx, state.Clone())
}

func (s *StateStore) Remove(ctx context.Context) error {
	return s.store.Del(ctx)
}

func (s *StateStore) Exists(ctx context.Context) (bool, error) {
	return s.store.Exists(ctx)
}
