package agent

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tbxark/convoform/types"
)

func TestStoreNamespacesKeys(t *testing.T) {
	t.Parallel()
	core := NewMemoryCache[string]()
	store := NewStore[string](core, "ns", StateKeyFromContext)
	ctx := WithStateKey(context.Background(), "k")
	if err := store.Set(ctx, "v"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok, _ := core.Get(ctx, "ns:k"); !ok {
		t.Error("value should be stored under the namespaced key")
	}
	if ok, _ := store.Exists(ctx); !ok {
		t.Error("expected key to exist")
	}
	if err := store.Set(context.Background(), "v"); !errors.Is(err, ErrNoStateKey) {
		t.Errorf("expected ErrNoStateKey, got %v", err)
	}
}

func TestStateStoreClonesValues(t *testing.T) {
	t.Parallel()
	store := NewMemoryStateStore()
	ctx := context.Background()
	state := &State{
		Phase:  PhaseCollecting,
		Fields: []types.Field{{FieldName: "Email", FieldValue: types.StringPtr("a@b.c")}},
	}
	if err := store.Save(ctx, state); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	*state.Fields[0].FieldValue = "changed"
	state.Transcript = append(state.Transcript, types.TranscriptEntry{Role: types.RoleUser, Content: "x"})

	loaded, ok, err := store.Load(ctx)
	if err != nil || !ok {
		t.Fatalf("load: ok=%v err=%v", ok, err)
	}
	if loaded.Fields[0].Value() != "a@b.c" || len(loaded.Transcript) != 0 {
		t.Errorf("stored state shares memory with the caller: %+v", loaded)
	}
}

func TestAppendTranscriptDedupes(t *testing.T) {
	t.Parallel()
	got := appendTranscript(nil,
		types.TranscriptEntry{Role: types.RoleUser, Content: "Hi"},
		types.TranscriptEntry{Role: types.RoleUser, Content: "Hi"},
		types.TranscriptEntry{Role: types.RoleAssistant, Content: " "},
		types.TranscriptEntry{Role: types.RoleAssistant, Content: "Name?"},
	)
	if len(got) != 2 || got[1].Content != "Name?" {
		t.Errorf("unexpected transcript %+v", got)
	}
}

func TestMemoryCacheExpiresIdleEntries(t *testing.T) {
	t.Parallel()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	cache := NewMemoryCache[string](WithTTL(time.Minute), WithCacheClock(func() time.Time { return now }))
	ctx := context.Background()
	_ = cache.Set(ctx, "a", "1")
	_ = cache.Set(ctx, "b", "2")

	now = now.Add(40 * time.Second)
	_ = cache.Set(ctx, "b", "3")
	if v, ok, _ := cache.Get(ctx, "a"); !ok || v != "1" {
		t.Fatalf("entry should still be live, got %q ok=%v", v, ok)
	}

	now = now.Add(30 * time.Second)
	if _, ok, _ := cache.Get(ctx, "a"); ok {
		t.Error("entry should expire a minute after its last write")
	}
	if ok, _ := cache.Exists(ctx, "a"); ok {
		t.Error("expired entry should not exist")
	}
	if v, ok, _ := cache.Get(ctx, "b"); !ok || v != "3" {
		t.Errorf("rewritten entry should be live, got %q ok=%v", v, ok)
	}
	if n := cache.Len(); n != 1 {
		t.Errorf("expected one live entry, got %d", n)
	}
}

func TestMemoryCacheWithoutTTLKeepsEntries(t *testing.T) {
	t.Parallel()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	cache := NewMemoryCache[int](WithCacheClock(func() time.Time { return now }))
	ctx := context.Background()
	_ = cache.Set(ctx, "k", 7)
	now = now.Add(24 * 365 * time.Hour)
	if v, ok, _ := cache.Get(ctx, "k"); !ok || v != 7 {
		t.Errorf("entry without ttl should never expire, got %d ok=%v", v, ok)
	}
	_ = cache.Del(ctx, "k")
	if ok, _ := cache.Exists(ctx, "k"); ok {
		t.Error("deleted entry should be gone")
	}
}
