package agent

import (
	"context"
	"sync"
	"time"
)

// Cache is the key value backend behind a Store.
type Cache[S any] interface {
	Set(ctx context.Context, key string, val S) error
	Get(ctx context.Context, key string) (S, bool, error)
	Del(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

type memoryEntry[S any] struct {
	val     S
	expires time.Time
}

func (e memoryEntry[S]) expired(now time.Time) bool {
	return !e.expires.IsZero() && !now.Before(e.expires)
}

// MemoryCache keeps values in process. With a ttl, an entry expires that long
// after its last Set, matching how the redis backend treats idle conversations.
type MemoryCache[S any] struct {
	mu      sync.Mutex
	entries map[string]memoryEntry[S]
	ttl     time.Duration
	now     func() time.Time
}

type MemoryCacheOption func(*memoryCacheOptions)

type memoryCacheOptions struct {
	ttl time.Duration
	now func() time.Time
}

// WithTTL expires entries d after they were last written. Zero keeps them forever.
func WithTTL(d time.Duration) MemoryCacheOption {
	return func(o *memoryCacheOptions) {
		o.ttl = d
	}
}

func WithCacheClock(now func() time.Time) MemoryCacheOption {
	return func(o *memoryCacheOptions) {
		o.now = now
	}
}

func NewMemoryCache[S any](opts ...MemoryCacheOption) *MemoryCache[S] {
	options := memoryCacheOptions{now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}
	if options.ttl < 0 {
		options.ttl = 0
	}
	return &MemoryCache[S]{
		entries: map[string]memoryEntry[S]{},
		ttl:     options.ttl,
		now:     options.now,
	}
}

func (m *MemoryCache[S]) Set(ctx context.Context, key string, val S) error {
	entry := memoryEntry[S]{val: val}
	if m.ttl > 0 {
		entry.expires = m.now().Add(m.ttl)
	}
	m.mu.Lock()
	m.entries[key] = entry
	m.mu.Unlock()
	return nil
}

func (m *MemoryCache[S]) Get(ctx context.Context, key string) (S, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.lookup(key)
	return entry.val, ok, nil
}

func (m *MemoryCache[S]) Del(ctx context.Context, key string) error {
	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()
	return nil
}

func (m *MemoryCache[S]) Exists(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.lookup(key)
	return ok, nil
}

// Len reports the number of live entries and evicts the expired ones.
func (m *MemoryCache[S]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	for key, entry := range m.entries {
		if entry.expired(now) {
			delete(m.entries, key)
		}
	}
	return len(m.entries)
}

// lookup must be called with mu held. Expired entries are dropped on sight.
func (m *MemoryCache[S]) lookup(key string) (memoryEntry[S], bool) {
	entry, ok := m.entries[key]
	if !ok {
		return memoryEntry[S]{}, false
	}
	if entry.expired(m.now()) {
		delete(m.entries, key)
		return memoryEntry[S]{}, false
	}
	return entry, true
}
