package agent

import (
	"context"
	"sync"
)

// keyedMutex serialises work per conversation id within one process. Slots
// are reference counted and dropped once nobody holds or waits for them.
type keyedMutex struct {
	mu    sync.Mutex
	slots map[string]*keySlot
}

type keySlot struct {
	sem  chan struct{}
	refs int
}

// Lock blocks until key is free or ctx is done. The returned func releases
// the key and is safe to call more than once.
func (k *keyedMutex) Lock(ctx context.Context, key string) (func(), error) {
	k.mu.Lock()
	if k.slots == nil {
		k.slots = map[string]*keySlot{}
	}
	slot, ok := k.slots[key]
	if !ok {
		slot = &keySlot{sem: make(chan struct{}, 1)}
		k.slots[key] = slot
	}
	slot.refs++
	k.mu.Unlock()

	select {
	case slot.sem <- struct{}{}:
	case <-ctx.Done():
		k.release(key, slot)
		return nil, ctx.Err()
	}
	var once sync.Once
	return func() {
		once.Do(func() {
			<-slot.sem
			k.release(key, slot)
		})
	}, nil
}

func (k *keyedMutex) release(key string, slot *keySlot) {
	k.mu.Lock()
	defer k.mu.Unlock()
	slot.refs--
	if slot.refs == 0 {
		delete(k.slots, key)
	}
}

func (k *keyedMutex) size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.slots)
}
