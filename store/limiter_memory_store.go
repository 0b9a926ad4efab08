package store

import (
	"context"
	"sync"
	"time"

	"tours_backend/domain"
)

type windowCounter struct {
	count   int64
	resetAt time.Time
}

// LimiterMemoryStore is the in-process fallback counter store, used when no
// Redis address is configured and in tests.
type LimiterMemoryStore struct {
	mu       sync.Mutex
	counters map[string]*windowCounter
	now      func() time.Time
}

func NewLimiterMemoryStore() *LimiterMemoryStore {
	return &LimiterMemoryStore{
		counters: make(map[string]*windowCounter),
		now:      time.Now,
	}
}

func (store *LimiterMemoryStore) Incr(_ context.Context, key string, window time.Duration) (int64, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	now := store.now()
	counter, ok := store.counters[key]
	if !ok || now.After(counter.resetAt) {
		counter = &windowCounter{resetAt: now.Add(window)}
		store.counters[key] = counter
	}
	counter.count++
	return counter.count, nil
}

var _ domain.CounterStore = (*LimiterMemoryStore)(nil)
