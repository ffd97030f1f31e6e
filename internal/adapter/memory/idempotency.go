package memory

import (
	"context"
	"sync"
	"time"

	portidempotency "github.com/alanyang/projects-sync/internal/port/idempotency"
)

var _ portidempotency.Store = (*IdempotencyStore)(nil)

const DefaultIdempotencyTTL = 24 * time.Hour

type idempotencyEntry struct {
	result    []byte
	expiresAt time.Time
}

// IdempotencyStore keeps request results for ttl. Expired keys are dropped
// lazily on lookup.
type IdempotencyStore struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]idempotencyEntry
	now     func() time.Time
}

func NewIdempotencyStore(ttl time.Duration) *IdempotencyStore {
	if ttl <= 0 {
		ttl = DefaultIdempotencyTTL
	}
	return &IdempotencyStore{
		ttl:     ttl,
		entries: make(map[string]idempotencyEntry),
		now:     time.Now,
	}
}

func (s *IdempotencyStore) Check(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	entry, ok := s.entries[key]
	s.mu.RUnlock()

	if !ok {
		return nil, false, nil
	}
	if s.now().After(entry.expiresAt) {
		s.mu.Lock()
		delete(s.entries, key)
		s.mu.Unlock()
		return nil, false, nil
	}
	return entry.result, true, nil
}

func (s *IdempotencyStore) Store(_ context.Context, key, _ string, result []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry, ok := s.entries[key]; ok && !s.now().After(entry.expiresAt) {
		return nil
	}
	s.entries[key] = idempotencyEntry{
		result:    append([]byte(nil), result...),
		expiresAt: s.now().Add(s.ttl),
	}
	return nil
}
