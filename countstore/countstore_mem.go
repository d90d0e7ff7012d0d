package countstore

import (
	"context"
	"sync"
	"time"
)

type memCounter struct {
	count   int
	expires time.Time
}

// MemCountStore is a process-local CountStore. Suitable for tests and
// single-node deployments; counters are lost on restart, which only
// loosens throttling temporarily.
type MemCountStore struct {
	mu     sync.Mutex
	counts map[string]memCounter

	// Now is the clock used for expiry checks. Overridable in tests.
	Now func() time.Time
}

func NewMemCountStore() *MemCountStore {
	return &MemCountStore{
		counts: make(map[string]memCounter),
		Now:    time.Now,
	}
}

func (s *MemCountStore) IncrementWithTTL(ctx context.Context, key string, window time.Duration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.Now()
	c, ok := s.counts[key]
	if !ok || now.After(c.expires) {
		c = memCounter{count: 1, expires: now.Add(window)}
	} else {
		c.count++
	}
	s.counts[key] = c
	return c.count, nil
}
