package memory

import (
	"context"
	"sync"
	"time"
)

// SeenStore remembers dispatched notification IDs for a retention window.
type SeenStore struct {
	ttl   time.Duration
	clock func() time.Time

	mu   sync.Mutex
	seen map[string]time.Time
}

func NewSeenStore(ttl time.Duration) *SeenStore {
	return &SeenStore{
		ttl:   ttl,
		clock: time.Now,
		seen:  make(map[string]time.Time),
	}
}

func (s *SeenStore) MarkSeen(_ context.Context, id string) (bool, error) {
	now := s.clock()

	s.mu.Lock()
	defer s.mu.Unlock()

	if expires, ok := s.seen[id]; ok && (s.ttl <= 0 || expires.After(now)) {
		return false, nil
	}
	s.seen[id] = now.Add(s.ttl)
	s.pruneLocked(now)
	return true, nil
}

func (s *SeenStore) pruneLocked(now time.Time) {
	if s.ttl <= 0 {
		return
	}
	for id, expires := range s.seen {
		if !expires.After(now) {
			delete(s.seen, id)
		}
	}
}
