package store

import (
	"context"
	"sync"
	"time"

	"webring/internal/hits"
)

// InMemoryStore keeps hits in process memory. Used in tests and as the default
// backend when no database is configured; contents are lost on restart.
type InMemoryStore struct {
	mu     sync.RWMutex
	hits   []hits.Hit
	nextID int64
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{nextID: 1}
}

func (s *InMemoryStore) Append(_ context.Context, slug, visitorHash string, ts time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hits = append(s.hits, hits.Hit{
		ID:          s.nextID,
		Slug:        slug,
		VisitorHash: visitorHash,
		Timestamp:   ts,
	})
	s.nextID++
	return nil
}

func (s *InMemoryStore) All(_ context.Context) ([]hits.Hit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]hits.Hit, len(s.hits))
	copy(out, s.hits)
	return out, nil
}
