package countstore

import (
	"context"
	"sync"
	"time"
)

// In-process CountStore. Safe for concurrent use. Buckets are never expired, so this is only appropriate for a single long-running process with modest volume (or tests).
type MemCountStore struct {
	now func() time.Time

	mu       sync.RWMutex
	counts   map[string]int
	distinct map[string]map[string]struct{}
}

var _ CountStore = (*MemCountStore)(nil)

func NewMemCountStore() *MemCountStore {
	return &MemCountStore{
		now:      time.Now,
		counts:   make(map[string]int),
		distinct: make(map[string]map[string]struct{}),
	}
}

func (s *MemCountStore) GetCount(ctx context.Context, name, val, period string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.counts[periodBucket(s.now(), name, val, period)], nil
}

func (s *MemCountStore) Increment(ctx context.Context, name, val string) error {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range AllPeriods {
		s.counts[periodBucket(now, name, val, p)]++
	}
	return nil
}

func (s *MemCountStore) GetCountDistinct(ctx context.Context, name, bucket, period string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.distinct[periodBucket(s.now(), name, bucket, period)]), nil
}

func (s *MemCountStore) IncrementDistinct(ctx context.Context, name, bucket, val string) error {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range AllPeriods {
		k := periodBucket(now, name, bucket, p)
		m, ok := s.distinct[k]
		if !ok {
			m = make(map[string]struct{})
			s.distinct[k] = m
		}
		m[val] = struct{}{}
	}
	return nil
}
