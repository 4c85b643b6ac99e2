package memory

import (
	"context"
	"sync"
	"time"
)

const (
	DefaultClaimCapacity = 10000
	janitorInterval      = 30 * time.Second
)

// ClaimStore is a capped TTL set of message keys. When full, expired keys are
// evicted first and then the key closest to expiry.
type ClaimStore struct {
	mu       sync.Mutex
	entries  map[string]time.Time
	capacity int
	now      func() time.Time

	stop chan struct{}
	done chan struct{}
	once sync.Once
}

func NewClaimStore(capacity int) *ClaimStore {
	if capacity <= 0 {
		capacity = DefaultClaimCapacity
	}
	s := &ClaimStore{
		entries:  make(map[string]time.Time),
		capacity: capacity,
		now:      time.Now,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go s.janitor()
	return s
}

func (s *ClaimStore) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if exp, ok := s.entries[key]; ok && now.Before(exp) {
		return false, nil
	}
	if len(s.entries) >= s.capacity {
		s.evictLocked(now)
	}
	s.entries[key] = now.Add(ttl)
	return true, nil
}

// ReleaseAfter shortens the key's remaining lifetime to grace. It never
// extends a claim.
func (s *ClaimStore) ReleaseAfter(ctx context.Context, key string, grace time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	exp, ok := s.entries[key]
	if !ok {
		return nil
	}
	if at := s.now().Add(grace); at.Before(exp) {
		s.entries[key] = at
	}
	return nil
}

func (s *ClaimStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Close stops the janitor goroutine.
func (s *ClaimStore) Close() {
	s.once.Do(func() {
		close(s.stop)
		<-s.done
	})
}

func (s *ClaimStore) janitor() {
	defer close(s.done)
	ticker := time.NewTicker(janitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.mu.Lock()
			s.purgeLocked(s.now())
			s.mu.Unlock()
		}
	}
}

func (s *ClaimStore) purgeLocked(now time.Time) int {
	n := 0
	for k, exp := range s.entries {
		if !now.Before(exp) {
			delete(s.entries, k)
			n++
		}
	}
	return n
}

func (s *ClaimStore) evictLocked(now time.Time) {
	if s.purgeLocked(now) > 0 {
		return
	}
	var oldestKey string
	var oldest time.Time
	for k, exp := range s.entries {
		if oldestKey == "" || exp.Before(oldest) {
			oldestKey, oldest = k, exp
		}
	}
	delete(s.entries, oldestKey)
}
