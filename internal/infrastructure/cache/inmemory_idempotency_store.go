package cache

import (
	"context"
	"sync"
	"time"

	"github.com/erp/billing/internal/domain/shared"
)

const defaultCleanupInterval = 5 * time.Minute

// InMemoryIdempotencyStore keeps claims in process memory.
// Claims are not shared between instances; use it for development and
// single-instance deployments only.
type InMemoryIdempotencyStore struct {
	mu        sync.RWMutex
	claims    map[string]time.Time // key -> expiry
	now       func() time.Time
	stopCh    chan struct{}
	closeOnce sync.Once
}

// NewInMemoryIdempotencyStore creates a store with a background sweeper
func NewInMemoryIdempotencyStore() *InMemoryIdempotencyStore {
	return newInMemoryIdempotencyStore(time.Now, defaultCleanupInterval)
}

func newInMemoryIdempotencyStore(now func() time.Time, cleanupInterval time.Duration) *InMemoryIdempotencyStore {
	s := &InMemoryIdempotencyStore{
		claims: make(map[string]time.Time),
		now:    now,
		stopCh: make(chan struct{}),
	}
	go s.sweep(cleanupInterval)
	return s
}

// MarkProcessed claims key until ttl elapses
func (s *InMemoryIdempotencyStore) MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if ttl <= 0 {
		return false, shared.NewDomainError("INVALID_INPUT", "Idempotency TTL must be positive")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if expiry, ok := s.claims[key]; ok && now.Before(expiry) {
		return false, nil
	}
	s.claims[key] = now.Add(ttl)
	return true, nil
}

// IsProcessed reports whether key holds an unexpired claim
func (s *InMemoryIdempotencyStore) IsProcessed(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	expiry, ok := s.claims[key]
	return ok && s.now().Before(expiry), nil
}

// Release drops the claim on key
func (s *InMemoryIdempotencyStore) Release(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.claims, key)
	s.mu.Unlock()
	return nil
}

// Close stops the sweeper
func (s *InMemoryIdempotencyStore) Close() error {
	s.closeOnce.Do(func() {
		close(s.stopCh)
	})
	return nil
}

// Size returns the number of stored claims, expired ones included
func (s *InMemoryIdempotencyStore) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.claims)
}

func (s *InMemoryIdempotencyStore) sweep(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.removeExpired()
		case <-s.stopCh:
			return
		}
	}
}

func (s *InMemoryIdempotencyStore) removeExpired() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for key, expiry := range s.claims {
		if !now.Before(expiry) {
			delete(s.claims, key)
		}
	}
}

var _ shared.IdempotencyStore = (*InMemoryIdempotencyStore)(nil)
