package cache

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/salesops/backend/internal/domain/notification"
)

// minRetention keeps records for notices about already-past dates long
// enough to block same-day repeats
const minRetention = 24 * time.Hour

// retainUntil is when a dedup record may be forgotten: retention past the
// expiration date it guards, and never sooner than minRetention from now.
// A retention of zero keeps the record forever and returns the zero time.
func retainUntil(key notification.DedupKey, retention time.Duration, now time.Time) time.Time {
	if retention <= 0 {
		return time.Time{}
	}
	until := key.ExpirationDate.Add(retention)
	if floor := now.Add(minRetention); until.Before(floor) {
		return floor
	}
	return until
}

type entry struct {
	record    notification.Record
	expiresAt time.Time // zero never expires
}

func (e entry) live(now time.Time) bool {
	return e.expiresAt.IsZero() || now.Before(e.expiresAt)
}

// InMemoryDedupStore implements notification.DedupStore using an in-memory map.
// This is suitable for single-instance deployments and testing.
type InMemoryDedupStore struct {
	mu        sync.RWMutex
	entries   map[string]entry
	retention time.Duration
	now       func() time.Time
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewInMemoryDedupStore creates a new in-memory dedup store. With a positive
// retention records are dropped that long after the expiration date they
// guard, by a background goroutine; zero keeps them for the process lifetime.
func NewInMemoryDedupStore(retention time.Duration) *InMemoryDedupStore {
	store := &InMemoryDedupStore{
		entries:   make(map[string]entry),
		retention: retention,
		now:       time.Now,
		stopChan:  make(chan struct{}),
	}

	store.wg.Add(1)
	go store.cleanupLoop()

	return store
}

// Insert records a sent notice. The check and the write happen under one
// lock so exactly one concurrent caller wins a key.
func (s *InMemoryDedupStore) Insert(ctx context.Context, rec notification.Record) error {
	if err := rec.Key.Validate(); err != nil {
		return err
	}
	key := rec.Key.String()

	s.mu.Lock()
	defer s.mu.Unlock()

	if e, exists := s.entries[key]; exists && e.live(s.now()) {
		return notification.ErrDuplicate
	}
	rec.SentTo = slices.Clone(rec.SentTo)
	s.entries[key] = entry{record: rec, expiresAt: retainUntil(rec.Key, s.retention, s.now())}
	return nil
}

// Delete removes the record for key
func (s *InMemoryDedupStore) Delete(ctx context.Context, key notification.DedupKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key.String())
	return nil
}

// Find returns the record for key
func (s *InMemoryDedupStore) Find(ctx context.Context, key notification.DedupKey) (*notification.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, exists := s.entries[key.String()]
	if !exists || !e.live(s.now()) {
		return nil, notification.ErrNotRecorded
	}
	rec := e.record
	rec.SentTo = slices.Clone(rec.SentTo)
	return &rec, nil
}

// Close stops the cleanup goroutine and releases resources.
// Safe to call multiple times.
func (s *InMemoryDedupStore) Close() error {
	s.closeOnce.Do(func() {
		close(s.stopChan)
		s.wg.Wait()
	})
	return nil
}

func (s *InMemoryDedupStore) cleanupLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.cleanup()
		}
	}
}

func (s *InMemoryDedupStore) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for key, e := range s.entries {
		if !e.live(now) {
			delete(s.entries, key)
		}
	}
}

// Size returns the number of entries in the store (for testing/monitoring)
func (s *InMemoryDedupStore) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

var _ notification.DedupStore = (*InMemoryDedupStore)(nil)
