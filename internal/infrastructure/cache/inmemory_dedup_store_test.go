package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/salesops/backend/internal/domain/notification"
	"github.com/salesops/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey(entity string) notification.DedupKey {
	return notification.NewDedupKey(entity, notification.NoticeExpiry30, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC))
}

func TestInMemoryDedupStore_Insert(t *testing.T) {
	store := NewInMemoryDedupStore(30 * 24 * time.Hour)
	defer store.Close()

	ctx := context.Background()

	t.Run("first insert wins", func(t *testing.T) {
		err := store.Insert(ctx, notification.Record{Key: testKey("AGR-1"), SentAt: time.Now()})
		require.NoError(t, err)
	})

	t.Run("second insert is a duplicate", func(t *testing.T) {
		rec := notification.Record{Key: testKey("AGR-2"), SentAt: time.Now()}
		require.NoError(t, store.Insert(ctx, rec))
		assert.ErrorIs(t, store.Insert(ctx, rec), notification.ErrDuplicate)
	})

	t.Run("invalid key is rejected", func(t *testing.T) {
		err := store.Insert(ctx, notification.Record{Key: notification.DedupKey{EntityID: "AGR-3"}})
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
	})

	t.Run("delete allows a retry", func(t *testing.T) {
		rec := notification.Record{Key: testKey("AGR-4"), SentAt: time.Now()}
		require.NoError(t, store.Insert(ctx, rec))
		require.NoError(t, store.Delete(ctx, rec.Key))
		assert.NoError(t, store.Insert(ctx, rec))
	})

	t.Run("find returns a copy", func(t *testing.T) {
		rec := notification.Record{Key: testKey("AGR-5"), SentAt: time.Now(), SentTo: []string{"a@example.com"}}
		require.NoError(t, store.Insert(ctx, rec))
		got, err := store.Find(ctx, rec.Key)
		require.NoError(t, err)
		got.SentTo[0] = "changed"
		again, err := store.Find(ctx, rec.Key)
		require.NoError(t, err)
		assert.Equal(t, "a@example.com", again.SentTo[0])

		_, err = store.Find(ctx, testKey("missing"))
		assert.ErrorIs(t, err, notification.ErrNotRecorded)
	})
}

func TestInMemoryDedupStore_Concurrent(t *testing.T) {
	store := NewInMemoryDedupStore(time.Hour)
	defer store.Close()

	ctx := context.Background()
	rec := notification.Record{Key: testKey("AGR-RACE"), SentAt: time.Now()}

	var mu sync.Mutex
	wins := 0
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if store.Insert(ctx, rec) == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, wins)
}

func TestInMemoryDedupStore_Cleanup(t *testing.T) {
	store := NewInMemoryDedupStore(24 * time.Hour)
	defer store.Close()

	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	ctx := context.Background()
	require.NoError(t, store.Insert(ctx, notification.Record{Key: testKey("AGR-OLD")}))
	assert.Equal(t, 1, store.Size())

	// past expiration date plus retention
	now = time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)
	_, err := store.Find(ctx, testKey("AGR-OLD"))
	assert.ErrorIs(t, err, notification.ErrNotRecorded)
	store.cleanup()
	assert.Equal(t, 0, store.Size())
}

func TestRetainUntil(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	t.Run("retention past expiration", func(t *testing.T) {
		got := retainUntil(testKey("A"), 24*time.Hour, now)
		assert.Equal(t, time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC), got)
	})

	t.Run("never sooner than a day from now", func(t *testing.T) {
		got := retainUntil(testKey("A"), time.Hour, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
		assert.Equal(t, time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC), got)
	})

	t.Run("zero retention keeps forever", func(t *testing.T) {
		assert.True(t, retainUntil(testKey("A"), 0, now).IsZero())
	})
}

func TestInMemoryDedupStore_ZeroRetentionNeverForgets(t *testing.T) {
	store := NewInMemoryDedupStore(0)
	defer store.Close()

	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	ctx := context.Background()
	rec := notification.Record{Key: testKey("AGR-KEEP")}
	require.NoError(t, store.Insert(ctx, rec))

	now = now.AddDate(10, 0, 0)
	store.cleanup()
	assert.Equal(t, 1, store.Size())
	assert.ErrorIs(t, store.Insert(ctx, rec), notification.ErrDuplicate)
}
