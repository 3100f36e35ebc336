package persistence

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/salesops/backend/internal/domain/agreement"
	"github.com/salesops/backend/internal/domain/audit"
	"github.com/salesops/backend/internal/domain/notification"
	"github.com/salesops/backend/internal/domain/shared"
	"github.com/salesops/backend/internal/infrastructure/persistence/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormUsageRepository(t *testing.T) {
	db := setupSQLiteDB(t)
	require.NoError(t, db.AutoMigrate(&models.UsageEventModel{}))
	repo := NewGormUsageRepository(db)
	ctx := context.Background()

	base := time.Date(2025, 1, 15, 9, 0, 0, 0, time.UTC)
	for i, owner := range []string{"REPA", "REPB", "REPA"} {
		e := audit.NewUsageEvent(owner, "", "sales_history", `{"as_of":"2025-01-15"}`)
		e.Timestamp = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, repo.Append(ctx, e))
	}
	impersonated := audit.NewUsageEvent("REPB", "ADMIN", "sales_history", "{}")
	impersonated.Timestamp = base.Add(time.Hour)
	require.NoError(t, repo.Append(ctx, impersonated))

	t.Run("lists newest first per owner", func(t *testing.T) {
		events, err := repo.ListByOwner(ctx, "REPA", 0)
		require.NoError(t, err)
		require.Len(t, events, 2)
		assert.True(t, events[0].Timestamp.After(events[1].Timestamp))
		assert.Empty(t, events[0].ActingAdmin)
	})

	t.Run("keeps acting admin on impersonated runs", func(t *testing.T) {
		events, err := repo.ListByOwner(ctx, "REPB", 1)
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, impersonated.ID, events[0].ID)
		assert.Equal(t, "ADMIN", events[0].ActingAdmin)
	})
}

func TestGormDedupStore(t *testing.T) {
	db := setupSQLiteDB(t)
	require.NoError(t, db.AutoMigrate(&models.NotificationLogModel{}))
	store := NewGormDedupStore(db)
	ctx := context.Background()

	key := notification.NewDedupKey("AGR-1", notification.NoticeExpiry30, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC))
	rec := notification.Record{Key: key, SentAt: time.Now().UTC(), SentTo: []string{"a@example.com", "b@example.com"}}

	t.Run("second insert is a duplicate", func(t *testing.T) {
		require.NoError(t, store.Insert(ctx, rec))
		err := store.Insert(ctx, rec)
		assert.ErrorIs(t, err, notification.ErrDuplicate)
	})

	t.Run("find returns the stored record", func(t *testing.T) {
		got, err := store.Find(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, key, got.Key)
		assert.Equal(t, []string{"a@example.com", "b@example.com"}, got.SentTo)
	})

	t.Run("other notice type for the same entity is independent", func(t *testing.T) {
		other := rec
		other.Key = notification.NewDedupKey("AGR-1", notification.NoticeExpiry15, key.ExpirationDate)
		assert.NoError(t, store.Insert(ctx, other))
	})

	t.Run("delete frees the key", func(t *testing.T) {
		require.NoError(t, store.Delete(ctx, key))
		_, err := store.Find(ctx, key)
		assert.ErrorIs(t, err, notification.ErrNotRecorded)
		assert.NoError(t, store.Insert(ctx, rec))
	})

	t.Run("invalid key is rejected", func(t *testing.T) {
		err := store.Insert(ctx, notification.Record{Key: notification.DedupKey{EntityID: "AGR-2"}})
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
	})

	t.Run("concurrent inserts admit exactly one", func(t *testing.T) {
		k := notification.NewDedupKey("AGR-9", notification.NoticeExpiry15, key.ExpirationDate)
		var wins, dups atomic.Int32
		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				err := store.Insert(ctx, notification.Record{Key: k, SentAt: time.Now().UTC()})
				switch {
				case err == nil:
					wins.Add(1)
				case assert.ErrorIs(t, err, notification.ErrDuplicate):
					dups.Add(1)
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, int32(1), wins.Load())
		assert.Equal(t, int32(7), dups.Load())
	})
}

func TestGormAgreementRepository(t *testing.T) {
	db := setupSQLiteDB(t)
	require.NoError(t, db.AutoMigrate(&models.AgreementModel{}))
	repo := NewGormAgreementRepository(db)
	ctx := context.Background()

	approved := func(code string, exp time.Time) *agreement.Agreement {
		a, err := agreement.New(code, "REPA", []string{"repa@example.com"}, exp)
		require.NoError(t, err)
		require.NoError(t, a.Submit())
		require.NoError(t, a.Approve())
		require.NoError(t, a.Approve())
		require.NoError(t, repo.Save(ctx, a))
		return a
	}

	soon := approved("AGR-SOON", time.Date(2025, 2, 10, 0, 0, 0, 0, time.UTC))
	approved("AGR-LATER", time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC))
	draft, err := agreement.New("AGR-DRAFT", "REPA", nil, time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, draft))

	t.Run("find by id round trips", func(t *testing.T) {
		got, err := repo.FindByID(ctx, soon.ID)
		require.NoError(t, err)
		assert.Equal(t, "AGR-SOON", got.Code)
		assert.Equal(t, agreement.StatusApproved, got.Status)
		assert.Equal(t, []string{"repa@example.com"}, got.Recipients)
		assert.NotNil(t, got.ApprovedAt)
	})

	t.Run("unknown id is not found", func(t *testing.T) {
		_, err := repo.FindByID(ctx, uuid.New())
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("expiring lists only active agreements in range", func(t *testing.T) {
		list, err := repo.FindActiveExpiringBefore(ctx, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC))
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, soon.ID, list[0].ID)
	})

	t.Run("save updates status", func(t *testing.T) {
		require.NoError(t, soon.MarkNoticeSent(notification.NoticeExpiry30))
		require.NoError(t, repo.Save(ctx, soon))
		got, err := repo.FindByID(ctx, soon.ID)
		require.NoError(t, err)
		assert.Equal(t, agreement.StatusNotice30Sent, got.Status)
	})
}
