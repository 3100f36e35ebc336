package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/salesops/backend/internal/domain/notification"
	"github.com/salesops/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormDedupStore implements notification.DedupStore on the notification_log
// table. The unique index on (entity_id, notice_type, expiration_date) lets
// exactly one concurrent insert per key succeed.
type GormDedupStore struct {
	db *gorm.DB
}

// NewGormDedupStore creates a new GormDedupStore
func NewGormDedupStore(db *gorm.DB) *GormDedupStore {
	return &GormDedupStore{db: db}
}

// Insert records a sent notice, returning notification.ErrDuplicate when
// the key already exists
func (r *GormDedupStore) Insert(ctx context.Context, rec notification.Record) error {
	if err := rec.Key.Validate(); err != nil {
		return err
	}
	err := r.db.WithContext(ctx).Create(models.NotificationLogModelFromDomain(rec)).Error
	if err != nil {
		if isUniqueViolation(err) {
			return notification.ErrDuplicate
		}
		return err
	}
	return nil
}

// Delete removes the record for key so a failed send can be retried
func (r *GormDedupStore) Delete(ctx context.Context, key notification.DedupKey) error {
	return r.db.WithContext(ctx).
		Where("entity_id = ? AND notice_type = ? AND expiration_date = ?",
			key.EntityID, string(key.NoticeType), key.ExpirationDate).
		Delete(&models.NotificationLogModel{}).Error
}

// Find returns the record for key
func (r *GormDedupStore) Find(ctx context.Context, key notification.DedupKey) (*notification.Record, error) {
	var m models.NotificationLogModel
	err := r.db.WithContext(ctx).
		Where("entity_id = ? AND notice_type = ? AND expiration_date = ?",
			key.EntityID, string(key.NoticeType), key.ExpirationDate).
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notification.ErrNotRecorded
		}
		return nil, err
	}
	rec := m.ToDomain()
	return &rec, nil
}

// isUniqueViolation detects duplicate key errors. TranslateError maps most
// drivers to gorm.ErrDuplicatedKey; the message check covers connections
// opened without it.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "unique constraint")
}

var _ notification.DedupStore = (*GormDedupStore)(nil)
