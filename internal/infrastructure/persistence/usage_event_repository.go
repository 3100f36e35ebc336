package persistence

import (
	"context"

	"github.com/salesops/backend/internal/domain/audit"
	"github.com/salesops/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// defaultUsageListLimit caps ListByOwner when the caller passes no limit
const defaultUsageListLimit = 100

// GormUsageRepository implements audit.UsageRepository using GORM
type GormUsageRepository struct {
	db *gorm.DB
}

// NewGormUsageRepository creates a new GormUsageRepository
func NewGormUsageRepository(db *gorm.DB) *GormUsageRepository {
	return &GormUsageRepository{db: db}
}

// Append inserts one usage event; events are never updated
func (r *GormUsageRepository) Append(ctx context.Context, event audit.UsageEvent) error {
	return r.db.WithContext(ctx).Create(models.UsageEventModelFromDomain(event)).Error
}

// ListByOwner returns the newest events for an effective owner first
func (r *GormUsageRepository) ListByOwner(ctx context.Context, effectiveOwner string, limit int) ([]audit.UsageEvent, error) {
	if limit <= 0 {
		limit = defaultUsageListLimit
	}
	var rows []models.UsageEventModel
	err := r.db.WithContext(ctx).
		Where("effective_owner = ?", effectiveOwner).
		Order("occurred_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	events := make([]audit.UsageEvent, len(rows))
	for i := range rows {
		events[i] = rows[i].ToDomain()
	}
	return events, nil
}

var _ audit.UsageRepository = (*GormUsageRepository)(nil)
