package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/salesops/backend/internal/domain/agreement"
	"github.com/salesops/backend/internal/domain/shared"
	"github.com/salesops/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormAgreementRepository implements agreement.Repository using GORM
type GormAgreementRepository struct {
	db *gorm.DB
}

// NewGormAgreementRepository creates a new GormAgreementRepository
func NewGormAgreementRepository(db *gorm.DB) *GormAgreementRepository {
	return &GormAgreementRepository{db: db}
}

// Save creates or updates an agreement
func (r *GormAgreementRepository) Save(ctx context.Context, a *agreement.Agreement) error {
	a.UpdatedAt = time.Now().UTC()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = a.UpdatedAt
	}
	return r.db.WithContext(ctx).Save(models.AgreementModelFromDomain(a)).Error
}

// FindByID finds an agreement by its ID
func (r *GormAgreementRepository) FindByID(ctx context.Context, id uuid.UUID) (*agreement.Agreement, error) {
	var m models.AgreementModel
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return m.ToDomain(), nil
}

// FindActiveExpiringBefore lists active agreements expiring on or before
// until, soonest first
func (r *GormAgreementRepository) FindActiveExpiringBefore(ctx context.Context, until time.Time) ([]*agreement.Agreement, error) {
	var rows []models.AgreementModel
	err := r.db.WithContext(ctx).
		Where("status IN ?", []agreement.Status{
			agreement.StatusApproved,
			agreement.StatusNotice30Sent,
			agreement.StatusNotice15Sent,
		}).
		Where("expiration_date <= ?", until).
		Order("expiration_date ASC").
		Order("code ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]*agreement.Agreement, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out, nil
}

var _ agreement.Repository = (*GormAgreementRepository)(nil)
