package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/salesops/backend/internal/domain/audit"
)

// UsageEventModel is the append-only report usage log
type UsageEventModel struct {
	ID             uuid.UUID `gorm:"type:uuid;primary_key"`
	EffectiveOwner string    `gorm:"type:varchar(32);not null;index:idx_usage_owner_time,priority:1"`
	ActingAdmin    string    `gorm:"type:varchar(32)"`
	ReportName     string    `gorm:"type:varchar(100);not null"`
	Parameters     string    `gorm:"type:text"`
	OccurredAt     time.Time `gorm:"not null;index:idx_usage_owner_time,priority:2"`
}

// TableName returns the table name for GORM
func (UsageEventModel) TableName() string {
	return "usage_events"
}

// UsageEventModelFromDomain converts a domain usage event
func UsageEventModelFromDomain(e audit.UsageEvent) *UsageEventModel {
	return &UsageEventModel{
		ID:             e.ID,
		EffectiveOwner: e.EffectiveOwner,
		ActingAdmin:    e.ActingAdmin,
		ReportName:     e.ReportName,
		Parameters:     e.Parameters,
		OccurredAt:     e.Timestamp,
	}
}

// ToDomain converts the model to a domain usage event
func (m *UsageEventModel) ToDomain() audit.UsageEvent {
	return audit.UsageEvent{
		ID:             m.ID,
		EffectiveOwner: m.EffectiveOwner,
		ActingAdmin:    m.ActingAdmin,
		ReportName:     m.ReportName,
		Parameters:     m.Parameters,
		Timestamp:      m.OccurredAt,
	}
}
