package models

import (
	"strings"
	"time"

	"github.com/salesops/backend/internal/domain/agreement"
)

// AgreementModel is the persistence model for pricing agreements
type AgreementModel struct {
	BaseModel
	Code           string           `gorm:"type:varchar(64);not null;uniqueIndex"`
	OwnerCode      string           `gorm:"type:varchar(32);not null;index"`
	Recipients     string           `gorm:"type:text"`
	ExpirationDate time.Time        `gorm:"type:date;not null;index"`
	Status         agreement.Status `gorm:"type:varchar(32);not null;index"`
	ApprovedAt     *time.Time
}

// TableName returns the table name for GORM
func (AgreementModel) TableName() string {
	return "agreements"
}

// AgreementModelFromDomain converts a domain agreement
func AgreementModelFromDomain(a *agreement.Agreement) *AgreementModel {
	return &AgreementModel{
		BaseModel: BaseModel{
			ID:        a.ID,
			CreatedAt: a.CreatedAt,
			UpdatedAt: a.UpdatedAt,
		},
		Code:           a.Code,
		OwnerCode:      a.OwnerCode,
		Recipients:     strings.Join(a.Recipients, ","),
		ExpirationDate: a.ExpirationDate,
		Status:         a.Status,
		ApprovedAt:     a.ApprovedAt,
	}
}

// ToDomain converts the model to a domain agreement
func (m *AgreementModel) ToDomain() *agreement.Agreement {
	var recipients []string
	if m.Recipients != "" {
		recipients = strings.Split(m.Recipients, ",")
	}
	return &agreement.Agreement{
		ID:             m.ID,
		Code:           m.Code,
		OwnerCode:      m.OwnerCode,
		Recipients:     recipients,
		ExpirationDate: m.ExpirationDate,
		Status:         m.Status,
		ApprovedAt:     m.ApprovedAt,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}
