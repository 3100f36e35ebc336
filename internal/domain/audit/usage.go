// Package audit records which effective owner ran which report.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// UsageEvent is one append-only record of a report execution.
// ActingAdmin is set only when the request impersonated EffectiveOwner.
type UsageEvent struct {
	ID             uuid.UUID `json:"id"`
	EffectiveOwner string    `json:"effective_owner"`
	ActingAdmin    string    `json:"acting_admin,omitempty"`
	ReportName     string    `json:"report_name"`
	Parameters     string    `json:"parameters"`
	Timestamp      time.Time `json:"timestamp"`
}

// NewUsageEvent creates a usage event stamped now
func NewUsageEvent(effectiveOwner, actingAdmin, reportName, parameters string) UsageEvent {
	return UsageEvent{
		ID:             uuid.New(),
		EffectiveOwner: effectiveOwner,
		ActingAdmin:    actingAdmin,
		ReportName:     reportName,
		Parameters:     parameters,
		Timestamp:      time.Now().UTC(),
	}
}

// UsageRepository appends usage events
type UsageRepository interface {
	Append(ctx context.Context, event UsageEvent) error
	// ListByOwner returns the newest events for an effective owner first
	ListByOwner(ctx context.Context, effectiveOwner string, limit int) ([]UsageEvent, error)
}
