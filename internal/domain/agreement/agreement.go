// Package agreement models the pricing agreement lifecycle whose expiry
// drives the notice jobs.
package agreement

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/salesops/backend/internal/domain/notification"
	"github.com/salesops/backend/internal/domain/shared"
)

// Status is the lifecycle tag of an agreement
type Status string

const (
	StatusNew              Status = "NEW"
	StatusPendingApproval1 Status = "PENDING_APPROVAL_STAGE1"
	StatusPendingApproval2 Status = "PENDING_APPROVAL_STAGE2"
	StatusApproved         Status = "APPROVED"
	StatusNotice30Sent     Status = "NOTICE_30_SENT"
	StatusNotice15Sent     Status = "NOTICE_15_SENT"
	StatusExpired          Status = "EXPIRED"
	StatusReopened         Status = "REOPENED"
)

// ErrInvalidTransition is returned when a lifecycle move is not allowed
var ErrInvalidTransition = shared.NewDomainError("INVALID_STATE", "Agreement status transition not allowed")

// IsValid checks if the status is known
func (s Status) IsValid() bool {
	switch s {
	case StatusNew, StatusPendingApproval1, StatusPendingApproval2, StatusApproved,
		StatusNotice30Sent, StatusNotice15Sent, StatusExpired, StatusReopened:
		return true
	}
	return false
}

// IsActive reports whether the agreement is approved and not yet expired
func (s Status) IsActive() bool {
	return s == StatusApproved || s == StatusNotice30Sent || s == StatusNotice15Sent
}

// CanTransitionTo checks if the status can move to target
func (s Status) CanTransitionTo(target Status) bool {
	switch s {
	case StatusNew, StatusReopened:
		return target == StatusPendingApproval1
	case StatusPendingApproval1:
		return target == StatusPendingApproval2
	case StatusPendingApproval2:
		return target == StatusApproved
	case StatusApproved:
		return target == StatusNotice30Sent || target == StatusNotice15Sent ||
			target == StatusExpired || target == StatusReopened
	case StatusNotice30Sent:
		return target == StatusNotice15Sent || target == StatusExpired || target == StatusReopened
	case StatusNotice15Sent:
		return target == StatusExpired || target == StatusReopened
	case StatusExpired:
		return false
	}
	return false
}

// Agreement is a pricing agreement between the company and an owner's customer
type Agreement struct {
	ID             uuid.UUID
	Code           string
	OwnerCode      string
	Recipients     []string
	ExpirationDate time.Time
	Status         Status
	ApprovedAt     *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// New creates an agreement in the NEW state
func New(code, ownerCode string, recipients []string, expirationDate time.Time) (*Agreement, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, shared.NewDomainError("INVALID_INPUT", "Agreement code cannot be empty")
	}
	if expirationDate.IsZero() {
		return nil, shared.NewDomainError("INVALID_INPUT", "Agreement expiration date is required")
	}
	now := time.Now()
	return &Agreement{
		ID:             uuid.New(),
		Code:           code,
		OwnerCode:      strings.TrimSpace(ownerCode),
		Recipients:     recipients,
		ExpirationDate: expirationDate.UTC(),
		Status:         StatusNew,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

func (a *Agreement) transition(target Status) error {
	if !a.Status.CanTransitionTo(target) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, a.Status, target)
	}
	a.Status = target
	a.UpdatedAt = time.Now()
	return nil
}

// Submit sends a new or reopened agreement into first-stage approval
func (a *Agreement) Submit() error {
	return a.transition(StatusPendingApproval1)
}

// Approve advances one approval stage
func (a *Agreement) Approve() error {
	switch a.Status {
	case StatusPendingApproval1:
		return a.transition(StatusPendingApproval2)
	case StatusPendingApproval2:
		if err := a.transition(StatusApproved); err != nil {
			return err
		}
		now := a.UpdatedAt
		a.ApprovedAt = &now
		return nil
	}
	return fmt.Errorf("%w: cannot approve in %s status", ErrInvalidTransition, a.Status)
}

// Reopen takes an active agreement back for renegotiation
func (a *Agreement) Reopen() error {
	if err := a.transition(StatusReopened); err != nil {
		return err
	}
	a.ApprovedAt = nil
	return nil
}

// MarkNoticeSent records that the given expiry notice went out
func (a *Agreement) MarkNoticeSent(nt notification.NoticeType) error {
	switch nt {
	case notification.NoticeExpiry30:
		return a.transition(StatusNotice30Sent)
	case notification.NoticeExpiry15:
		return a.transition(StatusNotice15Sent)
	}
	return fmt.Errorf("%w: unknown notice type %q", ErrInvalidTransition, nt)
}

// Expire closes an active agreement whose expiration date has passed
func (a *Agreement) Expire(asOf time.Time) error {
	if a.DaysUntilExpiration(asOf) >= 0 {
		return fmt.Errorf("%w: agreement %s has not expired", ErrInvalidTransition, a.Code)
	}
	return a.transition(StatusExpired)
}

// DaysUntilExpiration counts whole UTC days from asOf to the expiration date
func (a *Agreement) DaysUntilExpiration(asOf time.Time) int {
	from := utcDay(asOf)
	to := utcDay(a.ExpirationDate)
	return int(to.Sub(from).Hours() / 24)
}

// DueNotice returns the notice that should go out as of asOf, if any.
// When both horizons have been crossed only the 15 day notice is due.
func (a *Agreement) DueNotice(asOf time.Time) (notification.NoticeType, bool) {
	return a.DueNoticeAmong(asOf, notification.NoticeExpiry30, notification.NoticeExpiry15)
}

// DueNoticeAmong is DueNotice restricted to the enabled notice types. Of the
// enabled horizons already crossed and not yet noticed, the nearest to
// expiration wins, so a first run inside a disabled horizon falls back to
// the enabled one.
func (a *Agreement) DueNoticeAmong(asOf time.Time, enabled ...notification.NoticeType) (notification.NoticeType, bool) {
	days := a.DaysUntilExpiration(asOf)
	if days < 0 {
		return "", false
	}
	var pending []notification.NoticeType
	switch a.Status {
	case StatusApproved:
		pending = []notification.NoticeType{notification.NoticeExpiry15, notification.NoticeExpiry30}
	case StatusNotice30Sent:
		pending = []notification.NoticeType{notification.NoticeExpiry15}
	}
	for _, nt := range pending {
		if slices.Contains(enabled, nt) && days <= nt.DaysBefore() {
			return nt, true
		}
	}
	return "", false
}

func utcDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Repository persists agreements
type Repository interface {
	Save(ctx context.Context, a *Agreement) error
	FindByID(ctx context.Context, id uuid.UUID) (*Agreement, error)
	// FindActiveExpiringBefore lists active agreements expiring on or before until
	FindActiveExpiringBefore(ctx context.Context, until time.Time) ([]*Agreement, error)
}
