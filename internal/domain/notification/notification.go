// Package notification defines the at-most-once notice log: the dedup key,
// the stored record and the ports for storing keys and sending messages.
package notification

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/salesops/backend/internal/domain/shared"
)

// DateLayout formats expiration dates inside dedup keys
const DateLayout = "2006-01-02"

// NoticeType identifies a kind of notice sent about an entity
type NoticeType string

const (
	NoticeExpiry30 NoticeType = "EXPIRY_30"
	NoticeExpiry15 NoticeType = "EXPIRY_15"
)

// IsValid checks if the notice type is known
func (t NoticeType) IsValid() bool {
	switch t {
	case NoticeExpiry30, NoticeExpiry15:
		return true
	}
	return false
}

// DaysBefore returns how many days ahead of expiration the notice is due
func (t NoticeType) DaysBefore() int {
	switch t {
	case NoticeExpiry30:
		return 30
	case NoticeExpiry15:
		return 15
	}
	return 0
}

// NoticeForDays maps a notice horizon in days to its notice type
func NoticeForDays(days int) (NoticeType, bool) {
	switch days {
	case 30:
		return NoticeExpiry30, true
	case 15:
		return NoticeExpiry15, true
	}
	return "", false
}

// Outcome is the result of a send attempt. AlreadySent is not an error.
type Outcome string

const (
	Sent        Outcome = "SENT"
	AlreadySent Outcome = "ALREADY_SENT"
)

var (
	// ErrDuplicate is returned by a DedupStore when the key is already recorded
	ErrDuplicate = shared.NewDomainError("NOTIFICATION_DUPLICATE", "Notification already recorded")
	// ErrInvalidKey is returned for incomplete dedup keys
	ErrInvalidKey = shared.NewDomainError("INVALID_INPUT", "Invalid notification key")
	// ErrNotRecorded is returned by Find when no notice was sent for the key
	ErrNotRecorded = shared.NewDomainError("NOT_FOUND", "Notification not recorded")
)

// DedupKey identifies one notice about one entity for one expiration date
type DedupKey struct {
	EntityID       string
	NoticeType     NoticeType
	ExpirationDate time.Time
}

// NewDedupKey creates a key, truncating the expiration date to its UTC day
func NewDedupKey(entityID string, noticeType NoticeType, expirationDate time.Time) DedupKey {
	d := expirationDate.UTC()
	return DedupKey{
		EntityID:       strings.TrimSpace(entityID),
		NoticeType:     noticeType,
		ExpirationDate: time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC),
	}
}

// Validate checks the key is complete
func (k DedupKey) Validate() error {
	if k.EntityID == "" {
		return fmt.Errorf("%w: entity id is required", ErrInvalidKey)
	}
	if !k.NoticeType.IsValid() {
		return fmt.Errorf("%w: unknown notice type %q", ErrInvalidKey, k.NoticeType)
	}
	if k.ExpirationDate.IsZero() {
		return fmt.Errorf("%w: expiration date is required", ErrInvalidKey)
	}
	return nil
}

// String renders the key as entity:type:date
func (k DedupKey) String() string {
	return k.EntityID + ":" + string(k.NoticeType) + ":" + k.ExpirationDate.Format(DateLayout)
}

// Record is a stored proof that a notice was sent
type Record struct {
	Key    DedupKey
	SentAt time.Time
	SentTo []string
}

// DedupStore persists dedup records. Insert must be atomic with respect to
// the key and return ErrDuplicate when the key already exists.
type DedupStore interface {
	Insert(ctx context.Context, record Record) error
	// Delete removes a record whose send failed so a later run can retry
	Delete(ctx context.Context, key DedupKey) error
	Find(ctx context.Context, key DedupKey) (*Record, error)
}

// Message is one outbound notice
type Message struct {
	Key     DedupKey
	From    string
	To      []string
	Subject string
	Body    string

	// Attachments are optional; expiry notices carry none
	Attachments []Attachment
}

// Attachment is a file sent along with a message
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Sender delivers messages
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// SenderFunc adapts a function to Sender
type SenderFunc func(ctx context.Context, msg Message) error

// Send calls f
func (f SenderFunc) Send(ctx context.Context, msg Message) error {
	return f(ctx, msg)
}
