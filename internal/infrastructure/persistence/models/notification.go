package models

import (
	"strings"
	"time"

	"github.com/salesops/backend/internal/domain/notification"
)

// NotificationLogModel records a sent notice. The composite unique index is
// what makes a second insert for the same key fail.
type NotificationLogModel struct {
	ID             uint64    `gorm:"primaryKey;autoIncrement"`
	EntityID       string    `gorm:"type:varchar(64);not null;uniqueIndex:uq_notification_key,priority:1"`
	NoticeType     string    `gorm:"type:varchar(32);not null;uniqueIndex:uq_notification_key,priority:2"`
	ExpirationDate time.Time `gorm:"type:date;not null;uniqueIndex:uq_notification_key,priority:3"`
	SentAt         time.Time `gorm:"not null"`
	SentTo         string    `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (NotificationLogModel) TableName() string {
	return "notification_log"
}

// NotificationLogModelFromDomain converts a dedup record
func NotificationLogModelFromDomain(r notification.Record) *NotificationLogModel {
	return &NotificationLogModel{
		EntityID:       r.Key.EntityID,
		NoticeType:     string(r.Key.NoticeType),
		ExpirationDate: r.Key.ExpirationDate,
		SentAt:         r.SentAt,
		SentTo:         strings.Join(r.SentTo, ","),
	}
}

// ToDomain converts the model to a dedup record
func (m *NotificationLogModel) ToDomain() notification.Record {
	var sentTo []string
	if m.SentTo != "" {
		sentTo = strings.Split(m.SentTo, ",")
	}
	return notification.Record{
		Key:    notification.NewDedupKey(m.EntityID, notification.NoticeType(m.NoticeType), m.ExpirationDate),
		SentAt: m.SentAt,
		SentTo: sentTo,
	}
}
