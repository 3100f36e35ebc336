// Package notification sends agreement expiry notices at most once per
// (entity, notice type, expiration date).
package notification

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/salesops/backend/internal/domain/agreement"
	"github.com/salesops/backend/internal/domain/notification"
	"github.com/salesops/backend/internal/infrastructure/logger"
	"github.com/salesops/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// Config holds notice settings
type Config struct {
	From string
	// NoticeDays lists the enabled horizons; 30 and 15 are supported
	NoticeDays []int
}

// Service coordinates the dedup store, the sender and the agreement lifecycle
type Service struct {
	store      notification.DedupStore
	sender     notification.Sender
	agreements agreement.Repository
	cfg        Config
	metrics    *telemetry.ReportMetrics
	logger     *zap.Logger
	now        func() time.Time
}

// NewService creates a new notification service
func NewService(
	store notification.DedupStore,
	sender notification.Sender,
	agreements agreement.Repository,
	cfg Config,
	logger *zap.Logger,
) *Service {
	if len(cfg.NoticeDays) == 0 {
		cfg.NoticeDays = []int{30, 15}
	}
	return &Service{
		store:      store,
		sender:     sender,
		agreements: agreements,
		cfg:        cfg,
		logger:     logger,
		now:        time.Now,
	}
}

// SetMetrics records notice outcomes on m
func (s *Service) SetMetrics(m *telemetry.ReportMetrics) {
	s.metrics = m
}

// TrySendNotification sends one notice unless it was already sent.
//
// The dedup insert decides: only the caller whose insert succeeds calls the
// sender. If sending then fails the record is deleted so a later run retries.
func (s *Service) TrySendNotification(
	ctx context.Context,
	entityID string,
	noticeType notification.NoticeType,
	expirationDate time.Time,
	recipients []string,
) (notification.Outcome, error) {
	key := notification.NewDedupKey(entityID, noticeType, expirationDate)
	if err := key.Validate(); err != nil {
		return "", err
	}
	log := logger.WithLogger(ctx, s.logger).With(
		zap.String("entity_id", key.EntityID),
		zap.String("notice_type", string(key.NoticeType)),
		zap.String("expiration_date", key.ExpirationDate.Format(notification.DateLayout)),
	)

	err := s.store.Insert(ctx, notification.Record{Key: key, SentAt: s.now().UTC(), SentTo: recipients})
	if errors.Is(err, notification.ErrDuplicate) {
		log.Info("Notice already sent")
		s.metrics.RecordNotice(ctx, string(noticeType), telemetry.OutcomeAlreadySent)
		return notification.AlreadySent, nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to record notice %s: %w", key, err)
	}

	msg := notification.Message{
		Key:     key,
		From:    s.cfg.From,
		To:      recipients,
		Subject: fmt.Sprintf("Agreement %s expires in %d days", key.EntityID, noticeType.DaysBefore()),
		Body: fmt.Sprintf("Agreement %s expires on %s. Please review it before that date.",
			key.EntityID, key.ExpirationDate.Format(notification.DateLayout)),
	}
	if err := s.sender.Send(ctx, msg); err != nil {
		// detach so a cancelled request still releases the key
		if delErr := s.store.Delete(context.WithoutCancel(ctx), key); delErr != nil {
			log.Error("Failed to release notice after send failure", zap.Error(delErr))
		}
		s.metrics.RecordNotice(ctx, string(noticeType), telemetry.OutcomeFailed)
		return "", fmt.Errorf("failed to send notice %s: %w", key, err)
	}
	s.metrics.RecordNotice(ctx, string(noticeType), telemetry.OutcomeSent)

	log.Info("Notice sent", zap.Int("recipients", len(recipients)))
	return notification.Sent, nil
}

// ExpirySummary counts what one RunExpiryNotices pass did
type ExpirySummary struct {
	Scanned     int `json:"scanned"`
	Sent        int `json:"sent"`
	AlreadySent int `json:"already_sent"`
	Expired     int `json:"expired"`
	Failed      int `json:"failed"`
}

// RunExpiryNotices sends due expiry notices for active agreements as of asOf
// and expires agreements whose date has passed. Safe to re-run: notices
// already recorded come back AlreadySent and are not resent.
func (s *Service) RunExpiryNotices(ctx context.Context, asOf time.Time) (ExpirySummary, error) {
	var summary ExpirySummary
	horizon := slices.Max(s.cfg.NoticeDays)

	due, err := s.agreements.FindActiveExpiringBefore(ctx, asOf.AddDate(0, 0, horizon))
	if err != nil {
		return summary, fmt.Errorf("failed to list expiring agreements: %w", err)
	}

	var errs []error
	for _, a := range due {
		summary.Scanned++
		if err := s.processAgreement(ctx, a, asOf, &summary); err != nil {
			summary.Failed++
			errs = append(errs, fmt.Errorf("agreement %s: %w", a.Code, err))
		}
	}

	s.logger.Info("Expiry notice run finished",
		zap.Time("as_of", asOf),
		zap.Int("scanned", summary.Scanned),
		zap.Int("sent", summary.Sent),
		zap.Int("already_sent", summary.AlreadySent),
		zap.Int("expired", summary.Expired),
		zap.Int("failed", summary.Failed),
	)
	return summary, errors.Join(errs...)
}

func (s *Service) processAgreement(ctx context.Context, a *agreement.Agreement, asOf time.Time, summary *ExpirySummary) error {
	if a.DaysUntilExpiration(asOf) < 0 {
		if err := a.Expire(asOf); err != nil {
			return err
		}
		summary.Expired++
		return s.agreements.Save(ctx, a)
	}

	nt, ok := a.DueNoticeAmong(asOf, s.enabledNotices()...)
	if !ok {
		return nil
	}

	outcome, err := s.TrySendNotification(ctx, a.Code, nt, a.ExpirationDate, a.Recipients)
	if err != nil {
		return err
	}
	switch outcome {
	case notification.Sent:
		summary.Sent++
	case notification.AlreadySent:
		summary.AlreadySent++
	}

	if err := a.MarkNoticeSent(nt); err != nil {
		return err
	}
	return s.agreements.Save(ctx, a)
}

func (s *Service) enabledNotices() []notification.NoticeType {
	enabled := make([]notification.NoticeType, 0, len(s.cfg.NoticeDays))
	for _, d := range s.cfg.NoticeDays {
		if nt, ok := notification.NoticeForDays(d); ok {
			enabled = append(enabled, nt)
		}
	}
	return enabled
}

// NoticeStatus reports whether the notice for the key was sent
func (s *Service) NoticeStatus(ctx context.Context, entityID string, noticeType notification.NoticeType, expirationDate time.Time) (*notification.Record, error) {
	key := notification.NewDedupKey(entityID, noticeType, expirationDate)
	if err := key.Validate(); err != nil {
		return nil, err
	}
	return s.store.Find(ctx, key)
}
