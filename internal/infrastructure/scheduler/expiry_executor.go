package scheduler

import (
	"context"
	"fmt"
	"time"

	notificationapp "github.com/salesops/backend/internal/application/notification"
	"go.uber.org/zap"
)

// ExpiryNoticeRunner is the notification service surface the executor needs
type ExpiryNoticeRunner interface {
	RunExpiryNotices(ctx context.Context, asOf time.Time) (notificationapp.ExpirySummary, error)
}

// ExpiryNoticeExecutor runs EXPIRY_NOTICES jobs
type ExpiryNoticeExecutor struct {
	runner ExpiryNoticeRunner
	logger *zap.Logger
}

// NewExpiryNoticeExecutor creates a new executor
func NewExpiryNoticeExecutor(runner ExpiryNoticeRunner, logger *zap.Logger) *ExpiryNoticeExecutor {
	return &ExpiryNoticeExecutor{runner: runner, logger: logger}
}

// Execute implements JobExecutor. A partially failed run returns an error
// so the job is retried; notices already sent are not resent on retry.
func (e *ExpiryNoticeExecutor) Execute(ctx context.Context, job *Job) error {
	if job.Type != JobTypeExpiryNotices {
		return fmt.Errorf("%w: %s", ErrUnknownJobType, job.Type)
	}
	summary, err := e.runner.RunExpiryNotices(ctx, job.AsOf)
	e.logger.Info("Expiry notice job finished",
		zap.String("job_id", job.ID.String()),
		zap.Int("sent", summary.Sent),
		zap.Int("already_sent", summary.AlreadySent),
		zap.Int("failed", summary.Failed),
	)
	return err
}
