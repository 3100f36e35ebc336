// Package notify contains notification.Sender implementations.
package notify

import (
	"context"
	"strings"

	"github.com/salesops/backend/internal/domain/notification"
	"github.com/salesops/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// LogSender writes each message to the structured log instead of a mail
// transport. It is the default sender until an SMTP relay is configured.
type LogSender struct {
	logger *zap.Logger
}

// NewLogSender creates a new log sender
func NewLogSender(logger *zap.Logger) *LogSender {
	return &LogSender{logger: logger.Named("notify")}
}

// Send implements notification.Sender
func (s *LogSender) Send(ctx context.Context, msg notification.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(msg.To) == 0 {
		logger.WithLogger(ctx, s.logger).Warn("Notice has no recipients",
			zap.String("key", msg.Key.String()),
		)
		return nil
	}
	logger.WithLogger(ctx, s.logger).Info("Notice delivered",
		zap.String("key", msg.Key.String()),
		zap.String("from", msg.From),
		zap.String("to", strings.Join(msg.To, ",")),
		zap.String("subject", msg.Subject),
		zap.Int("attachments", len(msg.Attachments)),
	)
	return nil
}

var _ notification.Sender = (*LogSender)(nil)
