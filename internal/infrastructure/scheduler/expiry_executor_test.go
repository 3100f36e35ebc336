package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	notificationapp "github.com/salesops/backend/internal/application/notification"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

type mockRunner struct {
	mock.Mock
}

func (m *mockRunner) RunExpiryNotices(ctx context.Context, asOf time.Time) (notificationapp.ExpirySummary, error) {
	args := m.Called(ctx, asOf)
	return args.Get(0).(notificationapp.ExpirySummary), args.Error(1)
}

func TestExpiryNoticeExecutor(t *testing.T) {
	t.Run("runs notices as of the job date", func(t *testing.T) {
		runner := &mockRunner{}
		runner.On("RunExpiryNotices", mock.Anything, asOf).Return(notificationapp.ExpirySummary{Scanned: 2, Sent: 2}, nil)

		err := NewExpiryNoticeExecutor(runner, zap.NewNop()).Execute(context.Background(), NewJob(JobTypeExpiryNotices, asOf, 0))
		assert.NoError(t, err)
		runner.AssertExpectations(t)
	})

	t.Run("partial failure fails the job", func(t *testing.T) {
		runner := &mockRunner{}
		runner.On("RunExpiryNotices", mock.Anything, asOf).Return(notificationapp.ExpirySummary{Scanned: 2, Sent: 1, Failed: 1}, errors.New("agreement AGR-A: bounce"))

		err := NewExpiryNoticeExecutor(runner, zap.NewNop()).Execute(context.Background(), NewJob(JobTypeExpiryNotices, asOf, 0))
		assert.ErrorContains(t, err, "AGR-A")
	})

	t.Run("unknown job type", func(t *testing.T) {
		err := NewExpiryNoticeExecutor(&mockRunner{}, zap.NewNop()).Execute(context.Background(), NewJob("REBUILD", asOf, 0))
		assert.ErrorIs(t, err, ErrUnknownJobType)
	})
}
