package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type executorFunc func(ctx context.Context, job *Job) error

func (f executorFunc) Execute(ctx context.Context, job *Job) error { return f(ctx, job) }

func newTestScheduler(t *testing.T, cfg Config, exec JobExecutor) (*Scheduler, chan *Job) {
	t.Helper()
	s := NewScheduler(cfg, exec, nil, zap.NewNop())
	done := make(chan *Job, 10)
	s.done = done
	require.NoError(t, s.Start(context.Background()))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.Stop(ctx)
	})
	return s, done
}

func waitJob(t *testing.T, done <-chan *Job) *Job {
	t.Helper()
	select {
	case job := <-done:
		return job
	case <-time.After(5 * time.Second):
		t.Fatal("job did not finish")
		return nil
	}
}

var asOf = time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)

func TestJob_Lifecycle(t *testing.T) {
	job := NewJob(JobTypeExpiryNotices, asOf, 1)
	assert.Equal(t, JobStatusPending, job.Status)

	job.Start()
	assert.Equal(t, JobStatusRunning, job.Status)
	require.NotNil(t, job.StartedAt)

	job.Fail("boom")
	assert.True(t, job.ShouldRetry())
	job.ScheduleRetry(time.Minute)
	assert.Equal(t, 1, job.RetryCount)
	assert.Equal(t, JobStatusPending, job.Status)
	assert.Empty(t, job.Error)

	job.Fail("boom again")
	assert.False(t, job.ShouldRetry())
}

func TestScheduler_RunsJobs(t *testing.T) {
	var seen atomic.Value
	s, done := newTestScheduler(t, Config{MaxConcurrentJobs: 2, JobTimeout: time.Second}, executorFunc(func(ctx context.Context, job *Job) error {
		seen.Store(job.AsOf)
		_, hasDeadline := ctx.Deadline()
		assert.True(t, hasDeadline)
		return nil
	}))

	job, err := s.Schedule(JobTypeExpiryNotices, asOf)
	require.NoError(t, err)

	finished := waitJob(t, done)
	assert.Equal(t, job.ID, finished.ID)
	assert.Equal(t, JobStatusSuccess, finished.Status)
	assert.Equal(t, asOf, seen.Load())
}

func TestScheduler_Retry(t *testing.T) {
	t.Run("retries until success", func(t *testing.T) {
		var calls atomic.Int32
		s, done := newTestScheduler(t, Config{MaxConcurrentJobs: 1, JobTimeout: time.Second, RetryAttempts: 3}, executorFunc(func(ctx context.Context, job *Job) error {
			if calls.Add(1) == 1 {
				return errors.New("transient")
			}
			return nil
		}))

		_, err := s.Schedule(JobTypeExpiryNotices, asOf)
		require.NoError(t, err)

		finished := waitJob(t, done)
		assert.Equal(t, JobStatusSuccess, finished.Status)
		assert.Equal(t, 1, finished.RetryCount)
		assert.Equal(t, int32(2), calls.Load())
	})

	t.Run("gives up after the retry budget", func(t *testing.T) {
		var calls atomic.Int32
		s, done := newTestScheduler(t, Config{MaxConcurrentJobs: 1, JobTimeout: time.Second, RetryAttempts: 1}, executorFunc(func(ctx context.Context, job *Job) error {
			calls.Add(1)
			return errors.New("permanent")
		}))

		_, err := s.Schedule(JobTypeExpiryNotices, asOf)
		require.NoError(t, err)

		finished := waitJob(t, done)
		assert.Equal(t, JobStatusFailed, finished.Status)
		assert.Equal(t, "permanent", finished.Error)
		assert.Equal(t, int32(2), calls.Load())
	})
}

func TestScheduler_Submit(t *testing.T) {
	t.Run("not running", func(t *testing.T) {
		s := NewScheduler(DefaultConfig(), executorFunc(func(context.Context, *Job) error { return nil }), nil, zap.NewNop())
		assert.ErrorIs(t, s.SubmitJob(NewJob(JobTypeExpiryNotices, asOf, 0)), ErrSchedulerNotRunning)
	})

	t.Run("queue full", func(t *testing.T) {
		started := make(chan struct{})
		release := make(chan struct{})
		s, _ := newTestScheduler(t, Config{MaxConcurrentJobs: 1, JobTimeout: 5 * time.Second, QueueSize: 1}, executorFunc(func(ctx context.Context, job *Job) error {
			select {
			case started <- struct{}{}:
			default:
			}
			select {
			case <-release:
			case <-ctx.Done():
			}
			return nil
		}))
		defer close(release)

		require.NoError(t, s.SubmitJob(NewJob(JobTypeExpiryNotices, asOf, 0)))
		<-started
		require.NoError(t, s.SubmitJob(NewJob(JobTypeExpiryNotices, asOf, 0)))
		assert.ErrorIs(t, s.SubmitJob(NewJob(JobTypeExpiryNotices, asOf, 0)), ErrJobQueueFull)
	})
}
