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

	"github.com/sean-rowe/weather-tracker/internal/core/domain"
)

type countingJob struct {
	calls   atomic.Int32
	release chan struct{}
	err     error
}

func (j *countingJob) ScheduledSync(ctx context.Context) ([]domain.SyncResult, error) {
	j.calls.Add(1)

	if j.release != nil {
		select {
		case <-j.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if j.err != nil {
		return nil, j.err
	}

	return []domain.SyncResult{{Success: true}, {Success: false}}, nil
}

func TestScheduler_RunOnStart(t *testing.T) {
	job := &countingJob{}
	s := New(job, Config{Interval: time.Hour, RunOnStart: true}, zap.NewNop())

	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	assert.Eventually(t, func() bool { return job.calls.Load() == 1 }, 2*time.Second, 10*time.Millisecond)

	next, ok := s.NextRun()
	require.True(t, ok)
	assert.True(t, next.After(time.Now()))
}

func TestScheduler_WaitsForFirstInterval(t *testing.T) {
	job := &countingJob{}
	s := New(job, Config{Interval: time.Hour}, zap.NewNop())

	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	time.Sleep(100 * time.Millisecond)
	assert.Zero(t, job.calls.Load())
}

func TestScheduler_StartRejectsInvalidInterval(t *testing.T) {
	s := New(&countingJob{}, Config{}, zap.NewNop())

	assert.Error(t, s.Start(context.Background()))
}

func TestScheduler_StartTwice(t *testing.T) {
	s := New(&countingJob{}, Config{Interval: time.Hour}, zap.NewNop())

	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	assert.Error(t, s.Start(context.Background()))
}

func TestScheduler_RunOnceDoesNotOverlap(t *testing.T) {
	job := &countingJob{release: make(chan struct{})}
	s := New(job, Config{Interval: time.Hour}, zap.NewNop())

	done := make(chan error, 1)
	go func() {
		_, err := s.RunOnce(context.Background())
		done <- err
	}()

	require.Eventually(t, func() bool { return job.calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	_, err := s.RunOnce(context.Background())
	assert.ErrorIs(t, err, ErrAlreadyRunning)

	close(job.release)
	require.NoError(t, <-done)

	results, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Len(t, results, 2)
	assert.Equal(t, int32(2), job.calls.Load())
}

func TestScheduler_RunOncePropagatesJobError(t *testing.T) {
	job := &countingJob{err: errors.New("registry unavailable")}
	s := New(job, Config{Interval: time.Hour}, zap.NewNop())

	_, err := s.RunOnce(context.Background())
	assert.EqualError(t, err, "registry unavailable")
}

func TestScheduler_StopCancelsInFlightRun(t *testing.T) {
	job := &countingJob{release: make(chan struct{})}
	s := New(job, Config{Interval: time.Hour, RunOnStart: true}, zap.NewNop())

	require.NoError(t, s.Start(context.Background()))
	require.Eventually(t, func() bool { return job.calls.Load() == 1 }, 2*time.Second, 10*time.Millisecond)

	stopped := make(chan struct{})
	go func() {
		s.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return while a run was in flight")
	}
}

func TestScheduler_RestartAfterStop(t *testing.T) {
	job := &countingJob{}
	s := New(job, Config{Interval: time.Hour, RunOnStart: true}, zap.NewNop())

	require.NoError(t, s.Start(context.Background()))
	require.Eventually(t, func() bool { return job.calls.Load() == 1 }, 2*time.Second, 10*time.Millisecond)

	s.Stop()

	_, ok := s.NextRun()
	assert.False(t, ok)

	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	assert.Eventually(t, func() bool { return job.calls.Load() == 2 }, 2*time.Second, 10*time.Millisecond)

	next, ok := s.NextRun()
	require.True(t, ok)
	assert.True(t, next.After(time.Now()))
}

func TestScheduler_StopBeforeStart(t *testing.T) {
	s := New(&countingJob{}, Config{Interval: time.Hour}, zap.NewNop())

	s.Stop()

	_, ok := s.NextRun()
	assert.False(t, ok)

	require.NoError(t, s.Start(context.Background()))
	s.Stop()
}
