package circuitbreaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var errUpstream = errors.New("upstream down")

func TestBreaker_OpensAfterFailureRatio(t *testing.T) {
	cb := NewCircuitBreaker(Config{
		Name:         "test",
		MaxRequests:  1,
		Timeout:      time.Minute,
		MinRequests:  3,
		FailureRatio: 0.5,
	}, zap.NewNop())

	ctx := context.Background()

	for i := 0; i < 3; i++ {
		err := cb.Execute(ctx, "call", func() error { return errUpstream })
		require.ErrorIs(t, err, errUpstream)
	}

	assert.Equal(t, gobreaker.StateOpen, cb.State())

	called := false
	err := cb.Execute(ctx, "call", func() error {
		called = true
		return nil
	})

	assert.False(t, called)
	assert.True(t, IsRejection(err))
}

func TestBreaker_StaysClosedBelowMinRequests(t *testing.T) {
	cb := NewCircuitBreaker(Config{Name: "test", Timeout: time.Minute, MinRequests: 4}, zap.NewNop())

	for i := 0; i < 3; i++ {
		_ = cb.Execute(context.Background(), "call", func() error { return errUpstream })
	}

	assert.Equal(t, gobreaker.StateClosed, cb.State())
	assert.Equal(t, uint32(3), cb.Stats().ConsecutiveFailures)
}

func TestBreaker_IsSuccessfulKeepsCircuitClosed(t *testing.T) {
	errCaller := errors.New("bad request")

	cb := NewCircuitBreaker(Config{
		Name:         "test",
		Timeout:      time.Minute,
		MinRequests:  1,
		IsSuccessful: func(err error) bool { return err == nil || errors.Is(err, errCaller) },
	}, zap.NewNop())

	for i := 0; i < 5; i++ {
		err := cb.Execute(context.Background(), "call", func() error { return errCaller })
		require.ErrorIs(t, err, errCaller)
	}

	assert.Equal(t, gobreaker.StateClosed, cb.State())
	assert.Equal(t, uint32(0), cb.Stats().TotalFailures)
}

func TestManager_ReusesBreakersAndReportsStats(t *testing.T) {
	m := NewManager(zap.NewNop())

	first := m.GetBreaker("open-meteo", Config{})
	second := m.GetBreaker("open-meteo", Config{MinRequests: 10})

	assert.Same(t, first, second)

	require.NoError(t, first.Execute(context.Background(), "call", func() error { return nil }))

	stats := m.GetStats()
	require.Contains(t, stats, "open-meteo")

	entry := stats["open-meteo"]
	assert.Equal(t, "closed", entry.State)
	assert.Equal(t, uint32(1), entry.TotalSuccesses)
	assert.Equal(t, uint32(1), entry.Requests)
}

func TestIsRejection(t *testing.T) {
	assert.True(t, IsRejection(gobreaker.ErrOpenState))
	assert.True(t, IsRejection(gobreaker.ErrTooManyRequests))
	assert.False(t, IsRejection(errUpstream))
	assert.False(t, IsRejection(nil))
}
