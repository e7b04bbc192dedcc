// Package circuitbreaker guards calls to the weather provider with sony/gobreaker.
// Breakers are created once per upstream through a Manager so that readiness
// checks can report their state.
package circuitbreaker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const (
	defaultMinRequests  = 3
	defaultFailureRatio = 0.5
)

// Breaker wraps a gobreaker.CircuitBreaker with tracing and structured logging.
type Breaker struct {
	breaker *gobreaker.CircuitBreaker
	logger  *zap.Logger
	name    string
}

// Config defines when a breaker opens and how it recovers.
type Config struct {
	Name string

	// MaxRequests is the number of trial calls allowed while half-open
	MaxRequests uint32

	// Interval clears the closed-state counts; zero never clears them
	Interval time.Duration

	// Timeout is how long the breaker stays open before going half-open
	Timeout time.Duration

	// The breaker opens once MinRequests calls were made and the failure
	// ratio reached FailureRatio.
	MinRequests  uint32
	FailureRatio float64

	// IsSuccessful classifies an error returned by the protected call; nil treats every error as a failure
	IsSuccessful func(err error) bool
}

// Stats is a point-in-time view of a breaker for health reporting.
type Stats struct {
	State                string `json:"state"`
	Requests             uint32 `json:"requests"`
	TotalSuccesses       uint32 `json:"totalSuccesses"`
	TotalFailures        uint32 `json:"totalFailures"`
	ConsecutiveSuccesses uint32 `json:"consecutiveSuccesses"`
	ConsecutiveFailures  uint32 `json:"consecutiveFailures"`
}

// NewCircuitBreaker creates a breaker that trips on a failure ratio.
//
// Parameters:
//   - cfg: Thresholds and error classification
//   - logger: Zap logger for state transitions
//
// Returns:
//   - *Breaker: Configured circuit breaker instance
func NewCircuitBreaker(cfg Config, logger *zap.Logger) *Breaker {
	return &Breaker{
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:         cfg.Name,
			MaxRequests:  cfg.MaxRequests,
			Interval:     cfg.Interval,
			Timeout:      cfg.Timeout,
			ReadyToTrip:  ratioTrip(cfg.MinRequests, cfg.FailureRatio),
			IsSuccessful: cfg.IsSuccessful,
			OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
				fields := []zap.Field{
					zap.String("breaker", name),
					zap.String("from", from.String()),
					zap.String("to", to.String()),
				}

				if to == gobreaker.StateOpen {
					logger.Warn("circuit breaker opened", fields...)
					return
				}

				logger.Info("circuit breaker state changed", fields...)
			},
		}),
		logger: logger,
		name:   cfg.Name,
	}
}

func ratioTrip(minRequests uint32, ratio float64) func(gobreaker.Counts) bool {
	if minRequests == 0 {
		minRequests = defaultMinRequests
	}

	if ratio <= 0 {
		ratio = defaultFailureRatio
	}

	return func(counts gobreaker.Counts) bool {
		if counts.Requests < minRequests {
			return false
		}

		return float64(counts.TotalFailures)/float64(counts.Requests) >= ratio
	}
}

// Execute runs fn under the breaker. While open, fn is not called and the
// returned error satisfies IsRejection.
func (cb *Breaker) Execute(ctx context.Context, operation string, fn func() error) error {
	_, span := otel.Tracer("circuit-breaker").Start(ctx, "breaker."+operation)
	defer span.End()

	span.SetAttributes(
		attribute.String("circuit_breaker.name", cb.name),
		attribute.String("circuit_breaker.state", cb.breaker.State().String()),
	)

	_, err := cb.breaker.Execute(func() (interface{}, error) {
		return nil, fn()
	})

	if err != nil {
		span.RecordError(err)

		cb.logger.Debug("protected call failed",
			zap.String("breaker", cb.name),
			zap.String("operation", operation),
			zap.Bool("rejected", IsRejection(err)),
			zap.Error(err))
	}

	return err
}

// IsRejection reports whether err means the breaker refused the call without running it.
func IsRejection(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}

func (cb *Breaker) State() gobreaker.State {
	return cb.breaker.State()
}

func (cb *Breaker) Stats() Stats {
	counts := cb.breaker.Counts()

	return Stats{
		State:                cb.breaker.State().String(),
		Requests:             counts.Requests,
		TotalSuccesses:       counts.TotalSuccesses,
		TotalFailures:        counts.TotalFailures,
		ConsecutiveSuccesses: counts.ConsecutiveSuccesses,
		ConsecutiveFailures:  counts.ConsecutiveFailures,
	}
}

// Manager owns the breakers of the process, one per upstream name.
type Manager struct {
	mu       sync.Mutex
	breakers map[string]*Breaker
	logger   *zap.Logger
}

func NewManager(logger *zap.Logger) *Manager {
	return &Manager{
		breakers: make(map[string]*Breaker),
		logger:   logger,
	}
}

// GetBreaker returns the breaker registered under name, creating it from cfg on
// first use. cfg is ignored for an existing breaker.
func (m *Manager) GetBreaker(name string, cfg Config) *Breaker {
	m.mu.Lock()
	defer m.mu.Unlock()

	if breaker, exists := m.breakers[name]; exists {
		return breaker
	}

	cfg.Name = name
	breaker := NewCircuitBreaker(cfg, m.logger)
	m.breakers[name] = breaker

	return breaker
}

// GetStats returns the stats of every breaker keyed by name.
func (m *Manager) GetStats() map[string]Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	stats := make(map[string]Stats, len(m.breakers))
	for name, breaker := range m.breakers {
		stats[name] = breaker.Stats()
	}

	return stats
}
