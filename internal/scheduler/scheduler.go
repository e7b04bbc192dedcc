// Package scheduler runs the periodic stale-location refresh.
package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"

	"github.com/sean-rowe/weather-tracker/internal/core/domain"
)

// ErrAlreadyRunning is returned by RunOnce while another run is in flight.
var ErrAlreadyRunning = errors.New("scheduled sync already running")

// SyncJob is the work the scheduler triggers.
type SyncJob interface {
	ScheduledSync(ctx context.Context) ([]domain.SyncResult, error)
}

type Config struct {
	Interval   time.Duration
	RunOnStart bool

	// RunTimeout bounds a single run; zero means no bound
	RunTimeout time.Duration
}

// Scheduler triggers SyncJob on a fixed interval. Runs never overlap.
type Scheduler struct {
	cron   *gocron.Scheduler
	job    SyncJob
	cfg    Config
	logger *zap.Logger

	running sync.Mutex

	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
}

func New(job SyncJob, cfg Config, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		job:    job,
		cfg:    cfg,
		logger: logger,
	}
}

// Start registers the job and starts the scheduler in the background.
// The first run happens immediately when RunOnStart is set, otherwise after one interval.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.cfg.Interval <= 0 {
		return errors.New("scheduler interval must be positive")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		return errors.New("scheduler already started")
	}

	cron := gocron.NewScheduler(time.UTC)
	cron.SingletonModeAll()

	every := cron.Every(s.cfg.Interval)
	if !s.cfg.RunOnStart {
		every = every.WaitForSchedule()
	}

	s.ctx, s.cancel = context.WithCancel(ctx)

	if _, err := every.Do(s.tick); err != nil {
		s.cancel()
		s.ctx, s.cancel = nil, nil

		return err
	}

	s.cron = cron
	cron.StartAsync()

	s.logger.Info("sync scheduler started",
		zap.Duration("interval", s.cfg.Interval),
		zap.Bool("run_on_start", s.cfg.RunOnStart))

	return nil
}

// Stop cancels an in-flight run and halts the scheduler. It may be started again.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel, cron := s.cancel, s.cron
	s.cancel, s.cron = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}

	cancel()
	cron.Stop()

	s.logger.Info("sync scheduler stopped")
}

// NextRun reports when the job fires next; ok is false while stopped.
func (s *Scheduler) NextRun() (time.Time, bool) {
	s.mu.Lock()
	cron := s.cron
	s.mu.Unlock()

	if cron == nil {
		return time.Time{}, false
	}

	job, next := cron.NextRun()
	if job == nil {
		return time.Time{}, false
	}

	return next, true
}

// RunOnce runs the job immediately unless a run is already in flight.
func (s *Scheduler) RunOnce(ctx context.Context) ([]domain.SyncResult, error) {
	if !s.running.TryLock() {
		return nil, ErrAlreadyRunning
	}
	defer s.running.Unlock()

	if s.cfg.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.RunTimeout)
		defer cancel()
	}

	start := time.Now()

	results, err := s.job.ScheduledSync(ctx)
	if err != nil {
		return nil, err
	}

	failed := 0
	for _, result := range results {
		if !result.Success {
			failed++
		}
	}

	s.logger.Info("scheduled sync finished",
		zap.Int("locations", len(results)),
		zap.Int("failed", failed),
		zap.Duration("duration", time.Since(start)))

	return results, nil
}

func (s *Scheduler) tick() {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()

	if _, err := s.RunOnce(ctx); err != nil {
		if errors.Is(err, ErrAlreadyRunning) {
			s.logger.Debug("skipping scheduled sync, previous run still active")
			return
		}

		s.logger.Error("scheduled sync failed", zap.Error(err))
	}
}
