package ratelimit

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// MemoryRateLimiter is the single-instance counterpart of RedisRateLimiter.
type MemoryRateLimiter struct {
	mu      sync.Mutex
	clients map[string][]time.Time
	logger  *zap.Logger
	now     func() time.Time
	stop    chan struct{}
	once    sync.Once
}

// NewMemoryRateLimiter creates an in-memory limiter and starts its idle-client sweeper.
// Call Close to stop the sweeper.
func NewMemoryRateLimiter(sweepInterval time.Duration, logger *zap.Logger) *MemoryRateLimiter {
	rl := &MemoryRateLimiter{
		clients: make(map[string][]time.Time),
		logger:  logger,
		now:     time.Now,
		stop:    make(chan struct{}),
	}

	if sweepInterval <= 0 {
		sweepInterval = 5 * time.Minute
	}

	go rl.sweep(sweepInterval)

	return rl
}

// Allow reports whether identifier has fewer than limit requests in the trailing window,
// and records the request when it does.
func (rl *MemoryRateLimiter) Allow(ctx context.Context, identifier string, limit int, window time.Duration) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	now := rl.now()
	cutoff := now.Add(-window)

	rl.mu.Lock()
	defer rl.mu.Unlock()

	requests := rl.clients[identifier]
	kept := requests[:0]

	for _, at := range requests {
		if at.After(cutoff) {
			kept = append(kept, at)
		}
	}

	if len(kept) >= limit {
		rl.clients[identifier] = kept
		rl.logger.Debug("rate limit exceeded",
			zap.String("identifier", identifier),
			zap.Int("limit", limit))

		return false, nil
	}

	rl.clients[identifier] = append(kept, now)

	return true, nil
}

// Reset clears the rate limit history for identifier.
func (rl *MemoryRateLimiter) Reset(ctx context.Context, identifier string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	rl.mu.Lock()
	delete(rl.clients, identifier)
	rl.mu.Unlock()

	return nil
}

// Close stops the sweeper. It is safe to call more than once.
func (rl *MemoryRateLimiter) Close() {
	rl.once.Do(func() { close(rl.stop) })
}

// sweep drops clients whose newest request is older than interval.
func (rl *MemoryRateLimiter) sweep(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stop:
			return
		case <-ticker.C:
			cutoff := rl.now().Add(-interval)

			rl.mu.Lock()
			for identifier, requests := range rl.clients {
				if len(requests) == 0 || !requests[len(requests)-1].After(cutoff) {
					delete(rl.clients, identifier)
				}
			}
			rl.mu.Unlock()
		}
	}
}
