package middleware

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/sean-rowe/weather-tracker/internal/core/ports"
)

// RateLimitMiddleware rejects clients that exceed limit requests per window.
// Clients are identified by GetClientIP.
type RateLimitMiddleware struct {
	service ports.RateLimitService
	limit   int
	window  time.Duration
	logger  *zap.Logger
}

func NewRateLimitMiddleware(service ports.RateLimitService, limit int, window time.Duration, logger *zap.Logger) *RateLimitMiddleware {
	return &RateLimitMiddleware{
		service: service,
		limit:   limit,
		window:  window,
		logger:  logger,
	}
}

// Middleware fails open when the limiter backend errors.
func (m *RateLimitMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.limit <= 0 {
			next.ServeHTTP(w, r)
			return
		}

		clientIP := GetClientIP(r)

		allowed, err := m.service.Allow(r.Context(), clientIP, m.limit, m.window)
		if err != nil {
			m.logger.Warn("rate limiter unavailable", zap.String("client_ip", clientIP), zap.Error(err))
			next.ServeHTTP(w, r)

			return
		}

		if !allowed {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", strconv.Itoa(int(m.window.Seconds())))
			w.WriteHeader(http.StatusTooManyRequests)

			_ = json.NewEncoder(w).Encode(map[string]string{
				"error":   "RATE_LIMITED",
				"message": "too many requests",
			})

			return
		}

		next.ServeHTTP(w, r)
	})
}
