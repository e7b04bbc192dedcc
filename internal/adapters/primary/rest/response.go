// Package rest implements the HTTP API for the weather tracker.
// This package serves as the primary adapter, translating HTTP requests
// into service calls and mapping domain errors to status codes.
package rest

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/sean-rowe/weather-tracker/internal/core/domain"
	"github.com/sean-rowe/weather-tracker/internal/middleware"
)

// ErrorResponse represents a standardized error response structure.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// responder holds the JSON helpers shared by every handler.
type responder struct {
	logger *zap.Logger
}

// respondWithJSON sends a JSON response with the specified status code.
func (h responder) respondWithJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if payload == nil {
		return
	}

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to encode response", zap.Error(err))
	}
}

// respondWithError sends a standardized error response.
func (h responder) respondWithError(w http.ResponseWriter, status int, code, message string) {
	h.respondWithJSON(w, status, ErrorResponse{
		Error:   code,
		Message: message,
	})
}

// statusFor maps a domain error to its HTTP status.
//
// Error mappings:
//   - NOT_FOUND -> 404
//   - DUPLICATE -> 409
//   - INVALID_INPUT, INVALID_CITY -> 400
//   - RATE_LIMITED -> 429
//   - EXTERNAL_API_ERROR/INVALID_RESPONSE -> 502
//   - EXTERNAL_API_ERROR/PROVIDER_UNAVAILABLE -> 503
func statusFor(e *domain.WeatherError) int {
	switch e.Kind {
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindDuplicate:
		return http.StatusConflict
	case domain.KindInvalidInput, domain.KindInvalidCity:
		return http.StatusBadRequest
	case domain.KindRateLimited:
		return http.StatusTooManyRequests
	case domain.KindExternalAPIError:
		if e.Code == domain.CodeInvalidResponse {
			return http.StatusBadGateway
		}

		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// handleServiceError maps domain errors to appropriate HTTP responses.
// Anything that is not a WeatherError is logged and reported as INTERNAL_ERROR.
func (h responder) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var e *domain.WeatherError

	if errors.As(err, &e) {
		status := statusFor(e)
		if status >= http.StatusInternalServerError {
			h.logger.Warn("upstream failure",
				zap.Error(err),
				zap.String("request_id", middleware.GetRequestID(r.Context())))
		}

		h.respondWithError(w, status, e.Code, e.Message)

		return
	}

	h.logger.Error("unexpected error",
		zap.Error(err),
		zap.String("correlation_id", middleware.GetCorrelationID(r.Context())),
		zap.String("request_id", middleware.GetRequestID(r.Context())),
	)

	h.respondWithError(
		w,
		http.StatusInternalServerError,
		"INTERNAL_ERROR",
		"An unexpected error occurred",
	)
}

func (h responder) decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		h.respondWithError(w, http.StatusBadRequest, string(domain.KindInvalidInput), "request body is not valid JSON: "+err.Error())
		return false
	}

	return true
}
