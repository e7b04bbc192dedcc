// Package middleware holds the HTTP middleware chain: tracing, metrics, logging and rate limiting.
package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type contextKey string

const (
	CorrelationIDKey contextKey = "correlation-id"
	RequestIDKey     contextKey = "request-id"
)

// RequestRecorder receives one observation per served request.
type RequestRecorder interface {
	RecordRequest(ctx context.Context, method, path string, statusCode int, duration time.Duration)
}

type ObservabilityMiddleware struct {
	tracer   trace.Tracer
	recorder RequestRecorder
	logger   *zap.Logger
}

func NewObservabilityMiddleware(tracer trace.Tracer, recorder RequestRecorder, logger *zap.Logger) *ObservabilityMiddleware {
	return &ObservabilityMiddleware{
		tracer:   tracer,
		recorder: recorder,
		logger:   logger,
	}
}

func (m *ObservabilityMiddleware) TracingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))

		ctx, span := m.tracer.Start(ctx, r.Method+" "+routePath(r),
			trace.WithAttributes(
				attribute.String("http.method", r.Method),
				attribute.String("http.url", r.URL.String()),
				attribute.String("http.host", r.Host),
				attribute.String("http.user_agent", r.UserAgent()),
			),
		)
		defer span.End()

		correlationID := r.Header.Get("X-Correlation-ID")
		if correlationID == "" {
			correlationID = uuid.New().String()
		}

		requestID := uuid.New().String()

		ctx = context.WithValue(ctx, CorrelationIDKey, correlationID)
		ctx = context.WithValue(ctx, RequestIDKey, requestID)

		span.SetAttributes(
			attribute.String("correlation_id", correlationID),
			attribute.String("request_id", requestID),
		)

		w.Header().Set("X-Correlation-ID", correlationID)
		w.Header().Set("X-Request-ID", requestID)

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r.WithContext(ctx))

		span.SetAttributes(attribute.Int("http.status_code", wrapped.statusCode))

		if wrapped.statusCode >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(wrapped.statusCode))
		} else {
			span.SetStatus(codes.Ok, "")
		}
	})
}

func (m *ObservabilityMiddleware) MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		if m.recorder != nil {
			m.recorder.RecordRequest(r.Context(), r.Method, routePath(r), wrapped.statusCode, time.Since(start))
		}
	})
}

func (m *ObservabilityMiddleware) LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		logger := m.logger.With(
			zap.String("correlation_id", GetCorrelationID(r.Context())),
			zap.String("request_id", GetRequestID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("client_ip", GetClientIP(r)),
		)

		wrapped := &responseWriterWithSize{
			responseWriter: responseWriter{ResponseWriter: w, statusCode: http.StatusOK},
		}

		next.ServeHTTP(wrapped, r)

		duration := time.Since(start)
		fields := []zap.Field{
			zap.Int("status_code", wrapped.statusCode),
			zap.Int64("bytes_written", wrapped.bytesWritten),
			zap.Duration("duration", duration),
		}

		if wrapped.statusCode >= http.StatusInternalServerError {
			logger.Error("request completed", fields...)
		} else {
			logger.Info("request completed", fields...)
		}
	})
}

// routePath prefers the mux route template so metrics do not explode on ids.
func routePath(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if template, err := route.GetPathTemplate(); err == nil {
			return template
		}
	}

	return r.URL.Path
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

type responseWriterWithSize struct {
	responseWriter
	bytesWritten int64
}

func (rw *responseWriterWithSize) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.bytesWritten += int64(n)

	return n, err
}

func GetCorrelationID(ctx context.Context) string {
	if id, ok := ctx.Value(CorrelationIDKey).(string); ok {
		return id
	}

	return ""
}

func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDKey).(string); ok {
		return id
	}

	return ""
}
