// Package observability sets up OpenTelemetry tracing and the Prometheus-backed meter,
// and records the service's HTTP, database, provider and sync metrics.
package observability

import (
	"context"
	"fmt"
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/sean-rowe/weather-tracker/internal/core/domain"
)

type Telemetry struct {
	TracerProvider *sdktrace.TracerProvider
	MeterProvider  *sdkmetric.MeterProvider
	Tracer         trace.Tracer
	Meter          metric.Meter
	registry       *prom.Registry
	logger         *zap.Logger

	RequestCounter  metric.Int64Counter
	RequestDuration metric.Float64Histogram
	ErrorCounter    metric.Int64Counter
	DBQueryDuration metric.Float64Histogram
	ProviderLatency metric.Float64Histogram
	SyncCounter     metric.Int64Counter
	SyncDuration    metric.Float64Histogram
	ConflictCounter metric.Int64Counter
}

type Config struct {
	ServiceName    string
	ServiceVersion string
	Environment    string

	// OTLPEndpoint is the collector's gRPC address; empty keeps spans in process
	OTLPEndpoint string
	SampleRate   float64
}

func InitTelemetry(ctx context.Context, cfg Config, logger *zap.Logger) (*Telemetry, error) {
	res, err := resource.Merge(
		resource.Default(),
		resource.NewSchemaless(
			semconv.ServiceNameKey.String(cfg.ServiceName),
			semconv.ServiceVersionKey.String(cfg.ServiceVersion),
			semconv.DeploymentEnvironmentKey.String(cfg.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	tracerProvider, err := initTracerProvider(ctx, cfg, res)
	if err != nil {
		return nil, fmt.Errorf("failed to init tracer provider: %w", err)
	}

	registry := prom.NewRegistry()

	meterProvider, err := initMeterProvider(res, registry)
	if err != nil {
		return nil, fmt.Errorf("failed to init meter provider: %w", err)
	}

	otel.SetTracerProvider(tracerProvider)
	otel.SetMeterProvider(meterProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	t := &Telemetry{
		TracerProvider: tracerProvider,
		MeterProvider:  meterProvider,
		Tracer:         tracerProvider.Tracer(cfg.ServiceName),
		Meter:          meterProvider.Meter(cfg.ServiceName),
		registry:       registry,
		logger:         logger,
	}

	if err := t.initInstruments(); err != nil {
		return nil, err
	}

	return t, nil
}

func (t *Telemetry) initInstruments() error {
	var err error

	if t.RequestCounter, err = t.Meter.Int64Counter(
		"http_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
	); err != nil {
		return err
	}

	if t.RequestDuration, err = t.Meter.Float64Histogram(
		"http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
	); err != nil {
		return err
	}

	if t.ErrorCounter, err = t.Meter.Int64Counter(
		"errors_total",
		metric.WithDescription("Total number of errors"),
	); err != nil {
		return err
	}

	if t.DBQueryDuration, err = t.Meter.Float64Histogram(
		"db_query_duration_seconds",
		metric.WithDescription("Database query duration in seconds"),
		metric.WithUnit("s"),
	); err != nil {
		return err
	}

	if t.ProviderLatency, err = t.Meter.Float64Histogram(
		"weather_provider_request_duration_seconds",
		metric.WithDescription("Weather provider call duration in seconds"),
		metric.WithUnit("s"),
	); err != nil {
		return err
	}

	if t.SyncCounter, err = t.Meter.Int64Counter(
		"weather_syncs_total",
		metric.WithDescription("Location synchronizations by outcome"),
	); err != nil {
		return err
	}

	if t.SyncDuration, err = t.Meter.Float64Histogram(
		"weather_sync_duration_seconds",
		metric.WithDescription("Duration of a single location synchronization"),
		metric.WithUnit("s"),
	); err != nil {
		return err
	}

	if t.ConflictCounter, err = t.Meter.Int64Counter(
		"weather_conflicts_total",
		metric.WithDescription("Snapshots flagged with a temperature conflict"),
	); err != nil {
		return err
	}

	return nil
}

func initTracerProvider(ctx context.Context, cfg Config, res *resource.Resource) (*sdktrace.TracerProvider, error) {
	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRate))),
	}

	if cfg.OTLPEndpoint != "" {
		exporter, err := otlptrace.New(
			ctx,
			otlptracegrpc.NewClient(
				otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint),
				otlptracegrpc.WithInsecure(),
			),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create trace exporter: %w", err)
		}

		opts = append(opts, sdktrace.WithBatcher(exporter))
	}

	return sdktrace.NewTracerProvider(opts...), nil
}

func initMeterProvider(res *resource.Resource, registry *prom.Registry) (*sdkmetric.MeterProvider, error) {
	exporter, err := prometheus.New(prometheus.WithRegisterer(registry))
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(exporter),
		sdkmetric.WithResource(res),
	)

	return mp, nil
}

// MetricsHandler serves the Prometheus exposition of every instrument.
func (t *Telemetry) MetricsHandler() http.Handler {
	return promhttp.HandlerFor(t.registry, promhttp.HandlerOpts{})
}

func (t *Telemetry) RecordRequest(ctx context.Context, method, path string, statusCode int, duration time.Duration) {
	attrs := []attribute.KeyValue{
		attribute.String("method", method),
		attribute.String("path", path),
		attribute.Int("status_code", statusCode),
	}

	t.RequestCounter.Add(ctx, 1, metric.WithAttributes(attrs...))
	t.RequestDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))

	if statusCode >= http.StatusInternalServerError {
		t.ErrorCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("type", "http")))
	}
}

func (t *Telemetry) RecordDBQuery(ctx context.Context, operation string, duration time.Duration, err error) {
	attrs := []attribute.KeyValue{
		attribute.String("operation", operation),
		attribute.Bool("error", err != nil),
	}

	t.DBQueryDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))

	if err != nil {
		t.ErrorCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.String("type", "database"),
			attribute.String("operation", operation),
		))
	}
}

// RecordProviderCall records one upstream call; err's detail code becomes the outcome label.
func (t *Telemetry) RecordProviderCall(ctx context.Context, operation string, duration time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
		if code := domain.CodeOf(err); code != "" {
			outcome = code
		}
	}

	t.ProviderLatency.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("outcome", outcome),
	))
}

// RecordSync records one location synchronization.
func (t *Telemetry) RecordSync(ctx context.Context, result domain.SyncResult, duration time.Duration) {
	status := "success"
	if !result.Success {
		status = "failure"
	}

	attrs := []attribute.KeyValue{
		attribute.String("status", status),
		attribute.String("error_kind", string(result.ErrorKind)),
	}

	t.SyncCounter.Add(ctx, 1, metric.WithAttributes(attrs...))
	t.SyncDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attribute.String("status", status)))

	if result.ConflictDetected {
		t.ConflictCounter.Add(ctx, 1)
	}
}

func (t *Telemetry) Shutdown(ctx context.Context) error {
	if err := t.TracerProvider.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown tracer provider: %w", err)
	}

	if err := t.MeterProvider.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown meter provider: %w", err)
	}

	return nil
}
