package observability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/propagation"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/dshills/vortex-catalog/internal/config"
)

const (
	exportTimeout = 30 * time.Second
	maxQueueSize  = 2048
)

// ShutdownFunc flushes and stops an SDK component
type ShutdownFunc func(context.Context) error

func noopShutdown(context.Context) error { return nil }

func newResource(serviceName string) (*resource.Resource, error) {
	return resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(config.ServiceVersion),
		),
	)
}

func headers(cfg config.OtelConfig) map[string]string {
	if cfg.AuthHeader == "" {
		return nil
	}
	return map[string]string{"Authorization": cfg.AuthHeader}
}

// SetupTracingSDK installs a global TracerProvider exporting over OTLP/HTTP.
// When export is disabled it returns a no-op shutdown and leaves the global
// no-op provider in place.
func SetupTracingSDK(ctx context.Context, serviceName string, cfg config.OtelConfig) (*sdktrace.TracerProvider, ShutdownFunc, error) {
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	if !cfg.Enabled() {
		return nil, noopShutdown, nil
	}

	res, err := newResource(serviceName)
	if err != nil {
		return nil, noopShutdown, fmt.Errorf("failed to create resource: %w", err)
	}

	opts := []otlptracehttp.Option{
		otlptracehttp.WithEndpoint(cfg.Endpoint),
		otlptracehttp.WithURLPath(cfg.TracesPath),
		otlptracehttp.WithHeaders(headers(cfg)),
	}
	if cfg.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	exporter, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return nil, noopShutdown, fmt.Errorf("failed to setup OTLP trace exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter,
			sdktrace.WithMaxQueueSize(maxQueueSize),
			sdktrace.WithBatchTimeout(5*time.Second),
		),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	return tp, tp.Shutdown, nil
}

// SetupLoggingSDK installs a global LoggerProvider for the otelzap bridge
func SetupLoggingSDK(ctx context.Context, serviceName string, cfg config.OtelConfig) (ShutdownFunc, error) {
	if !cfg.Enabled() {
		return noopShutdown, nil
	}

	res, err := newResource(serviceName)
	if err != nil {
		return noopShutdown, fmt.Errorf("failed to create resource: %w", err)
	}

	opts := []otlploghttp.Option{
		otlploghttp.WithEndpoint(cfg.Endpoint),
		otlploghttp.WithURLPath(cfg.LogsPath),
		otlploghttp.WithHeaders(headers(cfg)),
	}
	if cfg.Insecure {
		opts = append(opts, otlploghttp.WithInsecure())
	}
	exporter, err := otlploghttp.New(ctx, opts...)
	if err != nil {
		return noopShutdown, fmt.Errorf("failed to setup OTLP log exporter: %w", err)
	}

	processor := sdklog.NewBatchProcessor(exporter,
		sdklog.WithExportTimeout(exportTimeout),
		sdklog.WithMaxQueueSize(maxQueueSize),
	)
	lp := sdklog.NewLoggerProvider(
		sdklog.WithResource(res),
		sdklog.WithProcessor(processor),
	)
	global.SetLoggerProvider(lp)
	return lp.Shutdown, nil
}

// Setup configures tracing and logging together. The returned shutdown runs
// the component shutdowns in reverse order and joins their errors.
func Setup(ctx context.Context, serviceName string, cfg config.OtelConfig) (ShutdownFunc, error) {
	var shutdownFuncs []ShutdownFunc
	shutdown := func(ctx context.Context) error {
		var errs error
		for i := len(shutdownFuncs) - 1; i >= 0; i-- {
			errs = errors.Join(errs, shutdownFuncs[i](ctx))
		}
		shutdownFuncs = nil
		return errs
	}

	var setupErr error
	_, traceShutdown, err := SetupTracingSDK(ctx, serviceName, cfg)
	setupErr = errors.Join(setupErr, err)
	shutdownFuncs = append(shutdownFuncs, traceShutdown)

	logShutdown, err := SetupLoggingSDK(ctx, serviceName, cfg)
	setupErr = errors.Join(setupErr, err)
	shutdownFuncs = append(shutdownFuncs, logShutdown)

	return shutdown, setupErr
}
