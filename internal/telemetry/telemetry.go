package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

// ServiceName identifies this service in exported telemetry.
const ServiceName = "bus_ticketing"

// Config selects which signals are exported and where to.
type Config struct {
	MetricsEnabled bool
	TracingEnabled bool
	Endpoint       string
	Insecure       bool
	ExportInterval time.Duration
}

// Init installs the global meter and tracer providers for the enabled
// signals. With nothing enabled the otel no-op providers stay in place and
// the returned shutdown does nothing.
func Init(ctx context.Context, cfg Config) (func(context.Context) error, error) {
	var shutdowns []func(context.Context) error
	shutdown := func(ctx context.Context) error {
		var errs []error
		for _, fn := range shutdowns {
			errs = append(errs, fn(ctx))
		}
		return errors.Join(errs...)
	}

	if !cfg.MetricsEnabled && !cfg.TracingEnabled {
		logrus.Debug("OpenTelemetry export disabled")
		return shutdown, nil
	}

	res, err := resource.New(ctx, resource.WithAttributes(semconv.ServiceName(ServiceName)))
	if err != nil {
		return shutdown, err
	}

	if cfg.MetricsEnabled {
		opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(cfg.Endpoint)}
		if cfg.Insecure {
			opts = append(opts, otlpmetrichttp.WithInsecure())
		}
		exporter, err := otlpmetrichttp.New(ctx, opts...)
		if err != nil {
			return shutdown, err
		}
		interval := cfg.ExportInterval
		if interval <= 0 {
			interval = 60 * time.Second
		}
		mp := sdkmetric.NewMeterProvider(
			sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(interval))),
			sdkmetric.WithResource(res),
		)
		otel.SetMeterProvider(mp)
		shutdowns = append(shutdowns, mp.Shutdown)
	}

	if cfg.TracingEnabled {
		opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(cfg.Endpoint)}
		if cfg.Insecure {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		exporter, err := otlptracehttp.New(ctx, opts...)
		if err != nil {
			return shutdown, err
		}
		tp := sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(exporter),
			sdktrace.WithResource(res),
		)
		otel.SetTracerProvider(tp)
		otel.SetTextMapPropagator(propagation.TraceContext{})
		shutdowns = append(shutdowns, tp.Shutdown)
	}

	logrus.WithFields(logrus.Fields{
		"endpoint": cfg.Endpoint,
		"metrics":  cfg.MetricsEnabled,
		"tracing":  cfg.TracingEnabled,
	}).Info("OpenTelemetry export enabled")
	return shutdown, nil
}

// Tracer returns the service tracer.
func Tracer() trace.Tracer {
	return otel.Tracer(ServiceName)
}
