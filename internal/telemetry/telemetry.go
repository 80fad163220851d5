// Package telemetry wires OpenTelemetry metrics for the admission and
// lifecycle paths.
package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/sdk/resource"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	semconv "go.opentelemetry.io/otel/semconv/v1.27.0"
)

// Config holds OpenTelemetry configuration.
type Config struct {
	Enabled        bool          `env:"OTEL_ENABLED" envDefault:"false"`
	CollectorAddr  string        `env:"OTEL_COLLECTOR_ADDR" envDefault:"localhost:4317"`
	MetricInterval time.Duration `env:"OTEL_METRIC_INTERVAL" envDefault:"15s"`
	ServiceName    string        `env:"OTEL_SERVICE_NAME" envDefault:"explore-with-me"`
}

// ShutdownFunc flushes and stops the meter provider.
type ShutdownFunc func(ctx context.Context) error

// Setup returns the meter provider to build Metrics from. When telemetry is
// disabled a no-op provider is returned.
func Setup(ctx context.Context, cfg Config) (metric.MeterProvider, ShutdownFunc, error) {
	if !cfg.Enabled {
		return noop.NewMeterProvider(), func(context.Context) error { return nil }, nil
	}

	exporter, err := otlpmetricgrpc.New(ctx,
		otlpmetricgrpc.WithEndpoint(cfg.CollectorAddr),
		otlpmetricgrpc.WithInsecure(),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("create OTLP metric exporter: %w", err)
	}

	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(cfg.ServiceName),
	)
	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(
			sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(cfg.MetricInterval)),
		),
	)
	return provider, provider.Shutdown, nil
}
