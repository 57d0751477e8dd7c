// Package telemetry exports gateway metrics over OTLP/HTTP.
package telemetry

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
)

const InstrumentName = "github.com/tanpawarit/sparkpath-gateway"

type Config struct {
	// Endpoint is a full URL such as http://collector:4318/v1/metrics. Empty disables export.
	Endpoint       string        `envconfig:"EXPORTER_OTLP_METRICS_ENDPOINT" split_words:"true"`
	Insecure       bool          `envconfig:"EXPORTER_OTLP_INSECURE" split_words:"true"`
	ServiceName    string        `envconfig:"SERVICE_NAME" split_words:"true" default:"sparkpath-gateway"`
	ServiceVersion string        `envconfig:"SERVICE_VERSION" split_words:"true" default:"dev"`
	Interval       time.Duration `envconfig:"METRIC_EXPORT_INTERVAL" split_words:"true" default:"30s"`
}

// Start installs the global meter provider and returns its shutdown func. With no
// endpoint configured it returns a noop meter.
func Start(ctx context.Context, cfg Config) (metric.Meter, func(context.Context) error, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return noop.NewMeterProvider().Meter(InstrumentName), func(context.Context) error { return nil }, nil
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
		),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("create resource: %w", err)
	}

	opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpointURL(endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}
	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("create metrics exporter: %w", err)
	}

	interval := cfg.Interval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(interval))),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(provider)

	return provider.Meter(InstrumentName), provider.Shutdown, nil
}

// Metrics records one counter and one latency histogram per gateway operation.
type Metrics struct {
	calls    metric.Int64Counter
	duration metric.Float64Histogram
}

func NewMetrics(meter metric.Meter) (*Metrics, error) {
	if meter == nil {
		meter = noop.NewMeterProvider().Meter(InstrumentName)
	}

	calls, err := meter.Int64Counter("gateway.operations",
		metric.WithDescription("Gateway operations by outcome"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create counter: %w", err)
	}

	duration, err := meter.Float64Histogram("gateway.operation.duration",
		metric.WithDescription("Gateway operation latency"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("create histogram: %w", err)
	}

	return &Metrics{calls: calls, duration: duration}, nil
}

// Record counts one finished operation. kind is empty on success.
func (m *Metrics) Record(ctx context.Context, op, kind string, elapsed time.Duration) {
	if m == nil {
		return
	}
	outcome := "ok"
	if kind != "" {
		outcome = kind
	}
	attrs := metric.WithAttributes(
		attribute.String("op", op),
		attribute.String("outcome", outcome),
	)
	m.calls.Add(ctx, 1, attrs)
	m.duration.Record(ctx, elapsed.Seconds(), attrs)
}
