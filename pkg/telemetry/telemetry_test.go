package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestStartWithoutEndpointIsNoop(t *testing.T) {
	t.Parallel()

	meter, shutdown, err := Start(context.Background(), Config{})
	require.NoError(t, err)
	require.NotNil(t, meter)
	assert.NoError(t, shutdown(context.Background()))
}

func TestMetricsRecord(t *testing.T) {
	t.Parallel()

	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	m, err := NewMetrics(provider.Meter(InstrumentName))
	require.NoError(t, err)

	ctx := context.Background()
	m.Record(ctx, "submit_query", "", 20*time.Millisecond)
	m.Record(ctx, "submit_query", "upstream_unavailable", 5*time.Millisecond)
	m.Record(ctx, "submit_query", "", 10*time.Millisecond)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))
	require.Len(t, rm.ScopeMetrics, 1)

	var counts map[string]int64
	for _, mm := range rm.ScopeMetrics[0].Metrics {
		if mm.Name != "gateway.operations" {
			continue
		}
		sum, ok := mm.Data.(metricdata.Sum[int64])
		require.True(t, ok)
		counts = map[string]int64{}
		for _, dp := range sum.DataPoints {
			outcome, _ := dp.Attributes.Value(attribute.Key("outcome"))
			counts[outcome.AsString()] = dp.Value
		}
	}
	assert.Equal(t, map[string]int64{"ok": 2, "upstream_unavailable": 1}, counts)
}

func TestNilMetricsRecordIsSafe(t *testing.T) {
	t.Parallel()

	var m *Metrics
	m.Record(context.Background(), "op", "", time.Millisecond)
}
