package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Sum[int64] {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := map[string]metricdata.Sum[int64]{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if sum, ok := m.Data.(metricdata.Sum[int64]); ok {
				out[m.Name] = sum
			}
		}
	}
	return out
}

func valueFor(sum metricdata.Sum[int64], key, value string) int64 {
	for _, dp := range sum.DataPoints {
		if v, ok := dp.Attributes.Value(attribute.Key(key)); ok && v.AsString() == value {
			return dp.Value
		}
	}
	return 0
}

func TestMetricsRecordCounters(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	m, err := NewMetrics(provider)
	require.NoError(t, err)

	ctx := context.Background()
	m.RequestAdmitted(ctx, "CONFIRMED", 2)
	m.RequestAdmitted(ctx, "PENDING", 1)
	m.RequestAdmitted(ctx, "REJECTED", 0)
	m.RequestCanceled(ctx)
	m.EventTransitioned(ctx, "PUBLISHED")

	sums := collect(t, reader)
	assert.Equal(t, int64(2), valueFor(sums["ewm_requests_admitted_total"], "status", "CONFIRMED"))
	assert.Equal(t, int64(1), valueFor(sums["ewm_requests_admitted_total"], "status", "PENDING"))
	assert.Equal(t, int64(0), valueFor(sums["ewm_requests_admitted_total"], "status", "REJECTED"))
	require.Len(t, sums["ewm_requests_canceled_total"].DataPoints, 1)
	assert.Equal(t, int64(1), sums["ewm_requests_canceled_total"].DataPoints[0].Value)
	assert.Equal(t, int64(1), valueFor(sums["ewm_event_transitions_total"], "state", "PUBLISHED"))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RequestAdmitted(context.Background(), "CONFIRMED", 1)
		m.RequestCanceled(context.Background())
		m.EventTransitioned(context.Background(), "CANCELED")
	})
}

func TestSetupDisabledReturnsNoop(t *testing.T) {
	provider, shutdown, err := Setup(context.Background(), Config{Enabled: false})
	require.NoError(t, err)
	require.NotNil(t, provider)
	assert.NoError(t, shutdown(context.Background()))

	m, err := NewMetrics(provider)
	require.NoError(t, err)
	m.RequestCanceled(context.Background())
}
