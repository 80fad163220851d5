package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/ianibaeva/explore-with-me"

// Metrics records admission and lifecycle counters. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	admitted    metric.Int64Counter
	canceled    metric.Int64Counter
	transitions metric.Int64Counter
}

// NewMetrics registers the counters on the provider's meter.
func NewMetrics(provider metric.MeterProvider) (*Metrics, error) {
	meter := provider.Meter(meterName)

	admitted, err := meter.Int64Counter("ewm_requests_admitted_total",
		metric.WithDescription("Participation requests by resulting status"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}
	canceled, err := meter.Int64Counter("ewm_requests_canceled_total",
		metric.WithDescription("Participation requests canceled by their requester"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}
	transitions, err := meter.Int64Counter("ewm_event_transitions_total",
		metric.WithDescription("Event lifecycle transitions by target state"),
		metric.WithUnit("{transition}"),
	)
	if err != nil {
		return nil, err
	}
	return &Metrics{admitted: admitted, canceled: canceled, transitions: transitions}, nil
}

// RequestAdmitted counts n requests that reached status.
func (m *Metrics) RequestAdmitted(ctx context.Context, status string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.admitted.Add(ctx, int64(n), metric.WithAttributes(attribute.String("status", status)))
}

// RequestCanceled counts one canceled request.
func (m *Metrics) RequestCanceled(ctx context.Context) {
	if m == nil {
		return
	}
	m.canceled.Add(ctx, 1)
}

// EventTransitioned counts one lifecycle transition into state.
func (m *Metrics) EventTransitioned(ctx context.Context, state string) {
	if m == nil {
		return
	}
	m.transitions.Add(ctx, 1, metric.WithAttributes(attribute.String("state", state)))
}
