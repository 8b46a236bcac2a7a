package orders

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type serviceMetrics struct {
	transitions  metric.Int64Counter
	expired      metric.Int64Counter
	sweepFailure metric.Int64Counter
}

func newServiceMetrics() *serviceMetrics {
	meter := otel.Meter("orders/service")

	transitions, err := meter.Int64Counter("orders.transitions",
		metric.WithDescription("Lifecycle operations by outcome"),
	)
	if err != nil {
		otel.Handle(err)
	}

	expired, err := meter.Int64Counter("orders.reservations.expired",
		metric.WithDescription("Banking reservations cancelled by the expiration sweep"),
	)
	if err != nil {
		otel.Handle(err)
	}

	sweepFailure, err := meter.Int64Counter("orders.reservations.sweep_failures",
		metric.WithDescription("Lapsed reservations the expiration sweep could not cancel"),
	)
	if err != nil {
		otel.Handle(err)
	}

	return &serviceMetrics{transitions: transitions, expired: expired, sweepFailure: sweepFailure}
}

func (m *serviceMetrics) transition(ctx context.Context, op, result string) {
	if m.transitions == nil {
		return
	}
	m.transitions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", op),
		attribute.String("result", result),
	))
}

func (m *serviceMetrics) reservationExpired(ctx context.Context) {
	if m.expired == nil {
		return
	}
	m.expired.Add(ctx, 1)
}

func (m *serviceMetrics) reservationSweepFailed(ctx context.Context) {
	if m.sweepFailure == nil {
		return
	}
	m.sweepFailure.Add(ctx, 1)
}
