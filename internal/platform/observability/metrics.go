package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MeterName is the instrumentation scope for storefront metrics.
const MeterName = "github.com/MoonsunCreations/Moonsun-Store"

// Meter returns the storefront meter from the global provider.
func Meter() metric.Meter {
	return otel.GetMeterProvider().Meter(MeterName)
}

// CartMetrics counts persisted cart mutations and checkout handoffs.
type CartMetrics struct {
	mutations metric.Int64Counter
	checkouts metric.Int64Counter
}

// NewCartMetrics registers the cart instruments on meter. A nil meter uses the global one.
func NewCartMetrics(meter metric.Meter) (*CartMetrics, error) {
	if meter == nil {
		meter = Meter()
	}
	mutations, err := meter.Int64Counter("storefront.cart.mutations",
		metric.WithDescription("Persisted cart mutations by operation."))
	if err != nil {
		return nil, err
	}
	checkouts, err := meter.Int64Counter("storefront.checkout.handoffs",
		metric.WithDescription("Checkout handoffs by channel and result."))
	if err != nil {
		return nil, err
	}
	return &CartMetrics{mutations: mutations, checkouts: checkouts}, nil
}

// Mutation records one cart mutation.
func (m *CartMetrics) Mutation(ctx context.Context, op string) {
	if m == nil {
		return
	}
	m.mutations.Add(ctx, 1, metric.WithAttributes(attribute.String("op", op)))
}

// Checkout records one checkout attempt.
func (m *CartMetrics) Checkout(ctx context.Context, channel, result string) {
	if m == nil {
		return
	}
	m.checkouts.Add(ctx, 1, metric.WithAttributes(
		attribute.String("channel", channel),
		attribute.String("result", result),
	))
}
