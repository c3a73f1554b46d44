package relay

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"

	appLog "hostingrelay/internal/log"
)

const instrumentationName = "hostingrelay/relay"

// Outcomes recorded on relay.feed.fetches.
const (
	outcomeOK        = "ok"
	outcomeTransport = "transport_error"
	outcomeParse     = "parse_error"
)

// feedMetrics records one data point per source load.
type feedMetrics struct {
	fetches  metric.Int64Counter
	duration metric.Float64Histogram
}

func newFeedMetrics() *feedMetrics {
	meter := otel.Meter(instrumentationName)

	fetches, err := meter.Int64Counter(
		"relay.feed.fetches",
		metric.WithDescription("Feed loads by source and outcome"),
		metric.WithUnit("{fetch}"),
	)
	if err != nil {
		appLog.Error("failed to create feed counter; using no-op", err)
		fetches, _ = noop.NewMeterProvider().Meter(instrumentationName).Int64Counter("relay.feed.fetches")
	}

	duration, err := meter.Float64Histogram(
		"relay.feed.duration",
		metric.WithDescription("Feed fetch+parse+normalize duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		appLog.Error("failed to create feed histogram; using no-op", err)
		duration, _ = noop.NewMeterProvider().Meter(instrumentationName).Float64Histogram("relay.feed.duration")
	}

	return &feedMetrics{fetches: fetches, duration: duration}
}

func (m *feedMetrics) record(ctx context.Context, key, outcome string, started time.Time) {
	attrs := metric.WithAttributes(
		attribute.String("source", key),
		attribute.String("outcome", outcome),
	)
	m.fetches.Add(ctx, 1, attrs)
	m.duration.Record(ctx, time.Since(started).Seconds(), attrs)
}
