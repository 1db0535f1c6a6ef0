package streams

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelmetric "go.opentelemetry.io/otel/metric"
)

var (
	metricsOnce     sync.Once
	publishedEvents otelmetric.Int64Counter
	consumedEvents  otelmetric.Int64Counter
	droppedEvents   otelmetric.Int64Counter
)

func initMetrics() {
	meter := otel.Meter("salesagent/queue/streams")
	// Instrument errors leave the counter nil; recording is skipped then.
	publishedEvents, _ = meter.Int64Counter(
		"salesagent_stream_published_total",
		otelmetric.WithDescription("Events appended to Redis streams"),
	)
	consumedEvents, _ = meter.Int64Counter(
		"salesagent_stream_consumed_total",
		otelmetric.WithDescription("Events delivered to consumers, including reclaimed entries"),
	)
	droppedEvents, _ = meter.Int64Counter(
		"salesagent_stream_dropped_total",
		otelmetric.WithDescription("Stream entries acknowledged without delivery because they failed to decode or validate"),
	)
}

func count(ctx context.Context, c *otelmetric.Int64Counter, stream, eventType string) {
	metricsOnce.Do(initMetrics)
	if *c == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	(*c).Add(ctx, 1, otelmetric.WithAttributes(
		attribute.String("stream", stream),
		attribute.String("event_type", eventType),
	))
}
