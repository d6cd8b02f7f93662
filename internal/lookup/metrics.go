package lookup

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

var (
	tracer = otel.Tracer("contexthelper.lookup")
	meter  = otel.Meter("contexthelper.lookup")
)

var (
	requestsTotal   metric.Int64Counter
	failuresTotal   metric.Int64Counter
	requestDuration metric.Float64Histogram

	metricsOnce sync.Once
	metricsErr  error
)

func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		requestsTotal, err = meter.Int64Counter(
			"lookup_requests_total",
			metric.WithDescription("Total lookup backend calls"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		failuresTotal, err = meter.Int64Counter(
			"lookup_failures_total",
			metric.WithDescription("Lookup backend calls that returned an error"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		requestDuration, err = meter.Float64Histogram(
			"lookup_duration_seconds",
			metric.WithDescription("Duration of lookup backend calls"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

// traced runs fn inside a span and records call metrics.
func traced[T any](ctx context.Context, backend, op string, fn func(context.Context) ([]T, error)) ([]T, error) {
	ctx, span := tracer.Start(ctx, "lookup."+op,
		trace.WithAttributes(attribute.String("lookup.backend", backend)))
	defer span.End()

	start := time.Now()
	items, err := fn(ctx)

	span.SetAttributes(attribute.Int("lookup.results", len(items)))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	if initMetrics() == nil {
		attrs := metric.WithAttributes(
			attribute.String("backend", backend),
			attribute.String("op", op),
		)
		requestsTotal.Add(ctx, 1, attrs)
		requestDuration.Record(ctx, time.Since(start).Seconds(), attrs)
		if err != nil {
			failuresTotal.Add(ctx, 1, attrs)
		}
	}
	return items, err
}
