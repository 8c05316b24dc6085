package rules

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"

	"github.com/liamcoop/cartrules/evaluator"
	"github.com/liamcoop/cartrules/internal/logger"
)

const instrumentationName = "github.com/liamcoop/cartrules/rules"

var tracer = otel.Tracer(instrumentationName)

// engineMetrics are the OpenTelemetry instruments of the discount engine
type engineMetrics struct {
	evaluations metric.Int64Counter
	parseErrors metric.Int64Counter
	latency     metric.Float64Histogram
}

var (
	defaultMetrics     *engineMetrics
	defaultMetricsOnce sync.Once
)

// getMetrics lazily creates the instruments on the global meter provider.
// Instrument errors fall back to no-op instruments.
func getMetrics() *engineMetrics {
	defaultMetricsOnce.Do(func() {
		m, err := newEngineMetrics(otel.Meter(instrumentationName))
		if err != nil {
			logger.Warn("failed to create engine metrics, using no-op instruments", "error", err)
			m, _ = newEngineMetrics(noop.NewMeterProvider().Meter(instrumentationName))
		}
		defaultMetrics = m
	})
	return defaultMetrics
}

func newEngineMetrics(meter metric.Meter) (*engineMetrics, error) {
	evaluations, err := meter.Int64Counter("cartrules.discount.evaluations",
		metric.WithDescription("Number of discount predicate evaluations"),
	)
	if err != nil {
		return nil, err
	}

	parseErrors, err := meter.Int64Counter("cartrules.discount.parse_errors",
		metric.WithDescription("Number of discount predicates that failed to parse"),
	)
	if err != nil {
		return nil, err
	}

	latency, err := meter.Float64Histogram("cartrules.evaluation.latency_ms",
		metric.WithDescription("Latency of evaluating a cart against a set of discounts"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return &engineMetrics{evaluations: evaluations, parseErrors: parseErrors, latency: latency}, nil
}

func (m *engineMetrics) recordEvaluation(ctx context.Context, projectKey string, status evaluator.Status) {
	m.evaluations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("project.key", projectKey),
		attribute.String("qualification.status", string(status)),
	))
}

func (m *engineMetrics) recordParseError(ctx context.Context, projectKey string) {
	m.parseErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("project.key", projectKey)))
}

func (m *engineMetrics) recordLatency(ctx context.Context, projectKey string, d time.Duration, discounts int) {
	m.latency.Record(ctx, float64(d.Microseconds())/1000.0, metric.WithAttributes(
		attribute.String("project.key", projectKey),
		attribute.Int("discount.count", discounts),
	))
}

// startSpan starts an engine span tagged with the project key
func startSpan(ctx context.Context, name, projectKey string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append(attrs, attribute.String("project.key", projectKey))
	return tracer.Start(ctx, name,
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// endSpan completes span, recording err when it is non-nil
func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
