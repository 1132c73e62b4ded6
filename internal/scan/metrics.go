package scan

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/example/ddv-scanner/internal/domain/availability"
)

const instrumentationName = "github.com/example/ddv-scanner/internal/scan"

var (
	tracer = otel.Tracer(instrumentationName)
	meter  = otel.Meter(instrumentationName)

	probeAttempts, _ = meter.Int64Counter("ddvscan.probe.attempts",
		metric.WithDescription("ticket.list requests issued by probes, by attempt outcome"))
	probeOutcomes, _ = meter.Int64Counter("ddvscan.probe.outcomes",
		metric.WithDescription("finished probes, by final outcome"))
	scanDuration, _ = meter.Float64Histogram("ddvscan.scan.duration",
		metric.WithUnit("s"),
		metric.WithDescription("wall time of a whole scan"))
)

func outcomeAttr(k availability.OutcomeKind) metric.MeasurementOption {
	return metric.WithAttributes(attribute.String("outcome", k.String()))
}

func recordAttempt(ctx context.Context, k availability.OutcomeKind) {
	probeAttempts.Add(ctx, 1, outcomeAttr(k))
}

func recordOutcome(ctx context.Context, k availability.OutcomeKind) {
	probeOutcomes.Add(ctx, 1, outcomeAttr(k))
}
