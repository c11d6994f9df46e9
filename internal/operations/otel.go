package operations

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"supplypulse/pkg/contracts/domain"
)

const tracerName = "supplypulse.operations"

// runTracer wraps span creation for runs and stages. Metric recording
// stays with the infrastructure helpers; this type only shapes traces.
type runTracer struct {
	tracer trace.Tracer
}

func newRunTracer() runTracer {
	return runTracer{tracer: otel.Tracer(tracerName)}
}

func (rt runTracer) startRun(ctx context.Context, runID string) (context.Context, trace.Span) {
	return rt.tracer.Start(ctx, "run.execute",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("run.id", runID),
		),
	)
}

func (rt runTracer) startStage(ctx context.Context, runID string, stageID domain.StageID) (context.Context, trace.Span) {
	return rt.tracer.Start(ctx, "run.stage."+string(stageID),
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("run.id", runID),
			attribute.String("stage.id", string(stageID)),
		),
	)
}

// endSpan closes a span, recording err when the work failed.
func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
