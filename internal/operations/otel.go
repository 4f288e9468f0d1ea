package operations

import (
	"context"
	"fmt"
	"time"

	"drtbatch/internal/infrastructure"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// TracerName is the instrumentation scope of pipeline spans
const TracerName = "drtbatch.operation"

// OperationTracer provides OpenTelemetry instrumentation for pipeline runs.
// A zero-configured tracer is a no-op.
type OperationTracer struct {
	tracer  trace.Tracer
	metrics *infrastructure.PipelineMetrics
}

// NewOperationTracer creates a tracer from the initialized providers.
// A nil providers value yields a no-op tracer.
func NewOperationTracer(providers *infrastructure.OTelProviders) (*OperationTracer, error) {
	if providers == nil {
		return NoopOperationTracer(), nil
	}

	metrics, err := infrastructure.CreatePipelineMetrics(providers.Meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create pipeline metrics: %w", err)
	}

	tracer := providers.Tracer
	if providers.TracerProvider != nil {
		tracer = providers.TracerProvider.Tracer(TracerName)
	}
	return &OperationTracer{tracer: tracer, metrics: metrics}, nil
}

// NoopOperationTracer returns a tracer that records nothing
func NoopOperationTracer() *OperationTracer {
	return &OperationTracer{tracer: noop.NewTracerProvider().Tracer(TracerName)}
}

// Metrics returns the pipeline instruments, nil for a no-op tracer
func (pt *OperationTracer) Metrics() *infrastructure.PipelineMetrics {
	if pt == nil {
		return nil
	}
	return pt.metrics
}

// TraceOperationExecution starts the span of a whole run
func (pt *OperationTracer) TraceOperationExecution(ctx context.Context, operationID, step string) (context.Context, trace.Span) {
	return pt.tracer.Start(ctx, "operation.execute",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("operation.id", operationID),
			attribute.String("operation.step", step),
		),
	)
}

// TraceStageExecution starts the span of one step
func (pt *OperationTracer) TraceStageExecution(ctx context.Context, operationID, stageID string) (context.Context, trace.Span) {
	return pt.tracer.Start(ctx, fmt.Sprintf("operation.step.%s", stageID),
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("operation.id", operationID),
			attribute.String("step.id", stageID),
		),
	)
}

// RecordOperationCompletion ends the bookkeeping of a run
func (pt *OperationTracer) RecordOperationCompletion(ctx context.Context, span trace.Span, duration time.Duration, err error) {
	span.SetAttributes(attribute.Float64("operation.duration_seconds", duration.Seconds()))
	infrastructure.RecordOperationMetrics(ctx, pt.metrics, duration, err == nil)

	if err != nil {
		infrastructure.RecordError(ctx, err)
		return
	}
	span.SetStatus(codes.Ok, "operation completed")
}

// RecordStageCompletion records the outcome of one step with its file counts
func (pt *OperationTracer) RecordStageCompletion(ctx context.Context, span trace.Span, stageID string, duration time.Duration, counts FileCounts, err error) {
	span.SetAttributes(
		attribute.Float64("step.duration_seconds", duration.Seconds()),
		attribute.Int("step.files_found", counts.Found),
		attribute.Int("step.files_written", counts.Written),
		attribute.Int("step.files_rejected", counts.Rejected),
		attribute.Int("step.files_failed", counts.Failed),
	)
	infrastructure.RecordStepMetrics(ctx, pt.metrics, stageID, duration, err == nil)

	infrastructure.AddSpanEvent(ctx, "step.completed", map[string]interface{}{
		"step_id":  stageID,
		"success":  err == nil,
		"duration": duration.Seconds(),
	})

	if err != nil {
		infrastructure.RecordError(ctx, err)
		return
	}
	span.SetStatus(codes.Ok, "step completed")
}

// RecordFile counts one file outcome of a step
func (pt *OperationTracer) RecordFile(ctx context.Context, stageID, outcome string) {
	infrastructure.RecordFileOutcome(ctx, pt.Metrics(), stageID, outcome, 1)
}

// RecordInversion records one backend call
func (pt *OperationTracer) RecordInversion(ctx context.Context, backend string, duration time.Duration, success bool) {
	infrastructure.RecordInversion(ctx, pt.Metrics(), backend, duration, success)
}
