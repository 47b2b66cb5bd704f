package metrics

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	model "github.com/tigerroll/offshore/pkg/batch/core/domain/model"
	metrics "github.com/tigerroll/offshore/pkg/batch/core/metrics"
)

// instrumentationName identifies this library to the tracing backend.
const instrumentationName = "github.com/tigerroll/offshore/pkg/batch"

// OTelTracer is an OpenTelemetry implementation of the metrics.Tracer
// interface. Spans are created through the globally registered tracer
// provider, so the application decides at startup whether and where traces
// are exported.
type OTelTracer struct {
	tracer trace.Tracer
}

var _ metrics.Tracer = (*OTelTracer)(nil)

// NewOTelTracer creates a new OTelTracer backed by the global tracer provider.
func NewOTelTracer() metrics.Tracer {
	return &OTelTracer{tracer: otel.Tracer(instrumentationName)}
}

// StartJobSpan starts a Span for a JobExecution.
func (t *OTelTracer) StartJobSpan(ctx context.Context, execution *model.JobExecution) (context.Context, func()) {
	spanName := fmt.Sprintf("job %s", execution.JobName)
	ctx, span := t.tracer.Start(ctx, spanName, trace.WithAttributes(
		attribute.String("batch.job.name", execution.JobName),
		attribute.String("batch.job.execution_id", execution.ID),
		attribute.Int64("batch.job.id", execution.JobID),
	))
	return ctx, func() {
		span.SetAttributes(
			attribute.String("batch.job.status", execution.Status.String()),
			attribute.String("batch.job.exit_status", execution.ExitStatus.String()),
		)
		if execution.Status == model.BatchStatusFailed {
			span.SetStatus(codes.Error, execution.ExitStatus.String())
		}
		span.End()
	}
}

// StartStepSpan starts a Span for a StepExecution.
func (t *OTelTracer) StartStepSpan(ctx context.Context, execution *model.StepExecution) (context.Context, func()) {
	spanName := fmt.Sprintf("step %s", execution.StepName)
	ctx, span := t.tracer.Start(ctx, spanName, trace.WithAttributes(
		attribute.String("batch.step.name", execution.StepName),
		attribute.String("batch.step.execution_id", execution.ID),
	))
	return ctx, func() {
		span.SetAttributes(
			attribute.String("batch.step.status", execution.Status.String()),
			attribute.String("batch.step.exit_status", execution.ExitStatus.String()),
			attribute.Int("batch.step.write_count", execution.WriteCount),
			attribute.Int("batch.step.commit_count", execution.CommitCount),
			attribute.Int("batch.step.rollback_count", execution.RollbackCount),
		)
		if execution.Status == model.BatchStatusFailed {
			span.SetStatus(codes.Error, execution.ExitStatus.String())
		}
		span.End()
	}
}

// RecordError records an error in the current Span.
func (t *OTelTracer) RecordError(ctx context.Context, module string, err error) {
	if err == nil {
		return
	}
	span := trace.SpanFromContext(ctx)
	span.RecordError(err, trace.WithAttributes(attribute.String("batch.module", module)))
}

// RecordEvent records an event in the current Span.
func (t *OTelTracer) RecordEvent(ctx context.Context, name string, attributes map[string]interface{}) {
	span := trace.SpanFromContext(ctx)
	attrs := make([]attribute.KeyValue, 0, len(attributes))
	for k, v := range attributes {
		switch val := v.(type) {
		case string:
			attrs = append(attrs, attribute.String(k, val))
		case int:
			attrs = append(attrs, attribute.Int(k, val))
		case int64:
			attrs = append(attrs, attribute.Int64(k, val))
		case float64:
			attrs = append(attrs, attribute.Float64(k, val))
		case bool:
			attrs = append(attrs, attribute.Bool(k, val))
		default:
			attrs = append(attrs, attribute.String(k, fmt.Sprintf("%v", val)))
		}
	}
	span.AddEvent(name, trace.WithAttributes(attrs...))
}
