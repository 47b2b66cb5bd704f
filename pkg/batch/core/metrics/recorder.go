package metrics

import (
	"context"
	"time"

	model "github.com/tigerroll/offshore/pkg/batch/core/domain/model"
)

// Span represents a single operation or unit of work in distributed tracing.
// This interface provides basic methods for managing the lifecycle of a span.
type Span interface {
	// End sets the end time of the current span and finishes the span.
	// Once a span is ended, its data is ready to be exported to the tracing system.
	End()
}

// MetricRecorder is an abstract interface for recording metrics related to
// remote chunk execution.
//
// This interface provides a standardized way to record metrics for job, step,
// dispatch, and reply events. It facilitates integration with different
// metrics backends (e.g., Prometheus, OpenTelemetry Metrics).
type MetricRecorder interface {
	// RecordJobStart records the start of a JobExecution.
	RecordJobStart(ctx context.Context, execution *model.JobExecution)

	// RecordJobEnd records the end of a JobExecution.
	RecordJobEnd(ctx context.Context, execution *model.JobExecution)

	// RecordStepStart records the start of a StepExecution.
	RecordStepStart(ctx context.Context, execution *model.StepExecution)

	// RecordStepEnd records the end of a StepExecution.
	RecordStepEnd(ctx context.Context, execution *model.StepExecution)

	// RecordChunkDispatched records the dispatch of a chunk request.
	//
	// stepName: The name of the step dispatching the chunk.
	// itemCount: The number of items in the dispatched chunk.
	RecordChunkDispatched(ctx context.Context, stepName string, itemCount int)

	// RecordReply records the receipt of a chunk reply.
	//
	// stepName: The name of the step that received the reply.
	// outcome: The reply outcome label (e.g., "CONTINUABLE", "FAILED").
	RecordReply(ctx context.Context, stepName string, outcome string)

	// RecordThrottleWait records time spent blocked on the throttle limit.
	RecordThrottleWait(ctx context.Context, stepName string, duration time.Duration)

	// RecordDrain records the completion of a drain wait at a step boundary.
	//
	// stepName: The name of the step that drained.
	// attempts: The number of poll attempts taken.
	// success: Whether all outstanding replies arrived before the attempt budget ran out.
	RecordDrain(ctx context.Context, stepName string, attempts int, success bool)

	// RecordDuration records the execution time of a specific operation.
	//
	// name: The name of the duration to record (e.g., "gateway_send_duration").
	// tags: A map of additional tags or attributes to associate with the duration.
	RecordDuration(ctx context.Context, name string, duration time.Duration, tags map[string]string)
}
