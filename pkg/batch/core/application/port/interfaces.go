// Package port defines the application-level interfaces of the Offshore
// framework. Components in the engine and infrastructure layers depend on
// these interfaces rather than on each other.
package port

import (
	"context"

	model "github.com/tigerroll/offshore/pkg/batch/core/domain/model"
)

// StepOutcome is the contribution of a listener to the step's final exit status.
// A listener that has nothing to contribute returns a NoOp outcome.
type StepOutcome struct {
	// Status is the exit status contributed by the listener.
	// ExitStatusNoOp indicates no contribution.
	Status model.ExitStatus
	// Description is a human-readable explanation attached to the outcome.
	Description string
}

// NoOpOutcome returns a StepOutcome that contributes nothing to the step's
// exit status.
func NoOpOutcome() StepOutcome {
	return StepOutcome{Status: model.ExitStatusNoOp}
}

// StepExecutionListener is an interface for handling step execution events.
type StepExecutionListener interface {
	// BeforeStep is called just before a step execution starts.
	BeforeStep(ctx context.Context, stepExecution *model.StepExecution)
	// AfterStep is called after a step execution completes (regardless of success or failure).
	// The returned outcome may override the step's exit status; return a NoOp
	// outcome to leave it unchanged.
	AfterStep(ctx context.Context, stepExecution *model.StepExecution) StepOutcome
}

// ChunkDispatchListener is an interface for observing chunk dispatch events on
// the coordinating side of remote chunking.
type ChunkDispatchListener interface {
	// BeforeChunkDispatch is called just before a chunk request is sent.
	BeforeChunkDispatch(ctx context.Context, stepExecution *model.StepExecution, itemCount int)
	// AfterChunkDispatch is called after a chunk request has been sent.
	AfterChunkDispatch(ctx context.Context, stepExecution *model.StepExecution, sequence int64)
}

// JobExecutionListener is an interface for handling job execution events.
type JobExecutionListener interface {
	// BeforeJob is called just before a job execution starts.
	BeforeJob(ctx context.Context, jobExecution *model.JobExecution)
	// AfterJob is called after a job execution completes (regardless of success or failure).
	AfterJob(ctx context.Context, jobExecution *model.JobExecution)
}

// ItemStream is an interface for components that hold state across a step
// execution and participate in checkpointing. Open restores state from the
// execution context, Update snapshots state into it, and Close releases
// resources at step end.
type ItemStream interface {
	// Open restores the component's state from the given execution context.
	Open(ctx context.Context, ec model.ExecutionContext) error
	// Update stores the component's current state into the given execution context.
	Update(ctx context.Context, ec model.ExecutionContext) error
	// Close releases any resources held by the component.
	Close(ctx context.Context) error
}

// Define context key for StepExecution propagation during chunk processing.
type contextKey string

const StepExecutionKey contextKey = "stepExecution"

// GetContextWithStepExecution stores a StepExecution in the Context.
func GetContextWithStepExecution(ctx context.Context, se *model.StepExecution) context.Context {
	return context.WithValue(ctx, StepExecutionKey, se)
}

// GetStepExecutionFromContext retrieves a StepExecution from the Context. Returns nil if not found.
func GetStepExecutionFromContext(ctx context.Context) *model.StepExecution {
	if se, ok := ctx.Value(StepExecutionKey).(*model.StepExecution); ok {
		return se
	}
	return nil
}
