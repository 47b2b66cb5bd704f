package repository

import (
	"context"
	"errors"

	model "github.com/tigerroll/offshore/pkg/batch/core/domain/model"
)

// CheckpointDataRepository defines operations for persisting and retrieving checkpoint data.
// The dispatcher stores its progress counters here between transactions so a
// restarted step can resume from the last committed snapshot.
type CheckpointDataRepository interface {
	// SaveCheckpointData persists or updates the ExecutionContext associated with the specified StepExecutionID.
	SaveCheckpointData(ctx context.Context, data *model.CheckpointData) error

	// FindCheckpointData retrieves the ExecutionContext associated with the specified StepExecutionID.
	FindCheckpointData(ctx context.Context, stepExecutionID string) (*model.CheckpointData, error)
}

// ErrCheckpointDataNotFound is returned when checkpoint data is not found.
var ErrCheckpointDataNotFound = errors.New("checkpoint data not found")

// JobRepository is the interface for persisting and managing batch execution metadata.
// It embeds multiple smaller repository interfaces to separate concerns.
type JobRepository interface {
	JobExecution             // Embeds the JobExecution interface (definition in job_execution.go)
	StepExecution            // Embeds the StepExecution interface (definition in step_execution.go)
	CheckpointDataRepository // Embeds checkpoint data operations

	// Close releases resources (such as database connections) used by the repository.
	Close() error
}
