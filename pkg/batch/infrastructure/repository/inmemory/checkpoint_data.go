package inmemory

import (
	"context"

	model "github.com/tigerroll/offshore/pkg/batch/core/domain/model"
	repository "github.com/tigerroll/offshore/pkg/batch/core/domain/repository"
)

// SaveCheckpointData persists checkpoint data.
// Due to the in-memory nature, it overwrites any existing data for the same key.
func (r *InMemoryJobRepository) SaveCheckpointData(ctx context.Context, data *model.CheckpointData) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Deep copy to prevent external modification of internal state.
	cloned := *data
	cloned.ExecutionContext = data.ExecutionContext.Copy()
	r.checkpointData[data.StepExecutionID] = &cloned
	return nil
}

// FindCheckpointData finds checkpoint data based on the given StepExecutionID.
func (r *InMemoryJobRepository) FindCheckpointData(ctx context.Context, stepExecutionID string) (*model.CheckpointData, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	data, ok := r.checkpointData[stepExecutionID]
	if !ok {
		return nil, repository.ErrCheckpointDataNotFound
	}
	// Deep copy to prevent external modification of internal state.
	cloned := *data
	cloned.ExecutionContext = data.ExecutionContext.Copy()
	return &cloned, nil
}
