package inmemory

import (
	"context"
	"fmt"
	"sort"

	model "github.com/tigerroll/offshore/pkg/batch/core/domain/model"
	repository "github.com/tigerroll/offshore/pkg/batch/core/domain/repository"
)

// SaveJobExecution persists a new JobExecution.
// It returns an error if a JobExecution with the same ID already exists.
func (r *InMemoryJobRepository) SaveJobExecution(ctx context.Context, jobExecution *model.JobExecution) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.jobExecutions[jobExecution.ID]; exists {
		return fmt.Errorf("JobExecution with ID %s already exists", jobExecution.ID)
	}
	r.jobExecutions[jobExecution.ID] = jobExecution
	return nil
}

// UpdateJobExecution updates an existing JobExecution.
// It returns an error if the JobExecution with the given ID is not found.
func (r *InMemoryJobRepository) UpdateJobExecution(ctx context.Context, jobExecution *model.JobExecution) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.jobExecutions[jobExecution.ID]; !exists {
		return fmt.Errorf("JobExecution with ID %s not found for update", jobExecution.ID)
	}
	r.jobExecutions[jobExecution.ID] = jobExecution
	return nil
}

// FindJobExecutionByID finds a JobExecution by its ID.
// It also loads and associates all related StepExecutions with the JobExecution object.
// It returns an error if the JobExecution is not found.
func (r *InMemoryJobRepository) FindJobExecutionByID(ctx context.Context, id string) (*model.JobExecution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	jobExecution, ok := r.jobExecutions[id]
	if !ok {
		return nil, repository.ErrJobExecutionNotFound
	}
	return r.cloneWithStepExecutions(jobExecution), nil
}

// FindLatestRestartableJobExecution finds the most recent JobExecution for the
// given job ID that ended in a restartable state (FAILED or STOPPED).
func (r *InMemoryJobRepository) FindLatestRestartableJobExecution(ctx context.Context, jobID int64) (*model.JobExecution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var latestRestartable *model.JobExecution
	for _, je := range r.jobExecutions {
		if je.JobID == jobID && (je.Status == model.BatchStatusFailed || je.Status == model.BatchStatusStopped) {
			if latestRestartable == nil || je.CreateTime.After(latestRestartable.CreateTime) {
				latestRestartable = je
			}
		}
	}

	if latestRestartable == nil {
		return nil, repository.ErrJobExecutionNotFound
	}
	return r.cloneWithStepExecutions(latestRestartable), nil
}

// cloneWithStepExecutions deep copies a JobExecution and attaches its
// StepExecutions sorted by start time. Callers must hold at least a read lock.
func (r *InMemoryJobRepository) cloneWithStepExecutions(jobExecution *model.JobExecution) *model.JobExecution {
	// Deep copy to prevent external modification of internal state.
	cloned := *jobExecution
	cloned.ExecutionContext = jobExecution.ExecutionContext.Copy()
	cloned.StepExecutions = make([]*model.StepExecution, 0)

	for _, se := range r.stepExecutions {
		if se.JobExecutionID == cloned.ID {
			cloned.StepExecutions = append(cloned.StepExecutions, se)
		}
	}
	// Sort StepExecutions by StartTime for consistency.
	sort.Slice(cloned.StepExecutions, func(i, j int) bool {
		return cloned.StepExecutions[i].StartTime.Before(cloned.StepExecutions[j].StartTime)
	})

	return &cloned
}
