package test

import (
	"github.com/google/uuid"

	model "github.com/tigerroll/offshore/pkg/batch/core/domain/model"
)

// NewTestJobExecution creates a JobExecution for testing.
func NewTestJobExecution(jobID int64, jobName string) *model.JobExecution {
	return model.NewJobExecution(jobID, jobName)
}

// NewTestStepExecution creates a StepExecution for testing.
func NewTestStepExecution(jobExecution *model.JobExecution, stepName string) *model.StepExecution {
	return model.NewStepExecution(uuid.New().String(), jobExecution, stepName)
}

// NewStartedStepExecution creates a started StepExecution for testing.
func NewStartedStepExecution(jobID int64, jobName, stepName string) *model.StepExecution {
	je := NewTestJobExecution(jobID, jobName)
	je.MarkAsStarted()
	se := NewTestStepExecution(je, stepName)
	se.MarkAsStarted()
	return se
}

// NewTestExecutionContext creates an ExecutionContext for testing.
func NewTestExecutionContext(data map[string]interface{}) model.ExecutionContext {
	ec := model.NewExecutionContext()
	for k, v := range data {
		ec.Put(k, v)
	}
	return ec
}

// NewProgressExecutionContext creates an ExecutionContext holding a progress
// counter pair, as checkpointed by the chunk dispatcher.
func NewProgressExecutionContext(expected, actual int64) model.ExecutionContext {
	ec := model.NewExecutionContext()
	ec.Put("EXPECTED", expected)
	ec.Put("ACTUAL", actual)
	return ec
}
