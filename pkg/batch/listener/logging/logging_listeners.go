// Package logging provides listeners that log the lifecycle of jobs, steps,
// and chunk dispatches.
package logging

import (
	"context"

	port "github.com/tigerroll/offshore/pkg/batch/core/application/port"
	model "github.com/tigerroll/offshore/pkg/batch/core/domain/model"
	logger "github.com/tigerroll/offshore/pkg/batch/support/util/logger"
)

// --- Job Execution Listener ---

type LoggingJobListener struct{}

func NewLoggingJobListener() port.JobExecutionListener {
	return &LoggingJobListener{}
}

func (l *LoggingJobListener) BeforeJob(ctx context.Context, jobExecution *model.JobExecution) {
	logger.Infof("JobExecutionListener: BeforeJob - JobName: %s, ID: %s, JobID: %d", jobExecution.JobName, jobExecution.ID, jobExecution.JobID)
}

func (l *LoggingJobListener) AfterJob(ctx context.Context, jobExecution *model.JobExecution) {
	logger.Infof("JobExecutionListener: AfterJob - JobName: %s, Status: %s, ExitStatus: %s", jobExecution.JobName, jobExecution.Status, jobExecution.ExitStatus)
}

var _ port.JobExecutionListener = (*LoggingJobListener)(nil)

// --- Step Execution Listener ---

type LoggingStepListener struct{}

func NewLoggingStepListener() port.StepExecutionListener {
	return &LoggingStepListener{}
}

func (l *LoggingStepListener) BeforeStep(ctx context.Context, stepExecution *model.StepExecution) {
	logger.Infof("StepExecutionListener: BeforeStep - StepName: %s, ID: %s", stepExecution.StepName, stepExecution.ID)
}

func (l *LoggingStepListener) AfterStep(ctx context.Context, stepExecution *model.StepExecution) port.StepOutcome {
	logger.Infof("StepExecutionListener: AfterStep - StepName: %s, Status: %s, ExitStatus: %s", stepExecution.StepName, stepExecution.Status, stepExecution.ExitStatus)
	return port.NoOpOutcome()
}

var _ port.StepExecutionListener = (*LoggingStepListener)(nil)

// --- Chunk Dispatch Listener ---

type LoggingChunkDispatchListener struct{}

func NewLoggingChunkDispatchListener() port.ChunkDispatchListener {
	return &LoggingChunkDispatchListener{}
}

func (l *LoggingChunkDispatchListener) BeforeChunkDispatch(ctx context.Context, stepExecution *model.StepExecution, itemCount int) {
	logger.Debugf("ChunkDispatchListener: BeforeChunkDispatch - StepName: %s, Items: %d", stepExecution.StepName, itemCount)
}

func (l *LoggingChunkDispatchListener) AfterChunkDispatch(ctx context.Context, stepExecution *model.StepExecution, sequence int64) {
	logger.Debugf("ChunkDispatchListener: AfterChunkDispatch - StepName: %s, Sequence: %d", stepExecution.StepName, sequence)
}

var _ port.ChunkDispatchListener = (*LoggingChunkDispatchListener)(nil)
