package app

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"
	"go.uber.org/fx"

	port "github.com/tigerroll/offshore/pkg/batch/core/application/port"
	config "github.com/tigerroll/offshore/pkg/batch/core/config"
	model "github.com/tigerroll/offshore/pkg/batch/core/domain/model"
	jobRepo "github.com/tigerroll/offshore/pkg/batch/core/domain/repository"
	tx "github.com/tigerroll/offshore/pkg/batch/core/tx"
	chunk "github.com/tigerroll/offshore/pkg/batch/engine/chunk"
	logger "github.com/tigerroll/offshore/pkg/batch/support/util/logger"
)

// StepName is the name of the single chunk-oriented step this example runs.
const StepName = "remote-step"

// Runner drives a single chunk-oriented step: it buffers items inside local
// transactions, dispatches them to the worker through the chunk writer, and
// records execution metadata through the JobRepository.
type Runner struct {
	writer        *chunk.Writer[string]
	txManager     tx.TransactionManager
	repo          jobRepo.JobRepository
	cfg           *config.Config
	jobListeners  []port.JobExecutionListener
	stepListeners []port.StepExecutionListener
}

// RunnerParams defines the dependencies for NewRunner.
type RunnerParams struct {
	fx.In

	Writer        *chunk.Writer[string]
	TxManager     tx.TransactionManager
	Repo          jobRepo.JobRepository
	Cfg           *config.Config
	JobListeners  []port.JobExecutionListener  `group:"jobListeners"`
	StepListeners []port.StepExecutionListener `group:"stepListeners"`
}

// NewRunner creates a Runner from its Fx-provided dependencies.
func NewRunner(p RunnerParams) *Runner {
	return &Runner{
		writer:        p.Writer,
		txManager:     p.TxManager,
		repo:          p.Repo,
		cfg:           p.Cfg,
		jobListeners:  p.JobListeners,
		stepListeners: p.StepListeners,
	}
}

// Run executes one job with a single remote-chunking step and returns the
// final JobExecution. Items are generated locally; each chunk is written and
// flushed inside its own transaction, with a checkpoint saved before commit.
func (r *Runner) Run(ctx context.Context) (*model.JobExecution, error) {
	jobName := r.cfg.Offshore.Batch.JobName
	jobExecution := model.NewJobExecution(time.Now().Unix(), jobName)
	if err := r.repo.SaveJobExecution(ctx, jobExecution); err != nil {
		return nil, err
	}
	jobExecution.MarkAsStarted()
	if err := r.repo.UpdateJobExecution(ctx, jobExecution); err != nil {
		return nil, err
	}
	for _, l := range r.jobListeners {
		l.BeforeJob(ctx, jobExecution)
	}

	stepExecution := model.NewStepExecution(model.NewID(), jobExecution, StepName)
	if err := r.repo.SaveStepExecution(ctx, stepExecution); err != nil {
		return nil, err
	}
	stepExecution.MarkAsStarted()
	if err := r.repo.UpdateStepExecution(ctx, stepExecution); err != nil {
		return nil, err
	}
	for _, l := range r.stepListeners {
		l.BeforeStep(ctx, stepExecution)
	}

	r.writer.BeforeStep(ctx, stepExecution)
	if err := r.writer.Open(ctx, stepExecution.ExecutionContext); err != nil {
		return r.finishFailed(ctx, jobExecution, stepExecution, err)
	}

	items := sampleItems(25)
	chunkSize := r.cfg.Offshore.Batch.ChunkSize
	if chunkSize <= 0 {
		chunkSize = 10
	}

	for start := 0; start < len(items); start += chunkSize {
		end := start + chunkSize
		if end > len(items) {
			end = len(items)
		}
		if err := r.writeChunk(ctx, stepExecution, items[start:end]); err != nil {
			return r.finishFailed(ctx, jobExecution, stepExecution, err)
		}
	}

	stepExecution.MarkAsCompleted()
	outcome := r.writer.AfterStep(ctx, stepExecution)
	for _, l := range r.stepListeners {
		if o := l.AfterStep(ctx, stepExecution); o.Status == model.ExitStatusFailed {
			outcome = o
		}
	}
	if closeErr := r.writer.Close(ctx); closeErr != nil {
		logger.Warnf("Failed to close chunk writer: %v", closeErr)
	}

	if outcome.Status == model.ExitStatusFailed {
		stepExecution.MarkAsFailed(fmt.Errorf("step '%s' failed: %s", StepName, outcome.Description))
		jobExecution.MarkAsFailed(fmt.Errorf("step '%s' failed: %s", StepName, outcome.Description))
	} else {
		jobExecution.MarkAsCompleted()
	}
	for _, l := range r.jobListeners {
		l.AfterJob(ctx, jobExecution)
	}

	if err := r.repo.UpdateStepExecution(ctx, stepExecution); err != nil {
		return jobExecution, err
	}
	if err := r.repo.UpdateJobExecution(ctx, jobExecution); err != nil {
		return jobExecution, err
	}
	return jobExecution, nil
}

// writeChunk buffers and dispatches one chunk inside its own transaction,
// saving the progress checkpoint before commit so a restart resumes from the
// last committed chunk boundary.
func (r *Runner) writeChunk(ctx context.Context, stepExecution *model.StepExecution, items []string) error {
	transaction, err := r.txManager.Begin(ctx)
	if err != nil {
		return err
	}
	if err := r.writer.Write(ctx, transaction, items...); err != nil {
		r.rollback(transaction)
		return err
	}
	if err := r.writer.Flush(ctx, transaction); err != nil {
		r.writer.Clear(transaction)
		r.rollback(transaction)
		return err
	}
	if err := r.writer.Update(ctx, stepExecution.ExecutionContext); err != nil {
		r.rollback(transaction)
		return err
	}
	checkpoint := &model.CheckpointData{
		StepExecutionID:  stepExecution.ID,
		ExecutionContext: stepExecution.ExecutionContext.Copy(),
		LastUpdated:      time.Now(),
	}
	if err := r.repo.SaveCheckpointData(ctx, checkpoint); err != nil {
		r.rollback(transaction)
		return err
	}
	if err := r.txManager.Commit(transaction); err != nil {
		return err
	}
	stepExecution.WriteCount += len(items)
	stepExecution.CommitCount++
	return nil
}

func (r *Runner) rollback(transaction tx.Tx) {
	if err := r.txManager.Rollback(transaction); err != nil {
		logger.Errorf("Failed to rollback transaction (ID: %s): %v", transaction.ID(), err)
	}
}

// finishFailed marks both executions FAILED and persists them. Persistence
// and cleanup errors are aggregated with the original cause so none of them
// is lost.
func (r *Runner) finishFailed(ctx context.Context, jobExecution *model.JobExecution, stepExecution *model.StepExecution, cause error) (*model.JobExecution, error) {
	stepExecution.MarkAsFailed(cause)
	jobExecution.MarkAsFailed(cause)
	for _, l := range r.stepListeners {
		l.AfterStep(ctx, stepExecution)
	}
	for _, l := range r.jobListeners {
		l.AfterJob(ctx, jobExecution)
	}

	multiErr := multierror.Append(nil, cause)
	if err := r.repo.UpdateStepExecution(ctx, stepExecution); err != nil {
		multiErr = multierror.Append(multiErr, fmt.Errorf("failed to persist failed StepExecution (ID: %s): %w", stepExecution.ID, err))
	}
	if err := r.repo.UpdateJobExecution(ctx, jobExecution); err != nil {
		multiErr = multierror.Append(multiErr, fmt.Errorf("failed to persist failed JobExecution (ID: %s): %w", jobExecution.ID, err))
	}
	if err := r.writer.Close(ctx); err != nil {
		multiErr = multierror.Append(multiErr, fmt.Errorf("failed to close chunk writer: %w", err))
	}
	return jobExecution, multiErr.ErrorOrNil()
}

func sampleItems(n int) []string {
	items := make([]string, 0, n)
	for i := 0; i < n; i++ {
		items = append(items, fmt.Sprintf("record-%03d", i+1))
	}
	return items
}

// Module provides the example pipeline runner.
var Module = fx.Options(
	fx.Provide(NewRunner),
)
