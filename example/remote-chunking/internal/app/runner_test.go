package app

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	config "github.com/tigerroll/offshore/pkg/batch/core/config"
	model "github.com/tigerroll/offshore/pkg/batch/core/domain/model"
	metrics "github.com/tigerroll/offshore/pkg/batch/core/metrics"
	chunk "github.com/tigerroll/offshore/pkg/batch/engine/chunk"
	memory "github.com/tigerroll/offshore/pkg/batch/infrastructure/channel/memory"
	inmemory "github.com/tigerroll/offshore/pkg/batch/infrastructure/repository/inmemory"
	batchtest "github.com/tigerroll/offshore/pkg/batch/test"
)

// newTestRunner assembles a Runner backed by the in-memory gateway, a live
// worker, the in-memory repository, and a mocked transaction manager.
func newTestRunner(t *testing.T, handler chunk.ChunkHandler[string]) (*Runner, *batchtest.MockTxManager, *inmemory.InMemoryJobRepository) {
	t.Helper()

	gateway := memory.NewGateway[string](16)
	t.Cleanup(gateway.Close)

	worker := chunk.NewWorker[string](gateway, handler, &config.WorkerConfig{Concurrency: 1})
	worker.Start(context.Background())
	t.Cleanup(worker.Stop)

	writer := chunk.NewWriter[string](StepName, gateway, &config.RemoteChunkConfig{
		ThrottleLimit:    2,
		DrainMaxAttempts: 40,
		PollIntervalMs:   1,
	}, metrics.NewNoOpMetricRecorder(), metrics.NewNoOpTracer())

	repo := inmemory.NewInMemoryJobRepository()
	t.Cleanup(func() { _ = repo.Close() })

	txManager := new(batchtest.MockTxManager)
	cfg := config.NewConfig()
	cfg.Offshore.Batch.JobName = "remote-chunking-example"
	cfg.Offshore.Batch.ChunkSize = 5

	runner := NewRunner(RunnerParams{Writer: writer, TxManager: txManager, Repo: repo, Cfg: cfg})
	return runner, txManager, repo
}

func TestRunnerCompletesJob(t *testing.T) {
	ctx := context.Background()

	handled := make(chan string, 32)
	handler := chunk.ChunkHandlerFunc[string](func(ctx context.Context, request chunk.ChunkRequest[string]) error {
		for _, item := range request.Items {
			handled <- item
		}
		return nil
	})
	runner, txManager, repo := newTestRunner(t, handler)

	mockTx := new(batchtest.MockTx)
	mockTx.On("ID").Return("tx-1")
	txManager.On("Begin", mock.Anything, mock.Anything).Return(mockTx, nil)
	txManager.On("Commit", mockTx).Return(nil)

	jobExecution, err := runner.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.BatchStatusCompleted, jobExecution.Status)
	assert.Equal(t, model.ExitStatusCompleted, jobExecution.ExitStatus)

	// 25 items in chunks of 5, one commit per chunk.
	txManager.AssertNumberOfCalls(t, "Commit", 5)
	txManager.AssertNotCalled(t, "Rollback", mock.Anything)
	assert.Len(t, handled, 25)

	found, err := repo.FindJobExecutionByID(ctx, jobExecution.ID)
	require.NoError(t, err)
	require.Len(t, found.StepExecutions, 1)
	step := found.StepExecutions[0]
	assert.Equal(t, model.BatchStatusCompleted, step.Status)
	assert.Equal(t, 25, step.WriteCount)
	assert.Equal(t, 5, step.CommitCount)

	// The final checkpoint reflects a fully drained step.
	checkpoint, err := repo.FindCheckpointData(ctx, step.ID)
	require.NoError(t, err)
	expected, ok := checkpoint.ExecutionContext.GetInt64("EXPECTED")
	require.True(t, ok)
	actual, ok := checkpoint.ExecutionContext.GetInt64("ACTUAL")
	require.True(t, ok)
	assert.Equal(t, expected, actual)
}

func TestRunnerFailsJobWhenWorkerReportsFailure(t *testing.T) {
	ctx := context.Background()

	handler := chunk.ChunkHandlerFunc[string](func(ctx context.Context, request chunk.ChunkRequest[string]) error {
		return errors.New("downstream write rejected")
	})
	runner, txManager, _ := newTestRunner(t, handler)

	mockTx := new(batchtest.MockTx)
	mockTx.On("ID").Return("tx-1")
	txManager.On("Begin", mock.Anything, mock.Anything).Return(mockTx, nil)
	txManager.On("Commit", mockTx).Return(nil)
	txManager.On("Rollback", mockTx).Return(nil)

	jobExecution, err := runner.Run(ctx)
	require.Error(t, err)
	assert.Equal(t, model.BatchStatusFailed, jobExecution.Status)
	assert.Equal(t, model.ExitStatusFailed, jobExecution.ExitStatus)
}
