package inmemory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	model "github.com/tigerroll/offshore/pkg/batch/core/domain/model"
	repository "github.com/tigerroll/offshore/pkg/batch/core/domain/repository"
)

func TestJobExecutionLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := NewInMemoryJobRepository()
	defer repo.Close()

	je := model.NewJobExecution(42, "remote-chunk-job")
	require.NoError(t, repo.SaveJobExecution(ctx, je))
	assert.Error(t, repo.SaveJobExecution(ctx, je), "duplicate save must fail")

	se := model.NewStepExecution(model.NewID(), je, "remote-step")
	require.NoError(t, repo.SaveStepExecution(ctx, se))

	found, err := repo.FindJobExecutionByID(ctx, je.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(42), found.JobID)
	require.Len(t, found.StepExecutions, 1)
	assert.Equal(t, "remote-step", found.StepExecutions[0].StepName)

	je.MarkAsStarted()
	je.MarkAsFailed(assert.AnError)
	require.NoError(t, repo.UpdateJobExecution(ctx, je))

	_, err = repo.FindJobExecutionByID(ctx, "no-such-id")
	assert.ErrorIs(t, err, repository.ErrJobExecutionNotFound)
}

func TestFindLatestRestartableJobExecution(t *testing.T) {
	ctx := context.Background()
	repo := NewInMemoryJobRepository()

	older := model.NewJobExecution(42, "remote-chunk-job")
	older.MarkAsStarted()
	older.MarkAsFailed(assert.AnError)
	require.NoError(t, repo.SaveJobExecution(ctx, older))

	newer := model.NewJobExecution(42, "remote-chunk-job")
	newer.CreateTime = older.CreateTime.Add(time.Minute)
	newer.MarkAsStarted()
	newer.MarkAsStopped()
	require.NoError(t, repo.SaveJobExecution(ctx, newer))

	completed := model.NewJobExecution(42, "remote-chunk-job")
	completed.CreateTime = older.CreateTime.Add(2 * time.Minute)
	completed.MarkAsStarted()
	completed.MarkAsCompleted()
	require.NoError(t, repo.SaveJobExecution(ctx, completed))

	otherJob := model.NewJobExecution(7, "another-job")
	otherJob.MarkAsStarted()
	otherJob.MarkAsFailed(assert.AnError)
	require.NoError(t, repo.SaveJobExecution(ctx, otherJob))

	found, err := repo.FindLatestRestartableJobExecution(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, newer.ID, found.ID)

	_, err = repo.FindLatestRestartableJobExecution(ctx, 999)
	assert.ErrorIs(t, err, repository.ErrJobExecutionNotFound)
}

func TestStepExecutionFindReturnsCopy(t *testing.T) {
	ctx := context.Background()
	repo := NewInMemoryJobRepository()

	je := model.NewJobExecution(42, "remote-chunk-job")
	require.NoError(t, repo.SaveJobExecution(ctx, je))
	se := model.NewStepExecution(model.NewID(), je, "remote-step")
	se.ExecutionContext.Put("EXPECTED", int64(3))
	require.NoError(t, repo.SaveStepExecution(ctx, se))

	found, err := repo.FindStepExecutionByID(ctx, se.ID)
	require.NoError(t, err)

	// Mutating the returned copy must not leak into the stored state.
	found.ExecutionContext.Put("EXPECTED", int64(99))
	again, err := repo.FindStepExecutionByID(ctx, se.ID)
	require.NoError(t, err)
	expected, ok := again.ExecutionContext.GetInt64("EXPECTED")
	require.True(t, ok)
	assert.Equal(t, int64(3), expected)
}

func TestCheckpointDataRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := NewInMemoryJobRepository()

	ec := model.NewExecutionContext()
	ec.Put("EXPECTED", int64(5))
	ec.Put("ACTUAL", int64(2))

	data := &model.CheckpointData{
		StepExecutionID:  "step-1",
		ExecutionContext: ec,
		LastUpdated:      time.Now(),
	}
	require.NoError(t, repo.SaveCheckpointData(ctx, data))

	found, err := repo.FindCheckpointData(ctx, "step-1")
	require.NoError(t, err)
	expected, ok := found.ExecutionContext.GetInt64("EXPECTED")
	require.True(t, ok)
	assert.Equal(t, int64(5), expected)

	// A second save overwrites the first.
	ec2 := model.NewExecutionContext()
	ec2.Put("EXPECTED", int64(6))
	ec2.Put("ACTUAL", int64(6))
	require.NoError(t, repo.SaveCheckpointData(ctx, &model.CheckpointData{
		StepExecutionID:  "step-1",
		ExecutionContext: ec2,
		LastUpdated:      time.Now(),
	}))

	found, err = repo.FindCheckpointData(ctx, "step-1")
	require.NoError(t, err)
	actual, ok := found.ExecutionContext.GetInt64("ACTUAL")
	require.True(t, ok)
	assert.Equal(t, int64(6), actual)

	_, err = repo.FindCheckpointData(ctx, "missing")
	assert.ErrorIs(t, err, repository.ErrCheckpointDataNotFound)
}
