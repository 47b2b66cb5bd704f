package gorm_test

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	model "github.com/tigerroll/offshore/pkg/batch/core/domain/model"
	repository "github.com/tigerroll/offshore/pkg/batch/core/domain/repository"
	gormrepo "github.com/tigerroll/offshore/pkg/batch/infrastructure/repository/gorm"
	exception "github.com/tigerroll/offshore/pkg/batch/support/util/exception"
	batchtest "github.com/tigerroll/offshore/pkg/batch/test"
)

// setupGormMock sets up the GORM mock environment for repository tests.
func setupGormMock(t *testing.T) (sqlmock.Sqlmock, *gormrepo.GormJobRepository) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)

	t.Cleanup(func() {
		mock.ExpectClose()
		sqlDB.Close()
	})

	return mock, gormrepo.NewGormJobRepository(gormDB)
}

func TestSaveJobExecution(t *testing.T) {
	mock, repo := setupGormMock(t)
	ctx := context.Background()

	je := batchtest.NewTestJobExecution(42, "remote-chunk-job")
	mock.ExpectExec("INSERT INTO .batch_job_execution.").
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, repo.SaveJobExecution(ctx, je))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateJobExecutionIncrementsVersion(t *testing.T) {
	mock, repo := setupGormMock(t)
	ctx := context.Background()

	je := batchtest.NewTestJobExecution(42, "remote-chunk-job")
	je.MarkAsStarted()
	je.Version = 0

	mock.ExpectExec("UPDATE .batch_job_execution. SET").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdateJobExecution(ctx, je))
	assert.Equal(t, 1, je.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateJobExecutionOptimisticLocking(t *testing.T) {
	mock, repo := setupGormMock(t)
	ctx := context.Background()

	je := batchtest.NewTestJobExecution(42, "remote-chunk-job")
	je.MarkAsStarted()
	je.Version = 3

	// A concurrent writer bumped the version: zero rows match the predicate.
	mock.ExpectExec("UPDATE .batch_job_execution. SET").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateJobExecution(ctx, je)
	require.Error(t, err)
	assert.True(t, exception.IsOptimisticLockingFailure(err))
	assert.Equal(t, 3, je.Version, "in-memory version must not advance on a lost update")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindJobExecutionByIDLoadsStepExecutions(t *testing.T) {
	mock, repo := setupGormMock(t)
	ctx := context.Background()

	now := time.Now()
	jobRows := sqlmock.NewRows([]string{
		"id", "job_id", "job_name", "start_time", "status", "exit_status",
		"failures", "version", "create_time", "last_updated", "execution_context", "restart_count",
	}).AddRow(
		"je-1", int64(42), "remote-chunk-job", now, "STARTED", "UNKNOWN",
		"[]", 1, now, now, "{}", 0,
	)
	mock.ExpectQuery("SELECT \\* FROM .batch_job_execution.").WillReturnRows(jobRows)

	stepRows := sqlmock.NewRows([]string{
		"id", "step_name", "job_execution_id", "start_time", "status", "exit_status",
		"failures", "execution_context", "last_updated", "version",
	}).AddRow(
		"se-1", "remote-step", "je-1", now, "COMPLETED", "COMPLETED",
		"[]", `{"EXPECTED":3,"ACTUAL":3}`, now, 2,
	)
	mock.ExpectQuery("SELECT \\* FROM .batch_step_execution.").WillReturnRows(stepRows)

	je, err := repo.FindJobExecutionByID(ctx, "je-1")
	require.NoError(t, err)
	assert.Equal(t, int64(42), je.JobID)
	require.Len(t, je.StepExecutions, 1)

	se := je.StepExecutions[0]
	assert.Equal(t, "remote-step", se.StepName)
	assert.Same(t, je, se.JobExecution)
	expected, ok := se.ExecutionContext.GetInt64("EXPECTED")
	require.True(t, ok)
	assert.Equal(t, int64(3), expected)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindJobExecutionByIDNotFound(t *testing.T) {
	mock, repo := setupGormMock(t)
	ctx := context.Background()

	mock.ExpectQuery("SELECT \\* FROM .batch_job_execution.").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.FindJobExecutionByID(ctx, "missing")
	assert.ErrorIs(t, err, repository.ErrJobExecutionNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateStepExecutionOptimisticLocking(t *testing.T) {
	mock, repo := setupGormMock(t)
	ctx := context.Background()

	je := batchtest.NewTestJobExecution(42, "remote-chunk-job")
	se := batchtest.NewTestStepExecution(je, "remote-step")
	se.MarkAsStarted()
	se.Version = 1

	mock.ExpectExec("UPDATE .batch_step_execution. SET").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateStepExecution(ctx, se)
	require.Error(t, err)
	assert.True(t, exception.IsOptimisticLockingFailure(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckpointDataPersistence(t *testing.T) {
	mock, repo := setupGormMock(t)
	ctx := context.Background()

	ec := batchtest.NewProgressExecutionContext(5, 2)

	mock.ExpectExec("INSERT INTO .batch_checkpoint_data.").
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, repo.SaveCheckpointData(ctx, &model.CheckpointData{
		StepExecutionID:  "se-1",
		ExecutionContext: ec,
		LastUpdated:      time.Now(),
	}))

	rows := sqlmock.NewRows([]string{"step_execution_id", "execution_context", "last_updated"}).
		AddRow("se-1", `{"EXPECTED":5,"ACTUAL":2}`, time.Now())
	mock.ExpectQuery("SELECT \\* FROM .batch_checkpoint_data.").WillReturnRows(rows)

	found, err := repo.FindCheckpointData(ctx, "se-1")
	require.NoError(t, err)
	expected, ok := found.ExecutionContext.GetInt64("EXPECTED")
	require.True(t, ok)
	assert.Equal(t, int64(5), expected)
	actual, ok := found.ExecutionContext.GetInt64("ACTUAL")
	require.True(t, ok)
	assert.Equal(t, int64(2), actual)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindCheckpointDataNotFound(t *testing.T) {
	mock, repo := setupGormMock(t)
	ctx := context.Background()

	mock.ExpectQuery("SELECT \\* FROM .batch_checkpoint_data.").
		WillReturnRows(sqlmock.NewRows([]string{"step_execution_id"}))

	_, err := repo.FindCheckpointData(ctx, "missing")
	assert.ErrorIs(t, err, repository.ErrCheckpointDataNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
