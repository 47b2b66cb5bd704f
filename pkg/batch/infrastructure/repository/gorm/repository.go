package gorm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	gormadaptor "github.com/tigerroll/offshore/pkg/batch/adaptor/database/gorm"
	model "github.com/tigerroll/offshore/pkg/batch/core/domain/model"
	repository "github.com/tigerroll/offshore/pkg/batch/core/domain/repository"
	tx "github.com/tigerroll/offshore/pkg/batch/core/tx"
	exception "github.com/tigerroll/offshore/pkg/batch/support/util/exception"
	logger "github.com/tigerroll/offshore/pkg/batch/support/util/logger"
)

const moduleName = "gorm_repository"

// GormJobRepository is a GORM-backed implementation of repository.JobRepository.
// Updates use optimistic locking on the Version column: a lost update fails
// with OptimisticLockingFailureException instead of silently overwriting.
type GormJobRepository struct {
	db *gorm.DB
}

var _ repository.JobRepository = (*GormJobRepository)(nil)

// NewGormJobRepository creates a new GormJobRepository on the given connection.
func NewGormJobRepository(db *gorm.DB) *GormJobRepository {
	return &GormJobRepository{db: db}
}

// session returns the DB handle for the given context. When the context
// carries an active framework transaction, the operation joins it.
func (r *GormJobRepository) session(ctx context.Context) *gorm.DB {
	if t, ok := tx.FromContext(ctx); ok {
		if adapter, ok := t.(*gormadaptor.GormTxAdapter); ok {
			return adapter.DB().WithContext(ctx)
		}
		logger.Warnf("Context carries a non-GORM transaction; repository operation runs standalone.")
	}
	return r.db.WithContext(ctx)
}

// SaveJobExecution persists a new JobExecution.
func (r *GormJobRepository) SaveJobExecution(ctx context.Context, jobExecution *model.JobExecution) error {
	entity := fromDomainJobExecution(jobExecution)
	if err := r.session(ctx).Create(entity).Error; err != nil {
		return exception.NewBatchError(moduleName, "Failed to save JobExecution", err, false, true)
	}
	return nil
}

// UpdateJobExecution updates an existing JobExecution under optimistic locking.
// The caller's in-memory Version is incremented on success.
func (r *GormJobRepository) UpdateJobExecution(ctx context.Context, jobExecution *model.JobExecution) error {
	entity := fromDomainJobExecution(jobExecution)
	currentVersion := entity.Version
	entity.Version = currentVersion + 1

	result := r.session(ctx).
		Model(&JobExecutionEntity{}).
		Where("id = ? AND version = ?", entity.ID, currentVersion).
		Updates(entity)
	if result.Error != nil {
		return exception.NewBatchError(moduleName, "Failed to update JobExecution", result.Error, false, true)
	}
	if result.RowsAffected == 0 {
		return exception.NewOptimisticLockingFailureException(moduleName,
			fmt.Sprintf("JobExecution (ID: %s) was updated concurrently (version %d)", jobExecution.ID, currentVersion), nil)
	}
	jobExecution.Version = currentVersion + 1
	return nil
}

// FindJobExecutionByID finds a JobExecution by its ID and loads its
// StepExecutions ordered by start time.
func (r *GormJobRepository) FindJobExecutionByID(ctx context.Context, executionID string) (*model.JobExecution, error) {
	var entity JobExecutionEntity
	err := r.session(ctx).Where("id = ?", executionID).First(&entity).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, repository.ErrJobExecutionNotFound
	}
	if err != nil {
		return nil, exception.NewBatchError(moduleName, "Failed to find JobExecution", err, false, true)
	}

	jobExecution := toDomainJobExecution(&entity)
	if err := r.loadStepExecutions(ctx, jobExecution); err != nil {
		return nil, err
	}
	return jobExecution, nil
}

// FindLatestRestartableJobExecution finds the most recent JobExecution for the
// given job ID that ended in a restartable state (FAILED or STOPPED).
func (r *GormJobRepository) FindLatestRestartableJobExecution(ctx context.Context, jobID int64) (*model.JobExecution, error) {
	var entity JobExecutionEntity
	err := r.session(ctx).
		Where("job_id = ? AND status IN ?", jobID, []model.JobStatus{model.BatchStatusFailed, model.BatchStatusStopped}).
		Order("create_time DESC").
		First(&entity).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, repository.ErrJobExecutionNotFound
	}
	if err != nil {
		return nil, exception.NewBatchError(moduleName, "Failed to find restartable JobExecution", err, false, true)
	}

	jobExecution := toDomainJobExecution(&entity)
	if err := r.loadStepExecutions(ctx, jobExecution); err != nil {
		return nil, err
	}
	return jobExecution, nil
}

// loadStepExecutions attaches the StepExecutions of the given JobExecution,
// ordered by start time, and re-associates the parent pointer.
func (r *GormJobRepository) loadStepExecutions(ctx context.Context, jobExecution *model.JobExecution) error {
	var entities []StepExecutionEntity
	err := r.session(ctx).
		Where("job_execution_id = ?", jobExecution.ID).
		Order("start_time ASC").
		Find(&entities).Error
	if err != nil {
		return exception.NewBatchError(moduleName, "Failed to load StepExecutions", err, false, true)
	}

	for i := range entities {
		se := toDomainStepExecution(&entities[i])
		se.JobExecution = jobExecution
		jobExecution.StepExecutions = append(jobExecution.StepExecutions, se)
	}
	return nil
}

// SaveStepExecution persists a new StepExecution.
func (r *GormJobRepository) SaveStepExecution(ctx context.Context, stepExecution *model.StepExecution) error {
	entity := fromDomainStepExecution(stepExecution)
	if err := r.session(ctx).Create(entity).Error; err != nil {
		return exception.NewBatchError(moduleName, "Failed to save StepExecution", err, false, true)
	}
	return nil
}

// UpdateStepExecution updates an existing StepExecution under optimistic locking.
// The caller's in-memory Version is incremented on success.
func (r *GormJobRepository) UpdateStepExecution(ctx context.Context, stepExecution *model.StepExecution) error {
	entity := fromDomainStepExecution(stepExecution)
	currentVersion := entity.Version
	entity.Version = currentVersion + 1

	result := r.session(ctx).
		Model(&StepExecutionEntity{}).
		Where("id = ? AND version = ?", entity.ID, currentVersion).
		Updates(entity)
	if result.Error != nil {
		return exception.NewBatchError(moduleName, "Failed to update StepExecution", result.Error, false, true)
	}
	if result.RowsAffected == 0 {
		return exception.NewOptimisticLockingFailureException(moduleName,
			fmt.Sprintf("StepExecution (ID: %s) was updated concurrently (version %d)", stepExecution.ID, currentVersion), nil)
	}
	stepExecution.Version = currentVersion + 1
	return nil
}

// FindStepExecutionByID finds a StepExecution by its ID.
func (r *GormJobRepository) FindStepExecutionByID(ctx context.Context, executionID string) (*model.StepExecution, error) {
	var entity StepExecutionEntity
	err := r.session(ctx).Where("id = ?", executionID).First(&entity).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, repository.ErrStepExecutionNotFound
	}
	if err != nil {
		return nil, exception.NewBatchError(moduleName, "Failed to find StepExecution", err, false, true)
	}
	return toDomainStepExecution(&entity), nil
}

// SaveCheckpointData persists or updates the checkpoint snapshot for a
// StepExecution. The snapshot is upserted as one row so the progress counter
// pair is never half-written.
func (r *GormJobRepository) SaveCheckpointData(ctx context.Context, data *model.CheckpointData) error {
	entity, err := fromDomainCheckpointData(data)
	if err != nil {
		return err
	}
	if entity.LastUpdated.IsZero() {
		entity.LastUpdated = time.Now()
	}

	err = r.session(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "step_execution_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"execution_context", "last_updated"}),
		}).
		Create(entity).Error
	if err != nil {
		return exception.NewBatchError(moduleName, "Failed to save checkpoint data", err, false, true)
	}
	return nil
}

// FindCheckpointData retrieves the checkpoint snapshot for a StepExecution.
func (r *GormJobRepository) FindCheckpointData(ctx context.Context, stepExecutionID string) (*model.CheckpointData, error) {
	var entity CheckpointDataEntity
	err := r.session(ctx).Where("step_execution_id = ?", stepExecutionID).First(&entity).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, repository.ErrCheckpointDataNotFound
	}
	if err != nil {
		return nil, exception.NewBatchError(moduleName, "Failed to find checkpoint data", err, false, true)
	}
	return toDomainCheckpointData(&entity)
}

// Close releases the underlying database connection.
func (r *GormJobRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
