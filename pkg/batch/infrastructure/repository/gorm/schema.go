// Package gorm provides a GORM-backed implementation of the JobRepository
// interface, persisting batch execution metadata to a relational database.
package gorm

import (
	"time"

	model "github.com/tigerroll/offshore/pkg/batch/core/domain/model"
)

// JobExecutionEntity is a schema model used for persistence.
type JobExecutionEntity struct {
	ID               string `gorm:"primaryKey"`
	JobID            int64
	JobName          string
	StartTime        time.Time
	EndTime          *time.Time
	Status           model.JobStatus
	ExitStatus       model.ExitStatus
	Failures         model.FailureList
	Version          int
	CreateTime       time.Time
	LastUpdated      time.Time
	ExecutionContext model.ExecutionContext
	RestartCount     int
	// StepExecutions are loaded manually in the repository layer.
}

func (JobExecutionEntity) TableName() string {
	return "batch_job_execution"
}

// StepExecutionEntity is a schema model used for persistence.
type StepExecutionEntity struct {
	ID               string `gorm:"primaryKey"`
	StepName         string
	JobExecutionID   string
	StartTime        time.Time
	EndTime          *time.Time
	Status           model.JobStatus
	ExitStatus       model.ExitStatus
	Failures         model.FailureList
	ReadCount        int
	WriteCount       int
	CommitCount      int
	RollbackCount    int
	FilterCount      int
	SkipCount        int
	ExecutionContext model.ExecutionContext
	LastUpdated      time.Time
	Version          int
}

func (StepExecutionEntity) TableName() string {
	return "batch_step_execution"
}

// CheckpointDataEntity is a schema model used for persistence. The execution
// context snapshot is stored pre-serialized so the progress counter pair is
// written as one value.
type CheckpointDataEntity struct {
	StepExecutionID  string `gorm:"primaryKey"`
	ExecutionContext string
	LastUpdated      time.Time
}

func (CheckpointDataEntity) TableName() string {
	return "batch_checkpoint_data"
}
