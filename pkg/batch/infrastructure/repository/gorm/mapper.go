package gorm

import (
	model "github.com/tigerroll/offshore/pkg/batch/core/domain/model"
	serialization "github.com/tigerroll/offshore/pkg/batch/support/util/serialization"
)

// --- Mapper functions ---

func fromDomainJobExecution(je *model.JobExecution) *JobExecutionEntity {
	if je == nil {
		return nil
	}
	return &JobExecutionEntity{
		ID:               je.ID,
		JobID:            je.JobID,
		JobName:          je.JobName,
		StartTime:        je.StartTime,
		EndTime:          je.EndTime,
		Status:           je.Status,
		ExitStatus:       je.ExitStatus,
		Failures:         je.Failures,
		Version:          je.Version,
		CreateTime:       je.CreateTime,
		LastUpdated:      je.LastUpdated,
		ExecutionContext: je.ExecutionContext,
		RestartCount:     je.RestartCount,
	}
}

func toDomainJobExecution(entity *JobExecutionEntity) *model.JobExecution {
	if entity == nil {
		return nil
	}
	je := &model.JobExecution{
		ID:               entity.ID,
		JobID:            entity.JobID,
		JobName:          entity.JobName,
		StartTime:        entity.StartTime,
		EndTime:          entity.EndTime,
		Status:           entity.Status,
		ExitStatus:       entity.ExitStatus,
		Failures:         entity.Failures,
		Version:          entity.Version,
		CreateTime:       entity.CreateTime,
		LastUpdated:      entity.LastUpdated,
		ExecutionContext: entity.ExecutionContext,
		RestartCount:     entity.RestartCount,
		// CancelFunc is runtime-only and not persisted.
	}
	// StepExecutions are manually loaded in the repository layer.
	je.StepExecutions = make([]*model.StepExecution, 0)
	return je
}

func fromDomainStepExecution(se *model.StepExecution) *StepExecutionEntity {
	if se == nil {
		return nil
	}
	return &StepExecutionEntity{
		ID:               se.ID,
		StepName:         se.StepName,
		JobExecutionID:   se.JobExecutionID,
		StartTime:        se.StartTime,
		EndTime:          se.EndTime,
		Status:           se.Status,
		ExitStatus:       se.ExitStatus,
		Failures:         se.Failures,
		ReadCount:        se.ReadCount,
		WriteCount:       se.WriteCount,
		CommitCount:      se.CommitCount,
		RollbackCount:    se.RollbackCount,
		FilterCount:      se.FilterCount,
		SkipCount:        se.SkipCount,
		ExecutionContext: se.ExecutionContext,
		LastUpdated:      se.LastUpdated,
		Version:          se.Version,
	}
}

func toDomainStepExecution(entity *StepExecutionEntity) *model.StepExecution {
	if entity == nil {
		return nil
	}
	return &model.StepExecution{
		ID:               entity.ID,
		StepName:         entity.StepName,
		JobExecutionID:   entity.JobExecutionID,
		StartTime:        entity.StartTime,
		EndTime:          entity.EndTime,
		Status:           entity.Status,
		ExitStatus:       entity.ExitStatus,
		Failures:         entity.Failures,
		ReadCount:        entity.ReadCount,
		WriteCount:       entity.WriteCount,
		CommitCount:      entity.CommitCount,
		RollbackCount:    entity.RollbackCount,
		FilterCount:      entity.FilterCount,
		SkipCount:        entity.SkipCount,
		ExecutionContext: entity.ExecutionContext,
		LastUpdated:      entity.LastUpdated,
		Version:          entity.Version,
		// JobExecution is re-associated in the repository layer.
	}
}

func fromDomainCheckpointData(data *model.CheckpointData) (*CheckpointDataEntity, error) {
	if data == nil {
		return nil, nil
	}
	serialized, err := serialization.MarshalExecutionContext(data.ExecutionContext)
	if err != nil {
		return nil, err
	}
	return &CheckpointDataEntity{
		StepExecutionID:  data.StepExecutionID,
		ExecutionContext: string(serialized),
		LastUpdated:      data.LastUpdated,
	}, nil
}

func toDomainCheckpointData(entity *CheckpointDataEntity) (*model.CheckpointData, error) {
	if entity == nil {
		return nil, nil
	}
	var ec map[string]interface{}
	if err := serialization.UnmarshalExecutionContext([]byte(entity.ExecutionContext), &ec); err != nil {
		return nil, err
	}
	return &model.CheckpointData{
		StepExecutionID:  entity.StepExecutionID,
		ExecutionContext: model.ExecutionContext(ec),
		LastUpdated:      entity.LastUpdated,
	}, nil
}
