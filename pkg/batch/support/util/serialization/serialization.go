// Package serialization provides utilities for serializing and deserializing
// the execution metadata persisted by the framework, such as ExecutionContext
// snapshots and failure lists.
package serialization

import (
	"encoding/json"

	"github.com/tigerroll/offshore/pkg/batch/support/util/exception"
	logger "github.com/tigerroll/offshore/pkg/batch/support/util/logger"
)

// MarshalExecutionContext serializes an ExecutionContext map into a JSON byte slice.
func MarshalExecutionContext(ctx map[string]interface{}) ([]byte, error) {
	module := "serialization"

	if ctx == nil {
		logger.Debugf("ExecutionContext is nil. Returning empty JSON object.")
		return []byte("{}"), nil
	}
	data, err := json.Marshal(ctx)
	if err != nil {
		logger.Errorf("Failed to serialize ExecutionContext: %v", err)
		return nil, exception.NewBatchError(module, "Failed to serialize ExecutionContext", err, false, false)
	}
	return data, nil
}

// UnmarshalExecutionContext deserializes a JSON byte slice into an ExecutionContext map.
func UnmarshalExecutionContext(data []byte, ctx *map[string]interface{}) error {
	module := "serialization"

	if *ctx == nil {
		*ctx = make(map[string]interface{})
	} else {
		for k := range *ctx {
			delete(*ctx, k)
		}
	}

	if len(data) == 0 || string(data) == "null" || string(data) == "{}" {
		logger.Debugf("ExecutionContext is nil or empty data. Created/cleared empty ExecutionContext.")
		return nil
	}

	err := json.Unmarshal(data, ctx)
	if err != nil {
		logger.Errorf("Failed to deserialize ExecutionContext: %v", err)
		return exception.NewBatchError(module, "Failed to deserialize ExecutionContext", err, false, false)
	}
	return nil
}

// MarshalFailures serializes a slice of failure messages (strings) into a JSON byte slice.
func MarshalFailures(failures []string) ([]byte, error) {
	module := "serialization"

	if failures == nil {
		logger.Debugf("Failures is nil. Returning empty JSON array.")
		return []byte("[]"), nil
	}

	data, err := json.Marshal(failures)
	if err != nil {
		logger.Errorf("Failed to serialize Failures: %v", err)
		return nil, exception.NewBatchError(module, "Failed to serialize Failures", err, false, false)
	}
	return data, nil
}

// UnmarshalFailures deserializes a JSON byte slice into a slice of failure messages (strings).
func UnmarshalFailures(data []byte, msgs *[]string) error {
	module := "serialization"

	if len(data) == 0 || string(data) == "null" {
		*msgs = []string{}
		logger.Debugf("Failures is nil or empty data. Returning empty slice.")
		return nil
	}

	err := json.Unmarshal(data, msgs)
	if err != nil {
		logger.Errorf("Failed to deserialize Failures: %v", err)
		return exception.NewBatchError(module, "Failed to deserialize Failures", err, false, false)
	}

	return nil
}
