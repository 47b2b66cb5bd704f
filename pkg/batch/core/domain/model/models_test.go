package model

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecutionContextValueScan(t *testing.T) {
	ec := NewExecutionContext()
	ec.Put("EXPECTED", 5)
	ec.Put("ACTUAL", 3)

	val, err := ec.Value()
	require.NoError(t, err)

	var restored ExecutionContext
	require.NoError(t, restored.Scan(val))

	expected, ok := restored.GetInt("EXPECTED")
	assert.True(t, ok)
	assert.Equal(t, 5, expected)

	actual, ok := restored.GetInt("ACTUAL")
	assert.True(t, ok)
	assert.Equal(t, 3, actual)
}

func TestExecutionContextScanEdgeCases(t *testing.T) {
	t.Run("nil value yields empty context", func(t *testing.T) {
		var ec ExecutionContext
		require.NoError(t, ec.Scan(nil))
		assert.Empty(t, ec)
	})

	t.Run("unsupported type returns error", func(t *testing.T) {
		var ec ExecutionContext
		assert.Error(t, ec.Scan(42))
	})
}

func TestExecutionContextAccessors(t *testing.T) {
	ec := NewExecutionContext()
	ec.Put("count", float64(7)) // JSON round trips produce float64
	ec.Put("name", "remote-step")
	ec.Put("done", true)

	i, ok := ec.GetInt("count")
	assert.True(t, ok)
	assert.Equal(t, 7, i)

	i64, ok := ec.GetInt64("count")
	assert.True(t, ok)
	assert.Equal(t, int64(7), i64)

	s, ok := ec.GetString("name")
	assert.True(t, ok)
	assert.Equal(t, "remote-step", s)

	b, ok := ec.GetBool("done")
	assert.True(t, ok)
	assert.True(t, b)

	_, ok = ec.GetInt("missing")
	assert.False(t, ok)

	cp := ec.Copy()
	cp.Put("extra", 1)
	_, ok = ec.Get("extra")
	assert.False(t, ok)
}

func TestJobExecutionLifecycle(t *testing.T) {
	je := NewJobExecution(42, "remote-chunk-job")
	assert.Equal(t, BatchStatusStarting, je.Status)
	assert.Equal(t, int64(42), je.JobID)

	je.MarkAsStarted()
	assert.Equal(t, BatchStatusStarted, je.Status)

	je.MarkAsCompleted()
	assert.Equal(t, BatchStatusCompleted, je.Status)
	assert.Equal(t, ExitStatusCompleted, je.ExitStatus)
	assert.NotNil(t, je.EndTime)
	assert.True(t, je.Status.IsFinished())
}

func TestJobExecutionInvalidTransition(t *testing.T) {
	je := NewJobExecution(1, "job")
	je.MarkAsStarted()
	je.MarkAsCompleted()

	err := je.TransitionTo(BatchStatusStarted)
	assert.Error(t, err)
}

func TestStepExecutionLifecycle(t *testing.T) {
	je := NewJobExecution(7, "job")
	se := NewStepExecution(NewID(), je, "dispatch-step")
	je.AddStepExecution(se)

	se.MarkAsStarted()
	se.MarkAsFailed(errors.New("reply timeout"))

	assert.Equal(t, BatchStatusFailed, se.Status)
	assert.Equal(t, ExitStatusFailed, se.ExitStatus)
	require.Len(t, se.Failures, 1)
	assert.Equal(t, "reply timeout", se.Failures[0])

	// Duplicate failures are not recorded twice.
	se.AddFailureException(errors.New("reply timeout"))
	assert.Len(t, se.Failures, 1)
}

func TestCopyForRestart(t *testing.T) {
	je := NewJobExecution(7, "job")
	se := NewStepExecution(NewID(), je, "dispatch-step")
	se.ExecutionContext.Put("EXPECTED", 10)
	se.ExecutionContext.Put("ACTUAL", 8)
	se.MarkAsStarted()
	se.MarkAsFailed(errors.New("crash"))

	restarted := se.CopyForRestart("new-job-exec-id")

	assert.NotEqual(t, se.ID, restarted.ID)
	assert.Equal(t, BatchStatusStarting, restarted.Status)
	assert.Equal(t, ExitStatusUnknown, restarted.ExitStatus)
	assert.Empty(t, restarted.Failures)

	expected, ok := restarted.ExecutionContext.GetInt("EXPECTED")
	assert.True(t, ok)
	assert.Equal(t, 10, expected)
	actual, ok := restarted.ExecutionContext.GetInt("ACTUAL")
	assert.True(t, ok)
	assert.Equal(t, 8, actual)
}

func TestJobStatusToExitStatus(t *testing.T) {
	assert.Equal(t, ExitStatusCompleted, BatchStatusCompleted.ToExitStatus())
	assert.Equal(t, ExitStatusFailed, BatchStatusFailed.ToExitStatus())
	assert.Equal(t, ExitStatusStopped, BatchStatusStopped.ToExitStatus())
	assert.Equal(t, ExitStatusUnknown, BatchStatusStarted.ToExitStatus())
}
