package chunk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	model "github.com/tigerroll/offshore/pkg/batch/core/domain/model"
)

func TestProgressStateCheckpointRoundTrip(t *testing.T) {
	s := progressState{expected: 5, actual: 3, jobID: 42}
	ec := model.NewExecutionContext()
	s.saveTo(ec)

	var restoredState progressState
	restored, err := restoredState.restoreFrom(ec)
	require.NoError(t, err)
	assert.True(t, restored)
	assert.Equal(t, int64(5), restoredState.expected)
	assert.Equal(t, int64(3), restoredState.actual)
	assert.Equal(t, int64(2), restoredState.expecting())
}

func TestProgressStateFreshRunRestoresNothing(t *testing.T) {
	var s progressState
	restored, err := s.restoreFrom(model.NewExecutionContext())
	require.NoError(t, err)
	assert.False(t, restored)
	assert.Equal(t, int64(0), s.expecting())
}

func TestProgressStateRejectsPartialCheckpoint(t *testing.T) {
	t.Run("expected without actual", func(t *testing.T) {
		ec := model.NewExecutionContext()
		ec.Put(ContextKeyExpected, int64(3))

		var s progressState
		_, err := s.restoreFrom(ec)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "corrupt checkpoint")
	})

	t.Run("actual without expected", func(t *testing.T) {
		ec := model.NewExecutionContext()
		ec.Put(ContextKeyActual, int64(1))

		var s progressState
		_, err := s.restoreFrom(ec)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "corrupt checkpoint")
	})
}

func TestProgressStateRejectsActualExceedingExpected(t *testing.T) {
	ec := model.NewExecutionContext()
	ec.Put(ContextKeyExpected, int64(2))
	ec.Put(ContextKeyActual, int64(4))

	var s progressState
	_, err := s.restoreFrom(ec)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds")
}

func TestProgressStateResetKeepsJobIdentity(t *testing.T) {
	s := progressState{expected: 4, actual: 2, jobID: 42, skipCount: 3}
	s.reset()
	assert.Equal(t, int64(0), s.expected)
	assert.Equal(t, int64(0), s.actual)
	assert.Equal(t, int64(42), s.jobID)
	assert.Equal(t, int64(3), s.skipCount)
}
