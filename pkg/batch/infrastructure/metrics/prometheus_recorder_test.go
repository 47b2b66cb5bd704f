package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	model "github.com/tigerroll/offshore/pkg/batch/core/domain/model"
)

func TestPrometheusRecorderChunkMetrics(t *testing.T) {
	ctx := context.Background()
	r := NewPrometheusRecorder().(*PrometheusRecorder)

	r.RecordChunkDispatched(ctx, "remote-step", 5)
	r.RecordChunkDispatched(ctx, "remote-step", 3)
	r.RecordReply(ctx, "remote-step", "CONTINUABLE")
	r.RecordReply(ctx, "remote-step", "FAILED")
	r.RecordDrain(ctx, "remote-step", 4, true)
	r.RecordDrain(ctx, "remote-step", 40, false)
	r.RecordThrottleWait(ctx, "remote-step", 250*time.Millisecond)

	assert.Equal(t, float64(2), testutil.ToFloat64(r.chunkDispatchedCounter.WithLabelValues("remote-step")))
	assert.Equal(t, float64(8), testutil.ToFloat64(r.chunkItemsCounter.WithLabelValues("remote-step")))
	assert.Equal(t, float64(1), testutil.ToFloat64(r.chunkReplyCounter.WithLabelValues("remote-step", "CONTINUABLE")))
	assert.Equal(t, float64(1), testutil.ToFloat64(r.chunkReplyCounter.WithLabelValues("remote-step", "FAILED")))
	assert.Equal(t, float64(1), testutil.ToFloat64(r.drainResultCounter.WithLabelValues("remote-step", "success")))
	assert.Equal(t, float64(1), testutil.ToFloat64(r.drainResultCounter.WithLabelValues("remote-step", "timeout")))
}

func TestPrometheusRecorderJobAndStepMetrics(t *testing.T) {
	ctx := context.Background()
	r := NewPrometheusRecorder().(*PrometheusRecorder)

	je := model.NewJobExecution(42, "remote-chunk-job")
	r.RecordJobStart(ctx, je)
	assert.Equal(t, float64(1), testutil.ToFloat64(r.jobStatusCounter.WithLabelValues("remote-chunk-job", "STARTING")))

	se := model.NewStepExecution(model.NewID(), je, "remote-step")
	se.MarkAsStarted()
	r.RecordStepStart(ctx, se)
	assert.Equal(t, float64(1), testutil.ToFloat64(r.stepStatusCounter.WithLabelValues("remote-chunk-job", "remote-step", "STARTED")))

	// End events without an end time are ignored.
	r.RecordJobEnd(ctx, je)
	r.RecordStepEnd(ctx, se)

	je.MarkAsStarted()
	je.MarkAsCompleted()
	se.MarkAsCompleted()
	r.RecordJobEnd(ctx, je)
	r.RecordStepEnd(ctx, se)

	count, err := testutil.GatherAndCount(r.registry, "batch_job_duration_seconds", "batch_step_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}
