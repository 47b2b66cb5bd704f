package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	model "github.com/tigerroll/offshore/pkg/batch/core/domain/model"
	metrics "github.com/tigerroll/offshore/pkg/batch/core/metrics"
	logger "github.com/tigerroll/offshore/pkg/batch/support/util/logger"
)

// PrometheusRecorder is a Prometheus implementation of the metrics.MetricRecorder interface.
type PrometheusRecorder struct {
	registry *prometheus.Registry

	// Job Metrics
	jobDurationSeconds *prometheus.HistogramVec
	jobStatusCounter   *prometheus.CounterVec

	// Step Metrics
	stepDurationSeconds *prometheus.HistogramVec
	stepStatusCounter   *prometheus.CounterVec

	// Remote chunk metrics
	chunkDispatchedCounter  *prometheus.CounterVec
	chunkItemsCounter       *prometheus.CounterVec
	chunkReplyCounter       *prometheus.CounterVec
	throttleWaitSeconds     *prometheus.HistogramVec
	drainAttempts           *prometheus.HistogramVec
	drainResultCounter      *prometheus.CounterVec
	operationDurationSecond *prometheus.HistogramVec
}

// NewPrometheusRecorder creates a new instance of PrometheusRecorder.
func NewPrometheusRecorder() metrics.MetricRecorder {
	registry := prometheus.NewRegistry()

	// Register Go standard metrics and process/OS metrics.
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &PrometheusRecorder{
		registry: registry,
		jobDurationSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "batch_job_duration_seconds",
			Help:    "Duration of batch job executions.",
			Buckets: prometheus.DefBuckets,
		}, []string{"job_name", "status", "exit_status"}),
		jobStatusCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "batch_job_status_total",
			Help: "Total number of batch job executions by status.",
		}, []string{"job_name", "status"}),
		stepDurationSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "batch_step_duration_seconds",
			Help:    "Duration of batch step executions.",
			Buckets: prometheus.DefBuckets,
		}, []string{"job_name", "step_name", "status", "exit_status"}),
		stepStatusCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "batch_step_status_total",
			Help: "Total number of batch step executions by status.",
		}, []string{"job_name", "step_name", "status"}),
		chunkDispatchedCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "batch_chunk_dispatched_total",
			Help: "Total chunk requests dispatched to remote workers by step.",
		}, []string{"step_name"}),
		chunkItemsCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "batch_chunk_items_total",
			Help: "Total items dispatched in chunk requests by step.",
		}, []string{"step_name"}),
		chunkReplyCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "batch_chunk_reply_total",
			Help: "Total chunk replies received by step and outcome.",
		}, []string{"step_name", "outcome"}),
		throttleWaitSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "batch_chunk_throttle_wait_seconds",
			Help:    "Time spent blocked on the in-flight chunk limit by step.",
			Buckets: prometheus.DefBuckets,
		}, []string{"step_name"}),
		drainAttempts: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "batch_chunk_drain_attempts",
			Help:    "Poll attempts taken to drain outstanding chunk replies by step.",
			Buckets: []float64{1, 2, 5, 10, 20, 40},
		}, []string{"step_name"}),
		drainResultCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "batch_chunk_drain_total",
			Help: "Total drain waits by step and result.",
		}, []string{"step_name", "result"}),
		operationDurationSecond: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "batch_operation_duration_seconds",
			Help:    "Duration of named framework operations.",
			Buckets: prometheus.DefBuckets,
		}, []string{"name"}),
	}

	// Register all metrics with the registry.
	registry.MustRegister(r.jobDurationSeconds)
	registry.MustRegister(r.jobStatusCounter)
	registry.MustRegister(r.stepDurationSeconds)
	registry.MustRegister(r.stepStatusCounter)
	registry.MustRegister(r.chunkDispatchedCounter)
	registry.MustRegister(r.chunkItemsCounter)
	registry.MustRegister(r.chunkReplyCounter)
	registry.MustRegister(r.throttleWaitSeconds)
	registry.MustRegister(r.drainAttempts)
	registry.MustRegister(r.drainResultCounter)
	registry.MustRegister(r.operationDurationSecond)

	return r
}

// GetRegistry returns the Prometheus registry.
func (r *PrometheusRecorder) GetRegistry() *prometheus.Registry {
	return r.registry
}

// RecordJobStart records the start of a JobExecution.
func (r *PrometheusRecorder) RecordJobStart(ctx context.Context, execution *model.JobExecution) {
	r.jobStatusCounter.WithLabelValues(execution.JobName, execution.Status.String()).Inc()
	logger.Debugf("Metrics: Job '%s' started.", execution.JobName)
}

// RecordJobEnd records the end of a JobExecution.
func (r *PrometheusRecorder) RecordJobEnd(ctx context.Context, execution *model.JobExecution) {
	if execution.EndTime == nil {
		return
	}
	duration := execution.EndTime.Sub(execution.StartTime).Seconds()

	r.jobDurationSeconds.WithLabelValues(
		execution.JobName,
		execution.Status.String(),
		execution.ExitStatus.String(),
	).Observe(duration)

	logger.Debugf("Metrics: Job '%s' ended. Duration: %.3fs", execution.JobName, duration)
}

// RecordStepStart records the start of a StepExecution.
func (r *PrometheusRecorder) RecordStepStart(ctx context.Context, execution *model.StepExecution) {
	jobName := execution.JobExecution.JobName
	r.stepStatusCounter.WithLabelValues(jobName, execution.StepName, execution.Status.String()).Inc()
	logger.Debugf("Metrics: Step '%s' started.", execution.StepName)
}

// RecordStepEnd records the end of a StepExecution.
func (r *PrometheusRecorder) RecordStepEnd(ctx context.Context, execution *model.StepExecution) {
	if execution.EndTime == nil {
		return
	}
	duration := execution.EndTime.Sub(execution.StartTime).Seconds()
	jobName := execution.JobExecution.JobName

	r.stepDurationSeconds.WithLabelValues(
		jobName,
		execution.StepName,
		execution.Status.String(),
		execution.ExitStatus.String(),
	).Observe(duration)

	logger.Debugf("Metrics: Step '%s' ended. Duration: %.3fs", execution.StepName, duration)
}

// RecordChunkDispatched records the dispatch of a chunk request.
func (r *PrometheusRecorder) RecordChunkDispatched(ctx context.Context, stepName string, itemCount int) {
	r.chunkDispatchedCounter.WithLabelValues(stepName).Inc()
	r.chunkItemsCounter.WithLabelValues(stepName).Add(float64(itemCount))
}

// RecordReply records the receipt of a chunk reply.
func (r *PrometheusRecorder) RecordReply(ctx context.Context, stepName string, outcome string) {
	r.chunkReplyCounter.WithLabelValues(stepName, outcome).Inc()
}

// RecordThrottleWait records time spent blocked on the throttle limit.
func (r *PrometheusRecorder) RecordThrottleWait(ctx context.Context, stepName string, duration time.Duration) {
	r.throttleWaitSeconds.WithLabelValues(stepName).Observe(duration.Seconds())
}

// RecordDrain records the completion of a drain wait at a step boundary.
func (r *PrometheusRecorder) RecordDrain(ctx context.Context, stepName string, attempts int, success bool) {
	r.drainAttempts.WithLabelValues(stepName).Observe(float64(attempts))
	result := "success"
	if !success {
		result = "timeout"
	}
	r.drainResultCounter.WithLabelValues(stepName, result).Inc()
}

// RecordDuration records the execution time of a specific operation.
func (r *PrometheusRecorder) RecordDuration(ctx context.Context, name string, duration time.Duration, tags map[string]string) {
	r.operationDurationSecond.WithLabelValues(name).Observe(duration.Seconds())
}
