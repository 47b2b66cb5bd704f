// Package metrics provides concrete observability backends: a Prometheus
// metric recorder and an OpenTelemetry tracer.
package metrics

import (
	"go.uber.org/fx"

	metrics "github.com/tigerroll/offshore/pkg/batch/core/metrics"
)

// Module is an Fx module that provides PrometheusRecorder and OTelTracer.
var Module = fx.Options(
	// Provide PrometheusRecorder as a core.MetricRecorder interface.
	fx.Provide(fx.Annotate(
		NewPrometheusRecorder,
		fx.As(new(metrics.MetricRecorder)),
	)),
	// Provide OTelTracer as a core.Tracer interface.
	fx.Provide(fx.Annotate(
		NewOTelTracer,
		fx.As(new(metrics.Tracer)),
	)),
)
