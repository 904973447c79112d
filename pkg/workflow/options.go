package workflow

import (
	"log/slog"

	"github.com/callwise/callwise/pkg/workflow/observability"
)

// runConfig holds configuration for a single graph execution.
type runConfig struct {
	maxSteps int
	logger   *slog.Logger
	metrics  observability.MetricsRecorder
	spans    observability.SpanManager
	tracing  bool
}

// defaultRunConfig returns the default execution configuration.
func defaultRunConfig() runConfig {
	return runConfig{
		maxSteps: 1000,
		metrics:  observability.NoopMetrics{},
		spans:    observability.NoopSpanManager{},
	}
}

// RunOption configures execution behavior.
type RunOption func(*runConfig)

// WithMaxSteps sets the maximum number of node executions per run.
// Default: 1000. Prevents a cyclic graph from looping forever; exceeding the
// limit returns a MaxStepsError.
func WithMaxSteps(n int) RunOption {
	return func(c *runConfig) {
		if n > 0 {
			c.maxSteps = n
		}
	}
}

// WithMetrics sets the metrics recorder for this run.
// Default: no-op.
func WithMetrics(m observability.MetricsRecorder) RunOption {
	return func(c *runConfig) {
		if m != nil {
			c.metrics = m
		}
	}
}

// WithTracing enables OpenTelemetry spans for the run and every node.
// The spans use the global tracer provider.
func WithTracing() RunOption {
	return func(c *runConfig) {
		c.tracing = true
		c.spans = observability.NewSpanManager()
	}
}
