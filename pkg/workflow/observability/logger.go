// Package observability provides structured logging, metrics, and tracing
// for workflow execution.
//
// Logging uses log/slog from the standard library. Metrics and tracing use
// OpenTelemetry and are opt-in: no-op implementations are used when disabled,
// so the executor never pays for instrumentation it does not need.
package observability

import (
	"log/slog"
	"time"
)

// LogRunStart logs the start of a workflow run.
func LogRunStart(logger *slog.Logger, runID string) {
	if logger == nil {
		return
	}
	logger.Info("workflow run starting",
		slog.String("run_id", runID),
	)
}

// LogRunComplete logs successful workflow run completion.
func LogRunComplete(logger *slog.Logger, runID string, duration time.Duration, nodeCount int) {
	if logger == nil {
		return
	}
	logger.Info("workflow run completed",
		slog.String("run_id", runID),
		slog.Int64("duration_ms", duration.Milliseconds()),
		slog.Int("nodes_executed", nodeCount),
	)
}

// LogRunError logs workflow run failure.
func LogRunError(logger *slog.Logger, runID string, err error, duration time.Duration, lastNode string) {
	if logger == nil {
		return
	}
	logger.Error("workflow run failed",
		slog.String("run_id", runID),
		slog.String("error", err.Error()),
		slog.Int64("duration_ms", duration.Milliseconds()),
		slog.String("last_node", lastNode),
	)
}

// LogNodeStart logs node execution start.
func LogNodeStart(logger *slog.Logger, nodeID string) {
	if logger == nil {
		return
	}
	logger.Debug("node starting",
		slog.String("node_id", nodeID),
	)
}

// LogNodeComplete logs successful node completion.
func LogNodeComplete(logger *slog.Logger, nodeID string, duration time.Duration) {
	if logger == nil {
		return
	}
	logger.Debug("node completed",
		slog.String("node_id", nodeID),
		slog.Int64("duration_ms", duration.Milliseconds()),
	)
}

// LogNodeError logs node execution error.
func LogNodeError(logger *slog.Logger, nodeID string, err error) {
	if logger == nil {
		return
	}
	logger.Error("node failed",
		slog.String("node_id", nodeID),
		slog.String("error", err.Error()),
	)
}
