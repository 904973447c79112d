package workflow

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// Context provides execution context to nodes and routers.
// It extends context.Context with a structured logger and run metadata.
//
// Context is immutable after creation. The executor derives a new context per
// node with the NodeID set and the logger enriched with run_id and node_id.
//
// External collaborators (stores, inference clients) are deliberately not
// carried on the context: they are constructed once and closed over by the
// node functions that need them, so tests can inject fakes per workflow.
type Context interface {
	context.Context

	// Logger returns the configured logger, enriched with run and node
	// context. Never returns nil; defaults to slog.Default().
	Logger() *slog.Logger

	// RunID returns the unique identifier for this execution run.
	// Auto-generated if not configured.
	RunID() string

	// NodeID returns the node currently executing.
	// Empty before execution starts.
	NodeID() string
}

type execContext struct {
	context.Context

	logger *slog.Logger
	runID  string
	nodeID string
}

func (c *execContext) Logger() *slog.Logger { return c.logger }
func (c *execContext) RunID() string        { return c.runID }
func (c *execContext) NodeID() string       { return c.nodeID }

// ContextOption configures a Context.
type ContextOption func(*execContext)

// WithLogger sets the logger for the context.
// The executor enriches it with run_id and node_id during execution.
func WithLogger(logger *slog.Logger) ContextOption {
	return func(c *execContext) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithRunID sets the run identifier. If not set, a UUID is generated.
func WithRunID(id string) ContextOption {
	return func(c *execContext) {
		if id != "" {
			c.runID = id
		}
	}
}

// NewContext creates an execution context from a standard context.
//
// Example:
//
//	ctx := workflow.NewContext(context.Background(),
//	    workflow.WithLogger(logger),
//	    workflow.WithRunID("run-123"))
func NewContext(ctx context.Context, opts ...ContextOption) Context {
	ec := &execContext{
		Context: ctx,
		logger:  slog.Default(),
		runID:   uuid.New().String(),
	}
	for _, opt := range opts {
		opt(ec)
	}
	return ec
}

// withNode returns a derived context with the node ID set and the logger
// enriched. Used internally by the executor.
func (c *execContext) withNode(nodeID string) *execContext {
	return &execContext{
		Context: c.Context,
		logger:  c.logger.With("run_id", c.runID, "node_id", nodeID),
		runID:   c.runID,
		nodeID:  nodeID,
	}
}

// nodeScoped derives a per-node context from any Context implementation.
func nodeScoped(ctx Context, nodeID string) Context {
	if ec, ok := ctx.(*execContext); ok {
		return ec.withNode(nodeID)
	}
	return ctx
}
