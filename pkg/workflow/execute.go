package workflow

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/callwise/callwise/pkg/workflow/observability"
)

// Run executes the graph with the given initial state.
// Returns the final state and any error encountered.
//
// On success, returns the state after the last node executed before END.
// On error, returns the state at the point of failure.
//
// Execution loop:
//  1. Check for cancellation
//  2. Execute the current node
//  3. If the node is a declared fan-out, run all branches concurrently and
//     merge their states before continuing at the join node
//  4. Otherwise determine the next node via router or static edge
//  5. Repeat until END
func (c *Compiled[S]) Run(ctx Context, state S, opts ...RunOption) (result S, runErr error) {
	if ctx == nil {
		return state, ErrNilContext
	}

	cfg := defaultRunConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = ctx.Logger()
	}

	start := time.Now()
	observability.LogRunStart(cfg.logger, ctx.RunID())

	var execCtx context.Context = ctx
	var runSpan trace.Span
	if cfg.tracing {
		execCtx, runSpan = cfg.spans.StartRunSpan(ctx, "workflow", ctx.RunID())
		defer func() {
			cfg.spans.EndSpanWithError(runSpan, runErr)
		}()
	}

	var steps int
	result, steps, runErr = c.runLoop(execCtx, ctx, state, c.entry, &cfg)

	duration := time.Since(start)
	cfg.metrics.RecordRun(ctx, runErr == nil, duration)

	if runErr != nil {
		lastNode := ""
		switch err := runErr.(type) {
		case *NodeError:
			lastNode = err.NodeID
		case *MaxStepsError:
			lastNode = err.LastNodeID
		case *CancellationError:
			lastNode = err.NodeID
		}
		observability.LogRunError(cfg.logger, ctx.RunID(), runErr, duration, lastNode)
	} else {
		observability.LogRunComplete(cfg.logger, ctx.RunID(), duration, steps)
	}

	return result, runErr
}

// runLoop drives execution from startNode until END.
// tracingCtx carries span context; wfCtx is the workflow Context.
// Returns the final state, the number of executed nodes, and any error.
func (c *Compiled[S]) runLoop(tracingCtx context.Context, wfCtx Context, state S, startNode string, cfg *runConfig) (S, int, error) {
	current := startNode
	steps := 0

	for current != END {
		if steps >= cfg.maxSteps {
			return state, steps, &MaxStepsError{
				Max:        cfg.maxSteps,
				LastNodeID: current,
				State:      state,
			}
		}

		select {
		case <-wfCtx.Done():
			return state, steps, &CancellationError{
				NodeID: current,
				State:  state,
				Cause:  wfCtx.Err(),
			}
		default:
		}

		var err error
		state, err = c.step(tracingCtx, wfCtx, current, &state, cfg)
		if err != nil {
			return state, steps, err
		}
		steps++

		// A fan-out node forks after executing: run the branches, merge,
		// and continue at the join.
		if fo, ok := c.fanOuts[current]; ok {
			var branchSteps int
			state, branchSteps, err = c.runFanOut(tracingCtx, wfCtx, fo, state, cfg)
			if err != nil {
				return state, steps, err
			}
			steps += branchSteps
			current = fo.join
			continue
		}

		next, err := c.nextNode(wfCtx, state, current)
		if err != nil {
			return state, steps, err
		}
		current = next
	}

	return state, steps, nil
}

// step executes a single node with logging, metrics, and span handling.
func (c *Compiled[S]) step(tracingCtx context.Context, wfCtx Context, nodeID string, state *S, cfg *runConfig) (S, error) {
	observability.LogNodeStart(cfg.logger, nodeID)

	nodeTracingCtx := tracingCtx
	var nodeSpan trace.Span
	if cfg.tracing {
		nodeTracingCtx, nodeSpan = cfg.spans.StartNodeSpan(tracingCtx, nodeID)
	}

	start := time.Now()
	result, err := c.executeNode(wfCtx, nodeID, *state)
	duration := time.Since(start)

	cfg.metrics.RecordNodeExecution(nodeTracingCtx, nodeID, duration, err)
	if cfg.tracing {
		cfg.spans.EndSpanWithError(nodeSpan, err)
	}

	if err != nil {
		observability.LogNodeError(cfg.logger, nodeID, err)
		return result, err
	}
	observability.LogNodeComplete(cfg.logger, nodeID, duration)
	return result, nil
}

// executeNode executes a single node with panic recovery.
func (c *Compiled[S]) executeNode(ctx Context, nodeID string, state S) (result S, err error) {
	fn, ok := c.getNode(nodeID)
	if !ok {
		// Unreachable after successful compilation.
		return state, &NodeError{
			NodeID: nodeID,
			Op:     "lookup",
			Err:    fmt.Errorf("node not found: %s", nodeID),
		}
	}

	nodeCtx := nodeScoped(ctx, nodeID)

	defer func() {
		if r := recover(); r != nil {
			result = state
			err = &PanicError{
				NodeID: nodeID,
				Value:  r,
				Stack:  string(debug.Stack()),
			}
		}
	}()

	result, err = fn(nodeCtx, state)
	if err != nil {
		return result, &NodeError{
			NodeID: nodeID,
			Op:     "execute",
			Err:    err,
		}
	}
	return result, nil
}

// nextNode determines the node to execute after current.
// A router takes precedence over a static edge.
func (c *Compiled[S]) nextNode(ctx Context, state S, current string) (string, error) {
	if router, ok := c.getRouter(current); ok {
		next := router(nodeScoped(ctx, current), state)

		if next == "" {
			return "", &RouterError{
				FromNode: current,
				Returned: next,
				Err:      ErrInvalidRouterResult,
			}
		}
		if next != END {
			if _, ok := c.getNode(next); !ok {
				return "", &RouterError{
					FromNode: current,
					Returned: next,
					Err:      ErrRouterTargetNotFound,
				}
			}
		}
		return next, nil
	}

	to, ok := c.edges[current]
	if !ok {
		return "", &NodeError{
			NodeID: current,
			Op:     "routing",
			Err:    fmt.Errorf("no outgoing edge from node %s", current),
		}
	}
	return to, nil
}
