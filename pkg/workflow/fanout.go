package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
)

// runFanOut executes the branches of a declared fan-out concurrently.
// Each branch starts at its entry node and follows static edges until it
// reaches the join node (or END). The calling flow suspends until every
// branch has completed, then the branch states are merged and execution
// resumes at the join node.
//
// Sibling branches run on independent state clones, so a branch never
// observes another branch's uncommitted writes. Domain-level failures are
// expected to be recorded inside the branch state and merge as partial
// results; only executor-level errors (panic, unknown node, cancellation)
// fail the fan-out, and even then every sibling runs to completion first.
func (c *Compiled[S]) runFanOut(tracingCtx context.Context, wfCtx Context, fo fanOut, state S, cfg *runConfig) (S, int, error) {
	start := time.Now()

	// Clone state per branch before any branch starts.
	clones := make(map[string]S, len(fo.branches))
	for _, branch := range fo.branches {
		clone, err := cloneState(state, branch)
		if err != nil {
			return state, 0, &FanOutError{ForkNode: fo.from, Branch: branch, Err: err}
		}
		clones[branch] = clone
	}

	type branchResult struct {
		state S
		steps int
		err   error
	}
	results := make([]branchResult, len(fo.branches))

	var g errgroup.Group
	for i, branch := range fo.branches {
		g.Go(func() error {
			st, steps, err := c.runBranch(tracingCtx, wfCtx, branch, clones[branch], fo.join, cfg)
			results[i] = branchResult{state: st, steps: steps, err: err}
			if err != nil {
				return &FanOutError{ForkNode: fo.from, Branch: branch, Err: err}
			}
			return nil
		})
	}

	// Join barrier: every sibling completes before fan-in proceeds.
	if err := g.Wait(); err != nil {
		return state, 0, err
	}

	branchStates := make(map[string]S, len(fo.branches))
	totalSteps := 0
	for i, branch := range fo.branches {
		branchStates[branch] = results[i].state
		totalSteps += results[i].steps
	}

	merged := mergeStates(state, branchStates)

	wfCtx.Logger().Info("fan-out completed",
		"fork_node", fo.from,
		"join_node", fo.join,
		"branches", len(fo.branches),
		"duration_ms", time.Since(start).Milliseconds())

	return merged, totalSteps, nil
}

// runBranch executes one branch from its entry node until the join node.
func (c *Compiled[S]) runBranch(tracingCtx context.Context, wfCtx Context, branch string, state S, join string, cfg *runConfig) (S, int, error) {
	current := branch
	steps := 0

	for current != join && current != END {
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

		next, err := c.nextNode(wfCtx, state, current)
		if err != nil {
			return state, steps, err
		}
		current = next
	}

	return state, steps, nil
}

// cloneState creates an independent copy of state for a parallel branch.
// Uses Branchable.Clone if implemented, otherwise a JSON round-trip.
func cloneState[S any](state S, branch string) (S, error) {
	if b, ok := any(state).(Branchable[S]); ok {
		return b.Clone(branch), nil
	}

	data, err := json.Marshal(state)
	if err != nil {
		var zero S
		return zero, fmt.Errorf("clone state for branch %s: marshal: %w", branch, err)
	}
	var clone S
	if err := json.Unmarshal(data, &clone); err != nil {
		var zero S
		return zero, fmt.Errorf("clone state for branch %s: unmarshal: %w", branch, err)
	}
	return clone, nil
}

// mergeStates combines branch states back into a single state.
// Uses Branchable.Merge if implemented; otherwise the fork-point state is
// kept unchanged (without a declared merge, branch writes cannot be combined
// safely).
func mergeStates[S any](original S, branches map[string]S) S {
	if b, ok := any(original).(Branchable[S]); ok {
		return b.Merge(branches)
	}
	return original
}
