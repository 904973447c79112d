package workflow

import (
	"context"
	"sort"
)

// Test state types used across tests

// Counter is a simple state for testing incrementing.
type Counter struct {
	Value int
}

// Flow is a richer state for routing and ordering tests.
type Flow struct {
	Step     int
	Progress []string
	GoLeft   bool
	Done     bool
}

// Report is a Branchable state used by fan-out tests. Each branch owns one
// field; Stages is append-only with disjoint keys per branch.
type Report struct {
	Left   string
	Right  string
	Extra  string
	Stages map[string]string
	Merges int
}

func (r Report) Clone(string) Report {
	clone := r
	if r.Stages != nil {
		clone.Stages = make(map[string]string, len(r.Stages))
		for k, v := range r.Stages {
			clone.Stages[k] = v
		}
	}
	return clone
}

func (r Report) Merge(branches map[string]Report) Report {
	merged := r
	merged.Merges++

	names := make([]string, 0, len(branches))
	for name := range branches {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		b := branches[name]
		if b.Left != "" {
			merged.Left = b.Left
		}
		if b.Right != "" {
			merged.Right = b.Right
		}
		if b.Extra != "" {
			merged.Extra = b.Extra
		}
		for k, v := range b.Stages {
			if merged.Stages == nil {
				merged.Stages = make(map[string]string)
			}
			if _, ok := merged.Stages[k]; !ok {
				merged.Stages[k] = v
			}
		}
	}
	return merged
}

// testCtx returns a workflow Context over a background context.
func testCtx() Context {
	return NewContext(context.Background())
}

// Helper node functions

// increment is a node that increments the counter.
func increment(_ Context, s Counter) (Counter, error) {
	s.Value++
	return s, nil
}

// passthrough returns the state unchanged.
func passthrough[S any](_ Context, s S) (S, error) {
	return s, nil
}

// makeTrackingNode creates a node that records its execution.
func makeTrackingNode(name string) NodeFunc[Flow] {
	return func(_ Context, s Flow) (Flow, error) {
		s.Step++
		s.Progress = append(s.Progress, name)
		return s, nil
	}
}

// makeFailingNode creates a node that returns the given error.
func makeFailingNode[S any](err error) NodeFunc[S] {
	return func(_ Context, s S) (S, error) {
		return s, err
	}
}

// makePanicNode creates a node that panics with the given value.
func makePanicNode[S any](value any) NodeFunc[S] {
	return func(_ Context, _ S) (S, error) {
		panic(value)
	}
}

// makeStage creates a Report node that records its stage and optionally
// writes one owned field.
func makeStage(stage string, write func(*Report)) NodeFunc[Report] {
	return func(_ Context, r Report) (Report, error) {
		if r.Stages == nil {
			r.Stages = make(map[string]string)
		}
		r.Stages[stage] = "ok"
		if write != nil {
			write(&r)
		}
		return r, nil
	}
}
