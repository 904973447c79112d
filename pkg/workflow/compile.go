package workflow

import (
	"errors"
	"fmt"
)

// Compile validates the graph and creates an executable Compiled graph.
// Returns an error if validation fails; multiple errors are joined.
//
// Validation checks:
//  1. Entry point is set and references an existing node
//  2. All edge sources and targets reference existing nodes or END
//  3. All fan-out branches and joins reference existing nodes
//  4. A path from the entry point to END exists
func (g *Graph[S]) Compile() (*Compiled[S], error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var errs []error

	if g.entry == "" {
		errs = append(errs, ErrNoEntryPoint)
	} else if _, ok := g.nodes[g.entry]; !ok {
		errs = append(errs, fmt.Errorf("%w: %s", ErrEntryNotFound, g.entry))
	}

	for from, to := range g.edges {
		if _, ok := g.nodes[from]; !ok {
			errs = append(errs, fmt.Errorf("%w: edge source %q does not exist", ErrNodeNotFound, from))
		}
		if to != END {
			if _, ok := g.nodes[to]; !ok {
				errs = append(errs, fmt.Errorf("%w: edge target %q does not exist", ErrNodeNotFound, to))
			}
		}
	}

	for from := range g.routers {
		if _, ok := g.nodes[from]; !ok {
			errs = append(errs, fmt.Errorf("%w: router source %q does not exist", ErrNodeNotFound, from))
		}
	}

	for from, fo := range g.fanOuts {
		if _, ok := g.nodes[from]; !ok {
			errs = append(errs, fmt.Errorf("%w: fan-out source %q does not exist", ErrNodeNotFound, from))
		}
		for _, b := range fo.branches {
			if _, ok := g.nodes[b]; !ok {
				errs = append(errs, fmt.Errorf("%w: branch %q does not exist", ErrBadFanOut, b))
			}
		}
		if fo.join != END {
			if _, ok := g.nodes[fo.join]; !ok {
				errs = append(errs, fmt.Errorf("%w: join %q does not exist", ErrBadFanOut, fo.join))
			}
		}
		if _, ok := g.routers[from]; ok {
			errs = append(errs, fmt.Errorf("%w: node %q has both a router and a fan-out", ErrBadFanOut, from))
		}
	}

	if g.entry != "" {
		if _, ok := g.nodes[g.entry]; ok && !g.hasPathToEnd() {
			errs = append(errs, ErrNoPathToEnd)
		}
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return g.build(), nil
}

// hasPathToEnd checks whether END is reachable from the entry node.
// Routers are assumed to be able to return END, fan-outs continue at their
// join node.
func (g *Graph[S]) hasPathToEnd() bool {
	canReach := map[string]bool{END: true}

	changed := true
	for changed {
		changed = false
		for from, to := range g.edges {
			if !canReach[from] && canReach[to] {
				canReach[from] = true
				changed = true
			}
		}
		for from := range g.routers {
			if !canReach[from] {
				canReach[from] = true
				changed = true
			}
		}
		for from, fo := range g.fanOuts {
			if !canReach[from] && canReach[fo.join] {
				canReach[from] = true
				changed = true
			}
		}
	}

	return canReach[g.entry]
}

// build creates the immutable Compiled graph from the builder state.
func (g *Graph[S]) build() *Compiled[S] {
	nodes := make(map[string]NodeFunc[S], len(g.nodes))
	for id, fn := range g.nodes {
		nodes[id] = fn
	}
	edges := make(map[string]string, len(g.edges))
	for from, to := range g.edges {
		edges[from] = to
	}
	routers := make(map[string]RouterFunc[S], len(g.routers))
	for from, r := range g.routers {
		routers[from] = r
	}
	fanOuts := make(map[string]fanOut, len(g.fanOuts))
	for from, fo := range g.fanOuts {
		fanOuts[from] = fo
	}

	return &Compiled[S]{
		nodes:   nodes,
		edges:   edges,
		routers: routers,
		fanOuts: fanOuts,
		entry:   g.entry,
	}
}
