package workflow

import (
	"fmt"
	"strings"
	"sync"
)

// fanOut is a declared fan-out group: branches run concurrently from the
// fork node and rejoin at the join node.
type fanOut struct {
	from     string
	branches []string
	join     string
}

// Graph is a mutable builder for creating execution graphs.
// Use NewGraph to create one, then chain AddNode, AddEdge, AddRouter,
// AddFanOut, and SetEntry calls to define the workflow.
//
// Graph is not safe for concurrent building. Construct it from a single
// goroutine, then call Compile() to create an immutable Compiled graph that
// can be shared across runs.
type Graph[S any] struct {
	mu      sync.RWMutex
	nodes   map[string]NodeFunc[S]
	edges   map[string]string
	routers map[string]RouterFunc[S]
	fanOuts map[string]fanOut
	entry   string
}

// NewGraph creates a new graph builder for state type S.
func NewGraph[S any]() *Graph[S] {
	return &Graph[S]{
		nodes:   make(map[string]NodeFunc[S]),
		edges:   make(map[string]string),
		routers: make(map[string]RouterFunc[S]),
		fanOuts: make(map[string]fanOut),
	}
}

// AddNode adds a named node to the graph.
// Returns the graph for method chaining.
//
// Panics if:
//   - id is empty, reserved ("END", "__end__", case-insensitive), or
//     contains whitespace
//   - fn is nil
//   - id already exists in the graph
func (g *Graph[S]) AddNode(id string, fn NodeFunc[S]) *Graph[S] {
	if id == "" {
		panic("workflow: node ID cannot be empty")
	}
	idLower := strings.ToLower(id)
	if idLower == "end" || idLower == END {
		panic("workflow: node ID cannot be reserved word 'END'")
	}
	if strings.ContainsAny(id, " \t\n\r") {
		panic("workflow: node ID cannot contain whitespace")
	}
	if fn == nil {
		panic("workflow: node function cannot be nil")
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if _, exists := g.nodes[id]; exists {
		panic(fmt.Sprintf("workflow: duplicate node ID: %s", id))
	}
	g.nodes[id] = fn
	return g
}

// AddEdge adds a static edge from one node to another.
// The target can be a node ID or workflow.END.
// Returns the graph for method chaining.
//
// A node has exactly one static edge; declaring a second panics. Edge
// endpoint validation happens at Compile() time, so edges can be added in
// any order.
func (g *Graph[S]) AddEdge(from, to string) *Graph[S] {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, exists := g.edges[from]; exists {
		panic(fmt.Sprintf("workflow: node %s already has a static edge", from))
	}
	g.edges[from] = to
	return g
}

// AddRouter adds a conditional edge where a RouterFunc picks the next node
// at runtime based on state. Returns the graph for method chaining.
//
// A node can have either a static edge, a router, or a fan-out; if a router
// is present it takes precedence over a static edge.
func (g *Graph[S]) AddRouter(from string, router RouterFunc[S]) *Graph[S] {
	if router == nil {
		panic("workflow: router function cannot be nil")
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	g.routers[from] = router
	return g
}

// AddFanOut declares that after node from completes, all branches run
// concurrently and execution resumes at join once every branch has reached
// it. Each branch is a node ID; branches execute from their entry node
// through static edges until they hit the join node (or END).
//
// Panics if a fan-out is already declared for from. Branch and join
// validation happens at Compile() time.
func (g *Graph[S]) AddFanOut(from string, branches []string, join string) *Graph[S] {
	if len(branches) < 2 {
		panic("workflow: fan-out requires at least two branches")
	}
	if join == "" {
		panic("workflow: fan-out requires a join node")
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if _, exists := g.fanOuts[from]; exists {
		panic(fmt.Sprintf("workflow: node %s already has a fan-out", from))
	}
	g.fanOuts[from] = fanOut{
		from:     from,
		branches: append([]string(nil), branches...),
		join:     join,
	}
	return g
}

// SetEntry designates the entry point node.
// Must be called before Compile(). Returns the graph for method chaining.
func (g *Graph[S]) SetEntry(id string) *Graph[S] {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.entry = id
	return g
}
