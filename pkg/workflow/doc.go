// Package workflow provides a directed-graph execution engine for running
// multi-step pipelines over a shared state value.
//
// A workflow is built from named nodes (units of work), static edges,
// conditional edges (routers), and explicit fan-out groups. Build a graph
// with NewGraph, then Compile it into an immutable, reusable Compiled graph:
//
//	graph := workflow.NewGraph[MyState]().
//	    AddNode("fetch", fetch).
//	    AddNode("process", process).
//	    AddEdge("fetch", "process").
//	    AddEdge("process", workflow.END).
//	    SetEntry("fetch")
//
//	compiled, err := graph.Compile()
//	final, err := compiled.Run(workflow.NewContext(ctx), initial)
//
// Nodes receive the state by value and return the updated state. Routers are
// pure decision functions: they inspect the state and return the next node
// label without mutating anything. Cycles are permitted only through routers.
//
// Fan-out groups declared with AddFanOut run their branches concurrently.
// The executor clones the state per branch, waits for every branch to finish,
// merges the branch states, and resumes at the declared join node.
package workflow
