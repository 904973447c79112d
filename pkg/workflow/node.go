package workflow

// END is the terminal node identifier.
// Use this as an edge target to indicate the graph should terminate.
const END = "__end__"

// NodeFunc is the signature for all node functions.
// Nodes receive the execution context and the current state, and return the
// updated state (or the same state) and any error.
//
// The state is passed by value. A node must modify and return a new state
// value, never rely on pointer mutation of shared data.
//
// Errors returned from a node are executor-level failures and abort the run.
// Expected failure modes (a tool that does not exist, an upstream timeout)
// belong in the state as error-shaped data, so downstream nodes can reason
// about them.
type NodeFunc[S any] func(ctx Context, state S) (S, error)

// RouterFunc determines the next node based on state.
// It is bound to a node with AddRouter and invoked after that node completes.
//
// Routers are pure: they must not mutate state. Any state change needed
// before looping back (clearing a stale plan, bumping a counter) belongs in a
// dedicated node on the path, never in the router.
//
// The router should return a valid node ID or workflow.END. Returning an
// empty string or an unknown node ID aborts the run with a RouterError.
type RouterFunc[S any] func(ctx Context, state S) string

// Branchable is an optional interface for state types that participate in
// fan-out execution. The executor calls Clone once per branch before the
// branches start, and Merge once after every branch has completed.
//
// Merge receives the branch states keyed by branch entry node; the receiver
// is the state at the fork point. Implementations decide per field whether
// merging overwrites or appends, and sibling branches must write disjoint
// scalar fields.
//
// State types that do not implement Branchable are cloned through a JSON
// round-trip and merged by keeping the fork-point state unchanged.
type Branchable[S any] interface {
	Clone(branch string) S
	Merge(branches map[string]S) S
}
