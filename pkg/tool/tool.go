// Package tool provides the registry of invocable capabilities available to
// the reasoning workflow's execution step.
//
// Tools accept a single string argument and return a structured Result.
// Failure is data, not a raised error: invoking an unregistered name yields
// a Result with Err set, so the verification step has something concrete to
// score low instead of the run aborting.
package tool

import (
	"context"

	"github.com/callwise/callwise/pkg/workflow/registry"
)

// Finish is the sentinel tool name that terminates a plan.
// It is always registered and always succeeds.
const Finish = "finish"

// ErrNotFound is the Err value returned when invoking an unregistered tool.
const ErrNotFound = "tool not found"

// Result is the structured outcome of a tool invocation.
type Result struct {
	// Tool is the name that was invoked.
	Tool string `json:"tool"`
	// Output is the tool's output on success.
	Output string `json:"output,omitempty"`
	// Err describes the failure, empty on success.
	Err string `json:"error,omitempty"`
}

// Failed reports whether the invocation produced an error result.
func (r Result) Failed() bool { return r.Err != "" }

// Func is an invocable unit of work: one string argument in, one structured
// result out. Implementations must carry their own timeouts on external
// calls and fold failures into the Result rather than panicking.
type Func func(ctx context.Context, arg string) Result

// Registry maps tool names to invocable units.
type Registry struct {
	tools *registry.Registry[string, Func]
}

// NewRegistry creates a registry with only the finish sentinel registered.
func NewRegistry() *Registry {
	r := &Registry{tools: registry.New[string, Func]()}
	r.Register(Finish, func(_ context.Context, _ string) Result {
		return Result{Tool: Finish, Output: "done"}
	})
	return r
}

// Register adds or replaces a tool.
func (r *Registry) Register(name string, fn Func) {
	r.tools.Register(name, fn)
}

// Has reports whether a tool is registered.
func (r *Registry) Has(name string) bool {
	return r.tools.Has(name)
}

// Names returns all registered tool names, in no particular order.
func (r *Registry) Names() []string {
	return r.tools.Keys()
}

// Invoke runs the named tool with arg.
// Unregistered names produce an error-shaped Result, never a raised error.
func (r *Registry) Invoke(ctx context.Context, name, arg string) Result {
	fn, ok := r.tools.Get(name)
	if !ok {
		return Result{Tool: name, Err: ErrNotFound}
	}
	return fn(ctx, arg)
}
