// Package reason implements the reasoning workflow: a plan/act/verify loop
// with conditional branching and a bounded, self-correcting replan cycle.
//
// The workflow runs over an Investigation state threaded through the graph:
//
//	gatekeep -> plan -> act -> verify -> {replan | act | conclude}
//
// An ambiguous request terminates at gatekeep with a clarification message
// and no plan is ever created. Low-confidence verifications clear the plan
// and return to planning, up to a configured cap; after that the run is
// forced to conclude with a best-effort answer.
package reason

// Step is a single parsed plan entry: one tool invocation with one string
// argument. Steps are validated against the tool registry at plan-parse
// time, so an unknown name never survives into a plan silently.
type Step struct {
	// Tool is the registered tool name, or the finish sentinel.
	Tool string `json:"tool"`
	// Arg is the single string argument.
	Arg string `json:"arg"`
}

// Execution is one append-only record of a tool invocation.
type Execution struct {
	// Action is the tool name that was invoked.
	Action string `json:"action"`
	// Input is the argument the tool received.
	Input string `json:"input"`
	// Output is the tool output on success.
	Output string `json:"output,omitempty"`
	// Err describes a structured failure, empty on success.
	Err string `json:"error,omitempty"`
}

// Verification is one append-only record of a verification step.
type Verification struct {
	// Confidence is a bounded score in [1,5].
	Confidence int `json:"confidence"`
	// Rationale is the free-text justification.
	Rationale string `json:"rationale"`
}

// Investigation is the context object for one reasoning run.
//
// Merge semantics per field: Request and Clarification and FinalAnswer are
// last-writer-wins scalars; Plan is replaced wholesale by the planning and
// replanning nodes; ExecutionLog and VerificationLog are append-only;
// Replans only increments. The reasoning graph has no fan-out, so these
// rules are exercised by the nodes directly and asserted in tests.
type Investigation struct {
	// Request is the original user request.
	Request string `json:"request"`

	// Clarification, when set, terminates the run before planning.
	Clarification string `json:"clarification,omitempty"`

	// Plan is the ordered list of pending steps, sentinel-terminated.
	Plan []Step `json:"plan,omitempty"`

	// ExecutionLog records every tool invocation, oldest first.
	ExecutionLog []Execution `json:"execution_log,omitempty"`

	// VerificationLog records every verification, oldest first.
	VerificationLog []Verification `json:"verification_log,omitempty"`

	// Replans counts completed replan cycles.
	Replans int `json:"replans"`

	// FinalAnswer is set by the concluding step.
	FinalAnswer string `json:"final_answer,omitempty"`
}

// LastVerification returns the most recent verification record.
// The second return is false when no verification has run yet - absence
// means the current action has not been audited, not a zero score.
func (inv Investigation) LastVerification() (Verification, bool) {
	if len(inv.VerificationLog) == 0 {
		return Verification{}, false
	}
	return inv.VerificationLog[len(inv.VerificationLog)-1], true
}

// LastExecution returns the most recent execution record.
func (inv Investigation) LastExecution() (Execution, bool) {
	if len(inv.ExecutionLog) == 0 {
		return Execution{}, false
	}
	return inv.ExecutionLog[len(inv.ExecutionLog)-1], true
}
