package reason

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/callwise/callwise/pkg/llm"
	"github.com/callwise/callwise/pkg/prompt"
	"github.com/callwise/callwise/pkg/tool"
	"github.com/callwise/callwise/pkg/workflow"
	wferrors "github.com/callwise/callwise/pkg/workflow/errors"
	"github.com/callwise/callwise/pkg/workflow/observability"
)

// Node names in the reasoning graph.
const (
	NodeGatekeep = "gatekeep"
	NodePlan     = "plan"
	NodeAct      = "act"
	NodeVerify   = "verify"
	NodeReplan   = "replan"
	NodeConclude = "conclude"
)

// Nodes bundles the units of work of the reasoning graph with their
// explicitly injected collaborators. Construct one per workflow, never
// share process-wide instances, so tests can inject fakes per run.
type Nodes struct {
	// LLM is the inference provider.
	LLM llm.Client

	// Tools is the registry available to the act node.
	Tools *tool.Registry

	// Metrics counts tool invocations. Nil disables recording.
	Metrics observability.MetricsRecorder

	// ConfidenceThreshold is the minimum passing confidence, in [1,5].
	ConfidenceThreshold int

	// MaxReplans caps the replan cycle.
	MaxReplans int

	// SynthesisBudget bounds the rendered execution log, in bytes.
	SynthesisBudget int

	// LLMTimeout bounds each inference call.
	LLMTimeout time.Duration

	// Retry configures transport retries on inference calls.
	Retry wferrors.RetryConfig
}

// complete runs one inference call with the configured timeout and
// transport retry.
func (n *Nodes) complete(ctx context.Context, p string) (string, error) {
	res := wferrors.WithRetryContext(ctx, n.retryConfig(), func(ctx context.Context) (*llm.Response, error) {
		return n.LLM.Complete(ctx, llm.Request{
			Prompt:  p,
			Timeout: n.LLMTimeout,
		})
	})
	if res.Err != nil {
		return "", res.Err
	}
	return res.Value.Content, nil
}

func (n *Nodes) retryConfig() wferrors.RetryConfig {
	if n.Retry.MaxAttempts > 0 {
		return n.Retry
	}
	return wferrors.DefaultRetry
}

func (n *Nodes) metrics() observability.MetricsRecorder {
	if n.Metrics != nil {
		return n.Metrics
	}
	return observability.NoopMetrics{}
}

// Gatekeep screens the request before any plan exists. An ambiguous request
// sets Clarification and the router terminates the run; no plan is ever
// created for it. If the screen itself is unavailable the request is
// accepted, since blocking every request on a transport failure is worse
// than skipping the screen.
func (n *Nodes) Gatekeep(ctx workflow.Context, inv Investigation) (Investigation, error) {
	p := prompt.MustRender(gatekeepTemplate, map[string]any{"request": inv.Request})

	content, err := n.complete(ctx, p)
	if err != nil {
		ctx.Logger().Warn("gatekeeping unavailable, accepting request", "error", err)
		return inv, nil
	}

	content = strings.TrimSpace(content)
	if rest, ok := strings.CutPrefix(content, "CLARIFY:"); ok {
		inv.Clarification = strings.TrimSpace(rest)
	}
	return inv, nil
}

// AfterGatekeep routes past gatekeeping: a set Clarification terminates the
// run, anything else proceeds to planning.
func (n *Nodes) AfterGatekeep(_ workflow.Context, inv Investigation) string {
	if inv.Clarification != "" {
		return workflow.END
	}
	return NodePlan
}

// Plan produces an ordered, validated plan of tool invocations ending with
// the finish sentinel. On a replan the prompt carries the accumulated
// execution history. If planning is unavailable the plan degrades to the
// bare sentinel and the run concludes with whatever has been recorded.
func (n *Nodes) Plan(ctx workflow.Context, inv Investigation) (Investigation, error) {
	history := ""
	if len(inv.ExecutionLog) > 0 {
		var b strings.Builder
		b.WriteString("\n\nEarlier attempts and their results:\n")
		for _, e := range inv.ExecutionLog {
			b.WriteString(renderExecution(e))
			b.WriteString("\n")
		}
		history = b.String()
	}

	p := prompt.MustRender(planTemplate, map[string]any{
		"request": inv.Request,
		"tools":   strings.Join(n.Tools.Names(), ", "),
		"history": history,
	})

	content, err := n.complete(ctx, p)
	if err != nil {
		ctx.Logger().Warn("planning unavailable", "error", err)
		inv.Plan = []Step{{Tool: tool.Finish}}
		return inv, nil
	}

	inv.Plan = ParsePlan(content, n.Tools, ctx.Logger())
	return inv, nil
}

// AfterPlan routes an all-sentinel plan straight to conclusion; otherwise
// execution begins.
func (n *Nodes) AfterPlan(_ workflow.Context, inv Investigation) string {
	if len(inv.Plan) == 0 || inv.Plan[0].Tool == tool.Finish {
		return NodeConclude
	}
	return NodeAct
}

// Act pops the head plan entry, invokes the tool, and appends the outcome
// to the execution log. Unknown tools and tool failures become structured
// error records; the run never aborts over them.
func (n *Nodes) Act(ctx workflow.Context, inv Investigation) (Investigation, error) {
	if len(inv.Plan) == 0 {
		inv.ExecutionLog = append(inv.ExecutionLog, Execution{
			Action: "",
			Err:    "no pending plan entry",
		})
		return inv, nil
	}

	step := inv.Plan[0]
	inv.Plan = inv.Plan[1:]

	result := n.Tools.Invoke(ctx, step.Tool, step.Arg)
	n.metrics().RecordToolInvocation(ctx, step.Tool, result.Failed())
	inv.ExecutionLog = append(inv.ExecutionLog, Execution{
		Action: step.Tool,
		Input:  step.Arg,
		Output: result.Output,
		Err:    result.Err,
	})
	return inv, nil
}

// Verify audits only the most recent execution record against the original
// request and appends a bounded confidence score. Earlier steps are not
// re-evaluated. An unavailable verifier scores 1, which routes to a replan
// and, at the cap, a best-effort conclusion.
func (n *Nodes) Verify(ctx workflow.Context, inv Investigation) (Investigation, error) {
	last, ok := inv.LastExecution()
	if !ok {
		inv.VerificationLog = append(inv.VerificationLog, Verification{
			Confidence: 1,
			Rationale:  "nothing to verify",
		})
		return inv, nil
	}

	result := last.Output
	if last.Err != "" {
		result = "error: " + last.Err
	}

	p := prompt.MustRender(verifyTemplate, map[string]any{
		"request": inv.Request,
		"action":  last.Action,
		"input":   last.Input,
		"result":  result,
	})

	content, err := n.complete(ctx, p)
	if err != nil {
		ctx.Logger().Warn("verification unavailable", "error", err)
		inv.VerificationLog = append(inv.VerificationLog, Verification{
			Confidence: 1,
			Rationale:  "verification unavailable: " + err.Error(),
		})
		return inv, nil
	}

	inv.VerificationLog = append(inv.VerificationLog, parseVerification(content))
	return inv, nil
}

// Decide is the router after verification. In order: a set Clarification
// terminates; a failing confidence goes to replanning until the cap forces
// a conclusion; an exhausted plan concludes; otherwise execution continues.
func (n *Nodes) Decide(_ workflow.Context, inv Investigation) string {
	if inv.Clarification != "" {
		return workflow.END
	}
	if v, ok := inv.LastVerification(); ok && v.Confidence < n.ConfidenceThreshold {
		if inv.Replans < n.MaxReplans {
			return NodeReplan
		}
		return NodeConclude
	}
	if len(inv.Plan) == 0 || inv.Plan[0].Tool == tool.Finish {
		return NodeConclude
	}
	return NodeAct
}

// Replan discards the current plan and counts the cycle. Routing then
// returns to planning, which regenerates from the original request plus
// history. The failed tool output is deliberately not injected here; any
// richer feedback loop is the planning node's concern.
func (n *Nodes) Replan(_ workflow.Context, inv Investigation) (Investigation, error) {
	inv.Plan = nil
	inv.Replans++
	return inv, nil
}

// Conclude synthesizes the final answer from the original request and the
// full execution log. The rendered log is truncated to the synthesis budget
// by dropping oldest entries first, with an elision marker, so the most
// recent evidence always survives. If synthesis is unavailable the raw
// rendered log becomes a best-effort answer.
func (n *Nodes) Conclude(ctx workflow.Context, inv Investigation) (Investigation, error) {
	rendered := renderLog(inv.ExecutionLog, n.SynthesisBudget)
	if rendered == "" {
		rendered = "(no steps were executed)"
	}

	p := prompt.MustRender(concludeTemplate, map[string]any{
		"request": inv.Request,
		"log":     rendered,
	})

	content, err := n.complete(ctx, p)
	if err != nil {
		ctx.Logger().Warn("synthesis unavailable, returning recorded results", "error", err)
		inv.FinalAnswer = fmt.Sprintf("Could not synthesize an answer (%v). Recorded results:\n%s", err, rendered)
		return inv, nil
	}

	inv.FinalAnswer = strings.TrimSpace(content)
	return inv, nil
}

// ElisionMarker is included in a truncated log so readers (and tests) can
// see that earlier entries were dropped.
const ElisionMarker = "[earlier steps elided]"

// renderExecution renders one execution record for prompts.
func renderExecution(e Execution) string {
	if e.Err != "" {
		return fmt.Sprintf("- %s('%s') -> error: %s", e.Action, e.Input, e.Err)
	}
	return fmt.Sprintf("- %s('%s') -> %s", e.Action, e.Input, e.Output)
}

// renderLog renders the execution log, newest entries preserved, truncated
// deterministically to at most budget bytes by dropping oldest entries
// first. A truncated render always starts with the elision marker.
func renderLog(log []Execution, budget int) string {
	if len(log) == 0 {
		return ""
	}

	lines := make([]string, len(log))
	for i, e := range log {
		lines[i] = renderExecution(e)
	}

	for start := 0; start < len(lines); start++ {
		parts := lines[start:]
		if start > 0 {
			parts = append([]string{ElisionMarker}, parts...)
		}
		rendered := strings.Join(parts, "\n")
		if budget <= 0 || len(rendered) <= budget {
			return rendered
		}
	}

	// Even the newest entry alone exceeds the budget; keep it anyway.
	return ElisionMarker + "\n" + lines[len(lines)-1]
}

// parseVerification parses "N: rationale" leniently and clamps the score
// into [1,5]. Unparseable output scores 1 - an auditor that cannot express
// a score has not passed the step.
func parseVerification(content string) Verification {
	content = strings.TrimSpace(content)

	score, rationale := 1, content
	if i := strings.Index(content, ":"); i > 0 {
		if n, err := strconv.Atoi(strings.TrimSpace(content[:i])); err == nil {
			score = n
			rationale = strings.TrimSpace(content[i+1:])
		}
	} else if n, err := strconv.Atoi(content); err == nil {
		score = n
		rationale = ""
	}

	if score < 1 {
		score = 1
	}
	if score > 5 {
		score = 5
	}
	return Verification{Confidence: score, Rationale: rationale}
}
