package reason

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/callwise/callwise/pkg/tool"
)

// callPattern is the strict plan-entry grammar: a single tool call with one
// single-quoted string argument. No nesting, no expressions, no evaluation
// of any kind.
var callPattern = regexp.MustCompile(`^([a-zA-Z_][a-zA-Z0-9_]*)\('(.*)'\)$`)

// ParseStep parses one plan line into a Step.
// Returns an error for anything that does not match the grammar exactly.
func ParseStep(line string) (Step, error) {
	m := callPattern.FindStringSubmatch(strings.TrimSpace(line))
	if m == nil {
		return Step{}, fmt.Errorf("malformed plan entry: %q", line)
	}
	return Step{Tool: m[1], Arg: m[2]}, nil
}

// ParsePlan parses planner output into an ordered, validated plan.
//
// One call per line. Malformed lines and lines naming tools absent from the
// registry are dropped with a logged skip rather than propagated. The finish
// sentinel is always the last entry, even when everything else was dropped,
// so execution can always proceed to conclusion.
func ParsePlan(text string, reg *tool.Registry, logger *slog.Logger) []Step {
	var plan []Step

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		step, err := ParseStep(line)
		if err != nil {
			if logger != nil {
				logger.Warn("skipping malformed plan entry", "line", line)
			}
			continue
		}
		if step.Tool == tool.Finish {
			// Sentinel is appended exactly once, below.
			continue
		}
		if !reg.Has(step.Tool) {
			if logger != nil {
				logger.Warn("skipping unknown tool in plan", "tool", step.Tool)
			}
			continue
		}
		plan = append(plan, step)
	}

	return append(plan, Step{Tool: tool.Finish})
}
