// Package prompt builds language-model prompts from templates with
// ${var} style placeholders.
package prompt

import (
	"fmt"
	"regexp"
	"strings"
)

// bracePattern matches ${varname} - varname can contain alphanumeric and
// underscore.
var bracePattern = regexp.MustCompile(`\$\{([a-zA-Z_][a-zA-Z0-9_]*)\}`)

// MissingAction controls what happens when a placeholder has no value.
type MissingAction int

const (
	// MissingKeep leaves the placeholder as-is.
	MissingKeep MissingAction = iota
	// MissingEmpty replaces the placeholder with an empty string.
	MissingEmpty
	// MissingError makes Expand return an error naming the variables.
	MissingError
)

// Expander expands ${var} placeholders in prompt templates.
// It is safe for concurrent use after construction.
type Expander struct {
	missingAction MissingAction
}

// Option configures an Expander.
type Option func(*Expander)

// WithMissingAction sets the behavior for unresolved placeholders.
// Default: MissingError - a prompt sent with a hole in it is a bug.
func WithMissingAction(a MissingAction) Option {
	return func(e *Expander) { e.missingAction = a }
}

// NewExpander creates a new Expander with the given options.
func NewExpander(opts ...Option) *Expander {
	e := &Expander{missingAction: MissingError}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Expand replaces ${var} placeholders in s using vars.
//
// Returns an error only when MissingAction is MissingError and at least one
// placeholder has no value.
func (e *Expander) Expand(s string, vars map[string]any) (string, error) {
	if s == "" {
		return "", nil
	}

	var missing []string
	result := bracePattern.ReplaceAllStringFunc(s, func(match string) string {
		name := match[2 : len(match)-1]
		if val, ok := vars[name]; ok {
			return fmt.Sprintf("%v", val)
		}
		switch e.missingAction {
		case MissingEmpty:
			return ""
		case MissingError:
			missing = append(missing, name)
			return match
		default:
			return match
		}
	})

	if len(missing) > 0 {
		return result, fmt.Errorf("unresolved prompt variables: %s", strings.Join(missing, ", "))
	}
	return result, nil
}

// defaultExpander backs the package-level helpers.
var defaultExpander = NewExpander()

// Render expands template with vars using the default expander.
func Render(template string, vars map[string]any) (string, error) {
	return defaultExpander.Expand(template, vars)
}

// MustRender is Render but panics on error. Use only with templates and
// variable sets that are fixed at compile time.
func MustRender(template string, vars map[string]any) string {
	s, err := defaultExpander.Expand(template, vars)
	if err != nil {
		panic(fmt.Sprintf("prompt: %v", err))
	}
	return s
}
