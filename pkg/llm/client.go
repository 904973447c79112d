// Package llm provides the inference provider interface used by workflow
// nodes that need language-model reasoning, plus a CLI-backed implementation
// and a scriptable mock for tests.
package llm

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Client is the narrow interface every reasoning node depends on.
//
// Implementations must honor the request timeout and return a typed timeout
// error rather than blocking indefinitely.
type Client interface {
	// Complete sends a prompt and returns the completion.
	Complete(ctx context.Context, req Request) (*Response, error)
}

// Request configures a completion call.
type Request struct {
	// System is the optional system prompt.
	System string `json:"system,omitempty"`

	// Prompt is the user prompt.
	Prompt string `json:"prompt"`

	// Model overrides the client's default model, if set.
	Model string `json:"model,omitempty"`

	// MaxTokens bounds the completion length. 0 means provider default.
	MaxTokens int `json:"max_tokens,omitempty"`

	// Timeout bounds the call. 0 means the client's default timeout.
	Timeout time.Duration `json:"timeout,omitempty"`
}

// Response is the output of a completion call.
type Response struct {
	Content  string        `json:"content"`
	Model    string        `json:"model,omitempty"`
	Duration time.Duration `json:"duration"`
}

// Error wraps a failed completion call.
type Error struct {
	// Op is the operation that failed ("complete").
	Op string
	// Err is the underlying error.
	Err error
	// Timeout is true if the call exceeded its deadline.
	Timeout bool
}

func (e *Error) Error() string {
	if e.Timeout {
		return fmt.Sprintf("llm %s: timeout: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("llm %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// IsTimeout reports whether err is a completion timeout.
func IsTimeout(err error) bool {
	var lerr *Error
	if errors.As(err, &lerr) {
		return lerr.Timeout
	}
	return errors.Is(err, context.DeadlineExceeded)
}
