package llm

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// CLIClient implements Client by shelling out to a local model CLI binary
// (any binary that accepts a prompt via --print -p and writes the completion
// to stdout, such as the claude CLI).
type CLIClient struct {
	path    string
	model   string
	workdir string
	timeout time.Duration
}

// CLIOption configures CLIClient.
type CLIOption func(*CLIClient)

// NewCLIClient creates a new CLI-backed client.
// Assumes "claude" is available in PATH unless overridden with WithPath.
func NewCLIClient(opts ...CLIOption) *CLIClient {
	c := &CLIClient{
		path:    "claude",
		timeout: 2 * time.Minute,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithPath sets the path to the CLI binary.
func WithPath(path string) CLIOption {
	return func(c *CLIClient) { c.path = path }
}

// WithModel sets the default model.
func WithModel(model string) CLIOption {
	return func(c *CLIClient) { c.model = model }
}

// WithWorkdir sets the working directory for CLI invocations.
func WithWorkdir(dir string) CLIOption {
	return func(c *CLIClient) { c.workdir = dir }
}

// WithTimeout sets the default timeout for completion calls.
func WithTimeout(d time.Duration) CLIOption {
	return func(c *CLIClient) { c.timeout = d }
}

// Complete implements Client.
func (c *CLIClient) Complete(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = c.timeout
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(callCtx, c.path, c.buildArgs(req)...)
	if c.workdir != "" {
		cmd.Dir = c.workdir
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return nil, &Error{Op: "complete", Err: callCtx.Err(), Timeout: true}
		}
		if ctx.Err() != nil {
			return nil, &Error{Op: "complete", Err: ctx.Err()}
		}
		return nil, &Error{Op: "complete", Err: fmt.Errorf("%w: %s", err, strings.TrimSpace(stderr.String()))}
	}

	model := c.model
	if req.Model != "" {
		model = req.Model
	}

	return &Response{
		Content:  strings.TrimSpace(stdout.String()),
		Model:    model,
		Duration: time.Since(start),
	}, nil
}

// buildArgs constructs CLI arguments from a request.
func (c *CLIClient) buildArgs(req Request) []string {
	args := []string{"--print"}

	if req.System != "" {
		args = append(args, "--system-prompt", req.System)
	}

	model := c.model
	if req.Model != "" {
		model = req.Model
	}
	if model != "" {
		args = append(args, "--model", model)
	}

	if req.MaxTokens > 0 {
		args = append(args, "--max-tokens", fmt.Sprintf("%d", req.MaxTokens))
	}

	args = append(args, "-p", req.Prompt)
	return args
}
