package llm_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/callwise/callwise/pkg/llm"
)

func TestMockClient_FixedResponse(t *testing.T) {
	m := llm.NewMockClient("always this")

	for i := 0; i < 3; i++ {
		resp, err := m.Complete(context.Background(), llm.Request{Prompt: "p"})
		require.NoError(t, err)
		assert.Equal(t, "always this", resp.Content)
	}
	assert.Equal(t, 3, m.CallCount())
}

func TestMockClient_SequentialResponses_Cycle(t *testing.T) {
	m := llm.NewMockClient("").WithResponses("first", "second")

	var got []string
	for i := 0; i < 3; i++ {
		resp, err := m.Complete(context.Background(), llm.Request{})
		require.NoError(t, err)
		got = append(got, resp.Content)
	}
	assert.Equal(t, []string{"first", "second", "first"}, got)
}

func TestMockClient_WithError(t *testing.T) {
	boom := errors.New("provider down")
	m := llm.NewMockClient("unused").WithError(boom)

	_, err := m.Complete(context.Background(), llm.Request{})
	assert.ErrorIs(t, err, boom)
}

func TestMockClient_WithCompleteFunc(t *testing.T) {
	m := llm.NewMockClient("").WithCompleteFunc(func(_ context.Context, req llm.Request) (*llm.Response, error) {
		return &llm.Response{Content: "echo: " + req.Prompt}, nil
	})

	resp, err := m.Complete(context.Background(), llm.Request{Prompt: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "echo: hi", resp.Content)
}

func TestMockClient_RecordsCalls(t *testing.T) {
	m := llm.NewMockClient("ok")

	_, err := m.Complete(context.Background(), llm.Request{Prompt: "one"})
	require.NoError(t, err)
	_, err = m.Complete(context.Background(), llm.Request{Prompt: "two", MaxTokens: 100})
	require.NoError(t, err)

	calls := m.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, "one", calls[0].Prompt)
	assert.Equal(t, "two", m.LastCall().Prompt)
	assert.Equal(t, 100, m.LastCall().MaxTokens)

	m.Reset()
	assert.Zero(t, m.CallCount())
	assert.Equal(t, llm.Request{}, m.LastCall())
}

func TestMockClient_CancelledContext(t *testing.T) {
	m := llm.NewMockClient("ok")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := m.Complete(ctx, llm.Request{})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, m.CallCount(), "cancelled calls are not recorded")
}

func TestError_Formatting(t *testing.T) {
	inner := errors.New("deadline exceeded")

	timeoutErr := &llm.Error{Op: "complete", Err: inner, Timeout: true}
	assert.Contains(t, timeoutErr.Error(), "timeout")
	assert.ErrorIs(t, timeoutErr, inner)

	plain := &llm.Error{Op: "complete", Err: inner}
	assert.NotContains(t, plain.Error(), "timeout:")
}

func TestIsTimeout(t *testing.T) {
	assert.True(t, llm.IsTimeout(&llm.Error{Op: "complete", Err: context.DeadlineExceeded, Timeout: true}))
	assert.True(t, llm.IsTimeout(context.DeadlineExceeded))
	assert.False(t, llm.IsTimeout(&llm.Error{Op: "complete", Err: errors.New("other")}))
	assert.False(t, llm.IsTimeout(errors.New("anything")))
	assert.False(t, llm.IsTimeout(nil))
}

// slowBinary writes a script that ignores its arguments and sleeps.
func slowBinary(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "slowmodel")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\nsleep 5\n"), 0o755))
	return path
}

func TestCLIClient_Timeout(t *testing.T) {
	c := llm.NewCLIClient(llm.WithPath(slowBinary(t)), llm.WithTimeout(50*time.Millisecond))

	start := time.Now()
	_, err := c.Complete(context.Background(), llm.Request{Prompt: "p"})
	require.Error(t, err)
	assert.Less(t, time.Since(start), 3*time.Second)
	assert.True(t, llm.IsTimeout(err))
}

func TestCLIClient_RequestTimeoutOverridesDefault(t *testing.T) {
	c := llm.NewCLIClient(llm.WithPath(slowBinary(t)), llm.WithTimeout(time.Minute))

	start := time.Now()
	_, err := c.Complete(context.Background(), llm.Request{Prompt: "p", Timeout: 50 * time.Millisecond})
	require.Error(t, err)
	assert.Less(t, time.Since(start), 3*time.Second)
	assert.True(t, llm.IsTimeout(err))
}

func TestCLIClient_Success(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fakemodel")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\necho 'hello from model'\n"), 0o755))

	c := llm.NewCLIClient(llm.WithPath(path), llm.WithModel("fake"))
	resp, err := c.Complete(context.Background(), llm.Request{Prompt: "p"})
	require.NoError(t, err)
	assert.Equal(t, "hello from model", resp.Content)
	assert.Equal(t, "fake", resp.Model)
	assert.Greater(t, resp.Duration, time.Duration(0))
}

func TestCLIClient_MissingBinary(t *testing.T) {
	c := llm.NewCLIClient(llm.WithPath("/nonexistent/model-binary"))

	_, err := c.Complete(context.Background(), llm.Request{Prompt: "p"})
	require.Error(t, err)

	var lerr *llm.Error
	require.ErrorAs(t, err, &lerr)
	assert.False(t, lerr.Timeout)
}
