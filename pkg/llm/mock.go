package llm

import (
	"context"
	"sync"
	"time"
)

// MockClient is a scriptable Client for tests.
//
// By default it returns a fixed response. Configure sequential responses
// with WithResponses, a fixed error with WithError, or full control with
// WithCompleteFunc. All calls are recorded for assertions.
type MockClient struct {
	mu           sync.Mutex
	response     string
	responses    []string
	next         int
	err          error
	completeFunc func(ctx context.Context, req Request) (*Response, error)
	calls        []Request
}

var _ Client = (*MockClient)(nil)

// NewMockClient creates a mock that returns the given content on every call.
func NewMockClient(content string) *MockClient {
	return &MockClient{response: content}
}

// WithResponses configures sequential responses; the sequence cycles.
func (m *MockClient) WithResponses(responses ...string) *MockClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = responses
	m.next = 0
	return m
}

// WithError makes every call fail with err.
func (m *MockClient) WithError(err error) *MockClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
	return m
}

// WithCompleteFunc overrides Complete entirely.
func (m *MockClient) WithCompleteFunc(fn func(ctx context.Context, req Request) (*Response, error)) *MockClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.completeFunc = fn
	return m
}

// Complete implements Client.
func (m *MockClient) Complete(ctx context.Context, req Request) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, &Error{Op: "complete", Err: err}
	}

	m.mu.Lock()
	m.calls = append(m.calls, req)
	fn := m.completeFunc
	err := m.err
	content := m.response
	if len(m.responses) > 0 {
		content = m.responses[m.next%len(m.responses)]
		m.next++
	}
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, req)
	}
	if err != nil {
		return nil, err
	}
	return &Response{Content: content, Duration: time.Millisecond}, nil
}

// Calls returns a copy of all recorded requests.
func (m *MockClient) Calls() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Request(nil), m.calls...)
}

// LastCall returns the most recent request, or a zero Request.
func (m *MockClient) LastCall() Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.calls) == 0 {
		return Request{}
	}
	return m.calls[len(m.calls)-1]
}

// CallCount returns the number of Complete calls made.
func (m *MockClient) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// Reset clears recorded calls and sequential-response progress.
func (m *MockClient) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
	m.next = 0
}
