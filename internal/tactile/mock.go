package tactile

import (
	"context"
	"fmt"
	"runtime"
	"sync"
)

// MockResponse scripts the outcome of one binary.
type MockResponse struct {
	Stdout   string
	Stderr   string
	ExitCode int
	// Err makes Execute fail at the infrastructure level.
	Err error
}

// MockExecutor records every command and answers from scripted responses.
// It never starts a process.
type MockExecutor struct {
	mu        sync.Mutex
	calls     []Command
	responses map[string]MockResponse
	handler   func(cmd Command) MockResponse
}

// NewMockExecutor returns an executor that succeeds with empty output for
// any binary not scripted with On or Handle.
func NewMockExecutor() *MockExecutor {
	return &MockExecutor{responses: make(map[string]MockResponse)}
}

// On scripts the response for a binary.
func (m *MockExecutor) On(binary string, resp MockResponse) *MockExecutor {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[binary] = resp
	return m
}

// Handle installs a function that computes responses for unscripted binaries,
// e.g. to emulate wc by counting stdin lines.
func (m *MockExecutor) Handle(fn func(cmd Command) MockResponse) *MockExecutor {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handler = fn
	return m
}

// Calls returns a copy of the commands executed so far.
func (m *MockExecutor) Calls() []Command {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Command, len(m.calls))
	copy(out, m.calls)
	return out
}

// Capabilities returns what this executor supports.
func (m *MockExecutor) Capabilities() ExecutorCapabilities {
	return ExecutorCapabilities{Name: "mock", Platform: runtime.GOOS, SupportsStdin: true}
}

// Validate checks if a command can be executed.
func (m *MockExecutor) Validate(cmd Command) error {
	if cmd.Binary == "" {
		return fmt.Errorf("binary is required")
	}
	return nil
}

// Execute records cmd and returns the scripted response.
func (m *MockExecutor) Execute(ctx context.Context, cmd Command) (*ExecutionResult, error) {
	if err := m.Validate(cmd); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.calls = append(m.calls, cmd)
	resp, ok := m.responses[cmd.Binary]
	handler := m.handler
	m.mu.Unlock()

	if !ok && handler != nil {
		resp = handler(cmd)
	}
	if resp.Err != nil {
		return &ExecutionResult{
			Success:  false,
			ExitCode: -1,
			Error:    resp.Err.Error(),
			Stderr:   resp.Err.Error(),
			Command:  &cmd,
		}, nil
	}

	return &ExecutionResult{
		Success:  true,
		ExitCode: resp.ExitCode,
		Stdout:   resp.Stdout,
		Stderr:   resp.Stderr,
		Command:  &cmd,
	}, nil
}
