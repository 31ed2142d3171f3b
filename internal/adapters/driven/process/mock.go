package process

import (
	"context"
	"sync"
)

// Ensure MockRunner implements the interface.
var _ Runner = (*MockRunner)(nil)

// MockRunner records commands and returns canned results.
type MockRunner struct {
	mu sync.Mutex

	// Commands records every command that was run.
	Commands []Command

	// Handler produces the result for a command. If nil, Run succeeds
	// with empty output.
	Handler func(ctx context.Context, c Command) (*Result, error)
}

// Run records the command and delegates to Handler.
func (m *MockRunner) Run(ctx context.Context, c Command) (*Result, error) {
	m.mu.Lock()
	m.Commands = append(m.Commands, c)
	handler := m.Handler
	m.mu.Unlock()

	if handler == nil {
		return &Result{}, nil
	}
	return handler(ctx, c)
}

// LastCommand returns the most recently run command, or nil if none.
func (m *MockRunner) LastCommand() *Command {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Commands) == 0 {
		return nil
	}
	c := m.Commands[len(m.Commands)-1]
	return &c
}
