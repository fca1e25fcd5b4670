package workflow

import (
	"context"

	"github.com/YoshitsuguKoike/llmhelper/internal/domain/state"
)

// WorkflowRunner defines the interface for workflow execution
type WorkflowRunner interface {
	// Name returns the workflow name (e.g., "run", "chat")
	Name() string

	// Description returns a human-readable description
	Description() string

	// Run drives the workflow to its end status and returns the machine so
	// callers can inspect the status and state history
	Run(ctx context.Context, config WorkflowConfig) (*state.Machine, error)
}

// drive runs the machine to End
func drive(ctx context.Context, m *state.Machine) (*state.Machine, error) {
	if _, err := m.RunToEnd(ctx); err != nil {
		return m, err
	}
	return m, nil
}
