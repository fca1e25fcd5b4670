package presenter

import (
	"fmt"
	"time"

	"github.com/YoshitsuguKoike/llmhelper/internal/application/port/output"
	"github.com/YoshitsuguKoike/llmhelper/internal/domain/state"
)

const stepTimeLayout = "2006-01-02 15:04:05"

var _ state.Logger = (*StepLogger)(nil)

// StepLogger prints state machine progress to the console with a local
// timestamp prefix
type StepLogger struct {
	console output.Console
	clock   func() time.Time
}

// NewStepLogger creates a StepLogger; a nil clock means time.Now
func NewStepLogger(console output.Console, clock func() time.Time) *StepLogger {
	if clock == nil {
		clock = time.Now
	}
	return &StepLogger{console: console, clock: clock}
}

// Info prints one progress line regardless of the log level
func (l *StepLogger) Info(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	l.console.Println(l.clock().Format(stepTimeLayout)+": "+msg, output.ColorNone)
}
