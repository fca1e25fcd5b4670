package workflow

import (
	"fmt"
	"time"

	"github.com/spf13/afero"

	"github.com/YoshitsuguKoike/llmhelper/internal/application/port/output"
	"github.com/YoshitsuguKoike/llmhelper/internal/domain/pricing"
	"github.com/YoshitsuguKoike/llmhelper/internal/domain/repository"
	"github.com/YoshitsuguKoike/llmhelper/internal/domain/state"
)

// Deps are the collaborators shared by the run and chat workflows
type Deps struct {
	Fs         afero.Fs
	Completion output.CompletionGateway
	Prompter   output.Prompter
	Console    output.Console
	History    repository.HistoryRepository
	Prices     pricing.Table
	Tokens     output.TokenCounter
	Now        func() time.Time // defaults to time.Now
	Logger     state.Logger     // optional step logger
}

func (d *Deps) validate() error {
	switch {
	case d.Fs == nil:
		return fmt.Errorf("workflow dependency missing: Fs")
	case d.Completion == nil:
		return fmt.Errorf("workflow dependency missing: Completion")
	case d.Prompter == nil:
		return fmt.Errorf("workflow dependency missing: Prompter")
	case d.Console == nil:
		return fmt.Errorf("workflow dependency missing: Console")
	case d.History == nil:
		return fmt.Errorf("workflow dependency missing: History")
	case d.Tokens == nil:
		return fmt.Errorf("workflow dependency missing: Tokens")
	}
	if d.Prices == nil {
		d.Prices = pricing.Default()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return nil
}

func (d *Deps) machineOptions() []state.Option {
	if d.Logger == nil {
		return nil
	}
	return []state.Option{state.WithLogger(d.Logger)}
}
