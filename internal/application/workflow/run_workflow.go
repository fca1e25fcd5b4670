package workflow

import (
	"context"

	"github.com/YoshitsuguKoike/llmhelper/internal/application/port/output"
	"github.com/YoshitsuguKoike/llmhelper/internal/domain/repository"
	"github.com/YoshitsuguKoike/llmhelper/internal/domain/state"
)

// Statuses of the single prompt workflow
const (
	StatusStream    state.Status = "stream"
	StatusSummarize state.Status = "summarize"
)

// RunWorkflow sends one prompt file as a single system message and records
// the completion:
//
//	load -> variables -> stream -> summarize -> save -> end
type RunWorkflow struct {
	deps Deps
}

// NewRunWorkflow creates the single prompt workflow
func NewRunWorkflow(deps Deps) (*RunWorkflow, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	return &RunWorkflow{deps: deps}, nil
}

func (w *RunWorkflow) Name() string { return "run" }

func (w *RunWorkflow) Description() string {
	return "Run a prompt file once and save the completion to history"
}

// Machine builds the status machine for cfg without running it
func (w *RunWorkflow) Machine(cfg WorkflowConfig) (*state.Machine, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	d := &w.deps
	handlers := map[state.Status]state.Handler{
		StatusLoad:      d.loadStep(cfg, StatusVariables),
		StatusVariables: d.variablesStep(cfg, StatusStream),
		StatusStream:    w.streamStep(cfg),
		StatusSummarize: w.summarizeStep(cfg),
		StatusSave:      w.saveStep(cfg),
		state.End:       state.Unreachable,
	}
	return state.NewMachine(StatusLoad, handlers, nil, d.machineOptions()...)
}

// Run executes the workflow to its end
func (w *RunWorkflow) Run(ctx context.Context, cfg WorkflowConfig) (*state.Machine, error) {
	m, err := w.Machine(cfg)
	if err != nil {
		return nil, err
	}
	return drive(ctx, m)
}

func (w *RunWorkflow) streamStep(cfg WorkflowConfig) state.Handler {
	return func(ctx context.Context, m *state.Machine) error {
		d := &w.deps
		st := m.State()
		text := st.GetString(KeyPrompt)

		d.Console.Separator()
		d.Console.Highlight(text, highlightValues(st))

		completion, interrupted, seconds, err := d.stream(ctx, cfg, []output.Message{
			{Role: output.RoleSystem, Content: text},
		})
		if err != nil {
			return err
		}
		st.Set(KeyCompletion, completion)
		st.Set(KeyInterrupted, interrupted)
		st.Set(KeyExecutionTime, seconds)
		return m.UpdateStatus(StatusSummarize)
	}
}

func (w *RunWorkflow) summarizeStep(cfg WorkflowConfig) state.Handler {
	return func(ctx context.Context, m *state.Machine) error {
		d := &w.deps
		st := m.State()
		stats, err := d.measure(cfg.Model, st.GetString(KeyPrompt), st.GetString(KeyCompletion), st.GetFloat(KeyExecutionTime))
		if err != nil {
			return err
		}
		st.Set(KeyPromptTokens, stats.PromptTokens)
		st.Set(KeyCompletionTokens, stats.CompletionTokens)
		st.Set(KeyCost, stats.Cost)

		d.Console.Separator()
		d.Console.Summary(stats.Summary())
		return m.UpdateStatus(StatusSave)
	}
}

func (w *RunWorkflow) saveStep(cfg WorkflowConfig) state.Handler {
	return func(ctx context.Context, m *state.Machine) error {
		st := m.State()
		record := baseRecord(st, cfg, repository.RunTypeSinglePrompt)
		record.Completion = st.GetString(KeyCompletion)
		record.Interrupted = st.GetBool(KeyInterrupted)
		record.PromptTokens = st.GetInt(KeyPromptTokens)
		record.CompletionTokens = st.GetInt(KeyCompletionTokens)
		record.TokensProcessed = record.PromptTokens + record.CompletionTokens
		record.Cost = st.GetFloat(KeyCost)
		record.ExecutionTime = st.GetFloat(KeyExecutionTime)

		// an interrupted run is still saved
		if err := w.deps.History.Save(context.WithoutCancel(ctx), record); err != nil {
			return err
		}
		return m.UpdateStatus(state.End)
	}
}

var _ WorkflowRunner = (*RunWorkflow)(nil)
