package workflow

import (
	"context"
	"errors"
	"strings"

	"github.com/YoshitsuguKoike/llmhelper/internal/application/port/output"
	"github.com/YoshitsuguKoike/llmhelper/internal/domain/repository"
	"github.com/YoshitsuguKoike/llmhelper/internal/domain/state"
)

// Statuses of the chat workflow
const (
	StatusRespond state.Status = "respond"
	StatusReply   state.Status = "reply"
)

const askResponse = "Response"

// ChatWorkflow holds a conversation seeded by a prompt file. Every assistant
// turn becomes one chat history record:
//
//	load -> variables -> respond -> reply -> respond ... -> save -> end
type ChatWorkflow struct {
	deps Deps
}

// NewChatWorkflow creates the chat workflow
func NewChatWorkflow(deps Deps) (*ChatWorkflow, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	return &ChatWorkflow{deps: deps}, nil
}

func (w *ChatWorkflow) Name() string { return "chat" }

func (w *ChatWorkflow) Description() string {
	return "Chat with a prompt file as the system message"
}

// Machine builds the status machine for cfg without running it
func (w *ChatWorkflow) Machine(cfg WorkflowConfig) (*state.Machine, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	d := &w.deps
	handlers := map[state.Status]state.Handler{
		StatusLoad:      d.loadStep(cfg, StatusVariables),
		StatusVariables: d.variablesStep(cfg, StatusRespond),
		StatusRespond:   w.respondStep(cfg),
		StatusReply:     w.replyStep(),
		StatusSave:      w.saveStep(),
		state.End:       state.Unreachable,
	}
	return state.NewMachine(StatusLoad, handlers, nil, d.machineOptions()...)
}

// Run executes the workflow to its end
func (w *ChatWorkflow) Run(ctx context.Context, cfg WorkflowConfig) (*state.Machine, error) {
	m, err := w.Machine(cfg)
	if err != nil {
		return nil, err
	}
	return drive(ctx, m)
}

// Messages returns the conversation held by a chat machine
func Messages(st *state.AuditedMap) []output.Message {
	v, _ := st.Get(KeyMessages)
	msgs, _ := v.([]output.Message)
	return msgs
}

// Turns returns the records collected by a chat machine
func Turns(st *state.AuditedMap) []*repository.HistoryRecord {
	v, _ := st.Get(KeyTurns)
	turns, _ := v.([]*repository.HistoryRecord)
	return turns
}

func (w *ChatWorkflow) respondStep(cfg WorkflowConfig) state.Handler {
	return func(ctx context.Context, m *state.Machine) error {
		d := &w.deps
		st := m.State()
		messages := Messages(st)
		if len(messages) == 0 {
			messages = []output.Message{{Role: output.RoleSystem, Content: st.GetString(KeyPrompt)}}
		}
		createdAt := d.Now().UTC()

		d.Console.Separator()
		contents := make([]string, 0, len(messages))
		for i, msg := range messages {
			if i == 0 {
				d.Console.Highlight(msg.Content, highlightValues(st))
			} else {
				d.Console.Message(msg.Role, msg.Content)
			}
			contents = append(contents, msg.Content)
		}

		completion, interrupted, seconds, err := d.stream(ctx, cfg, messages)
		if err != nil {
			return err
		}

		stats, err := d.measure(cfg.Model, strings.Join(contents, ""), completion, seconds)
		if err != nil {
			return err
		}

		record := baseRecord(st, cfg, repository.RunTypeChat)
		record.CreatedAt = createdAt
		record.Completion = completion
		record.Interrupted = interrupted
		record.PromptTokens = stats.PromptTokens
		record.CompletionTokens = stats.CompletionTokens
		record.TokensProcessed = stats.TokensProcessed()
		record.Cost = stats.Cost
		record.ExecutionTime = stats.ExecutionTime

		d.Console.Separator()
		d.Console.Summary(stats.Summary())

		st.Set(KeyMessages, appendMessage(messages, output.Message{Role: output.RoleAssistant, Content: completion}))
		st.Set(KeyTurns, appendTurn(Turns(st), record))

		if interrupted {
			return m.UpdateStatus(StatusSave)
		}
		return m.UpdateStatus(StatusReply)
	}
}

func (w *ChatWorkflow) replyStep() state.Handler {
	return func(ctx context.Context, m *state.Machine) error {
		answer, err := w.deps.Prompter.Ask(askResponse, "")
		if err != nil {
			if errors.Is(err, output.ErrPromptInterrupted) {
				return m.UpdateStatus(StatusSave)
			}
			return err
		}
		if answer == "" {
			return m.UpdateStatus(StatusSave)
		}

		st := m.State()
		st.Set(KeyMessages, appendMessage(Messages(st), output.Message{Role: output.RoleUser, Content: answer}))
		return m.UpdateStatus(StatusRespond)
	}
}

func (w *ChatWorkflow) saveStep() state.Handler {
	return func(ctx context.Context, m *state.Machine) error {
		w.deps.Console.Separator()
		if err := w.deps.History.SaveAll(context.WithoutCancel(ctx), Turns(m.State())); err != nil {
			return err
		}
		return m.UpdateStatus(state.End)
	}
}

// appendMessage returns a new slice so earlier state snapshots keep their
// own conversation
func appendMessage(msgs []output.Message, msg output.Message) []output.Message {
	out := make([]output.Message, 0, len(msgs)+1)
	return append(append(out, msgs...), msg)
}

func appendTurn(turns []*repository.HistoryRecord, rec *repository.HistoryRecord) []*repository.HistoryRecord {
	out := make([]*repository.HistoryRecord, 0, len(turns)+1)
	return append(append(out, turns...), rec)
}

var _ WorkflowRunner = (*ChatWorkflow)(nil)
