package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YoshitsuguKoike/llmhelper/internal/application/port/output"
	"github.com/YoshitsuguKoike/llmhelper/internal/domain/pricing"
	"github.com/YoshitsuguKoike/llmhelper/internal/domain/prompt"
	"github.com/YoshitsuguKoike/llmhelper/internal/domain/repository"
	"github.com/YoshitsuguKoike/llmhelper/internal/domain/state"
	"github.com/YoshitsuguKoike/llmhelper/internal/infra/recordstore"
	infraRepo "github.com/YoshitsuguKoike/llmhelper/internal/infrastructure/repository"
)

// fakeCompletion replays one scripted reply per call
type fakeCompletion struct {
	replies     [][]string
	calls       []output.CompletionRequest
	err         error
	cancel      context.CancelFunc
	cancelAfter int // chunks streamed before cancel is called
}

func (f *fakeCompletion) Stream(ctx context.Context, req output.CompletionRequest, onChunk func(string) error) (string, error) {
	f.calls = append(f.calls, req)
	if f.err != nil {
		return "", f.err
	}
	chunks := f.replies[len(f.calls)-1]
	var b strings.Builder
	for i, c := range chunks {
		if f.cancel != nil && i == f.cancelAfter {
			f.cancel()
			return b.String(), ctx.Err()
		}
		b.WriteString(c)
		if err := onChunk(c); err != nil {
			return b.String(), err
		}
	}
	return b.String(), nil
}

func (f *fakeCompletion) Provider() string { return "fake" }

// scriptedPrompter answers in order and records the labels it was shown
type scriptedPrompter struct {
	answers []string
	errAt   int // index of the answer that fails with ErrPromptInterrupted; -1 for none
	labels  []string
}

func (p *scriptedPrompter) Ask(label string, def string) (string, error) {
	p.labels = append(p.labels, label)
	i := len(p.labels) - 1
	if i == p.errAt {
		return "", output.ErrPromptInterrupted
	}
	if i >= len(p.answers) {
		return "", fmt.Errorf("unexpected prompt %q", label)
	}
	if p.answers[i] == "" {
		return def, nil
	}
	return p.answers[i], nil
}

type recordingConsole struct {
	lines      []string
	tokens     []string
	highlights [][]string
	messages   []output.Message
	summaries  []output.UsageSummary
}

func (c *recordingConsole) Println(text string, _ output.Color) { c.lines = append(c.lines, text) }
func (c *recordingConsole) Newline()                            {}
func (c *recordingConsole) Separator()                          {}
func (c *recordingConsole) Highlight(_ string, matches []string) {
	c.highlights = append(c.highlights, matches)
}
func (c *recordingConsole) Token(text string) { c.tokens = append(c.tokens, text) }
func (c *recordingConsole) Message(role output.Role, content string) {
	c.messages = append(c.messages, output.Message{Role: role, Content: content})
}
func (c *recordingConsole) Summary(s output.UsageSummary) { c.summaries = append(c.summaries, s) }
func (c *recordingConsole) Clear()                        {}

// wordCounter counts whitespace separated words
type wordCounter struct{}

func (wordCounter) Count(_ string, text string) int { return len(strings.Fields(text)) }

// tickingClock advances one second per call
func tickingClock() func() time.Time {
	t := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time {
		t = t.Add(time.Second)
		return t
	}
}

type fixture struct {
	fs         afero.Fs
	completion *fakeCompletion
	prompter   *scriptedPrompter
	console    *recordingConsole
	history    repository.HistoryRepository
}

func newFixture(t *testing.T, promptText string, replies ...[]string) *fixture {
	t.Helper()
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/prompts/p.txt", []byte(promptText), 0o644))
	return &fixture{
		fs:         fs,
		completion: &fakeCompletion{replies: replies},
		prompter:   &scriptedPrompter{errAt: -1},
		console:    &recordingConsole{},
		history:    infraRepo.NewHistoryRepositoryImpl(recordstore.New(fs, "/data")),
	}
}

func (f *fixture) deps() Deps {
	return Deps{
		Fs:         f.fs,
		Completion: f.completion,
		Prompter:   f.prompter,
		Console:    f.console,
		History:    f.history,
		Prices:     pricing.Default(),
		Tokens:     wordCounter{},
		Now:        tickingClock(),
	}
}

func config() WorkflowConfig {
	return WorkflowConfig{FileLocation: "/prompts/p.txt", Model: "gpt-4", Temperature: 0.7}
}

func saved(t *testing.T, f *fixture) []*repository.HistoryRecord {
	t.Helper()
	records, err := f.history.All(context.Background())
	require.NoError(t, err)
	return records
}

func TestRunWorkflow_SinglePrompt(t *testing.T) {
	f := newFixture(t, "Say hi", []string{"Hi", " there"})
	w, err := NewRunWorkflow(f.deps())
	require.NoError(t, err)

	m, err := w.Run(context.Background(), config())
	require.NoError(t, err)

	assert.Equal(t, state.End, m.Status())
	assert.Equal(t, []state.Status{StatusLoad, StatusVariables, StatusStream, StatusSummarize, StatusSave}, m.StatusHistory())
	assert.Equal(t, []string{"Hi", " there"}, f.console.tokens)

	require.Len(t, f.completion.calls, 1)
	req := f.completion.calls[0]
	assert.Equal(t, []output.Message{{Role: output.RoleSystem, Content: "Say hi"}}, req.Messages)
	assert.Equal(t, "gpt-4", req.Model)

	records := saved(t, f)
	require.Len(t, records, 1)
	rec := records[0]
	assert.Equal(t, repository.RunTypeSinglePrompt, rec.Type)
	assert.Equal(t, "/prompts/p.txt", rec.FileLocation)
	assert.Equal(t, "Say hi", rec.Prompt)
	assert.Equal(t, "Hi there", rec.Completion)
	assert.False(t, rec.Interrupted)
	assert.Equal(t, 2, rec.PromptTokens)
	assert.Equal(t, 2, rec.CompletionTokens)
	assert.Equal(t, 4, rec.TokensProcessed)
	assert.InDelta(t, 2*0.03/1000+2*0.06/1000, rec.Cost, 1e-12)
	assert.InDelta(t, 1.0, rec.ExecutionTime, 1e-9)
	assert.Equal(t, "", rec.ConfigHash)

	require.Len(t, f.console.summaries, 1)
	assert.Equal(t, 2, f.console.summaries[0].PromptTokens)

	// every mutation of the working state is kept
	history := m.StateHistory()
	assert.Equal(t, m.State().Mutations()+1, len(history))
	assert.Empty(t, history[0])
}

func TestRunWorkflow_AsksForVariables(t *testing.T) {
	f := newFixture(t, "Hello [[name]], write about [[topic]].", []string{"ok"})
	require.NoError(t, afero.WriteFile(f.fs, "/notes/topic.txt", []byte("bees"), 0o644))
	f.prompter.answers = []string{"Ada", "file", "/notes/topic.txt"}

	w, err := NewRunWorkflow(f.deps())
	require.NoError(t, err)
	_, err = w.Run(context.Background(), config())
	require.NoError(t, err)

	assert.Contains(t, f.console.lines, "No config found")
	assert.Equal(t, []string{
		"Enter value for name. If outputs from file type 'file'.",
		"Enter value for topic. If outputs from file type 'file'.",
		askFileName,
	}, f.prompter.labels)
	assert.Equal(t, [][]string{{"Ada", "bees"}}, f.console.highlights)

	rec := saved(t, f)[0]
	assert.Equal(t, "Hello Ada, write about bees.", rec.Prompt)
	assert.Equal(t, "Hello [[name]], write about [[topic]].", rec.RawPrompt)
	assert.Equal(t, map[string]string{"name": "Ada", "topic": "bees"}, rec.Config)
	assert.Equal(t, prompt.ConfigHash([]string{"name", "topic"}), rec.ConfigHash)
}

func TestRunWorkflow_RepeatedVariableHashesEveryOccurrence(t *testing.T) {
	f := newFixture(t, "[[name]] meets [[name]]", []string{"ok"})
	f.prompter.answers = []string{"Ada"}

	w, err := NewRunWorkflow(f.deps())
	require.NoError(t, err)
	_, err = w.Run(context.Background(), config())
	require.NoError(t, err)

	assert.Len(t, f.prompter.labels, 1)
	rec := saved(t, f)[0]
	assert.Equal(t, "Ada meets Ada", rec.Prompt)
	assert.Equal(t, prompt.ConfigHash([]string{"name", "name"}), rec.ConfigHash)
	assert.NotEqual(t, prompt.ConfigHash([]string{"name"}), rec.ConfigHash)
}

func TestRunWorkflow_ReusesSavedConfig(t *testing.T) {
	tests := []struct {
		name       string
		answers    []string
		wantPrompt string
		wantLine   string
	}{
		{name: "accept", answers: []string{""}, wantPrompt: "Hi Ada", wantLine: "Using config"},
		{name: "decline", answers: []string{"No", "Grace"}, wantPrompt: "Hi Grace", wantLine: "Not using config"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, "Hi [[name]]", []string{"hello"})
			require.NoError(t, f.history.Save(context.Background(), &repository.HistoryRecord{
				Type:       repository.RunTypeSinglePrompt,
				Config:     map[string]string{"name": "Ada"},
				ConfigHash: prompt.ConfigHash([]string{"name"}),
				CreatedAt:  time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC),
			}))
			f.prompter.answers = tt.answers

			w, err := NewRunWorkflow(f.deps())
			require.NoError(t, err)
			_, err = w.Run(context.Background(), config())
			require.NoError(t, err)

			assert.Equal(t, askUseConfig, f.prompter.labels[0])
			assert.Contains(t, f.console.lines, tt.wantLine)
			records := saved(t, f)
			require.Len(t, records, 2)
			assert.Equal(t, tt.wantPrompt, records[1].Prompt)
		})
	}
}

func TestRunWorkflow_ValuesFile(t *testing.T) {
	f := newFixture(t, "Hi [[name]]", []string{"hello"})
	require.NoError(t, afero.WriteFile(f.fs, "/vars.yaml", []byte("name: Linus\n"), 0o644))

	cfg := config()
	cfg.VarsFile = "/vars.yaml"
	w, err := NewRunWorkflow(f.deps())
	require.NoError(t, err)
	_, err = w.Run(context.Background(), cfg)
	require.NoError(t, err)

	assert.Empty(t, f.prompter.labels)
	assert.Equal(t, "Hi Linus", saved(t, f)[0].Prompt)
}

func TestRunWorkflow_InterruptStillSaves(t *testing.T) {
	f := newFixture(t, "Tell a story", []string{"Once", " upon", " a time"})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.completion.cancel = cancel
	f.completion.cancelAfter = 2

	w, err := NewRunWorkflow(f.deps())
	require.NoError(t, err)
	m, err := w.Run(ctx, config())
	require.NoError(t, err)
	assert.Equal(t, state.End, m.Status())

	assert.Contains(t, f.console.lines, "Keyboard interrupt detected. Saving data...")
	rec := saved(t, f)[0]
	assert.True(t, rec.Interrupted)
	assert.Equal(t, "Once upon", rec.Completion)
}

func TestRunWorkflow_ProviderErrorAborts(t *testing.T) {
	f := newFixture(t, "Say hi")
	f.completion.err = errors.New("rate limited")

	w, err := NewRunWorkflow(f.deps())
	require.NoError(t, err)
	m, err := w.Run(context.Background(), config())
	require.Error(t, err)
	assert.Equal(t, StatusStream, m.Status())
	assert.Empty(t, saved(t, f))
}

func TestRunWorkflow_UnknownModelAborts(t *testing.T) {
	f := newFixture(t, "Say hi", []string{"hi"})
	cfg := config()
	cfg.Model = "mystery-model"

	w, err := NewRunWorkflow(f.deps())
	require.NoError(t, err)
	_, err = w.Run(context.Background(), cfg)

	var unknown *pricing.UnknownModelError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "mystery-model", unknown.Model)
	assert.Empty(t, saved(t, f))
}

func TestRunWorkflow_MissingPromptFile(t *testing.T) {
	f := newFixture(t, "x")
	cfg := config()
	cfg.FileLocation = "/prompts/missing.txt"

	w, err := NewRunWorkflow(f.deps())
	require.NoError(t, err)
	_, err = w.Run(context.Background(), cfg)
	assert.Error(t, err)
}

func TestChatWorkflow_Conversation(t *testing.T) {
	f := newFixture(t, "You are terse.", []string{"A"}, []string{"B", "B"})
	f.prompter.answers = []string{"more please", ""}

	w, err := NewChatWorkflow(f.deps())
	require.NoError(t, err)
	m, err := w.Run(context.Background(), config())
	require.NoError(t, err)

	assert.Equal(t, []state.Status{
		StatusLoad, StatusVariables, StatusRespond, StatusReply, StatusRespond, StatusReply, StatusSave,
	}, m.StatusHistory())

	require.Len(t, f.completion.calls, 2)
	assert.Equal(t, []output.Message{
		{Role: output.RoleSystem, Content: "You are terse."},
		{Role: output.RoleAssistant, Content: "A"},
		{Role: output.RoleUser, Content: "more please"},
	}, f.completion.calls[1].Messages)
	assert.Equal(t, []output.Message{
		{Role: output.RoleAssistant, Content: "A"},
		{Role: output.RoleUser, Content: "more please"},
	}, f.console.messages)

	records := saved(t, f)
	require.Len(t, records, 2)
	assert.Equal(t, repository.RunTypeChat, records[0].Type)
	assert.Equal(t, "A", records[0].Completion)
	assert.Equal(t, 3, records[0].PromptTokens)
	assert.Equal(t, "BB", records[1].Completion)
	// "You are terse." + "A" + "more please" joined without separators
	assert.Equal(t, 4, records[1].PromptTokens)

	assert.Len(t, Messages(m.State()), 4)
	assert.Len(t, Turns(m.State()), 2)
}

func TestChatWorkflow_InterruptedReplySaves(t *testing.T) {
	f := newFixture(t, "Hi", []string{"Hello"})
	f.prompter.errAt = 0

	w, err := NewChatWorkflow(f.deps())
	require.NoError(t, err)
	m, err := w.Run(context.Background(), config())
	require.NoError(t, err)
	assert.Equal(t, state.End, m.Status())

	records := saved(t, f)
	require.Len(t, records, 1)
	assert.False(t, records[0].Interrupted)
}

func TestChatWorkflow_InterruptedStreamSaves(t *testing.T) {
	f := newFixture(t, "Hi", []string{"Hel", "lo"})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.completion.cancel = cancel
	f.completion.cancelAfter = 1

	w, err := NewChatWorkflow(f.deps())
	require.NoError(t, err)
	m, err := w.Run(ctx, config())
	require.NoError(t, err)

	assert.NotContains(t, m.StatusHistory(), StatusReply)
	records := saved(t, f)
	require.Len(t, records, 1)
	assert.True(t, records[0].Interrupted)
	assert.Equal(t, "Hel", records[0].Completion)
}

func TestNewWorkflow_Validation(t *testing.T) {
	f := newFixture(t, "x")
	deps := f.deps()
	deps.Completion = nil
	_, err := NewRunWorkflow(deps)
	assert.Error(t, err)
	_, err = NewChatWorkflow(deps)
	assert.Error(t, err)

	w, err := NewRunWorkflow(f.deps())
	require.NoError(t, err)
	_, err = w.Run(context.Background(), WorkflowConfig{Model: "gpt-4"})
	var invalid *InvalidConfigError
	assert.ErrorAs(t, err, &invalid)
	assert.Equal(t, "run", w.Name())
}
