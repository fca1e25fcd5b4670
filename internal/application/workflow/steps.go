package workflow

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"
	"golang.org/x/text/cases"

	"github.com/YoshitsuguKoike/llmhelper/internal/application/port/output"
	"github.com/YoshitsuguKoike/llmhelper/internal/domain/prompt"
	"github.com/YoshitsuguKoike/llmhelper/internal/domain/repository"
	"github.com/YoshitsuguKoike/llmhelper/internal/domain/state"
)

// Statuses shared by both workflows
const (
	StatusLoad      state.Status = "load"
	StatusVariables state.Status = "variables"
	StatusSave      state.Status = "save"
)

// Working state keys
const (
	KeyFileLocation     = "file_location"
	KeyRawPrompt        = "raw_prompt"
	KeyPrompt           = "prompt"
	KeyConfig           = "config"
	KeyConfigHash       = "config_hash"
	KeyCreatedAt        = "created_at"
	KeyCompletion       = "completion"
	KeyInterrupted      = "interrupted"
	KeyExecutionTime    = "execution_time"
	KeyPromptTokens     = "prompt_tokens"
	KeyCompletionTokens = "completion_tokens"
	KeyCost             = "cost"
	KeyMessages         = "messages"
	KeyTurns            = "turns"
)

const (
	askUseConfig = "Found config for this prompt. Use it? (n/No to not use)"
	askFileName  = "  What is the file name?"
	fileAnswer   = "file"
)

// loadStep reads the prompt file and moves to next
func (d *Deps) loadStep(cfg WorkflowConfig, next state.Status) state.Handler {
	return func(ctx context.Context, m *state.Machine) error {
		location, err := filepath.Abs(cfg.FileLocation)
		if err != nil {
			return fmt.Errorf("resolve %s: %w", cfg.FileLocation, err)
		}
		raw, err := afero.ReadFile(d.Fs, location)
		if err != nil {
			return fmt.Errorf("read prompt file: %w", err)
		}

		st := m.State()
		st.Set(KeyFileLocation, location)
		st.Set(KeyRawPrompt, string(raw))
		st.Set(KeyCreatedAt, d.Now().UTC())
		return m.UpdateStatus(next)
	}
}

// variablesStep resolves every [[variable]] of the raw prompt. Values come
// from the values file, then from the latest history config with the same
// variable set, then from the user.
func (d *Deps) variablesStep(cfg WorkflowConfig, next state.Status) state.Handler {
	return func(ctx context.Context, m *state.Machine) error {
		st := m.State()
		raw := st.GetString(KeyRawPrompt)
		names := prompt.Variables(raw)
		if len(names) == 0 {
			st.Set(KeyPrompt, raw)
			st.Set(KeyConfig, map[string]string{})
			st.Set(KeyConfigHash, "")
			return m.UpdateStatus(next)
		}

		hash := prompt.ConfigHash(prompt.Placeholders(raw))
		values := map[string]string{}
		if cfg.VarsFile != "" {
			loaded, err := prompt.LoadValues(d.Fs, cfg.VarsFile)
			if err != nil {
				return err
			}
			for _, name := range names {
				if v, ok := loaded[name]; ok {
					values[name] = v
				}
			}
		}

		if len(values) < len(names) {
			if err := d.reuseConfig(ctx, hash, names, values); err != nil {
				return err
			}
		}

		for _, name := range names {
			if _, ok := values[name]; ok {
				continue
			}
			v, err := d.askValue(name)
			if err != nil {
				return err
			}
			values[name] = v
		}

		rendered, err := prompt.Render(raw, values)
		if err != nil {
			return err
		}
		st.Set(KeyPrompt, rendered)
		st.Set(KeyConfig, values)
		st.Set(KeyConfigHash, hash)
		return m.UpdateStatus(next)
	}
}

// reuseConfig offers the most recent config saved for hash and fills the
// missing values from it when accepted
func (d *Deps) reuseConfig(ctx context.Context, hash string, names []string, values map[string]string) error {
	previous, found, err := d.History.LatestConfig(ctx, hash)
	if err != nil {
		return err
	}
	if !found {
		d.Console.Println("No config found", output.ColorRed)
		return nil
	}

	answer, err := d.Prompter.Ask(askUseConfig, "")
	if err != nil {
		return err
	}
	if a := cases.Fold().String(strings.TrimSpace(answer)); a == "n" || a == "no" {
		d.Console.Println("Not using config", output.ColorRed)
		return nil
	}

	d.Console.Println("Using config", output.ColorRed)
	for _, name := range names {
		if _, ok := values[name]; ok {
			continue
		}
		if v, ok := previous[name]; ok {
			values[name] = v
		}
	}
	return nil
}

// askValue prompts for one variable; the answer "file" reads the value from
// a file instead
func (d *Deps) askValue(name string) (string, error) {
	answer, err := d.Prompter.Ask(fmt.Sprintf("Enter value for %s. If outputs from file type 'file'.", name), "")
	if err != nil {
		return "", err
	}
	if answer != fileAnswer {
		return answer, nil
	}
	fileName, err := d.Prompter.Ask(askFileName, "")
	if err != nil {
		return "", err
	}
	data, err := afero.ReadFile(d.Fs, fileName)
	if err != nil {
		return "", fmt.Errorf("read value of %s: %w", name, err)
	}
	return string(data), nil
}

// stream sends messages and prints each token. A cancelled context is not an
// error: the partial completion is returned with interrupted set.
func (d *Deps) stream(ctx context.Context, cfg WorkflowConfig, messages []output.Message) (completion string, interrupted bool, seconds float64, err error) {
	start := d.Now()
	completion, err = d.Completion.Stream(ctx, output.CompletionRequest{
		Model:       cfg.Model,
		Messages:    messages,
		Temperature: cfg.Temperature,
		Stop:        cfg.Stop,
	}, func(chunk string) error {
		d.Console.Token(chunk)
		return nil
	})
	d.Console.Newline()
	seconds = d.Now().Sub(start).Seconds()

	if err != nil {
		if !errors.Is(err, context.Canceled) {
			return "", false, seconds, err
		}
		d.Console.Println("Keyboard interrupt detected. Saving data...", output.ColorRed)
		return completion, true, seconds, nil
	}
	return completion, false, seconds, nil
}

// baseRecord fills the record fields every run shares
func baseRecord(st *state.AuditedMap, cfg WorkflowConfig, runType repository.RunType) *repository.HistoryRecord {
	config, _ := st.Get(KeyConfig)
	values, _ := config.(map[string]string)
	created, _ := st.Get(KeyCreatedAt)
	createdAt, _ := created.(time.Time)

	return &repository.HistoryRecord{
		FileLocation: st.GetString(KeyFileLocation),
		Prompt:       st.GetString(KeyPrompt),
		RawPrompt:    st.GetString(KeyRawPrompt),
		Config:       values,
		ConfigHash:   st.GetString(KeyConfigHash),
		Model:        cfg.Model,
		Temperature:  cfg.Temperature,
		Type:         runType,
		CreatedAt:    createdAt,
	}
}

// highlightValues returns the substituted values in variable order
func highlightValues(st *state.AuditedMap) []string {
	config, _ := st.Get(KeyConfig)
	values, _ := config.(map[string]string)
	var out []string
	for _, name := range prompt.Variables(st.GetString(KeyRawPrompt)) {
		if v := values[name]; v != "" {
			out = append(out, v)
		}
	}
	return out
}
