package cli

import (
	"errors"
	"io"

	"github.com/manifoldco/promptui"

	"github.com/YoshitsuguKoike/llmhelper/internal/application/port/output"
)

// terminalPrompter implements output.Prompter with promptui
type terminalPrompter struct {
	stdin  io.ReadCloser
	stdout io.WriteCloser
}

// NewTerminalPrompter creates a prompter reading answers from stdin.
// Nil readers and writers fall back to the process terminal.
func NewTerminalPrompter(stdin io.ReadCloser, stdout io.WriteCloser) output.Prompter {
	return &terminalPrompter{stdin: stdin, stdout: stdout}
}

var promptTemplates = &promptui.PromptTemplates{
	Prompt:  "{{ . | red }}: ",
	Valid:   "{{ . | red }}: ",
	Invalid: "{{ . | red }}: ",
	Success: "{{ . | red }}: ",
}

// Ask shows label in red and returns the typed line, or def when it is empty
func (p *terminalPrompter) Ask(label string, def string) (string, error) {
	prompt := promptui.Prompt{
		Label:     label,
		Default:   def,
		Templates: promptTemplates,
		Stdin:     p.stdin,
		Stdout:    p.stdout,
	}
	answer, err := prompt.Run()
	if err != nil {
		if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) || errors.Is(err, promptui.ErrAbort) {
			return "", output.ErrPromptInterrupted
		}
		return "", err
	}
	if answer == "" {
		return def, nil
	}
	return answer, nil
}
