package presenter

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/YoshitsuguKoike/llmhelper/internal/application/port/output"
	"github.com/YoshitsuguKoike/llmhelper/internal/domain/prompt"
)

const separatorWidth = 50

// token background colours in print-tokens mode, in cycle order
var tokenCycle = []output.Color{
	output.ColorBlue,
	output.ColorYellow,
	output.ColorGreen,
	output.ColorRed,
	output.ColorMagenta,
}

var roleColors = map[output.Role]output.Color{
	output.RoleUser:      output.ColorRed,
	output.RoleSystem:    output.ColorGreen,
	output.RoleAssistant: output.ColorBlue,
}

// ConsolePresenter implements output.Console for a terminal
type ConsolePresenter struct {
	out         io.Writer
	renderer    *lipgloss.Renderer
	printTokens bool // colour every token's background to show token boundaries
	noClear     bool
	tokenIdx    int
}

// ConsoleOption configures a ConsolePresenter
type ConsoleOption func(*ConsolePresenter)

// WithPrintTokens enables token boundary colouring
func WithPrintTokens(enabled bool) ConsoleOption {
	return func(p *ConsolePresenter) { p.printTokens = enabled }
}

// WithNoClear turns Clear into a no-op
func WithNoClear(disabled bool) ConsoleOption {
	return func(p *ConsolePresenter) { p.noClear = disabled }
}

// NewConsolePresenter creates a presenter writing to out. Colours are only
// emitted when out is a colour-capable terminal.
func NewConsolePresenter(out io.Writer, opts ...ConsoleOption) *ConsolePresenter {
	p := &ConsolePresenter{
		out:      out,
		renderer: lipgloss.NewRenderer(out),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *ConsolePresenter) style(color output.Color) lipgloss.Style {
	s := p.renderer.NewStyle().TabWidth(lipgloss.NoTabConversion)
	if c, ok := ansiColor(color); ok {
		s = s.Foreground(c)
	}
	return s
}

// render styles each line on its own so multi-line text is not padded into
// a block
func render(s lipgloss.Style, text string) string {
	if !strings.Contains(text, "\n") {
		return s.Render(text)
	}
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if line != "" {
			lines[i] = s.Render(line)
		}
	}
	return strings.Join(lines, "\n")
}

// Println prints text in color followed by a newline
func (p *ConsolePresenter) Println(text string, color output.Color) {
	fmt.Fprintln(p.out, render(p.style(color), text))
}

// Newline ends the current line
func (p *ConsolePresenter) Newline() {
	fmt.Fprintln(p.out)
}

// Separator prints a horizontal rule
func (p *ConsolePresenter) Separator() {
	p.Println(strings.Repeat("-", separatorWidth), output.ColorNone)
}

// Highlight prints text green with every match in bold red
func (p *ConsolePresenter) Highlight(text string, matches []string) {
	plain := p.style(output.ColorGreen)
	marked := p.style(output.ColorRed).Bold(true)

	var b strings.Builder
	for _, seg := range prompt.Highlight(text, matches) {
		if seg.Match {
			b.WriteString(render(marked, seg.Text))
		} else {
			b.WriteString(render(plain, seg.Text))
		}
	}
	fmt.Fprintln(p.out, b.String())
}

// Token prints one streamed piece of a completion
func (p *ConsolePresenter) Token(text string) {
	if !p.printTokens {
		fmt.Fprint(p.out, render(p.style(output.ColorBlue), text))
		return
	}
	p.tokenIdx = (p.tokenIdx + 1) % len(tokenCycle)
	s := p.renderer.NewStyle().TabWidth(lipgloss.NoTabConversion)
	if c, ok := ansiColor(tokenCycle[p.tokenIdx]); ok {
		s = s.Background(c)
	}
	fmt.Fprint(p.out, render(s, text))
}

// Message prints "role: content" coloured by role
func (p *ConsolePresenter) Message(role output.Role, content string) {
	p.Println(fmt.Sprintf("%s: %s", role, content), roleColors[role])
}

// Summary prints cost, token counts and execution time
func (p *ConsolePresenter) Summary(s output.UsageSummary) {
	p.Println(fmt.Sprintf("Cost: $%.5f", s.Cost), output.ColorRed)
	p.Println(fmt.Sprintf("Prompt tokens: %d, Completion tokens: %d", s.PromptTokens, s.CompletionTokens), output.ColorRed)
	p.Println(fmt.Sprintf("Total tokens processed: %d", s.PromptTokens+s.CompletionTokens), output.ColorRed)
	p.Println(fmt.Sprintf("Execution time: %.2f seconds", s.ExecutionTime), output.ColorRed)
}

// Clear clears the screen and moves the cursor home
func (p *ConsolePresenter) Clear() {
	if p.noClear {
		return
	}
	fmt.Fprint(p.out, "\033[H\033[2J")
}

// ansiColor maps a colour name onto the basic 16-colour palette
func ansiColor(color output.Color) (lipgloss.Color, bool) {
	switch color {
	case output.ColorRed:
		return lipgloss.Color("1"), true
	case output.ColorGreen:
		return lipgloss.Color("2"), true
	case output.ColorYellow:
		return lipgloss.Color("3"), true
	case output.ColorBlue:
		return lipgloss.Color("4"), true
	case output.ColorMagenta:
		return lipgloss.Color("5"), true
	case output.ColorWhite:
		return lipgloss.Color("7"), true
	default:
		return "", false
	}
}
