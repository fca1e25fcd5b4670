package output

import "errors"

// Color names a terminal colour
type Color string

const (
	ColorNone    Color = ""
	ColorRed     Color = "red"
	ColorGreen   Color = "green"
	ColorBlue    Color = "blue"
	ColorYellow  Color = "yellow"
	ColorMagenta Color = "magenta"
	ColorWhite   Color = "white"
)

// UsageSummary is printed after every completion
type UsageSummary struct {
	Cost             float64
	PromptTokens     int
	CompletionTokens int
	ExecutionTime    float64 // seconds
}

// Console is the terminal output sink used by workflows
type Console interface {
	// Println prints text in color followed by a newline
	Println(text string, color Color)

	// Newline ends the current line
	Newline()

	// Separator prints a horizontal rule
	Separator()

	// Highlight prints text with every occurrence of matches emphasised
	Highlight(text string, matches []string)

	// Token prints one streamed piece of a completion without a newline
	Token(text string)

	// Message prints a chat message coloured by role
	Message(role Role, content string)

	// Summary prints cost, token counts and execution time
	Summary(s UsageSummary)

	// Clear clears the terminal
	Clear()
}

// Prompter asks the user for input
type Prompter interface {
	// Ask shows label and returns the answer, or def when the answer is empty
	Ask(label string, def string) (string, error)
}

// ErrPromptInterrupted is returned by a Prompter when the user aborts input
// (Ctrl-C or end of input)
var ErrPromptInterrupted = errors.New("prompt interrupted")
