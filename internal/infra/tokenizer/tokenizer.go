// Package tokenizer counts tokens the way the completion provider bills them
package tokenizer

import (
	"github.com/tmc/langchaingo/llms"

	"github.com/YoshitsuguKoike/llmhelper/internal/application/port/output"
)

// Tiktoken uses the model's tiktoken encoding. Models without a known
// encoding fall back to a character-based estimate.
type Tiktoken struct{}

// Count returns the number of tokens in text
func (Tiktoken) Count(model, text string) int {
	if text == "" {
		return 0
	}
	return llms.CountTokens(model, text)
}

var _ output.TokenCounter = Tiktoken{}
