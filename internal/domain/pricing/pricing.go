// Package pricing computes the dollar cost of a completion from token counts
package pricing

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrUnknownModel matches every UnknownModelError
var ErrUnknownModel = errors.New("unknown model")

// UnknownModelError reports a pricing lookup for a model with no entry
type UnknownModelError struct {
	Model string
	Known []string // priced models, sorted
}

// Error implements the error interface
func (e *UnknownModelError) Error() string {
	if len(e.Known) == 0 {
		return fmt.Sprintf("[UNKNOWN_MODEL] unknown model: %s", e.Model)
	}
	return fmt.Sprintf("[UNKNOWN_MODEL] unknown model: %s (priced: %s)", e.Model, strings.Join(e.Known, ", "))
}

// Is lets errors.Is match ErrUnknownModel
func (e *UnknownModelError) Is(target error) bool {
	return target == ErrUnknownModel
}

// Price is the USD cost per 1000 tokens
type Price struct {
	PromptPer1K     float64 `json:"prompt_per_1k" yaml:"prompt_per_1k"`
	CompletionPer1K float64 `json:"completion_per_1k" yaml:"completion_per_1k"`
}

// Table maps a model identifier to its price
type Table map[string]Price

// Default returns the built-in price table
func Default() Table {
	return Table{
		"gpt-4":             {PromptPer1K: 0.03, CompletionPer1K: 0.06},
		"gpt-4-32k":         {PromptPer1K: 0.06, CompletionPer1K: 0.12},
		"gpt-3.5-turbo":     {PromptPer1K: 0.002, CompletionPer1K: 0.002},
		"gpt-3.5-turbo-16k": {PromptPer1K: 0.003, CompletionPer1K: 0.004},
	}
}

// WithOverrides returns a copy of t with overrides applied on top
func (t Table) WithOverrides(overrides map[string]Price) Table {
	out := make(Table, len(t)+len(overrides))
	for model, p := range t {
		out[model] = p
	}
	for model, p := range overrides {
		out[model] = p
	}
	return out
}

// Models returns the priced model identifiers in sorted order
func (t Table) Models() []string {
	models := make([]string, 0, len(t))
	for m := range t {
		models = append(models, m)
	}
	sort.Strings(models)
	return models
}

// Lookup returns the price of model
func (t Table) Lookup(model string) (Price, error) {
	p, ok := t[model]
	if !ok {
		return Price{}, &UnknownModelError{Model: model, Known: t.Models()}
	}
	return p, nil
}

// Cost returns the USD cost of a completion. Unknown models fail instead of
// costing zero.
func (t Table) Cost(promptTokens, completionTokens int, model string) (float64, error) {
	p, err := t.Lookup(model)
	if err != nil {
		return 0, err
	}
	return float64(promptTokens)*p.PromptPer1K/1000 + float64(completionTokens)*p.CompletionPer1K/1000, nil
}
