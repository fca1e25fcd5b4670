package workflow

import "github.com/YoshitsuguKoike/llmhelper/internal/application/port/output"

// TurnStats holds the accounting of one completion
type TurnStats struct {
	PromptTokens     int
	CompletionTokens int
	Cost             float64
	ExecutionTime    float64 // seconds
}

// TokensProcessed returns prompt plus completion tokens
func (s TurnStats) TokensProcessed() int {
	return s.PromptTokens + s.CompletionTokens
}

// Summary converts the stats for the console
func (s TurnStats) Summary() output.UsageSummary {
	return output.UsageSummary{
		Cost:             s.Cost,
		PromptTokens:     s.PromptTokens,
		CompletionTokens: s.CompletionTokens,
		ExecutionTime:    s.ExecutionTime,
	}
}

// measure counts tokens and prices one completion
func (d *Deps) measure(model string, promptText, completion string, seconds float64) (TurnStats, error) {
	stats := TurnStats{
		PromptTokens:     d.Tokens.Count(model, promptText),
		CompletionTokens: d.Tokens.Count(model, completion),
		ExecutionTime:    seconds,
	}
	cost, err := d.Prices.Cost(stats.PromptTokens, stats.CompletionTokens, model)
	if err != nil {
		return stats, err
	}
	stats.Cost = cost
	return stats, nil
}
