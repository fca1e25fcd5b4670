package pricing

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTable_Cost(t *testing.T) {
	table := Default()

	tests := []struct {
		name             string
		model            string
		promptTokens     int
		completionTokens int
		want             float64
	}{
		{"gpt-4 prompt only", "gpt-4", 1000, 0, 0.03},
		{"gpt-4 completion only", "gpt-4", 0, 1000, 0.06},
		{"gpt-4 mixed", "gpt-4", 500, 250, 0.015 + 0.015},
		{"gpt-3.5-turbo flat rate", "gpt-3.5-turbo", 600, 400, 0.002},
		{"zero tokens", "gpt-4", 0, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := table.Cost(tt.promptTokens, tt.completionTokens, tt.model)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-12)
		})
	}
}

func TestTable_Cost_IsDeterministic(t *testing.T) {
	table := Default()
	first, err := table.Cost(1234, 567, "gpt-4")
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := table.Cost(1234, 567, "gpt-4")
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestTable_Cost_UnknownModel(t *testing.T) {
	cost, err := Default().Cost(10, 10, "text-davinci-003")
	require.Error(t, err)
	assert.Zero(t, cost)
	assert.True(t, errors.Is(err, ErrUnknownModel))

	var unknown *UnknownModelError
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, "text-davinci-003", unknown.Model)
	assert.Equal(t, []string{"gpt-3.5-turbo", "gpt-3.5-turbo-16k", "gpt-4", "gpt-4-32k"}, unknown.Known)
	assert.Contains(t, err.Error(), "(priced: gpt-3.5-turbo, gpt-3.5-turbo-16k, gpt-4, gpt-4-32k)")
}

func TestTable_WithOverrides(t *testing.T) {
	base := Default()
	table := base.WithOverrides(map[string]Price{
		"gpt-4":     {PromptPer1K: 1, CompletionPer1K: 2},
		"local-llm": {},
	})

	cost, err := table.Cost(1000, 1000, "gpt-4")
	require.NoError(t, err)
	assert.InDelta(t, 3.0, cost, 1e-12)

	cost, err = table.Cost(1000, 1000, "local-llm")
	require.NoError(t, err)
	assert.Zero(t, cost)

	original, err := base.Cost(1000, 0, "gpt-4")
	require.NoError(t, err)
	assert.InDelta(t, 0.03, original, 1e-12)

	assert.Contains(t, table.Models(), "local-llm")
}
