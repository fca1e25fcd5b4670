package tokenizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTiktoken_Empty(t *testing.T) {
	assert.Equal(t, 0, Tiktoken{}.Count("gpt-4", ""))
}

func TestTiktoken_NonEmptyIsPositive(t *testing.T) {
	n := Tiktoken{}.Count("gpt-4", "The quick brown fox jumps over the lazy dog.")
	assert.Greater(t, n, 0)
}

func TestTiktoken_UnknownModelFallsBack(t *testing.T) {
	n := Tiktoken{}.Count("no-such-model", "some words to count")
	assert.Greater(t, n, 0)
}
