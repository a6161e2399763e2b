package cost

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/crosslogic/fieldmap-cli/internal/model"
)

func TestCalculator_Provider(t *testing.T) {
	c := NewCalculator(Rates{
		"claude": {Input: 3.00, Output: 15.00, Embedding: 0.10},
	})

	u := model.TokenUsage{EmbeddingTokens: 1_000_000, InputTokens: 2_000_000, OutputTokens: 1_000_000}
	assert.InDelta(t, 0.10+6.00+15.00, c.Provider("claude", u), 1e-9)
}

func TestCalculator_UnknownProvider(t *testing.T) {
	c := NewCalculator(DefaultRates())
	assert.Zero(t, c.Provider("mystery", model.TokenUsage{InputTokens: 1_000_000}))
}

func TestCalculator_Session(t *testing.T) {
	c := NewCalculator(Rates{
		"claude": {Input: 1.00},
		"gemini": {Input: 2.00},
	})
	total := c.Session(map[string]model.TokenUsage{
		"claude": {InputTokens: 1_000_000},
		"gemini": {InputTokens: 1_000_000},
	})
	assert.InDelta(t, 3.00, total, 1e-9)
}
