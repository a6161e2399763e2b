package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCandidateMatch_Qualifier(t *testing.T) {
	c := CandidateMatch{View: "I_SalesOrder", Field: "SalesOrderID"}
	assert.Equal(t, "I_SalesOrder.SalesOrderID", c.Qualifier())

	c.View = ""
	assert.Equal(t, "SalesOrderID", c.Qualifier())
}

func TestBatchOutcome_Success(t *testing.T) {
	o := &BatchOutcome{Stats: BatchStats{Total: 3, Matched: 2, Unmatched: 1}}
	assert.True(t, o.Success())

	o.Stats.Errored = 1
	assert.False(t, o.Success())
}

func TestTokenUsage_Add(t *testing.T) {
	var u TokenUsage
	u.Add(TokenUsage{EmbeddingTokens: 5, InputTokens: 10, OutputTokens: 2})
	u.Add(TokenUsage{InputTokens: 1})

	assert.Equal(t, int64(5), u.EmbeddingTokens)
	assert.Equal(t, int64(11), u.InputTokens)
	assert.Equal(t, int64(18), u.Total())
}
