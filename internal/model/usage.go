package model

// TokenUsage tallies token consumption for one or more port calls.
type TokenUsage struct {
	EmbeddingTokens int64 `json:"embedding_tokens"`
	InputTokens     int64 `json:"input_tokens"`
	OutputTokens    int64 `json:"output_tokens"`
}

// Add accumulates another usage record into u.
func (u *TokenUsage) Add(other TokenUsage) {
	u.EmbeddingTokens += other.EmbeddingTokens
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
}

// Total returns the combined token count.
func (u TokenUsage) Total() int64 {
	return u.EmbeddingTokens + u.InputTokens + u.OutputTokens
}
