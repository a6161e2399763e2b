package cost

import "github.com/crosslogic/fieldmap-cli/internal/model"

// ModelRate holds per-model token pricing (USD per million tokens).
type ModelRate struct {
	Input     float64 `yaml:"input" mapstructure:"input"`
	Output    float64 `yaml:"output" mapstructure:"output"`
	Embedding float64 `yaml:"embedding" mapstructure:"embedding"`
}

// Rates maps provider name to pricing.
type Rates map[string]ModelRate

// Calculator computes USD costs for recorded token usage.
type Calculator struct {
	rates Rates
}

// NewCalculator creates a Calculator with the given rates.
func NewCalculator(rates Rates) *Calculator {
	return &Calculator{rates: rates}
}

// Provider computes the cost of the given usage for one provider.
// Unknown providers cost zero.
func (c *Calculator) Provider(provider string, u model.TokenUsage) float64 {
	rate, ok := c.rates[provider]
	if !ok {
		return 0
	}

	inCost := (float64(u.InputTokens) / 1e6) * rate.Input
	outCost := (float64(u.OutputTokens) / 1e6) * rate.Output
	embCost := (float64(u.EmbeddingTokens) / 1e6) * rate.Embedding

	return inCost + outCost + embCost
}

// Session computes the total cost across per-provider usage totals.
func (c *Calculator) Session(byProvider map[string]model.TokenUsage) float64 {
	total := 0.0
	for provider, u := range byProvider {
		total += c.Provider(provider, u)
	}
	return total
}

// DefaultRates returns the default pricing rates.
func DefaultRates() Rates {
	return Rates{
		"claude": {Input: 3.00, Output: 15.00, Embedding: 0.10},
		"gemini": {Input: 1.25, Output: 10.00, Embedding: 0.15},
	}
}
