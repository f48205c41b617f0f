// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

// Price holds per-million-token USD prices for one model.
type Price struct {
	Input  float64
	Output float64
}

// pricing is the static per-1M-token price table, keyed by model
// identifier.
var pricing = map[string]Price{
	// Anthropic
	"claude-sonnet-4-5-20250929": {Input: 3.0, Output: 15.0},
	"claude-opus-4-6":            {Input: 15.0, Output: 75.0},
	// OpenAI
	"gpt-4o":      {Input: 2.5, Output: 10.0},
	"gpt-4o-mini": {Input: 0.15, Output: 0.60},
}

// defaultPrice is used for models missing from the table. Unknown
// models never fail cost estimation.
var defaultPrice = Price{Input: 5.0, Output: 15.0}

// EstimateCost returns the estimated USD cost of one call:
// inputTokens*inputPrice + outputTokens*outputPrice, prices per million
// tokens. Pure function with no state.
func EstimateCost(model string, inputTokens, outputTokens int) float64 {
	p, ok := pricing[model]
	if !ok {
		p = defaultPrice
	}
	return float64(inputTokens)*p.Input/1e6 + float64(outputTokens)*p.Output/1e6
}
