package llm

import "strings"

// Token pricing per 1M tokens (USD).
var pricing = map[string]modelPrice{
	"gemini-2.5-flash":      {Input: 0.30, Output: 2.50},
	"gemini-2.5-flash-lite": {Input: 0.10, Output: 0.40},
	"gemini-2.5-pro":        {Input: 1.25, Output: 10.00},
	"gemini-2.0-flash":      {Input: 0.10, Output: 0.40},
	"gemini-1.5-flash":      {Input: 0.075, Output: 0.30},

	"gpt-4o":      {Input: 2.50, Output: 10.00},
	"gpt-4o-mini": {Input: 0.15, Output: 0.60},
}

type modelPrice struct {
	Input  float64
	Output float64
}

// EstimateCost returns the estimated cost in USD for the given model and token counts.
// Unknown models cost 0. The compatibility endpoint reports models as "models/<name>".
func EstimateCost(model string, tokensIn, tokensOut int) float64 {
	p, ok := pricing[strings.TrimPrefix(model, "models/")]
	if !ok {
		return 0
	}
	return (float64(tokensIn) * p.Input / 1_000_000) + (float64(tokensOut) * p.Output / 1_000_000)
}
