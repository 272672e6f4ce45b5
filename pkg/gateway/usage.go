package gateway

import (
	"helios-ai/relay/pkg/pricing"
	"helios-ai/relay/pkg/proxy/types"
	"helios-ai/relay/pkg/tokens"
	"helios-ai/relay/pkg/upstream"
)

// usageAccumulator tracks the running usage estimate for one stream.
// It is owned by the goroutine draining that stream and discarded once
// the terminal event is emitted.
type usageAccumulator struct {
	model           string
	promptTokens    int
	completionChars int
	calculator      *pricing.Calculator
}

// newUsageAccumulator estimates prompt tokens up front from the
// serialized request messages.
func newUsageAccumulator(req *upstream.ChatRequest, calc *pricing.Calculator) *usageAccumulator {
	return &usageAccumulator{
		model:        req.Model,
		promptTokens: tokens.EstimateMessages(req.Messages),
		calculator:   calc,
	}
}

// add records the characters of one emitted content delta.
func (a *usageAccumulator) add(delta string) {
	a.completionChars += len(delta)
}

// finalize produces the synthesized usage block. Completion tokens use
// the same character heuristic as the prompt estimate; cost applies the
// pricing table to both counts.
func (a *usageAccumulator) finalize() types.Usage {
	completionTokens := 0
	if a.completionChars > 0 {
		completionTokens = (a.completionChars + tokens.CharsPerToken - 1) / tokens.CharsPerToken
	}

	return types.Usage{
		PromptTokens:     a.promptTokens,
		CompletionTokens: completionTokens,
		TotalTokens:      a.promptTokens + completionTokens,
		EstimatedCost:    a.calculator.Cost(a.model, a.promptTokens, completionTokens),
	}
}
