// Package pricing maps token counts to estimated cost using a
// per-model rate table with substring fallback and a default rate.
package pricing

import (
	"strings"
	"sync"
)

// Rate is the cost per 1000 tokens for one model, in USD.
type Rate struct {
	// Prompt is the cost per 1K prompt tokens.
	Prompt float64 `yaml:"prompt" json:"prompt"`

	// Completion is the cost per 1K completion tokens.
	Completion float64 `yaml:"completion" json:"completion"`
}

// DefaultRate applies when no table entry matches the model. An
// unrecognized model is billed at this rate, never at zero.
var DefaultRate = Rate{Prompt: 0.002, Completion: 0.002}

// defaultTable covers widely used model families. Keys are base names
// (the identifier after the provider prefix).
func defaultTable() map[string]Rate {
	return map[string]Rate{
		"gpt-4o":        {Prompt: 0.0025, Completion: 0.01},
		"gpt-4o-mini":   {Prompt: 0.00015, Completion: 0.0006},
		"gpt-4-turbo":   {Prompt: 0.01, Completion: 0.03},
		"gpt-3.5-turbo": {Prompt: 0.0005, Completion: 0.0015},
		"claude-3-opus": {Prompt: 0.015, Completion: 0.075},
		"claude-3-5-sonnet": {Prompt: 0.003, Completion: 0.015},
		"claude-3-haiku":    {Prompt: 0.00025, Completion: 0.00125},
		"llama-3.1-70b":     {Prompt: 0.0006, Completion: 0.0008},
		"mistral-large":     {Prompt: 0.002, Completion: 0.006},
	}
}

// Calculator resolves model rates and computes costs. It is safe for
// concurrent use and supports hot-reload of the rate table.
type Calculator struct {
	mu    sync.RWMutex
	table map[string]Rate
}

// NewCalculator creates a calculator. A nil table selects the built-in
// defaults; a caller-supplied table is merged over them.
func NewCalculator(table map[string]Rate) *Calculator {
	merged := defaultTable()
	for k, v := range table {
		merged[k] = v
	}
	return &Calculator{table: merged}
}

// Update replaces caller-supplied entries in the rate table. Built-in
// defaults stay in place for models the new table does not mention.
func (c *Calculator) Update(table map[string]Rate) {
	merged := defaultTable()
	for k, v := range table {
		merged[k] = v
	}

	c.mu.Lock()
	c.table = merged
	c.mu.Unlock()
}

// RateFor resolves the rate for a model identifier. The identifier's
// base name (after the provider prefix) is tried as an exact table key,
// then as a substring match against table keys, then the default rate.
func (c *Calculator) RateFor(model string) Rate {
	base := model
	if idx := strings.Index(model, "/"); idx >= 0 {
		base = model[idx+1:]
	}
	base = strings.ToLower(base)

	c.mu.RLock()
	defer c.mu.RUnlock()

	if rate, ok := c.table[base]; ok {
		return rate
	}

	for key, rate := range c.table {
		if strings.Contains(base, key) {
			return rate
		}
	}

	return DefaultRate
}

// Cost computes the estimated cost in USD for the given token counts:
// (prompt/1000 x promptRate) + (completion/1000 x completionRate).
func (c *Calculator) Cost(model string, promptTokens, completionTokens int) float64 {
	rate := c.RateFor(model)
	return float64(promptTokens)/1000.0*rate.Prompt +
		float64(completionTokens)/1000.0*rate.Completion
}
