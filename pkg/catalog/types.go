package catalog

import (
	"strings"
	"time"

	"helios-ai/relay/pkg/upstream"
)

// Model is one entry of the model catalog. It is immutable once built
// for a given snapshot; a refresh replaces entries wholesale rather
// than mutating them.
type Model struct {
	// ID is the model identifier in provider/name form.
	ID string `json:"id"`

	// Name is the human-readable display name.
	Name string `json:"name"`

	// Description is optional upstream-supplied prose.
	Description string `json:"description,omitempty"`

	// ContextLength is the maximum context window in tokens.
	ContextLength int `json:"context_length"`

	// PromptPrice and CompletionPrice are per-token unit costs as
	// decimal strings, exactly as the upstream reports them.
	PromptPrice     string `json:"prompt_price"`
	CompletionPrice string `json:"completion_price"`

	// Moderated reports whether the serving provider moderates content.
	Moderated bool `json:"moderated"`

	// MaxCompletionTokens is the completion cap, when the upstream
	// reports one.
	MaxCompletionTokens *int `json:"max_completion_tokens,omitempty"`

	// SupportedParameters lists the generation parameters the model
	// accepts.
	SupportedParameters []string `json:"supported_parameters,omitempty"`
}

// Provider returns the provider part of the identifier: the substring
// before the first "/". Identifiers without a slash have no provider.
func (m Model) Provider() string {
	if idx := strings.Index(m.ID, "/"); idx >= 0 {
		return m.ID[:idx]
	}
	return ""
}

// BaseName returns the identifier after the provider prefix.
func (m Model) BaseName() string {
	if idx := strings.Index(m.ID, "/"); idx >= 0 {
		return m.ID[idx+1:]
	}
	return m.ID
}

// matches reports whether the model matches a case-insensitive
// substring query against identifier, name, or description.
func (m Model) matches(query string) bool {
	q := strings.ToLower(query)
	return strings.Contains(strings.ToLower(m.ID), q) ||
		strings.Contains(strings.ToLower(m.Name), q) ||
		strings.Contains(strings.ToLower(m.Description), q)
}

// newModel converts an upstream catalog entry into a Model.
func newModel(src upstream.CatalogModel) Model {
	return Model{
		ID:                  src.ID,
		Name:                src.Name,
		Description:         src.Description,
		ContextLength:       src.ContextLength,
		PromptPrice:         src.Pricing.Prompt,
		CompletionPrice:     src.Pricing.Completion,
		Moderated:           src.TopProvider.IsModerated,
		MaxCompletionTokens: src.TopProvider.MaxCompletionTokens,
		SupportedParameters: src.SupportedParameters,
	}
}

// snapshot is one internally consistent view of the catalog: every
// entry comes from the same fetch. Readers hold a snapshot pointer;
// refresh swaps the pointer atomically so a partial catalog is never
// observable.
type snapshot struct {
	models    map[string]Model
	fetchedAt time.Time
}
