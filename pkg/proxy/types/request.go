package types

import "helios-ai/relay/pkg/upstream"

// ChatCompletionRequest is the caller-facing chat completion request.
// Generation parameters are passed through to the upstream verbatim;
// the proxy owns only the streaming flag, which is forced by the code
// path handling the request.
type ChatCompletionRequest struct {
	// Model is the model identifier in provider/name form.
	Model string `json:"model"`

	// Messages is the conversation history.
	Messages []upstream.Message `json:"messages"`

	// Stream requests SSE streaming on the single-shot surface.
	Stream bool `json:"stream,omitempty"`

	// Generation parameters, forwarded unchanged.
	Temperature       *float64        `json:"temperature,omitempty"`
	MaxTokens         *int            `json:"max_tokens,omitempty"`
	TopP              *float64        `json:"top_p,omitempty"`
	TopK              *int            `json:"top_k,omitempty"`
	FrequencyPenalty  *float64        `json:"frequency_penalty,omitempty"`
	PresencePenalty   *float64        `json:"presence_penalty,omitempty"`
	RepetitionPenalty *float64        `json:"repetition_penalty,omitempty"`
	Seed              *int            `json:"seed,omitempty"`
	Stop              []string        `json:"stop,omitempty"`
	ResponseFormat    interface{}     `json:"response_format,omitempty"`
	Tools             []upstream.Tool `json:"tools,omitempty"`
	ToolChoice        interface{}     `json:"tool_choice,omitempty"`
	ParallelToolCalls *bool           `json:"parallel_tool_calls,omitempty"`
	User              string          `json:"user,omitempty"`
}

// ToUpstream builds the upstream request, copying every generation
// parameter unchanged. The Stream flag is set by the caller's code
// path, not copied from the inbound request.
func (r *ChatCompletionRequest) ToUpstream() *upstream.ChatRequest {
	return &upstream.ChatRequest{
		Model:             r.Model,
		Messages:          r.Messages,
		Temperature:       r.Temperature,
		MaxTokens:         r.MaxTokens,
		TopP:              r.TopP,
		TopK:              r.TopK,
		FrequencyPenalty:  r.FrequencyPenalty,
		PresencePenalty:   r.PresencePenalty,
		RepetitionPenalty: r.RepetitionPenalty,
		Seed:              r.Seed,
		Stop:              r.Stop,
		ResponseFormat:    r.ResponseFormat,
		Tools:             r.Tools,
		ToolChoice:        r.ToolChoice,
		ParallelToolCalls: r.ParallelToolCalls,
		User:              r.User,
	}
}
