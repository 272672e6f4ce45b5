package types

import "helios-ai/relay/pkg/upstream"

// ChatCompletionResponse is the caller-facing single-shot response.
type ChatCompletionResponse struct {
	ID      string   `json:"id"`
	Object  string   `json:"object"`
	Created int64    `json:"created"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
	Usage   Usage    `json:"usage"`
}

// Choice reduces one upstream choice to finish reason plus message.
type Choice struct {
	Index        int                      `json:"index"`
	Message      upstream.ResponseMessage `json:"message"`
	FinishReason string                   `json:"finish_reason"`
}

// Usage is the caller-facing token accounting block. Cost is the
// estimated charge derived from the pricing table; token counts on the
// streaming path are character-based approximations.
type Usage struct {
	PromptTokens     int     `json:"prompt_tokens"`
	CompletionTokens int     `json:"completion_tokens"`
	TotalTokens      int     `json:"total_tokens"`
	EstimatedCost    float64 `json:"estimated_cost,omitempty"`
}

// ChatCompletionChunk is one SSE frame of the streaming response.
type ChatCompletionChunk struct {
	ID      string         `json:"id"`
	Object  string         `json:"object"`
	Created int64          `json:"created"`
	Model   string         `json:"model"`
	Choices []StreamChoice `json:"choices"`

	// Usage appears only on the synthesized terminal frame.
	Usage *Usage `json:"usage,omitempty"`
}

// StreamChoice carries the incremental delta for one choice.
type StreamChoice struct {
	Index        int     `json:"index"`
	Delta        Delta   `json:"delta"`
	FinishReason *string `json:"finish_reason"`
}

// Delta is the incremental content of a streaming chunk.
type Delta struct {
	Role      string              `json:"role,omitempty"`
	Content   string              `json:"content,omitempty"`
	ToolCalls []upstream.ToolCall `json:"tool_calls,omitempty"`
}
