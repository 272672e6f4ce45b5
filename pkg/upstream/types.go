package upstream

// ChatRequest is the request body sent to the upstream chat completions
// endpoint. Caller-supplied generation parameters are carried through
// verbatim; only Stream is owned by this package.
type ChatRequest struct {
	// Model is the model identifier in provider/name form.
	Model string `json:"model"`

	// Messages is the conversation history.
	Messages []Message `json:"messages"`

	// Stream selects the chunked streaming response. It is forced by the
	// code path (Complete vs StreamComplete), never by the caller.
	Stream bool `json:"stream,omitempty"`

	// Generation parameters, passed through unchanged from the caller.
	Temperature       *float64    `json:"temperature,omitempty"`
	MaxTokens         *int        `json:"max_tokens,omitempty"`
	TopP              *float64    `json:"top_p,omitempty"`
	TopK              *int        `json:"top_k,omitempty"`
	FrequencyPenalty  *float64    `json:"frequency_penalty,omitempty"`
	PresencePenalty   *float64    `json:"presence_penalty,omitempty"`
	RepetitionPenalty *float64    `json:"repetition_penalty,omitempty"`
	Seed              *int        `json:"seed,omitempty"`
	Stop              []string    `json:"stop,omitempty"`
	ResponseFormat    interface{} `json:"response_format,omitempty"`
	Tools             []Tool      `json:"tools,omitempty"`
	ToolChoice        interface{} `json:"tool_choice,omitempty"`
	ParallelToolCalls *bool       `json:"parallel_tool_calls,omitempty"`
	User              string      `json:"user,omitempty"`
}

// Message is a single conversation message.
type Message struct {
	// Role identifies the message sender (system, user, assistant, tool).
	Role string `json:"role"`

	// Content is the message content. Usually a string; multimodal
	// callers may send an array of content parts, which is forwarded
	// as-is.
	Content interface{} `json:"content"`

	// Name is an optional sender name.
	Name string `json:"name,omitempty"`

	// ToolCalls contains tool calls made by the assistant.
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`

	// ToolCallID references the tool call a tool message responds to.
	ToolCallID string `json:"tool_call_id,omitempty"`
}

// Tool is a tool/function definition the model may call.
type Tool struct {
	Type     string             `json:"type"`
	Function FunctionDefinition `json:"function"`
}

// FunctionDefinition defines a callable function.
type FunctionDefinition struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description,omitempty"`
	Parameters  map[string]interface{} `json:"parameters,omitempty"`
}

// ToolCall is a function call request emitted by the model.
type ToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function FunctionCall `json:"function"`
}

// FunctionCall carries the function name and its JSON-encoded arguments.
type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// Usage is the token accounting block attached to responses.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ChatResponse is the upstream response body for a non-streaming request.
type ChatResponse struct {
	ID      string   `json:"id"`
	Model   string   `json:"model"`
	Created int64    `json:"created"`
	Choices []Choice `json:"choices"`

	// Usage may be absent; callers treat a missing block as zeroed.
	Usage *Usage `json:"usage,omitempty"`
}

// Choice is one completion alternative in a non-streaming response.
type Choice struct {
	Index        int             `json:"index"`
	Message      ResponseMessage `json:"message"`
	FinishReason string          `json:"finish_reason"`
}

// ResponseMessage is the assistant message inside a choice.
type ResponseMessage struct {
	Role      string     `json:"role"`
	Content   string     `json:"content"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
}

// streamPayload is the JSON object carried by one streaming frame.
// It is decoded at the parse boundary and reduced to a ChunkEvent;
// downstream consumers never re-inspect the raw shape.
type streamPayload struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Created int64  `json:"created"`
	Choices []struct {
		Index int `json:"index"`
		Delta struct {
			Role      string     `json:"role"`
			Content   string     `json:"content"`
			ToolCalls []ToolCall `json:"tool_calls"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
	Usage *Usage `json:"usage"`
}

// EventKind discriminates the variants of a ChunkEvent.
type EventKind int

const (
	// EventDelta carries incremental content.
	EventDelta EventKind = iota

	// EventFinish carries the finish reason and, when the upstream
	// includes it, the aggregate usage for the stream.
	EventFinish
)

// ChunkEvent is one application-level event decoded from the upstream
// byte stream. Events are produced in the exact order the stream implies.
type ChunkEvent struct {
	// Kind selects the variant. It is decided once, when the frame is
	// parsed, and never re-derived from field inspection.
	Kind EventKind

	// ID is the upstream response identifier (stable across chunks).
	ID string

	// Model is the model generating the response.
	Model string

	// Delta is the incremental content (EventDelta).
	Delta string

	// ToolCalls carries incremental tool call fragments, if any.
	ToolCalls []ToolCall

	// FinishReason is set on EventFinish.
	FinishReason string

	// Usage is set on EventFinish when the upstream reports it.
	Usage *Usage

	// Created is the Unix timestamp reported by the upstream.
	Created int64
}

// CatalogModel is one entry of the upstream model catalog listing.
type CatalogModel struct {
	ID            string       `json:"id"`
	Name          string       `json:"name"`
	Description   string       `json:"description,omitempty"`
	ContextLength int          `json:"context_length"`
	Pricing       ModelPricing `json:"pricing"`
	TopProvider   struct {
		MaxCompletionTokens *int `json:"max_completion_tokens"`
		IsModerated         bool `json:"is_moderated"`
	} `json:"top_provider"`
	SupportedParameters []string `json:"supported_parameters,omitempty"`
}

// ModelPricing carries per-token unit costs as decimal strings, exactly
// as the upstream reports them.
type ModelPricing struct {
	Prompt     string `json:"prompt"`
	Completion string `json:"completion"`
}

// catalogResponse is the envelope of the upstream model listing.
type catalogResponse struct {
	Data []CatalogModel `json:"data"`
}
