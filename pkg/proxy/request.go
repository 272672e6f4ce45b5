package proxy

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"helios-ai/relay/pkg/proxy/types"
	"helios-ai/relay/pkg/upstream"
)

// MaxRequestBodySize caps inbound request bodies at 10 MB.
const MaxRequestBodySize = 10 << 20

// ParseChatCompletionRequest decodes and validates a chat completion
// request body.
func ParseChatCompletionRequest(r *http.Request) (*types.ChatCompletionRequest, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, MaxRequestBodySize+1))
	if err != nil {
		return nil, &upstream.ValidationError{Message: "failed to read request body"}
	}
	if len(body) > MaxRequestBodySize {
		return nil, &upstream.ValidationError{Message: "request body too large"}
	}

	var req types.ChatCompletionRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, &upstream.ValidationError{Message: fmt.Sprintf("invalid JSON: %v", err)}
	}

	if err := ValidateChatCompletionRequest(&req); err != nil {
		return nil, err
	}
	return &req, nil
}

// ValidateChatCompletionRequest checks the request shape. Model
// existence is the gateway's concern; this only rejects structurally
// invalid requests.
func ValidateChatCompletionRequest(req *types.ChatCompletionRequest) error {
	if req.Model == "" {
		return &upstream.ValidationError{Field: "model", Message: "model is required"}
	}
	if len(req.Messages) == 0 {
		return &upstream.ValidationError{Field: "messages", Message: "messages must not be empty"}
	}

	for i, msg := range req.Messages {
		if msg.Role == "" {
			return &upstream.ValidationError{
				Field:   fmt.Sprintf("messages[%d].role", i),
				Message: "role is required",
			}
		}
		switch msg.Role {
		case "system", "user", "assistant", "tool":
		default:
			return &upstream.ValidationError{
				Field:   fmt.Sprintf("messages[%d].role", i),
				Message: fmt.Sprintf("unknown role %q", msg.Role),
			}
		}
	}

	if req.Temperature != nil && (*req.Temperature < 0 || *req.Temperature > 2) {
		return &upstream.ValidationError{Field: "temperature", Message: "temperature must be between 0 and 2"}
	}
	if req.TopP != nil && (*req.TopP < 0 || *req.TopP > 1) {
		return &upstream.ValidationError{Field: "top_p", Message: "top_p must be between 0 and 1"}
	}
	if req.MaxTokens != nil && *req.MaxTokens <= 0 {
		return &upstream.ValidationError{Field: "max_tokens", Message: "max_tokens must be positive"}
	}

	return nil
}
