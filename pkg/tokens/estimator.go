// Package tokens provides character-based token estimation. The counts
// are documented approximations for metering, not a tokenizer-accurate
// billing mechanism.
package tokens

import (
	"encoding/json"

	"helios-ai/relay/pkg/upstream"
)

// CharsPerToken is the characters-per-token ratio used by the
// estimator. Four characters per token tracks common BPE tokenizers
// within a few percent on English text.
const CharsPerToken = 4

// EstimateText estimates the token count of a text string as
// ceil(len/CharsPerToken).
func EstimateText(text string) int {
	if text == "" {
		return 0
	}
	return (len(text) + CharsPerToken - 1) / CharsPerToken
}

// EstimateMessages estimates prompt tokens by applying the character
// heuristic to the serialized form of the messages. Serialization
// keeps the estimate stable across content shapes (plain strings and
// multimodal part arrays alike).
func EstimateMessages(messages []upstream.Message) int {
	if len(messages) == 0 {
		return 0
	}

	total := 0
	for _, msg := range messages {
		raw, err := json.Marshal(msg)
		if err != nil {
			continue
		}
		total += len(raw)
	}

	return (total + CharsPerToken - 1) / CharsPerToken
}
