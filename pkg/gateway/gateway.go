// Package gateway builds upstream requests from normalized caller
// requests, drives the streaming decoder, and accounts usage and cost.
// It performs no retries; the retry budget belongs to the upstream
// client configuration.
package gateway

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"helios-ai/relay/pkg/pricing"
	"helios-ai/relay/pkg/proxy/types"
	"helios-ai/relay/pkg/upstream"
)

// ModelValidator answers model existence checks against the catalog.
type ModelValidator interface {
	Validate(ctx context.Context, id string) (bool, error)
}

// UpstreamClient is the slice of the upstream client the gateway uses.
type UpstreamClient interface {
	CreateChatCompletion(ctx context.Context, req *upstream.ChatRequest) (*upstream.ChatResponse, error)
	StreamChatCompletion(ctx context.Context, req *upstream.ChatRequest) (*upstream.StreamDecoder, error)
}

// StreamEvent is one element of the streaming response sequence
// delivered to the caller.
type StreamEvent struct {
	// ID is the upstream response identifier.
	ID string

	// Model is the model generating the response.
	Model string

	// Delta is the incremental content.
	Delta string

	// ToolCalls carries incremental tool call fragments.
	ToolCalls []upstream.ToolCall

	// FinishReason is set when the upstream reports one.
	FinishReason string

	// Usage is set only on the synthesized terminal event, after the
	// upstream terminal sentinel.
	Usage *types.Usage

	// Err is set when the stream fails mid-flight. It is the last
	// event before the channel closes.
	Err error

	// Created is the Unix timestamp reported by the upstream.
	Created int64
}

// Gateway proxies completion requests to the single upstream API.
type Gateway struct {
	registry ModelValidator
	client   UpstreamClient
	pricing  *pricing.Calculator
}

// New creates a gateway.
func New(registry ModelValidator, client UpstreamClient, calc *pricing.Calculator) *Gateway {
	return &Gateway{
		registry: registry,
		client:   client,
		pricing:  calc,
	}
}

// Complete handles the single-shot path: validate the model, issue one
// upstream call, and reduce the response to the caller-facing shape.
func (g *Gateway) Complete(ctx context.Context, req *types.ChatCompletionRequest) (*types.ChatCompletionResponse, error) {
	if err := g.validateModel(ctx, req.Model); err != nil {
		return nil, err
	}

	upReq := req.ToUpstream()
	resp, err := g.client.CreateChatCompletion(ctx, upReq)
	if err != nil {
		return nil, err
	}

	return g.reduceResponse(resp, req.Model), nil
}

// StreamComplete handles the streaming path: validate the model, drive
// the decoder over the upstream body, forward each event in order, and
// emit one synthesized terminal usage event after the upstream
// sentinel. The returned channel closes when the sequence ends.
//
// Cancelling ctx releases the upstream connection and ends the
// sequence without an error event.
func (g *Gateway) StreamComplete(ctx context.Context, req *types.ChatCompletionRequest) (<-chan StreamEvent, error) {
	if err := g.validateModel(ctx, req.Model); err != nil {
		return nil, err
	}

	upReq := req.ToUpstream()
	decoder, err := g.client.StreamChatCompletion(ctx, upReq)
	if err != nil {
		return nil, err
	}

	events := make(chan StreamEvent)
	acc := newUsageAccumulator(upReq, g.pricing)

	go func() {
		defer close(events)
		defer decoder.Close()

		var lastID, lastModel string

		for {
			chunk, err := decoder.Next(ctx)
			if err == io.EOF {
				// Terminal sentinel, source end, or cancellation: all
				// normal exits. Synthesize the usage event unless the
				// caller is already gone.
				usage := acc.finalize()
				ev := StreamEvent{
					ID:      lastID,
					Model:   lastModel,
					Usage:   &usage,
					Created: time.Now().Unix(),
				}
				select {
				case events <- ev:
				case <-ctx.Done():
				}
				return
			}
			if err != nil {
				select {
				case events <- StreamEvent{Err: err}:
				case <-ctx.Done():
				}
				return
			}

			lastID, lastModel = chunk.ID, chunk.Model
			acc.add(chunk.Delta)

			ev := StreamEvent{
				ID:           chunk.ID,
				Model:        chunk.Model,
				Delta:        chunk.Delta,
				ToolCalls:    chunk.ToolCalls,
				Created:      chunk.Created,
				FinishReason: chunk.FinishReason,
			}

			select {
			case events <- ev:
			case <-ctx.Done():
				// Consumer gone; release the upstream promptly.
				return
			}
		}
	}()

	return events, nil
}

// validateModel checks the model against the catalog before any
// upstream contact.
func (g *Gateway) validateModel(ctx context.Context, model string) error {
	if model == "" {
		return &upstream.ValidationError{Field: "model", Message: "model is required"}
	}

	ok, err := g.registry.Validate(ctx, model)
	if err != nil {
		return err
	}
	if !ok {
		slog.Debug("rejected unknown model", "model", model)
		return &upstream.ValidationError{Field: "model", Message: "model " + model + " not found"}
	}
	return nil
}

// reduceResponse transforms the upstream response into the caller
// shape: each choice reduced to finish reason plus message, usage
// passed through when present and zeroed otherwise.
func (g *Gateway) reduceResponse(resp *upstream.ChatResponse, model string) *types.ChatCompletionResponse {
	id := resp.ID
	if id == "" {
		id = "chatcmpl-" + uuid.NewString()
	}

	created := resp.Created
	if created == 0 {
		created = time.Now().Unix()
	}

	out := &types.ChatCompletionResponse{
		ID:      id,
		Object:  "chat.completion",
		Created: created,
		Model:   model,
		Choices: make([]types.Choice, 0, len(resp.Choices)),
	}

	for _, c := range resp.Choices {
		out.Choices = append(out.Choices, types.Choice{
			Index:        c.Index,
			Message:      c.Message,
			FinishReason: c.FinishReason,
		})
	}

	if resp.Usage != nil {
		out.Usage = types.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
			EstimatedCost:    g.pricing.Cost(model, resp.Usage.PromptTokens, resp.Usage.CompletionTokens),
		}
	}

	return out
}
