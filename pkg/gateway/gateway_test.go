package gateway

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"helios-ai/relay/pkg/pricing"
	"helios-ai/relay/pkg/proxy/types"
	"helios-ai/relay/pkg/upstream"
)

// stubValidator accepts a fixed set of model identifiers.
type stubValidator struct {
	known map[string]bool
	err   error
}

func (v *stubValidator) Validate(ctx context.Context, id string) (bool, error) {
	if v.err != nil {
		return false, v.err
	}
	return v.known[id], nil
}

// stubClient returns canned responses and records the requests it saw.
type stubClient struct {
	lastRequest *upstream.ChatRequest
	response    *upstream.ChatResponse
	streamBody  string
	err         error
}

func (c *stubClient) CreateChatCompletion(ctx context.Context, req *upstream.ChatRequest) (*upstream.ChatResponse, error) {
	c.lastRequest = req
	if c.err != nil {
		return nil, c.err
	}
	return c.response, nil
}

func (c *stubClient) StreamChatCompletion(ctx context.Context, req *upstream.ChatRequest) (*upstream.StreamDecoder, error) {
	c.lastRequest = req
	if c.err != nil {
		return nil, c.err
	}
	return upstream.NewStreamDecoder(io.NopCloser(strings.NewReader(c.streamBody))), nil
}

func newTestGateway(client *stubClient) *Gateway {
	validator := &stubValidator{known: map[string]bool{"known/model": true}}
	return New(validator, client, pricing.NewCalculator(nil))
}

func TestGateway_CompleteEndToEnd(t *testing.T) {
	client := &stubClient{
		response: &upstream.ChatResponse{
			ID:    "gen-42",
			Model: "known/model",
			Choices: []upstream.Choice{
				{
					Index:        0,
					Message:      upstream.ResponseMessage{Role: "assistant", Content: "stubbed content"},
					FinishReason: "stop",
				},
			},
			Usage: &upstream.Usage{PromptTokens: 7, CompletionTokens: 5, TotalTokens: 12},
		},
	}
	g := newTestGateway(client)

	resp, err := g.Complete(context.Background(), &types.ChatCompletionRequest{
		Model:    "known/model",
		Messages: []upstream.Message{{Role: "user", Content: "hi"}},
	})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}

	if resp.Choices[0].Message.Content != "stubbed content" {
		t.Errorf("unexpected content %q", resp.Choices[0].Message.Content)
	}
	if resp.Usage.TotalTokens != 12 {
		t.Errorf("usage must pass through, got total %d", resp.Usage.TotalTokens)
	}
	if resp.Usage.EstimatedCost <= 0 {
		t.Error("expected a non-zero cost estimate")
	}
}

func TestGateway_CompleteZeroesMissingUsage(t *testing.T) {
	client := &stubClient{
		response: &upstream.ChatResponse{
			ID:      "gen-43",
			Choices: []upstream.Choice{{FinishReason: "stop"}},
		},
	}
	g := newTestGateway(client)

	resp, err := g.Complete(context.Background(), &types.ChatCompletionRequest{
		Model:    "known/model",
		Messages: []upstream.Message{{Role: "user", Content: "hi"}},
	})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if resp.Usage.TotalTokens != 0 || resp.Usage.PromptTokens != 0 {
		t.Errorf("missing upstream usage must be zeroed, got %+v", resp.Usage)
	}
}

func TestGateway_UnknownModelRejectedBeforeUpstream(t *testing.T) {
	client := &stubClient{}
	g := newTestGateway(client)

	_, err := g.Complete(context.Background(), &types.ChatCompletionRequest{
		Model:    "nobody/nothing",
		Messages: []upstream.Message{{Role: "user", Content: "hi"}},
	})

	var verr *upstream.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if client.lastRequest != nil {
		t.Error("upstream must not be contacted for an unknown model")
	}
}

func TestGateway_StreamForcesStreamingFlag(t *testing.T) {
	client := &stubClient{streamBody: "data: [DONE]\n"}
	g := newTestGateway(client)

	events, err := g.StreamComplete(context.Background(), &types.ChatCompletionRequest{
		Model:    "known/model",
		Messages: []upstream.Message{{Role: "user", Content: "hi"}},
		Stream:   false, // caller said no; the entry point wins
	})
	if err != nil {
		t.Fatalf("StreamComplete: %v", err)
	}
	for range events {
	}

	if client.lastRequest == nil || !client.lastRequest.Stream {
		t.Error("StreamComplete must force the streaming flag")
	}

	// And the single-shot path forces it off.
	client.response = &upstream.ChatResponse{}
	if _, err := g.Complete(context.Background(), &types.ChatCompletionRequest{
		Model:    "known/model",
		Messages: []upstream.Message{{Role: "user", Content: "hi"}},
		Stream:   true,
	}); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if client.lastRequest.Stream {
		t.Error("Complete must force the streaming flag off")
	}
}

func TestGateway_StreamDeliversDeltasThenSynthesizedUsage(t *testing.T) {
	client := &stubClient{streamBody: strings.Join([]string{
		`data: {"id":"gen-9","model":"known/model","choices":[{"index":0,"delta":{"content":"Hel"},"finish_reason":null}]}`,
		`data: {"id":"gen-9","model":"known/model","choices":[{"index":0,"delta":{"content":"lo!!"},"finish_reason":null}]}`,
		`data: {"id":"gen-9","model":"known/model","choices":[{"index":0,"delta":{},"finish_reason":"stop"}]}`,
		`data: [DONE]`,
		``,
	}, "\n")}
	g := newTestGateway(client)

	events, err := g.StreamComplete(context.Background(), &types.ChatCompletionRequest{
		Model:    "known/model",
		Messages: []upstream.Message{{Role: "user", Content: "hi"}},
	})
	if err != nil {
		t.Fatalf("StreamComplete: %v", err)
	}

	var collected []StreamEvent
	for ev := range events {
		if ev.Err != nil {
			t.Fatalf("unexpected stream error: %v", ev.Err)
		}
		collected = append(collected, ev)
	}

	// Two deltas, one finish frame, one synthesized usage event.
	if len(collected) != 4 {
		t.Fatalf("expected 4 events, got %d", len(collected))
	}
	if collected[0].Delta != "Hel" || collected[1].Delta != "lo!!" {
		t.Errorf("deltas out of order: %+v", collected[:2])
	}
	if collected[2].FinishReason != "stop" {
		t.Errorf("expected finish reason on third event, got %+v", collected[2])
	}

	final := collected[3]
	if final.Usage == nil {
		t.Fatal("final event must carry synthesized usage")
	}
	// 7 completion characters at 4 chars/token rounds up to 2 tokens.
	if final.Usage.CompletionTokens != 2 {
		t.Errorf("expected 2 completion tokens, got %d", final.Usage.CompletionTokens)
	}
	if final.Usage.PromptTokens <= 0 {
		t.Error("expected a positive prompt token estimate")
	}
	if final.Usage.TotalTokens != final.Usage.PromptTokens+final.Usage.CompletionTokens {
		t.Error("total must equal prompt plus completion")
	}
	if final.Usage.EstimatedCost <= 0 {
		t.Error("expected a non-zero cost estimate")
	}
}

func TestGateway_StreamCancellationEndsSequence(t *testing.T) {
	client := &stubClient{streamBody: strings.Repeat(
		"data: {\"id\":\"gen-1\",\"choices\":[{\"index\":0,\"delta\":{\"content\":\"x\"},\"finish_reason\":null}]}\n", 100,
	)}
	g := newTestGateway(client)

	ctx, cancel := context.WithCancel(context.Background())
	events, err := g.StreamComplete(ctx, &types.ChatCompletionRequest{
		Model:    "known/model",
		Messages: []upstream.Message{{Role: "user", Content: "hi"}},
	})
	if err != nil {
		t.Fatalf("StreamComplete: %v", err)
	}

	// Read one event, then cancel: the channel must close without an
	// error event.
	<-events
	cancel()

	for ev := range events {
		if ev.Err != nil {
			t.Fatalf("cancellation must not surface an error, got %v", ev.Err)
		}
	}
}

func TestGateway_UpstreamErrorPropagates(t *testing.T) {
	client := &stubClient{err: &upstream.UpstreamError{StatusCode: 500, Message: "boom"}}
	g := newTestGateway(client)

	_, err := g.Complete(context.Background(), &types.ChatCompletionRequest{
		Model:    "known/model",
		Messages: []upstream.Message{{Role: "user", Content: "hi"}},
	})

	var uerr *upstream.UpstreamError
	if !errors.As(err, &uerr) || uerr.StatusCode != 500 {
		t.Fatalf("expected UpstreamError with status 500, got %v", err)
	}
}
