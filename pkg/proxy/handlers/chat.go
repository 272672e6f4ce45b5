// Package handlers implements the HTTP endpoints: chat completions
// (single-shot and SSE streaming), the model catalog surface, the
// duplex websocket upgrade, and health.
package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"helios-ai/relay/pkg/gateway"
	"helios-ai/relay/pkg/proxy"
	"helios-ai/relay/pkg/proxy/types"
	"helios-ai/relay/pkg/telemetry/logging"
	"helios-ai/relay/pkg/telemetry/metrics"
)

// Completer is the slice of the gateway the chat handler drives.
type Completer interface {
	Complete(ctx context.Context, req *types.ChatCompletionRequest) (*types.ChatCompletionResponse, error)
	StreamComplete(ctx context.Context, req *types.ChatCompletionRequest) (<-chan gateway.StreamEvent, error)
}

// ChatHandler serves POST /v1/chat/completions.
type ChatHandler struct {
	gateway Completer
	metrics *metrics.Collector
	logger  *slog.Logger
}

// NewChatHandler creates the chat completions handler.
func NewChatHandler(gw Completer, collector *metrics.Collector, logger *slog.Logger) *ChatHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ChatHandler{gateway: gw, metrics: collector, logger: logger}
}

func (h *ChatHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		_ = proxy.WriteErrorResponse(w, types.NewValidationError(
			"method not allowed", "", types.CodeInvalidValue))
		return
	}

	req, err := proxy.ParseChatCompletionRequest(r)
	if err != nil {
		h.finish(w, r, "http", time.Now(), err)
		return
	}

	if req.Stream {
		h.stream(w, r, req)
		return
	}
	h.complete(w, r, req)
}

func (h *ChatHandler) complete(w http.ResponseWriter, r *http.Request, req *types.ChatCompletionRequest) {
	start := time.Now()

	resp, err := h.gateway.Complete(r.Context(), req)
	if err != nil {
		h.finish(w, r, "http", start, err)
		return
	}

	h.record("http", "success", start)
	if h.metrics != nil {
		h.metrics.RecordCost(req.Model, resp.Usage.EstimatedCost)
	}
	_ = proxy.WriteJSONResponse(w, http.StatusOK, resp)
}

// stream drives the event sequence onto the response as SSE frames and
// terminates with the sentinel. Errors after the first frame ride the
// stream; the status line is already gone.
func (h *ChatHandler) stream(w http.ResponseWriter, r *http.Request, req *types.ChatCompletionRequest) {
	start := time.Now()
	ctx := r.Context()

	events, err := h.gateway.StreamComplete(ctx, req)
	if err != nil {
		h.finish(w, r, "http_stream", start, err)
		return
	}

	proxy.SetSSEHeaders(w)
	w.WriteHeader(http.StatusOK)

	outcome := "success"
	for ev := range events {
		if ev.Err != nil {
			errResp := proxy.MapError(ev.Err)
			outcome = errResp.Error.Type
			_ = proxy.WriteSSEError(w, errResp)
			break
		}

		chunk := streamEventToChunk(req.Model, ev)
		if err := proxy.WriteSSEChunk(w, chunk); err != nil {
			logging.FromContext(ctx, h.logger).Warn("SSE write failed", "error", err)
			outcome = "network"
			break
		}
		if h.metrics != nil {
			h.metrics.RecordStreamChunk()
			if ev.Usage != nil {
				h.metrics.RecordCost(req.Model, ev.Usage.EstimatedCost)
			}
		}
	}

	_ = proxy.WriteSSEDone(w)
	h.record("http_stream", outcome, start)
}

// streamEventToChunk shapes one gateway event as an SSE chunk body.
func streamEventToChunk(model string, ev gateway.StreamEvent) *types.ChatCompletionChunk {
	if ev.Model != "" {
		model = ev.Model
	}

	chunk := &types.ChatCompletionChunk{
		ID:      ev.ID,
		Object:  "chat.completion.chunk",
		Created: ev.Created,
		Model:   model,
		Usage:   ev.Usage,
	}

	choice := types.StreamChoice{
		Delta: types.Delta{
			Content:   ev.Delta,
			ToolCalls: ev.ToolCalls,
		},
	}
	if ev.FinishReason != "" {
		fr := ev.FinishReason
		choice.FinishReason = &fr
	}
	chunk.Choices = []types.StreamChoice{choice}

	return chunk
}

func (h *ChatHandler) finish(w http.ResponseWriter, r *http.Request, surface string, start time.Time, err error) {
	errResp := proxy.MapError(err)
	if !errResp.Error.CallerFault() {
		logging.FromContext(r.Context(), h.logger).Error("request failed",
			"error", err, "type", errResp.Error.Type)
	}
	h.record(surface, errResp.Error.Type, start)
	_ = proxy.WriteErrorResponse(w, errResp)
}

func (h *ChatHandler) record(surface, outcome string, start time.Time) {
	if h.metrics != nil {
		h.metrics.RecordRequest(surface, outcome, time.Since(start))
	}
}
