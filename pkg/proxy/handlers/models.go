package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"helios-ai/relay/pkg/catalog"
	"helios-ai/relay/pkg/proxy"
	"helios-ai/relay/pkg/proxy/types"
)

// Catalog is the read surface of the model registry.
type Catalog interface {
	All(ctx context.Context) ([]catalog.Model, error)
	Get(ctx context.Context, id string) (catalog.Model, bool, error)
	Search(ctx context.Context, query string) ([]catalog.Model, error)
	ByProvider(ctx context.Context, provider string) ([]catalog.Model, error)
	TopByContext(ctx context.Context, n int) ([]catalog.Model, error)
}

// ModelsHandler serves the catalog read surface:
//
//	GET /v1/models                    list all
//	GET /v1/models/search?q=...       substring search
//	GET /v1/models/provider/{p}       filter by provider
//	GET /v1/models/top?n=N            top N by context length
//	GET /v1/models/{id}               get one (identifiers contain "/")
//
// The reserved route names cannot collide with model identifiers,
// which always carry a provider prefix and a slash.
type ModelsHandler struct {
	registry Catalog
}

// NewModelsHandler creates the catalog handler.
func NewModelsHandler(registry Catalog) *ModelsHandler {
	return &ModelsHandler{registry: registry}
}

// modelList is the list response envelope.
type modelList struct {
	Object string          `json:"object"`
	Data   []catalog.Model `json:"data"`
}

func (h *ModelsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		_ = proxy.WriteErrorResponse(w, types.NewValidationError(
			"method not allowed", "", types.CodeInvalidValue))
		return
	}

	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/models"), "/")
	switch {
	case rest == "":
		h.list(w, r, h.registry.All)
	case rest == "search":
		h.search(w, r)
	case strings.HasPrefix(rest, "provider/"):
		provider := strings.TrimPrefix(rest, "provider/")
		h.list(w, r, func(ctx context.Context) ([]catalog.Model, error) {
			return h.registry.ByProvider(ctx, provider)
		})
	case rest == "top":
		h.top(w, r)
	default:
		h.getOne(w, r, rest)
	}
}

func (h *ModelsHandler) getOne(w http.ResponseWriter, r *http.Request, id string) {
	model, ok, err := h.registry.Get(r.Context(), id)
	if err != nil {
		_ = proxy.WriteMappedError(w, err)
		return
	}
	if !ok {
		_ = proxy.WriteErrorResponse(w, types.NewValidationError(
			"model "+id+" not found", "model", types.CodeModelNotFound))
		return
	}
	_ = proxy.WriteJSONResponse(w, http.StatusOK, model)
}

func (h *ModelsHandler) search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		_ = proxy.WriteErrorResponse(w, types.NewValidationError(
			"search requires a q parameter", "q", types.CodeMissingField))
		return
	}
	h.list(w, r, func(ctx context.Context) ([]catalog.Model, error) {
		return h.registry.Search(ctx, query)
	})
}

// defaultTopN bounds an unqualified /v1/models/top request.
const defaultTopN = 10

func (h *ModelsHandler) top(w http.ResponseWriter, r *http.Request) {
	n := defaultTopN
	if raw := r.URL.Query().Get("n"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			_ = proxy.WriteErrorResponse(w, types.NewValidationError(
				"n must be a positive integer", "n", types.CodeInvalidValue))
			return
		}
		n = parsed
	}
	h.list(w, r, func(ctx context.Context) ([]catalog.Model, error) {
		return h.registry.TopByContext(ctx, n)
	})
}

func (h *ModelsHandler) list(w http.ResponseWriter, r *http.Request, fetch func(context.Context) ([]catalog.Model, error)) {
	models, err := fetch(r.Context())
	if err != nil {
		_ = proxy.WriteMappedError(w, err)
		return
	}

	if models == nil {
		models = []catalog.Model{}
	}
	_ = proxy.WriteJSONResponse(w, http.StatusOK, modelList{Object: "list", Data: models})
}
