// Package catalog provides a time-bounded cache of the upstream model
// catalog. Reads answer from an in-memory snapshot; a stale or empty
// snapshot triggers one blocking, single-flight refresh.
package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"helios-ai/relay/pkg/upstream"
)

// DefaultFreshness is the catalog freshness window. A read older than
// this triggers a refresh before answering.
const DefaultFreshness = 5 * time.Minute

// Fetcher retrieves the full upstream model catalog.
type Fetcher interface {
	ListModels(ctx context.Context) ([]upstream.CatalogModel, error)
}

// Registry is the model catalog cache. It is safe for concurrent use:
// the snapshot is replaced atomically under a write lock, and refresh
// is single-flight so concurrent stale readers trigger exactly one
// upstream fetch and share its result.
//
// Failure policy: when a refresh fails and a prior snapshot exists, the
// error propagates to the caller and the stale snapshot is left
// untouched. Serving stale data silently would hide upstream outages.
type Registry struct {
	fetcher   Fetcher
	freshness time.Duration

	mu   sync.RWMutex
	snap *snapshot

	group singleflight.Group

	// onRefresh, when set, observes every refresh attempt's outcome.
	onRefresh func(error)
}

// SetRefreshHook registers an observer for refresh outcomes. Set it
// before the registry is shared; the field is not synchronized.
func (r *Registry) SetRefreshHook(fn func(error)) {
	r.onRefresh = fn
}

// NewRegistry creates a registry around the given fetcher. A zero
// freshness falls back to DefaultFreshness.
func NewRegistry(fetcher Fetcher, freshness time.Duration) *Registry {
	if freshness <= 0 {
		freshness = DefaultFreshness
	}
	return &Registry{
		fetcher:   fetcher,
		freshness: freshness,
	}
}

// All returns every model in the catalog.
func (r *Registry) All(ctx context.Context) ([]Model, error) {
	snap, err := r.fresh(ctx)
	if err != nil {
		return nil, err
	}

	models := make([]Model, 0, len(snap.models))
	for _, m := range snap.models {
		models = append(models, m)
	}
	sort.Slice(models, func(i, j int) bool { return models[i].ID < models[j].ID })
	return models, nil
}

// Get returns the model with the given identifier.
func (r *Registry) Get(ctx context.Context, id string) (Model, bool, error) {
	snap, err := r.fresh(ctx)
	if err != nil {
		return Model{}, false, err
	}

	m, ok := snap.models[id]
	return m, ok, nil
}

// Validate reports whether the identifier names a known model.
func (r *Registry) Validate(ctx context.Context, id string) (bool, error) {
	_, ok, err := r.Get(ctx, id)
	return ok, err
}

// Search returns models matching a case-insensitive substring query
// against identifier, name, and description.
func (r *Registry) Search(ctx context.Context, query string) ([]Model, error) {
	all, err := r.All(ctx)
	if err != nil {
		return nil, err
	}

	var out []Model
	for _, m := range all {
		if m.matches(query) {
			out = append(out, m)
		}
	}
	return out, nil
}

// ByProvider returns the models served by the given provider.
func (r *Registry) ByProvider(ctx context.Context, provider string) ([]Model, error) {
	all, err := r.All(ctx)
	if err != nil {
		return nil, err
	}

	var out []Model
	for _, m := range all {
		if m.Provider() == provider {
			out = append(out, m)
		}
	}
	return out, nil
}

// TopByContext returns the n models with the largest context windows,
// largest first.
func (r *Registry) TopByContext(ctx context.Context, n int) ([]Model, error) {
	all, err := r.All(ctx)
	if err != nil {
		return nil, err
	}

	sort.Slice(all, func(i, j int) bool {
		return all[i].ContextLength > all[j].ContextLength
	})

	if n > 0 && n < len(all) {
		all = all[:n]
	}
	return all, nil
}

// LastRefreshed returns when the current snapshot was fetched, or the
// zero time if the catalog has never been fetched.
func (r *Registry) LastRefreshed() time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.snap == nil {
		return time.Time{}
	}
	return r.snap.fetchedAt
}

// fresh returns a snapshot no older than the freshness window,
// refreshing first when needed. Concurrent callers observing a stale
// snapshot share one refresh through the singleflight group.
func (r *Registry) fresh(ctx context.Context) (*snapshot, error) {
	r.mu.RLock()
	snap := r.snap
	r.mu.RUnlock()

	if snap != nil && time.Since(snap.fetchedAt) < r.freshness {
		return snap, nil
	}

	v, err, _ := r.group.Do("refresh", func() (interface{}, error) {
		// Re-check under the group: a caller that queued behind the
		// winning refresh must not fetch again.
		r.mu.RLock()
		current := r.snap
		r.mu.RUnlock()
		if current != nil && time.Since(current.fetchedAt) < r.freshness {
			return current, nil
		}

		// The fetch outlives the winning caller: queued readers share
		// this result, so one cancelled winner must not fail them all.
		return r.refresh(context.WithoutCancel(ctx))
	})
	if err != nil {
		return nil, err
	}

	return v.(*snapshot), nil
}

// refresh fetches the full catalog and swaps the snapshot atomically.
// On failure the previous snapshot is left in place.
func (r *Registry) refresh(ctx context.Context) (*snapshot, error) {
	entries, err := r.fetcher.ListModels(ctx)
	if r.onRefresh != nil {
		r.onRefresh(err)
	}
	if err != nil {
		return nil, fmt.Errorf("catalog refresh failed: %w", err)
	}

	models := make(map[string]Model, len(entries))
	for _, e := range entries {
		models[e.ID] = newModel(e)
	}

	snap := &snapshot{
		models:    models,
		fetchedAt: time.Now(),
	}

	r.mu.Lock()
	r.snap = snap
	r.mu.Unlock()

	slog.Debug("model catalog refreshed", "models", len(models))
	return snap, nil
}
