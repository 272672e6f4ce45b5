package catalog

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"helios-ai/relay/pkg/upstream"
)

// countingFetcher serves a fixed catalog and counts fetches.
type countingFetcher struct {
	fetches atomic.Int64
	fail    atomic.Bool
	delay   time.Duration
}

func (f *countingFetcher) ListModels(ctx context.Context) ([]upstream.CatalogModel, error) {
	f.fetches.Add(1)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.fail.Load() {
		return nil, errors.New("upstream unavailable")
	}

	return []upstream.CatalogModel{
		{
			ID:            "acme/writer-large",
			Name:          "Acme Writer Large",
			Description:   "Long-form drafting model",
			ContextLength: 128000,
			Pricing:       upstream.ModelPricing{Prompt: "0.003", Completion: "0.015"},
		},
		{
			ID:            "acme/writer-small",
			Name:          "Acme Writer Small",
			ContextLength: 32000,
			Pricing:       upstream.ModelPricing{Prompt: "0.0005", Completion: "0.0015"},
		},
		{
			ID:            "borealis/chat",
			Name:          "Borealis Chat",
			Description:   "General assistant",
			ContextLength: 200000,
			Pricing:       upstream.ModelPricing{Prompt: "0.001", Completion: "0.005"},
		},
	}, nil
}

func TestRegistry_FirstAccessFetchesOnce(t *testing.T) {
	f := &countingFetcher{}
	r := NewRegistry(f, time.Minute)

	all, err := r.All(context.Background())
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 models, got %d", len(all))
	}
	if got := f.fetches.Load(); got != 1 {
		t.Errorf("first access should fetch exactly once, got %d", got)
	}

	// Second access within the freshness window: zero fetches.
	if _, err := r.All(context.Background()); err != nil {
		t.Fatalf("All: %v", err)
	}
	if got := f.fetches.Load(); got != 1 {
		t.Errorf("fresh access must not fetch, got %d fetches", got)
	}
}

func TestRegistry_StaleAccessFetchesOnce(t *testing.T) {
	f := &countingFetcher{}
	r := NewRegistry(f, 30*time.Millisecond)

	if _, err := r.All(context.Background()); err != nil {
		t.Fatalf("All: %v", err)
	}

	time.Sleep(50 * time.Millisecond)

	if _, err := r.All(context.Background()); err != nil {
		t.Fatalf("All: %v", err)
	}
	if got := f.fetches.Load(); got != 2 {
		t.Errorf("stale access should fetch exactly once more, got %d total", got)
	}
}

func TestRegistry_ConcurrentColdReadsSingleFlight(t *testing.T) {
	f := &countingFetcher{delay: 30 * time.Millisecond}
	r := NewRegistry(f, time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := r.All(context.Background()); err != nil {
				t.Errorf("All: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := f.fetches.Load(); got != 1 {
		t.Errorf("concurrent cold readers must share one fetch, got %d", got)
	}
}

func TestRegistry_FailurePropagatesAndKeepsStaleSnapshot(t *testing.T) {
	f := &countingFetcher{}
	r := NewRegistry(f, 20*time.Millisecond)

	if _, err := r.All(context.Background()); err != nil {
		t.Fatalf("warm-up fetch: %v", err)
	}
	before := r.LastRefreshed()

	time.Sleep(40 * time.Millisecond)
	f.fail.Store(true)

	if _, err := r.All(context.Background()); err == nil {
		t.Fatal("expected refresh failure to propagate")
	}
	if !r.LastRefreshed().Equal(before) {
		t.Error("failed refresh must leave the stale snapshot untouched")
	}
}

// ctxSensitiveFetcher fails when its context is already cancelled.
type ctxSensitiveFetcher struct {
	inner countingFetcher
}

func (f *ctxSensitiveFetcher) ListModels(ctx context.Context) ([]upstream.CatalogModel, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return f.inner.ListModels(ctx)
}

func TestRegistry_RefreshDetachedFromWinnerContext(t *testing.T) {
	f := &ctxSensitiveFetcher{}
	r := NewRegistry(f, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// A cancelled winner still completes the shared refresh.
	all, err := r.All(ctx)
	if err != nil {
		t.Fatalf("All with cancelled context: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("expected 3 models, got %d", len(all))
	}
}

func TestRegistry_ColdFailurePropagates(t *testing.T) {
	f := &countingFetcher{}
	f.fail.Store(true)
	r := NewRegistry(f, time.Minute)

	if _, err := r.All(context.Background()); err == nil {
		t.Fatal("expected error when no snapshot exists and the fetch fails")
	}
}

func TestRegistry_Lookups(t *testing.T) {
	r := NewRegistry(&countingFetcher{}, time.Minute)
	ctx := context.Background()

	m, ok, err := r.Get(ctx, "acme/writer-large")
	if err != nil || !ok {
		t.Fatalf("Get: ok=%v err=%v", ok, err)
	}
	if m.Provider() != "acme" {
		t.Errorf("expected provider acme, got %q", m.Provider())
	}
	if m.BaseName() != "writer-large" {
		t.Errorf("expected base name writer-large, got %q", m.BaseName())
	}

	valid, err := r.Validate(ctx, "borealis/chat")
	if err != nil || !valid {
		t.Errorf("Validate known model: valid=%v err=%v", valid, err)
	}
	valid, err = r.Validate(ctx, "nobody/nothing")
	if err != nil || valid {
		t.Errorf("Validate unknown model: valid=%v err=%v", valid, err)
	}

	hits, err := r.Search(ctx, "DRAFTING")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 1 || hits[0].ID != "acme/writer-large" {
		t.Errorf("search should match descriptions case-insensitively, got %+v", hits)
	}

	byProv, err := r.ByProvider(ctx, "acme")
	if err != nil {
		t.Fatalf("ByProvider: %v", err)
	}
	if len(byProv) != 2 {
		t.Errorf("expected 2 acme models, got %d", len(byProv))
	}

	top, err := r.TopByContext(ctx, 2)
	if err != nil {
		t.Fatalf("TopByContext: %v", err)
	}
	if len(top) != 2 || top[0].ID != "borealis/chat" {
		t.Errorf("expected borealis/chat first by context length, got %+v", top)
	}
}
