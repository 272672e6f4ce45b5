package handlers

import (
	"net/http"
	"time"

	"helios-ai/relay/pkg/proxy"
	"helios-ai/relay/pkg/session"
)

// StatsSource exposes the session counters for the health report.
type StatsSource interface {
	Stats() session.StatsSnapshot
}

// RefreshSource exposes the catalog's last refresh time.
type RefreshSource interface {
	LastRefreshed() time.Time
}

// HealthHandler serves GET /health with a liveness report.
type HealthHandler struct {
	startedAt time.Time
	sessions  StatsSource
	catalog   RefreshSource
}

// NewHealthHandler creates the health endpoint.
func NewHealthHandler(sessions StatsSource, catalog RefreshSource) *HealthHandler {
	return &HealthHandler{
		startedAt: time.Now(),
		sessions:  sessions,
		catalog:   catalog,
	}
}

type healthReport struct {
	Status         string `json:"status"`
	UptimeSeconds  int64  `json:"uptime_seconds"`
	ActiveSessions int64  `json:"active_sessions"`
	PeakSessions   int64  `json:"peak_sessions"`
	TotalSessions  int64  `json:"total_sessions"`

	// CatalogRefreshedAt is zero until the first successful fetch.
	CatalogRefreshedAt *time.Time `json:"catalog_refreshed_at,omitempty"`
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	report := healthReport{
		Status:        "ok",
		UptimeSeconds: int64(time.Since(h.startedAt).Seconds()),
	}

	if h.sessions != nil {
		stats := h.sessions.Stats()
		report.ActiveSessions = stats.Active
		report.PeakSessions = stats.Peak
		report.TotalSessions = stats.TotalCreated
	}

	if h.catalog != nil {
		if t := h.catalog.LastRefreshed(); !t.IsZero() {
			report.CatalogRefreshedAt = &t
		}
	}

	_ = proxy.WriteJSONResponse(w, http.StatusOK, report)
}
