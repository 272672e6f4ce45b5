package metrics

import (
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestCollector_RecordsAndExposes(t *testing.T) {
	c := NewCollector("relaytest")

	c.RecordRequest("http", "success", 250*time.Millisecond)
	c.RecordRequest("ws", "upstream", time.Second)
	c.RecordStreamChunk()
	c.UpdateSessions(3, 7)
	c.AddSessionMessages(1)
	c.RecordCatalogRefresh(nil)
	c.RecordCatalogRefresh(errors.New("fetch failed"))
	c.RecordCost("openai/gpt-4o", 0.05)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/metrics", nil)
	c.Handler().ServeHTTP(rec, req)

	body := rec.Body.String()
	for _, want := range []string{
		`relaytest_requests_total{outcome="success",surface="http"} 1`,
		`relaytest_requests_total{outcome="upstream",surface="ws"} 1`,
		`relaytest_stream_chunks_total 1`,
		`relaytest_sessions_active 3`,
		`relaytest_sessions_peak 7`,
		`relaytest_session_messages_total 1`,
		`relaytest_catalog_refreshes_total{outcome="success"} 1`,
		`relaytest_catalog_refreshes_total{outcome="error"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

func TestCollector_ZeroCostNotRecorded(t *testing.T) {
	c := NewCollector("relaytest")
	c.RecordCost("m", 0)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	if strings.Contains(rec.Body.String(), "estimated_cost_usd_total") {
		t.Error("zero cost must not create a series")
	}
}
