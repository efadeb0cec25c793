package observability

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/theirongolddev/jobmetrics/internal/cache"
	"github.com/theirongolddev/jobmetrics/internal/query"
)

func TestObserveRefresh(t *testing.T) {
	m := NewMetrics()
	m.ObserveRefresh(cache.RefreshResult{
		Trigger:   "interval",
		OK:        true,
		StartedAt: time.Unix(1_700_000_000, 0),
		Duration:  2 * time.Second,
		Counts:    cache.Counts{Jobs: 12, AR: 40},
		Coerced:   3,
	})
	m.ObserveRefresh(cache.RefreshResult{Trigger: "interval", Error: "boom"})

	if got := testutil.ToFloat64(m.refreshTotal.WithLabelValues("ok", "interval")); got != 1 {
		t.Errorf("refresh ok = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.refreshTotal.WithLabelValues("error", "interval")); got != 1 {
		t.Errorf("refresh error = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.snapshotRecords.WithLabelValues("jobs")); got != 12 {
		t.Errorf("snapshot jobs = %v, want 12", got)
	}
	if got := testutil.ToFloat64(m.coercedFields); got != 3 {
		t.Errorf("coerced = %v, want 3", got)
	}
	if got := testutil.ToFloat64(m.lastRefresh); got != 1_700_000_002 {
		t.Errorf("last refresh = %v, want 1700000002", got)
	}
}

func TestObserveQuery_BoundsLabels(t *testing.T) {
	m := NewMetrics()
	invalid := fmt.Errorf("wrapped: %w", query.ErrInvalidPlan)

	m.ObserveQuery(query.Plan{Target: query.TargetJobs, Verb: query.VerbTop}, nil, nil, time.Millisecond)
	m.ObserveQuery(query.Plan{Target: "x' OR 1=1", Verb: "drop"}, nil, invalid, time.Millisecond)
	m.ObserveQuery(query.Plan{Target: query.TargetAR, Verb: query.VerbList}, nil, errors.New("not ready"), time.Millisecond)

	if got := testutil.ToFloat64(m.queriesTotal.WithLabelValues("jobs", "top", "ok")); got != 1 {
		t.Errorf("jobs/top/ok = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.queriesTotal.WithLabelValues("unknown", "unknown", "invalid")); got != 1 {
		t.Errorf("unknown/unknown/invalid = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.queriesTotal.WithLabelValues("ar", "list", "error")); got != 1 {
		t.Errorf("ar/list/error = %v, want 1", got)
	}
}

func TestWrapHandlerAndExposition(t *testing.T) {
	m := NewMetrics()
	h := m.WrapHandler("/v1/query", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/v1/query", nil))

	if got := testutil.ToFloat64(m.httpRequestsTotal.WithLabelValues("/v1/query", "400")); got != 1 {
		t.Errorf("requests /v1/query 400 = %v, want 1", got)
	}

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "http_requests_total") {
		t.Error("exposition missing http_requests_total")
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.ObserveRefresh(cache.RefreshResult{OK: true})
	m.ObserveQuery(query.Plan{}, nil, nil, 0)
	m.RefreshHook()(context.Background(), cache.RefreshResult{})

	rec := httptest.NewRecorder()
	m.WrapHandler("/x", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
	if rec.Code != http.StatusTeapot {
		t.Errorf("status = %d, want 418", rec.Code)
	}
}
