package daemon

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/theirongolddev/jobmetrics/internal/cache"
	"github.com/theirongolddev/jobmetrics/internal/model"
	"github.com/theirongolddev/jobmetrics/internal/pipeline"
	"github.com/theirongolddev/jobmetrics/internal/query"
)

const maxPlanBytes = 64 << 10

func (s *Service) router() *mux.Router {
	r := mux.NewRouter()

	route := func(path string, h http.HandlerFunc, methods ...string) {
		var handler http.Handler = h
		handler = http.TimeoutHandler(handler, s.cfg.RequestTimeout, `{"error":"request timed out"}`)
		r.Handle(path, s.metrics.WrapHandler(path, handler)).Methods(methods...)
	}

	route("/healthz", s.handleHealth, http.MethodGet)
	route("/v1/status", s.handleStatus, http.MethodGet)
	route("/v1/refresh", s.handleRefresh, http.MethodPost)
	route("/v1/query", s.handleQuery, http.MethodPost)
	route("/v1/query/schema", s.handleSchema, http.MethodGet)
	route("/v1/query/fields/{target}", s.handleFields, http.MethodGet)
	route("/v1/summary/{kind:jobs|ar|ap}", s.handleSummary, http.MethodGet)
	route("/v1/{collection:jobs|ar|ap|pms|customers|vendors}", s.handleCollection, http.MethodGet)
	route("/v1/events", s.handleEvents, http.MethodGet)

	// Streams outlive any request timeout.
	r.Handle("/v1/stream", s.metrics.WrapHandler("/v1/stream", http.HandlerFunc(s.handleStream))).Methods(http.MethodGet)
	r.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)
	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func writeError(w http.ResponseWriter, status int, err error) {
	body := errorBody{Error: err.Error()}
	var pe *query.PlanError
	if errors.As(err, &pe) {
		body.Field = pe.Field
	}
	writeJSON(w, status, body)
}

func (s *Service) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok\n"))
}

func (s *Service) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.snapshotStatus())
}

func (s *Service) handleRefresh(w http.ResponseWriter, r *http.Request) {
	res, err := s.refresh(r.Context(), "api")
	if err != nil {
		writeJSON(w, http.StatusBadGateway, res)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Service) handleQuery(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxPlanBytes+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("reading plan: %w", err))
		return
	}
	if len(data) > maxPlanBytes {
		writeError(w, http.StatusRequestEntityTooLarge, errors.New("plan too large"))
		return
	}

	plan, err := query.DecodePlan(data)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	res, err := s.exec.Execute(r.Context(), plan)
	switch {
	case errors.Is(err, query.ErrInvalidPlan):
		writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, cache.ErrNotReady):
		writeError(w, http.StatusServiceUnavailable, err)
	case err != nil:
		writeError(w, http.StatusInternalServerError, err)
	default:
		writeJSON(w, http.StatusOK, res)
	}
}

func (s *Service) handleSchema(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, query.Schema())
}

func (s *Service) handleFields(w http.ResponseWriter, r *http.Request) {
	target := mux.Vars(r)["target"]
	fields, ok := query.Fields(query.Target(target))
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Errorf("unknown target %q", target))
		return
	}
	writeJSON(w, http.StatusOK, fields)
}

func (s *Service) handleSummary(w http.ResponseWriter, r *http.Request) {
	if !s.cache.Ready() {
		writeError(w, http.StatusServiceUnavailable, cache.ErrNotReady)
		return
	}
	switch mux.Vars(r)["kind"] {
	case "jobs":
		activeOnly, _ := strconv.ParseBool(r.URL.Query().Get("active_only"))
		writeJSON(w, http.StatusOK, s.cache.JobsSummary(activeOnly))
	case "ar":
		writeJSON(w, http.StatusOK, s.cache.ARSummary())
	default:
		writeJSON(w, http.StatusOK, s.cache.APSummary())
	}
}

// Page is the envelope of a collection listing.
type Page[T any] struct {
	SnapshotID string `json:"snapshot_id"`
	Matched    int    `json:"matched"`
	Shown      int    `json:"shown"`
	Items      []T    `json:"items"`
}

func newPage[T any](snapshotID string, items []T, limit int) Page[T] {
	if items == nil {
		items = []T{}
	}
	p := Page[T]{SnapshotID: snapshotID, Matched: len(items), Items: items}
	if limit > 0 && len(items) > limit {
		p.Items = items[:limit]
	}
	p.Shown = len(p.Items)
	return p
}

func filterByName[T any](items []T, name func(T) string, substr string) []T {
	if substr == "" {
		return items
	}
	substr = strings.ToLower(substr)
	out := make([]T, 0, len(items))
	for _, it := range items {
		if strings.Contains(strings.ToLower(name(it)), substr) {
			out = append(out, it)
		}
	}
	return out
}

func (s *Service) handleCollection(w http.ResponseWriter, r *http.Request) {
	snap := s.cache.Snapshot()
	if snap == nil {
		writeError(w, http.StatusServiceUnavailable, cache.ErrNotReady)
		return
	}
	q := r.URL.Query()
	limit := 0
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid limit %q", v))
			return
		}
		limit = n
	}

	switch mux.Vars(r)["collection"] {
	case "jobs":
		f := pipeline.JobFilter{
			ProjectManager: q.Get("pm"),
			Customer:       q.Get("customer"),
		}
		if v := q.Get("status"); v != "" {
			f.Status = model.ParseJobStatus(v)
		}
		if active, _ := strconv.ParseBool(q.Get("active_only")); active {
			f.Status = model.StatusActive
		}
		writeJSON(w, http.StatusOK, newPage(snap.ID, pipeline.FilterJobs(snap.Jobs, f, snap.Rules), limit))
	case "ar":
		writeJSON(w, http.StatusOK, newPage(snap.ID, pipeline.FilterAR(snap.AR, q.Get("customer"), q.Get("pm")), limit))
	case "ap":
		writeJSON(w, http.StatusOK, newPage(snap.ID, pipeline.FilterAP(snap.AP, q.Get("vendor"), q.Get("pm")), limit))
	case "pms":
		items := filterByName(snap.PMs, func(p model.PMSummary) string { return p.ProjectManager }, q.Get("pm"))
		writeJSON(w, http.StatusOK, newPage(snap.ID, items, limit))
	case "customers":
		items := filterByName(snap.Customers, func(c model.CustomerSummary) string { return c.CustomerName }, q.Get("customer"))
		writeJSON(w, http.StatusOK, newPage(snap.ID, items, limit))
	default:
		items := filterByName(snap.Vendors, func(v model.VendorSummary) string { return v.VendorName }, q.Get("vendor"))
		writeJSON(w, http.StatusOK, newPage(snap.ID, items, limit))
	}
}

func (s *Service) handleEvents(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	events := make([]Event, len(s.events))
	copy(events, s.events)
	s.mu.RUnlock()

	writeJSON(w, http.StatusOK, events)
}

func (s *Service) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := make(chan Event, 16)
	id := s.addSubscriber(ch)
	defer s.removeSubscriber(id)

	// Send current totals immediately.
	st := s.snapshotStatus()
	writeSSE(w, Event{
		Type:      EventSnapshot,
		Timestamp: time.Now(),
		RefreshID: st.Cache.SnapshotID,
		Totals:    st.Totals,
	})
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev := <-ch:
			writeSSE(w, ev)
			flusher.Flush()
		}
	}
}

func writeSSE(w io.Writer, ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	if ev.ID > 0 {
		_, _ = fmt.Fprintf(w, "id: %d\n", ev.ID)
	}
	_, _ = fmt.Fprintf(w, "event: %s\n", ev.Type)
	_, _ = fmt.Fprintf(w, "data: %s\n\n", data)
}
