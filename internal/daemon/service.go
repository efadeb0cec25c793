// Package daemon provides the long-running metrics service: periodic refresh,
// the query and collection HTTP API, and a refresh event stream.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/handlers"
	"github.com/rs/zerolog"

	"github.com/theirongolddev/jobmetrics/internal/cache"
	"github.com/theirongolddev/jobmetrics/internal/logger"
	"github.com/theirongolddev/jobmetrics/internal/notify"
	"github.com/theirongolddev/jobmetrics/internal/observability"
	"github.com/theirongolddev/jobmetrics/internal/query"
	"github.com/theirongolddev/jobmetrics/internal/source"
)

// Config controls the daemon runtime behavior.
type Config struct {
	DataDir        string
	Interval       time.Duration
	Addr           string
	EventsBuffer   int
	RequestTimeout time.Duration
}

// Fingerprinter reports the state of the extract files.
type Fingerprinter interface {
	Fingerprint() []source.FileState
}

// Delta captures headline changes between refreshes.
type Delta struct {
	Contract   float64 `json:"total_contract"`
	Backlog    float64 `json:"total_backlog"`
	Profit     float64 `json:"total_profit"`
	ARTotalDue float64 `json:"ar_total_due"`
	AR90Plus   float64 `json:"ar_90_plus"`
	APTotalDue float64 `json:"ap_total_due"`
	ActiveJobs int     `json:"active_jobs"`
	OpenAR     int     `json:"open_ar_invoices"`
	OpenAP     int     `json:"open_ap_invoices"`
}

func (d Delta) isZero() bool {
	return d == Delta{}
}

// Event types.
const (
	EventSnapshot      = "snapshot"
	EventMetricsDelta  = "metrics_delta"
	EventRefreshFailed = "refresh_failed"
)

// Event is emitted when a refresh changes the headline figures or fails.
type Event struct {
	ID        int64         `json:"id"`
	Type      string        `json:"type"`
	Timestamp time.Time     `json:"timestamp"`
	RefreshID string        `json:"refresh_id,omitempty"`
	Totals    notify.Totals `json:"totals"`
	Delta     Delta         `json:"delta"`
	Error     string        `json:"error,omitempty"`
}

// Status is served at /v1/status.
type Status struct {
	StartedAt       time.Time          `json:"started_at"`
	LastPollAt      time.Time          `json:"last_poll_at"`
	PollIntervalSec int                `json:"poll_interval_sec"`
	PollCount       int64              `json:"poll_count"`
	SkippedPolls    int64              `json:"skipped_polls"`
	DataDir         string             `json:"data_dir"`
	Cache           cache.Status       `json:"cache"`
	Totals          notify.Totals      `json:"totals"`
	Files           []source.FileState `json:"files"`
	LastError       string             `json:"last_error,omitempty"`
	EventCount      int                `json:"event_count"`
	SubscriberCount int                `json:"subscriber_count"`
}

// Option configures a Service.
type Option func(*Service)

// WithMetrics records refresh, query and HTTP metrics on m.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithLogger replaces the component logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) { s.log = l }
}

// Service provides the daemon runtime and HTTP API.
type Service struct {
	cfg     Config
	cache   *cache.Cache
	files   Fingerprinter
	exec    *query.Executor
	metrics *observability.Metrics
	log     zerolog.Logger

	mu          sync.RWMutex
	startedAt   time.Time
	lastPollAt  time.Time
	pollCount   int64
	skipped     int64
	lastError   string
	lastFiles   []source.FileState
	hasTotals   bool
	totals      notify.Totals
	nextEventID int64
	events      []Event

	nextSubID int
	subs      map[int]chan Event
}

// New returns a daemon service over c. files may be nil, in which case every
// tick refreshes.
func New(cfg Config, c *cache.Cache, files Fingerprinter, opts ...Option) *Service {
	if cfg.Interval < 2*time.Second {
		cfg.Interval = 5 * time.Minute
	}
	if cfg.EventsBuffer < 1 {
		cfg.EventsBuffer = 200
	}
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:8765"
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}

	s := &Service{
		cfg:       cfg,
		cache:     c,
		files:     files,
		log:       logger.WithComponent("daemon"),
		startedAt: time.Now(),
		subs:      make(map[int]chan Event),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.exec = query.NewExecutor(c, s.metrics.ObserveQuery)
	return s
}

// Run starts HTTP endpoints and polling until ctx is canceled.
func (s *Service) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	s.log.Info().Str("addr", s.cfg.Addr).Dur("interval", s.cfg.Interval).Msg("daemon listening")

	// Seed initial snapshot so status is useful immediately.
	s.pollOnce(ctx, "startup")

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		case <-ticker.C:
			s.pollOnce(ctx, "interval")
		case err := <-errCh:
			return fmt.Errorf("daemon http server: %w", err)
		}
	}
}

// pollOnce refreshes when the extract files changed since the last good
// refresh, or when there is no snapshot yet.
func (s *Service) pollOnce(ctx context.Context, trigger string) {
	var curr []source.FileState
	if s.files != nil {
		curr = s.files.Fingerprint()
		s.mu.RLock()
		unchanged := s.cache.Ready() && s.lastFiles != nil && !source.Changed(s.lastFiles, curr)
		s.mu.RUnlock()
		if unchanged {
			s.mu.Lock()
			s.lastPollAt = time.Now()
			s.pollCount++
			s.skipped++
			s.mu.Unlock()
			s.log.Debug().Msg("extracts unchanged, skipping refresh")
			return
		}
	}

	res, _ := s.refresh(ctx, trigger)
	if res.OK && curr != nil {
		s.mu.Lock()
		s.lastFiles = curr
		s.mu.Unlock()
	}
}

// refresh runs one cache refresh and turns the outcome into an event.
func (s *Service) refresh(ctx context.Context, trigger string) (cache.RefreshResult, error) {
	res, err := s.cache.Refresh(ctx, trigger)
	now := time.Now()

	var (
		ev      Event
		publish bool
	)

	s.mu.Lock()
	s.lastPollAt = now
	s.pollCount++
	if err != nil {
		s.lastError = err.Error()
		s.nextEventID++
		ev = Event{
			ID:        s.nextEventID,
			Type:      EventRefreshFailed,
			Timestamp: now,
			RefreshID: res.ID,
			Totals:    s.totals,
			Error:     err.Error(),
		}
		publish = true
	} else {
		totals := notify.TotalsOf(res.Snapshot)
		prev, prevExists := s.totals, s.hasTotals
		s.totals = totals
		s.hasTotals = true
		s.lastError = ""

		if !prevExists {
			s.nextEventID++
			ev = Event{
				ID:        s.nextEventID,
				Type:      EventSnapshot,
				Timestamp: now,
				RefreshID: res.ID,
				Totals:    totals,
			}
			publish = true
		} else if delta := diffTotals(prev, totals); !delta.isZero() {
			s.nextEventID++
			ev = Event{
				ID:        s.nextEventID,
				Type:      EventMetricsDelta,
				Timestamp: now,
				RefreshID: res.ID,
				Totals:    totals,
				Delta:     delta,
			}
			publish = true
		}
	}
	s.mu.Unlock()

	if publish {
		s.publishEvent(ev)
	}
	return res, err
}

func diffTotals(prev, curr notify.Totals) Delta {
	return Delta{
		Contract:   curr.Contract - prev.Contract,
		Backlog:    curr.Backlog - prev.Backlog,
		Profit:     curr.Profit - prev.Profit,
		ARTotalDue: curr.ARTotalDue - prev.ARTotalDue,
		AR90Plus:   curr.AR90Plus - prev.AR90Plus,
		APTotalDue: curr.APTotalDue - prev.APTotalDue,
		ActiveJobs: curr.ActiveJobs - prev.ActiveJobs,
		OpenAR:     curr.OpenARCount - prev.OpenARCount,
		OpenAP:     curr.OpenAPCount - prev.OpenAPCount,
	}
}

func (s *Service) publishEvent(ev Event) {
	s.mu.Lock()
	s.events = append(s.events, ev)
	if len(s.events) > s.cfg.EventsBuffer {
		s.events = s.events[len(s.events)-s.cfg.EventsBuffer:]
	}

	for _, ch := range s.subs {
		select {
		case ch <- ev:
		default:
		}
	}
	s.mu.Unlock()
}

func (s *Service) snapshotStatus() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Status{
		StartedAt:       s.startedAt,
		LastPollAt:      s.lastPollAt,
		PollIntervalSec: int(s.cfg.Interval.Seconds()),
		PollCount:       s.pollCount,
		SkippedPolls:    s.skipped,
		DataDir:         s.cfg.DataDir,
		Cache:           s.cache.Status(),
		Totals:          s.totals,
		Files:           s.lastFiles,
		LastError:       s.lastError,
		EventCount:      len(s.events),
		SubscriberCount: len(s.subs),
	}
}

func (s *Service) addSubscriber(ch chan Event) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSubID++
	id := s.nextSubID
	s.subs[id] = ch
	return id
}

func (s *Service) removeSubscriber(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subs, id)
}

// recoveryLogger routes handler panics to zerolog.
type recoveryLogger struct{ log zerolog.Logger }

func (r recoveryLogger) Println(v ...interface{}) {
	r.log.Error().Msg(fmt.Sprint(v...))
}

// Handler returns the full HTTP API with CORS, access logging and panic recovery.
func (s *Service) Handler() http.Handler {
	var h http.Handler = s.router()
	h = handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type"}),
	)(h)
	h = handlers.RecoveryHandler(
		handlers.RecoveryLogger(recoveryLogger{log: s.log}),
		handlers.PrintRecoveryStack(false),
	)(h)
	access := s.log.With().Str("stream", "access").Logger()
	return handlers.CombinedLoggingHandler(access, h)
}
