// Package cache holds the current metrics snapshot and serializes refreshes.
//
// A Cache has exactly one writer at a time (Refresh) and any number of readers.
// Readers load the snapshot pointer atomically and never block on a refresh.
package cache

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/theirongolddev/jobmetrics/internal/logger"
	"github.com/theirongolddev/jobmetrics/internal/model"
	"github.com/theirongolddev/jobmetrics/internal/pipeline"
	"github.com/theirongolddev/jobmetrics/internal/source"
)

// ErrNotReady is returned by operations that need a snapshot before the first
// successful refresh.
var ErrNotReady = errors.New("metrics cache has no snapshot yet")

// Loader supplies raw extracts.
type Loader interface {
	Load(ctx context.Context) (*source.Extracts, error)
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(ctx context.Context) (*source.Extracts, error)

// Load implements Loader.
func (f LoaderFunc) Load(ctx context.Context) (*source.Extracts, error) { return f(ctx) }

// RefreshResult describes one refresh attempt.
type RefreshResult struct {
	ID        string        `json:"id"`
	Trigger   string        `json:"trigger"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration_ns"`
	OK        bool          `json:"ok"`
	Error     string        `json:"error,omitempty"`
	Counts    Counts        `json:"counts"`
	Coerced   int           `json:"coerced_fields"`

	// Snapshot is the snapshot installed by this refresh, nil on failure.
	Snapshot *Snapshot `json:"-"`
}

// Hook observes every refresh attempt, successful or not.
type Hook func(ctx context.Context, res RefreshResult)

// Status is the refresh bookkeeping of a cache.
type Status struct {
	Ready       bool      `json:"ready"`
	SnapshotID  string    `json:"snapshot_id,omitempty"`
	LastRefresh time.Time `json:"last_refresh,omitempty"`
	LastAttempt time.Time `json:"last_attempt,omitempty"`
	LastError   string    `json:"last_error,omitempty"`
	Refreshes   int64     `json:"refreshes"`
	Failures    int64     `json:"failures"`
	Counts      Counts    `json:"counts"`
}

// Option configures a Cache.
type Option func(*Cache)

// WithRules overrides the default exclusion rules.
func WithRules(r pipeline.Rules) Option {
	return func(c *Cache) { c.rules = r }
}

// WithLogger overrides the component logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Cache) { c.log = l }
}

// WithHook registers a hook run after every refresh attempt. Hooks of
// overlapping refreshes may run concurrently.
func WithHook(h Hook) Option {
	return func(c *Cache) { c.hooks = append(c.hooks, h) }
}

// Cache owns the current snapshot.
type Cache struct {
	loader Loader
	rules  pipeline.Rules
	log    zerolog.Logger
	hooks  []Hook

	refreshMu sync.Mutex
	current   atomic.Pointer[Snapshot]

	statusMu    sync.RWMutex
	lastAttempt time.Time
	lastError   string
	refreshes   int64
	failures    int64
}

// New returns an empty cache. Call Refresh to load the first snapshot.
func New(loader Loader, opts ...Option) *Cache {
	c := &Cache{
		loader: loader,
		rules:  pipeline.DefaultRules(),
		log:    logger.WithComponent("cache"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Refresh reloads the extracts and swaps in a new snapshot.
// Concurrent loads run one after another. If loading fails the previous
// snapshot stays in place and the error is returned. Hooks run after the
// refresh lock is released, so a slow hook never holds up the next load.
func (c *Cache) Refresh(ctx context.Context, trigger string) (RefreshResult, error) {
	res, err := c.refresh(ctx, trigger)
	c.runHooks(ctx, res)
	return res, err
}

func (c *Cache) refresh(ctx context.Context, trigger string) (RefreshResult, error) {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	res := RefreshResult{
		ID:        uuid.NewString(),
		Trigger:   trigger,
		StartedAt: time.Now(),
	}

	ex, err := c.loader.Load(ctx)
	if err == nil && ex == nil {
		err = errors.New("loader returned no extracts")
	}
	if err != nil {
		res.Duration = time.Since(res.StartedAt)
		res.Error = err.Error()
		c.recordAttempt(res)
		c.log.Error().Err(err).Str("refresh_id", res.ID).Str("trigger", trigger).
			Msg("refresh failed, keeping previous snapshot")
		return res, fmt.Errorf("refreshing metrics: %w", err)
	}

	snap := Build(ex, c.rules)
	snap.ID = res.ID
	snap.RefreshedAt = time.Now()
	c.current.Store(snap)

	res.OK = true
	res.Duration = time.Since(res.StartedAt)
	res.Counts = snap.Counts()
	res.Coerced = ex.Coerced()
	res.Snapshot = snap
	c.recordAttempt(res)

	c.log.Info().
		Str("refresh_id", res.ID).
		Str("trigger", trigger).
		Dur("took", res.Duration).
		Int("jobs", res.Counts.Jobs).
		Int("ar", res.Counts.AR).
		Int("ap", res.Counts.AP).
		Int("pms", res.Counts.PMs).
		Msg("metrics refreshed")
	if res.Coerced > 0 {
		c.log.Debug().Int("fields", res.Coerced).Msg("non-numeric extract values read as zero")
	}
	return res, nil
}

func (c *Cache) recordAttempt(res RefreshResult) {
	c.statusMu.Lock()
	defer c.statusMu.Unlock()
	c.lastAttempt = res.StartedAt
	if res.OK {
		c.refreshes++
		c.lastError = ""
	} else {
		c.failures++
		c.lastError = res.Error
	}
}

func (c *Cache) runHooks(ctx context.Context, res RefreshResult) {
	for _, h := range c.hooks {
		h(ctx, res)
	}
}

// Snapshot returns the current snapshot, or nil before the first successful refresh.
// The returned value is shared and must be treated as read-only.
func (c *Cache) Snapshot() *Snapshot {
	return c.current.Load()
}

// Ready reports whether a snapshot has been loaded.
func (c *Cache) Ready() bool {
	return c.current.Load() != nil
}

// Status returns refresh bookkeeping.
func (c *Cache) Status() Status {
	c.statusMu.RLock()
	st := Status{
		LastAttempt: c.lastAttempt,
		LastError:   c.lastError,
		Refreshes:   c.refreshes,
		Failures:    c.failures,
	}
	c.statusMu.RUnlock()

	if snap := c.current.Load(); snap != nil {
		st.Ready = true
		st.SnapshotID = snap.ID
		st.LastRefresh = snap.RefreshedAt
		st.Counts = snap.Counts()
	}
	return st
}

// Jobs returns a copy of the job metrics.
func (c *Cache) Jobs() []model.JobMetrics {
	if s := c.current.Load(); s != nil {
		return slices.Clone(s.Jobs)
	}
	return nil
}

// AR returns a copy of the open receivables.
func (c *Cache) AR() []model.ARInvoiceMetric {
	if s := c.current.Load(); s != nil {
		return slices.Clone(s.AR)
	}
	return nil
}

// AP returns a copy of the open payables.
func (c *Cache) AP() []model.APInvoiceMetric {
	if s := c.current.Load(); s != nil {
		return slices.Clone(s.AP)
	}
	return nil
}

// PMs returns a copy of the project manager rollup.
func (c *Cache) PMs() []model.PMSummary {
	if s := c.current.Load(); s != nil {
		return slices.Clone(s.PMs)
	}
	return nil
}

// Customers returns a copy of the AR-by-customer rollup.
func (c *Cache) Customers() []model.CustomerSummary {
	if s := c.current.Load(); s != nil {
		return slices.Clone(s.Customers)
	}
	return nil
}

// Vendors returns a copy of the AP-by-vendor rollup.
func (c *Cache) Vendors() []model.VendorSummary {
	if s := c.current.Load(); s != nil {
		return slices.Clone(s.Vendors)
	}
	return nil
}

// JobsSummary returns grand totals across all jobs, or Active jobs only.
func (c *Cache) JobsSummary(activeOnly bool) model.JobsSummary {
	s := c.current.Load()
	if s == nil {
		return model.JobsSummary{}
	}
	if activeOnly {
		return s.ActiveJobsSummary
	}
	return s.JobsSummary
}

// ARSummary returns grand totals across open receivables.
func (c *Cache) ARSummary() model.ARSummary {
	if s := c.current.Load(); s != nil {
		return s.ARSummary
	}
	return model.ARSummary{}
}

// APSummary returns grand totals across open payables.
func (c *Cache) APSummary() model.APSummary {
	if s := c.current.Load(); s != nil {
		return s.APSummary
	}
	return model.APSummary{}
}

// FilterJobs returns the jobs in the current snapshot matching f.
func (c *Cache) FilterJobs(f pipeline.JobFilter) []model.JobMetrics {
	s := c.current.Load()
	if s == nil {
		return nil
	}
	return pipeline.FilterJobs(s.Jobs, f, s.Rules)
}

// FilterAR returns receivables matching customer and PM substrings.
func (c *Cache) FilterAR(customer, pm string) []model.ARInvoiceMetric {
	s := c.current.Load()
	if s == nil {
		return nil
	}
	return pipeline.FilterAR(s.AR, customer, pm)
}

// FilterAP returns payables matching vendor and PM substrings.
func (c *Cache) FilterAP(vendor, pm string) []model.APInvoiceMetric {
	s := c.current.Load()
	if s == nil {
		return nil
	}
	return pipeline.FilterAP(s.AP, vendor, pm)
}
