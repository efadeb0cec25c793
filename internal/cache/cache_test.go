package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/theirongolddev/jobmetrics/internal/model"
	"github.com/theirongolddev/jobmetrics/internal/source"
)

func testExtracts() *source.Extracts {
	return &source.Extracts{
		Jobs: source.JobsExtract{
			Jobs: []model.Job{
				{JobNo: "1", ProjectManager: "Ann", Customer: "City", Status: model.StatusActive, RevisedContract: 100000, RevisedCost: 80000},
				{JobNo: "2", ProjectManager: "Bob", Customer: "County", Status: model.StatusClosed, RevisedContract: 50000, RevisedCost: 45000},
			},
			Actuals: map[string]float64{"1": 40000, "2": 47000},
			Billed:  map[string]float64{"2": 52000},
		},
		AR: source.ARExtract{Invoices: []model.ARInvoice{
			{InvoiceNo: "A1", CustomerName: "City", CalculatedAmountDue: 1000, Retainage: 100, DaysOutstanding: 45},
			{InvoiceNo: "A2", CustomerName: "City", CalculatedAmountDue: 0},
		}},
		AP: source.APExtract{Invoices: []model.APInvoice{
			{InvoiceNo: "P1", VendorName: "Acme", RemainingBalance: 700, DaysOutstanding: 10},
			{InvoiceNo: "P2", VendorName: "FTG Builders", RemainingBalance: 5000},
		}},
	}
}

func staticLoader() LoaderFunc {
	return func(context.Context) (*source.Extracts, error) { return testExtracts(), nil }
}

func newTestCache(l Loader, opts ...Option) *Cache {
	return New(l, append([]Option{WithLogger(zerolog.Nop())}, opts...)...)
}

func TestRefresh_BuildsSnapshot(t *testing.T) {
	c := newTestCache(staticLoader())
	if c.Ready() {
		t.Fatal("cache ready before first refresh")
	}

	res, err := c.Refresh(context.Background(), "test")
	if err != nil {
		t.Fatalf("Refresh error: %v", err)
	}
	want := Counts{Jobs: 2, AR: 1, AP: 1, PMs: 2, Customers: 1, Vendors: 1}
	if res.Counts != want {
		t.Fatalf("Counts = %+v, want %+v", res.Counts, want)
	}
	if !res.OK || res.ID == "" {
		t.Fatalf("result = %+v, want OK with an ID", res)
	}
	if c.Snapshot().ID != res.ID {
		t.Errorf("snapshot ID = %q, want %q", c.Snapshot().ID, res.ID)
	}
	if got := c.JobsSummary(true).TotalJobs; got != 1 {
		t.Errorf("active TotalJobs = %d, want 1", got)
	}
	if got := c.ARSummary().Collectible; got != 900 {
		t.Errorf("AR collectible = %v, want 900", got)
	}
}

func TestRefresh_FailureKeepsPreviousSnapshot(t *testing.T) {
	var fail atomic.Bool
	loader := LoaderFunc(func(context.Context) (*source.Extracts, error) {
		if fail.Load() {
			return nil, errors.New("extract share offline")
		}
		return testExtracts(), nil
	})
	c := newTestCache(loader)

	first, err := c.Refresh(context.Background(), "test")
	if err != nil {
		t.Fatal(err)
	}

	fail.Store(true)
	res, err := c.Refresh(context.Background(), "test")
	if err == nil {
		t.Fatal("expected refresh error")
	}
	if res.OK {
		t.Error("result OK on failure")
	}
	if c.Snapshot().ID != first.ID {
		t.Errorf("snapshot replaced on failure: %q, want %q", c.Snapshot().ID, first.ID)
	}

	st := c.Status()
	if st.Failures != 1 || st.Refreshes != 1 || st.LastError == "" {
		t.Errorf("status = %+v, want 1 refresh, 1 failure, last error set", st)
	}
}

func TestRefresh_Idempotent(t *testing.T) {
	c := newTestCache(staticLoader())
	ctx := context.Background()

	if _, err := c.Refresh(ctx, "test"); err != nil {
		t.Fatal(err)
	}
	a := c.Snapshot()
	if _, err := c.Refresh(ctx, "test"); err != nil {
		t.Fatal(err)
	}
	b := c.Snapshot()

	if a.JobsSummary != b.JobsSummary || a.ARSummary != b.ARSummary || a.APSummary != b.APSummary {
		t.Error("summaries differ across refreshes of unchanged extracts")
	}
	for i := range a.PMs {
		if a.PMs[i] != b.PMs[i] {
			t.Errorf("PMs[%d] = %+v, want %+v", i, b.PMs[i], a.PMs[i])
		}
	}
}

func TestAccessors_ReturnCopies(t *testing.T) {
	c := newTestCache(staticLoader())
	if _, err := c.Refresh(context.Background(), "test"); err != nil {
		t.Fatal(err)
	}

	jobs := c.Jobs()
	jobs[0].Profit = -1
	if c.Snapshot().Jobs[0].Profit == -1 {
		t.Fatal("mutating Jobs() result changed the snapshot")
	}
}

func TestAccessors_BeforeRefresh(t *testing.T) {
	c := newTestCache(staticLoader())
	if c.Jobs() != nil || c.PMs() != nil || c.FilterAR("", "") != nil {
		t.Error("accessors returned data before refresh")
	}
	if c.JobsSummary(false) != (model.JobsSummary{}) {
		t.Error("JobsSummary not zero before refresh")
	}
}

func TestRefresh_HooksSeeEveryAttempt(t *testing.T) {
	var (
		mu      sync.Mutex
		results []RefreshResult
	)
	hook := func(_ context.Context, r RefreshResult) {
		mu.Lock()
		results = append(results, r)
		mu.Unlock()
	}

	calls := 0
	loader := LoaderFunc(func(context.Context) (*source.Extracts, error) {
		calls++
		if calls == 2 {
			return nil, errors.New("boom")
		}
		return testExtracts(), nil
	})
	c := newTestCache(loader, WithHook(hook))

	_, _ = c.Refresh(context.Background(), "startup")
	_, _ = c.Refresh(context.Background(), "timer")

	if len(results) != 2 {
		t.Fatalf("hook calls = %d, want 2", len(results))
	}
	if !results[0].OK || results[1].OK {
		t.Errorf("OK flags = %v/%v, want true/false", results[0].OK, results[1].OK)
	}
	if results[1].Trigger != "timer" {
		t.Errorf("Trigger = %q, want timer", results[1].Trigger)
	}
}

func TestRefresh_SlowHookDoesNotBlockNextRefresh(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	defer close(release)
	var calls atomic.Int32
	hook := func(context.Context, RefreshResult) {
		if calls.Add(1) == 1 {
			close(entered)
			<-release
		}
	}
	c := newTestCache(staticLoader(), WithHook(hook))
	ctx := context.Background()

	go func() { _, _ = c.Refresh(ctx, "startup") }()
	<-entered

	secondDone := make(chan error, 1)
	go func() {
		_, err := c.Refresh(ctx, "timer")
		secondDone <- err
	}()

	select {
	case err := <-secondDone:
		if err != nil {
			t.Errorf("second Refresh: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("second Refresh blocked behind a running hook")
	}
	if st := c.Status(); st.Refreshes != 2 {
		t.Errorf("Refreshes = %d, want 2", st.Refreshes)
	}
}

func TestRefresh_ConcurrentReadersAndWriters(t *testing.T) {
	var inFlight, maxInFlight atomic.Int32
	loader := LoaderFunc(func(context.Context) (*source.Extracts, error) {
		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			m := maxInFlight.Load()
			if n <= m || maxInFlight.CompareAndSwap(m, n) {
				break
			}
		}
		return testExtracts(), nil
	})
	c := newTestCache(loader)
	ctx := context.Background()
	if _, err := c.Refresh(ctx, "test"); err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = c.Refresh(ctx, "test")
		}()
		go func() {
			defer wg.Done()
			snap := c.Snapshot()
			if len(snap.Jobs) != 2 || snap.JobsSummary.TotalJobs != 2 {
				t.Errorf("reader saw inconsistent snapshot: %d jobs, summary %d", len(snap.Jobs), snap.JobsSummary.TotalJobs)
			}
		}()
	}
	wg.Wait()

	if maxInFlight.Load() != 1 {
		t.Errorf("max concurrent loads = %d, want 1", maxInFlight.Load())
	}
}
