package query

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/theirongolddev/jobmetrics/internal/cache"
	"github.com/theirongolddev/jobmetrics/internal/model"
	"github.com/theirongolddev/jobmetrics/internal/pipeline"
	"github.com/theirongolddev/jobmetrics/internal/source"
)

func testSnapshot(t *testing.T) *cache.Snapshot {
	t.Helper()
	ex := &source.Extracts{
		Jobs: source.JobsExtract{
			Jobs: []model.Job{
				{JobNo: "J1", ProjectManager: "Ann", Customer: "City", Status: model.StatusActive, RevisedContract: 100000, RevisedCost: 80000},
				{JobNo: "J2", ProjectManager: "Ann", Customer: "County", Status: model.StatusClosed, RevisedContract: 50000, RevisedCost: 45000},
				{JobNo: "J3", ProjectManager: "Bob", Customer: "City", Status: model.StatusActive, RevisedContract: 200000},
				{JobNo: "J4", ProjectManager: "Josh Angelo", Customer: "City", Status: model.StatusActive, RevisedContract: 30000, RevisedCost: 20000},
				{JobNo: "J5", Status: model.StatusInactive, RevisedContract: 10000, RevisedCost: 8000},
			},
			Actuals: map[string]float64{"J1": 40000, "J2": 47000, "J4": 10000},
			Billed:  map[string]float64{"J1": 45000, "J2": 52000},
		},
		AR: source.ARExtract{Invoices: []model.ARInvoice{
			{InvoiceNo: "A1", CustomerName: "City", InvoiceDate: "2026-01-05", CalculatedAmountDue: 1000, DaysOutstanding: 10},
			{InvoiceNo: "A2", CustomerName: "City", InvoiceDate: "2026-02-10", CalculatedAmountDue: 3000, DaysOutstanding: 50},
			{InvoiceNo: "A3", CustomerName: "Metro", InvoiceDate: "2026-03-15", CalculatedAmountDue: 1000, DaysOutstanding: 100},
			{InvoiceNo: "A4", CustomerName: "Metro", CalculatedAmountDue: 0},
		}},
		AP: source.APExtract{Invoices: []model.APInvoice{
			{InvoiceNo: "P1", VendorName: "Acme Steel", RemainingBalance: 800, Retainage: 200, DaysOutstanding: 20},
			{InvoiceNo: "P2", VendorName: "Acme Steel", RemainingBalance: 400, DaysOutstanding: 80},
			{InvoiceNo: "P3", VendorName: "FTG Builders", RemainingBalance: 9000},
		}},
	}
	snap := cache.Build(ex, pipeline.DefaultRules())
	snap.ID = "snap-1"
	return snap
}

func mustRun(t *testing.T, snap *cache.Snapshot, p Plan) *Result {
	t.Helper()
	if p.Version == 0 {
		p.Version = PlanVersion
	}
	res, err := Run(snap, p)
	if err != nil {
		t.Fatalf("Run(%+v) error: %v", p, err)
	}
	return res
}

func TestRun_TotalsIgnoreLimit(t *testing.T) {
	snap := testSnapshot(t)
	res := mustRun(t, snap, Plan{Target: TargetJobs, Verb: VerbList, Limit: 2})

	if res.Matched != 5 {
		t.Errorf("Matched = %d, want 5", res.Matched)
	}
	if res.Shown != 2 {
		t.Errorf("Shown = %d, want 2", res.Shown)
	}
	if items := res.Items.([]model.JobMetrics); len(items) != 2 {
		t.Errorf("len(Items) = %d, want 2", len(items))
	}
	if got := res.Totals["revised_contract"]; got != 390000 {
		t.Errorf("Totals[revised_contract] = %v, want 390000", got)
	}
	// J3 has no cost, so its projected profit is out of scope.
	if got := res.Totals["profit"]; got != 37000 {
		t.Errorf("Totals[profit] = %v, want 37000", got)
	}
	if res.Note != "2 of 5 shown" {
		t.Errorf("Note = %q, want %q", res.Note, "2 of 5 shown")
	}
	if res.SnapshotID != "snap-1" {
		t.Errorf("SnapshotID = %q, want snap-1", res.SnapshotID)
	}
	if sum, ok := res.Summary.(model.JobsSummary); !ok || sum.TotalJobs != 5 {
		t.Errorf("Summary = %+v, want JobsSummary over 5 jobs", res.Summary)
	}
}

func TestRun_TopSkipsRowsOutOfScope(t *testing.T) {
	snap := testSnapshot(t)
	res := mustRun(t, snap, Plan{Target: TargetJobs, Verb: VerbTop, Field: "margin"})

	items := res.Items.([]model.JobMetrics)
	if len(items) != 4 {
		t.Fatalf("len(Items) = %d, want 4", len(items))
	}
	if items[0].JobNo != "J4" {
		t.Errorf("Items[0] = %s, want J4", items[0].JobNo)
	}
	for _, j := range items {
		if j.JobNo == "J3" {
			t.Error("J3 ranked by margin although it is not valid for profit")
		}
	}
	if res.Stats.Count != 4 {
		t.Errorf("Stats.Count = %d, want 4", res.Stats.Count)
	}
	if res.Stats.Max != 33.33 {
		t.Errorf("Stats.Max = %v, want 33.33", res.Stats.Max)
	}
}

func TestRun_BottomHonorsLimit(t *testing.T) {
	snap := testSnapshot(t)
	res := mustRun(t, snap, Plan{Target: TargetJobs, Verb: VerbBottom, Field: "contract", Limit: 1})

	items := res.Items.([]model.JobMetrics)
	if len(items) != 1 || items[0].JobNo != "J5" {
		t.Fatalf("Items = %+v, want [J5]", items)
	}
	if res.Field != "revised_contract" {
		t.Errorf("Field = %q, want revised_contract", res.Field)
	}
	if res.Note != "1 of 5 shown" {
		t.Errorf("Note = %q, want %q", res.Note, "1 of 5 shown")
	}
}

func TestRun_NumericFilterScope(t *testing.T) {
	snap := testSnapshot(t)
	res := mustRun(t, snap, Plan{
		Target:  TargetJobs,
		Verb:    VerbCount,
		Filters: []Filter{{Field: "margin", Op: OpLt, Value: 25.0}},
	})
	// J1 (20), J2 (9.62) and J5 (20); J3 has margin 0 but no valid basis.
	if res.Matched != 3 {
		t.Errorf("Matched = %d, want 3", res.Matched)
	}
	if res.Note != "3 of 5 shown" {
		t.Errorf("Note = %q, want %q", res.Note, "3 of 5 shown")
	}
	if items := res.Items.([]model.JobMetrics); items == nil || len(items) != 0 {
		t.Errorf("count Items = %#v, want empty non-nil slice", items)
	}
}

func TestRun_TextAndEnumFilters(t *testing.T) {
	snap := testSnapshot(t)
	tests := []struct {
		name    string
		filters []Filter
		want    int
	}{
		{"eq is case-insensitive", []Filter{{Field: "pm", Op: OpEq, Value: "ann"}}, 2},
		{"contains", []Filter{{Field: "customer", Op: OpContains, Value: "cit"}}, 3},
		{"status codes", []Filter{{Field: "status", Op: OpIn, Values: []any{"A", "closed"}}}, 4},
		{"ne", []Filter{{Field: "job_status", Op: OpNe, Value: "Active"}}, 2},
		{"bool", []Filter{{Field: "has_budget", Op: OpEq, Value: false}}, 1},
		{"between", []Filter{{Field: "revised_contract", Op: OpBetween, Value: 30000.0, To: 100000.0}}, 3},
		{"combined", []Filter{
			{Field: "customer_name", Op: OpEq, Value: "City"},
			{Field: "revised_contract", Op: OpGte, Value: "100000"},
		}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := mustRun(t, snap, Plan{Target: TargetJobs, Verb: VerbCount, Filters: tt.filters})
			if res.Matched != tt.want {
				t.Errorf("Matched = %d, want %d", res.Matched, tt.want)
			}
		})
	}
}

func TestRun_DateFilter(t *testing.T) {
	snap := testSnapshot(t)
	res := mustRun(t, snap, Plan{
		Target:  TargetAR,
		Verb:    VerbList,
		Filters: []Filter{{Field: "invoice_date", Op: OpBetween, Value: "2026-02-01", To: "03/31/2026"}},
	})
	items := res.Items.([]model.ARInvoiceMetric)
	if len(items) != 2 {
		t.Fatalf("len(Items) = %d, want 2", len(items))
	}
	if items[0].InvoiceNo != "A2" || items[1].InvoiceNo != "A3" {
		t.Errorf("Items = %s,%s, want A2,A3", items[0].InvoiceNo, items[1].InvoiceNo)
	}
}

func TestRun_AverageDaysIsAmountWeighted(t *testing.T) {
	snap := testSnapshot(t)
	res := mustRun(t, snap, Plan{Target: TargetAR, Verb: VerbAverage, Field: "days"})

	// (1000*10 + 3000*50 + 1000*100) / 5000
	if res.Stats.Average != 52 {
		t.Errorf("Average = %v, want 52", res.Stats.Average)
	}
	if !res.Stats.Weighted {
		t.Error("Weighted = false, want true")
	}
	if res.Matched != 3 {
		t.Errorf("Matched = %d, want 3", res.Matched)
	}
}

func TestRun_SumAndCountOverAP(t *testing.T) {
	snap := testSnapshot(t)
	res := mustRun(t, snap, Plan{Target: TargetAP, Verb: VerbSum, Field: "amount_ex_retainage"})

	// FTG Builders is excluded upstream.
	if res.Stats.Sum != 1000 {
		t.Errorf("Sum = %v, want 1000", res.Stats.Sum)
	}
	if res.Stats.Count != 2 {
		t.Errorf("Count = %d, want 2", res.Stats.Count)
	}
	if res.Note != "2 of 2 shown" {
		t.Errorf("Note = %q, want %q", res.Note, "2 of 2 shown")
	}
	if sum, ok := res.Summary.(model.APSummary); !ok || sum.TotalDue != 1200 {
		t.Errorf("Summary = %+v, want APSummary with TotalDue 1200", res.Summary)
	}
}

func TestRun_GroupByPMReusesRollup(t *testing.T) {
	snap := testSnapshot(t)
	res := mustRun(t, snap, Plan{Target: TargetJobs, Verb: VerbGroupBy, GroupBy: "pm", Field: "profit"})

	groups := res.Items.([]Group)
	if len(groups) != 2 {
		t.Fatalf("len(groups) = %d, want 2 (Josh Angelo and blank PM dropped)", len(groups))
	}
	if groups[0].Key != "Ann" || groups[0].Total != 25000 || groups[0].Count != 2 {
		t.Errorf("groups[0] = %+v, want Ann with 25000 over 2 jobs", groups[0])
	}
	if groups[1].Key != "Bob" || groups[1].Total != 0 {
		t.Errorf("groups[1] = %+v, want Bob with 0", groups[1])
	}

	want := pipeline.AggregatePMs(snap.Jobs, snap.Rules)[0]
	got, ok := groups[0].Summary.(model.PMSummary)
	if !ok || got != want {
		t.Errorf("Summary = %+v, want %+v", groups[0].Summary, want)
	}

	c := res.Concentration
	if c.GrandTotal != 25000 || c.GroupCount != 2 || c.Top5Share != 100 {
		t.Errorf("Concentration = %+v, want 25000 over 2 groups at 100%%", *c)
	}
	if groups[0].Share != 100 {
		t.Errorf("Share = %v, want 100", groups[0].Share)
	}
}

func TestRun_GroupByGenericDimension(t *testing.T) {
	snap := testSnapshot(t)
	res := mustRun(t, snap, Plan{Target: TargetJobs, Verb: VerbGroupBy, GroupBy: "customer_name", Field: "contract", Limit: 2})

	groups := res.Items.([]Group)
	if len(groups) != 2 {
		t.Fatalf("len(groups) = %d, want 2", len(groups))
	}
	if groups[0].Key != "City" || groups[0].Total != 330000 || groups[0].Count != 3 {
		t.Errorf("groups[0] = %+v, want City 330000 over 3", groups[0])
	}
	if groups[1].Key != "County" {
		t.Errorf("groups[1].Key = %q, want County", groups[1].Key)
	}
	if res.Concentration.GroupCount != 3 || res.Concentration.GrandTotal != 390000 {
		t.Errorf("Concentration = %+v, want 3 groups totalling 390000", *res.Concentration)
	}
	if res.Note != "2 of 3 shown" {
		t.Errorf("Note = %q, want %q", res.Note, "2 of 3 shown")
	}
}

func TestRun_GroupByBlankKeyAndSort(t *testing.T) {
	snap := testSnapshot(t)
	res := mustRun(t, snap, Plan{
		Target:  TargetJobs,
		Verb:    VerbGroupBy,
		GroupBy: "customer",
		Sort:    &Sort{Field: "key", Direction: "asc"},
	})
	groups := res.Items.([]Group)
	keys := make([]string, 0, len(groups))
	for _, g := range groups {
		keys = append(keys, g.Key)
	}
	want := []string{"(blank)", "City", "County"}
	if len(keys) != len(want) {
		t.Fatalf("keys = %v, want %v", keys, want)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Errorf("keys[%d] = %q, want %q", i, keys[i], want[i])
		}
	}
}

func TestRun_GroupByCustomerCarriesRollup(t *testing.T) {
	snap := testSnapshot(t)
	res := mustRun(t, snap, Plan{Target: TargetAR, Verb: VerbGroupBy, GroupBy: "customer", Field: "total_due"})

	groups := res.Items.([]Group)
	if len(groups) != 2 || groups[0].Key != "City" || groups[0].Total != 4000 {
		t.Fatalf("groups = %+v, want City 4000 first", groups)
	}
	cs, ok := groups[0].Summary.(model.CustomerSummary)
	if !ok || cs.AvgDays != 40 {
		t.Errorf("Summary = %+v, want CustomerSummary with AvgDays 40", groups[0].Summary)
	}
	if res.Concentration.Top5Share != 100 {
		t.Errorf("Top5Share = %v, want 100", res.Concentration.Top5Share)
	}
}

func TestRun_RollupAveragesAreWeighted(t *testing.T) {
	ex := &source.Extracts{
		Jobs: source.JobsExtract{
			Jobs: []model.Job{
				{JobNo: "A1", ProjectManager: "Ann", Status: model.StatusActive, RevisedContract: 100, RevisedCost: 90},
				{JobNo: "A2", ProjectManager: "Ann", Status: model.StatusActive, RevisedContract: 100, RevisedCost: 90},
				{JobNo: "A3", ProjectManager: "Ann", Status: model.StatusActive, RevisedContract: 100, RevisedCost: 90},
				{JobNo: "B1", ProjectManager: "Bob", Status: model.StatusActive, RevisedContract: 100, RevisedCost: 50},
			},
			Actuals: map[string]float64{"A1": 45, "A2": 45, "A3": 45},
		},
		AP: source.APExtract{Invoices: []model.APInvoice{
			{InvoiceNo: "P1", VendorName: "Big", RemainingBalance: 1000, DaysOutstanding: 10},
			{InvoiceNo: "P2", VendorName: "Small", RemainingBalance: 10, DaysOutstanding: 100},
		}},
	}
	snap := cache.Build(ex, pipeline.DefaultRules())

	tests := []struct {
		name   string
		target Target
		field  string
		want   float64
	}{
		// (1000*10 + 10*100) / 1010, same as averaging the invoices
		{"vendor days", TargetVendors, "avg_days", 10.89},
		{"ap days", TargetAP, "days_outstanding", 10.89},
		// (3*10 + 1*50) / 4 jobs
		{"pm margin", TargetPMs, "margin", 20},
		// (3*50 + 1*0) / 4 jobs
		{"pm completion", TargetPMs, "avg_completion", 37.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := mustRun(t, snap, Plan{Target: tt.target, Verb: VerbAverage, Field: tt.field})
			if res.Stats.Average != tt.want {
				t.Errorf("Average = %v, want %v", res.Stats.Average, tt.want)
			}
			if !res.Stats.Weighted {
				t.Error("Weighted = false, want true")
			}
		})
	}

	if got := snap.JobsSummary.AvgMargin; got != 20 {
		t.Errorf("JobsSummary.AvgMargin = %v, want 20", got)
	}
}

func TestRun_ConcentrationCutsAtFiveGroups(t *testing.T) {
	jobs := make([]model.Job, 0, 7)
	for i, c := range []string{"C1", "C2", "C3", "C4", "C5", "C6", "C7"} {
		jobs = append(jobs, model.Job{
			JobNo:           "J" + c,
			Customer:        c,
			Status:          model.StatusActive,
			RevisedContract: float64(700 - 100*i),
		})
	}
	snap := cache.Build(&source.Extracts{Jobs: source.JobsExtract{Jobs: jobs}}, pipeline.DefaultRules())

	full := mustRun(t, snap, Plan{Target: TargetJobs, Verb: VerbGroupBy, GroupBy: "customer_name", Field: "contract"})
	// (700+600+500+400+300) / 2800
	c := full.Concentration
	if c.GrandTotal != 2800 || c.GroupCount != 7 || c.Top5Share != 89.29 {
		t.Errorf("Concentration = %+v, want 2800 over 7 groups, top five 89.29%%", *c)
	}

	limited := mustRun(t, snap, Plan{Target: TargetJobs, Verb: VerbGroupBy, GroupBy: "customer_name", Field: "contract", Limit: 3})
	if *limited.Concentration != *c {
		t.Errorf("limited Concentration = %+v, want %+v", *limited.Concentration, *c)
	}
	groups := limited.Items.([]Group)
	if len(groups) != 3 || groups[0].Key != "C1" || groups[0].Share != 25 {
		t.Errorf("groups = %+v, want C1 first with 25%% of 3 shown", groups)
	}
	if limited.Note != "3 of 7 shown" {
		t.Errorf("Note = %q, want %q", limited.Note, "3 of 7 shown")
	}
}

func TestRun_ListSort(t *testing.T) {
	snap := testSnapshot(t)
	res := mustRun(t, snap, Plan{
		Target: TargetCustomers,
		Verb:   VerbList,
		Sort:   &Sort{Field: "customer", Direction: "desc"},
	})
	items := res.Items.([]model.CustomerSummary)
	if len(items) != 2 || items[0].CustomerName != "Metro" {
		t.Errorf("Items = %+v, want Metro first", items)
	}
	// The snapshot keeps its own order.
	if snap.Customers[0].CustomerName != "City" {
		t.Errorf("snapshot reordered: first = %q", snap.Customers[0].CustomerName)
	}
}

func TestRun_InvalidPlans(t *testing.T) {
	snap := testSnapshot(t)
	tests := []struct {
		name  string
		plan  Plan
		field string
	}{
		{"version", Plan{Version: 2, Target: TargetJobs, Verb: VerbCount}, "version"},
		{"target", Plan{Version: 1, Target: "invoices", Verb: VerbCount}, "target"},
		{"verb", Plan{Version: 1, Target: TargetJobs, Verb: "median"}, "verb"},
		{"negative limit", Plan{Version: 1, Target: TargetJobs, Verb: VerbList, Limit: -1}, "limit"},
		{"unknown filter field", Plan{Version: 1, Target: TargetJobs, Verb: VerbCount, Filters: []Filter{{Field: "colour", Op: OpEq, Value: "red"}}}, "filters[0].field"},
		{"text with gt", Plan{Version: 1, Target: TargetJobs, Verb: VerbCount, Filters: []Filter{{Field: "pm", Op: OpGt, Value: "A"}}}, "filters[0].op"},
		{"number with text", Plan{Version: 1, Target: TargetJobs, Verb: VerbCount, Filters: []Filter{{Field: "profit", Op: OpGt, Value: "lots"}}}, "filters[0].value"},
		{"inverted between", Plan{Version: 1, Target: TargetJobs, Verb: VerbCount, Filters: []Filter{{Field: "profit", Op: OpBetween, Value: 10.0, To: 1.0}}}, "filters[0].to"},
		{"empty in", Plan{Version: 1, Target: TargetJobs, Verb: VerbCount, Filters: []Filter{{Field: "status", Op: OpIn}}}, "filters[0].values"},
		{"sum of ratio", Plan{Version: 1, Target: TargetJobs, Verb: VerbSum, Field: "margin"}, "field"},
		{"average of text", Plan{Version: 1, Target: TargetJobs, Verb: VerbAverage, Field: "customer"}, "field"},
		{"group_by without dimension", Plan{Version: 1, Target: TargetJobs, Verb: VerbGroupBy}, "group_by"},
		{"group_by numeric", Plan{Version: 1, Target: TargetJobs, Verb: VerbGroupBy, GroupBy: "profit"}, "group_by"},
		{"sort on top", Plan{Version: 1, Target: TargetJobs, Verb: VerbTop, Sort: &Sort{Field: "profit"}}, "sort"},
		{"bad direction", Plan{Version: 1, Target: TargetJobs, Verb: VerbList, Sort: &Sort{Field: "profit", Direction: "up"}}, "sort.direction"},
		{"bad group sort", Plan{Version: 1, Target: TargetJobs, Verb: VerbGroupBy, GroupBy: "pm", Sort: &Sort{Field: "margin"}}, "sort.field"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Run(snap, tt.plan)
			if err == nil {
				t.Fatalf("Run = %+v, want error", res)
			}
			if !errors.Is(err, ErrInvalidPlan) {
				t.Fatalf("error %v does not match ErrInvalidPlan", err)
			}
			var pe *PlanError
			if !errors.As(err, &pe) {
				t.Fatalf("error %T is not *PlanError", err)
			}
			if pe.Field != tt.field {
				t.Errorf("Field = %q, want %q", pe.Field, tt.field)
			}
		})
	}
}

func TestRun_EmptyResultIsNotAnError(t *testing.T) {
	snap := testSnapshot(t)
	res := mustRun(t, snap, Plan{
		Target:  TargetVendors,
		Verb:    VerbTop,
		Filters: []Filter{{Field: "vendor", Op: OpEq, Value: "Nobody"}},
	})
	if res.Matched != 0 || res.Shown != 0 {
		t.Errorf("Matched/Shown = %d/%d, want 0/0", res.Matched, res.Shown)
	}
	data, err := json.Marshal(res)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var env map[string]any
	if err := json.Unmarshal(data, &env); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if items, ok := env["items"].([]any); !ok || len(items) != 0 {
		t.Errorf("items = %#v, want []", env["items"])
	}
}

type stubSource struct{ snap *cache.Snapshot }

func (s stubSource) Snapshot() *cache.Snapshot { return s.snap }

func TestExecutor_NotReady(t *testing.T) {
	var observed error
	e := NewExecutor(stubSource{}, func(_ Plan, _ *Result, err error, _ time.Duration) { observed = err })

	_, err := e.Execute(context.Background(), Plan{Version: 1, Target: TargetJobs, Verb: VerbCount})
	if !errors.Is(err, cache.ErrNotReady) {
		t.Fatalf("error = %v, want ErrNotReady", err)
	}
	if !errors.Is(observed, cache.ErrNotReady) {
		t.Errorf("observer saw %v, want ErrNotReady", observed)
	}
}

func TestExecutor_CanceledContext(t *testing.T) {
	e := NewExecutor(stubSource{snap: testSnapshot(t)}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := e.Execute(ctx, Plan{Version: 1, Target: TargetJobs, Verb: VerbCount}); !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func TestDecodePlan(t *testing.T) {
	p, err := DecodePlan([]byte(`{"target":"ar","verb":"top","field":"total_due","limit":3}`))
	if err != nil {
		t.Fatalf("DecodePlan error: %v", err)
	}
	if p.Version != PlanVersion || p.Target != TargetAR || p.Limit != 3 {
		t.Errorf("plan = %+v", p)
	}

	_, err = DecodePlan([]byte(`{"target":"ar","verb":"top","fallback":"list"}`))
	if !errors.Is(err, ErrInvalidPlan) {
		t.Errorf("unknown key error = %v, want ErrInvalidPlan", err)
	}
}

func TestSchema(t *testing.T) {
	data, err := json.Marshal(Schema())
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var doc struct {
		Properties           map[string]any `json:"properties"`
		Required             []string       `json:"required"`
		AdditionalProperties *bool          `json:"additionalProperties"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	for _, key := range []string{"version", "target", "filters", "verb", "field", "group_by", "sort", "limit"} {
		if _, ok := doc.Properties[key]; !ok {
			t.Errorf("schema missing property %q", key)
		}
	}
	if doc.AdditionalProperties == nil || *doc.AdditionalProperties {
		t.Error("schema allows additional properties")
	}
	required := map[string]bool{}
	for _, r := range doc.Required {
		required[r] = true
	}
	if !required["target"] || !required["verb"] {
		t.Errorf("required = %v, want target and verb", doc.Required)
	}
}

func TestFields(t *testing.T) {
	for _, target := range Targets {
		fields, ok := Fields(target)
		if !ok || len(fields) == 0 {
			t.Errorf("Fields(%s) = %v, %v", target, fields, ok)
		}
	}
	if _, ok := Fields("ledger"); ok {
		t.Error("Fields(ledger) ok = true, want false")
	}
}
