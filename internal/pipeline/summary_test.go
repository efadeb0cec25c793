package pipeline

import (
	"testing"

	"github.com/theirongolddev/jobmetrics/internal/model"
)

func sampleJobs() []model.JobMetrics {
	return BuildJobMetrics([]model.Job{
		{JobNo: "1", ProjectManager: "Ann", Customer: "City", Status: model.StatusActive, RevisedContract: 100000, RevisedCost: 80000},
		{JobNo: "2", ProjectManager: "Ann", Customer: "County", Status: model.StatusClosed, RevisedContract: 90000, RevisedCost: 85000},
		{JobNo: "3", ProjectManager: "Bob", Customer: "City", Status: model.StatusActive, RevisedContract: 20000},
		{JobNo: "4", ProjectManager: "Bob", Customer: "School", Status: model.StatusInactive, RevisedContract: 40000, RevisedCost: 30000},
	}, map[string]float64{"1": 40000, "2": 95000, "3": 5000, "4": 30000},
		map[string]float64{"1": 45000, "2": 90000, "4": 40000})
}

func TestSummarizeJobs(t *testing.T) {
	s := SummarizeJobs(sampleJobs(), false)

	if s.TotalJobs != 4 || s.JobsWithBudget != 3 || s.JobsWithoutBudget != 1 || s.JobsValidForProfit != 3 {
		t.Fatalf("counts = %d/%d/%d/%d, want 4/3/1/3", s.TotalJobs, s.JobsWithBudget, s.JobsWithoutBudget, s.JobsValidForProfit)
	}
	if s.TotalContract != 250000 {
		t.Errorf("TotalContract = %v, want 250000", s.TotalContract)
	}
	if s.TotalActual != 170000 {
		t.Errorf("TotalActual = %v, want 170000", s.TotalActual)
	}
	// 20000 projected + -5000 actual + 10000 projected
	if s.TotalProfit != 25000 {
		t.Errorf("TotalProfit = %v, want 25000", s.TotalProfit)
	}
	// (20 + -5.56 + 25) / 3
	if s.AvgMargin != 13.15 {
		t.Errorf("AvgMargin = %v, want 13.15", s.AvgMargin)
	}
	// (50 + 100 + 100) / 3
	if s.AvgCompletion != 83.33 {
		t.Errorf("AvgCompletion = %v, want 83.33", s.AvgCompletion)
	}
}

func TestSummarizeJobs_ActiveOnly(t *testing.T) {
	s := SummarizeJobs(sampleJobs(), true)
	if s.TotalJobs != 2 {
		t.Fatalf("TotalJobs = %d, want 2", s.TotalJobs)
	}
	if s.JobsWithBudget != 1 || s.JobsWithoutBudget != 1 {
		t.Errorf("with/without budget = %d/%d, want 1/1", s.JobsWithBudget, s.JobsWithoutBudget)
	}
	if s.TotalEarnedRevenue != 50000 {
		t.Errorf("TotalEarnedRevenue = %v, want 50000", s.TotalEarnedRevenue)
	}
}

func TestSummarizeAR(t *testing.T) {
	ar := BuildARMetrics([]model.ARInvoice{
		{CustomerName: "City", CalculatedAmountDue: 1000, Retainage: 100, DaysOutstanding: 10},
		{CustomerName: "City", CalculatedAmountDue: 0},
		{CustomerName: "County", CalculatedAmountDue: 300, DaysOutstanding: 100},
	})

	s := SummarizeAR(ar)
	if s.TotalInvoices != 2 {
		t.Fatalf("TotalInvoices = %d, want 2", s.TotalInvoices)
	}
	if s.TotalDue != 1300 || s.Collectible != 1200 || s.Retainage != 100 {
		t.Errorf("due/collectible/retainage = %v/%v/%v, want 1300/1200/100", s.TotalDue, s.Collectible, s.Retainage)
	}
	// (900*10 + 300*100) / 1200 = 32.5
	if s.AvgDays != 32.5 {
		t.Errorf("AvgDays = %v, want 32.5", s.AvgDays)
	}
	if s.Buckets.Days90Plus != 300 {
		t.Errorf("Days90Plus = %v, want 300", s.Buckets.Days90Plus)
	}
}

func TestSummarizeAP_EmptyIsZero(t *testing.T) {
	s := SummarizeAP(nil)
	if s != (model.APSummary{}) {
		t.Errorf("SummarizeAP(nil) = %+v, want zero", s)
	}
}

func TestFilterJobs(t *testing.T) {
	jobs := sampleJobs()
	yes := true

	tests := []struct {
		name string
		f    JobFilter
		want int
	}{
		{"no filter", JobFilter{}, 4},
		{"pm substring", JobFilter{ProjectManager: "an"}, 2},
		{"customer", JobFilter{Customer: "CITY"}, 2},
		{"status", JobFilter{Status: model.StatusActive}, 2},
		{"has budget", JobFilter{HasBudget: &yes}, 3},
		{"combined", JobFilter{Customer: "city", HasBudget: &yes}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FilterJobs(jobs, tt.f, DefaultRules()); len(got) != tt.want {
				t.Errorf("len = %d, want %d", len(got), tt.want)
			}
		})
	}
}
