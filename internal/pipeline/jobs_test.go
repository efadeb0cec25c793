package pipeline

import (
	"math"
	"testing"

	"github.com/theirongolddev/jobmetrics/internal/model"
)

func TestCalculateJobMetrics_ActiveProjected(t *testing.T) {
	job := model.Job{
		JobNo:           "1001",
		Status:          model.StatusActive,
		RevisedContract: 100000,
		RevisedCost:     80000,
	}

	m := CalculateJobMetrics(job, 40000, 30000)

	if m.PercentComplete != 50 {
		t.Errorf("PercentComplete = %v, want 50", m.PercentComplete)
	}
	if m.EarnedRevenue != 50000 {
		t.Errorf("EarnedRevenue = %v, want 50000", m.EarnedRevenue)
	}
	if m.Backlog != 50000 {
		t.Errorf("Backlog = %v, want 50000", m.Backlog)
	}
	if m.OverUnderBilling != -20000 {
		t.Errorf("OverUnderBilling = %v, want -20000", m.OverUnderBilling)
	}
	if m.Profit != 20000 {
		t.Errorf("Profit = %v, want 20000", m.Profit)
	}
	// Margin is profit over contract.
	if m.Margin != 20 {
		t.Errorf("Margin = %v, want 20", m.Margin)
	}
	if m.ProfitBasis != model.BasisProjected {
		t.Errorf("ProfitBasis = %q, want projected", m.ProfitBasis)
	}
	if !m.ValidForProfit {
		t.Error("ValidForProfit = false, want true")
	}
}

func TestCalculateJobMetrics_ClosedActual(t *testing.T) {
	job := model.Job{
		JobNo:           "2001",
		Status:          model.StatusClosed,
		RevisedContract: 100000,
		RevisedCost:     90000,
	}

	m := CalculateJobMetrics(job, 95000, 90000)

	if m.Profit != -5000 {
		t.Errorf("Profit = %v, want -5000", m.Profit)
	}
	if m.Margin != -5.56 {
		t.Errorf("Margin = %v, want -5.56", m.Margin)
	}
	if m.ProfitBasis != model.BasisActual {
		t.Errorf("ProfitBasis = %q, want actual", m.ProfitBasis)
	}
	if !m.ValidForProfit {
		t.Error("ValidForProfit = false, want true")
	}
}

func TestCalculateJobMetrics_ClosedWithoutBilling(t *testing.T) {
	job := model.Job{Status: model.StatusClosed, RevisedContract: 5000, RevisedCost: 4000}

	m := CalculateJobMetrics(job, 3000, 0)

	if m.ValidForProfit {
		t.Error("ValidForProfit = true, want false when nothing billed")
	}
	if m.Margin != 0 {
		t.Errorf("Margin = %v, want 0", m.Margin)
	}
	if m.Profit != -3000 {
		t.Errorf("Profit = %v, want -3000", m.Profit)
	}
}

func TestCalculateJobMetrics_NoBudget(t *testing.T) {
	job := model.Job{Status: model.StatusActive, RevisedContract: 25000}

	m := CalculateJobMetrics(job, 12000, 8000)

	if m.HasBudget {
		t.Fatal("HasBudget = true, want false")
	}
	if m.PercentComplete != 0 || m.EarnedRevenue != 0 {
		t.Errorf("PercentComplete/EarnedRevenue = %v/%v, want 0/0", m.PercentComplete, m.EarnedRevenue)
	}
	if m.Backlog != 25000 {
		t.Errorf("Backlog = %v, want full contract 25000", m.Backlog)
	}
	if m.ValidForProfit {
		t.Error("ValidForProfit = true, want false without a budget")
	}
}

func TestCalculateJobMetrics_OverrunEarnsPastContract(t *testing.T) {
	job := model.Job{Status: model.StatusActive, RevisedContract: 1000, RevisedCost: 800}

	m := CalculateJobMetrics(job, 1200, 0)

	if m.PercentComplete != 100 {
		t.Errorf("PercentComplete = %v, want capped 100", m.PercentComplete)
	}
	if m.EarnedRevenue != 1500 {
		t.Errorf("EarnedRevenue = %v, want uncapped 1500", m.EarnedRevenue)
	}
	if m.Backlog != -500 {
		t.Errorf("Backlog = %v, want -500", m.Backlog)
	}
}

func TestCalculateJobMetrics_NonClosedStatusesProject(t *testing.T) {
	for _, st := range []model.JobStatus{model.StatusActive, model.StatusInactive, model.StatusOverhead, model.StatusUnknown} {
		t.Run(string(st), func(t *testing.T) {
			m := CalculateJobMetrics(model.Job{Status: st, RevisedContract: 200, RevisedCost: 150}, 10, 500)
			if m.ProfitBasis != model.BasisProjected {
				t.Errorf("ProfitBasis = %q, want projected", m.ProfitBasis)
			}
			if m.Profit != 50 || m.Margin != 25 {
				t.Errorf("Profit/Margin = %v/%v, want 50/25", m.Profit, m.Margin)
			}
		})
	}
}

func TestBuildJobMetrics_JoinsByJobNo(t *testing.T) {
	jobs := []model.Job{
		{JobNo: "A", Status: model.StatusActive, RevisedContract: 100, RevisedCost: 50},
		{JobNo: "B", Status: model.StatusActive, RevisedContract: 100, RevisedCost: 50},
	}
	actuals := map[string]float64{"A": 25}
	billed := map[string]float64{"B": 40}

	got := BuildJobMetrics(jobs, actuals, billed)

	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].ActualCost != 25 || got[0].BilledRevenue != 0 {
		t.Errorf("A actual/billed = %v/%v, want 25/0", got[0].ActualCost, got[0].BilledRevenue)
	}
	if got[1].ActualCost != 0 || got[1].BilledRevenue != 40 {
		t.Errorf("B actual/billed = %v/%v, want 0/40", got[1].ActualCost, got[1].BilledRevenue)
	}
}

func TestRound_HalfAwayFromZero(t *testing.T) {
	tests := []struct {
		in     float64
		places int32
		want   float64
	}{
		{1.005, 2, 1.01},
		{-1.005, 2, -1.01},
		{-5.5555, 2, -5.56},
		{12.25, 1, 12.3},
		{0, 2, 0},
		{math.Inf(1), 2, 0},
		{math.Inf(-1), 2, 0},
		{math.NaN(), 2, 0},
	}
	for _, tt := range tests {
		if got := Round(tt.in, tt.places); got != tt.want {
			t.Errorf("Round(%v, %d) = %v, want %v", tt.in, tt.places, got, tt.want)
		}
	}
}

func TestCalculateJobMetrics_OverflowStaysFinite(t *testing.T) {
	job := model.Job{
		JobNo:           "J1",
		Status:          model.StatusActive,
		RevisedContract: 1e300,
		RevisedCost:     1e-300,
	}

	// actual/budget*contract overflows to +Inf
	m := CalculateJobMetrics(job, 1e10, 0)

	for name, v := range map[string]float64{
		"PercentComplete":  m.PercentComplete,
		"EarnedRevenue":    m.EarnedRevenue,
		"Backlog":          m.Backlog,
		"OverUnderBilling": m.OverUnderBilling,
		"Profit":           m.Profit,
		"Margin":           m.Margin,
	} {
		if math.IsInf(v, 0) || math.IsNaN(v) {
			t.Errorf("%s = %v, want finite", name, v)
		}
	}
	if m.EarnedRevenue != 0 {
		t.Errorf("EarnedRevenue = %v, want 0", m.EarnedRevenue)
	}
	if m.PercentComplete != 100 {
		t.Errorf("PercentComplete = %v, want 100", m.PercentComplete)
	}
	if !m.ValidForProfit {
		t.Error("ValidForProfit = false, want true")
	}
}
