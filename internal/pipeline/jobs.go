package pipeline

import (
	"math"

	"github.com/theirongolddev/jobmetrics/internal/model"
)

// CalculateJobMetrics derives percent complete, earned revenue, backlog, billing
// position and profit for a job.
//
// Closed jobs are judged on actuals (billed minus cost). Every other status is
// judged on the projection (revised contract minus revised cost). A job is valid
// for profit only when both inputs for its basis are positive. Divisions are guarded
// and outputs are rounded to cents here and nowhere earlier.
func CalculateJobMetrics(job model.Job, actualCost, billed float64) model.JobMetrics {
	contract := job.RevisedContract
	budget := job.RevisedCost

	m := model.JobMetrics{
		JobNo:            job.JobNo,
		Description:      job.Description,
		ProjectManager:   job.ProjectManager,
		Customer:         job.Customer,
		Status:           job.Status,
		OriginalContract: job.OriginalContract,
		RevisedContract:  contract,
		OriginalCost:     job.OriginalCost,
		RevisedCost:      budget,
		ActualCost:       actualCost,
		BilledRevenue:    billed,
		HasBudget:        budget > 0,
	}

	var percent, earned float64
	if m.HasBudget {
		percent = math.Min(actualCost/budget*100, 100)
		earned = actualCost / budget * contract
	}
	backlog := contract - earned
	overUnder := billed - earned

	var profit, margin float64
	if job.Status == model.StatusClosed {
		profit = billed - actualCost
		if billed > 0 {
			margin = profit / billed * 100
		}
		m.ValidForProfit = billed > 0 && actualCost > 0
		m.ProfitBasis = model.BasisActual
	} else {
		profit = contract - budget
		if contract > 0 {
			margin = profit / contract * 100
		}
		m.ValidForProfit = contract > 0 && budget > 0
		m.ProfitBasis = model.BasisProjected
	}

	m.PercentComplete = round2(percent)
	m.EarnedRevenue = round2(earned)
	m.Backlog = round2(backlog)
	m.OverUnderBilling = round2(overUnder)
	m.Profit = round2(profit)
	m.Margin = round2(margin)
	return m
}

// BuildJobMetrics computes metrics for every job, joining actual cost and billed
// revenue by job number. Jobs with no actuals or billing get zero for that input.
func BuildJobMetrics(jobs []model.Job, actuals, billed map[string]float64) []model.JobMetrics {
	out := make([]model.JobMetrics, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, CalculateJobMetrics(j, actuals[j.JobNo], billed[j.JobNo]))
	}
	return out
}
