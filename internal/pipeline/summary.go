package pipeline

import "github.com/theirongolddev/jobmetrics/internal/model"

// SummarizeJobs returns grand totals across jobs, optionally only Active ones.
// Contract, budget, actual and billed cover every job in scope; earned revenue,
// backlog and completion cover jobs with a budget; profit and margin cover jobs
// valid for profit.
func SummarizeJobs(jobs []model.JobMetrics, activeOnly bool) model.JobsSummary {
	var s model.JobsSummary
	var marginSum, completionSum float64

	for _, j := range jobs {
		if activeOnly && !j.IsActive() {
			continue
		}
		s.TotalJobs++
		s.TotalContract += j.RevisedContract
		s.TotalBudget += j.RevisedCost
		s.TotalActual += j.ActualCost
		s.TotalBilled += j.BilledRevenue
		if j.HasBudget {
			s.JobsWithBudget++
			s.TotalEarnedRevenue += j.EarnedRevenue
			s.TotalBacklog += j.Backlog
			completionSum += j.PercentComplete
		}
		if j.ValidForProfit {
			s.JobsValidForProfit++
			s.TotalProfit += j.Profit
			marginSum += j.Margin
		}
	}

	s.JobsWithoutBudget = s.TotalJobs - s.JobsWithBudget
	if s.JobsValidForProfit > 0 {
		s.AvgMargin = round2(marginSum / float64(s.JobsValidForProfit))
	}
	if s.JobsWithBudget > 0 {
		s.AvgCompletion = round2(completionSum / float64(s.JobsWithBudget))
	}
	s.TotalContract = round2(s.TotalContract)
	s.TotalBudget = round2(s.TotalBudget)
	s.TotalActual = round2(s.TotalActual)
	s.TotalBilled = round2(s.TotalBilled)
	s.TotalEarnedRevenue = round2(s.TotalEarnedRevenue)
	s.TotalBacklog = round2(s.TotalBacklog)
	s.TotalProfit = round2(s.TotalProfit)
	return s
}

// SummarizeAR returns grand totals across open receivables.
func SummarizeAR(invoices []model.ARInvoiceMetric) model.ARSummary {
	var s model.ARSummary
	var weighted float64

	for _, inv := range invoices {
		s.TotalInvoices++
		s.TotalDue += inv.TotalDue
		s.Collectible += inv.Collectible
		s.Retainage += inv.Retainage
		s.Buckets.Add(inv.AgingBucket, inv.Collectible)
		weighted += inv.Collectible * float64(inv.DaysOutstanding)
	}

	if s.Collectible > 0 {
		s.AvgDays = Round(weighted/s.Collectible, 1)
	}
	s.TotalDue = round2(s.TotalDue)
	s.Collectible = round2(s.Collectible)
	s.Retainage = round2(s.Retainage)
	s.Buckets = roundBuckets(s.Buckets)
	return s
}

// SummarizeAP returns grand totals across open payables.
func SummarizeAP(invoices []model.APInvoiceMetric) model.APSummary {
	var s model.APSummary
	var weighted float64

	for _, inv := range invoices {
		s.TotalInvoices++
		s.TotalDue += inv.RemainingBalance
		s.AmountExRetainage += inv.AmountExRetainage
		s.Retainage += inv.Retainage
		s.Buckets.Add(inv.AgingBucket, inv.AmountExRetainage)
		weighted += inv.AmountExRetainage * float64(inv.DaysOutstanding)
	}

	if s.AmountExRetainage > 0 {
		s.AvgDays = Round(weighted/s.AmountExRetainage, 1)
	}
	s.TotalDue = round2(s.TotalDue)
	s.AmountExRetainage = round2(s.AmountExRetainage)
	s.Retainage = round2(s.Retainage)
	s.Buckets = roundBuckets(s.Buckets)
	return s
}
