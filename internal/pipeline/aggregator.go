package pipeline

import (
	"sort"
	"strings"

	"github.com/theirongolddev/jobmetrics/internal/model"
)

type pmAccum struct {
	model.PMSummary
	marginSum     float64
	completionSum float64
}

// AggregatePMs rolls job metrics up by project manager, sorted by total contract descending.
//
// Jobs without a PM are skipped, as are PMs matched by rules.ExcludedPMSubstrings.
// Earned revenue, backlog and completion only count jobs with a budget; profit and
// margin only count jobs valid for profit. Each average divides by its own count.
func AggregatePMs(jobs []model.JobMetrics, rules Rules) []model.PMSummary {
	pmMap := make(map[string]*pmAccum)

	for _, j := range jobs {
		pm := strings.TrimSpace(j.ProjectManager)
		if pm == "" || rules.PMExcluded(pm) {
			continue
		}
		a, ok := pmMap[pm]
		if !ok {
			a = &pmAccum{PMSummary: model.PMSummary{ProjectManager: pm}}
			pmMap[pm] = a
		}

		a.TotalJobs++
		a.TotalContract += j.RevisedContract
		a.TotalBudget += j.RevisedCost
		a.TotalActual += j.ActualCost
		a.TotalBilled += j.BilledRevenue
		if j.IsActive() {
			a.ActiveJobs++
		}
		if j.HasBudget {
			a.JobsWithBudget++
			a.TotalEarnedRevenue += j.EarnedRevenue
			a.TotalBacklog += j.Backlog
			a.completionSum += j.PercentComplete
		}
		if j.ValidForProfit {
			a.JobsValidForProfit++
			a.TotalProfit += j.Profit
			a.marginSum += j.Margin
		}
	}

	pms := make([]model.PMSummary, 0, len(pmMap))
	for _, a := range pmMap {
		s := a.PMSummary
		if s.JobsValidForProfit > 0 {
			s.AvgMargin = a.marginSum / float64(s.JobsValidForProfit)
		}
		if s.JobsWithBudget > 0 {
			s.AvgCompletion = a.completionSum / float64(s.JobsWithBudget)
		}
		s.TotalContract = round2(s.TotalContract)
		s.TotalBudget = round2(s.TotalBudget)
		s.TotalActual = round2(s.TotalActual)
		s.TotalBilled = round2(s.TotalBilled)
		s.TotalEarnedRevenue = round2(s.TotalEarnedRevenue)
		s.TotalBacklog = round2(s.TotalBacklog)
		s.TotalProfit = round2(s.TotalProfit)
		s.AvgMargin = round2(s.AvgMargin)
		s.AvgCompletion = round2(s.AvgCompletion)
		pms = append(pms, s)
	}

	sort.Slice(pms, func(i, j int) bool {
		if pms[i].TotalContract != pms[j].TotalContract {
			return pms[i].TotalContract > pms[j].TotalContract
		}
		return pms[i].ProjectManager < pms[j].ProjectManager
	})
	return pms
}

type customerAccum struct {
	model.CustomerSummary
	weightedDays float64
}

// AggregateCustomers rolls open receivables up by customer, sorted by total due descending.
// Aging buckets and the average age are in collectible dollars.
func AggregateCustomers(invoices []model.ARInvoiceMetric) []model.CustomerSummary {
	custMap := make(map[string]*customerAccum)

	for _, inv := range invoices {
		name := strings.TrimSpace(inv.CustomerName)
		if name == "" {
			continue
		}
		a, ok := custMap[name]
		if !ok {
			a = &customerAccum{CustomerSummary: model.CustomerSummary{CustomerName: name}}
			custMap[name] = a
		}

		a.InvoiceCount++
		a.TotalDue += inv.TotalDue
		a.Collectible += inv.Collectible
		a.Retainage += inv.Retainage
		a.Buckets.Add(inv.AgingBucket, inv.Collectible)
		a.weightedDays += inv.Collectible * float64(inv.DaysOutstanding)
	}

	customers := make([]model.CustomerSummary, 0, len(custMap))
	for _, a := range custMap {
		s := a.CustomerSummary
		if s.Collectible > 0 {
			s.AvgDays = Round(a.weightedDays/s.Collectible, 1)
		}
		s.TotalDue = round2(s.TotalDue)
		s.Collectible = round2(s.Collectible)
		s.Retainage = round2(s.Retainage)
		s.Buckets = roundBuckets(s.Buckets)
		customers = append(customers, s)
	}

	sort.Slice(customers, func(i, j int) bool {
		if customers[i].TotalDue != customers[j].TotalDue {
			return customers[i].TotalDue > customers[j].TotalDue
		}
		return customers[i].CustomerName < customers[j].CustomerName
	})
	return customers
}

type vendorAccum struct {
	model.VendorSummary
	weightedDays float64
}

// AggregateVendors rolls open payables up by vendor, sorted by total due descending.
// Total due is the remaining balance; buckets and the average age use the amount
// net of retainage.
func AggregateVendors(invoices []model.APInvoiceMetric) []model.VendorSummary {
	vendMap := make(map[string]*vendorAccum)

	for _, inv := range invoices {
		name := strings.TrimSpace(inv.VendorName)
		if name == "" {
			continue
		}
		a, ok := vendMap[name]
		if !ok {
			a = &vendorAccum{VendorSummary: model.VendorSummary{VendorName: name}}
			vendMap[name] = a
		}

		a.InvoiceCount++
		a.TotalDue += inv.RemainingBalance
		a.Retainage += inv.Retainage
		a.Buckets.Add(inv.AgingBucket, inv.AmountExRetainage)
		a.AmountExRetainage += inv.AmountExRetainage
		a.weightedDays += inv.AmountExRetainage * float64(inv.DaysOutstanding)
	}

	vendors := make([]model.VendorSummary, 0, len(vendMap))
	for _, a := range vendMap {
		s := a.VendorSummary
		if s.AmountExRetainage > 0 {
			s.AvgDays = Round(a.weightedDays/s.AmountExRetainage, 1)
		}
		s.TotalDue = round2(s.TotalDue)
		s.AmountExRetainage = round2(s.AmountExRetainage)
		s.Retainage = round2(s.Retainage)
		s.Buckets = roundBuckets(s.Buckets)
		vendors = append(vendors, s)
	}

	sort.Slice(vendors, func(i, j int) bool {
		if vendors[i].TotalDue != vendors[j].TotalDue {
			return vendors[i].TotalDue > vendors[j].TotalDue
		}
		return vendors[i].VendorName < vendors[j].VendorName
	})
	return vendors
}

func roundBuckets(b model.BucketTotals) model.BucketTotals {
	return model.BucketTotals{
		Current:    round2(b.Current),
		Days31To60: round2(b.Days31To60),
		Days61To90: round2(b.Days61To90),
		Days90Plus: round2(b.Days90Plus),
	}
}
