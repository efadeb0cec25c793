package pipeline

import (
	"testing"

	"github.com/theirongolddev/jobmetrics/internal/model"
)

func TestAggregatePMs_AveragesUseOwnDenominators(t *testing.T) {
	jobs := []model.JobMetrics{
		{ProjectManager: "Ann Lee", Status: model.StatusActive, RevisedContract: 100, RevisedCost: 90,
			HasBudget: true, PercentComplete: 40, ValidForProfit: true, Profit: 10, Margin: 10},
		{ProjectManager: "Ann Lee ", Status: model.StatusClosed, RevisedContract: 200, RevisedCost: 150,
			HasBudget: true, PercentComplete: 100, ValidForProfit: true, Profit: 60, Margin: 30},
		{ProjectManager: "Ann Lee", Status: model.StatusActive, RevisedContract: 50,
			HasBudget: false, ValidForProfit: false, Profit: 50, Margin: 100},
	}

	pms := AggregatePMs(jobs, DefaultRules())
	if len(pms) != 1 {
		t.Fatalf("len = %d, want 1", len(pms))
	}
	pm := pms[0]

	if pm.AvgMargin != 20 {
		t.Errorf("AvgMargin = %v, want 20", pm.AvgMargin)
	}
	if pm.AvgCompletion != 70 {
		t.Errorf("AvgCompletion = %v, want 70", pm.AvgCompletion)
	}
	if pm.TotalJobs != 3 || pm.ActiveJobs != 2 || pm.JobsWithBudget != 2 || pm.JobsValidForProfit != 2 {
		t.Errorf("counts = %d/%d/%d/%d, want 3/2/2/2", pm.TotalJobs, pm.ActiveJobs, pm.JobsWithBudget, pm.JobsValidForProfit)
	}
	if pm.TotalProfit != 70 {
		t.Errorf("TotalProfit = %v, want 70 (invalid job excluded)", pm.TotalProfit)
	}
	if pm.TotalContract != 350 {
		t.Errorf("TotalContract = %v, want 350", pm.TotalContract)
	}
}

func TestAggregatePMs_ExclusionAndSort(t *testing.T) {
	jobs := []model.JobMetrics{
		{ProjectManager: "Small PM", RevisedContract: 10},
		{ProjectManager: "Big PM", RevisedContract: 1000},
		{ProjectManager: "Josh Angelo", RevisedContract: 5000},
		{ProjectManager: "  ", RevisedContract: 9000},
	}

	pms := AggregatePMs(jobs, DefaultRules())
	if len(pms) != 2 {
		t.Fatalf("len = %d, want 2", len(pms))
	}
	if pms[0].ProjectManager != "Big PM" || pms[1].ProjectManager != "Small PM" {
		t.Errorf("order = [%s, %s], want [Big PM, Small PM]", pms[0].ProjectManager, pms[1].ProjectManager)
	}

	all := AggregatePMs(jobs, Rules{})
	if len(all) != 3 {
		t.Errorf("len without rules = %d, want 3", len(all))
	}
}

func TestAggregateCustomers_WeightedDays(t *testing.T) {
	invs := []model.ARInvoiceMetric{
		{CustomerName: "City", Collectible: 100, Retainage: 10, TotalDue: 110, DaysOutstanding: 10, AgingBucket: model.BucketCurrent},
		{CustomerName: "City", Collectible: 300, TotalDue: 300, DaysOutstanding: 70, AgingBucket: model.Bucket61To90},
		{CustomerName: "County", Collectible: 50, TotalDue: 50, DaysOutstanding: 5, AgingBucket: model.BucketCurrent},
		{CustomerName: "", Collectible: 999, TotalDue: 999},
	}

	got := AggregateCustomers(invs)
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	city := got[0]
	if city.CustomerName != "City" {
		t.Fatalf("first = %s, want City", city.CustomerName)
	}
	// (100*10 + 300*70) / 400 = 55
	if city.AvgDays != 55 {
		t.Errorf("AvgDays = %v, want 55", city.AvgDays)
	}
	if city.Buckets.Current != 100 || city.Buckets.Days61To90 != 300 {
		t.Errorf("buckets = %+v, want current 100, 61-90 300", city.Buckets)
	}
	if city.TotalDue != 410 || city.InvoiceCount != 2 {
		t.Errorf("TotalDue/InvoiceCount = %v/%d, want 410/2", city.TotalDue, city.InvoiceCount)
	}
}

func TestAggregateVendors_WeightedByNetAmount(t *testing.T) {
	invs := []model.APInvoiceMetric{
		{VendorName: "Acme", RemainingBalance: 1100, Retainage: 100, AmountExRetainage: 1000, DaysOutstanding: 20, AgingBucket: model.BucketCurrent},
		{VendorName: "Acme", RemainingBalance: 500, AmountExRetainage: 500, DaysOutstanding: 95, AgingBucket: model.Bucket90Plus},
		{VendorName: "Beta", RemainingBalance: 2000, AmountExRetainage: 2000, DaysOutstanding: 1, AgingBucket: model.BucketCurrent},
	}

	got := AggregateVendors(invs)
	if len(got) != 2 || got[0].VendorName != "Beta" {
		t.Fatalf("got %+v, want Beta first", got)
	}
	acme := got[1]
	// (1000*20 + 500*95) / 1500 = 45
	if acme.AvgDays != 45 {
		t.Errorf("AvgDays = %v, want 45", acme.AvgDays)
	}
	if acme.AmountExRetainage != 1500 {
		t.Errorf("AmountExRetainage = %v, want 1500", acme.AmountExRetainage)
	}
	if acme.TotalDue != 1600 || acme.Retainage != 100 {
		t.Errorf("TotalDue/Retainage = %v/%v, want 1600/100", acme.TotalDue, acme.Retainage)
	}
	if acme.Buckets.Days90Plus != 500 {
		t.Errorf("Days90Plus = %v, want 500", acme.Buckets.Days90Plus)
	}
}

func TestAggregateCustomers_PMExclusionDoesNotApply(t *testing.T) {
	invs := []model.ARInvoiceMetric{
		{CustomerName: "City", ProjectManager: "Josh Angelo", Collectible: 10, TotalDue: 10},
	}
	if got := AggregateCustomers(invs); len(got) != 1 {
		t.Fatalf("len = %d, want 1", len(got))
	}
}
