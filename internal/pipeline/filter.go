package pipeline

import "github.com/theirongolddev/jobmetrics/internal/model"

// JobFilter selects jobs. Zero-value fields match everything.
type JobFilter struct {
	ProjectManager string
	Customer       string
	Status         model.JobStatus
	HasBudget      *bool
	ApplyPMRules   bool
}

// FilterJobs returns the jobs matching f. PM and customer are case-insensitive substrings.
func FilterJobs(jobs []model.JobMetrics, f JobFilter, rules Rules) []model.JobMetrics {
	var result []model.JobMetrics
	for _, j := range jobs {
		if f.ProjectManager != "" && !containsIgnoreCase(j.ProjectManager, f.ProjectManager) {
			continue
		}
		if f.Customer != "" && !containsIgnoreCase(j.Customer, f.Customer) {
			continue
		}
		if f.Status != "" && j.Status != f.Status {
			continue
		}
		if f.HasBudget != nil && j.HasBudget != *f.HasBudget {
			continue
		}
		if f.ApplyPMRules && rules.PMExcluded(j.ProjectManager) {
			continue
		}
		result = append(result, j)
	}
	return result
}

// FilterAR returns receivables whose customer and PM contain the given substrings.
func FilterAR(invoices []model.ARInvoiceMetric, customer, pm string) []model.ARInvoiceMetric {
	var result []model.ARInvoiceMetric
	for _, inv := range invoices {
		if customer != "" && !containsIgnoreCase(inv.CustomerName, customer) {
			continue
		}
		if pm != "" && !containsIgnoreCase(inv.ProjectManager, pm) {
			continue
		}
		result = append(result, inv)
	}
	return result
}

// FilterAP returns payables whose vendor and PM contain the given substrings.
func FilterAP(invoices []model.APInvoiceMetric, vendor, pm string) []model.APInvoiceMetric {
	var result []model.APInvoiceMetric
	for _, inv := range invoices {
		if vendor != "" && !containsIgnoreCase(inv.VendorName, vendor) {
			continue
		}
		if pm != "" && !containsIgnoreCase(inv.ProjectManager, pm) {
			continue
		}
		result = append(result, inv)
	}
	return result
}
