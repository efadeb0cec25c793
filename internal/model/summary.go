package model

// BucketTotals holds one amount per aging bucket.
type BucketTotals struct {
	Current    float64 `json:"current"`
	Days31To60 float64 `json:"days_31_60"`
	Days61To90 float64 `json:"days_61_90"`
	Days90Plus float64 `json:"days_90_plus"`
}

// Add accumulates amount into the given bucket.
func (b *BucketTotals) Add(bucket AgingBucket, amount float64) {
	switch bucket {
	case BucketCurrent:
		b.Current += amount
	case Bucket31To60:
		b.Days31To60 += amount
	case Bucket61To90:
		b.Days61To90 += amount
	case Bucket90Plus:
		b.Days90Plus += amount
	}
}

// Get returns the amount held in a bucket.
func (b BucketTotals) Get(bucket AgingBucket) float64 {
	switch bucket {
	case BucketCurrent:
		return b.Current
	case Bucket31To60:
		return b.Days31To60
	case Bucket61To90:
		return b.Days61To90
	case Bucket90Plus:
		return b.Days90Plus
	}
	return 0
}

// PMSummary rolls up job metrics for one project manager.
type PMSummary struct {
	ProjectManager     string  `json:"project_manager"`
	TotalJobs          int     `json:"total_jobs"`
	ActiveJobs         int     `json:"active_jobs"`
	JobsWithBudget     int     `json:"jobs_with_budget"`
	JobsValidForProfit int     `json:"jobs_valid_for_profit"`
	TotalContract      float64 `json:"total_contract"`
	TotalBudget        float64 `json:"total_budget"`
	TotalActual        float64 `json:"total_actual"`
	TotalBilled        float64 `json:"total_billed"`
	TotalEarnedRevenue float64 `json:"total_earned_revenue"`
	TotalBacklog       float64 `json:"total_backlog"`
	TotalProfit        float64 `json:"total_profit"`
	AvgMargin          float64 `json:"avg_margin"`
	AvgCompletion      float64 `json:"avg_completion"`
}

// CustomerSummary rolls up open receivables for one customer.
// Bucket amounts are collectible dollars.
type CustomerSummary struct {
	CustomerName string       `json:"customer_name"`
	InvoiceCount int          `json:"invoice_count"`
	TotalDue     float64      `json:"total_due"`
	Collectible  float64      `json:"collectible"`
	Retainage    float64      `json:"retainage"`
	Buckets      BucketTotals `json:"buckets"`
	AvgDays      float64      `json:"avg_days_outstanding"`
}

// VendorSummary rolls up open payables for one vendor.
// Bucket amounts are dollars net of retainage.
type VendorSummary struct {
	VendorName        string       `json:"vendor_name"`
	InvoiceCount      int          `json:"invoice_count"`
	TotalDue          float64      `json:"total_due"`
	AmountExRetainage float64      `json:"amount_ex_retainage"`
	Retainage         float64      `json:"retainage"`
	Buckets           BucketTotals `json:"buckets"`
	AvgDays           float64      `json:"avg_days_outstanding"`
}

// JobsSummary is the grand-total row across a set of jobs.
type JobsSummary struct {
	TotalJobs          int     `json:"total_jobs"`
	JobsWithBudget     int     `json:"jobs_with_budget"`
	JobsWithoutBudget  int     `json:"jobs_without_budget"`
	JobsValidForProfit int     `json:"jobs_valid_for_profit"`
	TotalContract      float64 `json:"total_contract"`
	TotalBudget        float64 `json:"total_budget"`
	TotalActual        float64 `json:"total_actual"`
	TotalBilled        float64 `json:"total_billed"`
	TotalEarnedRevenue float64 `json:"total_earned_revenue"`
	TotalBacklog       float64 `json:"total_backlog"`
	TotalProfit        float64 `json:"total_profit"`
	AvgMargin          float64 `json:"avg_margin"`
	AvgCompletion      float64 `json:"avg_completion"`
}

// ARSummary is the grand-total row across open receivables.
type ARSummary struct {
	TotalInvoices int          `json:"total_invoices"`
	TotalDue      float64      `json:"total_due"`
	Collectible   float64      `json:"collectible"`
	Retainage     float64      `json:"retainage"`
	Buckets       BucketTotals `json:"buckets"`
	AvgDays       float64      `json:"avg_days_outstanding"`
}

// APSummary is the grand-total row across open payables.
type APSummary struct {
	TotalInvoices     int          `json:"total_invoices"`
	TotalDue          float64      `json:"total_due"`
	AmountExRetainage float64      `json:"amount_ex_retainage"`
	Retainage         float64      `json:"retainage"`
	Buckets           BucketTotals `json:"buckets"`
	AvgDays           float64      `json:"avg_days_outstanding"`
}
