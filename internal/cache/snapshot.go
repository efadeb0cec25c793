package cache

import (
	"time"

	"github.com/theirongolddev/jobmetrics/internal/model"
	"github.com/theirongolddev/jobmetrics/internal/pipeline"
	"github.com/theirongolddev/jobmetrics/internal/source"
)

// Snapshot is one fully computed, immutable view of every metric collection.
// Readers share it; nothing may modify a Snapshot after Build returns it.
type Snapshot struct {
	ID          string
	RefreshedAt time.Time
	Rules       pipeline.Rules

	Jobs      []model.JobMetrics
	AR        []model.ARInvoiceMetric
	AP        []model.APInvoiceMetric
	PMs       []model.PMSummary
	Customers []model.CustomerSummary
	Vendors   []model.VendorSummary

	JobsSummary       model.JobsSummary
	ActiveJobsSummary model.JobsSummary
	ARSummary         model.ARSummary
	APSummary         model.APSummary
}

// Counts is the number of records in each collection of a snapshot.
type Counts struct {
	Jobs      int `json:"jobs"`
	AR        int `json:"ar"`
	AP        int `json:"ap"`
	PMs       int `json:"pms"`
	Customers int `json:"customers"`
	Vendors   int `json:"vendors"`
}

// Counts returns the record counts of the snapshot.
func (s *Snapshot) Counts() Counts {
	return Counts{
		Jobs:      len(s.Jobs),
		AR:        len(s.AR),
		AP:        len(s.AP),
		PMs:       len(s.PMs),
		Customers: len(s.Customers),
		Vendors:   len(s.Vendors),
	}
}

// Build computes a snapshot from a typed extract load. It does not modify ex.
func Build(ex *source.Extracts, rules pipeline.Rules) *Snapshot {
	jobs := pipeline.BuildJobMetrics(ex.Jobs.Jobs, ex.Jobs.Actuals, ex.Jobs.Billed)
	ar := pipeline.BuildARMetrics(ex.AR.Invoices)
	ap := pipeline.BuildAPMetrics(ex.AP.Invoices, rules)

	return &Snapshot{
		Rules:             rules,
		Jobs:              jobs,
		AR:                ar,
		AP:                ap,
		PMs:               pipeline.AggregatePMs(jobs, rules),
		Customers:         pipeline.AggregateCustomers(ar),
		Vendors:           pipeline.AggregateVendors(ap),
		JobsSummary:       pipeline.SummarizeJobs(jobs, false),
		ActiveJobsSummary: pipeline.SummarizeJobs(jobs, true),
		ARSummary:         pipeline.SummarizeAR(ar),
		APSummary:         pipeline.SummarizeAP(ap),
	}
}
