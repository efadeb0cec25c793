package query

import (
	"sort"
	"strings"
	"time"

	"github.com/theirongolddev/jobmetrics/internal/cache"
	"github.com/theirongolddev/jobmetrics/internal/model"
	"github.com/theirongolddev/jobmetrics/internal/pipeline"
)

// Kind is the value type of a field.
type Kind string

const (
	KindText   Kind = "text"
	KindNumber Kind = "number"
	KindBool   Kind = "bool"
	KindDate   Kind = "date"
	KindEnum   Kind = "enum"
)

// fieldDef describes one queryable column of T.
//
// scope limits which rows a numeric field speaks for: a job's margin only
// counts when the job is valid for profit. Rows outside the scope are left out
// of sums, averages, rankings and comparison filters on that field.
type fieldDef[T any] struct {
	kind      Kind
	text      func(T) string
	num       func(T) float64
	flag      func(T) bool
	additive  bool
	scope     func(T) bool
	weight    func(T) float64
	normalize func(string) string
}

func textField[T any](get func(T) string) fieldDef[T] {
	return fieldDef[T]{kind: KindText, text: get}
}

func dateField[T any](get func(T) string) fieldDef[T] {
	return fieldDef[T]{kind: KindDate, text: get}
}

func enumField[T any](get func(T) string, normalize func(string) string) fieldDef[T] {
	return fieldDef[T]{kind: KindEnum, text: get, normalize: normalize}
}

func boolField[T any](get func(T) bool) fieldDef[T] {
	return fieldDef[T]{kind: KindBool, flag: get}
}

// amountField is an additive number: dollars or counts.
func amountField[T any](get func(T) float64) fieldDef[T] {
	return fieldDef[T]{kind: KindNumber, num: get, additive: true}
}

// ratioField is a number that must not be summed: percentages, averages, ages.
func ratioField[T any](get func(T) float64) fieldDef[T] {
	return fieldDef[T]{kind: KindNumber, num: get}
}

func (f fieldDef[T]) scoped(s func(T) bool) fieldDef[T] {
	f.scope = s
	return f
}

func (f fieldDef[T]) weighted(w func(T) float64) fieldDef[T] {
	f.weight = w
	return f
}

func (f fieldDef[T]) inScope(row T) bool {
	return f.scope == nil || f.scope(row)
}

// groupable reports whether rows can be bucketed by this field.
func (f fieldDef[T]) groupable() bool {
	return f.kind == KindText || f.kind == KindEnum || f.kind == KindBool || f.kind == KindDate
}

// key renders the field as a group key.
func (f fieldDef[T]) key(row T) string {
	switch f.kind {
	case KindBool:
		if f.flag(row) {
			return "true"
		}
		return "false"
	case KindNumber:
		return formatNumber(f.num(row))
	default:
		s := strings.TrimSpace(f.text(row))
		if s == "" {
			return blankKey
		}
		return s
	}
}

const blankKey = "(blank)"

// aggGroup is a group produced by one of the pipeline aggregators.
type aggGroup struct {
	key     string
	summary any
}

// table binds a target to its rows and fields.
type table[T any] struct {
	target    Target
	fields    map[string]fieldDef[T]
	aliases   map[string]string
	primary   string
	rows      func(*cache.Snapshot) []T
	summarize func([]T) any

	// groupers reuse the pipeline rollups for their natural dimension.
	groupers map[string]func(*cache.Snapshot, []T) []aggGroup
}

func (t *table[T]) resolve(name string) (string, fieldDef[T], bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	if canon, ok := t.aliases[name]; ok {
		name = canon
	}
	def, ok := t.fields[name]
	return name, def, ok
}

// FieldInfo describes a field for plan authors.
type FieldInfo struct {
	Name     string `json:"name"`
	Kind     Kind   `json:"kind"`
	Additive bool   `json:"additive,omitempty"`
	Scoped   bool   `json:"scoped,omitempty"`
	Weighted bool   `json:"weighted,omitempty"`
}

func (t *table[T]) info() []FieldInfo {
	out := make([]FieldInfo, 0, len(t.fields))
	for name, def := range t.fields {
		out = append(out, FieldInfo{
			Name:     name,
			Kind:     def.kind,
			Additive: def.additive,
			Scoped:   def.scope != nil,
			Weighted: def.weight != nil,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func normalizeStatus(s string) string {
	return string(model.ParseJobStatus(s))
}

func normalizeBucket(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "current", "0-30":
		return string(model.BucketCurrent)
	case "days_31_60", "31-60":
		return string(model.Bucket31To60)
	case "days_61_90", "61-90":
		return string(model.Bucket61To90)
	case "days_90_plus", "90+", "over 90":
		return string(model.Bucket90Plus)
	}
	return strings.ToLower(strings.TrimSpace(s))
}

func normalizeBasis(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"01/02/2006",
	"1/2/2006",
	"2006-01-02 15:04:05",
}

func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func validForProfit(j model.JobMetrics) bool { return j.ValidForProfit }
func hasBudget(j model.JobMetrics) bool { return j.HasBudget }

var jobsTable = &table[model.JobMetrics]{
	target:  TargetJobs,
	primary: "revised_contract",
	rows:    func(s *cache.Snapshot) []model.JobMetrics { return s.Jobs },
	fields: map[string]fieldDef[model.JobMetrics]{
		"job_no":             textField(func(j model.JobMetrics) string { return j.JobNo }),
		"job_description":    textField(func(j model.JobMetrics) string { return j.Description }),
		"project_manager":    textField(func(j model.JobMetrics) string { return j.ProjectManager }),
		"customer_name":      textField(func(j model.JobMetrics) string { return j.Customer }),
		"job_status":         enumField(func(j model.JobMetrics) string { return string(j.Status) }, normalizeStatus),
		"profit_basis":       enumField(func(j model.JobMetrics) string { return j.ProfitBasis }, normalizeBasis),
		"has_budget":         boolField(hasBudget),
		"valid_for_profit":   boolField(validForProfit),
		"original_contract":  amountField(func(j model.JobMetrics) float64 { return j.OriginalContract }),
		"revised_contract":   amountField(func(j model.JobMetrics) float64 { return j.RevisedContract }),
		"original_cost":      amountField(func(j model.JobMetrics) float64 { return j.OriginalCost }),
		"revised_cost":       amountField(func(j model.JobMetrics) float64 { return j.RevisedCost }),
		"actual_cost":        amountField(func(j model.JobMetrics) float64 { return j.ActualCost }),
		"billed_revenue":     amountField(func(j model.JobMetrics) float64 { return j.BilledRevenue }),
		"over_under_billing": amountField(func(j model.JobMetrics) float64 { return j.OverUnderBilling }),
		"earned_revenue":     amountField(func(j model.JobMetrics) float64 { return j.EarnedRevenue }).scoped(hasBudget),
		"backlog":            amountField(func(j model.JobMetrics) float64 { return j.Backlog }).scoped(hasBudget),
		"percent_complete":   ratioField(func(j model.JobMetrics) float64 { return j.PercentComplete }).scoped(hasBudget),
		"profit":             amountField(func(j model.JobMetrics) float64 { return j.Profit }).scoped(validForProfit),
		"margin":             ratioField(func(j model.JobMetrics) float64 { return j.Margin }).scoped(validForProfit),
	},
	aliases: map[string]string{
		"job":          "job_no",
		"description":  "job_description",
		"pm":           "project_manager",
		"customer":     "customer_name",
		"status":       "job_status",
		"contract":     "revised_contract",
		"budget":       "revised_cost",
		"budget_cost":  "revised_cost",
		"billed":       "billed_revenue",
		"cost":         "actual_cost",
		"completion":   "percent_complete",
		"earned":       "earned_revenue",
		"over_under":   "over_under_billing",
	},
	summarize: func(rows []model.JobMetrics) any { return pipeline.SummarizeJobs(rows, false) },
	groupers: map[string]func(*cache.Snapshot, []model.JobMetrics) []aggGroup{
		"project_manager": func(s *cache.Snapshot, rows []model.JobMetrics) []aggGroup {
			pms := pipeline.AggregatePMs(rows, s.Rules)
			out := make([]aggGroup, 0, len(pms))
			for _, pm := range pms {
				out = append(out, aggGroup{key: pm.ProjectManager, summary: pm})
			}
			return out
		},
	},
}

func arCollectible(i model.ARInvoiceMetric) float64 { return i.Collectible }

var arTable = &table[model.ARInvoiceMetric]{
	target:  TargetAR,
	primary: "total_due",
	rows:    func(s *cache.Snapshot) []model.ARInvoiceMetric { return s.AR },
	fields: map[string]fieldDef[model.ARInvoiceMetric]{
		"invoice_no":            textField(func(i model.ARInvoiceMetric) string { return i.InvoiceNo }),
		"customer_name":         textField(func(i model.ARInvoiceMetric) string { return i.CustomerName }),
		"project_manager":       textField(func(i model.ARInvoiceMetric) string { return i.ProjectManager }),
		"job_no":                textField(func(i model.ARInvoiceMetric) string { return i.JobNo }),
		"invoice_date":          dateField(func(i model.ARInvoiceMetric) string { return i.InvoiceDate }),
		"due_date":              dateField(func(i model.ARInvoiceMetric) string { return i.DueDate }),
		"aging_bucket":          enumField(func(i model.ARInvoiceMetric) string { return string(i.AgingBucket) }, normalizeBucket),
		"invoice_amount":        amountField(func(i model.ARInvoiceMetric) float64 { return i.InvoiceAmount }),
		"calculated_amount_due": amountField(func(i model.ARInvoiceMetric) float64 { return i.CalculatedAmountDue }),
		"retainage":             amountField(func(i model.ARInvoiceMetric) float64 { return i.Retainage }),
		"collectible":           amountField(arCollectible),
		"total_due":             amountField(func(i model.ARInvoiceMetric) float64 { return i.TotalDue }),
		"days_outstanding":      ratioField(func(i model.ARInvoiceMetric) float64 { return float64(i.DaysOutstanding) }).weighted(arCollectible),
	},
	aliases: map[string]string{
		"customer":   "customer_name",
		"pm":         "project_manager",
		"invoice":    "invoice_no",
		"job":        "job_no",
		"bucket":     "aging_bucket",
		"aging":      "aging_bucket",
		"days":       "days_outstanding",
		"amount_due": "calculated_amount_due",
	},
	summarize: func(rows []model.ARInvoiceMetric) any { return pipeline.SummarizeAR(rows) },
	groupers: map[string]func(*cache.Snapshot, []model.ARInvoiceMetric) []aggGroup{
		"customer_name": func(_ *cache.Snapshot, rows []model.ARInvoiceMetric) []aggGroup {
			custs := pipeline.AggregateCustomers(rows)
			out := make([]aggGroup, 0, len(custs))
			for _, c := range custs {
				out = append(out, aggGroup{key: c.CustomerName, summary: c})
			}
			return out
		},
	},
}

func apNet(i model.APInvoiceMetric) float64 { return i.AmountExRetainage }

var apTable = &table[model.APInvoiceMetric]{
	target:  TargetAP,
	primary: "remaining_balance",
	rows:    func(s *cache.Snapshot) []model.APInvoiceMetric { return s.AP },
	fields: map[string]fieldDef[model.APInvoiceMetric]{
		"invoice_no":          textField(func(i model.APInvoiceMetric) string { return i.InvoiceNo }),
		"vendor_name":         textField(func(i model.APInvoiceMetric) string { return i.VendorName }),
		"project_manager":     textField(func(i model.APInvoiceMetric) string { return i.ProjectManager }),
		"job_no":              textField(func(i model.APInvoiceMetric) string { return i.JobNo }),
		"invoice_date":        dateField(func(i model.APInvoiceMetric) string { return i.InvoiceDate }),
		"due_date":            dateField(func(i model.APInvoiceMetric) string { return i.DueDate }),
		"aging_bucket":        enumField(func(i model.APInvoiceMetric) string { return string(i.AgingBucket) }, normalizeBucket),
		"invoice_amount":      amountField(func(i model.APInvoiceMetric) float64 { return i.InvoiceAmount }),
		"remaining_balance":   amountField(func(i model.APInvoiceMetric) float64 { return i.RemainingBalance }),
		"retainage":           amountField(func(i model.APInvoiceMetric) float64 { return i.Retainage }),
		"amount_ex_retainage": amountField(apNet),
		"days_outstanding":    ratioField(func(i model.APInvoiceMetric) float64 { return float64(i.DaysOutstanding) }).weighted(apNet),
	},
	aliases: map[string]string{
		"vendor":    "vendor_name",
		"pm":        "project_manager",
		"invoice":   "invoice_no",
		"job":       "job_no",
		"bucket":    "aging_bucket",
		"aging":     "aging_bucket",
		"days":      "days_outstanding",
		"total_due": "remaining_balance",
		"balance":   "remaining_balance",
	},
	summarize: func(rows []model.APInvoiceMetric) any { return pipeline.SummarizeAP(rows) },
	groupers: map[string]func(*cache.Snapshot, []model.APInvoiceMetric) []aggGroup{
		"vendor_name": func(_ *cache.Snapshot, rows []model.APInvoiceMetric) []aggGroup {
			vends := pipeline.AggregateVendors(rows)
			out := make([]aggGroup, 0, len(vends))
			for _, v := range vends {
				out = append(out, aggGroup{key: v.VendorName, summary: v})
			}
			return out
		},
	},
}

func pmHasProfit(p model.PMSummary) bool { return p.JobsValidForProfit > 0 }
func pmHasBudget(p model.PMSummary) bool { return p.JobsWithBudget > 0 }

// Rollup ratios average over the jobs behind them, not over managers.
func pmProfitJobs(p model.PMSummary) float64 { return float64(p.JobsValidForProfit) }
func pmBudgetJobs(p model.PMSummary) float64 { return float64(p.JobsWithBudget) }

var pmsTable = &table[model.PMSummary]{
	target:  TargetPMs,
	primary: "total_contract",
	rows:    func(s *cache.Snapshot) []model.PMSummary { return s.PMs },
	fields: map[string]fieldDef[model.PMSummary]{
		"project_manager":       textField(func(p model.PMSummary) string { return p.ProjectManager }),
		"total_jobs":            amountField(func(p model.PMSummary) float64 { return float64(p.TotalJobs) }),
		"active_jobs":           amountField(func(p model.PMSummary) float64 { return float64(p.ActiveJobs) }),
		"jobs_with_budget":      amountField(func(p model.PMSummary) float64 { return float64(p.JobsWithBudget) }),
		"jobs_valid_for_profit": amountField(func(p model.PMSummary) float64 { return float64(p.JobsValidForProfit) }),
		"total_contract":        amountField(func(p model.PMSummary) float64 { return p.TotalContract }),
		"total_budget":          amountField(func(p model.PMSummary) float64 { return p.TotalBudget }),
		"total_actual":          amountField(func(p model.PMSummary) float64 { return p.TotalActual }),
		"total_billed":          amountField(func(p model.PMSummary) float64 { return p.TotalBilled }),
		"total_earned_revenue":  amountField(func(p model.PMSummary) float64 { return p.TotalEarnedRevenue }),
		"total_backlog":         amountField(func(p model.PMSummary) float64 { return p.TotalBacklog }),
		"total_profit":          amountField(func(p model.PMSummary) float64 { return p.TotalProfit }),
		"avg_margin":            ratioField(func(p model.PMSummary) float64 { return p.AvgMargin }).scoped(pmHasProfit).weighted(pmProfitJobs),
		"avg_completion":        ratioField(func(p model.PMSummary) float64 { return p.AvgCompletion }).scoped(pmHasBudget).weighted(pmBudgetJobs),
	},
	aliases: map[string]string{
		"pm":       "project_manager",
		"contract": "total_contract",
		"profit":   "total_profit",
		"margin":   "avg_margin",
		"backlog":  "total_backlog",
	},
}

var customersTable = &table[model.CustomerSummary]{
	target:  TargetCustomers,
	primary: "total_due",
	rows:    func(s *cache.Snapshot) []model.CustomerSummary { return s.Customers },
	fields: map[string]fieldDef[model.CustomerSummary]{
		"customer_name":        textField(func(c model.CustomerSummary) string { return c.CustomerName }),
		"invoice_count":        amountField(func(c model.CustomerSummary) float64 { return float64(c.InvoiceCount) }),
		"total_due":            amountField(func(c model.CustomerSummary) float64 { return c.TotalDue }),
		"collectible":          amountField(func(c model.CustomerSummary) float64 { return c.Collectible }),
		"retainage":            amountField(func(c model.CustomerSummary) float64 { return c.Retainage }),
		"current":              amountField(func(c model.CustomerSummary) float64 { return c.Buckets.Current }),
		"days_31_60":           amountField(func(c model.CustomerSummary) float64 { return c.Buckets.Days31To60 }),
		"days_61_90":           amountField(func(c model.CustomerSummary) float64 { return c.Buckets.Days61To90 }),
		"days_90_plus":         amountField(func(c model.CustomerSummary) float64 { return c.Buckets.Days90Plus }),
		"avg_days_outstanding": ratioField(func(c model.CustomerSummary) float64 { return c.AvgDays }).weighted(func(c model.CustomerSummary) float64 { return c.Collectible }),
	},
	aliases: map[string]string{
		"customer": "customer_name",
		"avg_days": "avg_days_outstanding",
	},
}

var vendorsTable = &table[model.VendorSummary]{
	target:  TargetVendors,
	primary: "total_due",
	rows:    func(s *cache.Snapshot) []model.VendorSummary { return s.Vendors },
	fields: map[string]fieldDef[model.VendorSummary]{
		"vendor_name":          textField(func(v model.VendorSummary) string { return v.VendorName }),
		"invoice_count":        amountField(func(v model.VendorSummary) float64 { return float64(v.InvoiceCount) }),
		"total_due":            amountField(func(v model.VendorSummary) float64 { return v.TotalDue }),
		"amount_ex_retainage":  amountField(func(v model.VendorSummary) float64 { return v.AmountExRetainage }),
		"retainage":            amountField(func(v model.VendorSummary) float64 { return v.Retainage }),
		"current":              amountField(func(v model.VendorSummary) float64 { return v.Buckets.Current }),
		"days_31_60":           amountField(func(v model.VendorSummary) float64 { return v.Buckets.Days31To60 }),
		"days_61_90":           amountField(func(v model.VendorSummary) float64 { return v.Buckets.Days61To90 }),
		"days_90_plus":         amountField(func(v model.VendorSummary) float64 { return v.Buckets.Days90Plus }),
		"avg_days_outstanding": ratioField(func(v model.VendorSummary) float64 { return v.AvgDays }).weighted(func(v model.VendorSummary) float64 { return v.AmountExRetainage }),
	},
	aliases: map[string]string{
		"vendor":   "vendor_name",
		"avg_days": "avg_days_outstanding",
	},
}

// Fields returns the queryable fields of a target, or false for an unknown target.
func Fields(t Target) ([]FieldInfo, bool) {
	switch t {
	case TargetJobs:
		return jobsTable.info(), true
	case TargetAR:
		return arTable.info(), true
	case TargetAP:
		return apTable.info(), true
	case TargetPMs:
		return pmsTable.info(), true
	case TargetCustomers:
		return customersTable.info(), true
	case TargetVendors:
		return vendorsTable.info(), true
	}
	return nil, false
}
