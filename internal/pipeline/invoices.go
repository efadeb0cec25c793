package pipeline

import (
	"strings"

	"github.com/theirongolddev/jobmetrics/internal/model"
)

func clampDays(d int) int {
	if d < 0 {
		return 0
	}
	return d
}

// CalculateARInvoiceMetrics returns the aged receivable for inv, or false when
// nothing is due on it.
func CalculateARInvoiceMetrics(inv model.ARInvoice) (model.ARInvoiceMetric, bool) {
	due := inv.CalculatedAmountDue
	if due <= 0 {
		return model.ARInvoiceMetric{}, false
	}

	collectible := due - inv.Retainage
	if collectible < 0 {
		collectible = 0
	}
	days := clampDays(inv.DaysOutstanding)

	return model.ARInvoiceMetric{
		InvoiceNo:           inv.InvoiceNo,
		CustomerName:        strings.TrimSpace(inv.CustomerName),
		ProjectManager:      strings.TrimSpace(inv.ProjectManager),
		JobNo:               inv.JobNo,
		InvoiceDate:         inv.InvoiceDate,
		DueDate:             inv.DueDate,
		InvoiceAmount:       inv.InvoiceAmount,
		CalculatedAmountDue: due,
		Retainage:           inv.Retainage,
		Collectible:         round2(collectible),
		DaysOutstanding:     days,
		AgingBucket:         model.BucketFor(days),
		TotalDue:            round2(collectible + inv.Retainage),
	}, true
}

// CalculateAPInvoiceMetrics returns the aged payable for inv, or false when it is
// paid off or owed to an excluded vendor.
func CalculateAPInvoiceMetrics(inv model.APInvoice, rules Rules) (model.APInvoiceMetric, bool) {
	remaining := inv.RemainingBalance
	if remaining <= 0 {
		return model.APInvoiceMetric{}, false
	}
	vendor := strings.TrimSpace(inv.VendorName)
	if rules.VendorExcluded(vendor) {
		return model.APInvoiceMetric{}, false
	}

	exRet := remaining
	if inv.Retainage > 0 {
		exRet = remaining - inv.Retainage
	}
	days := clampDays(inv.DaysOutstanding)

	return model.APInvoiceMetric{
		InvoiceNo:         inv.InvoiceNo,
		VendorName:        vendor,
		ProjectManager:    strings.TrimSpace(inv.ProjectManager),
		JobNo:             inv.JobNo,
		InvoiceDate:       inv.InvoiceDate,
		DueDate:           inv.DueDate,
		InvoiceAmount:     inv.InvoiceAmount,
		RemainingBalance:  remaining,
		Retainage:         inv.Retainage,
		AmountExRetainage: round2(exRet),
		DaysOutstanding:   days,
		AgingBucket:       model.BucketFor(days),
	}, true
}

// BuildARMetrics ages every open receivable.
func BuildARMetrics(invoices []model.ARInvoice) []model.ARInvoiceMetric {
	out := make([]model.ARInvoiceMetric, 0, len(invoices))
	for _, inv := range invoices {
		if m, ok := CalculateARInvoiceMetrics(inv); ok {
			out = append(out, m)
		}
	}
	return out
}

// BuildAPMetrics ages every open payable not owed to an excluded vendor.
func BuildAPMetrics(invoices []model.APInvoice, rules Rules) []model.APInvoiceMetric {
	out := make([]model.APInvoiceMetric, 0, len(invoices))
	for _, inv := range invoices {
		if m, ok := CalculateAPInvoiceMetrics(inv, rules); ok {
			out = append(out, m)
		}
	}
	return out
}
