// Package source reads the job, AR and AP extracts and converts them into typed records.
// It is the only place loosely typed input is handled.
package source

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/theirongolddev/jobmetrics/internal/model"
)

// ErrMalformedExtract is returned when an extract is not the expected JSON document.
var ErrMalformedExtract = errors.New("malformed extract")

var utf8BOM = []byte("\xef\xbb\xbf")

// JobsExtract holds the job budgets plus per-job actual cost and billed revenue.
type JobsExtract struct {
	Jobs    []model.Job
	Actuals map[string]float64
	Billed  map[string]float64
	Coerced int
}

// ARExtract holds receivable rows.
type ARExtract struct {
	Invoices []model.ARInvoice
	Coerced  int
}

// APExtract holds payable rows.
type APExtract struct {
	Invoices []model.APInvoice
	Coerced  int
}

// Extracts is one complete, typed load of all three extracts.
type Extracts struct {
	Jobs     JobsExtract
	AR       ARExtract
	AP       APExtract
	LoadedAt time.Time
}

// Coerced returns how many numeric fields were replaced by zero across all extracts.
func (e *Extracts) Coerced() int {
	return e.Jobs.Coerced + e.AR.Coerced + e.AP.Coerced
}

func decode(name string, data []byte, v any) error {
	data = bytes.TrimPrefix(data, utf8BOM)
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformedExtract, name, err)
	}
	return nil
}

// ParseJobs decodes the job extract. Actual cost rows are summed per job; a repeated
// billed revenue row replaces the earlier one.
func ParseJobs(data []byte) (JobsExtract, error) {
	var f jobsFile
	if err := decode("jobs", data, &f); err != nil {
		return JobsExtract{}, err
	}

	out := JobsExtract{
		Jobs:    make([]model.Job, 0, len(f.Budgets)),
		Actuals: make(map[string]float64),
		Billed:  make(map[string]float64),
	}

	for _, r := range f.Budgets {
		out.Coerced += r.coerced()
		out.Jobs = append(out.Jobs, model.Job{
			JobNo:            r.JobNo.String(),
			Description:      r.Description.String(),
			ProjectManager:   r.ProjectManager.String(),
			Customer:         r.Customer.String(),
			Status:           model.ParseJobStatus(r.Status.String()),
			OriginalContract: r.OriginalContract.Value,
			RevisedContract:  r.RevisedContract.Value,
			OriginalCost:     r.OriginalCost.Value,
			RevisedCost:      r.RevisedCost.Value,
		})
	}

	for _, r := range f.Actuals {
		out.Coerced += countCoerced(r.Value, r.ActualCost)
		out.Actuals[r.job()] += r.amount()
	}

	for _, r := range f.Billed {
		out.Coerced += countCoerced(r.BilledUpper, r.BilledRevenue)
		out.Billed[r.job()] = r.amount()
	}

	return out, nil
}

// ParseAR decodes the receivables extract.
func ParseAR(data []byte) (ARExtract, error) {
	var f invoicesFile[rawARInvoice]
	if err := decode("ar", data, &f); err != nil {
		return ARExtract{}, err
	}

	out := ARExtract{Invoices: make([]model.ARInvoice, 0, len(f.Invoices))}
	for _, r := range f.Invoices {
		out.Coerced += r.coerced()
		out.Invoices = append(out.Invoices, model.ARInvoice{
			InvoiceNo:           r.InvoiceNo.String(),
			CustomerName:        r.CustomerName.String(),
			ProjectManager:      r.ProjectManager.String(),
			JobNo:               r.JobNo.String(),
			InvoiceDate:         r.InvoiceDate.String(),
			DueDate:             r.DueDate.String(),
			InvoiceAmount:       r.InvoiceAmount.Value,
			CalculatedAmountDue: r.CalculatedAmountDue.Value,
			Retainage:           r.Retainage.Value,
			DaysOutstanding:     truncDays(r.DaysOutstanding.Value),
		})
	}
	return out, nil
}

// ParseAP decodes the payables extract.
func ParseAP(data []byte) (APExtract, error) {
	var f invoicesFile[rawAPInvoice]
	if err := decode("ap", data, &f); err != nil {
		return APExtract{}, err
	}

	out := APExtract{Invoices: make([]model.APInvoice, 0, len(f.Invoices))}
	for _, r := range f.Invoices {
		out.Coerced += r.coerced()
		out.Invoices = append(out.Invoices, model.APInvoice{
			InvoiceNo:        r.InvoiceNo.String(),
			VendorName:       r.VendorName.String(),
			ProjectManager:   r.ProjectManager.String(),
			JobNo:            r.JobNo.String(),
			InvoiceDate:      r.InvoiceDate.String(),
			DueDate:          r.DueDate.String(),
			InvoiceAmount:    r.InvoiceAmount.Value,
			RemainingBalance: r.RemainingBalance.Value,
			Retainage:        r.Retainage.Value,
			DaysOutstanding:  truncDays(r.DaysOutstanding.Value),
		})
	}
	return out, nil
}

// truncDays converts a fractional day count to an int, truncating toward zero.
// Negative counts are kept here; the invoice calculators clamp them.
func truncDays(v float64) int {
	const maxDays = 1 << 20
	v = math.Trunc(v)
	switch {
	case v > maxDays:
		return maxDays
	case v < -maxDays:
		return -maxDays
	}
	return int(v)
}
