package source

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Number is a numeric extract field that tolerates strings, nulls and garbage.
// Anything that is not a finite number decodes to zero with Coerced set.
// Null, absent and empty-string values are plain zero and are not counted.
type Number struct {
	Value   float64
	Coerced bool
}

// UnmarshalJSON implements json.Unmarshaler.
func (n *Number) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	*n = Number{}
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}

	switch b[0] {
	case '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			n.Coerced = true
			return nil
		}
		v, ok := parseNumeric(s)
		n.Value, n.Coerced = v, !ok
		return nil
	case 't', 'f', '[', '{':
		n.Coerced = true
		return nil
	}

	v, err := strconv.ParseFloat(string(b), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		n.Coerced = true
		return nil
	}
	n.Value = v
	return nil
}

// parseNumeric accepts report-style amounts: "$1,234.50", " 12 ", "(300.00)".
func parseNumeric(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, true
	}

	neg := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		neg = true
		s = s[1 : len(s)-1]
	}
	s = strings.NewReplacer("$", "", ",", "", " ", "").Replace(s)

	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	if neg {
		v = -v
	}
	return v, true
}

// Text is a string extract field that also accepts bare numbers.
// Job numbers in particular arrive as either.
type Text string

// UnmarshalJSON implements json.Unmarshaler.
func (t *Text) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*t = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			*t = ""
			return nil
		}
		*t = Text(s)
		return nil
	}
	if b[0] == '[' || b[0] == '{' {
		*t = ""
		return nil
	}
	*t = Text(b)
	return nil
}

// String returns the trimmed value.
func (t Text) String() string {
	return strings.TrimSpace(string(t))
}

// jobsFile is the layout of the job extract.
type jobsFile struct {
	Budgets []rawJob    `json:"job_budgets"`
	Actuals []rawActual `json:"job_actuals"`
	Billed  []rawBilled `json:"job_billed_revenue"`
}

type rawJob struct {
	JobNo            Text   `json:"job_no"`
	Description      Text   `json:"job_description"`
	ProjectManager   Text   `json:"project_manager_name"`
	Customer         Text   `json:"customer_name"`
	Status           Text   `json:"job_status"`
	OriginalContract Number `json:"original_contract"`
	RevisedContract  Number `json:"revised_contract"`
	OriginalCost     Number `json:"original_cost"`
	RevisedCost      Number `json:"revised_cost"`
}

func (r rawJob) coerced() int {
	return countCoerced(r.OriginalContract, r.RevisedContract, r.OriginalCost, r.RevisedCost)
}

// Actuals come out of two different report writers, hence both key spellings.
type rawActual struct {
	JobNoUpper Text   `json:"Job_No"`
	JobNo      Text   `json:"job_no"`
	Value      Number `json:"Value"`
	ActualCost Number `json:"actual_cost"`
}

func (r rawActual) job() string {
	if s := r.JobNoUpper.String(); s != "" {
		return s
	}
	return r.JobNo.String()
}

func (r rawActual) amount() float64 {
	if r.Value.Value != 0 {
		return r.Value.Value
	}
	return r.ActualCost.Value
}

type rawBilled struct {
	JobNoUpper    Text   `json:"Job_No"`
	JobNo         Text   `json:"job_no"`
	BilledUpper   Number `json:"Billed_Revenue"`
	BilledRevenue Number `json:"billed_revenue"`
}

func (r rawBilled) job() string {
	if s := r.JobNoUpper.String(); s != "" {
		return s
	}
	return r.JobNo.String()
}

func (r rawBilled) amount() float64 {
	if r.BilledUpper.Value != 0 {
		return r.BilledUpper.Value
	}
	return r.BilledRevenue.Value
}

type invoicesFile[T any] struct {
	Invoices []T `json:"invoices"`
}

type rawARInvoice struct {
	InvoiceNo           Text   `json:"invoice_no"`
	CustomerName        Text   `json:"customer_name"`
	ProjectManager      Text   `json:"project_manager_name"`
	JobNo               Text   `json:"job_no"`
	InvoiceDate         Text   `json:"invoice_date"`
	DueDate             Text   `json:"due_date"`
	InvoiceAmount       Number `json:"invoice_amount"`
	CalculatedAmountDue Number `json:"calculated_amount_due"`
	Retainage           Number `json:"retainage_amount"`
	DaysOutstanding     Number `json:"days_outstanding"`
}

func (r rawARInvoice) coerced() int {
	return countCoerced(r.InvoiceAmount, r.CalculatedAmountDue, r.Retainage, r.DaysOutstanding)
}

type rawAPInvoice struct {
	InvoiceNo        Text   `json:"invoice_no"`
	VendorName       Text   `json:"vendor_name"`
	ProjectManager   Text   `json:"project_manager_name"`
	JobNo            Text   `json:"job_no"`
	InvoiceDate      Text   `json:"invoice_date"`
	DueDate          Text   `json:"due_date"`
	InvoiceAmount    Number `json:"invoice_amount"`
	RemainingBalance Number `json:"remaining_balance"`
	Retainage        Number `json:"retainage_amount"`
	DaysOutstanding  Number `json:"days_outstanding"`
}

func (r rawAPInvoice) coerced() int {
	return countCoerced(r.InvoiceAmount, r.RemainingBalance, r.Retainage, r.DaysOutstanding)
}

func countCoerced(nums ...Number) int {
	n := 0
	for _, v := range nums {
		if v.Coerced {
			n++
		}
	}
	return n
}
