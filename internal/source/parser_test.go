package source

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/theirongolddev/jobmetrics/internal/model"
)

// writeExtracts creates the three extract files in a temp dir.
func writeExtracts(t *testing.T, jobs, ar, ap string) string {
	t.Helper()
	dir := t.TempDir()
	files := DefaultFiles()
	for name, body := range map[string]string{files.Jobs: jobs, files.AR: ar, files.AP: ap} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o600); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestNumber_Coercion(t *testing.T) {
	tests := []struct {
		in      string
		want    float64
		coerced bool
	}{
		{`12.5`, 12.5, false},
		{`"1,234.50"`, 1234.5, false},
		{`"$ 300"`, 300, false},
		{`"(45.10)"`, -45.1, false},
		{`""`, 0, false},
		{`null`, 0, false},
		{`"n/a"`, 0, true},
		{`true`, 0, true},
		{`{"x":1}`, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var n Number
			if err := n.UnmarshalJSON([]byte(tt.in)); err != nil {
				t.Fatalf("UnmarshalJSON error: %v", err)
			}
			if n.Value != tt.want {
				t.Errorf("Value = %v, want %v", n.Value, tt.want)
			}
			if n.Coerced != tt.coerced {
				t.Errorf("Coerced = %v, want %v", n.Coerced, tt.coerced)
			}
		})
	}
}

func TestParseJobs_AlternateKeysAndBOM(t *testing.T) {
	data := "\xef\xbb\xbf" + `{
		"job_budgets": [
			{"job_no": 1001, "job_description": "Clinic", "project_manager_name": " Ann Lee ",
			 "customer_name": "City", "job_status": "A", "revised_contract": "100000", "revised_cost": 80000},
			{"job_no": "1002", "job_status": "c", "revised_contract": "oops"}
		],
		"job_actuals": [
			{"Job_No": "1001", "Value": 25000},
			{"job_no": "1001", "actual_cost": 15000},
			{"Job_No": "1002", "Value": "7,500"}
		],
		"job_billed_revenue": [
			{"Job_No": "1001", "Billed_Revenue": 10000},
			{"job_no": "1001", "billed_revenue": 30000}
		]
	}`

	got, err := ParseJobs([]byte(data))
	if err != nil {
		t.Fatalf("ParseJobs error: %v", err)
	}

	if len(got.Jobs) != 2 {
		t.Fatalf("Jobs len = %d, want 2", len(got.Jobs))
	}
	if got.Jobs[0].JobNo != "1001" {
		t.Errorf("JobNo = %q, want 1001", got.Jobs[0].JobNo)
	}
	if got.Jobs[0].ProjectManager != "Ann Lee" {
		t.Errorf("ProjectManager = %q, want trimmed", got.Jobs[0].ProjectManager)
	}
	if got.Jobs[0].Status != model.StatusActive || got.Jobs[1].Status != model.StatusClosed {
		t.Errorf("statuses = %s/%s, want Active/Closed", got.Jobs[0].Status, got.Jobs[1].Status)
	}
	if got.Jobs[0].RevisedContract != 100000 {
		t.Errorf("RevisedContract = %v, want 100000", got.Jobs[0].RevisedContract)
	}
	if got.Actuals["1001"] != 40000 {
		t.Errorf("Actuals[1001] = %v, want 40000", got.Actuals["1001"])
	}
	if got.Actuals["1002"] != 7500 {
		t.Errorf("Actuals[1002] = %v, want 7500", got.Actuals["1002"])
	}
	if got.Billed["1001"] != 30000 {
		t.Errorf("Billed[1001] = %v, want 30000 (last row wins)", got.Billed["1001"])
	}
	if got.Coerced != 1 {
		t.Errorf("Coerced = %d, want 1", got.Coerced)
	}
}

func TestParseAR_TruncatesDays(t *testing.T) {
	data := `{"invoices":[{"invoice_no":"INV-1","customer_name":"  Acme ","calculated_amount_due":"500",
		"retainage_amount":50,"days_outstanding":"45.9"}]}`

	got, err := ParseAR([]byte(data))
	if err != nil {
		t.Fatalf("ParseAR error: %v", err)
	}
	if len(got.Invoices) != 1 {
		t.Fatalf("Invoices len = %d, want 1", len(got.Invoices))
	}
	inv := got.Invoices[0]
	if inv.CustomerName != "Acme" {
		t.Errorf("CustomerName = %q, want Acme", inv.CustomerName)
	}
	if inv.DaysOutstanding != 45 {
		t.Errorf("DaysOutstanding = %d, want 45", inv.DaysOutstanding)
	}
	if inv.Retainage != 50 {
		t.Errorf("Retainage = %v, want 50", inv.Retainage)
	}
}

func TestParseAP_Malformed(t *testing.T) {
	_, err := ParseAP([]byte(`{"invoices": [`))
	if !errors.Is(err, ErrMalformedExtract) {
		t.Fatalf("err = %v, want ErrMalformedExtract", err)
	}
}

func TestDirLoader_Load(t *testing.T) {
	dir := writeExtracts(t,
		`{"job_budgets":[{"job_no":"1","job_status":"A"}]}`,
		`{"invoices":[{"invoice_no":"A1","calculated_amount_due":10}]}`,
		`{"invoices":[{"invoice_no":"P1","remaining_balance":20},{"invoice_no":"P2"}]}`,
	)

	ex, err := NewDirLoader(dir, Files{}).Load(context.Background())
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if len(ex.Jobs.Jobs) != 1 || len(ex.AR.Invoices) != 1 || len(ex.AP.Invoices) != 2 {
		t.Fatalf("counts = %d/%d/%d, want 1/1/2", len(ex.Jobs.Jobs), len(ex.AR.Invoices), len(ex.AP.Invoices))
	}
	if ex.LoadedAt.IsZero() {
		t.Error("LoadedAt not set")
	}
}

func TestDirLoader_MissingFile(t *testing.T) {
	dir := writeExtracts(t, `{}`, `{}`, `{}`)
	if err := os.Remove(filepath.Join(dir, DefaultFiles().AP)); err != nil {
		t.Fatal(err)
	}

	_, err := NewDirLoader(dir, Files{}).Load(context.Background())
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("err = %v, want not-exist", err)
	}
}

func TestFingerprint_Changed(t *testing.T) {
	dir := writeExtracts(t, `{}`, `{}`, `{}`)
	l := NewDirLoader(dir, Files{})

	before := l.Fingerprint()
	if Changed(before, l.Fingerprint()) {
		t.Fatal("fingerprint changed without a write")
	}

	if err := os.WriteFile(filepath.Join(dir, DefaultFiles().AR), []byte(`{"invoices":[]}`), 0o600); err != nil {
		t.Fatal(err)
	}
	if !Changed(before, l.Fingerprint()) {
		t.Fatal("fingerprint unchanged after rewrite")
	}
}
