package cli

import (
	"strings"
	"testing"

	"github.com/theirongolddev/jobmetrics/internal/model"
)

func TestFormatMoney(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "$0"},
		{999.4, "$999"},
		{1234567.89, "$1,234,568"},
		{-950, "-$950"},
		{-12500.5, "-$12,501"},
	}
	for _, tt := range tests {
		if got := FormatMoney(tt.in); got != tt.want {
			t.Errorf("FormatMoney(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatCents(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{1234.5, "$1,234.50"},
		{0.004, "$0.00"},
		{-0.004, "$0.00"},
		{-20.1, "-$20.10"},
	}
	for _, tt := range tests {
		if got := FormatCents(tt.in); got != tt.want {
			t.Errorf("FormatCents(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatCompactMoney(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{950, "$950"},
		{1234, "$1.2K"},
		{2_500_000, "$2.5M"},
		{-3_100_000_000, "-$3.1B"},
	}
	for _, tt := range tests {
		if got := FormatCompactMoney(tt.in); got != tt.want {
			t.Errorf("FormatCompactMoney(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatPercentAndShare(t *testing.T) {
	if got := FormatPercent(23.456); got != "23.5%" {
		t.Errorf("FormatPercent = %q, want 23.5%%", got)
	}
	if got := FormatShare(0.5); got != "50.0%" {
		t.Errorf("FormatShare = %q, want 50.0%%", got)
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("Riverside Elementary", 10); got != "Riverside…" {
		t.Errorf("Truncate = %q, want Riverside…", got)
	}
	if got := Truncate("  short ", 10); got != "short" {
		t.Errorf("Truncate = %q, want short", got)
	}
}

func TestRenderTableAlignsColumns(t *testing.T) {
	out := RenderTable(Table{
		Headers: []string{"PM", "Contract"},
		Rows: [][]string{
			{"Ann", "$1,000"},
			{"---"},
			{"Bartholomew", "$5"},
		},
	})
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 7 {
		t.Fatalf("lines = %d, want 7:\n%s", len(lines), out)
	}
	if !strings.Contains(out, "Ann        ") {
		t.Error("first column is not left-aligned")
	}
	if !strings.Contains(out, "     $5") {
		t.Error("numeric column is not right-aligned")
	}
}

func TestRenderAgingListsEveryBucket(t *testing.T) {
	out := RenderAging("AR Aging", model.BucketTotals{Current: 100, Days90Plus: 50})
	for _, label := range []string{"Current", "31-60", "61-90", "90+", "$100", "$50"} {
		if !strings.Contains(out, label) {
			t.Errorf("aging output missing %q", label)
		}
	}
}
