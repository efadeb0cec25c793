package components

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/theirongolddev/jobmetrics/internal/tui/theme"
)

func init() {
	// Force TrueColor output so ANSI codes are generated in tests
	lipgloss.SetColorProfile(termenv.TrueColor)
}

func TestCardRowBackgroundFill(t *testing.T) {
	theme.SetActive("flexoki-dark")

	shortCard := ContentCard("Short", "Content", 22)
	tallCard := ContentCard("Tall", "Line 1\nLine 2\nLine 3\nLine 4\nLine 5", 22)

	shortLines := len(strings.Split(shortCard, "\n"))
	tallLines := len(strings.Split(tallCard, "\n"))
	if shortLines >= tallLines {
		t.Fatal("short card should be shorter than tall card")
	}

	lines := strings.Split(CardRow([]string{tallCard, shortCard}), "\n")
	if len(lines) != tallLines {
		t.Fatalf("joined height = %d, want %d", len(lines), tallLines)
	}

	for i := shortLines; i < len(lines); i++ {
		if !strings.Contains(lines[i], "\x1b[") {
			t.Errorf("padding line %d has no ANSI styling: %q", i, lines[i])
		}
	}
}

func TestCardRowWidthConsistency(t *testing.T) {
	theme.SetActive("flexoki-dark")

	tallCard := ContentCard("Tall", "A\nB\nC\nD\nE\nF", 20)
	shortCard := ContentCard("Short", "A", 30)

	lines := strings.Split(CardRow([]string{tallCard, shortCard}), "\n")
	want := lipgloss.Width(lines[0])
	for i, line := range lines {
		if got := lipgloss.Width(line); got != want {
			t.Errorf("line %d width = %d, want %d", i, got, want)
		}
	}
}

func TestMetricCardRowWidth(t *testing.T) {
	theme.SetActive("flexoki-dark")

	row := MetricCardRow([]Metric{
		{Label: "Contract", Value: "$1.2M"},
		{Label: "Backlog", Value: "$400K", Note: "3 jobs"},
		{Label: "Profit", Value: "-$5K", ValueColor: theme.Active.Red},
	}, 90)

	if got := lipgloss.Width(strings.Split(row, "\n")[0]); got != 90 {
		t.Errorf("row width = %d, want 90", got)
	}
	if !strings.Contains(row, "Backlog") || !strings.Contains(row, "3 jobs") {
		t.Error("row is missing card content")
	}
}

func TestLayoutRow(t *testing.T) {
	widths := LayoutRow(10, 3)
	if widths[0] != 4 || widths[1] != 3 || widths[2] != 3 {
		t.Errorf("LayoutRow(10, 3) = %v, want [4 3 3]", widths)
	}
	if LayoutRow(10, 0) != nil {
		t.Error("LayoutRow(10, 0) should be nil")
	}
}
