package components

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
)

func TestTabVisualWidthMatchesRender(t *testing.T) {
	for i, tab := range Tabs {
		for _, active := range []bool{true, false} {
			got := lipgloss.Width(renderTab(tab, active))
			if want := TabVisualWidth(tab, active); got != want {
				t.Errorf("tab %d active=%v width = %d, want %d", i, active, got, want)
			}
		}
	}
}

func TestTabIdxByKey(t *testing.T) {
	if got := TabIdxByKey('y'); got != 4 {
		t.Errorf("TabIdxByKey('y') = %d, want 4", got)
	}
	if got := TabIdxByKey('z'); got != -1 {
		t.Errorf("TabIdxByKey('z') = %d, want -1", got)
	}
}

func TestHBarChartScalesToPeak(t *testing.T) {
	out := HBarChart([]Bar{
		{Label: "Current", Value: 100, Text: "$100"},
		{Label: "90+", Value: 50, Text: "$50"},
		{Label: "Credit", Value: -10, Text: "-$10"},
	}, 40)

	lines := strings.Split(out, "\n")
	if len(lines) != 3 {
		t.Fatalf("lines = %d, want 3", len(lines))
	}
	full := strings.Count(lines[0], "█")
	half := strings.Count(lines[1], "█")
	if full == 0 || half != full/2 {
		t.Errorf("bar lengths = %d/%d, want second half of first", full, half)
	}
	if strings.Count(lines[2], "█") != 0 {
		t.Error("negative value drew a bar")
	}
	for i, line := range lines {
		if lipgloss.Width(line) != lipgloss.Width(lines[0]) {
			t.Errorf("line %d width differs", i)
		}
	}
}

func TestStatusBarWidth(t *testing.T) {
	bar := RenderStatusBar(80, StatusInfo{DataAge: "2m", AutoRefresh: true})
	if got := lipgloss.Width(bar); got != 80 {
		t.Errorf("status bar width = %d, want 80", got)
	}
	if !strings.Contains(bar, "data 2m old") {
		t.Error("status bar missing data age")
	}
}
