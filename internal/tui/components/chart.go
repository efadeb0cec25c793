package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/jobmetrics/internal/tui/theme"
)

// Bar is one row of a horizontal bar chart.
type Bar struct {
	Label string
	Value float64
	Text  string // right-hand annotation, e.g. a formatted amount
	Color lipgloss.Color
}

// Sparkline renders a unicode sparkline from values.
func Sparkline(values []float64, color lipgloss.Color) string {
	if len(values) == 0 {
		return ""
	}
	t := theme.Active

	blocks := []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

	peak := values[0]
	for _, v := range values[1:] {
		peak = max(peak, v)
	}
	if peak == 0 {
		peak = 1
	}

	var buf strings.Builder
	buf.Grow(len(values) * 3)
	for _, v := range values {
		idx := int(v / peak * float64(len(blocks)-1))
		buf.WriteRune(blocks[min(max(idx, 0), len(blocks)-1)])
	}
	return lipgloss.NewStyle().Foreground(color).Background(t.Surface).Render(buf.String())
}

// HBarChart renders labelled horizontal bars scaled to the largest value.
// Negative values draw an empty bar. width is the full line width.
func HBarChart(bars []Bar, width int) string {
	if len(bars) == 0 {
		return ""
	}
	t := theme.Active

	labelW, textW := 0, 0
	peak := 0.0
	for _, b := range bars {
		labelW = max(labelW, lipgloss.Width(b.Label))
		textW = max(textW, lipgloss.Width(b.Text))
		peak = max(peak, b.Value)
	}
	labelW = min(labelW, width/3)
	barW := max(width-labelW-textW-2, 4)

	labelStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	textStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	trackStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)
	space := lipgloss.NewStyle().Background(t.Surface).Render(" ")

	lines := make([]string, 0, len(bars))
	for _, b := range bars {
		n := 0
		if peak > 0 && b.Value > 0 {
			n = int(b.Value / peak * float64(barW))
		}
		n = min(n, barW)

		color := b.Color
		if color == "" {
			color = t.Accent
		}
		fill := lipgloss.NewStyle().Foreground(color).Background(t.Surface).Render(strings.Repeat("█", n))
		track := trackStyle.Render(strings.Repeat("·", barW-n))

		lines = append(lines,
			labelStyle.Render(fmt.Sprintf("%-*s", labelW, truncLabel(b.Label, labelW)))+space+
				fill+track+space+
				textStyle.Render(fmt.Sprintf("%*s", textW, b.Text)))
	}
	return strings.Join(lines, "\n")
}

func truncLabel(s string, limit int) string {
	r := []rune(s)
	if limit <= 0 || len(r) <= limit {
		return s
	}
	if limit == 1 {
		return "…"
	}
	return string(r[:limit-1]) + "…"
}
