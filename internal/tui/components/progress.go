package components

import (
	"fmt"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/jobmetrics/internal/tui/theme"
)

// ColorForCompletion returns a color for a 0-100 percent complete.
func ColorForCompletion(pct float64) lipgloss.Color {
	t := theme.Active
	switch {
	case pct >= 100:
		return t.Green
	case pct >= 75:
		return t.AccentBright
	case pct >= 25:
		return t.Accent
	default:
		return t.Cyan
	}
}

// ProgressBar renders a fraction (0-1) as a solid bar with its percentage.
func ProgressBar(frac float64, width int) string {
	t := theme.Active
	frac = min(max(frac, 0), 1)

	color := ColorForCompletion(frac * 100)
	bar := progress.New(
		progress.WithSolidFill(string(color)),
		progress.WithWidth(max(width, 4)),
		progress.WithoutPercentage(),
	)
	bar.EmptyColor = string(t.TextDim)

	pctStyle := lipgloss.NewStyle().Foreground(color).Background(t.Surface).Bold(true)
	spaceStyle := lipgloss.NewStyle().Background(t.Surface)

	return bar.ViewAs(frac) + spaceStyle.Render(" ") + pctStyle.Render(fmt.Sprintf("%3.0f%%", frac*100))
}

// CompletionBar renders a labelled percent-complete bar for a job.
func CompletionBar(label string, pct float64, labelW, barWidth int) string {
	t := theme.Active
	labelStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	spaceStyle := lipgloss.NewStyle().Background(t.Surface)

	return labelStyle.Render(fmt.Sprintf("%-*s", labelW, label)) +
		spaceStyle.Render(" ") +
		ProgressBar(pct/100, barWidth)
}
