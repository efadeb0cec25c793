package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/jobmetrics/internal/tui/theme"
)

// StatusInfo is what the bottom status bar reports.
type StatusInfo struct {
	DataAge     string
	Refreshing  bool
	AutoRefresh bool
	Error       string
}

// RenderStatusBar renders the bottom status bar.
func RenderStatusBar(width int, info StatusInfo) string {
	t := theme.Active

	base := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	accent := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface)
	errStyle := lipgloss.NewStyle().Foreground(t.Red).Background(t.Surface)

	left := base.Render(" [?]help  [r]efresh  [q]uit")

	var right []string
	if info.Error != "" {
		right = append(right, errStyle.Render("refresh failed: "+truncLabel(info.Error, 40)))
	}
	switch {
	case info.Refreshing:
		right = append(right, accent.Render("refreshing…"))
	case info.DataAge != "":
		right = append(right, base.Render("data "+info.DataAge+" old"))
	}
	if info.AutoRefresh {
		right = append(right, accent.Render("auto"))
	}
	r := strings.Join(right, base.Render("  ")) + base.Render(" ")

	gap := max(width-lipgloss.Width(left)-lipgloss.Width(r), 0)
	return left + base.Render(strings.Repeat(" ", gap)) + r
}
