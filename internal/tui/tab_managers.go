package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/jobmetrics/internal/cli"
	"github.com/theirongolddev/jobmetrics/internal/tui/components"
	"github.com/theirongolddev/jobmetrics/internal/tui/theme"
)

func (a App) renderManagersTab(cw, h int) string {
	t := theme.Active
	mutedStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	if a.snap == nil || len(a.snap.PMs) == 0 {
		return components.ContentCard("Project Managers", mutedStyle.Render("No project managers"), cw)
	}
	pms := a.snap.PMs

	innerW := components.CardInnerWidth(cw)
	headerStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface).Bold(true)
	rowStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	selectedStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.SurfaceHover).Bold(true)

	compact := a.isCompactLayout()
	var fixed int
	if compact {
		fixed = 6 + 12 + 12 + 8 + 4
	} else {
		fixed = 6 + 6 + 12 + 12 + 12 + 8 + 8 + 7
	}
	nameW := max(innerW-fixed, 12)

	var body strings.Builder
	if compact {
		body.WriteString(headerStyle.Render(fmt.Sprintf("%-*s %6s %12s %12s %8s",
			nameW, "Manager", "Jobs", "Contract", "Backlog", "Margin")))
	} else {
		body.WriteString(headerStyle.Render(fmt.Sprintf("%-*s %6s %6s %12s %12s %12s %8s %8s",
			nameW, "Manager", "Jobs", "Active", "Contract", "Backlog", "Profit", "Margin", "Done")))
	}
	body.WriteString("\n")
	body.WriteString(mutedStyle.Render(strings.Repeat("─", innerW)))
	body.WriteString("\n")

	visible := max(h-6, 3)
	offset := 0
	if a.pmCursor >= visible {
		offset = a.pmCursor - visible + 1
	}
	end := min(offset+visible, len(pms))

	for i := offset; i < end; i++ {
		pm := pms[i]
		var line string
		if compact {
			line = fmt.Sprintf("%-*s %6d %12s %12s %8s",
				nameW, truncStr(pm.ProjectManager, nameW),
				pm.TotalJobs,
				cli.FormatMoney(pm.TotalContract),
				cli.FormatMoney(pm.TotalBacklog),
				cli.FormatPercent(pm.AvgMargin))
		} else {
			line = fmt.Sprintf("%-*s %6d %6d %12s %12s %12s %8s %8s",
				nameW, truncStr(pm.ProjectManager, nameW),
				pm.TotalJobs,
				pm.ActiveJobs,
				cli.FormatMoney(pm.TotalContract),
				cli.FormatMoney(pm.TotalBacklog),
				cli.FormatMoney(pm.TotalProfit),
				cli.FormatPercent(pm.AvgMargin),
				cli.FormatPercent(pm.AvgCompletion))
		}
		if i == a.pmCursor {
			body.WriteString(selectedStyle.Render(line))
		} else {
			body.WriteString(rowStyle.Render(line))
		}
		body.WriteString("\n")
	}
	body.WriteString(mutedStyle.Render("[j/k] select  [Enter] show jobs"))

	return components.ContentCard(fmt.Sprintf("Project Managers (%d)", len(pms)), body.String(), cw)
}
