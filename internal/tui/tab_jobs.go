package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/jobmetrics/internal/cli"
	"github.com/theirongolddev/jobmetrics/internal/model"
	"github.com/theirongolddev/jobmetrics/internal/tui/components"
	"github.com/theirongolddev/jobmetrics/internal/tui/theme"
)

// jobSort selects the jobs tab ordering.
type jobSort int

const (
	sortContract jobSort = iota
	sortBacklog
	sortMargin
	sortCompletion
	sortJobNo
	jobSortCount
)

func (s jobSort) String() string {
	switch s {
	case sortBacklog:
		return "backlog"
	case sortMargin:
		return "margin"
	case sortCompletion:
		return "% complete"
	case sortJobNo:
		return "job #"
	default:
		return "contract"
	}
}

// jobsState holds the jobs tab state.
type jobsState struct {
	cursor int
	offset int // scroll offset for the list
	sortBy jobSort

	searching   bool
	searchInput textinput.Model
	query       string
}

func (s *jobsState) clamp(n int) {
	s.cursor = min(max(s.cursor, 0), max(n-1, 0))
	s.offset = min(s.offset, s.cursor)
}

func (s *jobsState) move(delta, n int) {
	s.cursor += delta
	s.clamp(n)
}

func newSearchInput() textinput.Model {
	ti := textinput.New()
	ti.Placeholder = "job #, description, customer or PM"
	ti.CharLimit = 64
	ti.Width = 40
	ti.Prompt = "/ "
	return ti
}

// sortJobs orders jobs in place. Numeric sorts are descending; ties fall back to job number.
func sortJobs(jobs []model.JobMetrics, by jobSort) {
	key := func(j model.JobMetrics) float64 {
		switch by {
		case sortBacklog:
			return j.Backlog
		case sortMargin:
			return j.Margin
		case sortCompletion:
			return j.PercentComplete
		default:
			return j.RevisedContract
		}
	}
	sort.SliceStable(jobs, func(i, k int) bool {
		if by != sortJobNo {
			if a, b := key(jobs[i]), key(jobs[k]); a != b {
				return a > b
			}
		}
		return jobs[i].JobNo < jobs[k].JobNo
	})
}

// visibleJobs returns the filtered job list narrowed by the search query.
func (a App) visibleJobs() []model.JobMetrics {
	q := strings.ToLower(strings.TrimSpace(a.jobs.query))
	if q == "" {
		return a.jobList
	}
	var out []model.JobMetrics
	for _, j := range a.jobList {
		for _, field := range []string{j.JobNo, j.Description, j.Customer, j.ProjectManager} {
			if strings.Contains(strings.ToLower(field), q) {
				out = append(out, j)
				break
			}
		}
	}
	return out
}

// jobsKey handles keys specific to the jobs tab.
func (a *App) jobsKey(key string) (bool, tea.Cmd) {
	n := len(a.visibleJobs())
	switch key {
	case "/":
		a.jobs.searching = true
		a.jobs.searchInput = newSearchInput()
		a.jobs.searchInput.SetValue(a.jobs.query)
		return true, a.jobs.searchInput.Focus()
	case "s":
		a.jobs.sortBy = (a.jobs.sortBy + 1) % jobSortCount
		sortJobs(a.jobList, a.jobs.sortBy)
		a.jobs.cursor, a.jobs.offset = 0, 0
		return true, nil
	case "g":
		a.jobs.cursor, a.jobs.offset = 0, 0
		return true, nil
	case "G":
		a.jobs.cursor = max(n-1, 0)
		return true, nil
	case "esc":
		if a.jobs.query != "" {
			a.jobs.query = ""
			a.jobs.cursor, a.jobs.offset = 0, 0
			return true, nil
		}
	}
	return false, nil
}

// updateJobsSearch handles key events while in search mode.
func (a App) updateJobsSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		a.jobs.query = strings.TrimSpace(a.jobs.searchInput.Value())
		a.jobs.searching = false
		a.jobs.cursor, a.jobs.offset = 0, 0
		return a, nil
	case "esc":
		a.jobs.searching = false
		return a, nil
	}

	var cmd tea.Cmd
	a.jobs.searchInput, cmd = a.jobs.searchInput.Update(msg)
	return a, cmd
}

func (a App) renderJobsTab(cw, h int) string {
	t := theme.Active
	jobs := a.visibleJobs()
	mutedStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)

	var search string
	if a.jobs.searching {
		search = a.jobs.searchInput.View() + "\n"
	}

	if len(jobs) == 0 {
		return components.ContentCard("Jobs", search+mutedStyle.Render("No jobs match"), cw)
	}

	leftW := cw / 2
	if a.isCompactLayout() {
		leftW = cw
	}
	rightW := cw - leftW

	innerW := components.CardInnerWidth(leftW)
	headerStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface).Bold(true)
	rowStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	selectedStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.SurfaceHover).Bold(true)

	visible := max(h-6, 3) // card border (2) + title (1) + header (2) + hint (1)
	if a.jobs.searching {
		visible--
	}
	offset := a.jobs.offset
	if a.jobs.cursor < offset {
		offset = a.jobs.cursor
	}
	if a.jobs.cursor >= offset+visible {
		offset = a.jobs.cursor - visible + 1
	}
	end := min(offset+visible, len(jobs))

	numW := 10
	descW := max(innerW-numW-12-8-3, 8)

	var list strings.Builder
	list.WriteString(search)
	list.WriteString(headerStyle.Render(fmt.Sprintf("%-*s %-*s %12s %8s", numW, "Job", descW, "Description", "Contract", "Margin")))
	list.WriteString("\n")
	list.WriteString(mutedStyle.Render(strings.Repeat("─", innerW)))
	list.WriteString("\n")
	for i := offset; i < end; i++ {
		j := jobs[i]
		margin := "-"
		if j.ValidForProfit {
			margin = cli.FormatPercent(j.Margin)
		}
		line := fmt.Sprintf("%-*s %-*s %12s %8s",
			numW, truncStr(j.JobNo, numW),
			descW, truncStr(j.Description, descW),
			cli.FormatMoney(j.RevisedContract),
			margin)
		if i == a.jobs.cursor {
			list.WriteString(selectedStyle.Render(line))
		} else {
			list.WriteString(rowStyle.Render(line))
		}
		list.WriteString("\n")
	}
	list.WriteString(mutedStyle.Render(fmt.Sprintf("%d/%d  sort: %s  [/] search [s] sort", a.jobs.cursor+1, len(jobs), a.jobs.sortBy)))

	leftCard := components.ContentCard("Jobs", list.String(), leftW)
	if rightW == 0 {
		return leftCard
	}

	sel := jobs[a.jobs.cursor]
	rightCard := components.ContentCard("Job "+sel.JobNo, renderJobDetail(sel, components.CardInnerWidth(rightW)), rightW)
	return components.CardRow([]string{leftCard, rightCard})
}

// renderJobDetail renders the financial breakdown of one job.
func renderJobDetail(j model.JobMetrics, w int) string {
	t := theme.Active
	labelStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	valueStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	headerStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface).Bold(true)

	line := func(label, value string, color lipgloss.Color) string {
		return labelStyle.Render(fmt.Sprintf("%-18s", label)) +
			lipgloss.NewStyle().Foreground(color).Background(t.Surface).Render(fmt.Sprintf("%14s", value)) + "\n"
	}

	var b strings.Builder
	b.WriteString(valueStyle.Render(truncStr(j.Description, w)))
	b.WriteString("\n")
	b.WriteString(labelStyle.Render(truncStr(fmt.Sprintf("%s · %s · %s", cli.OrDash(j.ProjectManager), cli.OrDash(j.Customer), j.Status), w)))
	b.WriteString("\n\n")

	b.WriteString(headerStyle.Render("CONTRACT"))
	b.WriteString("\n")
	b.WriteString(line("Original", cli.FormatMoney(j.OriginalContract), t.TextPrimary))
	b.WriteString(line("Revised", cli.FormatMoney(j.RevisedContract), t.TextPrimary))
	b.WriteString(line("Budget", cli.FormatMoney(j.RevisedCost), t.TextPrimary))
	b.WriteString(line("Actual cost", cli.FormatMoney(j.ActualCost), t.TextPrimary))
	b.WriteString(line("Billed", cli.FormatMoney(j.BilledRevenue), t.TextPrimary))
	b.WriteString("\n")

	b.WriteString(headerStyle.Render("PROGRESS"))
	b.WriteString("\n")
	if j.HasBudget {
		b.WriteString(components.CompletionBar("Complete", j.PercentComplete, 18, max(min(w-24, 30), 4)))
		b.WriteString("\n")
		b.WriteString(line("Earned revenue", cli.FormatMoney(j.EarnedRevenue), t.TextPrimary))
		b.WriteString(line("Backlog", cli.FormatMoney(j.Backlog), t.TextPrimary))
		label := "Over billed"
		if j.OverUnderBilling < 0 {
			label = "Under billed"
		}
		b.WriteString(line(label, cli.FormatMoney(j.OverUnderBilling), t.ForAmount(j.OverUnderBilling)))
	} else {
		b.WriteString(labelStyle.Render("No budget; progress not measurable"))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	b.WriteString(headerStyle.Render("PROFIT (" + strings.ToUpper(j.ProfitBasis) + ")"))
	b.WriteString("\n")
	if j.ValidForProfit {
		b.WriteString(line("Profit", cli.FormatMoney(j.Profit), t.ForAmount(j.Profit)))
		b.WriteString(line("Margin", cli.FormatPercent(j.Margin), t.ForMargin(j.Margin)))
	} else {
		b.WriteString(labelStyle.Render("Not enough data for profit"))
		b.WriteString("\n")
	}
	return b.String()
}
