// Package tui provides the interactive Bubble Tea dashboard for jobmetrics.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/jobmetrics/internal/cache"
	"github.com/theirongolddev/jobmetrics/internal/cli"
	"github.com/theirongolddev/jobmetrics/internal/config"
	"github.com/theirongolddev/jobmetrics/internal/model"
	"github.com/theirongolddev/jobmetrics/internal/pipeline"
	"github.com/theirongolddev/jobmetrics/internal/tui/components"
	"github.com/theirongolddev/jobmetrics/internal/tui/theme"
)

// SnapshotMsg is sent when a cache refresh finishes, successfully or not.
type SnapshotMsg struct {
	Snap   *cache.Snapshot
	Result cache.RefreshResult
	Err    error
}

// Tab indexes, in tab bar order.
const (
	tabOverview = iota
	tabManagers
	tabJobs
	tabReceivables
	tabPayables
)

// Options configures the dashboard.
type Options struct {
	PM              string
	ActiveOnly      bool
	AutoRefresh     bool
	RefreshInterval time.Duration
	DataDir         string
}

// App is the root Bubble Tea model.
type App struct {
	cache *cache.Cache
	snap  *cache.Snapshot

	loaded  bool
	lastErr string

	// Auto-refresh state
	autoRefresh     bool
	refreshInterval time.Duration
	lastRefresh     time.Time
	refreshing      bool

	// UI state
	width     int
	height    int
	activeTab int
	showHelp  bool

	// Filter state
	pm         string
	activeOnly bool

	// Per-tab state
	jobs     jobsState
	pmCursor int

	// Derived from snap and the filters
	jobList []model.JobMetrics
	summary model.JobsSummary

	// First-run setup (huh form)
	setupForm *huh.Form
	setupVals *setupValues
	needSetup bool
	dataDir   string

	spinner spinner.Model
}

const (
	minTerminalWidth = 80
	compactWidth     = 120
	maxContentWidth  = 180
	minContentHeight = 5

	minRefreshInterval = 10 * time.Second
)

// NewApp creates the dashboard model over c. If c already holds a snapshot the
// dashboard starts on it; otherwise Init triggers the first refresh.
func NewApp(c *cache.Cache, opts Options) App {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(theme.Active.Accent).Background(theme.Active.Surface)

	interval := opts.RefreshInterval
	if interval < minRefreshInterval {
		interval = 5 * time.Minute
	}

	a := App{
		cache:           c,
		autoRefresh:     opts.AutoRefresh,
		refreshInterval: interval,
		pm:              opts.PM,
		activeOnly:      opts.ActiveOnly,
		needSetup:       !config.Exists(),
		dataDir:         opts.DataDir,
		spinner:         sp,
	}
	if snap := c.Snapshot(); snap != nil {
		a.snap = snap
		a.loaded = true
		a.lastRefresh = snap.RefreshedAt
		a.recompute()
		if a.needSetup {
			a.startSetup()
		}
	}
	return a
}

// Init implements tea.Model.
func (a App) Init() tea.Cmd {
	cmds := []tea.Cmd{tea.EnableMouseCellMotion, tickCmd()}
	if !a.loaded {
		cmds = append(cmds, refreshCmd(a.cache, "tui"), a.spinner.Tick)
	} else if a.setupForm != nil {
		cmds = append(cmds, a.setupForm.Init())
	}
	return tea.Batch(cmds...)
}

// recompute applies the PM and status filters to the current snapshot.
func (a *App) recompute() {
	if a.snap == nil {
		a.jobList = nil
		a.summary = model.JobsSummary{}
		return
	}

	f := pipeline.JobFilter{ProjectManager: a.pm}
	if a.activeOnly {
		f.Status = model.StatusActive
	}
	a.jobList = pipeline.FilterJobs(a.snap.Jobs, f, a.snap.Rules)
	a.summary = pipeline.SummarizeJobs(a.jobList, false)
	sortJobs(a.jobList, a.jobs.sortBy)

	a.jobs.clamp(len(a.visibleJobs()))
	if a.pmCursor >= len(a.snap.PMs) {
		a.pmCursor = max(len(a.snap.PMs)-1, 0)
	}
}

// Update implements tea.Model.
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		if a.setupForm != nil {
			a.setupForm = a.setupForm.WithWidth(msg.Width).WithHeight(msg.Height)
		}
		return a, nil

	case tea.MouseMsg:
		if !a.loaded || a.showHelp || a.setupForm != nil {
			return a, nil
		}
		return a.updateMouse(msg)

	case tea.KeyMsg:
		return a.updateKey(msg)

	case SnapshotMsg:
		a.refreshing = false
		a.lastRefresh = time.Now()
		if msg.Err != nil {
			a.lastErr = msg.Err.Error()
		} else {
			a.lastErr = ""
		}
		if msg.Snap != nil {
			a.snap = msg.Snap
			a.recompute()
		}
		firstLoad := !a.loaded
		a.loaded = true
		if firstLoad && a.needSetup {
			return a, a.startSetup()
		}
		return a, nil

	case spinner.TickMsg:
		if !a.loaded {
			var cmd tea.Cmd
			a.spinner, cmd = a.spinner.Update(msg)
			return a, cmd
		}
		return a, nil

	case tickMsg:
		cmds := []tea.Cmd{tickCmd()}
		if a.loaded && a.autoRefresh && !a.refreshing && time.Since(a.lastRefresh) >= a.refreshInterval {
			a.refreshing = true
			cmds = append(cmds, refreshCmd(a.cache, "tui-auto"))
		}
		return a, tea.Batch(cmds...)
	}

	// Forward unhandled messages to the setup form (cursor blinks, etc.)
	if a.setupForm != nil {
		return a.updateSetupForm(msg)
	}
	return a, nil
}

func (a App) updateMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	switch msg.Button {
	case tea.MouseButtonWheelUp:
		a.moveCursor(-1)
	case tea.MouseButtonWheelDown:
		a.moveCursor(1)
	case tea.MouseButtonLeft:
		if msg.Action == tea.MouseActionPress && msg.Y == 0 {
			if tab := a.tabAtX(msg.X); tab >= 0 {
				a.activeTab = tab
			}
		}
	}
	return a, nil
}

func (a App) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	if key == "ctrl+c" {
		return a, tea.Quit
	}
	if !a.loaded {
		return a, nil
	}

	// First-run setup intercepts all keys
	if a.setupForm != nil {
		return a.updateSetupForm(msg)
	}

	if a.activeTab == tabJobs && a.jobs.searching {
		return a.updateJobsSearch(msg)
	}

	if key == "?" {
		a.showHelp = !a.showHelp
		return a, nil
	}
	if a.showHelp {
		a.showHelp = false
		return a, nil
	}

	switch a.activeTab {
	case tabJobs:
		if handled, cmd := a.jobsKey(key); handled {
			return a, cmd
		}
	case tabManagers:
		switch key {
		case "enter":
			// Drill into the selected manager's jobs.
			if a.snap != nil && a.pmCursor < len(a.snap.PMs) {
				a.pm = a.snap.PMs[a.pmCursor].ProjectManager
				a.jobs = jobsState{sortBy: a.jobs.sortBy}
				a.recompute()
				a.activeTab = tabJobs
			}
			return a, nil
		}
	}

	switch key {
	case "q":
		return a, tea.Quit
	case "j", "down":
		a.moveCursor(1)
	case "k", "up":
		a.moveCursor(-1)
	case "r":
		if !a.refreshing {
			a.refreshing = true
			return a, refreshCmd(a.cache, "tui")
		}
	case "R":
		a.autoRefresh = !a.autoRefresh
	case "A":
		a.activeOnly = !a.activeOnly
		a.recompute()
	case "esc":
		if a.pm != "" {
			a.pm = ""
			a.recompute()
		}
	case "left":
		a.activeTab = (a.activeTab - 1 + len(components.Tabs)) % len(components.Tabs)
	case "right", "tab":
		a.activeTab = (a.activeTab + 1) % len(components.Tabs)
	default:
		if r := []rune(key); len(r) == 1 {
			if idx := components.TabIdxByKey(r[0]); idx >= 0 {
				a.activeTab = idx
			}
		}
	}
	return a, nil
}

// moveCursor moves the list cursor of the active tab by delta.
func (a *App) moveCursor(delta int) {
	switch a.activeTab {
	case tabJobs:
		a.jobs.move(delta, len(a.visibleJobs()))
	case tabManagers:
		if a.snap == nil {
			return
		}
		a.pmCursor = min(max(a.pmCursor+delta, 0), max(len(a.snap.PMs)-1, 0))
	}
}

func (a App) contentWidth() int {
	return min(a.width, maxContentWidth)
}

func (a App) isCompactLayout() bool {
	return a.contentWidth() < compactWidth
}

// View implements tea.Model.
func (a App) View() string {
	if a.width == 0 {
		return ""
	}
	if a.width < minTerminalWidth {
		return a.viewTooNarrow()
	}
	if !a.loaded {
		return a.viewLoading()
	}
	if a.setupForm != nil {
		return a.setupForm.View()
	}
	if a.showHelp {
		return a.viewHelp()
	}
	return a.viewMain()
}

func (a App) viewTooNarrow() string {
	h := max(a.height, 5)
	msg := fmt.Sprintf(
		"\n  Terminal too narrow (%d cols)\n\n  jobmetrics needs at least %d columns.\n",
		a.width,
		minTerminalWidth,
	)
	return padHeight(truncateHeight(msg, h), h)
}

func (a App) viewLoading() string {
	t := theme.Active

	cardStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.BorderAccent).
		Background(t.Surface).
		Padding(2, 4)

	logoStyle := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.Surface).Bold(true)
	subtitleStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	spinnerStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface)

	var b strings.Builder
	b.WriteString(logoStyle.Render("◈ jobmetrics"))
	b.WriteString(subtitleStyle.Render(" · Job & AR/AP Metrics"))
	b.WriteString("\n\n")
	b.WriteString(spinnerStyle.Render(a.spinner.View()))
	b.WriteString(subtitleStyle.Render(" Loading extracts..."))

	return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, cardStyle.Render(b.String()),
		lipgloss.WithWhitespaceBackground(t.Background))
}

func (a App) viewHelp() string {
	t := theme.Active

	cardStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.BorderAccent).
		Background(t.Surface).
		Padding(1, 3)

	titleStyle := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.Surface).Bold(true)
	sectionStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface).Bold(true)
	keyStyle := lipgloss.NewStyle().Foreground(t.Cyan).Background(t.Surface).Bold(true)
	descStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	dimStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)

	sections := []struct {
		title    string
		bindings [][2]string
	}{
		{"Navigation", [][2]string{
			{"o m b e y", "Jump to tab"},
			{"← →", "Previous / Next tab"},
			{"j k", "Move through lists"},
			{"g G", "First / Last job"},
		}},
		{"Actions", [][2]string{
			{"/", "Search jobs"},
			{"s", "Cycle job sort"},
			{"Enter", "Manager: show their jobs"},
			{"Esc", "Clear search / manager filter"},
			{"A", "Toggle active jobs only"},
			{"r", "Refresh now"},
			{"R", "Toggle auto-refresh"},
			{"?", "Toggle help"},
			{"q", "Quit"},
		}},
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("◈ Keyboard Shortcuts"))
	b.WriteString("\n")
	for _, sec := range sections {
		b.WriteString("\n")
		b.WriteString(sectionStyle.Render(sec.title))
		b.WriteString("\n")
		for _, bind := range sec.bindings {
			fmt.Fprintf(&b, "  %s  %s\n",
				keyStyle.Render(fmt.Sprintf("%-10s", bind[0])),
				descStyle.Render(bind[1]))
		}
	}
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("Press any key to close"))

	return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, cardStyle.Render(b.String()),
		lipgloss.WithWhitespaceBackground(t.Background))
}

func (a App) filterLine(w int) string {
	t := theme.Active
	pill := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)
	accent := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface).Bold(true)

	parts := []string{accent.Render(cli.FormatNumber(int64(len(a.jobList))) + " jobs")}
	if a.activeOnly {
		parts = append(parts, accent.Render("active only"))
	}
	if a.pm != "" {
		parts = append(parts, pill.Render("pm ")+accent.Render(a.pm))
	}
	if a.jobs.query != "" {
		parts = append(parts, pill.Render("search ")+accent.Render(a.jobs.query))
	}

	line := pill.Render(" ") + strings.Join(parts, pill.Render(" │ ")) + pill.Render(" ")
	return lipgloss.NewStyle().Background(t.Surface).Width(w).Render(line)
}

func (a App) viewMain() string {
	t := theme.Active
	w := a.width
	cw := a.contentWidth()
	h := a.height

	header := components.RenderTabBar(a.activeTab, w) + "\n" + a.filterLine(w)

	info := components.StatusInfo{
		Refreshing:  a.refreshing,
		AutoRefresh: a.autoRefresh,
		Error:       a.lastErr,
	}
	if a.snap != nil {
		info.DataAge = cli.FormatAge(int64(time.Since(a.snap.RefreshedAt).Seconds()))
	}
	statusBar := components.RenderStatusBar(w, info)

	contentH := max(h-lipgloss.Height(header)-lipgloss.Height(statusBar), minContentHeight)

	var content string
	switch a.activeTab {
	case tabOverview:
		content = a.renderOverviewTab(cw)
	case tabManagers:
		content = a.renderManagersTab(cw, contentH)
	case tabJobs:
		content = a.renderJobsTab(cw, contentH)
	case tabReceivables:
		content = a.renderReceivablesTab(cw)
	case tabPayables:
		content = a.renderPayablesTab(cw)
	}

	content = padHeight(truncateHeight(content, contentH), contentH)
	content = fillLinesWithBackground(content, cw, t.Background)
	content = lipgloss.Place(w, contentH, lipgloss.Center, lipgloss.Top, content,
		lipgloss.WithWhitespaceBackground(t.Background))

	output := lipgloss.JoinVertical(lipgloss.Left, header, content, statusBar)
	return lipgloss.Place(w, h, lipgloss.Left, lipgloss.Top, output,
		lipgloss.WithWhitespaceBackground(t.Background))
}

// ─── Helpers ────────────────────────────────────────────────────

type tickMsg struct{}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(time.Time) tea.Msg {
		return tickMsg{}
	})
}

// refreshCmd reloads the extracts in the background.
func refreshCmd(c *cache.Cache, trigger string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		res, err := c.Refresh(ctx, trigger)
		return SnapshotMsg{Snap: c.Snapshot(), Result: res, Err: err}
	}
}

func truncStr(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-1]) + "…"
}

func truncateHeight(s string, limit int) string {
	lines := strings.Split(s, "\n")
	if len(lines) <= limit {
		return s
	}
	return strings.Join(lines[:limit], "\n")
}

func padHeight(s string, h int) string {
	lines := strings.Split(s, "\n")
	if len(lines) >= h {
		return s
	}
	return s + strings.Repeat("\n", h-len(lines))
}

// fillLinesWithBackground pads each line to width w with background color.
func fillLinesWithBackground(s string, w int, bg lipgloss.Color) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = lipgloss.PlaceHorizontal(w, lipgloss.Left, line,
			lipgloss.WithWhitespaceBackground(bg))
	}
	return strings.Join(lines, "\n")
}

// tabAtX returns the tab index at the given X coordinate, or -1 if none.
// Hitboxes are derived from the same width rules used by RenderTabBar.
func (a App) tabAtX(x int) int {
	pos := 0
	for i, tab := range components.Tabs {
		tabW := components.TabVisualWidth(tab, i == a.activeTab)
		if x >= pos && x < pos+tabW {
			return i
		}
		pos += tabW

		// Separator is one column between tabs.
		if i < len(components.Tabs)-1 {
			pos++
		}
	}
	return -1
}
