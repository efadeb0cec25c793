package tui

import (
	"errors"
	"os"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/theirongolddev/jobmetrics/internal/config"
	"github.com/theirongolddev/jobmetrics/internal/tui/theme"
)

// setupValues is bound to the first-run form fields.
type setupValues struct {
	dataDir     string
	interval    string
	excludedPMs string
	theme       string
}

var intervalOptions = []huh.Option[string]{
	huh.NewOption("1 minute", "60"),
	huh.NewOption("5 minutes", "300"),
	huh.NewOption("15 minutes", "900"),
	huh.NewOption("1 hour", "3600"),
}

func newSetupValues(cfg config.Config, dataDir string) *setupValues {
	if dataDir == "" {
		dataDir = cfg.General.DataDir
	}
	return &setupValues{
		dataDir:     dataDir,
		interval:    strconv.Itoa(cfg.Daemon.IntervalSeconds),
		excludedPMs: strings.Join(cfg.Rules.ExcludedPMSubstrings, ", "),
		theme:       cfg.Appearance.Theme,
	}
}

func validateDataDir(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return errors.New("data directory is required")
	}
	info, err := os.Stat(s)
	if err != nil {
		return errors.New("directory does not exist")
	}
	if !info.IsDir() {
		return errors.New("not a directory")
	}
	return nil
}

// newSetupForm builds the first-run wizard over vals.
func newSetupForm(vals *setupValues) *huh.Form {
	themeOpts := make([]huh.Option[string], 0, len(theme.All))
	for _, name := range theme.Names() {
		themeOpts = append(themeOpts, huh.NewOption(name, name))
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewNote().
				Title("Welcome to jobmetrics").
				Description("Point it at the folder holding the job, AR and AP extracts."),
			huh.NewInput().
				Title("Extract directory").
				Value(&vals.dataDir).
				Validate(validateDataDir),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Refresh interval").
				Options(intervalOptions...).
				Value(&vals.interval),
			huh.NewInput().
				Title("Exclude PMs matching").
				Description("Comma separated, case-insensitive substrings").
				Value(&vals.excludedPMs),
			huh.NewSelect[string]().
				Title("Theme").
				Options(themeOpts...).
				Value(&vals.theme),
		),
	).WithTheme(huh.ThemeDracula())
}

// startSetup opens the first-run form.
func (a *App) startSetup() tea.Cmd {
	cfg, err := config.Load()
	if err != nil {
		cfg = config.DefaultConfig()
	}
	a.setupVals = newSetupValues(cfg, a.dataDir)
	a.setupForm = newSetupForm(a.setupVals)
	if a.width > 0 {
		a.setupForm = a.setupForm.WithWidth(a.width).WithHeight(a.height)
	}
	return a.setupForm.Init()
}

func (a App) updateSetupForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	form, cmd := a.setupForm.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		a.setupForm = f
	}

	switch a.setupForm.State {
	case huh.StateCompleted:
		_ = saveSetupConfig(a.setupVals)
		a.needSetup = false
		a.setupForm = nil
		return a, nil
	case huh.StateAborted:
		a.needSetup = false
		a.setupForm = nil
		return a, nil
	}
	return a, cmd
}

// applySetup copies the form answers onto cfg.
func applySetup(cfg *config.Config, vals *setupValues) {
	cfg.General.DataDir = strings.TrimSpace(vals.dataDir)
	if secs, err := strconv.Atoi(vals.interval); err == nil && secs > 0 {
		cfg.Daemon.IntervalSeconds = secs
	}

	var excluded []string
	for _, part := range strings.Split(vals.excludedPMs, ",") {
		if p := strings.TrimSpace(part); p != "" {
			excluded = append(excluded, p)
		}
	}
	cfg.Rules.ExcludedPMSubstrings = excluded

	cfg.Appearance.Theme = vals.theme
}

func saveSetupConfig(vals *setupValues) error {
	cfg, err := config.Load()
	if err != nil {
		cfg = config.DefaultConfig()
	}
	applySetup(&cfg, vals)
	theme.SetActive(cfg.Appearance.Theme)
	return config.Save(cfg)
}

// RunSetupWizard runs the setup form standalone, then saves and returns the
// updated config. An aborted form returns huh.ErrUserAborted and saves nothing.
func RunSetupWizard(cfg config.Config, dataDir string) (config.Config, error) {
	vals := newSetupValues(cfg, dataDir)
	if err := newSetupForm(vals).Run(); err != nil {
		return cfg, err
	}
	applySetup(&cfg, vals)
	theme.SetActive(cfg.Appearance.Theme)
	return cfg, config.Save(cfg)
}
