package cmd

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	"github.com/theirongolddev/jobmetrics/internal/tui"
	"github.com/theirongolddev/jobmetrics/internal/tui/theme"
)

var flagTUIAutoRefresh bool

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch interactive TUI dashboard",
	RunE:  runTUI,
}

func init() {
	tuiCmd.Flags().BoolVar(&flagTUIAutoRefresh, "auto-refresh", true, "Reload extracts on the configured interval")
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(_ *cobra.Command, _ []string) error {
	theme.SetActive(cfg.Appearance.Theme)

	// Force TrueColor profile so all background styling produces ANSI codes
	// Without this, lipgloss may default to Ascii profile (no colors)
	lipgloss.SetColorProfile(termenv.TrueColor)

	// Console logs would tear the alt screen.
	if cfg.Logging.Output == "" || cfg.Logging.Output == "stderr" || cfg.Logging.Output == "stdout" {
		cfg.Logging.Level = "disabled"
		if err := reinstallLogger(); err != nil {
			return err
		}
	}

	rt := openRuntime()
	defer rt.Close()

	app := tui.NewApp(rt.cache, tui.Options{
		PM:              flagPM,
		ActiveOnly:      flagActiveOnly,
		AutoRefresh:     flagTUIAutoRefresh,
		RefreshInterval: cfg.RefreshInterval(),
		DataDir:         cfg.General.DataDir,
	})
	p := tea.NewProgram(app, tea.WithAltScreen())

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}

	return nil
}
