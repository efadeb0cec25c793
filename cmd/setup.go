package cmd

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/theirongolddev/jobmetrics/internal/config"
	"github.com/theirongolddev/jobmetrics/internal/source"
	"github.com/theirongolddev/jobmetrics/internal/tui"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "First-time setup wizard",
	RunE:  runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

func runSetup(_ *cobra.Command, _ []string) error {
	fmt.Println()
	fmt.Println("  Welcome to jobmetrics!")
	fmt.Println()

	loader := source.NewDirLoader(cfg.General.DataDir, cfg.General.Files)
	found := 0
	for _, f := range loader.Fingerprint() {
		if !f.Missing {
			found++
		}
	}
	if found > 0 {
		fmt.Printf("  Found %d of 3 extracts in %s\n\n", found, cfg.General.DataDir)
	}

	saved, err := tui.RunSetupWizard(cfg, cfg.General.DataDir)
	if errors.Is(err, huh.ErrUserAborted) {
		fmt.Println("  Setup cancelled, nothing saved.")
		return nil
	}
	if err != nil {
		return fmt.Errorf("saving config: %w", err)
	}
	cfg = saved

	fmt.Println()
	fmt.Printf("  Saved to %s\n", config.ConfigPath())
	fmt.Printf("  Extracts: %s\n", cfg.General.DataDir)
	fmt.Printf("  Refresh every %s\n", cfg.RefreshInterval())
	fmt.Println("  Run `jobmetrics setup` anytime to reconfigure.")
	fmt.Println()
	return nil
}

