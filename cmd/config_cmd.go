// Package cmd implements the jobmetrics CLI commands.
package cmd

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/jobmetrics/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show current configuration",
	RunE:  runConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)
}

func runConfig(_ *cobra.Command, _ []string) error {
	if flagJSON {
		shown := cfg
		shown.AMQP.URL = maskURL(cfg.AMQP.URL)
		return printJSON(shown)
	}

	path := config.ConfigPath()
	if flagConfig != "" {
		path = flagConfig
	}
	fmt.Printf("  Config file: %s\n", path)
	if config.Exists() || flagConfig != "" {
		fmt.Println("  Status: loaded")
	} else {
		fmt.Println("  Status: using defaults (no config file)")
	}
	fmt.Println()

	fmt.Println("  [General]")
	fmt.Printf("    Data directory: %s\n", cfg.General.DataDir)
	fmt.Printf("    Jobs extract:   %s\n", cfg.General.Files.Jobs)
	fmt.Printf("    AR extract:     %s\n", cfg.General.Files.AR)
	fmt.Printf("    AP extract:     %s\n", cfg.General.Files.AP)
	fmt.Println()

	fmt.Println("  [Rules]")
	fmt.Printf("    Excluded vendors:      %s\n", listOrNone(cfg.Rules.ExcludedVendors))
	fmt.Printf("    Excluded PM substrings: %s\n", listOrNone(cfg.Rules.ExcludedPMSubstrings))
	fmt.Println()

	fmt.Println("  [Daemon]")
	fmt.Printf("    Address:         %s\n", cfg.Daemon.Addr)
	fmt.Printf("    Interval:        %s\n", cfg.RefreshInterval())
	fmt.Printf("    Request timeout: %ds\n", cfg.Daemon.RequestTimeout)
	fmt.Printf("    Event buffer:    %d\n", cfg.Daemon.EventBuffer)
	fmt.Println()

	fmt.Println("  [History]")
	if cfg.History.Enabled {
		fmt.Printf("    Database: %s (keep %d)\n", cfg.HistoryPath(), cfg.History.Keep)
	} else {
		fmt.Println("    Disabled")
	}
	fmt.Println()

	fmt.Println("  [AMQP]")
	if cfg.AMQP.URL != "" {
		fmt.Printf("    URL:      %s\n", maskURL(cfg.AMQP.URL))
		fmt.Printf("    Exchange: %s (routing prefix %q)\n", cfg.AMQP.Exchange, cfg.AMQP.RoutingPrefix)
	} else {
		fmt.Println("    Not configured")
	}
	fmt.Println()

	fmt.Println("  [Logging]")
	fmt.Printf("    %s, %s to %s\n", cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	fmt.Println()

	fmt.Println("  [Appearance]")
	fmt.Printf("    Theme: %s\n", cfg.Appearance.Theme)
	fmt.Println()

	fmt.Println("  Run `jobmetrics setup` to reconfigure.")
	return nil
}

// maskURL hides the password of a broker URL.
func maskURL(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "****"
	}
	return u.Redacted()
}

func listOrNone(items []string) string {
	if len(items) == 0 {
		return "none"
	}
	return strings.Join(items, ", ")
}
