package cmd

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/theirongolddev/jobmetrics/internal/cli"
	"github.com/theirongolddev/jobmetrics/internal/source"
	"github.com/theirongolddev/jobmetrics/internal/store"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show extract file freshness and the last recorded refresh",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	loader := source.NewDirLoader(cfg.General.DataDir, cfg.General.Files)
	files := loader.Fingerprint()

	var tracked map[string]source.FileState
	var h *store.History
	if cfg.History.Enabled {
		var err error
		h, err = store.Open(cfg.HistoryPath())
		if err == nil {
			defer h.Close()
			tracked, _ = h.TrackedFiles(cmd.Context())
		}
	}

	fmt.Println()
	fmt.Println(cli.RenderTitle("EXTRACT STATUS"))
	fmt.Println()

	rows := make([][]string, 0, len(files))
	missing := 0
	for _, f := range files {
		if f.Missing {
			missing++
			rows = append(rows, []string{filepath.Base(f.Path), "missing", "", "", ""})
			continue
		}
		modified := time.Unix(0, f.MtimeNs)
		since := "new"
		if prev, ok := tracked[f.Path]; ok {
			since = "unchanged"
			if prev != f {
				since = "changed"
			}
		}
		rows = append(rows, []string{
			filepath.Base(f.Path),
			"ok",
			humanize.Bytes(uint64(f.SizeBytes)),
			cli.FormatAge(int64(time.Since(modified).Seconds())) + " ago",
			since,
		})
	}
	fmt.Print(cli.RenderTable(cli.Table{
		Title:    cfg.General.DataDir,
		Headers:  []string{"File", "State", "Size", "Modified", "Since Refresh"},
		Rows:     rows,
		LeftCols: 2,
	}))

	if h != nil {
		total, failed, err := h.Counts(cmd.Context())
		if err == nil && total > 0 {
			recs, _ := h.Recent(cmd.Context(), 1)
			fmt.Println()
			if len(recs) == 1 {
				last := recs[0]
				result := "ok"
				if !last.OK {
					result = "failed: " + last.Error
				}
				fmt.Printf("  Last refresh: %s (%s, %s)\n",
					humanize.Time(last.StartedAt), last.Trigger, result)
			}
			rate := float64(failed) / float64(total)
			fmt.Printf("  Failure rate: %s %s of %d\n", renderMiniBar(rate, 20), cli.FormatShare(rate), total)
		}
	}

	if missing > 0 {
		warnStyle := lipgloss.NewStyle().Foreground(cli.ColorOrange)
		fmt.Printf("\n  %s\n", warnStyle.Render(fmt.Sprintf("%d extract files missing; refreshes will fail", missing)))
	}
	fmt.Println()
	return nil
}

func renderMiniBar(pct float64, width int) string {
	if pct < 0 {
		pct = 0
	}
	if pct > 1 {
		pct = 1
	}
	filled := int(pct * float64(width))
	empty := width - filled

	color := cli.ColorGreen
	if pct >= 0.5 {
		color = cli.ColorRed
	} else if pct >= 0.1 {
		color = cli.ColorOrange
	}

	barStyle := lipgloss.NewStyle().Foreground(color)
	dimStyle := lipgloss.NewStyle().Foreground(cli.ColorTextDim)

	return barStyle.Render(strings.Repeat("█", filled)) +
		dimStyle.Render(strings.Repeat("░", empty))
}
