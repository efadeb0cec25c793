package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/jobmetrics/internal/cache"
	"github.com/theirongolddev/jobmetrics/internal/cli"
	"github.com/theirongolddev/jobmetrics/internal/store"
)

var flagHistoryFailed bool

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Reload the extracts and report what changed",
	RunE:  runRefresh,
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent refreshes from the history database",
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().BoolVar(&flagHistoryFailed, "failed", false, "Only show failed refreshes")
	rootCmd.AddCommand(refreshCmd, historyCmd)
}

func runRefresh(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	rt := openRuntime()
	defer rt.Close()

	files := rt.loader.Fingerprint()
	changed := true
	if rt.history != nil {
		if tracked, err := rt.history.TrackedFiles(ctx); err == nil && len(tracked) > 0 {
			changed = false
			for _, f := range files {
				if prev, ok := tracked[f.Path]; !ok || prev != f {
					changed = true
					break
				}
			}
		}
	}

	res, err := rt.cache.Refresh(ctx, "manual")
	if flagJSON {
		if jerr := printJSON(res); jerr != nil {
			return jerr
		}
		return err
	}
	if err != nil {
		return err
	}
	if rt.history != nil {
		if serr := rt.history.SaveFiles(ctx, files); serr != nil {
			fmt.Print(cli.RenderNote("Could not record extract fingerprints: " + serr.Error()))
		}
	}

	fmt.Println()
	fmt.Println(cli.RenderTitle("REFRESH " + res.ID[:8]))
	fmt.Println()

	rows := [][]string{
		{"Took", res.Duration.Round(time.Millisecond).String()},
		{"Jobs", cli.FormatNumber(int64(res.Counts.Jobs))},
		{"Project managers", cli.FormatNumber(int64(res.Counts.PMs))},
		{"Open AR invoices", cli.FormatNumber(int64(res.Counts.AR))},
		{"Customers", cli.FormatNumber(int64(res.Counts.Customers))},
		{"Open AP invoices", cli.FormatNumber(int64(res.Counts.AP))},
		{"Vendors", cli.FormatNumber(int64(res.Counts.Vendors))},
		{"Coerced values", cli.FormatNumber(int64(res.Coerced))},
	}
	fmt.Print(cli.RenderTable(cli.Table{
		Headers: []string{"Metric", "Value"},
		Rows:    rows,
	}))

	if !changed {
		fmt.Print(cli.RenderNote("Extracts unchanged since the last recorded refresh."))
	}
	return nil
}

func runHistory(cmd *cobra.Command, _ []string) error {
	h, err := store.Open(cfg.HistoryPath())
	if err != nil {
		return fmt.Errorf("opening history: %w", err)
	}
	defer h.Close()

	limit := flagLimit
	if limit <= 0 {
		limit = cfg.History.Keep
	}
	records, err := h.Recent(cmd.Context(), limit)
	if err != nil {
		return fmt.Errorf("reading history: %w", err)
	}
	if flagHistoryFailed {
		kept := records[:0]
		for _, r := range records {
			if !r.OK {
				kept = append(kept, r)
			}
		}
		records = kept
	}

	if flagJSON {
		return printJSON(records)
	}
	if len(records) == 0 {
		fmt.Printf("\n  No refreshes recorded in %s\n", cfg.HistoryPath())
		return nil
	}

	total, failed, err := h.Counts(cmd.Context())
	if err != nil {
		return fmt.Errorf("counting history: %w", err)
	}

	fmt.Println()
	fmt.Println(cli.RenderTitle(fmt.Sprintf("REFRESH HISTORY  %d runs, %d failed", total, failed)))
	fmt.Println()

	rows := make([][]string, 0, len(records))
	durations := make([]float64, 0, len(records))
	for _, r := range records {
		status := "ok"
		if !r.OK {
			status = cli.Truncate("failed: "+r.Error, 40)
		}
		rows = append(rows, []string{
			r.StartedAt.Local().Format("2006-01-02 15:04:05"),
			r.Trigger,
			r.Duration.Round(time.Millisecond).String(),
			cli.FormatNumber(int64(r.Counts.Jobs)),
			cli.FormatNumber(int64(r.Counts.AR)),
			cli.FormatNumber(int64(r.Counts.AP)),
			status,
		})
		durations = append(durations, float64(r.Duration.Milliseconds()))
	}

	fmt.Print(cli.RenderTable(cli.Table{
		Headers:  []string{"Started", "Trigger", "Took", "Jobs", "AR", "AP", "Result"},
		Rows:     rows,
		LeftCols: 2,
	}))

	// Sparkline reads oldest to newest.
	for i, j := 0, len(durations)-1; i < j; i, j = i+1, j-1 {
		durations[i], durations[j] = durations[j], durations[i]
	}
	fmt.Printf("\n  Duration trend  %s\n", cli.RenderSparkline(durations))
	return nil
}

// statusFromHistory fills the refresh bookkeeping for `daemon status` when no daemon answers.
func statusFromHistory(cmd *cobra.Command) (cache.Status, error) {
	var st cache.Status
	h, err := store.Open(cfg.HistoryPath())
	if err != nil {
		return st, err
	}
	defer h.Close()

	recs, err := h.Recent(cmd.Context(), 1)
	if err != nil || len(recs) == 0 {
		return st, err
	}
	last := recs[0]
	st.LastAttempt = last.StartedAt
	st.Counts = last.Counts
	if last.OK {
		st.LastRefresh = last.StartedAt
		st.SnapshotID = last.ID
	} else {
		st.LastError = last.Error
	}
	total, failed, err := h.Counts(cmd.Context())
	if err == nil {
		st.Refreshes = int64(total - failed)
		st.Failures = int64(failed)
	}
	return st, nil
}
