package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/jobmetrics/internal/cli"
	"github.com/theirongolddev/jobmetrics/internal/model"
	"github.com/theirongolddev/jobmetrics/internal/pipeline"
)

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Portfolio totals for jobs, receivables and payables",
	RunE:  runSummary,
}

func init() {
	rootCmd.AddCommand(summaryCmd)
}

type summaryOutput struct {
	SnapshotID string           `json:"snapshot_id"`
	Jobs       model.JobsSummary `json:"jobs"`
	AR         model.ARSummary   `json:"ar"`
	AP         model.APSummary   `json:"ap"`
}

func runSummary(cmd *cobra.Command, _ []string) error {
	rt, snap, err := loadSnapshot(cmd.Context(), "cli")
	if err != nil {
		return err
	}
	defer rt.Close()

	f, err := jobFilter()
	if err != nil {
		return err
	}
	jobs := pipeline.FilterJobs(snap.Jobs, f, snap.Rules)
	out := summaryOutput{
		SnapshotID: snap.ID,
		Jobs:       pipeline.SummarizeJobs(jobs, false),
		AR:         pipeline.SummarizeAR(pipeline.FilterAR(snap.AR, flagCustomer, flagPM)),
		AP:         pipeline.SummarizeAP(pipeline.FilterAP(snap.AP, flagVendor, flagPM)),
	}
	if flagJSON {
		return printJSON(out)
	}

	if len(snap.Jobs) == 0 && len(snap.AR) == 0 && len(snap.AP) == 0 {
		fmt.Println("\n  The extracts hold no jobs or open invoices.")
		return nil
	}

	title := "JOB METRICS"
	if flagPM != "" {
		title += "  PM: " + flagPM
	}
	if flagActiveOnly {
		title += "  (active)"
	}

	js := out.Jobs
	fmt.Println()
	fmt.Println(cli.RenderTitle(title))
	fmt.Println()

	rows := [][]string{
		{"Jobs", cli.FormatNumber(int64(js.TotalJobs))},
		{"With budget", cli.FormatNumber(int64(js.JobsWithBudget))},
		{"Valid for profit", cli.FormatNumber(int64(js.JobsValidForProfit))},
		{"---"},
		{"Contract value", cli.FormatMoney(js.TotalContract)},
		{"Budgeted cost", cli.FormatMoney(js.TotalBudget)},
		{"Actual cost", cli.FormatMoney(js.TotalActual)},
		{"Billed", cli.FormatMoney(js.TotalBilled)},
		{"Earned revenue", cli.FormatMoney(js.TotalEarnedRevenue)},
		{"Backlog", cli.FormatMoney(js.TotalBacklog)},
		{"---"},
		{"Profit", cli.FormatMoney(js.TotalProfit)},
		{"Avg margin", cli.FormatPercent(js.AvgMargin)},
		{"Avg completion", cli.FormatPercent(js.AvgCompletion)},
		{"---"},
		{"AR open invoices", cli.FormatNumber(int64(out.AR.TotalInvoices))},
		{"AR total due", cli.FormatMoney(out.AR.TotalDue)},
		{"AR collectible", cli.FormatMoney(out.AR.Collectible)},
		{"AR avg days", cli.FormatDays(out.AR.AvgDays)},
		{"---"},
		{"AP open invoices", cli.FormatNumber(int64(out.AP.TotalInvoices))},
		{"AP total due", cli.FormatMoney(out.AP.TotalDue)},
		{"AP ex retainage", cli.FormatMoney(out.AP.AmountExRetainage)},
		{"AP avg days", cli.FormatDays(out.AP.AvgDays)},
	}

	fmt.Print(cli.RenderTable(cli.Table{
		Headers: []string{"Metric", "Value"},
		Rows:    rows,
	}))
	fmt.Println()
	fmt.Print(cli.RenderAging("AR AGING (collectible)", out.AR.Buckets))
	fmt.Println()
	fmt.Print(cli.RenderAging("AP AGING (ex retainage)", out.AP.Buckets))

	if js.JobsWithoutBudget > 0 {
		fmt.Println()
		fmt.Print(cli.RenderNote(fmt.Sprintf("%d jobs have no budget and are left out of earned revenue and backlog.", js.JobsWithoutBudget)))
	}
	return nil
}
