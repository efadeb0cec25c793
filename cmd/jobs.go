package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/jobmetrics/internal/cli"
	"github.com/theirongolddev/jobmetrics/internal/model"
	"github.com/theirongolddev/jobmetrics/internal/pipeline"
)

var flagJobSort string

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Per-job contract, cost, progress and profit",
	RunE:  runJobs,
}

var pmsCmd = &cobra.Command{
	Use:   "pms",
	Short: "Jobs rolled up by project manager",
	RunE:  runPMs,
}

func init() {
	jobsCmd.Flags().StringVar(&flagJobSort, "sort", "contract", "Sort by contract, backlog, profit, margin, completion or job")
	rootCmd.AddCommand(jobsCmd, pmsCmd)
}

func sortJobMetrics(jobs []model.JobMetrics, by string) error {
	var key func(model.JobMetrics) float64
	switch by {
	case "contract":
		key = func(j model.JobMetrics) float64 { return j.RevisedContract }
	case "backlog":
		key = func(j model.JobMetrics) float64 { return j.Backlog }
	case "profit":
		key = func(j model.JobMetrics) float64 { return j.Profit }
	case "margin":
		key = func(j model.JobMetrics) float64 { return j.Margin }
	case "completion":
		key = func(j model.JobMetrics) float64 { return j.PercentComplete }
	case "job":
	default:
		return fmt.Errorf("unknown sort %q", by)
	}
	sort.SliceStable(jobs, func(i, k int) bool {
		if key != nil {
			if a, b := key(jobs[i]), key(jobs[k]); a != b {
				return a > b
			}
		}
		return jobs[i].JobNo < jobs[k].JobNo
	})
	return nil
}

func runJobs(cmd *cobra.Command, _ []string) error {
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
	if err := sortJobMetrics(jobs, flagJobSort); err != nil {
		return err
	}
	shown := limitRows(jobs)

	if flagJSON {
		return printJSON(struct {
			Summary model.JobsSummary  `json:"summary"`
			Jobs    []model.JobMetrics `json:"jobs"`
		}{pipeline.SummarizeJobs(jobs, false), shown})
	}
	if len(jobs) == 0 {
		printEmpty("jobs")
		return nil
	}

	fmt.Println()
	fmt.Println(cli.RenderTitle(fmt.Sprintf("JOBS  by %s", flagJobSort)))
	fmt.Println()

	rows := make([][]string, 0, len(shown)+2)
	for _, j := range shown {
		complete, margin := "-", "-"
		if j.HasBudget {
			complete = cli.FormatPercent(j.PercentComplete)
		}
		if j.ValidForProfit {
			margin = cli.FormatPercent(j.Margin)
		}
		rows = append(rows, []string{
			j.JobNo,
			cli.Truncate(j.Description, 28),
			cli.Truncate(cli.OrDash(j.ProjectManager), 16),
			j.Status.Code(),
			cli.FormatMoney(j.RevisedContract),
			cli.FormatMoney(j.ActualCost),
			complete,
			cli.FormatMoney(j.Backlog),
			cli.FormatMoney(j.OverUnderBilling),
			margin,
		})
	}

	s := pipeline.SummarizeJobs(jobs, false)
	rows = append(rows, []string{"---"})
	rows = append(rows, []string{
		"TOTAL", fmt.Sprintf("%d jobs", s.TotalJobs), "", "",
		cli.FormatMoney(s.TotalContract),
		cli.FormatMoney(s.TotalActual),
		cli.FormatPercent(s.AvgCompletion),
		cli.FormatMoney(s.TotalBacklog),
		"",
		cli.FormatPercent(s.AvgMargin),
	})

	fmt.Print(cli.RenderTable(cli.Table{
		Headers:  []string{"Job", "Description", "PM", "St", "Contract", "Actual", "Done", "Backlog", "Over/Under", "Margin"},
		Rows:     rows,
		LeftCols: 4,
	}))
	printShown(len(shown), len(jobs))
	return nil
}

func runPMs(cmd *cobra.Command, _ []string) error {
	rt, snap, err := loadSnapshot(cmd.Context(), "cli")
	if err != nil {
		return err
	}
	defer rt.Close()

	pms := snap.PMs
	if flagPM != "" || flagCustomer != "" || flagStatus != "" || flagActiveOnly {
		f, err := jobFilter()
		if err != nil {
			return err
		}
		pms = pipeline.AggregatePMs(pipeline.FilterJobs(snap.Jobs, f, snap.Rules), snap.Rules)
	}
	shown := limitRows(pms)

	if flagJSON {
		return printJSON(shown)
	}
	if len(pms) == 0 {
		printEmpty("project managers")
		return nil
	}

	fmt.Println()
	fmt.Println(cli.RenderTitle("PROJECT MANAGERS"))
	fmt.Println()

	rows := make([][]string, 0, len(shown))
	for _, p := range shown {
		margin := "-"
		if p.JobsValidForProfit > 0 {
			margin = cli.FormatPercent(p.AvgMargin)
		}
		rows = append(rows, []string{
			cli.Truncate(p.ProjectManager, 24),
			fmt.Sprintf("%d/%d", p.ActiveJobs, p.TotalJobs),
			cli.FormatMoney(p.TotalContract),
			cli.FormatMoney(p.TotalBacklog),
			cli.FormatMoney(p.TotalProfit),
			margin,
			cli.FormatPercent(p.AvgCompletion),
		})
	}

	fmt.Print(cli.RenderTable(cli.Table{
		Headers: []string{"Project Manager", "Active/All", "Contract", "Backlog", "Profit", "Avg Margin", "Avg Done"},
		Rows:    rows,
	}))
	printShown(len(shown), len(pms))
	return nil
}
