package cmd

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/jobmetrics/internal/cli"
	"github.com/theirongolddev/jobmetrics/internal/model"
	"github.com/theirongolddev/jobmetrics/internal/query"
)

var (
	flagQueryTarget  string
	flagQueryVerb    string
	flagQueryField   string
	flagQueryGroupBy string
)

var queryCmd = &cobra.Command{
	Use:   "query [plan.json|-]",
	Short: "Run a structured query plan",
	Long: "Run a query plan read from a file, stdin (-), or built from --target/--verb flags.\n" +
		"See `jobmetrics schema` for the plan format.",
	Args: cobra.MaximumNArgs(1),
	RunE: runQuery,
}

var schemaCmd = &cobra.Command{
	Use:   "schema [target]",
	Short: "Print the plan JSON schema, or the queryable fields of a target",
	Args:  cobra.MaximumNArgs(1),
	RunE: runSchema,
}

func init() {
	queryCmd.Flags().StringVarP(&flagQueryTarget, "target", "t", "", "Target collection (jobs, ar, ap, pms, customers, vendors)")
	queryCmd.Flags().StringVar(&flagQueryVerb, "verb", "list", "Verb (count, sum, average, top, bottom, group_by, list)")
	queryCmd.Flags().StringVarP(&flagQueryField, "field", "f", "", "Metric field for the verb")
	queryCmd.Flags().StringVarP(&flagQueryGroupBy, "group-by", "g", "", "Dimension for group_by")
	rootCmd.AddCommand(queryCmd, schemaCmd)
}

// readPlan decodes the plan from args or assembles it from flags.
func readPlan(cmd *cobra.Command, args []string) (query.Plan, error) {
	if len(args) == 0 && flagQueryTarget != "" {
		p := query.Plan{
			Version: query.PlanVersion,
			Target:  query.Target(flagQueryTarget),
			Verb:    query.Verb(flagQueryVerb),
			Field:   flagQueryField,
			GroupBy: flagQueryGroupBy,
		}
		if cmd.Flags().Changed("limit") {
			p.Limit = flagLimit
		}
		return p, nil
	}

	var (
		data []byte
		err  error
	)
	switch {
	case len(args) == 0 || args[0] == "-":
		data, err = io.ReadAll(os.Stdin)
	default:
		data, err = os.ReadFile(args[0])
	}
	if err != nil {
		return query.Plan{}, fmt.Errorf("reading plan: %w", err)
	}
	return query.DecodePlan(data)
}

func runQuery(cmd *cobra.Command, args []string) error {
	plan, err := readPlan(cmd, args)
	if err != nil {
		return err
	}

	rt, snap, err := loadSnapshot(cmd.Context(), "cli")
	if err != nil {
		return err
	}
	defer rt.Close()

	res, err := query.Run(snap, plan)
	if err != nil {
		return err
	}

	if flagJSON {
		return printJSON(res)
	}
	renderResult(res)
	return nil
}

func renderResult(res *query.Result) {
	title := fmt.Sprintf("%s  %s", res.Target, res.Verb)
	if res.Field != "" {
		title += "  " + res.Field
	}
	if res.GroupBy != "" {
		title += "  by " + res.GroupBy
	}

	fmt.Println()
	fmt.Println(cli.RenderTitle(title))
	fmt.Println()
	fmt.Print(cli.RenderNote(res.Note))
	fmt.Println()

	if t := itemsTable(res.Items); len(t.Rows) > 0 {
		fmt.Print(cli.RenderTable(t))
		printShown(res.Shown, res.Matched)
		fmt.Println()
	}

	if len(res.Totals) > 0 {
		keys := make([]string, 0, len(res.Totals))
		for k := range res.Totals {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		rows := make([][]string, 0, len(keys))
		for _, k := range keys {
			rows = append(rows, []string{k, cli.FormatCents(res.Totals[k])})
		}
		fmt.Print(cli.RenderTable(cli.Table{
			Title:   fmt.Sprintf("Totals over %d matched", res.Matched),
			Headers: []string{"Field", "Total"},
			Rows:    rows,
		}))
	}

	if s := res.Stats; s != nil {
		fmt.Println()
		fmt.Print(cli.RenderTable(cli.Table{
			Title:   "Stats: " + s.Field,
			Headers: []string{"Count", "Sum", "Average", "Min", "Max"},
			Rows: [][]string{{
				cli.FormatNumber(int64(s.Count)),
				fmt.Sprintf("%.2f", s.Sum),
				fmt.Sprintf("%.2f", s.Average),
				fmt.Sprintf("%.2f", s.Min),
				fmt.Sprintf("%.2f", s.Max),
			}},
		}))
	}

	if c := res.Concentration; c != nil {
		fmt.Println()
		fmt.Print(cli.RenderNote(fmt.Sprintf("%d groups, top 5 hold %s of %s",
			c.GroupCount, cli.FormatShare(c.Top5Share), cli.FormatMoney(c.GrandTotal))))
	}
}

// itemsTable lays out result items with the columns most useful per collection.
func itemsTable(items any) cli.Table {
	var t cli.Table
	switch rows := items.(type) {
	case []model.JobMetrics:
		t.Headers = []string{"Job", "Description", "PM", "Contract", "Backlog", "Profit", "Margin"}
		t.LeftCols = 3
		for _, j := range rows {
			t.Rows = append(t.Rows, []string{
				j.JobNo, cli.Truncate(j.Description, 28), cli.Truncate(cli.OrDash(j.ProjectManager), 16),
				cli.FormatMoney(j.RevisedContract), cli.FormatMoney(j.Backlog),
				cli.FormatMoney(j.Profit), cli.FormatPercent(j.Margin),
			})
		}
	case []model.ARInvoiceMetric:
		t.Headers = []string{"Invoice", "Customer", "Collectible", "Days", "Bucket"}
		t.LeftCols = 2
		for _, inv := range rows {
			t.Rows = append(t.Rows, []string{
				inv.InvoiceNo, cli.Truncate(inv.CustomerName, 28), cli.FormatMoney(inv.Collectible),
				fmt.Sprintf("%d", inv.DaysOutstanding), inv.AgingBucket.Label(),
			})
		}
	case []model.APInvoiceMetric:
		t.Headers = []string{"Invoice", "Vendor", "Ex Retainage", "Days", "Bucket"}
		t.LeftCols = 2
		for _, inv := range rows {
			t.Rows = append(t.Rows, []string{
				inv.InvoiceNo, cli.Truncate(inv.VendorName, 28), cli.FormatMoney(inv.AmountExRetainage),
				fmt.Sprintf("%d", inv.DaysOutstanding), inv.AgingBucket.Label(),
			})
		}
	case []model.PMSummary:
		t.Headers = []string{"Project Manager", "Jobs", "Contract", "Backlog", "Avg Margin"}
		for _, p := range rows {
			t.Rows = append(t.Rows, []string{
				cli.Truncate(p.ProjectManager, 24), cli.FormatNumber(int64(p.TotalJobs)),
				cli.FormatMoney(p.TotalContract), cli.FormatMoney(p.TotalBacklog), cli.FormatPercent(p.AvgMargin),
			})
		}
	case []model.CustomerSummary:
		t.Headers = []string{"Customer", "Invoices", "Collectible", "Avg Days"}
		for _, c := range rows {
			t.Rows = append(t.Rows, []string{
				cli.Truncate(c.CustomerName, 28), cli.FormatNumber(int64(c.InvoiceCount)),
				cli.FormatMoney(c.Collectible), cli.FormatDays(c.AvgDays),
			})
		}
	case []model.VendorSummary:
		t.Headers = []string{"Vendor", "Invoices", "Due", "Avg Days"}
		for _, v := range rows {
			t.Rows = append(t.Rows, []string{
				cli.Truncate(v.VendorName, 28), cli.FormatNumber(int64(v.InvoiceCount)),
				cli.FormatMoney(v.TotalDue), cli.FormatDays(v.AvgDays),
			})
		}
	case []query.Group:
		t.Headers = []string{"Group", "Count", "Total", "Share"}
		for _, g := range rows {
			t.Rows = append(t.Rows, []string{
				cli.Truncate(g.Key, 28), cli.FormatNumber(int64(g.Count)),
				fmt.Sprintf("%.2f", g.Total), cli.FormatShare(g.Share),
			})
		}
	}
	return t
}

func runSchema(_ *cobra.Command, args []string) error {
	if len(args) == 0 {
		return printJSON(query.Schema())
	}

	fields, ok := query.Fields(query.Target(args[0]))
	if !ok {
		return fmt.Errorf("unknown target %q", args[0])
	}
	if flagJSON {
		return printJSON(fields)
	}

	rows := make([][]string, 0, len(fields))
	for _, f := range fields {
		var notes []string
		if f.Additive {
			notes = append(notes, "additive")
		}
		if f.Scoped {
			notes = append(notes, "scoped")
		}
		if f.Weighted {
			notes = append(notes, "weighted")
		}
		rows = append(rows, []string{f.Name, string(f.Kind), strings.Join(notes, ", ")})
	}
	fmt.Println()
	fmt.Print(cli.RenderTable(cli.Table{
		Title:    "Fields of " + args[0],
		Headers:  []string{"Field", "Kind", "Notes"},
		Rows:     rows,
		LeftCols: 3,
	}))
	return nil
}
