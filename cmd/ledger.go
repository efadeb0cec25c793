package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/jobmetrics/internal/cli"
	"github.com/theirongolddev/jobmetrics/internal/model"
	"github.com/theirongolddev/jobmetrics/internal/pipeline"
)

var arCmd = &cobra.Command{
	Use:   "ar",
	Short: "Open receivables with aging",
	RunE:  runAR,
}

var apCmd = &cobra.Command{
	Use:   "ap",
	Short: "Open payables with aging",
	RunE:  runAP,
}

var customersCmd = &cobra.Command{
	Use:   "customers",
	Short: "Receivables rolled up by customer",
	RunE:  runCustomers,
}

var vendorsCmd = &cobra.Command{
	Use:   "vendors",
	Short: "Payables rolled up by vendor",
	RunE:  runVendors,
}

func init() {
	rootCmd.AddCommand(arCmd, apCmd, customersCmd, vendorsCmd)
}

func runAR(cmd *cobra.Command, _ []string) error {
	rt, snap, err := loadSnapshot(cmd.Context(), "cli")
	if err != nil {
		return err
	}
	defer rt.Close()

	invoices := pipeline.FilterAR(snap.AR, flagCustomer, flagPM)
	summary := pipeline.SummarizeAR(invoices)
	shown := limitRows(invoices)

	if flagJSON {
		return printJSON(struct {
			Summary  model.ARSummary         `json:"summary"`
			Invoices []model.ARInvoiceMetric `json:"invoices"`
		}{summary, shown})
	}
	if len(invoices) == 0 {
		printEmpty("open receivables")
		return nil
	}

	fmt.Println()
	fmt.Println(cli.RenderTitle("ACCOUNTS RECEIVABLE"))
	fmt.Println()

	rows := make([][]string, 0, len(shown)+2)
	for _, inv := range shown {
		rows = append(rows, []string{
			inv.InvoiceNo,
			cli.Truncate(inv.CustomerName, 24),
			cli.OrDash(inv.JobNo),
			cli.FormatMoney(inv.TotalDue),
			cli.FormatMoney(inv.Retainage),
			cli.FormatMoney(inv.Collectible),
			fmt.Sprintf("%d", inv.DaysOutstanding),
			inv.AgingBucket.Label(),
		})
	}
	rows = append(rows, []string{"---"})
	rows = append(rows, []string{
		"TOTAL", fmt.Sprintf("%d invoices", summary.TotalInvoices), "",
		cli.FormatMoney(summary.TotalDue),
		cli.FormatMoney(summary.Retainage),
		cli.FormatMoney(summary.Collectible),
		cli.FormatDays(summary.AvgDays),
		"",
	})

	fmt.Print(cli.RenderTable(cli.Table{
		Headers:  []string{"Invoice", "Customer", "Job", "Due", "Retainage", "Collectible", "Days", "Bucket"},
		Rows:     rows,
		LeftCols: 3,
	}))
	printShown(len(shown), len(invoices))
	fmt.Println()
	fmt.Print(cli.RenderAging("AGING (collectible)", summary.Buckets))
	return nil
}

func runAP(cmd *cobra.Command, _ []string) error {
	rt, snap, err := loadSnapshot(cmd.Context(), "cli")
	if err != nil {
		return err
	}
	defer rt.Close()

	invoices := pipeline.FilterAP(snap.AP, flagVendor, flagPM)
	summary := pipeline.SummarizeAP(invoices)
	shown := limitRows(invoices)

	if flagJSON {
		return printJSON(struct {
			Summary  model.APSummary         `json:"summary"`
			Invoices []model.APInvoiceMetric `json:"invoices"`
		}{summary, shown})
	}
	if len(invoices) == 0 {
		printEmpty("open payables")
		return nil
	}

	fmt.Println()
	fmt.Println(cli.RenderTitle("ACCOUNTS PAYABLE"))
	fmt.Println()

	rows := make([][]string, 0, len(shown)+2)
	for _, inv := range shown {
		rows = append(rows, []string{
			inv.InvoiceNo,
			cli.Truncate(inv.VendorName, 24),
			cli.OrDash(inv.JobNo),
			cli.FormatMoney(inv.RemainingBalance),
			cli.FormatMoney(inv.Retainage),
			cli.FormatMoney(inv.AmountExRetainage),
			fmt.Sprintf("%d", inv.DaysOutstanding),
			inv.AgingBucket.Label(),
		})
	}
	rows = append(rows, []string{"---"})
	rows = append(rows, []string{
		"TOTAL", fmt.Sprintf("%d invoices", summary.TotalInvoices), "",
		cli.FormatMoney(summary.TotalDue),
		cli.FormatMoney(summary.Retainage),
		cli.FormatMoney(summary.AmountExRetainage),
		cli.FormatDays(summary.AvgDays),
		"",
	})

	fmt.Print(cli.RenderTable(cli.Table{
		Headers:  []string{"Invoice", "Vendor", "Job", "Remaining", "Retainage", "Ex Retainage", "Days", "Bucket"},
		Rows:     rows,
		LeftCols: 3,
	}))
	printShown(len(shown), len(invoices))
	fmt.Println()
	fmt.Print(cli.RenderAging("AGING (ex retainage)", summary.Buckets))
	return nil
}

func agingCells(b model.BucketTotals) []string {
	cells := make([]string, 0, len(model.AgingBuckets))
	for _, bucket := range model.AgingBuckets {
		cells = append(cells, cli.FormatCompactMoney(b.Get(bucket)))
	}
	return cells
}

func runCustomers(cmd *cobra.Command, _ []string) error {
	rt, snap, err := loadSnapshot(cmd.Context(), "cli")
	if err != nil {
		return err
	}
	defer rt.Close()

	customers := snap.Customers
	if flagCustomer != "" || flagPM != "" {
		customers = pipeline.AggregateCustomers(pipeline.FilterAR(snap.AR, flagCustomer, flagPM))
	}
	shown := limitRows(customers)

	if flagJSON {
		return printJSON(shown)
	}
	if len(customers) == 0 {
		printEmpty("customers")
		return nil
	}

	fmt.Println()
	fmt.Println(cli.RenderTitle("RECEIVABLES BY CUSTOMER"))
	fmt.Println()

	rows := make([][]string, 0, len(shown))
	for _, c := range shown {
		row := []string{
			cli.Truncate(c.CustomerName, 28),
			cli.FormatNumber(int64(c.InvoiceCount)),
			cli.FormatMoney(c.Collectible),
		}
		row = append(row, agingCells(c.Buckets)...)
		rows = append(rows, append(row, cli.FormatDays(c.AvgDays)))
	}

	fmt.Print(cli.RenderTable(cli.Table{
		Headers: []string{"Customer", "Inv", "Collectible", "Current", "31-60", "61-90", "90+", "Avg Days"},
		Rows:    rows,
	}))
	printShown(len(shown), len(customers))
	return nil
}

func runVendors(cmd *cobra.Command, _ []string) error {
	rt, snap, err := loadSnapshot(cmd.Context(), "cli")
	if err != nil {
		return err
	}
	defer rt.Close()

	vendors := snap.Vendors
	if flagVendor != "" || flagPM != "" {
		vendors = pipeline.AggregateVendors(pipeline.FilterAP(snap.AP, flagVendor, flagPM))
	}
	shown := limitRows(vendors)

	if flagJSON {
		return printJSON(shown)
	}
	if len(vendors) == 0 {
		printEmpty("vendors")
		return nil
	}

	fmt.Println()
	fmt.Println(cli.RenderTitle("PAYABLES BY VENDOR"))
	fmt.Println()

	rows := make([][]string, 0, len(shown))
	for _, v := range shown {
		row := []string{
			cli.Truncate(v.VendorName, 28),
			cli.FormatNumber(int64(v.InvoiceCount)),
			cli.FormatMoney(v.TotalDue),
		}
		row = append(row, agingCells(v.Buckets)...)
		rows = append(rows, append(row, cli.FormatDays(v.AvgDays)))
	}

	fmt.Print(cli.RenderTable(cli.Table{
		Headers: []string{"Vendor", "Inv", "Due", "Current", "31-60", "61-90", "90+", "Avg Days"},
		Rows:    rows,
	}))
	printShown(len(shown), len(vendors))
	return nil
}
