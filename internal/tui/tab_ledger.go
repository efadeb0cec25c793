package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/jobmetrics/internal/cli"
	"github.com/theirongolddev/jobmetrics/internal/tui/components"
	"github.com/theirongolddev/jobmetrics/internal/tui/theme"
)

const ledgerRows = 15

type ledgerRow struct {
	name     string
	count    int
	total    float64
	over90   float64
	avgDays  float64
	subtotal float64 // collectible or ex-retainage amount
}

func renderLedger(title, nameHeader, subHeader string, rows []ledgerRow, w int) string {
	t := theme.Active
	innerW := components.CardInnerWidth(w)
	headerStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface).Bold(true)
	rowStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	mutedStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	lateStyle := lipgloss.NewStyle().Foreground(t.Red).Background(t.Surface)

	nameW := max(innerW-5-12-12-12-8-5, 12)

	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("%-*s %5s %12s %12s %12s %8s",
		nameW, nameHeader, "Inv", "Total Due", subHeader, "90+", "Avg")))
	b.WriteString("\n")
	b.WriteString(mutedStyle.Render(strings.Repeat("─", innerW)))
	b.WriteString("\n")
	for i, r := range rows {
		if i == ledgerRows {
			b.WriteString(mutedStyle.Render(fmt.Sprintf("… %d more", len(rows)-ledgerRows)))
			b.WriteString("\n")
			break
		}
		b.WriteString(rowStyle.Render(fmt.Sprintf("%-*s %5d %12s %12s ",
			nameW, truncStr(r.name, nameW), r.count, cli.FormatMoney(r.total), cli.FormatMoney(r.subtotal))))
		over := fmt.Sprintf("%12s", cli.FormatMoney(r.over90))
		if r.over90 > 0 {
			b.WriteString(lateStyle.Render(over))
		} else {
			b.WriteString(rowStyle.Render(over))
		}
		b.WriteString(rowStyle.Render(fmt.Sprintf(" %8s", cli.FormatDays(r.avgDays))))
		b.WriteString("\n")
	}
	return components.ContentCard(title, b.String(), w)
}

func (a App) renderReceivablesTab(cw int) string {
	t := theme.Active
	if a.snap == nil {
		return components.ContentCard("Receivables", "", cw)
	}
	s := a.snap.ARSummary

	metrics := []components.Metric{
		{Label: "Total Due", Value: cli.FormatMoney(s.TotalDue), Note: fmt.Sprintf("%d open invoices", s.TotalInvoices)},
		{Label: "Collectible", Value: cli.FormatMoney(s.Collectible)},
		{Label: "Retainage", Value: cli.FormatMoney(s.Retainage)},
		{Label: "90+ Days", Value: cli.FormatMoney(s.Buckets.Days90Plus), ValueColor: t.Red,
			Note: fmt.Sprintf("avg %s outstanding", cli.FormatDays(s.AvgDays))},
	}

	rows := make([]ledgerRow, 0, len(a.snap.Customers))
	for _, c := range a.snap.Customers {
		rows = append(rows, ledgerRow{
			name:     c.CustomerName,
			count:    c.InvoiceCount,
			total:    c.TotalDue,
			subtotal: c.Collectible,
			over90:   c.Buckets.Days90Plus,
			avgDays:  c.AvgDays,
		})
	}

	return components.MetricCardRow(metrics, cw) + "\n" +
		components.ContentCard("Aging (collectible)", agingChart(s.Buckets, components.CardInnerWidth(cw)), cw) + "\n" +
		renderLedger(fmt.Sprintf("Customers (%d)", len(rows)), "Customer", "Collectible", rows, cw)
}

func (a App) renderPayablesTab(cw int) string {
	t := theme.Active
	if a.snap == nil {
		return components.ContentCard("Payables", "", cw)
	}
	s := a.snap.APSummary

	metrics := []components.Metric{
		{Label: "Total Due", Value: cli.FormatMoney(s.TotalDue), Note: fmt.Sprintf("%d open invoices", s.TotalInvoices)},
		{Label: "Ex Retainage", Value: cli.FormatMoney(s.AmountExRetainage)},
		{Label: "Retainage", Value: cli.FormatMoney(s.Retainage)},
		{Label: "90+ Days", Value: cli.FormatMoney(s.Buckets.Days90Plus), ValueColor: t.Red,
			Note: fmt.Sprintf("avg %s outstanding", cli.FormatDays(s.AvgDays))},
	}

	rows := make([]ledgerRow, 0, len(a.snap.Vendors))
	for _, v := range a.snap.Vendors {
		var exRet float64
		for _, bucket := range []float64{v.Buckets.Current, v.Buckets.Days31To60, v.Buckets.Days61To90, v.Buckets.Days90Plus} {
			exRet += bucket
		}
		rows = append(rows, ledgerRow{
			name:     v.VendorName,
			count:    v.InvoiceCount,
			total:    v.TotalDue,
			subtotal: exRet,
			over90:   v.Buckets.Days90Plus,
			avgDays:  v.AvgDays,
		})
	}

	return components.MetricCardRow(metrics, cw) + "\n" +
		components.ContentCard("Aging (ex retainage)", agingChart(s.Buckets, components.CardInnerWidth(cw)), cw) + "\n" +
		renderLedger(fmt.Sprintf("Vendors (%d)", len(rows)), "Vendor", "Ex Ret.", rows, cw)
}
