package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/jobmetrics/internal/cli"
	"github.com/theirongolddev/jobmetrics/internal/model"
	"github.com/theirongolddev/jobmetrics/internal/tui/components"
	"github.com/theirongolddev/jobmetrics/internal/tui/theme"
)

const overviewTopN = 8

func (a App) renderOverviewTab(cw int) string {
	t := theme.Active
	if a.snap == nil {
		return components.ContentCard("Overview",
			lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface).Render("No data loaded yet. Press r to retry."), cw)
	}
	s := a.summary
	ar := a.snap.ARSummary
	ap := a.snap.APSummary

	var b strings.Builder

	// Row 1: headline cards
	metrics := []components.Metric{
		{
			Label: "Contract",
			Value: cli.FormatCompactMoney(s.TotalContract),
			Note:  fmt.Sprintf("%d jobs", s.TotalJobs),
		},
		{
			Label: "Backlog",
			Value: cli.FormatCompactMoney(s.TotalBacklog),
			Note:  fmt.Sprintf("%s avg complete", cli.FormatPercent(s.AvgCompletion)),
		},
		{
			Label:      "Profit",
			Value:      cli.FormatCompactMoney(s.TotalProfit),
			Note:       fmt.Sprintf("%s avg margin", cli.FormatPercent(s.AvgMargin)),
			ValueColor: t.ForAmount(s.TotalProfit),
		},
		{
			Label: "Receivables",
			Value: cli.FormatCompactMoney(ar.TotalDue),
			Note:  fmt.Sprintf("%d open · %s avg", ar.TotalInvoices, cli.FormatDays(ar.AvgDays)),
		},
		{
			Label: "Payables",
			Value: cli.FormatCompactMoney(ap.TotalDue),
			Note:  fmt.Sprintf("%d open · %s avg", ap.TotalInvoices, cli.FormatDays(ap.AvgDays)),
		},
	}
	if a.isCompactLayout() {
		b.WriteString(components.MetricCardRow(metrics[:3], cw))
		b.WriteString("\n")
		b.WriteString(components.MetricCardRow(metrics[3:], cw))
	} else {
		b.WriteString(components.MetricCardRow(metrics, cw))
	}
	b.WriteString("\n")

	// Row 2: aging side by side
	halves := components.LayoutRow(cw, 2)
	arCard := components.ContentCard("AR Aging (collectible)",
		agingChart(ar.Buckets, components.CardInnerWidth(halves[0])), halves[0])
	apCard := components.ContentCard("AP Aging (ex retainage)",
		agingChart(ap.Buckets, components.CardInnerWidth(halves[1])), halves[1])
	b.WriteString(components.CardRow([]string{arCard, apCard}))
	b.WriteString("\n")

	// Row 3: where the backlog sits and who owes the most
	pmBars := make([]components.Bar, 0, overviewTopN)
	for _, pm := range topPMsByBacklog(a.snap.PMs, overviewTopN) {
		pmBars = append(pmBars, components.Bar{
			Label: pm.ProjectManager,
			Value: pm.TotalBacklog,
			Text:  cli.FormatCompactMoney(pm.TotalBacklog),
			Color: t.Blue,
		})
	}
	custBars := make([]components.Bar, 0, overviewTopN)
	for i, c := range a.snap.Customers {
		if i == overviewTopN {
			break
		}
		custBars = append(custBars, components.Bar{
			Label: c.CustomerName,
			Value: c.TotalDue,
			Text:  cli.FormatCompactMoney(c.TotalDue),
			Color: t.Magenta,
		})
	}
	pmCard := components.ContentCard("Backlog by PM",
		components.HBarChart(pmBars, components.CardInnerWidth(halves[0])), halves[0])
	custCard := components.ContentCard("Top Customers by AR",
		components.HBarChart(custBars, components.CardInnerWidth(halves[1])), halves[1])
	b.WriteString(components.CardRow([]string{pmCard, custCard}))

	return b.String()
}

func agingChart(bt model.BucketTotals, w int) string {
	t := theme.Active
	bars := make([]components.Bar, 0, len(model.AgingBuckets))
	for _, bucket := range model.AgingBuckets {
		v := bt.Get(bucket)
		bars = append(bars, components.Bar{
			Label: bucket.Label(),
			Value: v,
			Text:  cli.FormatMoney(v),
			Color: t.ForAging(bucket),
		})
	}
	return components.HBarChart(bars, w)
}

// topPMsByBacklog returns up to n managers ordered by backlog descending.
func topPMsByBacklog(pms []model.PMSummary, n int) []model.PMSummary {
	sorted := make([]model.PMSummary, len(pms))
	copy(sorted, pms)
	sort.SliceStable(sorted, func(i, k int) bool {
		return sorted[i].TotalBacklog > sorted[k].TotalBacklog
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}
