package pipeline

import (
	"fmt"
	"testing"

	"github.com/theirongolddev/jobmetrics/internal/model"
)

func syntheticAR(n int) []model.ARInvoice {
	invs := make([]model.ARInvoice, n)
	for i := range invs {
		invs[i] = model.ARInvoice{
			InvoiceNo:           fmt.Sprintf("INV-%d", i),
			CustomerName:        fmt.Sprintf("Customer %d", i%250),
			ProjectManager:      fmt.Sprintf("PM %d", i%12),
			CalculatedAmountDue: float64(i%5000) + 10,
			Retainage:           float64(i % 40),
			DaysOutstanding:     i % 180,
		}
	}
	return invs
}

func BenchmarkBuildARMetrics(b *testing.B) {
	invs := syntheticAR(50_000)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = BuildARMetrics(invs)
	}
}

func BenchmarkAggregateCustomers(b *testing.B) {
	ar := BuildARMetrics(syntheticAR(50_000))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = AggregateCustomers(ar)
	}
}
