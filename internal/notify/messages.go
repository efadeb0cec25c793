package notify

import (
	"encoding/json"
	"time"

	"github.com/theirongolddev/jobmetrics/internal/cache"
)

// Event types, also used as routing key suffixes.
const (
	EventRefreshCompleted = "refresh.completed"
	EventRefreshFailed    = "refresh.failed"
)

// Totals are the headline figures of a snapshot.
type Totals struct {
	Contract    float64 `json:"total_contract"`
	Backlog     float64 `json:"total_backlog"`
	Profit      float64 `json:"total_profit"`
	ARTotalDue  float64 `json:"ar_total_due"`
	AR90Plus    float64 `json:"ar_90_plus"`
	APTotalDue  float64 `json:"ap_total_due"`
	ActiveJobs  int     `json:"active_jobs"`
	OpenARCount int     `json:"open_ar_invoices"`
	OpenAPCount int     `json:"open_ap_invoices"`
}

// TotalsOf reads the headline figures from a snapshot. A nil snapshot gives zeros.
func TotalsOf(s *cache.Snapshot) Totals {
	if s == nil {
		return Totals{}
	}
	return Totals{
		Contract:    s.JobsSummary.TotalContract,
		Backlog:     s.JobsSummary.TotalBacklog,
		Profit:      s.JobsSummary.TotalProfit,
		ARTotalDue:  s.ARSummary.TotalDue,
		AR90Plus:    s.ARSummary.Buckets.Days90Plus,
		APTotalDue:  s.APSummary.TotalDue,
		ActiveJobs:  s.ActiveJobsSummary.TotalJobs,
		OpenARCount: s.ARSummary.TotalInvoices,
		OpenAPCount: s.APSummary.TotalInvoices,
	}
}

// RefreshEvent is published after every refresh attempt.
type RefreshEvent struct {
	Type       string       `json:"type"`
	RefreshID  string       `json:"refresh_id"`
	Trigger    string       `json:"trigger"`
	Timestamp  time.Time    `json:"timestamp"`
	DurationMs int64        `json:"duration_ms"`
	Error      string       `json:"error,omitempty"`
	Counts     cache.Counts `json:"counts"`
	Totals     Totals       `json:"totals"`
}

// NewRefreshEvent builds the event for a refresh result.
func NewRefreshEvent(res cache.RefreshResult) *RefreshEvent {
	ev := &RefreshEvent{
		Type:       EventRefreshCompleted,
		RefreshID:  res.ID,
		Trigger:    res.Trigger,
		Timestamp:  res.StartedAt.Add(res.Duration),
		DurationMs: res.Duration.Milliseconds(),
		Counts:     res.Counts,
		Totals:     TotalsOf(res.Snapshot),
	}
	if !res.OK {
		ev.Type = EventRefreshFailed
		ev.Error = res.Error
	}
	return ev
}

// ToJSON converts the event to JSON bytes.
func (e *RefreshEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// RefreshEventFromJSON decodes an event.
func RefreshEventFromJSON(data []byte) (*RefreshEvent, error) {
	var ev RefreshEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, err
	}
	return &ev, nil
}
