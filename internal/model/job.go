// Package model defines the typed entities shared across the metrics core.
package model

import "strings"

// JobStatus is the lifecycle state of a job.
type JobStatus string

const (
	StatusActive   JobStatus = "Active"
	StatusClosed   JobStatus = "Closed"
	StatusInactive JobStatus = "Inactive"
	StatusOverhead JobStatus = "Overhead"
	StatusUnknown  JobStatus = "Unknown"
)

// ParseJobStatus maps an extract status code (A, C, I, O) or full name onto a JobStatus.
func ParseJobStatus(s string) JobStatus {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "A", "ACTIVE":
		return StatusActive
	case "C", "CLOSED":
		return StatusClosed
	case "I", "INACTIVE":
		return StatusInactive
	case "O", "OVERHEAD":
		return StatusOverhead
	default:
		return StatusUnknown
	}
}

// Code returns the single-letter extract code for the status.
func (s JobStatus) Code() string {
	switch s {
	case StatusActive:
		return "A"
	case StatusClosed:
		return "C"
	case StatusInactive:
		return "I"
	case StatusOverhead:
		return "O"
	default:
		return ""
	}
}

// Profit basis labels.
const (
	BasisActual    = "actual"
	BasisProjected = "projected"
)

// Job is one row of the job budget extract after coercion.
type Job struct {
	JobNo            string
	Description      string
	ProjectManager   string
	Customer         string
	Status           JobStatus
	OriginalContract float64
	RevisedContract  float64
	OriginalCost     float64
	RevisedCost      float64
}

// JobMetrics is a job with its derived financials.
type JobMetrics struct {
	JobNo            string    `json:"job_no"`
	Description      string    `json:"job_description"`
	ProjectManager   string    `json:"project_manager"`
	Customer         string    `json:"customer_name"`
	Status           JobStatus `json:"job_status"`
	OriginalContract float64   `json:"original_contract"`
	RevisedContract  float64   `json:"revised_contract"`
	OriginalCost     float64   `json:"original_cost"`
	RevisedCost      float64   `json:"revised_cost"`

	ActualCost       float64 `json:"actual_cost"`
	BilledRevenue    float64 `json:"billed_revenue"`
	HasBudget        bool    `json:"has_budget"`
	PercentComplete  float64 `json:"percent_complete"`
	EarnedRevenue    float64 `json:"earned_revenue"`
	Backlog          float64 `json:"backlog"`
	OverUnderBilling float64 `json:"over_under_billing"`
	Profit           float64 `json:"profit"`
	Margin           float64 `json:"margin"`
	ValidForProfit   bool    `json:"valid_for_profit"`
	ProfitBasis      string  `json:"profit_basis"`
}

// IsActive reports whether the job is in the Active state.
func (j JobMetrics) IsActive() bool {
	return j.Status == StatusActive
}
