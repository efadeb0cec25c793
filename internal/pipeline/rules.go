// Package pipeline turns typed extract rows into job, AR and AP metrics and folds
// them into per-PM, per-customer and per-vendor summaries.
package pipeline

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// Rules holds the name-based exclusions applied while computing metrics.
type Rules struct {
	// ExcludedVendors are internal or holding companies dropped from AP. Exact match after trimming.
	ExcludedVendors []string
	// ExcludedPMSubstrings drop matching PMs from the PM rollup only. Case-insensitive substring match.
	ExcludedPMSubstrings []string
}

// DefaultRules returns the exclusions the finance team runs with.
func DefaultRules() Rules {
	return Rules{
		ExcludedVendors: []string{
			"FTG Builders LLC",
			"FTG Builders, LLC",
			"FTG Builders",
			"FTG BUILDERS LLC",
		},
		ExcludedPMSubstrings: []string{"josh angelo"},
	}
}

// VendorExcluded reports whether an AP counterparty is on the exclusion list.
func (r Rules) VendorExcluded(vendor string) bool {
	vendor = strings.TrimSpace(vendor)
	for _, v := range r.ExcludedVendors {
		if vendor == v {
			return true
		}
	}
	return false
}

// PMExcluded reports whether a project manager is left out of the PM rollup.
func (r Rules) PMExcluded(pm string) bool {
	lower := strings.ToLower(pm)
	for _, sub := range r.ExcludedPMSubstrings {
		sub = strings.ToLower(strings.TrimSpace(sub))
		if sub != "" && strings.Contains(lower, sub) {
			return true
		}
	}
	return false
}

// Round rounds half away from zero to the given number of decimal places.
// Inf and NaN, which only arise from overflow between extreme inputs, round to 0.
func Round(v float64, places int32) float64 {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return 0
	}
	f, _ := decimal.NewFromFloat(v).Round(places).Float64()
	return f
}

func round2(v float64) float64 {
	return Round(v, 2)
}

func containsIgnoreCase(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
