// Package query executes structured query plans against a metrics snapshot.
//
// A plan names a target collection, filters, one aggregation verb, an optional
// sort and a display limit. Aggregate statistics in the result always cover the
// whole filtered population; the limit only bounds the returned items.
package query

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

// PlanVersion is the plan schema version this package accepts.
const PlanVersion = 1

// Target names the collection a plan runs against.
type Target string

const (
	TargetJobs      Target = "jobs"
	TargetAR        Target = "ar"
	TargetAP        Target = "ap"
	TargetPMs       Target = "pms"
	TargetCustomers Target = "customers"
	TargetVendors   Target = "vendors"
)

// Targets lists every target in display order.
var Targets = []Target{TargetJobs, TargetAR, TargetAP, TargetPMs, TargetCustomers, TargetVendors}

// Verb is the aggregation a plan performs.
type Verb string

const (
	VerbCount   Verb = "count"
	VerbSum     Verb = "sum"
	VerbAverage Verb = "average"
	VerbTop     Verb = "top"
	VerbBottom  Verb = "bottom"
	VerbGroupBy Verb = "group_by"
	VerbList    Verb = "list"
)

// Op is a filter comparison.
type Op string

const (
	OpEq       Op = "eq"
	OpNe       Op = "ne"
	OpContains Op = "contains"
	OpGt       Op = "gt"
	OpGte      Op = "gte"
	OpLt       Op = "lt"
	OpLte      Op = "lte"
	OpBetween  Op = "between"
	OpIn       Op = "in"
)

// Filter is one predicate on a field. Between uses Value and To inclusively; In uses Values.
type Filter struct {
	Field  string `json:"field" jsonschema:"required" jsonschema_description:"Field name on the target collection"`
	Op     Op     `json:"op" jsonschema:"required,enum=eq,enum=ne,enum=contains,enum=gt,enum=gte,enum=lt,enum=lte,enum=between,enum=in"`
	Value  any    `json:"value,omitempty" jsonschema_description:"Comparison value; lower bound for between"`
	To     any    `json:"to,omitempty" jsonschema_description:"Upper bound for between"`
	Values []any  `json:"values,omitempty" jsonschema_description:"Candidate values for in"`
}

// Sort orders result items.
type Sort struct {
	Field     string `json:"field" jsonschema:"required"`
	Direction string `json:"direction,omitempty" jsonschema:"enum=asc,enum=desc"`
}

// Plan is a versioned, closed query description.
type Plan struct {
	Version int      `json:"version" jsonschema:"required,enum=1"`
	Target  Target   `json:"target" jsonschema:"required,enum=jobs,enum=ar,enum=ap,enum=pms,enum=customers,enum=vendors"`
	Filters []Filter `json:"filters,omitempty"`
	Verb    Verb     `json:"verb" jsonschema:"required,enum=count,enum=sum,enum=average,enum=top,enum=bottom,enum=group_by,enum=list"`
	Field   string   `json:"field,omitempty" jsonschema_description:"Metric for sum, average, top, bottom and group_by"`
	GroupBy string   `json:"group_by,omitempty" jsonschema_description:"Dimension for group_by"`
	Sort    *Sort    `json:"sort,omitempty"`
	Limit   int      `json:"limit,omitempty" jsonschema:"minimum=0" jsonschema_description:"Maximum items returned; totals ignore it"`
}

// DecodePlan parses a JSON plan, rejecting unknown keys.
func DecodePlan(data []byte) (Plan, error) {
	var p Plan
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&p); err != nil {
		return Plan{}, &PlanError{Reason: fmt.Sprintf("malformed plan JSON: %v", err)}
	}
	if p.Version == 0 {
		p.Version = PlanVersion
	}
	return p, nil
}

// Schema returns the JSON schema of Plan.
func Schema() *jsonschema.Schema {
	r := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	s := r.Reflect(&Plan{})
	s.Title = "jobmetrics query plan"
	return s
}
