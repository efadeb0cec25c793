package query

// Result is the envelope every plan produces.
//
// Matched counts rows that passed the filters. Totals, Summary, Stats and
// Concentration cover all of them; Items holds at most Limit entries.
type Result struct {
	Version       int                `json:"version"`
	Target        Target             `json:"target"`
	Verb          Verb               `json:"verb"`
	Field         string             `json:"field,omitempty"`
	GroupBy       string             `json:"group_by,omitempty"`
	SnapshotID    string             `json:"snapshot_id"`
	Available     int                `json:"available"`
	Matched       int                `json:"matched"`
	Shown         int                `json:"shown"`
	Note          string             `json:"note"`
	Items         any                `json:"items"`
	Totals        map[string]float64 `json:"totals"`
	Summary       any                `json:"summary,omitempty"`
	Stats         *Stats             `json:"stats,omitempty"`
	Concentration *Concentration     `json:"concentration,omitempty"`
}

// Stats describes one numeric field across the rows in its scope.
type Stats struct {
	Field    string  `json:"field"`
	Count    int     `json:"count"`
	Sum      float64 `json:"sum"`
	Average  float64 `json:"average"`
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
	Weighted bool    `json:"weighted,omitempty"`
}

// Group is one bucket of a group_by result.
type Group struct {
	Key     string  `json:"key"`
	Count   int     `json:"count"`
	Total   float64 `json:"total"`
	Share   float64 `json:"share"`
	Summary any     `json:"summary,omitempty"`
}

// Concentration shows how much of the grand total the largest groups hold.
type Concentration struct {
	GrandTotal float64 `json:"grand_total"`
	GroupCount int     `json:"group_count"`
	Top5Share  float64 `json:"top5_share"`
}
