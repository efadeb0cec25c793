package query

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/theirongolddev/jobmetrics/internal/cache"
	"github.com/theirongolddev/jobmetrics/internal/pipeline"
)

// DefaultRankLimit bounds top and bottom when the plan sets no limit.
// List and group_by return everything unless limited.
const DefaultRankLimit = 10

const topShareGroups = 5

// SnapshotSource supplies the snapshot a plan runs against.
type SnapshotSource interface {
	Snapshot() *cache.Snapshot
}

// Observer is called after every execution, successful or not.
type Observer func(p Plan, res *Result, err error, elapsed time.Duration)

// Executor runs plans against the current snapshot of a source.
type Executor struct {
	src     SnapshotSource
	observe Observer
}

// NewExecutor returns an executor bound to src. observe may be nil.
func NewExecutor(src SnapshotSource, observe Observer) *Executor {
	return &Executor{src: src, observe: observe}
}

// Execute runs p against the source's current snapshot.
func (e *Executor) Execute(ctx context.Context, p Plan) (*Result, error) {
	start := time.Now()
	res, err := e.execute(ctx, p)
	if e.observe != nil {
		e.observe(p, res, err, time.Since(start))
	}
	return res, err
}

func (e *Executor) execute(ctx context.Context, p Plan) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	snap := e.src.Snapshot()
	if snap == nil {
		return nil, cache.ErrNotReady
	}
	return Run(snap, p)
}

// Run executes p against snap. It never modifies snap.
func Run(snap *cache.Snapshot, p Plan) (*Result, error) {
	if p.Version != PlanVersion {
		return nil, planErr("version", "unsupported plan version %d (want %d)", p.Version, PlanVersion)
	}
	if p.Limit < 0 {
		return nil, planErr("limit", "limit must not be negative")
	}
	switch p.Verb {
	case VerbCount, VerbSum, VerbAverage, VerbTop, VerbBottom, VerbGroupBy, VerbList:
	default:
		return nil, planErr("verb", "unknown verb %q", p.Verb)
	}

	switch Target(strings.ToLower(string(p.Target))) {
	case TargetJobs:
		return run(jobsTable, snap, p)
	case TargetAR:
		return run(arTable, snap, p)
	case TargetAP:
		return run(apTable, snap, p)
	case TargetPMs:
		return run(pmsTable, snap, p)
	case TargetCustomers:
		return run(customersTable, snap, p)
	case TargetVendors:
		return run(vendorsTable, snap, p)
	}
	return nil, planErr("target", "unknown target %q", p.Target)
}

func run[T any](t *table[T], snap *cache.Snapshot, p Plan) (*Result, error) {
	keep, err := compileFilters(t, p.Filters)
	if err != nil {
		return nil, err
	}
	if p.Sort != nil && p.Verb != VerbList && p.Verb != VerbGroupBy {
		return nil, planErr("sort", "sort applies only to list and group_by")
	}
	if p.GroupBy != "" && p.Verb != VerbGroupBy {
		return nil, planErr("group_by", "group_by is only valid with verb group_by")
	}

	all := t.rows(snap)
	matched := make([]T, 0, len(all))
	for _, row := range all {
		if keep(row) {
			matched = append(matched, row)
		}
	}

	res := &Result{
		Version:    PlanVersion,
		Target:     t.target,
		Verb:       p.Verb,
		SnapshotID: snap.ID,
		Available:  len(all),
		Matched:    len(matched),
		Totals:     totals(t, matched),
	}
	if t.summarize != nil {
		res.Summary = t.summarize(matched)
	}

	switch p.Verb {
	case VerbCount:
		res.Items = []T{}
		res.Note = shownNote(len(matched), len(all))
		return res, nil
	case VerbSum, VerbAverage:
		return aggregate(t, p, matched, res)
	case VerbTop, VerbBottom:
		return rank(t, p, matched, res)
	case VerbList:
		return list(t, p, matched, res)
	default:
		return groupBy(t, snap, p, matched, res)
	}
}

// numericField resolves a metric name, falling back to the target's primary field.
func numericField[T any](t *table[T], name string) (string, fieldDef[T], error) {
	if strings.TrimSpace(name) == "" {
		name = t.primary
	}
	canon, def, ok := t.resolve(name)
	if !ok {
		return "", def, planErr("field", "unknown field %q for target %s", name, t.target)
	}
	if def.kind != KindNumber {
		return "", def, planErr("field", "field %q is not numeric", canon)
	}
	return canon, def, nil
}

func totals[T any](t *table[T], rows []T) map[string]float64 {
	out := make(map[string]float64)
	for name, def := range t.fields {
		if !def.additive {
			continue
		}
		var sum float64
		for _, row := range rows {
			if def.inScope(row) {
				sum += def.num(row)
			}
		}
		out[name] = pipeline.Round(sum, 2)
	}
	return out
}

func computeStats[T any](name string, def fieldDef[T], rows []T) *Stats {
	s := &Stats{Field: name, Weighted: def.weight != nil}
	var sum, weightSum, weighted float64
	for _, row := range rows {
		if !def.inScope(row) {
			continue
		}
		v := def.num(row)
		if s.Count == 0 || v < s.Min {
			s.Min = v
		}
		if s.Count == 0 || v > s.Max {
			s.Max = v
		}
		s.Count++
		sum += v
		if def.weight != nil {
			w := def.weight(row)
			weightSum += w
			weighted += w * v
		}
	}

	switch {
	case def.weight != nil:
		if weightSum > 0 {
			s.Average = pipeline.Round(weighted/weightSum, 2)
		}
	case s.Count > 0:
		s.Average = pipeline.Round(sum/float64(s.Count), 2)
	}
	if def.additive {
		s.Sum = pipeline.Round(sum, 2)
	}
	s.Min = pipeline.Round(s.Min, 2)
	s.Max = pipeline.Round(s.Max, 2)
	return s
}

func aggregate[T any](t *table[T], p Plan, rows []T, res *Result) (*Result, error) {
	name, def, err := numericField(t, p.Field)
	if err != nil {
		return nil, err
	}
	if p.Verb == VerbSum && !def.additive {
		return nil, planErr("field", "field %q cannot be summed; use average", name)
	}
	res.Field = name
	res.Stats = computeStats(name, def, rows)
	res.Items = []T{}
	res.Note = shownNote(res.Stats.Count, res.Matched)
	return res, nil
}

func rank[T any](t *table[T], p Plan, rows []T, res *Result) (*Result, error) {
	name, def, err := numericField(t, p.Field)
	if err != nil {
		return nil, err
	}
	res.Field = name
	res.Stats = computeStats(name, def, rows)

	ranked := make([]T, 0, len(rows))
	for _, row := range rows {
		if def.inScope(row) {
			ranked = append(ranked, row)
		}
	}
	desc := p.Verb == VerbTop
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := def.num(ranked[i]), def.num(ranked[j])
		if desc {
			return a > b
		}
		return a < b
	})

	limit := p.Limit
	if limit == 0 {
		limit = DefaultRankLimit
	}
	items := truncate(ranked, limit)
	res.Items = items
	res.Shown = len(items)
	res.Note = shownNote(len(items), len(ranked))
	return res, nil
}

func list[T any](t *table[T], p Plan, rows []T, res *Result) (*Result, error) {
	out := rows
	if p.Sort != nil {
		name, def, ok := t.resolve(p.Sort.Field)
		if !ok {
			return nil, planErr("sort.field", "unknown field %q for target %s", p.Sort.Field, t.target)
		}
		desc, err := sortDescending(p.Sort.Direction, false)
		if err != nil {
			return nil, err
		}
		res.Field = name
		out = make([]T, len(rows))
		copy(out, rows)
		less := rowLess(def)
		sort.SliceStable(out, func(i, j int) bool {
			if desc {
				return less(out[j], out[i])
			}
			return less(out[i], out[j])
		})
	}

	items := truncate(out, p.Limit)
	res.Items = items
	res.Shown = len(items)
	res.Note = shownNote(len(items), len(out))
	return res, nil
}

// rowLess orders rows by a field. Out-of-scope numbers sort before in-scope ones.
func rowLess[T any](def fieldDef[T]) func(a, b T) bool {
	switch def.kind {
	case KindNumber:
		return func(a, b T) bool {
			ia, ib := def.inScope(a), def.inScope(b)
			if ia != ib {
				return ib
			}
			return def.num(a) < def.num(b)
		}
	case KindBool:
		return func(a, b T) bool { return !def.flag(a) && def.flag(b) }
	case KindDate:
		return func(a, b T) bool {
			da, _ := parseDate(def.text(a))
			db, _ := parseDate(def.text(b))
			return da.Before(db)
		}
	default:
		return func(a, b T) bool {
			return strings.ToLower(def.text(a)) < strings.ToLower(def.text(b))
		}
	}
}

func sortDescending(dir string, def bool) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(dir)) {
	case "":
		return def, nil
	case "asc":
		return false, nil
	case "desc":
		return true, nil
	}
	return false, planErr("sort.direction", "direction must be asc or desc, got %q", dir)
}

func groupBy[T any](t *table[T], snap *cache.Snapshot, p Plan, rows []T, res *Result) (*Result, error) {
	if strings.TrimSpace(p.GroupBy) == "" {
		return nil, planErr("group_by", "group_by needs a dimension")
	}
	dim, dimDef, ok := t.resolve(p.GroupBy)
	if !ok {
		return nil, planErr("group_by", "unknown field %q for target %s", p.GroupBy, t.target)
	}
	if !dimDef.groupable() {
		return nil, planErr("group_by", "cannot group by numeric field %q", dim)
	}
	name, def, err := numericField(t, p.Field)
	if err != nil {
		return nil, err
	}
	if !def.additive {
		return nil, planErr("field", "field %q cannot be summed per group", name)
	}
	res.Field = name
	res.GroupBy = dim

	index := make(map[string]*Group)
	var groups []*Group
	if grouper, ok := t.groupers[dim]; ok {
		// Only keys the rollup keeps form groups; its summary rides along.
		for _, g := range grouper(snap, rows) {
			grp := &Group{Key: g.key, Summary: g.summary}
			index[g.key] = grp
			groups = append(groups, grp)
		}
		for _, row := range rows {
			grp, ok := index[strings.TrimSpace(dimDef.text(row))]
			if !ok {
				continue
			}
			grp.Count++
			if def.inScope(row) {
				grp.Total += def.num(row)
			}
		}
	} else {
		for _, row := range rows {
			key := dimDef.key(row)
			grp, ok := index[key]
			if !ok {
				grp = &Group{Key: key}
				index[key] = grp
				groups = append(groups, grp)
			}
			grp.Count++
			if def.inScope(row) {
				grp.Total += def.num(row)
			}
		}
	}

	var grand float64
	var grouped int
	for _, g := range groups {
		g.Total = pipeline.Round(g.Total, 2)
		grand += g.Total
		grouped += g.Count
	}
	grand = pipeline.Round(grand, 2)
	for _, g := range groups {
		if grand != 0 {
			g.Share = pipeline.Round(g.Total/grand*100, 2)
		}
	}

	res.Concentration = concentration(groups, grand)
	res.Stats = &Stats{Field: name, Count: grouped, Sum: grand}
	if len(groups) > 0 {
		res.Stats.Average = pipeline.Round(grand/float64(len(groups)), 2)
	}

	if err := sortGroups(groups, p.Sort, dim, name); err != nil {
		return nil, err
	}

	limited := truncate(groups, p.Limit)
	items := make([]Group, 0, len(limited))
	for _, g := range limited {
		items = append(items, *g)
	}
	res.Items = items
	res.Shown = len(items)
	res.Note = shownNote(len(items), len(groups))
	return res, nil
}

func concentration(groups []*Group, grand float64) *Concentration {
	c := &Concentration{GrandTotal: grand, GroupCount: len(groups)}
	if grand == 0 {
		return c
	}
	totals := make([]float64, 0, len(groups))
	for _, g := range groups {
		totals = append(totals, g.Total)
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(totals)))
	var top float64
	for _, v := range truncate(totals, topShareGroups) {
		top += v
	}
	c.Top5Share = pipeline.Round(top/grand*100, 2)
	return c
}

// sortGroups orders groups by total (default, descending), count or key.
// Ties always fall back to the key ascending.
func sortGroups(groups []*Group, s *Sort, dim, metric string) error {
	by := "total"
	var dir string
	if s != nil {
		dir = s.Direction
		switch f := strings.ToLower(strings.TrimSpace(s.Field)); f {
		case "total", metric:
			by = "total"
		case "count":
			by = "count"
		case "key", dim:
			by = "key"
		default:
			return planErr("sort.field", "group_by sorts by total, count or key, got %q", s.Field)
		}
	}
	desc, err := sortDescending(dir, by != "key")
	if err != nil {
		return err
	}

	sort.SliceStable(groups, func(i, j int) bool {
		a, b := groups[i], groups[j]
		switch by {
		case "total":
			if a.Total != b.Total {
				return (a.Total > b.Total) == desc
			}
		case "count":
			if a.Count != b.Count {
				return (a.Count > b.Count) == desc
			}
		default:
			if a.Key != b.Key {
				return (a.Key > b.Key) == desc
			}
		}
		return a.Key < b.Key
	})
	return nil
}

func truncate[S ~[]E, E any](s S, limit int) S {
	if limit > 0 && len(s) > limit {
		return s[:limit]
	}
	return s
}

// shownNote is the note every verb carries. count reports matched of available;
// sum and average report contributing rows of matched.
func shownNote(shown, total int) string {
	return fmt.Sprintf("%d of %d shown", shown, total)
}
