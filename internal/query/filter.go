package query

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// compileFilters turns plan filters into one row predicate. All filters must hold.
func compileFilters[T any](t *table[T], filters []Filter) (func(T) bool, error) {
	preds := make([]func(T) bool, 0, len(filters))
	for i, f := range filters {
		p, err := compileFilter(t, f)
		if err != nil {
			var pe *PlanError
			if errors.As(err, &pe) {
				pe.Field = fmt.Sprintf("filters[%d].%s", i, strings.TrimPrefix(pe.Field, "filters."))
			}
			return nil, err
		}
		preds = append(preds, p)
	}
	return func(row T) bool {
		for _, p := range preds {
			if !p(row) {
				return false
			}
		}
		return true
	}, nil
}

func compileFilter[T any](t *table[T], f Filter) (func(T) bool, error) {
	name, def, ok := t.resolve(f.Field)
	if !ok {
		return nil, planErr("filters.field", "unknown field %q for target %s", f.Field, t.target)
	}

	switch def.kind {
	case KindText, KindEnum:
		return compileText(name, def, f)
	case KindBool:
		return compileBool(name, def, f)
	case KindNumber:
		return compileNumber(name, def, f)
	case KindDate:
		return compileDate(name, def, f)
	}
	return nil, planErr("filters.field", "field %q cannot be filtered", name)
}

func compileText[T any](name string, def fieldDef[T], f Filter) (func(T) bool, error) {
	norm := func(s string) string {
		if def.normalize != nil {
			return strings.ToLower(def.normalize(s))
		}
		return strings.ToLower(strings.TrimSpace(s))
	}
	get := func(row T) string { return norm(def.text(row)) }

	switch f.Op {
	case OpEq, OpNe, OpContains:
		s, ok := toText(f.Value)
		if !ok {
			return nil, planErr("filters.value", "%s %s needs a text value", name, f.Op)
		}
		want := norm(s)
		switch f.Op {
		case OpEq:
			return func(row T) bool { return get(row) == want }, nil
		case OpNe:
			return func(row T) bool { return get(row) != want }, nil
		default:
			raw := strings.ToLower(strings.TrimSpace(s))
			return func(row T) bool {
				return strings.Contains(strings.ToLower(def.text(row)), raw)
			}, nil
		}
	case OpIn:
		set, err := textSet(name, f.Values, norm)
		if err != nil {
			return nil, err
		}
		return func(row T) bool {
			_, ok := set[get(row)]
			return ok
		}, nil
	}
	return nil, planErr("filters.op", "op %q is not valid for text field %s", f.Op, name)
}

func textSet(name string, values []any, norm func(string) string) (map[string]struct{}, error) {
	if len(values) == 0 {
		return nil, planErr("filters.values", "%s in needs at least one value", name)
	}
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		s, ok := toText(v)
		if !ok {
			return nil, planErr("filters.values", "%s in needs text values", name)
		}
		set[norm(s)] = struct{}{}
	}
	return set, nil
}

func compileBool[T any](name string, def fieldDef[T], f Filter) (func(T) bool, error) {
	want, ok := toBool(f.Value)
	if !ok {
		return nil, planErr("filters.value", "%s needs a true or false value", name)
	}
	switch f.Op {
	case OpEq:
		return func(row T) bool { return def.flag(row) == want }, nil
	case OpNe:
		return func(row T) bool { return def.flag(row) != want }, nil
	}
	return nil, planErr("filters.op", "op %q is not valid for bool field %s", f.Op, name)
}

// compileNumber builds a numeric comparison. Rows outside the field's scope never match.
func compileNumber[T any](name string, def fieldDef[T], f Filter) (func(T) bool, error) {
	var cmp func(float64) bool

	switch f.Op {
	case OpIn:
		if len(f.Values) == 0 {
			return nil, planErr("filters.values", "%s in needs at least one value", name)
		}
		set := make(map[float64]struct{}, len(f.Values))
		for _, v := range f.Values {
			n, ok := toNumber(v)
			if !ok {
				return nil, planErr("filters.values", "%s in needs numeric values", name)
			}
			set[n] = struct{}{}
		}
		cmp = func(x float64) bool {
			_, ok := set[x]
			return ok
		}
	case OpBetween:
		lo, ok1 := toNumber(f.Value)
		hi, ok2 := toNumber(f.To)
		if !ok1 || !ok2 {
			return nil, planErr("filters.value", "%s between needs numeric value and to", name)
		}
		if lo > hi {
			return nil, planErr("filters.to", "%s between has value %v above to %v", name, lo, hi)
		}
		cmp = func(x float64) bool { return x >= lo && x <= hi }
	case OpEq, OpNe, OpGt, OpGte, OpLt, OpLte:
		v, ok := toNumber(f.Value)
		if !ok {
			return nil, planErr("filters.value", "%s %s needs a numeric value", name, f.Op)
		}
		cmp = numberCmp(f.Op, v)
	default:
		return nil, planErr("filters.op", "op %q is not valid for number field %s", f.Op, name)
	}

	return func(row T) bool {
		return def.inScope(row) && cmp(def.num(row))
	}, nil
}

func numberCmp(op Op, v float64) func(float64) bool {
	switch op {
	case OpEq:
		return func(x float64) bool { return x == v }
	case OpNe:
		return func(x float64) bool { return x != v }
	case OpGt:
		return func(x float64) bool { return x > v }
	case OpGte:
		return func(x float64) bool { return x >= v }
	case OpLt:
		return func(x float64) bool { return x < v }
	default:
		return func(x float64) bool { return x <= v }
	}
}

// compileDate compares calendar dates. Rows whose date does not parse never match.
func compileDate[T any](name string, def fieldDef[T], f Filter) (func(T) bool, error) {
	parseArg := func(field string, v any) (time.Time, error) {
		s, ok := toText(v)
		if !ok {
			return time.Time{}, planErr(field, "%s needs a date value", name)
		}
		d, ok := parseDate(s)
		if !ok {
			return time.Time{}, planErr(field, "%s: cannot parse date %q", name, s)
		}
		return d, nil
	}

	var cmp func(time.Time) bool
	switch f.Op {
	case OpBetween:
		lo, err := parseArg("filters.value", f.Value)
		if err != nil {
			return nil, err
		}
		hi, err := parseArg("filters.to", f.To)
		if err != nil {
			return nil, err
		}
		cmp = func(d time.Time) bool { return !d.Before(lo) && !d.After(hi) }
	case OpEq, OpNe, OpGt, OpGte, OpLt, OpLte:
		v, err := parseArg("filters.value", f.Value)
		if err != nil {
			return nil, err
		}
		unix := float64(v.Unix())
		inner := numberCmp(f.Op, unix)
		cmp = func(d time.Time) bool { return inner(float64(d.Unix())) }
	default:
		return nil, planErr("filters.op", "op %q is not valid for date field %s", f.Op, name)
	}

	return func(row T) bool {
		d, ok := parseDate(def.text(row))
		return ok && cmp(d)
	}, nil
}

func toText(v any) (string, bool) {
	switch x := v.(type) {
	case string:
		return x, true
	case float64:
		return formatNumber(x), true
	case json.Number:
		return x.String(), true
	case bool:
		return strconv.FormatBool(x), true
	}
	return "", false
}

func toNumber(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int:
		return float64(x), true
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		return f, err == nil
	}
	return 0, false
}

func toBool(v any) (bool, bool) {
	switch x := v.(type) {
	case bool:
		return x, true
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(x))
		return b, err == nil
	}
	return false, false
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
