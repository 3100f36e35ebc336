package report

import (
	"slices"

	"github.com/salesops/backend/internal/domain/access"
	"github.com/salesops/backend/internal/domain/fiscal"
)

// Build assembles a query plan. Every metric must share the same grouping
// keys, which become the plan's grouping; the window's first period is the
// sole lower bound on transaction dates.
func Build(predicate access.AccessPredicate, window fiscal.Window, sources []SourceID, metrics []MetricDef) (QueryPlan, error) {
	if window.IsEmpty() {
		return QueryPlan{}, invalidPlan("window has no periods")
	}
	srcs, err := normalizeSources(sources)
	if err != nil {
		return QueryPlan{}, err
	}
	if len(metrics) == 0 {
		return QueryPlan{}, invalidPlan("at least one metric is required")
	}

	groupBy, err := sharedGrouping(metrics)
	if err != nil {
		return QueryPlan{}, err
	}

	seen := make(map[string]bool, len(metrics))
	defs := make([]MetricDef, len(metrics))
	for i, m := range metrics {
		if m.Name == "" {
			return QueryPlan{}, invalidPlan("metric %d has no name", i)
		}
		if seen[m.Name] {
			return QueryPlan{}, invalidPlan("duplicate metric %q", m.Name)
		}
		seen[m.Name] = true
		if !metricColumns[m.Column] {
			return QueryPlan{}, invalidPlan("metric %q sums unknown column %q", m.Name, m.Column)
		}
		defs[i] = MetricDef{Name: m.Name, Column: m.Column, GroupBy: slices.Clone(groupBy)}
	}

	return QueryPlan{
		Sources:   srcs,
		Predicate: predicate,
		Filter:    TranslatePredicate(predicate),
		Window:    window,
		Metrics:   defs,
		GroupBy:   groupBy,
	}, nil
}

// TranslatePredicate turns an access predicate into a row filter:
// All has no owner condition, OwnerOnly is an equality, OwnerPlusExtra is
// (owner = x OR record_key IN extra). Region narrowing is ANDed on top.
func TranslatePredicate(p access.AccessPredicate) RowFilter {
	if p.IsDenied() {
		return RowFilter{MatchNothing: true}
	}

	var f RowFilter
	owner := p.Owner()
	switch owner.Kind() {
	case access.OwnerFilterAll:
	case access.OwnerFilterOwnerOnly:
		f.OwnerEquals = owner.Owner()
	case access.OwnerFilterOwnerPlusExtra:
		f.OwnerEquals = owner.Owner()
		f.OrRecordKeyIn = owner.ExtraKeys()
	default:
		return RowFilter{MatchNothing: true}
	}

	if p.HasRegionFilter() {
		f.RegionRestricted = true
		f.RegionIn = p.Regions()
		if len(f.RegionIn) == 0 {
			return RowFilter{MatchNothing: true}
		}
	}
	return f
}

func normalizeSources(sources []SourceID) ([]SourceID, error) {
	if len(sources) == 0 {
		return nil, invalidPlan("at least one source is required")
	}
	out := make([]SourceID, 0, len(sources))
	seen := make(map[SourceID]bool, len(sources))
	for _, s := range sources {
		if s == "" {
			return nil, invalidPlan("empty source id")
		}
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out, nil
}

func sharedGrouping(metrics []MetricDef) ([]GroupKey, error) {
	first := metrics[0].GroupBy
	for _, k := range first {
		if !k.IsNatural() {
			return nil, invalidPlan("group key %q is not a natural key attribute", k)
		}
	}
	if hasDuplicates(first) {
		return nil, invalidPlan("duplicate group key")
	}
	for _, m := range metrics[1:] {
		if !sameKeys(first, m.GroupBy) {
			return nil, invalidPlan("metric %q groups differently from %q", m.Name, metrics[0].Name)
		}
	}
	return slices.Clone(first), nil
}

func hasDuplicates(keys []GroupKey) bool {
	seen := make(map[GroupKey]bool, len(keys))
	for _, k := range keys {
		if seen[k] {
			return true
		}
		seen[k] = true
	}
	return false
}

func sameKeys(a, b []GroupKey) bool {
	if len(a) != len(b) {
		return false
	}
	set := make(map[GroupKey]bool, len(a))
	for _, k := range a {
		set[k] = true
	}
	for _, k := range b {
		if !set[k] {
			return false
		}
	}
	return true
}
