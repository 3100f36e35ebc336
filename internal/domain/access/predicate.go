package access

import (
	"slices"
	"strings"
)

// OwnerFilterKind tags the active OwnerFilter variant
type OwnerFilterKind string

const (
	OwnerFilterAll            OwnerFilterKind = "ALL"
	OwnerFilterOwnerPlusExtra OwnerFilterKind = "OWNER_PLUS_EXTRA"
	OwnerFilterOwnerOnly      OwnerFilterKind = "OWNER_ONLY"
)

// OwnerFilter restricts records by owner code. Exactly one variant is active.
type OwnerFilter struct {
	kind      OwnerFilterKind
	owner     string
	extraKeys map[string]struct{}
}

// AllOwners admits every owner
func AllOwners() OwnerFilter {
	return OwnerFilter{kind: OwnerFilterAll}
}

// OwnerOnly admits records owned by owner
func OwnerOnly(owner string) OwnerFilter {
	return OwnerFilter{kind: OwnerFilterOwnerOnly, owner: owner}
}

// OwnerPlusExtra admits records owned by owner plus records whose natural key
// is in extraKeys, whoever owns them
func OwnerPlusExtra(owner string, extraKeys []string) OwnerFilter {
	keys := make(map[string]struct{}, len(extraKeys))
	for _, k := range extraKeys {
		if k = strings.TrimSpace(k); k != "" {
			keys[k] = struct{}{}
		}
	}
	return OwnerFilter{kind: OwnerFilterOwnerPlusExtra, owner: owner, extraKeys: keys}
}

// Kind returns the active variant
func (f OwnerFilter) Kind() OwnerFilterKind {
	return f.kind
}

// Owner returns the owner code; empty for AllOwners
func (f OwnerFilter) Owner() string {
	return f.owner
}

// ExtraKeys returns the extra record keys in sorted order
func (f OwnerFilter) ExtraKeys() []string {
	keys := make([]string, 0, len(f.extraKeys))
	for k := range f.extraKeys {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Admits reports whether a record with the given owner and key passes the filter
func (f OwnerFilter) Admits(owner, recordKey string) bool {
	switch f.kind {
	case OwnerFilterAll:
		return true
	case OwnerFilterOwnerOnly:
		return owner == f.owner
	case OwnerFilterOwnerPlusExtra:
		if owner == f.owner {
			return true
		}
		_, ok := f.extraKeys[recordKey]
		return ok
	default:
		return false
	}
}

// Record is the minimal view of a sales record needed to evaluate a predicate
type Record struct {
	Owner  string
	Key    string
	Region string
}

// AccessPredicate describes which owner codes and regions are visible
type AccessPredicate struct {
	owner   OwnerFilter
	regions map[string]struct{} // nil means no region narrowing
	denied  bool
}

// NewPredicate creates a predicate without region narrowing
func NewPredicate(owner OwnerFilter) AccessPredicate {
	return AccessPredicate{owner: owner}
}

// DenyAll returns the fail-closed predicate that admits no record
func DenyAll() AccessPredicate {
	return AccessPredicate{denied: true}
}

// IsDenied reports whether this is the fail-closed predicate
func (p AccessPredicate) IsDenied() bool {
	return p.denied
}

// Owner returns the owner filter
func (p AccessPredicate) Owner() OwnerFilter {
	return p.owner
}

// HasRegionFilter reports whether the predicate narrows by region
func (p AccessPredicate) HasRegionFilter() bool {
	return p.regions != nil
}

// Regions returns the visible region codes in sorted order, or nil when unrestricted
func (p AccessPredicate) Regions() []string {
	if p.regions == nil {
		return nil
	}
	out := make([]string, 0, len(p.regions))
	for r := range p.regions {
		out = append(out, r)
	}
	slices.Sort(out)
	return out
}

// NarrowRegions intersects the predicate's region filter with regions.
// Narrowing never widens: an existing filter can only lose members.
func (p AccessPredicate) NarrowRegions(regions []string) AccessPredicate {
	if p.denied {
		return p
	}
	incoming := make(map[string]struct{}, len(regions))
	for _, r := range regions {
		if r = strings.TrimSpace(r); r != "" {
			incoming[r] = struct{}{}
		}
	}

	narrowed := make(map[string]struct{}, len(incoming))
	for r := range incoming {
		if p.regions == nil {
			narrowed[r] = struct{}{}
			continue
		}
		if _, ok := p.regions[r]; ok {
			narrowed[r] = struct{}{}
		}
	}
	p.regions = narrowed
	return p
}

// Allows evaluates the predicate against a single record
func (p AccessPredicate) Allows(r Record) bool {
	if p.denied {
		return false
	}
	if p.regions != nil {
		if _, ok := p.regions[r.Region]; !ok {
			return false
		}
	}
	return p.owner.Admits(r.Owner, r.Key)
}
