package access

import "strings"

// Exception grants one owner visibility of a fixed set of extra record keys
type Exception struct {
	Owner     string   `json:"owner" mapstructure:"owner"`
	ExtraKeys []string `json:"extra_keys" mapstructure:"extra_keys"`
}

// ExceptionTable is the configured list of cross-owner sharing exceptions
type ExceptionTable struct {
	byOwner map[string][]string
}

// NewExceptionTable indexes exceptions by owner. Repeated owners merge their keys.
func NewExceptionTable(exceptions []Exception) ExceptionTable {
	t := ExceptionTable{byOwner: make(map[string][]string, len(exceptions))}
	for _, e := range exceptions {
		owner := strings.TrimSpace(e.Owner)
		if owner == "" {
			continue
		}
		t.byOwner[owner] = append(t.byOwner[owner], e.ExtraKeys...)
	}
	return t
}

// Lookup returns the extra keys configured for owner
func (t ExceptionTable) Lookup(owner string) ([]string, bool) {
	keys, ok := t.byOwner[owner]
	return keys, ok
}

// Len returns the number of owners with an exception
func (t ExceptionTable) Len() int {
	return len(t.byOwner)
}

// RegionPolicy selects which owners have region overrides applied
type RegionPolicy struct {
	// NarrowAllOwners applies region overrides to every identity
	NarrowAllOwners bool
	// Owners lists owners that are narrowed when NarrowAllOwners is false
	Owners []string
}

// Applies reports whether region overrides narrow the given owner
func (p RegionPolicy) Applies(owner string) bool {
	if p.NarrowAllOwners {
		return true
	}
	for _, o := range p.Owners {
		if strings.TrimSpace(o) == owner {
			return true
		}
	}
	return false
}

// Resolver turns identity contexts into access predicates
type Resolver struct {
	adminCode    string
	exceptions   ExceptionTable
	regionPolicy RegionPolicy
}

// NewResolver creates a resolver. adminCode is the owner code that sees all owners.
func NewResolver(adminCode string, exceptions ExceptionTable, policy RegionPolicy) *Resolver {
	return &Resolver{
		adminCode:    strings.TrimSpace(adminCode),
		exceptions:   exceptions,
		regionPolicy: policy,
	}
}

// AdminCode returns the administrator sentinel code
func (r *Resolver) AdminCode() string {
	return r.adminCode
}

// IsAdmin reports whether code is the administrator sentinel
func (r *Resolver) IsAdmin(code string) bool {
	return r.adminCode != "" && strings.TrimSpace(code) == r.adminCode
}

// Resolve produces the access predicate for identity. First match wins:
// administrator, exception table, plain owner. A missing effective owner
// yields DenyAll.
func (r *Resolver) Resolve(identity IdentityContext) AccessPredicate {
	owner := identity.EffectiveCode()
	if owner == "" {
		return DenyAll()
	}

	var predicate AccessPredicate
	switch extra, ok := r.exceptions.Lookup(owner); {
	case r.IsAdmin(owner):
		predicate = NewPredicate(AllOwners())
	case ok:
		predicate = NewPredicate(OwnerPlusExtra(owner, extra))
	default:
		predicate = NewPredicate(OwnerOnly(owner))
	}

	if identity.HasRegionOverrides() && r.regionPolicy.Applies(owner) {
		predicate = predicate.NarrowRegions(identity.RegionOverrides)
	}
	return predicate
}

// Resolve resolves identity with region overrides applied to every owner
func Resolve(identity IdentityContext, exceptions ExceptionTable, adminCode string) AccessPredicate {
	return NewResolver(adminCode, exceptions, RegionPolicy{NarrowAllOwners: true}).Resolve(identity)
}
