// Package access decides which sales records a caller may see.
//
// An IdentityContext is built once per request from the caller's claims and
// passed by value. The Resolver turns it into an AccessPredicate, which the
// report builder translates into a row filter. Resolution fails closed: a
// request without an effective owner gets a predicate that admits nothing.
package access

import "strings"

// IdentityContext describes who is calling and on whose behalf
type IdentityContext struct {
	// SubjectCode is the caller's own owner code
	SubjectCode string `json:"subject_code"`
	// ImpersonatedCode, when set, replaces SubjectCode for access and audit
	ImpersonatedCode string `json:"impersonated_code,omitempty"`
	// RegionOverrides optionally narrows visibility to these region codes
	RegionOverrides []string `json:"region_overrides,omitempty"`
}

// NewIdentityContext creates an identity context, copying the region list
func NewIdentityContext(subjectCode, impersonatedCode string, regions []string) IdentityContext {
	var overrides []string
	for _, r := range regions {
		if r = strings.TrimSpace(r); r != "" {
			overrides = append(overrides, r)
		}
	}
	return IdentityContext{
		SubjectCode:      strings.TrimSpace(subjectCode),
		ImpersonatedCode: strings.TrimSpace(impersonatedCode),
		RegionOverrides:  overrides,
	}
}

// EffectiveCode returns the owner code used for visibility decisions
func (i IdentityContext) EffectiveCode() string {
	if code := strings.TrimSpace(i.ImpersonatedCode); code != "" {
		return code
	}
	return strings.TrimSpace(i.SubjectCode)
}

// IsImpersonating reports whether the request acts on behalf of another owner
func (i IdentityContext) IsImpersonating() bool {
	return strings.TrimSpace(i.ImpersonatedCode) != ""
}

// ActingAdmin returns the subject code when impersonating, otherwise ""
func (i IdentityContext) ActingAdmin() string {
	if !i.IsImpersonating() {
		return ""
	}
	return strings.TrimSpace(i.SubjectCode)
}

// HasRegionOverrides reports whether the identity carries a region allow-list
func (i IdentityContext) HasRegionOverrides() bool {
	for _, r := range i.RegionOverrides {
		if strings.TrimSpace(r) != "" {
			return true
		}
	}
	return false
}
