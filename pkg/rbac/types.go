// Package rbac implements the two-tier authorization model: platform roles
// (user/admin, principal-global) and resource roles (owner/manager/member,
// membership-scoped). The two axes are deliberately orthogonal: a platform
// admin never implicitly gains a resource role, and resource ownership never
// grants platform authority.
package rbac

import (
	"github.com/atelierhq/atelier/pkg/auth"
)

// ResourceRole is a membership-scoped authority level tied to one resource.
type ResourceRole string

const (
	RoleOwner   ResourceRole = "owner"
	RoleManager ResourceRole = "manager"
	RoleMember  ResourceRole = "member"
)

// roleRank defines the total order owner > manager > member. Comparing ranks
// instead of strings removes the risk of typo'd role literals silently
// failing checks.
var roleRank = map[ResourceRole]int{
	RoleMember:  1,
	RoleManager: 2,
	RoleOwner:   3,
}

// Valid reports whether the role is a known resource role.
func (r ResourceRole) Valid() bool {
	_, ok := roleRank[r]
	return ok
}

// AtLeast reports whether the role satisfies an operation requiring the
// given role: owner satisfies manager, manager never satisfies owner.
func (r ResourceRole) AtLeast(required ResourceRole) bool {
	return roleRank[r] >= roleRank[required]
}

// EffectiveAccess is a principal's resolved authority for one request.
// ResourceRole is nil when the principal is not a participant in the
// resource at all; that is distinct from RoleMember and fails every
// resource-scoped check.
type EffectiveAccess struct {
	Principal    *auth.Principal
	ResourceRole *ResourceRole
}

// IsAuthenticated reports whether a verified principal is attached.
func (a *EffectiveAccess) IsAuthenticated() bool {
	return a != nil && a.Principal != nil
}

// IsActive reports whether the principal's account may act.
func (a *EffectiveAccess) IsActive() bool {
	return a.IsAuthenticated() && a.Principal.IsActive()
}

// HasResourceRole reports whether the resolved resource role satisfies the
// requirement. A nil role fails regardless of platform role.
func (a *EffectiveAccess) HasResourceRole(required ResourceRole) bool {
	if a == nil || a.ResourceRole == nil {
		return false
	}
	return a.ResourceRole.AtLeast(required)
}
