// Package auth defines the principal model and the request middleware that
// attaches an already-verified principal to the request context.
//
// Credential issuance and verification are external collaborators: this
// package consumes a Verifier and never inspects raw credentials itself.
package auth

import "time"

// PlatformRole is a principal-global authority level, independent of any
// specific resource.
type PlatformRole string

const (
	RoleUser  PlatformRole = "user"
	RoleAdmin PlatformRole = "admin"
)

// AccountStatus is the lifecycle state of an account. Only active principals
// may act; every other status fails the active gate regardless of role.
type AccountStatus string

const (
	StatusActive      AccountStatus = "active"
	StatusPending     AccountStatus = "pending"
	StatusSuspended   AccountStatus = "suspended"
	StatusDeactivated AccountStatus = "deactivated"
)

// AccountStatuses enumerates every known account status, in display order.
func AccountStatuses() []AccountStatus {
	return []AccountStatus{StatusActive, StatusPending, StatusSuspended, StatusDeactivated}
}

// Principal is an authenticated actor making a request.
type Principal struct {
	ID           int64         `json:"id"`
	Username     string        `json:"username"`
	PlatformRole PlatformRole  `json:"platform_role"`
	Status       AccountStatus `json:"status"`
	VerifiedAt   time.Time     `json:"-"`
}

// IsAdmin reports whether the principal holds the platform admin role.
// Platform admin authority is global and never resource-scoped.
func (p *Principal) IsAdmin() bool {
	return p != nil && p.PlatformRole == RoleAdmin
}

// IsActive reports whether the principal may act at all.
func (p *Principal) IsActive() bool {
	return p != nil && p.Status == StatusActive
}
