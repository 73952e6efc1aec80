// Package contextkeys provides centralized context key definitions
//
// IMPORTANT: All context keys shared between packages must be defined here.
// This prevents typos, documents dependencies, and makes key usage discoverable.
package contextkeys

import "context"

// Key is the type for context keys to prevent collisions
type Key string

const (
	// PrincipalKey contains *auth.Principal
	// Set by: auth.Middleware (pkg/auth/middleware.go)
	// Required by: RBAC gates, handlers, activity recorder
	// Type: *auth.Principal
	PrincipalKey Key = "principal"

	// AccessKey contains *rbac.EffectiveAccess
	// Set by: rbac guard middleware after role resolution
	// Required by: handlers needing the resolved resource role
	// Type: *rbac.EffectiveAccess
	AccessKey Key = "effective_access"
)

// WithPrincipal adds the verified principal to the context
func WithPrincipal(ctx context.Context, principal interface{}) context.Context {
	return context.WithValue(ctx, PrincipalKey, principal)
}

// WithAccess adds the resolved effective access to the context
func WithAccess(ctx context.Context, access interface{}) context.Context {
	return context.WithValue(ctx, AccessKey, access)
}
