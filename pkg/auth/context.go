package auth

import (
	"context"

	"github.com/atelierhq/atelier/pkg/contextkeys"
)

// WithPrincipal returns a context carrying the verified principal.
func WithPrincipal(ctx context.Context, principal *Principal) context.Context {
	return contextkeys.WithPrincipal(ctx, principal)
}

// PrincipalFrom extracts the verified principal from the context. It returns
// nil when the request is unauthenticated; callers must treat nil as "no
// principal", not as an anonymous user.
func PrincipalFrom(ctx context.Context) *Principal {
	v := ctx.Value(contextkeys.PrincipalKey)
	if v == nil {
		return nil
	}
	principal, ok := v.(*Principal)
	if !ok {
		return nil
	}
	return principal
}
