package rbac

import (
	"context"
	"net/http"

	"github.com/atelierhq/atelier/pkg/auth"
	"github.com/atelierhq/atelier/pkg/contextkeys"
	"github.com/atelierhq/atelier/pkg/httputil"
)

// Guard builds per-route middleware from a gate chain. Endpoints declare
// their required gates declaratively instead of re-implementing checks
// inline.
type Guard struct {
	resolver *Resolver
}

// NewGuard creates a guard backed by the given resolver.
func NewGuard(resolver *Resolver) *Guard {
	return &Guard{resolver: resolver}
}

// Protect wraps a handler with a gate chain for operations that are not
// resource-scoped. No membership lookup runs.
func (g *Guard) Protect(gates ...Gate) func(http.Handler) http.Handler {
	return g.protect("", gates...)
}

// ProtectResource wraps a handler with a gate chain for operations scoped to
// the resource identified by the given path variable. The membership role is
// resolved once, before the gates run, and the resulting access is attached
// to the request context.
func (g *Guard) ProtectResource(idVar string, gates ...Gate) func(http.Handler) http.Handler {
	return g.protect(idVar, gates...)
}

func (g *Guard) protect(idVar string, gates ...Gate) func(http.Handler) http.Handler {
	chain := Chain(gates...)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal := auth.PrincipalFrom(r.Context())

			var resourceID *int64
			if idVar != "" {
				id, ok := httputil.ParsePathInt64OrError(w, r, idVar)
				if !ok {
					return
				}
				resourceID = &id
			}

			access, err := g.resolver.Resolve(r.Context(), principal, resourceID)
			if err != nil {
				httputil.WriteError(w, r, err)
				return
			}

			if err := chain(access); err != nil {
				httputil.WriteError(w, r, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(contextkeys.WithAccess(r.Context(), access)))
		})
	}
}

// AccessFrom extracts the resolved effective access from the context. It is
// present on any request that passed through a guard.
func AccessFrom(ctx context.Context) *EffectiveAccess {
	v := ctx.Value(contextkeys.AccessKey)
	if v == nil {
		return nil
	}
	access, ok := v.(*EffectiveAccess)
	if !ok {
		return nil
	}
	return access
}
