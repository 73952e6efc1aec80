package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/atelierhq/atelier/pkg/apperr"
	"github.com/atelierhq/atelier/pkg/httputil"
)

// Verifier is the external verified-principal accessor. Implementations
// validate the credential (token store, session store, IdP) and return the
// principal it identifies, including platform role and account status.
type Verifier interface {
	Verify(ctx context.Context, credential string) (*Principal, error)
}

// Middleware attaches the verified principal to each request. A request
// without an Authorization header passes through unauthenticated; whether
// that is acceptable is decided per endpoint by the guard chain, never here.
// A present-but-invalid credential is rejected immediately.
type Middleware struct {
	verifier Verifier
}

// NewMiddleware creates the principal-attaching middleware.
func NewMiddleware(verifier Verifier) *Middleware {
	return &Middleware{verifier: verifier}
}

// Handler wraps an HTTP handler with principal resolution.
func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			next.ServeHTTP(w, r)
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			httputil.WriteError(w, r, apperr.Unauthenticated("invalid authorization header format"))
			return
		}

		principal, err := m.verifier.Verify(r.Context(), parts[1])
		if err != nil {
			httputil.WriteError(w, r, apperr.Unauthenticated("invalid or expired credential"))
			return
		}

		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
	})
}
