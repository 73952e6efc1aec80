package rbac

import (
	"github.com/atelierhq/atelier/pkg/apperr"
	"github.com/atelierhq/atelier/pkg/auth"
)

// Gate is one authorization predicate over resolved access. It returns nil
// to pass or a classified error to fail.
type Gate func(access *EffectiveAccess) error

// Authenticated fails when no verified principal is attached. It must be the
// first gate of any chain that reads principal state.
func Authenticated() Gate {
	return func(access *EffectiveAccess) error {
		if !access.IsAuthenticated() {
			return apperr.Unauthenticated("authentication required")
		}
		return nil
	}
}

// Active fails unless the principal's account status is active. Suspended
// and deactivated principals are rejected even when their roles would
// otherwise authorize the operation.
func Active() Gate {
	return func(access *EffectiveAccess) error {
		if !access.IsActive() {
			return apperr.Forbidden("account not active")
		}
		return nil
	}
}

// PlatformRoleSufficient fails when the required platform role is admin and
// the principal is not a platform admin.
func PlatformRoleSufficient(required auth.PlatformRole) Gate {
	return func(access *EffectiveAccess) error {
		if required == auth.RoleAdmin && !access.Principal.IsAdmin() {
			return apperr.Forbidden("insufficient platform role")
		}
		return nil
	}
}

// ResourceRoleSufficient fails when the resolved resource role is absent or
// ranks below the requirement. Platform admin does not substitute.
func ResourceRoleSufficient(required ResourceRole) Gate {
	return func(access *EffectiveAccess) error {
		if !access.HasResourceRole(required) {
			return apperr.Forbidden("insufficient resource role")
		}
		return nil
	}
}

// Chain evaluates gates strictly in order, short-circuiting on the first
// failure.
func Chain(gates ...Gate) Gate {
	return func(access *EffectiveAccess) error {
		for _, gate := range gates {
			if err := gate(access); err != nil {
				return err
			}
		}
		return nil
	}
}
