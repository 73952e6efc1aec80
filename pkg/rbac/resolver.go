package rbac

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/atelierhq/atelier/pkg/auth"
)

// Resolver computes a principal's effective access for a request. Platform
// role and status come from the verified principal itself; the resource role
// is looked up against the membership relation when a resource is in scope.
type Resolver struct {
	db *sql.DB
}

// NewResolver creates a resolver backed by the membership relation.
func NewResolver(db *sql.DB) *Resolver {
	return &Resolver{db: db}
}

// Resolve computes effective access. A nil principal yields an
// unauthenticated access value without touching the store. A nil resourceID
// means the operation is not resource-scoped and no membership lookup runs.
func (r *Resolver) Resolve(ctx context.Context, principal *auth.Principal, resourceID *int64) (*EffectiveAccess, error) {
	access := &EffectiveAccess{Principal: principal}
	if principal == nil || resourceID == nil {
		return access, nil
	}

	role, err := r.lookupResourceRole(ctx, *resourceID, principal.ID)
	if err != nil {
		return nil, err
	}
	access.ResourceRole = role
	return access, nil
}

// lookupResourceRole returns the membership role for (resource, principal),
// or nil when the principal is not a participant.
func (r *Resolver) lookupResourceRole(ctx context.Context, resourceID, principalID int64) (*ResourceRole, error) {
	query := `SELECT role FROM group_members WHERE group_id = $1 AND user_id = $2`

	var role ResourceRole
	err := r.db.QueryRowContext(ctx, query, resourceID, principalID).Scan(&role)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up resource role: %w", err)
	}
	if !role.Valid() {
		return nil, fmt.Errorf("unknown resource role %q for group %d user %d", role, resourceID, principalID)
	}
	return &role, nil
}
