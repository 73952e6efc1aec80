// Package groups manages the group aggregate root: the group row, its
// memberships, and the consistency contract that ties them together. A group
// and its owner membership are created in one transaction, and deleting a
// group removes every membership in the same transaction.
package groups

import (
	"regexp"
	"time"

	"github.com/atelierhq/atelier/pkg/rbac"
)

// GroupStatus is the lifecycle state of a group.
type GroupStatus string

const (
	StatusActive   GroupStatus = "active"
	StatusArchived GroupStatus = "archived"
)

// Statuses enumerates every known group status.
func Statuses() []GroupStatus {
	return []GroupStatus{StatusActive, StatusArchived}
}

// Group is a collaboration space owned by exactly one member.
type Group struct {
	ID          int64       `json:"id"`
	Slug        string      `json:"slug"`
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	Status      GroupStatus `json:"status"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// Member is one (group, user, role) membership row joined with user
// identity for display.
type Member struct {
	ID       int64             `json:"id"`
	GroupID  int64             `json:"group_id"`
	UserID   int64             `json:"user_id"`
	Role     rbac.ResourceRole `json:"role"`
	Username string            `json:"username"`
	JoinedAt time.Time         `json:"joined_at"`
}

// CreateInput carries the caller-supplied fields for a new group.
type CreateInput struct {
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
}

// UpdateInput carries the mutable fields of a group. Nil means unchanged.
// Slug is immutable once set and deliberately absent here.
type UpdateInput struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

const maxNameLength = 120

var slugPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{2,59}$`)

// ListSortFields is the sort whitelist for group listings.
var ListSortFields = []string{"name", "created_at", "updated_at"}
