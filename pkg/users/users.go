// Package users implements platform-admin user administration: listing,
// lookup, and the suspend/reactivate lifecycle. Transitions that would not
// change anything (suspending a suspended account, reactivating an active
// one) report Conflict and leave the row untouched.
package users

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/atelierhq/atelier/pkg/activity"
	"github.com/atelierhq/atelier/pkg/apperr"
	"github.com/atelierhq/atelier/pkg/auth"
	"github.com/atelierhq/atelier/pkg/httputil"
)

// User is a platform account as seen by an administrator.
type User struct {
	ID        int64              `json:"id"`
	Username  string             `json:"username"`
	Email     string             `json:"email"`
	Role      auth.PlatformRole  `json:"role"`
	Status    auth.AccountStatus `json:"status"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
}

// ListSortFields is the sort whitelist for user listings.
var ListSortFields = []string{"username", "created_at", "status"}

// PostgresService implements user administration over PostgreSQL.
type PostgresService struct {
	db    *sql.DB
	trail activity.Sink
}

// NewPostgresService creates a new PostgresService. The activity sink is
// advisory: failures there never affect user operations.
func NewPostgresService(db *sql.DB, trail activity.Sink) *PostgresService {
	if trail == nil {
		trail = activity.NopSink{}
	}
	return &PostgresService{db: db, trail: trail}
}

// List returns a page of users. The search term matches the username
// case-insensitively and is always parameter-bound.
func (s *PostgresService) List(ctx context.Context, params httputil.ListParams) ([]User, httputil.Meta, error) {
	countQuery := `SELECT COUNT(*) FROM users`
	var countArgs []interface{}
	if params.HasSearch() {
		countQuery += ` WHERE username ILIKE '%' || $1 || '%'`
		countArgs = append(countArgs, params.Search)
	}

	var total int
	if err := s.db.QueryRowContext(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, httputil.Meta{}, fmt.Errorf("failed to count users: %w", err)
	}

	meta := httputil.NewMeta(params.Page, params.Limit, total)
	if total == 0 {
		return nil, meta, nil
	}

	query := `
		SELECT id, username, email, role, status, created_at, updated_at
		FROM users
	`
	var args []interface{}
	if params.HasSearch() {
		query += ` WHERE username ILIKE '%' || $1 || '%'`
		args = append(args, params.Search)
	}
	query += fmt.Sprintf(` ORDER BY %s %s LIMIT $%d OFFSET $%d`,
		params.SortField, params.SortOrder, len(args)+1, len(args)+2)
	args = append(args, params.Limit, params.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, httputil.Meta{}, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		var user User
		if err := rows.Scan(&user.ID, &user.Username, &user.Email, &user.Role,
			&user.Status, &user.CreatedAt, &user.UpdatedAt); err != nil {
			return nil, httputil.Meta{}, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, httputil.Meta{}, fmt.Errorf("failed to read users: %w", err)
	}

	return users, meta, nil
}

// Get retrieves a user by ID.
func (s *PostgresService) Get(ctx context.Context, id int64) (*User, error) {
	user := &User{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, username, email, role, status, created_at, updated_at
		FROM users
		WHERE id = $1
	`, id).Scan(
		&user.ID, &user.Username, &user.Email, &user.Role,
		&user.Status, &user.CreatedAt, &user.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("user not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// Suspend moves a user to the suspended status. Suspending an already
// suspended user reports Conflict and changes nothing.
func (s *PostgresService) Suspend(ctx context.Context, userID, actorID int64) error {
	return s.transition(ctx, userID, actorID, auth.StatusSuspended,
		"user is already suspended", activity.ActionSuspended)
}

// Reactivate moves a user back to the active status. Reactivating an
// already active user reports Conflict and changes nothing.
func (s *PostgresService) Reactivate(ctx context.Context, userID, actorID int64) error {
	return s.transition(ctx, userID, actorID, auth.StatusActive,
		"user is already active", activity.ActionReactivated)
}

func (s *PostgresService) transition(ctx context.Context, userID, actorID int64, target auth.AccountStatus, conflictMsg, action string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var current auth.AccountStatus
	err = tx.QueryRowContext(ctx, `SELECT status FROM users WHERE id = $1 FOR UPDATE`, userID).Scan(&current)
	if err == sql.ErrNoRows {
		return apperr.NotFound("user not found")
	}
	if err != nil {
		return fmt.Errorf("failed to get user status: %w", err)
	}
	if current == target {
		return apperr.Conflict(conflictMsg)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE users SET status = $1, updated_at = NOW() WHERE id = $2
	`, target, userID); err != nil {
		return fmt.Errorf("failed to update user status: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit status change: %w", err)
	}

	s.trail.Record(activity.Record{
		Action:      action,
		EntityType:  activity.EntityUser,
		EntityID:    strconv.FormatInt(userID, 10),
		PrincipalID: actorID,
	})

	return nil
}
