package groups

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/lib/pq"

	"github.com/atelierhq/atelier/pkg/activity"
	"github.com/atelierhq/atelier/pkg/apperr"
	"github.com/atelierhq/atelier/pkg/httputil"
)

// pq unique_violation
const uniqueViolation = "23505"

// PostgresService implements group storage over PostgreSQL.
type PostgresService struct {
	db    *sql.DB
	trail activity.Sink
}

// NewPostgresService creates a new PostgresService. The activity sink is
// advisory: failures there never affect group operations.
func NewPostgresService(db *sql.DB, trail activity.Sink) *PostgresService {
	if trail == nil {
		trail = activity.NopSink{}
	}
	return &PostgresService{db: db, trail: trail}
}

// Create inserts a group and its owner membership in one transaction.
func (s *PostgresService) Create(ctx context.Context, ownerID int64, input CreateInput) (*Group, error) {
	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" {
		return nil, apperr.Validation("name is required")
	}
	if len(input.Name) > maxNameLength {
		return nil, apperr.Validation(fmt.Sprintf("name must be at most %d characters", maxNameLength))
	}
	if !slugPattern.MatchString(input.Slug) {
		return nil, apperr.Validation("slug must be 3-60 lowercase letters, digits or hyphens")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	group := &Group{Slug: input.Slug, Name: input.Name, Description: input.Description, Status: StatusActive}
	err = tx.QueryRowContext(ctx, `
		INSERT INTO groups (slug, name, description, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at
	`, group.Slug, group.Name, group.Description, group.Status).
		Scan(&group.ID, &group.CreatedAt, &group.UpdatedAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && string(pqErr.Code) == uniqueViolation {
			return nil, apperr.Conflict("slug already in use")
		}
		return nil, fmt.Errorf("failed to create group: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO group_members (group_id, user_id, role)
		VALUES ($1, $2, 'owner')
	`, group.ID, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to create owner membership: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit group creation: %w", err)
	}

	s.trail.Record(activity.Record{
		Action:      activity.ActionCreated,
		EntityType:  activity.EntityGroup,
		EntityID:    strconv.FormatInt(group.ID, 10),
		PrincipalID: ownerID,
	})

	return group, nil
}

// Get retrieves a group by ID.
func (s *PostgresService) Get(ctx context.Context, id int64) (*Group, error) {
	return s.getBy(ctx, `WHERE id = $1`, id)
}

// GetBySlug retrieves a group by its slug.
func (s *PostgresService) GetBySlug(ctx context.Context, slug string) (*Group, error) {
	return s.getBy(ctx, `WHERE slug = $1`, slug)
}

func (s *PostgresService) getBy(ctx context.Context, where string, arg interface{}) (*Group, error) {
	query := `
		SELECT id, slug, name, description, status, created_at, updated_at
		FROM groups
	` + where

	group := &Group{}
	err := s.db.QueryRowContext(ctx, query, arg).Scan(
		&group.ID, &group.Slug, &group.Name, &group.Description,
		&group.Status, &group.CreatedAt, &group.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("group not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get group: %w", err)
	}
	return group, nil
}

// List returns a page of groups. The search term matches the group name
// case-insensitively and is always parameter-bound. When the filtered total
// is zero the collection query is skipped entirely.
func (s *PostgresService) List(ctx context.Context, params httputil.ListParams) ([]Group, httputil.Meta, error) {
	countQuery := `SELECT COUNT(*) FROM groups`
	var countArgs []interface{}
	if params.HasSearch() {
		countQuery += ` WHERE name ILIKE '%' || $1 || '%'`
		countArgs = append(countArgs, params.Search)
	}

	var total int
	if err := s.db.QueryRowContext(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, httputil.Meta{}, fmt.Errorf("failed to count groups: %w", err)
	}

	meta := httputil.NewMeta(params.Page, params.Limit, total)
	if total == 0 {
		return nil, meta, nil
	}

	query := `
		SELECT id, slug, name, description, status, created_at, updated_at
		FROM groups
	`
	var args []interface{}
	if params.HasSearch() {
		query += ` WHERE name ILIKE '%' || $1 || '%'`
		args = append(args, params.Search)
	}
	// SortField is whitelisted and SortOrder is one of ASC/DESC; both are
	// safe to splice. Search stays bound.
	query += fmt.Sprintf(` ORDER BY %s %s LIMIT $%d OFFSET $%d`,
		params.SortField, params.SortOrder, len(args)+1, len(args)+2)
	args = append(args, params.Limit, params.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, httputil.Meta{}, fmt.Errorf("failed to list groups: %w", err)
	}
	defer rows.Close()

	var groups []Group
	for rows.Next() {
		var group Group
		if err := rows.Scan(&group.ID, &group.Slug, &group.Name, &group.Description,
			&group.Status, &group.CreatedAt, &group.UpdatedAt); err != nil {
			return nil, httputil.Meta{}, fmt.Errorf("failed to scan group: %w", err)
		}
		groups = append(groups, group)
	}
	if err := rows.Err(); err != nil {
		return nil, httputil.Meta{}, fmt.Errorf("failed to read groups: %w", err)
	}

	return groups, meta, nil
}

// Update modifies a group's mutable fields. The slug is immutable.
func (s *PostgresService) Update(ctx context.Context, id int64, actorID int64, input UpdateInput) (*Group, error) {
	if input.Name == nil && input.Description == nil {
		return nil, apperr.Validation("nothing to update")
	}
	if input.Name != nil {
		trimmed := strings.TrimSpace(*input.Name)
		if trimmed == "" {
			return nil, apperr.Validation("name is required")
		}
		if len(trimmed) > maxNameLength {
			return nil, apperr.Validation(fmt.Sprintf("name must be at most %d characters", maxNameLength))
		}
		input.Name = &trimmed
	}

	group := &Group{}
	err := s.db.QueryRowContext(ctx, `
		UPDATE groups
		SET name = COALESCE($1, name),
		    description = COALESCE($2, description),
		    updated_at = NOW()
		WHERE id = $3
		RETURNING id, slug, name, description, status, created_at, updated_at
	`, input.Name, input.Description, id).Scan(
		&group.ID, &group.Slug, &group.Name, &group.Description,
		&group.Status, &group.CreatedAt, &group.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("group not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update group: %w", err)
	}

	s.trail.Record(activity.Record{
		Action:      activity.ActionUpdated,
		EntityType:  activity.EntityGroup,
		EntityID:    strconv.FormatInt(id, 10),
		PrincipalID: actorID,
	})

	return group, nil
}
