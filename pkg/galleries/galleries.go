// Package galleries serves the public, read-only view of user galleries.
// Only published galleries are visible: a gallery that exists but is draft
// or hidden is indistinguishable from one that does not exist.
package galleries

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/atelierhq/atelier/pkg/apperr"
	"github.com/atelierhq/atelier/pkg/httputil"
)

// GalleryStatus is the lifecycle state of a gallery.
type GalleryStatus string

const (
	StatusDraft     GalleryStatus = "draft"
	StatusPublished GalleryStatus = "published"
	StatusHidden    GalleryStatus = "hidden"
)

// Statuses enumerates every known gallery status.
func Statuses() []GalleryStatus {
	return []GalleryStatus{StatusDraft, StatusPublished, StatusHidden}
}

// Gallery is a curated set of artworks belonging to one user.
type Gallery struct {
	ID          int64         `json:"id"`
	OwnerID     int64         `json:"owner_id"`
	Title       string        `json:"title"`
	Description string        `json:"description,omitempty"`
	Status      GalleryStatus `json:"status"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// ListSortFields is the sort whitelist for gallery listings.
var ListSortFields = []string{"title", "created_at", "updated_at"}

// PostgresService implements gallery reads over PostgreSQL.
type PostgresService struct {
	db *sql.DB
}

// NewPostgresService creates a new PostgresService.
func NewPostgresService(db *sql.DB) *PostgresService {
	return &PostgresService{db: db}
}

// ListPublished returns a page of published galleries. The search term
// matches the title case-insensitively and is always parameter-bound.
func (s *PostgresService) ListPublished(ctx context.Context, params httputil.ListParams) ([]Gallery, httputil.Meta, error) {
	countQuery := `SELECT COUNT(*) FROM galleries WHERE status = $1`
	countArgs := []interface{}{StatusPublished}
	if params.HasSearch() {
		countQuery += ` AND title ILIKE '%' || $2 || '%'`
		countArgs = append(countArgs, params.Search)
	}

	var total int
	if err := s.db.QueryRowContext(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, httputil.Meta{}, fmt.Errorf("failed to count galleries: %w", err)
	}

	meta := httputil.NewMeta(params.Page, params.Limit, total)
	if total == 0 {
		return nil, meta, nil
	}

	query := `
		SELECT id, owner_id, title, description, status, created_at, updated_at
		FROM galleries
		WHERE status = $1
	`
	args := []interface{}{StatusPublished}
	if params.HasSearch() {
		query += ` AND title ILIKE '%' || $2 || '%'`
		args = append(args, params.Search)
	}
	query += fmt.Sprintf(` ORDER BY %s %s LIMIT $%d OFFSET $%d`,
		params.SortField, params.SortOrder, len(args)+1, len(args)+2)
	args = append(args, params.Limit, params.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, httputil.Meta{}, fmt.Errorf("failed to list galleries: %w", err)
	}
	defer rows.Close()

	var galleries []Gallery
	for rows.Next() {
		var gallery Gallery
		if err := rows.Scan(&gallery.ID, &gallery.OwnerID, &gallery.Title, &gallery.Description,
			&gallery.Status, &gallery.CreatedAt, &gallery.UpdatedAt); err != nil {
			return nil, httputil.Meta{}, fmt.Errorf("failed to scan gallery: %w", err)
		}
		galleries = append(galleries, gallery)
	}
	if err := rows.Err(); err != nil {
		return nil, httputil.Meta{}, fmt.Errorf("failed to read galleries: %w", err)
	}

	return galleries, meta, nil
}

// Get retrieves a published gallery by ID. A gallery that exists in a
// non-published state reports NotFound, same as one that does not exist.
func (s *PostgresService) Get(ctx context.Context, id int64) (*Gallery, error) {
	gallery := &Gallery{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, owner_id, title, description, status, created_at, updated_at
		FROM galleries
		WHERE id = $1 AND status = $2
	`, id, StatusPublished).Scan(
		&gallery.ID, &gallery.OwnerID, &gallery.Title, &gallery.Description,
		&gallery.Status, &gallery.CreatedAt, &gallery.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("gallery not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get gallery: %w", err)
	}
	return gallery, nil
}
