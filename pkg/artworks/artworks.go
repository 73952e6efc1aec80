// Package artworks serves the public, read-only view of artworks. Only
// published artworks are visible.
package artworks

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/atelierhq/atelier/pkg/apperr"
	"github.com/atelierhq/atelier/pkg/httputil"
)

// ArtworkStatus is the lifecycle state of an artwork.
type ArtworkStatus string

const (
	StatusDraft     ArtworkStatus = "draft"
	StatusPublished ArtworkStatus = "published"
	StatusArchived  ArtworkStatus = "archived"
)

// Statuses enumerates every known artwork status.
func Statuses() []ArtworkStatus {
	return []ArtworkStatus{StatusDraft, StatusPublished, StatusArchived}
}

// Artwork is a single piece, optionally placed in a gallery.
type Artwork struct {
	ID        int64         `json:"id"`
	OwnerID   int64         `json:"owner_id"`
	GalleryID *int64        `json:"gallery_id,omitempty"`
	Title     string        `json:"title"`
	Medium    string        `json:"medium,omitempty"`
	Status    ArtworkStatus `json:"status"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// ListSortFields is the sort whitelist for artwork listings.
var ListSortFields = []string{"title", "created_at", "updated_at"}

// PostgresService implements artwork reads over PostgreSQL.
type PostgresService struct {
	db *sql.DB
}

// NewPostgresService creates a new PostgresService.
func NewPostgresService(db *sql.DB) *PostgresService {
	return &PostgresService{db: db}
}

// ListPublished returns a page of published artworks, optionally filtered by
// a case-insensitive title search.
func (s *PostgresService) ListPublished(ctx context.Context, params httputil.ListParams) ([]Artwork, httputil.Meta, error) {
	countQuery := `SELECT COUNT(*) FROM artworks WHERE status = $1`
	countArgs := []interface{}{StatusPublished}
	if params.HasSearch() {
		countQuery += ` AND title ILIKE '%' || $2 || '%'`
		countArgs = append(countArgs, params.Search)
	}

	var total int
	if err := s.db.QueryRowContext(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, httputil.Meta{}, fmt.Errorf("failed to count artworks: %w", err)
	}

	meta := httputil.NewMeta(params.Page, params.Limit, total)
	if total == 0 {
		return nil, meta, nil
	}

	query := `
		SELECT id, owner_id, gallery_id, title, medium, status, created_at, updated_at
		FROM artworks
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
		return nil, httputil.Meta{}, fmt.Errorf("failed to list artworks: %w", err)
	}
	defer rows.Close()

	var artworks []Artwork
	for rows.Next() {
		var artwork Artwork
		var galleryID sql.NullInt64
		if err := rows.Scan(&artwork.ID, &artwork.OwnerID, &galleryID, &artwork.Title,
			&artwork.Medium, &artwork.Status, &artwork.CreatedAt, &artwork.UpdatedAt); err != nil {
			return nil, httputil.Meta{}, fmt.Errorf("failed to scan artwork: %w", err)
		}
		if galleryID.Valid {
			artwork.GalleryID = &galleryID.Int64
		}
		artworks = append(artworks, artwork)
	}
	if err := rows.Err(); err != nil {
		return nil, httputil.Meta{}, fmt.Errorf("failed to read artworks: %w", err)
	}

	return artworks, meta, nil
}

// Get retrieves a published artwork by ID. Draft and archived artworks
// report NotFound.
func (s *PostgresService) Get(ctx context.Context, id int64) (*Artwork, error) {
	artwork := &Artwork{}
	var galleryID sql.NullInt64
	err := s.db.QueryRowContext(ctx, `
		SELECT id, owner_id, gallery_id, title, medium, status, created_at, updated_at
		FROM artworks
		WHERE id = $1 AND status = $2
	`, id, StatusPublished).Scan(
		&artwork.ID, &artwork.OwnerID, &galleryID, &artwork.Title,
		&artwork.Medium, &artwork.Status, &artwork.CreatedAt, &artwork.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("artwork not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get artwork: %w", err)
	}
	if galleryID.Valid {
		artwork.GalleryID = &galleryID.Int64
	}
	return artwork, nil
}
