package activity

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Reader serves the recent-activity feed.
type Reader struct {
	db *sql.DB
}

// NewReader creates a reader over the activity log.
func NewReader(db *sql.DB) *Reader {
	return &Reader{db: db}
}

// Recent returns the most recent records, newest first, joined against
// principal identity. A deleted principal yields a nil Username; the record
// is kept.
func (r *Reader) Recent(ctx context.Context, limit int) ([]Entry, error) {
	query := `
		SELECT a.id, a.action, a.entity_type, a.entity_id, a.principal_id, a.occurred_at, u.username
		FROM activity_log a
		LEFT JOIN users u ON u.id = a.principal_id
		ORDER BY a.occurred_at DESC
		LIMIT $1
	`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query activity log: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var entry Entry
		var username sql.NullString
		if err := rows.Scan(&entry.ID, &entry.Action, &entry.EntityType, &entry.EntityID,
			&entry.PrincipalID, &entry.OccurredAt, &username); err != nil {
			return nil, fmt.Errorf("failed to scan activity entry: %w", err)
		}
		if username.Valid {
			entry.Username = &username.String
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read activity log: %w", err)
	}

	return entries, nil
}

// DeleteOlderThan prunes records older than the cutoff and returns the
// number removed. Used by the maintenance job.
func (r *Reader) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM activity_log WHERE occurred_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune activity log: %w", err)
	}
	removed, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return removed, nil
}
