// Package stats builds the admin dashboard snapshot: per-collection status
// counters plus the recent activity feed. Counters are zero-filled for every
// known status, so a collection with no rows still reports all its statuses,
// and the per-status counts always sum to the collection total.
package stats

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/atelierhq/atelier/pkg/activity"
	"github.com/atelierhq/atelier/pkg/artworks"
	"github.com/atelierhq/atelier/pkg/auth"
	"github.com/atelierhq/atelier/pkg/galleries"
	"github.com/atelierhq/atelier/pkg/groups"
)

// recentActivityLimit is the number of entries in the snapshot feed.
const recentActivityLimit = 10

// CollectionSpec names one counted collection: its table and the statuses
// to zero-fill. Tables come from this fixed list only and are never
// caller-supplied.
type CollectionSpec struct {
	Name     string
	Table    string
	Statuses []string
}

// CollectionStats is the counter set for one collection.
type CollectionStats struct {
	Total    int            `json:"total"`
	ByStatus map[string]int `json:"byStatus"`
}

// Snapshot is the full dashboard payload.
type Snapshot struct {
	Collections    map[string]CollectionStats `json:"collections"`
	RecentActivity []activity.Entry           `json:"recentActivity"`
	GeneratedAt    time.Time                  `json:"generatedAt"`
}

// DefaultCollections covers every counted collection in the platform.
func DefaultCollections() []CollectionSpec {
	return []CollectionSpec{
		{Name: "users", Table: "users", Statuses: statusStrings(auth.AccountStatuses())},
		{Name: "groups", Table: "groups", Statuses: statusStrings(groups.Statuses())},
		{Name: "galleries", Table: "galleries", Statuses: statusStrings(galleries.Statuses())},
		{Name: "artworks", Table: "artworks", Statuses: statusStrings(artworks.Statuses())},
	}
}

func statusStrings[S ~string](statuses []S) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

// Engine aggregates collection counters and the activity feed.
type Engine struct {
	db          *sql.DB
	reader      *activity.Reader
	collections []CollectionSpec
}

// NewEngine creates an Engine over the given collections. A nil collections
// slice selects DefaultCollections.
func NewEngine(db *sql.DB, reader *activity.Reader, collections []CollectionSpec) *Engine {
	if collections == nil {
		collections = DefaultCollections()
	}
	return &Engine{db: db, reader: reader, collections: collections}
}

// Collect produces a point-in-time snapshot. Every spec'd status appears in
// the result even when its count is zero; rows with a status outside the
// known set are still counted so the per-status sum matches the total.
func (e *Engine) Collect(ctx context.Context) (*Snapshot, error) {
	snapshot := &Snapshot{
		Collections: make(map[string]CollectionStats, len(e.collections)),
		GeneratedAt: time.Now().UTC(),
	}

	for _, spec := range e.collections {
		stats, err := e.countCollection(ctx, spec)
		if err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", spec.Name, err)
		}
		snapshot.Collections[spec.Name] = stats
	}

	entries, err := e.reader.Recent(ctx, recentActivityLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to read recent activity: %w", err)
	}
	if entries == nil {
		entries = []activity.Entry{}
	}
	snapshot.RecentActivity = entries

	return snapshot, nil
}

func (e *Engine) countCollection(ctx context.Context, spec CollectionSpec) (CollectionStats, error) {
	stats := CollectionStats{ByStatus: make(map[string]int, len(spec.Statuses))}
	for _, status := range spec.Statuses {
		stats.ByStatus[status] = 0
	}

	query := fmt.Sprintf(`SELECT status, COUNT(*) FROM %s GROUP BY status`, spec.Table)
	rows, err := e.db.QueryContext(ctx, query)
	if err != nil {
		return CollectionStats{}, err
	}
	defer rows.Close()

	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return CollectionStats{}, err
		}
		stats.ByStatus[status] = count
		stats.Total += count
	}
	if err := rows.Err(); err != nil {
		return CollectionStats{}, err
	}

	return stats, nil
}
