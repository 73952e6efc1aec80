package groups

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	"github.com/atelierhq/atelier/pkg/activity"
	"github.com/atelierhq/atelier/pkg/apperr"
)

// Delete removes a group and every membership referencing it in one
// transaction. The existence check runs before any mutation, so a repeated
// delete of an already-deleted id reports NotFound rather than a silent
// success. When two deletes race, the loser observes zero affected rows and
// also reports NotFound; partial application is never observable.
//
// The activity record is advisory: it is enqueued after commit and a write
// failure never rolls anything back. Authorization (resource owner only) is
// the guard chain's responsibility, not this method's.
func (s *PostgresService) Delete(ctx context.Context, groupID, actorID int64) error {
	var exists int64
	err := s.db.QueryRowContext(ctx, `SELECT id FROM groups WHERE id = $1`, groupID).Scan(&exists)
	if err == sql.ErrNoRows {
		return apperr.NotFound("group not found")
	}
	if err != nil {
		return fmt.Errorf("failed to check group existence: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM group_members WHERE group_id = $1`, groupID); err != nil {
		return fmt.Errorf("failed to delete memberships: %w", err)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM groups WHERE id = $1`, groupID)
	if err != nil {
		return fmt.Errorf("failed to delete group: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		// Lost the race to a concurrent delete.
		return apperr.NotFound("group not found")
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit group deletion: %w", err)
	}

	s.trail.Record(activity.Record{
		Action:      activity.ActionDeleted,
		EntityType:  activity.EntityGroup,
		EntityID:    strconv.FormatInt(groupID, 10),
		PrincipalID: actorID,
	})

	return nil
}

// CountOrphanMemberships returns the number of membership rows whose group
// no longer exists. The cascade contract keeps this at zero; the check backs
// the invariant test and the maintenance job's consistency report.
func (s *PostgresService) CountOrphanMemberships(ctx context.Context) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM group_members m
		LEFT JOIN groups g ON g.id = m.group_id
		WHERE g.id IS NULL
	`
	var orphans int
	if err := s.db.QueryRowContext(ctx, query).Scan(&orphans); err != nil {
		return 0, fmt.Errorf("failed to count orphan memberships: %w", err)
	}
	return orphans, nil
}
