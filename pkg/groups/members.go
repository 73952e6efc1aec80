package groups

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	"github.com/atelierhq/atelier/pkg/activity"
	"github.com/atelierhq/atelier/pkg/apperr"
	"github.com/atelierhq/atelier/pkg/rbac"
)

// ListMembers retrieves all members of a group, owner first.
func (s *PostgresService) ListMembers(ctx context.Context, groupID int64) ([]Member, error) {
	if _, err := s.Get(ctx, groupID); err != nil {
		return nil, err
	}

	query := `
		SELECT m.id, m.group_id, m.user_id, m.role, u.username, m.joined_at
		FROM group_members m
		JOIN users u ON u.id = m.user_id
		WHERE m.group_id = $1
		ORDER BY m.joined_at ASC
	`
	rows, err := s.db.QueryContext(ctx, query, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()

	var members []Member
	for rows.Next() {
		var member Member
		if err := rows.Scan(&member.ID, &member.GroupID, &member.UserID,
			&member.Role, &member.Username, &member.JoinedAt); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		members = append(members, member)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read members: %w", err)
	}

	return members, nil
}

// memberRole returns the current role of (group, user), or NotFound.
func (s *PostgresService) memberRole(ctx context.Context, tx *sql.Tx, groupID, userID int64) (rbac.ResourceRole, error) {
	var role rbac.ResourceRole
	row := tx.QueryRowContext(ctx, `SELECT role FROM group_members WHERE group_id = $1 AND user_id = $2 FOR UPDATE`, groupID, userID)
	err := row.Scan(&role)
	if err == sql.ErrNoRows {
		return "", apperr.NotFound("member not found")
	}
	if err != nil {
		return "", fmt.Errorf("failed to get member role: %w", err)
	}
	return role, nil
}

// AddMember adds a user to a group. The owner role cannot be granted here;
// ownership moves only through TransferOwnership.
func (s *PostgresService) AddMember(ctx context.Context, groupID, userID int64, role rbac.ResourceRole, actorID int64) error {
	if role == rbac.RoleOwner {
		return apperr.Validation("owner role can only be assigned by ownership transfer")
	}
	if !role.Valid() {
		return apperr.Validation(fmt.Sprintf("unknown role %q", role))
	}
	if _, err := s.Get(ctx, groupID); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO group_members (group_id, user_id, role)
		VALUES ($1, $2, $3)
		ON CONFLICT (group_id, user_id) DO NOTHING
	`, groupID, userID, role)
	if err != nil {
		return fmt.Errorf("failed to add member: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperr.Conflict("user is already a member")
	}

	s.trail.Record(activity.Record{
		Action:      activity.ActionMemberAdded,
		EntityType:  activity.EntityGroup,
		EntityID:    strconv.FormatInt(groupID, 10),
		PrincipalID: actorID,
	})

	return nil
}

// UpdateMemberRole changes a member's role between manager and member. The
// owner's row cannot be touched here.
func (s *PostgresService) UpdateMemberRole(ctx context.Context, groupID, userID int64, role rbac.ResourceRole, actorID int64) error {
	if role == rbac.RoleOwner {
		return apperr.Validation("owner role can only be assigned by ownership transfer")
	}
	if !role.Valid() {
		return apperr.Validation(fmt.Sprintf("unknown role %q", role))
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	current, err := s.memberRole(ctx, tx, groupID, userID)
	if err != nil {
		return err
	}
	if current == rbac.RoleOwner {
		return apperr.Conflict("the owner's role cannot be changed here")
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE group_members SET role = $1 WHERE group_id = $2 AND user_id = $3
	`, role, groupID, userID); err != nil {
		return fmt.Errorf("failed to update member role: %w", err)
	}

	return tx.Commit()
}

// RemoveMember removes a user from a group. The owner membership cannot be
// removed; the group must be deleted or ownership transferred first.
func (s *PostgresService) RemoveMember(ctx context.Context, groupID, userID int64, actorID int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	current, err := s.memberRole(ctx, tx, groupID, userID)
	if err != nil {
		return err
	}
	if current == rbac.RoleOwner {
		return apperr.Conflict("the owner cannot be removed from the group")
	}

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM group_members WHERE group_id = $1 AND user_id = $2
	`, groupID, userID); err != nil {
		return fmt.Errorf("failed to remove member: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit member removal: %w", err)
	}

	s.trail.Record(activity.Record{
		Action:      activity.ActionMemberRemoved,
		EntityType:  activity.EntityGroup,
		EntityID:    strconv.FormatInt(groupID, 10),
		PrincipalID: actorID,
	})

	return nil
}

// TransferOwnership atomically demotes the current owner to manager and
// promotes the target member to owner. The target must already be a member.
func (s *PostgresService) TransferOwnership(ctx context.Context, groupID, currentOwnerID, newOwnerID int64) error {
	if currentOwnerID == newOwnerID {
		return apperr.Conflict("user already owns this group")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	targetRole, err := s.memberRole(ctx, tx, groupID, newOwnerID)
	if err != nil {
		return err
	}
	if targetRole == rbac.RoleOwner {
		return apperr.Conflict("user already owns this group")
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE group_members SET role = 'manager' WHERE group_id = $1 AND user_id = $2
	`, groupID, currentOwnerID); err != nil {
		return fmt.Errorf("failed to demote current owner: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE group_members SET role = 'owner' WHERE group_id = $1 AND user_id = $2
	`, groupID, newOwnerID); err != nil {
		return fmt.Errorf("failed to promote new owner: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit ownership transfer: %w", err)
	}

	s.trail.Record(activity.Record{
		Action:      activity.ActionTransferred,
		EntityType:  activity.EntityGroup,
		EntityID:    strconv.FormatInt(groupID, 10),
		PrincipalID: currentOwnerID,
	})

	return nil
}
