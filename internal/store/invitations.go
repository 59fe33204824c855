package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

type Invitation struct {
	InvitationID string `json:"invitation_id"`
	UserID       string `json:"user_id"`
	ProjectID    string `json:"project_id"`
}

// CreateInvitation offers project membership to a user. Inviting a current
// member or duplicating a pending invitation is rejected.
func (s *Store) CreateInvitation(ctx context.Context, userID, projectID string) (*Invitation, error) {
	inv := &Invitation{
		InvitationID: uuid.NewString(),
		UserID:       userID,
		ProjectID:    projectID,
	}
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var member bool
		if err := tx.QueryRowContext(ctx,
			"SELECT EXISTS(SELECT 1 FROM project_members WHERE project_id = ? AND user_id = ?)",
			projectID, userID,
		).Scan(&member); err != nil {
			return fmt.Errorf("check membership: %w", err)
		}
		if member {
			return ErrAlreadyMember
		}

		var pending bool
		if err := tx.QueryRowContext(ctx,
			"SELECT EXISTS(SELECT 1 FROM invitations WHERE project_id = ? AND user_id = ?)",
			projectID, userID,
		).Scan(&pending); err != nil {
			return fmt.Errorf("check invitation: %w", err)
		}
		if pending {
			return ErrInvitationExists
		}

		if _, err := tx.ExecContext(ctx,
			"INSERT INTO invitations (invitation_id, user_id, project_id) VALUES (?, ?, ?)",
			inv.InvitationID, inv.UserID, inv.ProjectID); err != nil {
			return fmt.Errorf("insert invitation: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return inv, nil
}

func (s *Store) GetInvitation(ctx context.Context, id string) (*Invitation, error) {
	var inv Invitation
	err := s.db.QueryRowContext(ctx,
		"SELECT invitation_id, user_id, project_id FROM invitations WHERE invitation_id = ?", id,
	).Scan(&inv.InvitationID, &inv.UserID, &inv.ProjectID)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan invitation: %w", err)
	}
	return &inv, nil
}

func (s *Store) ListInvitationsForUser(ctx context.Context, userID string) ([]Invitation, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT invitation_id, user_id, project_id FROM invitations WHERE user_id = ?", userID)
	if err != nil {
		return nil, fmt.Errorf("query invitations: %w", err)
	}
	defer rows.Close()

	var invitations []Invitation
	for rows.Next() {
		var inv Invitation
		if err := rows.Scan(&inv.InvitationID, &inv.UserID, &inv.ProjectID); err != nil {
			return nil, fmt.Errorf("scan invitation: %w", err)
		}
		invitations = append(invitations, inv)
	}
	return invitations, rows.Err()
}

// AcceptInvitation adds the invitee to the project members and removes the
// invitation. Both writes commit together; there is no observable state with
// one applied and not the other.
func (s *Store) AcceptInvitation(ctx context.Context, id string) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		var inv Invitation
		err := tx.QueryRowContext(ctx,
			"SELECT invitation_id, user_id, project_id FROM invitations WHERE invitation_id = ?", id,
		).Scan(&inv.InvitationID, &inv.UserID, &inv.ProjectID)
		if err == sql.ErrNoRows {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("scan invitation: %w", err)
		}

		if _, err := tx.ExecContext(ctx,
			"INSERT INTO project_members (user_id, project_id) VALUES (?, ?)",
			inv.UserID, inv.ProjectID); err != nil {
			return fmt.Errorf("insert member: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM invitations WHERE invitation_id = ?", id); err != nil {
			return fmt.Errorf("delete invitation: %w", err)
		}
		return nil
	})
}

// DeleteInvitation removes a pending invitation without any membership
// change. Backs both decline and cancel.
func (s *Store) DeleteInvitation(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM invitations WHERE invitation_id = ?", id)
	if err != nil {
		return fmt.Errorf("delete invitation: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
