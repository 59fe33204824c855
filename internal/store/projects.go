package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

type Project struct {
	ProjectID string `json:"project_id"`
	Name      string `json:"name"`
	Desc      string `json:"desc"`
}

// ProjectPatch carries a partial update; nil fields are left untouched.
type ProjectPatch struct {
	Name *string
	Desc *string
}

// CreateProject inserts the project and makes the creator its sole member.
func (s *Store) CreateProject(ctx context.Context, name, desc, creatorID string) (*Project, error) {
	p := &Project{
		ProjectID: uuid.NewString(),
		Name:      name,
		Desc:      desc,
	}
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO projects (project_id, name, description) VALUES (?, ?, ?)",
			p.ProjectID, p.Name, p.Desc); err != nil {
			return fmt.Errorf("insert project: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO project_members (user_id, project_id) VALUES (?, ?)",
			creatorID, p.ProjectID); err != nil {
			return fmt.Errorf("insert member: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Store) GetProject(ctx context.Context, id string) (*Project, error) {
	var p Project
	err := s.db.QueryRowContext(ctx,
		"SELECT project_id, name, description FROM projects WHERE project_id = ?", id,
	).Scan(&p.ProjectID, &p.Name, &p.Desc)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan project: %w", err)
	}
	return &p, nil
}

func (s *Store) ListProjectsForUser(ctx context.Context, userID string) ([]Project, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.project_id, p.name, p.description
		FROM projects p
		JOIN project_members pm ON pm.project_id = p.project_id AND pm.user_id = ?
		ORDER BY p.name`, userID)
	if err != nil {
		return nil, fmt.Errorf("query projects: %w", err)
	}
	defer rows.Close()
	return scanProjects(rows)
}

func (s *Store) ListAllProjects(ctx context.Context) ([]Project, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT project_id, name, description FROM projects ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("query projects: %w", err)
	}
	defer rows.Close()
	return scanProjects(rows)
}

func scanProjects(rows *sql.Rows) ([]Project, error) {
	var projects []Project
	for rows.Next() {
		var p Project
		if err := rows.Scan(&p.ProjectID, &p.Name, &p.Desc); err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// UpdateProject applies a patch. Validation happens before this is called;
// here the patch is applied all at once.
func (s *Store) UpdateProject(ctx context.Context, id string, patch ProjectPatch) (*Project, error) {
	p, err := s.GetProject(ctx, id)
	if err != nil {
		return nil, err
	}
	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.Desc != nil {
		p.Desc = *patch.Desc
	}
	if _, err := s.db.ExecContext(ctx,
		"UPDATE projects SET name = ?, description = ? WHERE project_id = ?",
		p.Name, p.Desc, p.ProjectID); err != nil {
		return nil, fmt.Errorf("update project: %w", err)
	}
	return p, nil
}

// IsMember reports whether the user belongs to the project.
func (s *Store) IsMember(ctx context.Context, projectID, userID string) (bool, error) {
	var ok bool
	err := s.db.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM project_members WHERE project_id = ? AND user_id = ?)",
		projectID, userID,
	).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("check membership: %w", err)
	}
	return ok, nil
}

func (s *Store) ListMembers(ctx context.Context, projectID string) ([]User, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT u.user_id, u.name, u.email, u.password, u.admin
		FROM users u
		JOIN project_members pm ON pm.user_id = u.user_id
		WHERE pm.project_id = ?
		ORDER BY u.name`, projectID)
	if err != nil {
		return nil, fmt.Errorf("query members: %w", err)
	}
	defer rows.Close()

	var members []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.UserID, &u.Name, &u.Email, &u.Password, &u.Admin); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, u)
	}
	return members, rows.Err()
}

// LeaveProject removes the user from the member set. When the set empties the
// project is deleted in the same transaction, cascading to its tasks, their
// works and any pending invitations. Returns whether the project was deleted.
func (s *Store) LeaveProject(ctx context.Context, projectID, userID string) (bool, error) {
	deleted := false
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			"DELETE FROM project_members WHERE project_id = ? AND user_id = ?",
			projectID, userID)
		if err != nil {
			return fmt.Errorf("delete membership: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrNotFound
		}

		var remaining int
		if err := tx.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM project_members WHERE project_id = ?", projectID,
		).Scan(&remaining); err != nil {
			return fmt.Errorf("count members: %w", err)
		}
		if remaining == 0 {
			if _, err := tx.ExecContext(ctx,
				"DELETE FROM projects WHERE project_id = ?", projectID); err != nil {
				return fmt.Errorf("delete project: %w", err)
			}
			deleted = true
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return deleted, nil
}
