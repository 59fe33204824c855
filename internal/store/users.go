package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type User struct {
	UserID   string `json:"user_id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"-"`
	Admin    bool   `json:"admin"`
}

// CreateUser registers a user. The password is stored as a bcrypt hash and
// the admin flag is always false; promotion happens separately.
func (s *Store) CreateUser(ctx context.Context, name, email, password string) (*User, error) {
	var taken bool
	err := s.db.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM users WHERE email = ? OR name = ?)", email, name,
	).Scan(&taken)
	if err != nil {
		return nil, fmt.Errorf("check user exists: %w", err)
	}
	if taken {
		return nil, ErrUserExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &User{
		UserID:   uuid.NewString(),
		Name:     name,
		Email:    email,
		Password: string(hash),
	}
	_, err = s.db.ExecContext(ctx,
		"INSERT INTO users (user_id, name, email, password, admin) VALUES (?, ?, ?, ?, 0)",
		u.UserID, u.Name, u.Email, u.Password,
	)
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return u, nil
}

// Authenticate verifies a name/password pair. Lookup is by name, not email.
func (s *Store) Authenticate(ctx context.Context, name, password string) (*User, error) {
	u, err := s.GetUserByName(ctx, name)
	if err != nil {
		if err == ErrNotFound {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

func (s *Store) GetUser(ctx context.Context, id string) (*User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx,
		"SELECT user_id, name, email, password, admin FROM users WHERE user_id = ?", id))
}

func (s *Store) GetUserByName(ctx context.Context, name string) (*User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx,
		"SELECT user_id, name, email, password, admin FROM users WHERE name = ?", name))
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx,
		"SELECT user_id, name, email, password, admin FROM users WHERE email = ?", email))
}

func (s *Store) scanUser(row *sql.Row) (*User, error) {
	var u User
	err := row.Scan(&u.UserID, &u.Name, &u.Email, &u.Password, &u.Admin)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return &u, nil
}

func (s *Store) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT user_id, name, email, password, admin FROM users ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.UserID, &u.Name, &u.Email, &u.Password, &u.Admin); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// PromoteUser flips the admin flag on.
func (s *Store) PromoteUser(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "UPDATE users SET admin = 1 WHERE user_id = ?", id)
	if err != nil {
		return fmt.Errorf("promote user: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteUser removes a user, their memberships, works and invitations in one
// transaction. Projects left without members are removed along with their
// tasks, works and pending invitations.
func (s *Store) DeleteUser(ctx context.Context, id string) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		var exists bool
		if err := tx.QueryRowContext(ctx,
			"SELECT EXISTS(SELECT 1 FROM users WHERE user_id = ?)", id,
		).Scan(&exists); err != nil {
			return fmt.Errorf("check user: %w", err)
		}
		if !exists {
			return ErrNotFound
		}

		rows, err := tx.QueryContext(ctx,
			"SELECT project_id FROM project_members WHERE user_id = ?", id)
		if err != nil {
			return fmt.Errorf("query memberships: %w", err)
		}
		var projectIDs []string
		for rows.Next() {
			var pid string
			if err := rows.Scan(&pid); err != nil {
				rows.Close()
				return fmt.Errorf("scan membership: %w", err)
			}
			projectIDs = append(projectIDs, pid)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx,
			"DELETE FROM project_members WHERE user_id = ?", id); err != nil {
			return fmt.Errorf("delete memberships: %w", err)
		}

		for _, pid := range projectIDs {
			var remaining int
			if err := tx.QueryRowContext(ctx,
				"SELECT COUNT(*) FROM project_members WHERE project_id = ?", pid,
			).Scan(&remaining); err != nil {
				return fmt.Errorf("count members: %w", err)
			}
			if remaining == 0 {
				if _, err := tx.ExecContext(ctx,
					"DELETE FROM projects WHERE project_id = ?", pid); err != nil {
					return fmt.Errorf("delete empty project: %w", err)
				}
			}
		}

		if _, err := tx.ExecContext(ctx, "DELETE FROM users WHERE user_id = ?", id); err != nil {
			return fmt.Errorf("delete user: %w", err)
		}
		return nil
	})
}
