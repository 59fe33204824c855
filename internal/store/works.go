package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

type Work struct {
	WorkID string  `json:"work_id"`
	TaskID string  `json:"task_id"`
	UserID string  `json:"user_id"`
	Date   string  `json:"date"`
	Time   float64 `json:"time"`
}

// CreateWork logs a worked day on a task. A task can hold at most one work
// entry per date; a second entry for the same (task, date) is rejected.
func (s *Store) CreateWork(ctx context.Context, taskID, userID, date string, time float64) (*Work, error) {
	w := &Work{
		WorkID: uuid.NewString(),
		TaskID: taskID,
		UserID: userID,
		Date:   date,
		Time:   time,
	}
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var taken bool
		if err := tx.QueryRowContext(ctx,
			"SELECT EXISTS(SELECT 1 FROM works WHERE task_id = ? AND date = ?)",
			taskID, date,
		).Scan(&taken); err != nil {
			return fmt.Errorf("check work date: %w", err)
		}
		if taken {
			return ErrDuplicateWork
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO works (work_id, task_id, user_id, date, time) VALUES (?, ?, ?, ?, ?)",
			w.WorkID, w.TaskID, w.UserID, w.Date, w.Time); err != nil {
			return fmt.Errorf("insert work: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return w, nil
}

func (s *Store) GetWork(ctx context.Context, id string) (*Work, error) {
	var w Work
	err := s.db.QueryRowContext(ctx,
		"SELECT work_id, task_id, user_id, date, time FROM works WHERE work_id = ?", id,
	).Scan(&w.WorkID, &w.TaskID, &w.UserID, &w.Date, &w.Time)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan work: %w", err)
	}
	return &w, nil
}

func (s *Store) ListWorks(ctx context.Context, taskID string) ([]Work, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT work_id, task_id, user_id, date, time FROM works WHERE task_id = ? ORDER BY date", taskID)
	if err != nil {
		return nil, fmt.Errorf("query works: %w", err)
	}
	defer rows.Close()

	var works []Work
	for rows.Next() {
		var w Work
		if err := rows.Scan(&w.WorkID, &w.TaskID, &w.UserID, &w.Date, &w.Time); err != nil {
			return nil, fmt.Errorf("scan work: %w", err)
		}
		works = append(works, w)
	}
	return works, rows.Err()
}

// UpdateWork changes the time spent. Authorship checks happen in the handler.
func (s *Store) UpdateWork(ctx context.Context, id string, time float64) (*Work, error) {
	res, err := s.db.ExecContext(ctx, "UPDATE works SET time = ? WHERE work_id = ?", time, id)
	if err != nil {
		return nil, fmt.Errorf("update work: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrNotFound
	}
	return s.GetWork(ctx, id)
}

func (s *Store) DeleteWork(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM works WHERE work_id = ?", id)
	if err != nil {
		return fmt.Errorf("delete work: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
