package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

type Task struct {
	TaskID    string  `json:"task_id"`
	Name      string  `json:"name"`
	Desc      string  `json:"desc"`
	DueDate   string  `json:"due_date"`
	InitDate  string  `json:"init_date"`
	Expected  float64 `json:"expected"`
	Progress  int     `json:"progress"`
	ProjectID string  `json:"project_id"`
}

type TaskInput struct {
	Name     string
	Desc     string
	DueDate  string
	InitDate string
	Expected float64
	Progress int
}

// TaskPatch carries a partial update; nil fields are left untouched.
type TaskPatch struct {
	Name     *string
	Desc     *string
	DueDate  *string
	InitDate *string
	Expected *float64
	Progress *int
}

func (s *Store) CreateTask(ctx context.Context, projectID string, input TaskInput) (*Task, error) {
	t := &Task{
		TaskID:    uuid.NewString(),
		Name:      input.Name,
		Desc:      input.Desc,
		DueDate:   input.DueDate,
		InitDate:  input.InitDate,
		Expected:  input.Expected,
		Progress:  input.Progress,
		ProjectID: projectID,
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tasks (task_id, name, description, due_date, init_date, expected, progress, project_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.TaskID, t.Name, t.Desc, t.DueDate, t.InitDate, t.Expected, t.Progress, t.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("insert task: %w", err)
	}
	return t, nil
}

func (s *Store) GetTask(ctx context.Context, id string) (*Task, error) {
	var t Task
	err := s.db.QueryRowContext(ctx, `
		SELECT task_id, name, description, due_date, init_date, expected, progress, project_id
		FROM tasks WHERE task_id = ?`, id,
	).Scan(&t.TaskID, &t.Name, &t.Desc, &t.DueDate, &t.InitDate, &t.Expected, &t.Progress, &t.ProjectID)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan task: %w", err)
	}
	return &t, nil
}

func (s *Store) ListTasks(ctx context.Context, projectID string) ([]Task, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT task_id, name, description, due_date, init_date, expected, progress, project_id
		FROM tasks WHERE project_id = ? ORDER BY name`, projectID)
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	defer rows.Close()

	var tasks []Task
	for rows.Next() {
		var t Task
		if err := rows.Scan(&t.TaskID, &t.Name, &t.Desc, &t.DueDate, &t.InitDate,
			&t.Expected, &t.Progress, &t.ProjectID); err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func (s *Store) UpdateTask(ctx context.Context, id string, patch TaskPatch) (*Task, error) {
	t, err := s.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}
	if patch.Name != nil {
		t.Name = *patch.Name
	}
	if patch.Desc != nil {
		t.Desc = *patch.Desc
	}
	if patch.DueDate != nil {
		t.DueDate = *patch.DueDate
	}
	if patch.InitDate != nil {
		t.InitDate = *patch.InitDate
	}
	if patch.Expected != nil {
		t.Expected = *patch.Expected
	}
	if patch.Progress != nil {
		t.Progress = *patch.Progress
	}
	_, err = s.db.ExecContext(ctx, `
		UPDATE tasks SET name = ?, description = ?, due_date = ?, init_date = ?, expected = ?, progress = ?
		WHERE task_id = ?`,
		t.Name, t.Desc, t.DueDate, t.InitDate, t.Expected, t.Progress, t.TaskID)
	if err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}
	return t, nil
}

// DeleteTask removes the task; its works go with it via FK cascade.
func (s *Store) DeleteTask(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM tasks WHERE task_id = ?", id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
