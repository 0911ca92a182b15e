package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const taskColumns = "id, task_code, name, status, total_accounts, success_count, failed_count, total_balance, created_at, updated_at"

// NewTaskInput describes a credential to enroll when creating a task.
type NewTaskInput struct {
	AccountCode string
	Email       string
	Password    string
}

// CreateTask inserts a task plus one pending work item per credential in a
// single transaction.
func (s *Store) CreateTask(ctx context.Context, taskCode, name string, inputs []NewTaskInput) (*Task, error) {
	if len(inputs) == 0 {
		return nil, errors.New("task requires at least one account")
	}
	now := time.Now().UTC()
	timestamp := now.Format(time.RFC3339Nano)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin create task tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	res, err := tx.ExecContext(
		ctx,
		`INSERT INTO tasks (task_code, name, status, total_accounts, success_count, failed_count, total_balance, created_at, updated_at)
         VALUES (?, ?, ?, ?, 0, 0, 0, ?, ?)`,
		taskCode,
		name,
		TaskPending,
		len(inputs),
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert task: %w", err)
	}
	taskID, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	for _, input := range inputs {
		if _, err := tx.ExecContext(
			ctx,
			`INSERT INTO work_items (task_id, account_code, email, password, status, created_at, updated_at)
             VALUES (?, ?, ?, ?, ?, ?, ?)`,
			taskID,
			input.AccountCode,
			input.Email,
			input.Password,
			ItemPending,
			timestamp,
			timestamp,
		); err != nil {
			return nil, fmt.Errorf("insert work item: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit create task: %w", err)
	}

	return s.TaskByID(ctx, taskID)
}

// TaskByID fetches a task by identifier. Returns nil when no task exists.
func (s *Store) TaskByID(ctx context.Context, id int64) (*Task, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)
	task, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	return task, nil
}

// TaskByCode fetches a task by its external task code.
func (s *Store) TaskByCode(ctx context.Context, taskCode string) (*Task, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE task_code = ?`, taskCode)
	task, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get task by code: %w", err)
	}
	return task, nil
}

// UpdateTask persists changes to an existing task.
func (s *Store) UpdateTask(ctx context.Context, task *Task) error {
	if task == nil {
		return errors.New("task is nil")
	}
	task.UpdatedAt = time.Now().UTC()
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE tasks
         SET name = ?, status = ?, total_accounts = ?, success_count = ?,
             failed_count = ?, total_balance = ?, updated_at = ?
         WHERE id = ?`,
		task.Name,
		task.Status,
		task.TotalAccounts,
		task.SuccessCount,
		task.FailedCount,
		task.TotalBalance,
		task.UpdatedAt.Format(time.RFC3339Nano),
		task.ID,
	)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	return nil
}

// ListTasks returns one page of tasks, newest first, plus the total count
// matching the optional status filter.
func (s *Store) ListTasks(ctx context.Context, page, pageSize int, status TaskStatus) ([]*Task, int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 10
	}

	countQuery := `SELECT COUNT(1) FROM tasks`
	listQuery := `SELECT ` + taskColumns + ` FROM tasks`
	var args []any
	if status != "" {
		countQuery += ` WHERE status = ?`
		listQuery += ` WHERE status = ?`
		args = append(args, status)
	}
	listQuery += ` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`

	var total int
	if err := s.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count tasks: %w", err)
	}

	listArgs := append(args, pageSize, (page-1)*pageSize)
	rows, err := s.db.QueryContext(ctx, listQuery, listArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, 0, err
		}
		tasks = append(tasks, task)
	}
	return tasks, total, rows.Err()
}

// IncompleteTasks returns tasks whose stored work items fall short of their
// declared account total, ordered by identifier.
func (s *Store) IncompleteTasks(ctx context.Context) ([]*IncompleteTask, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT t.id, t.task_code, t.name, t.status, t.total_accounts, COUNT(w.id)
        FROM tasks t
        LEFT JOIN work_items w ON w.task_id = t.id
        GROUP BY t.id
        HAVING COUNT(w.id) < t.total_accounts
        ORDER BY t.id`)
	if err != nil {
		return nil, fmt.Errorf("incomplete tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*IncompleteTask
	for rows.Next() {
		var task IncompleteTask
		var statusStr string
		if err := rows.Scan(&task.ID, &task.TaskCode, &task.Name, &statusStr, &task.TotalAccounts, &task.ActualItems); err != nil {
			return nil, fmt.Errorf("scan incomplete task: %w", err)
		}
		task.Status = TaskStatus(statusStr)
		task.Missing = task.TotalAccounts - task.ActualItems
		tasks = append(tasks, &task)
	}
	return tasks, rows.Err()
}

// DeleteTask removes a task and, via cascade, its work items.
func (s *Store) DeleteTask(ctx context.Context, id int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete task: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// TaskCount returns the total number of tasks.
func (s *Store) TaskCount(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM tasks`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count tasks: %w", err)
	}
	return count, nil
}

// Stats aggregates outcomes across all tasks. TotalBalance reports the
// largest accumulated balance across tasks, which tracks the balance of the
// most recent full sweep over the account pool.
func (s *Store) Stats(ctx context.Context) (Statistics, error) {
	var stats Statistics
	row := s.db.QueryRowContext(
		ctx,
		`SELECT COUNT(1),
                COALESCE(SUM(total_accounts), 0),
                COALESCE(SUM(success_count), 0),
                COALESCE(SUM(failed_count), 0),
                COALESCE(MAX(total_balance), 0)
         FROM tasks`,
	)
	if err := row.Scan(&stats.TotalTasks, &stats.TotalAccounts, &stats.SuccessCount, &stats.FailedCount, &stats.TotalBalance); err != nil {
		return Statistics{}, fmt.Errorf("task stats: %w", err)
	}
	if resolved := stats.SuccessCount + stats.FailedCount; resolved > 0 {
		stats.SuccessRate = float64(stats.SuccessCount) / float64(resolved) * 100
	}
	return stats, nil
}

func scanTask(scanner interface{ Scan(dest ...any) error }) (*Task, error) {
	var (
		task       Task
		statusStr  string
		createdRaw string
		updatedRaw string
	)
	if err := scanner.Scan(
		&task.ID,
		&task.TaskCode,
		&task.Name,
		&statusStr,
		&task.TotalAccounts,
		&task.SuccessCount,
		&task.FailedCount,
		&task.TotalBalance,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}
	task.Status = TaskStatus(statusStr)
	if created, err := parseTimeString(createdRaw); err == nil {
		task.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		task.UpdatedAt = updated
	}
	return &task, nil
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}
