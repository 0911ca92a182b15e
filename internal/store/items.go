package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const itemColumns = "id, task_id, account_code, email, password, status, balance, message, screenshot, attempt_count, created_at, updated_at"

// ItemByID fetches a work item by identifier. Returns nil when no item exists.
func (s *Store) ItemByID(ctx context.Context, id int64) (*WorkItem, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM work_items WHERE id = ?`, id)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get work item: %w", err)
	}
	return item, nil
}

// ItemsByTask returns every work item for a task ordered by identifier.
func (s *Store) ItemsByTask(ctx context.Context, taskID int64) ([]*WorkItem, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+itemColumns+` FROM work_items WHERE task_id = ? ORDER BY id`, taskID)
	if err != nil {
		return nil, fmt.Errorf("items by task: %w", err)
	}
	defer rows.Close()
	return collectItems(rows)
}

// ItemsByTaskAndStatus returns work items for a task matching any of the
// provided statuses, ordered by identifier.
func (s *Store) ItemsByTaskAndStatus(ctx context.Context, taskID int64, statuses ...ItemStatus) ([]*WorkItem, error) {
	if len(statuses) == 0 {
		return s.ItemsByTask(ctx, taskID)
	}
	placeholders := makePlaceholders(len(statuses))
	args := make([]any, 0, len(statuses)+1)
	args = append(args, taskID)
	for _, status := range statuses {
		args = append(args, status)
	}
	query := `SELECT ` + itemColumns + ` FROM work_items WHERE task_id = ? AND status IN (` + placeholders + `) ORDER BY id`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("items by task and status: %w", err)
	}
	defer rows.Close()
	return collectItems(rows)
}

// LatestResolvedItem returns the most recently updated item with a final
// outcome, or nil when no item has resolved yet.
func (s *Store) LatestResolvedItem(ctx context.Context, taskID int64) (*WorkItem, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+itemColumns+` FROM work_items
         WHERE task_id = ? AND status IN (?, ?)
         ORDER BY updated_at DESC, id DESC LIMIT 1`,
		taskID,
		ItemSuccess,
		ItemFailed,
	)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest resolved item: %w", err)
	}
	return item, nil
}

// UpdateItem persists changes to an existing work item.
func (s *Store) UpdateItem(ctx context.Context, item *WorkItem) error {
	if item == nil {
		return errors.New("item is nil")
	}
	item.UpdatedAt = time.Now().UTC()
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE work_items
         SET account_code = ?, email = ?, password = ?, status = ?,
             balance = ?, message = ?, screenshot = ?, attempt_count = ?, updated_at = ?
         WHERE id = ?`,
		item.AccountCode,
		item.Email,
		item.Password,
		item.Status,
		nullableFloat(item.Balance),
		nullableString(item.Message),
		nullableString(item.Screenshot),
		item.AttemptCount,
		item.UpdatedAt.Format(time.RFC3339Nano),
		item.ID,
	)
	if err != nil {
		return fmt.Errorf("update work item: %w", err)
	}
	return nil
}

// ResetItemsForRetry moves the given items back to pending and clears any
// prior outcome so the next run starts clean.
func (s *Store) ResetItemsForRetry(ctx context.Context, ids ...int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	placeholders := makePlaceholders(len(ids))
	args := make([]any, 0, len(ids)+2)
	args = append(args, ItemPending, time.Now().UTC().Format(time.RFC3339Nano))
	for _, id := range ids {
		args = append(args, id)
	}
	query := `UPDATE work_items
        SET status = ?, balance = NULL, message = NULL, screenshot = NULL, updated_at = ?
        WHERE id IN (` + placeholders + `)`
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("reset items for retry: %w", err)
	}
	return res.RowsAffected()
}

// AddItem appends a pending work item to an existing task.
func (s *Store) AddItem(ctx context.Context, taskID int64, input NewTaskInput) (*WorkItem, error) {
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.db.ExecContext(
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
	)
	if err != nil {
		return nil, fmt.Errorf("insert work item: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.ItemByID(ctx, id)
}

func collectItems(rows *sql.Rows) ([]*WorkItem, error) {
	var items []*WorkItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func scanItem(scanner interface{ Scan(dest ...any) error }) (*WorkItem, error) {
	var (
		item       WorkItem
		statusStr  string
		balance    sql.NullFloat64
		message    sql.NullString
		screenshot sql.NullString
		createdRaw string
		updatedRaw string
	)
	if err := scanner.Scan(
		&item.ID,
		&item.TaskID,
		&item.AccountCode,
		&item.Email,
		&item.Password,
		&statusStr,
		&balance,
		&message,
		&screenshot,
		&item.AttemptCount,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}
	item.Status = ItemStatus(statusStr)
	if balance.Valid {
		value := balance.Float64
		item.Balance = &value
	}
	item.Message = message.String
	item.Screenshot = screenshot.String
	if created, err := parseTimeString(createdRaw); err == nil {
		item.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		item.UpdatedAt = updated
	}
	return &item, nil
}
