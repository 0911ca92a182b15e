package store

import (
	"context"
	"fmt"
	"time"
)

// RecoverySummary reports how many rows the startup sweep touched.
type RecoverySummary struct {
	TasksFailed int64
	ItemsFailed int64
}

// RecoverInterrupted sweeps tasks that were running when the process stopped.
// Running tasks are marked failed and their in-flight items recorded as
// failures with an explanatory message. Pending items are left untouched so
// the task can later be resumed.
func (s *Store) RecoverInterrupted(ctx context.Context) (RecoverySummary, error) {
	var summary RecoverySummary
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return summary, fmt.Errorf("begin recovery tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	rows, err := tx.QueryContext(ctx, `SELECT id FROM tasks WHERE status = ?`, TaskRunning)
	if err != nil {
		return summary, fmt.Errorf("find running tasks: %w", err)
	}
	var taskIDs []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return summary, fmt.Errorf("scan running task: %w", err)
		}
		taskIDs = append(taskIDs, id)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return summary, err
	}
	rows.Close()

	for _, taskID := range taskIDs {
		res, err := tx.ExecContext(
			ctx,
			`UPDATE work_items SET status = ?, message = ?, updated_at = ? WHERE task_id = ? AND status = ?`,
			ItemFailed,
			InterruptedMessage,
			timestamp,
			taskID,
			ItemRunning,
		)
		if err != nil {
			return summary, fmt.Errorf("fail interrupted items: %w", err)
		}
		failed, err := res.RowsAffected()
		if err != nil {
			return summary, fmt.Errorf("rows affected: %w", err)
		}
		summary.ItemsFailed += failed

		if _, err := tx.ExecContext(
			ctx,
			`UPDATE tasks SET status = ?, failed_count = failed_count + ?, updated_at = ? WHERE id = ?`,
			TaskFailed,
			failed,
			timestamp,
			taskID,
		); err != nil {
			return summary, fmt.Errorf("fail interrupted task: %w", err)
		}
		summary.TasksFailed++
	}

	if err := tx.Commit(); err != nil {
		return summary, fmt.Errorf("commit recovery: %w", err)
	}
	return summary, nil
}
