package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const taskColumns = "id, video_id, kind, status, priority, retries, created_at, started_at, completed_at, error_message, result_data"

// NewTaskRecord inserts a pending audit row for a stage about to run
// against a video.
func (s *Store) NewTaskRecord(ctx context.Context, videoID int64, kind, priority string) (*TaskRecord, error) {
	if kind == "" {
		return nil, errors.New("task kind is required")
	}
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)

	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO task_records (video_id, kind, status, priority, retries, created_at)
         VALUES (?, ?, ?, ?, 0, ?)`,
		videoID,
		kind,
		TaskPending,
		priority,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert task record: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	return s.GetTaskRecord(ctx, id)
}

// GetTaskRecord fetches a task record by identifier. A missing row
// returns nil without an error.
func (s *Store) GetTaskRecord(ctx context.Context, id int64) (*TaskRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM task_records WHERE id = ?`, id)
	record, err := scanTaskRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get task record: %w", err)
	}
	return record, nil
}

// StartTask transitions a pending record to in-progress and stamps the
// start time. Restarting an already started record is rejected.
func (s *Store) StartTask(ctx context.Context, id int64) error {
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.execWithRetry(
		ctx,
		`UPDATE task_records SET status = ?, started_at = ? WHERE id = ? AND status = ?`,
		TaskInProgress,
		timestamp,
		id,
		TaskPending,
	)
	if err != nil {
		return fmt.Errorf("start task: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("task %d is not pending", id)
	}
	return nil
}

// CompleteTask marks a record completed with optional result payload.
func (s *Store) CompleteTask(ctx context.Context, id int64, resultData string) error {
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE task_records SET status = ?, completed_at = ?, result_data = ?, error_message = NULL WHERE id = ?`,
		TaskCompleted,
		timestamp,
		nullableString(resultData),
		id,
	); err != nil {
		return fmt.Errorf("complete task: %w", err)
	}
	return nil
}

// FailTask marks a record failed and stores the failure message.
func (s *Store) FailTask(ctx context.Context, id int64, message string) error {
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE task_records SET status = ?, completed_at = ?, error_message = ? WHERE id = ?`,
		TaskFailed,
		timestamp,
		nullableString(message),
		id,
	); err != nil {
		return fmt.Errorf("fail task: %w", err)
	}
	return nil
}

// RestartTask returns a failed record to in-progress for another attempt,
// bumping its retry counter and clearing the previous failure.
func (s *Store) RestartTask(ctx context.Context, id int64) error {
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.execWithRetry(
		ctx,
		`UPDATE task_records
         SET status = ?, started_at = ?, completed_at = NULL, error_message = NULL, retries = retries + 1
         WHERE id = ? AND status = ?`,
		TaskInProgress,
		timestamp,
		id,
		TaskFailed,
	)
	if err != nil {
		return fmt.Errorf("restart task: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("task %d is not failed", id)
	}
	return nil
}

// IncrementRetries bumps the retry counter for a record and returns the
// resulting count.
func (s *Store) IncrementRetries(ctx context.Context, id int64) (int, error) {
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE task_records SET retries = retries + 1 WHERE id = ?`,
		id,
	); err != nil {
		return 0, fmt.Errorf("increment retries: %w", err)
	}
	var retries int
	if err := s.db.QueryRowContext(ctx, `SELECT retries FROM task_records WHERE id = ?`, id).Scan(&retries); err != nil {
		return 0, fmt.Errorf("read retries: %w", err)
	}
	return retries, nil
}

// DeleteFailedTasks removes all failed task records and reports how many
// rows were deleted.
func (s *Store) DeleteFailedTasks(ctx context.Context) (int64, error) {
	result, err := s.execWithRetry(
		ctx,
		`DELETE FROM task_records WHERE status = ?`,
		string(TaskFailed),
	)
	if err != nil {
		return 0, fmt.Errorf("delete failed tasks: %w", err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("count deleted tasks: %w", err)
	}
	return deleted, nil
}

// TasksForVideo returns all task records for a video, oldest first.
func (s *Store) TasksForVideo(ctx context.Context, videoID int64) ([]*TaskRecord, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+taskColumns+` FROM task_records WHERE video_id = ? ORDER BY id`,
		videoID,
	)
	if err != nil {
		return nil, fmt.Errorf("query tasks for video: %w", err)
	}
	return collectTaskRecords(rows)
}

// RecentTasks returns the latest task records across all videos, newest
// first, capped at limit.
func (s *Store) RecentTasks(ctx context.Context, limit int) ([]*TaskRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+taskColumns+` FROM task_records ORDER BY id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query recent tasks: %w", err)
	}
	return collectTaskRecords(rows)
}

// TaskHealth aggregates task counts per lifecycle state.
func (s *Store) TaskHealth(ctx context.Context) (HealthSummary, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM task_records GROUP BY status`)
	if err != nil {
		return HealthSummary{}, fmt.Errorf("query task health: %w", err)
	}
	defer rows.Close()

	var summary HealthSummary
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return HealthSummary{}, fmt.Errorf("scan task health: %w", err)
		}
		summary.Total += count
		switch TaskStatus(status) {
		case TaskPending:
			summary.Pending = count
		case TaskInProgress:
			summary.InProgress = count
		case TaskCompleted:
			summary.Completed = count
		case TaskFailed:
			summary.Failed = count
		}
	}
	if err := rows.Err(); err != nil {
		return HealthSummary{}, fmt.Errorf("iterate task health: %w", err)
	}
	return summary, nil
}

func collectTaskRecords(rows *sql.Rows) ([]*TaskRecord, error) {
	defer rows.Close()
	var records []*TaskRecord
	for rows.Next() {
		record, err := scanTaskRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task record: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate task records: %w", err)
	}
	return records, nil
}

func scanTaskRecord(scanner interface{ Scan(dest ...any) error }) (*TaskRecord, error) {
	var (
		id           int64
		videoID      int64
		kind         string
		statusStr    string
		priority     string
		retries      int
		createdRaw   string
		startedRaw   sql.NullString
		completedRaw sql.NullString
		errorMessage sql.NullString
		resultData   sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&videoID,
		&kind,
		&statusStr,
		&priority,
		&retries,
		&createdRaw,
		&startedRaw,
		&completedRaw,
		&errorMessage,
		&resultData,
	); err != nil {
		return nil, err
	}

	record := &TaskRecord{
		ID:           id,
		VideoID:      videoID,
		Kind:         kind,
		Status:       TaskStatus(statusStr),
		Priority:     priority,
		Retries:      retries,
		CreatedAt:    parseTimestamp(createdRaw),
		ErrorMessage: errorMessage.String,
		ResultData:   resultData.String,
	}
	if startedRaw.Valid {
		ts := parseTimestamp(startedRaw.String)
		record.StartedAt = &ts
	}
	if completedRaw.Valid {
		ts := parseTimestamp(completedRaw.String)
		record.CompletedAt = &ts
	}
	return record, nil
}
