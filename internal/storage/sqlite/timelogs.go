package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"scrumboard/internal/models"
)

const timeLogColumns = `id, task_id, user_id, date, start_time, end_time, duration, estimated_remaining`

func scanTimeLog(row scanner) (models.TimeLog, error) {
	var (
		l          models.TimeLog
		date       string
		start, end sql.NullTime
		remaining  sql.NullFloat64
	)
	if err := row.Scan(&l.ID, &l.TaskID, &l.UserID, &date, &start, &end, &l.Duration, &remaining); err != nil {
		return models.TimeLog{}, err
	}
	d, err := parseDate(date)
	if err != nil {
		return models.TimeLog{}, err
	}
	l.Date = d
	l.StartTime = timePtr(start)
	l.EndTime = timePtr(end)
	l.EstimatedRemaining = floatPtr(remaining)
	return l, nil
}

// CreateTimeLog inserts a log. The unique indexes reject a second log for
// the same day and a second open log for the same user.
func (q *Queries) CreateTimeLog(ctx context.Context, l models.TimeLog) (models.TimeLog, error) {
	res, err := q.db.ExecContext(ctx, `INSERT INTO task_time_logs(task_id, user_id, date, start_time, end_time, duration, estimated_remaining)
        VALUES(?, ?, ?, ?, ?, ?, ?)`,
		l.TaskID, l.UserID, formatDate(l.Date), nullTime(l.StartTime), nullTime(l.EndTime), l.Duration, nullFloat(l.EstimatedRemaining))
	if err != nil {
		return models.TimeLog{}, wrapDBError("insert time log", err)
	}
	id, err := lastID(res, "time log")
	if err != nil {
		return models.TimeLog{}, err
	}
	return q.GetTimeLog(ctx, id)
}

// GetTimeLog fetches a log by id.
func (q *Queries) GetTimeLog(ctx context.Context, id int64) (models.TimeLog, error) {
	l, err := scanTimeLog(q.db.QueryRowContext(ctx, `SELECT `+timeLogColumns+` FROM task_time_logs WHERE id = ?`, id))
	if isNoRows(err) {
		return models.TimeLog{}, notFound("time log")
	}
	if err != nil {
		return models.TimeLog{}, fmt.Errorf("get time log: %w", err)
	}
	return l, nil
}

// UpdateTimeLog writes the tracking columns of a log.
func (q *Queries) UpdateTimeLog(ctx context.Context, l models.TimeLog) error {
	res, err := q.db.ExecContext(ctx, `UPDATE task_time_logs SET start_time = ?, end_time = ?, duration = ?, estimated_remaining = ? WHERE id = ?`,
		nullTime(l.StartTime), nullTime(l.EndTime), l.Duration, nullFloat(l.EstimatedRemaining), l.ID)
	if err != nil {
		return wrapDBError("update time log", err)
	}
	return requireAffected(res, "time log")
}

// DeleteTimeLog removes a log by id.
func (q *Queries) DeleteTimeLog(ctx context.Context, id int64) error {
	res, err := q.db.ExecContext(ctx, `DELETE FROM task_time_logs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete time log: %w", err)
	}
	return requireAffected(res, "time log")
}

// ListTimeLogs returns the logs of a task, most recent date first.
func (q *Queries) ListTimeLogs(ctx context.Context, taskID int64) ([]models.TimeLog, error) {
	return q.queryTimeLogs(ctx, `SELECT `+timeLogColumns+` FROM task_time_logs WHERE task_id = ? ORDER BY date DESC, id DESC`, taskID)
}

// OpenTimeLogs returns the logs the user is tracking right now.
func (q *Queries) OpenTimeLogs(ctx context.Context, userID int64) ([]models.TimeLog, error) {
	return q.queryTimeLogs(ctx, `SELECT `+timeLogColumns+` FROM task_time_logs
        WHERE user_id = ? AND start_time IS NOT NULL AND end_time IS NULL ORDER BY id`, userID)
}

// FindTimeLog returns the user's log for a task on a date, or nil.
func (q *Queries) FindTimeLog(ctx context.Context, userID, taskID int64, date time.Time) (*models.TimeLog, error) {
	l, err := scanTimeLog(q.db.QueryRowContext(ctx, `SELECT `+timeLogColumns+` FROM task_time_logs
        WHERE user_id = ? AND task_id = ? AND date = ?`, userID, taskID, formatDate(date)))
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find time log: %w", err)
	}
	return &l, nil
}

func (q *Queries) queryTimeLogs(ctx context.Context, query string, args ...any) ([]models.TimeLog, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list time logs: %w", err)
	}
	defer rows.Close()

	logs := []models.TimeLog{}
	for rows.Next() {
		l, err := scanTimeLog(rows)
		if err != nil {
			return nil, fmt.Errorf("scan time log: %w", err)
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}
