package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"scrumboard/internal/models"
)

const subtaskColumns = `id, story_id, description, time_required, assignee, priority, finished, rejected, accepted, created_at, updated_at`

func scanSubtask(row scanner) (models.Subtask, error) {
	var (
		st       models.Subtask
		assignee sql.NullInt64
		rejected sql.NullBool
	)
	err := row.Scan(&st.ID, &st.StoryID, &st.Description, &st.TimeRequired, &assignee, &st.Priority, &st.Finished, &rejected, &st.Accepted,
		&st.CreatedAt, &st.UpdatedAt)
	if err != nil {
		return models.Subtask{}, err
	}
	st.Assignee = intPtr(assignee)
	st.Rejected = boolPtr(rejected)
	return st, nil
}

// CreateSubtask inserts a subtask under its story.
func (q *Queries) CreateSubtask(ctx context.Context, st models.Subtask) (models.Subtask, error) {
	res, err := q.db.ExecContext(ctx, `INSERT INTO subtasks(story_id, description, time_required, assignee, priority, finished, rejected, accepted)
        VALUES(?, ?, ?, ?, ?, ?, ?, ?)`,
		st.StoryID, st.Description, st.TimeRequired, nullInt(st.Assignee), st.Priority, st.Finished, nullBool(st.Rejected), st.Accepted)
	if err != nil {
		return models.Subtask{}, wrapDBError("insert subtask", err)
	}
	id, err := lastID(res, "subtask")
	if err != nil {
		return models.Subtask{}, err
	}
	return q.GetSubtask(ctx, id)
}

// GetSubtask fetches a subtask by id.
func (q *Queries) GetSubtask(ctx context.Context, id int64) (models.Subtask, error) {
	st, err := scanSubtask(q.db.QueryRowContext(ctx, `SELECT `+subtaskColumns+` FROM subtasks WHERE id = ?`, id))
	if isNoRows(err) {
		return models.Subtask{}, notFound("subtask")
	}
	if err != nil {
		return models.Subtask{}, fmt.Errorf("get subtask: %w", err)
	}
	return st, nil
}

// ListSubtasks returns the subtasks of a story, most important first.
func (q *Queries) ListSubtasks(ctx context.Context, storyID int64) ([]models.Subtask, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT `+subtaskColumns+` FROM subtasks WHERE story_id = ? ORDER BY priority DESC, id`, storyID)
	if err != nil {
		return nil, fmt.Errorf("list subtasks: %w", err)
	}
	defer rows.Close()

	subtasks := []models.Subtask{}
	for rows.Next() {
		st, err := scanSubtask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan subtask: %w", err)
		}
		subtasks = append(subtasks, st)
	}
	return subtasks, rows.Err()
}

// UpdateSubtask writes every mutable subtask column.
func (q *Queries) UpdateSubtask(ctx context.Context, st models.Subtask) error {
	res, err := q.db.ExecContext(ctx, `UPDATE subtasks SET description = ?, time_required = ?, assignee = ?, priority = ?, finished = ?,
        rejected = ?, accepted = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		st.Description, st.TimeRequired, nullInt(st.Assignee), st.Priority, st.Finished, nullBool(st.Rejected), st.Accepted, st.ID)
	if err != nil {
		return wrapDBError("update subtask", err)
	}
	return requireAffected(res, "subtask")
}

// DeleteSubtask removes a subtask with its history and logs.
func (q *Queries) DeleteSubtask(ctx context.Context, id int64) error {
	res, err := q.db.ExecContext(ctx, `DELETE FROM subtasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete subtask: %w", err)
	}
	return requireAffected(res, "subtask")
}

// AddHistory appends an assignment audit row.
func (q *Queries) AddHistory(ctx context.Context, h models.TaskHistory) error {
	_, err := q.db.ExecContext(ctx, `INSERT INTO task_history(subtask_id, previous_assignee, new_assignee, action, performed_by, created_at)
        VALUES(?, ?, ?, ?, ?, ?)`,
		h.SubtaskID, nullInt(h.PreviousAssignee), nullInt(h.NewAssignee), h.Action, h.PerformedBy, h.CreatedAt.UTC())
	if err != nil {
		return wrapDBError("insert task history", err)
	}
	return nil
}

// ListHistory returns the assignment history of a subtask, oldest first.
func (q *Queries) ListHistory(ctx context.Context, subtaskID int64) ([]models.TaskHistory, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT id, subtask_id, previous_assignee, new_assignee, action, performed_by, created_at
        FROM task_history WHERE subtask_id = ? ORDER BY created_at, id`, subtaskID)
	if err != nil {
		return nil, fmt.Errorf("list task history: %w", err)
	}
	defer rows.Close()

	history := []models.TaskHistory{}
	for rows.Next() {
		var (
			h          models.TaskHistory
			prev, next sql.NullInt64
		)
		if err := rows.Scan(&h.ID, &h.SubtaskID, &prev, &next, &h.Action, &h.PerformedBy, &h.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan task history: %w", err)
		}
		h.PreviousAssignee = intPtr(prev)
		h.NewAssignee = intPtr(next)
		history = append(history, h)
	}
	return history, rows.Err()
}
