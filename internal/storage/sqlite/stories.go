package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"scrumboard/internal/lifecycle"
	"scrumboard/internal/models"
)

const storyColumns = `id, project_id, title, description, tests, priority, business_value, time_required, sprint_id,
    active, finished, rejected, rejected_description, rejected_time_required, created_at, updated_at`

func scanStory(row scanner) (models.Story, error) {
	var (
		s                              models.Story
		timeRequired, rejectedRequired sql.NullFloat64
		sprintID                       sql.NullInt64
	)
	err := row.Scan(&s.ID, &s.ProjectID, &s.Title, &s.Description, &s.Tests, &s.Priority, &s.BusinessValue, &timeRequired, &sprintID,
		&s.Active, &s.Finished, &s.Rejected, &s.RejectedDescription, &rejectedRequired, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return models.Story{}, err
	}
	s.TimeRequired = floatPtr(timeRequired)
	s.SprintID = intPtr(sprintID)
	s.RejectedTimeRequired = floatPtr(rejectedRequired)
	return s, nil
}

// CreateStory inserts a backlog story.
func (q *Queries) CreateStory(ctx context.Context, s models.Story) (models.Story, error) {
	res, err := q.db.ExecContext(ctx, `INSERT INTO stories(project_id, title, title_key, description, tests, priority, business_value, time_required, sprint_id)
        VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ProjectID, s.Title, lifecycle.NormalizeTitle(s.Title), s.Description, s.Tests, s.Priority, s.BusinessValue,
		nullFloat(s.TimeRequired), nullInt(s.SprintID))
	if err != nil {
		return models.Story{}, wrapDBError("insert story", err)
	}
	id, err := lastID(res, "story")
	if err != nil {
		return models.Story{}, err
	}
	return q.GetStory(ctx, id)
}

// GetStory fetches a story by id.
func (q *Queries) GetStory(ctx context.Context, id int64) (models.Story, error) {
	s, err := scanStory(q.db.QueryRowContext(ctx, `SELECT `+storyColumns+` FROM stories WHERE id = ?`, id))
	if isNoRows(err) {
		return models.Story{}, notFound("story")
	}
	if err != nil {
		return models.Story{}, fmt.Errorf("get story: %w", err)
	}
	return s, nil
}

// ListStories returns the stories of a project, highest priority first.
func (q *Queries) ListStories(ctx context.Context, projectID int64) ([]models.Story, error) {
	return q.queryStories(ctx, `SELECT `+storyColumns+` FROM stories WHERE project_id = ? ORDER BY priority DESC, business_value DESC, id`, projectID)
}

// ListSprintStories returns the stories assigned to a sprint.
func (q *Queries) ListSprintStories(ctx context.Context, sprintID int64) ([]models.Story, error) {
	return q.queryStories(ctx, `SELECT `+storyColumns+` FROM stories WHERE sprint_id = ? ORDER BY priority DESC, id`, sprintID)
}

func (q *Queries) queryStories(ctx context.Context, query string, args ...any) ([]models.Story, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list stories: %w", err)
	}
	defer rows.Close()

	stories := []models.Story{}
	for rows.Next() {
		s, err := scanStory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan story: %w", err)
		}
		stories = append(stories, s)
	}
	return stories, rows.Err()
}

// UpdateStory writes every mutable story column.
func (q *Queries) UpdateStory(ctx context.Context, s models.Story) error {
	res, err := q.db.ExecContext(ctx, `UPDATE stories SET title = ?, title_key = ?, description = ?, tests = ?, priority = ?, business_value = ?,
        time_required = ?, sprint_id = ?, active = ?, finished = ?, rejected = ?, rejected_description = ?, rejected_time_required = ?,
        updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		s.Title, lifecycle.NormalizeTitle(s.Title), s.Description, s.Tests, s.Priority, s.BusinessValue,
		nullFloat(s.TimeRequired), nullInt(s.SprintID), s.Active, s.Finished, s.Rejected, s.RejectedDescription, nullFloat(s.RejectedTimeRequired),
		s.ID)
	if err != nil {
		return wrapDBError("update story", err)
	}
	return requireAffected(res, "story")
}

// DeleteStory removes a story and, through the foreign key, its subtasks.
func (q *Queries) DeleteStory(ctx context.Context, id int64) error {
	res, err := q.db.ExecContext(ctx, `DELETE FROM stories WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete story: %w", err)
	}
	return requireAffected(res, "story")
}
