package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"scrumboard/internal/models"
)

const sprintColumns = `id, project_id, title, start_date, finish_date, velocity, active, created_at, updated_at`

func scanSprint(row scanner) (models.Sprint, error) {
	var (
		s             models.Sprint
		start, finish string
		active        sql.NullBool
	)
	if err := row.Scan(&s.ID, &s.ProjectID, &s.Title, &start, &finish, &s.Velocity, &active, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return models.Sprint{}, err
	}
	var err error
	if s.StartDate, err = parseDate(start); err != nil {
		return models.Sprint{}, err
	}
	if s.FinishDate, err = parseDate(finish); err != nil {
		return models.Sprint{}, err
	}
	s.Active = boolPtr(active)
	return s, nil
}

// CreateSprint inserts a sprint. Titles are assigned by renumbering
// afterwards.
func (q *Queries) CreateSprint(ctx context.Context, s models.Sprint) (models.Sprint, error) {
	res, err := q.db.ExecContext(ctx, `INSERT INTO sprints(project_id, title, start_date, finish_date, velocity, active) VALUES(?, ?, ?, ?, ?, ?)`,
		s.ProjectID, s.Title, formatDate(s.StartDate), formatDate(s.FinishDate), s.Velocity, nullBool(s.Active))
	if err != nil {
		return models.Sprint{}, wrapDBError("insert sprint", err)
	}
	id, err := lastID(res, "sprint")
	if err != nil {
		return models.Sprint{}, err
	}
	return q.GetSprint(ctx, id)
}

// GetSprint fetches a sprint by id.
func (q *Queries) GetSprint(ctx context.Context, id int64) (models.Sprint, error) {
	s, err := scanSprint(q.db.QueryRowContext(ctx, `SELECT `+sprintColumns+` FROM sprints WHERE id = ?`, id))
	if isNoRows(err) {
		return models.Sprint{}, notFound("sprint")
	}
	if err != nil {
		return models.Sprint{}, fmt.Errorf("get sprint: %w", err)
	}
	return s, nil
}

// ListSprints returns the sprints of a project in chronological order.
func (q *Queries) ListSprints(ctx context.Context, projectID int64) ([]models.Sprint, error) {
	return q.querySprints(ctx, `SELECT `+sprintColumns+` FROM sprints WHERE project_id = ? ORDER BY start_date, id`, projectID)
}

// ListAllSprints returns every sprint grouped by project.
func (q *Queries) ListAllSprints(ctx context.Context) ([]models.Sprint, error) {
	return q.querySprints(ctx, `SELECT `+sprintColumns+` FROM sprints ORDER BY project_id, start_date, id`)
}

func (q *Queries) querySprints(ctx context.Context, query string, args ...any) ([]models.Sprint, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list sprints: %w", err)
	}
	defer rows.Close()

	sprints := []models.Sprint{}
	for rows.Next() {
		s, err := scanSprint(rows)
		if err != nil {
			return nil, fmt.Errorf("scan sprint: %w", err)
		}
		sprints = append(sprints, s)
	}
	return sprints, rows.Err()
}

// UpdateSprint writes every mutable sprint column.
func (q *Queries) UpdateSprint(ctx context.Context, s models.Sprint) error {
	res, err := q.db.ExecContext(ctx, `UPDATE sprints SET title = ?, start_date = ?, finish_date = ?, velocity = ?, active = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		s.Title, formatDate(s.StartDate), formatDate(s.FinishDate), s.Velocity, nullBool(s.Active), s.ID)
	if err != nil {
		return wrapDBError("update sprint", err)
	}
	return requireAffected(res, "sprint")
}

// DeleteSprint removes a sprint. Member stories fall back to the backlog
// through the foreign key.
func (q *Queries) DeleteSprint(ctx context.Context, id int64) error {
	res, err := q.db.ExecContext(ctx, `DELETE FROM sprints WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete sprint: %w", err)
	}
	return requireAffected(res, "sprint")
}
