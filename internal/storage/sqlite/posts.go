package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"scrumboard/internal/models"
)

const postColumns = `id, project_id, person_id, story_id, title, description, created_at`

func scanPost(row scanner) (models.WallPost, error) {
	var (
		p                 models.WallPost
		personID, storyID sql.NullInt64
	)
	if err := row.Scan(&p.ID, &p.ProjectID, &personID, &storyID, &p.Title, &p.Description, &p.CreatedAt); err != nil {
		return models.WallPost{}, err
	}
	p.PersonID = intPtr(personID)
	p.StoryID = intPtr(storyID)
	return p, nil
}

// CreatePost appends a wall post.
func (q *Queries) CreatePost(ctx context.Context, p models.WallPost) (models.WallPost, error) {
	res, err := q.db.ExecContext(ctx, `INSERT INTO wall_posts(project_id, person_id, story_id, title, description, created_at) VALUES(?, ?, ?, ?, ?, ?)`,
		p.ProjectID, nullInt(p.PersonID), nullInt(p.StoryID), p.Title, p.Description, p.CreatedAt.UTC())
	if err != nil {
		return models.WallPost{}, wrapDBError("insert wall post", err)
	}
	id, err := lastID(res, "wall post")
	if err != nil {
		return models.WallPost{}, err
	}
	p.ID = id
	return p, nil
}

// ListPosts returns the wall of a project, newest first.
func (q *Queries) ListPosts(ctx context.Context, projectID int64) ([]models.WallPost, error) {
	return q.queryPosts(ctx, `SELECT `+postColumns+` FROM wall_posts WHERE project_id = ? ORDER BY created_at DESC, id DESC`, projectID)
}

// ListStoryPosts returns the audit posts written for a story, newest first.
func (q *Queries) ListStoryPosts(ctx context.Context, storyID int64) ([]models.WallPost, error) {
	return q.queryPosts(ctx, `SELECT `+postColumns+` FROM wall_posts WHERE story_id = ? ORDER BY created_at DESC, id DESC`, storyID)
}

func (q *Queries) queryPosts(ctx context.Context, query string, args ...any) ([]models.WallPost, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list wall posts: %w", err)
	}
	defer rows.Close()

	posts := []models.WallPost{}
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("scan wall post: %w", err)
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}
