package sqlite

import (
	"context"
	"fmt"
	"strings"

	"scrumboard/internal/lifecycle"
	"scrumboard/internal/models"
)

const personColumns = `id, username, name, lastname, email, admin, created_at`

func scanPerson(row scanner) (models.Person, error) {
	var p models.Person
	err := row.Scan(&p.ID, &p.Username, &p.Name, &p.Lastname, &p.Email, &p.Admin, &p.CreatedAt)
	return p, err
}

// CreatePerson inserts a person. Usernames are unique.
func (q *Queries) CreatePerson(ctx context.Context, p models.Person) (models.Person, error) {
	if strings.TrimSpace(p.Username) == "" {
		return models.Person{}, lifecycle.Validation("username must not be empty")
	}
	res, err := q.db.ExecContext(ctx, `INSERT INTO people(username, name, lastname, email, admin) VALUES(?, ?, ?, ?, ?)`,
		strings.TrimSpace(p.Username), p.Name, p.Lastname, p.Email, p.Admin)
	if err != nil {
		return models.Person{}, wrapDBError("insert person", err)
	}
	id, err := lastID(res, "person")
	if err != nil {
		return models.Person{}, err
	}
	return q.GetPerson(ctx, id)
}

// GetPerson fetches a single person by id.
func (q *Queries) GetPerson(ctx context.Context, id int64) (models.Person, error) {
	p, err := scanPerson(q.db.QueryRowContext(ctx, `SELECT `+personColumns+` FROM people WHERE id = ?`, id))
	if isNoRows(err) {
		return models.Person{}, notFound("person")
	}
	if err != nil {
		return models.Person{}, fmt.Errorf("get person: %w", err)
	}
	return p, nil
}

// ListPeople returns everyone ordered by username.
func (q *Queries) ListPeople(ctx context.Context) ([]models.Person, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT `+personColumns+` FROM people ORDER BY username`)
	if err != nil {
		return nil, fmt.Errorf("list people: %w", err)
	}
	defer rows.Close()

	people := []models.Person{}
	for rows.Next() {
		p, err := scanPerson(rows)
		if err != nil {
			return nil, fmt.Errorf("scan person: %w", err)
		}
		people = append(people, p)
	}
	return people, rows.Err()
}

// CreateProject inserts the project and its members.
func (q *Queries) CreateProject(ctx context.Context, p models.Project) (models.Project, error) {
	title := strings.TrimSpace(p.Title)
	res, err := q.db.ExecContext(ctx, `INSERT INTO projects(title, title_key, description, active) VALUES(?, ?, ?, ?)`,
		title, lifecycle.NormalizeTitle(title), strings.TrimSpace(p.Description), p.Active)
	if err != nil {
		return models.Project{}, wrapDBError("insert project", err)
	}
	id, err := lastID(res, "project")
	if err != nil {
		return models.Project{}, err
	}
	if err := q.ReplaceMembers(ctx, id, p.Members); err != nil {
		return models.Project{}, err
	}
	return q.GetProject(ctx, id)
}

// GetProject fetches a project together with its members.
func (q *Queries) GetProject(ctx context.Context, id int64) (models.Project, error) {
	var p models.Project
	err := q.db.QueryRowContext(ctx, `SELECT id, title, description, active, created_at, updated_at FROM projects WHERE id = ?`, id).
		Scan(&p.ID, &p.Title, &p.Description, &p.Active, &p.CreatedAt, &p.UpdatedAt)
	if isNoRows(err) {
		return models.Project{}, notFound("project")
	}
	if err != nil {
		return models.Project{}, fmt.Errorf("get project: %w", err)
	}
	members, err := q.listMembers(ctx, id)
	if err != nil {
		return models.Project{}, err
	}
	p.Members = members
	return p, nil
}

// ListProjects retrieves all projects ordered by creation date. Members
// are loaded only after the project rows are closed since the pool holds
// a single connection.
func (q *Queries) ListProjects(ctx context.Context) ([]models.Project, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT id, title, description, active, created_at, updated_at FROM projects ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}

	projects := []models.Project{}
	for rows.Next() {
		var p models.Project
		if err := rows.Scan(&p.ID, &p.Title, &p.Description, &p.Active, &p.CreatedAt, &p.UpdatedAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan project: %w", err)
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	for i := range projects {
		members, err := q.listMembers(ctx, projects[i].ID)
		if err != nil {
			return nil, err
		}
		projects[i].Members = members
	}
	return projects, nil
}

func (q *Queries) listMembers(ctx context.Context, projectID int64) ([]models.Member, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT m.project_id, m.person_id, m.role, p.username
        FROM project_members m JOIN people p ON p.id = m.person_id
        WHERE m.project_id = ? ORDER BY m.role, p.username`, projectID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	var members []models.Member
	for rows.Next() {
		var m models.Member
		if err := rows.Scan(&m.ProjectID, &m.PersonID, &m.Role, &m.Username); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

// ReplaceMembers swaps the whole roster of a project.
func (q *Queries) ReplaceMembers(ctx context.Context, projectID int64, members []models.Member) error {
	if _, err := q.db.ExecContext(ctx, `DELETE FROM project_members WHERE project_id = ?`, projectID); err != nil {
		return fmt.Errorf("clear members: %w", err)
	}
	for _, m := range members {
		_, err := q.db.ExecContext(ctx, `INSERT OR IGNORE INTO project_members(project_id, person_id, role) VALUES(?, ?, ?)`,
			projectID, m.PersonID, string(m.Role))
		if err != nil {
			return wrapDBError("insert member", err)
		}
	}
	return nil
}

// CountOpenSubtasks counts accepted, unfinished subtasks held by personID
// in the project.
func (q *Queries) CountOpenSubtasks(ctx context.Context, projectID, personID int64) (int, error) {
	var n int
	err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM subtasks t JOIN stories s ON s.id = t.story_id
        WHERE s.project_id = ? AND t.assignee = ? AND t.rejected = 0 AND t.finished = 0`, projectID, personID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count open subtasks: %w", err)
	}
	return n, nil
}
