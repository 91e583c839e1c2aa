package service

import (
	"context"
	"strings"

	"scrumboard/internal/lifecycle"
	"scrumboard/internal/models"
	"scrumboard/internal/storage"
)

// CreatePerson adds a user. Only admins may do this, except for the very
// first user which bootstraps an empty board.
func (m *Manager) CreatePerson(ctx context.Context, actorID int64, p models.Person) (models.Person, error) {
	var created models.Person
	err := m.tx(ctx, "CreatePerson", func(ctx context.Context, q storage.Queries) error {
		people, err := q.ListPeople(ctx)
		if err != nil {
			return err
		}
		if len(people) > 0 {
			admin, err := actor(ctx, q, actorID)
			if err != nil {
				return err
			}
			if !admin.Admin {
				return lifecycle.Forbidden("only administrators can add users")
			}
		}
		if strings.TrimSpace(p.Username) == "" {
			return lifecycle.Validation("username is required")
		}
		created, err = q.CreatePerson(ctx, p)
		return err
	})
	if err == nil {
		m.logger.Info("person created", "id", created.ID, "username", created.Username)
	}
	return created, err
}

// GetPerson returns a person by id.
func (m *Manager) GetPerson(ctx context.Context, id int64) (models.Person, error) {
	var p models.Person
	err := m.read(ctx, "GetPerson", func(ctx context.Context, q storage.Queries) error {
		var err error
		p, err = q.GetPerson(ctx, id)
		return err
	})
	return p, err
}

// ListPeople returns every user.
func (m *Manager) ListPeople(ctx context.Context) ([]models.Person, error) {
	var people []models.Person
	err := m.read(ctx, "ListPeople", func(ctx context.Context, q storage.Queries) error {
		var err error
		people, err = q.ListPeople(ctx)
		return err
	})
	return people, err
}

// Team names the holders of each project role.
type Team struct {
	ProductOwner int64
	ScrumMaster  int64
	Developers   []int64
}

func (t Team) validate() error {
	if t.ProductOwner == 0 {
		return lifecycle.Validation("a product owner is required")
	}
	if t.ScrumMaster == 0 {
		return lifecycle.Validation("a scrum master is required")
	}
	if len(t.Developers) == 0 {
		return lifecycle.Validation("at least one developer is required")
	}
	return nil
}

func (t Team) members() []models.Member {
	members := []models.Member{
		{PersonID: t.ProductOwner, Role: models.RoleProductOwner},
		{PersonID: t.ScrumMaster, Role: models.RoleScrumMaster},
	}
	seen := map[int64]bool{}
	for _, id := range t.Developers {
		if seen[id] {
			continue
		}
		seen[id] = true
		members = append(members, models.Member{PersonID: id, Role: models.RoleDeveloper})
	}
	return members
}

func (t Team) people() []int64 {
	return append([]int64{t.ProductOwner, t.ScrumMaster}, t.Developers...)
}

func checkPeople(ctx context.Context, q storage.Queries, ids []int64) error {
	for _, id := range ids {
		if _, err := q.GetPerson(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// ProjectInput holds the fields of a new project.
type ProjectInput struct {
	Title       string
	Description string
	Team        Team
}

// CreateProject adds a project with its team. Admin only.
func (m *Manager) CreateProject(ctx context.Context, actorID int64, in ProjectInput) (models.Project, error) {
	var created models.Project
	err := m.tx(ctx, "CreateProject", func(ctx context.Context, q storage.Queries) error {
		admin, err := actor(ctx, q, actorID)
		if err != nil {
			return err
		}
		if !admin.Admin {
			return lifecycle.Forbidden("only administrators can create projects")
		}
		if strings.TrimSpace(in.Title) == "" {
			return lifecycle.Validation("title is required")
		}
		if err := in.Team.validate(); err != nil {
			return err
		}
		if err := checkPeople(ctx, q, in.Team.people()); err != nil {
			return err
		}
		projects, err := q.ListProjects(ctx)
		if err != nil {
			return err
		}
		for _, p := range projects {
			if lifecycle.SameTitle(p.Title, in.Title) {
				return lifecycle.Conflict("a project with this title already exists")
			}
		}
		created, err = q.CreateProject(ctx, models.Project{
			Title:       strings.TrimSpace(in.Title),
			Description: in.Description,
			Active:      true,
			Members:     in.Team.members(),
		})
		return err
	})
	if err == nil {
		m.logger.Info("project created", "id", created.ID, "title", created.Title)
	}
	return created, err
}

// UpdateProjectMembers replaces the team of a project. Developers holding
// open subtasks cannot be dropped.
func (m *Manager) UpdateProjectMembers(ctx context.Context, actorID, projectID int64, team Team) (models.Project, error) {
	var updated models.Project
	err := m.tx(ctx, "UpdateProjectMembers", func(ctx context.Context, q storage.Queries) error {
		roles, project, err := rolesIn(ctx, q, actorID, projectID)
		if err != nil {
			return err
		}
		if !roles.CanPlanSprints() {
			return lifecycle.Forbidden("only administrators and the scrum master can change the team")
		}
		if err := team.validate(); err != nil {
			return err
		}
		if err := checkPeople(ctx, q, team.people()); err != nil {
			return err
		}

		open := map[int64]int{}
		names := map[int64]string{}
		for _, member := range project.Members {
			if member.Role != models.RoleDeveloper {
				continue
			}
			n, err := q.CountOpenSubtasks(ctx, projectID, member.PersonID)
			if err != nil {
				return err
			}
			open[member.PersonID] = n
			names[member.PersonID] = member.Username
		}
		if err := lifecycle.CheckDeveloperRemoval(project.Members, team.Developers, open, names); err != nil {
			return err
		}

		if err := q.ReplaceMembers(ctx, projectID, team.members()); err != nil {
			return err
		}
		updated, err = q.GetProject(ctx, projectID)
		return err
	})
	return updated, err
}

// GetProject returns a project with its team.
func (m *Manager) GetProject(ctx context.Context, id int64) (models.Project, error) {
	var p models.Project
	err := m.read(ctx, "GetProject", func(ctx context.Context, q storage.Queries) error {
		var err error
		p, err = q.GetProject(ctx, id)
		return err
	})
	return p, err
}

// ListProjects returns every project.
func (m *Manager) ListProjects(ctx context.Context) ([]models.Project, error) {
	var projects []models.Project
	err := m.read(ctx, "ListProjects", func(ctx context.Context, q storage.Queries) error {
		var err error
		projects, err = q.ListProjects(ctx)
		return err
	})
	return projects, err
}

// ListPosts returns the project wall, newest first.
func (m *Manager) ListPosts(ctx context.Context, projectID int64) ([]models.WallPost, error) {
	var posts []models.WallPost
	err := m.read(ctx, "ListPosts", func(ctx context.Context, q storage.Queries) error {
		if _, err := q.GetProject(ctx, projectID); err != nil {
			return err
		}
		var err error
		posts, err = q.ListPosts(ctx, projectID)
		return err
	})
	return posts, err
}
