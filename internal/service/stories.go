package service

import (
	"context"

	"scrumboard/internal/lifecycle"
	"scrumboard/internal/models"
	"scrumboard/internal/storage"
)

func storyRoles(ctx context.Context, q storage.Queries, actorID, storyID int64) (lifecycle.Roles, models.Story, error) {
	story, err := q.GetStory(ctx, storyID)
	if err != nil {
		return lifecycle.Roles{}, models.Story{}, err
	}
	roles, _, err := rolesIn(ctx, q, actorID, story.ProjectID)
	if err != nil {
		return lifecycle.Roles{}, models.Story{}, err
	}
	return roles, story, nil
}

// CreateStory adds a story to the product backlog.
func (m *Manager) CreateStory(ctx context.Context, actorID, projectID int64, in lifecycle.StoryInput) (models.Story, error) {
	var created models.Story
	err := m.tx(ctx, "CreateStory", func(ctx context.Context, q storage.Queries) error {
		roles, _, err := rolesIn(ctx, q, actorID, projectID)
		if err != nil {
			return err
		}
		if !roles.CanManageBacklog() {
			return lifecycle.Forbidden("only the product owner or scrum master can add stories")
		}
		siblings, err := q.ListStories(ctx, projectID)
		if err != nil {
			return err
		}
		story, err := lifecycle.NewStory(projectID, in, siblings)
		if err != nil {
			return err
		}
		created, err = q.CreateStory(ctx, story)
		return err
	})
	return created, err
}

// GetStory returns a story by id.
func (m *Manager) GetStory(ctx context.Context, id int64) (models.Story, error) {
	var s models.Story
	err := m.read(ctx, "GetStory", func(ctx context.Context, q storage.Queries) error {
		var err error
		s, err = q.GetStory(ctx, id)
		return err
	})
	return s, err
}

// ListStories returns the stories of a project.
func (m *Manager) ListStories(ctx context.Context, projectID int64) ([]models.Story, error) {
	var stories []models.Story
	err := m.read(ctx, "ListStories", func(ctx context.Context, q storage.Queries) error {
		if _, err := q.GetProject(ctx, projectID); err != nil {
			return err
		}
		var err error
		stories, err = q.ListStories(ctx, projectID)
		return err
	})
	return stories, err
}

// EditStory changes story fields. Changing points needs sprint planning
// rights, like EstimateStory.
func (m *Manager) EditStory(ctx context.Context, actorID, storyID int64, edit lifecycle.StoryEdit) (models.Story, error) {
	var updated models.Story
	err := m.tx(ctx, "EditStory", func(ctx context.Context, q storage.Queries) error {
		roles, story, err := storyRoles(ctx, q, actorID, storyID)
		if err != nil {
			return err
		}
		if !roles.CanManageBacklog() {
			return lifecycle.Forbidden("only the product owner or scrum master can edit stories")
		}
		if edit.TimeRequired != nil && !roles.CanPlanSprints() {
			return lifecycle.Forbidden("only the scrum master can estimate stories")
		}
		siblings, err := q.ListStories(ctx, story.ProjectID)
		if err != nil {
			return err
		}
		updated, err = lifecycle.EditStory(story, edit, siblings)
		if err != nil {
			return err
		}
		return q.UpdateStory(ctx, updated)
	})
	return updated, err
}

// EstimateStory sets story points. The warning is non-empty for estimates
// that look unrealistic.
func (m *Manager) EstimateStory(ctx context.Context, actorID, storyID int64, points float64) (models.Story, string, error) {
	var (
		updated models.Story
		warning string
	)
	err := m.tx(ctx, "EstimateStory", func(ctx context.Context, q storage.Queries) error {
		roles, story, err := storyRoles(ctx, q, actorID, storyID)
		if err != nil {
			return err
		}
		if !roles.CanPlanSprints() {
			return lifecycle.Forbidden("only the scrum master can estimate stories")
		}
		updated, warning, err = lifecycle.EstimateStory(story, points)
		if err != nil {
			return err
		}
		return q.UpdateStory(ctx, updated)
	})
	return updated, warning, err
}

// DeleteStory removes an unrealized backlog story and its subtasks.
func (m *Manager) DeleteStory(ctx context.Context, actorID, storyID int64) error {
	return m.tx(ctx, "DeleteStory", func(ctx context.Context, q storage.Queries) error {
		roles, story, err := storyRoles(ctx, q, actorID, storyID)
		if err != nil {
			return err
		}
		if !roles.CanManageBacklog() {
			return lifecycle.Forbidden("only the product owner or scrum master can delete stories")
		}
		if err := lifecycle.CanDeleteStory(story); err != nil {
			return err
		}
		return q.DeleteStory(ctx, storyID)
	})
}

// AssignStoryToSprint puts a backlog story into the sprint backlog. The
// sprint's velocity must still cover all of its stories.
func (m *Manager) AssignStoryToSprint(ctx context.Context, actorID, storyID, sprintID int64) (models.Story, error) {
	var updated models.Story
	err := m.tx(ctx, "AssignStoryToSprint", func(ctx context.Context, q storage.Queries) error {
		roles, story, err := storyRoles(ctx, q, actorID, storyID)
		if err != nil {
			return err
		}
		if !roles.CanPlanSprints() {
			return lifecycle.Forbidden("only the scrum master can plan sprints")
		}
		sprint, err := m.loadSprint(ctx, q, sprintID)
		if err != nil {
			return err
		}
		if err := checkSprintTarget(story, sprint); err != nil {
			return err
		}
		updated, err = lifecycle.AssignToSprint(story, sprint)
		if err != nil {
			return err
		}
		if err := checkCapacity(ctx, q, sprint, updated); err != nil {
			return err
		}
		return q.UpdateStory(ctx, updated)
	})
	return updated, err
}

func checkSprintTarget(story models.Story, sprint models.Sprint) error {
	switch {
	case sprint.ProjectID != story.ProjectID:
		return lifecycle.Conflict("sprint belongs to a different project")
	case sprint.Active == nil:
		return lifecycle.Conflict("sprint %q has already ended", sprint.Title)
	case story.Finished:
		return lifecycle.Conflict("story %q is already realized", story.Title)
	case story.SprintID != nil && *story.SprintID == sprint.ID:
		return lifecycle.Conflict("story %q is already in this sprint", story.Title)
	}
	return nil
}

func checkCapacity(ctx context.Context, q storage.Queries, sprint models.Sprint, incoming models.Story) error {
	members, err := q.ListSprintStories(ctx, sprint.ID)
	if err != nil {
		return err
	}
	total := incoming.Points()
	for _, s := range members {
		if s.ID != incoming.ID {
			total += s.Points()
		}
	}
	if total > float64(sprint.Velocity) {
		return lifecycle.Conflict("sprint velocity %d does not cover %g story points", sprint.Velocity, total)
	}
	return nil
}

// MoveStory moves a story to a board column. Stories without a sprint
// are pulled into sprintID, or into the project's current sprint when
// sprintID is nil.
func (m *Manager) MoveStory(ctx context.Context, actorID, storyID int64, dest lifecycle.Column, sprintID *int64) (models.Story, error) {
	var updated models.Story
	err := m.tx(ctx, "MoveStory", func(ctx context.Context, q storage.Queries) error {
		roles, story, err := storyRoles(ctx, q, actorID, storyID)
		if err != nil {
			return err
		}
		if !roles.Member() && !roles.Admin {
			return lifecycle.Forbidden("only project members can move stories")
		}
		if dest == lifecycle.ColumnDone && !roles.CanAcceptStories() {
			return lifecycle.Forbidden("only the product owner can move stories to done")
		}
		subtasks, err := q.ListSubtasks(ctx, storyID)
		if err != nil {
			return err
		}

		var target *models.Sprint
		if story.SprintID == nil && dest != lifecycle.ColumnBacklog {
			target, err = m.targetSprint(ctx, q, story.ProjectID, sprintID)
			if err != nil {
				return err
			}
		}
		res, err := lifecycle.MoveStory(story, subtasks, dest, target)
		if err != nil {
			return err
		}
		if target != nil {
			if err := checkCapacity(ctx, q, *target, res.Story); err != nil {
				return err
			}
		}
		if res.Reopened != nil {
			if err := q.UpdateSubtask(ctx, *res.Reopened); err != nil {
				return err
			}
		}
		updated = res.Story
		return q.UpdateStory(ctx, updated)
	})
	return updated, err
}

// targetSprint picks the sprint a story joins when it is dragged out of
// the backlog: the requested one, else the running one, else the next.
func (m *Manager) targetSprint(ctx context.Context, q storage.Queries, projectID int64, sprintID *int64) (*models.Sprint, error) {
	if sprintID != nil {
		s, err := m.loadSprint(ctx, q, *sprintID)
		if err != nil {
			return nil, err
		}
		return &s, nil
	}
	sprints, err := m.loadSprints(ctx, q, projectID)
	if err != nil {
		return nil, err
	}
	var next *models.Sprint
	for i := range sprints {
		s := sprints[i]
		if s.Active == nil {
			continue
		}
		if *s.Active {
			return &s, nil
		}
		if next == nil {
			next = &s
		}
	}
	return next, nil
}

// RealizeStory records the product owner's acceptance decision and posts
// it on the project wall.
func (m *Manager) RealizeStory(ctx context.Context, actorID, storyID int64, passed bool, comment string) (models.Story, error) {
	var updated models.Story
	err := m.tx(ctx, "RealizeStory", func(ctx context.Context, q storage.Queries) error {
		roles, story, err := storyRoles(ctx, q, actorID, storyID)
		if err != nil {
			return err
		}
		if !roles.CanAcceptStories() {
			return lifecycle.Forbidden("only the product owner can accept or reject stories")
		}
		subtasks, err := q.ListSubtasks(ctx, storyID)
		if err != nil {
			return err
		}
		res, err := lifecycle.Realize(story, subtasks, passed, comment, actorID, m.now())
		if err != nil {
			return err
		}
		if err := q.UpdateStory(ctx, res.Story); err != nil {
			return err
		}
		if _, err := q.CreatePost(ctx, res.Post); err != nil {
			return err
		}
		updated = res.Story
		return nil
	})
	if err == nil {
		m.logger.Info("story realized", "id", storyID, "passed", passed)
	}
	return updated, err
}

// RejectionHistory lists the audit posts written for a story.
func (m *Manager) RejectionHistory(ctx context.Context, storyID int64) ([]models.WallPost, error) {
	var posts []models.WallPost
	err := m.read(ctx, "RejectionHistory", func(ctx context.Context, q storage.Queries) error {
		if _, err := q.GetStory(ctx, storyID); err != nil {
			return err
		}
		var err error
		posts, err = q.ListStoryPosts(ctx, storyID)
		return err
	})
	return posts, err
}

// BoardColumn is one column of the project board.
type BoardColumn struct {
	Column  lifecycle.Column `json:"column"`
	Stories []models.Story   `json:"stories"`
}

// GetBoard groups the stories of a project by board column.
func (m *Manager) GetBoard(ctx context.Context, projectID int64) ([]BoardColumn, error) {
	var board []BoardColumn
	err := m.read(ctx, "GetBoard", func(ctx context.Context, q storage.Queries) error {
		if _, err := q.GetProject(ctx, projectID); err != nil {
			return err
		}
		stories, err := q.ListStories(ctx, projectID)
		if err != nil {
			return err
		}
		byColumn := map[lifecycle.Column][]models.Story{}
		for _, s := range stories {
			subtasks, err := q.ListSubtasks(ctx, s.ID)
			if err != nil {
				return err
			}
			col := lifecycle.ColumnOf(s, subtasks)
			byColumn[col] = append(byColumn[col], s)
		}
		board = make([]BoardColumn, 0, len(lifecycle.Columns))
		for _, col := range lifecycle.Columns {
			stories := byColumn[col]
			if stories == nil {
				stories = []models.Story{}
			}
			board = append(board, BoardColumn{Column: col, Stories: stories})
		}
		return nil
	})
	return board, err
}
