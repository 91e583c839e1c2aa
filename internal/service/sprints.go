package service

import (
	"context"
	"errors"

	"scrumboard/internal/lifecycle"
	"scrumboard/internal/models"
	"scrumboard/internal/storage"
)

// loadSprint reads a sprint and stores its status if the calendar moved
// past one of its boundaries since the last write.
func (m *Manager) loadSprint(ctx context.Context, q storage.Queries, id int64) (models.Sprint, error) {
	s, err := q.GetSprint(ctx, id)
	if err != nil {
		return models.Sprint{}, err
	}
	next, changed := lifecycle.RefreshStatus(s, m.today())
	if !changed {
		return s, nil
	}
	if err := q.UpdateSprint(ctx, next); err != nil {
		return models.Sprint{}, err
	}
	return next, nil
}

func (m *Manager) loadSprints(ctx context.Context, q storage.Queries, projectID int64) ([]models.Sprint, error) {
	sprints, err := q.ListSprints(ctx, projectID)
	if err != nil {
		return nil, err
	}
	today := m.today()
	for i, s := range sprints {
		next, changed := lifecycle.RefreshStatus(s, today)
		if !changed {
			continue
		}
		if err := q.UpdateSprint(ctx, next); err != nil {
			return nil, err
		}
		sprints[i] = next
	}
	return sprints, nil
}

// renumber retitles the sprints of a project in start date order and
// writes only the ones whose title changed.
func renumber(ctx context.Context, q storage.Queries, projectID int64) ([]models.Sprint, error) {
	sprints, err := q.ListSprints(ctx, projectID)
	if err != nil {
		return nil, err
	}
	current := make(map[int64]string, len(sprints))
	for _, s := range sprints {
		current[s.ID] = s.Title
	}
	ordered := lifecycle.Renumber(sprints)
	for _, s := range ordered {
		if current[s.ID] == s.Title {
			continue
		}
		if err := q.UpdateSprint(ctx, s); err != nil {
			return nil, err
		}
	}
	return ordered, nil
}

func projectExists(ctx context.Context, q storage.Queries, projectID int64) (bool, error) {
	_, err := q.GetProject(ctx, projectID)
	if errors.Is(err, lifecycle.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

// CreateSprint plans a sprint and moves the selected stories into it.
func (m *Manager) CreateSprint(ctx context.Context, actorID, projectID int64, draft lifecycle.SprintDraft, storyIDs []int64) (models.Sprint, error) {
	var created models.Sprint
	err := m.tx(ctx, "CreateSprint", func(ctx context.Context, q storage.Queries) error {
		exists, err := projectExists(ctx, q, projectID)
		if err != nil {
			return err
		}
		if exists {
			roles, _, err := rolesIn(ctx, q, actorID, projectID)
			if err != nil {
				return err
			}
			if !roles.CanPlanSprints() {
				return lifecycle.Forbidden("only the scrum master can plan sprints")
			}
		} else if _, err := actor(ctx, q, actorID); err != nil {
			return err
		}

		selected := make([]models.Story, 0, len(storyIDs))
		seen := map[int64]bool{}
		for _, id := range storyIDs {
			if seen[id] {
				continue
			}
			seen[id] = true
			s, err := q.GetStory(ctx, id)
			if err != nil {
				return err
			}
			selected = append(selected, s)
		}
		existing, err := q.ListSprints(ctx, projectID)
		if err != nil {
			return err
		}
		sprint, err := m.planner.Plan(projectID, draft, selected, existing, exists, m.now())
		if err != nil {
			return err
		}
		created, err = q.CreateSprint(ctx, sprint)
		if err != nil {
			return err
		}
		for _, s := range selected {
			assigned, err := lifecycle.AssignToSprint(s, created)
			if err != nil {
				return err
			}
			if err := q.UpdateStory(ctx, assigned); err != nil {
				return err
			}
		}
		ordered, err := renumber(ctx, q, projectID)
		if err != nil {
			return err
		}
		for _, s := range ordered {
			if s.ID == created.ID {
				created = s
			}
		}
		return nil
	})
	if err == nil {
		m.logger.Info("sprint created", "id", created.ID, "project", projectID, "title", created.Title)
	}
	return created, err
}

// GetSprint returns a sprint with an up to date status. A stale status is
// written back in the same transaction.
func (m *Manager) GetSprint(ctx context.Context, id int64) (models.Sprint, error) {
	var s models.Sprint
	err := m.tx(ctx, "GetSprint", func(ctx context.Context, q storage.Queries) error {
		var err error
		s, err = m.loadSprint(ctx, q, id)
		return err
	})
	return s, err
}

// ListSprints returns the sprints of a project in start date order.
func (m *Manager) ListSprints(ctx context.Context, projectID int64) ([]models.Sprint, error) {
	var sprints []models.Sprint
	err := m.tx(ctx, "ListSprints", func(ctx context.Context, q storage.Queries) error {
		if _, err := q.GetProject(ctx, projectID); err != nil {
			return err
		}
		var err error
		sprints, err = m.loadSprints(ctx, q, projectID)
		return err
	})
	return sprints, err
}

// SprintStories returns the stories assigned to a sprint.
func (m *Manager) SprintStories(ctx context.Context, sprintID int64) ([]models.Story, error) {
	var stories []models.Story
	err := m.read(ctx, "SprintStories", func(ctx context.Context, q storage.Queries) error {
		if _, err := q.GetSprint(ctx, sprintID); err != nil {
			return err
		}
		var err error
		stories, err = q.ListSprintStories(ctx, sprintID)
		return err
	})
	return stories, err
}

// EditSprint changes the dates or velocity of a sprint that has not
// started. The bool is false when nothing changed.
func (m *Manager) EditSprint(ctx context.Context, actorID, sprintID int64, draft lifecycle.SprintDraft) (models.Sprint, bool, error) {
	var (
		updated models.Sprint
		changed bool
	)
	err := m.tx(ctx, "EditSprint", func(ctx context.Context, q storage.Queries) error {
		current, err := m.loadSprint(ctx, q, sprintID)
		if err != nil {
			return err
		}
		roles, _, err := rolesIn(ctx, q, actorID, current.ProjectID)
		if err != nil {
			return err
		}
		if !roles.CanPlanSprints() {
			return lifecycle.Forbidden("only the scrum master can change sprints")
		}
		members, err := q.ListSprintStories(ctx, sprintID)
		if err != nil {
			return err
		}
		existing, err := q.ListSprints(ctx, current.ProjectID)
		if err != nil {
			return err
		}
		updated, changed, err = m.planner.Replan(current, draft, members, existing, true, m.now())
		if err != nil || !changed {
			return err
		}
		if err := q.UpdateSprint(ctx, updated); err != nil {
			return err
		}
		ordered, err := renumber(ctx, q, current.ProjectID)
		if err != nil {
			return err
		}
		for _, s := range ordered {
			if s.ID == updated.ID {
				updated = s
			}
		}
		return nil
	})
	return updated, changed, err
}

// DeleteSprint removes a sprint that is not running. Its stories go back
// to the product backlog and the remaining sprints are renumbered.
func (m *Manager) DeleteSprint(ctx context.Context, actorID, sprintID int64) error {
	err := m.tx(ctx, "DeleteSprint", func(ctx context.Context, q storage.Queries) error {
		sprint, err := q.GetSprint(ctx, sprintID)
		if err != nil {
			return err
		}
		roles, _, err := rolesIn(ctx, q, actorID, sprint.ProjectID)
		if err != nil {
			return err
		}
		if !roles.CanPlanSprints() {
			return lifecycle.Forbidden("only the scrum master can delete sprints")
		}
		if err := lifecycle.CanDeleteSprint(sprint, m.today()); err != nil {
			return err
		}
		members, err := q.ListSprintStories(ctx, sprintID)
		if err != nil {
			return err
		}
		for _, s := range lifecycle.DetachStories(members) {
			if err := q.UpdateStory(ctx, s); err != nil {
				return err
			}
		}
		if err := q.DeleteSprint(ctx, sprintID); err != nil {
			return err
		}
		_, err = renumber(ctx, q, sprint.ProjectID)
		return err
	})
	if err == nil {
		m.logger.Info("sprint deleted", "id", sprintID)
	}
	return err
}

// CompleteSprint sends the unfinished stories listed in returned back to
// the product backlog with an audit post each.
func (m *Manager) CompleteSprint(ctx context.Context, actorID, sprintID int64, returned []lifecycle.ReturnedStory) ([]models.Story, error) {
	var stories []models.Story
	err := m.tx(ctx, "CompleteSprint", func(ctx context.Context, q storage.Queries) error {
		sprint, err := m.loadSprint(ctx, q, sprintID)
		if err != nil {
			return err
		}
		roles, _, err := rolesIn(ctx, q, actorID, sprint.ProjectID)
		if err != nil {
			return err
		}
		if !roles.CanPlanSprints() {
			return lifecycle.Forbidden("only the scrum master can complete sprints")
		}
		members, err := q.ListSprintStories(ctx, sprintID)
		if err != nil {
			return err
		}
		results, err := m.planner.Complete(sprint, members, returned, actorID, m.now())
		if err != nil {
			return err
		}
		stories = make([]models.Story, 0, len(results))
		for _, res := range results {
			if err := q.UpdateStory(ctx, res.Story); err != nil {
				return err
			}
			if _, err := q.CreatePost(ctx, res.Post); err != nil {
				return err
			}
			stories = append(stories, res.Story)
		}
		return nil
	})
	if err == nil {
		m.logger.Info("sprint completed", "id", sprintID, "returned", len(stories))
	}
	return stories, err
}

// Burndown computes the burndown chart of a sprint from the points of its
// stories.
func (m *Manager) Burndown(ctx context.Context, sprintID int64) ([]models.BurndownPoint, error) {
	var points []models.BurndownPoint
	err := m.read(ctx, "Burndown", func(ctx context.Context, q storage.Queries) error {
		sprint, err := q.GetSprint(ctx, sprintID)
		if err != nil {
			return err
		}
		stories, err := q.ListSprintStories(ctx, sprintID)
		if err != nil {
			return err
		}
		total := lifecycle.StoryPoints(sprintID, stories)
		points = lifecycle.Burndown(sprint.StartDate, sprint.FinishDate, total, m.today())
		return nil
	})
	return points, err
}

// Reconcile writes the current status of every sprint and returns how many
// changed.
func (m *Manager) Reconcile(ctx context.Context) (int, error) {
	var n int
	err := m.tx(ctx, "Reconcile", func(ctx context.Context, q storage.Queries) error {
		sprints, err := q.ListAllSprints(ctx)
		if err != nil {
			return err
		}
		today := m.today()
		for _, s := range sprints {
			next, changed := lifecycle.RefreshStatus(s, today)
			if !changed {
				continue
			}
			if err := q.UpdateSprint(ctx, next); err != nil {
				return err
			}
			n++
		}
		return nil
	})
	if err == nil && n > 0 {
		m.logger.Info("sprint statuses reconciled", "changed", n)
	}
	return n, err
}
