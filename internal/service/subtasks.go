package service

import (
	"context"
	"time"

	"scrumboard/internal/lifecycle"
	"scrumboard/internal/models"
	"scrumboard/internal/storage"
)

// subtaskScope is everything a subtask operation needs to decide.
type subtaskScope struct {
	subtask models.Subtask
	story   models.Story
	project models.Project
	roles   lifecycle.Roles
}

func loadSubtask(ctx context.Context, q storage.Queries, actorID, subtaskID int64) (subtaskScope, error) {
	st, err := q.GetSubtask(ctx, subtaskID)
	if err != nil {
		return subtaskScope{}, err
	}
	story, err := q.GetStory(ctx, st.StoryID)
	if err != nil {
		return subtaskScope{}, err
	}
	roles, project, err := rolesIn(ctx, q, actorID, story.ProjectID)
	if err != nil {
		return subtaskScope{}, err
	}
	return subtaskScope{subtask: st, story: story, project: project, roles: roles}, nil
}

func applyChange(ctx context.Context, q storage.Queries, change lifecycle.SubtaskChange) error {
	if err := q.UpdateSubtask(ctx, change.Subtask); err != nil {
		return err
	}
	if change.History != nil {
		return q.AddHistory(ctx, *change.History)
	}
	return nil
}

func requireDeveloper(project models.Project, id *int64) error {
	if id != nil && !lifecycle.IsDeveloper(project.Members, *id) {
		return lifecycle.Validation("the assignee must be a developer of the project")
	}
	return nil
}

// CreateSubtask adds a subtask to a story. Any project member may do so.
func (m *Manager) CreateSubtask(ctx context.Context, actorID, storyID int64, in lifecycle.SubtaskInput) (models.Subtask, error) {
	var created models.Subtask
	err := m.tx(ctx, "CreateSubtask", func(ctx context.Context, q storage.Queries) error {
		roles, story, err := storyRoles(ctx, q, actorID, storyID)
		if err != nil {
			return err
		}
		if !roles.Member() && !roles.Admin {
			return lifecycle.Forbidden("only project members can add tasks")
		}
		project, err := q.GetProject(ctx, story.ProjectID)
		if err != nil {
			return err
		}
		st, err := lifecycle.NewSubtask(story, in, roles)
		if err != nil {
			return err
		}
		if err := requireDeveloper(project, st.Assignee); err != nil {
			return err
		}
		created, err = q.CreateSubtask(ctx, st)
		return err
	})
	return created, err
}

// GetSubtask returns a subtask by id.
func (m *Manager) GetSubtask(ctx context.Context, id int64) (models.Subtask, error) {
	var st models.Subtask
	err := m.read(ctx, "GetSubtask", func(ctx context.Context, q storage.Queries) error {
		var err error
		st, err = q.GetSubtask(ctx, id)
		return err
	})
	return st, err
}

// ListSubtasks returns the subtasks of a story.
func (m *Manager) ListSubtasks(ctx context.Context, storyID int64) ([]models.Subtask, error) {
	var subtasks []models.Subtask
	err := m.read(ctx, "ListSubtasks", func(ctx context.Context, q storage.Queries) error {
		if _, err := q.GetStory(ctx, storyID); err != nil {
			return err
		}
		var err error
		subtasks, err = q.ListSubtasks(ctx, storyID)
		return err
	})
	return subtasks, err
}

// EditSubtask changes a subtask. A new assignee resets the handshake.
func (m *Manager) EditSubtask(ctx context.Context, actorID, subtaskID int64, edit lifecycle.SubtaskEdit) (models.Subtask, error) {
	var updated models.Subtask
	err := m.tx(ctx, "EditSubtask", func(ctx context.Context, q storage.Queries) error {
		sc, err := loadSubtask(ctx, q, actorID, subtaskID)
		if err != nil {
			return err
		}
		if !sc.roles.Member() && !sc.roles.Admin {
			return lifecycle.Forbidden("only project members can edit tasks")
		}
		if edit.SetAssignee {
			if err := requireDeveloper(sc.project, edit.Assignee); err != nil {
				return err
			}
		}
		change, err := lifecycle.EditSubtask(sc.subtask, edit, sc.roles, m.now())
		if err != nil {
			return err
		}
		updated = change.Subtask
		return applyChange(ctx, q, change)
	})
	return updated, err
}

// DeleteSubtask removes a subtask nobody has logged time on.
func (m *Manager) DeleteSubtask(ctx context.Context, actorID, subtaskID int64) error {
	return m.tx(ctx, "DeleteSubtask", func(ctx context.Context, q storage.Queries) error {
		sc, err := loadSubtask(ctx, q, actorID, subtaskID)
		if err != nil {
			return err
		}
		if !sc.roles.Member() && !sc.roles.Admin {
			return lifecycle.Forbidden("only project members can delete tasks")
		}
		logs, err := q.ListTimeLogs(ctx, subtaskID)
		if err != nil {
			return err
		}
		if err := lifecycle.CanDeleteSubtask(sc.subtask, sc.roles, lifecycle.Touched(logs)); err != nil {
			return err
		}
		return q.DeleteSubtask(ctx, subtaskID)
	})
}

// AssignSubtask hands a subtask to a developer, or unassigns it when
// assignee is nil.
func (m *Manager) AssignSubtask(ctx context.Context, actorID, subtaskID int64, assignee *int64) (models.Subtask, error) {
	var updated models.Subtask
	err := m.tx(ctx, "AssignSubtask", func(ctx context.Context, q storage.Queries) error {
		sc, err := loadSubtask(ctx, q, actorID, subtaskID)
		if err != nil {
			return err
		}
		if err := requireDeveloper(sc.project, assignee); err != nil {
			return err
		}
		change, err := lifecycle.Assign(sc.subtask, assignee, sc.roles, m.now())
		if err != nil {
			return err
		}
		updated = change.Subtask
		return applyChange(ctx, q, change)
	})
	return updated, err
}

// ClaimSubtask lets a developer take an unassigned subtask.
func (m *Manager) ClaimSubtask(ctx context.Context, actorID, subtaskID int64) (models.Subtask, error) {
	var updated models.Subtask
	err := m.tx(ctx, "ClaimSubtask", func(ctx context.Context, q storage.Queries) error {
		sc, err := loadSubtask(ctx, q, actorID, subtaskID)
		if err != nil {
			return err
		}
		if !sc.roles.Developer {
			return lifecycle.Forbidden("only developers can claim tasks")
		}
		change, err := lifecycle.Claim(sc.subtask, actorID, m.now())
		if err != nil {
			return err
		}
		updated = change.Subtask
		return applyChange(ctx, q, change)
	})
	return updated, err
}

// AcceptSubtask confirms a pending assignment.
func (m *Manager) AcceptSubtask(ctx context.Context, actorID, subtaskID int64) (models.Subtask, error) {
	return m.handshake(ctx, "AcceptSubtask", actorID, subtaskID, lifecycle.Accept)
}

// RejectSubtask hands an assignment back.
func (m *Manager) RejectSubtask(ctx context.Context, actorID, subtaskID int64) (models.Subtask, error) {
	return m.handshake(ctx, "RejectSubtask", actorID, subtaskID, lifecycle.Reject)
}

type transition func(st models.Subtask, userID int64, now time.Time) (lifecycle.SubtaskChange, error)

func (m *Manager) handshake(ctx context.Context, op string, actorID, subtaskID int64, step transition) (models.Subtask, error) {
	var updated models.Subtask
	err := m.tx(ctx, op, func(ctx context.Context, q storage.Queries) error {
		sc, err := loadSubtask(ctx, q, actorID, subtaskID)
		if err != nil {
			return err
		}
		change, err := step(sc.subtask, actorID, m.now())
		if err != nil {
			return err
		}
		updated = change.Subtask
		return applyChange(ctx, q, change)
	})
	return updated, err
}

// SetSubtaskFinished marks a subtask done or not done. Finishing the first
// subtask of a sprint backlog story pulls the story into progress.
func (m *Manager) SetSubtaskFinished(ctx context.Context, actorID, subtaskID int64, finished bool) (models.Subtask, error) {
	var updated models.Subtask
	err := m.tx(ctx, "SetSubtaskFinished", func(ctx context.Context, q storage.Queries) error {
		sc, err := loadSubtask(ctx, q, actorID, subtaskID)
		if err != nil {
			return err
		}
		updated = lifecycle.SetFinished(sc.subtask, finished)
		if err := q.UpdateSubtask(ctx, updated); err != nil {
			return err
		}
		if !finished {
			return nil
		}
		siblings, err := q.ListSubtasks(ctx, sc.story.ID)
		if err != nil {
			return err
		}
		story, changed := lifecycle.AfterSubtaskFinished(sc.story, siblings)
		if !changed {
			return nil
		}
		return q.UpdateStory(ctx, story)
	})
	return updated, err
}

// SubtaskHistory lists the assignment audit rows of a subtask.
func (m *Manager) SubtaskHistory(ctx context.Context, subtaskID int64) ([]models.TaskHistory, error) {
	var rows []models.TaskHistory
	err := m.read(ctx, "SubtaskHistory", func(ctx context.Context, q storage.Queries) error {
		if _, err := q.GetSubtask(ctx, subtaskID); err != nil {
			return err
		}
		var err error
		rows, err = q.ListHistory(ctx, subtaskID)
		return err
	})
	return rows, err
}
