// Package storage declares the persistence contract of the board. The
// sqlite sub-package implements it.
package storage

import (
	"context"
	"time"

	"scrumboard/internal/models"
)

// Queries is the set of record operations available both on the store and
// inside a transaction. Lookups by id return a lifecycle NotFound error
// when the row does not exist; unique constraint violations surface as
// lifecycle Conflict errors.
type Queries interface {
	// People
	CreatePerson(ctx context.Context, p models.Person) (models.Person, error)
	GetPerson(ctx context.Context, id int64) (models.Person, error)
	ListPeople(ctx context.Context) ([]models.Person, error)

	// Projects and membership
	CreateProject(ctx context.Context, p models.Project) (models.Project, error)
	GetProject(ctx context.Context, id int64) (models.Project, error)
	ListProjects(ctx context.Context) ([]models.Project, error)
	ReplaceMembers(ctx context.Context, projectID int64, members []models.Member) error
	// CountOpenSubtasks counts subtasks in the project accepted by personID
	// and not yet finished.
	CountOpenSubtasks(ctx context.Context, projectID, personID int64) (int, error)

	// Sprints
	CreateSprint(ctx context.Context, s models.Sprint) (models.Sprint, error)
	GetSprint(ctx context.Context, id int64) (models.Sprint, error)
	ListSprints(ctx context.Context, projectID int64) ([]models.Sprint, error)
	ListAllSprints(ctx context.Context) ([]models.Sprint, error)
	UpdateSprint(ctx context.Context, s models.Sprint) error
	DeleteSprint(ctx context.Context, id int64) error

	// Stories
	CreateStory(ctx context.Context, s models.Story) (models.Story, error)
	GetStory(ctx context.Context, id int64) (models.Story, error)
	ListStories(ctx context.Context, projectID int64) ([]models.Story, error)
	ListSprintStories(ctx context.Context, sprintID int64) ([]models.Story, error)
	UpdateStory(ctx context.Context, s models.Story) error
	DeleteStory(ctx context.Context, id int64) error

	// Subtasks
	CreateSubtask(ctx context.Context, st models.Subtask) (models.Subtask, error)
	GetSubtask(ctx context.Context, id int64) (models.Subtask, error)
	ListSubtasks(ctx context.Context, storyID int64) ([]models.Subtask, error)
	UpdateSubtask(ctx context.Context, st models.Subtask) error
	DeleteSubtask(ctx context.Context, id int64) error
	AddHistory(ctx context.Context, h models.TaskHistory) error
	ListHistory(ctx context.Context, subtaskID int64) ([]models.TaskHistory, error)

	// Time logs
	CreateTimeLog(ctx context.Context, l models.TimeLog) (models.TimeLog, error)
	GetTimeLog(ctx context.Context, id int64) (models.TimeLog, error)
	UpdateTimeLog(ctx context.Context, l models.TimeLog) error
	DeleteTimeLog(ctx context.Context, id int64) error
	ListTimeLogs(ctx context.Context, taskID int64) ([]models.TimeLog, error)
	// OpenTimeLogs lists the user's logs that are being tracked, on any task.
	OpenTimeLogs(ctx context.Context, userID int64) ([]models.TimeLog, error)
	// FindTimeLog returns the user's log for the task on date, or nil.
	FindTimeLog(ctx context.Context, userID, taskID int64, date time.Time) (*models.TimeLog, error)

	// Wall posts
	CreatePost(ctx context.Context, p models.WallPost) (models.WallPost, error)
	ListPosts(ctx context.Context, projectID int64) ([]models.WallPost, error)
	ListStoryPosts(ctx context.Context, storyID int64) ([]models.WallPost, error)
}

// Store is a Queries implementation that can also run a function inside
// one transaction. fn must use the Queries it is handed and nothing else;
// the transaction commits when fn returns nil.
type Store interface {
	Queries
	RunInTx(ctx context.Context, fn func(q Queries) error) error
	Close() error
}
