package service_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scrumboard/internal/lifecycle"
	"scrumboard/internal/models"
	"scrumboard/internal/service"
	"scrumboard/internal/storage/sqlite"
)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Set(t time.Time) { c.now = t }

// board is a project with one person per role on a fresh store.
type board struct {
	m       *service.Manager
	clock   *fakeClock
	admin   models.Person
	po      models.Person
	sm      models.Person
	dev     models.Person
	dev2    models.Person
	project models.Project
}

func newBoard(t *testing.T) *board {
	t.Helper()
	ctx := context.Background()
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "board.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	clock := &fakeClock{now: time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)}
	m := service.New(store, service.WithClock(clock.Now))

	b := &board{m: m, clock: clock}
	b.admin, err = m.CreatePerson(ctx, 0, models.Person{Username: "admin", Admin: true})
	require.NoError(t, err)
	for _, p := range []struct {
		dst  *models.Person
		name string
	}{{&b.po, "owner"}, {&b.sm, "master"}, {&b.dev, "dev"}, {&b.dev2, "dev2"}} {
		*p.dst, err = m.CreatePerson(ctx, b.admin.ID, models.Person{Username: p.name})
		require.NoError(t, err)
	}
	b.project, err = m.CreateProject(ctx, b.admin.ID, service.ProjectInput{
		Title: "Webshop",
		Team: service.Team{
			ProductOwner: b.po.ID,
			ScrumMaster:  b.sm.ID,
			Developers:   []int64{b.dev.ID, b.dev2.ID},
		},
	})
	require.NoError(t, err)
	return b
}

func day(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := lifecycle.ParseDate(s)
	require.NoError(t, err)
	return d
}

func (b *board) story(t *testing.T, title string, points float64) models.Story {
	t.Helper()
	ctx := context.Background()
	s, err := b.m.CreateStory(ctx, b.po.ID, b.project.ID, lifecycle.StoryInput{
		Title:         title,
		Description:   "As a shopper I want " + title,
		Tests:         "it works",
		Priority:      models.PriorityMustHave,
		BusinessValue: 5,
	})
	require.NoError(t, err)
	if points > 0 {
		s, _, err = b.m.EstimateStory(ctx, b.sm.ID, s.ID, points)
		require.NoError(t, err)
	}
	return s
}

func (b *board) sprint(t *testing.T, start, finish string, velocity int, stories ...models.Story) models.Sprint {
	t.Helper()
	ids := make([]int64, 0, len(stories))
	for _, s := range stories {
		ids = append(ids, s.ID)
	}
	s, err := b.m.CreateSprint(context.Background(), b.sm.ID, b.project.ID, lifecycle.SprintDraft{
		StartDate:  day(t, start),
		FinishDate: day(t, finish),
		Velocity:   velocity,
	}, ids)
	require.NoError(t, err)
	return s
}

func (b *board) subtask(t *testing.T, story models.Story, hours float64) models.Subtask {
	t.Helper()
	st, err := b.m.CreateSubtask(context.Background(), b.dev.ID, story.ID, lifecycle.SubtaskInput{
		Description:  "implement " + story.Title,
		TimeRequired: hours,
		Priority:     2,
	})
	require.NoError(t, err)
	return st
}

func TestBootstrapAndPermissions(t *testing.T) {
	ctx := context.Background()
	b := newBoard(t)

	_, err := b.m.CreatePerson(ctx, b.dev.ID, models.Person{Username: "intruder"})
	assert.ErrorIs(t, err, lifecycle.ErrForbidden)

	_, err = b.m.CreatePerson(ctx, 999, models.Person{Username: "ghost"})
	assert.ErrorIs(t, err, lifecycle.ErrForbidden)

	_, err = b.m.CreateProject(ctx, b.admin.ID, service.ProjectInput{
		Title: "WEBSHOP",
		Team:  service.Team{ProductOwner: b.po.ID, ScrumMaster: b.sm.ID, Developers: []int64{b.dev.ID}},
	})
	assert.ErrorIs(t, err, lifecycle.ErrConflict)

	_, err = b.m.CreateProject(ctx, b.sm.ID, service.ProjectInput{
		Title: "Other",
		Team:  service.Team{ProductOwner: b.po.ID, ScrumMaster: b.sm.ID, Developers: []int64{b.dev.ID}},
	})
	assert.ErrorIs(t, err, lifecycle.ErrForbidden)

	_, err = b.m.CreateStory(ctx, b.dev.ID, b.project.ID, lifecycle.StoryInput{
		Title: "x", Description: "x", Tests: "x", Priority: 1, BusinessValue: 1,
	})
	assert.ErrorIs(t, err, lifecycle.ErrForbidden)

	s := b.story(t, "Checkout", 0)
	_, _, err = b.m.EstimateStory(ctx, b.po.ID, s.ID, 3)
	assert.ErrorIs(t, err, lifecycle.ErrForbidden)

	_, warning, err := b.m.EstimateStory(ctx, b.sm.ID, s.ID, 60)
	require.NoError(t, err)
	assert.NotEmpty(t, warning)
}

func TestSprintPlanningScenario(t *testing.T) {
	ctx := context.Background()
	b := newBoard(t)
	s1 := b.story(t, "S1", 5)
	s2 := b.story(t, "S2", 3)

	first := b.sprint(t, "2024-06-03", "2024-06-07", 8, s1, s2)
	assert.Equal(t, "Sprint 1", first.Title)
	require.NotNil(t, first.Active)
	assert.False(t, *first.Active)

	members, err := b.m.SprintStories(ctx, first.ID)
	require.NoError(t, err)
	assert.Len(t, members, 2)

	_, err = b.m.CreateSprint(ctx, b.sm.ID, b.project.ID, lifecycle.SprintDraft{
		StartDate: day(t, "2024-06-05"), FinishDate: day(t, "2024-06-10"), Velocity: 10,
	}, nil)
	assert.ErrorIs(t, err, lifecycle.ErrConflict)

	_, err = b.m.CreateSprint(ctx, b.sm.ID, b.project.ID, lifecycle.SprintDraft{
		StartDate: day(t, "2024-06-08"), FinishDate: day(t, "2024-06-14"), Velocity: 10,
	}, nil)
	assert.ErrorIs(t, err, lifecycle.ErrValidation)

	unestimated := b.story(t, "S3", 0)
	_, err = b.m.CreateSprint(ctx, b.sm.ID, b.project.ID, lifecycle.SprintDraft{
		StartDate: day(t, "2024-06-10"), FinishDate: day(t, "2024-06-14"), Velocity: 10,
	}, []int64{unestimated.ID})
	assert.ErrorIs(t, err, lifecycle.ErrMissingEstimate)

	_, err = b.m.CreateSprint(ctx, b.sm.ID, 999, lifecycle.SprintDraft{
		StartDate: day(t, "2024-06-10"), FinishDate: day(t, "2024-06-14"), Velocity: 10,
	}, nil)
	assert.ErrorIs(t, err, lifecycle.ErrNotFound)
}

func TestSprintRenumberAfterDelete(t *testing.T) {
	ctx := context.Background()
	b := newBoard(t)
	s1 := b.story(t, "S1", 5)

	later := b.sprint(t, "2024-06-10", "2024-06-14", 10)
	earlier := b.sprint(t, "2024-06-03", "2024-06-07", 10, s1)
	assert.Equal(t, "Sprint 1", earlier.Title)

	sprints, err := b.m.ListSprints(ctx, b.project.ID)
	require.NoError(t, err)
	require.Len(t, sprints, 2)
	assert.Equal(t, earlier.ID, sprints[0].ID)
	assert.Equal(t, "Sprint 2", sprints[1].Title)
	assert.Equal(t, later.ID, sprints[1].ID)

	require.NoError(t, b.m.DeleteSprint(ctx, b.sm.ID, earlier.ID))

	got, err := b.m.GetSprint(ctx, later.ID)
	require.NoError(t, err)
	assert.Equal(t, "Sprint 1", got.Title)

	story, err := b.m.GetStory(ctx, s1.ID)
	require.NoError(t, err)
	assert.Nil(t, story.SprintID)

	b.clock.Set(time.Date(2024, 6, 11, 9, 0, 0, 0, time.UTC))
	assert.ErrorIs(t, b.m.DeleteSprint(ctx, b.sm.ID, later.ID), lifecycle.ErrForbidden)
}

func TestEditSprint(t *testing.T) {
	ctx := context.Background()
	b := newBoard(t)
	s1 := b.story(t, "S1", 5)
	sprint := b.sprint(t, "2024-06-03", "2024-06-07", 8, s1)

	_, changed, err := b.m.EditSprint(ctx, b.sm.ID, sprint.ID, lifecycle.SprintDraft{
		StartDate: sprint.StartDate, FinishDate: sprint.FinishDate, Velocity: 8,
	})
	require.NoError(t, err)
	assert.False(t, changed)

	_, _, err = b.m.EditSprint(ctx, b.sm.ID, sprint.ID, lifecycle.SprintDraft{
		StartDate: sprint.StartDate, FinishDate: sprint.FinishDate, Velocity: 4,
	})
	assert.ErrorIs(t, err, lifecycle.ErrConflict)

	updated, changed, err := b.m.EditSprint(ctx, b.sm.ID, sprint.ID, lifecycle.SprintDraft{
		StartDate: day(t, "2024-06-04"), FinishDate: day(t, "2024-06-07"), Velocity: 12,
	})
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, 12, updated.Velocity)
	assert.Equal(t, "Sprint 1", updated.Title)

	b.clock.Set(time.Date(2024, 6, 5, 9, 0, 0, 0, time.UTC))
	_, _, err = b.m.EditSprint(ctx, b.sm.ID, sprint.ID, lifecycle.SprintDraft{
		StartDate: updated.StartDate, FinishDate: updated.FinishDate, Velocity: 20,
	})
	assert.ErrorIs(t, err, lifecycle.ErrConflict)
}

func TestRealizeRoundTrip(t *testing.T) {
	ctx := context.Background()
	b := newBoard(t)
	s := b.story(t, "Round trip", 8)
	b.sprint(t, "2024-06-03", "2024-06-07", 8, s)

	_, err := b.m.RealizeStory(ctx, b.sm.ID, s.ID, false, "x")
	assert.ErrorIs(t, err, lifecycle.ErrForbidden)

	got, err := b.m.RealizeStory(ctx, b.po.ID, s.ID, false, "x")
	require.NoError(t, err)
	assert.Nil(t, got.SprintID)
	assert.True(t, got.Rejected)
	require.NotNil(t, got.RejectedTimeRequired)
	assert.Equal(t, 8.0, *got.RejectedTimeRequired)
	assert.Equal(t, "x", got.RejectedDescription)

	posts, err := b.m.RejectionHistory(ctx, s.ID)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Contains(t, posts[0].Description, "x")
}

func TestSubtaskClaimAndFinish(t *testing.T) {
	ctx := context.Background()
	b := newBoard(t)
	s := b.story(t, "S1", 5)
	b.sprint(t, "2024-06-03", "2024-06-07", 8, s)
	st := b.subtask(t, s, 4)
	assert.Nil(t, st.Assignee)

	claimed, err := b.m.ClaimSubtask(ctx, b.dev.ID, st.ID)
	require.NoError(t, err)
	require.NotNil(t, claimed.Assignee)
	assert.Equal(t, b.dev.ID, *claimed.Assignee)
	require.NotNil(t, claimed.Rejected)
	assert.False(t, *claimed.Rejected)
	assert.True(t, claimed.Accepted)

	_, err = b.m.ClaimSubtask(ctx, b.dev2.ID, st.ID)
	assert.ErrorIs(t, err, lifecycle.ErrConflict)

	_, err = b.m.ClaimSubtask(ctx, b.po.ID, st.ID)
	assert.ErrorIs(t, err, lifecycle.ErrForbidden)

	done, err := b.m.SetSubtaskFinished(ctx, b.po.ID, st.ID, true)
	require.NoError(t, err)
	assert.True(t, done.Finished)

	story, err := b.m.GetStory(ctx, s.ID)
	require.NoError(t, err)
	assert.True(t, story.Active)

	history, err := b.m.SubtaskHistory(ctx, st.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, models.HistoryClaimed, history[0].Action)

	realized, err := b.m.RealizeStory(ctx, b.po.ID, s.ID, true, "looks good")
	require.NoError(t, err)
	assert.True(t, realized.Finished)

	posts, err := b.m.ListPosts(ctx, b.project.ID)
	require.NoError(t, err)
	assert.Len(t, posts, 1)
}

func TestAssignmentHandshake(t *testing.T) {
	ctx := context.Background()
	b := newBoard(t)
	s := b.story(t, "S1", 5)
	st := b.subtask(t, s, 4)

	_, err := b.m.AssignSubtask(ctx, b.dev.ID, st.ID, &b.dev2.ID)
	assert.ErrorIs(t, err, lifecycle.ErrForbidden)

	_, err = b.m.AssignSubtask(ctx, b.sm.ID, st.ID, &b.po.ID)
	assert.ErrorIs(t, err, lifecycle.ErrValidation)

	assigned, err := b.m.AssignSubtask(ctx, b.sm.ID, st.ID, &b.dev2.ID)
	require.NoError(t, err)
	assert.Nil(t, assigned.Rejected)

	_, err = b.m.AcceptSubtask(ctx, b.dev.ID, st.ID)
	assert.ErrorIs(t, err, lifecycle.ErrForbidden)

	rejected, err := b.m.RejectSubtask(ctx, b.dev2.ID, st.ID)
	require.NoError(t, err)
	require.NotNil(t, rejected.Rejected)
	assert.True(t, *rejected.Rejected)

	_, err = b.m.AcceptSubtask(ctx, b.dev2.ID, st.ID)
	assert.ErrorIs(t, err, lifecycle.ErrConflict)

	history, err := b.m.SubtaskHistory(ctx, st.ID)
	require.NoError(t, err)
	assert.Len(t, history, 1)
	assert.Equal(t, models.HistoryRejected, history[0].Action)
}

func TestIncompleteSubtasksBlockRealize(t *testing.T) {
	ctx := context.Background()
	b := newBoard(t)
	s := b.story(t, "S1", 5)
	b.subtask(t, s, 4)

	_, err := b.m.RealizeStory(ctx, b.po.ID, s.ID, true, "ok")
	assert.ErrorIs(t, err, lifecycle.ErrConflict)

	b.sprint(t, "2024-06-03", "2024-06-07", 8, s)
	_, err = b.m.RealizeStory(ctx, b.po.ID, s.ID, true, "ok")
	assert.ErrorIs(t, err, lifecycle.ErrIncompleteSubtasks)
}

func TestTimeTracking(t *testing.T) {
	ctx := context.Background()
	b := newBoard(t)
	s := b.story(t, "S1", 5)
	b.sprint(t, "2024-06-03", "2024-06-07", 8, s)
	first := b.subtask(t, s, 4)
	second := b.subtask(t, s, 2)
	for _, st := range []models.Subtask{first, second} {
		_, err := b.m.ClaimSubtask(ctx, b.dev.ID, st.ID)
		require.NoError(t, err)
	}

	b.clock.Set(time.Date(2024, 6, 4, 7, 0, 0, 0, time.UTC))

	_, err := b.m.StartTimeLog(ctx, b.dev2.ID, first.ID)
	assert.ErrorIs(t, err, lifecycle.ErrForbidden)

	started, err := b.m.StartTimeLog(ctx, b.dev.ID, first.ID)
	require.NoError(t, err)
	assert.True(t, started.Open())

	_, err = b.m.StartTimeLog(ctx, b.dev.ID, second.ID)
	assert.ErrorIs(t, err, lifecycle.ErrConflict)

	active, err := b.m.ActiveTimeLog(ctx, b.dev.ID)
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, first.ID, active.TaskID)

	b.clock.Set(time.Date(2024, 6, 4, 9, 0, 0, 0, time.UTC))
	_, err = b.m.StopTimeLog(ctx, b.dev.ID, first.ID, nil)
	assert.ErrorIs(t, err, lifecycle.ErrValidation)

	remaining := 2.0
	stopped, err := b.m.StopTimeLog(ctx, b.dev.ID, first.ID, &remaining)
	require.NoError(t, err)
	assert.InDelta(t, 2.0, stopped.Duration, 0.01)

	tracked, err := b.m.GetSubtask(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, 2.0, tracked.TimeRequired, "stop carries the estimate onto the subtask")

	_, err = b.m.StopTimeLog(ctx, b.dev.ID, first.ID, &remaining)
	assert.ErrorIs(t, err, lifecycle.ErrConflict)

	rem := 1.0
	manual, err := b.m.ManualTimeLog(ctx, b.dev.ID, first.ID, lifecycle.ManualEntry{
		Date: day(t, "2024-06-03"), Duration: 3, EstimatedRemaining: &rem,
	})
	require.NoError(t, err)
	assert.Equal(t, 3.0, manual.Duration)

	_, err = b.m.ManualTimeLog(ctx, b.dev.ID, first.ID, lifecycle.ManualEntry{
		Date: day(t, "2024-06-05"), Duration: 1, EstimatedRemaining: &rem,
	})
	assert.ErrorIs(t, err, lifecycle.ErrValidation)

	_, err = b.m.ManualTimeLog(ctx, b.dev.ID, first.ID, lifecycle.ManualEntry{
		Date: day(t, "2024-05-31"), Duration: 1, EstimatedRemaining: &rem,
	})
	assert.ErrorIs(t, err, lifecycle.ErrConflict)

	_, err = b.m.ManualTimeLog(ctx, b.dev.ID, first.ID, lifecycle.ManualEntry{
		Date: day(t, "2024-06-03"), Duration: 1, EstimatedRemaining: &rem,
	})
	assert.ErrorIs(t, err, lifecycle.ErrConflict)

	summary, err := b.m.Remaining(ctx, first.ID)
	require.NoError(t, err)
	assert.InDelta(t, 5.0, summary.Logged, 0.01)
	assert.Equal(t, 2.0, summary.Remaining)

	task, err := b.m.GetSubtask(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, 1.0, task.TimeRequired)

	assert.ErrorIs(t, b.m.DeleteSubtask(ctx, b.sm.ID, first.ID), lifecycle.ErrConflict)

	assert.ErrorIs(t, b.m.DeleteTimeLog(ctx, b.dev2.ID, manual.ID), lifecycle.ErrForbidden)
	require.NoError(t, b.m.DeleteTimeLog(ctx, b.dev.ID, manual.ID))

	logs, err := b.m.ListTimeLogs(ctx, first.ID)
	require.NoError(t, err)
	assert.Len(t, logs, 1)
}

func TestCompleteSprint(t *testing.T) {
	ctx := context.Background()
	b := newBoard(t)
	s1 := b.story(t, "S1", 5)
	s2 := b.story(t, "S2", 3)
	sprint := b.sprint(t, "2024-06-03", "2024-06-07", 8, s1, s2)
	returned := []lifecycle.ReturnedStory{{StoryID: s2.ID, Reason: "Not finished", Comment: "ran out of time"}}

	_, err := b.m.CompleteSprint(ctx, b.sm.ID, sprint.ID, returned)
	assert.ErrorIs(t, err, lifecycle.ErrConflict)

	b.clock.Set(time.Date(2024, 6, 7, 15, 0, 0, 0, time.UTC))
	stories, err := b.m.CompleteSprint(ctx, b.sm.ID, sprint.ID, returned)
	require.NoError(t, err)
	require.Len(t, stories, 1)
	assert.Nil(t, stories[0].SprintID)
	assert.True(t, stories[0].Rejected)

	posts, err := b.m.ListPosts(ctx, b.project.ID)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, `Story "S2" returned to Product Backlog`, posts[0].Title)
	assert.Equal(t, "Reason: Not finished\nran out of time", posts[0].Description)
}

func TestBurndownAndReconcile(t *testing.T) {
	ctx := context.Background()
	b := newBoard(t)
	s1 := b.story(t, "S1", 5)
	s2 := b.story(t, "S2", 5)
	sprint := b.sprint(t, "2024-06-03", "2024-06-07", 10, s1, s2)

	b.clock.Set(time.Date(2024, 6, 4, 12, 0, 0, 0, time.UTC))
	points, err := b.m.Burndown(ctx, sprint.ID)
	require.NoError(t, err)
	require.Len(t, points, 5)
	assert.Equal(t, 10.0, points[0].Ideal)
	assert.Equal(t, 2.0, points[4].Ideal)
	require.NotNil(t, points[1].Actual)
	assert.Equal(t, 10.0, *points[1].Actual)
	assert.Nil(t, points[2].Actual)

	n, err := b.m.Reconcile(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := b.m.GetSprint(ctx, sprint.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Active)
	assert.True(t, *got.Active)

	b.clock.Set(time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC))
	got, err = b.m.GetSprint(ctx, sprint.ID)
	require.NoError(t, err)
	assert.Nil(t, got.Active)

	n, err = b.m.Reconcile(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestListSprintsStoresStatus(t *testing.T) {
	ctx := context.Background()
	b := newBoard(t)
	s1 := b.story(t, "S1", 3)
	s2 := b.story(t, "S2", 3)
	b.sprint(t, "2024-06-03", "2024-06-07", 5, s1)
	b.sprint(t, "2024-06-10", "2024-06-14", 5, s2)

	b.clock.Set(time.Date(2024, 6, 17, 9, 0, 0, 0, time.UTC))
	sprints, err := b.m.ListSprints(ctx, b.project.ID)
	require.NoError(t, err)
	require.Len(t, sprints, 2)
	for _, s := range sprints {
		assert.Nil(t, s.Active, s.Title)
	}

	n, err := b.m.Reconcile(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "listing already stored both statuses")

	_, err = b.m.ListSprints(ctx, 999)
	assert.ErrorIs(t, err, lifecycle.ErrNotFound)
}

func TestBoardAndMoves(t *testing.T) {
	ctx := context.Background()
	b := newBoard(t)
	s1 := b.story(t, "S1", 3)
	s2 := b.story(t, "S2", 0)
	b.sprint(t, "2024-06-03", "2024-06-07", 8)

	moved, err := b.m.MoveStory(ctx, b.sm.ID, s1.ID, lifecycle.ColumnInProgress, nil)
	require.NoError(t, err)
	require.NotNil(t, moved.SprintID)
	assert.True(t, moved.Active)

	_, err = b.m.MoveStory(ctx, b.dev.ID, s2.ID, lifecycle.ColumnSprintBacklog, nil)
	assert.ErrorIs(t, err, lifecycle.ErrMissingEstimate)

	_, err = b.m.MoveStory(ctx, b.dev.ID, s1.ID, lifecycle.ColumnDone, nil)
	assert.ErrorIs(t, err, lifecycle.ErrForbidden)

	columns, err := b.m.GetBoard(ctx, b.project.ID)
	require.NoError(t, err)
	require.Len(t, columns, len(lifecycle.Columns))
	assert.Equal(t, lifecycle.ColumnBacklog, columns[0].Column)
	require.Len(t, columns[0].Stories, 1)
	assert.Equal(t, s2.ID, columns[0].Stories[0].ID)
	require.Len(t, columns[2].Stories, 1)
	assert.Equal(t, s1.ID, columns[2].Stories[0].ID)

	assert.ErrorIs(t, b.m.DeleteStory(ctx, b.po.ID, s1.ID), lifecycle.ErrConflict)
	require.NoError(t, b.m.DeleteStory(ctx, b.po.ID, s2.ID))
}

func TestTeamChangesKeepBusyDevelopers(t *testing.T) {
	ctx := context.Background()
	b := newBoard(t)
	s := b.story(t, "S1", 5)
	st := b.subtask(t, s, 4)
	_, err := b.m.ClaimSubtask(ctx, b.dev.ID, st.ID)
	require.NoError(t, err)

	team := service.Team{ProductOwner: b.po.ID, ScrumMaster: b.sm.ID, Developers: []int64{b.dev2.ID}}
	_, err = b.m.UpdateProjectMembers(ctx, b.sm.ID, b.project.ID, team)
	assert.ErrorIs(t, err, lifecycle.ErrConflict)

	_, err = b.m.UpdateProjectMembers(ctx, b.dev.ID, b.project.ID, team)
	assert.ErrorIs(t, err, lifecycle.ErrForbidden)

	team.Developers = []int64{b.dev.ID}
	project, err := b.m.UpdateProjectMembers(ctx, b.sm.ID, b.project.ID, team)
	require.NoError(t, err)
	assert.Len(t, project.Members, 3)
}
