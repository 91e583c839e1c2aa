package lifecycle_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scrumboard/internal/lifecycle"
	"scrumboard/internal/models"
)

var (
	scrumMaster = lifecycle.Roles{PersonID: 1, ScrumMaster: true}
	developer   = lifecycle.Roles{PersonID: 7, Developer: true}
	otherDev    = lifecycle.Roles{PersonID: 8, Developer: true}
	taskTime    = time.Date(2024, 6, 4, 9, 0, 0, 0, time.UTC)
)

func flag(b bool) *bool { return &b }

func TestNewSubtask(t *testing.T) {
	story := models.Story{ID: 3}
	in := lifecycle.SubtaskInput{Description: "write handler", TimeRequired: 4, Priority: 2}

	st, err := lifecycle.NewSubtask(story, in, developer)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.SubtaskUnassigned, lifecycle.StateOf(st))

	in.Assignee = id(7)
	_, err = lifecycle.NewSubtask(story, in, developer)
	assert.ErrorIs(t, err, lifecycle.ErrForbidden)

	st, err = lifecycle.NewSubtask(story, in, scrumMaster)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.SubtaskPendingAcceptance, lifecycle.StateOf(st))

	for _, hours := range []float64{0.5, 51} {
		bad := lifecycle.SubtaskInput{Description: "x", TimeRequired: hours, Priority: 1}
		_, err = lifecycle.NewSubtask(story, bad, scrumMaster)
		assert.ErrorIs(t, err, lifecycle.ErrValidation, "hours %v", hours)
	}

	_, err = lifecycle.NewSubtask(models.Story{ID: 3, Finished: true}, lifecycle.SubtaskInput{Description: "x", TimeRequired: 2, Priority: 1}, scrumMaster)
	assert.ErrorIs(t, err, lifecycle.ErrConflict)
}

func TestClaimFinishScenario(t *testing.T) {
	st := models.Subtask{ID: 1, StoryID: 3, TimeRequired: 4}

	change, err := lifecycle.Claim(st, 7, taskTime)
	require.NoError(t, err)
	claimed := change.Subtask
	require.NotNil(t, claimed.Assignee)
	assert.Equal(t, int64(7), *claimed.Assignee)
	require.NotNil(t, claimed.Rejected)
	assert.False(t, *claimed.Rejected)
	assert.True(t, claimed.Accepted)
	require.NotNil(t, change.History)
	assert.Equal(t, models.HistoryClaimed, change.History.Action)

	finished := lifecycle.SetFinished(claimed, true)
	assert.True(t, finished.Finished)
	assert.Equal(t, lifecycle.SubtaskFinished, lifecycle.StateOf(finished))

	_, err = lifecycle.Claim(claimed, 8, taskTime)
	assert.ErrorIs(t, err, lifecycle.ErrConflict)
}

func TestAssignAcceptReject(t *testing.T) {
	st := models.Subtask{ID: 1}

	_, err := lifecycle.Assign(st, id(7), developer, taskTime)
	assert.ErrorIs(t, err, lifecycle.ErrForbidden)

	change, err := lifecycle.Assign(st, id(7), scrumMaster, taskTime)
	require.NoError(t, err)
	assert.Nil(t, change.History, "first assignment has no previous holder")
	pending := change.Subtask
	assert.Equal(t, lifecycle.SubtaskPendingAcceptance, lifecycle.StateOf(pending))

	_, err = lifecycle.Accept(pending, 8, taskTime)
	assert.ErrorIs(t, err, lifecycle.ErrForbidden)

	change, err = lifecycle.Accept(pending, 7, taskTime)
	require.NoError(t, err)
	accepted := change.Subtask
	assert.Equal(t, lifecycle.SubtaskAccepted, lifecycle.StateOf(accepted))
	assert.True(t, accepted.Accepted)

	_, err = lifecycle.Accept(accepted, 7, taskTime)
	assert.ErrorIs(t, err, lifecycle.ErrConflict)

	change, err = lifecycle.Assign(accepted, id(8), scrumMaster, taskTime)
	require.NoError(t, err)
	require.NotNil(t, change.History)
	assert.Equal(t, models.HistoryReassigned, change.History.Action)
	assert.Equal(t, int64(7), *change.History.PreviousAssignee)
	assert.Equal(t, int64(8), *change.History.NewAssignee)
	assert.Nil(t, change.Subtask.Rejected)

	_, err = lifecycle.Reject(change.Subtask, 7, taskTime)
	assert.ErrorIs(t, err, lifecycle.ErrForbidden)

	change, err = lifecycle.Reject(change.Subtask, 8, taskTime)
	require.NoError(t, err)
	rejected := change.Subtask
	assert.Equal(t, lifecycle.SubtaskRejected, lifecycle.StateOf(rejected))
	assert.Equal(t, int64(8), *rejected.Assignee, "assignee kept for audit")

	change, err = lifecycle.Assign(rejected, id(7), scrumMaster, taskTime)
	require.NoError(t, err)
	assert.Nil(t, change.History, "rejected tasks are reassigned without a history row")
}

func TestAssignSameAssigneeIsNoop(t *testing.T) {
	st := models.Subtask{ID: 1, Assignee: id(7), Rejected: flag(false), Accepted: true}

	change, err := lifecycle.Assign(st, id(7), developer, taskTime)
	require.NoError(t, err)
	assert.Equal(t, st, change.Subtask)
	assert.Nil(t, change.History)
}

func TestEditSubtaskLock(t *testing.T) {
	st := models.Subtask{ID: 1, Description: "x", TimeRequired: 4, Priority: 1, Assignee: id(7), Rejected: flag(false), Accepted: true}
	hours := 2.5

	_, err := lifecycle.EditSubtask(st, lifecycle.SubtaskEdit{TimeRequired: &hours}, otherDev, taskTime)
	assert.ErrorIs(t, err, lifecycle.ErrForbidden)

	change, err := lifecycle.EditSubtask(st, lifecycle.SubtaskEdit{TimeRequired: &hours}, developer, taskTime)
	require.NoError(t, err)
	assert.Equal(t, 2.5, change.Subtask.TimeRequired)

	tooMany := 9.0
	_, err = lifecycle.EditSubtask(st, lifecycle.SubtaskEdit{TimeRequired: &tooMany}, scrumMaster, taskTime)
	assert.ErrorIs(t, err, lifecycle.ErrValidation)

	change, err = lifecycle.EditSubtask(st, lifecycle.SubtaskEdit{SetAssignee: true, Assignee: id(8)}, scrumMaster, taskTime)
	require.NoError(t, err)
	assert.Nil(t, change.Subtask.Rejected)
	assert.Equal(t, lifecycle.SubtaskPendingAcceptance, lifecycle.StateOf(change.Subtask))

	change, err = lifecycle.EditSubtask(st, lifecycle.SubtaskEdit{SetAssignee: true}, scrumMaster, taskTime)
	require.NoError(t, err)
	assert.Nil(t, change.Subtask.Assignee)
	assert.Equal(t, lifecycle.SubtaskUnassigned, lifecycle.StateOf(change.Subtask))
}

func TestCanDeleteSubtask(t *testing.T) {
	st := models.Subtask{ID: 1}

	assert.NoError(t, lifecycle.CanDeleteSubtask(st, developer, false))
	assert.ErrorIs(t, lifecycle.CanDeleteSubtask(st, developer, true), lifecycle.ErrConflict)
	assert.ErrorIs(t, lifecycle.CanDeleteSubtask(models.Subtask{Finished: true}, scrumMaster, false), lifecycle.ErrConflict)

	held := models.Subtask{Assignee: id(7), Rejected: flag(false)}
	assert.ErrorIs(t, lifecycle.CanDeleteSubtask(held, otherDev, false), lifecycle.ErrForbidden)
	assert.True(t, lifecycle.OpenFor(held, 7))
	assert.False(t, lifecycle.OpenFor(held, 8))
}

func TestCheckDeveloperRemoval(t *testing.T) {
	members := []models.Member{
		{PersonID: 1, Role: models.RoleScrumMaster},
		{PersonID: 7, Role: models.RoleDeveloper},
		{PersonID: 8, Role: models.RoleDeveloper},
	}
	names := map[int64]string{7: "ana", 8: "bor"}

	err := lifecycle.CheckDeveloperRemoval(members, []int64{8}, map[int64]int{7: 1}, names)
	require.Error(t, err)
	assert.ErrorIs(t, err, lifecycle.ErrConflict)
	assert.Contains(t, err.Error(), "ana")

	assert.NoError(t, lifecycle.CheckDeveloperRemoval(members, []int64{7}, map[int64]int{7: 1}, names))

	roles := lifecycle.RolesFor(models.Person{ID: 1}, members)
	assert.True(t, roles.CanPlanSprints())
	assert.False(t, roles.CanAcceptStories())
	assert.True(t, lifecycle.IsDeveloper(members, 8))
	assert.False(t, lifecycle.IsDeveloper(members, 1))
}
