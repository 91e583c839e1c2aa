package lifecycle_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scrumboard/internal/lifecycle"
	"scrumboard/internal/models"
)

var ledger = lifecycle.Ledger{Calendar: ljubljana}

func acceptedBy(taskID, userID int64) models.Subtask {
	return models.Subtask{ID: taskID, TimeRequired: 6, Assignee: id(userID), Rejected: flag(false), Accepted: true}
}

func TestStartTimeLog(t *testing.T) {
	now := time.Date(2024, 6, 4, 8, 30, 0, 0, time.UTC)

	log, err := ledger.Start(acceptedBy(1, 7), 7, nil, nil, now)
	require.NoError(t, err)
	assert.Zero(t, log.ID)
	assert.True(t, log.Open())
	assert.Equal(t, date(t, "2024-06-04"), log.Date)

	_, err = ledger.Start(acceptedBy(2, 7), 7, []models.TimeLog{log}, nil, now)
	assert.ErrorIs(t, err, lifecycle.ErrConflict, "second task while first is open")

	_, err = ledger.Start(acceptedBy(1, 7), 7, []models.TimeLog{log}, &log, now)
	assert.ErrorIs(t, err, lifecycle.ErrConflict)

	_, err = ledger.Start(acceptedBy(1, 7), 8, nil, nil, now)
	assert.ErrorIs(t, err, lifecycle.ErrForbidden)

	pending := models.Subtask{ID: 1, Assignee: id(7)}
	_, err = ledger.Start(pending, 7, nil, nil, now)
	assert.ErrorIs(t, err, lifecycle.ErrForbidden)

	done := acceptedBy(1, 7)
	done.Finished = true
	_, err = ledger.Start(done, 7, nil, nil, now)
	assert.ErrorIs(t, err, lifecycle.ErrConflict)
}

func TestStartReopensTodaysLog(t *testing.T) {
	earlier := time.Date(2024, 6, 4, 7, 0, 0, 0, time.UTC)
	ended := earlier.Add(time.Hour)
	closed := models.TimeLog{ID: 5, TaskID: 1, UserID: 7, Date: date(t, "2024-06-04"), StartTime: &earlier, EndTime: &ended, Duration: 1}
	now := time.Date(2024, 6, 4, 10, 0, 0, 0, time.UTC)

	log, err := ledger.Start(acceptedBy(1, 7), 7, nil, &closed, now)
	require.NoError(t, err)
	assert.Equal(t, int64(5), log.ID)
	assert.True(t, log.Open())
	assert.Equal(t, now, *log.StartTime)
	assert.Equal(t, 1.0, log.Duration)
}

func TestStopTimeLog(t *testing.T) {
	started := time.Date(2024, 6, 4, 8, 0, 0, 0, time.UTC)
	open := models.TimeLog{ID: 5, TaskID: 1, UserID: 7, Date: date(t, "2024-06-04"), StartTime: &started, Duration: 0.5}
	now := started.Add(90 * time.Minute)

	_, err := ledger.Stop(&open, nil, now)
	assert.ErrorIs(t, err, lifecycle.ErrValidation)

	_, err = ledger.Stop(&open, points(-1), now)
	assert.ErrorIs(t, err, lifecycle.ErrValidation)

	_, err = ledger.Stop(nil, points(2), now)
	assert.ErrorIs(t, err, lifecycle.ErrConflict)

	stopped, err := ledger.Stop(&open, points(0), now)
	require.NoError(t, err)
	assert.False(t, stopped.Open())
	assert.InDelta(t, 2.0, stopped.Duration, 1e-9)
	require.NotNil(t, stopped.EstimatedRemaining)
	assert.Equal(t, 0.0, *stopped.EstimatedRemaining)
}

func TestManualTimeLog(t *testing.T) {
	sprint := &models.Sprint{ID: 3, StartDate: date(t, "2024-06-03"), FinishDate: date(t, "2024-06-07")}
	now := time.Date(2024, 6, 5, 18, 0, 0, 0, time.UTC)
	st := acceptedBy(1, 7)

	log, next, err := ledger.Manual(st, sprint, 7, lifecycle.ManualEntry{
		Date: date(t, "2024-06-04"), Duration: 3, EstimatedRemaining: points(2.5),
	}, nil, now)
	require.NoError(t, err)
	assert.False(t, log.Open())
	assert.Nil(t, log.StartTime)
	assert.Equal(t, 3.0, log.Duration)
	assert.Equal(t, 2.5, next.TimeRequired)

	tests := []struct {
		name     string
		entry    lifecycle.ManualEntry
		sprint   *models.Sprint
		existing *models.TimeLog
		want     error
	}{
		{
			name:   "future",
			entry:  lifecycle.ManualEntry{Date: date(t, "2024-06-06"), Duration: 1, EstimatedRemaining: points(1)},
			sprint: sprint,
			want:   lifecycle.ErrValidation,
		},
		{
			name:   "before sprint",
			entry:  lifecycle.ManualEntry{Date: date(t, "2024-05-31"), Duration: 1, EstimatedRemaining: points(1)},
			sprint: sprint,
			want:   lifecycle.ErrConflict,
		},
		{
			name:  "no sprint",
			entry: lifecycle.ManualEntry{Date: date(t, "2024-06-04"), Duration: 1, EstimatedRemaining: points(1)},
			want:  lifecycle.ErrConflict,
		},
		{
			name:     "duplicate date",
			entry:    lifecycle.ManualEntry{Date: date(t, "2024-06-04"), Duration: 1, EstimatedRemaining: points(1)},
			sprint:   sprint,
			existing: &log,
			want:     lifecycle.ErrConflict,
		},
		{
			name:   "zero duration",
			entry:  lifecycle.ManualEntry{Date: date(t, "2024-06-04"), EstimatedRemaining: points(1)},
			sprint: sprint,
			want:   lifecycle.ErrValidation,
		},
		{
			name:   "missing remaining",
			entry:  lifecycle.ManualEntry{Date: date(t, "2024-06-04"), Duration: 1},
			sprint: sprint,
			want:   lifecycle.ErrValidation,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := ledger.Manual(st, tt.sprint, 7, tt.entry, tt.existing, now)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestEditAndDeleteLog(t *testing.T) {
	log := models.TimeLog{ID: 1, UserID: 7, Duration: 2}

	_, err := lifecycle.EditLog(log, 8, lifecycle.LogEdit{Duration: points(1)})
	assert.ErrorIs(t, err, lifecycle.ErrForbidden)

	_, err = lifecycle.EditLog(log, 7, lifecycle.LogEdit{})
	assert.ErrorIs(t, err, lifecycle.ErrValidation)

	_, err = lifecycle.EditLog(log, 7, lifecycle.LogEdit{EstimatedRemaining: points(-2)})
	assert.ErrorIs(t, err, lifecycle.ErrValidation)

	edited, err := lifecycle.EditLog(log, 7, lifecycle.LogEdit{Duration: points(1.5), EstimatedRemaining: points(3)})
	require.NoError(t, err)
	assert.Equal(t, 1.5, edited.Duration)
	assert.Equal(t, 3.0, *edited.EstimatedRemaining)

	assert.ErrorIs(t, lifecycle.CanDeleteLog(log, 8), lifecycle.ErrForbidden)
	assert.NoError(t, lifecycle.CanDeleteLog(log, 7))
}

func TestRemaining(t *testing.T) {
	st := models.Subtask{ID: 1, TimeRequired: 6}
	assert.Equal(t, 6.0, lifecycle.Remaining(st, nil))

	logs := []models.TimeLog{
		{ID: 1, TaskID: 1, Date: date(t, "2024-06-05"), Duration: 2, EstimatedRemaining: points(1)},
		{ID: 2, TaskID: 1, Date: date(t, "2024-06-03"), Duration: 4, EstimatedRemaining: points(5)},
		{ID: 3, TaskID: 1, Date: date(t, "2024-06-06")},
	}
	assert.Equal(t, 1.0, lifecycle.Remaining(st, logs))
	assert.True(t, lifecycle.Touched(logs))
	assert.False(t, lifecycle.Touched(nil))
	assert.Equal(t, 6.0, lifecycle.LoggedHours(logs))
}
