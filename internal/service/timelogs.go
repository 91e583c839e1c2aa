package service

import (
	"context"

	"scrumboard/internal/lifecycle"
	"scrumboard/internal/models"
	"scrumboard/internal/storage"
)

// StartTimeLog starts tracking the actor's time on a subtask. A log the
// actor already has for today is reopened instead of creating a new one.
func (m *Manager) StartTimeLog(ctx context.Context, actorID, subtaskID int64) (models.TimeLog, error) {
	var started models.TimeLog
	err := m.tx(ctx, "StartTimeLog", func(ctx context.Context, q storage.Queries) error {
		if _, err := actor(ctx, q, actorID); err != nil {
			return err
		}
		st, err := q.GetSubtask(ctx, subtaskID)
		if err != nil {
			return err
		}
		open, err := q.OpenTimeLogs(ctx, actorID)
		if err != nil {
			return err
		}
		now := m.now()
		today, err := q.FindTimeLog(ctx, actorID, subtaskID, m.calendar.Today(now))
		if err != nil {
			return err
		}
		started, err = m.ledger.Start(st, actorID, open, today, now)
		if err != nil {
			return err
		}
		if started.ID == 0 {
			started, err = q.CreateTimeLog(ctx, started)
			return err
		}
		return q.UpdateTimeLog(ctx, started)
	})
	return started, err
}

// StopTimeLog closes the actor's open session on a subtask and records the
// new remaining estimate on the log and the subtask. Sessions started on an
// earlier day are closed on the log they were opened on.
func (m *Manager) StopTimeLog(ctx context.Context, actorID, subtaskID int64, remaining *float64) (models.TimeLog, error) {
	var stopped models.TimeLog
	err := m.tx(ctx, "StopTimeLog", func(ctx context.Context, q storage.Queries) error {
		if _, err := actor(ctx, q, actorID); err != nil {
			return err
		}
		st, err := q.GetSubtask(ctx, subtaskID)
		if err != nil {
			return err
		}
		open, err := q.OpenTimeLogs(ctx, actorID)
		if err != nil {
			return err
		}
		var session *models.TimeLog
		for i := range open {
			if open[i].TaskID == subtaskID {
				session = &open[i]
				break
			}
		}
		stopped, err = m.ledger.Stop(session, remaining, m.now())
		if err != nil {
			return err
		}
		if err := q.UpdateTimeLog(ctx, stopped); err != nil {
			return err
		}
		st.TimeRequired = *stopped.EstimatedRemaining
		return q.UpdateSubtask(ctx, st)
	})
	return stopped, err
}

// ManualTimeLog records hours typed in for a past day of the sprint.
func (m *Manager) ManualTimeLog(ctx context.Context, actorID, subtaskID int64, entry lifecycle.ManualEntry) (models.TimeLog, error) {
	var created models.TimeLog
	err := m.tx(ctx, "ManualTimeLog", func(ctx context.Context, q storage.Queries) error {
		if _, err := actor(ctx, q, actorID); err != nil {
			return err
		}
		st, err := q.GetSubtask(ctx, subtaskID)
		if err != nil {
			return err
		}
		story, err := q.GetStory(ctx, st.StoryID)
		if err != nil {
			return err
		}
		var sprint *models.Sprint
		if story.SprintID != nil {
			s, err := q.GetSprint(ctx, *story.SprintID)
			if err != nil {
				return err
			}
			sprint = &s
		}
		var existing *models.TimeLog
		if !entry.Date.IsZero() {
			existing, err = q.FindTimeLog(ctx, actorID, subtaskID, lifecycle.Day(entry.Date))
			if err != nil {
				return err
			}
		}
		log, next, err := m.ledger.Manual(st, sprint, actorID, entry, existing, m.now())
		if err != nil {
			return err
		}
		if created, err = q.CreateTimeLog(ctx, log); err != nil {
			return err
		}
		return q.UpdateSubtask(ctx, next)
	})
	return created, err
}

// UpdateTimeLog corrects the hours or the estimate of one of the actor's
// logs.
func (m *Manager) UpdateTimeLog(ctx context.Context, actorID, logID int64, edit lifecycle.LogEdit) (models.TimeLog, error) {
	var updated models.TimeLog
	err := m.tx(ctx, "UpdateTimeLog", func(ctx context.Context, q storage.Queries) error {
		if _, err := actor(ctx, q, actorID); err != nil {
			return err
		}
		log, err := q.GetTimeLog(ctx, logID)
		if err != nil {
			return err
		}
		updated, err = lifecycle.EditLog(log, actorID, edit)
		if err != nil {
			return err
		}
		return q.UpdateTimeLog(ctx, updated)
	})
	return updated, err
}

// DeleteTimeLog removes one of the actor's logs.
func (m *Manager) DeleteTimeLog(ctx context.Context, actorID, logID int64) error {
	return m.tx(ctx, "DeleteTimeLog", func(ctx context.Context, q storage.Queries) error {
		if _, err := actor(ctx, q, actorID); err != nil {
			return err
		}
		log, err := q.GetTimeLog(ctx, logID)
		if err != nil {
			return err
		}
		if err := lifecycle.CanDeleteLog(log, actorID); err != nil {
			return err
		}
		return q.DeleteTimeLog(ctx, logID)
	})
}

// ActiveTimeLog returns the log the user is tracking right now, or nil.
func (m *Manager) ActiveTimeLog(ctx context.Context, userID int64) (*models.TimeLog, error) {
	var active *models.TimeLog
	err := m.read(ctx, "ActiveTimeLog", func(ctx context.Context, q storage.Queries) error {
		open, err := q.OpenTimeLogs(ctx, userID)
		if err != nil {
			return err
		}
		if len(open) > 0 {
			active = &open[0]
		}
		return nil
	})
	return active, err
}

// ListTimeLogs returns the logs recorded on a subtask.
func (m *Manager) ListTimeLogs(ctx context.Context, subtaskID int64) ([]models.TimeLog, error) {
	var logs []models.TimeLog
	err := m.read(ctx, "ListTimeLogs", func(ctx context.Context, q storage.Queries) error {
		if _, err := q.GetSubtask(ctx, subtaskID); err != nil {
			return err
		}
		var err error
		logs, err = q.ListTimeLogs(ctx, subtaskID)
		return err
	})
	return logs, err
}

// WorkSummary is the time tracking state of one subtask.
type WorkSummary struct {
	SubtaskID int64   `json:"subtask_id"`
	Logged    float64 `json:"logged"`
	Remaining float64 `json:"remaining"`
}

// Remaining reports the hours logged on a subtask and its remaining
// estimate.
func (m *Manager) Remaining(ctx context.Context, subtaskID int64) (WorkSummary, error) {
	var sum WorkSummary
	err := m.read(ctx, "Remaining", func(ctx context.Context, q storage.Queries) error {
		st, err := q.GetSubtask(ctx, subtaskID)
		if err != nil {
			return err
		}
		logs, err := q.ListTimeLogs(ctx, subtaskID)
		if err != nil {
			return err
		}
		sum = WorkSummary{
			SubtaskID: subtaskID,
			Logged:    lifecycle.LoggedHours(logs),
			Remaining: lifecycle.Remaining(st, logs),
		}
		return nil
	})
	return sum, err
}
