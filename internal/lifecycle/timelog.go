package lifecycle

import (
	"sort"
	"time"

	"scrumboard/internal/models"
)

// MaxDailyHours caps a single manual entry.
const MaxDailyHours = 24.0

// Ledger applies time tracking rules. Log dates are civil days in the
// calendar's time zone.
type Ledger struct {
	Calendar Calendar
}

// CanTrack reports whether userID may record time on st.
func CanTrack(st models.Subtask, userID int64) error {
	if st.Assignee == nil || *st.Assignee != userID || st.Rejected == nil || *st.Rejected {
		return Forbidden("only the accepted assignee can log time on this task")
	}
	if st.Finished {
		return Conflict("cannot log time on a finished task")
	}
	return nil
}

// Start opens a tracking session on st. open holds every open log of the
// user across all tasks; today is the user's existing log for st on the
// current day, if any. A log with ID zero must be inserted.
func (l Ledger) Start(st models.Subtask, userID int64, open []models.TimeLog, today *models.TimeLog, now time.Time) (models.TimeLog, error) {
	if err := CanTrack(st, userID); err != nil {
		return models.TimeLog{}, err
	}
	for _, log := range open {
		if !log.Open() {
			continue
		}
		if log.TaskID == st.ID {
			return models.TimeLog{}, Conflict("you are already tracking this task")
		}
		return models.TimeLog{}, Conflict("you are already tracking another task, stop it first")
	}
	started := now
	if today != nil {
		next := *today
		next.StartTime = &started
		next.EndTime = nil
		return next, nil
	}
	return models.TimeLog{
		TaskID:    st.ID,
		UserID:    userID,
		Date:      l.Calendar.Today(now),
		StartTime: &started,
	}, nil
}

// Stop closes the open session in today and adds the elapsed hours. The
// new remaining estimate is mandatory.
func (l Ledger) Stop(today *models.TimeLog, remaining *float64, now time.Time) (models.TimeLog, error) {
	if remaining == nil {
		return models.TimeLog{}, Validation("estimated remaining time is required")
	}
	if *remaining < 0 {
		return models.TimeLog{}, Validation("estimated remaining time must not be negative")
	}
	if today == nil || !today.Open() {
		return models.TimeLog{}, Conflict("no active tracking session found")
	}
	elapsed := now.Sub(*today.StartTime).Hours()
	if elapsed < 0 {
		elapsed = 0
	}
	next := *today
	stopped := now
	rem := *remaining
	next.EndTime = &stopped
	next.Duration += elapsed
	next.EstimatedRemaining = &rem
	return next, nil
}

// ManualEntry is a time log typed in after the fact.
type ManualEntry struct {
	Date               time.Time
	Duration           float64
	EstimatedRemaining *float64
}

// Manual validates a manual entry for st. sprint is the sprint of the
// parent story and existing the user's log for st on entry.Date, if any.
// The returned subtask carries the new estimate.
func (l Ledger) Manual(st models.Subtask, sprint *models.Sprint, userID int64, entry ManualEntry, existing *models.TimeLog, now time.Time) (models.TimeLog, models.Subtask, error) {
	if err := CanTrack(st, userID); err != nil {
		return models.TimeLog{}, models.Subtask{}, err
	}
	if entry.Date.IsZero() {
		return models.TimeLog{}, models.Subtask{}, Validation("date is required")
	}
	if entry.Duration <= 0 || entry.Duration > MaxDailyHours {
		return models.TimeLog{}, models.Subtask{}, Validation("duration must be greater than 0 and at most %g hours", MaxDailyHours)
	}
	if entry.EstimatedRemaining == nil || *entry.EstimatedRemaining < 0 {
		return models.TimeLog{}, models.Subtask{}, Validation("estimated remaining time must be a non-negative number")
	}
	date := Day(entry.Date)
	if date.After(l.Calendar.Today(now)) {
		return models.TimeLog{}, models.Subtask{}, Validation("cannot log time in the future")
	}
	if sprint == nil {
		return models.TimeLog{}, models.Subtask{}, Conflict("the story of this task is not in a sprint")
	}
	if date.Before(Day(sprint.StartDate)) || date.After(Day(sprint.FinishDate)) {
		return models.TimeLog{}, models.Subtask{}, Conflict("date must be within the sprint (%s to %s)",
			sprint.StartDate.Format(DateLayout), sprint.FinishDate.Format(DateLayout))
	}
	if existing != nil {
		return models.TimeLog{}, models.Subtask{}, Conflict("time has already been logged for %s", date.Format(DateLayout))
	}
	rem := *entry.EstimatedRemaining
	log := models.TimeLog{
		TaskID:             st.ID,
		UserID:             userID,
		Date:               date,
		Duration:           entry.Duration,
		EstimatedRemaining: &rem,
	}
	next := st
	next.TimeRequired = rem
	return log, next, nil
}

// LogEdit changes the recorded hours of a log.
type LogEdit struct {
	Duration           *float64
	EstimatedRemaining *float64
}

// EditLog applies edit to a log owned by userID.
func EditLog(log models.TimeLog, userID int64, edit LogEdit) (models.TimeLog, error) {
	if log.UserID != userID {
		return models.TimeLog{}, Forbidden("you can only change your own time logs")
	}
	if edit.Duration == nil && edit.EstimatedRemaining == nil {
		return models.TimeLog{}, Validation("nothing to update")
	}
	next := log
	if edit.Duration != nil {
		if *edit.Duration < 0 {
			return models.TimeLog{}, Validation("duration must not be negative")
		}
		next.Duration = *edit.Duration
	}
	if edit.EstimatedRemaining != nil {
		if *edit.EstimatedRemaining < 0 {
			return models.TimeLog{}, Validation("estimated remaining time must not be negative")
		}
		rem := *edit.EstimatedRemaining
		next.EstimatedRemaining = &rem
	}
	return next, nil
}

// CanDeleteLog allows owners to delete their own logs.
func CanDeleteLog(log models.TimeLog, userID int64) error {
	if log.UserID != userID {
		return Forbidden("you can only delete your own time logs")
	}
	return nil
}

// Remaining is the remaining estimate of st: the estimate recorded on the
// latest dated log, or the stored estimate when no log has one.
func Remaining(st models.Subtask, logs []models.TimeLog) float64 {
	sorted := make([]models.TimeLog, 0, len(logs))
	for _, log := range logs {
		if log.TaskID == st.ID && log.EstimatedRemaining != nil {
			sorted = append(sorted, log)
		}
	}
	if len(sorted) == 0 {
		return st.TimeRequired
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].Date.Equal(sorted[j].Date) {
			return sorted[i].Date.After(sorted[j].Date)
		}
		return sorted[i].ID > sorted[j].ID
	})
	return *sorted[0].EstimatedRemaining
}

// Touched reports whether any time has been logged.
func Touched(logs []models.TimeLog) bool {
	for _, log := range logs {
		if log.Duration > 0 || log.Open() {
			return true
		}
	}
	return false
}

// LoggedHours sums the hours across logs.
func LoggedHours(logs []models.TimeLog) float64 {
	var total float64
	for _, log := range logs {
		total += log.Duration
	}
	return total
}
