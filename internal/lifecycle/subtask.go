package lifecycle

import (
	"strings"
	"time"

	"scrumboard/internal/models"
)

// SubtaskState is the assignment handshake state of a subtask.
type SubtaskState string

const (
	SubtaskUnassigned        SubtaskState = "unassigned"
	SubtaskPendingAcceptance SubtaskState = "pending"
	SubtaskAccepted          SubtaskState = "accepted"
	SubtaskRejected          SubtaskState = "rejected"
	SubtaskFinished          SubtaskState = "finished"
)

// StateOf derives the handshake state from the stored fields.
func StateOf(st models.Subtask) SubtaskState {
	switch {
	case st.Finished:
		return SubtaskFinished
	case st.Assignee == nil:
		return SubtaskUnassigned
	case st.Rejected == nil:
		return SubtaskPendingAcceptance
	case *st.Rejected:
		return SubtaskRejected
	default:
		return SubtaskAccepted
	}
}

// Hour bounds for subtask estimates.
const (
	MinCreateHours = 1.0
	MaxCreateHours = 50.0
	MinEditHours   = 0.1
	MaxEditHours   = 8.0
)

// SubtaskInput holds the fields of a new subtask.
type SubtaskInput struct {
	Description  string
	TimeRequired float64
	Priority     int
	Assignee     *int64
}

// NewSubtask validates a new subtask for story. Setting an assignee up
// front is an assignment and needs the Scrum Master.
func NewSubtask(story models.Story, in SubtaskInput, actor Roles) (models.Subtask, error) {
	if story.Finished {
		return models.Subtask{}, Conflict("cannot add tasks to a realized story")
	}
	if strings.TrimSpace(in.Description) == "" {
		return models.Subtask{}, Validation("description is required")
	}
	if in.TimeRequired < MinCreateHours || in.TimeRequired > MaxCreateHours {
		return models.Subtask{}, Validation("time required must be between 1 and 50 hours")
	}
	if err := validateSubtaskPriority(in.Priority); err != nil {
		return models.Subtask{}, err
	}
	st := models.Subtask{
		StoryID:      story.ID,
		Description:  strings.TrimSpace(in.Description),
		TimeRequired: in.TimeRequired,
		Priority:     in.Priority,
	}
	if in.Assignee != nil {
		if !actor.ScrumMaster && !actor.Admin {
			return models.Subtask{}, Forbidden("only Scrum Masters can assign tasks")
		}
		id := *in.Assignee
		st.Assignee = &id
	}
	return st, nil
}

func validateSubtaskPriority(p int) error {
	if p < 1 || p > 3 {
		return Validation("valid priority must be selected")
	}
	return nil
}

// SubtaskChange is the outcome of an assignment transition. History is
// nil when the transition leaves no audit row.
type SubtaskChange struct {
	Subtask models.Subtask
	History *models.TaskHistory
}

func history(st models.Subtask, prev, next *int64, action string, by int64, now time.Time) *models.TaskHistory {
	return &models.TaskHistory{
		SubtaskID:        st.ID,
		PreviousAssignee: prev,
		NewAssignee:      next,
		Action:           action,
		PerformedBy:      by,
		CreatedAt:        now,
	}
}

func sameAssignee(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// Assign hands the subtask to assignee, or unassigns it when assignee is
// nil. Only the Scrum Master may change who holds a task; the new holder
// must accept before the task counts as theirs.
func Assign(st models.Subtask, assignee *int64, actor Roles, now time.Time) (SubtaskChange, error) {
	if sameAssignee(st.Assignee, assignee) {
		return SubtaskChange{Subtask: st}, nil
	}
	if !actor.ScrumMaster && !actor.Admin {
		return SubtaskChange{}, Forbidden("only Scrum Masters can assign or reassign tasks")
	}
	if st.Finished {
		return SubtaskChange{}, Conflict("cannot reassign a finished task")
	}
	next := st
	next.Rejected = nil
	next.Accepted = false
	if assignee == nil {
		next.Assignee = nil
	} else {
		id := *assignee
		next.Assignee = &id
	}
	change := SubtaskChange{Subtask: next}
	if st.Assignee != nil && (st.Rejected == nil || !*st.Rejected) {
		change.History = history(st, st.Assignee, next.Assignee, models.HistoryReassigned, actor.PersonID, now)
	}
	return change, nil
}

// Claim lets a developer take an unassigned task. Claiming is also
// accepting.
func Claim(st models.Subtask, userID int64, now time.Time) (SubtaskChange, error) {
	if st.Assignee != nil {
		return SubtaskChange{}, Conflict("this task is already assigned to someone")
	}
	if st.Finished {
		return SubtaskChange{}, Conflict("cannot claim a finished task")
	}
	next := st
	id := userID
	next.Assignee = &id
	next.Rejected = boolPtr(false)
	next.Accepted = true
	return SubtaskChange{
		Subtask: next,
		History: history(st, nil, next.Assignee, models.HistoryClaimed, userID, now),
	}, nil
}

// Accept confirms a pending assignment. Only the assignee may accept.
func Accept(st models.Subtask, userID int64, now time.Time) (SubtaskChange, error) {
	if st.Assignee == nil || *st.Assignee != userID {
		return SubtaskChange{}, Forbidden("you can only accept tasks assigned to you")
	}
	if StateOf(st) != SubtaskPendingAcceptance {
		return SubtaskChange{}, Conflict("task is not awaiting acceptance")
	}
	next := st
	next.Rejected = boolPtr(false)
	next.Accepted = true
	return SubtaskChange{
		Subtask: next,
		History: history(st, st.Assignee, st.Assignee, models.HistoryAccepted, userID, now),
	}, nil
}

// Reject hands the task back. The assignee stays recorded but the task is
// open for reassignment.
func Reject(st models.Subtask, userID int64, now time.Time) (SubtaskChange, error) {
	if st.Assignee == nil || *st.Assignee != userID {
		return SubtaskChange{}, Forbidden("you can only reject tasks assigned to you")
	}
	switch StateOf(st) {
	case SubtaskFinished:
		return SubtaskChange{}, Conflict("cannot reject a finished task")
	case SubtaskRejected:
		return SubtaskChange{}, Conflict("task is already rejected")
	}
	next := st
	next.Rejected = boolPtr(true)
	next.Accepted = false
	return SubtaskChange{
		Subtask: next,
		History: history(st, st.Assignee, st.Assignee, models.HistoryRejected, userID, now),
	}, nil
}

// SetFinished toggles the finished flag. Anyone on the board may do this.
func SetFinished(st models.Subtask, finished bool) models.Subtask {
	next := st
	next.Finished = finished
	return next
}

// LockedFor reports whether another developer's acceptance keeps actor
// from changing the subtask.
func LockedFor(st models.Subtask, actor Roles) bool {
	if actor.ScrumMaster || actor.Admin {
		return false
	}
	return st.Assignee != nil && *st.Assignee != actor.PersonID && st.Rejected != nil && !*st.Rejected
}

// SubtaskEdit carries the fields of an edit. Assignee is only looked at
// when SetAssignee is true so that unassigning can be expressed.
type SubtaskEdit struct {
	Description  *string
	TimeRequired *float64
	Priority     *int
	SetAssignee  bool
	Assignee     *int64
}

// EditSubtask applies an edit. Changing the assignee goes through Assign
// and therefore resets the task to pending acceptance.
func EditSubtask(st models.Subtask, edit SubtaskEdit, actor Roles, now time.Time) (SubtaskChange, error) {
	if LockedFor(st, actor) {
		return SubtaskChange{}, Forbidden("you cannot edit a task that has been accepted by another developer")
	}
	next := st
	if edit.Description != nil {
		if strings.TrimSpace(*edit.Description) == "" {
			return SubtaskChange{}, Validation("description is required")
		}
		next.Description = strings.TrimSpace(*edit.Description)
	}
	if edit.TimeRequired != nil {
		h := *edit.TimeRequired
		if h < MinEditHours || h > MaxEditHours {
			return SubtaskChange{}, Validation("time required must be between 0.1 and 8 hours")
		}
		next.TimeRequired = h
	}
	if edit.Priority != nil {
		if err := validateSubtaskPriority(*edit.Priority); err != nil {
			return SubtaskChange{}, err
		}
		next.Priority = *edit.Priority
	}
	change := SubtaskChange{Subtask: next}
	if edit.SetAssignee && !sameAssignee(st.Assignee, edit.Assignee) {
		assigned, err := Assign(next, edit.Assignee, actor, now)
		if err != nil {
			return SubtaskChange{}, err
		}
		change = assigned
	}
	return change, nil
}

// CanDeleteSubtask refuses to drop finished work or work with logged time.
func CanDeleteSubtask(st models.Subtask, actor Roles, touched bool) error {
	if LockedFor(st, actor) {
		return Forbidden("you cannot delete a task that has been accepted by another developer")
	}
	if st.Finished {
		return Conflict("cannot delete a finished task")
	}
	if touched {
		return Conflict("cannot delete a task with logged time")
	}
	return nil
}

// OpenFor reports whether the subtask counts against developer when they
// are removed from the project.
func OpenFor(st models.Subtask, developer int64) bool {
	return st.Assignee != nil && *st.Assignee == developer && st.Rejected != nil && !*st.Rejected && !st.Finished
}

func boolPtr(b bool) *bool { return &b }
