package lifecycle

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"scrumboard/internal/models"
)

// Velocity bounds in story points.
const (
	MinVelocity = 1
	MaxVelocity = 100
)

// SprintDraft is the user supplied part of a sprint. Zero dates count as
// missing.
type SprintDraft struct {
	StartDate  time.Time
	FinishDate time.Time
	Velocity   int
}

// Planner validates sprint plans against the calendar.
type Planner struct {
	Calendar Calendar
}

// SprintStatus computes the active flag of a sprint for the given day:
// true inside the range, nil once it has ended, false before it starts.
func SprintStatus(s models.Sprint, today time.Time) *bool {
	start, finish := Day(s.StartDate), Day(s.FinishDate)
	if finish.Before(today) {
		return nil
	}
	active := !today.Before(start) && !today.After(finish)
	return &active
}

// RefreshStatus brings the stored active flag in line with the dates. The
// bool reports whether the sprint changed.
func RefreshStatus(s models.Sprint, today time.Time) (models.Sprint, bool) {
	status := SprintStatus(s, today)
	if sameStatus(s.Active, status) {
		return s, false
	}
	next := s
	next.Active = status
	return next, true
}

func sameStatus(a, b *bool) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// Plan validates a new sprint for projectID with the selected stories and
// returns the sprint to insert. The title is assigned by Renumber.
func (p Planner) Plan(projectID int64, draft SprintDraft, selected []models.Story, existing []models.Sprint, projectExists bool, now time.Time) (models.Sprint, error) {
	today := p.Calendar.Today(now)
	if err := p.checkDates(draft, today); err != nil {
		return models.Sprint{}, err
	}
	if err := checkSelection(projectID, selected); err != nil {
		return models.Sprint{}, err
	}
	if err := checkVelocity(draft.Velocity, sumPoints(selected)); err != nil {
		return models.Sprint{}, err
	}
	if err := checkOverlap(projectID, 0, draft, existing); err != nil {
		return models.Sprint{}, err
	}
	if !projectExists {
		return models.Sprint{}, NotFound("project not found")
	}
	sprint := models.Sprint{
		ProjectID:  projectID,
		StartDate:  Day(draft.StartDate),
		FinishDate: Day(draft.FinishDate),
		Velocity:   draft.Velocity,
	}
	sprint.Active = SprintStatus(sprint, today)
	return sprint, nil
}

// Replan validates an edit of current. members are the stories already in
// the sprint; their points bound the velocity from below. The bool is
// false when the draft changes nothing.
func (p Planner) Replan(current models.Sprint, draft SprintDraft, members []models.Story, existing []models.Sprint, projectExists bool, now time.Time) (models.Sprint, bool, error) {
	today := p.Calendar.Today(now)
	datesChanged := !Day(draft.StartDate).Equal(Day(current.StartDate)) || !Day(draft.FinishDate).Equal(Day(current.FinishDate))
	if !datesChanged && draft.Velocity == current.Velocity {
		return current, false, nil
	}
	if status := SprintStatus(current, today); status == nil || *status {
		return models.Sprint{}, false, Conflict("only sprints that have not started can be changed")
	}
	if datesChanged {
		if err := p.checkDates(draft, today); err != nil {
			return models.Sprint{}, false, err
		}
	}
	if err := checkVelocity(draft.Velocity, sumPoints(members)); err != nil {
		return models.Sprint{}, false, err
	}
	if datesChanged {
		if err := checkOverlap(current.ProjectID, current.ID, draft, existing); err != nil {
			return models.Sprint{}, false, err
		}
	}
	if !projectExists {
		return models.Sprint{}, false, NotFound("project not found")
	}
	next := current
	next.StartDate = Day(draft.StartDate)
	next.FinishDate = Day(draft.FinishDate)
	next.Velocity = draft.Velocity
	next.Active = SprintStatus(next, today)
	return next, true, nil
}

func (p Planner) checkDates(draft SprintDraft, today time.Time) error {
	if draft.StartDate.IsZero() || draft.FinishDate.IsZero() {
		return Validation("start and finish dates are required")
	}
	start, finish := Day(draft.StartDate), Day(draft.FinishDate)
	if !finish.After(start) {
		return Validation("finish date must be after start date")
	}
	if !IsWorkingDay(start) || !IsWorkingDay(finish) {
		return Validation("sprint must not start or end on a weekend or holiday")
	}
	if start.Before(today) {
		return Validation("start date must not be in the past")
	}
	return nil
}

func checkSelection(projectID int64, selected []models.Story) error {
	var missing []string
	for _, s := range selected {
		switch {
		case s.ProjectID != projectID:
			return Conflict("story %q belongs to a different project", s.Title)
		case s.Finished:
			return Conflict("story %q is already realized", s.Title)
		case s.SprintID != nil:
			return Conflict("story %q is already assigned to a sprint", s.Title)
		case s.TimeRequired == nil:
			missing = append(missing, s.Title)
		}
	}
	if len(missing) > 0 {
		return MissingEstimate("the following stories are missing story points: %s", strings.Join(missing, ", "))
	}
	return nil
}

func checkVelocity(velocity int, points float64) error {
	if velocity < MinVelocity || velocity > MaxVelocity {
		return Validation("velocity must be between %d and %d", MinVelocity, MaxVelocity)
	}
	if float64(velocity) < points {
		return Conflict("velocity is too low given the total story points in this sprint")
	}
	return nil
}

func checkOverlap(projectID, selfID int64, draft SprintDraft, existing []models.Sprint) error {
	start, finish := Day(draft.StartDate), Day(draft.FinishDate)
	for _, s := range existing {
		if s.ProjectID != projectID || s.ID == selfID {
			continue
		}
		if !(Day(s.FinishDate).Before(start) || Day(s.StartDate).After(finish)) {
			return Conflict("sprint dates overlap with an existing sprint in this project")
		}
	}
	return nil
}

func sumPoints(stories []models.Story) float64 {
	var total float64
	for _, s := range stories {
		total += s.Points()
	}
	return total
}

// SprintTitle is the title of the sprint at chronological position n.
func SprintTitle(n int) string {
	return fmt.Sprintf("Sprint %d", n)
}

// Renumber orders the sprints of one project by start date and titles them
// Sprint 1, Sprint 2, ... The input slice is not modified.
func Renumber(sprints []models.Sprint) []models.Sprint {
	out := make([]models.Sprint, len(sprints))
	copy(out, sprints)
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].StartDate.Equal(out[j].StartDate) {
			return out[i].StartDate.Before(out[j].StartDate)
		}
		return out[i].ID < out[j].ID
	})
	for i := range out {
		out[i].Title = SprintTitle(i + 1)
	}
	return out
}

// CanDeleteSprint refuses to delete a running sprint.
func CanDeleteSprint(s models.Sprint, today time.Time) error {
	if status := SprintStatus(s, today); status != nil && *status {
		return Forbidden("cannot delete an active sprint")
	}
	return nil
}

// DetachStories returns the stories of a deleted sprint to the backlog.
func DetachStories(stories []models.Story) []models.Story {
	out := make([]models.Story, 0, len(stories))
	for _, s := range stories {
		s.SprintID = nil
		s.Active = false
		out = append(out, s)
	}
	return out
}

// ReturnedStory is a story the team did not complete in a sprint.
type ReturnedStory struct {
	StoryID int64
	Reason  string
	Comment string
}

// Complete closes a sprint by sending the listed stories back to the
// product backlog, each with an audit post.
func (p Planner) Complete(sprint models.Sprint, members []models.Story, returned []ReturnedStory, actorID int64, now time.Time) ([]RealizeResult, error) {
	if status := SprintStatus(sprint, p.Calendar.Today(now)); status != nil && !*status {
		return nil, Conflict("sprint %q has not started yet", sprint.Title)
	}
	byID := make(map[int64]models.Story, len(members))
	for _, s := range members {
		byID[s.ID] = s
	}
	seen := make(map[int64]bool, len(returned))
	results := make([]RealizeResult, 0, len(returned))
	for _, r := range returned {
		story, ok := byID[r.StoryID]
		if !ok {
			return nil, Conflict("story %d is not part of this sprint", r.StoryID)
		}
		if seen[r.StoryID] {
			return nil, Validation("story %d is listed twice", r.StoryID)
		}
		seen[r.StoryID] = true
		if story.Finished {
			return nil, Conflict("story %q is already realized", story.Title)
		}
		comment := strings.TrimSpace(r.Comment)
		if comment == "" {
			return nil, Validation("a comment is required for story %q", story.Title)
		}
		post := models.WallPost{
			ProjectID:   sprint.ProjectID,
			PersonID:    &actorID,
			StoryID:     &story.ID,
			Title:       truncate(fmt.Sprintf("Story %q returned to Product Backlog", story.Title), postTitleLimit),
			Description: fmt.Sprintf("Reason: %s\n%s", strings.TrimSpace(r.Reason), comment),
			CreatedAt:   now,
		}
		results = append(results, RealizeResult{Story: RejectFromSprint(story, comment), Post: post})
	}
	return results, nil
}
