package lifecycle

import (
	"fmt"
	"strings"
	"time"

	"scrumboard/internal/models"
)

// Column is a board column. Only backlog, sprint backlog and done map to
// stored state directly; in progress and in review are told apart by
// whether any subtask is finished.
type Column string

const (
	ColumnBacklog       Column = "backlog"
	ColumnSprintBacklog Column = "sprint_backlog"
	ColumnInProgress    Column = "in_progress"
	ColumnInReview      Column = "in_review"
	ColumnDone          Column = "done"
)

// Columns lists the board columns in display order.
var Columns = []Column{ColumnBacklog, ColumnSprintBacklog, ColumnInProgress, ColumnInReview, ColumnDone}

// ParseColumn accepts the snake_case names and the camelCase names the
// board client sends.
func ParseColumn(s string) (Column, error) {
	switch strings.TrimSpace(s) {
	case "backlog", "productBacklog", "product_backlog":
		return ColumnBacklog, nil
	case "sprint_backlog", "sprintBacklog":
		return ColumnSprintBacklog, nil
	case "in_progress", "inProgress":
		return ColumnInProgress, nil
	case "in_review", "inReview":
		return ColumnInReview, nil
	case "done":
		return ColumnDone, nil
	}
	return "", Validation("unknown destination %q", s)
}

// ColumnOf derives the board column of a story.
func ColumnOf(story models.Story, subtasks []models.Subtask) Column {
	switch {
	case story.Finished:
		return ColumnDone
	case story.SprintID == nil:
		return ColumnBacklog
	case !story.Active:
		return ColumnSprintBacklog
	case anyFinished(subtasks):
		return ColumnInReview
	default:
		return ColumnInProgress
	}
}

func anyFinished(subtasks []models.Subtask) bool {
	for _, st := range subtasks {
		if st.Finished {
			return true
		}
	}
	return false
}

func allFinished(subtasks []models.Subtask) bool {
	for _, st := range subtasks {
		if !st.Finished {
			return false
		}
	}
	return len(subtasks) > 0
}

// StoryInput holds the fields supplied when a story is created.
type StoryInput struct {
	Title         string
	Description   string
	Tests         string
	Priority      int
	BusinessValue int
}

// NewStory validates the input against the project's existing stories and
// returns the story to insert. The story starts in the product backlog.
func NewStory(projectID int64, in StoryInput, siblings []models.Story) (models.Story, error) {
	title := strings.TrimSpace(in.Title)
	switch {
	case title == "":
		return models.Story{}, Validation("title is required")
	case strings.TrimSpace(in.Description) == "":
		return models.Story{}, Validation("description is required")
	case strings.TrimSpace(in.Tests) == "":
		return models.Story{}, Validation("there must be at least one acceptance test")
	}
	if err := validatePriority(in.Priority); err != nil {
		return models.Story{}, err
	}
	if err := validateBusinessValue(in.BusinessValue); err != nil {
		return models.Story{}, err
	}
	if err := uniqueStoryTitle(title, 0, siblings); err != nil {
		return models.Story{}, err
	}
	return models.Story{
		ProjectID:     projectID,
		Title:         title,
		Description:   strings.TrimSpace(in.Description),
		Tests:         strings.TrimSpace(in.Tests),
		Priority:      in.Priority,
		BusinessValue: in.BusinessValue,
	}, nil
}

func validatePriority(p int) error {
	if p < models.PriorityWontHave || p > models.PriorityMustHave {
		return Validation("priority must be between %d and %d", models.PriorityWontHave, models.PriorityMustHave)
	}
	return nil
}

func validateBusinessValue(v int) error {
	if v < 1 || v > 10 {
		return Validation("business value must be between 1 and 10")
	}
	return nil
}

func uniqueStoryTitle(title string, selfID int64, siblings []models.Story) error {
	for _, other := range siblings {
		if other.ID == selfID {
			continue
		}
		if SameTitle(other.Title, title) {
			return Conflict("a story with this title already exists in this project")
		}
	}
	return nil
}

// StoryEdit carries the fields to change; nil fields stay as they are.
type StoryEdit struct {
	Title         *string
	Description   *string
	Tests         *string
	Priority      *int
	BusinessValue *int
	TimeRequired  *float64
}

// EditStory applies edit to story. Points are frozen once the story is in
// a sprint and realized stories cannot be edited at all.
func EditStory(story models.Story, edit StoryEdit, siblings []models.Story) (models.Story, error) {
	if story.Finished {
		return models.Story{}, Conflict("a realized story cannot be edited")
	}
	next := story
	if edit.Title != nil {
		title := strings.TrimSpace(*edit.Title)
		if title == "" {
			return models.Story{}, Validation("title is required")
		}
		if !SameTitle(title, story.Title) {
			if err := uniqueStoryTitle(title, story.ID, siblings); err != nil {
				return models.Story{}, err
			}
		}
		next.Title = title
	}
	if edit.Description != nil {
		if strings.TrimSpace(*edit.Description) == "" {
			return models.Story{}, Validation("description is required")
		}
		next.Description = strings.TrimSpace(*edit.Description)
	}
	if edit.Tests != nil {
		if strings.TrimSpace(*edit.Tests) == "" {
			return models.Story{}, Validation("there must be at least one acceptance test")
		}
		next.Tests = strings.TrimSpace(*edit.Tests)
	}
	if edit.Priority != nil {
		if err := validatePriority(*edit.Priority); err != nil {
			return models.Story{}, err
		}
		next.Priority = *edit.Priority
	}
	if edit.BusinessValue != nil {
		if err := validateBusinessValue(*edit.BusinessValue); err != nil {
			return models.Story{}, err
		}
		next.BusinessValue = *edit.BusinessValue
	}
	if edit.TimeRequired != nil && !samePoints(story.TimeRequired, *edit.TimeRequired) {
		if story.SprintID != nil {
			return models.Story{}, Conflict("cannot modify the estimate of a story assigned to a sprint")
		}
		if err := validateEstimate(*edit.TimeRequired); err != nil {
			return models.Story{}, err
		}
		points := *edit.TimeRequired
		next.TimeRequired = &points
	}
	return next, nil
}

func samePoints(current *float64, next float64) bool {
	return current != nil && *current == next
}

// Estimates above this are accepted with a warning.
const RealisticEstimate = 40.0

func validateEstimate(points float64) error {
	if points <= 0 {
		return Validation("estimation must be greater than 0")
	}
	if points > 100 {
		return Validation("estimation seems too high (more than 100 points)")
	}
	return nil
}

// EstimateStory sets the story points. The returned warning is non-empty
// for estimates that look too large to be realistic.
func EstimateStory(story models.Story, points float64) (models.Story, string, error) {
	if err := validateEstimate(points); err != nil {
		return models.Story{}, "", err
	}
	if story.SprintID != nil {
		return models.Story{}, "", Conflict("cannot modify the estimate of a story assigned to a sprint")
	}
	next := story
	next.TimeRequired = &points
	var warning string
	if points > RealisticEstimate {
		warning = "this estimation seems high, consider breaking the story down"
	}
	return next, warning, nil
}

// AssignToSprint puts the story into the sprint backlog of sprint.
func AssignToSprint(story models.Story, sprint models.Sprint) (models.Story, error) {
	if story.TimeRequired == nil {
		return models.Story{}, MissingEstimate("story %q is missing story points", story.Title)
	}
	next := story
	id := sprint.ID
	next.SprintID = &id
	next.Active = false
	return next, nil
}

// MoveResult describes a board move. Reopened is set when a finished
// subtask had to be unmarked to pull the story back into progress.
type MoveResult struct {
	Story    models.Story
	Reopened *models.Subtask
}

// MoveStory moves the story to dest. target is the sprint to use when the
// story is not in one yet; it may be nil.
func MoveStory(story models.Story, subtasks []models.Subtask, dest Column, target *models.Sprint) (MoveResult, error) {
	next := story
	switch dest {
	case ColumnBacklog:
		next.SprintID = nil
		next.Active = false
		next.Finished = false
		return MoveResult{Story: next}, nil
	case ColumnSprintBacklog, ColumnInProgress, ColumnInReview, ColumnDone:
	default:
		return MoveResult{}, Validation("unknown destination %q", dest)
	}

	if next.SprintID == nil {
		if target == nil {
			return MoveResult{}, Conflict("no sprint available, create a sprint first")
		}
		if target.ProjectID != story.ProjectID {
			return MoveResult{}, Conflict("sprint belongs to a different project")
		}
		if target.Active == nil {
			return MoveResult{}, Conflict("sprint %q has already ended", target.Title)
		}
		assigned, err := AssignToSprint(next, *target)
		if err != nil {
			return MoveResult{}, err
		}
		next = assigned
	}

	var res MoveResult
	switch dest {
	case ColumnSprintBacklog:
		next.Active, next.Finished = false, false
	case ColumnInProgress:
		next.Active, next.Finished = true, false
		// A story in review with every subtask done would land straight
		// back in review, so one subtask is unmarked.
		if ColumnOf(story, subtasks) == ColumnInReview && allFinished(subtasks) {
			reopened := subtasks[0]
			reopened.Finished = false
			res.Reopened = &reopened
		}
	case ColumnInReview:
		next.Active, next.Finished = true, false
	case ColumnDone:
		next.Active, next.Finished = false, true
	}
	res.Story = next
	return res, nil
}

// RealizeResult is the outcome of an acceptance decision: the new story
// state and the audit post to write with it.
type RealizeResult struct {
	Story models.Story
	Post  models.WallPost
}

// Realize records the product owner's acceptance decision.
func Realize(story models.Story, subtasks []models.Subtask, passed bool, comment string, actorID int64, now time.Time) (RealizeResult, error) {
	comment = strings.TrimSpace(comment)
	if comment == "" {
		return RealizeResult{}, Validation("comment is required")
	}
	if story.Finished {
		return RealizeResult{}, Conflict("story is already marked as realized")
	}

	post := models.WallPost{
		ProjectID: story.ProjectID,
		PersonID:  &actorID,
		StoryID:   &story.ID,
		CreatedAt: now,
	}

	if !passed {
		post.Title = truncate(fmt.Sprintf("Story %q failed acceptance test", story.Title), postTitleLimit)
		post.Description = "The story was returned to the backlog. Reason: " + comment
		return RealizeResult{Story: RejectFromSprint(story, comment), Post: post}, nil
	}

	if story.SprintID == nil {
		return RealizeResult{}, Conflict("only stories assigned to a sprint can be realized")
	}
	for _, st := range subtasks {
		if !st.Finished {
			return RealizeResult{}, IncompleteSubtasks("all tasks must be completed before marking the story as realized")
		}
	}
	next := story
	next.Finished = true
	next.Active = false
	next.Rejected = false
	post.Title = truncate(fmt.Sprintf("Story %q accepted", story.Title), postTitleLimit)
	post.Description = "Acceptance tests passed. Comment: " + comment
	return RealizeResult{Story: next, Post: post}, nil
}

// RejectFromSprint returns a story to the product backlog and keeps a
// snapshot of its points at the time of rejection.
func RejectFromSprint(story models.Story, comment string) models.Story {
	next := story
	next.SprintID = nil
	next.Active = false
	next.Finished = false
	next.Rejected = true
	next.RejectedDescription = comment
	if story.TimeRequired != nil {
		points := *story.TimeRequired
		next.RejectedTimeRequired = &points
	} else {
		next.RejectedTimeRequired = nil
	}
	return next
}

// CanDeleteStory allows deleting only unrealized backlog stories.
func CanDeleteStory(story models.Story) error {
	if story.SprintID != nil {
		return Conflict("cannot delete a story assigned to a sprint")
	}
	if story.Finished {
		return Conflict("cannot delete a realized story")
	}
	return nil
}

// AfterSubtaskFinished pulls a sprint backlog story into progress once one
// of its subtasks is done. The bool reports whether the story changed.
func AfterSubtaskFinished(story models.Story, subtasks []models.Subtask) (models.Story, bool) {
	if story.SprintID == nil || story.Active || story.Finished || !anyFinished(subtasks) {
		return story, false
	}
	next := story
	next.Active = true
	return next, true
}

const postTitleLimit = 64

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
