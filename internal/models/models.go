package models

import "time"

// Person is a user of the board. Admins may manage projects and people.
type Person struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Name      string    `json:"name"`
	Lastname  string    `json:"lastname"`
	Email     string    `json:"email"`
	Admin     bool      `json:"admin"`
	CreatedAt time.Time `json:"created_at"`
}

// Role is a project-scoped responsibility.
type Role string

const (
	RoleProductOwner Role = "product_owner"
	RoleScrumMaster  Role = "scrum_master"
	RoleDeveloper    Role = "developer"
)

// Member binds a person to a project under one role.
type Member struct {
	ProjectID int64  `json:"project_id"`
	PersonID  int64  `json:"person_id"`
	Role      Role   `json:"role"`
	Username  string `json:"username,omitempty"`
}

// Project groups sprints and stories and owns the team roster.
type Project struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Active      bool      `json:"active"`
	Members     []Member  `json:"members,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Sprint is a time box inside a project. Active is nil once the sprint
// has ended, false before it starts and true while today is inside it.
type Sprint struct {
	ID         int64     `json:"id"`
	ProjectID  int64     `json:"project_id"`
	Title      string    `json:"title"`
	StartDate  time.Time `json:"start_date"`
	FinishDate time.Time `json:"finish_date"`
	Velocity   int       `json:"velocity"`
	Active     *bool     `json:"active"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Story priorities, lowest to highest.
const (
	PriorityWontHave   = 1
	PriorityCouldHave  = 2
	PriorityShouldHave = 3
	PriorityMustHave   = 4
)

// Story is a backlog item. A nil SprintID means the story sits in the
// product backlog.
type Story struct {
	ID                   int64     `json:"id"`
	ProjectID            int64     `json:"project_id"`
	Title                string    `json:"title"`
	Description          string    `json:"description"`
	Tests                string    `json:"tests"`
	Priority             int       `json:"priority"`
	BusinessValue        int       `json:"business_value"`
	TimeRequired         *float64  `json:"time_required"`
	SprintID             *int64    `json:"sprint_id"`
	Active               bool      `json:"active"`
	Finished             bool      `json:"finished"`
	Rejected             bool      `json:"rejected"`
	RejectedDescription  string    `json:"rejected_description,omitempty"`
	RejectedTimeRequired *float64  `json:"rejected_time_required,omitempty"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// Points returns the story estimate or zero when it has not been estimated.
func (s Story) Points() float64 {
	if s.TimeRequired == nil {
		return 0
	}
	return *s.TimeRequired
}

// Subtask is a unit of developer work under a story. Rejected is nil while
// the assignment awaits acceptance.
type Subtask struct {
	ID           int64     `json:"id"`
	StoryID      int64     `json:"story_id"`
	Description  string    `json:"description"`
	TimeRequired float64   `json:"time_required"`
	Assignee     *int64    `json:"assignee"`
	Priority     int       `json:"priority"`
	Finished     bool      `json:"finished"`
	Rejected     *bool     `json:"rejected"`
	Accepted     bool      `json:"accepted"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// History actions recorded for subtask assignment changes.
const (
	HistoryClaimed    = "claimed"
	HistoryReassigned = "reassigned"
	HistoryAccepted   = "accepted"
	HistoryRejected   = "rejected"
)

// TaskHistory is an audit row for a subtask assignment change.
type TaskHistory struct {
	ID               int64     `json:"id"`
	SubtaskID        int64     `json:"subtask_id"`
	PreviousAssignee *int64    `json:"previous_assignee"`
	NewAssignee      *int64    `json:"new_assignee"`
	Action           string    `json:"action"`
	PerformedBy      int64     `json:"performed_by"`
	CreatedAt        time.Time `json:"created_at"`
}

// TimeLog accumulates hours a user spent on a subtask on one date. A log
// with a start time and no end time is currently being tracked.
type TimeLog struct {
	ID                 int64      `json:"id"`
	TaskID             int64      `json:"task_id"`
	UserID             int64      `json:"user_id"`
	Date               time.Time  `json:"date"`
	StartTime          *time.Time `json:"start_time"`
	EndTime            *time.Time `json:"end_time"`
	Duration           float64    `json:"duration"`
	EstimatedRemaining *float64   `json:"estimated_remaining"`
}

// Open reports whether the log is being tracked right now.
func (l TimeLog) Open() bool {
	return l.StartTime != nil && l.EndTime == nil
}

// WallPost is an entry on the project wall. The engine writes them as an
// audit trail for story acceptance and rejection.
type WallPost struct {
	ID          int64     `json:"id"`
	ProjectID   int64     `json:"project_id"`
	PersonID    *int64    `json:"person_id"`
	StoryID     *int64    `json:"story_id,omitempty"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// BurndownPoint is one day of a sprint burndown chart. Actual is nil for
// days that have not happened yet.
type BurndownPoint struct {
	Date   string   `json:"date"`
	Ideal  float64  `json:"ideal"`
	Actual *float64 `json:"actual"`
}
