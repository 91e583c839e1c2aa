package lifecycle

import "scrumboard/internal/models"

// Roles is the capability set of one person inside one project.
type Roles struct {
	PersonID     int64
	ProductOwner bool
	ScrumMaster  bool
	Developer    bool
	Admin        bool
}

// RolesFor derives the capability set from project membership.
func RolesFor(person models.Person, members []models.Member) Roles {
	r := Roles{PersonID: person.ID, Admin: person.Admin}
	for _, m := range members {
		if m.PersonID != person.ID {
			continue
		}
		switch m.Role {
		case models.RoleProductOwner:
			r.ProductOwner = true
		case models.RoleScrumMaster:
			r.ScrumMaster = true
		case models.RoleDeveloper:
			r.Developer = true
		}
	}
	return r
}

// Member reports whether the person holds any role in the project.
func (r Roles) Member() bool {
	return r.ProductOwner || r.ScrumMaster || r.Developer
}

// CanManageBacklog covers creating, editing and deleting stories.
func (r Roles) CanManageBacklog() bool {
	return r.ProductOwner || r.ScrumMaster || r.Admin
}

// CanPlanSprints covers sprint creation, edits, deletion and completion.
func (r Roles) CanPlanSprints() bool {
	return r.ScrumMaster || r.Admin
}

// CanAcceptStories covers realizing or rejecting a story.
func (r Roles) CanAcceptStories() bool {
	return r.ProductOwner || r.Admin
}

// DeveloperIDs lists the persons holding the developer role.
func DeveloperIDs(members []models.Member) []int64 {
	var ids []int64
	for _, m := range members {
		if m.Role == models.RoleDeveloper {
			ids = append(ids, m.PersonID)
		}
	}
	return ids
}

// IsDeveloper reports whether id is among the project's developers.
func IsDeveloper(members []models.Member, id int64) bool {
	for _, dev := range DeveloperIDs(members) {
		if dev == id {
			return true
		}
	}
	return false
}

// CheckDeveloperRemoval refuses to drop developers that still hold open
// subtasks. openTasks maps developer id to their open subtask count and
// names maps ids to usernames for the error message.
func CheckDeveloperRemoval(current []models.Member, nextDevelopers []int64, openTasks map[int64]int, names map[int64]string) error {
	keep := make(map[int64]bool, len(nextDevelopers))
	for _, id := range nextDevelopers {
		keep[id] = true
	}
	for _, id := range DeveloperIDs(current) {
		if keep[id] {
			continue
		}
		if openTasks[id] > 0 {
			name := names[id]
			if name == "" {
				name = "developer"
			}
			return Conflict("cannot remove %s from developers: they have active subtasks", name)
		}
	}
	return nil
}
