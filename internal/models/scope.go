package models

// TaskScope is the visibility restriction applied to task listings.
type TaskScope struct {
	// All disables every restriction.
	All bool
	// UserID sees tasks they own or are assigned to.
	UserID string
	// TeamOf additionally exposes tasks owned by direct reports of this user.
	TeamOf string
}

// Allows reports whether a task falls inside the scope, given the manager
// of the task's owner.
func (s TaskScope) Allows(t *Task, ownerManagerID *string) bool {
	if s.All {
		return true
	}
	if t.OwnerID == s.UserID || t.IsAssigned(s.UserID) {
		return true
	}
	return s.TeamOf != "" && ownerManagerID != nil && *ownerManagerID == s.TeamOf
}
