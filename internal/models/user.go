package models

import (
	"strings"
	"time"
)

// Role is the tagged enum every permission decision dispatches on.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleUser    Role = "user"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleUser:
		return true
	}
	return false
}

// CanLead reports whether users with this role may have a team.
func (r Role) CanLead() bool {
	return r == RoleAdmin || r == RoleManager
}

func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	return r, r.Valid()
}

type User struct {
	ID                 string     `db:"id"`
	Email              string     `db:"email"`
	FirstName          string     `db:"first_name"`
	LastName           string     `db:"last_name"`
	PasswordHash       string     `db:"password_hash" json:"-"`
	Role               Role       `db:"role"`
	ManagerID          *string    `db:"manager_id"`
	IsActive           bool       `db:"is_active"`
	EmailNotifications bool       `db:"email_notifications"`
	PushNotifications  bool       `db:"push_notifications"`
	LastLoginAt        *time.Time `db:"last_login_at"`
	CreatedAt          time.Time  `db:"created_at"`
	UpdatedAt          time.Time  `db:"updated_at"`
}

func (User) TableName() string { return "users" }

// FullName falls back to the email address when no name is set.
func (u *User) FullName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Email
	}
	return name
}

func (u *User) IsAdmin() bool { return u.Role == RoleAdmin }

// ReportsTo reports whether u is a direct report of managerID.
func (u *User) ReportsTo(managerID string) bool {
	return u.ManagerID != nil && *u.ManagerID == managerID
}

// MatchesMention reports whether an @name token refers to this user: either
// the local part of the email address or the first name, ignoring case.
func (u *User) MatchesMention(name string) bool {
	if name == "" {
		return false
	}
	local := u.Email
	if i := strings.IndexByte(local, '@'); i >= 0 {
		local = local[:i]
	}
	return strings.EqualFold(local, name) || strings.EqualFold(u.FirstName, name)
}
