package domain

import (
	"strings"

	"classboard-api/sheets"
)

// User roles.
const (
	RoleStudent = "student"
	RoleAdmin   = "admin"
)

// User is one row of the credentials sheet. Passwords are stored and
// compared as plain strings; a known weakness of the remote store's layout,
// carried as-is rather than redesigned here.
type User struct {
	Username string `json:"username"`
	Password string `json:"-"`
	FullName string `json:"fullName"`
	Role     string `json:"role"`
	// Class holds a single class for students and a delimited list for admins.
	Class string `json:"class"`
	// Subjects is the admin subject declaration, either bracketed per-class
	// groups or a flat comma list. Empty for students.
	Subjects string `json:"-"`
}

// ParseUsers maps raw credential rows, skipping rows with no username.
func ParseUsers(rows []sheets.Record) []User {
	users := make([]User, 0, len(rows))
	for _, r := range rows {
		u := User{
			Username: r.Str("username"),
			Password: r.Str("password"),
			FullName: strings.TrimSpace(r.Str("full_name")),
			Role:     strings.ToLower(strings.TrimSpace(r.Str("role"))),
			Class:    strings.TrimSpace(r.Str("class")),
			Subjects: strings.TrimSpace(r.Str("subjects")),
		}
		if u.Username == "" {
			continue
		}
		if u.Role == "" {
			u.Role = RoleStudent
		}
		users = append(users, u)
	}
	return users
}

// IsAdmin reports whether the user carries the admin role.
func (u User) IsAdmin() bool { return u.Role == RoleAdmin }
