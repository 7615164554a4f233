package domain

type Role string

const (
	RoleAdmin    Role = "admin"
	RoleDirector Role = "director"
	RoleEngineer Role = "engineer"
	RoleHR       Role = "hr"
	RoleStaff    Role = "staff"
)

// User is the verified actor behind a request, resolved by the identity
// boundary before any service operation runs.
type User struct {
	ID         string
	Role       Role
	Department string
}

// Elevated reports whether the actor may reprocess documents.
func (u User) Elevated() bool {
	return u.Role == RoleAdmin
}

// SeesAllTasks reports whether the actor bypasses task visibility scoping.
func (u User) SeesAllTasks() bool {
	return u.Role == RoleAdmin || u.Role == RoleDirector
}
