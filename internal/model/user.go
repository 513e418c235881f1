package model

import "time"

// Roles form a closed set. Anything else is rejected at the boundary
// instead of being persisted as a free-form string.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// ValidRole reports whether s is one of the known roles.
func ValidRole(s string) bool {
	return s == RoleAdmin || s == RoleUser
}

// User represents an application user record as stored in the `users`
// table. Email uniqueness is enforced by the database at creation.
// Users are hard-deleted; deleting one also removes their access window
// and session journal rows.
//
// Fields:
//  ID           – primary key identifier of the user.
//  Email        – unique, normalized (lowercase, trimmed) email address.
//  PasswordHash – bcrypt hashed password; never logged, never returned.
//  FullName     – display name captured at registration.
//  Role         – one of RoleAdmin or RoleUser.
//  IsActive     – inactive accounts fail token resolution even with a valid token.
//  CreatedAt    – timestamp of creation.
type User struct {
	ID           uint64    // users.id
	Email        string    // users.email
	PasswordHash string    // users.password_hash
	FullName     string    // users.full_name
	Role         string    // users.role
	IsActive     bool      // users.is_active
	CreatedAt    time.Time // users.created_at
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool { return u.Role == RoleAdmin }
