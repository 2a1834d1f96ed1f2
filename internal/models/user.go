package models

import "time"

// Global user roles. A system-wide admin bypasses family-scoped and
// ownership checks everywhere.
const (
	RoleAdmin  = "admin"
	RoleMember = "member"
)

// User represents an account in the system
type User struct {
	ID           int64
	Email        string
	PasswordHash string
	Name         string
	Role         string // 'admin' or 'member'
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsAdmin reports whether the user is a system-wide administrator
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// Session represents an authenticated session
type Session struct {
	ID        string
	UserID    int64
	ExpiresAt time.Time
	CreatedAt time.Time
}

// IsExpired checks if the session has expired
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}
