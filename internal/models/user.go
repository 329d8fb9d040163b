package models

import "time"

type UserRole string

const (
	UserRoleUser  UserRole = "user"
	UserRoleAdmin UserRole = "admin"
)

const DefaultTheme = "light"

// DefaultWidgets is the widget set a fresh account sees in the dashboard.
var DefaultWidgets = []string{"chat", "settings", "agent"}

type User struct {
	ID             string
	Username       string
	Email          string
	PasswordHash   string
	Role           UserRole
	Theme          string
	IsActive       bool
	FailedAttempts int
	LockedUntil    *time.Time
	LastLoginAt    *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Locked reports whether the account is inside an active lockout window.
func (u User) Locked(now time.Time) bool {
	return u.LockedUntil != nil && now.Before(*u.LockedUntil)
}

type Session struct {
	ID        string
	UserID    string
	IPAddress string
	UserAgent string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Valid reports whether the session is alive, i.e. now < expiry.
func (s Session) Valid(now time.Time) bool {
	return now.Before(s.ExpiresAt)
}
