package domain

import (
	"fmt"
	"strings"
	"time"
)

// Role enumerates the privilege levels known to the service.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// ParseRole normalises textual input into a supported role, defaulting to RoleUser.
func ParseRole(value string) Role {
	if strings.TrimSpace(strings.ToLower(value)) == string(RoleAdmin) {
		return RoleAdmin
	}
	return RoleUser
}

const (
	usernameMinLen = 3
	usernameMaxLen = 32
)

// NormalizeUsername lowercases and trims the supplied username and validates
// length and character set. Usernames are compared case-insensitively
// throughout the system, so the normalised form is the canonical one.
func NormalizeUsername(username string) (string, error) {
	trimmed := strings.ToLower(strings.TrimSpace(username))
	if len(trimmed) < usernameMinLen || len(trimmed) > usernameMaxLen {
		return "", fmt.Errorf("username must be between %d and %d characters", usernameMinLen, usernameMaxLen)
	}
	for _, r := range trimmed {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= '0' && r <= '9':
		case r == '.' || r == '_' || r == '-':
		default:
			return "", fmt.Errorf("username may only contain a-z, 0-9, dot, underscore and hyphen")
		}
	}
	return trimmed, nil
}

// User mirrors the persisted representation in the users document.
type User struct {
	ID                  string     `json:"id"`
	Username            string     `json:"username"`
	Role                Role       `json:"role"`
	PasswordHash        string     `json:"passwordHash"`
	CreatedAt           time.Time  `json:"createdAt"`
	UpdatedAt           time.Time  `json:"updatedAt"`
	CreatedBy           string     `json:"createdBy,omitempty"`
	UpdatedBy           string     `json:"updatedBy,omitempty"`
	LastLoginAt         *time.Time `json:"lastLoginAt,omitempty"`
	PasswordChangedAt   *time.Time `json:"passwordChangedAt,omitempty"`
	MustChangePassword  bool       `json:"mustChangePassword"`
	Locked              bool       `json:"locked"`
	LockedAt            *time.Time `json:"lockedAt,omitempty"`
	FailedLoginAttempts int        `json:"failedLoginAttempts"`
}

// IsAdmin reports whether the user carries the admin role.
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// RecordLoginSuccess clears lockout state and stamps the last login time.
func (u *User) RecordLoginSuccess(at time.Time) {
	u.FailedLoginAttempts = 0
	u.Locked = false
	u.LockedAt = nil
	loginAt := at
	u.LastLoginAt = &loginAt
	u.UpdatedAt = at
}

// RecordLoginFailure increments the failure counter and locks the account once
// the configured threshold is reached. Returns true when the account locked as
// a result of this failure.
func (u *User) RecordLoginFailure(threshold int, at time.Time) bool {
	u.FailedLoginAttempts++
	u.UpdatedAt = at
	if u.FailedLoginAttempts >= threshold && !u.Locked {
		u.Locked = true
		lockedAt := at
		u.LockedAt = &lockedAt
		return true
	}
	return false
}

// SetPasswordHash installs a fresh credential and unconditionally clears
// lockout state. A password reset doubles as an unlock.
func (u *User) SetPasswordHash(hash string, mustChange bool, updatedBy string, at time.Time) {
	u.PasswordHash = hash
	changedAt := at
	u.PasswordChangedAt = &changedAt
	u.UpdatedAt = at
	u.UpdatedBy = updatedBy
	u.MustChangePassword = mustChange
	u.FailedLoginAttempts = 0
	u.Locked = false
	u.LockedAt = nil
}

// PublicUser is the client-facing projection of a user record without the
// credential material.
type PublicUser struct {
	ID                  string     `json:"id"`
	Username            string     `json:"username"`
	Role                Role       `json:"role"`
	CreatedAt           time.Time  `json:"createdAt"`
	UpdatedAt           time.Time  `json:"updatedAt"`
	LastLoginAt         *time.Time `json:"lastLoginAt,omitempty"`
	PasswordChangedAt   *time.Time `json:"passwordChangedAt,omitempty"`
	MustChangePassword  bool       `json:"mustChangePassword"`
	Locked              bool       `json:"locked"`
	LockedAt            *time.Time `json:"lockedAt,omitempty"`
	FailedLoginAttempts int        `json:"failedLoginAttempts"`
}

// Public strips the password hash from the record.
func (u User) Public() PublicUser {
	return PublicUser{
		ID:                  u.ID,
		Username:            u.Username,
		Role:                u.Role,
		CreatedAt:           u.CreatedAt,
		UpdatedAt:           u.UpdatedAt,
		LastLoginAt:         u.LastLoginAt,
		PasswordChangedAt:   u.PasswordChangedAt,
		MustChangePassword:  u.MustChangePassword,
		Locked:              u.Locked,
		LockedAt:            u.LockedAt,
		FailedLoginAttempts: u.FailedLoginAttempts,
	}
}
