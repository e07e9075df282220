package domain

import "time"

// Session represents a server-held login session bound to an opaque token
// handed to the client. Sessions only ever move from active to expired or
// revoked; there is no way back.
type Session struct {
	Token     string
	UserID    string
	Username  string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// IsActive reports whether the session is still valid at the supplied moment.
func (s Session) IsActive(at time.Time) bool {
	return s.ExpiresAt.After(at)
}
