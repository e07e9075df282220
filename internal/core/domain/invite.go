package domain

import "time"

// Invite represents a single-use registration grant with a pre-assigned role.
type Invite struct {
	Code      string     `json:"code"`
	Role      Role       `json:"role"`
	CreatedAt time.Time  `json:"createdAt"`
	CreatedBy string     `json:"createdBy,omitempty"`
	Note      string     `json:"note,omitempty"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
	UsedAt    *time.Time `json:"usedAt,omitempty"`
	UsedBy    string     `json:"usedBy,omitempty"`
}

// IsExpired reports whether the invite lies past its expiry at the supplied
// moment. Invites without an expiry never expire.
func (i Invite) IsExpired(at time.Time) bool {
	if i.ExpiresAt == nil {
		return false
	}
	return i.ExpiresAt.Before(at)
}

// IsUsed reports whether the invite has already been consumed. A consumed
// invite stays consumed even after the consuming user is deleted.
func (i Invite) IsUsed() bool {
	return i.UsedAt != nil
}

// PublicInvite is the invite projection returned to clients, annotated with a
// derived expiry flag computed at read time rather than stored.
type PublicInvite struct {
	Invite
	Expired bool `json:"expired"`
}

// Public annotates the invite with its expiry state as of the supplied moment.
func (i Invite) Public(at time.Time) PublicInvite {
	return PublicInvite{Invite: i, Expired: i.IsExpired(at)}
}
