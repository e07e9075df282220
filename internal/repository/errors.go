package repository

import "errors"

var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("repository: not found")
	// ErrConflict indicates a uniqueness constraint was violated.
	ErrConflict = errors.New("repository: conflict")
	// ErrInviteUsed indicates the invite has already been consumed.
	ErrInviteUsed = errors.New("repository: invite already used")
	// ErrInviteExpired indicates the invite lies past its expiry.
	ErrInviteExpired = errors.New("repository: invite expired")
)
