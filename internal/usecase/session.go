package usecase

import (
	"errors"
	"sync"
	"time"

	"github.com/Doerkidoerk/entgeltrechnerigmby/internal/core/domain"
	"github.com/Doerkidoerk/entgeltrechnerigmby/internal/infra/security"
)

var (
	// ErrSessionNotFound indicates no session exists for the token.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionExpired indicates the session expired before validation.
	ErrSessionExpired = errors.New("session expired")
)

// SessionManager owns the server-side token map. Expiry is checked lazily on
// every access and expired entries are dropped on touch; there is no
// background sweep, so a timer can never race a concurrent read.
type SessionManager struct {
	mu       sync.Mutex
	sessions map[string]domain.Session
	ttl      time.Duration
	now      func() time.Time
}

// NewSessionManager constructs a manager issuing sessions with the given TTL.
func NewSessionManager(ttl time.Duration) *SessionManager {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &SessionManager{
		sessions: make(map[string]domain.Session),
		ttl:      ttl,
		now:      time.Now,
	}
}

// WithClock injects a custom clock, primarily for tests.
func (m *SessionManager) WithClock(now func() time.Time) *SessionManager {
	if now != nil {
		m.now = now
	}
	return m
}

// TTL returns the configured session lifetime.
func (m *SessionManager) TTL() time.Duration {
	return m.ttl
}

// Create mints a session with a fresh high-entropy token.
func (m *SessionManager) Create(userID, username string) (domain.Session, error) {
	token, err := security.GenerateSessionToken()
	if err != nil {
		return domain.Session{}, err
	}

	now := m.now()
	session := domain.Session{
		Token:     token,
		UserID:    userID,
		Username:  username,
		CreatedAt: now,
		ExpiresAt: now.Add(m.ttl),
	}

	m.mu.Lock()
	m.sessions[token] = session
	m.mu.Unlock()

	return session, nil
}

// Get returns the session for the token if it is still active. Expired
// sessions are removed on touch; there is no way back from expired.
func (m *SessionManager) Get(token string) (*domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, ok := m.sessions[token]
	if !ok {
		return nil, ErrSessionNotFound
	}
	if !session.IsActive(m.now()) {
		delete(m.sessions, token)
		return nil, ErrSessionExpired
	}
	return &session, nil
}

// Revoke drops the session for the token. Revoking an unknown token is a
// no-op.
func (m *SessionManager) Revoke(token string) {
	m.mu.Lock()
	delete(m.sessions, token)
	m.mu.Unlock()
}

// RevokeUser drops every session belonging to the user except the one
// identified by exceptToken (pass "" to drop all). Returns the number of
// sessions revoked.
func (m *SessionManager) RevokeUser(userID, exceptToken string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	revoked := 0
	for token, session := range m.sessions {
		if session.UserID == userID && token != exceptToken {
			delete(m.sessions, token)
			revoked++
		}
	}
	return revoked
}
