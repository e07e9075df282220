package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Doerkidoerk/entgeltrechnerigmby/internal/core/domain"
	"github.com/Doerkidoerk/entgeltrechnerigmby/internal/core/port"
	"github.com/Doerkidoerk/entgeltrechnerigmby/internal/infra/security"
	"github.com/Doerkidoerk/entgeltrechnerigmby/internal/repository"
)

var (
	// ErrInvalidCredentials is returned for any authentication failure that
	// must not reveal whether the username exists.
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrAccountLocked indicates the account was locked by the lockout
	// policy or by an administrator.
	ErrAccountLocked = errors.New("account is locked")
	// ErrSessionInvalid indicates a session token that is missing, expired,
	// or belongs to a user that no longer may authenticate.
	ErrSessionInvalid = errors.New("session is not valid")
)

// LoginResult carries the session and user returned by a successful login.
type LoginResult struct {
	Session domain.Session
	User    domain.PublicUser
}

// AuthService implements login, logout, session resolution and self-service
// password changes on top of the user store and the session manager.
type AuthService struct {
	users     port.UserRepository
	hasher    port.PasswordHasher
	validator *security.PasswordValidator
	sessions  *SessionManager
	audit     port.AuditLog
	logger    *zap.Logger

	maxFailedAttempts int
	now               func() time.Time
}

// NewAuthService constructs AuthService. maxFailedAttempts is the lockout
// threshold, already clamped by configuration.
func NewAuthService(
	users port.UserRepository,
	hasher port.PasswordHasher,
	validator *security.PasswordValidator,
	sessions *SessionManager,
	auditLog port.AuditLog,
	maxFailedAttempts int,
	logger *zap.Logger,
) *AuthService {
	if validator == nil {
		validator = security.DefaultPasswordValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		users:             users,
		hasher:            hasher,
		validator:         validator,
		sessions:          sessions,
		audit:             auditLog,
		logger:            logger,
		maxFailedAttempts: maxFailedAttempts,
		now:               time.Now,
	}
}

// WithClock injects a custom clock, primarily for tests.
func (a *AuthService) WithClock(now func() time.Time) *AuthService {
	if now != nil {
		a.now = now
	}
	return a
}

// Login authenticates the user and creates a session. Unknown or invalid
// usernames burn one dummy bcrypt verification so response timing does not
// leak whether the username exists. Locked accounts short-circuit before any
// password comparison and without touching the failure counter.
func (a *AuthService) Login(ctx context.Context, username, password string) (LoginResult, error) {
	normalized, err := domain.NormalizeUsername(username)
	if err != nil {
		a.hasher.VerifyDummy(password)
		a.record(ctx, "login_failed", map[string]any{"username": username, "reason": "invalid_username"})
		return LoginResult{}, ErrInvalidCredentials
	}

	user, err := a.users.GetByUsername(ctx, normalized)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			a.hasher.VerifyDummy(password)
			a.record(ctx, "login_failed", map[string]any{"username": normalized, "reason": "unknown_user"})
			return LoginResult{}, ErrInvalidCredentials
		}
		return LoginResult{}, fmt.Errorf("lookup user: %w", err)
	}

	if user.Locked {
		a.record(ctx, "login_rejected_locked", map[string]any{"username": normalized})
		return LoginResult{}, ErrAccountLocked
	}

	if !a.hasher.Verify(password, user.PasswordHash) {
		lockedNow := false
		if _, err := a.users.Update(ctx, user.ID, func(u *domain.User) (bool, error) {
			lockedNow = u.RecordLoginFailure(a.maxFailedAttempts, a.now().UTC())
			return true, nil
		}); err != nil {
			a.logger.Error("failed to record login failure", zap.String("username", normalized), zap.Error(err))
		}
		if lockedNow {
			a.record(ctx, "account_locked", map[string]any{"username": normalized, "threshold": a.maxFailedAttempts})
			return LoginResult{}, ErrAccountLocked
		}
		a.record(ctx, "login_failed", map[string]any{"username": normalized, "reason": "bad_password"})
		return LoginResult{}, ErrInvalidCredentials
	}

	updated, err := a.users.Update(ctx, user.ID, func(u *domain.User) (bool, error) {
		u.RecordLoginSuccess(a.now().UTC())
		return true, nil
	})
	if err != nil {
		return LoginResult{}, fmt.Errorf("record login: %w", err)
	}

	session, err := a.sessions.Create(updated.ID, updated.Username)
	if err != nil {
		return LoginResult{}, fmt.Errorf("create session: %w", err)
	}

	a.record(ctx, "login_succeeded", map[string]any{"username": updated.Username})
	return LoginResult{Session: session, User: updated.Public()}, nil
}

// Logout revokes the session. Revoking an unknown token is a no-op.
func (a *AuthService) Logout(ctx context.Context, token string) {
	a.sessions.Revoke(token)
	a.record(ctx, "logout", nil)
}

// ResolveSession validates the token and re-fetches the user so that a
// deletion or lock that happened after login takes effect immediately. A
// session whose user is gone or locked is revoked on sight.
func (a *AuthService) ResolveSession(ctx context.Context, token string) (domain.Session, *domain.User, error) {
	session, err := a.sessions.Get(token)
	if err != nil {
		return domain.Session{}, nil, ErrSessionInvalid
	}

	user, err := a.users.GetByID(ctx, session.UserID)
	if err != nil {
		a.sessions.Revoke(token)
		if errors.Is(err, repository.ErrNotFound) {
			return domain.Session{}, nil, ErrSessionInvalid
		}
		return domain.Session{}, nil, fmt.Errorf("lookup user: %w", err)
	}
	if user.Locked {
		a.sessions.Revoke(token)
		return domain.Session{}, nil, ErrSessionInvalid
	}

	return *session, user, nil
}

// ChangePassword verifies the current password, enforces the strength policy
// and rehashes. Every other session of the user is revoked; the session that
// performed the change stays alive.
func (a *AuthService) ChangePassword(ctx context.Context, userID, currentToken, oldPassword, newPassword string) error {
	user, err := a.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("lookup user: %w", err)
	}

	if !a.hasher.Verify(oldPassword, user.PasswordHash) {
		a.record(ctx, "password_change_rejected", map[string]any{"username": user.Username})
		return ErrInvalidCredentials
	}

	if err := a.validator.Validate(newPassword); err != nil {
		return fmt.Errorf("%w: %w", ErrWeakPassword, err)
	}

	hash, err := a.hasher.Hash(newPassword)
	if err != nil {
		return err
	}

	if _, err := a.users.Update(ctx, userID, func(u *domain.User) (bool, error) {
		u.SetPasswordHash(hash, false, u.Username, a.now().UTC())
		return true, nil
	}); err != nil {
		return fmt.Errorf("change password: %w", err)
	}

	revoked := a.sessions.RevokeUser(userID, currentToken)
	a.record(ctx, "password_changed", map[string]any{"username": user.Username, "revokedSessions": revoked})
	return nil
}

func (a *AuthService) record(ctx context.Context, event string, fields map[string]any) {
	if a.audit != nil {
		a.audit.Record(ctx, event, fields)
	}
}
