package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Doerkidoerk/entgeltrechnerigmby/internal/core/domain"
	"github.com/Doerkidoerk/entgeltrechnerigmby/internal/core/port"
	"github.com/Doerkidoerk/entgeltrechnerigmby/internal/infra/security"
	"github.com/Doerkidoerk/entgeltrechnerigmby/internal/repository"
)

// defaultAdminUsername is the account the self-healing routine maintains.
const defaultAdminUsername = "admin"

var (
	// ErrUserNotFound indicates the requested user does not exist.
	ErrUserNotFound = errors.New("user not found")
	// ErrUsernameTaken indicates a live user already holds the username.
	ErrUsernameTaken = errors.New("username already taken")
	// ErrInvalidUsername indicates the username violates the naming rules.
	ErrInvalidUsername = errors.New("invalid username")
	// ErrWeakPassword indicates the password fails the strength policy; the
	// wrapped PolicyError carries every violated rule.
	ErrWeakPassword = errors.New("password does not meet requirements")
	// ErrLastAdmin indicates the operation would leave the system without
	// an administrator.
	ErrLastAdmin = errors.New("cannot remove the last administrator")
)

// CreateUserParams carries the payload for user creation.
type CreateUserParams struct {
	Username           string
	Password           string
	Role               domain.Role
	CreatedBy          string
	MustChangePassword bool
	Locked             bool
}

// UserPatch is a partial update; nil fields are left untouched.
type UserPatch struct {
	Role               *domain.Role
	Locked             *bool
	MustChangePassword *bool
}

// SetPasswordOptions configures administrative password resets.
type SetPasswordOptions struct {
	MustChangePassword bool
	UpdatedBy          string
}

// UserService handles user lifecycle operations and owns the self-healing
// default administrator routine.
type UserService struct {
	users     port.UserRepository
	hasher    port.PasswordHasher
	validator *security.PasswordValidator
	sessions  *SessionManager
	audit     port.AuditLog
	logger    *zap.Logger

	defaultAdminPassword string
	now                  func() time.Time
}

// NewUserService constructs UserService.
func NewUserService(
	users port.UserRepository,
	hasher port.PasswordHasher,
	validator *security.PasswordValidator,
	sessions *SessionManager,
	auditLog port.AuditLog,
	defaultAdminPassword string,
	logger *zap.Logger,
) *UserService {
	if validator == nil {
		validator = security.DefaultPasswordValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{
		users:                users,
		hasher:               hasher,
		validator:            validator,
		sessions:             sessions,
		audit:                auditLog,
		logger:               logger,
		defaultAdminPassword: defaultAdminPassword,
		now:                  time.Now,
	}
}

// WithClock injects a custom clock, primarily for tests.
func (s *UserService) WithClock(now func() time.Time) *UserService {
	if now != nil {
		s.now = now
	}
	return s
}

// CreateUser normalises the username, enforces uniqueness and password
// strength, then hashes and persists the record.
func (s *UserService) CreateUser(ctx context.Context, params CreateUserParams) (domain.PublicUser, error) {
	normalized, err := domain.NormalizeUsername(params.Username)
	if err != nil {
		return domain.PublicUser{}, fmt.Errorf("%w: %v", ErrInvalidUsername, err)
	}

	if err := s.validator.Validate(params.Password); err != nil {
		return domain.PublicUser{}, fmt.Errorf("%w: %w", ErrWeakPassword, err)
	}

	hash, err := s.hasher.Hash(params.Password)
	if err != nil {
		return domain.PublicUser{}, err
	}

	now := s.now().UTC()
	user := domain.User{
		ID:                 uuid.NewString(),
		Username:           normalized,
		Role:               domain.ParseRole(string(params.Role)),
		PasswordHash:       hash,
		CreatedAt:          now,
		UpdatedAt:          now,
		CreatedBy:          params.CreatedBy,
		UpdatedBy:          params.CreatedBy,
		MustChangePassword: params.MustChangePassword,
		Locked:             params.Locked,
	}
	if params.Locked {
		lockedAt := now
		user.LockedAt = &lockedAt
	}

	if err := s.users.Insert(ctx, user); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return domain.PublicUser{}, ErrUsernameTaken
		}
		return domain.PublicUser{}, fmt.Errorf("create user: %w", err)
	}

	s.record(ctx, "user_created", map[string]any{"username": normalized, "role": string(user.Role), "createdBy": params.CreatedBy})
	return user.Public(), nil
}

// SetPassword rehashes the credential after validating strength. A reset
// doubles as an unlock and revokes every session of the user, since the actor
// is an administrator rather than the user themselves.
func (s *UserService) SetPassword(ctx context.Context, userID, password string, opts SetPasswordOptions) (domain.PublicUser, error) {
	if err := s.validator.Validate(password); err != nil {
		return domain.PublicUser{}, fmt.Errorf("%w: %w", ErrWeakPassword, err)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return domain.PublicUser{}, err
	}

	updated, err := s.users.Update(ctx, userID, func(u *domain.User) (bool, error) {
		u.SetPasswordHash(hash, opts.MustChangePassword, opts.UpdatedBy, s.now().UTC())
		return true, nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.PublicUser{}, ErrUserNotFound
		}
		return domain.PublicUser{}, fmt.Errorf("set password: %w", err)
	}

	if s.sessions != nil {
		s.sessions.RevokeUser(userID, "")
	}
	s.record(ctx, "password_reset", map[string]any{"username": updated.Username, "resetBy": opts.UpdatedBy})
	return updated.Public(), nil
}

// UpdateUser applies a partial patch. A patch identical to the current state
// leaves updatedAt untouched. Locking a user revokes their sessions;
// unlocking resets the failure counter.
func (s *UserService) UpdateUser(ctx context.Context, userID string, patch UserPatch, updatedBy string) (domain.PublicUser, error) {
	if patch.Role != nil || (patch.Locked != nil && *patch.Locked) {
		if err := s.guardLastAdmin(ctx, userID, patch); err != nil {
			return domain.PublicUser{}, err
		}
	}

	locked := false
	updated, err := s.users.Update(ctx, userID, func(u *domain.User) (bool, error) {
		now := s.now().UTC()
		changed := false

		if patch.Role != nil {
			role := domain.ParseRole(string(*patch.Role))
			if u.Role != role {
				u.Role = role
				changed = true
			}
		}

		if patch.MustChangePassword != nil && u.MustChangePassword != *patch.MustChangePassword {
			u.MustChangePassword = *patch.MustChangePassword
			changed = true
		}

		if patch.Locked != nil {
			switch {
			case *patch.Locked && !u.Locked:
				u.Locked = true
				lockedAt := now
				u.LockedAt = &lockedAt
				locked = true
				changed = true
			case !*patch.Locked && u.Locked:
				u.Locked = false
				u.LockedAt = nil
				u.FailedLoginAttempts = 0
				changed = true
			}
		}

		if changed {
			u.UpdatedAt = now
			u.UpdatedBy = updatedBy
		}
		return changed, nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.PublicUser{}, ErrUserNotFound
		}
		return domain.PublicUser{}, fmt.Errorf("update user: %w", err)
	}

	if locked && s.sessions != nil {
		s.sessions.RevokeUser(userID, "")
	}
	s.record(ctx, "user_updated", map[string]any{"username": updated.Username, "updatedBy": updatedBy})
	return updated.Public(), nil
}

// RemoveUser deletes the record and revokes every session of the user.
// Invites consumed by the user keep their usedBy reference for audit
// integrity.
func (s *UserService) RemoveUser(ctx context.Context, userID, deletedBy string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("lookup user: %w", err)
	}

	if user.IsAdmin() {
		admins, err := s.countAdmins(ctx)
		if err != nil {
			return err
		}
		if admins <= 1 {
			return ErrLastAdmin
		}
	}

	if err := s.users.Delete(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("delete user: %w", err)
	}

	if s.sessions != nil {
		s.sessions.RevokeUser(userID, "")
	}
	s.record(ctx, "user_deleted", map[string]any{"username": user.Username, "deletedBy": deletedBy})
	return nil
}

// GetUser returns the user by id.
func (s *UserService) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	return user, nil
}

// ListUsers returns the public projection of all users sorted by username.
func (s *UserService) ListUsers(ctx context.Context) ([]domain.PublicUser, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	public := make([]domain.PublicUser, 0, len(users))
	for _, user := range users {
		public = append(public, user.Public())
	}
	return public, nil
}

// EnsureDefaultAdmin guarantees the system is recoverable after data loss or
// corruption. When no admin-role user exists one is synthesized with the
// configured default password and mustChangePassword set. When the default
// admin record exists but its credential is structurally invalid, or still
// requires a password change yet no longer verifies against the default
// password, the credential is rebuilt from scratch. An admin who has chosen
// their own password (mustChangePassword=false) is never touched.
func (s *UserService) EnsureDefaultAdmin(ctx context.Context) error {
	users, err := s.users.List(ctx)
	if err != nil {
		return fmt.Errorf("list users: %w", err)
	}

	hasAdmin := false
	for _, user := range users {
		if user.IsAdmin() {
			hasAdmin = true
			break
		}
	}

	if !hasAdmin {
		hash, err := s.hasher.Hash(s.defaultAdminPassword)
		if err != nil {
			return fmt.Errorf("hash default admin password: %w", err)
		}
		now := s.now().UTC()
		admin := domain.User{
			ID:                 uuid.NewString(),
			Username:           defaultAdminUsername,
			Role:               domain.RoleAdmin,
			PasswordHash:       hash,
			CreatedAt:          now,
			UpdatedAt:          now,
			MustChangePassword: true,
		}
		if err := s.users.Insert(ctx, admin); err != nil {
			return fmt.Errorf("create default admin: %w", err)
		}
		s.logger.Warn("default administrator initialised; change the password immediately",
			zap.String("username", defaultAdminUsername))
		s.record(ctx, "default_admin_created", map[string]any{"username": defaultAdminUsername})
		return nil
	}

	admin, err := s.users.GetByUsername(ctx, defaultAdminUsername)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("lookup default admin: %w", err)
	}
	if !admin.IsAdmin() {
		return nil
	}

	structurallyValid := s.hasher.ValidStoredHash(admin.PasswordHash)
	needsRepair := !structurallyValid ||
		(admin.MustChangePassword && !s.hasher.Verify(s.defaultAdminPassword, admin.PasswordHash))
	if !needsRepair {
		return nil
	}

	hash, err := s.hasher.Hash(s.defaultAdminPassword)
	if err != nil {
		return fmt.Errorf("hash default admin password: %w", err)
	}
	if _, err := s.users.Update(ctx, admin.ID, func(u *domain.User) (bool, error) {
		u.SetPasswordHash(hash, true, "", s.now().UTC())
		return true, nil
	}); err != nil {
		return fmt.Errorf("repair default admin: %w", err)
	}

	s.logger.Warn("default administrator credential was rebuilt",
		zap.String("username", defaultAdminUsername))
	s.record(ctx, "default_admin_repaired", map[string]any{"username": defaultAdminUsername})
	return nil
}

func (s *UserService) guardLastAdmin(ctx context.Context, userID string, patch UserPatch) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("lookup user: %w", err)
	}
	if !user.IsAdmin() {
		return nil
	}

	demoting := patch.Role != nil && domain.ParseRole(string(*patch.Role)) != domain.RoleAdmin
	locking := patch.Locked != nil && *patch.Locked && !user.Locked
	if !demoting && !locking {
		return nil
	}

	admins, err := s.countAdmins(ctx)
	if err != nil {
		return err
	}
	if admins <= 1 {
		return ErrLastAdmin
	}
	return nil
}

func (s *UserService) countAdmins(ctx context.Context) (int, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("list users: %w", err)
	}
	count := 0
	for _, user := range users {
		if user.IsAdmin() {
			count++
		}
	}
	return count, nil
}

func (s *UserService) record(ctx context.Context, event string, fields map[string]any) {
	if s.audit != nil {
		s.audit.Record(ctx, event, fields)
	}
}
