package usecase

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/Doerkidoerk/entgeltrechnerigmby/internal/core/domain"
	"github.com/Doerkidoerk/entgeltrechnerigmby/internal/core/port"
)

// RegisterParams carries the payload for invite-based self-registration.
type RegisterParams struct {
	InviteCode string
	Username   string
	Password   string
}

// RegistrationResult carries the outcome of a successful registration: the
// created user and a session so the caller is logged in immediately.
type RegistrationResult struct {
	User    domain.PublicUser
	Session domain.Session
}

// RegistrationService orchestrates invite validation, user creation, invite
// consumption and the initial session.
type RegistrationService struct {
	invites  *InviteService
	users    *UserService
	sessions *SessionManager
	audit    port.AuditLog
	logger   *zap.Logger
}

// NewRegistrationService constructs RegistrationService.
func NewRegistrationService(
	invites *InviteService,
	users *UserService,
	sessions *SessionManager,
	auditLog port.AuditLog,
	logger *zap.Logger,
) *RegistrationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RegistrationService{
		invites:  invites,
		users:    users,
		sessions: sessions,
		audit:    auditLog,
		logger:   logger,
	}
}

// Register validates the invite, creates the user with the role the invite
// grants, then consumes the invite. User creation happens before consumption
// so a valid code is never burned on a rejected username or weak password.
// The rare case where consumption fails after the user exists leaves the user
// in place and logs the discrepancy.
func (s *RegistrationService) Register(ctx context.Context, params RegisterParams) (RegistrationResult, error) {
	invite, err := s.invites.Get(ctx, params.InviteCode)
	if err != nil {
		return RegistrationResult{}, err
	}
	if invite.IsUsed() {
		return RegistrationResult{}, ErrInviteUsed
	}
	if invite.Expired {
		return RegistrationResult{}, ErrInviteExpired
	}

	user, err := s.users.CreateUser(ctx, CreateUserParams{
		Username:  params.Username,
		Password:  params.Password,
		Role:      invite.Role,
		CreatedBy: "invite:" + invite.Code,
	})
	if err != nil {
		return RegistrationResult{}, err
	}

	if _, err := s.invites.Consume(ctx, params.InviteCode, user.Username); err != nil {
		s.logger.Error("invite consumption failed after user creation",
			zap.String("username", user.Username), zap.Error(err))
		s.record(ctx, "invite_consume_failed", map[string]any{"username": user.Username})
	}

	session, err := s.sessions.Create(user.ID, user.Username)
	if err != nil {
		return RegistrationResult{}, fmt.Errorf("create session: %w", err)
	}

	s.record(ctx, "user_registered", map[string]any{"username": user.Username, "role": string(user.Role)})
	return RegistrationResult{User: user, Session: session}, nil
}

func (s *RegistrationService) record(ctx context.Context, event string, fields map[string]any) {
	if s.audit != nil {
		s.audit.Record(ctx, event, fields)
	}
}
