package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Doerkidoerk/entgeltrechnerigmby/internal/core/domain"
	"github.com/Doerkidoerk/entgeltrechnerigmby/internal/core/port"
	"github.com/Doerkidoerk/entgeltrechnerigmby/internal/infra/logger"
	"github.com/Doerkidoerk/entgeltrechnerigmby/internal/infra/security"
	"github.com/Doerkidoerk/entgeltrechnerigmby/internal/repository"
)

var (
	// ErrInviteNotFound indicates the invite code does not exist.
	ErrInviteNotFound = errors.New("invite not found")
	// ErrInviteUsed indicates the invite was already consumed.
	ErrInviteUsed = errors.New("invite already used")
	// ErrInviteExpired indicates the invite passed its expiry.
	ErrInviteExpired = errors.New("invite expired")
)

// inviteCodeRetries bounds the collision loop during code generation.
const inviteCodeRetries = 5

// CreateInviteParams carries the payload for invite creation.
type CreateInviteParams struct {
	Role      domain.Role
	CreatedBy string
	Note      string
	TTLHours  int
}

// InviteService manages single-use registration invites.
type InviteService struct {
	invites port.InviteRepository
	audit   port.AuditLog
	logger  *zap.Logger
	now     func() time.Time
}

// NewInviteService constructs InviteService.
func NewInviteService(invites port.InviteRepository, auditLog port.AuditLog, logger *zap.Logger) *InviteService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InviteService{
		invites: invites,
		audit:   auditLog,
		logger:  logger,
		now:     time.Now,
	}
}

// WithClock injects a custom clock, primarily for tests.
func (s *InviteService) WithClock(now func() time.Time) *InviteService {
	if now != nil {
		s.now = now
	}
	return s
}

// Create generates an unguessable invite code and persists it. A TTL of zero
// produces an invite that never expires.
func (s *InviteService) Create(ctx context.Context, params CreateInviteParams) (domain.Invite, error) {
	now := s.now().UTC()
	invite := domain.Invite{
		Role:      domain.ParseRole(string(params.Role)),
		CreatedAt: now,
		CreatedBy: params.CreatedBy,
		Note:      params.Note,
	}
	if params.TTLHours > 0 {
		expiresAt := now.Add(time.Duration(params.TTLHours) * time.Hour)
		invite.ExpiresAt = &expiresAt
	}

	for attempt := 0; attempt < inviteCodeRetries; attempt++ {
		code, err := security.GenerateInviteCode()
		if err != nil {
			return domain.Invite{}, fmt.Errorf("generate invite code: %w", err)
		}
		if s.invites.Exists(ctx, code) {
			continue
		}
		invite.Code = code
		if err := s.invites.Insert(ctx, invite); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				continue
			}
			return domain.Invite{}, fmt.Errorf("create invite: %w", err)
		}
		// Audit fields carry the masked code only; the full code is the
		// registration credential.
		s.record(ctx, "invite_created", map[string]any{
			"code":      logger.MaskString(invite.Code),
			"role":      string(invite.Role),
			"createdBy": params.CreatedBy,
		})
		return invite, nil
	}
	return domain.Invite{}, errors.New("could not generate a unique invite code")
}

// Get returns the invite with derived expiry state.
func (s *InviteService) Get(ctx context.Context, code string) (domain.PublicInvite, error) {
	invite, err := s.invites.Get(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.PublicInvite{}, ErrInviteNotFound
		}
		return domain.PublicInvite{}, fmt.Errorf("lookup invite: %w", err)
	}
	return invite.Public(s.now().UTC()), nil
}

// List returns invites newest first. With includeExpired false, invites that
// are used or past expiry are filtered out.
func (s *InviteService) List(ctx context.Context, includeExpired bool) ([]domain.PublicInvite, error) {
	invites, err := s.invites.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list invites: %w", err)
	}
	now := s.now().UTC()
	public := make([]domain.PublicInvite, 0, len(invites))
	for _, invite := range invites {
		if !includeExpired && (invite.IsUsed() || invite.IsExpired(now)) {
			continue
		}
		public = append(public, invite.Public(now))
	}
	return public, nil
}

// Consume atomically marks the invite as used by the given username.
func (s *InviteService) Consume(ctx context.Context, code, username string) (domain.Invite, error) {
	invite, err := s.invites.Consume(ctx, code, username, s.now().UTC())
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return domain.Invite{}, ErrInviteNotFound
		case errors.Is(err, repository.ErrInviteUsed):
			return domain.Invite{}, ErrInviteUsed
		case errors.Is(err, repository.ErrInviteExpired):
			return domain.Invite{}, ErrInviteExpired
		default:
			return domain.Invite{}, fmt.Errorf("consume invite: %w", err)
		}
	}
	return *invite, nil
}

// Delete removes the invite.
func (s *InviteService) Delete(ctx context.Context, code, deletedBy string) error {
	if err := s.invites.Delete(ctx, code); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrInviteNotFound
		}
		return fmt.Errorf("delete invite: %w", err)
	}
	s.record(ctx, "invite_deleted", map[string]any{
		"code":      logger.MaskString(code),
		"deletedBy": deletedBy,
	})
	return nil
}

func (s *InviteService) record(ctx context.Context, event string, fields map[string]any) {
	if s.audit != nil {
		s.audit.Record(ctx, event, fields)
	}
}
