package jsonfile

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Doerkidoerk/entgeltrechnerigmby/internal/core/domain"
	"github.com/Doerkidoerk/entgeltrechnerigmby/internal/repository"
)

type inviteDocument struct {
	Version int             `json:"version"`
	Invites []domain.Invite `json:"invites"`
}

// InviteRepository persists invites in a single JSON document with the same
// locking and atomic-write discipline as the user repository.
type InviteRepository struct {
	mu     sync.Mutex
	path   string
	logger *zap.Logger

	byCode map[string]domain.Invite
}

// NewInviteRepository loads the invites document from path.
func NewInviteRepository(path string, logger *zap.Logger) (*InviteRepository, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &InviteRepository{
		path:   path,
		logger: logger,
		byCode: make(map[string]domain.Invite),
	}
	if err := r.load(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *InviteRepository) load() error {
	var doc inviteDocument
	found, err := readJSON(r.path, &doc)
	if err != nil {
		return err
	}
	if !found {
		return nil
	}

	for _, entry := range doc.Invites {
		if entry.Code == "" {
			r.logger.Warn("skipping malformed invite record")
			continue
		}
		entry.Role = domain.ParseRole(string(entry.Role))
		r.byCode[entry.Code] = entry
	}
	return nil
}

// persist must be called with the lock held.
func (r *InviteRepository) persist() error {
	doc := inviteDocument{Version: schemaVersion, Invites: make([]domain.Invite, 0, len(r.byCode))}
	for _, invite := range r.byCode {
		doc.Invites = append(doc.Invites, invite)
	}
	sort.Slice(doc.Invites, func(i, j int) bool { return doc.Invites[i].CreatedAt.After(doc.Invites[j].CreatedAt) })
	return writeJSONAtomic(r.path, doc)
}

// Insert stores a freshly issued invite.
func (r *InviteRepository) Insert(_ context.Context, invite domain.Invite) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byCode[invite.Code]; exists {
		return repository.ErrConflict
	}
	r.byCode[invite.Code] = invite
	if err := r.persist(); err != nil {
		delete(r.byCode, invite.Code)
		return fmt.Errorf("persist invites: %w", err)
	}
	return nil
}

// Get returns the invite for the trimmed code.
func (r *InviteRepository) Get(_ context.Context, code string) (*domain.Invite, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	invite, ok := r.byCode[strings.TrimSpace(code)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &invite, nil
}

// List returns all invites sorted newest-first.
func (r *InviteRepository) List(_ context.Context) ([]domain.Invite, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	invites := make([]domain.Invite, 0, len(r.byCode))
	for _, invite := range r.byCode {
		invites = append(invites, invite)
	}
	sort.Slice(invites, func(i, j int) bool { return invites[i].CreatedAt.After(invites[j].CreatedAt) })
	return invites, nil
}

// Consume stamps usedAt/usedBy in a single check-and-set. At most one Consume
// call per code ever succeeds; later calls fail with ErrInviteUsed regardless
// of what happened to the consuming user since.
func (r *InviteRepository) Consume(_ context.Context, code, username string, at time.Time) (*domain.Invite, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	trimmed := strings.TrimSpace(code)
	invite, ok := r.byCode[trimmed]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if invite.IsUsed() {
		return nil, repository.ErrInviteUsed
	}
	if invite.IsExpired(at) {
		return nil, repository.ErrInviteExpired
	}

	previous := invite
	usedAt := at
	invite.UsedAt = &usedAt
	invite.UsedBy = username
	r.byCode[trimmed] = invite
	if err := r.persist(); err != nil {
		r.byCode[trimmed] = previous
		return nil, fmt.Errorf("persist invites: %w", err)
	}
	return &invite, nil
}

// Delete removes the invite.
func (r *InviteRepository) Delete(_ context.Context, code string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	trimmed := strings.TrimSpace(code)
	invite, ok := r.byCode[trimmed]
	if !ok {
		return repository.ErrNotFound
	}
	delete(r.byCode, trimmed)
	if err := r.persist(); err != nil {
		r.byCode[trimmed] = invite
		return fmt.Errorf("persist invites: %w", err)
	}
	return nil
}

// Exists reports whether a live invite carries the code.
func (r *InviteRepository) Exists(_ context.Context, code string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.byCode[strings.TrimSpace(code)]
	return ok
}
