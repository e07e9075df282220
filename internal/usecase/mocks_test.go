package usecase

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/Doerkidoerk/entgeltrechnerigmby/internal/core/domain"
	"github.com/Doerkidoerk/entgeltrechnerigmby/internal/repository"
)

// memUserRepo is an in-memory port.UserRepository for service tests.
type memUserRepo struct {
	mu    sync.Mutex
	users map[string]domain.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: make(map[string]domain.User)}
}

func (r *memUserRepo) Insert(_ context.Context, user domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.Username == user.Username {
			return repository.ErrConflict
		}
	}
	if _, exists := r.users[user.ID]; exists {
		return repository.ErrConflict
	}
	r.users[user.ID] = user
	return nil
}

func (r *memUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &user, nil
}

func (r *memUserRepo) GetByUsername(_ context.Context, normalized string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if user.Username == normalized {
			copied := user
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memUserRepo) List(_ context.Context) ([]domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	users := make([]domain.User, 0, len(r.users))
	for _, user := range r.users {
		users = append(users, user)
	}
	return users, nil
}

func (r *memUserRepo) Update(_ context.Context, id string, fn func(*domain.User) (bool, error)) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	updated := current
	changed, err := fn(&updated)
	if err != nil {
		return nil, err
	}
	if !changed {
		return &current, nil
	}
	r.users[id] = updated
	return &updated, nil
}

func (r *memUserRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.users, id)
	return nil
}

// memInviteRepo is an in-memory port.InviteRepository for service tests.
type memInviteRepo struct {
	mu      sync.Mutex
	invites map[string]domain.Invite
}

func newMemInviteRepo() *memInviteRepo {
	return &memInviteRepo{invites: make(map[string]domain.Invite)}
}

func (r *memInviteRepo) Insert(_ context.Context, invite domain.Invite) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.invites[invite.Code]; exists {
		return repository.ErrConflict
	}
	r.invites[invite.Code] = invite
	return nil
}

func (r *memInviteRepo) Get(_ context.Context, code string) (*domain.Invite, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	invite, ok := r.invites[strings.TrimSpace(code)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &invite, nil
}

func (r *memInviteRepo) List(_ context.Context) ([]domain.Invite, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	invites := make([]domain.Invite, 0, len(r.invites))
	for _, invite := range r.invites {
		invites = append(invites, invite)
	}
	return invites, nil
}

func (r *memInviteRepo) Consume(_ context.Context, code, username string, at time.Time) (*domain.Invite, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	invite, ok := r.invites[strings.TrimSpace(code)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if invite.IsUsed() {
		return nil, repository.ErrInviteUsed
	}
	if invite.IsExpired(at) {
		return nil, repository.ErrInviteExpired
	}
	usedAt := at
	invite.UsedAt = &usedAt
	invite.UsedBy = username
	r.invites[invite.Code] = invite
	return &invite, nil
}

func (r *memInviteRepo) Delete(_ context.Context, code string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.invites[code]; !ok {
		return repository.ErrNotFound
	}
	delete(r.invites, code)
	return nil
}

func (r *memInviteRepo) Exists(_ context.Context, code string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.invites[code]
	return ok
}

// fakeHasher implements port.PasswordHasher without bcrypt cost, recording
// how often each verification path ran so tests can assert timing uniformity.
type fakeHasher struct {
	mu          sync.Mutex
	verifyCalls int
	dummyCalls  int
}

func (h *fakeHasher) Hash(password string) (string, error) {
	return "hashed:" + password, nil
}

func (h *fakeHasher) Verify(password, hash string) bool {
	h.mu.Lock()
	h.verifyCalls++
	h.mu.Unlock()
	return hash == "hashed:"+password
}

func (h *fakeHasher) VerifyDummy(string) {
	h.mu.Lock()
	h.dummyCalls++
	h.mu.Unlock()
}

func (h *fakeHasher) ValidStoredHash(hash string) bool {
	return strings.HasPrefix(hash, "hashed:")
}

func (h *fakeHasher) hashOps() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.verifyCalls + h.dummyCalls
}

// recordingAudit captures audit events and their fields for assertions.
type auditEntry struct {
	event  string
	fields map[string]any
}

type recordingAudit struct {
	mu      sync.Mutex
	entries []auditEntry
}

func (a *recordingAudit) Record(_ context.Context, event string, fields map[string]any) {
	a.mu.Lock()
	a.entries = append(a.entries, auditEntry{event: event, fields: fields})
	a.mu.Unlock()
}

func (a *recordingAudit) Close() error { return nil }

func (a *recordingAudit) has(event string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, e := range a.entries {
		if e.event == event {
			return true
		}
	}
	return false
}

// fieldsOf returns the fields of the most recent occurrence of event.
func (a *recordingAudit) fieldsOf(event string) map[string]any {
	a.mu.Lock()
	defer a.mu.Unlock()
	for i := len(a.entries) - 1; i >= 0; i-- {
		if a.entries[i].event == event {
			return a.entries[i].fields
		}
	}
	return nil
}
