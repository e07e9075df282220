package jsonfile

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/Doerkidoerk/entgeltrechnerigmby/internal/core/domain"
	"github.com/Doerkidoerk/entgeltrechnerigmby/internal/repository"
)

type userDocument struct {
	Version int           `json:"version"`
	Users   []domain.User `json:"users"`
}

// UserRepository persists user records in a single JSON document. All
// mutations run under one write lock and are flushed to disk before the call
// returns, so concurrent operations apply atomically and in submission order.
type UserRepository struct {
	mu     sync.Mutex
	path   string
	logger *zap.Logger

	byID   map[string]domain.User
	byName map[string]string // normalized username -> id
}

// NewUserRepository loads the users document from path. Malformed individual
// records are skipped with a log entry; only unreadable files are fatal.
func NewUserRepository(path string, logger *zap.Logger) (*UserRepository, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &UserRepository{
		path:   path,
		logger: logger,
		byID:   make(map[string]domain.User),
		byName: make(map[string]string),
	}
	if err := r.load(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *UserRepository) load() error {
	var doc userDocument
	found, err := readJSON(r.path, &doc)
	if err != nil {
		return err
	}
	if !found {
		return nil
	}

	for _, entry := range doc.Users {
		if entry.ID == "" || entry.Username == "" || entry.PasswordHash == "" {
			r.logger.Warn("skipping malformed user record", zap.String("id", entry.ID))
			continue
		}
		normalized, err := domain.NormalizeUsername(entry.Username)
		if err != nil {
			r.logger.Warn("skipping user with invalid username", zap.String("id", entry.ID), zap.Error(err))
			continue
		}
		entry.Username = normalized
		entry.Role = domain.ParseRole(string(entry.Role))
		r.byID[entry.ID] = entry
		r.byName[normalized] = entry.ID
	}
	return nil
}

// persist must be called with the lock held.
func (r *UserRepository) persist() error {
	doc := userDocument{Version: schemaVersion, Users: make([]domain.User, 0, len(r.byID))}
	for _, user := range r.byID {
		doc.Users = append(doc.Users, user)
	}
	sort.Slice(doc.Users, func(i, j int) bool { return doc.Users[i].Username < doc.Users[j].Username })
	return writeJSONAtomic(r.path, doc)
}

// Insert stores a new user, failing with repository.ErrConflict when a live
// user already holds the username (case-insensitive).
func (r *UserRepository) Insert(_ context.Context, user domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.byName[user.Username]; taken {
		return repository.ErrConflict
	}
	if _, exists := r.byID[user.ID]; exists {
		return repository.ErrConflict
	}

	r.byID[user.ID] = user
	r.byName[user.Username] = user.ID
	if err := r.persist(); err != nil {
		delete(r.byID, user.ID)
		delete(r.byName, user.Username)
		return fmt.Errorf("persist users: %w", err)
	}
	return nil
}

// GetByID returns a copy of the stored record.
func (r *UserRepository) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &user, nil
}

// GetByUsername looks up a user by its normalized username.
func (r *UserRepository) GetByUsername(_ context.Context, normalized string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.byName[normalized]
	if !ok {
		return nil, repository.ErrNotFound
	}
	user := r.byID[id]
	return &user, nil
}

// List returns all users sorted by normalized username.
func (r *UserRepository) List(_ context.Context) ([]domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	users := make([]domain.User, 0, len(r.byID))
	for _, user := range r.byID {
		users = append(users, user)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })
	return users, nil
}

// Update applies fn to a copy of the record under the write lock and persists
// when fn reports a change. When fn reports no change nothing is written, so
// no-op patches cannot bump updatedAt.
func (r *UserRepository) Update(_ context.Context, id string, fn func(*domain.User) (bool, error)) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.byID[id]
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
	if updated.ID != current.ID || updated.Username != current.Username {
		return nil, fmt.Errorf("user identity is immutable")
	}

	r.byID[id] = updated
	if err := r.persist(); err != nil {
		r.byID[id] = current
		return nil, fmt.Errorf("persist users: %w", err)
	}
	return &updated, nil
}

// Delete removes the user record.
func (r *UserRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.byID[id]
	if !ok {
		return repository.ErrNotFound
	}

	delete(r.byID, id)
	delete(r.byName, user.Username)
	if err := r.persist(); err != nil {
		r.byID[id] = user
		r.byName[user.Username] = id
		return fmt.Errorf("persist users: %w", err)
	}
	return nil
}
