package port

import (
	"context"

	"github.com/Doerkidoerk/entgeltrechnerigmby/internal/core/domain"
)

// UserRepository exposes persistence behaviour for user records. The
// repository is the sole writer of credential and lockout fields; all
// mutations are applied and persisted atomically under its write lock.
type UserRepository interface {
	Insert(ctx context.Context, user domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByUsername(ctx context.Context, normalized string) (*domain.User, error)
	List(ctx context.Context) ([]domain.User, error)
	// Update applies fn to the stored record under the write lock and
	// persists the result when fn reports a change. fn receives a copy that
	// is written back only on success.
	Update(ctx context.Context, id string, fn func(*domain.User) (bool, error)) (*domain.User, error)
	Delete(ctx context.Context, id string) error
}
