package port

import (
	"context"
	"time"

	"github.com/Doerkidoerk/entgeltrechnerigmby/internal/core/domain"
)

// InviteRepository exposes persistence behaviour for invites.
type InviteRepository interface {
	Insert(ctx context.Context, invite domain.Invite) error
	Get(ctx context.Context, code string) (*domain.Invite, error)
	List(ctx context.Context) ([]domain.Invite, error)
	// Consume marks the invite used by the supplied username in a single
	// check-and-set under the write lock, so two concurrent redemptions of
	// the same code can never both succeed.
	Consume(ctx context.Context, code, username string, at time.Time) (*domain.Invite, error)
	Delete(ctx context.Context, code string) error
	// Exists reports whether a live invite carries the supplied code,
	// used for collision checks during code generation.
	Exists(ctx context.Context, code string) bool
}
