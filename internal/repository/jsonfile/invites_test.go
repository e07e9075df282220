package jsonfile

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/Doerkidoerk/entgeltrechnerigmby/internal/core/domain"
	"github.com/Doerkidoerk/entgeltrechnerigmby/internal/repository"
)

func newTestInviteRepo(t *testing.T) (*InviteRepository, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "invites.json")
	repo, err := NewInviteRepository(path, nil)
	if err != nil {
		t.Fatalf("NewInviteRepository returned error: %v", err)
	}
	return repo, path
}

func testInvite(code string, createdAt time.Time) domain.Invite {
	return domain.Invite{
		Code:      code,
		Role:      domain.RoleUser,
		CreatedAt: createdAt,
		CreatedBy: "admin",
	}
}

func TestInviteRepositoryConsumeIsSingleUse(t *testing.T) {
	repo, _ := newTestInviteRepo(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	if err := repo.Insert(ctx, testInvite("code-1", now)); err != nil {
		t.Fatalf("Insert returned error: %v", err)
	}

	consumed, err := repo.Consume(ctx, "code-1", "alice", now.Add(time.Minute))
	if err != nil {
		t.Fatalf("Consume returned error: %v", err)
	}
	if consumed.UsedBy != "alice" || consumed.UsedAt == nil {
		t.Fatalf("expected usedBy/usedAt to be stamped, got %+v", consumed)
	}

	if _, err := repo.Consume(ctx, "code-1", "bob", now.Add(2*time.Minute)); !errors.Is(err, repository.ErrInviteUsed) {
		t.Fatalf("expected ErrInviteUsed on second consume, got %v", err)
	}
}

func TestInviteRepositoryConsumeExpired(t *testing.T) {
	repo, _ := newTestInviteRepo(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	invite := testInvite("code-1", now)
	expiresAt := now.Add(time.Hour)
	invite.ExpiresAt = &expiresAt
	if err := repo.Insert(ctx, invite); err != nil {
		t.Fatalf("Insert returned error: %v", err)
	}

	if _, err := repo.Consume(ctx, "code-1", "alice", now.Add(2*time.Hour)); !errors.Is(err, repository.ErrInviteExpired) {
		t.Fatalf("expected ErrInviteExpired, got %v", err)
	}
	// Still unconsumed inside the window.
	if _, err := repo.Consume(ctx, "code-1", "alice", now.Add(30*time.Minute)); err != nil {
		t.Fatalf("Consume inside window returned error: %v", err)
	}
}

func TestInviteRepositoryConsumeUnknown(t *testing.T) {
	repo, _ := newTestInviteRepo(t)
	if _, err := repo.Consume(context.Background(), "missing", "alice", time.Now()); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestInviteRepositoryGetTrimsCode(t *testing.T) {
	repo, _ := newTestInviteRepo(t)
	ctx := context.Background()
	now := time.Now().UTC()

	if err := repo.Insert(ctx, testInvite("code-1", now)); err != nil {
		t.Fatalf("Insert returned error: %v", err)
	}
	invite, err := repo.Get(ctx, "  code-1  ")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if invite.Code != "code-1" {
		t.Fatalf("expected code-1, got %s", invite.Code)
	}
}

func TestInviteRepositoryListNewestFirst(t *testing.T) {
	repo, _ := newTestInviteRepo(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	if err := repo.Insert(ctx, testInvite("old", base)); err != nil {
		t.Fatalf("Insert returned error: %v", err)
	}
	if err := repo.Insert(ctx, testInvite("new", base.Add(time.Hour))); err != nil {
		t.Fatalf("Insert returned error: %v", err)
	}

	invites, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(invites) != 2 || invites[0].Code != "new" || invites[1].Code != "old" {
		t.Fatalf("expected newest-first ordering, got %v", invites)
	}
}

func TestInviteRepositoryUsedBysSurvivesReload(t *testing.T) {
	repo, path := newTestInviteRepo(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	if err := repo.Insert(ctx, testInvite("code-1", now)); err != nil {
		t.Fatalf("Insert returned error: %v", err)
	}
	if _, err := repo.Consume(ctx, "code-1", "alice", now.Add(time.Minute)); err != nil {
		t.Fatalf("Consume returned error: %v", err)
	}

	reloaded, err := NewInviteRepository(path, nil)
	if err != nil {
		t.Fatalf("reload returned error: %v", err)
	}
	invite, err := reloaded.Get(ctx, "code-1")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if invite.UsedBy != "alice" {
		t.Fatalf("expected usedBy alice after reload, got %q", invite.UsedBy)
	}
	if _, err := reloaded.Consume(ctx, "code-1", "bob", now.Add(time.Hour)); !errors.Is(err, repository.ErrInviteUsed) {
		t.Fatalf("expected ErrInviteUsed after reload, got %v", err)
	}
}

func TestInviteRepositoryDeleteAndExists(t *testing.T) {
	repo, _ := newTestInviteRepo(t)
	ctx := context.Background()

	if err := repo.Insert(ctx, testInvite("code-1", time.Now().UTC())); err != nil {
		t.Fatalf("Insert returned error: %v", err)
	}
	if !repo.Exists(ctx, "code-1") {
		t.Fatalf("expected invite to exist")
	}
	if err := repo.Delete(ctx, "code-1"); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	if repo.Exists(ctx, "code-1") {
		t.Fatalf("expected invite to be gone")
	}
	if err := repo.Delete(ctx, "code-1"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
