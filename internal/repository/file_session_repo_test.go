package repository

import (
	"context"
	"testing"
	"time"

	"github.com/kawamura/memgraph/internal/model"
)

func newSession(token string, expiresAt time.Time) *model.Session {
	return &model.Session{
		Token:     token,
		UserID:    "user-1",
		Username:  "alice",
		CreatedAt: time.Now(),
		ExpiresAt: expiresAt,
	}
}

func TestFileSessionRepo_CreateAndFindByToken(t *testing.T) {
	repo := NewFileSessionRepo(t.TempDir())
	ctx := context.Background()

	expires := time.Now().Add(7 * 24 * time.Hour).UTC().Truncate(time.Second)
	if err := repo.Create(ctx, newSession("tok-1", expires)); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	found, err := repo.FindByToken(ctx, "tok-1")
	if err != nil {
		t.Fatalf("FindByToken failed: %v", err)
	}
	if found == nil {
		t.Fatal("FindByToken returned nil for existing session")
	}
	if found.UserID != "user-1" || found.Username != "alice" {
		t.Errorf("found = %+v, want user-1/alice", found)
	}
	if !found.ExpiresAt.Equal(expires) {
		t.Errorf("ExpiresAt = %v, want %v", found.ExpiresAt, expires)
	}
}

func TestFileSessionRepo_FindByToken_ReturnsExpiredRecordAsIs(t *testing.T) {
	repo := NewFileSessionRepo(t.TempDir())
	ctx := context.Background()

	// 期限切れ判定はサービス層の責務。リポジトリはレコードをそのまま返す。
	if err := repo.Create(ctx, newSession("tok-old", time.Now().Add(-time.Hour))); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	found, err := repo.FindByToken(ctx, "tok-old")
	if err != nil {
		t.Fatalf("FindByToken failed: %v", err)
	}
	if found == nil {
		t.Fatal("repository should return expired records unfiltered")
	}
}

func TestFileSessionRepo_DeleteByToken(t *testing.T) {
	repo := NewFileSessionRepo(t.TempDir())
	ctx := context.Background()

	if err := repo.Create(ctx, newSession("tok-1", time.Now().Add(time.Hour))); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	existed, err := repo.DeleteByToken(ctx, "tok-1")
	if err != nil {
		t.Fatalf("DeleteByToken failed: %v", err)
	}
	if !existed {
		t.Error("DeleteByToken should report an existing record")
	}

	existed, err = repo.DeleteByToken(ctx, "tok-1")
	if err != nil {
		t.Fatalf("DeleteByToken failed: %v", err)
	}
	if existed {
		t.Error("second DeleteByToken should report no record")
	}
}

func TestFileSessionRepo_DeleteExpired(t *testing.T) {
	repo := NewFileSessionRepo(t.TempDir())
	ctx := context.Background()
	now := time.Now()

	if err := repo.Create(ctx, newSession("tok-live", now.Add(time.Hour))); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := repo.Create(ctx, newSession("tok-dead-1", now.Add(-time.Hour))); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := repo.Create(ctx, newSession("tok-dead-2", now.Add(-time.Minute))); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	removed, err := repo.DeleteExpired(ctx, now)
	if err != nil {
		t.Fatalf("DeleteExpired failed: %v", err)
	}
	if removed != 2 {
		t.Errorf("removed = %d, want 2", removed)
	}

	live, err := repo.FindByToken(ctx, "tok-live")
	if err != nil {
		t.Fatalf("FindByToken failed: %v", err)
	}
	if live == nil {
		t.Error("live session should survive the sweep")
	}

	dead, err := repo.FindByToken(ctx, "tok-dead-1")
	if err != nil {
		t.Fatalf("FindByToken failed: %v", err)
	}
	if dead != nil {
		t.Error("expired session should be removed by the sweep")
	}
}

func TestFileSessionRepo_DeleteExpired_NoExpiredIsNoop(t *testing.T) {
	repo := NewFileSessionRepo(t.TempDir())
	ctx := context.Background()

	if err := repo.Create(ctx, newSession("tok-live", time.Now().Add(time.Hour))); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	removed, err := repo.DeleteExpired(ctx, time.Now())
	if err != nil {
		t.Fatalf("DeleteExpired failed: %v", err)
	}
	if removed != 0 {
		t.Errorf("removed = %d, want 0", removed)
	}
}
