package services

import (
	"context"
	"errors"
	"testing"

	"gorm.io/gorm"

	"github.com/yungbote/upright-backend/internal/data/repos"
	"github.com/yungbote/upright-backend/internal/data/repos/testutil"
)

func newTestFriends(t *testing.T) (FriendService, *gorm.DB, context.Context) {
	t.Helper()
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	log := testutil.Logger(t)
	svc := NewFriendService(tx, log, repos.NewFriendRepo(tx, log), repos.NewUserRepo(tx, log))
	return svc, tx, context.Background()
}

func TestAddFriendDedup(t *testing.T) {
	svc, tx, ctx := newTestFriends(t)
	testutil.SeedUser(t, ctx, tx, "pal@example.com")

	friend, existed, err := svc.Add(ctx, "owner@example.com", "pal@example.com")
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if existed {
		t.Fatal("first add reported as existing")
	}
	if friend.Email != "pal@example.com" {
		t.Fatalf("friend email = %q", friend.Email)
	}
	if friend.Username != "pal" {
		t.Fatalf("friend username = %q, want pal", friend.Username)
	}

	// Adding the same person by username hits the same friend key.
	again, existed, err := svc.Add(ctx, "owner@example.com", "pal")
	if err != nil {
		t.Fatalf("Add again: %v", err)
	}
	if !existed {
		t.Fatal("duplicate add not detected")
	}
	if again.FriendKey != friend.FriendKey {
		t.Fatalf("friend key changed: %d vs %d", again.FriendKey, friend.FriendKey)
	}

	list := svc.List(ctx, "owner@example.com")
	if len(list) != 1 {
		t.Fatalf("list = %d entries, want 1", len(list))
	}
}

func TestAddFriendUnknownUser(t *testing.T) {
	svc, _, ctx := newTestFriends(t)

	_, _, err := svc.Add(ctx, "owner@example.com", "nobody@example.com")
	if !errors.Is(err, ErrFriendNotFound) {
		t.Fatalf("error = %v, want ErrFriendNotFound", err)
	}
}

func TestAddFriendSelf(t *testing.T) {
	svc, tx, ctx := newTestFriends(t)
	testutil.SeedUser(t, ctx, tx, "solo@example.com")

	_, _, err := svc.Add(ctx, "solo@example.com", "solo@example.com")
	if !errors.Is(err, ErrSelfFriend) {
		t.Fatalf("error = %v, want ErrSelfFriend", err)
	}
}

func TestAddFriendValidatesInput(t *testing.T) {
	svc, _, ctx := newTestFriends(t)

	if _, _, err := svc.Add(ctx, "not-an-email", "pal"); !errors.Is(err, ErrBadFriendInput) {
		t.Fatalf("error = %v, want ErrBadFriendInput", err)
	}
	if _, _, err := svc.Add(ctx, "owner@example.com", ""); !errors.Is(err, ErrBadFriendInput) {
		t.Fatalf("error = %v, want ErrBadFriendInput", err)
	}
}
