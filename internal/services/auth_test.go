package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/yungbote/upright-backend/internal/data/repos"
	"github.com/yungbote/upright-backend/internal/data/repos/testutil"
	"github.com/yungbote/upright-backend/internal/platform/ctxutil"
)

func newTestAuth(t *testing.T) (AuthService, context.Context) {
	t.Helper()
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	log := testutil.Logger(t)
	auth := NewAuthService(
		tx, log,
		repos.NewUserRepo(tx, log),
		repos.NewUserTokenRepo(tx, log),
		"test-secret", time.Hour, 24*time.Hour,
	)
	return auth, context.Background()
}

func TestRegisterDerivesUsername(t *testing.T) {
	auth, ctx := newTestAuth(t)

	user, err := auth.Register(ctx, " Casey.Park@Example.com ", "hunter2")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if user.Email != "casey.park@example.com" {
		t.Fatalf("email = %q, want normalized", user.Email)
	}
	if user.Username != "casey.park" {
		t.Fatalf("username = %q, want casey.park", user.Username)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	auth, ctx := newTestAuth(t)

	if _, err := auth.Register(ctx, "dup@example.com", "pw"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	_, err := auth.Register(ctx, "DUP@example.com", "pw")
	if !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("duplicate register error = %v, want ErrEmailTaken", err)
	}
}

func TestLoginAndTokenContext(t *testing.T) {
	auth, ctx := newTestAuth(t)

	user, err := auth.Register(ctx, "login@example.com", "hunter2")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	if _, _, err := auth.Login(ctx, "login@example.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong password error = %v, want ErrInvalidCredentials", err)
	}

	access, refresh, err := auth.Login(ctx, "login@example.com", "hunter2")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if access == "" || refresh == "" {
		t.Fatal("empty token pair")
	}

	authedCtx, err := auth.SetContextFromToken(ctx, access)
	if err != nil {
		t.Fatalf("SetContextFromToken: %v", err)
	}
	rd := ctxutil.GetRequestData(authedCtx)
	if rd == nil || rd.UserID != user.ID {
		t.Fatalf("request data = %+v, want user %s", rd, user.ID)
	}
	if rd.Email != "login@example.com" {
		t.Fatalf("request email = %q", rd.Email)
	}

	if _, err := auth.SetContextFromToken(ctx, access+"x"); err == nil {
		t.Fatal("tampered token accepted")
	}
}

func TestRefreshRotatesTokens(t *testing.T) {
	auth, ctx := newTestAuth(t)

	if _, err := auth.Register(ctx, "rotate@example.com", "pw"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	_, refresh, err := auth.Login(ctx, "rotate@example.com", "pw")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	newAccess, newRefresh, err := auth.Refresh(ctx, refresh)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if newAccess == "" || newRefresh == "" || newRefresh == refresh {
		t.Fatalf("refresh did not rotate: %q -> %q", refresh, newRefresh)
	}

	// The consumed refresh token is gone.
	if _, _, err := auth.Refresh(ctx, refresh); err == nil {
		t.Fatal("stale refresh token accepted")
	}
}

func TestResetPasswordRevokesTokens(t *testing.T) {
	auth, ctx := newTestAuth(t)

	if _, err := auth.Register(ctx, "reset@example.com", "old-pw"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	_, refresh, err := auth.Login(ctx, "reset@example.com", "old-pw")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	if err := auth.ResetPassword(ctx, "reset@example.com", "new-pw"); err != nil {
		t.Fatalf("ResetPassword: %v", err)
	}

	if _, _, err := auth.Login(ctx, "reset@example.com", "old-pw"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("old password still works: %v", err)
	}
	if _, _, err := auth.Login(ctx, "reset@example.com", "new-pw"); err != nil {
		t.Fatalf("new password rejected: %v", err)
	}
	if _, _, err := auth.Refresh(ctx, refresh); err == nil {
		t.Fatal("refresh token survived password reset")
	}
}
