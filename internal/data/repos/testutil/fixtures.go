package testutil

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/upright-backend/internal/domain"
)

func SeedUser(tb testing.TB, ctx context.Context, tx *gorm.DB, email string) *domain.User {
	tb.Helper()
	u := &domain.User{
		ID:       uuid.New(),
		Email:    email,
		Username: strings.SplitN(email, "@", 2)[0],
		Password: "pw",
	}
	if err := tx.WithContext(ctx).Create(u).Error; err != nil {
		tb.Fatalf("seed user: %v", err)
	}
	return u
}

func SeedSession(tb testing.TB, ctx context.Context, tx *gorm.DB, userKey int64, startedAt time.Time, endedAt *time.Time) *domain.PostureSession {
	tb.Helper()
	s := &domain.PostureSession{
		ID:        uuid.New(),
		UserKey:   userKey,
		StartedAt: startedAt,
		EndedAt:   endedAt,
	}
	if endedAt != nil {
		d := endedAt.Sub(startedAt)
		if d > 0 {
			s.Minutes = int(d.Minutes())
		}
	}
	if err := tx.WithContext(ctx).Create(s).Error; err != nil {
		tb.Fatalf("seed session: %v", err)
	}
	return s
}

func SeedFriend(tb testing.TB, ctx context.Context, tx *gorm.DB, ownerEmail, username, displayName string, friendKey int64) *domain.Friend {
	tb.Helper()
	f := &domain.Friend{
		ID:          uuid.New(),
		FriendKey:   friendKey,
		OwnerEmail:  ownerEmail,
		DisplayName: displayName,
		Username:    username,
		Email:       username + "@example.com",
	}
	if err := tx.WithContext(ctx).Create(f).Error; err != nil {
		tb.Fatalf("seed friend: %v", err)
	}
	return f
}
