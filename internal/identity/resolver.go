package identity

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/yungbote/upright-backend/internal/data/repos"
	"github.com/yungbote/upright-backend/internal/platform/logger"
)

// UserKey is the single identity value the rest of the system keys on.
// Key is always set and deterministic for a given raw identifier.
// UserID/Email/Display are only populated when the identifier matched a
// registered user.
type UserKey struct {
	Key     int64
	UserID  *uuid.UUID
	Email   string
	Display string
}

// Registered reports whether the key resolved against the user registry.
func (k UserKey) Registered() bool { return k.UserID != nil }

type Resolver interface {
	// Resolve is total: it never fails, and the same raw identifier always
	// yields the same Key even when the registry is unavailable.
	Resolve(ctx context.Context, raw string) UserKey
}

type resolver struct {
	users repos.UserRepo
	log   *logger.Logger
}

func NewResolver(users repos.UserRepo, baseLog *logger.Logger) Resolver {
	return &resolver{users: users, log: baseLog.With("service", "IdentityResolver")}
}

func (r *resolver) Resolve(ctx context.Context, raw string) UserKey {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	if normalized == "" {
		normalized = "demo"
	}

	key := UserKey{Key: HashKey(normalized)}

	if !strings.Contains(normalized, "@") || r.users == nil {
		return key
	}

	matches, err := r.users.GetByEmails(ctx, nil, []string{normalized})
	if err != nil {
		r.log.Warn("User lookup failed, falling back to hashed key", "error", err)
		return key
	}
	if len(matches) == 0 {
		return key
	}

	user := matches[0]
	id := user.ID
	key.UserID = &id
	key.Email = strings.ToLower(strings.TrimSpace(user.Email))
	key.Display = user.DisplayName()
	// Key stays derived from the canonical email so monitor posts and web
	// requests land on the same ledger rows.
	key.Key = HashKey(key.Email)
	return key
}

// HashKey derives a stable key in [1, 1e9) from an identifier:
// h = (h*31 + ch) mod 1e9, floored at 1 so it never collides with "no user".
func HashKey(normalized string) int64 {
	var h int64
	for _, ch := range normalized {
		h = (h*31 + int64(ch)) % 1000000000
	}
	if h == 0 {
		h = 1
	}
	return h
}

// FriendKey hashes an owner/friend pair for friend-list dedup.
func FriendKey(ownerEmail, friendUsername string) int64 {
	seed := strings.ToLower(strings.TrimSpace(ownerEmail)) + ":" + strings.ToLower(strings.TrimSpace(friendUsername))
	return HashKey(seed)
}
