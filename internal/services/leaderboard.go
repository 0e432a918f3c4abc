package services

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/yungbote/upright-backend/internal/data/repos"
	"github.com/yungbote/upright-backend/internal/observability"
	"github.com/yungbote/upright-backend/internal/platform/logger"
)

type LeaderboardEntry struct {
	Name  string `json:"name"`
	Score int    `json:"score"`
}

type Leaderboard struct {
	UpdatedAt int64              `json:"updatedAt"`
	Entries   []LeaderboardEntry `json:"entries"`
}

// LeaderboardService projects an owner's friend list onto current scores.
// Read-only; a short-lived Redis snapshot absorbs dashboard polling.
type LeaderboardService interface {
	Leaderboard(ctx context.Context, ownerEmail string) Leaderboard
}

type leaderboardService struct {
	db       *gorm.DB
	log      *logger.Logger
	friends  repos.FriendRepo
	users    repos.UserRepo
	cache    *redis.Client
	cacheTTL time.Duration
	now      func() time.Time
}

func NewLeaderboardService(db *gorm.DB, baseLog *logger.Logger, friends repos.FriendRepo, users repos.UserRepo, cache *redis.Client, cacheTTL time.Duration) LeaderboardService {
	return &leaderboardService{
		db:       db,
		log:      baseLog.With("service", "LeaderboardService"),
		friends:  friends,
		users:    users,
		cache:    cache,
		cacheTTL: cacheTTL,
		now:      time.Now,
	}
}

func (s *leaderboardService) Leaderboard(ctx context.Context, ownerEmail string) Leaderboard {
	ownerEmail = strings.ToLower(strings.TrimSpace(ownerEmail))
	board := Leaderboard{
		UpdatedAt: s.now().Unix(),
		Entries:   []LeaderboardEntry{},
	}

	if cached, ok := s.fromCache(ctx, ownerEmail); ok {
		return cached
	}

	friends, err := s.friends.ListByOwnerEmail(ctx, nil, ownerEmail, 200)
	if err != nil {
		s.log.Warn("Friend list query failed, returning empty leaderboard", "error", err)
		return board
	}
	if len(friends) == 0 {
		return board
	}

	emails := make([]string, 0, len(friends))
	for _, friend := range friends {
		if strings.TrimSpace(friend.Email) != "" {
			emails = append(emails, friend.Email)
		}
	}
	scoreByEmail := map[string]int{}
	if len(emails) > 0 {
		users, err := s.users.GetByEmails(ctx, nil, emails)
		if err != nil {
			s.log.Warn("Friend score lookup failed, treating scores as zero", "error", err)
		}
		for _, user := range users {
			scoreByEmail[strings.ToLower(strings.TrimSpace(user.Email))] = user.CurrentScore
		}
	}

	for _, friend := range friends {
		name := strings.TrimSpace(friend.DisplayName)
		if name == "" {
			name = strings.TrimSpace(friend.Username)
		}
		if name == "" {
			name = strings.TrimSpace(friend.Email)
		}
		if name == "" {
			name = "Unknown"
		}
		board.Entries = append(board.Entries, LeaderboardEntry{
			Name:  name,
			Score: scoreByEmail[strings.ToLower(strings.TrimSpace(friend.Email))],
		})
	}

	SortLeaderboard(board.Entries)
	s.toCache(ctx, ownerEmail, board)
	return board
}

// SortLeaderboard orders entries by descending score, ties broken by
// ascending name. The ordering is total: two entries only compare equal
// when both fields match.
func SortLeaderboard(entries []LeaderboardEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].Name < entries[j].Name
	})
}

func (s *leaderboardService) fromCache(ctx context.Context, ownerEmail string) (Leaderboard, bool) {
	var board Leaderboard
	if s.cache == nil || ownerEmail == "" {
		return board, false
	}
	raw, err := s.cache.Get(ctx, leaderboardCacheKey(ownerEmail)).Bytes()
	if err != nil {
		if err != redis.Nil {
			s.log.Debug("Leaderboard cache read failed", "error", err)
		}
		observability.Current().IncLeaderboardCache("miss")
		return board, false
	}
	if err := json.Unmarshal(raw, &board); err != nil {
		observability.Current().IncLeaderboardCache("miss")
		return Leaderboard{}, false
	}
	observability.Current().IncLeaderboardCache("hit")
	return board, true
}

func (s *leaderboardService) toCache(ctx context.Context, ownerEmail string, board Leaderboard) {
	if s.cache == nil || ownerEmail == "" || s.cacheTTL <= 0 {
		return
	}
	raw, err := json.Marshal(board)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, leaderboardCacheKey(ownerEmail), raw, s.cacheTTL).Err(); err != nil {
		s.log.Debug("Leaderboard cache write failed", "error", err)
	}
}

func leaderboardCacheKey(ownerEmail string) string {
	return "upright:leaderboard:" + ownerEmail
}
