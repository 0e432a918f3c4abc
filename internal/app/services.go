package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/upright-backend/internal/identity"
	"github.com/yungbote/upright-backend/internal/platform/logger"
	"github.com/yungbote/upright-backend/internal/services"
)

type Services struct {
	Auth        services.AuthService
	User        services.UserService
	Resolver    identity.Resolver
	Ledger      services.LedgerService
	Stats       services.StatsService
	Friend      services.FriendService
	Leaderboard services.LeaderboardService
	Coach       services.CoachService
	Monitor     services.MonitorService
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, reposet Repos, clients Clients) Services {
	log.Info("Wiring services...")
	return Services{
		Auth: services.NewAuthService(
			db, log, reposet.User, reposet.UserToken,
			cfg.JWTSecretKey, cfg.AccessTokenTTL, cfg.RefreshTokenTTL,
		),
		User:        services.NewUserService(db, log, reposet.User),
		Resolver:    identity.NewResolver(reposet.User, log),
		Ledger:      services.NewLedgerService(db, log, reposet.Session, reposet.User),
		Stats:       services.NewStatsService(db, log, reposet.Session, reposet.User),
		Friend:      services.NewFriendService(db, log, reposet.Friend, reposet.User),
		Leaderboard: services.NewLeaderboardService(db, log, reposet.Friend, reposet.User, clients.Redis, cfg.LeaderboardCacheTTL),
		Coach:       services.NewCoachService(db, log, reposet.Session, reposet.Recommendation, clients.LLM),
		Monitor:     services.NewMonitorService(log),
	}
}
