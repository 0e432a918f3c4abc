package app

import (
	httpH "github.com/yungbote/upright-backend/internal/http/handlers"
	"github.com/yungbote/upright-backend/internal/observability"
	"github.com/yungbote/upright-backend/internal/platform/logger"
)

type Handlers struct {
	Auth        *httpH.AuthHandler
	Event       *httpH.EventHandler
	Stats       *httpH.StatsHandler
	Friend      *httpH.FriendHandler
	Leaderboard *httpH.LeaderboardHandler
	Coach       *httpH.CoachHandler
	Monitor     *httpH.MonitorHandler
	Health      *httpH.HealthHandler
}

func wireHandlers(log *logger.Logger, serviceset Services, metrics *observability.Metrics) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Auth:        httpH.NewAuthHandler(serviceset.Auth, serviceset.User),
		Event:       httpH.NewEventHandler(serviceset.Resolver, serviceset.Ledger, metrics),
		Stats:       httpH.NewStatsHandler(serviceset.Resolver, serviceset.Stats),
		Friend:      httpH.NewFriendHandler(serviceset.Friend),
		Leaderboard: httpH.NewLeaderboardHandler(serviceset.Leaderboard),
		Coach:       httpH.NewCoachHandler(serviceset.Resolver, serviceset.Coach),
		Monitor:     httpH.NewMonitorHandler(serviceset.Monitor),
		Health:      httpH.NewHealthHandler(),
	}
}
