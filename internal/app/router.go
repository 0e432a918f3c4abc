package app

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/upright-backend/internal/observability"
	"github.com/yungbote/upright-backend/internal/platform/logger"
	"github.com/yungbote/upright-backend/internal/server"
)

func wireRouter(log *logger.Logger, handlerset Handlers, middleware Middleware, metrics *observability.Metrics) *gin.Engine {
	log.Info("Wiring router...")
	return server.NewRouter(server.RouterConfig{
		Log:                log,
		Metrics:            metrics,
		AuthHandler:        handlerset.Auth,
		AuthMiddleware:     middleware.Auth,
		EventHandler:       handlerset.Event,
		StatsHandler:       handlerset.Stats,
		FriendHandler:      handlerset.Friend,
		LeaderboardHandler: handlerset.Leaderboard,
		CoachHandler:       handlerset.Coach,
		MonitorHandler:     handlerset.Monitor,
		HealthHandler:      handlerset.Health,
	})
}
