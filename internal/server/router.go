package server

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/upright-backend/internal/http/handlers"
	httpMW "github.com/yungbote/upright-backend/internal/http/middleware"
	"github.com/yungbote/upright-backend/internal/observability"
	"github.com/yungbote/upright-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log     *logger.Logger
	Metrics *observability.Metrics

	AuthHandler    *httpH.AuthHandler
	AuthMiddleware *httpMW.AuthMiddleware

	EventHandler       *httpH.EventHandler
	StatsHandler       *httpH.StatsHandler
	FriendHandler      *httpH.FriendHandler
	LeaderboardHandler *httpH.LeaderboardHandler
	CoachHandler       *httpH.CoachHandler
	MonitorHandler     *httpH.MonitorHandler
	HealthHandler      *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware("upright-backend"))
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS())

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapF(cfg.Metrics.WriteHTTP))
	}

	api := r.Group("/api")
	{
		// Auth (public). Refresh validates its own refresh token, so it does
		// not sit behind RequireAuth; an expired access token must not block
		// rotation.
		if cfg.AuthHandler != nil {
			api.POST("/auth/signup", cfg.AuthHandler.Signup)
			api.POST("/auth/login", cfg.AuthHandler.Login)
			api.POST("/auth/refresh", cfg.AuthHandler.Refresh)
			api.POST("/auth/reset-password", cfg.AuthHandler.ResetPassword)
		}

		// Monitoring surface is identifier-keyed, not session-keyed: the
		// python client and the anonymous demo dashboard both post here.
		if cfg.EventHandler != nil {
			api.POST("/events", cfg.EventHandler.Ingest)
		}
		if cfg.StatsHandler != nil {
			api.GET("/stats/summary", cfg.StatsHandler.Summary)
		}
		if cfg.FriendHandler != nil {
			api.GET("/friends", cfg.FriendHandler.List)
			api.POST("/friends", cfg.FriendHandler.Add)
		}
		if cfg.LeaderboardHandler != nil {
			api.GET("/leaderboard", cfg.LeaderboardHandler.Get)
		}
		if cfg.CoachHandler != nil {
			api.POST("/coach", cfg.CoachHandler.Ask)
			api.GET("/coach/recommendation", cfg.CoachHandler.Recommendation)
		}
		if cfg.MonitorHandler != nil {
			api.GET("/monitor", cfg.MonitorHandler.Status)
			api.POST("/monitor", cfg.MonitorHandler.Control)
		}
	}

	protected := api.Group("/")
	{
		if cfg.AuthMiddleware != nil {
			protected.Use(cfg.AuthMiddleware.RequireAuth())
		}
		if cfg.AuthHandler != nil {
			protected.POST("/auth/logout", cfg.AuthHandler.Logout)
			protected.GET("/profile", cfg.AuthHandler.Me)
			protected.PUT("/profile", cfg.AuthHandler.UpdateProfile)
		}
	}

	return r
}
