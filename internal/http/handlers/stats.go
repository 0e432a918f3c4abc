package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/upright-backend/internal/http/response"
	"github.com/yungbote/upright-backend/internal/identity"
	"github.com/yungbote/upright-backend/internal/services"
)

type StatsHandler struct {
	resolver identity.Resolver
	stats    services.StatsService
}

func NewStatsHandler(resolver identity.Resolver, stats services.StatsService) *StatsHandler {
	return &StatsHandler{resolver: resolver, stats: stats}
}

func (sh *StatsHandler) Summary(c *gin.Context) {
	userID := c.Query("userId")
	if userID == "" {
		userID = "demo"
	}
	window := services.ParseStatsRange(c.Query("range"))

	key := sh.resolver.Resolve(c.Request.Context(), userID)
	summary := sh.stats.Summarize(c.Request.Context(), key, window)

	response.RespondOK(c, gin.H{
		"userId":            userID,
		"range":             summary.Range,
		"timeRange":         summary.TimeRange,
		"userScore":         summary.UserScore,
		"badPostureCount":   summary.BadPostureCount,
		"tooCloseCount":     summary.TooCloseCount,
		"scoreAverage":      summary.ScoreAverage,
		"totalMinutes":      summary.TotalMinutes,
		"activityBreakdown": summary.ActivityBreakdown,
		"buckets":           summary.Buckets,
	})
}
