package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/upright-backend/internal/http/response"
	"github.com/yungbote/upright-backend/internal/identity"
	"github.com/yungbote/upright-backend/internal/services"
)

type CoachHandler struct {
	resolver identity.Resolver
	coach    services.CoachService
}

func NewCoachHandler(resolver identity.Resolver, coach services.CoachService) *CoachHandler {
	return &CoachHandler{resolver: resolver, coach: coach}
}

func (ch *CoachHandler) Ask(c *gin.Context) {
	var req struct {
		Question string `json:"question"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Question == "" {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", fmt.Errorf("missing question"))
		return
	}
	response.RespondOK(c, gin.H{"answer": ch.coach.Ask(c.Request.Context(), req.Question)})
}

func (ch *CoachHandler) Recommendation(c *gin.Context) {
	userID := c.Query("userId")
	if userID == "" {
		userID = "demo"
	}
	key := ch.resolver.Resolve(c.Request.Context(), userID)
	result := ch.coach.WeeklyRecommendation(c.Request.Context(), key)
	response.RespondOK(c, gin.H{
		"ok":             true,
		"userId":         userID,
		"hasData":        result.HasData,
		"updated":        result.Updated,
		"recommendation": result.Recommendation,
		"generatedAt":    result.GeneratedAt,
	})
}
