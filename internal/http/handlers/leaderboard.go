package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/upright-backend/internal/http/response"
	"github.com/yungbote/upright-backend/internal/services"
)

type LeaderboardHandler struct {
	leaderboard services.LeaderboardService
}

func NewLeaderboardHandler(leaderboard services.LeaderboardService) *LeaderboardHandler {
	return &LeaderboardHandler{leaderboard: leaderboard}
}

func (lh *LeaderboardHandler) Get(c *gin.Context) {
	ownerEmail := c.Query("userEmail")
	if ownerEmail == "" {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", fmt.Errorf("missing userEmail"))
		return
	}
	response.RespondOK(c, lh.leaderboard.Leaderboard(c.Request.Context(), ownerEmail))
}
