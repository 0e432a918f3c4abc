package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/upright-backend/internal/http/response"
	"github.com/yungbote/upright-backend/internal/services"
)

type FriendHandler struct {
	friends services.FriendService
}

func NewFriendHandler(friends services.FriendService) *FriendHandler {
	return &FriendHandler{friends: friends}
}

func (fh *FriendHandler) List(c *gin.Context) {
	ownerEmail := c.Query("userEmail")
	if ownerEmail == "" {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", fmt.Errorf("missing userEmail"))
		return
	}
	response.RespondOK(c, gin.H{"friends": fh.friends.List(c.Request.Context(), ownerEmail)})
}

func (fh *FriendHandler) Add(c *gin.Context) {
	var req struct {
		UserEmail string `json:"userEmail"`
		Friend    string `json:"friend"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	friend, existed, err := fh.friends.Add(c.Request.Context(), req.UserEmail, req.Friend)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrFriendNotFound):
			response.RespondError(c, http.StatusNotFound, "friend_not_found", err)
		case errors.Is(err, services.ErrSelfFriend), errors.Is(err, services.ErrBadFriendInput):
			response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		default:
			response.RespondError(c, http.StatusInternalServerError, "friend_add_failed", err)
		}
		return
	}
	response.RespondOK(c, gin.H{"ok": true, "friend": friend, "existed": existed})
}
