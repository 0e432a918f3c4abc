package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/upright-backend/internal/http/response"
	"github.com/yungbote/upright-backend/internal/services"
)

type MonitorHandler struct {
	monitor services.MonitorService
}

func NewMonitorHandler(monitor services.MonitorService) *MonitorHandler {
	return &MonitorHandler{monitor: monitor}
}

func (mh *MonitorHandler) Status(c *gin.Context) {
	response.RespondOK(c, mh.monitor.Status(c.Request.Context()))
}

func (mh *MonitorHandler) Control(c *gin.Context) {
	var req struct {
		Action   string `json:"action"`
		Activity string `json:"activity"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	switch strings.ToLower(strings.TrimSpace(req.Action)) {
	case "start":
		status, err := mh.monitor.Start(c.Request.Context(), req.Activity)
		if err != nil {
			response.RespondError(c, http.StatusInternalServerError, "monitor_start_failed", err)
			return
		}
		response.RespondOK(c, status)
	case "stop":
		response.RespondOK(c, mh.monitor.Stop(c.Request.Context()))
	default:
		response.RespondError(c, http.StatusBadRequest, "invalid_action", fmt.Errorf("unknown action %q", req.Action))
	}
}
