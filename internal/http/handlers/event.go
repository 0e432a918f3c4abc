package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/upright-backend/internal/http/response"
	"github.com/yungbote/upright-backend/internal/identity"
	"github.com/yungbote/upright-backend/internal/observability"
	"github.com/yungbote/upright-backend/internal/services"
)

type EventHandler struct {
	resolver identity.Resolver
	ledger   services.LedgerService
	metrics  *observability.Metrics
}

func NewEventHandler(resolver identity.Resolver, ledger services.LedgerService, metrics *observability.Metrics) *EventHandler {
	return &EventHandler{resolver: resolver, ledger: ledger, metrics: metrics}
}

// Ingest accepts one monitoring event from the python client or the browser.
func (eh *EventHandler) Ingest(c *gin.Context) {
	var req struct {
		UserID   string          `json:"userId"`
		Type     string          `json:"type"`
		Ts       *float64        `json:"ts"`
		Activity *string         `json:"activity"`
		Meta     json.RawMessage `json:"meta"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}

	kind, ok := services.ParseEventKind(req.Type)
	if !ok {
		eh.metrics.IncPostureEvent(req.Type, "rejected")
		response.RespondError(c, http.StatusBadRequest, "invalid_event_type", fmt.Errorf("unknown event type %q", req.Type))
		return
	}

	userID := req.UserID
	if userID == "" {
		userID = "demo"
	}
	key := eh.resolver.Resolve(c.Request.Context(), userID)

	snapshot := eh.ledger.ApplyEvent(c.Request.Context(), key, services.EventInput{
		Kind:      kind,
		Timestamp: eventTimestamp(req.Ts),
		Activity:  req.Activity,
		Meta:      req.Meta,
	})
	if snapshot == nil {
		eh.metrics.IncPostureEvent(string(kind), "noop")
	} else {
		eh.metrics.IncPostureEvent(string(kind), "applied")
	}
	response.RespondOK(c, gin.H{"ok": true, "event": snapshot})
}

// eventTimestamp tolerates clients sending seconds or milliseconds.
func eventTimestamp(ts *float64) time.Time {
	if ts == nil || *ts <= 0 {
		return time.Now().UTC()
	}
	v := *ts
	if v > 1e12 {
		v = v / 1000
	}
	return time.Unix(int64(v), 0).UTC()
}
