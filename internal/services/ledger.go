package services

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/upright-backend/internal/data/repos"
	"github.com/yungbote/upright-backend/internal/domain"
	"github.com/yungbote/upright-backend/internal/identity"
	"github.com/yungbote/upright-backend/internal/observability"
	"github.com/yungbote/upright-backend/internal/platform/logger"
)

type EventKind string

const (
	EventSessionStart EventKind = "SESSION_START"
	EventSessionStop  EventKind = "SESSION_STOP"
	EventBadPosture   EventKind = "BAD_POSTURE"
	EventTooClose     EventKind = "TOO_CLOSE"
	EventActivitySet  EventKind = "ACTIVITY_SET"
)

// ParseEventKind validates the loose JSON "type" field at the edge so the
// ledger only ever sees one of the five kinds.
func ParseEventKind(raw string) (EventKind, bool) {
	switch EventKind(strings.ToUpper(strings.TrimSpace(raw))) {
	case EventSessionStart:
		return EventSessionStart, true
	case EventSessionStop:
		return EventSessionStop, true
	case EventBadPosture:
		return EventBadPosture, true
	case EventTooClose:
		return EventTooClose, true
	case EventActivitySet:
		return EventActivitySet, true
	default:
		return "", false
	}
}

type EventInput struct {
	Kind      EventKind
	Timestamp time.Time
	Activity  *string
	Meta      json.RawMessage
}

// SessionSnapshot is the ledger's view of the session a single event landed on.
type SessionSnapshot struct {
	SessionID       uuid.UUID  `json:"sessionId"`
	UserKey         int64      `json:"userKey"`
	StartedAt       int64      `json:"startedAt"`
	EndedAt         *int64     `json:"endedAt,omitempty"`
	Activity        *string    `json:"activity,omitempty"`
	BadPostureCount int        `json:"badPostureCount"`
	TooCloseCount   int        `json:"tooCloseCount"`
	Minutes         int        `json:"minutes"`
	Score           int        `json:"score"`
	Open            bool       `json:"open"`
}

// LedgerService owns the per-user session lifecycle. ApplyEvent is safe
// under at-least-once delivery for lifecycle events; duplicate
// BAD_POSTURE/TOO_CLOSE detections are counted again, the monitor debounces
// those client-side.
type LedgerService interface {
	// ApplyEvent applies one monitoring event and returns the affected
	// session, or nil when there was nothing to apply or storage is down.
	// It never returns an error: event ingestion must not crash on a
	// transient storage failure.
	ApplyEvent(ctx context.Context, key identity.UserKey, input EventInput) *SessionSnapshot
}

type ledgerService struct {
	db       *gorm.DB
	log      *logger.Logger
	sessions repos.SessionRepo
	users    repos.UserRepo
}

func NewLedgerService(db *gorm.DB, baseLog *logger.Logger, sessions repos.SessionRepo, users repos.UserRepo) LedgerService {
	return &ledgerService{
		db:       db,
		log:      baseLog.With("service", "LedgerService"),
		sessions: sessions,
		users:    users,
	}
}

func (s *ledgerService) ApplyEvent(ctx context.Context, key identity.UserKey, input EventInput) *SessionSnapshot {
	var snapshot *SessionSnapshot
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		snap, err := s.apply(ctx, tx, key, input)
		if err != nil {
			return err
		}
		snapshot = snap
		return nil
	})
	if err != nil {
		s.log.Warn("Event application failed, degrading to no-op",
			"user_key", key.Key,
			"kind", string(input.Kind),
			"error", err,
		)
		return nil
	}
	return snapshot
}

// apply runs inside a transaction; GetOpenForUpdate/GetLatestForUpdate hold a
// row lock so concurrent events for the same user serialize here instead of
// clobbering each other's counter reads.
func (s *ledgerService) apply(ctx context.Context, tx *gorm.DB, key identity.UserKey, input EventInput) (*SessionSnapshot, error) {
	// The FOR UPDATE lock below only serializes once an open row exists.
	// Two concurrent bootstrap events would both see no open session and
	// insert one each, so the whole application is serialized per user key.
	if err := s.sessions.LockUserKey(ctx, tx, key.Key); err != nil {
		return nil, err
	}

	open, err := s.sessions.GetOpenForUpdate(ctx, tx, key.Key)
	if err != nil {
		return nil, err
	}

	var affected *domain.PostureSession
	scoreRelevant := false

	switch input.Kind {
	case EventSessionStart:
		if open != nil {
			// A crashed monitor can leak an open row; close it at the new
			// event's timestamp before starting over.
			if err := s.closeSession(ctx, tx, open, input.Timestamp); err != nil {
				return nil, err
			}
			scoreRelevant = true
		}
		affected, err = s.openSession(ctx, tx, key, input)
		if err != nil {
			return nil, err
		}

	case EventBadPosture, EventTooClose, EventActivitySet:
		if open == nil {
			// The monitor started emitting before its SESSION_START arrived
			// (or that event was lost); bootstrap a session at this event's
			// timestamp rather than dropping the detection.
			open, err = s.openSession(ctx, tx, key, input)
			if err != nil {
				return nil, err
			}
		}
		affected, err = s.applyToOpen(ctx, tx, open, input)
		if err != nil {
			return nil, err
		}
		scoreRelevant = input.Kind != EventActivitySet

	case EventSessionStop:
		if open != nil {
			if err := s.closeSession(ctx, tx, open, input.Timestamp); err != nil {
				return nil, err
			}
			if input.Activity != nil {
				if err := s.sessions.UpdateFields(ctx, tx, open.ID, map[string]any{"activity": *input.Activity}); err != nil {
					return nil, err
				}
			}
			affected, err = s.sessions.GetByID(ctx, tx, open.ID)
			if err != nil {
				return nil, err
			}
			scoreRelevant = true
		} else {
			latest, err := s.sessions.GetLatestForUpdate(ctx, tx, key.Key)
			if err != nil {
				return nil, err
			}
			if latest == nil {
				return nil, nil
			}
			if latest.EndedAt == nil {
				if err := s.closeSession(ctx, tx, latest, input.Timestamp); err != nil {
					return nil, err
				}
				scoreRelevant = true
			}
			// Timestamps on an already-closed session stay final, but the
			// activity label is still last-write-wins.
			if input.Activity != nil {
				if err := s.sessions.UpdateFields(ctx, tx, latest.ID, map[string]any{"activity": *input.Activity}); err != nil {
					return nil, err
				}
			}
			affected, err = s.sessions.GetByID(ctx, tx, latest.ID)
			if err != nil {
				return nil, err
			}
		}

	default:
		return nil, nil
	}

	score, err := s.recomputeScore(ctx, tx, key, scoreRelevant)
	if err != nil {
		return nil, err
	}

	return toSnapshot(affected, score), nil
}

func (s *ledgerService) openSession(ctx context.Context, tx *gorm.DB, key identity.UserKey, input EventInput) (*domain.PostureSession, error) {
	session := &domain.PostureSession{
		ID:        uuid.New(),
		UserKey:   key.Key,
		UserID:    key.UserID,
		StartedAt: input.Timestamp,
	}
	if input.Activity != nil {
		session.Activity = input.Activity
	}
	if len(input.Meta) > 0 {
		session.LastEventMeta = datatypes.JSON(input.Meta)
	}
	created, err := s.sessions.Create(ctx, tx, []*domain.PostureSession{session})
	if err != nil {
		return nil, err
	}
	return created[0], nil
}

func (s *ledgerService) applyToOpen(ctx context.Context, tx *gorm.DB, open *domain.PostureSession, input EventInput) (*domain.PostureSession, error) {
	fields := map[string]any{}
	switch input.Kind {
	case EventBadPosture:
		fields["bad_posture_count"] = gorm.Expr("bad_posture_count + 1")
	case EventTooClose:
		fields["too_close_count"] = gorm.Expr("too_close_count + 1")
	case EventActivitySet:
		if input.Activity != nil {
			fields["activity"] = *input.Activity
		}
	}
	if input.Kind != EventActivitySet && input.Activity != nil {
		fields["activity"] = *input.Activity
	}
	if len(input.Meta) > 0 {
		fields["last_event_meta"] = datatypes.JSON(input.Meta)
	}
	if len(fields) == 0 {
		return open, nil
	}
	if err := s.sessions.UpdateFields(ctx, tx, open.ID, fields); err != nil {
		return nil, err
	}
	return s.sessions.GetByID(ctx, tx, open.ID)
}

// closeSession finalizes a row: end = max(existing end, event timestamp),
// minutes = floor(tracked duration), never negative.
func (s *ledgerService) closeSession(ctx context.Context, tx *gorm.DB, session *domain.PostureSession, at time.Time) error {
	end := at
	if session.EndedAt != nil && session.EndedAt.After(end) {
		end = *session.EndedAt
	}
	minutes := 0
	if d := end.Sub(session.StartedAt); d > 0 {
		minutes = int(d.Minutes())
	}
	return s.sessions.UpdateFields(ctx, tx, session.ID, map[string]any{
		"ended_at": end,
		"minutes":  minutes,
	})
}

// recomputeScore rebuilds the score from full history after any mutation
// that touched counters or closed a session, so the persisted value never
// drifts from what the session rows imply.
func (s *ledgerService) recomputeScore(ctx context.Context, tx *gorm.DB, key identity.UserKey, relevant bool) (int, error) {
	totals, err := s.sessions.Totals(ctx, tx, key.Key)
	if err != nil {
		return 0, err
	}
	score := ComputeScore(float64(totals.Minutes), int(totals.BadPostureCount), int(totals.TooCloseCount))
	if relevant && key.Registered() {
		if err := s.users.UpdateScore(ctx, tx, *key.UserID, score); err != nil {
			return 0, err
		}
		observability.Current().IncScoreUpdate()
	}
	return score, nil
}

func toSnapshot(session *domain.PostureSession, score int) *SessionSnapshot {
	if session == nil {
		return nil
	}
	snap := &SessionSnapshot{
		SessionID:       session.ID,
		UserKey:         session.UserKey,
		StartedAt:       session.StartedAt.Unix(),
		Activity:        session.Activity,
		BadPostureCount: session.BadPostureCount,
		TooCloseCount:   session.TooCloseCount,
		Minutes:         session.Minutes,
		Score:           score,
		Open:            session.EndedAt == nil,
	}
	if session.EndedAt != nil {
		ended := session.EndedAt.Unix()
		snap.EndedAt = &ended
	}
	return snap
}
