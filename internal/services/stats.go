package services

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/upright-backend/internal/data/repos"
	"github.com/yungbote/upright-backend/internal/domain"
	"github.com/yungbote/upright-backend/internal/identity"
	"github.com/yungbote/upright-backend/internal/platform/logger"
)

const (
	daySeconds  = 24 * 60 * 60
	weekSeconds = 7 * daySeconds
)

type StatsRange string

const (
	RangeDay  StatsRange = "day"
	RangeWeek StatsRange = "week"
)

// ParseStatsRange defaults anything that isn't "week" to "day", like the
// dashboard always has.
func ParseStatsRange(raw string) StatsRange {
	if strings.ToLower(strings.TrimSpace(raw)) == string(RangeWeek) {
		return RangeWeek
	}
	return RangeDay
}

type TimeRange struct {
	From int64 `json:"from"`
	To   int64 `json:"to"`
}

// StatsBucket is one point of the dashboard chart series: an hour of the
// day for the day range, a calendar date for the week range.
type StatsBucket struct {
	Label           string `json:"label"`
	BadPostureCount int    `json:"badPostureCount"`
	TooCloseCount   int    `json:"tooCloseCount"`
}

type Summary struct {
	UserKey           int64              `json:"userKey"`
	Range             StatsRange         `json:"range"`
	TimeRange         TimeRange          `json:"timeRange"`
	UserScore         int                `json:"userScore"`
	BadPostureCount   int                `json:"badPostureCount"`
	TooCloseCount     int                `json:"tooCloseCount"`
	ScoreAverage      float64            `json:"scoreAverage"`
	TotalMinutes      int                `json:"totalMinutes"`
	ActivityBreakdown map[string]float64 `json:"activityBreakdown"`
	Buckets           []StatsBucket      `json:"buckets"`
}

// StatsService answers read-only windowed queries over the session ledger.
// Storage failures degrade to an all-zero summary.
type StatsService interface {
	Summarize(ctx context.Context, key identity.UserKey, window StatsRange) Summary
}

type statsService struct {
	db       *gorm.DB
	log      *logger.Logger
	sessions repos.SessionRepo
	users    repos.UserRepo
	now      func() time.Time
}

func NewStatsService(db *gorm.DB, baseLog *logger.Logger, sessions repos.SessionRepo, users repos.UserRepo) StatsService {
	return &statsService{
		db:       db,
		log:      baseLog.With("service", "StatsService"),
		sessions: sessions,
		users:    users,
		now:      time.Now,
	}
}

func (s *statsService) Summarize(ctx context.Context, key identity.UserKey, window StatsRange) Summary {
	now := s.now().UTC()
	windowSeconds := int64(daySeconds)
	if window == RangeWeek {
		windowSeconds = weekSeconds
	}
	from := now.Add(-time.Duration(windowSeconds) * time.Second)

	summary := Summary{
		UserKey:           key.Key,
		Range:             window,
		TimeRange:         TimeRange{From: from.Unix(), To: now.Unix()},
		ActivityBreakdown: map[string]float64{},
		Buckets:           emptyBuckets(window, now),
	}

	sessions, err := s.sessions.ListInWindow(ctx, nil, key.Key, from, now)
	if err != nil {
		s.log.Warn("Window query failed, returning empty summary", "user_key", key.Key, "error", err)
		return summary
	}

	fillSummary(&summary, sessions, window, now)

	if key.Registered() {
		users, err := s.users.GetByIDs(ctx, nil, []uuid.UUID{*key.UserID})
		if err == nil && len(users) == 1 {
			summary.UserScore = users[0].CurrentScore
		} else if err != nil {
			s.log.Warn("Score lookup failed", "user_key", key.Key, "error", err)
		}
	} else {
		totals, err := s.sessions.Totals(ctx, nil, key.Key)
		if err == nil {
			summary.UserScore = ComputeScore(float64(totals.Minutes), int(totals.BadPostureCount), int(totals.TooCloseCount))
		}
	}

	return summary
}

// fillSummary folds the windowed sessions into totals, the per-activity
// hour breakdown, and the chart buckets. Split out so the bucketing logic
// is testable without a database.
func fillSummary(summary *Summary, sessions []*domain.PostureSession, window StatsRange, now time.Time) {
	var scoreSum float64
	for _, session := range sessions {
		minutes := session.DurationMinutes(now)
		summary.BadPostureCount += session.BadPostureCount
		summary.TooCloseCount += session.TooCloseCount
		summary.TotalMinutes += minutes
		scoreSum += float64(ComputeScore(float64(minutes), session.BadPostureCount, session.TooCloseCount))

		if session.Activity != nil && strings.TrimSpace(*session.Activity) != "" {
			label := strings.TrimSpace(*session.Activity)
			summary.ActivityBreakdown[label] += float64(minutes) / 60.0
		}

		addToBucket(summary.Buckets, window, session.StartedAt, session.BadPostureCount, session.TooCloseCount)
	}
	for label, hours := range summary.ActivityBreakdown {
		summary.ActivityBreakdown[label] = math.Round(hours*100) / 100
	}
	if len(sessions) > 0 {
		summary.ScoreAverage = math.Round(scoreSum/float64(len(sessions))*10) / 10
	}
}

func emptyBuckets(window StatsRange, now time.Time) []StatsBucket {
	if window == RangeDay {
		buckets := make([]StatsBucket, 24)
		for hour := range buckets {
			buckets[hour].Label = fmt.Sprintf("%02d:00", hour)
		}
		return buckets
	}
	buckets := make([]StatsBucket, 7)
	for i := range buckets {
		day := now.AddDate(0, 0, i-6)
		buckets[i].Label = day.Format("2006-01-02")
	}
	return buckets
}

func addToBucket(buckets []StatsBucket, window StatsRange, at time.Time, badPosture, tooClose int) {
	at = at.UTC()
	var label string
	if window == RangeDay {
		label = fmt.Sprintf("%02d:00", at.Hour())
	} else {
		label = at.Format("2006-01-02")
	}
	for i := range buckets {
		if buckets[i].Label == label {
			buckets[i].BadPostureCount += badPosture
			buckets[i].TooCloseCount += tooClose
			return
		}
	}
}
