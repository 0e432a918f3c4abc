package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"golang.org/x/sync/singleflight"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/upright-backend/internal/data/repos"
	"github.com/yungbote/upright-backend/internal/domain"
	"github.com/yungbote/upright-backend/internal/identity"
	"github.com/yungbote/upright-backend/internal/platform/logger"
	"github.com/yungbote/upright-backend/internal/platform/ollama"
)

const recommendationStaleAfter = 7 * 24 * time.Hour

const coachChatSystemPrompt = `You are a neutral, general-purpose AI assistant.
Answer the user's question directly, clearly, and without topic bias.
If you are uncertain, say so instead of inventing details.`

const weeklySystemPrompt = "You are a data-aware posture and wellness assistant. " +
	"Return exactly one practical weekly recommendation focused on either one exercise, one activity, or one diet action."

const noDataRecommendation = "No monitoring data yet. Start your first session to receive a weekly recommendation."

type RecommendationResult struct {
	UserKey        int64  `json:"userKey"`
	HasData        bool   `json:"hasData"`
	Updated        bool   `json:"updated"`
	Recommendation string `json:"recommendation"`
	GeneratedAt    *int64 `json:"generatedAt,omitempty"`
}

// CoachService memoizes the expensive weekly recommendation per user and
// answers free-form coach questions. The LLM is strictly best-effort: every
// failure path lands on a deterministic template.
type CoachService interface {
	WeeklyRecommendation(ctx context.Context, key identity.UserKey) RecommendationResult
	Ask(ctx context.Context, question string) string
}

type coachService struct {
	db              *gorm.DB
	log             *logger.Logger
	sessions        repos.SessionRepo
	recommendations repos.RecommendationRepo
	llm             ollama.Client
	regenGroup      singleflight.Group
	now             func() time.Time
}

func NewCoachService(db *gorm.DB, baseLog *logger.Logger, sessions repos.SessionRepo, recommendations repos.RecommendationRepo, llm ollama.Client) CoachService {
	return &coachService{
		db:              db,
		log:             baseLog.With("service", "CoachService"),
		sessions:        sessions,
		recommendations: recommendations,
		llm:             llm,
		now:             time.Now,
	}
}

func (s *coachService) WeeklyRecommendation(ctx context.Context, key identity.UserKey) RecommendationResult {
	result := RecommendationResult{UserKey: key.Key, Recommendation: noDataRecommendation}

	count, err := s.sessions.CountByUserKey(ctx, nil, key.Key)
	if err != nil {
		s.log.Warn("Session count failed, returning no-data recommendation", "user_key", key.Key, "error", err)
		return result
	}
	if count == 0 {
		if cached, err := s.recommendations.GetByUserKey(ctx, nil, key.Key); err == nil && cached != nil {
			generated := cached.GeneratedAt.Unix()
			result.GeneratedAt = &generated
		}
		return result
	}
	result.HasData = true

	cached, err := s.recommendations.GetByUserKey(ctx, nil, key.Key)
	if err != nil {
		s.log.Warn("Recommendation cache read failed", "user_key", key.Key, "error", err)
		cached = nil
	}
	latestDataAt, err := s.sessions.LatestDataAt(ctx, nil, key.Key)
	if err != nil {
		s.log.Warn("Latest data timestamp query failed", "user_key", key.Key, "error", err)
		latestDataAt = nil
	}

	if !stale(cached, latestDataAt) {
		generated := cached.GeneratedAt.Unix()
		result.Recommendation = cached.Recommendation
		result.GeneratedAt = &generated
		return result
	}

	// Concurrent requests for the same user collapse into one regeneration;
	// if two processes race anyway, last write wins and the content is
	// advisory, so that is acceptable. The shared regeneration must not die
	// with whichever caller happened to start it, so it runs detached from
	// the request's cancellation; the LLM client's own timeout still bounds
	// it.
	regenCtx := context.WithoutCancel(ctx)
	regenerated, err, _ := s.regenGroup.Do(strconv.FormatInt(key.Key, 10), func() (any, error) {
		return s.regenerate(regenCtx, key, latestDataAt), nil
	})
	if err != nil {
		return result
	}
	saved, ok := regenerated.(*domain.WeeklyRecommendation)
	if !ok || saved == nil {
		return result
	}
	generated := saved.GeneratedAt.Unix()
	result.Updated = true
	result.Recommendation = saved.Recommendation
	result.GeneratedAt = &generated
	return result
}

func stale(cached *domain.WeeklyRecommendation, latestDataAt *time.Time) bool {
	if cached == nil || cached.SourceLatestDataAt == nil || latestDataAt == nil {
		return true
	}
	return latestDataAt.Sub(*cached.SourceLatestDataAt) >= recommendationStaleAfter
}

func (s *coachService) regenerate(ctx context.Context, key identity.UserKey, latestDataAt *time.Time) *domain.WeeklyRecommendation {
	recent, err := s.sessions.ListByUserKey(ctx, nil, key.Key, 12)
	if err != nil {
		s.log.Warn("Recent session query failed, skipping regeneration", "user_key", key.Key, "error", err)
		return nil
	}
	totals, err := s.sessions.Totals(ctx, nil, key.Key)
	if err != nil {
		s.log.Warn("Totals query failed, skipping regeneration", "user_key", key.Key, "error", err)
		return nil
	}

	displayName := key.Display
	if displayName == "" {
		displayName = key.Email
	}
	if displayName == "" {
		displayName = strconv.FormatInt(key.Key, 10)
	}

	text, model := s.generate(ctx, displayName, recent, totals)

	snapshot, _ := json.Marshal(summarizeSessions(recent))
	rec := &domain.WeeklyRecommendation{
		UserKey:            key.Key,
		Recommendation:     text,
		Model:              model,
		SourceLatestDataAt: latestDataAt,
		SessionSnapshot:    datatypes.JSON(snapshot),
		GeneratedAt:        s.now().UTC(),
	}
	saved, err := s.recommendations.Upsert(ctx, nil, rec)
	if err != nil {
		s.log.Warn("Recommendation upsert failed", "user_key", key.Key, "error", err)
		// Still serve the freshly generated text this once.
		return rec
	}
	return saved
}

func (s *coachService) generate(ctx context.Context, displayName string, recent []*domain.PostureSession, totals repos.SessionTotals) (string, string) {
	if s.llm != nil {
		prompt := weeklyPrompt(displayName, recent)
		text, err := s.llm.Chat(ctx, weeklySystemPrompt, prompt)
		if err == nil {
			return text, s.llm.Model()
		}
		s.log.Warn("Weekly recommendation model call failed, using fallback", "error", err)
	}
	return FallbackRecommendation(displayName, int(totals.BadPostureCount), int(totals.TooCloseCount)), "fallback"
}

type sessionSummary struct {
	StartedAt       int64   `json:"started_at"`
	EndedAt         *int64  `json:"ended_at,omitempty"`
	Activity        *string `json:"activity,omitempty"`
	BadPostureCount int     `json:"bad_posture_count"`
	TooCloseCount   int     `json:"too_close_count"`
	Minutes         int     `json:"minutes"`
}

func summarizeSessions(sessions []*domain.PostureSession) []sessionSummary {
	out := make([]sessionSummary, 0, len(sessions))
	for _, session := range sessions {
		item := sessionSummary{
			StartedAt:       session.StartedAt.Unix(),
			Activity:        session.Activity,
			BadPostureCount: session.BadPostureCount,
			TooCloseCount:   session.TooCloseCount,
			Minutes:         session.Minutes,
		}
		if session.EndedAt != nil {
			ended := session.EndedAt.Unix()
			item.EndedAt = &ended
		}
		out = append(out, item)
	}
	return out
}

func weeklyPrompt(displayName string, recent []*domain.PostureSession) string {
	rows, _ := json.Marshal(summarizeSessions(recent))
	return fmt.Sprintf(
		"Recent monitoring sessions: %s\n"+
			"This is %s looking to improve their posture and fitness in small steps; bad_posture_count is the count of bad posture detections per session and too_close_count is how often they sat too close to the monitor.\n"+
			"Please suggest one exercise, activity, or diet change so they can improve their health.\n"+
			"Return only one concise weekly recommendation in plain text.",
		string(rows), displayName,
	)
}

// FallbackRecommendation is the deterministic advice used whenever the
// model is unreachable: eye/distance guidance when proximity incidents
// dominate, otherwise a basic strength-and-posture routine.
func FallbackRecommendation(displayName string, totalBadPosture, totalTooClose int) string {
	if totalTooClose > totalBadPosture {
		return fmt.Sprintf("Weekly Recommendation for %s: Daily 20-minute brisk walk after lunch. Keep your monitor at arm's length and follow the 20-20-20 eye rule to reduce too-close events.", displayName)
	}
	return fmt.Sprintf("Weekly Recommendation for %s: Do 2 sets of 10 bodyweight squats every day (morning and evening). Pair this with a posture reset every 25 minutes: shoulders back, chin neutral, feet grounded.", displayName)
}

func (s *coachService) Ask(ctx context.Context, question string) string {
	if s.llm != nil {
		answer, err := s.llm.Chat(ctx, coachChatSystemPrompt, question)
		if err == nil {
			return answer
		}
		s.log.Warn("Coach chat model call failed, using fallback", "error", err)
	}
	return "I can answer general questions, but the local model is currently unavailable.\n\n" +
		"Your question: " + question + "\n\n" +
		"Try again in a few seconds. If this keeps happening, verify the local model is running and reachable."
}
