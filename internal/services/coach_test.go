package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/yungbote/upright-backend/internal/data/repos"
	"github.com/yungbote/upright-backend/internal/data/repos/testutil"
	"github.com/yungbote/upright-backend/internal/domain"
	"github.com/yungbote/upright-backend/internal/identity"
)

func TestFallbackRecommendationTooCloseDominant(t *testing.T) {
	got := FallbackRecommendation("Alex", 2, 5)
	if !strings.Contains(got, "Alex") {
		t.Fatalf("fallback missing display name: %q", got)
	}
	if !strings.Contains(got, "20-20-20") {
		t.Fatalf("too-close dominant fallback should mention the 20-20-20 rule: %q", got)
	}
}

func TestFallbackRecommendationDefault(t *testing.T) {
	got := FallbackRecommendation("Alex", 5, 2)
	if !strings.Contains(got, "squats") {
		t.Fatalf("default fallback should suggest squats: %q", got)
	}

	// Ties fall through to the default branch.
	if tie := FallbackRecommendation("Alex", 3, 3); !strings.Contains(tie, "squats") {
		t.Fatalf("tie should use default fallback: %q", tie)
	}
}

// cancelingLLM cancels the originating request while generating, then only
// answers if its own context is still alive.
type cancelingLLM struct {
	cancel context.CancelFunc
}

func (c *cancelingLLM) Chat(ctx context.Context, system, user string) (string, error) {
	c.cancel()
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return "Take a ten minute walk after every meeting.", nil
}

func (c *cancelingLLM) Model() string { return "test-model" }

func TestWeeklyRecommendationSurvivesCallerCancel(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	log := testutil.Logger(t)

	key := identity.UserKey{Key: 900108}
	end := time.Now().UTC()
	testutil.SeedSession(t, context.Background(), tx, key.Key, end.Add(-30*time.Minute), &end)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	coach := NewCoachService(tx, log,
		repos.NewSessionRepo(tx, log),
		repos.NewRecommendationRepo(tx, log),
		&cancelingLLM{cancel: cancel},
	)

	result := coach.WeeklyRecommendation(ctx, key)
	if !result.HasData || !result.Updated {
		t.Fatalf("result = %+v, want regenerated recommendation", result)
	}
	if result.Recommendation != "Take a ten minute walk after every meeting." {
		t.Fatalf("recommendation = %q, want the model answer, not the fallback", result.Recommendation)
	}
}

func TestStale(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	if !stale(nil, &now) {
		t.Fatal("missing cache must be stale")
	}

	cached := &domain.WeeklyRecommendation{GeneratedAt: now}
	if !stale(cached, &now) {
		t.Fatal("cache without a source timestamp must be stale")
	}

	source := now.Add(-8 * 24 * time.Hour)
	cached.SourceLatestDataAt = &source
	if !stale(cached, nil) {
		t.Fatal("unknown latest-data timestamp must be stale")
	}
	if !stale(cached, &now) {
		t.Fatal("8-day-old source must be stale")
	}

	fresh := now.Add(-6 * 24 * time.Hour)
	cached.SourceLatestDataAt = &fresh
	if stale(cached, &now) {
		t.Fatal("6-day-old source must be fresh")
	}

	boundary := now.Add(-recommendationStaleAfter)
	cached.SourceLatestDataAt = &boundary
	if !stale(cached, &now) {
		t.Fatal("exactly 7-day-old source must be stale")
	}
}
