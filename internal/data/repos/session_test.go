package repos

import (
	"context"
	"testing"
	"time"

	"github.com/yungbote/upright-backend/internal/data/repos/testutil"
	"github.com/yungbote/upright-backend/internal/domain"
)

func TestSessionRepoOpenLifecycle(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	repo := NewSessionRepo(db, testutil.Logger(t))
	ctx := context.Background()

	const userKey = 770001
	start := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	open, err := repo.GetOpenForUpdate(ctx, tx, userKey)
	if err != nil {
		t.Fatalf("GetOpenForUpdate: %v", err)
	}
	if open != nil {
		t.Fatalf("expected no open session, got %+v", open)
	}

	created := testutil.SeedSession(t, ctx, tx, userKey, start, nil)

	open, err = repo.GetOpenForUpdate(ctx, tx, userKey)
	if err != nil {
		t.Fatalf("GetOpenForUpdate: %v", err)
	}
	if open == nil || open.ID != created.ID {
		t.Fatalf("open session = %+v, want %s", open, created.ID)
	}

	end := start.Add(45 * time.Minute)
	if err := repo.UpdateFields(ctx, tx, created.ID, map[string]any{
		"ended_at": end,
		"minutes":  45,
	}); err != nil {
		t.Fatalf("UpdateFields: %v", err)
	}

	open, err = repo.GetOpenForUpdate(ctx, tx, userKey)
	if err != nil {
		t.Fatalf("GetOpenForUpdate: %v", err)
	}
	if open != nil {
		t.Fatalf("session still reported open after close: %+v", open)
	}

	latest, err := repo.GetLatestForUpdate(ctx, tx, userKey)
	if err != nil {
		t.Fatalf("GetLatestForUpdate: %v", err)
	}
	if latest == nil || latest.ID != created.ID {
		t.Fatalf("latest = %+v, want %s", latest, created.ID)
	}
}

func TestSessionRepoTotalsAndWindow(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	repo := NewSessionRepo(db, testutil.Logger(t))
	ctx := context.Background()

	const userKey = 770002
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	oldEnd := now.Add(-40 * time.Hour)
	old := testutil.SeedSession(t, ctx, tx, userKey, now.Add(-48*time.Hour), &oldEnd)
	recentEnd := now.Add(-1 * time.Hour)
	recent := testutil.SeedSession(t, ctx, tx, userKey, now.Add(-2*time.Hour), &recentEnd)

	if err := tx.Model(&domain.PostureSession{}).Where("id = ?", old.ID).
		Updates(map[string]any{"bad_posture_count": 3, "too_close_count": 1}).Error; err != nil {
		t.Fatalf("update old session: %v", err)
	}
	if err := tx.Model(&domain.PostureSession{}).Where("id = ?", recent.ID).
		Updates(map[string]any{"bad_posture_count": 2}).Error; err != nil {
		t.Fatalf("update recent session: %v", err)
	}

	totals, err := repo.Totals(ctx, tx, userKey)
	if err != nil {
		t.Fatalf("Totals: %v", err)
	}
	if totals.BadPostureCount != 5 || totals.TooCloseCount != 1 {
		t.Fatalf("totals = %+v, want bad=5 tooClose=1", totals)
	}
	if totals.Minutes != int64(old.Minutes+recent.Minutes) {
		t.Fatalf("total minutes = %d, want %d", totals.Minutes, old.Minutes+recent.Minutes)
	}

	windowed, err := repo.ListInWindow(ctx, tx, userKey, now.Add(-24*time.Hour), now)
	if err != nil {
		t.Fatalf("ListInWindow: %v", err)
	}
	if len(windowed) != 1 || windowed[0].ID != recent.ID {
		t.Fatalf("window = %v, want only the recent session", windowed)
	}

	latestDataAt, err := repo.LatestDataAt(ctx, tx, userKey)
	if err != nil {
		t.Fatalf("LatestDataAt: %v", err)
	}
	if latestDataAt == nil || !latestDataAt.Equal(recentEnd) {
		t.Fatalf("latest data at = %v, want %v", latestDataAt, recentEnd)
	}

	count, err := repo.CountByUserKey(ctx, tx, userKey)
	if err != nil {
		t.Fatalf("CountByUserKey: %v", err)
	}
	if count != 2 {
		t.Fatalf("count = %d, want 2", count)
	}
}

func TestSessionRepoEmptyInputs(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	repo := NewSessionRepo(db, testutil.Logger(t))
	ctx := context.Background()

	created, err := repo.Create(ctx, tx, nil)
	if err != nil {
		t.Fatalf("Create(nil): %v", err)
	}
	if len(created) != 0 {
		t.Fatalf("Create(nil) returned %d sessions", len(created))
	}

	totals, err := repo.Totals(ctx, tx, 770003)
	if err != nil {
		t.Fatalf("Totals: %v", err)
	}
	if totals.Minutes != 0 || totals.BadPostureCount != 0 || totals.TooCloseCount != 0 {
		t.Fatalf("totals for unknown key = %+v, want zeros", totals)
	}

	latest, err := repo.LatestDataAt(ctx, tx, 770003)
	if err != nil {
		t.Fatalf("LatestDataAt: %v", err)
	}
	if latest != nil {
		t.Fatalf("latest data at for unknown key = %v, want nil", latest)
	}
}
