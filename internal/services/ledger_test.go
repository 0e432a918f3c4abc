package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/yungbote/upright-backend/internal/data/repos"
	"github.com/yungbote/upright-backend/internal/data/repos/testutil"
	"github.com/yungbote/upright-backend/internal/domain"
	"github.com/yungbote/upright-backend/internal/identity"
)

func newTestLedger(t *testing.T) (LedgerService, context.Context) {
	t.Helper()
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	log := testutil.Logger(t)
	ledger := NewLedgerService(tx, log, repos.NewSessionRepo(tx, log), repos.NewUserRepo(tx, log))
	return ledger, context.Background()
}

func event(kind EventKind, at time.Time) EventInput {
	return EventInput{Kind: kind, Timestamp: at}
}

func TestLedgerFullSessionLifecycle(t *testing.T) {
	ledger, ctx := newTestLedger(t)
	key := identity.UserKey{Key: 900101}
	base := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	snap := ledger.ApplyEvent(ctx, key, event(EventSessionStart, base))
	if snap == nil || !snap.Open {
		t.Fatalf("start snapshot = %+v, want open session", snap)
	}
	sessionID := snap.SessionID

	ledger.ApplyEvent(ctx, key, event(EventBadPosture, base.Add(1*time.Minute)))
	ledger.ApplyEvent(ctx, key, event(EventBadPosture, base.Add(2*time.Minute)))
	ledger.ApplyEvent(ctx, key, event(EventTooClose, base.Add(3*time.Minute)))

	snap = ledger.ApplyEvent(ctx, key, event(EventSessionStop, base.Add(10*time.Minute)))
	if snap == nil {
		t.Fatal("stop snapshot is nil")
	}
	if snap.SessionID != sessionID {
		t.Fatalf("stop landed on session %s, want %s", snap.SessionID, sessionID)
	}
	if snap.Open {
		t.Fatal("session still open after stop")
	}
	if snap.BadPostureCount != 2 || snap.TooCloseCount != 1 {
		t.Fatalf("counters = %d/%d, want 2/1", snap.BadPostureCount, snap.TooCloseCount)
	}
	if snap.Minutes != 10 {
		t.Fatalf("minutes = %d, want 10", snap.Minutes)
	}
}

func TestLedgerBootstrapsOnCounterEvent(t *testing.T) {
	ledger, ctx := newTestLedger(t)
	key := identity.UserKey{Key: 900102}
	at := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	snap := ledger.ApplyEvent(ctx, key, event(EventBadPosture, at))
	if snap == nil || !snap.Open {
		t.Fatalf("bootstrap snapshot = %+v, want open session", snap)
	}
	if snap.StartedAt != at.Unix() {
		t.Fatalf("bootstrap start = %d, want %d", snap.StartedAt, at.Unix())
	}
	if snap.BadPostureCount != 1 {
		t.Fatalf("bad posture count = %d, want 1", snap.BadPostureCount)
	}
}

func TestLedgerDoubleStartForcesClose(t *testing.T) {
	ledger, ctx := newTestLedger(t)
	key := identity.UserKey{Key: 900103}
	base := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	first := ledger.ApplyEvent(ctx, key, event(EventSessionStart, base))
	second := ledger.ApplyEvent(ctx, key, event(EventSessionStart, base.Add(5*time.Minute)))
	if second == nil || !second.Open {
		t.Fatalf("second start snapshot = %+v, want open session", second)
	}
	if second.SessionID == first.SessionID {
		t.Fatal("second start did not open a new session")
	}

	// The leaked first session is now closed at the second start's timestamp.
	stop := ledger.ApplyEvent(ctx, key, event(EventSessionStop, base.Add(20*time.Minute)))
	if stop.SessionID != second.SessionID {
		t.Fatalf("stop landed on %s, want the second session %s", stop.SessionID, second.SessionID)
	}
}

func TestLedgerStopWithoutHistory(t *testing.T) {
	ledger, ctx := newTestLedger(t)
	key := identity.UserKey{Key: 900104}

	snap := ledger.ApplyEvent(ctx, key, event(EventSessionStop, time.Now().UTC()))
	if snap != nil {
		t.Fatalf("stop with no history = %+v, want nil", snap)
	}
}

func TestLedgerStopIdempotentButLabelWins(t *testing.T) {
	ledger, ctx := newTestLedger(t)
	key := identity.UserKey{Key: 900105}
	base := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	ledger.ApplyEvent(ctx, key, event(EventSessionStart, base))
	closed := ledger.ApplyEvent(ctx, key, event(EventSessionStop, base.Add(10*time.Minute)))

	// A duplicate stop keeps the final timestamps.
	label := "reading"
	dup := ledger.ApplyEvent(ctx, key, EventInput{
		Kind:      EventSessionStop,
		Timestamp: base.Add(30 * time.Minute),
		Activity:  &label,
	})
	if dup.SessionID != closed.SessionID {
		t.Fatalf("duplicate stop landed on %s, want %s", dup.SessionID, closed.SessionID)
	}
	if dup.EndedAt == nil || *dup.EndedAt != *closed.EndedAt {
		t.Fatalf("duplicate stop changed end: %v vs %v", dup.EndedAt, closed.EndedAt)
	}
	if dup.Minutes != closed.Minutes {
		t.Fatalf("duplicate stop changed minutes: %d vs %d", dup.Minutes, closed.Minutes)
	}
	if dup.Activity == nil || *dup.Activity != "reading" {
		t.Fatalf("activity label = %v, want reading", dup.Activity)
	}
}

func TestLedgerConcurrentBootstrapKeepsOneOpenSession(t *testing.T) {
	// Runs on committed transactions: the race under test is two event
	// ingestions in separate database transactions, which a single rollback
	// tx cannot reproduce.
	db := testutil.DB(t)
	log := testutil.Logger(t)
	ledger := NewLedgerService(db, log, repos.NewSessionRepo(db, log), repos.NewUserRepo(db, log))
	key := identity.UserKey{Key: 900107}
	t.Cleanup(func() {
		db.Where("user_key = ?", key.Key).Delete(&domain.PostureSession{})
	})

	at := time.Now().UTC()
	const workers = 8
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ledger.ApplyEvent(context.Background(), key, event(EventBadPosture, at))
		}()
	}
	wg.Wait()

	var open []domain.PostureSession
	if err := db.Where("user_key = ? AND ended_at IS NULL", key.Key).Find(&open).Error; err != nil {
		t.Fatalf("query open sessions: %v", err)
	}
	if len(open) != 1 {
		t.Fatalf("open sessions = %d, want exactly 1", len(open))
	}
	if open[0].BadPostureCount != workers {
		t.Fatalf("bad posture count = %d, want %d", open[0].BadPostureCount, workers)
	}
}

func TestLedgerStopEndNeverBeforeExisting(t *testing.T) {
	ledger, ctx := newTestLedger(t)
	key := identity.UserKey{Key: 900106}
	base := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	ledger.ApplyEvent(ctx, key, event(EventSessionStart, base))

	// A stop with a stale timestamp must not move the end before the start.
	snap := ledger.ApplyEvent(ctx, key, event(EventSessionStop, base.Add(-5*time.Minute)))
	if snap.Minutes != 0 {
		t.Fatalf("minutes = %d, want 0 for backwards stop", snap.Minutes)
	}
	if snap.Open {
		t.Fatal("session should be closed")
	}
}
