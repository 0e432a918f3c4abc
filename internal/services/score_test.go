package services

import "testing"

func TestComputeScoreNoHistory(t *testing.T) {
	if got := ComputeScore(0, 0, 0); got != 20 {
		t.Fatalf("ComputeScore(0,0,0) = %d, want 20", got)
	}
}

func TestComputeScoreMinutesMonotonic(t *testing.T) {
	prev := -1
	for _, minutes := range []float64{0, 10, 60, 220, 600, 2000, 100000} {
		got := ComputeScore(minutes, 0, 0)
		if got < prev {
			t.Fatalf("score decreased with more minutes: %f -> %d (prev %d)", minutes, got, prev)
		}
		if got > 100 {
			t.Fatalf("score above ceiling: %d", got)
		}
		prev = got
	}
}

func TestComputeScorePenalties(t *testing.T) {
	clean := ComputeScore(300, 0, 0)
	dirty := ComputeScore(300, 10, 0)
	if dirty >= clean {
		t.Fatalf("bad posture did not lower score: clean=%d dirty=%d", clean, dirty)
	}

	// One too-close detection weighs like two bad-posture detections.
	if a, b := ComputeScore(300, 2, 0), ComputeScore(300, 0, 1); a != b {
		t.Fatalf("penalty weights diverged: bad=%d tooClose=%d", a, b)
	}
}

func TestComputeScoreClampedAtZero(t *testing.T) {
	if got := ComputeScore(5, 1000, 1000); got != 0 {
		t.Fatalf("ComputeScore with huge penalties = %d, want 0", got)
	}
}

func TestComputeScoreQualityFailures(t *testing.T) {
	// bad=2 + 2*tooClose=1 is 4 quality failures: 20 - 0.7*4 rounds to 17
	// at zero minutes.
	if got := ComputeScore(0, 2, 1); got != 17 {
		t.Fatalf("ComputeScore(0,2,1) = %d, want 17", got)
	}
}
