package services

import "testing"

func TestSortLeaderboard(t *testing.T) {
	entries := []LeaderboardEntry{
		{Name: "Alice", Score: 50},
		{Name: "Cara", Score: 80},
		{Name: "Bob", Score: 80},
	}
	SortLeaderboard(entries)

	want := []LeaderboardEntry{
		{Name: "Bob", Score: 80},
		{Name: "Cara", Score: 80},
		{Name: "Alice", Score: 50},
	}
	for i := range want {
		if entries[i] != want[i] {
			t.Fatalf("position %d = %+v, want %+v", i, entries[i], want[i])
		}
	}
}

func TestSortLeaderboardEmpty(t *testing.T) {
	var entries []LeaderboardEntry
	SortLeaderboard(entries)
	if len(entries) != 0 {
		t.Fatalf("unexpected entries: %v", entries)
	}
}
