package services

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/upright-backend/internal/domain"
)

func TestParseStatsRange(t *testing.T) {
	cases := map[string]StatsRange{
		"day":     RangeDay,
		"week":    RangeWeek,
		" WEEK ":  RangeWeek,
		"":        RangeDay,
		"monthly": RangeDay,
	}
	for raw, want := range cases {
		if got := ParseStatsRange(raw); got != want {
			t.Fatalf("ParseStatsRange(%q) = %q, want %q", raw, got, want)
		}
	}
}

func TestEmptyBucketsDay(t *testing.T) {
	now := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)
	buckets := emptyBuckets(RangeDay, now)
	if len(buckets) != 24 {
		t.Fatalf("day buckets = %d, want 24", len(buckets))
	}
	if buckets[0].Label != "00:00" || buckets[23].Label != "23:00" {
		t.Fatalf("unexpected labels: %q .. %q", buckets[0].Label, buckets[23].Label)
	}
}

func TestEmptyBucketsWeek(t *testing.T) {
	now := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)
	buckets := emptyBuckets(RangeWeek, now)
	if len(buckets) != 7 {
		t.Fatalf("week buckets = %d, want 7", len(buckets))
	}
	if buckets[0].Label != "2026-03-04" {
		t.Fatalf("first label = %q, want 2026-03-04", buckets[0].Label)
	}
	if buckets[6].Label != "2026-03-10" {
		t.Fatalf("last label = %q, want 2026-03-10", buckets[6].Label)
	}
}

func TestFillSummary(t *testing.T) {
	now := time.Date(2026, 3, 10, 18, 0, 0, 0, time.UTC)
	coding := "coding"
	end1 := now.Add(-2 * time.Hour)

	sessions := []*domain.PostureSession{
		{
			ID:              uuid.New(),
			UserKey:         42,
			StartedAt:       now.Add(-3 * time.Hour),
			EndedAt:         &end1,
			Activity:        &coding,
			BadPostureCount: 4,
			TooCloseCount:   1,
			Minutes:         60,
		},
		{
			ID:              uuid.New(),
			UserKey:         42,
			StartedAt:       now.Add(-30 * time.Minute),
			BadPostureCount: 2,
			Minutes:         30,
		},
	}

	summary := Summary{
		UserKey:           42,
		Range:             RangeDay,
		ActivityBreakdown: map[string]float64{},
		Buckets:           emptyBuckets(RangeDay, now),
	}
	fillSummary(&summary, sessions, RangeDay, now)

	if summary.BadPostureCount != 6 || summary.TooCloseCount != 1 {
		t.Fatalf("counters = %d/%d, want 6/1", summary.BadPostureCount, summary.TooCloseCount)
	}
	if summary.TotalMinutes != 90 {
		t.Fatalf("total minutes = %d, want 90", summary.TotalMinutes)
	}
	if got := summary.ActivityBreakdown["coding"]; got != 1.0 {
		t.Fatalf("coding hours = %v, want 1.0", got)
	}

	// Session scores: ComputeScore(60,4,1) and ComputeScore(30,2,0),
	// averaged and rounded to one decimal.
	s1 := float64(ComputeScore(60, 4, 1))
	s2 := float64(ComputeScore(30, 2, 0))
	want := float64(int((s1+s2)/2*10+0.5)) / 10
	if summary.ScoreAverage != want {
		t.Fatalf("score average = %v, want %v", summary.ScoreAverage, want)
	}

	// First session started at 15:00 UTC, second at 17:30 UTC.
	for _, bucket := range summary.Buckets {
		switch bucket.Label {
		case "15:00":
			if bucket.BadPostureCount != 4 || bucket.TooCloseCount != 1 {
				t.Fatalf("15:00 bucket = %+v", bucket)
			}
		case "17:00":
			if bucket.BadPostureCount != 2 || bucket.TooCloseCount != 0 {
				t.Fatalf("17:00 bucket = %+v", bucket)
			}
		default:
			if bucket.BadPostureCount != 0 || bucket.TooCloseCount != 0 {
				t.Fatalf("unexpected counts in bucket %+v", bucket)
			}
		}
	}
}

func TestFillSummaryNoSessions(t *testing.T) {
	now := time.Date(2026, 3, 10, 18, 0, 0, 0, time.UTC)
	summary := Summary{
		ActivityBreakdown: map[string]float64{},
		Buckets:           emptyBuckets(RangeWeek, now),
	}
	fillSummary(&summary, nil, RangeWeek, now)

	if summary.ScoreAverage != 0 || summary.TotalMinutes != 0 {
		t.Fatalf("empty window produced totals: %+v", summary)
	}
}

func TestAddToBucketWeek(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	buckets := emptyBuckets(RangeWeek, now)
	addToBucket(buckets, RangeWeek, time.Date(2026, 3, 8, 9, 30, 0, 0, time.UTC), 3, 2)

	for _, bucket := range buckets {
		if bucket.Label == "2026-03-08" {
			if bucket.BadPostureCount != 3 || bucket.TooCloseCount != 2 {
				t.Fatalf("bucket = %+v", bucket)
			}
			return
		}
	}
	t.Fatal("2026-03-08 bucket not found")
}
