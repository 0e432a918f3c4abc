package services

import "math"

// Score weighting. Too-close incidents count double because proximity to
// the screen indicates acuter risk than a generic slouch.
const (
	scoreFloor          = 20.0
	scoreCeiling        = 100.0
	scoreMinutesHalfing = 220.0
	scorePenaltyWeight  = 0.7
	tooCloseWeight      = 2
)

// ComputeScore maps lifetime session totals to a 0-100 wellness score.
// Tracked minutes saturate toward 100 with diminishing returns; quality
// failures subtract linearly. Always recomputed from full history so the
// persisted score can be rebuilt from session rows at any time.
func ComputeScore(totalMinutes float64, badPostureTotal, tooCloseTotal int) int {
	qualityFailures := float64(badPostureTotal + tooCloseWeight*tooCloseTotal)
	raw := scoreFloor + (scoreCeiling-scoreFloor)*(1-math.Exp(-totalMinutes/scoreMinutesHalfing)) - scorePenaltyWeight*qualityFailures
	if raw < 0 {
		raw = 0
	}
	if raw > scoreCeiling {
		raw = scoreCeiling
	}
	return int(math.Round(raw))
}
