package reasoner

import (
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tripmates/trip-planner-api/internal/types"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func ratingPtr(v float64) *float64 { return &v }

func candidate(category string, rating *float64, distance float64) types.CandidatePlace {
	return types.CandidatePlace{
		Name:           "Test Place",
		Category:       category,
		Rating:         rating,
		DistanceMeters: distance,
	}
}

func TestRankAndExplain_OneResultPerCandidateSameOrder(t *testing.T) {
	r := NewReasonerImpl(testLogger())

	candidates := []types.CandidatePlace{
		candidate("food", ratingPtr(4.0), 100),
		candidate("museum", nil, 500),
		candidate("nature", ratingPtr(3.2), 900),
	}
	results := r.RankAndExplain(candidates, map[string]float64{"food": 1.0}, types.TripContext{})

	require.Len(t, results, len(candidates))
	assert.Contains(t, results[0].Reason, "food")
	assert.Contains(t, results[1].Reason, "museum")
	assert.Contains(t, results[2].Reason, "nature")
}

func TestRankAndExplain_ScoreBounds(t *testing.T) {
	r := NewReasonerImpl(testLogger())

	candidates := []types.CandidatePlace{
		candidate("food", ratingPtr(5.0), 0),
		candidate("other", nil, 100000),
		candidate("attraction", ratingPtr(0.5), 50000),
	}
	prefs := map[string]float64{"food": 5.0, "attraction": -2.0} // out-of-range weights get clamped

	for _, res := range r.RankAndExplain(candidates, prefs, types.TripContext{}) {
		assert.GreaterOrEqual(t, res.Score, 0.0)
		assert.LessOrEqual(t, res.Score, 1.0)
	}
}

func TestRankAndExplain_MonotoneInPreferenceWeight(t *testing.T) {
	r := NewReasonerImpl(testLogger())

	// Identical candidates, only the group preference weight differs.
	candidates := []types.CandidatePlace{candidate("food", ratingPtr(4.0), 200)}

	low := r.RankAndExplain(candidates, map[string]float64{"food": 0.2}, types.TripContext{})
	high := r.RankAndExplain(candidates, map[string]float64{"food": 0.9}, types.TripContext{})

	require.Len(t, low, 1)
	require.Len(t, high, 1)
	assert.Greater(t, high[0].Score, low[0].Score)
}

func TestRankAndExplain_DefaultReasonTemplates(t *testing.T) {
	r := NewReasonerImpl(testLogger())

	candidates := []types.CandidatePlace{
		candidate("food", ratingPtr(4.0), 100),       // preferred category
		candidate("museum", ratingPtr(4.8), 100),     // no preference, high rating
		candidate("nightlife", ratingPtr(3.0), 100),  // no preference, middling rating
	}
	results := r.RankAndExplain(candidates, map[string]float64{"food": 0.8}, types.TripContext{})

	require.Len(t, results, 3)
	assert.Equal(t, "Matches your interest in food", results[0].Reason)
	assert.Equal(t, "Highly rated museum spot nearby", results[1].Reason)
	assert.Equal(t, "A nightlife option close to your route", results[2].Reason)
}

func TestRankAndExplain_EmptyInput(t *testing.T) {
	r := NewReasonerImpl(testLogger())
	assert.Empty(t, r.RankAndExplain(nil, nil, types.TripContext{}))
}
