package reasoner

import (
	"fmt"
	"log/slog"

	"github.com/tripmates/trip-planner-api/internal/types"
)

// Scoring weights. Preference match dominates so that a higher group weight
// for a candidate's category always yields a higher or equal score, all else
// equal.
const (
	preferenceWeight = 0.6
	ratingWeight     = 0.25
	proximityWeight  = 0.15

	// Candidates without a rating score as an average place rather than a
	// bad one.
	neutralRating = 3.0
	maxRating     = 5.0
)

var _ Reasoner = (*ReasonerImpl)(nil)

// Reasoner produces a deterministic {score, reason} pair per candidate.
// It is rule-based, not an LLM call: the optional enhancement layer may
// later replace the reason text, never the score.
type Reasoner interface {
	RankAndExplain(candidates []types.CandidatePlace, preferences map[string]float64, tripCtx types.TripContext) []types.ScoredReason
}

type ReasonerImpl struct {
	logger *slog.Logger
}

func NewReasonerImpl(logger *slog.Logger) *ReasonerImpl {
	return &ReasonerImpl{logger: logger}
}

// RankAndExplain returns one output per input candidate, in the same order.
// Candidates are expected to carry a normalized, recommendable category; the
// advisor filters non-recommendable ones before calling.
//
// score = 0.6*pref + 0.25*rating/5 + 0.15*(1 - distance/radius), clamped to
// [0,1]. Radius for the proximity term is taken as the maximum candidate
// distance, so the farthest candidate scores zero proximity.
func (r *ReasonerImpl) RankAndExplain(candidates []types.CandidatePlace, preferences map[string]float64, tripCtx types.TripContext) []types.ScoredReason {
	if len(candidates) == 0 {
		return []types.ScoredReason{}
	}

	maxDistance := 0.0
	for _, c := range candidates {
		if c.DistanceMeters > maxDistance {
			maxDistance = c.DistanceMeters
		}
	}

	results := make([]types.ScoredReason, 0, len(candidates))
	for _, c := range candidates {
		pref := clamp01(preferences[c.Category])

		rating := neutralRating
		if c.Rating != nil {
			rating = *c.Rating
		}
		ratingScore := clamp01(rating / maxRating)

		proximity := 1.0
		if maxDistance > 0 {
			proximity = clamp01(1.0 - c.DistanceMeters/maxDistance)
		}

		score := clamp01(preferenceWeight*pref + ratingWeight*ratingScore + proximityWeight*proximity)

		results = append(results, types.ScoredReason{
			Score:  score,
			Reason: defaultReason(c, pref),
		})
	}

	r.logger.Debug("ranked candidates",
		slog.String("trip_id", tripCtx.TripID.String()),
		slog.Int("count", len(results)))
	return results
}

// defaultReason is the fallback text shown when no LLM enhancement is
// available. Deterministic and template-based.
func defaultReason(c types.CandidatePlace, pref float64) string {
	switch {
	case pref > 0:
		return fmt.Sprintf("Matches your interest in %s", c.Category)
	case c.Rating != nil && *c.Rating >= 4.5:
		return fmt.Sprintf("Highly rated %s spot nearby", c.Category)
	default:
		return fmt.Sprintf("A %s option close to your route", c.Category)
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
