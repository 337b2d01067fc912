package advisor

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tripmates/trip-planner-api/config"
	"github.com/tripmates/trip-planner-api/internal/api/category"
	"github.com/tripmates/trip-planner-api/internal/api/enhancer"
	"github.com/tripmates/trip-planner-api/internal/api/places"
	"github.com/tripmates/trip-planner-api/internal/api/preferences"
	"github.com/tripmates/trip-planner-api/internal/api/reasoner"
	"github.com/tripmates/trip-planner-api/internal/api/trips"
	"github.com/tripmates/trip-planner-api/internal/types"
)

const algorithmName = "preference_rank_v1"

var _ Service = (*ServiceImpl)(nil)

// Service is the top-level suggestion orchestrator.
type Service interface {
	SuggestForTrip(ctx context.Context, trip *types.Trip, query types.PlaceSuggestionQuery) (*types.SuggestedPlaceCollection, error)
}

type ServiceImpl struct {
	logger      *slog.Logger
	cfg         config.SuggestionsConfig
	preferences preferences.Aggregator
	provider    places.CandidateProvider
	placeRepo   places.Repository
	tripRepo    trips.Repository
	normalizer  *category.Normalizer
	reasoner    reasoner.Reasoner
	enhancer    enhancer.ReasonEnhancer
	cache       SuggestionCache
}

func NewServiceImpl(
	cfg config.SuggestionsConfig,
	prefs preferences.Aggregator,
	provider places.CandidateProvider,
	placeRepo places.Repository,
	tripRepo trips.Repository,
	normalizer *category.Normalizer,
	rsn reasoner.Reasoner,
	enh enhancer.ReasonEnhancer,
	cache SuggestionCache,
	logger *slog.Logger,
) *ServiceImpl {
	return &ServiceImpl{
		logger:      logger,
		cfg:         cfg,
		preferences: prefs,
		provider:    provider,
		placeRepo:   placeRepo,
		tripRepo:    tripRepo,
		normalizer:  normalizer,
		reasoner:    rsn,
		enhancer:    enh,
		cache:       cache,
	}
}

// SuggestForTrip runs the suggestion pipeline: feature flag, group
// preferences, cache-or-compute, candidate retrieval, normalization and
// filtering, deterministic ranking, truncation, best-effort enhancement and
// assembly. Preference and candidate failures propagate to the caller;
// enhancement failures never do.
func (s *ServiceImpl) SuggestForTrip(ctx context.Context, trip *types.Trip, query types.PlaceSuggestionQuery) (*types.SuggestedPlaceCollection, error) {
	ctx, span := otel.Tracer("AiPlaceAdvisor").Start(ctx, "SuggestForTrip", trace.WithAttributes(
		attribute.String("trip.id", trip.ID.String()),
		attribute.Int("query.limit", query.Limit),
		attribute.Int("query.radius_m", query.RadiusMeters),
	))
	defer span.End()

	l := s.logger.With(slog.String("trip_id", trip.ID.String()))

	if !s.cfg.Enabled {
		l.DebugContext(ctx, "Place suggestions are disabled")
		span.SetStatus(codes.Ok, "Suggestions disabled")
		return &types.SuggestedPlaceCollection{
			Items: []types.SuggestedPlace{},
			Meta:  map[string]interface{}{"trip_id": trip.ID.String()},
		}, nil
	}

	prefs, err := s.preferences.GetGroupPreferences(ctx, trip.ID)
	if err != nil {
		l.ErrorContext(ctx, "Failed to aggregate group preferences", slog.Any("error", err))
		span.RecordError(err)
		return nil, fmt.Errorf("failed to aggregate group preferences: %w", err)
	}

	cacheKey := generateSuggestionCacheKey(trip, prefs, query)
	span.SetAttributes(attribute.String("cache.key", cacheKey))

	collection, cached, err := s.cache.Remember(cacheKey, s.cfg.CacheTTL, func() (*types.SuggestedPlaceCollection, error) {
		return s.compute(ctx, trip, query, prefs)
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if cached {
		l.InfoContext(ctx, "Cache hit for place suggestions", slog.String("cache_key", cacheKey))
		span.AddEvent("Cache hit")
		span.SetStatus(codes.Ok, "Suggestions served from cache")
		return withMeta(collection, "cached", true), nil
	}

	span.SetStatus(codes.Ok, "Suggestions computed")
	return collection, nil
}

func (s *ServiceImpl) compute(ctx context.Context, trip *types.Trip, query types.PlaceSuggestionQuery, prefs map[string]float64) (*types.SuggestedPlaceCollection, error) {
	start := time.Now()
	l := s.logger.With(slog.String("trip_id", trip.ID.String()))

	origin, ok, err := s.resolveOrigin(ctx, trip, query)
	if err != nil {
		return nil, err
	}
	if !ok {
		l.InfoContext(ctx, "No usable origin for trip, returning empty suggestions")
		return &types.SuggestedPlaceCollection{
			Items: []types.SuggestedPlace{},
			Meta: map[string]interface{}{
				"trip_id": trip.ID.String(),
				"empty":   true,
			},
		}, nil
	}

	tripCtx := s.tripContext(ctx, trip)

	candidates, err := s.provider.GetCandidates(ctx, origin, query.RadiusMeters, tripCtx)
	if err != nil {
		l.ErrorContext(ctx, "Candidate retrieval failed", slog.Any("error", err))
		return nil, fmt.Errorf("failed to retrieve place candidates: %w", err)
	}

	// Normalize categories, then drop everything product policy says is not
	// suggestion-worthy; the reasoner never sees those.
	filtered := make([]types.CandidatePlace, 0, len(candidates))
	for _, c := range candidates {
		c.Category = s.normalizer.Normalize(c.RawCategory)
		if category.IsRecommendable(c.Category) {
			filtered = append(filtered, c)
		}
	}

	scored := s.reasoner.RankAndExplain(filtered, prefs, tripCtx)

	// Zip scores back onto candidates, sort by score descending (stable, so
	// ties keep the provider's distance order) and truncate to the limit.
	type rankedCandidate struct {
		place  types.CandidatePlace
		result types.ScoredReason
	}
	ranked := make([]rankedCandidate, len(filtered))
	for i := range filtered {
		ranked[i] = rankedCandidate{place: filtered[i], result: scored[i]}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].result.Score > ranked[j].result.Score
	})
	if len(ranked) > query.Limit {
		ranked = ranked[:query.Limit]
	}

	enhanceInput := make([]enhancer.EnhancePlace, 0, len(ranked))
	for _, rc := range ranked {
		if id := suggestionID(rc.place); id != "" {
			enhanceInput = append(enhanceInput, enhancer.EnhancePlace{
				ID:       id,
				Name:     rc.place.Name,
				Category: rc.place.Category,
			})
		}
	}
	enhanced := s.enhancer.EnhancePlaces(ctx, enhanceInput, prefs, tripCtx.ContextText(), query.Locale)

	items := make([]types.SuggestedPlace, 0, len(ranked))
	sources := make(map[string]bool)
	for _, rc := range ranked {
		reason := rc.result.Reason
		if text, ok := enhanced[enhancer.NormalizeID(suggestionID(rc.place))]; ok {
			reason = text
		}
		sources[rc.place.Source] = true
		items = append(items, types.SuggestedPlace{
			Source:                rc.place.Source,
			InternalPlaceID:       rc.place.InternalPlaceID,
			ExternalID:            rc.place.ExternalID,
			Name:                  rc.place.Name,
			Category:              rc.place.Category,
			Rating:                rc.place.Rating,
			ReviewsCount:          rc.place.ReviewsCount,
			Location:              rc.place.Location,
			DistanceMeters:        rc.place.DistanceMeters,
			EstimatedVisitMinutes: rc.place.EstimatedVisitMinutes,
			Score:                 rc.result.Score,
			Reason:                reason,
			Actions:               types.SuggestionActions{AddPayload: addPayload(rc.place)},
		})
	}

	sourceList := make([]string, 0, len(sources))
	for src := range sources {
		sourceList = append(sourceList, src)
	}
	sort.Strings(sourceList)

	l.InfoContext(ctx, "Place suggestions computed",
		slog.Int("candidates", len(candidates)),
		slog.Int("suggestions", len(items)),
		slog.Duration("query_time", time.Since(start)))

	return &types.SuggestedPlaceCollection{
		Items: items,
		Meta: map[string]interface{}{
			"trip_id":    trip.ID.String(),
			"total":      len(items),
			"sources":    sourceList,
			"algorithm":  algorithmName,
			"query_time": time.Since(start).String(),
		},
	}, nil
}

// resolveOrigin picks the query origin: the place behind based_on_place_id
// when present and valid, otherwise the trip's stored start location. ok is
// false when neither yields usable coordinates.
func (s *ServiceImpl) resolveOrigin(ctx context.Context, trip *types.Trip, query types.PlaceSuggestionQuery) (types.GeoPoint, bool, error) {
	if query.BasedOnPlaceID != nil {
		place, err := s.placeRepo.GetPlace(ctx, *query.BasedOnPlaceID)
		if err != nil {
			return types.GeoPoint{}, false, fmt.Errorf("failed to resolve origin place: %w", err)
		}
		if place != nil {
			return types.GeoPoint{Lat: place.Lat, Lon: place.Lon}, true, nil
		}
		s.logger.WarnContext(ctx, "based_on_place_id does not exist, falling back to trip start",
			slog.String("place_id", query.BasedOnPlaceID.String()))
	}

	origin, ok := trip.StartLocation()
	return origin, ok, nil
}

// tripContext assembles the descriptive context for the reasoner and
// enhancer. The member count is advisory; a failed count is logged and left
// at zero rather than failing the request.
func (s *ServiceImpl) tripContext(ctx context.Context, trip *types.Trip) types.TripContext {
	count, err := s.tripRepo.MemberCount(ctx, trip.ID)
	if err != nil {
		s.logger.WarnContext(ctx, "Failed to count trip members", slog.Any("error", err))
	}
	return types.TripContext{
		TripID:      trip.ID,
		Destination: trip.Destination,
		MemberCount: count,
	}
}
