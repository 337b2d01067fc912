package advisor

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/tripmates/trip-planner-api/config"
	"github.com/tripmates/trip-planner-api/internal/api/category"
	"github.com/tripmates/trip-planner-api/internal/api/enhancer"
	"github.com/tripmates/trip-planner-api/internal/api/reasoner"
	"github.com/tripmates/trip-planner-api/internal/types"
)

// MockAggregator is a mock implementation of preferences.Aggregator.
type MockAggregator struct {
	mock.Mock
}

func (m *MockAggregator) GetGroupPreferences(ctx context.Context, tripID uuid.UUID) (map[string]float64, error) {
	args := m.Called(ctx, tripID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]float64), args.Error(1)
}

// MockCandidateProvider is a mock implementation of places.CandidateProvider.
type MockCandidateProvider struct {
	mock.Mock
}

func (m *MockCandidateProvider) GetCandidates(ctx context.Context, origin types.GeoPoint, radiusMeters int, tripCtx types.TripContext) ([]types.CandidatePlace, error) {
	args := m.Called(ctx, origin, radiusMeters, tripCtx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.CandidatePlace), args.Error(1)
}

// MockPlaceRepo is a mock implementation of places.Repository.
type MockPlaceRepo struct {
	mock.Mock
}

func (m *MockPlaceRepo) GetPlace(ctx context.Context, placeID uuid.UUID) (*types.Place, error) {
	args := m.Called(ctx, placeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Place), args.Error(1)
}

// MockTripRepo is a mock implementation of trips.Repository.
type MockTripRepo struct {
	mock.Mock
}

func (m *MockTripRepo) GetTrip(ctx context.Context, tripID uuid.UUID) (*types.Trip, error) {
	args := m.Called(ctx, tripID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Trip), args.Error(1)
}

func (m *MockTripRepo) IsMember(ctx context.Context, tripID, userID uuid.UUID) (bool, error) {
	args := m.Called(ctx, tripID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *MockTripRepo) MemberCount(ctx context.Context, tripID uuid.UUID) (int, error) {
	args := m.Called(ctx, tripID)
	return args.Int(0), args.Error(1)
}

// MockReasoner is a mock implementation of reasoner.Reasoner.
type MockReasoner struct {
	mock.Mock
}

func (m *MockReasoner) RankAndExplain(candidates []types.CandidatePlace, preferences map[string]float64, tripCtx types.TripContext) []types.ScoredReason {
	args := m.Called(candidates, preferences, tripCtx)
	return args.Get(0).([]types.ScoredReason)
}

// MockEnhancer is a mock implementation of enhancer.ReasonEnhancer.
type MockEnhancer struct {
	mock.Mock
}

func (m *MockEnhancer) EnhancePlaces(ctx context.Context, places []enhancer.EnhancePlace, preferences map[string]float64, tripContextText, locale string) map[string]string {
	args := m.Called(ctx, places, preferences, tripContextText, locale)
	return args.Get(0).(map[string]string)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testSuggestionsConfig() config.SuggestionsConfig {
	return config.SuggestionsConfig{
		Enabled:          true,
		CacheTTL:         time.Minute,
		DefaultLimit:     10,
		MaxLimit:         50,
		DefaultRadiusM:   3000,
		MinRadiusM:       10,
		MaxRadiusM:       50000,
		FallbackCategory: "other",
	}
}

func testTrip() *types.Trip {
	lat, lon := 41.1496, -8.611
	return &types.Trip{
		ID:          uuid.New(),
		OwnerID:     uuid.New(),
		Name:        "Long weekend",
		Destination: "Porto",
		StartLat:    &lat,
		StartLon:    &lon,
	}
}

func testQuery() types.PlaceSuggestionQuery {
	return types.PlaceSuggestionQuery{Limit: 10, RadiusMeters: 3000, Locale: "en"}
}

func ratingPtr(v float64) *float64 { return &v }
func intPtr(v int) *int            { return &v }
func strPtr(s string) *string      { return &s }

type advisorFixture struct {
	prefs     *MockAggregator
	provider  *MockCandidateProvider
	placeRepo *MockPlaceRepo
	tripRepo  *MockTripRepo
	reasoner  *MockReasoner
	enhancer  *MockEnhancer
	service   *ServiceImpl
}

func newFixture(cfg config.SuggestionsConfig) *advisorFixture {
	f := &advisorFixture{
		prefs:     new(MockAggregator),
		provider:  new(MockCandidateProvider),
		placeRepo: new(MockPlaceRepo),
		tripRepo:  new(MockTripRepo),
		reasoner:  new(MockReasoner),
		enhancer:  new(MockEnhancer),
	}
	normalizer := category.NewNormalizer(map[string]string{
		"restaurant":    "food",
		"bar":           "nightlife",
		"shopping_mall": "shopping",
	}, "other")
	f.service = NewServiceImpl(cfg, f.prefs, f.provider, f.placeRepo, f.tripRepo,
		normalizer, f.reasoner, f.enhancer, NewMemoryCache(time.Minute), testLogger())
	return f
}

func TestSuggestForTrip_DisabledFlag(t *testing.T) {
	cfg := testSuggestionsConfig()
	cfg.Enabled = false
	f := newFixture(cfg)
	trip := testTrip()

	got, err := f.service.SuggestForTrip(context.Background(), trip, testQuery())

	require.NoError(t, err)
	assert.Empty(t, got.Items)
	assert.Equal(t, trip.ID.String(), got.Meta["trip_id"])
	f.prefs.AssertNotCalled(t, "GetGroupPreferences", mock.Anything, mock.Anything)
	f.provider.AssertNotCalled(t, "GetCandidates", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSuggestForTrip_NoUsableOrigin(t *testing.T) {
	f := newFixture(testSuggestionsConfig())
	trip := testTrip()
	trip.StartLat = nil
	trip.StartLon = nil

	f.prefs.On("GetGroupPreferences", mock.Anything, trip.ID).Return(map[string]float64{}, nil)

	got, err := f.service.SuggestForTrip(context.Background(), trip, testQuery())

	require.NoError(t, err)
	assert.Empty(t, got.Items)
	assert.Equal(t, true, got.Meta["empty"])
	assert.Equal(t, trip.ID.String(), got.Meta["trip_id"])
	f.provider.AssertNotCalled(t, "GetCandidates", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSuggestForTrip_BasedOnPlaceOverridesOrigin(t *testing.T) {
	f := newFixture(testSuggestionsConfig())
	trip := testTrip()
	placeID := uuid.New()
	query := testQuery()
	query.BasedOnPlaceID = &placeID

	f.prefs.On("GetGroupPreferences", mock.Anything, trip.ID).Return(map[string]float64{}, nil)
	f.placeRepo.On("GetPlace", mock.Anything, placeID).Return(&types.Place{
		ID: placeID, Lat: 38.7223, Lon: -9.1393,
	}, nil)
	f.tripRepo.On("MemberCount", mock.Anything, trip.ID).Return(3, nil)
	f.provider.On("GetCandidates", mock.Anything, types.GeoPoint{Lat: 38.7223, Lon: -9.1393}, 3000, mock.Anything).
		Return([]types.CandidatePlace{}, nil)
	f.reasoner.On("RankAndExplain", mock.Anything, mock.Anything, mock.Anything).Return([]types.ScoredReason{})
	f.enhancer.On("EnhancePlaces", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(map[string]string{})

	got, err := f.service.SuggestForTrip(context.Background(), trip, query)

	require.NoError(t, err)
	assert.Empty(t, got.Items)
	f.provider.AssertExpectations(t)
}

func TestSuggestForTrip_EndToEnd(t *testing.T) {
	f := newFixture(testSuggestionsConfig())
	trip := testTrip()
	prefs := map[string]float64{"food": 1.0}

	internalID := uuid.New()
	candidate := types.CandidatePlace{
		Source:          "internal",
		InternalPlaceID: &internalID,
		Name:            "Test Restaurant",
		RawCategory:     "restaurant",
		Rating:          ratingPtr(4.5),
		ReviewsCount:    intPtr(100),
		Location:        types.GeoPoint{Lat: 41.15, Lon: -8.61},
		DistanceMeters:  250,
	}

	f.prefs.On("GetGroupPreferences", mock.Anything, trip.ID).Return(prefs, nil)
	f.tripRepo.On("MemberCount", mock.Anything, trip.ID).Return(2, nil)
	f.provider.On("GetCandidates", mock.Anything, mock.Anything, 3000, mock.Anything).
		Return([]types.CandidatePlace{candidate}, nil)
	f.reasoner.On("RankAndExplain", mock.MatchedBy(func(cs []types.CandidatePlace) bool {
		return len(cs) == 1 && cs[0].Category == "food"
	}), prefs, mock.Anything).Return([]types.ScoredReason{
		{Score: 0.9, Reason: "Good match for food preferences"},
	})
	// Enhancer unavailable: empty mapping, defaults are kept.
	f.enhancer.On("EnhancePlaces", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(map[string]string{})

	got, err := f.service.SuggestForTrip(context.Background(), trip, testQuery())

	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	item := got.Items[0]
	assert.Equal(t, "Test Restaurant", item.Name)
	assert.Equal(t, "food", item.Category)
	assert.Equal(t, 4.5, *item.Rating)
	assert.Equal(t, 100, *item.ReviewsCount)
	assert.Equal(t, 0.9, item.Score)
	assert.Equal(t, "Good match for food preferences", item.Reason)
	assert.Equal(t, trip.ID.String(), got.Meta["trip_id"])
	assert.Equal(t, 1, got.Meta["total"])
}

func TestSuggestForTrip_FiltersNonRecommendableCategories(t *testing.T) {
	f := newFixture(testSuggestionsConfig())
	trip := testTrip()

	candidates := []types.CandidatePlace{
		{Name: "Mall", RawCategory: "shopping_mall", DistanceMeters: 100},
		{Name: "Tasca", RawCategory: "restaurant", DistanceMeters: 200,
			ExternalID: strPtr("google:t1"), Source: "google_places"},
	}

	f.prefs.On("GetGroupPreferences", mock.Anything, trip.ID).Return(map[string]float64{}, nil)
	f.tripRepo.On("MemberCount", mock.Anything, trip.ID).Return(2, nil)
	f.provider.On("GetCandidates", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(candidates, nil)
	f.reasoner.On("RankAndExplain", mock.MatchedBy(func(cs []types.CandidatePlace) bool {
		// The mall normalizes to "shopping", which is not recommendable.
		return len(cs) == 1 && cs[0].Name == "Tasca"
	}), mock.Anything, mock.Anything).Return([]types.ScoredReason{{Score: 0.5, Reason: "ok"}})
	f.enhancer.On("EnhancePlaces", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(map[string]string{})

	got, err := f.service.SuggestForTrip(context.Background(), trip, testQuery())

	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	assert.Equal(t, "Tasca", got.Items[0].Name)
	f.reasoner.AssertExpectations(t)
}

func TestSuggestForTrip_SortsByScoreAndTruncates(t *testing.T) {
	f := newFixture(testSuggestionsConfig())
	trip := testTrip()
	query := testQuery()
	query.Limit = 2

	candidates := []types.CandidatePlace{
		{Name: "A", RawCategory: "restaurant", DistanceMeters: 100},
		{Name: "B", RawCategory: "restaurant", DistanceMeters: 200},
		{Name: "C", RawCategory: "bar", DistanceMeters: 300},
	}

	f.prefs.On("GetGroupPreferences", mock.Anything, trip.ID).Return(map[string]float64{}, nil)
	f.tripRepo.On("MemberCount", mock.Anything, trip.ID).Return(2, nil)
	f.provider.On("GetCandidates", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(candidates, nil)
	f.reasoner.On("RankAndExplain", mock.Anything, mock.Anything, mock.Anything).
		Return([]types.ScoredReason{
			{Score: 0.2, Reason: "a"},
			{Score: 0.8, Reason: "b"},
			{Score: 0.5, Reason: "c"},
		})
	f.enhancer.On("EnhancePlaces", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(map[string]string{})

	got, err := f.service.SuggestForTrip(context.Background(), trip, query)

	require.NoError(t, err)
	require.Len(t, got.Items, 2)
	assert.Equal(t, "B", got.Items[0].Name)
	assert.Equal(t, "C", got.Items[1].Name)
	for i := 0; i < len(got.Items)-1; i++ {
		assert.GreaterOrEqual(t, got.Items[i].Score, got.Items[i+1].Score)
	}
}

func TestSuggestForTrip_EnhancedReasonsReplaceDefaults(t *testing.T) {
	f := newFixture(testSuggestionsConfig())
	trip := testTrip()

	candidates := []types.CandidatePlace{
		{Name: "Tasca", RawCategory: "restaurant", Source: "google_places",
			ExternalID: strPtr("google:t1"), DistanceMeters: 100},
		{Name: "Galeria", RawCategory: "bar", Source: "google_places",
			ExternalID: strPtr("google:g2"), DistanceMeters: 200},
	}

	f.prefs.On("GetGroupPreferences", mock.Anything, trip.ID).Return(map[string]float64{}, nil)
	f.tripRepo.On("MemberCount", mock.Anything, trip.ID).Return(2, nil)
	f.provider.On("GetCandidates", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(candidates, nil)
	f.reasoner.On("RankAndExplain", mock.Anything, mock.Anything, mock.Anything).
		Return([]types.ScoredReason{
			{Score: 0.9, Reason: "Matches your interest in food"},
			{Score: 0.7, Reason: "Matches your interest in nightlife"},
		})
	// Only one id comes back enhanced; the other keeps its default.
	f.enhancer.On("EnhancePlaces", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(map[string]string{"t1": "Legendary petiscos everyone loves"})

	got, err := f.service.SuggestForTrip(context.Background(), trip, testQuery())

	require.NoError(t, err)
	require.Len(t, got.Items, 2)
	assert.Equal(t, "Legendary petiscos everyone loves", got.Items[0].Reason)
	assert.Equal(t, "Matches your interest in nightlife", got.Items[1].Reason)
}

func TestSuggestForTrip_CacheServesSecondCall(t *testing.T) {
	f := newFixture(testSuggestionsConfig())
	trip := testTrip()

	f.prefs.On("GetGroupPreferences", mock.Anything, trip.ID).Return(map[string]float64{"food": 1.0}, nil)
	f.tripRepo.On("MemberCount", mock.Anything, trip.ID).Return(2, nil)
	f.provider.On("GetCandidates", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return([]types.CandidatePlace{{Name: "Tasca", RawCategory: "restaurant", DistanceMeters: 100}}, nil)
	f.reasoner.On("RankAndExplain", mock.Anything, mock.Anything, mock.Anything).
		Return([]types.ScoredReason{{Score: 0.9, Reason: "ok"}})
	f.enhancer.On("EnhancePlaces", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(map[string]string{})

	first, err := f.service.SuggestForTrip(context.Background(), trip, testQuery())
	require.NoError(t, err)
	_, hasCached := first.Meta["cached"]
	assert.False(t, hasCached)

	second, err := f.service.SuggestForTrip(context.Background(), trip, testQuery())
	require.NoError(t, err)
	assert.Equal(t, true, second.Meta["cached"])
	assert.Equal(t, first.Items, second.Items)

	f.provider.AssertNumberOfCalls(t, "GetCandidates", 1)
	f.reasoner.AssertNumberOfCalls(t, "RankAndExplain", 1)
}

func TestSuggestForTrip_PreferenceFailurePropagates(t *testing.T) {
	f := newFixture(testSuggestionsConfig())
	trip := testTrip()

	f.prefs.On("GetGroupPreferences", mock.Anything, trip.ID).
		Return(nil, errors.New("database unavailable"))

	got, err := f.service.SuggestForTrip(context.Background(), trip, testQuery())

	assert.Error(t, err)
	assert.Nil(t, got)
}

func TestSuggestForTrip_ProviderFailurePropagates(t *testing.T) {
	f := newFixture(testSuggestionsConfig())
	trip := testTrip()

	f.prefs.On("GetGroupPreferences", mock.Anything, trip.ID).Return(map[string]float64{}, nil)
	f.tripRepo.On("MemberCount", mock.Anything, trip.ID).Return(2, nil)
	f.provider.On("GetCandidates", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, errors.New("places api down"))

	got, err := f.service.SuggestForTrip(context.Background(), trip, testQuery())

	assert.Error(t, err)
	assert.Nil(t, got)
}

func TestSuggestForTrip_RealReasonerPipeline(t *testing.T) {
	// Same pipeline with the real reasoner wired in: scores stay ordered and
	// defaults read like the templates clients see in production.
	f := newFixture(testSuggestionsConfig())
	normalizer := category.NewNormalizer(map[string]string{"restaurant": "food", "bar": "nightlife"}, "other")
	svc := NewServiceImpl(testSuggestionsConfig(), f.prefs, f.provider, f.placeRepo, f.tripRepo,
		normalizer, reasoner.NewReasonerImpl(testLogger()), f.enhancer, NewMemoryCache(time.Minute), testLogger())

	trip := testTrip()
	f.prefs.On("GetGroupPreferences", mock.Anything, trip.ID).Return(map[string]float64{"food": 1.0}, nil)
	f.tripRepo.On("MemberCount", mock.Anything, trip.ID).Return(2, nil)
	f.provider.On("GetCandidates", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return([]types.CandidatePlace{
			{Name: "Bar do Rio", RawCategory: "bar", Rating: ratingPtr(4.0), DistanceMeters: 500},
			{Name: "Tasca", RawCategory: "restaurant", Rating: ratingPtr(4.5), DistanceMeters: 300},
		}, nil)
	f.enhancer.On("EnhancePlaces", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(map[string]string{})

	got, err := svc.SuggestForTrip(context.Background(), trip, testQuery())

	require.NoError(t, err)
	require.Len(t, got.Items, 2)
	assert.Equal(t, "Tasca", got.Items[0].Name)
	assert.Equal(t, "Matches your interest in food", got.Items[0].Reason)
	assert.GreaterOrEqual(t, got.Items[0].Score, got.Items[1].Score)
}
