package advisor

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	appMiddleware "github.com/tripmates/trip-planner-api/app/middleware"
	"github.com/tripmates/trip-planner-api/internal/types"
)

// MockService is a mock implementation of the advisor Service.
type MockService struct {
	mock.Mock
}

func (m *MockService) SuggestForTrip(ctx context.Context, trip *types.Trip, query types.PlaceSuggestionQuery) (*types.SuggestedPlaceCollection, error) {
	args := m.Called(ctx, trip, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.SuggestedPlaceCollection), args.Error(1)
}

type handlerFixture struct {
	service  *MockService
	tripRepo *MockTripRepo
	router   chi.Router
	userID   uuid.UUID
}

func newHandlerFixture(t *testing.T) *handlerFixture {
	t.Helper()
	f := &handlerFixture{
		service:  new(MockService),
		tripRepo: new(MockTripRepo),
		userID:   uuid.New(),
	}
	h := NewHandlerImpl(f.service, f.tripRepo, testSuggestionsConfig(), nil, testLogger())
	f.router = chi.NewRouter()
	f.router.Get("/trips/{tripID}/places/suggestions", h.GetSuggestions)
	return f
}

func (f *handlerFixture) request(t *testing.T, tripID, query string, authenticated bool) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/trips/"+tripID+"/places/suggestions"+query, nil)
	if authenticated {
		ctx := context.WithValue(req.Context(), appMiddleware.UserIDKey, f.userID.String())
		req = req.WithContext(ctx)
	}
	rr := httptest.NewRecorder()
	f.router.ServeHTTP(rr, req)
	return rr
}

func TestGetSuggestions_Unauthenticated(t *testing.T) {
	f := newHandlerFixture(t)

	rr := f.request(t, uuid.NewString(), "", false)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	f.service.AssertNotCalled(t, "SuggestForTrip", mock.Anything, mock.Anything, mock.Anything)
}

func TestGetSuggestions_InvalidTripID(t *testing.T) {
	f := newHandlerFixture(t)

	rr := f.request(t, "not-a-uuid", "", true)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestGetSuggestions_QueryValidation(t *testing.T) {
	tests := []struct {
		name  string
		query string
		field string
	}{
		{"limit too large", "?limit=999", "limit"},
		{"limit not a number", "?limit=abc", "limit"},
		{"limit zero", "?limit=0", "limit"},
		{"radius too small", "?radius_m=5", "radius_m"},
		{"radius too large", "?radius_m=99999999", "radius_m"},
		{"bad based_on_place_id", "?based_on_place_id=nope", "based_on_place_id"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newHandlerFixture(t)

			rr := f.request(t, uuid.NewString(), tc.query, true)

			assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
			var body struct {
				Message string            `json:"message"`
				Errors  map[string]string `json:"errors"`
			}
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
			assert.Contains(t, body.Errors, tc.field)
			f.service.AssertNotCalled(t, "SuggestForTrip", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestGetSuggestions_TripNotFound(t *testing.T) {
	f := newHandlerFixture(t)
	tripID := uuid.New()
	f.tripRepo.On("GetTrip", mock.Anything, tripID).Return(nil, nil)

	rr := f.request(t, tripID.String(), "", true)

	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestGetSuggestions_NotAMember(t *testing.T) {
	f := newHandlerFixture(t)
	trip := testTrip()
	f.tripRepo.On("GetTrip", mock.Anything, trip.ID).Return(trip, nil)
	f.tripRepo.On("IsMember", mock.Anything, trip.ID, f.userID).Return(false, nil)

	rr := f.request(t, trip.ID.String(), "", true)

	assert.Equal(t, http.StatusForbidden, rr.Code)
	f.service.AssertNotCalled(t, "SuggestForTrip", mock.Anything, mock.Anything, mock.Anything)
}

func TestGetSuggestions_ServiceFailure(t *testing.T) {
	f := newHandlerFixture(t)
	trip := testTrip()
	f.tripRepo.On("GetTrip", mock.Anything, trip.ID).Return(trip, nil)
	f.tripRepo.On("IsMember", mock.Anything, trip.ID, f.userID).Return(true, nil)
	f.service.On("SuggestForTrip", mock.Anything, trip, mock.Anything).
		Return(nil, errors.New("failed to retrieve place candidates: places api down"))

	rr := f.request(t, trip.ID.String(), "", true)

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	var body struct {
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Contains(t, body.Message, "places api down")
}

func TestGetSuggestions_Success(t *testing.T) {
	f := newHandlerFixture(t)
	trip := testTrip()
	collection := &types.SuggestedPlaceCollection{
		Items: []types.SuggestedPlace{{
			Name:     "Tasca",
			Category: "food",
			Score:    0.9,
			Reason:   "Matches your interest in food",
		}},
		Meta: map[string]interface{}{"trip_id": trip.ID.String(), "total": 1},
	}

	f.tripRepo.On("GetTrip", mock.Anything, trip.ID).Return(trip, nil)
	f.tripRepo.On("IsMember", mock.Anything, trip.ID, f.userID).Return(true, nil)
	f.service.On("SuggestForTrip", mock.Anything, trip, mock.MatchedBy(func(q types.PlaceSuggestionQuery) bool {
		return q.Limit == 5 && q.RadiusMeters == 3000 && q.Locale == "pl"
	})).Return(collection, nil)

	rr := f.request(t, trip.ID.String(), "?limit=5&locale=pl", true)

	assert.Equal(t, http.StatusOK, rr.Code)
	var body struct {
		Data []map[string]interface{} `json:"data"`
		Meta map[string]interface{}   `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Len(t, body.Data, 1)
	assert.Equal(t, "Tasca", body.Data[0]["name"])
	assert.Equal(t, "food", body.Data[0]["category"])
	assert.Equal(t, trip.ID.String(), body.Meta["trip_id"])
}
