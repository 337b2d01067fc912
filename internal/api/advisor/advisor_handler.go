package advisor

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	appMiddleware "github.com/tripmates/trip-planner-api/app/middleware"
	"github.com/tripmates/trip-planner-api/app/observability/metrics"
	"github.com/tripmates/trip-planner-api/config"
	"github.com/tripmates/trip-planner-api/internal/api"
	"github.com/tripmates/trip-planner-api/internal/api/trips"
	"github.com/tripmates/trip-planner-api/internal/types"
)

type HandlerImpl struct {
	advisorService Service
	tripRepo       trips.Repository
	cfg            config.SuggestionsConfig
	metrics        *metrics.AppMetrics
	logger         *slog.Logger
}

// NewHandlerImpl creates the suggestions handler. appMetrics may be nil, in
// which case metric recording is skipped.
func NewHandlerImpl(advisorService Service, tripRepo trips.Repository, cfg config.SuggestionsConfig, appMetrics *metrics.AppMetrics, logger *slog.Logger) *HandlerImpl {
	return &HandlerImpl{
		advisorService: advisorService,
		tripRepo:       tripRepo,
		cfg:            cfg,
		metrics:        appMetrics,
		logger:         logger,
	}
}

// GetSuggestions handles GET /trips/{tripID}/places/suggestions.
func (h *HandlerImpl) GetSuggestions(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("AdvisorHandler").Start(r.Context(), "GetSuggestions", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/trips/{tripID}/places/suggestions"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "GetSuggestions"))

	userIDStr, ok := appMiddleware.GetUserIDFromContext(ctx)
	if !ok || userIDStr == "" {
		l.ErrorContext(ctx, "User ID not found in context")
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}
	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		l.ErrorContext(ctx, "Invalid user ID format", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid user ID format")
		return
	}
	span.SetAttributes(semconv.EnduserIDKey.String(userID.String()))

	tripID, err := uuid.Parse(chi.URLParam(r, "tripID"))
	if err != nil {
		l.ErrorContext(ctx, "Invalid trip ID format", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid trip ID format")
		return
	}
	l = l.With(slog.String("tripID", tripID.String()))

	query, fieldErrors := h.parseQuery(r)
	if len(fieldErrors) > 0 {
		l.DebugContext(ctx, "Suggestion query validation failed", slog.Any("errors", fieldErrors))
		api.ValidationErrorResponse(w, r, fieldErrors)
		return
	}

	trip, err := h.tripRepo.GetTrip(ctx, tripID)
	if err != nil {
		l.ErrorContext(ctx, "Failed to load trip", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, fmt.Sprintf("Failed to load trip: %s", err.Error()))
		return
	}
	if trip == nil {
		api.ErrorResponse(w, r, http.StatusNotFound, "Trip not found")
		return
	}

	isMember, err := h.tripRepo.IsMember(ctx, tripID, userID)
	if err != nil {
		l.ErrorContext(ctx, "Failed to check trip membership", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, fmt.Sprintf("Failed to check trip membership: %s", err.Error()))
		return
	}
	if !isMember {
		api.ErrorResponse(w, r, http.StatusForbidden, "You are not a member of this trip")
		return
	}

	start := time.Now()
	collection, err := h.advisorService.SuggestForTrip(ctx, trip, query)
	if err != nil {
		l.ErrorContext(ctx, "Failed to compute place suggestions", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, err.Error())
		return
	}

	if h.metrics != nil {
		h.metrics.SuggestionRequestsTotal.Add(ctx, 1)
		h.metrics.SuggestionDurationSeconds.Record(ctx, time.Since(start).Seconds())
		if cached, _ := collection.Meta["cached"].(bool); cached {
			h.metrics.SuggestionCacheHitsTotal.Add(ctx, 1)
		}
	}

	l.InfoContext(ctx, "Place suggestions returned", slog.Int("count", len(collection.Items)))
	api.WriteJSONResponse(w, r, http.StatusOK, collection)
}

// parseQuery applies defaults and bounds from configuration. Bound
// violations are collected as field-level errors for the 422 response; the
// core never sees an out-of-bounds query.
func (h *HandlerImpl) parseQuery(r *http.Request) (types.PlaceSuggestionQuery, map[string]string) {
	fieldErrors := make(map[string]string)

	query := types.PlaceSuggestionQuery{
		Limit:        h.cfg.DefaultLimit,
		RadiusMeters: h.cfg.DefaultRadiusM,
		Locale:       "en",
	}

	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 || limit > h.cfg.MaxLimit {
			fieldErrors["limit"] = fmt.Sprintf("limit must be an integer between 1 and %d", h.cfg.MaxLimit)
		} else {
			query.Limit = limit
		}
	}

	if raw := r.URL.Query().Get("radius_m"); raw != "" {
		radius, err := strconv.Atoi(raw)
		if err != nil || radius < h.cfg.MinRadiusM || radius > h.cfg.MaxRadiusM {
			fieldErrors["radius_m"] = fmt.Sprintf("radius_m must be an integer between %d and %d", h.cfg.MinRadiusM, h.cfg.MaxRadiusM)
		} else {
			query.RadiusMeters = radius
		}
	}

	if raw := r.URL.Query().Get("locale"); raw != "" {
		if len(raw) > 5 {
			fieldErrors["locale"] = "locale must be a short locale code"
		} else {
			query.Locale = raw
		}
	}

	if raw := r.URL.Query().Get("based_on_place_id"); raw != "" {
		placeID, err := uuid.Parse(raw)
		if err != nil {
			fieldErrors["based_on_place_id"] = "based_on_place_id must be a valid UUID"
		} else {
			query.BasedOnPlaceID = &placeID
		}
	}

	return query, fieldErrors
}
