package places

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tripmates/trip-planner-api/internal/types"
)

const googleSource = "google_places"

var _ CandidateProvider = (*GoogleProvider)(nil)

// GoogleProvider fetches candidates from the Google Places Nearby Search
// endpoint. ExternalID is prefixed "google:" so enhancement and accept
// payloads can tell sources apart.
type GoogleProvider struct {
	logger  *slog.Logger
	client  *http.Client
	baseURL string
	apiKey  string
}

func NewGoogleProvider(apiKey, baseURL string, timeout time.Duration, logger *slog.Logger) *GoogleProvider {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &GoogleProvider{
		logger:  logger,
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
		apiKey:  apiKey,
	}
}

type googleNearbyResponse struct {
	Status  string `json:"status"`
	Results []struct {
		PlaceID  string   `json:"place_id"`
		Name     string   `json:"name"`
		Types    []string `json:"types"`
		Rating   *float64 `json:"rating"`
		Ratings  *int     `json:"user_ratings_total"`
		Geometry struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
	ErrorMessage string `json:"error_message"`
}

func (p *GoogleProvider) GetCandidates(ctx context.Context, origin types.GeoPoint, radiusMeters int, tripCtx types.TripContext) ([]types.CandidatePlace, error) {
	ctx, span := otel.Tracer("PlacesCandidateProvider").Start(ctx, "GoogleProvider.GetCandidates", trace.WithAttributes(
		attribute.Float64("origin.lat", origin.Lat),
		attribute.Float64("origin.lon", origin.Lon),
		attribute.Int("radius_m", radiusMeters),
	))
	defer span.End()

	params := url.Values{}
	params.Set("location", fmt.Sprintf("%.6f,%.6f", origin.Lat, origin.Lon))
	params.Set("radius", fmt.Sprintf("%d", radiusMeters))
	params.Set("key", p.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to build places request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		p.logger.ErrorContext(ctx, "Google Places request failed", slog.Any("error", err))
		span.RecordError(err)
		return nil, fmt.Errorf("google places request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("google places returned status %d", resp.StatusCode)
		span.RecordError(err)
		return nil, err
	}

	var body googleNearbyResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to decode places response: %w", err)
	}
	if body.Status != "OK" && body.Status != "ZERO_RESULTS" {
		err := fmt.Errorf("google places status %s: %s", body.Status, body.ErrorMessage)
		span.RecordError(err)
		return nil, err
	}

	candidates := make([]types.CandidatePlace, 0, len(body.Results))
	for _, res := range body.Results {
		externalID := "google:" + res.PlaceID
		rawCategory := ""
		if len(res.Types) > 0 {
			rawCategory = res.Types[0]
		}
		loc := types.GeoPoint{Lat: res.Geometry.Location.Lat, Lon: res.Geometry.Location.Lng}
		candidates = append(candidates, types.CandidatePlace{
			Source:         googleSource,
			ExternalID:     &externalID,
			Name:           res.Name,
			RawCategory:    rawCategory,
			Rating:         res.Rating,
			ReviewsCount:   res.Ratings,
			Location:       loc,
			DistanceMeters: haversineMeters(origin, loc),
		})
	}

	span.SetAttributes(attribute.Int("candidates.count", len(candidates)))
	span.SetStatus(codes.Ok, "Google candidates retrieved")
	return candidates, nil
}
