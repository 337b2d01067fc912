package places

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tripmates/trip-planner-api/internal/types"
)

const internalSource = "internal"

var _ CandidateProvider = (*PostgresProvider)(nil)

// PostgresProvider serves candidates from the locally stored places table.
type PostgresProvider struct {
	logger        *slog.Logger
	db            Connection
	maxCandidates int
}

func NewPostgresProvider(db Connection, maxCandidates int, logger *slog.Logger) *PostgresProvider {
	if maxCandidates <= 0 {
		maxCandidates = 60
	}
	return &PostgresProvider{
		logger:        logger,
		db:            db,
		maxCandidates: maxCandidates,
	}
}

func (p *PostgresProvider) GetCandidates(ctx context.Context, origin types.GeoPoint, radiusMeters int, tripCtx types.TripContext) ([]types.CandidatePlace, error) {
	ctx, span := otel.Tracer("PlacesCandidateProvider").Start(ctx, "PostgresProvider.GetCandidates", trace.WithAttributes(
		attribute.Float64("origin.lat", origin.Lat),
		attribute.Float64("origin.lon", origin.Lon),
		attribute.Int("radius_m", radiusMeters),
	))
	defer span.End()

	// Haversine in SQL; the 1.1 bounding-box factor keeps the index usable
	// while the precise distance predicate does the final cut.
	query := `
        SELECT id, name, category, rating, reviews_count, lat, lon, estimated_visit_minutes,
               2 * 6371000 * asin(sqrt(
                   pow(sin(radians(lat - $1) / 2), 2) +
                   cos(radians($1)) * cos(radians(lat)) *
                   pow(sin(radians(lon - $2) / 2), 2)
               )) AS distance_m
        FROM places
        WHERE lat BETWEEN $1 - degrees($3 * 1.1 / 6371000.0) AND $1 + degrees($3 * 1.1 / 6371000.0)
          AND lon BETWEEN $2 - degrees($3 * 1.1 / (6371000.0 * cos(radians($1)))) AND $2 + degrees($3 * 1.1 / (6371000.0 * cos(radians($1))))
          AND 2 * 6371000 * asin(sqrt(
                   pow(sin(radians(lat - $1) / 2), 2) +
                   cos(radians($1)) * cos(radians(lat)) *
                   pow(sin(radians(lon - $2) / 2), 2)
               )) <= $3
        ORDER BY distance_m
        LIMIT $4`

	rows, err := p.db.Query(ctx, query, origin.Lat, origin.Lon, float64(radiusMeters), p.maxCandidates)
	if err != nil {
		p.logger.ErrorContext(ctx, "Failed to query nearby places", slog.Any("error", err))
		span.RecordError(err)
		return nil, fmt.Errorf("failed to query nearby places: %w", err)
	}
	defer rows.Close()

	var candidates []types.CandidatePlace
	for rows.Next() {
		var c types.CandidatePlace
		var place types.Place
		if err := rows.Scan(&place.ID, &place.Name, &place.Category, &place.Rating,
			&place.ReviewsCount, &place.Lat, &place.Lon, &c.EstimatedVisitMinutes, &c.DistanceMeters); err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("failed to scan place row: %w", err)
		}
		id := place.ID
		c.Source = internalSource
		c.InternalPlaceID = &id
		c.Name = place.Name
		c.RawCategory = place.Category
		c.Rating = place.Rating
		c.ReviewsCount = place.ReviewsCount
		c.Location = types.GeoPoint{Lat: place.Lat, Lon: place.Lon}
		candidates = append(candidates, c)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed reading place rows: %w", err)
	}

	span.SetAttributes(attribute.Int("candidates.count", len(candidates)))
	span.SetStatus(codes.Ok, "Internal candidates retrieved")
	return candidates, nil
}
