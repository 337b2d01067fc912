package places

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tripmates/trip-planner-api/internal/types"
)

// Connection is the slice of pgxpool.Pool this package uses. Narrowed so
// tests can substitute a pgxmock pool.
type Connection interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var _ Repository = (*PostgresPlaceRepo)(nil)

// Repository looks up locally stored place entities. The advisor uses it to
// resolve based_on_place_id into a query origin.
type Repository interface {
	GetPlace(ctx context.Context, placeID uuid.UUID) (*types.Place, error)
}

type PostgresPlaceRepo struct {
	logger *slog.Logger
	db     Connection
}

func NewPostgresPlaceRepo(db Connection, logger *slog.Logger) *PostgresPlaceRepo {
	return &PostgresPlaceRepo{
		logger: logger,
		db:     db,
	}
}

// GetPlace returns nil, nil when the place does not exist; the advisor then
// falls back to the trip's start location.
func (r *PostgresPlaceRepo) GetPlace(ctx context.Context, placeID uuid.UUID) (*types.Place, error) {
	ctx, span := otel.Tracer("PlaceRepository").Start(ctx, "GetPlace", trace.WithAttributes(
		attribute.String("place.id", placeID.String()),
	))
	defer span.End()

	query := `
        SELECT id, name, category, rating, reviews_count, lat, lon
        FROM places
        WHERE id = $1`

	var place types.Place
	err := r.db.QueryRow(ctx, query, placeID).Scan(
		&place.ID, &place.Name, &place.Category, &place.Rating,
		&place.ReviewsCount, &place.Lat, &place.Lon,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to fetch place", slog.Any("error", err))
		span.RecordError(err)
		return nil, fmt.Errorf("failed to fetch place %s: %w", placeID, err)
	}
	return &place, nil
}
