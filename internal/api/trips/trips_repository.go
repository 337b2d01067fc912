package trips

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

var _ Repository = (*PostgresTripRepo)(nil)

// Repository exposes the read side of trips the suggestion pipeline needs:
// identity, start location and the membership check backing the 403 policy.
type Repository interface {
	GetTrip(ctx context.Context, tripID uuid.UUID) (*types.Trip, error)
	IsMember(ctx context.Context, tripID, userID uuid.UUID) (bool, error)
	MemberCount(ctx context.Context, tripID uuid.UUID) (int, error)
}

// Connection is the slice of pgxpool.Pool this repository uses.
type Connection interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type PostgresTripRepo struct {
	logger *slog.Logger
	db     Connection
}

func NewPostgresTripRepo(db Connection, logger *slog.Logger) *PostgresTripRepo {
	return &PostgresTripRepo{
		logger: logger,
		db:     db,
	}
}

// GetTrip returns nil, nil when the trip does not exist.
func (r *PostgresTripRepo) GetTrip(ctx context.Context, tripID uuid.UUID) (*types.Trip, error) {
	ctx, span := otel.Tracer("TripRepository").Start(ctx, "GetTrip", trace.WithAttributes(
		attribute.String("trip.id", tripID.String()),
	))
	defer span.End()

	query := `
        SELECT id, owner_id, name, destination, start_lat, start_lon, start_date, end_date, created_at
        FROM trips
        WHERE id = $1`

	var trip types.Trip
	err := r.db.QueryRow(ctx, query, tripID).Scan(
		&trip.ID, &trip.OwnerID, &trip.Name, &trip.Destination,
		&trip.StartLat, &trip.StartLon, &trip.StartDate, &trip.EndDate, &trip.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to fetch trip", slog.Any("error", err))
		span.RecordError(err)
		return nil, fmt.Errorf("failed to fetch trip %s: %w", tripID, err)
	}
	return &trip, nil
}

// IsMember reports whether the user owns the trip or appears in its member
// list.
func (r *PostgresTripRepo) IsMember(ctx context.Context, tripID, userID uuid.UUID) (bool, error) {
	ctx, span := otel.Tracer("TripRepository").Start(ctx, "IsMember")
	defer span.End()

	query := `
        SELECT EXISTS (
            SELECT 1 FROM trips WHERE id = $1 AND owner_id = $2
            UNION
            SELECT 1 FROM trip_members WHERE trip_id = $1 AND user_id = $2
        )`

	var isMember bool
	if err := r.db.QueryRow(ctx, query, tripID, userID).Scan(&isMember); err != nil {
		r.logger.ErrorContext(ctx, "Failed to check trip membership", slog.Any("error", err))
		span.RecordError(err)
		return false, fmt.Errorf("failed to check trip membership: %w", err)
	}
	return isMember, nil
}

// MemberCount feeds the trip context handed to the reasoner and enhancer.
func (r *PostgresTripRepo) MemberCount(ctx context.Context, tripID uuid.UUID) (int, error) {
	ctx, span := otel.Tracer("TripRepository").Start(ctx, "MemberCount")
	defer span.End()

	var count int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM trip_members WHERE trip_id = $1`, tripID).Scan(&count)
	if err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("failed to count trip members: %w", err)
	}
	return count, nil
}
