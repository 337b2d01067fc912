package preferences

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var _ Aggregator = (*PostgresAggregator)(nil)

// Aggregator exposes a trip's collective taste as a category -> weight map.
// Weights are averages of the members' per-category scores, in [0,1].
type Aggregator interface {
	GetGroupPreferences(ctx context.Context, tripID uuid.UUID) (map[string]float64, error)
}

// Connection is the slice of pgxpool.Pool the repository uses. Narrowed so
// tests can substitute a pgxmock pool.
type Connection interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type PostgresAggregator struct {
	logger *slog.Logger
	db     Connection
}

func NewPostgresAggregator(db Connection, logger *slog.Logger) *PostgresAggregator {
	return &PostgresAggregator{
		logger: logger,
		db:     db,
	}
}

// GetGroupPreferences averages the stored member preference rows per
// category. A trip with no stored preferences yields an empty map, not an
// error; the reasoner treats absent categories as zero weight.
func (r *PostgresAggregator) GetGroupPreferences(ctx context.Context, tripID uuid.UUID) (map[string]float64, error) {
	ctx, span := otel.Tracer("PreferenceAggregator").Start(ctx, "GetGroupPreferences", trace.WithAttributes(
		attribute.String("trip.id", tripID.String()),
	))
	defer span.End()

	query := `
        SELECT category, AVG(weight)::float8
        FROM member_preferences
        WHERE trip_id = $1
        GROUP BY category`

	rows, err := r.db.Query(ctx, query, tripID)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to query member preferences", slog.Any("error", err))
		span.RecordError(err)
		return nil, fmt.Errorf("failed to query member preferences: %w", err)
	}
	defer rows.Close()

	prefs := make(map[string]float64)
	for rows.Next() {
		var category string
		var weight float64
		if err := rows.Scan(&category, &weight); err != nil {
			r.logger.ErrorContext(ctx, "Failed to scan preference row", slog.Any("error", err))
			span.RecordError(err)
			return nil, fmt.Errorf("failed to scan preference row: %w", err)
		}
		prefs[category] = weight
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed reading preference rows: %w", err)
	}

	span.SetAttributes(attribute.Int("preferences.count", len(prefs)))
	span.SetStatus(codes.Ok, "Group preferences aggregated")
	return prefs, nil
}
