package places

import (
	"context"
	"math"

	"github.com/tripmates/trip-planner-api/internal/types"
)

// CandidateProvider returns raw place candidates around an origin. Providers
// are black boxes to the advisor: it only relies on the returned records and
// propagates any error to its caller.
type CandidateProvider interface {
	GetCandidates(ctx context.Context, origin types.GeoPoint, radiusMeters int, tripCtx types.TripContext) ([]types.CandidatePlace, error)
}

const earthRadiusMeters = 6371000.0

// haversineMeters returns the great-circle distance between two points.
func haversineMeters(a, b types.GeoPoint) float64 {
	latA := a.Lat * math.Pi / 180
	latB := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(latA)*math.Cos(latB)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusMeters * math.Asin(math.Sqrt(h))
}
