package types

import (
	"time"

	"github.com/google/uuid"
)

// Trip is the aggregate the suggestion pipeline works against. The trip
// itself is owned by the (non-core) trips CRUD layer; the advisor only reads
// identity, start coordinates and descriptive context.
type Trip struct {
	ID          uuid.UUID  `json:"id"`
	OwnerID     uuid.UUID  `json:"owner_id"`
	Name        string     `json:"name"`
	Destination string     `json:"destination"`
	StartLat    *float64   `json:"start_lat,omitempty"`
	StartLon    *float64   `json:"start_lon,omitempty"`
	StartDate   *time.Time `json:"start_date,omitempty"`
	EndDate     *time.Time `json:"end_date,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// StartLocation returns the trip's stored origin when both coordinates are set.
func (t *Trip) StartLocation() (GeoPoint, bool) {
	if t.StartLat == nil || t.StartLon == nil {
		return GeoPoint{}, false
	}
	return GeoPoint{Lat: *t.StartLat, Lon: *t.StartLon}, true
}

// TripContext is the compact descriptive view passed to the reasoner and to
// the enhancer prompt.
type TripContext struct {
	TripID      uuid.UUID `json:"trip_id"`
	Destination string    `json:"destination"`
	MemberCount int       `json:"member_count"`
}

// ContextText renders the trip context as a single prompt-friendly line.
func (c TripContext) ContextText() string {
	if c.Destination == "" {
		return "group trip"
	}
	return "group trip to " + c.Destination
}

// Place is a locally stored place entity, used to resolve based_on_place_id
// into a query origin.
type Place struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Category     string    `json:"category"`
	Lat          float64   `json:"lat"`
	Lon          float64   `json:"lon"`
	Rating       *float64  `json:"rating,omitempty"`
	ReviewsCount *int      `json:"reviews_count,omitempty"`
}
