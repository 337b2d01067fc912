package types

import (
	"github.com/google/uuid"
)

// PlaceSuggestionQuery carries the validated query parameters for a
// suggestion request. Built once by the handler, read-only afterwards.
type PlaceSuggestionQuery struct {
	BasedOnPlaceID *uuid.UUID `json:"based_on_place_id,omitempty"`
	Limit          int        `json:"limit"`
	RadiusMeters   int        `json:"radius_m"`
	Locale         string     `json:"locale"`
}

// GeoPoint is a WGS84 coordinate pair.
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// CandidatePlace is a raw place record proposed by a candidate provider,
// before category normalization and recommendability filtering.
type CandidatePlace struct {
	Source                string     `json:"source"`
	InternalPlaceID       *uuid.UUID `json:"internal_place_id,omitempty"`
	ExternalID            *string    `json:"external_id,omitempty"`
	Name                  string     `json:"name"`
	RawCategory           string     `json:"raw_category"`
	Category              string     `json:"category"`
	Rating                *float64   `json:"rating,omitempty"`
	ReviewsCount          *int       `json:"reviews_count,omitempty"`
	Location              GeoPoint   `json:"location"`
	DistanceMeters        float64    `json:"distance_m"`
	EstimatedVisitMinutes *int       `json:"estimated_visit_minutes,omitempty"`
}

// SuggestionActions holds the opaque payload a client echoes back to accept
// a suggestion (e.g. {"google_place_id": ...} or {"place_id": ...}).
type SuggestionActions struct {
	AddPayload map[string]interface{} `json:"add_payload"`
}

// SuggestedPlace is a scored, explained candidate returned to the caller.
type SuggestedPlace struct {
	Source                string            `json:"source"`
	InternalPlaceID       *uuid.UUID        `json:"internal_place_id,omitempty"`
	ExternalID            *string           `json:"external_id,omitempty"`
	Name                  string            `json:"name"`
	Category              string            `json:"category"`
	Rating                *float64          `json:"rating,omitempty"`
	ReviewsCount          *int              `json:"reviews_count,omitempty"`
	Location              GeoPoint          `json:"location"`
	DistanceMeters        float64           `json:"distance_m"`
	EstimatedVisitMinutes *int              `json:"estimated_visit_minutes,omitempty"`
	Score                 float64           `json:"score"`
	Reason                string            `json:"reason"`
	Actions               SuggestionActions `json:"actions"`
}

// SuggestedPlaceCollection is the snapshot returned by one advisor call.
// Items are sorted by score descending; len(Items) <= query limit.
type SuggestedPlaceCollection struct {
	Items []SuggestedPlace       `json:"data"`
	Meta  map[string]interface{} `json:"meta"`
}

// ScoredReason is one reasoner output, parallel to the candidate slice.
type ScoredReason struct {
	Score  float64 `json:"score"`
	Reason string  `json:"reason"`
}
