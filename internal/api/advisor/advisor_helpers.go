package advisor

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/tripmates/trip-planner-api/internal/api/enhancer"
	"github.com/tripmates/trip-planner-api/internal/types"
)

// generateSuggestionCacheKey hashes trip identity, trip start location, the
// aggregated preference snapshot and every query field. Identical inputs
// always map to the same key; a moved trip start or changed preferences
// produce a new one.
func generateSuggestionCacheKey(trip *types.Trip, preferences map[string]float64, query types.PlaceSuggestionQuery) string {
	var b strings.Builder

	fmt.Fprintf(&b, "trip:%s", trip.ID)
	if origin, ok := trip.StartLocation(); ok {
		fmt.Fprintf(&b, "|start:%.6f,%.6f", origin.Lat, origin.Lon)
	}

	categories := make([]string, 0, len(preferences))
	for c := range preferences {
		categories = append(categories, c)
	}
	sort.Strings(categories)
	for _, c := range categories {
		fmt.Fprintf(&b, "|%s=%.4f", c, preferences[c])
	}

	if query.BasedOnPlaceID != nil {
		fmt.Fprintf(&b, "|based_on:%s", query.BasedOnPlaceID)
	}
	fmt.Fprintf(&b, "|limit:%d|radius:%d|locale:%s", query.Limit, query.RadiusMeters, query.Locale)

	sum := sha256.Sum256([]byte(b.String()))
	return "suggestions:" + hex.EncodeToString(sum[:])
}

// suggestionID is the identifier the enhancer and accept payloads key on:
// the external id when the candidate came from an outside source, otherwise
// the internal place id.
func suggestionID(c types.CandidatePlace) string {
	if c.ExternalID != nil {
		return *c.ExternalID
	}
	if c.InternalPlaceID != nil {
		return c.InternalPlaceID.String()
	}
	return ""
}

// addPayload is the opaque map a client echoes back to accept a suggestion.
func addPayload(c types.CandidatePlace) map[string]interface{} {
	if c.InternalPlaceID != nil {
		return map[string]interface{}{"place_id": c.InternalPlaceID.String()}
	}
	if c.ExternalID != nil {
		return map[string]interface{}{"google_place_id": enhancer.NormalizeID(*c.ExternalID)}
	}
	return map[string]interface{}{}
}

// withMeta returns a shallow copy of the collection with one extra meta
// entry. Cached payloads are shared between requests, so meta is never
// mutated in place.
func withMeta(collection *types.SuggestedPlaceCollection, key string, value interface{}) *types.SuggestedPlaceCollection {
	meta := make(map[string]interface{}, len(collection.Meta)+1)
	for k, v := range collection.Meta {
		meta[k] = v
	}
	meta[key] = value
	return &types.SuggestedPlaceCollection{
		Items: collection.Items,
		Meta:  meta,
	}
}
