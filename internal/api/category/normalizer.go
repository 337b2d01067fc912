package category

import (
	"strings"
)

// DefaultFallback is used when no fallback category is configured.
const DefaultFallback = "other"

// recommendable is the closed set of categories worth suggesting. This is a
// product policy decision, independent of the configurable mapping table:
// a raw label may normalize successfully (e.g. to "shopping") and still be
// dropped from suggestions.
var recommendable = map[string]bool{
	"food":       true,
	"nightlife":  true,
	"museum":     true,
	"nature":     true,
	"attraction": true,
	"other":      true,
}

// Normalizer maps raw provider category labels (hundreds of source-specific
// types) onto the small closed taxonomy the reasoner and clients understand.
// The mapping table is loaded once at startup and never mutated.
type Normalizer struct {
	mapping  map[string]string
	fallback string
}

// NewNormalizer builds a normalizer from a raw->canonical mapping table.
// Mapping keys are canonicalized (trimmed, lowercased) on construction so
// lookups stay a single map access.
func NewNormalizer(mapping map[string]string, fallback string) *Normalizer {
	if fallback == "" {
		fallback = DefaultFallback
	}
	m := make(map[string]string, len(mapping))
	for raw, category := range mapping {
		m[strings.ToLower(strings.TrimSpace(raw))] = category
	}
	return &Normalizer{mapping: m, fallback: fallback}
}

// Normalize returns the canonical category for a raw label. Empty,
// whitespace-only and unmapped inputs all map to the fallback; Normalize
// never fails.
func (n *Normalizer) Normalize(rawCategory string) string {
	key := strings.ToLower(strings.TrimSpace(rawCategory))
	if key == "" {
		return n.fallback
	}
	if category, ok := n.mapping[key]; ok {
		return category
	}
	return n.fallback
}

// IsRecommendable reports whether a normalized category is suggestion-worthy.
func IsRecommendable(category string) bool {
	return recommendable[category]
}
