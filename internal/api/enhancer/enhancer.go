package enhancer

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"google.golang.org/genai"

	"github.com/tripmates/trip-planner-api/config"
)

const defaultTemperature = 0.3

var _ ReasonEnhancer = (*GeminiEnhancer)(nil)

// EnhancePlace is the compact view of a suggestion sent to the model.
type EnhancePlace struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category"`
}

// ReasonEnhancer augments suggestion reasons with short LLM-generated text.
// The contract is strictly best-effort: implementations return a (possibly
// empty) mapping from normalized place id to reason text and NEVER an error.
// Callers fall back to the reasoner's default reasons for any id not in the
// mapping.
type ReasonEnhancer interface {
	EnhancePlaces(ctx context.Context, places []EnhancePlace, preferences map[string]float64, tripContextText, locale string) map[string]string
}

// TextGenerator is the slice of the Gemini client the enhancer needs.
type TextGenerator interface {
	GenerateContent(ctx context.Context, prompt string, config *genai.GenerateContentConfig) (string, error)
}

type GeminiEnhancer struct {
	logger    *slog.Logger
	generator TextGenerator
	cfg       config.EnhancerConfig
}

// NewGeminiEnhancer builds the enhancer. generator may be nil when no API
// credential is configured; EnhancePlaces then degrades to an empty mapping.
func NewGeminiEnhancer(generator TextGenerator, cfg config.EnhancerConfig, logger *slog.Logger) *GeminiEnhancer {
	return &GeminiEnhancer{
		logger:    logger,
		generator: generator,
		cfg:       cfg,
	}
}

// EnhancePlaces sends one batched prompt covering up to MaxPlaces places and
// the preference weights above the relevance threshold. Any failure (missing
// credential, timeout, transport error, malformed reply) is logged and
// swallowed; correctness of the pipeline never depends on this call.
func (e *GeminiEnhancer) EnhancePlaces(ctx context.Context, places []EnhancePlace, preferences map[string]float64, tripContextText, locale string) map[string]string {
	ctx, span := otel.Tracer("ReasonEnhancer").Start(ctx, "EnhancePlaces")
	defer span.End()
	span.SetAttributes(attribute.Int("places.count", len(places)))

	l := e.logger.With(slog.String("component", "GeminiEnhancer"))

	if e.generator == nil {
		l.DebugContext(ctx, "Enhancer disabled: no text generator configured")
		return map[string]string{}
	}
	if len(places) == 0 {
		l.DebugContext(ctx, "Enhancer skipped: no places to enhance")
		return map[string]string{}
	}

	if max := e.cfg.MaxPlaces; max > 0 && len(places) > max {
		places = places[:max]
	}

	timeout := e.cfg.Timeout
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	prompt := buildEnhancementPrompt(places, e.relevantPreferences(preferences), tripContextText, locale)

	raw, err := e.generator.GenerateContent(ctx, prompt, &genai.GenerateContentConfig{
		Temperature: genai.Ptr[float32](defaultTemperature),
	})
	if err != nil {
		l.WarnContext(ctx, "Enhancer call failed, falling back to default reasons", slog.Any("error", err))
		return map[string]string{}
	}

	reasons, err := parseEnhancementResponse(raw)
	if err != nil {
		l.WarnContext(ctx, "Enhancer response unusable, falling back to default reasons", slog.Any("error", err))
		return map[string]string{}
	}

	// Keep only ids we actually asked about, normalized the same way the
	// advisor matches them back onto suggestions.
	known := make(map[string]bool, len(places))
	for _, p := range places {
		known[NormalizeID(p.ID)] = true
	}
	out := make(map[string]string, len(reasons))
	for id, reason := range reasons {
		id = NormalizeID(id)
		reason = strings.TrimSpace(reason)
		if known[id] && reason != "" {
			out[id] = reason
		}
	}

	l.DebugContext(ctx, "Enhanced reasons generated", slog.Int("count", len(out)))
	return out
}

// relevantPreferences keeps only weights above the configured threshold so
// the prompt stays compact.
func (e *GeminiEnhancer) relevantPreferences(preferences map[string]float64) map[string]float64 {
	threshold := e.cfg.PreferenceThreshold
	out := make(map[string]float64)
	for category, weight := range preferences {
		if weight > threshold {
			out[category] = weight
		}
	}
	return out
}

// NormalizeID strips the external-source prefix ("google:123" -> "123") so
// ids match regardless of which side added the prefix.
func NormalizeID(id string) string {
	if i := strings.Index(id, ":"); i >= 0 {
		return id[i+1:]
	}
	return id
}

// parseEnhancementResponse extracts the id -> reason mapping from the model
// reply, tolerating markdown fences and surrounding prose.
func parseEnhancementResponse(raw string) (map[string]string, error) {
	cleaned := cleanJSONResponse(raw)

	var payload struct {
		Reasons map[string]string `json:"reasons"`
	}
	if err := json.Unmarshal([]byte(cleaned), &payload); err != nil {
		return nil, err
	}
	if payload.Reasons == nil {
		return nil, errMissingReasons
	}
	return payload.Reasons, nil
}
