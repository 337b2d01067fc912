package metrics

import (
	"log"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// AppMetrics holds the application's metric instruments.
type AppMetrics struct {
	SuggestionRequestsTotal   metric.Int64Counter
	SuggestionDurationSeconds metric.Float64Histogram
	SuggestionCacheHitsTotal  metric.Int64Counter
	EnhancerFailuresTotal     metric.Int64Counter
}

var (
	appMetrics *AppMetrics
	once       sync.Once
)

// InitAppMetrics initializes the global metric instruments once, using the
// meter from the globally configured MeterProvider.
func InitAppMetrics() {
	once.Do(func() {
		meter := otel.GetMeterProvider().Meter("trip-planner-api")
		var err error
		m := &AppMetrics{}

		m.SuggestionRequestsTotal, err = meter.Int64Counter(
			"suggestion_requests_total",
			metric.WithDescription("Total number of place suggestion requests completed"),
			metric.WithUnit("{request}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create suggestion_requests_total: %v", err)
		}

		m.SuggestionDurationSeconds, err = meter.Float64Histogram(
			"suggestion_duration_seconds",
			metric.WithDescription("Duration of place suggestion requests in seconds"),
			metric.WithUnit("s"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create suggestion_duration_seconds: %v", err)
		}

		m.SuggestionCacheHitsTotal, err = meter.Int64Counter(
			"suggestion_cache_hits_total",
			metric.WithDescription("Place suggestion responses served from cache"),
			metric.WithUnit("{hit}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create suggestion_cache_hits_total: %v", err)
		}

		m.EnhancerFailuresTotal, err = meter.Int64Counter(
			"enhancer_failures_total",
			metric.WithDescription("Reason enhancer calls that fell back to default reasons"),
			metric.WithUnit("{error}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create enhancer_failures_total: %v", err)
		}

		appMetrics = m
	})
}

// Get returns the globally initialized AppMetrics instance. Panics if
// InitAppMetrics was not called first.
func Get() *AppMetrics {
	if appMetrics == nil {
		panic("metrics instruments not initialized. Call metrics.InitAppMetrics() first.")
	}
	return appMetrics
}
