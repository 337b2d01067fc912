package container

import (
	"context"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"

	database "github.com/tripmates/trip-planner-api/app/db"
	"github.com/tripmates/trip-planner-api/app/observability/metrics"
	"github.com/tripmates/trip-planner-api/config"
	"github.com/tripmates/trip-planner-api/internal/api/advisor"
	"github.com/tripmates/trip-planner-api/internal/api/category"
	"github.com/tripmates/trip-planner-api/internal/api/enhancer"
	generativeAI "github.com/tripmates/trip-planner-api/internal/api/generative_ai"
	"github.com/tripmates/trip-planner-api/internal/api/places"
	"github.com/tripmates/trip-planner-api/internal/api/preferences"
	"github.com/tripmates/trip-planner-api/internal/api/reasoner"
	"github.com/tripmates/trip-planner-api/internal/api/trips"
)

// Container holds all application dependencies
type Container struct {
	Config         *config.Config
	Logger         *slog.Logger
	Pool           *pgxpool.Pool
	AdvisorHandler *advisor.HandlerImpl
}

// NewContainer initializes and returns a new dependency container
func NewContainer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Container, error) {
	dbConfig, err := database.NewDatabaseConfig(cfg, logger)
	if err != nil {
		logger.Error("Failed to generate database config", slog.Any("error", err))
		return nil, err
	}

	pool, err := database.Init(dbConfig.ConnectionURL, logger)
	if err != nil {
		logger.Error("Failed to initialize database pool", slog.Any("error", err))
		return nil, err
	}

	metrics.InitAppMetrics()

	sugCfg := cfg.Suggestions

	tripRepo := trips.NewPostgresTripRepo(pool, logger)
	placeRepo := places.NewPostgresPlaceRepo(pool, logger)
	prefsAggregator := preferences.NewPostgresAggregator(pool, logger)

	// Candidate sources: Postgres is always on, Google Places joins the
	// composite only when a key is configured.
	providers := []places.CandidateProvider{
		places.NewPostgresProvider(pool, sugCfg.Places.MaxCandidates, logger),
	}
	if apiKey := os.Getenv("GOOGLE_PLACES_API_KEY"); apiKey != "" {
		providers = append(providers, places.NewGoogleProvider(
			apiKey, sugCfg.Places.GoogleBaseURL, sugCfg.Places.GoogleTimeout, logger))
	} else {
		logger.Warn("GOOGLE_PLACES_API_KEY not set, suggestions use internal places only")
	}
	provider := places.NewCompositeProvider(logger, providers...)

	normalizer := category.NewNormalizer(sugCfg.CategoryMapping, sugCfg.FallbackCategory)
	placeReasoner := reasoner.NewReasonerImpl(logger)

	// The enhancer degrades to default reasons when Gemini is not
	// configured or unreachable, so a missing key is not fatal.
	var generator enhancer.TextGenerator
	if apiKey := os.Getenv("GOOGLE_GEMINI_API_KEY"); apiKey != "" {
		aiClient, aiErr := generativeAI.NewAIClient(ctx, apiKey, sugCfg.Enhancer.Model)
		if aiErr != nil {
			logger.Warn("Failed to initialize Gemini client, enhancement disabled", slog.Any("error", aiErr))
		} else {
			generator = aiClient
		}
	} else {
		logger.Warn("GOOGLE_GEMINI_API_KEY not set, enhancement disabled")
	}
	reasonEnhancer := enhancer.NewGeminiEnhancer(generator, sugCfg.Enhancer, logger)

	advisorService := advisor.NewServiceImpl(
		sugCfg,
		prefsAggregator,
		provider,
		placeRepo,
		tripRepo,
		normalizer,
		placeReasoner,
		reasonEnhancer,
		advisor.NewMemoryCache(sugCfg.CacheTTL),
		logger,
	)
	advisorHandler := advisor.NewHandlerImpl(advisorService, tripRepo, sugCfg, metrics.Get(), logger)

	return &Container{
		Config:         cfg,
		Logger:         logger,
		Pool:           pool,
		AdvisorHandler: advisorHandler,
	}, nil
}

// Close releases all resources held by the container
func (c *Container) Close() {
	if c.Pool != nil {
		c.Pool.Close()
	}
}

// WaitForDB waits for the database to be ready
func (c *Container) WaitForDB(ctx context.Context) bool {
	return database.WaitForDB(ctx, c.Pool, c.Logger)
}

// RunMigrations runs database migrations
func (c *Container) RunMigrations(connectionURL string) error {
	return database.RunMigrations(connectionURL, c.Logger)
}
