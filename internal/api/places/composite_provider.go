package places

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/tripmates/trip-planner-api/internal/types"
)

var _ CandidateProvider = (*CompositeProvider)(nil)

// CompositeProvider fans out to multiple candidate sources concurrently and
// merges their results. Within one advisor call the pipeline stays
// sequential; the fan-out here only parallelizes independent sources.
type CompositeProvider struct {
	logger    *slog.Logger
	providers []CandidateProvider
}

func NewCompositeProvider(logger *slog.Logger, providers ...CandidateProvider) *CompositeProvider {
	return &CompositeProvider{
		logger:    logger,
		providers: providers,
	}
}

// GetCandidates queries every source; the first source error fails the whole
// retrieval (candidate data is core, unlike enhancement). Results are
// deduplicated by internal/external id and sorted by distance for a stable
// downstream order.
func (p *CompositeProvider) GetCandidates(ctx context.Context, origin types.GeoPoint, radiusMeters int, tripCtx types.TripContext) ([]types.CandidatePlace, error) {
	g, ctx := errgroup.WithContext(ctx)

	var mu sync.Mutex
	var all []types.CandidatePlace

	for _, provider := range p.providers {
		g.Go(func() error {
			candidates, err := provider.GetCandidates(ctx, origin, radiusMeters, tripCtx)
			if err != nil {
				return err
			}
			mu.Lock()
			all = append(all, candidates...)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := dedupe(all)
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].DistanceMeters < merged[j].DistanceMeters
	})

	p.logger.Debug("merged candidate sources",
		slog.Int("sources", len(p.providers)),
		slog.Int("raw", len(all)),
		slog.Int("merged", len(merged)))
	return merged, nil
}

func dedupe(candidates []types.CandidatePlace) []types.CandidatePlace {
	seen := make(map[string]bool, len(candidates))
	out := make([]types.CandidatePlace, 0, len(candidates))
	for _, c := range candidates {
		key := candidateKey(c)
		if key == "" {
			out = append(out, c)
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = true
		out = append(out, c)
	}
	return out
}

func candidateKey(c types.CandidatePlace) string {
	if c.InternalPlaceID != nil {
		return "internal:" + c.InternalPlaceID.String()
	}
	if c.ExternalID != nil {
		return *c.ExternalID
	}
	return ""
}
