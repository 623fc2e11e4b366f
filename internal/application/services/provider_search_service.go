package services

import (
	"context"
	"errors"
	"sync"

	"github.com/costnav/healthcare-cost-navigator/internal/adapters/providers/geolocation"
	"github.com/costnav/healthcare-cost-navigator/internal/domain/entities"
	"github.com/costnav/healthcare-cost-navigator/internal/domain/providers"
	"github.com/costnav/healthcare-cost-navigator/internal/domain/repositories"
	"github.com/costnav/healthcare-cost-navigator/internal/infrastructure/observability"
	"github.com/costnav/healthcare-cost-navigator/pkg/config"
)

// radiusMultipliers drive the widen-and-retry ladder before the procedure
// filter is relaxed and finally the radius dropped.
var radiusMultipliers = []float64{2, 4}

// ProviderSearchService coordinates ZIP resolution, procedure matching, the
// storage query, and ranking into the provider-search operation.
type ProviderSearchService struct {
	providerRepo repositories.ProviderRepository
	ratingRepo   repositories.RatingRepository
	zipResolver  providers.ZipResolver
	matcher      *DRGMatcherService
	ranking      *RankingService
	search       config.SearchConfig
	metrics      *observability.Metrics
}

func NewProviderSearchService(
	providerRepo repositories.ProviderRepository,
	ratingRepo repositories.RatingRepository,
	zipResolver providers.ZipResolver,
	matcher *DRGMatcherService,
	ranking *RankingService,
	search config.SearchConfig,
	metrics *observability.Metrics,
) *ProviderSearchService {
	return &ProviderSearchService{
		providerRepo: providerRepo,
		ratingRepo:   ratingRepo,
		zipResolver:  zipResolver,
		matcher:      matcher,
		ranking:      ranking,
		search:       search,
		metrics:      metrics,
	}
}

// Search runs the full pipeline and, when the initial query is empty, walks the
// fallback ladder: widen the radius, relax the procedure match, drop the radius
// and take the nearest rows. An exhausted ladder yields an empty result, never
// an error.
func (s *ProviderSearchService) Search(ctx context.Context, criteria entities.SearchCriteria) (*entities.SearchResult, error) {
	log := observability.LoggerFromContext(ctx)
	criteria = s.applyDefaults(criteria)

	// ZIP resolution and procedure matching are independent.
	var (
		wg       sync.WaitGroup
		center   providers.Coordinates
		geoTier  providers.GeoTier
		match    DRGMatch
		matchErr error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		center, geoTier = s.zipResolver.Resolve(ctx, criteria.ZipCode)
	}()
	go func() {
		defer wg.Done()
		match, matchErr = s.matcher.Match(criteria.DRG)
	}()
	wg.Wait()

	if matchErr != nil {
		if !errors.Is(matchErr, ErrNoMatch) {
			return nil, matchErr
		}
		// No strict match: go straight to the broadest procedure filter.
		match, matchErr = s.matcher.MatchBroad(criteria.DRG)
		if matchErr != nil {
			log.Info().Str("drg", criteria.DRG).Msg("no drg definition matches input")
			return &entities.SearchResult{Providers: []entities.RankedProvider{}, RadiusKm: criteria.RadiusKm}, nil
		}
	}

	if geoTier.Approximate() {
		log.Debug().
			Str("zip", criteria.ZipCode).
			Str("geo_tier", string(geoTier)).
			Msg("search center resolved approximately")
	}

	radius := criteria.RadiusKm
	ranked, err := s.queryWithinRadius(ctx, match.Codes, center, radius, criteria)
	if err != nil {
		return nil, err
	}
	fallbackDepth := 0

	if len(ranked) == 0 {
		for _, mult := range radiusMultipliers {
			widened := criteria.RadiusKm * mult
			if widened > s.search.MaxRadiusKm {
				widened = s.search.MaxRadiusKm
			}
			fallbackDepth++
			ranked, err = s.queryWithinRadius(ctx, match.Codes, center, widened, criteria)
			if err != nil {
				return nil, err
			}
			if len(ranked) > 0 {
				radius = widened
				observability.RecordSearchFallbackDepth(ctx, s.metrics, fallbackDepth)
				return &entities.SearchResult{Providers: ranked, Fallback: entities.FallbackRadiusWidened, RadiusKm: radius}, nil
			}
			if widened == s.search.MaxRadiusKm {
				break
			}
		}

		// Relax the procedure filter at the widest radius reached.
		if broad, broadErr := s.matcher.MatchBroad(criteria.DRG); broadErr == nil && len(broad.Codes) > len(match.Codes) {
			fallbackDepth++
			widest := minFloat(criteria.RadiusKm*radiusMultipliers[len(radiusMultipliers)-1], s.search.MaxRadiusKm)
			ranked, err = s.queryWithinRadius(ctx, broad.Codes, center, widest, criteria)
			if err != nil {
				return nil, err
			}
			if len(ranked) > 0 {
				observability.RecordSearchFallbackDepth(ctx, s.metrics, fallbackDepth)
				return &entities.SearchResult{Providers: ranked, Fallback: entities.FallbackDRGRelaxed, RadiusKm: widest}, nil
			}
			match = broad
		}

		// Last rung: ignore the radius and return the nearest matches.
		fallbackDepth++
		ranked, err = s.queryNearest(ctx, match.Codes, center, criteria)
		if err != nil {
			return nil, err
		}
		observability.RecordSearchFallbackDepth(ctx, s.metrics, fallbackDepth)
		if len(ranked) == 0 {
			return &entities.SearchResult{Providers: []entities.RankedProvider{}, RadiusKm: criteria.RadiusKm}, nil
		}
		return &entities.SearchResult{Providers: ranked, Fallback: entities.FallbackRadiusDropped, RadiusKm: criteria.RadiusKm}, nil
	}

	return &entities.SearchResult{Providers: ranked, RadiusKm: radius}, nil
}

func (s *ProviderSearchService) applyDefaults(criteria entities.SearchCriteria) entities.SearchCriteria {
	if criteria.RadiusKm <= 0 {
		criteria.RadiusKm = s.search.DefaultRadiusKm
	}
	if criteria.RadiusKm > s.search.MaxRadiusKm {
		criteria.RadiusKm = s.search.MaxRadiusKm
	}
	if criteria.Limit <= 0 {
		criteria.Limit = s.search.DefaultLimit
	}
	if criteria.Limit > s.search.MaxLimit {
		criteria.Limit = s.search.MaxLimit
	}
	if criteria.Intent == "" {
		criteria.Intent = entities.IntentBestValue
	}
	return criteria
}

// queryWithinRadius issues a bounding-box query, computes exact distances, and
// keeps only candidates inside the radius before ranking.
func (s *ProviderSearchService) queryWithinRadius(
	ctx context.Context,
	codes []string,
	center providers.Coordinates,
	radiusKm float64,
	criteria entities.SearchCriteria,
) ([]entities.RankedProvider, error) {
	box := geolocation.BoundingBoxAround(center, radiusKm)
	rows, err := s.providerRepo.Search(ctx, repositories.ProviderQuery{Codes: codes, Box: &box})
	if err != nil {
		return nil, err
	}

	candidates := make([]entities.RankedProvider, 0, len(rows))
	for _, p := range rows {
		if p.Latitude == nil || p.Longitude == nil {
			continue
		}
		d := geolocation.DistanceKm(center, providers.Coordinates{Latitude: *p.Latitude, Longitude: *p.Longitude})
		if d > radiusKm {
			continue
		}
		candidates = append(candidates, entities.RankedProvider{Provider: *p, DistanceKm: d})
	}
	return s.finish(ctx, candidates, criteria)
}

// queryNearest ignores the radius constraint entirely and returns the nearest
// matching providers. The candidate pull is ordered by distance from the
// center so the cap cannot drop close rows.
func (s *ProviderSearchService) queryNearest(
	ctx context.Context,
	codes []string,
	center providers.Coordinates,
	criteria entities.SearchCriteria,
) ([]entities.RankedProvider, error) {
	rows, err := s.providerRepo.Search(ctx, repositories.ProviderQuery{
		Codes: codes,
		Near:  &repositories.NearPoint{Lat: center.Latitude, Lon: center.Longitude},
	})
	if err != nil {
		return nil, err
	}

	candidates := make([]entities.RankedProvider, 0, len(rows))
	for _, p := range rows {
		if p.Latitude == nil || p.Longitude == nil {
			continue
		}
		d := geolocation.DistanceKm(center, providers.Coordinates{Latitude: *p.Latitude, Longitude: *p.Longitude})
		candidates = append(candidates, entities.RankedProvider{Provider: *p, DistanceKm: d})
	}
	return s.finish(ctx, candidates, criteria)
}

// finish attaches average ratings, ranks by the active intent, and truncates to
// the requested limit.
func (s *ProviderSearchService) finish(ctx context.Context, candidates []entities.RankedProvider, criteria entities.SearchCriteria) ([]entities.RankedProvider, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(candidates))
	seen := make(map[string]bool)
	for _, c := range candidates {
		if !seen[c.ProviderID] {
			seen[c.ProviderID] = true
			ids = append(ids, c.ProviderID)
		}
	}

	ratings, err := s.ratingRepo.AverageByProviderIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range candidates {
		if avg, ok := ratings[candidates[i].ProviderID]; ok {
			v := avg
			candidates[i].AverageRating = &v
		}
	}

	ranked := s.ranking.Rank(candidates, criteria.Intent)
	if len(ranked) > criteria.Limit {
		ranked = ranked[:criteria.Limit]
	}
	return ranked, nil
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
