package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/costnav/healthcare-cost-navigator/internal/domain/entities"
	"github.com/costnav/healthcare-cost-navigator/internal/domain/providers"
	"github.com/costnav/healthcare-cost-navigator/internal/domain/repositories"
	"github.com/costnav/healthcare-cost-navigator/pkg/config"
)

type searchRepoStub struct {
	rows    []*entities.Provider
	err     error
	queries []repositories.ProviderQuery
}

func (s *searchRepoStub) Search(_ context.Context, q repositories.ProviderQuery) ([]*entities.Provider, error) {
	s.queries = append(s.queries, q)
	return s.rows, s.err
}

func (s *searchRepoStub) CoordinatesForZip(context.Context, string) (*float64, *float64, error) {
	return nil, nil, nil
}

func (s *searchRepoStub) DRGDefinitions(context.Context) ([]string, error) {
	return fixtureDefinitions, nil
}

func (s *searchRepoStub) Count(context.Context) (int64, error) { return int64(len(s.rows)), nil }

type ratingRepoStub struct {
	averages map[string]float64
}

func (s *ratingRepoStub) AverageByProviderIDs(_ context.Context, ids []string) (map[string]float64, error) {
	out := make(map[string]float64)
	for _, id := range ids {
		if avg, ok := s.averages[id]; ok {
			out[id] = avg
		}
	}
	return out, nil
}

func (s *ratingRepoStub) Count(context.Context) (int64, error) { return 0, nil }

type resolverStub struct {
	coords providers.Coordinates
	tier   providers.GeoTier
}

func (s *resolverStub) Resolve(context.Context, string) (providers.Coordinates, providers.GeoTier) {
	return s.coords, s.tier
}

var chelseaCenter = providers.Coordinates{Latitude: 40.7506, Longitude: -73.9972}

func fixtureProvider(id string, latOffset float64) *entities.Provider {
	lat := chelseaCenter.Latitude + latOffset
	lon := chelseaCenter.Longitude
	return &entities.Provider{
		ProviderID:            id,
		ProviderName:          "TEST MEDICAL CENTER " + id,
		ProviderCity:          "NEW YORK",
		ProviderState:         "NY",
		ProviderZipCode:       "10001",
		DRGDefinition:         fixtureDefinitions[0],
		TotalDischarges:       120,
		AverageCoveredCharges: 52000,
		Latitude:              &lat,
		Longitude:             &lon,
	}
}

func testSearchConfig() config.SearchConfig {
	return config.SearchConfig{DefaultRadiusKm: 40, MaxRadiusKm: 500, DefaultLimit: 20, MaxLimit: 50}
}

func newSearchService(repo *searchRepoStub, ratings *ratingRepoStub) *ProviderSearchService {
	return NewProviderSearchService(
		repo,
		ratings,
		&resolverStub{coords: chelseaCenter, tier: providers.GeoTierWellKnown},
		NewDRGMatcherService(fixtureDefinitions),
		NewRankingService(),
		testSearchConfig(),
		nil,
	)
}

func TestSearch_DirectHitWithinRadius(t *testing.T) {
	// ~12 km north of the center (1 degree latitude ≈ 111 km).
	repo := &searchRepoStub{rows: []*entities.Provider{fixtureProvider("330101", 12.0 / 111.0)}}
	ratings := &ratingRepoStub{averages: map[string]float64{"330101": 8.5}}
	svc := newSearchService(repo, ratings)

	result, err := svc.Search(context.Background(), entities.SearchCriteria{
		DRG: "470", ZipCode: "10001", RadiusKm: 25, Limit: 10,
	})

	require.NoError(t, err)
	require.Len(t, result.Providers, 1)
	top := result.Providers[0]
	assert.Equal(t, "330101", top.ProviderID)
	assert.InDelta(t, 12.0, top.DistanceKm, 0.5)
	require.NotNil(t, top.AverageRating)
	assert.Equal(t, 8.5, *top.AverageRating)
	assert.Greater(t, top.ValueScore, 0.0)
	assert.Equal(t, entities.FallbackNone, result.Fallback)
	assert.Equal(t, 25.0, result.RadiusKm)
}

func TestSearch_WidensRadiusWhenEmpty(t *testing.T) {
	// ~35 km away: outside the requested 25 km, inside the doubled radius.
	repo := &searchRepoStub{rows: []*entities.Provider{fixtureProvider("330102", 35.0 / 111.0)}}
	svc := newSearchService(repo, &ratingRepoStub{})

	result, err := svc.Search(context.Background(), entities.SearchCriteria{
		DRG: "470", ZipCode: "10001", RadiusKm: 25,
	})

	require.NoError(t, err)
	require.Len(t, result.Providers, 1)
	assert.Equal(t, entities.FallbackRadiusWidened, result.Fallback)
	assert.Equal(t, 50.0, result.RadiusKm)
}

func TestSearch_DropsRadiusAsLastResort(t *testing.T) {
	// ~600 km away: beyond every widened radius for a 25 km request.
	repo := &searchRepoStub{rows: []*entities.Provider{fixtureProvider("330103", 600.0 / 111.0)}}
	svc := newSearchService(repo, &ratingRepoStub{})

	result, err := svc.Search(context.Background(), entities.SearchCriteria{
		DRG: "470", ZipCode: "10001", RadiusKm: 25,
	})

	require.NoError(t, err)
	require.Len(t, result.Providers, 1)
	assert.Equal(t, entities.FallbackRadiusDropped, result.Fallback)
	assert.Greater(t, result.Providers[0].DistanceKm, 500.0)

	// The last query must carry no bounding box and pull nearest-first so the
	// candidate cap cannot drop the closest rows.
	last := repo.queries[len(repo.queries)-1]
	assert.Nil(t, last.Box)
	require.NotNil(t, last.Near)
	assert.Equal(t, chelseaCenter.Latitude, last.Near.Lat)
	assert.Equal(t, chelseaCenter.Longitude, last.Near.Lon)
}

func TestSearch_ExhaustedLadderReturnsEmptyNotError(t *testing.T) {
	repo := &searchRepoStub{}
	svc := newSearchService(repo, &ratingRepoStub{})

	result, err := svc.Search(context.Background(), entities.SearchCriteria{
		DRG: "470", ZipCode: "10001", RadiusKm: 25,
	})

	require.NoError(t, err)
	assert.Empty(t, result.Providers)
}

func TestSearch_UnmatchableProcedureReturnsEmptyWithoutQuerying(t *testing.T) {
	repo := &searchRepoStub{rows: []*entities.Provider{fixtureProvider("330104", 0)}}
	svc := newSearchService(repo, &ratingRepoStub{})

	result, err := svc.Search(context.Background(), entities.SearchCriteria{
		DRG: "zzzzqqqq xxxyyy", ZipCode: "10001", RadiusKm: 25,
	})

	require.NoError(t, err)
	assert.Empty(t, result.Providers)
	assert.Empty(t, repo.queries)
}

func TestSearch_AppliesDefaultsAndClampsLimit(t *testing.T) {
	rows := make([]*entities.Provider, 0, 60)
	for i := 0; i < 60; i++ {
		rows = append(rows, fixtureProvider(string(rune('A'+i%26))+string(rune('0'+i/26)), 0.01))
	}
	repo := &searchRepoStub{rows: rows}
	svc := newSearchService(repo, &ratingRepoStub{})

	result, err := svc.Search(context.Background(), entities.SearchCriteria{
		DRG: "470", ZipCode: "10001", Limit: 500,
	})

	require.NoError(t, err)
	assert.LessOrEqual(t, len(result.Providers), testSearchConfig().MaxLimit)
}

func TestSearch_TextInputMatchesViaSynonym(t *testing.T) {
	repo := &searchRepoStub{rows: []*entities.Provider{fixtureProvider("330105", 0.05)}}
	svc := newSearchService(repo, &ratingRepoStub{})

	result, err := svc.Search(context.Background(), entities.SearchCriteria{
		DRG: "knee replacement", ZipCode: "10001", RadiusKm: 25,
	})

	require.NoError(t, err)
	require.Len(t, result.Providers, 1)
	require.NotEmpty(t, repo.queries)
	assert.Contains(t, repo.queries[0].Codes, "470")
}
