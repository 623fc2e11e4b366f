package repositories

import (
	"context"

	"github.com/costnav/healthcare-cost-navigator/internal/domain/entities"
)

// BoundingBox is the coarse geographic pre-filter applied in SQL before exact
// distances are computed.
type BoundingBox struct {
	MinLat float64
	MaxLat float64
	MinLon float64
	MaxLon float64
}

// NearPoint orders candidates by approximate squared-degree distance from a
// point. Set on unbounded queries so the candidate cap keeps the nearest rows
// rather than the cheapest.
type NearPoint struct {
	Lat float64
	Lon float64
}

// ProviderQuery constrains a provider search. Codes match the numeric DRG
// prefix of the definition text; Patterns are case-insensitive substring
// matches against the definition. At least one of the two must be set.
type ProviderQuery struct {
	Codes    []string
	Patterns []string
	Box      *BoundingBox
	Near     *NearPoint
	Limit    int
}

// ProviderRepository is the read-only storage port for provider records.
type ProviderRepository interface {
	// Search returns providers matching the DRG constraint and bounding box.
	Search(ctx context.Context, q ProviderQuery) ([]*entities.Provider, error)

	// CoordinatesForZip returns the coordinates of any provider already
	// resolved in the given ZIP code, or nil when none exists.
	CoordinatesForZip(ctx context.Context, zipCode string) (*float64, *float64, error)

	// DRGDefinitions returns the distinct DRG definition strings in the
	// dataset, used to build the matcher dictionary at startup.
	DRGDefinitions(ctx context.Context) ([]string, error)

	// Count returns the number of provider rows.
	Count(ctx context.Context) (int64, error)
}

// RatingRepository is the read-only storage port for quality ratings.
type RatingRepository interface {
	// AverageByProviderIDs returns the mean rating per provider for the given
	// providers. Providers with no ratings are absent from the map.
	AverageByProviderIDs(ctx context.Context, providerIDs []string) (map[string]float64, error)

	// Count returns the number of rating rows.
	Count(ctx context.Context) (int64, error)
}

// ReadOnlyQueryExecutor executes a validated, generated SQL statement and
// returns rows as column-name → value maps. Only the ask pipeline uses it,
// and only with statements the safety validator accepted.
type ReadOnlyQueryExecutor interface {
	Query(ctx context.Context, sqlText string) ([]string, []map[string]interface{}, error)
}
