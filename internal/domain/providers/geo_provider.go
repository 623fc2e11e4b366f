package providers

import "context"

// Coordinates represents geographical coordinates
type Coordinates struct {
	Latitude  float64
	Longitude float64
}

// GeoTier identifies which fallback tier resolved a ZIP code. The later the
// tier, the coarser the coordinate.
type GeoTier string

const (
	GeoTierWellKnown    GeoTier = "well_known"
	GeoTierProviderData GeoTier = "provider_data"
	GeoTierPrefixRegion GeoTier = "prefix_region"
	GeoTierFallback     GeoTier = "fallback"
)

// Approximate reports whether the tier is too coarse for anything beyond
// distance ranking.
func (t GeoTier) Approximate() bool {
	return t == GeoTierPrefixRegion || t == GeoTierFallback
}

// ZipResolver resolves a ZIP code to coordinates. Resolution is total: every
// input yields a coordinate, with the tier telling the caller how precise it
// is.
type ZipResolver interface {
	Resolve(ctx context.Context, zipCode string) (Coordinates, GeoTier)
}
