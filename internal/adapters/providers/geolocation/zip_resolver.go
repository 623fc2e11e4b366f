package geolocation

import (
	"context"
	"math"

	"github.com/costnav/healthcare-cost-navigator/internal/domain/providers"
	"github.com/costnav/healthcare-cost-navigator/internal/domain/repositories"
	"github.com/costnav/healthcare-cost-navigator/internal/infrastructure/observability"
)

const earthRadiusKm = 6371

// fallbackCoordinates is the last-resort center (midtown Manhattan). Tier
// GeoTierFallback marks results from here as distance-ranking-only.
var fallbackCoordinates = providers.Coordinates{Latitude: 40.7128, Longitude: -74.0060}

// wellKnownZips maps dense metro ZIP codes to precise coordinates. Built once
// at startup, read-only after.
var wellKnownZips = map[string]providers.Coordinates{
	"10001": {Latitude: 40.7506, Longitude: -73.9972}, // Manhattan - Chelsea
	"10016": {Latitude: 40.7454, Longitude: -73.9781}, // Manhattan - Murray Hill
	"10032": {Latitude: 40.8388, Longitude: -73.9427}, // Manhattan - Washington Heights
	"10451": {Latitude: 40.8201, Longitude: -73.9252}, // Bronx
	"11201": {Latitude: 40.6945, Longitude: -73.9910}, // Brooklyn Heights
	"19104": {Latitude: 39.9597, Longitude: -75.2025}, // Philadelphia - University City
	"02115": {Latitude: 42.3429, Longitude: -71.0929}, // Boston - Longwood
	"60611": {Latitude: 41.8930, Longitude: -87.6229}, // Chicago - Streeterville
	"77030": {Latitude: 29.7070, Longitude: -95.4017}, // Houston - Medical Center
	"90033": {Latitude: 34.0506, Longitude: -118.2097}, // Los Angeles - Boyle Heights
	"94143": {Latitude: 37.7631, Longitude: -122.4586}, // San Francisco - Parnassus
	"98195": {Latitude: 47.6498, Longitude: -122.3076}, // Seattle - University District
	"30322": {Latitude: 33.7930, Longitude: -84.3240}, // Atlanta - Emory
	"33136": {Latitude: 25.7876, Longitude: -80.2119}, // Miami - Health District
	"75235": {Latitude: 32.8343, Longitude: -96.8436}, // Dallas - Medical District
	"80045": {Latitude: 39.7442, Longitude: -104.8381}, // Aurora - Anschutz
	"20007": {Latitude: 38.9123, Longitude: -77.0715}, // Washington DC - Georgetown
	"85054": {Latitude: 33.6569, Longitude: -111.9568}, // Phoenix - Mayo
}

// zipPrefixRegions maps 3-digit ZIP prefixes to metro centroids, the coarse
// tier used when neither the well-known table nor provider data resolves.
var zipPrefixRegions = map[string]providers.Coordinates{
	"100": {Latitude: 40.7128, Longitude: -74.0060},  // New York NY
	"104": {Latitude: 40.8448, Longitude: -73.8648},  // Bronx NY
	"112": {Latitude: 40.6782, Longitude: -73.9442},  // Brooklyn NY
	"191": {Latitude: 39.9526, Longitude: -75.1652},  // Philadelphia PA
	"021": {Latitude: 42.3601, Longitude: -71.0589},  // Boston MA
	"606": {Latitude: 41.8781, Longitude: -87.6298},  // Chicago IL
	"770": {Latitude: 29.7604, Longitude: -95.3698},  // Houston TX
	"900": {Latitude: 34.0522, Longitude: -118.2437}, // Los Angeles CA
	"941": {Latitude: 37.7749, Longitude: -122.4194}, // San Francisco CA
	"981": {Latitude: 47.6062, Longitude: -122.3321}, // Seattle WA
	"303": {Latitude: 33.7490, Longitude: -84.3880},  // Atlanta GA
	"331": {Latitude: 25.7617, Longitude: -80.1918},  // Miami FL
	"752": {Latitude: 32.7767, Longitude: -96.7970},  // Dallas TX
	"802": {Latitude: 39.7392, Longitude: -104.9903}, // Denver CO
	"200": {Latitude: 38.9072, Longitude: -77.0369},  // Washington DC
	"850": {Latitude: 33.4484, Longitude: -112.0740}, // Phoenix AZ
}

// ZipResolver resolves ZIP codes through an ordered fallback chain: well-known
// table, coordinates reused from provider rows, 3-digit prefix centroid, fixed
// fallback. Resolution never fails; the tier reports how precise the result is.
type ZipResolver struct {
	providerRepo repositories.ProviderRepository
}

// NewZipResolver creates a new ZIP resolver backed by the provider repository.
func NewZipResolver(providerRepo repositories.ProviderRepository) providers.ZipResolver {
	return &ZipResolver{providerRepo: providerRepo}
}

// Resolve returns coordinates for a ZIP code and the tier that produced them.
func (r *ZipResolver) Resolve(ctx context.Context, zipCode string) (providers.Coordinates, providers.GeoTier) {
	if coords, ok := wellKnownZips[zipCode]; ok {
		return coords, providers.GeoTierWellKnown
	}

	if r.providerRepo != nil {
		lat, lon, err := r.providerRepo.CoordinatesForZip(ctx, zipCode)
		if err != nil {
			observability.LoggerFromContext(ctx).Warn().Err(err).
				Str("zip", zipCode).
				Msg("zip coordinate lookup failed, falling through to prefix region")
		} else if lat != nil && lon != nil {
			return providers.Coordinates{Latitude: *lat, Longitude: *lon}, providers.GeoTierProviderData
		}
	}

	if len(zipCode) >= 3 {
		if coords, ok := zipPrefixRegions[zipCode[:3]]; ok {
			return coords, providers.GeoTierPrefixRegion
		}
	}

	return fallbackCoordinates, providers.GeoTierFallback
}

// DistanceKm computes the great-circle distance between two points using the
// haversine formula.
func DistanceKm(a, b providers.Coordinates) float64 {
	lat1 := a.Latitude * math.Pi / 180
	lat2 := b.Latitude * math.Pi / 180
	dLat := (b.Latitude - a.Latitude) * math.Pi / 180
	dLon := (b.Longitude - a.Longitude) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return earthRadiusKm * c
}

// BoundingBoxAround returns a box covering radiusKm around a center, used as
// the coarse SQL pre-filter before exact distances are computed. Longitude
// degrees shrink with latitude; the box errs wide rather than clipping valid
// candidates.
func BoundingBoxAround(center providers.Coordinates, radiusKm float64) repositories.BoundingBox {
	latDelta := radiusKm / 111.0
	cosLat := math.Cos(center.Latitude * math.Pi / 180)
	if cosLat < 0.1 {
		cosLat = 0.1
	}
	lonDelta := radiusKm / (111.0 * cosLat)

	return repositories.BoundingBox{
		MinLat: center.Latitude - latDelta,
		MaxLat: center.Latitude + latDelta,
		MinLon: center.Longitude - lonDelta,
		MaxLon: center.Longitude + lonDelta,
	}
}
