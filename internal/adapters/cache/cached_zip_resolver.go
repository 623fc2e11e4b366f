package cache

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/costnav/healthcare-cost-navigator/internal/domain/providers"
	"github.com/costnav/healthcare-cost-navigator/internal/infrastructure/observability"
)

// ZIP coordinates never change, but provider-data resolutions can improve as
// rows gain coordinates, so the entry expires rather than living forever.
const zipResolutionTTL = 86400 // 24 hours

// CachedZipResolver wraps a ZipResolver with caching. The provider-data tier
// hits the database per lookup; every other tier is an in-memory table, so
// only resolved results are worth storing.
type CachedZipResolver struct {
	resolver providers.ZipResolver
	cache    providers.CacheProvider
}

// NewCachedZipResolver creates a caching decorator around a ZIP resolver.
func NewCachedZipResolver(resolver providers.ZipResolver, cache providers.CacheProvider) providers.ZipResolver {
	return &CachedZipResolver{resolver: resolver, cache: cache}
}

type cachedResolution struct {
	Coordinates providers.Coordinates `json:"coordinates"`
	Tier        providers.GeoTier     `json:"tier"`
}

func zipCacheKey(zipCode string) string {
	return fmt.Sprintf("geo:zip:%s", zipCode)
}

// Resolve returns coordinates for a ZIP code, consulting the cache first.
func (r *CachedZipResolver) Resolve(ctx context.Context, zipCode string) (providers.Coordinates, providers.GeoTier) {
	key := zipCacheKey(zipCode)

	if cached, err := r.cache.Get(ctx, key); err == nil && len(cached) > 0 {
		var entry cachedResolution
		if err := json.Unmarshal(cached, &entry); err == nil {
			return entry.Coordinates, entry.Tier
		}
	}

	coords, tier := r.resolver.Resolve(ctx, zipCode)

	if data, err := json.Marshal(cachedResolution{Coordinates: coords, Tier: tier}); err == nil {
		if err := r.cache.Set(ctx, key, data, zipResolutionTTL); err != nil {
			observability.LoggerFromContext(ctx).Debug().Err(err).
				Str("zip", zipCode).
				Msg("zip resolution cache write failed")
		}
	}

	return coords, tier
}
