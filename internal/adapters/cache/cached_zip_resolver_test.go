package cache

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/costnav/healthcare-cost-navigator/internal/domain/providers"
)

type countingResolver struct {
	calls  int
	coords providers.Coordinates
	tier   providers.GeoTier
}

func (r *countingResolver) Resolve(ctx context.Context, zipCode string) (providers.Coordinates, providers.GeoTier) {
	r.calls++
	return r.coords, r.tier
}

type memoryCache struct {
	data map[string][]byte
	err  error
}

func newMemoryCache() *memoryCache {
	return &memoryCache{data: map[string][]byte{}}
}

func (c *memoryCache) Get(ctx context.Context, key string) ([]byte, error) {
	if c.err != nil {
		return nil, c.err
	}
	v, ok := c.data[key]
	if !ok {
		return nil, errors.New("cache miss")
	}
	return v, nil
}

func (c *memoryCache) Set(ctx context.Context, key string, value []byte, expirationSeconds int) error {
	if c.err != nil {
		return c.err
	}
	c.data[key] = value
	return nil
}

func (c *memoryCache) Delete(ctx context.Context, key string) error {
	delete(c.data, key)
	return nil
}

func (c *memoryCache) Exists(ctx context.Context, key string) (bool, error) {
	_, ok := c.data[key]
	return ok, nil
}

func TestCachedZipResolver_SecondLookupServedFromCache(t *testing.T) {
	inner := &countingResolver{
		coords: providers.Coordinates{Latitude: 40.7506, Longitude: -73.9972},
		tier:   providers.GeoTierProviderData,
	}
	resolver := NewCachedZipResolver(inner, newMemoryCache())

	coords, tier := resolver.Resolve(context.Background(), "10001")
	require.Equal(t, providers.GeoTierProviderData, tier)

	again, againTier := resolver.Resolve(context.Background(), "10001")

	assert.Equal(t, 1, inner.calls)
	assert.Equal(t, coords, again)
	assert.Equal(t, tier, againTier)
}

func TestCachedZipResolver_DistinctZipsResolveSeparately(t *testing.T) {
	inner := &countingResolver{tier: providers.GeoTierPrefixRegion}
	resolver := NewCachedZipResolver(inner, newMemoryCache())

	resolver.Resolve(context.Background(), "10001")
	resolver.Resolve(context.Background(), "60611")

	assert.Equal(t, 2, inner.calls)
}

func TestCachedZipResolver_CacheFailureFallsThrough(t *testing.T) {
	inner := &countingResolver{
		coords: providers.Coordinates{Latitude: 41.8930, Longitude: -87.6229},
		tier:   providers.GeoTierWellKnown,
	}
	resolver := NewCachedZipResolver(inner, &memoryCache{err: errors.New("redis down")})

	coords, tier := resolver.Resolve(context.Background(), "60611")

	assert.Equal(t, 1, inner.calls)
	assert.Equal(t, inner.coords, coords)
	assert.Equal(t, providers.GeoTierWellKnown, tier)
}
