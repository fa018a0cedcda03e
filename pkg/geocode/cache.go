package geocode

import (
	"context"
	"crypto/sha256"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"

	"github.com/airscope/coverage-cli/internal/geo"
)

// CacheStore persists geocode results keyed by normalized address hash.
// Implemented by the application's result store.
type CacheStore interface {
	// GetCachedGeocode returns the cached point for key, or nil when absent
	// or expired.
	GetCachedGeocode(ctx context.Context, key string) (*Point, error)
	SetCachedGeocode(ctx context.Context, key string, pt Point, ttl time.Duration) error
}

// Cached decorates a Client with a persistent lookup cache. Cache failures
// are logged and the lookup falls through to the inner client; the cache is
// an optimization, never a correctness dependency.
type Cached struct {
	inner Client
	store CacheStore
	ttl   time.Duration
}

// NewCached wraps inner with a CacheStore-backed geocode cache.
func NewCached(inner Client, store CacheStore, ttl time.Duration) *Cached {
	return &Cached{inner: inner, store: store, ttl: ttl}
}

// Geocode implements Client.
func (c *Cached) Geocode(ctx context.Context, address string) (Point, error) {
	key := cacheKey(address)

	cached, err := c.store.GetCachedGeocode(ctx, key)
	if err != nil {
		zap.L().Warn("geocode: cache read failed", zap.Error(err))
	} else if cached != nil {
		return *cached, nil
	}

	pt, err := c.inner.Geocode(ctx, address)
	if err != nil {
		return Point{}, err
	}

	if err := c.store.SetCachedGeocode(ctx, key, pt, c.ttl); err != nil {
		zap.L().Warn("geocode: cache write failed", zap.Error(err))
	}
	return pt, nil
}

// AddressesInBBox implements Client. Bounding-box fetches are not cached.
func (c *Cached) AddressesInBBox(ctx context.Context, bbox geo.BBox, limit int) ([]Address, error) {
	return c.inner.AddressesInBBox(ctx, bbox, limit)
}

// cacheKey returns SHA-256 hex of the NFKC-normalized, trimmed, lowercased
// address, so formatting variants of the same address share a cache entry.
func cacheKey(address string) string {
	normalized := strings.ToLower(strings.TrimSpace(norm.NFKC.String(address)))
	h := sha256.Sum256([]byte(normalized))
	return fmt.Sprintf("%x", h)
}
