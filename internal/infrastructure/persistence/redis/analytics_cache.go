package redis

import (
	"context"
	"errors"
	"time"

	"github.com/habitverse/habitverse-api/internal/domain/progress"
)

// AnalyticsCache stores analytics reports per user.
type AnalyticsCache struct {
	cache *Cache
	ttl   time.Duration
}

// NewAnalyticsCache creates a new AnalyticsCache. A non-positive ttl means TTLAnalytics.
func NewAnalyticsCache(cache *Cache, ttl time.Duration) *AnalyticsCache {
	if ttl <= 0 {
		ttl = TTLAnalytics
	}
	return &AnalyticsCache{cache: cache, ttl: ttl}
}

// Get returns the cached report. A miss is (nil, false, nil).
func (a *AnalyticsCache) Get(ctx context.Context, userID string) (*progress.Report, bool, error) {
	var r progress.Report
	if err := a.cache.Get(ctx, AnalyticsKey(userID), &r); err != nil {
		if errors.Is(err, ErrCacheMiss) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return &r, true, nil
}

// Set caches the report for the configured TTL.
func (a *AnalyticsCache) Set(ctx context.Context, userID string, r *progress.Report) error {
	if r == nil {
		return nil
	}
	return a.cache.Set(ctx, AnalyticsKey(userID), r, a.ttl)
}

// Invalidate drops the user's cached report.
func (a *AnalyticsCache) Invalidate(ctx context.Context, userID string) error {
	return a.cache.Delete(ctx, AnalyticsKey(userID))
}

// InvalidateAll clears every cached report.
func (a *AnalyticsCache) InvalidateAll(ctx context.Context) error {
	return a.cache.DeleteByPattern(ctx, PrefixAnalytics+"*")
}
