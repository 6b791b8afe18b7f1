package redis

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/habitverse/habitverse-api/internal/domain/progress"
	"github.com/habitverse/habitverse-api/internal/domain/shared"
)

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCacheFromClient(client), mr
}

func TestCache_SetGet(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	type payload struct {
		Name string `json:"name"`
	}

	require.NoError(t, c.Set(ctx, "k", payload{Name: "walk"}, time.Minute))

	var got payload
	require.NoError(t, c.Get(ctx, "k", &got))
	assert.Equal(t, "walk", got.Name)

	mr.FastForward(2 * time.Minute)
	assert.ErrorIs(t, c.Get(ctx, "k", &got), ErrCacheMiss)
}

func TestCache_Validation(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	assert.ErrorIs(t, c.Set(ctx, "", 1, time.Minute), ErrCacheKeyEmpty)
	assert.ErrorIs(t, c.Set(ctx, "k", nil, time.Minute), ErrCacheNilValue)
	assert.ErrorIs(t, c.Set(ctx, "k", 1, -time.Second), ErrCacheInvalidTTL)
}

func TestCache_DeleteByPattern(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, AnalyticsKey("u1"), 1, time.Minute))
	require.NoError(t, c.Set(ctx, AnalyticsKey("u2"), 2, time.Minute))
	require.NoError(t, c.Set(ctx, "other", 3, time.Minute))

	require.NoError(t, c.DeleteByPattern(ctx, PrefixAnalytics+"*"))

	ok, err := c.Exists(ctx, AnalyticsKey("u1"))
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = c.Exists(ctx, "other")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestAnalyticsCache(t *testing.T) {
	c, _ := newTestCache(t)
	ac := NewAnalyticsCache(c, 0)
	ctx := context.Background()

	_, hit, err := ac.Get(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, hit)

	mood := 4
	report := &progress.Report{
		DailyData:        []progress.DailyEntry{{Date: "2024-05-01", Completions: 2, XPEarned: 30, Mood: &mood}},
		TotalCompletions: 2,
		TotalXP:          30,
		AvgMood:          4,
		AvgEnergy:        3,
	}
	require.NoError(t, ac.Set(ctx, "u1", report))

	got, hit, err := ac.Get(ctx, "u1")
	require.NoError(t, err)
	require.True(t, hit)
	assert.Equal(t, report, got)

	ttl, err := c.TTL(ctx, AnalyticsKey("u1"))
	require.NoError(t, err)
	assert.Equal(t, TTLAnalytics, ttl)

	require.NoError(t, ac.Invalidate(ctx, "u1"))
	_, hit, err = ac.Get(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestLocker_MutualExclusion(t *testing.T) {
	c, _ := newTestCache(t)
	locker := NewLocker(c, LockerConfig{TTL: time.Second, WaitTimeout: 2 * time.Second, PollInterval: time.Millisecond})
	ctx := context.Background()

	var (
		inside  int32
		maxSeen int32
		wg      sync.WaitGroup
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := locker.Lock(ctx, "user-1")
			if !assert.NoError(t, err) {
				return
			}
			n := atomic.AddInt32(&inside, 1)
			for {
				m := atomic.LoadInt32(&maxSeen)
				if n <= m || atomic.CompareAndSwapInt32(&maxSeen, m, n) {
					break
				}
			}
			time.Sleep(2 * time.Millisecond)
			atomic.AddInt32(&inside, -1)
			release()
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxSeen)
}

func TestLocker_BusyTimesOut(t *testing.T) {
	c, _ := newTestCache(t)
	locker := NewLocker(c, LockerConfig{TTL: time.Minute, WaitTimeout: 30 * time.Millisecond, PollInterval: 5 * time.Millisecond})
	ctx := context.Background()

	release, err := locker.Lock(ctx, "user-1")
	require.NoError(t, err)
	defer release()

	_, err = locker.Lock(ctx, "user-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrLockNotAcquired)
}

func TestLocker_ReleaseKeepsForeignLock(t *testing.T) {
	c, mr := newTestCache(t)
	locker := NewLocker(c, LockerConfig{TTL: time.Second, WaitTimeout: time.Second, PollInterval: time.Millisecond})
	ctx := context.Background()

	release, err := locker.Lock(ctx, "user-1")
	require.NoError(t, err)

	// the lock expires and another holder takes it
	mr.FastForward(2 * time.Second)
	require.NoError(t, mr.Set(LockKey("user-1"), "someone-else"))

	release()

	got, err := mr.Get(LockKey("user-1"))
	require.NoError(t, err)
	assert.Equal(t, "someone-else", got)
}
