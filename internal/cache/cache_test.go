package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

type cachedScore struct {
	POICount int     `json:"poi_count"`
	Score    float64 `json:"score"`
}

func TestNewClient(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb, err := NewClient(context.Background(), "redis://"+mr.Addr()+"/0")
	require.NoError(t, err)
	assert.NoError(t, rdb.Close())

	_, err = NewClient(context.Background(), "not a url")
	assert.Error(t, err)
}

func TestScoreCache_RoundTrip(t *testing.T) {
	ctx := context.Background()
	mr, rdb := newTestRedis(t)
	c := NewScoreCache(rdb, time.Minute)

	var got cachedScore
	ok, err := c.Get(ctx, 42, &got)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, 42, cachedScore{POICount: 7, Score: 3.5}))
	ok, err = c.Get(ctx, 42, &got)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, cachedScore{POICount: 7, Score: 3.5}, got)
	assert.Equal(t, time.Minute, mr.TTL("roadcrawl:score:42"))

	mr.FastForward(2 * time.Minute)
	ok, err = c.Get(ctx, 42, &got)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestScoreCache_Invalidate(t *testing.T) {
	ctx := context.Background()
	_, rdb := newTestRedis(t)
	c := NewScoreCache(rdb, 0)

	require.NoError(t, c.Set(ctx, 1, cachedScore{Score: 1}))
	require.NoError(t, c.Set(ctx, 2, cachedScore{Score: 2}))
	require.NoError(t, c.Invalidate(ctx, 1))
	require.NoError(t, c.Invalidate(ctx))

	var got cachedScore
	ok, _ := c.Get(ctx, 1, &got)
	assert.False(t, ok)
	ok, _ = c.Get(ctx, 2, &got)
	assert.True(t, ok)
}

func TestScoreCache_CorruptEntry(t *testing.T) {
	ctx := context.Background()
	mr, rdb := newTestRedis(t)
	require.NoError(t, mr.Set("roadcrawl:score:9", "{not json"))

	var got cachedScore
	_, err := NewScoreCache(rdb, 0).Get(ctx, 9, &got)
	assert.Error(t, err)
}

func TestDailyCap_TakeAndRemaining(t *testing.T) {
	ctx := context.Background()
	_, rdb := newTestRedis(t)
	c := NewDailyCap(rdb, 3)

	left, err := c.Remaining(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, left)

	ok, err := c.Take(ctx, 2)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.Take(ctx, 2)
	require.NoError(t, err)
	assert.False(t, ok, "refused take is released")

	left, _ = c.Remaining(ctx)
	assert.Equal(t, 1, left)

	ok, _ = c.Take(ctx, 1)
	assert.True(t, ok)
	left, _ = c.Remaining(ctx)
	assert.Equal(t, 0, left)
}

func TestDailyCap_SharedAcrossInstances(t *testing.T) {
	ctx := context.Background()
	_, rdb := newTestRedis(t)
	a := NewDailyCap(rdb, 2)
	b := NewDailyCap(rdb, 2)

	ok, _ := a.Take(ctx, 1)
	assert.True(t, ok)
	ok, _ = b.Take(ctx, 1)
	assert.True(t, ok)
	ok, _ = a.Take(ctx, 1)
	assert.False(t, ok)
}

func TestDailyCap_KeyedByUTCDay(t *testing.T) {
	ctx := context.Background()
	mr, rdb := newTestRedis(t)
	day := time.Date(2026, 6, 1, 23, 30, 0, 0, time.UTC)
	c := NewDailyCap(rdb, 1)
	c.now = func() time.Time { return day }

	ok, _ := c.Take(ctx, 1)
	require.True(t, ok)
	assert.True(t, mr.Exists("roadcrawl:places:daily:2026-06-01"))

	day = day.Add(time.Hour)
	ok, _ = c.Take(ctx, 1)
	assert.True(t, ok)
}

func TestDailyCap_Seed(t *testing.T) {
	ctx := context.Background()
	_, rdb := newTestRedis(t)
	c := NewDailyCap(rdb, 10)

	require.NoError(t, c.Seed(ctx, 8))
	require.NoError(t, c.Seed(ctx, 1), "existing counter is kept")

	left, err := c.Remaining(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, left)
}

func TestDailyCap_Unlimited(t *testing.T) {
	_, rdb := newTestRedis(t)
	c := NewDailyCap(rdb, 0)
	ok, err := c.Take(context.Background(), 1000)
	require.NoError(t, err)
	assert.True(t, ok)
	left, _ := c.Remaining(context.Background())
	assert.Equal(t, -1, left)
}
