package crawl

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/road-crawl-cli/internal/config"
)

func TestMemoryDailyCap(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryDailyCap(3, 1)

	ok, err := c.Take(ctx, 1)
	require.NoError(t, err)
	assert.True(t, ok)

	left, err := c.Remaining(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, left)

	ok, _ = c.Take(ctx, 2)
	assert.False(t, ok, "refused take reserves nothing")
	left, _ = c.Remaining(ctx)
	assert.Equal(t, 1, left)

	ok, _ = c.Take(ctx, 1)
	assert.True(t, ok)
	ok, _ = c.Take(ctx, 1)
	assert.False(t, ok)
}

func TestMemoryDailyCap_RollsOverAtUTCMidnight(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 5, 1, 23, 59, 0, 0, time.UTC)
	c := NewMemoryDailyCap(2, 0)
	c.now = func() time.Time { return now }
	c.day = dayKey(now)

	ok, _ := c.Take(ctx, 2)
	require.True(t, ok)
	ok, _ = c.Take(ctx, 1)
	assert.False(t, ok)

	now = now.Add(2 * time.Minute)
	ok, _ = c.Take(ctx, 1)
	assert.True(t, ok)
	left, _ := c.Remaining(ctx)
	assert.Equal(t, 1, left)
}

func TestMemoryDailyCap_Unlimited(t *testing.T) {
	c := NewMemoryDailyCap(0, 100)
	ok, err := c.Take(context.Background(), 1000)
	require.NoError(t, err)
	assert.True(t, ok)
	left, _ := c.Remaining(context.Background())
	assert.Equal(t, -1, left)
}

func TestStartOfDay(t *testing.T) {
	loc := time.FixedZone("EST", -5*3600)
	got := StartOfDay(time.Date(2026, 5, 1, 22, 0, 0, 0, loc))
	assert.Equal(t, time.Date(2026, 5, 2, 0, 0, 0, 0, time.UTC), got)
}

func TestBudget_Acquire(t *testing.T) {
	ctx := context.Background()
	b := NewBudget(config.RateLimitConfig{RequestsPerSecond: 1000, Burst: 5}, NewMemoryDailyCap(2, 0))

	require.NoError(t, b.Acquire(ctx))
	require.NoError(t, b.Acquire(ctx))
	err := b.Acquire(ctx)
	assert.True(t, errors.Is(err, ErrDailyCapReached))

	left, err := b.Remaining(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, left)
}

func TestBudget_AcquireHonorsContext(t *testing.T) {
	b := NewBudget(config.RateLimitConfig{RequestsPerSecond: 0.001, Burst: 1}, nil)
	require.NoError(t, b.Acquire(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, b.Acquire(ctx))

	left, err := b.Remaining(context.Background())
	require.NoError(t, err)
	assert.Equal(t, -1, left)
}

func TestBudget_CancelledWaitKeepsDailyAllowance(t *testing.T) {
	b := NewBudget(config.RateLimitConfig{RequestsPerSecond: 0.001, Burst: 1}, NewMemoryDailyCap(5, 0))
	require.NoError(t, b.Acquire(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	require.Error(t, b.Acquire(ctx))

	left, err := b.Remaining(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, left)
}
