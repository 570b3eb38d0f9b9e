package monitoring

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/road-crawl-cli/internal/model"
)

var testNow = time.Date(2025, 6, 15, 18, 0, 0, 0, time.UTC)

func session(status model.SessionStatus, age time.Duration, found int) model.CrawlSession {
	return model.CrawlSession{
		ID:              "s",
		RoadID:          1,
		Status:          status,
		BusinessesFound: found,
		CreatedAt:       testNow.Add(-age),
	}
}

func newTestCollector(src Source, dailyLimit int) *Collector {
	c := NewCollector(src, nil, dailyLimit)
	c.now = func() time.Time { return testNow }
	return c
}

func TestCollector_Collect(t *testing.T) {
	src := &mockSource{
		sessions: []model.CrawlSession{
			session(model.SessionCompleted, time.Hour, 12),
			session(model.SessionCompleted, 2*time.Hour, 8),
			session(model.SessionFailed, 3*time.Hour, 0),
			session(model.SessionProcessing, time.Minute, 0),
			session(model.SessionFailed, 48*time.Hour, 0),
		},
		window:    map[string]int{"minimal": 1000, "comprehensive": 500},
		today:     map[string]int{"minimal": 400, "comprehensive": 100},
		todayFrom: time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC),
	}

	snap, err := newTestCollector(src, 1000).Collect(context.Background(), 24)
	require.NoError(t, err)

	assert.Equal(t, 4, snap.SessionsTotal)
	assert.Equal(t, 2, snap.SessionsCompleted)
	assert.Equal(t, 1, snap.SessionsFailed)
	assert.Equal(t, 1, snap.SessionsActive)
	assert.Equal(t, 20, snap.BusinessesFound)
	assert.InDelta(t, 1.0/3.0, snap.CrawlFailRate, 1e-9)

	assert.Equal(t, 1500, snap.APICalls)
	assert.InDelta(t, 35.0+20.0, snap.SpendUSD, 1e-9)

	assert.Equal(t, 500, snap.CallsToday)
	assert.InDelta(t, 0.5, snap.BudgetUsage, 1e-9)
	assert.Equal(t, 24, snap.LookbackHours)
	assert.Equal(t, testNow, snap.CollectedAt)
}

func TestCollector_UncappedBudget(t *testing.T) {
	src := &mockSource{window: map[string]int{"basic": 10}}

	snap, err := newTestCollector(src, 0).Collect(context.Background(), 24)
	require.NoError(t, err)
	assert.Zero(t, snap.BudgetUsage)
	assert.Zero(t, snap.CrawlFailRate)
	assert.Equal(t, 10, snap.CallsToday)
}

func TestCollector_Errors(t *testing.T) {
	_, err := newTestCollector(&mockSource{listErr: errors.New("db down")}, 0).Collect(context.Background(), 24)
	assert.ErrorContains(t, err, "list sessions")

	_, err = newTestCollector(&mockSource{countErr: errors.New("db down")}, 0).Collect(context.Background(), 24)
	assert.ErrorContains(t, err, "count api calls")
}
