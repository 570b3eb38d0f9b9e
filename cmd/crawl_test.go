package main

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sells-group/road-crawl-cli/internal/crawl"
	"github.com/sells-group/road-crawl-cli/internal/store"
	"github.com/sells-group/road-crawl-cli/internal/strategy"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

type fakeCrawler struct {
	roads   []strategy.RoadCandidate
	listErr error
	errs    map[int64]error

	mu      sync.Mutex
	crawled []int64
}

func (f *fakeCrawler) GetPriorityRoads(_ context.Context, _ string, limit int) ([]strategy.RoadCandidate, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.roads[:min(limit, len(f.roads))], nil
}

func (f *fakeCrawler) ExecuteCrawl(_ context.Context, roadID int64, _ string) (*crawl.Result, error) {
	f.mu.Lock()
	f.crawled = append(f.crawled, roadID)
	f.mu.Unlock()
	if err := f.errs[roadID]; err != nil {
		return nil, err
	}
	return &crawl.Result{Inserted: 2, Updated: 1}, nil
}

func candidates(ids ...int64) []strategy.RoadCandidate {
	out := make([]strategy.RoadCandidate, len(ids))
	for i, id := range ids {
		out[i] = strategy.RoadCandidate{RoadID: id, Score: 9}
	}
	return out
}

func TestCrawlRegion_Summary(t *testing.T) {
	f := &fakeCrawler{
		roads: candidates(1, 2, 3, 4),
		errs: map[int64]error{
			2: store.ErrSessionActive,
			3: errors.New("boom"),
		},
	}

	summary, err := crawlRegion(context.Background(), f, "PA", "cafe", 10, 2)
	require.NoError(t, err)
	assert.Equal(t, 4, summary.Roads)
	assert.Equal(t, 2, summary.Completed)
	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 6, summary.Saved)
	assert.Len(t, summary.Results, 2)
	assert.ElementsMatch(t, []int64{1, 2, 3, 4}, f.crawled)
}

func TestCrawlRegion_RespectsLimit(t *testing.T) {
	f := &fakeCrawler{roads: candidates(1, 2, 3)}

	summary, err := crawlRegion(context.Background(), f, "PA", "", 2, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Roads)
	assert.Equal(t, []int64{1, 2}, f.crawled)
}

func TestCrawlRegion_DailyCapStops(t *testing.T) {
	f := &fakeCrawler{
		roads: candidates(1, 2, 3),
		errs: map[int64]error{
			1: crawl.ErrDailyCapReached,
			2: crawl.ErrDailyCapReached,
			3: crawl.ErrDailyCapReached,
		},
	}

	summary, err := crawlRegion(context.Background(), f, "PA", "", 10, 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, crawl.ErrDailyCapReached)
	require.NotNil(t, summary)
	assert.Equal(t, 0, summary.Completed)
	assert.Len(t, f.crawled, 1)
}

func TestCrawlRegion_ListError(t *testing.T) {
	f := &fakeCrawler{listErr: errors.New("db down")}

	summary, err := crawlRegion(context.Background(), f, "PA", "", 10, 1)
	assert.Error(t, err)
	assert.Nil(t, summary)
}
