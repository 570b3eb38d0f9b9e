package api

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/road-crawl-cli/internal/crawl"
	"github.com/sells-group/road-crawl-cli/internal/distribution"
	"github.com/sells-group/road-crawl-cli/internal/model"
	"github.com/sells-group/road-crawl-cli/internal/service"
	"github.com/sells-group/road-crawl-cli/internal/strategy"
)

type mockService struct {
	mock.Mock
}

var _ Service = (*mockService)(nil)

func (m *mockService) GetRoadScore(ctx context.Context, roadID int64) (*service.RoadScore, error) {
	args := m.Called(ctx, roadID)
	out, _ := args.Get(0).(*service.RoadScore)
	return out, args.Error(1)
}

func (m *mockService) GetCrawlPlan(ctx context.Context, roadID int64, keyword string) (*service.CrawlPlan, error) {
	args := m.Called(ctx, roadID, keyword)
	out, _ := args.Get(0).(*service.CrawlPlan)
	return out, args.Error(1)
}

func (m *mockService) ExecuteCrawl(ctx context.Context, roadID int64, keyword string) (*crawl.Result, error) {
	args := m.Called(ctx, roadID, keyword)
	out, _ := args.Get(0).(*crawl.Result)
	return out, args.Error(1)
}

func (m *mockService) RecordCrawlResult(ctx context.Context, sessionID string, businesses []model.Business) (int, error) {
	args := m.Called(ctx, sessionID, businesses)
	return args.Int(0), args.Error(1)
}

func (m *mockService) GetPercentiles(ctx context.Context, state string) (*distribution.Percentiles, error) {
	args := m.Called(ctx, state)
	out, _ := args.Get(0).(*distribution.Percentiles)
	return out, args.Error(1)
}

func (m *mockService) GetHighwayTypeBreakdown(ctx context.Context, state string, minSample int) ([]distribution.ClassStats, error) {
	args := m.Called(ctx, state, minSample)
	out, _ := args.Get(0).([]distribution.ClassStats)
	return out, args.Error(1)
}

func (m *mockService) GetCountBuckets(ctx context.Context, state string) ([]distribution.Bucket, error) {
	args := m.Called(ctx, state)
	out, _ := args.Get(0).([]distribution.Bucket)
	return out, args.Error(1)
}

func (m *mockService) GetPriorityRoads(ctx context.Context, state string, limit int) ([]strategy.RoadCandidate, error) {
	args := m.Called(ctx, state, limit)
	out, _ := args.Get(0).([]strategy.RoadCandidate)
	return out, args.Error(1)
}
