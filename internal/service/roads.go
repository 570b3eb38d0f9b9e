package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/sells-group/road-crawl-cli/internal/crawl"
	"github.com/sells-group/road-crawl-cli/internal/model"
	"github.com/sells-group/road-crawl-cli/internal/quality"
	"github.com/sells-group/road-crawl-cli/internal/scoring"
	"github.com/sells-group/road-crawl-cli/internal/strategy"
	"github.com/sells-group/road-crawl-cli/pkg/google"
)

// RoadScore is the business potential of one road.
type RoadScore struct {
	RoadID       int64              `json:"road_id"`
	Name         string             `json:"name,omitempty"`
	Highway      model.HighwayClass `json:"highway"`
	Region       model.Region       `json:"region"`
	POICount     int                `json:"poi_count"`
	Score        float64            `json:"score"`
	Formula      scoring.Formula    `json:"formula"`
	QualityLabel string             `json:"quality_label"`
	Quality      quality.Report     `json:"quality"`
	RadiusMeters float64            `json:"radius_meters"`
}

// CrawlPlan is a strategy.Plan flattened for callers.
type CrawlPlan struct {
	RoadID            int64             `json:"road_id"`
	Keyword           string            `json:"keyword,omitempty"`
	Mode              strategy.Mode     `json:"mode"`
	Tier              google.Tier       `json:"tier"`
	Reason            string            `json:"reason"`
	Priority          strategy.Priority `json:"priority"`
	Focus             strategy.Focus    `json:"focus,omitempty"`
	EstimatedAPICalls int               `json:"estimated_api_calls"`
	EstimatedCostUSD  float64           `json:"estimated_cost_usd"`
	Points            []strategy.Search `json:"points"`
	Score             float64           `json:"score"`
	POICount          int               `json:"poi_count"`

	Plan strategy.Plan `json:"-"`
}

func (s *Service) getRoad(ctx context.Context, roadID int64) (*model.RoadSegment, error) {
	if roadID <= 0 {
		return nil, validationf("road id must be positive (got %d)", roadID)
	}
	road, err := s.store.GetRoad(ctx, roadID)
	if err != nil {
		return nil, wrap(err, fmt.Sprintf("road %d", roadID))
	}
	return road, nil
}

// score runs the proximity join and the scoring engine. Roads without
// usable geometry get the class-only baseline.
func (s *Service) score(ctx context.Context, road *model.RoadSegment) (*int, scoring.Result, error) {
	var count *int
	if !road.Degenerate() {
		n, err := s.counter.CountNearby(ctx, road, s.radius)
		if err != nil {
			return nil, scoring.Result{}, wrap(err, fmt.Sprintf("count pois near road %d", road.ID))
		}
		count = &n
	}
	res, err := s.engine.ScoreRoad(count, road.Highway, s.thresholds(ctx, road.Region.StateCode))
	if err != nil {
		return nil, scoring.Result{}, wrap(err, fmt.Sprintf("score road %d", road.ID))
	}
	return count, res, nil
}

// GetRoadScore returns the POI count, score, and data quality of a road.
// Quality is assessed on crawled businesses when the road has any, and on
// its OSM POIs otherwise.
func (s *Service) GetRoadScore(ctx context.Context, roadID int64) (*RoadScore, error) {
	if s.cache != nil && roadID > 0 {
		var cached RoadScore
		ok, err := s.cache.Get(ctx, roadID, &cached)
		if err != nil {
			s.log().Warn("service: score cache read", zap.Int64("road_id", roadID), zap.Error(err))
		} else if ok {
			return &cached, nil
		}
	}

	road, err := s.getRoad(ctx, roadID)
	if err != nil {
		return nil, err
	}
	count, res, err := s.score(ctx, road)
	if err != nil {
		return nil, err
	}

	report, err := s.assess(ctx, road)
	if err != nil {
		return nil, err
	}

	out := &RoadScore{
		RoadID:       road.ID,
		Name:         road.DisplayName(),
		Highway:      road.Highway,
		Region:       road.Region,
		Score:        res.Score,
		Formula:      res.Formula,
		QualityLabel: report.Label,
		Quality:      report,
		RadiusMeters: s.radius,
	}
	if count != nil {
		out.POICount = *count
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, road.ID, out); err != nil {
			s.log().Warn("service: score cache write", zap.Int64("road_id", road.ID), zap.Error(err))
		}
	}
	return out, nil
}

func (s *Service) assess(ctx context.Context, road *model.RoadSegment) (quality.Report, error) {
	businesses, err := s.store.ListBusinessesByRoad(ctx, road.ID)
	if err != nil {
		return quality.Report{}, wrap(err, fmt.Sprintf("list businesses on road %d", road.ID))
	}
	if len(businesses) > 0 {
		return quality.Assess(businesses), nil
	}
	pois, err := s.store.ListPOIsNear(ctx, road, s.radius)
	if err != nil {
		return quality.Report{}, wrap(err, fmt.Sprintf("list pois near road %d", road.ID))
	}
	return quality.AssessPOIs(pois), nil
}

// GetCrawlPlan builds the crawl plan for a road.
func (s *Service) GetCrawlPlan(ctx context.Context, roadID int64, keyword string) (*CrawlPlan, error) {
	road, err := s.getRoad(ctx, roadID)
	if err != nil {
		return nil, err
	}
	return s.plan(ctx, road, keyword)
}

func (s *Service) plan(ctx context.Context, road *model.RoadSegment, keyword string) (*CrawlPlan, error) {
	pois, err := s.store.ListPOIsNear(ctx, road, s.radius)
	if err != nil {
		return nil, wrap(err, fmt.Sprintf("list pois near road %d", road.ID))
	}
	count, res, err := s.score(ctx, road)
	if err != nil {
		return nil, err
	}
	n := len(pois)
	if count != nil {
		n = *count
	}

	plan := s.selector.Select(strategy.Input{
		Road:     road,
		POIs:     pois,
		Quality:  quality.AssessPOIs(pois),
		Score:    res.Score,
		POICount: n,
	})
	head := plan.Head()
	out := &CrawlPlan{
		RoadID:            road.ID,
		Keyword:           keyword,
		Mode:              head.Mode,
		Tier:              head.Tier,
		Reason:            head.Reason,
		Priority:          head.Priority,
		EstimatedAPICalls: head.EstimatedAPICalls,
		EstimatedCostUSD:  s.costs.Places(head.Tier, head.EstimatedAPICalls),
		Points:            plan.Searches(),
		Score:             res.Score,
		POICount:          n,
		Plan:              plan,
	}
	if t, ok := plan.(*strategy.Targeted); ok {
		out.Focus = t.Focus
	}
	if out.Points == nil {
		out.Points = []strategy.Search{}
	}
	return out, nil
}

// ExecuteCrawl plans and runs a crawl for a road.
func (s *Service) ExecuteCrawl(ctx context.Context, roadID int64, keyword string) (*crawl.Result, error) {
	if s.executor == nil {
		return nil, validationf("crawling is not configured")
	}
	road, err := s.getRoad(ctx, roadID)
	if err != nil {
		return nil, err
	}
	p, err := s.plan(ctx, road, keyword)
	if err != nil {
		return nil, err
	}
	res, err := s.executor.Execute(ctx, road, p.Plan, keyword)
	s.invalidate(ctx, road.ID)
	if err != nil {
		return res, wrap(err, fmt.Sprintf("crawl road %d", road.ID))
	}
	return res, nil
}

// RecordCrawlResult reconciles businesses gathered outside the executor
// into the store under an open session, then completes the session.
func (s *Service) RecordCrawlResult(ctx context.Context, sessionID string, businesses []model.Business) (int, error) {
	cs, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return 0, wrap(err, fmt.Sprintf("session %s", sessionID))
	}
	if cs.Status.Terminal() {
		return 0, &Error{
			Category: CategoryConflict,
			Message:  fmt.Sprintf("session %s is already %s", sessionID, cs.Status),
		}
	}
	for i := range businesses {
		if err := model.Validate(&businesses[i]); err != nil {
			return 0, wrap(err, fmt.Sprintf("business %d", i))
		}
	}

	if cs.Status == model.SessionPending {
		if err := cs.Transition(model.SessionProcessing, s.now().UTC()); err != nil {
			return 0, wrap(err, "start session")
		}
	}

	saved := 0
	for _, b := range businesses {
		b.SessionID = cs.ID
		if b.NearestRoadID == nil {
			roadID := cs.RoadID
			b.NearestRoadID = &roadID
		}
		if b.CrawledAt.IsZero() {
			b.CrawledAt = s.now().UTC()
		}
		if _, err := s.reconciler.Reconcile(ctx, b); err != nil {
			return saved, wrap(err, "record business")
		}
		saved++
	}

	if err := cs.Transition(model.SessionCompleted, s.now().UTC()); err != nil {
		return saved, wrap(err, "complete session")
	}
	cs.BusinessesFound = saved
	if err := s.store.UpdateSession(ctx, cs); err != nil {
		return saved, wrap(err, "complete session")
	}
	s.invalidate(ctx, cs.RoadID)
	return saved, nil
}

func (s *Service) invalidate(ctx context.Context, roadID int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(context.WithoutCancel(ctx), roadID); err != nil {
		s.log().Warn("service: score cache invalidate", zap.Int64("road_id", roadID), zap.Error(err))
	}
}
