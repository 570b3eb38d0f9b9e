package service

import (
	"context"

	"github.com/sells-group/road-crawl-cli/internal/distribution"
	"github.com/sells-group/road-crawl-cli/internal/model"
	"github.com/sells-group/road-crawl-cli/internal/store"
	"github.com/sells-group/road-crawl-cli/internal/strategy"
)

func (s *Service) regionStats(ctx context.Context, state string) ([]model.RoadBusinessStats, error) {
	rows, err := s.store.ListRoadStats(ctx, store.StatsFilter{StateCode: state})
	if err != nil {
		return nil, wrap(err, "list road stats for "+state)
	}
	return rows, nil
}

func (s *Service) regionPercentiles(ctx context.Context, state string) (distribution.Percentiles, error) {
	rows, err := s.regionStats(ctx, state)
	if err != nil {
		return distribution.Percentiles{}, err
	}
	return distribution.ComputePercentiles(poiCounts(rows))
}

func poiCounts(rows []model.RoadBusinessStats) []int {
	counts := make([]int, len(rows))
	for i := range rows {
		counts[i] = rows[i].POICount
	}
	return counts
}

// GetPercentiles returns the POI count distribution of a state's roads
// from the cached road stats.
func (s *Service) GetPercentiles(ctx context.Context, state string) (*distribution.Percentiles, error) {
	state, err := normalizeState(state)
	if err != nil {
		return nil, err
	}
	p, err := s.regionPercentiles(ctx, state)
	if err != nil {
		return nil, wrap(err, "percentiles for "+state)
	}
	return &p, nil
}

// GetHighwayTypeBreakdown returns per-class distributions for a state.
// Classes with fewer than minSample roads are dropped; minSample <= 0 uses
// the service default.
func (s *Service) GetHighwayTypeBreakdown(ctx context.Context, state string, minSample int) ([]distribution.ClassStats, error) {
	state, err := normalizeState(state)
	if err != nil {
		return nil, err
	}
	if minSample <= 0 {
		minSample = s.minSample
	}
	rows, err := s.regionStats(ctx, state)
	if err != nil {
		return nil, err
	}
	samples := make([]distribution.Sample, len(rows))
	for i, r := range rows {
		samples[i] = distribution.Sample{Highway: r.Highway, POICount: r.POICount}
	}
	out, err := distribution.HighwayBreakdown(samples, minSample)
	if err != nil {
		return nil, wrap(err, "highway breakdown for "+state)
	}
	return out, nil
}

// GetCountBuckets returns how a state's roads spread over POI count buckets.
func (s *Service) GetCountBuckets(ctx context.Context, state string) ([]distribution.Bucket, error) {
	state, err := normalizeState(state)
	if err != nil {
		return nil, err
	}
	rows, err := s.regionStats(ctx, state)
	if err != nil {
		return nil, err
	}
	out, err := distribution.CountBuckets(poiCounts(rows))
	if err != nil {
		return nil, wrap(err, "count buckets for "+state)
	}
	return out, nil
}

// GetPriorityRoads returns up to limit roads of a state worth crawling,
// highest score first.
func (s *Service) GetPriorityRoads(ctx context.Context, state string, limit int) ([]strategy.RoadCandidate, error) {
	state, err := normalizeState(state)
	if err != nil {
		return nil, err
	}
	if limit < 0 {
		return nil, validationf("limit must be >= 0 (got %d)", limit)
	}
	rows, err := s.regionStats(ctx, state)
	if err != nil {
		return nil, err
	}
	candidates := make([]strategy.RoadCandidate, len(rows))
	for i, r := range rows {
		candidates[i] = strategy.RoadCandidate{RoadID: r.RoadID, Name: r.RoadName, Score: r.Score, POICount: r.POICount}
	}
	ranked := strategy.RankRoads(candidates)
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked, nil
}

// Calibrate snapshots a state's distribution, breakdown, and buckets for a
// calibration file.
func (s *Service) Calibrate(ctx context.Context, state string) (distribution.RegionCalibration, error) {
	state, err := normalizeState(state)
	if err != nil {
		return distribution.RegionCalibration{}, err
	}
	p, err := s.regionPercentiles(ctx, state)
	if err != nil {
		return distribution.RegionCalibration{}, wrap(err, "percentiles for "+state)
	}
	breakdown, err := s.GetHighwayTypeBreakdown(ctx, state, 0)
	if err != nil {
		return distribution.RegionCalibration{}, err
	}
	buckets, err := s.GetCountBuckets(ctx, state)
	if err != nil {
		return distribution.RegionCalibration{}, err
	}
	return distribution.RegionCalibration{Overall: p, Breakdown: breakdown, Buckets: buckets}, nil
}
