// Package roadstats rebuilds the cached RoadBusinessStats table: it joins
// each road against the POIs in its proximity buffer, aggregates them, and
// scores the result.
package roadstats

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/road-crawl-cli/internal/distribution"
	"github.com/sells-group/road-crawl-cli/internal/metrics"
	"github.com/sells-group/road-crawl-cli/internal/model"
	"github.com/sells-group/road-crawl-cli/internal/scoring"
	"github.com/sells-group/road-crawl-cli/internal/spatial"
	"github.com/sells-group/road-crawl-cli/internal/store"
)

// upsertBatchSize bounds the rows written per UpsertRoadStats call.
const upsertBatchSize = 500

// ErrStateRequired is returned when a rebuild names no state.
var ErrStateRequired = eris.New("roadstats: state code is required")

// Threshold sources reported by a rebuild.
const (
	ThresholdsCalibration = "calibration"
	ThresholdsComputed    = "computed"
	ThresholdsNone        = "none"
)

// Store is the persistence a rebuild needs.
type Store interface {
	ListCounties(ctx context.Context, stateCode string) ([]string, error)
	ListRoads(ctx context.Context, filter store.RoadFilter) ([]*model.RoadSegment, error)
	ListPOIsInBBox(ctx context.Context, box store.BBox) ([]model.BusinessPOI, error)
	UpsertRoadStats(ctx context.Context, stats []model.RoadBusinessStats) (int, error)
}

// Options tunes a Rebuilder.
type Options struct {
	RadiusMeters float64
	Concurrency  int
	// Calibration, when it covers the state, supplies the percentile
	// thresholds in place of the rebuilt distribution.
	Calibration *distribution.Calibration
	Now         func() time.Time
}

// Failure is one road or county that could not be rebuilt.
type Failure struct {
	County string `json:"county_fips,omitempty"`
	RoadID int64  `json:"road_id,omitempty"`
	Error  string `json:"error"`
}

// Report summarizes a rebuild.
type Report struct {
	StateCode        string                   `json:"state_code"`
	Counties         int                      `json:"counties"`
	Unassigned       int                      `json:"unassigned_roads"`
	Roads            int                      `json:"roads"`
	Written          int                      `json:"written"`
	Failures         []Failure                `json:"failures,omitempty"`
	Distribution     distribution.Percentiles `json:"distribution"`
	ThresholdsSource string                   `json:"thresholds_source"`
	Formula          scoring.Formula          `json:"formula"`
	Duration         time.Duration            `json:"duration"`
}

// Rebuilder recomputes RoadBusinessStats for a state. Rebuilds are
// idempotent.
type Rebuilder struct {
	store  Store
	engine *scoring.Engine
	opts   Options
}

// NewRebuilder creates a rebuilder. Zero options take the scoring default
// radius and a concurrency of one.
func NewRebuilder(st Store, engine *scoring.Engine, opts Options) *Rebuilder {
	if opts.RadiusMeters <= 0 {
		opts.RadiusMeters = spatial.DefaultRadiusMeters
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Rebuilder{store: st, engine: engine, opts: opts}
}

// Rebuild recomputes stats for every road in stateCode, or only countyFIPS
// when set. A state rebuild joins each county plus the roads that carry no
// county, in parallel. Road and county failures are collected in the Report
// and do not stop the batch.
func (r *Rebuilder) Rebuild(ctx context.Context, stateCode, countyFIPS string) (*Report, error) {
	if stateCode == "" {
		return nil, ErrStateRequired
	}
	start := time.Now()
	log := zap.L().With(zap.String("component", "roadstats"), zap.String("state", stateCode))

	parts := []store.RoadFilter{{StateCode: stateCode, CountyFIPS: countyFIPS}}
	counties := 1
	if countyFIPS == "" {
		listed, err := r.store.ListCounties(ctx, stateCode)
		if err != nil {
			return nil, eris.Wrapf(err, "roadstats: list counties for %s", stateCode)
		}
		parts = parts[:0]
		for _, c := range listed {
			parts = append(parts, store.RoadFilter{StateCode: stateCode, CountyFIPS: c})
		}
		// Roads with no county still belong to the state's population.
		parts = append(parts, store.RoadFilter{StateCode: stateCode, NoCounty: true})
		counties = len(listed)
	}

	report := &Report{StateCode: stateCode, Counties: counties, Formula: r.engine.Formula()}
	var (
		mu   sync.Mutex
		rows []model.RoadBusinessStats
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Concurrency)
	for _, part := range parts {
		g.Go(func() error {
			partStart := time.Now()
			stats, err := r.joinRoads(gctx, part)
			metrics.StatsRebuildDuration.Observe(time.Since(partStart).Seconds())

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				log.Warn("roadstats: county join failed", zap.String("county", part.CountyFIPS),
					zap.Bool("no_county", part.NoCounty), zap.Error(err))
				report.Failures = append(report.Failures, Failure{County: part.CountyFIPS, Error: err.Error()})
				return nil
			}
			if part.NoCounty {
				report.Unassigned = len(stats)
			}
			rows = append(rows, stats...)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return report, eris.Wrap(err, "roadstats: rebuild")
	}

	slices.SortFunc(rows, func(a, b model.RoadBusinessStats) int {
		switch {
		case a.RoadID < b.RoadID:
			return -1
		case a.RoadID > b.RoadID:
			return 1
		}
		return 0
	})
	report.Roads = len(rows)

	counts := make([]int, len(rows))
	for i := range rows {
		counts[i] = rows[i].POICount
	}
	dist, err := distribution.ComputePercentiles(counts)
	if err != nil {
		return report, eris.Wrap(err, "roadstats: distribution")
	}
	report.Distribution = dist

	th, source := r.thresholds(stateCode, dist)
	report.ThresholdsSource = source

	scored := rows[:0]
	for _, st := range rows {
		class := st.Highway
		res, err := r.engine.Score(st.POICount, &class, th)
		if err != nil {
			report.Failures = append(report.Failures, Failure{RoadID: st.RoadID, Error: err.Error()})
			continue
		}
		st.Score = res.Score
		st.Formula = string(res.Formula)
		scored = append(scored, st)
	}

	for batch := range slices.Chunk(scored, upsertBatchSize) {
		n, err := r.store.UpsertRoadStats(ctx, batch)
		if err != nil {
			if ctx.Err() != nil {
				return report, eris.Wrap(ctx.Err(), "roadstats: rebuild")
			}
			log.Warn("roadstats: upsert batch failed", zap.Int("roads", len(batch)), zap.Error(err))
			for _, st := range batch {
				report.Failures = append(report.Failures, Failure{RoadID: st.RoadID, Error: err.Error()})
			}
			continue
		}
		report.Written += n
	}

	metrics.StatsRoadsTotal.WithLabelValues("ok").Add(float64(report.Written))
	if failed := report.Roads - report.Written; failed > 0 {
		metrics.StatsRoadsTotal.WithLabelValues("failed").Add(float64(failed))
	}
	report.Duration = time.Since(start)

	log.Info("roadstats: rebuild complete",
		zap.Int("counties", report.Counties),
		zap.Int("unassigned_roads", report.Unassigned),
		zap.Int("roads", report.Roads),
		zap.Int("written", report.Written),
		zap.Int("failures", len(report.Failures)),
		zap.String("thresholds", report.ThresholdsSource),
		zap.Duration("duration", report.Duration),
	)
	return report, nil
}

// joinRoads loads one partition's roads and the POIs around them, and
// aggregates each road against an in-memory index.
func (r *Rebuilder) joinRoads(ctx context.Context, filter store.RoadFilter) ([]model.RoadBusinessStats, error) {
	county := filter.CountyFIPS
	roads, err := r.store.ListRoads(ctx, filter)
	if err != nil {
		return nil, eris.Wrapf(err, "roadstats: list roads for county %q", county)
	}
	if len(roads) == 0 {
		return nil, nil
	}

	var pois []model.BusinessPOI
	if box, ok := store.RoadBBox(roads, r.opts.RadiusMeters); ok {
		pois, err = r.store.ListPOIsInBBox(ctx, box)
		if err != nil {
			return nil, eris.Wrapf(err, "roadstats: list pois for county %q", county)
		}
	}
	ix := spatial.NewIndex(pois)

	at := r.opts.Now().UTC()
	out := make([]model.RoadBusinessStats, 0, len(roads))
	for _, road := range roads {
		near, err := ix.NearbyPOIs(road, r.opts.RadiusMeters)
		if err != nil {
			return nil, eris.Wrapf(err, "roadstats: join road %d", road.ID)
		}
		out = append(out, Aggregate(road, near, r.opts.RadiusMeters, at))
	}
	return out, nil
}

func (r *Rebuilder) thresholds(stateCode string, dist distribution.Percentiles) (*scoring.Thresholds, string) {
	if rc, ok := r.opts.Calibration.Region(stateCode); ok {
		if th := scoring.ThresholdsFrom(rc.Overall); th.Usable() {
			return th, ThresholdsCalibration
		}
	}
	if th := scoring.ThresholdsFrom(dist); th.Usable() {
		return th, ThresholdsComputed
	}
	return nil, ThresholdsNone
}
