// Package service is the query facade over scoring, data quality, crawl
// planning, and crawl execution. The CLI and the HTTP API both call it.
package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/road-crawl-cli/internal/cache"
	"github.com/sells-group/road-crawl-cli/internal/cost"
	"github.com/sells-group/road-crawl-cli/internal/crawl"
	"github.com/sells-group/road-crawl-cli/internal/distribution"
	"github.com/sells-group/road-crawl-cli/internal/model"
	"github.com/sells-group/road-crawl-cli/internal/scoring"
	"github.com/sells-group/road-crawl-cli/internal/spatial"
	"github.com/sells-group/road-crawl-cli/internal/store"
	"github.com/sells-group/road-crawl-cli/internal/strategy"
)

// Option configures a Service.
type Option func(*Service)

// WithCounter replaces the store-backed proximity counter, typically with
// a spatial.PostGISCounter.
func WithCounter(c spatial.Counter) Option {
	return func(s *Service) { s.counter = c }
}

// WithExecutor enables crawl execution.
func WithExecutor(e *crawl.Executor) Option {
	return func(s *Service) { s.executor = e }
}

// WithScoreCache caches GetRoadScore results.
func WithScoreCache(c *cache.ScoreCache) Option {
	return func(s *Service) { s.cache = c }
}

// WithCalibration supplies checked-in regional thresholds.
func WithCalibration(c *distribution.Calibration) Option {
	return func(s *Service) { s.calibration = c }
}

// WithCostCalculator prices crawl plans. The default uses list prices.
func WithCostCalculator(c *cost.Calculator) Option {
	return func(s *Service) { s.costs = c }
}

// WithRadius sets the proximity radius used for on-demand joins.
func WithRadius(meters float64) Option {
	return func(s *Service) { s.radius = meters }
}

// WithMinSample sets the smallest highway class reported in breakdowns.
func WithMinSample(n int) Option {
	return func(s *Service) { s.minSample = n }
}

// WithMatchRadius sets the reconciliation radius for RecordCrawlResult.
func WithMatchRadius(meters float64) Option {
	return func(s *Service) { s.matchRadius = meters }
}

// Service answers road score, plan, and region statistics queries.
type Service struct {
	store       store.Store
	engine      *scoring.Engine
	selector    *strategy.Selector
	counter     spatial.Counter
	executor    *crawl.Executor
	cache       *cache.ScoreCache
	calibration *distribution.Calibration
	costs       *cost.Calculator
	reconciler  *crawl.Reconciler
	radius      float64
	matchRadius float64
	minSample   int
	now         func() time.Time
}

// New creates a Service.
func New(st store.Store, engine *scoring.Engine, selector *strategy.Selector, opts ...Option) *Service {
	s := &Service{
		store:     st,
		engine:    engine,
		selector:  selector,
		radius:    spatial.DefaultRadiusMeters,
		minSample: distribution.DefaultMinSample,
		now:       time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	if s.costs == nil {
		s.costs = cost.NewCalculator(cost.DefaultRates())
	}
	if s.counter == nil {
		s.counter = &storeCounter{store: st}
	}
	s.reconciler = crawl.NewReconciler(st, s.matchRadius)
	return s
}

func (s *Service) log() *zap.Logger {
	return zap.L().With(zap.String("component", "service"))
}

// normalizeState validates and upper-cases a two-letter state code.
func normalizeState(state string) (string, error) {
	state = strings.ToUpper(strings.TrimSpace(state))
	if state == "" {
		return "", validationf("region state code is required")
	}
	if err := model.Validate(&model.Region{StateCode: state}); err != nil {
		return "", validationf("invalid state code %q", state)
	}
	return state, nil
}

// thresholds returns the percentile thresholds for a state, preferring the
// calibration file over the cached stats distribution. nil means the
// engine falls back to tiered.
func (s *Service) thresholds(ctx context.Context, state string) *scoring.Thresholds {
	if state == "" {
		return nil
	}
	if rc, ok := s.calibration.Region(state); ok {
		if th := scoring.ThresholdsFrom(rc.Overall); th.Usable() {
			return th
		}
	}
	if s.engine.Formula() != scoring.FormulaPercentile {
		return nil
	}
	p, err := s.regionPercentiles(ctx, state)
	if err != nil {
		s.log().Warn("service: region thresholds unavailable", zap.String("state", state), zap.Error(err))
		return nil
	}
	return scoring.ThresholdsFrom(p)
}
