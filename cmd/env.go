package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/road-crawl-cli/internal/cache"
	"github.com/sells-group/road-crawl-cli/internal/cost"
	"github.com/sells-group/road-crawl-cli/internal/crawl"
	"github.com/sells-group/road-crawl-cli/internal/db"
	"github.com/sells-group/road-crawl-cli/internal/distribution"
	"github.com/sells-group/road-crawl-cli/internal/scoring"
	"github.com/sells-group/road-crawl-cli/internal/service"
	"github.com/sells-group/road-crawl-cli/internal/spatial"
	"github.com/sells-group/road-crawl-cli/internal/store"
	"github.com/sells-group/road-crawl-cli/internal/strategy"
	"github.com/sells-group/road-crawl-cli/pkg/google"
)

// env holds the dependencies shared by commands.
type env struct {
	Store       store.Store
	Engine      *scoring.Engine
	Calibration *distribution.Calibration
	Costs       *cost.Calculator
	Service     *service.Service
	Redis       *redis.Client
}

// Close releases the store and Redis connections.
func (e *env) Close() {
	if e.Redis != nil {
		if err := e.Redis.Close(); err != nil {
			zap.L().Warn("close redis", zap.Error(err))
		}
	}
	if e.Store != nil {
		if err := e.Store.Close(); err != nil {
			zap.L().Warn("close store", zap.Error(err))
		}
	}
}

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "road-crawl.db"
		}
		st, err := store.NewSQLite(dsn)
		if err != nil {
			return nil, err
		}
		// The SQLite schema is idempotent; apply it on open.
		if err := st.Migrate(ctx); err != nil {
			_ = st.Close()
			return nil, err
		}
		return st, nil
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, db.PoolConfig{MaxConns: cfg.Store.MaxConns})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// initEnv opens the store and builds the service. With withCrawl set the
// Places client, budget, and executor are wired as well.
func initEnv(ctx context.Context, withCrawl bool) (*env, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	e := &env{Store: st}

	engine, err := scoring.NewEngine(cfg.Scoring)
	if err != nil {
		e.Close()
		return nil, err
	}
	e.Engine = engine

	if cfg.Scoring.CalibrationFile != "" {
		cal, err := distribution.LoadCalibration(cfg.Scoring.CalibrationFile)
		if err != nil {
			e.Close()
			return nil, err
		}
		e.Calibration = cal
	}

	e.Costs = cost.NewCalculator(cost.RatesFromConfig(cfg.Pricing))

	opts := []service.Option{
		service.WithCostCalculator(e.Costs),
		service.WithRadius(cfg.Scoring.RadiusMeters),
		service.WithMinSample(cfg.Scoring.MinSample),
		service.WithMatchRadius(cfg.Crawl.MatchRadius),
		service.WithCalibration(e.Calibration),
	}
	if pg, ok := st.(*store.PostgresStore); ok {
		opts = append(opts, service.WithCounter(spatial.NewPostGISCounter(pg.Pool())))
	}

	if cfg.Redis.URL != "" {
		rdb, err := cache.NewClient(ctx, cfg.Redis.URL)
		if err != nil {
			e.Close()
			return nil, err
		}
		e.Redis = rdb
		ttl := time.Duration(cfg.Redis.ScoreTTLSeconds) * time.Second
		opts = append(opts, service.WithScoreCache(cache.NewScoreCache(rdb, ttl)))
	}

	if withCrawl {
		exec, err := e.executor(ctx)
		if err != nil {
			e.Close()
			return nil, err
		}
		opts = append(opts, service.WithExecutor(exec))
	}

	e.Service = service.New(st, engine, strategy.NewSelector(cfg.Crawl), opts...)
	return e, nil
}

func (e *env) executor(ctx context.Context) (*crawl.Executor, error) {
	used, err := e.Store.CountAPICallsSince(ctx, crawl.StartOfDay(time.Now()))
	if err != nil {
		return nil, eris.Wrap(err, "count today's api calls")
	}

	var daily crawl.DailyCap
	if e.Redis != nil {
		dc := cache.NewDailyCap(e.Redis, cfg.RateLimit.DailyLimit)
		if err := dc.Seed(ctx, used); err != nil {
			return nil, err
		}
		daily = dc
	} else {
		daily = crawl.NewMemoryDailyCap(cfg.RateLimit.DailyLimit, used)
	}
	zap.L().Info("places daily budget",
		zap.Int("limit", cfg.RateLimit.DailyLimit),
		zap.Int("used_today", used),
		zap.Bool("shared", e.Redis != nil),
	)

	client := google.NewClient(cfg.Google.Key,
		google.WithBaseURL(cfg.Google.BaseURL),
		google.WithLanguage(cfg.Google.Language),
		google.WithHTTPClient(&http.Client{Timeout: time.Duration(cfg.Google.TimeoutSecs) * time.Second}),
	)
	budget := crawl.NewBudget(cfg.RateLimit, daily)
	return crawl.NewExecutor(client, e.Store, budget, cfg.Crawl), nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return eris.Wrap(enc.Encode(v), "encode output")
}
