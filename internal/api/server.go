// Package api exposes the road scoring service over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sells-group/road-crawl-cli/internal/config"
	"github.com/sells-group/road-crawl-cli/internal/crawl"
	"github.com/sells-group/road-crawl-cli/internal/distribution"
	"github.com/sells-group/road-crawl-cli/internal/model"
	"github.com/sells-group/road-crawl-cli/internal/service"
	"github.com/sells-group/road-crawl-cli/internal/strategy"
)

const requestTimeout = 60 * time.Second

// Service is the facade the handlers call.
type Service interface {
	GetRoadScore(ctx context.Context, roadID int64) (*service.RoadScore, error)
	GetCrawlPlan(ctx context.Context, roadID int64, keyword string) (*service.CrawlPlan, error)
	ExecuteCrawl(ctx context.Context, roadID int64, keyword string) (*crawl.Result, error)
	RecordCrawlResult(ctx context.Context, sessionID string, businesses []model.Business) (int, error)
	GetPercentiles(ctx context.Context, state string) (*distribution.Percentiles, error)
	GetHighwayTypeBreakdown(ctx context.Context, state string, minSample int) ([]distribution.ClassStats, error)
	GetCountBuckets(ctx context.Context, state string) ([]distribution.Bucket, error)
	GetPriorityRoads(ctx context.Context, state string, limit int) ([]strategy.RoadCandidate, error)
}

var _ Service = (*service.Service)(nil)

// NewRouter builds the API handler.
func NewRouter(svc Service, cfg config.ServerConfig) http.Handler {
	h := &handlers{svc: svc}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
	r.Use(requestMetrics)

	r.Get("/health", h.health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Use(middleware.Timeout(requestTimeout))

		r.Route("/roads/{id}", func(r chi.Router) {
			r.Get("/score", h.roadScore)
			r.Get("/plan", h.crawlPlan)
			r.Post("/crawl", h.executeCrawl)
		})
		r.Post("/sessions/{id}/results", h.recordResults)
		r.Route("/regions/{state}", func(r chi.Router) {
			r.Get("/percentiles", h.percentiles)
			r.Get("/breakdown", h.breakdown)
			r.Get("/buckets", h.buckets)
			r.Get("/priority-roads", h.priorityRoads)
		})
	})
	return r
}
