package main

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/road-crawl-cli/internal/crawl"
	"github.com/sells-group/road-crawl-cli/internal/service"
	"github.com/sells-group/road-crawl-cli/internal/strategy"
)

var (
	crawlRoadID      int64
	crawlState       string
	crawlKeyword     string
	crawlLimit       int
	crawlConcurrency int
)

var crawlCmd = &cobra.Command{
	Use:   "crawl",
	Short: "Execute crawl plans against Google Places",
	Long:  "Crawls one road (--road) or the highest priority roads of a state (--state, --limit).",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if (crawlRoadID == 0) == (crawlState == "") {
			return eris.New("exactly one of --road or --state is required")
		}
		if err := cfg.Validate("crawl"); err != nil {
			return err
		}

		e, err := initEnv(ctx, true)
		if err != nil {
			return err
		}
		defer e.Close()

		if crawlRoadID != 0 {
			res, err := e.Service.ExecuteCrawl(ctx, crawlRoadID, crawlKeyword)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		}

		summary, err := crawlRegion(ctx, e.Service, strings.ToUpper(crawlState), crawlKeyword, crawlLimit, crawlConcurrency)
		if summary != nil {
			zap.L().Info("batch crawl complete",
				zap.String("state", crawlState),
				zap.Int("roads", summary.Roads),
				zap.Int("completed", summary.Completed),
				zap.Int("skipped", summary.Skipped),
				zap.Int("failed", summary.Failed),
				zap.Int("saved", summary.Saved),
			)
			if perr := printJSON(cmd.OutOrStdout(), summary); perr != nil && err == nil {
				err = perr
			}
		}
		return err
	},
}

// regionCrawler is the part of the service a batch crawl uses.
type regionCrawler interface {
	GetPriorityRoads(ctx context.Context, state string, limit int) ([]strategy.RoadCandidate, error)
	ExecuteCrawl(ctx context.Context, roadID int64, keyword string) (*crawl.Result, error)
}

// crawlSummary aggregates a batch crawl.
type crawlSummary struct {
	Roads     int             `json:"roads"`
	Completed int             `json:"completed"`
	Skipped   int             `json:"skipped"`
	Failed    int             `json:"failed"`
	Saved     int             `json:"saved"`
	Results   []*crawl.Result `json:"results"`
}

// crawlRegion crawls a state's priority roads in parallel. Roads with an
// active session are skipped and other per-road failures are counted. The
// daily cap stops the batch.
func crawlRegion(ctx context.Context, svc regionCrawler, state, keyword string, limit, concurrency int) (*crawlSummary, error) {
	candidates, err := svc.GetPriorityRoads(ctx, state, limit)
	if err != nil {
		return nil, err
	}

	summary := &crawlSummary{Roads: len(candidates), Results: []*crawl.Result{}}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(concurrency, 1))

	for _, c := range candidates {
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			res, err := svc.ExecuteCrawl(gctx, c.RoadID, keyword)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				summary.Completed++
				summary.Saved += res.Saved()
				summary.Results = append(summary.Results, res)
				return nil
			case errors.Is(err, crawl.ErrDailyCapReached):
				summary.Failed++
				return err
			case service.CategoryOf(err) == service.CategoryConflict:
				summary.Skipped++
				zap.L().Info("road already being crawled", zap.Int64("road_id", c.RoadID))
				return nil
			case gctx.Err() != nil:
				return gctx.Err()
			default:
				summary.Failed++
				zap.L().Warn("road crawl failed", zap.Int64("road_id", c.RoadID), zap.Error(err))
				return nil
			}
		})
	}

	if err := g.Wait(); err != nil {
		return summary, eris.Wrapf(err, "crawl %s", state)
	}
	return summary, nil
}

func init() {
	crawlCmd.Flags().Int64Var(&crawlRoadID, "road", 0, "OSM way id to crawl")
	crawlCmd.Flags().StringVar(&crawlState, "state", "", "crawl the priority roads of this state")
	crawlCmd.Flags().StringVar(&crawlKeyword, "keyword", "", "search keyword, e.g. a business category")
	crawlCmd.Flags().IntVar(&crawlLimit, "limit", 20, "number of priority roads to crawl with --state")
	crawlCmd.Flags().IntVar(&crawlConcurrency, "concurrency", 2, "roads crawled in parallel with --state")
	rootCmd.AddCommand(crawlCmd)
}
