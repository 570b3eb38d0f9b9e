// Package monitoring watches crawl health and Places spend and raises
// webhook alerts when thresholds are crossed.
package monitoring

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/road-crawl-cli/internal/cost"
	"github.com/sells-group/road-crawl-cli/internal/crawl"
	"github.com/sells-group/road-crawl-cli/internal/model"
	"github.com/sells-group/road-crawl-cli/internal/store"
)

// sessionScanLimit bounds how many recent sessions a snapshot reads.
const sessionScanLimit = 10000

// MetricsSnapshot holds a point-in-time view of crawl health.
type MetricsSnapshot struct {
	// Crawl sessions created within the lookback window.
	SessionsTotal     int     `json:"sessions_total"`
	SessionsCompleted int     `json:"sessions_completed"`
	SessionsFailed    int     `json:"sessions_failed"`
	SessionsActive    int     `json:"sessions_active"`
	CrawlFailRate     float64 `json:"crawl_fail_rate"`
	BusinessesFound   int     `json:"businesses_found"`

	// Places usage within the lookback window.
	APICalls       int            `json:"api_calls"`
	APICallsByTier map[string]int `json:"api_calls_by_tier"`
	SpendUSD       float64        `json:"spend_usd"`

	// Places usage since midnight UTC against the daily cap.
	CallsToday  int     `json:"calls_today"`
	DailyLimit  int     `json:"daily_limit"`
	BudgetUsage float64 `json:"budget_usage"`

	LookbackHours int       `json:"lookback_hours"`
	CollectedAt   time.Time `json:"collected_at"`
}

// Source is the store surface the collector reads.
type Source interface {
	ListSessions(ctx context.Context, filter store.SessionFilter) ([]model.CrawlSession, error)
	CountAPICallsByTier(ctx context.Context, since time.Time) (map[string]int, error)
}

// Collector gathers snapshots from the store.
type Collector struct {
	src        Source
	calc       *cost.Calculator
	dailyLimit int
	now        func() time.Time
}

// NewCollector creates a collector. dailyLimit <= 0 means uncapped.
func NewCollector(src Source, calc *cost.Calculator, dailyLimit int) *Collector {
	if calc == nil {
		calc = cost.NewCalculator(cost.DefaultRates())
	}
	return &Collector{src: src, calc: calc, dailyLimit: dailyLimit, now: time.Now}
}

// Collect gathers a snapshot over the given lookback window.
func (c *Collector) Collect(ctx context.Context, lookbackHours int) (*MetricsSnapshot, error) {
	now := c.now().UTC()
	snap := &MetricsSnapshot{
		LookbackHours: lookbackHours,
		DailyLimit:    c.dailyLimit,
		CollectedAt:   now,
	}
	cutoff := now.Add(-time.Duration(lookbackHours) * time.Hour)

	sessions, err := c.src.ListSessions(ctx, store.SessionFilter{Limit: sessionScanLimit})
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: list sessions")
	}
	for _, s := range sessions {
		if s.CreatedAt.Before(cutoff) {
			continue
		}
		snap.SessionsTotal++
		switch s.Status {
		case model.SessionCompleted:
			snap.SessionsCompleted++
			snap.BusinessesFound += s.BusinessesFound
		case model.SessionFailed:
			snap.SessionsFailed++
		default:
			snap.SessionsActive++
		}
	}
	if finished := snap.SessionsCompleted + snap.SessionsFailed; finished > 0 {
		snap.CrawlFailRate = float64(snap.SessionsFailed) / float64(finished)
	}

	byTier, err := c.src.CountAPICallsByTier(ctx, cutoff)
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: count api calls")
	}
	snap.APICallsByTier = byTier
	for _, n := range byTier {
		snap.APICalls += n
	}
	snap.SpendUSD = c.calc.PlacesByTier(byTier)

	today, err := c.src.CountAPICallsByTier(ctx, crawl.StartOfDay(now))
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: count today's api calls")
	}
	for _, n := range today {
		snap.CallsToday += n
	}
	if c.dailyLimit > 0 {
		snap.BudgetUsage = float64(snap.CallsToday) / float64(c.dailyLimit)
	}

	return snap, nil
}
