package crawl

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/road-crawl-cli/internal/config"
	"github.com/sells-group/road-crawl-cli/internal/metrics"
)

// ErrDailyCapReached is returned once the day's Places request allowance is
// spent. It is not retried.
var ErrDailyCapReached = eris.New("crawl: daily Places API cap reached")

// DailyCap counts paid requests per UTC day.
type DailyCap interface {
	// Take reserves n requests and reports false when that would exceed the
	// cap. A refused Take reserves nothing.
	Take(ctx context.Context, n int) (bool, error)
	// Remaining returns the requests left today, or -1 when uncapped.
	Remaining(ctx context.Context) (int, error)
}

// MemoryDailyCap is a process-local DailyCap. A limit <= 0 disables the cap.
type MemoryDailyCap struct {
	limit int
	now   func() time.Time

	mu   sync.Mutex
	day  string
	used int
}

var _ DailyCap = (*MemoryDailyCap)(nil)

// NewMemoryDailyCap creates a cap with used requests already spent today,
// typically seeded from the api_calls log.
func NewMemoryDailyCap(limit, used int) *MemoryDailyCap {
	c := &MemoryDailyCap{limit: limit, now: time.Now}
	c.day = dayKey(c.now())
	c.used = max(used, 0)
	return c
}

func (c *MemoryDailyCap) Take(_ context.Context, n int) (bool, error) {
	if c.limit <= 0 {
		return true, nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.roll()
	if c.used+n > c.limit {
		return false, nil
	}
	c.used += n
	return true, nil
}

func (c *MemoryDailyCap) Remaining(_ context.Context) (int, error) {
	if c.limit <= 0 {
		return -1, nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.roll()
	return max(c.limit-c.used, 0), nil
}

func (c *MemoryDailyCap) roll() {
	if d := dayKey(c.now()); d != c.day {
		c.day = d
		c.used = 0
	}
}

func dayKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// StartOfDay returns midnight UTC of t's day.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Budget gates every Places request on the token bucket and then the daily
// cap, so a request abandoned while waiting never spends the allowance.
type Budget struct {
	limiter *rate.Limiter
	daily   DailyCap
}

// NewBudget builds a budget from rate limit settings. A non-positive rate
// means unlimited; a nil cap means uncapped.
func NewBudget(cfg config.RateLimitConfig, daily DailyCap) *Budget {
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	return &Budget{
		limiter: rate.NewLimiter(limit, max(cfg.Burst, 1)),
		daily:   daily,
	}
}

// Acquire blocks until one request may be sent.
func (b *Budget) Acquire(ctx context.Context) error {
	start := time.Now()
	if err := b.limiter.Wait(ctx); err != nil {
		return eris.Wrap(err, "crawl: rate limiter wait")
	}
	metrics.RateLimitWaitTime.Observe(time.Since(start).Seconds())

	if b.daily != nil {
		ok, err := b.daily.Take(ctx, 1)
		if err != nil {
			return eris.Wrap(err, "crawl: daily cap")
		}
		if !ok {
			metrics.DailyCapRejections.Inc()
			return ErrDailyCapReached
		}
	}
	return nil
}

// Remaining reports the daily allowance left, or -1 when uncapped.
func (b *Budget) Remaining(ctx context.Context) (int, error) {
	if b.daily == nil {
		return -1, nil
	}
	return b.daily.Remaining(ctx)
}
