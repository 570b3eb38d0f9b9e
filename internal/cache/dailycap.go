package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"

	"github.com/sells-group/road-crawl-cli/internal/crawl"
)

const dailyCapKeyPrefix = "roadcrawl:places:daily:"

// dailyCapTTL outlives the UTC day so late readers still see the count.
const dailyCapTTL = 48 * time.Hour

// DailyCap is a crawl.DailyCap shared by every process using the same
// Redis. Counters are keyed by UTC day.
type DailyCap struct {
	rdb   redis.Cmdable
	limit int
	now   func() time.Time
}

var _ crawl.DailyCap = (*DailyCap)(nil)

// NewDailyCap creates a cap of limit requests per UTC day. A limit <= 0
// disables the cap.
func NewDailyCap(rdb redis.Cmdable, limit int) *DailyCap {
	return &DailyCap{rdb: rdb, limit: limit, now: time.Now}
}

func (c *DailyCap) key() string {
	return dailyCapKeyPrefix + c.now().UTC().Format("2006-01-02")
}

// Seed sets today's counter to used unless another process already has.
func (c *DailyCap) Seed(ctx context.Context, used int) error {
	if used < 0 {
		used = 0
	}
	return eris.Wrap(c.rdb.SetNX(ctx, c.key(), used, dailyCapTTL).Err(), "cache: seed daily cap")
}

func (c *DailyCap) Take(ctx context.Context, n int) (bool, error) {
	if c.limit <= 0 {
		return true, nil
	}
	key := c.key()

	var incr *redis.IntCmd
	_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.IncrBy(ctx, key, int64(n))
		pipe.Expire(ctx, key, dailyCapTTL)
		return nil
	})
	if err != nil {
		return false, eris.Wrap(err, "cache: take daily cap")
	}
	if incr.Val() > int64(c.limit) {
		if err := c.rdb.DecrBy(ctx, key, int64(n)).Err(); err != nil {
			return false, eris.Wrap(err, "cache: release daily cap")
		}
		return false, nil
	}
	return true, nil
}

func (c *DailyCap) Remaining(ctx context.Context) (int, error) {
	if c.limit <= 0 {
		return -1, nil
	}
	used, err := c.rdb.Get(ctx, c.key()).Int()
	if errors.Is(err, redis.Nil) {
		return c.limit, nil
	}
	if err != nil {
		return 0, eris.Wrap(err, "cache: read daily cap")
	}
	return max(c.limit-used, 0), nil
}
