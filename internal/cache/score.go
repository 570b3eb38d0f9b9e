package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"

	"github.com/sells-group/road-crawl-cli/internal/metrics"
)

const scoreKeyPrefix = "roadcrawl:score:"

// DefaultScoreTTL applies when no TTL is configured.
const DefaultScoreTTL = time.Hour

// ScoreCache stores computed road scores as JSON keyed by road id.
type ScoreCache struct {
	rdb redis.Cmdable
	ttl time.Duration
}

// NewScoreCache creates a cache whose entries live for ttl.
func NewScoreCache(rdb redis.Cmdable, ttl time.Duration) *ScoreCache {
	if ttl <= 0 {
		ttl = DefaultScoreTTL
	}
	return &ScoreCache{rdb: rdb, ttl: ttl}
}

func scoreKey(roadID int64) string {
	return scoreKeyPrefix + strconv.FormatInt(roadID, 10)
}

// Get decodes the cached score for roadID into dst and reports whether an
// entry was found.
func (c *ScoreCache) Get(ctx context.Context, roadID int64, dst any) (bool, error) {
	raw, err := c.rdb.Get(ctx, scoreKey(roadID)).Bytes()
	if errors.Is(err, redis.Nil) {
		metrics.ScoreCacheLookups.WithLabelValues("miss").Inc()
		return false, nil
	}
	if err != nil {
		metrics.ScoreCacheLookups.WithLabelValues("error").Inc()
		return false, eris.Wrapf(err, "cache: get score %d", roadID)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		metrics.ScoreCacheLookups.WithLabelValues("error").Inc()
		return false, eris.Wrapf(err, "cache: decode score %d", roadID)
	}
	metrics.ScoreCacheLookups.WithLabelValues("hit").Inc()
	return true, nil
}

// Set stores v for roadID.
func (c *ScoreCache) Set(ctx context.Context, roadID int64, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return eris.Wrapf(err, "cache: encode score %d", roadID)
	}
	if err := c.rdb.Set(ctx, scoreKey(roadID), raw, c.ttl).Err(); err != nil {
		return eris.Wrapf(err, "cache: set score %d", roadID)
	}
	return nil
}

// Invalidate drops the cached scores for roadIDs.
func (c *ScoreCache) Invalidate(ctx context.Context, roadIDs ...int64) error {
	if len(roadIDs) == 0 {
		return nil
	}
	keys := make([]string, len(roadIDs))
	for i, id := range roadIDs {
		keys[i] = scoreKey(id)
	}
	return eris.Wrap(c.rdb.Del(ctx, keys...).Err(), "cache: invalidate scores")
}
