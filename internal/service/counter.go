package service

import (
	"context"
	"slices"

	"github.com/sells-group/road-crawl-cli/internal/model"
	"github.com/sells-group/road-crawl-cli/internal/spatial"
	"github.com/sells-group/road-crawl-cli/internal/store"
)

// storeCounter answers proximity queries through Store.ListPOIsNear. It
// works with every driver.
type storeCounter struct {
	store store.Store
}

var _ spatial.Counter = (*storeCounter)(nil)

func (c *storeCounter) CountNearby(ctx context.Context, road *model.RoadSegment, radiusMeters float64) (int, error) {
	ids, err := c.Nearby(ctx, road, radiusMeters)
	return len(ids), err
}

func (c *storeCounter) Nearby(ctx context.Context, road *model.RoadSegment, radiusMeters float64) ([]int64, error) {
	if radiusMeters < 0 {
		return nil, spatial.ErrInvalidRadius
	}
	if road == nil || road.Degenerate() {
		return nil, nil
	}
	pois, err := c.store.ListPOIsNear(ctx, road, radiusMeters)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(pois))
	for _, p := range pois {
		ids = append(ids, p.ID)
	}
	slices.Sort(ids)
	return slices.Compact(ids), nil
}
