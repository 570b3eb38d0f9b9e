package spatial

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/road-crawl-cli/internal/db"
	"github.com/sells-group/road-crawl-cli/internal/model"
)

// PostGISCounter runs the proximity join in the database against the stored
// road geometry, so callers only need the road id.
type PostGISCounter struct {
	pool db.Pool
}

var _ Counter = (*PostGISCounter)(nil)

// NewPostGISCounter creates a counter backed by pool.
func NewPostGISCounter(pool db.Pool) *PostGISCounter {
	return &PostGISCounter{pool: pool}
}

const countNearbySQL = `
	SELECT COUNT(DISTINCT p.osm_id)
	FROM osm_roads r
	JOIN osm_pois p
	  ON ST_DWithin(p.geom::geography, r.geom::geography, $2)
	WHERE r.osm_id = $1
	  AND NOT ST_IsEmpty(r.geom)
	  AND ST_Length(r.geom::geography) > 0
`

const nearbySQL = `
	SELECT DISTINCT p.osm_id
	FROM osm_roads r
	JOIN osm_pois p
	  ON ST_DWithin(p.geom::geography, r.geom::geography, $2)
	WHERE r.osm_id = $1
	  AND NOT ST_IsEmpty(r.geom)
	  AND ST_Length(r.geom::geography) > 0
	ORDER BY p.osm_id
`

// CountNearby returns COUNT(DISTINCT osm_id) of POIs within radius.
func (c *PostGISCounter) CountNearby(ctx context.Context, road *model.RoadSegment, radiusMeters float64) (int, error) {
	if err := checkRadius(radiusMeters); err != nil {
		return 0, err
	}
	if road == nil {
		return 0, nil
	}
	var n int
	if err := c.pool.QueryRow(ctx, countNearbySQL, road.ID, radiusMeters).Scan(&n); err != nil {
		return 0, eris.Wrapf(err, "spatial: count pois near road %d", road.ID)
	}
	return n, nil
}

// Nearby returns the sorted distinct POI ids within radius.
func (c *PostGISCounter) Nearby(ctx context.Context, road *model.RoadSegment, radiusMeters float64) ([]int64, error) {
	if err := checkRadius(radiusMeters); err != nil {
		return nil, err
	}
	if road == nil {
		return nil, nil
	}
	rows, err := c.pool.Query(ctx, nearbySQL, road.ID, radiusMeters)
	if err != nil {
		return nil, eris.Wrapf(err, "spatial: query pois near road %d", road.ID)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, eris.Wrap(err, "spatial: scan poi id")
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "spatial: iterate poi ids")
	}
	return ids, nil
}
