// Package spatial attributes POIs to roads: an in-memory R-tree index for
// batch work and a PostGIS-backed counter for on-demand queries. Distances
// are geodesic meters.
package spatial

import (
	"context"
	"math"
	"slices"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tidwall/rtree"

	"github.com/sells-group/road-crawl-cli/internal/geo"
	"github.com/sells-group/road-crawl-cli/internal/model"
)

// DefaultRadiusMeters is the proximity buffer used to attribute POIs to a
// road.
const DefaultRadiusMeters = 50.0

// ErrInvalidRadius is returned for negative or non-finite radii.
var ErrInvalidRadius = eris.New("spatial: radius must be a finite non-negative number")

// Counter answers "which POIs lie within radius meters of this road".
// Roads with degenerate geometry yield zero results, not an error.
type Counter interface {
	CountNearby(ctx context.Context, road *model.RoadSegment, radiusMeters float64) (int, error)
	Nearby(ctx context.Context, road *model.RoadSegment, radiusMeters float64) ([]int64, error)
}

// Index is an immutable R-tree over POI points. It is safe for concurrent
// reads once built.
type Index struct {
	tree rtree.RTreeG[int]
	pois []model.BusinessPOI
}

var _ Counter = (*Index)(nil)

// NewIndex builds an index. POIs are deduplicated by ID (the last one wins)
// and POIs with invalid coordinates are skipped.
func NewIndex(pois []model.BusinessPOI) *Index {
	byID := make(map[int64]int, len(pois))
	ix := &Index{pois: make([]model.BusinessPOI, 0, len(pois))}
	for _, p := range pois {
		if !p.Location.Valid() {
			continue
		}
		if i, ok := byID[p.ID]; ok {
			ix.pois[i] = p
			continue
		}
		byID[p.ID] = len(ix.pois)
		ix.pois = append(ix.pois, p)
	}
	for i, p := range ix.pois {
		pt := [2]float64{p.Location.Lng, p.Location.Lat}
		ix.tree.Insert(pt, pt, i)
	}
	return ix
}

// Len returns the number of indexed POIs.
func (ix *Index) Len() int {
	return len(ix.pois)
}

// CountNearby returns the number of distinct POIs within radius of road.
func (ix *Index) CountNearby(ctx context.Context, road *model.RoadSegment, radiusMeters float64) (int, error) {
	ids, err := ix.Nearby(ctx, road, radiusMeters)
	return len(ids), err
}

// Nearby returns the sorted ids of POIs within radius of road.
func (ix *Index) Nearby(_ context.Context, road *model.RoadSegment, radiusMeters float64) ([]int64, error) {
	pois, err := ix.NearbyPOIs(road, radiusMeters)
	if err != nil {
		return nil, err
	}
	return poiIDs(pois), nil
}

// NearbyPOIs returns the POIs within radius of road, ordered by id.
func (ix *Index) NearbyPOIs(road *model.RoadSegment, radiusMeters float64) ([]model.BusinessPOI, error) {
	if err := checkRadius(radiusMeters); err != nil {
		return nil, err
	}
	if road == nil || road.Degenerate() {
		return nil, nil
	}
	return ix.nearLine(road.Points(), radiusMeters), nil
}

// NearbyGroupPOIs returns the union of POIs near any of the segments,
// counting a POI once even if several segments are within range of it.
func (ix *Index) NearbyGroupPOIs(segments []*model.RoadSegment, radiusMeters float64) ([]model.BusinessPOI, error) {
	if err := checkRadius(radiusMeters); err != nil {
		return nil, err
	}
	seen := make(map[int64]bool)
	var out []model.BusinessPOI
	for _, seg := range segments {
		if seg == nil || seg.Degenerate() {
			continue
		}
		for _, p := range ix.nearLine(seg.Points(), radiusMeters) {
			if !seen[p.ID] {
				seen[p.ID] = true
				out = append(out, p)
			}
		}
	}
	slices.SortFunc(out, func(a, b model.BusinessPOI) int { return compareInt64(a.ID, b.ID) })
	return out, nil
}

// NearbyByName rolls up every segment in roads that shares name inside
// region (state and county) and returns the distinct POIs near any of them.
func (ix *Index) NearbyByName(roads []*model.RoadSegment, region model.Region, name string, radiusMeters float64) ([]model.BusinessPOI, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return nil, nil
	}
	var segs []*model.RoadSegment
	for _, r := range roads {
		if r.Region.StateCode != region.StateCode || r.Region.CountyFIPS != region.CountyFIPS {
			continue
		}
		if strings.ToLower(strings.TrimSpace(r.DisplayName())) == key {
			segs = append(segs, r)
		}
	}
	return ix.NearbyGroupPOIs(segs, radiusMeters)
}

// CountNearbyByName is the count form of NearbyByName.
func (ix *Index) CountNearbyByName(roads []*model.RoadSegment, region model.Region, name string, radiusMeters float64) (int, error) {
	pois, err := ix.NearbyByName(roads, region, name, radiusMeters)
	return len(pois), err
}

// WithinPoint returns POIs within radius of a point.
func (ix *Index) WithinPoint(pt geo.Point, radiusMeters float64) []model.BusinessPOI {
	if !pt.Valid() || checkRadius(radiusMeters) != nil {
		return nil
	}
	return ix.nearLine([]geo.Point{pt}, radiusMeters)
}

func (ix *Index) nearLine(line []geo.Point, radius float64) []model.BusinessPOI {
	minPt, maxPt := bounds(line)
	lat := math.Max(math.Abs(minPt.Lat), math.Abs(maxPt.Lat))
	dLat, dLng := geo.BufferDegrees(lat, radius)

	var out []model.BusinessPOI
	ix.tree.Search(
		[2]float64{minPt.Lng - dLng, minPt.Lat - dLat},
		[2]float64{maxPt.Lng + dLng, maxPt.Lat + dLat},
		func(_, _ [2]float64, i int) bool {
			p := ix.pois[i]
			if geo.DistanceToPolyline(p.Location, line) <= radius {
				out = append(out, p)
			}
			return true
		},
	)
	slices.SortFunc(out, func(a, b model.BusinessPOI) int { return compareInt64(a.ID, b.ID) })
	return out
}

// GroupKey identifies all segments of one named road inside a region.
type GroupKey struct {
	StateCode  string
	CountyFIPS string
	Name       string
}

// GroupByName buckets named segments by region and case-folded name.
// Unnamed segments are returned separately because they cannot be rolled up.
func GroupByName(roads []*model.RoadSegment) (groups map[GroupKey][]*model.RoadSegment, unnamed []*model.RoadSegment) {
	groups = make(map[GroupKey][]*model.RoadSegment)
	for _, r := range roads {
		name := strings.ToLower(strings.TrimSpace(r.DisplayName()))
		if name == "" {
			unnamed = append(unnamed, r)
			continue
		}
		k := GroupKey{StateCode: r.Region.StateCode, CountyFIPS: r.Region.CountyFIPS, Name: name}
		groups[k] = append(groups[k], r)
	}
	return groups, unnamed
}

func bounds(line []geo.Point) (minPt, maxPt geo.Point) {
	minPt = geo.Point{Lat: math.Inf(1), Lng: math.Inf(1)}
	maxPt = geo.Point{Lat: math.Inf(-1), Lng: math.Inf(-1)}
	for _, p := range line {
		minPt.Lat = math.Min(minPt.Lat, p.Lat)
		minPt.Lng = math.Min(minPt.Lng, p.Lng)
		maxPt.Lat = math.Max(maxPt.Lat, p.Lat)
		maxPt.Lng = math.Max(maxPt.Lng, p.Lng)
	}
	return minPt, maxPt
}

func checkRadius(r float64) error {
	if r < 0 || math.IsNaN(r) || math.IsInf(r, 0) {
		return ErrInvalidRadius
	}
	return nil
}

func poiIDs(pois []model.BusinessPOI) []int64 {
	ids := make([]int64, len(pois))
	for i, p := range pois {
		ids[i] = p.ID
	}
	return ids
}

func compareInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
