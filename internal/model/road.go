package model

import (
	"strings"

	"github.com/twpayne/go-geom"

	"github.com/sells-group/road-crawl-cli/internal/geo"
)

// HighwayClass is the OSM highway tag of a road segment.
type HighwayClass string

const (
	HighwayPrimary      HighwayClass = "primary"
	HighwaySecondary    HighwayClass = "secondary"
	HighwayTertiary     HighwayClass = "tertiary"
	HighwayResidential  HighwayClass = "residential"
	HighwayUnclassified HighwayClass = "unclassified"
	HighwayService      HighwayClass = "service"
	HighwayLivingStreet HighwayClass = "living_street"
	HighwayMotorway     HighwayClass = "motorway"
	HighwayTrunk        HighwayClass = "trunk"
	HighwayOther        HighwayClass = "other"
)

var knownHighways = map[HighwayClass]bool{
	HighwayPrimary:      true,
	HighwaySecondary:    true,
	HighwayTertiary:     true,
	HighwayResidential:  true,
	HighwayUnclassified: true,
	HighwayService:      true,
	HighwayLivingStreet: true,
	HighwayMotorway:     true,
	HighwayTrunk:        true,
	HighwayOther:        true,
}

// ParseHighwayClass maps a raw OSM highway tag to a HighwayClass.
// Link roads ("primary_link") fold into their parent class and anything
// unrecognized becomes HighwayOther.
func ParseHighwayClass(tag string) HighwayClass {
	tag = strings.ToLower(strings.TrimSpace(tag))
	tag = strings.TrimSuffix(tag, "_link")
	c := HighwayClass(tag)
	if knownHighways[c] {
		return c
	}
	return HighwayOther
}

// Valid reports whether c is one of the enumerated classes.
func (c HighwayClass) Valid() bool {
	return knownHighways[c]
}

// Region is the administrative membership of a road.
type Region struct {
	StateCode  string `json:"state_code" validate:"omitempty,len=2,alpha"`
	CountyFIPS string `json:"county_fips,omitempty" validate:"omitempty,numeric"`
	City       string `json:"city,omitempty"`
}

// RoadSegment is one OSM way. A named road is often split into several
// segments that share a name within a region.
type RoadSegment struct {
	ID       int64            `json:"id" validate:"gt=0"`
	Name     *string          `json:"name,omitempty"`
	Highway  HighwayClass     `json:"highway" validate:"required"`
	Region   Region           `json:"region"`
	Geometry *geom.LineString `json:"-" validate:"-"`
}

// NewRoadSegment builds and validates a RoadSegment. A nil or degenerate
// geometry is accepted; spatial queries treat such roads as empty.
func NewRoadSegment(id int64, name string, highway string, region Region, line *geom.LineString) (*RoadSegment, error) {
	r := &RoadSegment{
		ID:       id,
		Highway:  ParseHighwayClass(highway),
		Region:   region,
		Geometry: line,
	}
	if n := strings.TrimSpace(name); n != "" {
		r.Name = &n
	}
	if err := Validate(r); err != nil {
		return nil, err
	}
	return r, nil
}

// DisplayName returns the road name or an empty string for unnamed roads.
func (r *RoadSegment) DisplayName() string {
	if r.Name == nil {
		return ""
	}
	return *r.Name
}

// Points returns the geometry as WGS84 points (go-geom stores X=lng, Y=lat).
func (r *RoadSegment) Points() []geo.Point {
	if r.Geometry == nil {
		return nil
	}
	n := r.Geometry.NumCoords()
	pts := make([]geo.Point, 0, n)
	for i := 0; i < n; i++ {
		c := r.Geometry.Coord(i)
		pts = append(pts, geo.Point{Lat: c.Y(), Lng: c.X()})
	}
	return pts
}

// LengthMeters returns the geodesic length of the road.
func (r *RoadSegment) LengthMeters() float64 {
	return geo.PolylineLength(r.Points())
}

// Degenerate reports whether the geometry is missing, has fewer than two
// vertices, has invalid coordinates, or has zero length.
func (r *RoadSegment) Degenerate() bool {
	pts := r.Points()
	if len(pts) < 2 {
		return true
	}
	for _, p := range pts {
		if !p.Valid() {
			return true
		}
	}
	return geo.PolylineLength(pts) == 0
}

// Centroid returns the length-weighted midpoint of the road's segments.
// The second return is false when the geometry is degenerate.
func (r *RoadSegment) Centroid() (geo.Point, bool) {
	if r.Degenerate() {
		return geo.Point{}, false
	}
	pts := r.Points()
	var total, lat, lng float64
	for i := 1; i < len(pts); i++ {
		w := geo.Haversine(pts[i-1], pts[i])
		mid := geo.Interpolate(pts[i-1], pts[i], 0.5)
		lat += mid.Lat * w
		lng += mid.Lng * w
		total += w
	}
	return geo.Point{Lat: lat / total, Lng: lng / total}, true
}
