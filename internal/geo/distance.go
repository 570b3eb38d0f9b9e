// Package geo provides spherical-earth distance helpers used by the spatial
// join and crawl planning code. All coordinates are WGS84 degrees.
package geo

import "math"

// EarthRadiusMeters is the mean earth radius (IUGG).
const EarthRadiusMeters = 6371008.8

const degToRad = math.Pi / 180

// Point is a WGS84 coordinate.
type Point struct {
	Lat float64 `json:"lat" validate:"latitude"`
	Lng float64 `json:"lng" validate:"longitude"`
}

// Valid reports whether the point lies inside the WGS84 coordinate range.
func (p Point) Valid() bool {
	return !math.IsNaN(p.Lat) && !math.IsNaN(p.Lng) &&
		p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}

// Haversine returns the great-circle distance between two points in meters.
func Haversine(a, b Point) float64 {
	lat1 := a.Lat * degToRad
	lat2 := b.Lat * degToRad
	dLat := (b.Lat - a.Lat) * degToRad
	dLng := (b.Lng - a.Lng) * degToRad

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * EarthRadiusMeters * math.Asin(math.Min(1, math.Sqrt(h)))
}

// DistanceToSegment returns the distance in meters from p to the segment a-b.
// The segment is projected onto a local equirectangular plane centred on p,
// which is accurate to well under a meter at the buffer sizes we use.
func DistanceToSegment(p, a, b Point) float64 {
	cosLat := math.Cos(p.Lat * degToRad)
	ax, ay := project(a, p, cosLat)
	bx, by := project(b, p, cosLat)

	dx, dy := bx-ax, by-ay
	lenSq := dx*dx + dy*dy
	if lenSq == 0 {
		return Haversine(p, a)
	}

	// p sits at the origin of the local plane.
	t := -(ax*dx + ay*dy) / lenSq
	t = math.Max(0, math.Min(1, t))
	closest := Point{
		Lat: a.Lat + t*(b.Lat-a.Lat),
		Lng: a.Lng + t*(b.Lng-a.Lng),
	}
	return Haversine(p, closest)
}

// DistanceToPolyline returns the minimum distance in meters from p to any
// segment of the polyline. It returns +Inf for an empty polyline.
func DistanceToPolyline(p Point, line []Point) float64 {
	switch len(line) {
	case 0:
		return math.Inf(1)
	case 1:
		return Haversine(p, line[0])
	}
	best := math.Inf(1)
	for i := 1; i < len(line); i++ {
		if d := DistanceToSegment(p, line[i-1], line[i]); d < best {
			best = d
		}
	}
	return best
}

// PolylineLength returns the geodesic length of the polyline in meters.
func PolylineLength(line []Point) float64 {
	var total float64
	for i := 1; i < len(line); i++ {
		total += Haversine(line[i-1], line[i])
	}
	return total
}

// Interpolate returns the point a fraction t of the way from a to b.
func Interpolate(a, b Point, t float64) Point {
	return Point{
		Lat: a.Lat + t*(b.Lat-a.Lat),
		Lng: a.Lng + t*(b.Lng-a.Lng),
	}
}

// BufferDegrees converts a buffer in meters into latitude and longitude
// deltas at the given latitude. Near the poles the longitude delta is
// clamped to the full range.
func BufferDegrees(lat, meters float64) (dLat, dLng float64) {
	dLat = meters / (EarthRadiusMeters * degToRad)
	cosLat := math.Cos(lat * degToRad)
	if cosLat < 1e-6 {
		return dLat, 180
	}
	dLng = dLat / cosLat
	return dLat, math.Min(dLng, 180)
}

func project(q, origin Point, cosLat float64) (x, y float64) {
	x = (q.Lng - origin.Lng) * degToRad * cosLat * EarthRadiusMeters
	y = (q.Lat - origin.Lat) * degToRad * EarthRadiusMeters
	return x, y
}
