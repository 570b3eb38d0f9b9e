package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHaversine(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		a, b  Point
		want  float64
		delta float64
	}{
		{"same point", Point{40.7, -74.0}, Point{40.7, -74.0}, 0, 0.001},
		{"one degree latitude", Point{0, 0}, Point{1, 0}, 111195, 5},
		{"nyc to philly", Point{40.7128, -74.0060}, Point{39.9526, -75.1652}, 129600, 1500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.InDelta(t, tt.want, Haversine(tt.a, tt.b), tt.delta)
		})
	}
}

func TestHaversine_LongitudeShrinksWithLatitude(t *testing.T) {
	t.Parallel()

	atEquator := Haversine(Point{0, 0}, Point{0, 0.001})
	atSixty := Haversine(Point{60, 0}, Point{60, 0.001})
	assert.InDelta(t, atEquator/2, atSixty, 0.5)
}

func TestDistanceToSegment(t *testing.T) {
	t.Parallel()

	a := Point{40.0, -75.0}
	b := Point{40.0, -74.99}

	// ~0.0004 deg latitude north of the segment midpoint is ~44.5m.
	p := Point{40.0004, -74.995}
	assert.InDelta(t, 44.5, DistanceToSegment(p, a, b), 0.5)

	// Beyond the end of the segment, distance is to the endpoint.
	past := Point{40.0, -74.98}
	assert.InDelta(t, Haversine(past, b), DistanceToSegment(past, a, b), 0.01)

	// Degenerate segment collapses to point distance.
	assert.InDelta(t, Haversine(p, a), DistanceToSegment(p, a, a), 0.01)
}

func TestDistanceToPolyline(t *testing.T) {
	t.Parallel()

	line := []Point{{40.0, -75.0}, {40.0, -74.99}, {40.01, -74.99}}
	p := Point{40.005, -74.9895}
	assert.Less(t, DistanceToPolyline(p, line), 50.0)

	assert.True(t, math.IsInf(DistanceToPolyline(p, nil), 1))
	assert.InDelta(t, Haversine(p, line[0]), DistanceToPolyline(p, line[:1]), 0.01)
}

func TestPolylineLength(t *testing.T) {
	t.Parallel()

	line := []Point{{0, 0}, {0.001, 0}, {0.002, 0}}
	assert.InDelta(t, 222.4, PolylineLength(line), 0.5)
	assert.Zero(t, PolylineLength(line[:1]))
	assert.Zero(t, PolylineLength(nil))
}

func TestBufferDegrees(t *testing.T) {
	t.Parallel()

	dLat, dLng := BufferDegrees(0, 111195)
	assert.InDelta(t, 1.0, dLat, 0.001)
	assert.InDelta(t, 1.0, dLng, 0.001)

	dLat, dLng = BufferDegrees(60, 50)
	assert.InDelta(t, dLat*2, dLng, 1e-6)

	_, dLng = BufferDegrees(90, 50)
	assert.Equal(t, 180.0, dLng)
}

func TestPointValid(t *testing.T) {
	t.Parallel()

	assert.True(t, Point{45, 90}.Valid())
	assert.False(t, Point{91, 0}.Valid())
	assert.False(t, Point{0, -181}.Valid())
	assert.False(t, Point{math.NaN(), 0}.Valid())
}
