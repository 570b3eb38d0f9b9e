package spatial

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/road-crawl-cli/internal/geo"
)

func TestSampleAlong(t *testing.T) {
	// ~1000 m due north.
	a := geo.Point{Lat: 30.0, Lng: -97.0}
	b := geo.Point{Lat: 30.0 + 10*latPer100m, Lng: -97.0}

	pts := SampleAlong([]geo.Point{a, b}, 200)
	require.Len(t, pts, 6)
	assert.Equal(t, a, pts[0])
	for i := 1; i < len(pts); i++ {
		assert.InDelta(t, 200, geo.Haversine(pts[i-1], pts[i]), 1)
	}
}

func TestSampleAlong_CarriesAcrossVertices(t *testing.T) {
	a := geo.Point{Lat: 30.0, Lng: -97.0}
	b := geo.Point{Lat: 30.0 + 1.5*latPer100m, Lng: -97.0}
	c := geo.Point{Lat: 30.0 + 3*latPer100m, Lng: -97.0}

	pts := SampleAlong([]geo.Point{a, b, c}, 100)
	require.Len(t, pts, 4)
	assert.InDelta(t, 100, geo.Haversine(a, pts[1]), 1)
	assert.InDelta(t, 200, geo.Haversine(a, pts[2]), 1)
	assert.InDelta(t, 300, geo.Haversine(a, pts[3]), 1)
}

func TestSampleAlong_ShortRoadIncludesEnd(t *testing.T) {
	a := geo.Point{Lat: 30.0, Lng: -97.0}
	b := geo.Point{Lat: 30.0 + 1.5*latPer100m, Lng: -97.0}
	pts := SampleAlong([]geo.Point{a, b}, 200)
	assert.Equal(t, []geo.Point{a, b}, pts)
}

func TestSampleAlong_Invalid(t *testing.T) {
	assert.Nil(t, SampleAlong(nil, 200))
	assert.Nil(t, SampleAlong([]geo.Point{{Lat: 1, Lng: 1}}, 0))
	assert.Len(t, SampleAlong([]geo.Point{{Lat: 1, Lng: 1}}, 100), 1)
}

func TestDistanceToNearest(t *testing.T) {
	_, ok := DistanceToNearest(geo.Point{}, nil)
	assert.False(t, ok)

	d, ok := DistanceToNearest(geo.Point{Lat: 30, Lng: -97}, []geo.Point{
		{Lat: 30 + latPer100m, Lng: -97},
		{Lat: 30 + 0.5*latPer100m, Lng: -97},
	})
	assert.True(t, ok)
	assert.InDelta(t, 50, d, 0.5)
}
