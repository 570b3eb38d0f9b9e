package spatial

import (
	"math"

	"github.com/sells-group/road-crawl-cli/internal/geo"
)

// SampleAlong walks the polyline and emits a point every stepMeters,
// starting at the first vertex. The final vertex is appended when the
// remaining tail is at least half a step, so short roads still get both
// ends covered.
func SampleAlong(line []geo.Point, stepMeters float64) []geo.Point {
	if len(line) == 0 || stepMeters <= 0 || math.IsNaN(stepMeters) {
		return nil
	}

	out := []geo.Point{line[0]}
	carried := 0.0 // distance walked since the last emitted sample
	for i := 1; i < len(line); i++ {
		a, b := line[i-1], line[i]
		segLen := geo.Haversine(a, b)
		if segLen == 0 {
			continue
		}
		pos := stepMeters - carried
		for pos <= segLen {
			out = append(out, geo.Interpolate(a, b, pos/segLen))
			pos += stepMeters
		}
		carried = segLen - (pos - stepMeters)
	}

	if carried >= stepMeters/2 {
		out = append(out, line[len(line)-1])
	}
	return out
}

// DistanceToNearest returns the distance from pt to the closest of others and
// false when others is empty.
func DistanceToNearest(pt geo.Point, others []geo.Point) (float64, bool) {
	if len(others) == 0 {
		return 0, false
	}
	best := math.Inf(1)
	for _, o := range others {
		best = math.Min(best, geo.Haversine(pt, o))
	}
	return best, true
}
