package distribution

import (
	"cmp"
	"slices"

	"github.com/sells-group/road-crawl-cli/internal/model"
)

// DefaultMinSample is the smallest per-class sample reported by
// HighwayBreakdown.
const DefaultMinSample = 10

// Sample is one road's POI count tagged with its highway class.
type Sample struct {
	Highway  model.HighwayClass `json:"highway"`
	POICount int                `json:"poi_count"`
}

// ClassStats is the distribution for a single highway class.
type ClassStats struct {
	Highway model.HighwayClass `json:"highway" yaml:"highway"`

	Percentiles `yaml:",inline"`
}

// HighwayBreakdown groups samples by highway class, drops classes with fewer
// than minSample roads, and orders the rest by P75 descending (class name
// breaks ties). minSample <= 0 uses DefaultMinSample.
func HighwayBreakdown(samples []Sample, minSample int) ([]ClassStats, error) {
	if minSample <= 0 {
		minSample = DefaultMinSample
	}

	byClass := make(map[model.HighwayClass][]int)
	for _, s := range samples {
		byClass[s.Highway] = append(byClass[s.Highway], s.POICount)
	}

	out := make([]ClassStats, 0, len(byClass))
	for class, counts := range byClass {
		if len(counts) < minSample {
			continue
		}
		p, err := ComputePercentiles(counts)
		if err != nil {
			return nil, err
		}
		out = append(out, ClassStats{Highway: class, Percentiles: p})
	}

	slices.SortFunc(out, func(a, b ClassStats) int {
		if c := cmp.Compare(b.P75, a.P75); c != 0 {
			return c
		}
		return cmp.Compare(a.Highway, b.Highway)
	})
	return out, nil
}

// Bucket is a histogram bin of roads by POI count.
type Bucket struct {
	Label   string  `json:"label" yaml:"label"`
	Min     int     `json:"min" yaml:"min"`
	Max     int     `json:"max" yaml:"max"` // -1 for open-ended
	Roads   int     `json:"roads" yaml:"roads"`
	Percent float64 `json:"percent" yaml:"percent"`
}

var bucketBounds = []Bucket{
	{Label: "0", Min: 0, Max: 0},
	{Label: "1-5", Min: 1, Max: 5},
	{Label: "6-10", Min: 6, Max: 10},
	{Label: "11-20", Min: 11, Max: 20},
	{Label: "20+", Min: 21, Max: -1},
}

// CountBuckets bins counts into 0, 1-5, 6-10, 11-20, and 20+ with the share
// of roads in each bin as a percentage. Negative counts are rejected.
func CountBuckets(counts []int) ([]Bucket, error) {
	out := slices.Clone(bucketBounds)
	for _, c := range counts {
		if c < 0 {
			return nil, ErrNegativeCount
		}
		for i := range out {
			if c >= out[i].Min && (out[i].Max < 0 || c <= out[i].Max) {
				out[i].Roads++
				break
			}
		}
	}
	if len(counts) > 0 {
		for i := range out {
			out[i].Percent = 100 * float64(out[i].Roads) / float64(len(counts))
		}
	}
	return out, nil
}
