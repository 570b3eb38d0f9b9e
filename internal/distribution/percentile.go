// Package distribution summarizes POI-per-road counts into the percentile
// thresholds that drive the percentile scoring formula.
package distribution

import (
	"math"
	"slices"

	"github.com/rotisserie/eris"
)

// ErrNegativeCount is returned when a count sample is below zero.
var ErrNegativeCount = eris.New("distribution: negative poi count")

// Percentiles describes a count distribution. Defined is false for an empty
// input, in which case every statistic is zero and should be read as null.
type Percentiles struct {
	N       int     `json:"n" yaml:"n"`
	Defined bool    `json:"defined" yaml:"defined"`
	P50     float64 `json:"p50" yaml:"p50"`
	P75     float64 `json:"p75" yaml:"p75"`
	P90     float64 `json:"p90" yaml:"p90"`
	P95     float64 `json:"p95" yaml:"p95"`
	P99     float64 `json:"p99" yaml:"p99"`
	Mean    float64 `json:"mean" yaml:"mean"`
	StdDev  float64 `json:"stddev" yaml:"stddev"`
	Max     float64 `json:"max" yaml:"max"`
}

// ComputePercentiles computes continuous percentiles (linear interpolation
// at position q*(n-1), as PERCENTILE_CONT does) plus mean, sample standard
// deviation, and max.
func ComputePercentiles(counts []int) (Percentiles, error) {
	for _, c := range counts {
		if c < 0 {
			return Percentiles{}, eris.Wrapf(ErrNegativeCount, "got %d", c)
		}
	}
	if len(counts) == 0 {
		return Percentiles{}, nil
	}

	sorted := make([]float64, len(counts))
	for i, c := range counts {
		sorted[i] = float64(c)
	}
	slices.Sort(sorted)

	n := len(sorted)
	var sum float64
	for _, v := range sorted {
		sum += v
	}
	mean := sum / float64(n)

	var stddev float64
	if n > 1 {
		var ss float64
		for _, v := range sorted {
			ss += (v - mean) * (v - mean)
		}
		stddev = math.Sqrt(ss / float64(n-1))
	}

	return Percentiles{
		N:       n,
		Defined: true,
		P50:     quantile(sorted, 0.50),
		P75:     quantile(sorted, 0.75),
		P90:     quantile(sorted, 0.90),
		P95:     quantile(sorted, 0.95),
		P99:     quantile(sorted, 0.99),
		Mean:    mean,
		StdDev:  stddev,
		Max:     sorted[n-1],
	}, nil
}

func quantile(sorted []float64, q float64) float64 {
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo] + frac*(sorted[hi]-sorted[lo])
}
