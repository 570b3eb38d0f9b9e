// Package scoring maps a road's POI count to a business potential score.
//
// Every scorer returns a value in [0, 10]. The POI-driven formulas (tiered,
// percentile, highway-weighted) are used whenever a count is known; the
// class-only baseline is a separate fallback for roads that have never been
// joined against POI data.
package scoring

import (
	"math"

	"github.com/rotisserie/eris"

	"github.com/sells-group/road-crawl-cli/internal/distribution"
	"github.com/sells-group/road-crawl-cli/internal/model"
)

// MaxScore is the top of the score range.
const MaxScore = 10.0

// DefaultMinPositiveScore is returned for a positive count in a region whose
// median is zero.
const DefaultMinPositiveScore = 0.5

// Formula names a scoring formula.
type Formula string

// Scoring formulas.
const (
	FormulaTiered     Formula = "tiered"
	FormulaPercentile Formula = "percentile"
	FormulaHighway    Formula = "highway"
	FormulaClassOnly  Formula = "class_only"
)

// ErrNegativeCount is returned for a POI count below zero.
var ErrNegativeCount = eris.New("scoring: negative poi count")

// Thresholds are the regional percentile breakpoints used by the percentile
// formula.
type Thresholds struct {
	P50 float64 `json:"p50"`
	P75 float64 `json:"p75"`
	P90 float64 `json:"p90"`
	P95 float64 `json:"p95"`
}

// ThresholdsFrom converts a distribution into thresholds. It returns nil for
// undefined or single-sample distributions, which carry no spread.
func ThresholdsFrom(p distribution.Percentiles) *Thresholds {
	if !p.Defined || p.N < 2 {
		return nil
	}
	return &Thresholds{P50: p.P50, P75: p.P75, P90: p.P90, P95: p.P95}
}

// Usable reports whether t can drive the percentile formula: present,
// finite, non-negative, and non-decreasing.
func (t *Thresholds) Usable() bool {
	if t == nil {
		return false
	}
	vals := []float64{t.P50, t.P75, t.P90, t.P95}
	for i, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return false
		}
		if i > 0 && v < vals[i-1] {
			return false
		}
	}
	return true
}

// Tiered is the data-independent formula: 20+ POIs score 10, 10-19 score 8,
// fewer score half a point each.
func Tiered(n int) float64 {
	switch {
	case n >= 20:
		return MaxScore
	case n >= 10:
		return 8
	case n > 0:
		return float64(n) * 0.5
	default:
		return 0
	}
}

// Percentile scores n against regional thresholds. Ties go to the higher
// tier. t must be Usable.
func Percentile(n int, t Thresholds, minPositive float64) float64 {
	c := float64(n)
	switch {
	case n <= 0:
		return 0
	case c >= t.P95:
		return MaxScore
	case c >= t.P90:
		return 9
	case c >= t.P75:
		return 8
	case c >= t.P50:
		if t.P75 == t.P50 {
			return 6
		}
		return 6 + 2*(c-t.P50)/(t.P75-t.P50)
	default:
		if t.P50 <= 0 {
			return minPositive
		}
		return math.Max(6*c/t.P50, minPositive)
	}
}

// HighwayWeighted rewards POIs more on arterial roads, where a handful of
// businesses already signals a commercial corridor.
func HighwayWeighted(n int, class model.HighwayClass) float64 {
	if n <= 0 {
		return 0
	}
	c := float64(n)
	var s float64
	switch class {
	case model.HighwayPrimary, model.HighwaySecondary, model.HighwayTrunk:
		switch {
		case n >= 10:
			s = 10
		case n >= 5:
			s = 9
		default:
			s = 5 + 0.8*c
		}
	case model.HighwayTertiary, model.HighwayUnclassified:
		switch {
		case n >= 8:
			s = 10
		case n >= 4:
			s = 8
		default:
			s = 2 * c
		}
	default:
		if n >= 5 {
			s = 8
		} else {
			s = 3 + c
		}
	}
	return math.Min(s, MaxScore)
}

// ClassBaseline is the potential implied by road class alone, for roads with
// no POI data yet.
func ClassBaseline(class model.HighwayClass) float64 {
	switch class {
	case model.HighwayPrimary, model.HighwaySecondary:
		return 8
	case model.HighwayTertiary:
		return 7
	case model.HighwayResidential, model.HighwayUnclassified:
		return 6
	case model.HighwayLivingStreet:
		return 5
	case model.HighwayMotorway, model.HighwayTrunk:
		return 3
	default:
		return 2
	}
}
