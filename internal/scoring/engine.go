package scoring

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/road-crawl-cli/internal/config"
	"github.com/sells-group/road-crawl-cli/internal/model"
)

// Result is a score with the formula that produced it.
type Result struct {
	Score   float64 `json:"score"`
	Formula Formula `json:"formula"`
}

// DefaultConfig returns a config.ScoringConfig with the percentile formula
// as system of record.
func DefaultConfig() config.ScoringConfig {
	return config.ScoringConfig{
		Formula:          string(FormulaPercentile),
		RadiusMeters:     50,
		MinSample:        10,
		MinPositiveScore: DefaultMinPositiveScore,
	}
}

// ValidateConfig checks that a ScoringConfig is internally consistent.
func ValidateConfig(c config.ScoringConfig) error {
	var errs []string

	switch Formula(c.Formula) {
	case FormulaTiered, FormulaPercentile, FormulaHighway:
	default:
		errs = append(errs, fmt.Sprintf("unknown formula %q", c.Formula))
	}
	if c.RadiusMeters <= 0 {
		errs = append(errs, "radius_meters must be > 0")
	}
	if c.MinSample < 0 {
		errs = append(errs, "min_sample must be >= 0")
	}
	if c.MinPositiveScore < 0 || c.MinPositiveScore > MaxScore {
		errs = append(errs, "min_positive_score must be between 0 and 10")
	}

	if len(errs) > 0 {
		return eris.Errorf("scoring: config validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Engine applies the configured formula. It is immutable and safe for
// concurrent use.
type Engine struct {
	formula     Formula
	minPositive float64
}

// NewEngine validates cfg and builds an Engine.
func NewEngine(cfg config.ScoringConfig) (*Engine, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	return &Engine{formula: Formula(cfg.Formula), minPositive: cfg.MinPositiveScore}, nil
}

// Formula returns the configured system-of-record formula.
func (e *Engine) Formula() Formula {
	return e.formula
}

// Score scores a known POI count. The percentile formula falls back to
// tiered when thresholds are missing or unusable, and the highway formula
// falls back to tiered when the class is unknown.
func (e *Engine) Score(poiCount int, class *model.HighwayClass, th *Thresholds) (Result, error) {
	if poiCount < 0 {
		return Result{}, eris.Wrapf(ErrNegativeCount, "got %d", poiCount)
	}

	switch e.formula {
	case FormulaPercentile:
		if th.Usable() {
			return Result{Score: Percentile(poiCount, *th, e.minPositive), Formula: FormulaPercentile}, nil
		}
	case FormulaHighway:
		if class != nil {
			return Result{Score: HighwayWeighted(poiCount, *class), Formula: FormulaHighway}, nil
		}
	}
	return Result{Score: Tiered(poiCount), Formula: FormulaTiered}, nil
}

// ScoreRoad uses the POI-driven formula when poiCount is known and the
// class-only baseline otherwise.
func (e *Engine) ScoreRoad(poiCount *int, class model.HighwayClass, th *Thresholds) (Result, error) {
	if poiCount == nil {
		return Result{Score: ClassBaseline(class), Formula: FormulaClassOnly}, nil
	}
	return e.Score(*poiCount, &class, th)
}
