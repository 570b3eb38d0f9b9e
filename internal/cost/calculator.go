// Package cost prices Google Places usage by field mask tier.
package cost

import (
	"maps"

	"github.com/sells-group/road-crawl-cli/internal/config"
	"github.com/sells-group/road-crawl-cli/pkg/google"
)

// Rates holds USD per 1,000 Text Search requests, keyed by tier.
type Rates struct {
	Places map[google.Tier]float64 `yaml:"places" mapstructure:"places"`
}

// Calculator computes costs for API usage.
type Calculator struct {
	rates Rates
}

// NewCalculator creates a Calculator with the given rates.
func NewCalculator(rates Rates) *Calculator {
	return &Calculator{rates: rates}
}

// DefaultRates returns Text Search list prices. The basic mask bills as
// Pro; any contact or atmosphere field moves the request to Enterprise.
func DefaultRates() Rates {
	return Rates{
		Places: map[google.Tier]float64{
			google.TierBasic:         32.00,
			google.TierMinimal:       35.00,
			google.TierStandard:      35.00,
			google.TierComprehensive: 40.00,
		},
	}
}

// RatesFromConfig overlays configured per-tier prices on DefaultRates.
func RatesFromConfig(cfg config.PricingConfig) Rates {
	r := DefaultRates()
	r.Places = maps.Clone(r.Places)
	for tier, usd := range cfg.Places {
		r.Places[google.Tier(tier)] = usd
	}
	return r
}

// Places returns the cost of n requests at tier. Unknown tiers are priced
// at the comprehensive rate.
func (c *Calculator) Places(tier google.Tier, n int) float64 {
	rate, ok := c.rates.Places[tier]
	if !ok {
		rate = c.rates.Places[google.TierComprehensive]
	}
	return float64(n) / 1000 * rate
}

// PlacesByTier sums the cost of request counts keyed by tier name.
func (c *Calculator) PlacesByTier(counts map[string]int) float64 {
	var total float64
	for tier, n := range counts {
		total += c.Places(google.Tier(tier), n)
	}
	return total
}
