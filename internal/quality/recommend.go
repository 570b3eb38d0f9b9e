package quality

// Crawl recommendations shown alongside a road's quality report.
const (
	RecommendHighPriority = "High priority - Many businesses missing contact info"
	RecommendChains       = "Target chain stores for consistent data"
	RecommendBatch        = "High density area - batch crawl recommended"
	RecommendStandard     = "Standard crawl recommended"
)

// Recommendation picks a crawl recommendation from the share of records
// missing a phone (0-100), the number of chain stores, and the record count.
func Recommendation(missingPct float64, chainStores, total int) string {
	switch {
	case missingPct > 70:
		return RecommendHighPriority
	case chainStores > 5:
		return RecommendChains
	case total > 20:
		return RecommendBatch
	default:
		return RecommendStandard
	}
}

// RecommendationFor derives a recommendation from a Report, counting
// branded records as chain stores.
func RecommendationFor(r Report, chainStores int) string {
	var missing float64
	if r.Total > 0 {
		missing = 100 * float64(r.MissingPhone()) / float64(r.Total)
	}
	return Recommendation(missing, chainStores, r.Total)
}
