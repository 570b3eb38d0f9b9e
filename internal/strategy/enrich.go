package strategy

import (
	"github.com/sells-group/road-crawl-cli/internal/geo"
	"github.com/sells-group/road-crawl-cli/internal/model"
	"github.com/sells-group/road-crawl-cli/internal/spatial"
	"github.com/sells-group/road-crawl-cli/pkg/google"
)

// NonTrivialPOIScore is the POIScore above which a POI without a phone is
// worth a targeted search.
const NonTrivialPOIScore = 30

var highValueSubtypes = map[string]bool{
	"restaurant": true,
	"fuel":       true,
	"bank":       true,
	"pharmacy":   true,
}

// POIScore rates a single POI's business value on a 0-100 scale from its
// category and how much of it OSM already describes.
func POIScore(p *model.BusinessPOI) int {
	s := 15
	switch {
	case highValueSubtypes[p.Subtype]:
		s = 40
	case p.Type == "shop" || p.Type == "amenity":
		s = 30
	}
	if p.HasBrand() {
		s += 20
	}
	if p.DisplayName() != "" {
		s += 10
	}
	if p.HasPhone() {
		s += 10
	}
	if p.HasWebsite() {
		s += 5
	}
	if p.HasHours() {
		s += 5
	}
	return min(s, 100)
}

// NeedsEnrichment reports whether a POI has a data gap worth a paid search:
// no phone on a valuable POI, no hours on a branded POI, or no website on a
// shop or amenity.
func NeedsEnrichment(p *model.BusinessPOI, poiScore int) bool {
	switch {
	case !p.HasPhone() && poiScore > NonTrivialPOIScore:
		return true
	case !p.HasHours() && p.HasBrand():
		return true
	case !p.HasWebsite() && (p.Type == "shop" || p.Type == "amenity"):
		return true
	default:
		return false
	}
}

// EnrichmentPriority ranks targeted searches; higher is more urgent.
func EnrichmentPriority(p *model.BusinessPOI) int {
	pri := 0
	if p.HasBrand() {
		pri += 20
	}
	if !p.HasPhone() {
		pri += 15
	}
	if !p.HasHours() {
		pri += 10
	}
	if !p.HasWebsite() {
		pri += 5
	}
	if highValueSubtypes[p.Subtype] {
		pri += 10
	}
	return pri
}

// SelectTier picks the Places field tier from the road score and POI count.
func SelectTier(score float64, poiCount int) google.Tier {
	switch {
	case score >= 8 || poiCount >= 20:
		return google.TierComprehensive
	case score >= 5 || poiCount >= 10:
		return google.TierStandard
	default:
		return google.TierMinimal
	}
}

// DistanceToNearestPOI returns the distance from pt to the closest POI and
// false when pois is empty.
func DistanceToNearestPOI(pt geo.Point, pois []model.BusinessPOI) (float64, bool) {
	locs := make([]geo.Point, len(pois))
	for i := range pois {
		locs[i] = pois[i].Location
	}
	return spatial.DistanceToNearest(pt, locs)
}
