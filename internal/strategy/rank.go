package strategy

import (
	"cmp"
	"slices"
)

// RoadCandidate is a road considered for crawling.
type RoadCandidate struct {
	RoadID   int64   `json:"road_id"`
	Name     string  `json:"name,omitempty"`
	Score    float64 `json:"score"`
	POICount int     `json:"poi_count"`
}

// ShouldCrawlRoad reports whether a road is worth any API spend.
func ShouldCrawlRoad(poiCount int, score float64) bool {
	return poiCount > 0 || score >= 3
}

// RankRoads filters out roads not worth crawling and orders the rest by
// score, then POI count, then road id.
func RankRoads(roads []RoadCandidate) []RoadCandidate {
	out := make([]RoadCandidate, 0, len(roads))
	for _, r := range roads {
		if ShouldCrawlRoad(r.POICount, r.Score) {
			out = append(out, r)
		}
	}
	slices.SortFunc(out, func(a, b RoadCandidate) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		if c := cmp.Compare(b.POICount, a.POICount); c != 0 {
			return c
		}
		return cmp.Compare(a.RoadID, b.RoadID)
	})
	return out
}
