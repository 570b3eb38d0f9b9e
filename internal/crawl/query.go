package crawl

import (
	"fmt"
	"strings"

	"github.com/sells-group/road-crawl-cli/internal/model"
	"github.com/sells-group/road-crawl-cli/internal/strategy"
)

// QueryFor builds the text query for one search on road. Targeted searches
// name the POI; area searches describe the road and its region. Unnamed
// roads fall back to the search coordinates.
func QueryFor(road *model.RoadSegment, keyword string, s strategy.Search) string {
	subject := strings.TrimSpace(keyword)
	if subject == "" {
		subject = "businesses"
	}
	roadName := ""
	if road != nil {
		roadName = road.DisplayName()
	}

	if target := firstNonEmpty(s.TargetName, s.TargetBrand); target != "" {
		if roadName == "" {
			return fmt.Sprintf("%s near %.6f,%.6f", target, s.Location.Lat, s.Location.Lng)
		}
		return target + " near " + roadName
	}

	if roadName == "" {
		return fmt.Sprintf("%s near %.6f,%.6f", subject, s.Location.Lat, s.Location.Lng)
	}

	parts := []string{roadName}
	if road.Region.City != "" {
		parts = append(parts, road.Region.City)
	}
	if road.Region.StateCode != "" {
		parts = append(parts, road.Region.StateCode)
	}
	return subject + " on " + strings.Join(parts, ", ")
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
