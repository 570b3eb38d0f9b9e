package roadstats

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"github.com/sells-group/road-crawl-cli/internal/model"
)

// TopN is how many categories and brands are kept per road.
const TopN = 5

var (
	foodSubtypes      = map[string]bool{"restaurant": true, "cafe": true, "fast_food": true, "bar": true}
	essentialSubtypes = map[string]bool{"bank": true, "pharmacy": true}
)

// Aggregate summarizes the POIs near one road. The score fields are left
// for the caller.
func Aggregate(road *model.RoadSegment, pois []model.BusinessPOI, radiusMeters float64, at time.Time) model.RoadBusinessStats {
	st := model.RoadBusinessStats{
		RoadID:       road.ID,
		RoadName:     road.DisplayName(),
		Highway:      road.Highway,
		Region:       road.Region,
		POICount:     len(pois),
		RadiusMeters: radiusMeters,
		ComputedAt:   at,
	}

	types := make(map[string]bool)
	categories := make(map[string]int)
	brands := newBrandTally()

	for i := range pois {
		p := &pois[i]
		if p.Type != "" {
			types[p.Type] = true
		}
		if p.Subtype != "" {
			categories[p.Type+":"+p.Subtype]++
		}
		if p.HasBrand() {
			brands.add(p.BrandName())
		}
		if p.HasPhone() {
			st.HasPhone++
		}
		if p.HasHours() {
			st.HasHours++
		}

		switch {
		case p.Type == "shop":
			st.Shops++
		case p.Type == "amenity" && foodSubtypes[p.Subtype]:
			st.FoodPlaces++
		case p.Type == "amenity" && essentialSubtypes[p.Subtype]:
			st.EssentialServices++
		}
	}

	st.BusinessTypeVariety = len(types)
	st.BrandCount = len(brands.counts)
	st.TopCategories = topKeys(categories, TopN)
	st.TopBrands = brands.top(TopN)
	return st
}

// brandTally counts brands case-insensitively, reporting each under the
// first spelling seen.
type brandTally struct {
	counts  map[string]int
	display map[string]string
}

func newBrandTally() *brandTally {
	return &brandTally{counts: make(map[string]int), display: make(map[string]string)}
}

func (b *brandTally) add(name string) {
	name = strings.TrimSpace(name)
	key := strings.ToLower(name)
	if _, ok := b.display[key]; !ok {
		b.display[key] = name
	}
	b.counts[key]++
}

func (b *brandTally) top(n int) []string {
	keys := topKeys(b.counts, n)
	for i, k := range keys {
		keys[i] = b.display[k]
	}
	return keys
}

// topKeys returns up to n keys by count desc, then key asc.
func topKeys(counts map[string]int, n int) []string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b string) int {
		if c := cmp.Compare(counts[b], counts[a]); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	})
	if len(keys) > n {
		keys = keys[:n]
	}
	return keys
}
