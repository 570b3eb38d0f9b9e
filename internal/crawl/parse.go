package crawl

import (
	"time"

	"github.com/sells-group/road-crawl-cli/internal/geo"
	"github.com/sells-group/road-crawl-cli/internal/model"
	"github.com/sells-group/road-crawl-cli/internal/strategy"
	"github.com/sells-group/road-crawl-cli/pkg/google"
)

// ToBusiness converts a Places result. The second return is false for
// results without an id, a name, or a usable location.
func ToBusiness(p google.Place, crawledAt time.Time) (model.Business, bool) {
	id := model.NormalizePlaceID(p.ID)
	if id == "" || p.DisplayName.Text == "" || p.Location == nil {
		return model.Business{}, false
	}
	loc := geo.Point{Lat: p.Location.Latitude, Lng: p.Location.Longitude}
	if !loc.Valid() {
		return model.Business{}, false
	}

	b := model.Business{
		PlaceID:          id,
		Name:             p.DisplayName.Text,
		Address:          p.FormattedAddress,
		Location:         loc,
		Types:            p.Types,
		Rating:           p.Rating,
		UserRatingsTotal: p.UserRatingCount,
		PriceLevel:       p.PriceTier(),
		Phone:            model.StrPtr(p.Phone()),
		Website:          model.StrPtr(p.WebsiteURI),
		CrawledAt:        crawledAt,
	}
	if h := p.Hours(); h != nil && (h.OpenNow != nil || len(h.WeekdayDescriptions) > 0) {
		b.Hours = &model.OpeningHours{OpenNow: h.OpenNow, WeekdayText: h.WeekdayDescriptions}
	}
	return b, true
}

// attachTarget links a business to the OSM POI a targeted search aimed at
// when the names (or brand) agree.
func attachTarget(b *model.Business, s strategy.Search) {
	if s.OSMID == 0 {
		return
	}
	if !NamesMatch(b.Name, s.TargetName) && !NamesMatch(b.Name, s.TargetBrand) {
		return
	}
	id := s.OSMID
	b.OSMID = &id
	if b.Brand == nil {
		b.Brand = model.StrPtr(s.TargetBrand)
	}
}
