package crawl

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/road-crawl-cli/internal/geo"
	"github.com/sells-group/road-crawl-cli/internal/model"
	"github.com/sells-group/road-crawl-cli/internal/strategy"
	"github.com/sells-group/road-crawl-cli/pkg/google"
)

func TestToBusiness(t *testing.T) {
	rating := 4.5
	open := true
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	p := google.Place{
		ID:                  "places/ChIJ123",
		DisplayName:         google.LocalizedText{Text: "Wawa"},
		FormattedAddress:    "1 Main St, Philadelphia, PA",
		Location:            &google.LatLng{Latitude: 40, Longitude: -75},
		Types:               []string{"gas_station", "convenience_store"},
		Rating:              &rating,
		UserRatingCount:     120,
		PriceLevel:          "PRICE_LEVEL_INEXPENSIVE",
		NationalPhoneNumber: "(215) 555-0100",
		WebsiteURI:          "https://wawa.com",
		CurrentOpeningHours: &google.OpeningHours{OpenNow: &open, WeekdayDescriptions: []string{"Monday: Open 24 hours"}},
	}

	b, ok := ToBusiness(p, now)
	require.True(t, ok)
	assert.Equal(t, "ChIJ123", b.PlaceID)
	assert.Equal(t, "Wawa", b.Name)
	assert.Equal(t, geo.Point{Lat: 40, Lng: -75}, b.Location)
	assert.Equal(t, 120, b.UserRatingsTotal)
	require.NotNil(t, b.PriceLevel)
	assert.Equal(t, 1, *b.PriceLevel)
	require.NotNil(t, b.Phone)
	assert.Equal(t, "(215) 555-0100", *b.Phone)
	require.NotNil(t, b.Website)
	require.NotNil(t, b.Hours)
	assert.True(t, *b.Hours.OpenNow)
	assert.Equal(t, now, b.CrawledAt)
}

func TestToBusiness_Rejects(t *testing.T) {
	loc := &google.LatLng{Latitude: 40, Longitude: -75}
	tests := map[string]google.Place{
		"no id":       {DisplayName: google.LocalizedText{Text: "x"}, Location: loc},
		"no name":     {ID: "places/a", Location: loc},
		"no location": {ID: "places/a", DisplayName: google.LocalizedText{Text: "x"}},
		"bad location": {ID: "places/a", DisplayName: google.LocalizedText{Text: "x"},
			Location: &google.LatLng{Latitude: 95, Longitude: -75}},
	}
	for name, p := range tests {
		t.Run(name, func(t *testing.T) {
			_, ok := ToBusiness(p, time.Now())
			assert.False(t, ok)
		})
	}
}

func TestAttachTarget(t *testing.T) {
	b := model.Business{Name: "WAWA #812"}
	attachTarget(&b, strategy.Search{TargetName: "Wawa 812", TargetBrand: "Wawa", OSMID: 9})
	require.NotNil(t, b.OSMID)
	assert.Equal(t, int64(9), *b.OSMID)
	require.NotNil(t, b.Brand)
	assert.Equal(t, "Wawa", *b.Brand)

	other := model.Business{Name: "Sheetz"}
	attachTarget(&other, strategy.Search{TargetName: "Wawa", OSMID: 9})
	assert.Nil(t, other.OSMID)

	untargeted := model.Business{Name: "Wawa"}
	attachTarget(&untargeted, strategy.Search{TargetName: "Wawa"})
	assert.Nil(t, untargeted.OSMID)
}
