package model

import (
	"strings"
	"time"

	"github.com/sells-group/road-crawl-cli/internal/geo"
)

// OpeningHours is the subset of Places opening hours we persist.
type OpeningHours struct {
	OpenNow     *bool    `json:"open_now,omitempty"`
	WeekdayText []string `json:"weekday_text,omitempty"`
}

// Business is an enriched record persisted from a Places crawl. PlaceID is
// the upsert key.
type Business struct {
	ID               int64         `json:"id,omitempty"`
	PlaceID          string        `json:"place_id" validate:"required"`
	Name             string        `json:"name" validate:"required"`
	Address          string        `json:"address,omitempty"`
	Location         geo.Point     `json:"location"`
	Types            []string      `json:"types,omitempty"`
	Rating           *float64      `json:"rating,omitempty" validate:"omitempty,gte=0,lte=5"`
	UserRatingsTotal int           `json:"user_ratings_total" validate:"gte=0"`
	PriceLevel       *int          `json:"price_level,omitempty" validate:"omitempty,gte=0,lte=4"`
	Phone            *string       `json:"phone,omitempty"`
	Website          *string       `json:"website,omitempty"`
	Hours            *OpeningHours `json:"hours,omitempty"`
	Brand            *string       `json:"brand,omitempty"`
	OSMID            *int64        `json:"osm_id,omitempty"`
	NearestRoadID    *int64        `json:"nearest_road_id,omitempty"`
	SessionID        string        `json:"crawl_session_id,omitempty"`
	CrawledAt        time.Time     `json:"crawled_at"`
}

// HasPhone reports whether a phone number is present.
func (b *Business) HasPhone() bool { return present(b.Phone) }

// HasWebsite reports whether a website is present.
func (b *Business) HasWebsite() bool { return present(b.Website) }

// HasHours reports whether any opening hours were captured.
func (b *Business) HasHours() bool {
	return b.Hours != nil && (b.Hours.OpenNow != nil || len(b.Hours.WeekdayText) > 0)
}

// BrandName returns the brand or an empty string.
func (b *Business) BrandName() string { return deref(b.Brand) }

// NormalizePlaceID strips the "places/" resource prefix used by the Places
// API so ids compare equal across endpoints.
func NormalizePlaceID(id string) string {
	return strings.TrimPrefix(strings.TrimSpace(id), "places/")
}
