package model

import (
	"strings"

	"github.com/sells-group/road-crawl-cli/internal/geo"
)

// BusinessPOI is a business or amenity imported from OSM. Re-imports upsert
// on ID.
type BusinessPOI struct {
	ID           int64     `json:"osm_id" validate:"gt=0"`
	Name         *string   `json:"name,omitempty"`
	Type         string    `json:"type"`
	Subtype      string    `json:"subtype"`
	Location     geo.Point `json:"location"`
	Phone        *string   `json:"phone,omitempty"`
	Website      *string   `json:"website,omitempty"`
	OpeningHours *string   `json:"opening_hours,omitempty"`
	Brand        *string   `json:"brand,omitempty"`
	StateCode    string    `json:"state_code,omitempty"`
}

// DisplayName returns the POI name or an empty string.
func (p *BusinessPOI) DisplayName() string {
	return deref(p.Name)
}

// HasPhone reports whether a non-blank phone is recorded.
func (p *BusinessPOI) HasPhone() bool { return present(p.Phone) }

// HasWebsite reports whether a non-blank website is recorded.
func (p *BusinessPOI) HasWebsite() bool { return present(p.Website) }

// HasHours reports whether opening hours are recorded.
func (p *BusinessPOI) HasHours() bool { return present(p.OpeningHours) }

// HasBrand reports whether the POI carries a brand tag.
func (p *BusinessPOI) HasBrand() bool { return present(p.Brand) }

// BrandName returns the brand tag or an empty string.
func (p *BusinessPOI) BrandName() string { return deref(p.Brand) }

func present(s *string) bool {
	return s != nil && strings.TrimSpace(*s) != ""
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// StrPtr returns a pointer to s, or nil when s is blank.
func StrPtr(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}
