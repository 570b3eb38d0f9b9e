package google

import "strings"

// Place is a place record; which fields are populated depends on the tier.
type Place struct {
	ID                       string        `json:"id"`
	DisplayName              LocalizedText `json:"displayName"`
	FormattedAddress         string        `json:"formattedAddress,omitempty"`
	Location                 *LatLng       `json:"location,omitempty"`
	Types                    []string      `json:"types,omitempty"`
	Rating                   *float64      `json:"rating,omitempty"`
	UserRatingCount          int           `json:"userRatingCount,omitempty"`
	PriceLevel               string        `json:"priceLevel,omitempty"`
	PriceRange               *PriceRange   `json:"priceRange,omitempty"`
	NationalPhoneNumber      string        `json:"nationalPhoneNumber,omitempty"`
	InternationalPhoneNumber string        `json:"internationalPhoneNumber,omitempty"`
	WebsiteURI               string        `json:"websiteUri,omitempty"`
	CurrentOpeningHours      *OpeningHours `json:"currentOpeningHours,omitempty"`
	RegularOpeningHours      *OpeningHours `json:"regularOpeningHours,omitempty"`
}

// LocalizedText is a display string with its language.
type LocalizedText struct {
	Text         string `json:"text"`
	LanguageCode string `json:"languageCode,omitempty"`
}

// OpeningHours is the opening hours block of a place.
type OpeningHours struct {
	OpenNow             *bool    `json:"openNow,omitempty"`
	WeekdayDescriptions []string `json:"weekdayDescriptions,omitempty"`
}

// PriceRange is the price range block of a place.
type PriceRange struct {
	StartPrice *Money `json:"startPrice,omitempty"`
	EndPrice   *Money `json:"endPrice,omitempty"`
}

// Money is a price bound. Text is populated by some responses with a
// "$$"-style rendering.
type Money struct {
	CurrencyCode string `json:"currencyCode,omitempty"`
	Units        string `json:"units,omitempty"`
	Text         string `json:"text,omitempty"`
}

var priceLevels = map[string]int{
	"PRICE_LEVEL_FREE":           0,
	"PRICE_LEVEL_INEXPENSIVE":    1,
	"PRICE_LEVEL_MODERATE":       2,
	"PRICE_LEVEL_EXPENSIVE":      3,
	"PRICE_LEVEL_VERY_EXPENSIVE": 4,
}

// PriceTier returns the 0-4 price level, falling back to counting "$" in
// the price range start text. Nil when neither is available.
func (p *Place) PriceTier() *int {
	if v, ok := priceLevels[p.PriceLevel]; ok {
		return &v
	}
	if p.PriceRange == nil || p.PriceRange.StartPrice == nil || p.PriceRange.StartPrice.Text == "" {
		return nil
	}
	n := min(strings.Count(p.PriceRange.StartPrice.Text, "$"), 4)
	return &n
}

// Phone prefers the national format.
func (p *Place) Phone() string {
	if p.NationalPhoneNumber != "" {
		return p.NationalPhoneNumber
	}
	return p.InternationalPhoneNumber
}

// Hours prefers current opening hours over regular hours.
func (p *Place) Hours() *OpeningHours {
	if p.CurrentOpeningHours != nil {
		return p.CurrentOpeningHours
	}
	return p.RegularOpeningHours
}
