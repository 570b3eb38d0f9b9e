package google

import "strings"

// Tier selects which response fields are requested. Wider masks are billed
// at a higher SKU.
type Tier string

const (
	TierBasic         Tier = "basic"
	TierMinimal       Tier = "minimal"
	TierStandard      Tier = "standard"
	TierComprehensive Tier = "comprehensive"
)

var baseFields = []string{
	"places.id",
	"places.displayName",
	"places.formattedAddress",
	"places.location",
	"places.types",
}

var tierFields = map[Tier][]string{
	TierBasic:   nil,
	TierMinimal: {"places.nationalPhoneNumber"},
	TierStandard: {
		"places.rating",
		"places.userRatingCount",
		"places.priceLevel",
		"places.nationalPhoneNumber",
	},
	TierComprehensive: {
		"places.currentOpeningHours",
		"places.internationalPhoneNumber",
		"places.nationalPhoneNumber",
		"places.priceLevel",
		"places.priceRange",
		"places.rating",
		"places.regularOpeningHours",
		"places.userRatingCount",
		"places.websiteUri",
	},
}

// Valid reports whether t is a known tier.
func (t Tier) Valid() bool {
	_, ok := tierFields[t]
	return ok
}

// FieldMask returns the X-Goog-FieldMask value. Every mask includes
// nextPageToken; without it pagination silently stops. Unknown tiers fall
// back to the comprehensive mask.
func (t Tier) FieldMask() string {
	extra, ok := tierFields[t]
	if !ok {
		extra = tierFields[TierComprehensive]
	}
	fields := make([]string, 0, len(baseFields)+len(extra)+1)
	fields = append(fields, baseFields...)
	fields = append(fields, extra...)
	fields = append(fields, "nextPageToken")
	return strings.Join(fields, ",")
}
