// Package quality measures contact-data completeness for the businesses on
// a road.
package quality

import (
	"strings"

	"github.com/sells-group/road-crawl-cli/internal/model"
)

// Quality labels, derived from phone coverage.
const (
	LabelNoData = "No Data"
	LabelGood   = "Good"
	LabelFair   = "Fair"
	LabelPoor   = "Poor"
)

// Report summarizes completeness. Coverage fields are fractions in [0, 1]
// and are zero when Total is zero.
type Report struct {
	Total           int     `json:"total"`
	WithPhone       int     `json:"with_phone"`
	WithWebsite     int     `json:"with_website"`
	WithHours       int     `json:"with_hours"`
	UniqueBrands    int     `json:"unique_brands"`
	PhoneCoverage   float64 `json:"phone_coverage"`
	WebsiteCoverage float64 `json:"website_coverage"`
	HoursCoverage   float64 `json:"hours_coverage"`
	Label           string  `json:"quality_label"`
}

// MissingPhone returns the number of records without a phone number.
func (r Report) MissingPhone() int {
	return r.Total - r.WithPhone
}

// Assess computes completeness over crawled businesses.
func Assess(businesses []model.Business) Report {
	var t tally
	for i := range businesses {
		b := &businesses[i]
		t.add(b.HasPhone(), b.HasWebsite(), b.HasHours(), b.BrandName())
	}
	return t.report()
}

// AssessPOIs computes completeness over OSM POIs.
func AssessPOIs(pois []model.BusinessPOI) Report {
	var t tally
	for i := range pois {
		p := &pois[i]
		t.add(p.HasPhone(), p.HasWebsite(), p.HasHours(), p.BrandName())
	}
	return t.report()
}

// Label maps phone coverage to a quality label.
func Label(total int, phoneCoverage float64) string {
	switch {
	case total == 0:
		return LabelNoData
	case phoneCoverage > 0.7:
		return LabelGood
	case phoneCoverage > 0.3:
		return LabelFair
	default:
		return LabelPoor
	}
}

type tally struct {
	total, phone, website, hours int
	brands                       map[string]struct{}
}

func (t *tally) add(phone, website, hours bool, brand string) {
	t.total++
	if phone {
		t.phone++
	}
	if website {
		t.website++
	}
	if hours {
		t.hours++
	}
	if b := strings.ToLower(strings.TrimSpace(brand)); b != "" {
		if t.brands == nil {
			t.brands = make(map[string]struct{})
		}
		t.brands[b] = struct{}{}
	}
}

func (t *tally) report() Report {
	r := Report{
		Total:        t.total,
		WithPhone:    t.phone,
		WithWebsite:  t.website,
		WithHours:    t.hours,
		UniqueBrands: len(t.brands),
	}
	if t.total > 0 {
		n := float64(t.total)
		r.PhoneCoverage = float64(t.phone) / n
		r.WebsiteCoverage = float64(t.website) / n
		r.HoursCoverage = float64(t.hours) / n
	}
	r.Label = Label(r.Total, r.PhoneCoverage)
	return r
}
