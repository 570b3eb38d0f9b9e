package quality

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/road-crawl-cli/internal/model"
)

func biz(phone, website string, hours bool, brand string) model.Business {
	b := model.Business{PlaceID: "p", Name: "n", Phone: model.StrPtr(phone), Website: model.StrPtr(website), Brand: model.StrPtr(brand)}
	if hours {
		b.Hours = &model.OpeningHours{WeekdayText: []string{"Monday: 9AM-5PM"}}
	}
	return b
}

func TestAssess_Empty(t *testing.T) {
	r := Assess(nil)
	assert.Equal(t, Report{Label: LabelNoData}, r)
}

func TestAssess_Labels(t *testing.T) {
	tests := []struct {
		name   string
		phones int
		total  int
		want   string
	}{
		{"good", 8, 10, LabelGood},
		{"boundary 70 is fair", 7, 10, LabelFair},
		{"fair", 4, 10, LabelFair},
		{"boundary 30 is poor", 3, 10, LabelPoor},
		{"none", 0, 10, LabelPoor},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var bs []model.Business
			for i := 0; i < tt.total; i++ {
				phone := ""
				if i < tt.phones {
					phone = "555-0100"
				}
				bs = append(bs, biz(phone, "", false, ""))
			}
			assert.Equal(t, tt.want, Assess(bs).Label)
		})
	}
}

func TestAssess_Counts(t *testing.T) {
	r := Assess([]model.Business{
		biz("555-0100", "https://a.example", true, "Shell"),
		biz("", "https://b.example", false, "shell"),
		biz("  ", "", true, "Walgreens"),
		biz("555-0101", "", false, ""),
	})
	assert.Equal(t, 4, r.Total)
	assert.Equal(t, 2, r.WithPhone)
	assert.Equal(t, 2, r.WithWebsite)
	assert.Equal(t, 2, r.WithHours)
	assert.Equal(t, 2, r.UniqueBrands)
	assert.InDelta(t, 0.5, r.PhoneCoverage, 1e-9)
	assert.InDelta(t, 0.5, r.HoursCoverage, 1e-9)
	assert.Equal(t, LabelFair, r.Label)
	assert.Equal(t, 2, r.MissingPhone())
}

func TestAssessPOIs(t *testing.T) {
	r := AssessPOIs([]model.BusinessPOI{
		{ID: 1, Phone: model.StrPtr("555"), OpeningHours: model.StrPtr("Mo-Fr 08:00-17:00"), Brand: model.StrPtr("Exxon")},
		{ID: 2},
	})
	assert.Equal(t, 2, r.Total)
	assert.Equal(t, 1, r.WithPhone)
	assert.Equal(t, 1, r.WithHours)
	assert.Equal(t, 1, r.UniqueBrands)
	assert.Equal(t, LabelFair, r.Label)
}

func TestRecommendation(t *testing.T) {
	assert.Equal(t, RecommendHighPriority, Recommendation(80, 10, 50))
	assert.Equal(t, RecommendChains, Recommendation(70, 6, 50))
	assert.Equal(t, RecommendBatch, Recommendation(10, 5, 21))
	assert.Equal(t, RecommendStandard, Recommendation(10, 0, 20))

	r := Assess([]model.Business{biz("", "", false, ""), biz("", "", false, ""), biz("", "", false, ""), biz("1", "", false, "")})
	assert.Equal(t, RecommendHighPriority, RecommendationFor(r, 0))
	assert.Equal(t, RecommendStandard, RecommendationFor(Report{}, 0))
}
