package distribution

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/road-crawl-cli/internal/model"
)

func samples(class model.HighwayClass, counts ...int) []Sample {
	out := make([]Sample, len(counts))
	for i, c := range counts {
		out[i] = Sample{Highway: class, POICount: c}
	}
	return out
}

func TestHighwayBreakdown_FiltersAndSorts(t *testing.T) {
	var all []Sample
	all = append(all, samples(model.HighwayResidential, 0, 0, 1, 1, 2)...)
	all = append(all, samples(model.HighwayPrimary, 5, 10, 15, 20, 25)...)
	all = append(all, samples(model.HighwayService, 3, 4)...)

	got, err := HighwayBreakdown(all, 3)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, model.HighwayPrimary, got[0].Highway)
	assert.InDelta(t, 20.0, got[0].P75, 1e-9)
	assert.Equal(t, model.HighwayResidential, got[1].Highway)
}

func TestHighwayBreakdown_DefaultMinSample(t *testing.T) {
	got, err := HighwayBreakdown(samples(model.HighwayPrimary, 1, 2, 3), 0)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestHighwayBreakdown_TieBreaksOnClass(t *testing.T) {
	var all []Sample
	all = append(all, samples(model.HighwayTertiary, 1, 1)...)
	all = append(all, samples(model.HighwayPrimary, 1, 1)...)

	got, err := HighwayBreakdown(all, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, model.HighwayPrimary, got[0].Highway)
	assert.Equal(t, model.HighwayTertiary, got[1].Highway)
}

func TestCountBuckets(t *testing.T) {
	got, err := CountBuckets([]int{0, 0, 3, 5, 6, 11, 20, 21, 100, 10})
	require.NoError(t, err)
	require.Len(t, got, 5)

	roads := map[string]int{}
	for _, b := range got {
		roads[b.Label] = b.Roads
	}
	assert.Equal(t, map[string]int{"0": 2, "1-5": 2, "6-10": 2, "11-20": 2, "20+": 2}, roads)
	assert.InDelta(t, 20.0, got[0].Percent, 1e-9)

	_, err = CountBuckets([]int{-1})
	assert.ErrorIs(t, err, ErrNegativeCount)
}

func TestCountBuckets_Empty(t *testing.T) {
	got, err := CountBuckets(nil)
	require.NoError(t, err)
	for _, b := range got {
		assert.Zero(t, b.Roads)
		assert.Zero(t, b.Percent)
	}
}
