package roadstats

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/sells-group/road-crawl-cli/internal/distribution"
	"github.com/sells-group/road-crawl-cli/internal/geo"
	"github.com/sells-group/road-crawl-cli/internal/model"
	"github.com/sells-group/road-crawl-cli/internal/scoring"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

var fixedNow = time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)

// road runs east-west at lat from lng -75.00 to -74.99.
func road(id int64, county string, lat float64) *model.RoadSegment {
	name := "Road " + county
	return &model.RoadSegment{
		ID:       id,
		Name:     &name,
		Highway:  model.HighwaySecondary,
		Region:   model.Region{StateCode: "PA", CountyFIPS: county},
		Geometry: geom.NewLineStringFlat(geom.XY, []float64{-75.00, lat, -74.99, lat}).SetSRID(4326),
	}
}

// poiNear places a POI ~20m north of the road at lat.
func poiNear(id int64, lat float64, typ, subtype string) model.BusinessPOI {
	return model.BusinessPOI{
		ID:       id,
		Name:     model.StrPtr("POI"),
		Type:     typ,
		Subtype:  subtype,
		Location: geo.Point{Lat: lat + 0.00018, Lng: -74.995},
	}
}

func newTestEngine(t *testing.T) *scoring.Engine {
	t.Helper()
	e, err := scoring.NewEngine(scoring.DefaultConfig())
	require.NoError(t, err)
	return e
}

func fixture() *fakeStore {
	return &fakeStore{
		counties: []string{"001", "003"},
		roads: map[string][]*model.RoadSegment{
			"001": {road(1, "001", 40.0), road(2, "001", 40.1)},
			"003": {road(3, "003", 41.0)},
		},
		pois: []model.BusinessPOI{
			poiNear(11, 40.0, "amenity", "restaurant"),
			poiNear(12, 40.0, "shop", "convenience"),
			poiNear(13, 40.0, "amenity", "bank"),
			poiNear(31, 41.0, "amenity", "cafe"),
		},
	}
}

func TestRebuild_ScoresFromComputedDistribution(t *testing.T) {
	st := fixture()
	r := NewRebuilder(st, newTestEngine(t), Options{Concurrency: 2, Now: func() time.Time { return fixedNow }})

	report, err := r.Rebuild(context.Background(), "PA", "")
	require.NoError(t, err)

	assert.Equal(t, 2, report.Counties)
	assert.Equal(t, 3, report.Roads)
	assert.Equal(t, 3, report.Written)
	assert.Empty(t, report.Failures)
	assert.Equal(t, ThresholdsComputed, report.ThresholdsSource)
	assert.Equal(t, 3, report.Distribution.N)
	assert.InDelta(t, 1.0, report.Distribution.P50, 1e-9)

	got := st.byRoad()
	require.Len(t, got, 3)

	assert.Equal(t, 3, got[1].POICount)
	assert.InDelta(t, 10.0, got[1].Score, 1e-9)
	assert.Equal(t, "percentile", got[1].Formula)
	assert.Equal(t, fixedNow, got[1].ComputedAt)
	assert.InDelta(t, 50.0, got[1].RadiusMeters, 1e-9)

	assert.Equal(t, 0, got[2].POICount)
	assert.InDelta(t, 0.0, got[2].Score, 1e-9)

	assert.Equal(t, 1, got[3].POICount)
	assert.InDelta(t, 6.0, got[3].Score, 1e-9)
}

func TestRebuild_UsesCalibration(t *testing.T) {
	st := fixture()
	calib := &distribution.Calibration{Regions: map[string]distribution.RegionCalibration{
		"PA": {Overall: distribution.Percentiles{N: 100, Defined: true, P50: 10, P75: 20, P90: 30, P95: 40}},
	}}
	r := NewRebuilder(st, newTestEngine(t), Options{Calibration: calib})

	report, err := r.Rebuild(context.Background(), "PA", "001")
	require.NoError(t, err)
	assert.Equal(t, 1, report.Counties)
	assert.Equal(t, ThresholdsCalibration, report.ThresholdsSource)

	got := st.byRoad()
	require.Len(t, got, 2)
	assert.InDelta(t, 1.8, got[1].Score, 1e-9)
}

func TestRebuild_CountyFailureDoesNotAbort(t *testing.T) {
	st := fixture()
	st.roadsErr = map[string]error{"003": errors.New("connection reset")}
	r := NewRebuilder(st, newTestEngine(t), Options{Concurrency: 2})

	report, err := r.Rebuild(context.Background(), "PA", "")
	require.NoError(t, err)

	assert.Equal(t, 2, report.Written)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, "003", report.Failures[0].County)
	assert.Contains(t, report.Failures[0].Error, "connection reset")
}

func TestRebuild_UpsertFailureRecordedPerRoad(t *testing.T) {
	st := fixture()
	st.upsertErr = errors.New("disk full")
	r := NewRebuilder(st, newTestEngine(t), Options{})

	report, err := r.Rebuild(context.Background(), "PA", "")
	require.NoError(t, err)
	assert.Equal(t, 0, report.Written)
	assert.Len(t, report.Failures, 3)
}

func TestRebuild_SingleSampleFallsBackToTiered(t *testing.T) {
	st := fixture()
	r := NewRebuilder(st, newTestEngine(t), Options{})

	report, err := r.Rebuild(context.Background(), "PA", "003")
	require.NoError(t, err)
	assert.Equal(t, ThresholdsNone, report.ThresholdsSource)

	got := st.byRoad()
	assert.Equal(t, "tiered", got[3].Formula)
	assert.InDelta(t, 0.5, got[3].Score, 1e-9)
}

func TestRebuild_RequiresState(t *testing.T) {
	r := NewRebuilder(&fakeStore{}, newTestEngine(t), Options{})
	_, err := r.Rebuild(context.Background(), "", "")
	assert.True(t, errors.Is(err, ErrStateRequired))
}

func TestRebuild_NoCountiesFallsBackToState(t *testing.T) {
	st := &fakeStore{roads: map[string][]*model.RoadSegment{"": {road(5, "", 40.0)}}}
	r := NewRebuilder(st, newTestEngine(t), Options{})

	report, err := r.Rebuild(context.Background(), "PA", "")
	require.NoError(t, err)
	assert.Equal(t, 0, report.Counties)
	assert.Equal(t, 1, report.Unassigned)
	assert.Equal(t, 1, report.Written)
}

func TestRebuild_IncludesRoadsWithoutCounty(t *testing.T) {
	st := fixture()
	st.roads[""] = []*model.RoadSegment{road(4, "", 40.0)}
	r := NewRebuilder(st, newTestEngine(t), Options{Concurrency: 2})

	report, err := r.Rebuild(context.Background(), "PA", "")
	require.NoError(t, err)

	assert.Equal(t, 2, report.Counties)
	assert.Equal(t, 1, report.Unassigned)
	assert.Equal(t, 4, report.Roads)
	assert.Equal(t, 4, report.Written)
	assert.Equal(t, 4, report.Distribution.N)
	assert.Empty(t, report.Failures)

	got := st.byRoad()
	require.Contains(t, got, int64(4))
	assert.Equal(t, 3, got[4].POICount)
}

func TestRebuild_CountyScopeSkipsUnassigned(t *testing.T) {
	st := fixture()
	st.roads[""] = []*model.RoadSegment{road(4, "", 40.0)}
	r := NewRebuilder(st, newTestEngine(t), Options{})

	report, err := r.Rebuild(context.Background(), "PA", "001")
	require.NoError(t, err)
	assert.Equal(t, 2, report.Roads)
	assert.NotContains(t, st.byRoad(), int64(4))
}

func TestRebuild_Idempotent(t *testing.T) {
	st := fixture()
	st.roads[""] = []*model.RoadSegment{road(4, "", 40.5)}
	r := NewRebuilder(st, newTestEngine(t), Options{Concurrency: 3, Now: func() time.Time { return fixedNow }})

	first, err := r.Rebuild(context.Background(), "PA", "")
	require.NoError(t, err)
	firstRows := st.byRoad()
	st.upserted = nil

	second, err := r.Rebuild(context.Background(), "PA", "")
	require.NoError(t, err)
	secondRows := st.byRoad()

	assert.Equal(t, first.Written, second.Written)
	assert.Equal(t, first.Distribution, second.Distribution)
	assert.Equal(t, first.ThresholdsSource, second.ThresholdsSource)
	require.Len(t, secondRows, len(firstRows))
	for id, want := range firstRows {
		got := secondRows[id]
		assert.Equal(t, want.POICount, got.POICount, "road %d", id)
		assert.InDelta(t, want.Score, got.Score, 1e-12, "road %d", id)
		assert.Equal(t, want.Formula, got.Formula, "road %d", id)
		assert.Equal(t, want.TopBrands, got.TopBrands, "road %d", id)
		assert.Equal(t, want.TopCategories, got.TopCategories, "road %d", id)
	}
}
