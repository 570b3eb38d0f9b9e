package roadstats

import (
	"context"
	"sync"

	"github.com/sells-group/road-crawl-cli/internal/model"
	"github.com/sells-group/road-crawl-cli/internal/store"
)

type fakeStore struct {
	mu        sync.Mutex
	counties  []string
	roads     map[string][]*model.RoadSegment
	pois      []model.BusinessPOI
	roadsErr  map[string]error
	upsertErr error
	upserted  []model.RoadBusinessStats
}

var _ Store = (*fakeStore)(nil)

func (f *fakeStore) ListCounties(_ context.Context, _ string) ([]string, error) {
	return f.counties, nil
}

// ListRoads keys roads by county; "" holds roads with no county.
func (f *fakeStore) ListRoads(_ context.Context, filter store.RoadFilter) ([]*model.RoadSegment, error) {
	key := filter.CountyFIPS
	if filter.NoCounty {
		key = ""
	}
	if err := f.roadsErr[key]; err != nil {
		return nil, err
	}
	return f.roads[key], nil
}

func (f *fakeStore) ListPOIsInBBox(_ context.Context, box store.BBox) ([]model.BusinessPOI, error) {
	var out []model.BusinessPOI
	for _, p := range f.pois {
		if p.Location.Lat >= box.Min.Lat && p.Location.Lat <= box.Max.Lat &&
			p.Location.Lng >= box.Min.Lng && p.Location.Lng <= box.Max.Lng {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeStore) UpsertRoadStats(_ context.Context, stats []model.RoadBusinessStats) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.upsertErr != nil {
		return 0, f.upsertErr
	}
	f.upserted = append(f.upserted, stats...)
	return len(stats), nil
}

func (f *fakeStore) byRoad() map[int64]model.RoadBusinessStats {
	out := make(map[int64]model.RoadBusinessStats, len(f.upserted))
	for _, s := range f.upserted {
		out[s.RoadID] = s
	}
	return out
}
