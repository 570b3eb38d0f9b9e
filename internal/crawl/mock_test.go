package crawl

import (
	"context"
	"sync"

	"github.com/sells-group/road-crawl-cli/internal/geo"
	"github.com/sells-group/road-crawl-cli/internal/model"
	"github.com/sells-group/road-crawl-cli/internal/store"
)

// memStore is an in-memory Store for executor and reconciler tests.
type memStore struct {
	mu         sync.Mutex
	sessions   map[string]model.CrawlSession
	businesses []model.Business
	calls      []store.APICall
	createErr  error
	nextID     int64
}

var _ Store = (*memStore)(nil)

func newMemStore() *memStore {
	return &memStore{sessions: make(map[string]model.CrawlSession)}
}

func (m *memStore) CreateSession(_ context.Context, s *model.CrawlSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	m.sessions[s.ID] = *s
	return nil
}

func (m *memStore) UpdateSession(_ context.Context, s *model.CrawlSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[s.ID]; !ok {
		return store.ErrNotFound
	}
	m.sessions[s.ID] = *s
	return nil
}

func (m *memStore) session(id string) model.CrawlSession {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[id]
}

func (m *memStore) RecordAPICall(_ context.Context, call store.APICall) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, call)
	return nil
}

func (m *memStore) GetBusinessByPlaceID(_ context.Context, placeID string) (*model.Business, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.businesses {
		if m.businesses[i].PlaceID == model.NormalizePlaceID(placeID) {
			b := m.businesses[i]
			return &b, nil
		}
	}
	return nil, nil
}

func (m *memStore) FindBusinessesNear(_ context.Context, pt geo.Point, radiusMeters float64) ([]model.Business, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Business
	for _, b := range m.businesses {
		if geo.Haversine(pt, b.Location) <= radiusMeters {
			out = append(out, b)
		}
	}
	return out, nil
}

func (m *memStore) UpsertBusinesses(_ context.Context, businesses []model.Business) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range businesses {
		b.PlaceID = model.NormalizePlaceID(b.PlaceID)
		replaced := false
		for i := range m.businesses {
			if m.businesses[i].PlaceID != b.PlaceID {
				continue
			}
			b.ID = m.businesses[i].ID
			if b.Phone == nil {
				b.Phone = m.businesses[i].Phone
			}
			m.businesses[i] = b
			replaced = true
		}
		if !replaced {
			m.nextID++
			b.ID = m.nextID
			m.businesses = append(m.businesses, b)
		}
	}
	return len(businesses), nil
}

func (m *memStore) UpdateBusiness(_ context.Context, b *model.Business) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.businesses {
		if m.businesses[i].ID == b.ID {
			m.businesses[i] = *b
			return nil
		}
	}
	return store.ErrNotFound
}
