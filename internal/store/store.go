package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/road-crawl-cli/internal/geo"
	"github.com/sells-group/road-crawl-cli/internal/model"
)

var (
	// ErrNotFound is returned when a looked-up record does not exist.
	ErrNotFound = eris.New("store: not found")
	// ErrSessionActive is returned when a road/keyword pair already has a
	// pending or processing crawl session.
	ErrSessionActive = eris.New("store: crawl session already active for road and keyword")
)

// RoadFilter selects roads by region. NoCounty selects roads with no county
// and takes precedence over CountyFIPS.
type RoadFilter struct {
	StateCode  string `json:"state_code,omitempty"`
	CountyFIPS string `json:"county_fips,omitempty"`
	NoCounty   bool   `json:"no_county,omitempty"`
	Limit      int    `json:"limit,omitempty"`
}

// StatsFilter selects cached road stats, ordered by score then POI count.
type StatsFilter struct {
	StateCode string  `json:"state_code,omitempty"`
	MinScore  float64 `json:"min_score,omitempty"`
	Limit     int     `json:"limit,omitempty"`
}

// SessionFilter specifies criteria for listing crawl sessions.
type SessionFilter struct {
	RoadID int64               `json:"road_id,omitempty"`
	Status model.SessionStatus `json:"status,omitempty"`
	Limit  int                 `json:"limit,omitempty"`
	Offset int                 `json:"offset,omitempty"`
}

// BBox is a lat/lng bounding box.
type BBox struct {
	Min geo.Point `json:"min"`
	Max geo.Point `json:"max"`
}

// APICall is one billed request to an external API.
type APICall struct {
	APIType       string    `json:"api_type"`
	Endpoint      string    `json:"endpoint"`
	Tier          string    `json:"tier"`
	RequestCount  int       `json:"request_count"`
	ResponseCount int       `json:"response_count"`
	Keyword       string    `json:"keyword,omitempty"`
	SessionID     string    `json:"session_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// Store defines the persistence interface for road scoring and crawling.
type Store interface {
	// Roads and POIs
	UpsertRoads(ctx context.Context, roads []*model.RoadSegment) (int, error)
	UpsertPOIs(ctx context.Context, pois []model.BusinessPOI) (int, error)
	GetRoad(ctx context.Context, id int64) (*model.RoadSegment, error)
	ListRoads(ctx context.Context, filter RoadFilter) ([]*model.RoadSegment, error)
	ListCounties(ctx context.Context, stateCode string) ([]string, error)
	ListPOIsNear(ctx context.Context, road *model.RoadSegment, radiusMeters float64) ([]model.BusinessPOI, error)
	ListPOIsInBBox(ctx context.Context, box BBox) ([]model.BusinessPOI, error)

	// Road business stats
	UpsertRoadStats(ctx context.Context, stats []model.RoadBusinessStats) (int, error)
	GetRoadStats(ctx context.Context, roadID int64) (*model.RoadBusinessStats, error)
	ListRoadStats(ctx context.Context, filter StatsFilter) ([]model.RoadBusinessStats, error)

	// Crawl sessions
	CreateSession(ctx context.Context, s *model.CrawlSession) error
	UpdateSession(ctx context.Context, s *model.CrawlSession) error
	GetSession(ctx context.Context, id string) (*model.CrawlSession, error)
	ListSessions(ctx context.Context, filter SessionFilter) ([]model.CrawlSession, error)

	// Businesses
	UpsertBusinesses(ctx context.Context, businesses []model.Business) (int, error)
	UpdateBusiness(ctx context.Context, b *model.Business) error
	GetBusinessByPlaceID(ctx context.Context, placeID string) (*model.Business, error)
	FindBusinessesNear(ctx context.Context, pt geo.Point, radiusMeters float64) ([]model.Business, error)
	ListBusinessesByRoad(ctx context.Context, roadID int64) ([]model.Business, error)

	// API usage
	RecordAPICall(ctx context.Context, call APICall) error
	CountAPICallsSince(ctx context.Context, since time.Time) (int, error)
	CountAPICallsByTier(ctx context.Context, since time.Time) (map[string]int, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// RoadBBox returns the bounds of a set of roads expanded by meters on every
// side, and false when no road has usable geometry.
func RoadBBox(roads []*model.RoadSegment, meters float64) (BBox, bool) {
	var box BBox
	found := false
	for _, r := range roads {
		if r == nil || r.Degenerate() {
			continue
		}
		for _, p := range r.Points() {
			if !found {
				box = BBox{Min: p, Max: p}
				found = true
				continue
			}
			box.Min.Lat = min(box.Min.Lat, p.Lat)
			box.Min.Lng = min(box.Min.Lng, p.Lng)
			box.Max.Lat = max(box.Max.Lat, p.Lat)
			box.Max.Lng = max(box.Max.Lng, p.Lng)
		}
	}
	if !found {
		return BBox{}, false
	}
	lat := max(abs(box.Min.Lat), abs(box.Max.Lat))
	dLat, dLng := geo.BufferDegrees(lat, meters)
	box.Min.Lat -= dLat
	box.Min.Lng -= dLng
	box.Max.Lat += dLat
	box.Max.Lng += dLng
	return box, true
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func sessionNotFound(id string) error {
	return eris.Wrapf(ErrNotFound, "crawl session %s", id)
}
