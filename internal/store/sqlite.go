package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/road-crawl-cli/internal/geo"
	"github.com/sells-group/road-crawl-cli/internal/model"
	"github.com/sells-group/road-crawl-cli/internal/spatial"
)

// SQLiteStore implements Store using modernc.org/sqlite. Proximity queries
// prefilter on bounding-box columns and refine with geodesic distance in Go.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS osm_roads (
	osm_id      INTEGER PRIMARY KEY,
	name        TEXT,
	highway     TEXT NOT NULL,
	geom        BLOB,
	min_lat     REAL,
	min_lng     REAL,
	max_lat     REAL,
	max_lng     REAL,
	state_code  TEXT,
	county_fips TEXT,
	city        TEXT,
	updated_at  DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS osm_pois (
	osm_id        INTEGER PRIMARY KEY,
	name          TEXT,
	type          TEXT NOT NULL DEFAULT '',
	subtype       TEXT NOT NULL DEFAULT '',
	phone         TEXT,
	website       TEXT,
	opening_hours TEXT,
	brand         TEXT,
	state_code    TEXT,
	lat           REAL NOT NULL,
	lng           REAL NOT NULL,
	updated_at    DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS road_business_stats (
	road_id               INTEGER PRIMARY KEY,
	road_name             TEXT,
	highway               TEXT NOT NULL,
	state_code            TEXT,
	county_fips           TEXT,
	city                  TEXT,
	poi_count             INTEGER NOT NULL DEFAULT 0,
	business_type_variety INTEGER NOT NULL DEFAULT 0,
	brand_count           INTEGER NOT NULL DEFAULT 0,
	shops                 INTEGER NOT NULL DEFAULT 0,
	food_places           INTEGER NOT NULL DEFAULT 0,
	essential_services    INTEGER NOT NULL DEFAULT 0,
	has_phone             INTEGER NOT NULL DEFAULT 0,
	has_hours             INTEGER NOT NULL DEFAULT 0,
	top_categories        TEXT NOT NULL DEFAULT '[]',
	top_brands            TEXT NOT NULL DEFAULT '[]',
	score                 REAL NOT NULL DEFAULT 0,
	formula               TEXT NOT NULL,
	radius_meters         REAL NOT NULL,
	computed_at           DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS crawl_sessions (
	id               TEXT PRIMARY KEY,
	road_id          INTEGER NOT NULL,
	state_code       TEXT,
	county_fips      TEXT,
	city             TEXT,
	keyword          TEXT NOT NULL DEFAULT '',
	status           TEXT NOT NULL DEFAULT 'pending',
	businesses_found INTEGER NOT NULL DEFAULT 0,
	error            TEXT,
	created_at       DATETIME NOT NULL,
	started_at       DATETIME,
	completed_at     DATETIME
);

CREATE TABLE IF NOT EXISTS businesses (
	id                 INTEGER PRIMARY KEY AUTOINCREMENT,
	place_id           TEXT NOT NULL UNIQUE,
	name               TEXT NOT NULL,
	address            TEXT NOT NULL DEFAULT '',
	lat                REAL NOT NULL,
	lng                REAL NOT NULL,
	types              TEXT NOT NULL DEFAULT '[]',
	rating             REAL,
	user_ratings_total INTEGER NOT NULL DEFAULT 0,
	price_level        INTEGER,
	phone              TEXT,
	website            TEXT,
	hours              TEXT,
	brand              TEXT,
	osm_id             INTEGER,
	nearest_road_id    INTEGER,
	crawl_session_id   TEXT,
	crawled_at         DATETIME NOT NULL,
	updated_at         DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS api_calls (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	api_type       TEXT NOT NULL,
	endpoint       TEXT NOT NULL,
	tier           TEXT NOT NULL DEFAULT '',
	request_count  INTEGER NOT NULL DEFAULT 1,
	response_count INTEGER NOT NULL DEFAULT 0,
	keyword        TEXT,
	session_id     TEXT,
	created_unix   INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_osm_roads_region ON osm_roads(state_code, county_fips);
CREATE INDEX IF NOT EXISTS idx_osm_pois_lat_lng ON osm_pois(lat, lng);
CREATE INDEX IF NOT EXISTS idx_rbs_state_score ON road_business_stats(state_code, score DESC);
CREATE INDEX IF NOT EXISTS idx_crawl_sessions_road ON crawl_sessions(road_id);
CREATE UNIQUE INDEX IF NOT EXISTS uq_crawl_sessions_active
	ON crawl_sessions(road_id, keyword) WHERE status IN ('pending', 'processing');
CREATE INDEX IF NOT EXISTS idx_businesses_lat_lng ON businesses(lat, lng);
CREATE INDEX IF NOT EXISTS idx_businesses_road ON businesses(nearest_road_id);
CREATE INDEX IF NOT EXISTS idx_api_calls_created ON api_calls(created_unix);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// --- Roads and POIs ---

func (s *SQLiteStore) UpsertRoads(ctx context.Context, roads []*model.RoadSegment) (int, error) {
	if len(roads) == 0 {
		return 0, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin road upsert")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO osm_roads (osm_id, name, highway, geom, min_lat, min_lng, max_lat, max_lng,
			state_code, county_fips, city, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(osm_id) DO UPDATE SET
			name = excluded.name, highway = excluded.highway, geom = excluded.geom,
			min_lat = excluded.min_lat, min_lng = excluded.min_lng,
			max_lat = excluded.max_lat, max_lng = excluded.max_lng,
			state_code = excluded.state_code, county_fips = excluded.county_fips,
			city = excluded.city, updated_at = excluded.updated_at`)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare road upsert")
	}
	defer stmt.Close()

	now := time.Now().UTC()
	n := 0
	for _, r := range roads {
		if r == nil {
			continue
		}
		wkb, err := spatial.EncodeLineString(r.Geometry)
		if err != nil {
			return 0, eris.Wrapf(err, "sqlite: encode road %d", r.ID)
		}
		var minLat, minLng, maxLat, maxLng *float64
		if box, ok := RoadBBox([]*model.RoadSegment{r}, 0); ok {
			minLat, minLng, maxLat, maxLng = &box.Min.Lat, &box.Min.Lng, &box.Max.Lat, &box.Max.Lng
		}
		if _, err := stmt.ExecContext(ctx, r.ID, r.Name, string(r.Highway), wkb,
			minLat, minLng, maxLat, maxLng,
			nullString(r.Region.StateCode), nullString(r.Region.CountyFIPS), nullString(r.Region.City), now,
		); err != nil {
			return 0, eris.Wrapf(err, "sqlite: upsert road %d", r.ID)
		}
		n++
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit road upsert")
	}
	return n, nil
}

func (s *SQLiteStore) UpsertPOIs(ctx context.Context, pois []model.BusinessPOI) (int, error) {
	if len(pois) == 0 {
		return 0, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin poi upsert")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO osm_pois (osm_id, name, type, subtype, phone, website, opening_hours, brand,
			state_code, lat, lng, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(osm_id) DO UPDATE SET
			name = excluded.name, type = excluded.type, subtype = excluded.subtype,
			phone = excluded.phone, website = excluded.website, opening_hours = excluded.opening_hours,
			brand = excluded.brand, state_code = excluded.state_code,
			lat = excluded.lat, lng = excluded.lng, updated_at = excluded.updated_at`)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare poi upsert")
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for i := range pois {
		p := &pois[i]
		if _, err := stmt.ExecContext(ctx, p.ID, p.Name, p.Type, p.Subtype, p.Phone, p.Website,
			p.OpeningHours, p.Brand, nullString(p.StateCode), p.Location.Lat, p.Location.Lng, now,
		); err != nil {
			return 0, eris.Wrapf(err, "sqlite: upsert poi %d", p.ID)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit poi upsert")
	}
	return len(pois), nil
}

const sqliteRoadColumns = `osm_id, name, highway, COALESCE(state_code, ''), COALESCE(county_fips, ''),
	COALESCE(city, ''), geom`

func (s *SQLiteStore) GetRoad(ctx context.Context, id int64) (*model.RoadSegment, error) {
	r, err := scanRoad(s.db.QueryRowContext(ctx,
		`SELECT `+sqliteRoadColumns+` FROM osm_roads WHERE osm_id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, eris.Wrapf(ErrNotFound, "road %d", id)
		}
		return nil, eris.Wrapf(err, "sqlite: get road %d", id)
	}
	return r, nil
}

func (s *SQLiteStore) ListRoads(ctx context.Context, filter RoadFilter) ([]*model.RoadSegment, error) {
	query := `SELECT ` + sqliteRoadColumns + ` FROM osm_roads WHERE 1=1`
	var args []any

	if filter.StateCode != "" {
		query += ` AND state_code = ?`
		args = append(args, filter.StateCode)
	}
	switch {
	case filter.NoCounty:
		query += ` AND (county_fips IS NULL OR county_fips = '')`
	case filter.CountyFIPS != "":
		query += ` AND county_fips = ?`
		args = append(args, filter.CountyFIPS)
	}
	query += ` ORDER BY osm_id`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list roads")
	}
	defer rows.Close()

	var out []*model.RoadSegment
	for rows.Next() {
		r, err := scanRoad(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan road")
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list roads iterate")
}

func (s *SQLiteStore) ListCounties(ctx context.Context, stateCode string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT county_fips FROM osm_roads
		 WHERE state_code = ? AND county_fips IS NOT NULL AND county_fips <> ''
		 ORDER BY county_fips`, stateCode)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list counties for %s", stateCode)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var fips string
		if err := rows.Scan(&fips); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan county")
		}
		out = append(out, fips)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list counties iterate")
}

func (s *SQLiteStore) ListPOIsNear(ctx context.Context, road *model.RoadSegment, radiusMeters float64) ([]model.BusinessPOI, error) {
	if road == nil || road.Degenerate() {
		return nil, nil
	}
	box, _ := RoadBBox([]*model.RoadSegment{road}, radiusMeters)
	candidates, err := s.ListPOIsInBBox(ctx, box)
	if err != nil {
		return nil, err
	}
	return spatial.NewIndex(candidates).NearbyPOIs(road, radiusMeters)
}

func (s *SQLiteStore) ListPOIsInBBox(ctx context.Context, box BBox) ([]model.BusinessPOI, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT osm_id, name, type, subtype, phone, website, opening_hours, brand,
			COALESCE(state_code, ''), lat, lng
		 FROM osm_pois
		 WHERE lat BETWEEN ? AND ? AND lng BETWEEN ? AND ?
		 ORDER BY osm_id`,
		box.Min.Lat, box.Max.Lat, box.Min.Lng, box.Max.Lng,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list pois in bbox")
	}
	defer rows.Close()

	var out []model.BusinessPOI
	for rows.Next() {
		var p model.BusinessPOI
		if err := rows.Scan(&p.ID, &p.Name, &p.Type, &p.Subtype, &p.Phone, &p.Website,
			&p.OpeningHours, &p.Brand, &p.StateCode, &p.Location.Lat, &p.Location.Lng); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan poi")
		}
		out = append(out, p)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list pois iterate")
}

// --- Road business stats ---

func (s *SQLiteStore) UpsertRoadStats(ctx context.Context, stats []model.RoadBusinessStats) (int, error) {
	if len(stats) == 0 {
		return 0, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin stats upsert")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO road_business_stats (road_id, road_name, highway, state_code, county_fips,
			city, poi_count, business_type_variety, brand_count, shops, food_places, essential_services,
			has_phone, has_hours, top_categories, top_brands, score, formula, radius_meters, computed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare stats upsert")
	}
	defer stmt.Close()

	for i := range stats {
		st := &stats[i]
		cats, err := json.Marshal(nonNilTypes(st.TopCategories))
		if err != nil {
			return 0, eris.Wrap(err, "sqlite: marshal top categories")
		}
		brands, err := json.Marshal(nonNilTypes(st.TopBrands))
		if err != nil {
			return 0, eris.Wrap(err, "sqlite: marshal top brands")
		}
		if _, err := stmt.ExecContext(ctx,
			st.RoadID, nullString(st.RoadName), string(st.Highway), nullString(st.Region.StateCode),
			nullString(st.Region.CountyFIPS), nullString(st.Region.City), st.POICount,
			st.BusinessTypeVariety, st.BrandCount, st.Shops, st.FoodPlaces, st.EssentialServices,
			st.HasPhone, st.HasHours, string(cats), string(brands), st.Score, st.Formula,
			st.RadiusMeters, crawledAt(st.ComputedAt, time.Now().UTC()),
		); err != nil {
			return 0, eris.Wrapf(err, "sqlite: upsert stats for road %d", st.RoadID)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit stats upsert")
	}
	return len(stats), nil
}

const sqliteStatsColumns = `road_id, COALESCE(road_name, ''), highway, COALESCE(state_code, ''),
	COALESCE(county_fips, ''), COALESCE(city, ''), poi_count, business_type_variety, brand_count,
	shops, food_places, essential_services, has_phone, has_hours, top_categories, top_brands,
	score, formula, radius_meters, computed_at`

func (s *SQLiteStore) GetRoadStats(ctx context.Context, roadID int64) (*model.RoadBusinessStats, error) {
	st, err := scanSQLiteStats(s.db.QueryRowContext(ctx,
		`SELECT `+sqliteStatsColumns+` FROM road_business_stats WHERE road_id = ?`, roadID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "sqlite: get road stats %d", roadID)
	}
	return st, nil
}

func (s *SQLiteStore) ListRoadStats(ctx context.Context, filter StatsFilter) ([]model.RoadBusinessStats, error) {
	query := `SELECT ` + sqliteStatsColumns + ` FROM road_business_stats WHERE 1=1`
	var args []any

	if filter.StateCode != "" {
		query += ` AND state_code = ?`
		args = append(args, filter.StateCode)
	}
	if filter.MinScore > 0 {
		query += ` AND score >= ?`
		args = append(args, filter.MinScore)
	}
	query += ` ORDER BY score DESC, poi_count DESC, road_id`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list road stats")
	}
	defer rows.Close()

	var out []model.RoadBusinessStats
	for rows.Next() {
		st, err := scanSQLiteStats(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan road stats")
		}
		out = append(out, *st)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list road stats iterate")
}

// --- Crawl sessions ---

func (s *SQLiteStore) CreateSession(ctx context.Context, cs *model.CrawlSession) error {
	if cs.ID == "" {
		cs.ID = uuid.New().String()
	}
	if cs.Status == "" {
		cs.Status = model.SessionPending
	}
	if cs.CreatedAt.IsZero() {
		cs.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO crawl_sessions (id, road_id, state_code, county_fips, city, keyword, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		cs.ID, cs.RoadID, nullString(cs.Region.StateCode), nullString(cs.Region.CountyFIPS),
		nullString(cs.Region.City), cs.Keyword, string(cs.Status), cs.CreatedAt,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return eris.Wrapf(ErrSessionActive, "road %d keyword %q", cs.RoadID, cs.Keyword)
		}
		return eris.Wrap(err, "sqlite: insert crawl session")
	}
	return nil
}

func (s *SQLiteStore) UpdateSession(ctx context.Context, cs *model.CrawlSession) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE crawl_sessions
		 SET status = ?, businesses_found = ?, error = ?, started_at = ?, completed_at = ?
		 WHERE id = ?`,
		string(cs.Status), cs.BusinessesFound, cs.Error, cs.StartedAt, cs.CompletedAt, cs.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update crawl session %s", cs.ID)
	}
	return checkRowsAffected(res, cs.ID)
}

const sqliteSessionColumns = `id, road_id, COALESCE(state_code, ''), COALESCE(county_fips, ''),
	COALESCE(city, ''), keyword, status, businesses_found, error, created_at, started_at, completed_at`

func (s *SQLiteStore) GetSession(ctx context.Context, id string) (*model.CrawlSession, error) {
	cs, err := scanSession(s.db.QueryRowContext(ctx,
		`SELECT `+sqliteSessionColumns+` FROM crawl_sessions WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sessionNotFound(id)
		}
		return nil, eris.Wrapf(err, "sqlite: get crawl session %s", id)
	}
	return cs, nil
}

func (s *SQLiteStore) ListSessions(ctx context.Context, filter SessionFilter) ([]model.CrawlSession, error) {
	query := `SELECT ` + sqliteSessionColumns + ` FROM crawl_sessions WHERE 1=1`
	var args []any

	if filter.RoadID > 0 {
		query += ` AND road_id = ?`
		args = append(args, filter.RoadID)
	}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY created_at DESC, rowid DESC LIMIT ?`
	args = append(args, limitOrDefault(filter.Limit))

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list crawl sessions")
	}
	defer rows.Close()

	var out []model.CrawlSession
	for rows.Next() {
		cs, err := scanSession(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan crawl session")
		}
		out = append(out, *cs)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list crawl sessions iterate")
}

// --- Businesses ---

const sqliteBusinessUpsert = `
	INSERT INTO businesses (place_id, name, address, lat, lng, types, rating, user_ratings_total,
		price_level, phone, website, hours, brand, osm_id, nearest_road_id, crawl_session_id,
		crawled_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(place_id) DO UPDATE SET
		name = excluded.name, address = excluded.address, lat = excluded.lat, lng = excluded.lng,
		types = excluded.types, user_ratings_total = excluded.user_ratings_total,
		rating = COALESCE(excluded.rating, businesses.rating),
		price_level = COALESCE(excluded.price_level, businesses.price_level),
		phone = COALESCE(excluded.phone, businesses.phone),
		website = COALESCE(excluded.website, businesses.website),
		hours = COALESCE(excluded.hours, businesses.hours),
		brand = COALESCE(excluded.brand, businesses.brand),
		osm_id = COALESCE(excluded.osm_id, businesses.osm_id),
		nearest_road_id = COALESCE(excluded.nearest_road_id, businesses.nearest_road_id),
		crawl_session_id = COALESCE(excluded.crawl_session_id, businesses.crawl_session_id),
		crawled_at = excluded.crawled_at, updated_at = excluded.updated_at`

func (s *SQLiteStore) UpsertBusinesses(ctx context.Context, businesses []model.Business) (int, error) {
	if len(businesses) == 0 {
		return 0, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin business upsert")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, sqliteBusinessUpsert)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare business upsert")
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for i := range businesses {
		args, err := sqliteBusinessArgs(&businesses[i], now)
		if err != nil {
			return 0, err
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return 0, eris.Wrapf(err, "sqlite: upsert business %s", businesses[i].PlaceID)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit business upsert")
	}
	return len(businesses), nil
}

func (s *SQLiteStore) UpdateBusiness(ctx context.Context, b *model.Business) error {
	types, err := json.Marshal(nonNilTypes(b.Types))
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal types")
	}
	hours, err := sqliteHours(b.Hours)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE businesses SET
			name = ?, address = ?, lat = ?, lng = ?, types = ?,
			rating = COALESCE(?, rating), user_ratings_total = ?,
			price_level = COALESCE(?, price_level), phone = COALESCE(?, phone),
			website = COALESCE(?, website), hours = COALESCE(?, hours),
			brand = COALESCE(?, brand), osm_id = COALESCE(?, osm_id),
			nearest_road_id = COALESCE(?, nearest_road_id),
			crawl_session_id = COALESCE(?, crawl_session_id),
			crawled_at = ?, updated_at = ?
		 WHERE id = ?`,
		b.Name, b.Address, b.Location.Lat, b.Location.Lng, string(types),
		b.Rating, b.UserRatingsTotal, b.PriceLevel, b.Phone, b.Website, hours, b.Brand,
		b.OSMID, b.NearestRoadID, nullString(b.SessionID),
		crawledAt(b.CrawledAt, time.Now().UTC()), time.Now().UTC(), b.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update business %d", b.ID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "business %d", b.ID)
	}
	return nil
}

const sqliteBusinessColumns = `id, place_id, name, address, lat, lng, types, rating, user_ratings_total,
	price_level, phone, website, hours, brand, osm_id, nearest_road_id,
	COALESCE(crawl_session_id, ''), crawled_at`

func (s *SQLiteStore) GetBusinessByPlaceID(ctx context.Context, placeID string) (*model.Business, error) {
	b, err := scanSQLiteBusiness(s.db.QueryRowContext(ctx,
		`SELECT `+sqliteBusinessColumns+` FROM businesses WHERE place_id = ?`,
		model.NormalizePlaceID(placeID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "sqlite: get business %s", placeID)
	}
	return b, nil
}

// FindBusinessesNear returns businesses within radius of pt, nearest first.
func (s *SQLiteStore) FindBusinessesNear(ctx context.Context, pt geo.Point, radiusMeters float64) ([]model.Business, error) {
	dLat, dLng := geo.BufferDegrees(pt.Lat, radiusMeters)
	candidates, err := s.queryBusinesses(ctx, "find businesses near",
		`SELECT `+sqliteBusinessColumns+` FROM businesses
		 WHERE lat BETWEEN ? AND ? AND lng BETWEEN ? AND ? ORDER BY id`,
		pt.Lat-dLat, pt.Lat+dLat, pt.Lng-dLng, pt.Lng+dLng)
	if err != nil {
		return nil, err
	}

	type hit struct {
		b    model.Business
		dist float64
	}
	var hits []hit
	for _, b := range candidates {
		if d := geo.Haversine(pt, b.Location); d <= radiusMeters {
			hits = append(hits, hit{b: b, dist: d})
		}
	}
	slices.SortStableFunc(hits, func(a, b hit) int {
		switch {
		case a.dist < b.dist:
			return -1
		case a.dist > b.dist:
			return 1
		}
		return 0
	})

	out := make([]model.Business, 0, len(hits))
	for _, h := range hits {
		out = append(out, h.b)
	}
	return out, nil
}

func (s *SQLiteStore) ListBusinessesByRoad(ctx context.Context, roadID int64) ([]model.Business, error) {
	return s.queryBusinesses(ctx, "list businesses by road",
		`SELECT `+sqliteBusinessColumns+` FROM businesses WHERE nearest_road_id = ? ORDER BY id`, roadID)
}

func (s *SQLiteStore) queryBusinesses(ctx context.Context, op, query string, args ...any) ([]model.Business, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: "+op)
	}
	defer rows.Close()

	var out []model.Business
	for rows.Next() {
		b, err := scanSQLiteBusiness(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan business")
		}
		out = append(out, *b)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: "+op+" iterate")
}

// --- API usage ---

func (s *SQLiteStore) RecordAPICall(ctx context.Context, call APICall) error {
	if call.CreatedAt.IsZero() {
		call.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO api_calls (api_type, endpoint, tier, request_count, response_count, keyword, session_id, created_unix)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		call.APIType, call.Endpoint, call.Tier, call.RequestCount, call.ResponseCount,
		nullString(truncate(call.Keyword, 255)), nullString(call.SessionID), call.CreatedAt.UnixMilli(),
	)
	return eris.Wrap(err, "sqlite: record api call")
}

func (s *SQLiteStore) CountAPICallsSince(ctx context.Context, since time.Time) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(request_count), 0) FROM api_calls WHERE created_unix >= ?`, since.UnixMilli(),
	).Scan(&n)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: count api calls")
	}
	return n, nil
}

func (s *SQLiteStore) CountAPICallsByTier(ctx context.Context, since time.Time) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT COALESCE(tier, ''), SUM(request_count) FROM api_calls WHERE created_unix >= ? GROUP BY 1`, since.UnixMilli())
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: count api calls by tier")
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var tier string
		var n int
		if err := rows.Scan(&tier, &n); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan api call tier")
		}
		out[tier] = n
	}
	return out, eris.Wrap(rows.Err(), "sqlite: count api calls by tier iterate")
}

// helpers

func checkRowsAffected(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return sessionNotFound(id)
	}
	return nil
}

func sqliteBusinessArgs(b *model.Business, now time.Time) ([]any, error) {
	types, err := json.Marshal(nonNilTypes(b.Types))
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal types")
	}
	hours, err := sqliteHours(b.Hours)
	if err != nil {
		return nil, err
	}
	return []any{
		model.NormalizePlaceID(b.PlaceID), b.Name, b.Address, b.Location.Lat, b.Location.Lng,
		string(types), b.Rating, b.UserRatingsTotal, b.PriceLevel, b.Phone, b.Website, hours,
		b.Brand, b.OSMID, b.NearestRoadID, nullString(b.SessionID), crawledAt(b.CrawledAt, now), now,
	}, nil
}

func sqliteHours(h *model.OpeningHours) (*string, error) {
	data, err := marshalHours(h)
	if err != nil || data == nil {
		return nil, err
	}
	s := string(data.([]byte))
	return &s, nil
}

func scanSQLiteBusiness(row scannable) (*model.Business, error) {
	var b model.Business
	var types string
	var hours sql.NullString
	if err := row.Scan(
		&b.ID, &b.PlaceID, &b.Name, &b.Address, &b.Location.Lat, &b.Location.Lng, &types,
		&b.Rating, &b.UserRatingsTotal, &b.PriceLevel, &b.Phone, &b.Website, &hours, &b.Brand,
		&b.OSMID, &b.NearestRoadID, &b.SessionID, &b.CrawledAt,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(types), &b.Types); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal types")
	}
	if hours.Valid {
		h, err := unmarshalHours([]byte(hours.String))
		if err != nil {
			return nil, err
		}
		b.Hours = h
	}
	return &b, nil
}

func scanSQLiteStats(row scannable) (*model.RoadBusinessStats, error) {
	var st model.RoadBusinessStats
	var highway, cats, brands string
	if err := row.Scan(
		&st.RoadID, &st.RoadName, &highway, &st.Region.StateCode, &st.Region.CountyFIPS,
		&st.Region.City, &st.POICount, &st.BusinessTypeVariety, &st.BrandCount, &st.Shops,
		&st.FoodPlaces, &st.EssentialServices, &st.HasPhone, &st.HasHours,
		&cats, &brands, &st.Score, &st.Formula, &st.RadiusMeters, &st.ComputedAt,
	); err != nil {
		return nil, err
	}
	st.Highway = model.HighwayClass(highway)
	if err := json.Unmarshal([]byte(cats), &st.TopCategories); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal top categories")
	}
	if err := json.Unmarshal([]byte(brands), &st.TopBrands); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal top brands")
	}
	return &st, nil
}
