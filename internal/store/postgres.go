package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rotisserie/eris"

	"github.com/sells-group/road-crawl-cli/internal/db"
	"github.com/sells-group/road-crawl-cli/internal/geo"
	"github.com/sells-group/road-crawl-cli/internal/model"
	"github.com/sells-group/road-crawl-cli/internal/spatial"
)

// PostgresStore implements Store on PostGIS.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// NewPostgres connects to connString and returns a store that owns the pool.
func NewPostgres(ctx context.Context, connString string, poolCfg db.PoolConfig) (*PostgresStore, error) {
	pool, err := db.Connect(ctx, connString, poolCfg)
	if err != nil {
		return nil, err
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresFromPool wraps an existing pool; Close is a no-op.
func NewPostgresFromPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Pool returns the underlying database pool for subsystems that need
// direct query access (e.g., the PostGIS counter).
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	return db.Migrate(ctx, s.pool)
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

// --- Roads and POIs ---

const upsertRoadSQL = `
	INSERT INTO osm_roads (osm_id, name, highway, geom, updated_at)
	VALUES ($1, $2, $3, ST_SetSRID(ST_GeomFromEWKB($4), 4326), now())
	ON CONFLICT (osm_id) DO UPDATE SET
		name = EXCLUDED.name, highway = EXCLUDED.highway,
		geom = EXCLUDED.geom, updated_at = now()`

const upsertRegionSQL = `
	INSERT INTO road_regions (road_id, state_code, county_fips, city)
	VALUES ($1, $2, $3, $4)
	ON CONFLICT (road_id) DO UPDATE SET
		state_code = EXCLUDED.state_code, county_fips = EXCLUDED.county_fips, city = EXCLUDED.city`

func (s *PostgresStore) UpsertRoads(ctx context.Context, roads []*model.RoadSegment) (int, error) {
	if len(roads) == 0 {
		return 0, nil
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: begin road upsert")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	n := 0
	for _, r := range roads {
		if r == nil {
			continue
		}
		wkb, err := spatial.EncodeLineString(r.Geometry)
		if err != nil {
			return 0, eris.Wrapf(err, "postgres: encode road %d", r.ID)
		}
		if _, err := tx.Exec(ctx, upsertRoadSQL, r.ID, r.Name, string(r.Highway), wkb); err != nil {
			return 0, eris.Wrapf(err, "postgres: upsert road %d", r.ID)
		}
		if r.Region.StateCode != "" {
			if _, err := tx.Exec(ctx, upsertRegionSQL, r.ID, r.Region.StateCode,
				nullString(r.Region.CountyFIPS), nullString(r.Region.City)); err != nil {
				return 0, eris.Wrapf(err, "postgres: upsert region for road %d", r.ID)
			}
		}
		n++
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, eris.Wrap(err, "postgres: commit road upsert")
	}
	return n, nil
}

const upsertPOISQL = `
	INSERT INTO osm_pois (osm_id, name, type, subtype, phone, website, opening_hours, brand, state_code, geom, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, ST_SetSRID(ST_MakePoint($10, $11), 4326), now())
	ON CONFLICT (osm_id) DO UPDATE SET
		name = EXCLUDED.name, type = EXCLUDED.type, subtype = EXCLUDED.subtype,
		phone = EXCLUDED.phone, website = EXCLUDED.website, opening_hours = EXCLUDED.opening_hours,
		brand = EXCLUDED.brand, state_code = EXCLUDED.state_code, geom = EXCLUDED.geom, updated_at = now()`

func (s *PostgresStore) UpsertPOIs(ctx context.Context, pois []model.BusinessPOI) (int, error) {
	if len(pois) == 0 {
		return 0, nil
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: begin poi upsert")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	for i := range pois {
		p := &pois[i]
		if _, err := tx.Exec(ctx, upsertPOISQL,
			p.ID, p.Name, p.Type, p.Subtype, p.Phone, p.Website, p.OpeningHours, p.Brand,
			nullString(p.StateCode), p.Location.Lng, p.Location.Lat,
		); err != nil {
			return 0, eris.Wrapf(err, "postgres: upsert poi %d", p.ID)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, eris.Wrap(err, "postgres: commit poi upsert")
	}
	return len(pois), nil
}

const roadColumns = `r.osm_id, r.name, r.highway, COALESCE(g.state_code, ''),
	COALESCE(g.county_fips, ''), COALESCE(g.city, ''), ST_AsEWKB(r.geom)`

func (s *PostgresStore) GetRoad(ctx context.Context, id int64) (*model.RoadSegment, error) {
	r, err := scanRoad(s.pool.QueryRow(ctx,
		`SELECT `+roadColumns+` FROM osm_roads r LEFT JOIN road_regions g ON g.road_id = r.osm_id
		 WHERE r.osm_id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, eris.Wrapf(ErrNotFound, "road %d", id)
		}
		return nil, eris.Wrapf(err, "postgres: get road %d", id)
	}
	return r, nil
}

func (s *PostgresStore) ListRoads(ctx context.Context, filter RoadFilter) ([]*model.RoadSegment, error) {
	query := `SELECT ` + roadColumns + ` FROM osm_roads r LEFT JOIN road_regions g ON g.road_id = r.osm_id WHERE true`
	args := []any{}
	argIdx := 1

	if filter.StateCode != "" {
		query += fmt.Sprintf(` AND g.state_code = $%d`, argIdx)
		args = append(args, filter.StateCode)
		argIdx++
	}
	switch {
	case filter.NoCounty:
		query += ` AND (g.county_fips IS NULL OR g.county_fips = '')`
	case filter.CountyFIPS != "":
		query += fmt.Sprintf(` AND g.county_fips = $%d`, argIdx)
		args = append(args, filter.CountyFIPS)
		argIdx++
	}
	query += ` ORDER BY r.osm_id`
	if filter.Limit > 0 {
		query += fmt.Sprintf(` LIMIT $%d`, argIdx)
		args = append(args, filter.Limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list roads")
	}
	defer rows.Close()

	var out []*model.RoadSegment
	for rows.Next() {
		r, err := scanRoad(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan road")
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate roads")
}

func (s *PostgresStore) ListCounties(ctx context.Context, stateCode string) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT DISTINCT county_fips FROM road_regions
		 WHERE state_code = $1 AND county_fips IS NOT NULL AND county_fips <> ''
		 ORDER BY county_fips`, stateCode)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list counties for %s", stateCode)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var fips string
		if err := rows.Scan(&fips); err != nil {
			return nil, eris.Wrap(err, "postgres: scan county")
		}
		out = append(out, fips)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate counties")
}

const poiColumns = `osm_id, name, type, subtype, phone, website, opening_hours, brand,
	COALESCE(state_code, ''), ST_Y(geom), ST_X(geom)`

// ListPOIsNear measures against the geometry carried by road, so roads that
// were never persisted can still be queried.
func (s *PostgresStore) ListPOIsNear(ctx context.Context, road *model.RoadSegment, radiusMeters float64) ([]model.BusinessPOI, error) {
	if road == nil || road.Degenerate() {
		return nil, nil
	}
	wkb, err := spatial.EncodeLineString(road.Geometry)
	if err != nil {
		return nil, err
	}
	return s.queryPOIs(ctx, "list pois near road",
		`SELECT `+poiColumns+` FROM osm_pois
		 WHERE ST_DWithin(geom::geography, ST_SetSRID(ST_GeomFromEWKB($1), 4326)::geography, $2)
		 ORDER BY osm_id`, wkb, radiusMeters)
}

func (s *PostgresStore) ListPOIsInBBox(ctx context.Context, box BBox) ([]model.BusinessPOI, error) {
	return s.queryPOIs(ctx, "list pois in bbox",
		`SELECT `+poiColumns+` FROM osm_pois
		 WHERE geom && ST_MakeEnvelope($1, $2, $3, $4, 4326)
		 ORDER BY osm_id`, box.Min.Lng, box.Min.Lat, box.Max.Lng, box.Max.Lat)
}

func (s *PostgresStore) queryPOIs(ctx context.Context, op, query string, args ...any) ([]model.BusinessPOI, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: "+op)
	}
	defer rows.Close()

	var out []model.BusinessPOI
	for rows.Next() {
		var p model.BusinessPOI
		if err := rows.Scan(&p.ID, &p.Name, &p.Type, &p.Subtype, &p.Phone, &p.Website,
			&p.OpeningHours, &p.Brand, &p.StateCode, &p.Location.Lat, &p.Location.Lng); err != nil {
			return nil, eris.Wrap(err, "postgres: scan poi")
		}
		out = append(out, p)
	}
	return out, eris.Wrap(rows.Err(), "postgres: "+op)
}

// --- Road business stats ---

var statsUpsert = db.UpsertConfig{
	Table: "road_business_stats",
	Columns: []string{
		"road_id", "road_name", "highway", "state_code", "county_fips", "city",
		"poi_count", "business_type_variety", "brand_count", "shops", "food_places",
		"essential_services", "has_phone", "has_hours", "top_categories", "top_brands",
		"score", "formula", "radius_meters", "computed_at",
	},
	ConflictKeys: []string{"road_id"},
}

func (s *PostgresStore) UpsertRoadStats(ctx context.Context, stats []model.RoadBusinessStats) (int, error) {
	rows := make([][]any, 0, len(stats))
	for i := range stats {
		st := &stats[i]
		computed := st.ComputedAt
		if computed.IsZero() {
			computed = time.Now().UTC()
		}
		rows = append(rows, []any{
			st.RoadID, nullString(st.RoadName), string(st.Highway), nullString(st.Region.StateCode),
			nullString(st.Region.CountyFIPS), nullString(st.Region.City),
			st.POICount, st.BusinessTypeVariety, st.BrandCount, st.Shops, st.FoodPlaces,
			st.EssentialServices, st.HasPhone, st.HasHours, nonNilTypes(st.TopCategories),
			nonNilTypes(st.TopBrands), st.Score, st.Formula, st.RadiusMeters, computed,
		})
	}
	n, err := db.BulkUpsert(ctx, s.pool, statsUpsert, rows)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: upsert road stats")
	}
	return int(n), nil
}

const statsColumns = `road_id, COALESCE(road_name, ''), highway, COALESCE(state_code, ''),
	COALESCE(county_fips, ''), COALESCE(city, ''), poi_count, business_type_variety,
	brand_count, shops, food_places, essential_services, has_phone, has_hours,
	top_categories, top_brands, score, formula, radius_meters, computed_at`

func (s *PostgresStore) GetRoadStats(ctx context.Context, roadID int64) (*model.RoadBusinessStats, error) {
	st, err := scanStats(s.pool.QueryRow(ctx,
		`SELECT `+statsColumns+` FROM road_business_stats WHERE road_id = $1`, roadID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "postgres: get road stats %d", roadID)
	}
	return st, nil
}

func (s *PostgresStore) ListRoadStats(ctx context.Context, filter StatsFilter) ([]model.RoadBusinessStats, error) {
	query := `SELECT ` + statsColumns + ` FROM road_business_stats WHERE true`
	args := []any{}
	argIdx := 1

	if filter.StateCode != "" {
		query += fmt.Sprintf(` AND state_code = $%d`, argIdx)
		args = append(args, filter.StateCode)
		argIdx++
	}
	if filter.MinScore > 0 {
		query += fmt.Sprintf(` AND score >= $%d`, argIdx)
		args = append(args, filter.MinScore)
		argIdx++
	}
	query += ` ORDER BY score DESC, poi_count DESC, road_id`
	if filter.Limit > 0 {
		query += fmt.Sprintf(` LIMIT $%d`, argIdx)
		args = append(args, filter.Limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list road stats")
	}
	defer rows.Close()

	var out []model.RoadBusinessStats
	for rows.Next() {
		st, err := scanStats(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan road stats")
		}
		out = append(out, *st)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate road stats")
}

// --- Crawl sessions ---

func (s *PostgresStore) CreateSession(ctx context.Context, cs *model.CrawlSession) error {
	if cs.ID == "" {
		cs.ID = uuid.New().String()
	}
	if cs.Status == "" {
		cs.Status = model.SessionPending
	}
	if cs.CreatedAt.IsZero() {
		cs.CreatedAt = time.Now().UTC()
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO crawl_sessions (id, road_id, state_code, county_fips, city, keyword, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		cs.ID, cs.RoadID, nullString(cs.Region.StateCode), nullString(cs.Region.CountyFIPS),
		nullString(cs.Region.City), cs.Keyword, string(cs.Status), cs.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return eris.Wrapf(ErrSessionActive, "road %d keyword %q", cs.RoadID, cs.Keyword)
		}
		return eris.Wrap(err, "postgres: insert crawl session")
	}
	return nil
}

func (s *PostgresStore) UpdateSession(ctx context.Context, cs *model.CrawlSession) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE crawl_sessions
		 SET status = $1, businesses_found = $2, error = $3, started_at = $4, completed_at = $5
		 WHERE id = $6`,
		string(cs.Status), cs.BusinessesFound, cs.Error, cs.StartedAt, cs.CompletedAt, cs.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update crawl session %s", cs.ID)
	}
	if tag.RowsAffected() == 0 {
		return sessionNotFound(cs.ID)
	}
	return nil
}

const sessionColumns = `id, road_id, COALESCE(state_code, ''), COALESCE(county_fips, ''), COALESCE(city, ''),
	keyword, status, businesses_found, error, created_at, started_at, completed_at`

func (s *PostgresStore) GetSession(ctx context.Context, id string) (*model.CrawlSession, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, sessionNotFound(id)
	}
	cs, err := scanSession(s.pool.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM crawl_sessions WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sessionNotFound(id)
		}
		return nil, eris.Wrapf(err, "postgres: get crawl session %s", id)
	}
	return cs, nil
}

func (s *PostgresStore) ListSessions(ctx context.Context, filter SessionFilter) ([]model.CrawlSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM crawl_sessions WHERE true`
	args := []any{}
	argIdx := 1

	if filter.RoadID > 0 {
		query += fmt.Sprintf(` AND road_id = $%d`, argIdx)
		args = append(args, filter.RoadID)
		argIdx++
	}
	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}
	query += ` ORDER BY created_at DESC`

	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limitOrDefault(filter.Limit))
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list crawl sessions")
	}
	defer rows.Close()

	var out []model.CrawlSession
	for rows.Next() {
		cs, err := scanSession(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan crawl session")
		}
		out = append(out, *cs)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate crawl sessions")
}

// --- Businesses ---

var businessUpsert = db.UpsertConfig{
	Table: "businesses",
	Columns: []string{
		"place_id", "name", "address", "lat", "lng", "types", "rating",
		"user_ratings_total", "price_level", "phone", "website", "hours", "brand",
		"osm_id", "nearest_road_id", "crawl_session_id", "crawled_at", "updated_at",
	},
	ConflictKeys: []string{"place_id"},
	KeepExisting: []string{
		"rating", "price_level", "phone", "website", "hours", "brand",
		"osm_id", "nearest_road_id", "crawl_session_id",
	},
}

func (s *PostgresStore) UpsertBusinesses(ctx context.Context, businesses []model.Business) (int, error) {
	now := time.Now().UTC()
	rows := make([][]any, 0, len(businesses))
	for i := range businesses {
		b := &businesses[i]
		hours, err := marshalHours(b.Hours)
		if err != nil {
			return 0, err
		}
		rows = append(rows, []any{
			model.NormalizePlaceID(b.PlaceID), b.Name, b.Address, b.Location.Lat, b.Location.Lng,
			nonNilTypes(b.Types), b.Rating, b.UserRatingsTotal, priceLevel(b.PriceLevel),
			b.Phone, b.Website, hours, b.Brand, b.OSMID, b.NearestRoadID,
			sessionUUID(b.SessionID), crawledAt(b.CrawledAt, now), now,
		})
	}
	n, err := db.BulkUpsert(ctx, s.pool, businessUpsert, rows)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: upsert businesses")
	}
	return int(n), nil
}

func (s *PostgresStore) UpdateBusiness(ctx context.Context, b *model.Business) error {
	hours, err := marshalHours(b.Hours)
	if err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE businesses SET
			name = $1, address = $2, lat = $3, lng = $4, types = $5,
			rating = COALESCE($6, rating), user_ratings_total = $7,
			price_level = COALESCE($8, price_level), phone = COALESCE($9, phone),
			website = COALESCE($10, website), hours = COALESCE($11, hours),
			brand = COALESCE($12, brand), osm_id = COALESCE($13, osm_id),
			nearest_road_id = COALESCE($14, nearest_road_id),
			crawl_session_id = COALESCE($15, crawl_session_id),
			crawled_at = $16, updated_at = now()
		 WHERE id = $17`,
		b.Name, b.Address, b.Location.Lat, b.Location.Lng, nonNilTypes(b.Types),
		b.Rating, b.UserRatingsTotal, priceLevel(b.PriceLevel), b.Phone,
		b.Website, hours, b.Brand, b.OSMID, b.NearestRoadID,
		sessionUUID(b.SessionID), crawledAt(b.CrawledAt, time.Now().UTC()), b.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update business %d", b.ID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "business %d", b.ID)
	}
	return nil
}

const businessColumns = `id, place_id, name, address, lat, lng, types, rating, user_ratings_total,
	price_level, phone, website, hours, brand, osm_id, nearest_road_id,
	COALESCE(crawl_session_id::text, ''), crawled_at`

func (s *PostgresStore) GetBusinessByPlaceID(ctx context.Context, placeID string) (*model.Business, error) {
	b, err := scanBusiness(s.pool.QueryRow(ctx,
		`SELECT `+businessColumns+` FROM businesses WHERE place_id = $1`,
		model.NormalizePlaceID(placeID)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "postgres: get business %s", placeID)
	}
	return b, nil
}

func (s *PostgresStore) FindBusinessesNear(ctx context.Context, pt geo.Point, radiusMeters float64) ([]model.Business, error) {
	return s.queryBusinesses(ctx, "find businesses near",
		`SELECT `+businessColumns+` FROM businesses
		 WHERE ST_DWithin(geom::geography, ST_SetSRID(ST_MakePoint($1, $2), 4326)::geography, $3)
		 ORDER BY geom <-> ST_SetSRID(ST_MakePoint($1, $2), 4326), id`,
		pt.Lng, pt.Lat, radiusMeters)
}

func (s *PostgresStore) ListBusinessesByRoad(ctx context.Context, roadID int64) ([]model.Business, error) {
	return s.queryBusinesses(ctx, "list businesses by road",
		`SELECT `+businessColumns+` FROM businesses WHERE nearest_road_id = $1 ORDER BY id`, roadID)
}

func (s *PostgresStore) queryBusinesses(ctx context.Context, op, query string, args ...any) ([]model.Business, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: "+op)
	}
	defer rows.Close()

	var out []model.Business
	for rows.Next() {
		b, err := scanBusiness(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan business")
		}
		out = append(out, *b)
	}
	return out, eris.Wrap(rows.Err(), "postgres: "+op)
}

// --- API usage ---

func (s *PostgresStore) RecordAPICall(ctx context.Context, call APICall) error {
	if call.CreatedAt.IsZero() {
		call.CreatedAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO api_calls (api_type, endpoint, tier, request_count, response_count, keyword, session_id, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		call.APIType, call.Endpoint, call.Tier, call.RequestCount, call.ResponseCount,
		nullString(truncate(call.Keyword, 255)), sessionUUID(call.SessionID), call.CreatedAt,
	)
	return eris.Wrap(err, "postgres: record api call")
}

func (s *PostgresStore) CountAPICallsSince(ctx context.Context, since time.Time) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(request_count), 0) FROM api_calls WHERE created_at >= $1`, since,
	).Scan(&n)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: count api calls")
	}
	return n, nil
}

func (s *PostgresStore) CountAPICallsByTier(ctx context.Context, since time.Time) (map[string]int, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT COALESCE(tier, ''), SUM(request_count) FROM api_calls WHERE created_at >= $1 GROUP BY 1`, since)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: count api calls by tier")
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var tier string
		var n int
		if err := rows.Scan(&tier, &n); err != nil {
			return nil, eris.Wrap(err, "postgres: scan api call tier")
		}
		out[tier] = n
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate api call tiers")
}

// --- helpers ---

type scannable interface {
	Scan(dest ...any) error
}

func scanRoad(row scannable) (*model.RoadSegment, error) {
	var r model.RoadSegment
	var highway string
	var wkb []byte
	if err := row.Scan(&r.ID, &r.Name, &highway, &r.Region.StateCode,
		&r.Region.CountyFIPS, &r.Region.City, &wkb); err != nil {
		return nil, err
	}
	r.Highway = model.ParseHighwayClass(highway)
	line, err := spatial.DecodeLineString(wkb)
	if err != nil {
		return nil, err
	}
	r.Geometry = line
	return &r, nil
}

func scanStats(row scannable) (*model.RoadBusinessStats, error) {
	var st model.RoadBusinessStats
	var highway string
	if err := row.Scan(
		&st.RoadID, &st.RoadName, &highway, &st.Region.StateCode, &st.Region.CountyFIPS,
		&st.Region.City, &st.POICount, &st.BusinessTypeVariety, &st.BrandCount, &st.Shops,
		&st.FoodPlaces, &st.EssentialServices, &st.HasPhone, &st.HasHours,
		&st.TopCategories, &st.TopBrands, &st.Score, &st.Formula, &st.RadiusMeters, &st.ComputedAt,
	); err != nil {
		return nil, err
	}
	st.Highway = model.HighwayClass(highway)
	return &st, nil
}

func scanSession(row scannable) (*model.CrawlSession, error) {
	var cs model.CrawlSession
	var status string
	if err := row.Scan(
		&cs.ID, &cs.RoadID, &cs.Region.StateCode, &cs.Region.CountyFIPS, &cs.Region.City,
		&cs.Keyword, &status, &cs.BusinessesFound, &cs.Error, &cs.CreatedAt, &cs.StartedAt, &cs.CompletedAt,
	); err != nil {
		return nil, err
	}
	cs.Status = model.SessionStatus(status)
	return &cs, nil
}

func scanBusiness(row scannable) (*model.Business, error) {
	var b model.Business
	var hours []byte
	var price *int16
	if err := row.Scan(
		&b.ID, &b.PlaceID, &b.Name, &b.Address, &b.Location.Lat, &b.Location.Lng, &b.Types,
		&b.Rating, &b.UserRatingsTotal, &price, &b.Phone, &b.Website, &hours, &b.Brand,
		&b.OSMID, &b.NearestRoadID, &b.SessionID, &b.CrawledAt,
	); err != nil {
		return nil, err
	}
	if price != nil {
		p := int(*price)
		b.PriceLevel = &p
	}
	h, err := unmarshalHours(hours)
	if err != nil {
		return nil, err
	}
	b.Hours = h
	return &b, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func marshalHours(h *model.OpeningHours) (any, error) {
	if h == nil {
		return nil, nil
	}
	data, err := json.Marshal(h)
	if err != nil {
		return nil, eris.Wrap(err, "store: marshal opening hours")
	}
	return data, nil
}

func unmarshalHours(data []byte) (*model.OpeningHours, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var h model.OpeningHours
	if err := json.Unmarshal(data, &h); err != nil {
		return nil, eris.Wrap(err, "store: unmarshal opening hours")
	}
	return &h, nil
}

func sessionUUID(id string) any {
	u, err := uuid.Parse(id)
	if err != nil {
		return nil
	}
	return u
}

func priceLevel(p *int) any {
	if p == nil {
		return nil
	}
	return int16(*p)
}

func nonNilTypes(t []string) []string {
	if t == nil {
		return []string{}
	}
	return t
}

func crawledAt(t, fallback time.Time) time.Time {
	if t.IsZero() {
		return fallback
	}
	return t
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func limitOrDefault(limit int) int {
	if limit <= 0 {
		return 100
	}
	return limit
}
