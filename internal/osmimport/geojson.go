// Package osmimport loads OSM road ways and business POIs exported as
// GeoJSON feature collections.
package osmimport

import (
	"encoding/json"
	"io"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/sells-group/road-crawl-cli/internal/geo"
	"github.com/sells-group/road-crawl-cli/internal/model"
)

const srid = 4326

// Skip records a feature that was not imported.
type Skip struct {
	Index  int    `json:"index"`
	OSMID  int64  `json:"osm_id,omitempty"`
	Reason string `json:"reason"`
}

type featureCollection[P any] struct {
	Type     string       `json:"type"`
	Features []feature[P] `json:"features"`
}

type feature[P any] struct {
	Geometry   *geojson.Geometry `json:"geometry"`
	Properties P                 `json:"properties"`
}

type roadProps struct {
	OSMID      int64  `json:"osm_id"`
	Name       string `json:"name"`
	Highway    string `json:"highway"`
	StateCode  string `json:"state_code"`
	CountyFIPS string `json:"county_fips"`
	City       string `json:"city"`
}

type poiProps struct {
	OSMID        int64   `json:"osm_id"`
	Name         *string `json:"name"`
	Type         string  `json:"type"`
	Subtype      string  `json:"subtype"`
	Phone        *string `json:"phone"`
	Website      *string `json:"website"`
	OpeningHours *string `json:"opening_hours"`
	Brand        *string `json:"brand"`
	StateCode    string  `json:"state_code"`
}

func decode[P any](r io.Reader) ([]feature[P], error) {
	var fc featureCollection[P]
	if err := json.NewDecoder(r).Decode(&fc); err != nil {
		return nil, eris.Wrap(err, "osmimport: decode feature collection")
	}
	if fc.Type != "FeatureCollection" {
		return nil, eris.Errorf("osmimport: expected FeatureCollection, got %q", fc.Type)
	}
	return fc.Features, nil
}

// ReadRoads parses LineString features into road segments. Features with a
// missing id, an invalid region, or a non-LineString geometry are skipped
// and reported. A feature without geometry is kept as a degenerate road.
func ReadRoads(r io.Reader) ([]*model.RoadSegment, []Skip, error) {
	features, err := decode[roadProps](r)
	if err != nil {
		return nil, nil, err
	}

	roads := make([]*model.RoadSegment, 0, len(features))
	var skips []Skip
	for i, f := range features {
		p := f.Properties
		line, err := lineString(f.Geometry)
		if err != nil {
			skips = append(skips, Skip{Index: i, OSMID: p.OSMID, Reason: err.Error()})
			continue
		}
		region := model.Region{
			StateCode:  strings.ToUpper(strings.TrimSpace(p.StateCode)),
			CountyFIPS: strings.TrimSpace(p.CountyFIPS),
			City:       strings.TrimSpace(p.City),
		}
		road, err := model.NewRoadSegment(p.OSMID, p.Name, p.Highway, region, line)
		if err != nil {
			skips = append(skips, Skip{Index: i, OSMID: p.OSMID, Reason: err.Error()})
			continue
		}
		roads = append(roads, road)
	}
	return roads, skips, nil
}

func lineString(g *geojson.Geometry) (*geom.LineString, error) {
	if g == nil {
		return nil, nil
	}
	t, err := g.Decode()
	if err != nil {
		return nil, eris.Wrap(err, "decode geometry")
	}
	ls, ok := t.(*geom.LineString)
	if !ok {
		return nil, eris.Errorf("geometry type %s is not LineString", g.Type)
	}
	return ls.SetSRID(srid), nil
}

// ReadPOIs parses Point features into business POIs. Features that fail
// validation are skipped and reported.
func ReadPOIs(r io.Reader) ([]model.BusinessPOI, []Skip, error) {
	features, err := decode[poiProps](r)
	if err != nil {
		return nil, nil, err
	}

	pois := make([]model.BusinessPOI, 0, len(features))
	var skips []Skip
	for i, f := range features {
		p := f.Properties
		pt, err := point(f.Geometry)
		if err != nil {
			skips = append(skips, Skip{Index: i, OSMID: p.OSMID, Reason: err.Error()})
			continue
		}
		poi := model.BusinessPOI{
			ID:           p.OSMID,
			Name:         blankToNil(p.Name),
			Type:         p.Type,
			Subtype:      p.Subtype,
			Location:     pt,
			Phone:        blankToNil(p.Phone),
			Website:      blankToNil(p.Website),
			OpeningHours: blankToNil(p.OpeningHours),
			Brand:        blankToNil(p.Brand),
			StateCode:    strings.ToUpper(strings.TrimSpace(p.StateCode)),
		}
		if err := model.Validate(&poi); err != nil {
			skips = append(skips, Skip{Index: i, OSMID: p.OSMID, Reason: err.Error()})
			continue
		}
		pois = append(pois, poi)
	}
	return pois, skips, nil
}

func point(g *geojson.Geometry) (geo.Point, error) {
	if g == nil {
		return geo.Point{}, eris.New("missing geometry")
	}
	t, err := g.Decode()
	if err != nil {
		return geo.Point{}, eris.Wrap(err, "decode geometry")
	}
	pt, ok := t.(*geom.Point)
	if !ok {
		return geo.Point{}, eris.Errorf("geometry type %s is not Point", g.Type)
	}
	return geo.Point{Lat: pt.Y(), Lng: pt.X()}, nil
}

func blankToNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
