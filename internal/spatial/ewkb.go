package spatial

import (
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"
)

// DecodeLineString decodes road geometry returned by ST_AsEWKB. Multi-part
// lines are reduced to their longest part (queries apply ST_LineMerge first,
// so true multi-part roads are rare). Empty input and non-line geometries
// decode to nil so callers treat the road as degenerate.
func DecodeLineString(b []byte) (*geom.LineString, error) {
	if len(b) == 0 {
		return nil, nil
	}
	g, err := ewkb.Unmarshal(b)
	if err != nil {
		return nil, eris.Wrap(err, "spatial: decode EWKB")
	}

	switch t := g.(type) {
	case *geom.LineString:
		return t, nil
	case *geom.MultiLineString:
		var best *geom.LineString
		for i := 0; i < t.NumLineStrings(); i++ {
			ls := t.LineString(i)
			if best == nil || ls.Length() > best.Length() {
				best = ls
			}
		}
		return best, nil
	default:
		return nil, nil
	}
}

// EncodeLineString encodes a line as little-endian EWKB.
func EncodeLineString(ls *geom.LineString) ([]byte, error) {
	if ls == nil {
		return nil, nil
	}
	data, err := ewkb.Marshal(ls, ewkb.NDR)
	if err != nil {
		return nil, eris.Wrap(err, "spatial: encode EWKB")
	}
	return data, nil
}
