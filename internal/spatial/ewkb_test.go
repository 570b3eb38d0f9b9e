package spatial

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"
)

func TestDecodeLineString_RoundTrip(t *testing.T) {
	ls := line(-97.0, 30.0, -96.99, 30.01)
	b, err := EncodeLineString(ls)
	require.NoError(t, err)

	got, err := DecodeLineString(b)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, ls.FlatCoords(), got.FlatCoords())
	assert.Equal(t, 4326, got.SRID())
}

func TestDecodeLineString_MultiPicksLongest(t *testing.T) {
	mls := geom.NewMultiLineString(geom.XY).SetSRID(4326)
	require.NoError(t, mls.Push(line(0, 0, 0, 1)))
	require.NoError(t, mls.Push(line(1, 0, 1, 5)))
	b, err := ewkb.Marshal(mls, ewkb.NDR)
	require.NoError(t, err)

	got, err := DecodeLineString(b)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 0, 1, 5}, got.FlatCoords())
}

func TestDecodeLineString_NonLine(t *testing.T) {
	pt := geom.NewPointFlat(geom.XY, []float64{1, 2}).SetSRID(4326)
	b, err := ewkb.Marshal(pt, ewkb.NDR)
	require.NoError(t, err)

	got, err := DecodeLineString(b)
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = DecodeLineString(nil)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestDecodeLineString_Garbage(t *testing.T) {
	_, err := DecodeLineString([]byte{0x01, 0x02})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode EWKB")
}
