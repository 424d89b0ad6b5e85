package geo

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeoUtils_PointToPoint(t *testing.T) {
	angelsCamp := orb.Point{-120.5436, 38.0675}
	murphys := orb.Point{-120.4561, 38.1391}

	geoUtils := NewGeoUtils()

	distance, err := geoUtils.PointToPoint(angelsCamp, murphys)
	require.NoError(t, err)
	assert.InDelta(t, 11046, distance, 100, "Distance should be approximately 11.0km")

	distance, err = geoUtils.PointToPoint(angelsCamp, angelsCamp)
	require.NoError(t, err)
	assert.Equal(t, 0.0, distance)

	_, err = geoUtils.PointToPoint(angelsCamp, orb.Point{-300, 200})
	assert.Error(t, err, "Should return error for invalid coordinates")
}

func TestGeoUtils_ProjectOnLine(t *testing.T) {
	geoUtils := NewGeoUtils()
	line := orb.LineString{{-73.0, 45.0}, {-73.0, 45.01}, {-72.99, 45.01}}

	// Halfway up the first vertical segment, slightly to the east
	position, err := geoUtils.ProjectOnLine(orb.Point{-72.9995, 45.005}, line)
	require.NoError(t, err)
	assert.Equal(t, 0, position.SegmentIndex)
	assert.InDelta(t, -73.0, position.Point.Lon(), 1e-9)
	assert.InDelta(t, 45.005, position.Point.Lat(), 1e-9)
	assert.InDelta(t, 556, position.DistanceAlong, 5)
	assert.InDelta(t, 39, position.DistanceFrom, 2)

	// Beyond the end of the line projects on the last vertex
	position, err = geoUtils.ProjectOnLine(orb.Point{-72.98, 45.01}, line)
	require.NoError(t, err)
	assert.Equal(t, 1, position.SegmentIndex)
	assert.InDelta(t, geoUtils.LineLength(line), position.DistanceAlong, 1e-6)

	_, err = geoUtils.ProjectOnLine(orb.Point{-73, 45}, nil)
	assert.Error(t, err)
}

func TestGeoUtils_PointToLine(t *testing.T) {
	geoUtils := NewGeoUtils()
	line := orb.LineString{{-73.0, 45.0}, {-73.0, 45.01}}

	distance, err := geoUtils.PointToLine(orb.Point{-73.0, 45.002}, line)
	require.NoError(t, err)
	assert.Less(t, distance, 0.01, "Point on line should be at distance 0")
}

func TestGeoUtils_CumulativeDistances(t *testing.T) {
	geoUtils := NewGeoUtils()
	line := orb.LineString{{-73.0, 45.0}, {-73.0, 45.01}, {-73.0, 45.02}}

	distances := geoUtils.CumulativeDistances(line)
	require.Len(t, distances, 3)
	assert.Equal(t, 0.0, distances[0])
	assert.InDelta(t, distances[1]*2, distances[2], 1e-6)
	assert.InDelta(t, geoUtils.LineLength(line), distances[2], 1e-6)

	assert.Equal(t, 0.0, geoUtils.LineLength(orb.LineString{{-73, 45}}))
}

func TestGeoUtils_DecodePolyline(t *testing.T) {
	geoUtils := NewGeoUtils()

	line, err := geoUtils.DecodePolyline("_p~iF~ps|U_ulLnnqC_mqNvxq`@")
	require.NoError(t, err)
	require.Len(t, line, 3)
	assert.InDelta(t, -120.2, line[0].Lon(), 1e-5)
	assert.InDelta(t, 38.5, line[0].Lat(), 1e-5)
	assert.InDelta(t, -126.453, line[2].Lon(), 1e-5)
	assert.InDelta(t, 43.252, line[2].Lat(), 1e-5)

	_, err = geoUtils.DecodePolyline("")
	assert.Error(t, err)
}
