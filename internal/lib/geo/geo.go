package geo

import (
	"errors"
	"fmt"
	"math"

	"github.com/paulmach/orb"
	orbgeo "github.com/paulmach/orb/geo"
	"github.com/twpayne/go-polyline"
)

// geoUtils implements the GeoUtils interface
type geoUtils struct{}

// NewGeoUtils creates a new GeoUtils implementation
func NewGeoUtils() GeoUtils {
	return &geoUtils{}
}

// PointToPoint calculates great-circle distance between two points using Haversine formula
func (g *geoUtils) PointToPoint(p1, p2 orb.Point) (float64, error) {
	if !IsValidCoordinate(p1) || !IsValidCoordinate(p2) {
		return 0, errors.New("invalid coordinates: latitude must be [-90, 90], longitude must be [-180, 180]")
	}
	if p1.Equal(p2) {
		return 0, nil
	}
	return orbgeo.DistanceHaversine(p1, p2), nil
}

// PointToLine calculates minimum distance from point to line
func (g *geoUtils) PointToLine(point orb.Point, line orb.LineString) (float64, error) {
	position, err := g.ProjectOnLine(point, line)
	if err != nil {
		return 0, err
	}
	return position.DistanceFrom, nil
}

// ProjectOnLine finds the closest location on the line. Each segment is
// projected in a local equirectangular frame, which is accurate enough for
// the short segments of a routed path.
func (g *geoUtils) ProjectOnLine(point orb.Point, line orb.LineString) (LinePosition, error) {
	if !IsValidCoordinate(point) {
		return LinePosition{}, errors.New("invalid point coordinates")
	}
	if len(line) == 0 {
		return LinePosition{}, errors.New("line has no points")
	}
	if len(line) == 1 {
		return LinePosition{
			Point:        line[0],
			DistanceFrom: orbgeo.DistanceHaversine(point, line[0]),
		}, nil
	}

	best := LinePosition{DistanceFrom: math.Inf(1)}
	lengthSoFar := 0.0
	for i := 0; i < len(line)-1; i++ {
		start, end := line[i], line[i+1]
		projected, fraction := projectOnSegment(point, start, end)
		segmentLength := orbgeo.DistanceHaversine(start, end)

		distance := orbgeo.DistanceHaversine(point, projected)
		if distance < best.DistanceFrom {
			best = LinePosition{
				Point:         projected,
				SegmentIndex:  i,
				DistanceAlong: lengthSoFar + fraction*segmentLength,
				DistanceFrom:  distance,
			}
		}
		lengthSoFar += segmentLength
	}

	return best, nil
}

// projectOnSegment returns the projection of point on [start, end] and its
// fraction along the segment, clamped to [0, 1]
func projectOnSegment(point, start, end orb.Point) (orb.Point, float64) {
	if start.Equal(end) {
		return start, 0
	}
	scale := math.Cos(start.Lat() * math.Pi / 180)
	dx := (end.Lon() - start.Lon()) * scale
	dy := end.Lat() - start.Lat()
	px := (point.Lon() - start.Lon()) * scale
	py := point.Lat() - start.Lat()

	t := (px*dx + py*dy) / (dx*dx + dy*dy)
	t = math.Max(0, math.Min(1, t))

	return orb.Point{
		start.Lon() + t*(end.Lon()-start.Lon()),
		start.Lat() + t*(end.Lat()-start.Lat()),
	}, t
}

// LineLength returns the haversine length of the line in meters
func (g *geoUtils) LineLength(line orb.LineString) float64 {
	if len(line) < 2 {
		return 0
	}
	return orbgeo.LengthHaversine(line)
}

// CumulativeDistances returns, for each coordinate, the distance traveled
// from the first coordinate
func (g *geoUtils) CumulativeDistances(line orb.LineString) []float64 {
	distances := make([]float64, len(line))
	soFar := 0.0
	for i := range line {
		if i > 0 {
			soFar += orbgeo.DistanceHaversine(line[i-1], line[i])
		}
		distances[i] = soFar
	}
	return distances
}

// DecodePolyline decodes an encoded polyline string to a line string
func (g *geoUtils) DecodePolyline(encoded string) (orb.LineString, error) {
	if encoded == "" {
		return nil, errors.New("encoded polyline string is empty")
	}

	coords, _, err := polyline.DecodeCoords([]byte(encoded))
	if err != nil {
		return nil, fmt.Errorf("failed to decode polyline: %w", err)
	}

	line := make(orb.LineString, len(coords))
	for i, coord := range coords {
		// polyline coordinates are [lat, lng]
		line[i] = orb.Point{coord[1], coord[0]}
		if !IsValidCoordinate(line[i]) {
			return nil, errors.New("decoded polyline contains invalid coordinates")
		}
	}

	return line, nil
}

// IsValidCoordinate checks that a point has a valid latitude and longitude
func IsValidCoordinate(p orb.Point) bool {
	return p.Lat() >= -90 && p.Lat() <= 90 && p.Lon() >= -180 && p.Lon() <= 180
}
