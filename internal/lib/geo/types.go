package geo

import "github.com/paulmach/orb"

// LinePosition locates a point projected on a line string
type LinePosition struct {
	Point         orb.Point `json:"point"`
	SegmentIndex  int       `json:"segment_index"`  // index of the line vertex starting the matched segment
	DistanceAlong float64   `json:"distance_along"` // meters from the start of the line
	DistanceFrom  float64   `json:"distance_from"`  // meters between the point and its projection
}

// GeoUtils interface defines geographic calculation utilities on orb geometries.
// Coordinates are [longitude, latitude].
type GeoUtils interface {
	// Great-circle distance between two points in meters
	PointToPoint(p1, p2 orb.Point) (float64, error)

	// Minimum distance from point to line in meters
	PointToLine(point orb.Point, line orb.LineString) (float64, error)

	// Project a point on a line and measure how far along the line it falls
	ProjectOnLine(point orb.Point, line orb.LineString) (LinePosition, error)

	// Length of a line string in meters
	LineLength(line orb.LineString) float64

	// Distance traveled from the first coordinate up to each coordinate
	CumulativeDistances(line orb.LineString) []float64

	// Decode an encoded polyline (precision 5) into a line string
	DecodePolyline(encoded string) (orb.LineString, error)
}

// NewGeoUtils is implemented in geo.go
