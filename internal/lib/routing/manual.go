package routing

import (
	"context"
	"errors"

	"github.com/paulmach/orb"

	"github.com/dpup/transit.paths/server/internal/lib/geo"
)

// manualMatcher draws straight lines between consecutive points. Every point
// matches itself, so tracepoints are never nil.
type manualMatcher struct {
	geoUtils geo.GeoUtils
}

// NewManualMatcher creates the matcher used by the manual routing engine
func NewManualMatcher() Matcher {
	return &manualMatcher{
		geoUtils: geo.NewGeoUtils(),
	}
}

// MapMatch builds one straight leg per pair of consecutive points. Durations
// use the request's running speed.
func (m *manualMatcher) MapMatch(ctx context.Context, req MapMatchRequest) (*MapMatchResult, error) {
	if len(req.Points) < 2 {
		return nil, errors.New("at least 2 points are required for manual routing")
	}
	if req.DefaultRunningSpeed <= 0 {
		return nil, errors.New("manual routing requires a positive running speed")
	}

	result := &MapMatchResult{
		Tracepoints: make([]*orb.Point, len(req.Points)),
	}
	matching := Matching{Confidence: 1}

	for i, point := range req.Points {
		coordinates := point.Coordinates
		result.Tracepoints[i] = &coordinates
		if i == 0 {
			continue
		}

		previous := req.Points[i-1].Coordinates
		distance, err := m.geoUtils.PointToPoint(previous, coordinates)
		if err != nil {
			return nil, err
		}
		duration := distance / req.DefaultRunningSpeed

		matching.Legs = append(matching.Legs, Leg{
			Distance: distance,
			Duration: duration,
			Steps: []Step{{
				Distance: distance,
				Duration: duration,
				Geometry: orb.LineString{previous, coordinates},
			}},
		})
		matching.Distance += distance
		matching.Duration += duration
	}

	result.Matchings = []Matching{matching}
	return result, nil
}
