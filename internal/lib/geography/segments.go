package geography

import "github.com/dpup/transit.paths/server/internal/lib/routing"

// RoutingSegment is a run of consecutive points routed with the same engine
type RoutingSegment struct {
	Engine routing.Engine
	Points []routing.MatchPoint
}

// RoutingSegments splits the points into runs of the same routing engine.
// Consecutive runs share their boundary point.
func RoutingSegments(points []routing.MatchPoint, engine routing.Engine) []RoutingSegment {
	segments := []RoutingSegment{}
	current := []routing.MatchPoint{}
	lastType := engine

	for _, point := range points {
		pointType := point.Type
		switch {
		case engine == routing.EngineManual:
			pointType = routing.EngineManual
		case pointType == "":
			pointType = lastType
		}

		if pointType != lastType && len(current) > 0 {
			last := current[len(current)-1]
			segments = append(segments, RoutingSegment{Engine: lastType, Points: current})
			current = []routing.MatchPoint{last}
		}
		current = append(current, point)
		lastType = pointType
	}
	if len(current) > 0 {
		segments = append(segments, RoutingSegment{Engine: lastType, Points: current})
	}
	return segments
}
