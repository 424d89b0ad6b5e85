package geography

import (
	"context"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/mock"

	"github.com/dpup/transit.paths/server/internal/config"
	"github.com/dpup/transit.paths/server/internal/lib/path"
	"github.com/dpup/transit.paths/server/internal/lib/routing"
)

var (
	node1Point = orb.Point{-73.745618, 45.368994}
	node2Point = orb.Point{-73.742861, 45.361682}
	node4Point = orb.Point{-73.731251, 45.368103}
	node6Point = orb.Point{-73.749821, 45.373132}
	waypoint1  = orb.Point{-73.74382202603918, 45.36504595320852}
)

// MockMatcher is a mock implementation of routing.Matcher
type MockMatcher struct {
	mock.Mock
}

func (m *MockMatcher) MapMatch(ctx context.Context, req routing.MapMatchRequest) (*routing.MapMatchResult, error) {
	args := m.Called(ctx, req)
	if result := args.Get(0); result != nil {
		return result.(*routing.MapMatchResult), args.Error(1)
	}
	return nil, args.Error(1)
}

type testNodes map[string]*path.Node

func (n testNodes) NodeByID(ctx context.Context, id string) (*path.Node, error) {
	if node, ok := n[id]; ok {
		return node, nil
	}
	return nil, path.ErrNodeNotFound
}

type testLines map[string]*path.Line

func (l testLines) LineByID(ctx context.Context, id string) (*path.Line, error) {
	if line, ok := l[id]; ok {
		return line, nil
	}
	return nil, path.ErrLineNotFound
}

func defaultNodes() testNodes {
	return testNodes{
		"node1": {ID: "node1", Point: node1Point, RoutingRadiusMeters: path.Float64(50)},
		"node2": {ID: "node2", Point: node2Point, RoutingRadiusMeters: path.Float64(100)},
		"node4": {ID: "node4", Point: node4Point, RoutingRadiusMeters: path.Float64(50), DefaultDwellTimeSeconds: path.Float64(120)},
		"node6": {ID: "node6", Point: node6Point},
	}
}

func defaultLines() testLines {
	return testLines{"line1": {ID: "line1", Mode: "bus"}}
}

func testConfig() config.PathsConfig {
	return config.DefaultConfig().Paths
}

func newRoutedPath(engine routing.Engine, nodes ...string) *path.Path {
	p := path.NewPath("line1")
	p.Direction = path.DirectionOutbound
	p.Data.RoutingEngine = engine
	p.Data.RoutingMode = "driving"
	p.Data.DefaultDwellTimeSeconds = path.Float64(25)
	p.Data.DefaultAcceleration = path.Float64(1)
	p.Data.DefaultDeceleration = path.Float64(1)
	p.Data.DefaultRunningSpeedKmH = path.Float64(36)
	p.Data.MaxRunningSpeedKmH = path.Float64(110)
	for _, id := range nodes {
		p.InsertNodeID(id, nil, engine)
	}
	return p
}

func straightLeg(from, to orb.Point, distance, duration float64) routing.Leg {
	return routing.Leg{
		Distance: distance,
		Duration: duration,
		Steps: []routing.Step{
			{Distance: distance, Duration: duration, Geometry: orb.LineString{from, to}},
		},
	}
}

func matchedResult(points []orb.Point, legs ...routing.Leg) *routing.MapMatchResult {
	tracepoints := make([]*orb.Point, len(points))
	for i := range points {
		pt := points[i]
		tracepoints[i] = &pt
	}
	distance, duration := 0.0, 0.0
	for _, leg := range legs {
		distance += leg.Distance
		duration += leg.Duration
	}
	return &routing.MapMatchResult{
		Tracepoints: tracepoints,
		Matchings: []routing.Matching{
			{Confidence: 99, Distance: distance, Duration: duration, Legs: legs},
		},
	}
}

func nodePoints(coords ...orb.Point) []routing.MatchPoint {
	points := make([]routing.MatchPoint, len(coords))
	for i, c := range coords {
		points[i] = routing.MatchPoint{Coordinates: c, IsNode: true, Type: routing.EngineNative}
	}
	return points
}
