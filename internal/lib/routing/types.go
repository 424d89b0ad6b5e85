package routing

import (
	"context"

	"github.com/paulmach/orb"
)

// Engine identifies the routing backend used for a node, a waypoint or a whole path
type Engine string

const (
	EngineNative Engine = "engine"       // network map matching with native speeds
	EngineCustom Engine = "engineCustom" // network map matching, custom running speed
	EngineManual Engine = "manual"       // straight lines between points
)

// MatchPoint is one point of a map matching request
type MatchPoint struct {
	Coordinates orb.Point `json:"coordinates"`
	IsNode      bool      `json:"is_node"`
	NodeID      string    `json:"node_id,omitempty"`
	Type        Engine    `json:"type"`
	Radius      float64   `json:"radius"`    // search radius in meters
	Timestamp   int64     `json:"timestamp"` // synthetic seconds since the first point

	// Position in the path: afterNodeIndex/waypointIndex for waypoints
	AfterNodeIndex int `json:"after_node_index"`
	WaypointIndex  int `json:"waypoint_index"`
}

// MapMatchRequest asks a matcher to snap ordered points to a network
type MapMatchRequest struct {
	Mode                string       `json:"mode"`
	DefaultRunningSpeed float64      `json:"default_running_speed"` // m/s
	Points              []MatchPoint `json:"points"`
}

// Step is a piece of leg geometry
type Step struct {
	Distance float64        `json:"distance"`
	Duration float64        `json:"duration"`
	Geometry orb.LineString `json:"geometry"`
}

// Leg is the route between two consecutive matched points
type Leg struct {
	Distance float64 `json:"distance"`
	Duration float64 `json:"duration"`
	Steps    []Step  `json:"steps"`
}

// Matching is one candidate route for the whole request
type Matching struct {
	Confidence float64 `json:"confidence"`
	Distance   float64 `json:"distance"`
	Duration   float64 `json:"duration"`
	Legs       []Leg   `json:"legs"`
}

// MapMatchResult holds one tracepoint per request point (nil when the point
// could not be matched) and the candidate matchings
type MapMatchResult struct {
	Tracepoints []*orb.Point `json:"tracepoints"`
	Matchings   []Matching   `json:"matchings"`
}

// HasUnmatchedPoint returns true if any tracepoint is nil
func (r *MapMatchResult) HasUnmatchedPoint() bool {
	for _, tp := range r.Tracepoints {
		if tp == nil {
			return true
		}
	}
	return false
}

// UnmatchedResult returns the result recorded for a request that could not be
// matched at all
func UnmatchedResult(pointCount int) *MapMatchResult {
	return &MapMatchResult{
		Tracepoints: make([]*orb.Point, pointCount),
		Matchings:   []Matching{},
	}
}

// Matcher interface defines map matching against a routing backend
type Matcher interface {
	// Snap ordered points to the network and return legs between them
	MapMatch(ctx context.Context, req MapMatchRequest) (*MapMatchResult, error)
}

// Registry resolves the matcher for a routing engine
type Registry interface {
	// Get the matcher registered for an engine
	MatcherForEngine(engine Engine) (Matcher, error)

	// Register or replace the matcher for an engine
	Register(engine Engine, matcher Matcher)
}

// NewRegistry is implemented in registry.go
