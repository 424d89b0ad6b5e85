package path

import (
	"context"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/dpup/transit.paths/server/internal/lib/routing"
)

// Direction of a path relative to its line
type Direction string

const (
	DirectionLoop     Direction = "loop"
	DirectionOutbound Direction = "outbound"
	DirectionInbound  Direction = "inbound"
	DirectionOther    Direction = "other"
)

// TimeAndDistance holds the statistics of one inter-node segment
type TimeAndDistance struct {
	TravelTimeSeconds float64 `json:"travelTimeSeconds"`
	DistanceMeters    float64 `json:"distanceMeters"`
}

// Statistics are the path variables refreshed after every geography update
type Statistics struct {
	DP    *float64 `json:"d_p"`     // total distance
	NQP   *int     `json:"n_q_p"`   // node count
	DLMin *float64 `json:"d_l_min"` // shortest inter-node distance
	DLMax *float64 `json:"d_l_max"` // longest inter-node distance
	DLAvg *float64 `json:"d_l_avg"`
	DLMed *float64 `json:"d_l_med"`
	TOP   *float64 `json:"T_o_p"` // operating time without layover
	NSP   *int     `json:"n_s_p"` // stop count
}

// GeographyErrors localizes a routing failure to the nodes and waypoints
// that could not be matched
type GeographyErrors struct {
	Error     string             `json:"error,omitempty"`
	Nodes     []*geojson.Feature `json:"nodes"`
	Waypoints []*geojson.Feature `json:"waypoints"`
}

// Data holds the per-node arrays, routing configuration and computed
// statistics of a path
type Data struct {
	// Parallel to Path.Nodes
	NodeTypes     []routing.Engine   `json:"nodeTypes"`
	Waypoints     [][]orb.Point      `json:"waypoints"`
	WaypointTypes [][]routing.Engine `json:"waypointTypes"`

	RoutingEngine                                  routing.Engine `json:"routingEngine,omitempty"`
	RoutingMode                                    string         `json:"routingMode,omitempty"`
	DefaultAcceleration                            *float64       `json:"defaultAcceleration,omitempty"`
	DefaultDeceleration                            *float64       `json:"defaultDeceleration,omitempty"`
	DefaultRunningSpeedKmH                         *float64       `json:"defaultRunningSpeedKmH,omitempty"`
	MaxRunningSpeedKmH                             *float64       `json:"maxRunningSpeedKmH,omitempty"`
	DefaultDwellTimeSeconds                        *float64       `json:"defaultDwellTimeSeconds,omitempty"`
	IgnoreNodesDefaultDwellTimeSeconds             bool           `json:"ignoreNodesDefaultDwellTimeSeconds,omitempty"`
	CustomLayoverMinutes                           *float64       `json:"customLayoverMinutes,omitempty"`
	MinMatchingTimestamp                           *int64         `json:"minMatchingTimestamp,omitempty"`
	FromGTFS                                       bool           `json:"from_gtfs,omitempty"`
	IncreaseRoutingRadiiToIncludeExistingPathShape bool           `json:"increaseRoutingRadiiToIncludeExistingPathShape,omitempty"`

	SegmentsData                                 []TimeAndDistance `json:"segments"`
	DwellTimeSeconds                             []float64         `json:"dwellTimeSeconds"`
	LayoverTimeSeconds                           *float64          `json:"layoverTimeSeconds"`
	TravelTimeWithoutDwellTimesSeconds           *float64          `json:"travelTimeWithoutDwellTimesSeconds"`
	TotalDistanceMeters                          *float64          `json:"totalDistanceMeters"`
	TotalDwellTimeSeconds                        *float64          `json:"totalDwellTimeSeconds"`
	OperatingTimeWithoutLayoverTimeSeconds       *float64          `json:"operatingTimeWithoutLayoverTimeSeconds"`
	OperatingTimeWithLayoverTimeSeconds          *float64          `json:"operatingTimeWithLayoverTimeSeconds"`
	TotalTravelTimeWithReturnBackSeconds         *float64          `json:"totalTravelTimeWithReturnBackSeconds"`
	AverageSpeedWithoutDwellTimesMetersPerSecond *float64          `json:"averageSpeedWithoutDwellTimesMetersPerSecond"`
	OperatingSpeedMetersPerSecond                *float64          `json:"operatingSpeedMetersPerSecond"`
	OperatingSpeedWithLayoverMetersPerSecond     *float64          `json:"operatingSpeedWithLayoverMetersPerSecond"`
	DirectRouteBetweenTerminalsTravelTimeSeconds *float64          `json:"directRouteBetweenTerminalsTravelTimeSeconds,omitempty"`
	DirectRouteBetweenTerminalsDistanceMeters    *float64          `json:"directRouteBetweenTerminalsDistanceMeters,omitempty"`
	BirdDistanceBetweenTerminals                 *float64          `json:"birdDistanceBetweenTerminals,omitempty"`

	RoutingFailed   bool             `json:"routingFailed,omitempty"`
	GeographyErrors *GeographyErrors `json:"geographyErrors,omitempty"`
	Variables       Statistics       `json:"variables"`
}

// Path is a specific sequence of nodes belonging to a line, with the routed
// geography passing through all of its nodes and waypoints
type Path struct {
	ID        string    `json:"id"`
	IntegerID int       `json:"integer_id,omitempty"`
	LineID    string    `json:"line_id"`
	Name      string    `json:"name,omitempty"`
	Direction Direction `json:"direction,omitempty"`
	Mode      string    `json:"mode,omitempty"`
	Color     string    `json:"color,omitempty"`
	IsEnabled bool      `json:"is_enabled"`
	Nodes     []string  `json:"nodes"`

	// Index in Geography of the coordinate starting each inter-node segment
	Segments []int `json:"segments"`
	Data     Data  `json:"data"`

	// nil when the path has no geography
	Geography orb.LineString `json:"-"`

	isValid bool
	errors  []string
}

// ChangeKind identifies the structural edit made to a path
type ChangeKind string

const (
	NodeInserted    ChangeKind = "insert"
	NodeRemoved     ChangeKind = "remove"
	WaypointChanged ChangeKind = "waypoint"
)

// PendingChange describes the last edit so that the next geography update can
// reuse the timings of the segments it did not touch
type PendingChange struct {
	Kind  ChangeKind `json:"kind"`
	Index int        `json:"index"` // node index, or segment index for waypoint changes
}

// Node is a transit stop a path passes through
type Node struct {
	ID                      string                 `json:"id"`
	Code                    string                 `json:"code,omitempty"`
	Name                    string                 `json:"name,omitempty"`
	Point                   orb.Point              `json:"point"`
	RoutingRadiusMeters     *float64               `json:"routing_radius_meters,omitempty"`
	DefaultDwellTimeSeconds *float64               `json:"default_dwell_time_seconds,omitempty"`
	Properties              map[string]interface{} `json:"properties,omitempty"`
}

// Line owns zero or more paths
type Line struct {
	ID       string   `json:"id"`
	Name     string   `json:"name,omitempty"`
	Color    string   `json:"color,omitempty"`
	Mode     string   `json:"mode,omitempty"`
	IsFrozen bool     `json:"is_frozen"`
	PathIDs  []string `json:"path_ids"`
}

// NodeRepository provides node lookups to the geography engine
type NodeRepository interface {
	NodeByID(ctx context.Context, id string) (*Node, error)
}

// LineRepository provides line lookups to the geography engine
type LineRepository interface {
	LineByID(ctx context.Context, id string) (*Line, error)
}

// Float64 returns a pointer to v, for optional numeric fields
func Float64(v float64) *float64 {
	return &v
}
