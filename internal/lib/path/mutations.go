package path

import (
	"slices"

	"github.com/paulmach/orb"

	"github.com/dpup/transit.paths/server/internal/lib/routing"
)

// InsertNodeID inserts a node at insertIndex, or appends it when insertIndex
// is nil. The node gets an empty waypoint slot.
func (p *Path) InsertNodeID(nodeID string, insertIndex *int, nodeType routing.Engine) *PendingChange {
	p.normalize()
	p.padWaypoints()
	if nodeType == "" {
		nodeType = routing.EngineNative
	}

	index := len(p.Nodes)
	if insertIndex != nil {
		index = min(max(*insertIndex, 0), len(p.Nodes))
	}
	p.Nodes = slices.Insert(p.Nodes, index, nodeID)
	p.Data.NodeTypes = slices.Insert(p.Data.NodeTypes, index, nodeType)
	p.Data.Waypoints = slices.Insert(p.Data.Waypoints, index, []orb.Point{})
	p.Data.WaypointTypes = slices.Insert(p.Data.WaypointTypes, index, []routing.Engine{})

	p.RemoveConsecutiveDuplicateNodes()
	return &PendingChange{Kind: NodeInserted, Index: index}
}

// RemoveNodeID removes the node only if it appears exactly once in the path
func (p *Path) RemoveNodeID(nodeID string) *PendingChange {
	index := -1
	for i, id := range p.Nodes {
		if id != nodeID {
			continue
		}
		if index >= 0 {
			return nil
		}
		index = i
	}
	if index < 0 {
		return nil
	}
	return p.RemoveNode(index)
}

// RemoveNode removes the node at removeIndex with its waypoints. The waypoints
// of the previous node are cleared too, since they were routed towards the
// removed node.
func (p *Path) RemoveNode(removeIndex int) *PendingChange {
	if removeIndex < 0 || removeIndex >= len(p.Nodes) {
		return nil
	}
	p.padWaypoints()

	p.Nodes = slices.Delete(p.Nodes, removeIndex, removeIndex+1)
	p.Data.NodeTypes = slices.Delete(p.Data.NodeTypes, removeIndex, removeIndex+1)
	p.Data.Waypoints = slices.Delete(p.Data.Waypoints, removeIndex, removeIndex+1)
	p.Data.WaypointTypes = slices.Delete(p.Data.WaypointTypes, removeIndex, removeIndex+1)
	if removeIndex > 0 && removeIndex-1 < len(p.Data.Waypoints) {
		p.Data.Waypoints[removeIndex-1] = []orb.Point{}
		p.Data.WaypointTypes[removeIndex-1] = []routing.Engine{}
	}

	if len(p.Nodes) == 0 {
		p.Data.NodeTypes = []routing.Engine{}
		p.Data.Waypoints = [][]orb.Point{}
		p.Data.WaypointTypes = [][]routing.Engine{}
		return nil
	}
	if len(p.Nodes) > 1 {
		p.RemoveConsecutiveDuplicateNodes()
	}
	return &PendingChange{Kind: NodeRemoved, Index: removeIndex}
}

// RemoveConsecutiveDuplicateNodes collapses runs of the same node, keeping
// the data of the first node of each run
func (p *Path) RemoveConsecutiveDuplicateNodes() {
	if len(p.Nodes) == 0 {
		return
	}
	p.padWaypoints()

	nodes := []string{p.Nodes[0]}
	nodeTypes := []routing.Engine{p.Data.NodeTypes[0]}
	waypoints := [][]orb.Point{p.Data.Waypoints[0]}
	waypointTypes := [][]routing.Engine{p.Data.WaypointTypes[0]}
	for i := 1; i < len(p.Nodes); i++ {
		if p.Nodes[i] == p.Nodes[i-1] {
			continue
		}
		nodes = append(nodes, p.Nodes[i])
		nodeTypes = append(nodeTypes, p.Data.NodeTypes[i])
		waypoints = append(waypoints, p.Data.Waypoints[i])
		waypointTypes = append(waypointTypes, p.Data.WaypointTypes[i])
	}
	p.Nodes = nodes
	p.Data.NodeTypes = nodeTypes
	p.Data.Waypoints = waypoints
	p.Data.WaypointTypes = waypointTypes
}

// InsertWaypoint adds a waypoint after a node.
//
// With afterNodeIndex set, the waypoint is appended to that node, or spliced
// at insertIndex when given. Without it, the waypoint goes to the last node
// when the path has no geography. Otherwise the waypoint is placed in the
// segment the point projects onto, after the waypoints that come before it
// along the segment.
func (p *Path) InsertWaypoint(coord orb.Point, waypointType routing.Engine, afterNodeIndex *int, insertIndex *int) *PendingChange {
	p.normalize()
	p.padWaypoints()
	if waypointType == "" {
		waypointType = routing.EngineNative
	}
	if len(p.Nodes) == 0 {
		return nil
	}

	var nodeIndex int
	switch {
	case afterNodeIndex != nil:
		nodeIndex = *afterNodeIndex
		if nodeIndex < 0 || nodeIndex >= len(p.Nodes) {
			return nil
		}
	case p.Geography == nil:
		nodeIndex = len(p.Nodes) - 1
		insertIndex = nil
	default:
		var index int
		nodeIndex, index = p.waypointPositionFromGeography(coord)
		insertIndex = &index
	}

	waypoints := p.Data.Waypoints[nodeIndex]
	types := p.Data.WaypointTypes[nodeIndex]
	if insertIndex == nil {
		waypoints = append(waypoints, coord)
		types = append(types, waypointType)
	} else {
		at := min(max(*insertIndex, 0), len(waypoints))
		waypoints = slices.Insert(waypoints, at, coord)
		types = slices.Insert(types, min(at, len(types)), waypointType)
	}
	p.Data.Waypoints[nodeIndex] = waypoints
	p.Data.WaypointTypes[nodeIndex] = types

	return &PendingChange{Kind: WaypointChanged, Index: nodeIndex}
}

// waypointPositionFromGeography finds the segment a new waypoint belongs to,
// and its position among the waypoints already in that segment
func (p *Path) waypointPositionFromGeography(coord orb.Point) (afterNodeIndex int, insertIndex int) {
	afterNodeIndex = len(p.Nodes) - 1

	position, err := geoUtils.ProjectOnLine(coord, p.Geography)
	if err != nil {
		return afterNodeIndex, len(p.Data.Waypoints[afterNodeIndex])
	}

	cumulative := 0.0
	for i := 0; i < len(p.Segments); i++ {
		segment, err := p.segmentLine(i, i+1)
		if err != nil {
			break
		}
		cumulative += geoUtils.LineLength(segment)
		if cumulative > position.DistanceAlong {
			afterNodeIndex = i
			break
		}
	}

	waypoints := p.Data.Waypoints[afterNodeIndex]
	if len(waypoints) == 0 {
		return afterNodeIndex, 0
	}
	segment, err := p.segmentLine(afterNodeIndex, afterNodeIndex+1)
	if err != nil {
		return afterNodeIndex, len(waypoints)
	}
	newPosition, err := geoUtils.ProjectOnLine(coord, segment)
	if err != nil {
		return afterNodeIndex, len(waypoints)
	}
	for i, waypoint := range waypoints {
		existing, err := geoUtils.ProjectOnLine(waypoint, segment)
		if err != nil || newPosition.DistanceAlong < existing.DistanceAlong {
			break
		}
		insertIndex = i + 1
	}
	return afterNodeIndex, insertIndex
}

// UpdateWaypoint moves an existing waypoint, keeping its type unless a new
// one is given
func (p *Path) UpdateWaypoint(coord orb.Point, waypointType *routing.Engine, afterNodeIndex, waypointIndex int) *PendingChange {
	if !p.hasWaypoint(afterNodeIndex, waypointIndex) {
		return nil
	}
	p.padWaypoints()

	newType := routing.EngineNative
	switch {
	case waypointType != nil && *waypointType != "":
		newType = *waypointType
	case waypointIndex < len(p.Data.WaypointTypes[afterNodeIndex]) && p.Data.WaypointTypes[afterNodeIndex][waypointIndex] != "":
		newType = p.Data.WaypointTypes[afterNodeIndex][waypointIndex]
	}
	p.Data.Waypoints[afterNodeIndex][waypointIndex] = coord
	types := p.Data.WaypointTypes[afterNodeIndex]
	for len(types) <= waypointIndex {
		types = append(types, newType)
	}
	types[waypointIndex] = newType
	p.Data.WaypointTypes[afterNodeIndex] = types

	return &PendingChange{Kind: WaypointChanged, Index: afterNodeIndex}
}

// ReplaceWaypointByNodeID turns a waypoint into a node. The waypoints before
// it stay on afterNodeIndex and the ones after it move to the new node.
func (p *Path) ReplaceWaypointByNodeID(nodeID string, afterNodeIndex, waypointIndex int, nodeType routing.Engine) *PendingChange {
	if !p.hasWaypoint(afterNodeIndex, waypointIndex) {
		return nil
	}
	p.padWaypoints()
	if nodeType == "" {
		nodeType = routing.EngineNative
	}

	waypoints := p.Data.Waypoints[afterNodeIndex]
	types := p.Data.WaypointTypes[afterNodeIndex]
	for len(types) < len(waypoints) {
		types = append(types, p.RoutingEngineOrDefault())
	}
	before := slices.Clone(waypoints[:waypointIndex])
	beforeTypes := slices.Clone(types[:waypointIndex])
	after := slices.Clone(waypoints[waypointIndex+1:])
	afterTypes := slices.Clone(types[waypointIndex+1 : len(waypoints)])

	index := afterNodeIndex + 1
	p.Nodes = slices.Insert(p.Nodes, index, nodeID)
	p.Data.NodeTypes = slices.Insert(p.Data.NodeTypes, index, nodeType)
	p.Data.Waypoints = slices.Insert(p.Data.Waypoints, index, after)
	p.Data.WaypointTypes = slices.Insert(p.Data.WaypointTypes, index, afterTypes)
	p.Data.Waypoints[afterNodeIndex] = before
	p.Data.WaypointTypes[afterNodeIndex] = beforeTypes

	p.RemoveConsecutiveDuplicateNodes()
	return &PendingChange{Kind: NodeInserted, Index: index}
}

// RemoveWaypoint deletes a waypoint and its type
func (p *Path) RemoveWaypoint(afterNodeIndex, waypointIndex int) *PendingChange {
	if !p.hasWaypoint(afterNodeIndex, waypointIndex) {
		return nil
	}
	p.padWaypoints()

	p.Data.Waypoints[afterNodeIndex] = slices.Delete(p.Data.Waypoints[afterNodeIndex], waypointIndex, waypointIndex+1)
	if types := p.Data.WaypointTypes[afterNodeIndex]; waypointIndex < len(types) {
		p.Data.WaypointTypes[afterNodeIndex] = slices.Delete(types, waypointIndex, waypointIndex+1)
	}
	return &PendingChange{Kind: WaypointChanged, Index: afterNodeIndex}
}

// ConvertAllCoordinatesToWaypoints replaces the waypoints with every
// coordinate of the current geography, so that manual edits keep the exact
// shape. It only applies to manually routed paths unless forced.
func (p *Path) ConvertAllCoordinatesToWaypoints(force bool) bool {
	if !force && p.Data.RoutingEngine != routing.EngineManual {
		return false
	}
	if p.Geography == nil || len(p.Segments) == 0 {
		return false
	}

	engine := p.RoutingEngineOrDefault()
	waypoints := make([][]orb.Point, 0, len(p.Nodes))
	waypointTypes := make([][]routing.Engine, 0, len(p.Nodes))
	addSlot := func(coords orb.LineString) {
		points := make([]orb.Point, len(coords))
		types := make([]routing.Engine, len(coords))
		for i, c := range coords {
			points[i] = c
			types[i] = engine
		}
		waypoints = append(waypoints, points)
		waypointTypes = append(waypointTypes, types)
	}

	coordinateIndex := 0
	for i := 0; i < len(p.Segments)-1; i++ {
		count := p.Segments[i+1] - p.Segments[i]
		end := min(coordinateIndex+count, len(p.Geography))
		addSlot(p.Geography[coordinateIndex:end])
		coordinateIndex = end
	}
	addSlot(p.Geography[coordinateIndex:])

	nodeTypes := make([]routing.Engine, len(p.Nodes))
	for i := range nodeTypes {
		nodeTypes[i] = engine
	}
	p.Data.NodeTypes = nodeTypes
	p.Data.Waypoints = waypoints
	p.Data.WaypointTypes = waypointTypes
	p.padWaypoints()
	return true
}

// ShouldUpdate pads the waypoint arrays to the node count and reports
// whether the path has enough points to be routed
func (p *Path) ShouldUpdate() bool {
	p.normalize()
	p.padWaypoints()
	if len(p.Nodes) < 2 && (len(p.Data.Waypoints) == 0 || len(p.Data.Waypoints[0]) == 0) {
		return false
	}
	return true
}

// EmptyGeography removes the geography and every statistic computed from it
func (p *Path) EmptyGeography() {
	p.Geography = nil
	p.Segments = []int{}

	p.Data.SegmentsData = []TimeAndDistance{}
	p.Data.DwellTimeSeconds = []float64{}
	p.Data.LayoverTimeSeconds = nil
	p.Data.TravelTimeWithoutDwellTimesSeconds = nil
	p.Data.TotalDistanceMeters = nil
	p.Data.TotalDwellTimeSeconds = nil
	p.Data.OperatingTimeWithoutLayoverTimeSeconds = nil
	p.Data.OperatingTimeWithLayoverTimeSeconds = nil
	p.Data.TotalTravelTimeWithReturnBackSeconds = nil
	p.Data.AverageSpeedWithoutDwellTimesMetersPerSecond = nil
	p.Data.OperatingSpeedMetersPerSecond = nil
	p.Data.OperatingSpeedWithLayoverMetersPerSecond = nil
	p.Data.Variables = Statistics{}
}

func (p *Path) hasWaypoint(afterNodeIndex, waypointIndex int) bool {
	if afterNodeIndex < 0 || afterNodeIndex >= len(p.Data.Waypoints) || afterNodeIndex >= len(p.Nodes) {
		return false
	}
	return waypointIndex >= 0 && waypointIndex < len(p.Data.Waypoints[afterNodeIndex])
}

// padWaypoints keeps the per-node arrays the same length as the node list
func (p *Path) padWaypoints() {
	for len(p.Data.NodeTypes) < len(p.Nodes) {
		p.Data.NodeTypes = append(p.Data.NodeTypes, p.RoutingEngineOrDefault())
	}
	for len(p.Data.Waypoints) < len(p.Nodes) {
		p.Data.Waypoints = append(p.Data.Waypoints, []orb.Point{})
	}
	for len(p.Data.WaypointTypes) < len(p.Nodes) {
		p.Data.WaypointTypes = append(p.Data.WaypointTypes, []routing.Engine{})
	}
	for i, waypoints := range p.Data.Waypoints {
		if waypoints == nil {
			p.Data.Waypoints[i] = []orb.Point{}
		}
	}
}
