package path

import (
	"context"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/pkg/errors"
)

// NodeDistance is the distance between a node and the coordinate of the
// geography where its segment starts
type NodeDistance struct {
	NodeID              string  `json:"node_id"`
	DistanceMeters      float64 `json:"distance_meters"`
	RoutingRadiusMeters float64 `json:"routing_radius_meters"`
}

// NodesDistancesFromPathWithRoutingRadii measures how far each node is from
// the current geography. It returns an empty slice when the geography and
// segments do not describe the current nodes.
func (p *Path) NodesDistancesFromPathWithRoutingRadii(ctx context.Context, nodes NodeRepository, defaultRadiusMeters float64) ([]NodeDistance, error) {
	distances := []NodeDistance{}
	if p.Geography == nil || len(p.Nodes) == 0 || len(p.Segments) < len(p.Nodes)-1 {
		return distances, nil
	}
	last := len(p.Geography) - 1
	if len(p.Segments) > 0 && p.Segments[len(p.Segments)-1] > last {
		return distances, nil
	}

	for i, nodeID := range p.Nodes {
		node, err := nodes.NodeByID(ctx, nodeID)
		if err != nil {
			return nil, errors.Wrapf(err, "node %s", nodeID)
		}
		coordinate := p.Geography[last]
		if i < len(p.Segments) && i < len(p.Nodes)-1 {
			coordinate = p.Geography[p.Segments[i]]
		}
		distance, err := geoUtils.PointToPoint(node.Point, coordinate)
		if err != nil {
			return nil, errors.Wrapf(err, "distance from node %s", nodeID)
		}
		radius := defaultRadiusMeters
		if node.RoutingRadiusMeters != nil {
			radius = *node.RoutingRadiusMeters
		}
		distances = append(distances, NodeDistance{NodeID: nodeID, DistanceMeters: distance, RoutingRadiusMeters: radius})
	}
	return distances, nil
}

// NodeIDsWithRoutingRadiusTooSmallForPathShape returns the distance to the
// geography of every node whose routing radius does not cover it with at
// least bufferMeters to spare
func (p *Path) NodeIDsWithRoutingRadiusTooSmallForPathShape(ctx context.Context, nodes NodeRepository, defaultRadiusMeters, bufferMeters float64) (map[string]float64, error) {
	distances, err := p.NodesDistancesFromPathWithRoutingRadii(ctx, nodes, defaultRadiusMeters)
	if err != nil {
		return nil, err
	}
	tooSmall := map[string]float64{}
	for _, d := range distances {
		if d.RoutingRadiusMeters-d.DistanceMeters < bufferMeters {
			tooSmall[d.NodeID] = d.DistanceMeters
		}
	}
	return tooSmall, nil
}

// ToFeature returns the node as a GeoJSON point
func (n *Node) ToFeature() *geojson.Feature {
	f := geojson.NewFeature(n.Point)
	for k, v := range n.Properties {
		f.Properties[k] = v
	}
	f.Properties["id"] = n.ID
	if n.Code != "" {
		f.Properties["code"] = n.Code
	}
	if n.Name != "" {
		f.Properties["name"] = n.Name
	}
	if n.RoutingRadiusMeters != nil {
		f.Properties["routing_radius_meters"] = *n.RoutingRadiusMeters
	}
	if n.DefaultDwellTimeSeconds != nil {
		f.Properties["default_dwell_time_seconds"] = *n.DefaultDwellTimeSeconds
	}
	return f
}

// NodesGeojsons returns the path nodes as points, flagged when routing
// failed at the node
func (p *Path) NodesGeojsons(ctx context.Context, nodes NodeRepository) ([]*geojson.Feature, error) {
	features := make([]*geojson.Feature, 0, len(p.Nodes))
	var nodeErrors []*geojson.Feature
	if p.Data.GeographyErrors != nil {
		nodeErrors = p.Data.GeographyErrors.Nodes
	}
	for i, nodeID := range p.Nodes {
		node, err := nodes.NodeByID(ctx, nodeID)
		if err != nil {
			return nil, errors.Wrapf(err, "node %s", nodeID)
		}
		f := node.ToFeature()
		nodeType := p.RoutingEngineOrDefault()
		if i < len(p.Data.NodeTypes) && p.Data.NodeTypes[i] != "" {
			nodeType = p.Data.NodeTypes[i]
		}
		f.Properties["type"] = nodeType
		f.Properties["isNodeInError"] = containsPoint(nodeErrors, node.Point)
		features = append(features, f)
	}
	return features, nil
}

// WaypointsGeojsons returns every waypoint as a point with its position in
// the path
func (p *Path) WaypointsGeojsons() []*geojson.Feature {
	features := []*geojson.Feature{}
	var waypointErrors []*geojson.Feature
	if p.Data.GeographyErrors != nil {
		waypointErrors = p.Data.GeographyErrors.Waypoints
	}
	id := 1
	for i, waypoints := range p.Data.Waypoints {
		for j, waypoint := range waypoints {
			waypointType := p.RoutingEngineOrDefault()
			if i < len(p.Data.WaypointTypes) && j < len(p.Data.WaypointTypes[i]) && p.Data.WaypointTypes[i][j] != "" {
				waypointType = p.Data.WaypointTypes[i][j]
			}
			f := geojson.NewFeature(waypoint)
			f.ID = id
			f.Properties["afterNodeIndex"] = i
			f.Properties["waypointIndex"] = j
			f.Properties["type"] = waypointType
			f.Properties["isWaypointInError"] = containsPoint(waypointErrors, waypoint)
			features = append(features, f)
			id++
		}
	}
	return features
}

func containsPoint(features []*geojson.Feature, point orb.Point) bool {
	for _, f := range features {
		if pt, ok := f.Geometry.(orb.Point); ok && pt.Equal(point) {
			return true
		}
	}
	return false
}
