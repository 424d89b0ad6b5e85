package geography

import (
	"context"
	"math"

	"github.com/paulmach/orb/geojson"
	"github.com/pkg/errors"

	"github.com/dpup/transit.paths/server/internal/config"
	"github.com/dpup/transit.paths/server/internal/lib/geo"
	"github.com/dpup/transit.paths/server/internal/lib/path"
	"github.com/dpup/transit.paths/server/internal/lib/physics"
	"github.com/dpup/transit.paths/server/internal/lib/routing"
)

// Faster matching speeds make the map matcher miss some routes
const minMatchingSpeedKmH = 15

var geoUtils = geo.NewGeoUtils()

// PreparePoints builds the ordered points to match for a path: every node,
// each followed by its waypoints, with search radii and synthetic timestamps
func PreparePoints(ctx context.Context, p *path.Path, nodes path.NodeRepository, cfg config.PathsConfig) ([]routing.MatchPoint, error) {
	engine := p.RoutingEngineOrDefault()

	tooSmall := map[string]float64{}
	if engine == routing.EngineNative && (p.Data.FromGTFS || p.Data.IncreaseRoutingRadiiToIncludeExistingPathShape) {
		var err error
		tooSmall, err = p.NodeIDsWithRoutingRadiusTooSmallForPathShape(ctx, nodes, cfg.NodeDefaultRoutingRadiusMeters, cfg.RoutingRadiusBufferMeters)
		if err != nil {
			return nil, errors.Wrap(err, "failed to measure node distances to path shape")
		}
	}

	minTimestamp := cfg.MinMatchingTimestampSeconds
	if p.Data.MinMatchingTimestamp != nil {
		minTimestamp = *p.Data.MinMatchingTimestamp
	}
	matchingSpeed := math.Max(cfg.MatchingSpeedMps, physics.KphToMps(minMatchingSpeedKmH))

	points := make([]routing.MatchPoint, 0, len(p.Nodes))
	var currentTime int64
	addPoint := func(point routing.MatchPoint) error {
		if len(points) > 0 {
			distance, err := geoUtils.PointToPoint(points[len(points)-1].Coordinates, point.Coordinates)
			if err != nil {
				return err
			}
			currentTime += max(minTimestamp, int64(math.Ceil(distance/matchingSpeed)))
		}
		point.Timestamp = currentTime
		points = append(points, point)
		return nil
	}

	for i, nodeID := range p.Nodes {
		node, err := nodes.NodeByID(ctx, nodeID)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to get node %s", nodeID)
		}

		nodeType := engine
		if i < len(p.Data.NodeTypes) && p.Data.NodeTypes[i] != "" {
			nodeType = p.Data.NodeTypes[i]
		}
		radius := cfg.NodeDefaultRoutingRadiusMeters
		if node.RoutingRadiusMeters != nil {
			radius = *node.RoutingRadiusMeters
		}
		if distance, ok := tooSmall[nodeID]; ok {
			radius = distance + cfg.RoutingRadiusBufferMeters
		}

		err = addPoint(routing.MatchPoint{
			Coordinates:    node.Point,
			IsNode:         true,
			NodeID:         nodeID,
			Type:           nodeType,
			Radius:         math.Min(cfg.MaxNodeRoutingRadiusMeters, radius),
			AfterNodeIndex: i,
			WaypointIndex:  -1,
		})
		if err != nil {
			return nil, errors.Wrapf(err, "invalid coordinates for node %s", nodeID)
		}

		if i >= len(p.Data.Waypoints) {
			continue
		}
		for j, waypoint := range p.Data.Waypoints[i] {
			var waypointType routing.Engine
			if i < len(p.Data.WaypointTypes) && j < len(p.Data.WaypointTypes[i]) {
				waypointType = p.Data.WaypointTypes[i][j]
			}
			err := addPoint(routing.MatchPoint{
				Coordinates:    waypoint,
				Type:           waypointType,
				Radius:         cfg.WaypointRadiusMeters,
				AfterNodeIndex: i,
				WaypointIndex:  j,
			})
			if err != nil {
				return nil, errors.Wrapf(err, "invalid coordinates for waypoint %d after node %d", j, i)
			}
		}
	}
	return points, nil
}

// pointFeature returns a match point as a GeoJSON point, for error reporting
func pointFeature(point routing.MatchPoint) *geojson.Feature {
	f := geojson.NewFeature(point.Coordinates)
	f.Properties["isNode"] = point.IsNode
	f.Properties["type"] = point.Type
	f.Properties["radius"] = point.Radius
	f.Properties["timestamp"] = point.Timestamp
	if point.IsNode {
		f.Properties["id"] = point.NodeID
	} else {
		f.Properties["afterNodeIndex"] = point.AfterNodeIndex
		f.Properties["waypointIndex"] = point.WaypointIndex
	}
	return f
}

// pointErrors buckets the points at the given indices into nodes and waypoints
func pointErrors(points []routing.MatchPoint, indices []int) *path.GeographyErrors {
	errs := &path.GeographyErrors{
		Nodes:     []*geojson.Feature{},
		Waypoints: []*geojson.Feature{},
	}
	for _, i := range indices {
		if i < 0 || i >= len(points) {
			continue
		}
		if points[i].IsNode {
			errs.Nodes = append(errs.Nodes, pointFeature(points[i]))
		} else {
			errs.Waypoints = append(errs.Waypoints, pointFeature(points[i]))
		}
	}
	return errs
}
