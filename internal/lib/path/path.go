package path

import (
	"encoding/json"
	"fmt"
	"slices"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/dpup/transit.paths/server/internal/lib/routing"
)

// NewPath creates an empty, enabled path for a line
func NewPath(lineID string) *Path {
	p := &Path{
		ID:        uuid.NewString(),
		LineID:    lineID,
		IsEnabled: true,
	}
	p.normalize()
	return p
}

// normalize replaces nil slices so that the per-node arrays always exist
func (p *Path) normalize() {
	if p.Nodes == nil {
		p.Nodes = []string{}
	}
	if p.Segments == nil {
		p.Segments = []int{}
	}
	if p.Data.NodeTypes == nil {
		p.Data.NodeTypes = []routing.Engine{}
	}
	if p.Data.Waypoints == nil {
		p.Data.Waypoints = [][]orb.Point{}
	}
	if p.Data.WaypointTypes == nil {
		p.Data.WaypointTypes = [][]routing.Engine{}
	}
	if p.Data.SegmentsData == nil {
		p.Data.SegmentsData = []TimeAndDistance{}
	}
	if p.Data.DwellTimeSeconds == nil {
		p.Data.DwellTimeSeconds = []float64{}
	}
}

// CountNodes returns the number of nodes in the path
func (p *Path) CountNodes() int {
	return len(p.Nodes)
}

// HasNodeID reports whether the node is served by the path
func (p *Path) HasNodeID(nodeID string) bool {
	for _, id := range p.Nodes {
		if id == nodeID {
			return true
		}
	}
	return false
}

// IsLoop reports whether the path starts and ends at the same node
func (p *Path) IsLoop() bool {
	return len(p.Nodes) > 1 && p.Nodes[0] == p.Nodes[len(p.Nodes)-1]
}

// RoutingEngineOrDefault returns the path routing engine, defaulting to the native engine
func (p *Path) RoutingEngineOrDefault() routing.Engine {
	if p.Data.RoutingEngine == "" {
		return routing.EngineNative
	}
	return p.Data.RoutingEngine
}

// AtLeastOneSegmentIsManual reports whether any node is routed manually
func (p *Path) AtLeastOneSegmentIsManual() bool {
	return slices.Contains(p.Data.NodeTypes, routing.EngineManual)
}

// IsValid returns the result of the last Validate call
func (p *Path) IsValid() bool {
	return p.isValid
}

// Errors returns the validation error keys of the last Validate call
func (p *Path) Errors() []string {
	return p.errors
}

// ToFeature converts the path to a GeoJSON feature, with the geography as
// geometry and every other attribute under properties
func (p *Path) ToFeature() (*geojson.Feature, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal path %s: %w", p.ID, err)
	}
	props := map[string]interface{}{}
	if err := json.Unmarshal(raw, &props); err != nil {
		return nil, fmt.Errorf("failed to build properties for path %s: %w", p.ID, err)
	}

	var f *geojson.Feature
	if p.Geography != nil {
		f = geojson.NewFeature(p.Geography)
	} else {
		f = geojson.NewFeature(nil)
	}
	if p.IntegerID != 0 {
		f.ID = p.IntegerID
	}
	f.Properties = props
	return f, nil
}

// FromFeature reads a path back from its GeoJSON feature
func FromFeature(f *geojson.Feature) (*Path, error) {
	raw, err := json.Marshal(f.Properties)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal feature properties: %w", err)
	}
	p := &Path{}
	if err := json.Unmarshal(raw, p); err != nil {
		return nil, fmt.Errorf("failed to decode path properties: %w", err)
	}
	if ls, ok := f.Geometry.(orb.LineString); ok && len(ls) > 0 {
		p.Geography = ls
	}
	p.normalize()
	return p, nil
}

// PreviousSegmentIndex maps a segment index of the updated path to the index
// the same stretch of road had before the change. ok is false for segments
// the change created or modified.
func (c *PendingChange) PreviousSegmentIndex(s int) (prev int, ok bool) {
	if c == nil {
		return 0, false
	}
	k := c.Index
	switch c.Kind {
	case NodeInserted:
		switch {
		case s < k-1:
			return s, true
		case s == k-1 || s == k:
			return 0, false
		default:
			return s - 1, true
		}
	case NodeRemoved:
		if k == 0 {
			return s + 1, true
		}
		switch {
		case s < k-1:
			return s, true
		case s == k-1:
			return 0, false
		default:
			return s + 1, true
		}
	case WaypointChanged:
		if s == k {
			return 0, false
		}
		return s, true
	}
	return 0, false
}
