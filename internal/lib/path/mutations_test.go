package path

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dpup/transit.paths/server/internal/lib/routing"
)

func intPtr(v int) *int {
	return &v
}

func newTestPath(nodes ...string) *Path {
	p := NewPath("line-1")
	p.Data.RoutingEngine = routing.EngineNative
	for _, id := range nodes {
		p.InsertNodeID(id, nil, "")
	}
	return p
}

func assertAligned(t *testing.T, p *Path) {
	t.Helper()
	assert.Len(t, p.Data.NodeTypes, len(p.Nodes))
	assert.Len(t, p.Data.Waypoints, len(p.Nodes))
	assert.Len(t, p.Data.WaypointTypes, len(p.Nodes))
	for i := 1; i < len(p.Nodes); i++ {
		assert.NotEqual(t, p.Nodes[i-1], p.Nodes[i], "consecutive duplicate at %d", i)
	}
}

func TestInsertNodeID(t *testing.T) {
	p := newTestPath("a", "c")

	change := p.InsertNodeID("b", intPtr(1), routing.EngineManual)

	require.NotNil(t, change)
	assert.Equal(t, PendingChange{Kind: NodeInserted, Index: 1}, *change)
	assert.Equal(t, []string{"a", "b", "c"}, p.Nodes)
	assert.Equal(t, []routing.Engine{routing.EngineNative, routing.EngineManual, routing.EngineNative}, p.Data.NodeTypes)
	assertAligned(t, p)

	change = p.InsertNodeID("d", nil, "")
	require.NotNil(t, change)
	assert.Equal(t, 3, change.Index)
	assert.Equal(t, []string{"a", "b", "c", "d"}, p.Nodes)
	assertAligned(t, p)
}

func TestInsertNodeID_DefaultTypeIsEngineOnCustomPath(t *testing.T) {
	p := newTestPath("a", "b")
	p.Data.RoutingEngine = routing.EngineCustom

	p.InsertNodeID("c", nil, "")
	p.InsertWaypoint(orb.Point{1, 1}, "", intPtr(0), nil)

	assert.Equal(t, routing.EngineNative, p.Data.NodeTypes[2])
	assert.Equal(t, []routing.Engine{routing.EngineNative}, p.Data.WaypointTypes[0])
}

func TestInsertNodeID_CollapsesConsecutiveDuplicates(t *testing.T) {
	p := newTestPath("a", "b")

	change := p.InsertNodeID("b", nil, "")

	assert.NotNil(t, change)
	assert.Equal(t, []string{"a", "b"}, p.Nodes)
	assertAligned(t, p)
}

func TestInsertThenRemoveRestoresNodes(t *testing.T) {
	p := newTestPath("a", "b", "c")
	before := append([]string{}, p.Nodes...)

	change := p.InsertNodeID("x", intPtr(2), "")
	require.NotNil(t, change)
	p.RemoveNode(change.Index)

	assert.Equal(t, before, p.Nodes)
	assertAligned(t, p)
}

func TestRemoveNodeID(t *testing.T) {
	t.Run("removes a node appearing once", func(t *testing.T) {
		p := newTestPath("a", "b", "c")

		change := p.RemoveNodeID("b")

		require.NotNil(t, change)
		assert.Equal(t, PendingChange{Kind: NodeRemoved, Index: 1}, *change)
		assert.Equal(t, []string{"a", "c"}, p.Nodes)
		assertAligned(t, p)
	})

	t.Run("ignores a node appearing twice", func(t *testing.T) {
		p := newTestPath("a", "b", "a")

		change := p.RemoveNodeID("a")

		assert.Nil(t, change)
		assert.Equal(t, []string{"a", "b", "a"}, p.Nodes)
	})

	t.Run("ignores an unknown node", func(t *testing.T) {
		p := newTestPath("a", "b")
		assert.Nil(t, p.RemoveNodeID("z"))
		assert.Equal(t, []string{"a", "b"}, p.Nodes)
	})
}

func TestRemoveNode_ClearsPreviousNodeWaypoints(t *testing.T) {
	p := newTestPath("a", "b", "c")
	p.InsertWaypoint(orb.Point{1, 1}, "", intPtr(0), nil)
	p.InsertWaypoint(orb.Point{2, 2}, "", intPtr(1), nil)
	p.InsertWaypoint(orb.Point{3, 3}, "", intPtr(2), nil)

	change := p.RemoveNode(1)

	require.NotNil(t, change)
	assert.Equal(t, []string{"a", "c"}, p.Nodes)
	// the waypoints leading to the removed node are dropped
	assert.Empty(t, p.Data.Waypoints[0])
	assert.Empty(t, p.Data.WaypointTypes[0])
	assert.Equal(t, []orb.Point{{3, 3}}, p.Data.Waypoints[1])
	assertAligned(t, p)
}

func TestRemoveNode_CollapsesNeighbours(t *testing.T) {
	p := newTestPath("a", "b", "a", "c")

	change := p.RemoveNode(1)

	require.NotNil(t, change)
	assert.Equal(t, []string{"a", "c"}, p.Nodes)
	assertAligned(t, p)
}

func TestRemoveNode_LastNode(t *testing.T) {
	p := newTestPath("a")
	p.InsertWaypoint(orb.Point{1, 1}, "", intPtr(0), nil)

	change := p.RemoveNode(0)

	assert.Nil(t, change)
	assert.Empty(t, p.Nodes)
	assert.Empty(t, p.Data.NodeTypes)
	assert.Empty(t, p.Data.Waypoints)
	assert.Empty(t, p.Data.WaypointTypes)
}

func TestRemoveNode_OutOfRange(t *testing.T) {
	p := newTestPath("a", "b")
	assert.Nil(t, p.RemoveNode(2))
	assert.Nil(t, p.RemoveNode(-1))
	assert.Equal(t, []string{"a", "b"}, p.Nodes)
}

func TestRemoveConsecutiveDuplicateNodes_Idempotent(t *testing.T) {
	p := NewPath("line-1")
	p.Nodes = []string{"a", "a", "b", "b", "b", "c", "a"}
	p.Data.Waypoints = [][]orb.Point{{{1, 1}}, {{9, 9}}, {}, {}, {}, {{2, 2}}, {}}

	p.RemoveConsecutiveDuplicateNodes()
	once := *p
	onceNodes := append([]string{}, p.Nodes...)
	p.RemoveConsecutiveDuplicateNodes()

	assert.Equal(t, []string{"a", "b", "c", "a"}, p.Nodes)
	assert.Equal(t, onceNodes, p.Nodes)
	assert.Equal(t, once.Data.Waypoints, p.Data.Waypoints)
	assert.Equal(t, []orb.Point{{1, 1}}, p.Data.Waypoints[0])
	assertAligned(t, p)
}

func TestInsertWaypoint_WithAfterNodeIndex(t *testing.T) {
	p := newTestPath("a", "b")

	change := p.InsertWaypoint(orb.Point{1, 1}, routing.EngineManual, intPtr(0), nil)
	require.NotNil(t, change)
	assert.Equal(t, PendingChange{Kind: WaypointChanged, Index: 0}, *change)

	p.InsertWaypoint(orb.Point{3, 3}, "", intPtr(0), nil)
	p.InsertWaypoint(orb.Point{2, 2}, "", intPtr(0), intPtr(1))

	assert.Equal(t, []orb.Point{{1, 1}, {2, 2}, {3, 3}}, p.Data.Waypoints[0])
	assert.Equal(t, []routing.Engine{routing.EngineManual, routing.EngineNative, routing.EngineNative}, p.Data.WaypointTypes[0])
	assert.Empty(t, p.Data.Waypoints[1])
}

func TestInsertWaypoint_WithoutGeography(t *testing.T) {
	p := newTestPath("a", "b")

	change := p.InsertWaypoint(orb.Point{1, 1}, "", nil, nil)

	require.NotNil(t, change)
	assert.Equal(t, 1, change.Index)
	assert.Equal(t, []orb.Point{{1, 1}}, p.Data.Waypoints[1])
}

func TestInsertWaypoint_EmptyPath(t *testing.T) {
	p := NewPath("line-1")
	assert.Nil(t, p.InsertWaypoint(orb.Point{1, 1}, "", nil, nil))
	assert.Nil(t, newTestPath("a").InsertWaypoint(orb.Point{1, 1}, "", intPtr(3), nil))
}

func TestInsertWaypoint_FromGeography(t *testing.T) {
	p := newTestPath("a", "b", "c")
	p.Geography = orb.LineString{{0, 0}, {0.005, 0}, {0.01, 0}, {0.015, 0}, {0.02, 0}}
	p.Segments = []int{0, 2}
	p.Data.Waypoints[1] = []orb.Point{{0.012, 0}, {0.017, 0}}
	p.Data.WaypointTypes[1] = []routing.Engine{routing.EngineNative, routing.EngineNative}

	change := p.InsertWaypoint(orb.Point{0.013, 0.0001}, "", nil, nil)

	require.NotNil(t, change)
	assert.Equal(t, PendingChange{Kind: WaypointChanged, Index: 1}, *change)
	assert.Equal(t, []orb.Point{{0.012, 0}, {0.013, 0.0001}, {0.017, 0}}, p.Data.Waypoints[1])
	assert.Len(t, p.Data.WaypointTypes[1], 3)
	assert.Empty(t, p.Data.Waypoints[0])
}

func TestInsertWaypoint_FromGeographyFirstSegment(t *testing.T) {
	p := newTestPath("a", "b", "c")
	p.Geography = orb.LineString{{0, 0}, {0.005, 0}, {0.01, 0}, {0.015, 0}, {0.02, 0}}
	p.Segments = []int{0, 2}

	change := p.InsertWaypoint(orb.Point{0.004, -0.0001}, "", nil, nil)

	require.NotNil(t, change)
	assert.Equal(t, 0, change.Index)
	assert.Equal(t, []orb.Point{{0.004, -0.0001}}, p.Data.Waypoints[0])
}

func TestUpdateWaypoint(t *testing.T) {
	p := newTestPath("a", "b")
	p.InsertWaypoint(orb.Point{1, 1}, routing.EngineManual, intPtr(0), nil)

	change := p.UpdateWaypoint(orb.Point{5, 5}, nil, 0, 0)

	require.NotNil(t, change)
	assert.Equal(t, []orb.Point{{5, 5}}, p.Data.Waypoints[0])
	assert.Equal(t, routing.EngineManual, p.Data.WaypointTypes[0][0])

	custom := routing.EngineCustom
	p.UpdateWaypoint(orb.Point{6, 6}, &custom, 0, 0)
	assert.Equal(t, routing.EngineCustom, p.Data.WaypointTypes[0][0])

	assert.Nil(t, p.UpdateWaypoint(orb.Point{6, 6}, nil, 0, 1))
	assert.Nil(t, p.UpdateWaypoint(orb.Point{6, 6}, nil, 1, 0))
}

func TestUpdateWaypoint_MissingTypeDefaultsToEngine(t *testing.T) {
	p := newTestPath("a", "b")
	p.Data.Waypoints[0] = []orb.Point{{1, 1}}
	p.Data.WaypointTypes[0] = []routing.Engine{}

	change := p.UpdateWaypoint(orb.Point{2, 2}, nil, 0, 0)

	require.NotNil(t, change)
	assert.Equal(t, []routing.Engine{routing.EngineNative}, p.Data.WaypointTypes[0])
}

func TestReplaceWaypointByNodeID_DefaultTypeIsEngine(t *testing.T) {
	p := newTestPath("a", "c")
	p.Data.RoutingEngine = routing.EngineManual
	p.InsertWaypoint(orb.Point{1, 1}, routing.EngineNative, intPtr(0), nil)

	change := p.ReplaceWaypointByNodeID("b", 0, 0, "")

	require.NotNil(t, change)
	assert.Equal(t, []string{"a", "b", "c"}, p.Nodes)
	assert.Equal(t, routing.EngineNative, p.Data.NodeTypes[1])
}

func TestReplaceWaypointByNodeID(t *testing.T) {
	p := newTestPath("a", "c")
	for i, pt := range []orb.Point{{1, 1}, {2, 2}, {3, 3}, {4, 4}} {
		p.InsertWaypoint(pt, "", intPtr(0), intPtr(i))
	}

	change := p.ReplaceWaypointByNodeID("b", 0, 1, "")

	require.NotNil(t, change)
	assert.Equal(t, PendingChange{Kind: NodeInserted, Index: 1}, *change)
	assert.Equal(t, []string{"a", "b", "c"}, p.Nodes)
	assert.Equal(t, []orb.Point{{1, 1}}, p.Data.Waypoints[0])
	assert.Equal(t, []orb.Point{{3, 3}, {4, 4}}, p.Data.Waypoints[1])
	assert.Empty(t, p.Data.Waypoints[2])
	assertAligned(t, p)

	assert.Nil(t, p.ReplaceWaypointByNodeID("d", 2, 0, ""))
}

func TestRemoveWaypoint(t *testing.T) {
	p := newTestPath("a", "b")
	p.InsertWaypoint(orb.Point{1, 1}, "", intPtr(0), nil)
	p.InsertWaypoint(orb.Point{2, 2}, routing.EngineManual, intPtr(0), nil)

	change := p.RemoveWaypoint(0, 0)

	require.NotNil(t, change)
	assert.Equal(t, PendingChange{Kind: WaypointChanged, Index: 0}, *change)
	assert.Equal(t, []orb.Point{{2, 2}}, p.Data.Waypoints[0])
	assert.Equal(t, []routing.Engine{routing.EngineManual}, p.Data.WaypointTypes[0])

	assert.Nil(t, p.RemoveWaypoint(0, 4))
	assert.Nil(t, p.RemoveWaypoint(-1, 0))
}

func TestShouldUpdate(t *testing.T) {
	assert.False(t, NewPath("line-1").ShouldUpdate())
	assert.False(t, newTestPath("a").ShouldUpdate())
	assert.True(t, newTestPath("a", "b").ShouldUpdate())

	p := newTestPath("a")
	p.InsertWaypoint(orb.Point{1, 1}, "", intPtr(0), nil)
	assert.True(t, p.ShouldUpdate())
}

func TestShouldUpdate_PadsWaypoints(t *testing.T) {
	p := NewPath("line-1")
	p.Nodes = []string{"a", "b", "c"}

	assert.True(t, p.ShouldUpdate())
	assertAligned(t, p)
}

func TestEmptyGeography(t *testing.T) {
	p := newTestPath("a", "b")
	p.Geography = orb.LineString{{0, 0}, {1, 1}}
	p.Segments = []int{0}
	p.Data.SegmentsData = []TimeAndDistance{{TravelTimeSeconds: 10, DistanceMeters: 100}}
	p.Data.DwellTimeSeconds = []float64{0, 20}
	p.Data.TotalDistanceMeters = Float64(100)
	p.RefreshStats()

	p.EmptyGeography()

	assert.Nil(t, p.Geography)
	assert.Empty(t, p.Segments)
	assert.Empty(t, p.Data.SegmentsData)
	assert.Empty(t, p.Data.DwellTimeSeconds)
	assert.Nil(t, p.Data.TotalDistanceMeters)
	assert.Equal(t, Statistics{}, p.Data.Variables)
	assert.Equal(t, []string{"a", "b"}, p.Nodes)
}

func TestConvertAllCoordinatesToWaypoints(t *testing.T) {
	p := newTestPath("a", "b", "c")
	p.Geography = orb.LineString{{0, 0}, {1, 0}, {2, 0}, {3, 0}, {4, 0}}
	p.Segments = []int{0, 2}

	assert.False(t, p.ConvertAllCoordinatesToWaypoints(false))

	assert.True(t, p.ConvertAllCoordinatesToWaypoints(true))
	assert.Equal(t, []orb.Point{{0, 0}, {1, 0}}, p.Data.Waypoints[0])
	assert.Equal(t, []orb.Point{{2, 0}, {3, 0}, {4, 0}}, p.Data.Waypoints[1])
	assert.Empty(t, p.Data.Waypoints[2])
	assertAligned(t, p)
}

func TestPreviousSegmentIndex(t *testing.T) {
	tests := []struct {
		name    string
		change  *PendingChange
		segment int
		prev    int
		ok      bool
	}{
		{"no change", nil, 1, 0, false},
		{"insert before", &PendingChange{NodeInserted, 2}, 0, 0, true},
		{"insert previous", &PendingChange{NodeInserted, 2}, 1, 0, false},
		{"insert next", &PendingChange{NodeInserted, 2}, 2, 0, false},
		{"insert after", &PendingChange{NodeInserted, 2}, 3, 2, true},
		{"remove first", &PendingChange{NodeRemoved, 0}, 0, 1, true},
		{"remove before", &PendingChange{NodeRemoved, 2}, 0, 0, true},
		{"remove merged", &PendingChange{NodeRemoved, 2}, 1, 0, false},
		{"remove after", &PendingChange{NodeRemoved, 2}, 2, 3, true},
		{"waypoint same", &PendingChange{WaypointChanged, 1}, 1, 0, false},
		{"waypoint other", &PendingChange{WaypointChanged, 1}, 2, 2, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prev, ok := tt.change.PreviousSegmentIndex(tt.segment)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.prev, prev)
			}
		})
	}
}
