package services

import (
	"context"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/mock"

	"github.com/dpup/transit.paths/server/internal/config"
	"github.com/dpup/transit.paths/server/internal/lib/geography"
	"github.com/dpup/transit.paths/server/internal/lib/path"
	"github.com/dpup/transit.paths/server/internal/store"
)

// MockGenerator is a mock implementation of geography.Generator
type MockGenerator struct {
	mock.Mock
}

func (m *MockGenerator) UpdateGeography(ctx context.Context, p *path.Path, change *path.PendingChange) geography.Result {
	args := m.Called(ctx, p, change)
	return args.Get(0).(geography.Result)
}

type testEnv struct {
	paths     *store.PathStore
	lines     *store.LineStore
	nodes     *store.NodeStore
	generator *MockGenerator
	service   *PathService
}

func newTestEnv(paths ...*path.Path) *testEnv {
	env := &testEnv{
		paths: store.NewPathStore(paths...),
		lines: store.NewLineStore(
			&path.Line{ID: "line1", Color: "#00ff00", Mode: "bus"},
			&path.Line{ID: "frozen", Mode: "bus", IsFrozen: true},
		),
		nodes: store.NewNodeStore(
			&path.Node{ID: "node1", Name: "Main St", Point: orb.Point{-73.745618, 45.368994}},
			&path.Node{ID: "node2", Point: orb.Point{-73.742861, 45.361682}},
			&path.Node{ID: "node4", Point: orb.Point{-73.731251, 45.368103}},
		),
		generator: new(MockGenerator),
	}
	cfg := config.DefaultConfig().Routing
	cfg.LineWorkers = 2
	env.service = NewPathService(env.paths, env.nodes, env.lines, env.generator, cfg)
	return env
}

func testPath(id, lineID string, nodes ...string) *path.Path {
	p := path.NewPath(lineID)
	p.ID = id
	for _, n := range nodes {
		p.InsertNodeID(n, nil, "")
	}
	return p
}

// routedPath has a geography through node1, node2 and node4
func routedPath(id, lineID string) *path.Path {
	p := testPath(id, lineID, "node1", "node2", "node4")
	p.Geography = orb.LineString{
		{-73.745618, 45.368994},
		{-73.744, 45.365},
		{-73.742861, 45.361682},
		{-73.737, 45.365},
		{-73.731251, 45.368103},
	}
	p.Segments = []int{0, 2}
	p.Data.TotalDistanceMeters = path.Float64(2100)
	return p
}
