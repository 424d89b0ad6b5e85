package geography

import (
	"context"
	"math"

	"github.com/dpup/prefab/logging"
	"github.com/pkg/errors"

	"github.com/dpup/transit.paths/server/internal/config"
	"github.com/dpup/transit.paths/server/internal/lib/path"
	"github.com/dpup/transit.paths/server/internal/lib/physics"
	"github.com/dpup/transit.paths/server/internal/lib/routing"
)

// generator implements the Generator interface
type generator struct {
	registry routing.Registry
	nodes    path.NodeRepository
	lines    path.LineRepository
	cfg      config.PathsConfig
}

// NewGenerator creates a new geography generator
func NewGenerator(registry routing.Registry, nodes path.NodeRepository, lines path.LineRepository, cfg config.PathsConfig) Generator {
	return &generator{
		registry: registry,
		nodes:    nodes,
		lines:    lines,
		cfg:      cfg,
	}
}

// UpdateGeography routes the path and stores the result in it. Fatal
// results leave the path without geography.
func (g *generator) UpdateGeography(ctx context.Context, p *path.Path, change *path.PendingChange) Result {
	ctx = logging.EnsureLogger(ctx)
	p.Data.GeographyErrors = nil
	p.Data.RoutingFailed = false

	if !p.ShouldUpdate() {
		g.clear(p)
		return OK()
	}
	line, err := g.lines.LineByID(ctx, p.LineID)
	if err != nil {
		if errors.Is(err, path.ErrLineNotFound) {
			g.clear(p)
			return OK()
		}
		return g.fatal(p, errors.Wrapf(err, "failed to get line %s", p.LineID))
	}
	if p.Mode == "" {
		p.Mode = line.Mode
	}

	points, err := PreparePoints(ctx, p, g.nodes, g.cfg)
	if err != nil {
		return g.fatal(p, err)
	}
	nodeDwellTimes, err := g.nodeDwellTimes(ctx, p)
	if err != nil {
		return g.fatal(p, err)
	}

	engine := p.RoutingEngineOrDefault()
	matcher, err := g.registry.MatcherForEngine(engine)
	if err != nil {
		return g.fatal(p, errors.Wrapf(err, "no matcher for path %s", p.ID))
	}
	runningSpeedKmH := g.cfg.DefaultRunningSpeedKmH
	if p.Data.DefaultRunningSpeedKmH != nil {
		runningSpeedKmH = *p.Data.DefaultRunningSpeedKmH
	}
	speedMps := physics.KphToMps(runningSpeedKmH)
	mode := p.Data.RoutingMode

	direct, err := RouteDirect(ctx, matcher, points, mode, speedMps)
	if err != nil {
		logging.Warnw(ctx, "Failed to route path terminals", "path_id", p.ID, "error", err)
		errs := pointErrors(points, []int{0, len(points) - 1})
		errs.Error = err.Error()
		return g.fail(p, errs, true)
	}
	if len(direct.Matchings) == 0 || len(direct.Matchings[0].Legs) == 0 {
		return g.fail(p, pointErrors(points, []int{0, len(points) - 1}), false)
	}
	directLeg := direct.Matchings[0].Legs[0]
	p.Data.DirectRouteBetweenTerminalsTravelTimeSeconds = path.Float64(math.Ceil(directLeg.Duration))
	p.Data.DirectRouteBetweenTerminalsDistanceMeters = path.Float64(math.Ceil(directLeg.Distance))

	segments := RoutingSegments(points, engine)
	results := RouteSegments(ctx, g.registry, segments, mode, speedMps)
	legs, errorIndices := ExtractLegs(results)
	if len(errorIndices) > 0 {
		logging.Warnw(ctx, "Some legs did not return any result",
			"path_id", p.ID, "error", ErrLegWithNoResult, "points", errorIndices)
		return g.fail(p, pointErrors(points, errorIndices), true)
	}

	err = Reduce(p, ReduceInput{
		Points:         points,
		Legs:           legs,
		NodeDwellTimes: nodeDwellTimes,
		Change:         change,
	}, g.cfg)
	if err != nil {
		logging.Errorw(ctx, "Failed to generate path geography", "path_id", p.ID, "error", err)
		return g.fatal(p, err)
	}

	p.Validate()
	p.RefreshStats()
	return OK()
}

// fail records a routing failure in the path
func (g *generator) fail(p *path.Path, errs *path.GeographyErrors, emptyGeography bool) Result {
	p.Data.RoutingFailed = true
	p.Data.GeographyErrors = errs
	if emptyGeography {
		p.EmptyGeography()
	}
	p.Validate()
	p.RefreshStats()
	return RoutingFailed(errs)
}

func (g *generator) fatal(p *path.Path, err error) Result {
	g.clear(p)
	return Fatal(err)
}

func (g *generator) clear(p *path.Path) {
	p.EmptyGeography()
	p.Validate()
	p.RefreshStats()
}

func (g *generator) nodeDwellTimes(ctx context.Context, p *path.Path) ([]*float64, error) {
	dwellTimes := make([]*float64, len(p.Nodes))
	for i, nodeID := range p.Nodes {
		node, err := g.nodes.NodeByID(ctx, nodeID)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to get node %s", nodeID)
		}
		dwellTimes[i] = node.DefaultDwellTimeSeconds
	}
	return dwellTimes, nil
}
