package services

import (
	"context"
	"fmt"
	"io"
	"log"
	"runtime/debug"
	"sync"

	prefaberrors "github.com/dpup/prefab/errors"
	"github.com/dpup/prefab/logging"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/pkg/errors"

	"github.com/dpup/transit.paths/server/internal/config"
	"github.com/dpup/transit.paths/server/internal/lib/export"
	"github.com/dpup/transit.paths/server/internal/lib/geography"
	"github.com/dpup/transit.paths/server/internal/lib/path"
	"github.com/dpup/transit.paths/server/internal/lib/routing"
)

var ErrLineFrozen = &path.Error{Code: "PathLineIsFrozen", Message: "line is frozen, its paths cannot be edited"}

// PathRepository loads and saves paths
type PathRepository interface {
	Get(ctx context.Context, id string) (*path.Path, error)
	Save(ctx context.Context, p *path.Path) error
	ByLine(ctx context.Context, lineID string) []*path.Path
	RoutingFailed(ctx context.Context) []*path.Path
}

// LineRepository looks up lines and keeps their path lists current
type LineRepository interface {
	path.LineRepository
	SetPathIDs(ctx context.Context, lineID string, pathIDs []string) error
}

// PathService edits paths and keeps their geography up to date
type PathService struct {
	paths     PathRepository
	nodes     path.NodeRepository
	lines     LineRepository
	generator geography.Generator
	config    config.RoutingConfig

	// one lock per path id, held for a whole load, edit and save cycle
	locks map[string]*sync.Mutex
	mutex sync.Mutex
}

// PathRecomputation is the outcome of recomputing one path of a line
type PathRecomputation struct {
	PathID string           `json:"path_id"`
	Result geography.Result `json:"result"`
	Error  string           `json:"error,omitempty"`
}

// NewPathService creates a new path service
func NewPathService(paths PathRepository, nodes path.NodeRepository, lines LineRepository, generator geography.Generator, config config.RoutingConfig) *PathService {
	return &PathService{
		paths:     paths,
		nodes:     nodes,
		lines:     lines,
		generator: generator,
		config:    config,
		locks:     make(map[string]*sync.Mutex),
	}
}

// InsertNodeID inserts a node at insertIndex, or appends it when insertIndex is nil
func (s *PathService) InsertNodeID(ctx context.Context, id, nodeID string, insertIndex *int, nodeType routing.Engine) (*path.Path, geography.Result, error) {
	return s.edit(ctx, id, func(p *path.Path) *path.PendingChange {
		return p.InsertNodeID(nodeID, insertIndex, nodeType)
	})
}

// RemoveNodeID removes a node that occurs exactly once in the path
func (s *PathService) RemoveNodeID(ctx context.Context, id, nodeID string) (*path.Path, geography.Result, error) {
	return s.edit(ctx, id, func(p *path.Path) *path.PendingChange {
		return p.RemoveNodeID(nodeID)
	})
}

// RemoveNode removes the node at index
func (s *PathService) RemoveNode(ctx context.Context, id string, index int) (*path.Path, geography.Result, error) {
	return s.edit(ctx, id, func(p *path.Path) *path.PendingChange {
		return p.RemoveNode(index)
	})
}

// InsertWaypoint adds a waypoint. Without afterNodeIndex the position is
// found from the current geography.
func (s *PathService) InsertWaypoint(ctx context.Context, id string, coord orb.Point, waypointType routing.Engine, afterNodeIndex, insertIndex *int) (*path.Path, geography.Result, error) {
	return s.edit(ctx, id, func(p *path.Path) *path.PendingChange {
		return p.InsertWaypoint(coord, waypointType, afterNodeIndex, insertIndex)
	})
}

// UpdateWaypoint moves an existing waypoint
func (s *PathService) UpdateWaypoint(ctx context.Context, id string, coord orb.Point, waypointType *routing.Engine, afterNodeIndex, waypointIndex int) (*path.Path, geography.Result, error) {
	return s.edit(ctx, id, func(p *path.Path) *path.PendingChange {
		return p.UpdateWaypoint(coord, waypointType, afterNodeIndex, waypointIndex)
	})
}

// ReplaceWaypointByNodeID turns a waypoint into a node
func (s *PathService) ReplaceWaypointByNodeID(ctx context.Context, id, nodeID string, afterNodeIndex, waypointIndex int, nodeType routing.Engine) (*path.Path, geography.Result, error) {
	return s.edit(ctx, id, func(p *path.Path) *path.PendingChange {
		return p.ReplaceWaypointByNodeID(nodeID, afterNodeIndex, waypointIndex, nodeType)
	})
}

// RemoveWaypoint removes a waypoint
func (s *PathService) RemoveWaypoint(ctx context.Context, id string, afterNodeIndex, waypointIndex int) (*path.Path, geography.Result, error) {
	return s.edit(ctx, id, func(p *path.Path) *path.PendingChange {
		return p.RemoveWaypoint(afterNodeIndex, waypointIndex)
	})
}

// Recompute routes the whole path again. Frozen lines are recomputed too,
// their nodes and waypoints are left untouched.
func (s *PathService) Recompute(ctx context.Context, id string) (*path.Path, geography.Result, error) {
	ctx = logging.EnsureLogger(ctx)
	unlock := s.lock(id)
	defer unlock()

	p, err := s.paths.Get(ctx, id)
	if err != nil {
		return nil, geography.Result{}, err
	}
	result := s.generator.UpdateGeography(ctx, p, nil)
	if err := s.paths.Save(ctx, p); err != nil {
		return nil, result, fmt.Errorf("failed to save path %s: %w", id, err)
	}
	logResult(ctx, p, result)
	return p, result, nil
}

// RecomputeLine recomputes every path of a line with at most
// config.LineWorkers paths routed at once, then refreshes the line path list
func (s *PathService) RecomputeLine(ctx context.Context, lineID string) ([]PathRecomputation, error) {
	if _, err := s.lines.LineByID(ctx, lineID); err != nil {
		return nil, err
	}
	paths := s.paths.ByLine(ctx, lineID)
	ids := make([]string, len(paths))
	for i, p := range paths {
		ids[i] = p.ID
	}

	log.Printf("Recomputing %d paths of line %s", len(ids), lineID)
	results := s.recomputeAll(ctx, ids)

	if err := s.lines.SetPathIDs(ctx, lineID, ids); err != nil {
		return results, fmt.Errorf("failed to update paths of line %s: %w", lineID, err)
	}
	return results, nil
}

// RecomputeFailed retries every path whose last routing failed
func (s *PathService) RecomputeFailed(ctx context.Context) []PathRecomputation {
	paths := s.paths.RoutingFailed(ctx)
	ids := make([]string, len(paths))
	for i, p := range paths {
		ids[i] = p.ID
	}
	return s.recomputeAll(ctx, ids)
}

// recomputeAll recomputes paths concurrently. Results keep the order of ids.
func (s *PathService) recomputeAll(ctx context.Context, ids []string) []PathRecomputation {
	ctx = logging.EnsureLogger(ctx)
	workers := s.config.LineWorkers
	if workers < 1 {
		workers = 1
	}

	results := make([]PathRecomputation, len(ids))
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup
	for i, id := range ids {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, id string) {
			defer wg.Done()
			defer func() { <-sem }()
			defer func() {
				if r := recover(); r != nil {
					err, _ := prefaberrors.ParseStack(debug.Stack())
					logging.Errorw(ctx, "panic recomputing path", "path", id, "panic", r, "stack", err.MinimalStack(3, 5))
					results[i] = PathRecomputation{PathID: id, Error: fmt.Sprintf("panic: %v", r)}
				}
			}()

			results[i] = PathRecomputation{PathID: id}
			if ctx.Err() != nil {
				results[i].Error = ctx.Err().Error()
				return
			}
			_, result, err := s.Recompute(ctx, id)
			results[i].Result = result
			if err != nil {
				results[i].Error = err.Error()
			}
		}(i, id)
	}
	wg.Wait()
	return results
}

// PathFeature returns the path as a GeoJSON feature
func (s *PathService) PathFeature(ctx context.Context, id string) (*geojson.Feature, error) {
	unlock := s.lock(id)
	defer unlock()

	p, err := s.paths.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return p.ToFeature()
}

// NodesAndWaypoints returns the nodes and waypoints of a path as points
func (s *PathService) NodesAndWaypoints(ctx context.Context, id string) (*geojson.FeatureCollection, error) {
	unlock := s.lock(id)
	defer unlock()

	p, err := s.paths.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	nodes, err := p.NodesGeojsons(ctx, s.nodes)
	if err != nil {
		return nil, err
	}
	fc := geojson.NewFeatureCollection()
	fc.Features = append(fc.Features, nodes...)
	fc.Features = append(fc.Features, p.WaypointsGeojsons()...)
	return fc, nil
}

// SegmentGeojson returns the geography between two nodes. The color is the
// path color, or the line color for paths without one.
func (s *PathService) SegmentGeojson(ctx context.Context, id string, startIndex, endIndex int) (*geojson.Feature, error) {
	unlock := s.lock(id)
	defer unlock()

	p, err := s.paths.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	properties := map[string]interface{}{
		"path_id":     p.ID,
		"start_index": startIndex,
		"end_index":   endIndex,
	}
	if p.Color == "" {
		if line, err := s.lines.LineByID(ctx, p.LineID); err == nil && line.Color != "" {
			properties["color"] = line.Color
		}
	}
	return p.SegmentGeojson(startIndex, endIndex, properties)
}

// ExportKML writes the path geography and its nodes as KML
func (s *PathService) ExportKML(ctx context.Context, id string, w io.Writer) error {
	unlock := s.lock(id)
	defer unlock()

	p, err := s.paths.Get(ctx, id)
	if err != nil {
		return err
	}
	return export.WritePathKML(ctx, w, p, s.nodes)
}

func (s *PathService) edit(ctx context.Context, id string, mutate func(p *path.Path) *path.PendingChange) (*path.Path, geography.Result, error) {
	ctx = logging.EnsureLogger(ctx)
	unlock := s.lock(id)
	defer unlock()

	p, err := s.paths.Get(ctx, id)
	if err != nil {
		return nil, geography.Result{}, err
	}
	if err := s.checkNotFrozen(ctx, p); err != nil {
		return nil, geography.Result{}, err
	}

	change := mutate(p)
	result := geography.OK()
	if change != nil {
		result = s.generator.UpdateGeography(ctx, p, change)
		logResult(ctx, p, result)
	}

	if err := s.paths.Save(ctx, p); err != nil {
		return nil, result, fmt.Errorf("failed to save path %s: %w", id, err)
	}
	return p, result, nil
}

// checkNotFrozen refuses edits on frozen lines. Paths of unknown lines are
// editable.
func (s *PathService) checkNotFrozen(ctx context.Context, p *path.Path) error {
	line, err := s.lines.LineByID(ctx, p.LineID)
	if err != nil {
		if errors.Is(err, path.ErrLineNotFound) {
			return nil
		}
		return fmt.Errorf("failed to get line %s: %w", p.LineID, err)
	}
	if line.IsFrozen {
		return errors.Wrapf(ErrLineFrozen, "line %s", line.ID)
	}
	return nil
}

func (s *PathService) lock(id string) func() {
	s.mutex.Lock()
	m, ok := s.locks[id]
	if !ok {
		m = &sync.Mutex{}
		s.locks[id] = m
	}
	s.mutex.Unlock()

	m.Lock()
	return m.Unlock
}

func logResult(ctx context.Context, p *path.Path, result geography.Result) {
	switch result.Status {
	case geography.StatusRoutingFailed:
		log.Printf("Routing failed for path %s", p.ID)
	case geography.StatusFatal:
		logging.Errorw(ctx, "geography update failed", "path", p.ID, "error", result.Err)
	}
}
