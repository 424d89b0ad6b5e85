package geography

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"

	prefaberrors "github.com/dpup/prefab/errors"
	"github.com/dpup/prefab/logging"

	"github.com/dpup/transit.paths/server/internal/lib/routing"
)

// TerminalPoints returns the first and last points of a path
func TerminalPoints(points []routing.MatchPoint) []routing.MatchPoint {
	if len(points) == 0 {
		return nil
	}
	return []routing.MatchPoint{points[0], points[len(points)-1]}
}

// RouteDirect matches the terminals of the path, giving the base travel time
// and distance the routed path is compared to
func RouteDirect(ctx context.Context, matcher routing.Matcher, points []routing.MatchPoint, mode string, speedMps float64) (*routing.MapMatchResult, error) {
	return matcher.MapMatch(ctx, routing.MapMatchRequest{
		Mode:                mode,
		DefaultRunningSpeed: speedMps,
		Points:              TerminalPoints(points),
	})
}

// RouteSegments matches every segment concurrently. A segment that fails is
// returned as unmatched, with one nil tracepoint per point and no matching,
// and never affects the other segments.
func RouteSegments(ctx context.Context, registry routing.Registry, segments []RoutingSegment, mode string, speedMps float64) []*routing.MapMatchResult {
	ctx = logging.EnsureLogger(ctx)
	results := make([]*routing.MapMatchResult, len(segments))

	var wg sync.WaitGroup
	for i, segment := range segments {
		wg.Add(1)
		go func(i int, segment RoutingSegment) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					err, _ := prefaberrors.ParseStack(debug.Stack())
					skipFrames := 3
					numFrames := 5
					logging.Errorw(ctx, "Routing segment: recovered from panic",
						"segment", i, "error", r, "error.stack_trace", err.MinimalStack(skipFrames, numFrames))
					results[i] = routing.UnmatchedResult(len(segment.Points))
				}
			}()

			result, err := routeSegment(ctx, registry, segment, mode, speedMps)
			if err != nil {
				logging.Warnw(ctx, "Failed to route segment",
					"segment", i, "engine", segment.Engine, "points", len(segment.Points), "error", err)
				result = routing.UnmatchedResult(len(segment.Points))
			}
			results[i] = result
		}(i, segment)
	}
	wg.Wait()

	return results
}

func routeSegment(ctx context.Context, registry routing.Registry, segment RoutingSegment, mode string, speedMps float64) (*routing.MapMatchResult, error) {
	matcher, err := registry.MatcherForEngine(segment.Engine)
	if err != nil {
		return nil, err
	}
	result, err := matcher.MapMatch(ctx, routing.MapMatchRequest{
		Mode:                mode,
		DefaultRunningSpeed: speedMps,
		Points:              segment.Points,
	})
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, fmt.Errorf("matcher for %s returned no result", segment.Engine)
	}
	return result, nil
}
