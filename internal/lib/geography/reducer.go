package geography

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/pkg/errors"

	"github.com/dpup/transit.paths/server/internal/config"
	"github.com/dpup/transit.paths/server/internal/lib/path"
	"github.com/dpup/transit.paths/server/internal/lib/physics"
	"github.com/dpup/transit.paths/server/internal/lib/routing"
)

// ExtractLegs lays the legs of every segment result end to end, so that
// legs[i] goes from points[i] to points[i+1]. Once a segment has an
// unmatched tracepoint, its remaining legs are nil and the point indices
// are returned as errors. A matched point without a leg in the first
// matching, as when the trace was split in several matchings, is an error
// too.
func ExtractLegs(results []*routing.MapMatchResult) (legs []*routing.Leg, errorIndices []int) {
	current := 0
	for _, result := range results {
		if result == nil {
			continue
		}
		hasError := false
		for i := 0; i < len(result.Tracepoints)-1; i++ {
			if result.Tracepoints[i] == nil {
				errorIndices = append(errorIndices, current)
				hasError = true
			}
			var leg *routing.Leg
			if !hasError {
				if len(result.Matchings) > 0 && i < len(result.Matchings[0].Legs) {
					leg = &result.Matchings[0].Legs[i]
				} else {
					errorIndices = append(errorIndices, current)
					hasError = true
				}
			}
			legs = append(legs, leg)
			current++
		}
	}
	return legs, errorIndices
}

// Reduction is the geography and statistics computed from the legs
type Reduction struct {
	Coordinates  orb.LineString
	Segments     []int
	SegmentsData []path.TimeAndDistance

	// Per closed segment, before reuse of previous timings
	Computed []float64
	NoDwell  []float64

	// Per node, 0 for the first node
	DwellTimeSeconds []float64
}

// ReduceInput holds what the reducer needs besides the path
type ReduceInput struct {
	Points []routing.MatchPoint
	Legs   []*routing.Leg

	// Node default dwell times by node index, nil when unset
	NodeDwellTimes []*float64

	// Last edit, to reuse the timings of unchanged segments
	Change *path.PendingChange
}

// Reduce builds the path geography, segment statistics and totals from the
// matched legs, and stores them in the path
func Reduce(p *path.Path, in ReduceInput, cfg config.PathsConfig) error {
	r, err := walkLegs(p, in, cfg)
	if err != nil {
		return err
	}
	if want := expectedSegments(p, in.Points); len(r.Segments) != want {
		return errors.Wrapf(ErrLegWithNoResult, "%d segments for %d expected", len(r.Segments), want)
	}
	reusePreviousTimings(p, r, in.Change)

	p.Geography = r.Coordinates
	p.Segments = r.Segments
	p.Data.SegmentsData = r.SegmentsData
	p.Data.DwellTimeSeconds = r.DwellTimeSeconds
	p.Data.FromGTFS = false
	applyTotals(p, r, cfg)

	if bird, ok := birdDistanceBetweenTerminals(in.Points); ok {
		p.Data.BirdDistanceBetweenTerminals = path.Float64(bird)
	}
	return nil
}

// walkLegs concatenates the leg geometries and closes a segment every time
// the next point is a node
func walkLegs(p *path.Path, in ReduceInput, cfg config.PathsConfig) (*Reduction, error) {
	r := &Reduction{
		Coordinates:      orb.LineString{},
		Segments:         []int{},
		SegmentsData:     []path.TimeAndDistance{},
		DwellTimeSeconds: []float64{0},
	}
	segmentStart := 0
	nextNodeIndex := 1
	var segmentDuration, segmentDistance float64

	for i, leg := range in.Legs {
		if leg == nil {
			continue
		}
		nextIsNode := i+1 < len(in.Points) && in.Points[i+1].IsNode
		if i < len(in.Points) && in.Points[i].IsNode {
			segmentStart = max(len(r.Coordinates)-1, 0)
		}

		r.Coordinates = appendLegCoordinates(r.Coordinates, leg)
		segmentDuration += math.Ceil(leg.Duration)
		segmentDistance += math.Ceil(leg.Distance)

		switch {
		case i == len(in.Legs)-1 && nextNodeIndex >= len(p.Nodes):
			// the path ends at a waypoint, this segment is not part of the totals
			r.Segments = append(r.Segments, segmentStart)
			r.SegmentsData = append(r.SegmentsData, path.TimeAndDistance{
				TravelTimeSeconds: segmentDuration,
				DistanceMeters:    segmentDistance,
			})
		case nextIsNode && nextNodeIndex < len(p.Nodes):
			computed, noDwell, err := SegmentDuration(p, segmentDistance, segmentDuration)
			if err != nil {
				return nil, errors.Wrapf(err, "segment %d", len(r.Segments))
			}
			var nodeDwell *float64
			if nextNodeIndex < len(in.NodeDwellTimes) {
				nodeDwell = in.NodeDwellTimes[nextNodeIndex]
			}

			r.Segments = append(r.Segments, segmentStart)
			r.SegmentsData = append(r.SegmentsData, path.TimeAndDistance{
				TravelTimeSeconds: computed,
				DistanceMeters:    segmentDistance,
			})
			r.Computed = append(r.Computed, computed)
			r.NoDwell = append(r.NoDwell, noDwell)
			r.DwellTimeSeconds = append(r.DwellTimeSeconds, p.DwellTimeSecondsAtNode(nodeDwell, cfg.NodeDefaultDwellTimeSeconds))

			segmentDuration = 0
			segmentDistance = 0
			nextNodeIndex++
		}
	}
	return r, nil
}

// expectedSegments is one segment per pair of consecutive nodes, plus the
// open segment of a path ending at a waypoint
func expectedSegments(p *path.Path, points []routing.MatchPoint) int {
	want := len(p.Nodes) - 1
	if len(points) > 0 && !points[len(points)-1].IsNode {
		want++
	}
	return max(want, 0)
}

// appendLegCoordinates adds the step coordinates of a leg, skipping any
// coordinate equal to the last one
func appendLegCoordinates(coordinates orb.LineString, leg *routing.Leg) orb.LineString {
	for _, step := range leg.Steps {
		for _, c := range step.Geometry {
			if len(coordinates) > 0 && coordinates[len(coordinates)-1].Equal(c) {
				continue
			}
			coordinates = append(coordinates, c)
		}
	}
	return coordinates
}

// SegmentDuration returns the travel time of a segment from stop to stop,
// accounting for acceleration and deceleration, and the travel time without
// stopping. With the native engine or without a running speed, the matched
// speed is used.
func SegmentDuration(p *path.Path, distanceMeters, durationSeconds float64) (calculated, noDwell float64, err error) {
	var runningSpeed float64
	if p.Data.RoutingEngine == routing.EngineNative || p.Data.DefaultRunningSpeedKmH == nil {
		runningSpeed = distanceMeters / durationSeconds
		noDwell = durationSeconds
	} else {
		runningSpeed = physics.KphToMps(*p.Data.DefaultRunningSpeedKmH)
		noDwell = distanceMeters / runningSpeed
	}

	acceleration, deceleration := -1.0, -1.0
	if p.Data.DefaultAcceleration != nil {
		acceleration = *p.Data.DefaultAcceleration
	}
	if p.Data.DefaultDeceleration != nil {
		deceleration = *p.Data.DefaultDeceleration
	}

	calculated = math.Ceil(physics.DurationFromAccelerationDecelerationDistanceAndRunningSpeed(acceleration, deceleration, distanceMeters, runningSpeed))
	if calculated <= 0 || math.IsNaN(calculated) {
		return 0, 0, errors.Wrapf(ErrSegmentDuration, "distance %.0fm, duration %.0fs", distanceMeters, durationSeconds)
	}
	return calculated, noDwell, nil
}

// reusePreviousTimings keeps the travel times of the segments the last edit
// did not touch. Recomputed segments are scaled by the mean ratio between the
// kept and computed times of the others, or 1 when nothing was kept.
func reusePreviousTimings(p *path.Path, r *Reduction, change *path.PendingChange) {
	if change == nil {
		return
	}
	oldSegments := p.Data.SegmentsData
	oldDwell := p.Data.DwellTimeSeconds

	reused := make([]bool, len(r.Computed))
	ratioSum := 0.0
	ratioCount := 0
	for s := range r.Computed {
		prev, ok := change.PreviousSegmentIndex(s)
		if !ok || prev < 0 || prev >= len(oldSegments) {
			continue
		}
		travelTime := oldSegments[prev].TravelTimeSeconds
		newDwell := r.DwellTimeSeconds[s+1]
		if prev+1 < len(oldDwell) && oldDwell[prev+1] == 0 && newDwell != 0 {
			// the previous time included the dwell time
			travelTime = math.Ceil(travelTime - newDwell)
		}
		if r.Computed[s] > 0 {
			ratioSum += travelTime / r.Computed[s]
			ratioCount++
		}
		r.SegmentsData[s].TravelTimeSeconds = travelTime
		reused[s] = true
	}

	ratio := 1.0
	if ratioCount > 0 {
		ratio = ratioSum / float64(ratioCount)
	}
	for s := range r.Computed {
		if !reused[s] {
			r.SegmentsData[s].TravelTimeSeconds = math.Ceil(r.Computed[s] * ratio)
		}
	}
}

// applyTotals sums the closed segments into the path totals
func applyTotals(p *path.Path, r *Reduction, cfg config.PathsConfig) {
	var totalDistance, withDwell, withoutDwell, totalDwell, returnBack float64
	for s := range r.NoDwell {
		dwell := 0.0
		if s+1 < len(r.DwellTimeSeconds) {
			dwell = r.DwellTimeSeconds[s+1]
		}
		totalDistance += r.SegmentsData[s].DistanceMeters
		withDwell += r.SegmentsData[s].TravelTimeSeconds + dwell
		withoutDwell += r.NoDwell[s]
		totalDwell += dwell
		returnBack += r.SegmentsData[s].TravelTimeSeconds + dwell
	}

	roundUp := func(seconds float64) float64 {
		return physics.RoundSecondsToNearestQuarter(seconds, cfg.TotalsRoundingSeconds, math.Ceil)
	}
	withoutDwell = roundUp(withoutDwell)
	withDwell = roundUp(withDwell)
	totalDwell = roundUp(totalDwell)
	returnBack = roundUp(returnBack)

	layover := layoverSeconds(p, withDwell, cfg)

	data := &p.Data
	data.LayoverTimeSeconds = path.Float64(layover)
	data.TravelTimeWithoutDwellTimesSeconds = path.Float64(withoutDwell)
	data.TotalDistanceMeters = path.Float64(totalDistance)
	data.TotalDwellTimeSeconds = path.Float64(totalDwell)
	data.OperatingTimeWithoutLayoverTimeSeconds = path.Float64(withDwell)
	data.OperatingTimeWithLayoverTimeSeconds = path.Float64(withDwell + layover)
	data.TotalTravelTimeWithReturnBackSeconds = path.Float64(returnBack + layover)
	data.AverageSpeedWithoutDwellTimesMetersPerSecond = path.Float64(speed(totalDistance, withoutDwell))
	data.OperatingSpeedMetersPerSecond = path.Float64(speed(totalDistance, withDwell))
	data.OperatingSpeedWithLayoverMetersPerSecond = path.Float64(speed(totalDistance, withDwell+layover))
}

// layoverSeconds returns the custom layover, or a share of the operating
// time with a minimum, rounded up to the minute
func layoverSeconds(p *path.Path, withDwell float64, cfg config.PathsConfig) float64 {
	if p.Data.CustomLayoverMinutes != nil {
		return *p.Data.CustomLayoverMinutes * 60
	}
	return physics.RoundSecondsToNearestMinute(
		math.Max(cfg.LayoverRatioOverTotalTravelTime*withDwell, cfg.MinLayoverTimeSeconds),
		math.Ceil,
	)
}

func speed(distanceMeters, seconds float64) float64 {
	if seconds <= 0 {
		return 0
	}
	return physics.RoundToDecimals(distanceMeters/seconds, 2)
}

// birdDistanceBetweenTerminals returns the great-circle distance between the
// first and last nodes
func birdDistanceBetweenTerminals(points []routing.MatchPoint) (float64, bool) {
	first, last := -1, -1
	for i, point := range points {
		if !point.IsNode {
			continue
		}
		if first < 0 {
			first = i
		}
		last = i
	}
	if first < 0 || first == last {
		return 0, false
	}
	distance, err := geoUtils.PointToPoint(points[first].Coordinates, points[last].Coordinates)
	if err != nil {
		return 0, false
	}
	return math.Ceil(distance), true
}
