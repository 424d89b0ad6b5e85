package path

import (
	"math"
	"slices"

	"github.com/dpup/transit.paths/server/internal/lib/physics"
)

// DwellTimeSecondsAtNode returns the dwell time at a node. nodeDwell is the
// node's own default; nil or zero means unset. The path default wins when it is
// longer, or always when the path ignores node defaults.
func (p *Path) DwellTimeSecondsAtNode(nodeDwell *float64, generalDefault float64) float64 {
	generalDefault = math.Max(0, generalDefault)
	pathDwell := generalDefault
	if p.Data.DefaultDwellTimeSeconds != nil {
		pathDwell = math.Max(0, *p.Data.DefaultDwellTimeSeconds)
	}
	if p.Data.IgnoreNodesDefaultDwellTimeSeconds {
		return math.Ceil(pathDwell)
	}

	dwell := generalDefault
	if nodeDwell != nil && *nodeDwell > 0 {
		dwell = *nodeDwell
	}
	return math.Ceil(math.Max(dwell, pathDwell))
}

// CumulativeTimeForNodeIndex returns the time from departure at the first
// node to arrival at nodeIndex, including intermediate dwell times. ok is
// false when a segment is missing.
func (p *Path) CumulativeTimeForNodeIndex(nodeIndex int) (seconds float64, ok bool) {
	for i := 0; i < nodeIndex; i++ {
		if i >= len(p.Data.SegmentsData) {
			return 0, false
		}
		if i < len(p.Data.DwellTimeSeconds) {
			seconds += p.Data.DwellTimeSeconds[i]
		}
		seconds += p.Data.SegmentsData[i].TravelTimeSeconds
	}
	return seconds, true
}

// CumulativeDistanceForNodeIndex returns the distance from the first node
// to nodeIndex. ok is false when a segment is missing.
func (p *Path) CumulativeDistanceForNodeIndex(nodeIndex int) (meters float64, ok bool) {
	for i := 0; i < nodeIndex; i++ {
		if i >= len(p.Data.SegmentsData) {
			return 0, false
		}
		meters += p.Data.SegmentsData[i].DistanceMeters
	}
	return meters, true
}

// InterNodesDistances returns the non-zero segment distances of a complete path
func (p *Path) InterNodesDistances() []float64 {
	if !p.IsComplete() {
		return []float64{}
	}
	distances := []float64{}
	for _, segment := range p.Data.SegmentsData {
		if segment.DistanceMeters != 0 {
			distances = append(distances, segment.DistanceMeters)
		}
	}
	return distances
}

// InterNodesTravelTimes returns the non-zero segment travel times of a
// complete path, nil otherwise
func (p *Path) InterNodesTravelTimes() []float64 {
	if !p.IsComplete() {
		return nil
	}
	travelTimes := []float64{}
	for _, segment := range p.Data.SegmentsData {
		if segment.TravelTimeSeconds != 0 {
			travelTimes = append(travelTimes, segment.TravelTimeSeconds)
		}
	}
	return travelTimes
}

func (p *Path) AverageInterNodesDistanceMeters() *float64 {
	if !p.IsComplete() {
		return nil
	}
	return Float64(math.Ceil(*p.Data.TotalDistanceMeters / float64(len(p.Nodes)-1)))
}

func (p *Path) MedianInterNodesDistanceMeters() float64 {
	return physics.Median(p.InterNodesDistances())
}

func (p *Path) MedianInterNodesTravelTimeSeconds() float64 {
	return physics.Median(p.InterNodesTravelTimes())
}

// RefreshStats recomputes the path variables from the current data
func (p *Path) RefreshStats() {
	nodeCount := len(p.Nodes)
	variables := Statistics{
		NQP: &nodeCount,
		NSP: &nodeCount,
	}
	if p.Data.TotalDistanceMeters != nil {
		variables.DP = Float64(math.Round(*p.Data.TotalDistanceMeters))
	}
	if p.Data.OperatingTimeWithoutLayoverTimeSeconds != nil {
		variables.TOP = Float64(*p.Data.OperatingTimeWithoutLayoverTimeSeconds)
	}

	distances := make([]float64, 0, len(p.Data.SegmentsData))
	for _, segment := range p.Data.SegmentsData {
		distances = append(distances, segment.DistanceMeters)
	}
	if len(distances) > 0 {
		variables.DLMin = Float64(math.Ceil(slices.Min(distances)))
		variables.DLMax = Float64(math.Ceil(slices.Max(distances)))
		variables.DLAvg = Float64(physics.RoundToDecimals(physics.Mean(distances), 0))
		variables.DLMed = Float64(physics.RoundToDecimals(physics.Median(distances), 0))
	}
	p.Data.Variables = variables
}

// IsComplete reports whether the path has at least two nodes and a full set
// of segment and dwell statistics
func (p *Path) IsComplete() bool {
	nodeCount := len(p.Nodes)
	data := p.Data
	if nodeCount < 2 ||
		p.Direction == "" ||
		data.TotalDistanceMeters == nil ||
		data.OperatingTimeWithLayoverTimeSeconds == nil ||
		data.TravelTimeWithoutDwellTimesSeconds == nil ||
		data.TotalDwellTimeSeconds == nil ||
		data.LayoverTimeSeconds == nil ||
		data.RoutingFailed ||
		len(p.Segments) != nodeCount-1 ||
		len(data.DwellTimeSeconds) != nodeCount ||
		len(data.SegmentsData) != nodeCount-1 {
		return false
	}
	for i := 0; i < nodeCount-1; i++ {
		if data.DwellTimeSeconds[i] < 0 || data.SegmentsData[i].TravelTimeSeconds < 0 || math.IsNaN(data.SegmentsData[i].DistanceMeters) {
			return false
		}
	}
	return true
}

// TemporalTortuosity compares the operating time to the travel time of the
// direct route between terminals. nil for loops and paths with fewer than
// two nodes.
func (p *Path) TemporalTortuosity() *float64 {
	if len(p.Nodes) < 2 {
		return nil
	}
	return p.loopSafeRatio(p.Data.OperatingTimeWithoutLayoverTimeSeconds, p.Data.DirectRouteBetweenTerminalsTravelTimeSeconds)
}

// TemporalTortuosityWithoutDwellTimes is TemporalTortuosity without dwell
// times. A two node path is 1.
func (p *Path) TemporalTortuosityWithoutDwellTimes() *float64 {
	if len(p.Nodes) < 2 {
		return nil
	}
	if len(p.Nodes) == 2 {
		return Float64(1)
	}
	return p.loopSafeRatio(p.Data.TravelTimeWithoutDwellTimesSeconds, p.Data.DirectRouteBetweenTerminalsTravelTimeSeconds)
}

// SpatialTortuosity compares the path distance to the distance of the direct
// route between terminals. A two node path is 1.
func (p *Path) SpatialTortuosity() *float64 {
	if len(p.Nodes) < 2 {
		return nil
	}
	if len(p.Nodes) == 2 {
		return Float64(1)
	}
	return p.loopSafeRatio(p.Data.TotalDistanceMeters, p.Data.DirectRouteBetweenTerminalsDistanceMeters)
}

// EuclidianTortuosity compares the path distance to the bird distance
// between terminals
func (p *Path) EuclidianTortuosity() *float64 {
	if len(p.Nodes) < 2 {
		return nil
	}
	return p.loopSafeRatio(p.Data.TotalDistanceMeters, p.Data.BirdDistanceBetweenTerminals)
}

func (p *Path) loopSafeRatio(numerator, denominator *float64) *float64 {
	if numerator == nil || denominator == nil || *denominator == 0 {
		return nil
	}
	if math.IsInf(*numerator, 0) || math.IsNaN(*numerator) || math.IsInf(*denominator, 0) || math.IsNaN(*denominator) {
		return nil
	}
	if p.IsLoop() {
		return nil
	}
	return Float64(*numerator / *denominator)
}
