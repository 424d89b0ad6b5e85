package path

import (
	"slices"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/pkg/errors"

	"github.com/dpup/transit.paths/server/internal/lib/geo"
)

var geoUtils = geo.NewGeoUtils()

// SegmentGeojson returns the part of the geography between the nodes at
// startIndex and endIndex as a LineString feature. properties are copied
// to the feature, with the path color as default color.
func (p *Path) SegmentGeojson(startIndex, endIndex int, properties map[string]interface{}) (*geojson.Feature, error) {
	line, err := p.segmentLine(startIndex, endIndex)
	if err != nil {
		return nil, err
	}

	f := geojson.NewFeature(line)
	for k, v := range properties {
		f.Properties[k] = v
	}
	if color, ok := f.Properties["color"]; (!ok || color == "") && p.Color != "" {
		f.Properties["color"] = p.Color
	}
	return f, nil
}

func (p *Path) segmentLine(startIndex, endIndex int) (orb.LineString, error) {
	if p.Geography == nil {
		return nil, errors.WithStack(ErrPathNoGeography)
	}
	if startIndex < 0 || startIndex > len(p.Segments) || startIndex >= endIndex {
		return nil, errors.Wrapf(ErrPathInvalidSegmentIndex, "segment %d to %d", startIndex, endIndex)
	}

	last := len(p.Geography) - 1
	startCoordinate := last
	if startIndex < len(p.Segments) {
		startCoordinate = p.Segments[startIndex]
	}
	endCoordinate := last
	if endIndex < len(p.Segments) {
		endCoordinate = p.Segments[endIndex]
	}
	if startCoordinate < 0 || startCoordinate > last || endCoordinate < startCoordinate {
		return nil, errors.Wrapf(ErrPathInvalidSegmentIndex, "empty segment %d to %d", startIndex, endIndex)
	}

	line := slices.Clone(p.Geography[startCoordinate : min(endCoordinate, last)+1])
	if len(line) == 1 {
		line = append(line, line[0])
	}
	return line, nil
}

// CoordinatesDistanceTraveledMeters returns, for each coordinate of the
// geography, the distance traveled since the first coordinate
func (p *Path) CoordinatesDistanceTraveledMeters() []float64 {
	if p.Geography == nil {
		return []float64{}
	}
	return geoUtils.CumulativeDistances(p.Geography)
}
