package store

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/pkg/errors"

	"github.com/dpup/transit.paths/server/internal/lib/path"
)

// LoadNodesFromGeoJSON reads nodes from a FeatureCollection of points. The
// node id comes from the "id" property, or the feature id.
func LoadNodesFromGeoJSON(r io.Reader) (*NodeStore, error) {
	fc, err := readFeatureCollection(r)
	if err != nil {
		return nil, err
	}

	store := NewNodeStore()
	for i, f := range fc.Features {
		node, err := nodeFromFeature(f)
		if err != nil {
			return nil, errors.Wrapf(err, "feature %d", i)
		}
		store.Put(node)
	}
	return store, nil
}

func nodeFromFeature(f *geojson.Feature) (*path.Node, error) {
	point, ok := f.Geometry.(orb.Point)
	if !ok {
		return nil, errors.Errorf("node geometry must be a point, got %T", f.Geometry)
	}

	node := &path.Node{
		Point:      point,
		Properties: map[string]interface{}{},
	}
	for key, value := range f.Properties {
		switch key {
		case "id":
			node.ID = fmt.Sprint(value)
		case "code":
			node.Code = fmt.Sprint(value)
		case "name":
			node.Name = fmt.Sprint(value)
		case "routing_radius_meters":
			if v, ok := value.(float64); ok {
				node.RoutingRadiusMeters = path.Float64(v)
			}
		case "default_dwell_time_seconds":
			if v, ok := value.(float64); ok {
				node.DefaultDwellTimeSeconds = path.Float64(v)
			}
		default:
			node.Properties[key] = value
		}
	}
	if node.ID == "" && f.ID != nil {
		node.ID = fmt.Sprint(f.ID)
	}
	if node.ID == "" {
		return nil, errors.New("node has no id")
	}
	return node, nil
}

// LoadPathsFromGeoJSON reads paths from a FeatureCollection of path features
func LoadPathsFromGeoJSON(r io.Reader) (*PathStore, error) {
	fc, err := readFeatureCollection(r)
	if err != nil {
		return nil, err
	}

	store := NewPathStore()
	for i, f := range fc.Features {
		p, err := path.FromFeature(f)
		if err != nil {
			return nil, errors.Wrapf(err, "feature %d", i)
		}
		if err := store.Save(context.Background(), p); err != nil {
			return nil, errors.Wrapf(err, "feature %d", i)
		}
	}
	return store, nil
}

// LoadLinesFromJSON reads a JSON array of lines
func LoadLinesFromJSON(r io.Reader) (*LineStore, error) {
	var lines []*path.Line
	if err := json.NewDecoder(r).Decode(&lines); err != nil {
		return nil, errors.Wrap(err, "failed to decode lines")
	}
	return NewLineStore(lines...), nil
}

func readFeatureCollection(r io.Reader) (*geojson.FeatureCollection, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read geojson")
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode feature collection")
	}
	return fc, nil
}
