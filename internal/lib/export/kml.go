package export

import (
	"context"
	"fmt"
	"image/color"
	"io"

	"github.com/pkg/errors"
	"github.com/twpayne/go-kml"

	"github.com/dpup/transit.paths/server/internal/lib/path"
)

var defaultPathColor = color.RGBA{R: 0x00, G: 0x86, B: 0xff, A: 0xff}

// PathKML builds a KML document with the path geography and one placemark
// per node
func PathKML(ctx context.Context, p *path.Path, nodes path.NodeRepository) (*kml.CompoundElement, error) {
	if len(p.Geography) == 0 {
		return nil, errors.WithStack(path.ErrPathNoGeography)
	}

	style := kml.SharedStyle("path",
		kml.LineStyle(
			kml.Color(parseHexColor(p.Color)),
			kml.Width(4),
		),
	)

	coordinates := make([]kml.Coordinate, len(p.Geography))
	for i, c := range p.Geography {
		coordinates[i] = kml.Coordinate{Lon: c.Lon(), Lat: c.Lat()}
	}
	document := kml.Document(
		kml.Name(pathName(p)),
		style,
		kml.Placemark(
			kml.Name(pathName(p)),
			kml.Description(pathDescription(p)),
			kml.StyleURL(style.URL()),
			kml.LineString(kml.Coordinates(coordinates...)),
		),
	)

	folder := kml.Folder(kml.Name("Nodes"))
	for i, nodeID := range p.Nodes {
		node, err := nodes.NodeByID(ctx, nodeID)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to get node %s", nodeID)
		}
		name := node.Name
		if name == "" {
			name = node.ID
		}
		folder.Add(kml.Placemark(
			kml.Name(name),
			kml.Description(fmt.Sprintf("Node %d of %d", i+1, len(p.Nodes))),
			kml.Point(kml.Coordinates(kml.Coordinate{Lon: node.Point.Lon(), Lat: node.Point.Lat()})),
		))
	}
	document.Add(folder)

	return kml.KML(document), nil
}

// WritePathKML writes the KML document of a path to w
func WritePathKML(ctx context.Context, w io.Writer, p *path.Path, nodes path.NodeRepository) error {
	doc, err := PathKML(ctx, p, nodes)
	if err != nil {
		return err
	}
	return doc.WriteIndent(w, "", "  ")
}

func pathName(p *path.Path) string {
	if p.Name != "" {
		return p.Name
	}
	return p.ID
}

func pathDescription(p *path.Path) string {
	description := fmt.Sprintf("%d nodes", len(p.Nodes))
	if p.Direction != "" {
		description += ", " + string(p.Direction)
	}
	if d := p.Data.TotalDistanceMeters; d != nil {
		description += fmt.Sprintf(", %.0f m", *d)
	}
	if t := p.Data.OperatingTimeWithoutLayoverTimeSeconds; t != nil {
		description += fmt.Sprintf(", %.0f s", *t)
	}
	return description
}

// parseHexColor reads a #rrggbb color, falling back to the default path color
func parseHexColor(hex string) color.RGBA {
	c := color.RGBA{A: 0xff}
	if len(hex) == 7 {
		if _, err := fmt.Sscanf(hex, "#%02x%02x%02x", &c.R, &c.G, &c.B); err == nil {
			return c
		}
	}
	return defaultPathColor
}
