package export

import (
	"bytes"
	"context"
	"image/color"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dpup/transit.paths/server/internal/lib/path"
	"github.com/dpup/transit.paths/server/internal/store"
)

func exportedPath() (*path.Path, *store.NodeStore) {
	nodes := store.NewNodeStore(
		&path.Node{ID: "node1", Name: "Main St", Point: orb.Point{-73.745618, 45.368994}},
		&path.Node{ID: "node4", Point: orb.Point{-73.731251, 45.368103}},
	)
	p := path.NewPath("line1")
	p.Name = "Route 12 outbound"
	p.Color = "#ff0000"
	p.Direction = path.DirectionOutbound
	p.InsertNodeID("node1", nil, "")
	p.InsertNodeID("node4", nil, "")
	p.Geography = orb.LineString{{-73.745618, 45.368994}, {-73.74, 45.367}, {-73.731251, 45.368103}}
	p.Segments = []int{0}
	p.Data.TotalDistanceMeters = path.Float64(1250)
	return p, nodes
}

func TestWritePathKML(t *testing.T) {
	p, nodes := exportedPath()

	var buf bytes.Buffer
	require.NoError(t, WritePathKML(context.Background(), &buf, p, nodes))

	out := buf.String()
	assert.Contains(t, out, `<kml xmlns="http://www.opengis.net/kml/2.2">`)
	assert.Contains(t, out, "<name>Route 12 outbound</name>")
	assert.Contains(t, out, "<description>2 nodes, outbound, 1250 m</description>")
	assert.Contains(t, out, "<color>ff0000ff</color>")
	assert.Contains(t, out, "<styleUrl>#path</styleUrl>")
	assert.Contains(t, out, "<coordinates>-73.745618,45.368994 -73.74,45.367 -73.731251,45.368103</coordinates>")
	assert.Contains(t, out, "<name>Main St</name>")
	assert.Contains(t, out, "<name>node4</name>", "nodes without a name use their id")
	assert.Contains(t, out, "<coordinates>-73.731251,45.368103</coordinates>")
}

func TestPathKML_NoGeography(t *testing.T) {
	p, nodes := exportedPath()
	p.EmptyGeography()

	_, err := PathKML(context.Background(), p, nodes)

	assert.ErrorIs(t, err, path.ErrPathNoGeography)
}

func TestPathKML_MissingNode(t *testing.T) {
	p, _ := exportedPath()

	_, err := PathKML(context.Background(), p, store.NewNodeStore())

	assert.ErrorIs(t, err, path.ErrNodeNotFound)
}

func TestParseHexColor(t *testing.T) {
	assert.Equal(t, color.RGBA{R: 0x12, G: 0xab, B: 0xef, A: 0xff}, parseHexColor("#12abef"))
	assert.Equal(t, defaultPathColor, parseHexColor(""))
	assert.Equal(t, defaultPathColor, parseHexColor("red"))
	assert.Equal(t, defaultPathColor, parseHexColor("#zzzzzz"))
}
