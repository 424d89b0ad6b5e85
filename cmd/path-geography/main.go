package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"sort"

	"github.com/dpup/prefab/logging"
	"github.com/paulmach/orb/geojson"

	"github.com/dpup/transit.paths/server/internal/cache"
	"github.com/dpup/transit.paths/server/internal/clients/osrm"
	"github.com/dpup/transit.paths/server/internal/config"
	"github.com/dpup/transit.paths/server/internal/lib/export"
	"github.com/dpup/transit.paths/server/internal/lib/geo"
	"github.com/dpup/transit.paths/server/internal/lib/geography"
	"github.com/dpup/transit.paths/server/internal/lib/path"
	"github.com/dpup/transit.paths/server/internal/lib/routing"
	"github.com/dpup/transit.paths/server/internal/store"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]

	switch command {
	case "recompute":
		handleRecompute()
	case "segment":
		handleSegment()
	case "kml":
		handleKML()
	case "radii":
		handleRadii()
	case "decode-polyline":
		handleDecodePolyline()
	case "help":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func handleRecompute() {
	fs := flag.NewFlagSet("recompute", flag.ExitOnError)
	configFile := fs.String("config", "", "YAML configuration file (defaults when empty)")
	nodesFile := fs.String("nodes", "", "GeoJSON FeatureCollection of nodes")
	pathFile := fs.String("path", "", "GeoJSON Feature of the path")
	mode := fs.String("mode", "bus", "Mode of the line owning the path")
	fs.Parse(os.Args[2:])

	if *nodesFile == "" || *pathFile == "" {
		fmt.Println("Example usage:")
		fmt.Println("  path-geography recompute --config config.yaml --nodes nodes.geojson --path path.geojson --mode bus")
		os.Exit(1)
	}

	cfg := config.DefaultConfig()
	if *configFile != "" {
		var err error
		if cfg, err = config.Load(*configFile); err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
	}
	nodes := loadNodes(*nodesFile)
	p := loadPath(*pathFile)
	lines := store.NewLineStore(&path.Line{ID: p.LineID, Mode: *mode})

	cacheInstance := cache.NewCache()
	registry := routing.NewRegistry()
	for name, osrmConfig := range cfg.Routing.OSRM {
		engine := routing.Engine(name)
		client := osrm.NewClient(osrmConfig, cfg.Routing.Timeout)
		registry.Register(engine, cache.NewCachedMatcher(client, cacheInstance, engine, cfg.Routing.CacheTTL))
	}

	generator := geography.NewGenerator(registry, nodes, lines, cfg.Paths)
	result := generator.UpdateGeography(commandContext(), p, nil)

	switch result.Status {
	case geography.StatusOK:
		log.Printf("Path %s routed: %d coordinates, %d segments", p.ID, len(p.Geography), len(p.Segments))
	case geography.StatusRoutingFailed:
		log.Printf("Routing failed for path %s", p.ID)
	case geography.StatusFatal:
		log.Fatalf("Failed to update path geography: %v", result.Err)
	}

	feature, err := p.ToFeature()
	if err != nil {
		log.Fatalf("Failed to convert path: %v", err)
	}
	printJSON(feature)
}

func handleSegment() {
	fs := flag.NewFlagSet("segment", flag.ExitOnError)
	pathFile := fs.String("path", "", "GeoJSON Feature of the path")
	start := fs.Int("start", 0, "Index of the first node")
	end := fs.Int("end", 1, "Index of the last node")
	fs.Parse(os.Args[2:])

	if *pathFile == "" {
		fmt.Println("Example usage:")
		fmt.Println("  path-geography segment --path path.geojson --start 0 --end 2")
		os.Exit(1)
	}

	p := loadPath(*pathFile)
	feature, err := p.SegmentGeojson(*start, *end, nil)
	if err != nil {
		log.Fatalf("Failed to get segment: %v", err)
	}
	printJSON(feature)
}

func handleKML() {
	fs := flag.NewFlagSet("kml", flag.ExitOnError)
	nodesFile := fs.String("nodes", "", "GeoJSON FeatureCollection of nodes")
	pathFile := fs.String("path", "", "GeoJSON Feature of the path")
	fs.Parse(os.Args[2:])

	if *nodesFile == "" || *pathFile == "" {
		fmt.Println("Example usage:")
		fmt.Println("  path-geography kml --nodes nodes.geojson --path path.geojson > path.kml")
		os.Exit(1)
	}

	if err := export.WritePathKML(commandContext(), os.Stdout, loadPath(*pathFile), loadNodes(*nodesFile)); err != nil {
		log.Fatalf("Failed to export KML: %v", err)
	}
}

func handleRadii() {
	fs := flag.NewFlagSet("radii", flag.ExitOnError)
	nodesFile := fs.String("nodes", "", "GeoJSON FeatureCollection of nodes")
	pathFile := fs.String("path", "", "GeoJSON Feature of the path")
	fs.Parse(os.Args[2:])

	if *nodesFile == "" || *pathFile == "" {
		fmt.Println("Example usage:")
		fmt.Println("  path-geography radii --nodes nodes.geojson --path path.geojson")
		fmt.Println("  (Nodes too far from the routed path for their routing radius)")
		os.Exit(1)
	}

	cfg := config.DefaultConfig().Paths
	tooSmall, err := loadPath(*pathFile).NodeIDsWithRoutingRadiusTooSmallForPathShape(
		commandContext(), loadNodes(*nodesFile), cfg.NodeDefaultRoutingRadiusMeters, cfg.RoutingRadiusBufferMeters)
	if err != nil {
		log.Fatalf("Failed to check routing radii: %v", err)
	}

	ids := make([]string, 0, len(tooSmall))
	for id := range tooSmall {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		fmt.Printf("%s\t%.0f m\n", id, tooSmall[id])
	}
	fmt.Printf("%d nodes with a routing radius too small\n", len(ids))
}

func handleDecodePolyline() {
	fs := flag.NewFlagSet("decode-polyline", flag.ExitOnError)
	encoded := fs.String("polyline", "", "Encoded polyline string")
	fs.Parse(os.Args[2:])

	if *encoded == "" {
		fmt.Println("Example usage:")
		fmt.Println("  path-geography decode-polyline --polyline '_p~iF~ps|U_ulLnnqC_mqNvxq`@'")
		os.Exit(1)
	}

	geoUtils := geo.NewGeoUtils()
	line, err := geoUtils.DecodePolyline(*encoded)
	if err != nil {
		log.Fatalf("Failed to decode polyline: %v", err)
	}
	for i, point := range line {
		fmt.Printf("%d: %.6f,%.6f\n", i, point.Lon(), point.Lat())
	}
	fmt.Printf("Length: %.1f m\n", geoUtils.LineLength(line))
}

func loadNodes(filename string) *store.NodeStore {
	f, err := os.Open(filename)
	if err != nil {
		log.Fatalf("Failed to open nodes file: %v", err)
	}
	defer f.Close()

	nodes, err := store.LoadNodesFromGeoJSON(f)
	if err != nil {
		log.Fatalf("Failed to load nodes: %v", err)
	}
	return nodes
}

func loadPath(filename string) *path.Path {
	data, err := os.ReadFile(filename)
	if err != nil {
		log.Fatalf("Failed to read path file: %v", err)
	}
	feature, err := geojson.UnmarshalFeature(data)
	if err != nil {
		log.Fatalf("Failed to parse path feature: %v", err)
	}
	p, err := path.FromFeature(feature)
	if err != nil {
		log.Fatalf("Failed to read path: %v", err)
	}
	return p
}

// commandContext carries a development logger for library code that logs
func commandContext() context.Context {
	return logging.EnsureLogger(context.Background())
}

func printJSON(v interface{}) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Fatalf("Failed to encode output: %v", err)
	}
	fmt.Println(string(data))
}

func printUsage() {
	fmt.Println("path-geography - compute and inspect transit path geography")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  path-geography <command> [flags]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  recompute        Route a path through OSRM and print the updated feature")
	fmt.Println("  segment          Print the geography between two nodes of a routed path")
	fmt.Println("  kml              Export a routed path and its nodes as KML")
	fmt.Println("  radii            List nodes whose routing radius is too small for the path")
	fmt.Println("  decode-polyline  Decode an encoded polyline")
	fmt.Println("  help             Show this help message")
}
