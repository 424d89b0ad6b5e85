package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"

	"github.com/dpup/prefab"
	"github.com/dpup/prefab/logging"

	"github.com/dpup/transit.paths/server/internal/cache"
	"github.com/dpup/transit.paths/server/internal/clients/osrm"
	"github.com/dpup/transit.paths/server/internal/config"
	"github.com/dpup/transit.paths/server/internal/lib/geography"
	"github.com/dpup/transit.paths/server/internal/lib/routing"
	"github.com/dpup/transit.paths/server/internal/services"
	"github.com/dpup/transit.paths/server/internal/store"
)

func main() {
	// Load configuration using Prefab's config system
	appConfig := loadConfig()

	nodes, lines, paths := loadData(appConfig.Server)
	log.Printf("Loaded %d nodes", nodes.Len())

	ctx := logging.EnsureLogger(context.Background())

	// Map matching responses are cached per engine and request
	cacheInstance := cache.NewCache()
	if appConfig.Routing.CacheTTL > 0 {
		cacheInstance.StartPeriodicCleanup(ctx, appConfig.Routing.CacheTTL)
	}

	registry := routing.NewRegistry()
	for name, osrmConfig := range appConfig.Routing.OSRM {
		engine := routing.Engine(name)
		client := osrm.NewClient(osrmConfig, appConfig.Routing.Timeout)
		registry.Register(engine, cache.NewCachedMatcher(client, cacheInstance, engine, appConfig.Routing.CacheTTL))
		log.Printf("Routing engine %s uses OSRM at %s", name, osrmConfig.BaseURL)
	}

	generator := geography.NewGenerator(registry, nodes, lines, appConfig.Paths)
	pathService := services.NewPathService(paths, nodes, lines, generator, appConfig.Routing)
	handler := services.NewHandler(pathService)

	if appConfig.Refresh.Enabled {
		periodicRefresh := services.NewPeriodicRefreshService(pathService, appConfig.Refresh)
		if err := periodicRefresh.StartPeriodicRefresh(ctx); err != nil {
			log.Printf("Failed to start periodic refresh: %v", err)
		}
	}

	log.Printf("Transit paths server starting")

	// Server configuration (port, etc.) will be loaded from prefab.yaml/env vars
	server := prefab.New(
		prefab.WithHTTPHandlerFunc("/", homepageHandler),
		prefab.WithHTTPHandlerFunc(services.PathsPrefix, handler.ServePaths),
		prefab.WithHTTPHandlerFunc(services.LinesPrefix, handler.ServeLines),
	)

	// Start the server (blocks until shutdown)
	if err := server.Start(); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

// loadConfig loads configuration using Prefab's config system, on top of the
// defaults. Configuration is loaded from prefab.yaml and environment
// variables with PF__ prefix.
func loadConfig() *config.Config {
	appConfig := config.DefaultConfig()

	sections := map[string]interface{}{
		"server":  &appConfig.Server,
		"routing": &appConfig.Routing,
		"paths":   &appConfig.Paths,
		"refresh": &appConfig.Refresh,
	}
	for key, target := range sections {
		if err := prefab.Config.Unmarshal(key, target); err != nil {
			log.Fatalf("Failed to unmarshal %s section: %v", key, err)
		}
	}

	if err := config.Validate(appConfig); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	return appConfig
}

// loadData reads nodes, lines and paths from the configured files. Missing
// lines or paths files start the server with empty stores.
func loadData(cfg config.ServerConfig) (*store.NodeStore, *store.LineStore, *store.PathStore) {
	if cfg.NodesFile == "" {
		log.Fatal("server.nodes_file is required")
	}
	nodesFile, err := os.Open(cfg.NodesFile)
	if err != nil {
		log.Fatalf("Failed to open nodes file: %v", err)
	}
	defer nodesFile.Close()
	nodes, err := store.LoadNodesFromGeoJSON(nodesFile)
	if err != nil {
		log.Fatalf("Failed to load nodes: %v", err)
	}

	lines := store.NewLineStore()
	if cfg.LinesFile != "" {
		f, err := os.Open(cfg.LinesFile)
		if err != nil {
			log.Fatalf("Failed to open lines file: %v", err)
		}
		defer f.Close()
		if lines, err = store.LoadLinesFromJSON(f); err != nil {
			log.Fatalf("Failed to load lines: %v", err)
		}
	}

	paths := store.NewPathStore()
	if cfg.PathsFile != "" {
		f, err := os.Open(cfg.PathsFile)
		if err != nil {
			log.Fatalf("Failed to open paths file: %v", err)
		}
		defer f.Close()
		if paths, err = store.LoadPathsFromGeoJSON(f); err != nil {
			log.Fatalf("Failed to load paths: %v", err)
		}
	}

	return nodes, lines, paths
}

// homepageHandler serves a plain text index of the API at the server root
func homepageHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	index := `transit paths

GET  /api/v1/paths/{id}                          path feature with geography and statistics
GET  /api/v1/paths/{id}/nodes                    nodes and waypoints of a path
GET  /api/v1/paths/{id}/segment?start=0&end=1    geography between two nodes
GET  /api/v1/paths/{id}/kml                      KML export
POST /api/v1/paths/{id}/recompute                route the path again
POST /api/v1/lines/{id}/recompute                route every path of a line again
`

	if _, err := fmt.Fprint(w, index); err != nil {
		slog.Error("Failed to write homepage", "error", err)
	}
}
