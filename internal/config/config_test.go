package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	require.NoError(t, Validate(cfg))
	assert.Equal(t, 20.0, cfg.Paths.NodeDefaultDwellTimeSeconds)
	assert.Equal(t, 50.0, cfg.Paths.NodeDefaultRoutingRadiusMeters)
	assert.Equal(t, 180.0, cfg.Paths.MinLayoverTimeSeconds)
	assert.Equal(t, 0.1, cfg.Paths.LayoverRatioOverTotalTravelTime)
	assert.Equal(t, int64(500), cfg.Paths.MinMatchingTimestampSeconds)
	assert.Equal(t, 15, cfg.Paths.TotalsRoundingSeconds)
	assert.Contains(t, cfg.Routing.OSRM, "engine")
}

func TestParse_OverridesDefaults(t *testing.T) {
	yamlData := []byte(`
server:
  port: 9090
routing:
  timeout: 5s
paths:
  node_default_dwell_time_seconds: 30
  totals_rounding_seconds: 60
refresh:
  enabled: true
  interval: 1m
`)

	cfg, err := Parse(yamlData)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.Routing.Timeout)
	assert.Equal(t, 30.0, cfg.Paths.NodeDefaultDwellTimeSeconds)
	assert.Equal(t, 60, cfg.Paths.TotalsRoundingSeconds)
	assert.True(t, cfg.Refresh.Enabled)
	assert.Equal(t, time.Minute, cfg.Refresh.Interval)

	// Untouched values keep their defaults
	assert.Equal(t, 15.0, cfg.Paths.WaypointRadiusMeters)
}

func TestParse_ValidationErrors(t *testing.T) {
	_, err := Parse([]byte("paths:\n  waypoint_radius_meters: -1\n"))
	assert.Error(t, err)

	_, err = Parse([]byte("routing:\n  osrm:\n    engine:\n      base_url: not a url\n"))
	assert.Error(t, err)

	_, err = Parse([]byte("routing:\n  osrm:\n    engine:\n      base_url: http://osrm:5000\n      geometries: wkt\n"))
	assert.Error(t, err)

	_, err = Parse([]byte("server: [unclosed"))
	assert.Error(t, err)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  nodes_file: nodes.geojson\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "nodes.geojson", cfg.Server.NodesFile)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
