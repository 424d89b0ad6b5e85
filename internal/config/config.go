package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config represents the complete server configuration
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Routing RoutingConfig `yaml:"routing"`
	Paths   PathsConfig   `yaml:"paths"`
	Refresh RefreshConfig `yaml:"refresh"`
}

// ServerConfig holds server-specific settings
type ServerConfig struct {
	Port      int    `yaml:"port" validate:"gte=0,lte=65535"`
	NodesFile string `yaml:"nodes_file"`
	LinesFile string `yaml:"lines_file"`
	PathsFile string `yaml:"paths_file"`
}

// RoutingConfig holds routing backend settings
type RoutingConfig struct {
	// OSRM endpoint per routing engine (engine, engineCustom)
	OSRM        map[string]OSRMConfig `yaml:"osrm" validate:"dive"`
	Timeout     time.Duration         `yaml:"timeout" validate:"gt=0"`
	CacheTTL    time.Duration         `yaml:"cache_ttl" validate:"gte=0"`
	LineWorkers int                   `yaml:"line_workers" validate:"gte=1"`
}

// OSRMConfig holds a single OSRM server configuration
type OSRMConfig struct {
	BaseURL    string `yaml:"base_url" validate:"required,url"`
	Geometries string `yaml:"geometries" validate:"omitempty,oneof=polyline geojson"`
}

// PathsConfig holds the defaults used when computing path geography
type PathsConfig struct {
	NodeDefaultDwellTimeSeconds     float64 `yaml:"node_default_dwell_time_seconds" validate:"gte=0"`
	NodeDefaultRoutingRadiusMeters  float64 `yaml:"node_default_routing_radius_meters" validate:"gt=0"`
	MaxNodeRoutingRadiusMeters      float64 `yaml:"max_node_routing_radius_meters" validate:"gt=0"`
	RoutingRadiusBufferMeters       float64 `yaml:"routing_radius_buffer_meters" validate:"gte=0"`
	WaypointRadiusMeters            float64 `yaml:"waypoint_radius_meters" validate:"gt=0"`
	MinMatchingTimestampSeconds     int64   `yaml:"min_matching_timestamp_seconds" validate:"gte=0"`
	MatchingSpeedMps                float64 `yaml:"matching_speed_mps" validate:"gt=0"`
	DefaultRunningSpeedKmH          float64 `yaml:"default_running_speed_kmh" validate:"gt=0"`
	MinLayoverTimeSeconds           float64 `yaml:"min_layover_time_seconds" validate:"gte=0"`
	LayoverRatioOverTotalTravelTime float64 `yaml:"layover_ratio_over_total_travel_time" validate:"gte=0"`
	TotalsRoundingSeconds           int     `yaml:"totals_rounding_seconds" validate:"gte=1"`
}

// RefreshConfig holds settings for retrying paths whose routing failed
type RefreshConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Interval time.Duration `yaml:"interval" validate:"gt=0"`
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port: 8080,
		},
		Routing: RoutingConfig{
			OSRM: map[string]OSRMConfig{
				"engine": {
					BaseURL:    "http://localhost:5000",
					Geometries: "polyline",
				},
				"engineCustom": {
					BaseURL:    "http://localhost:5000",
					Geometries: "polyline",
				},
			},
			Timeout:     30 * time.Second,
			CacheTTL:    10 * time.Minute,
			LineWorkers: 4,
		},
		Paths: PathsConfig{
			NodeDefaultDwellTimeSeconds:     20,
			NodeDefaultRoutingRadiusMeters:  50,
			MaxNodeRoutingRadiusMeters:      200,
			RoutingRadiusBufferMeters:       5,
			WaypointRadiusMeters:            15,
			MinMatchingTimestampSeconds:     500, // map matching fails on closely spaced timestamps
			MatchingSpeedMps:                20,
			DefaultRunningSpeedKmH:          15,
			MinLayoverTimeSeconds:           180,
			LayoverRatioOverTotalTravelTime: 0.1,
			TotalsRoundingSeconds:           15,
		},
		Refresh: RefreshConfig{
			Enabled:  false,
			Interval: 5 * time.Minute,
		},
	}
}

// Load reads a YAML file on top of DefaultConfig and validates the result
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML on top of DefaultConfig and validates the result
func Parse(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field constraints on the configuration
func Validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
