package osrm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/dpup/transit.paths/server/internal/config"
	"github.com/dpup/transit.paths/server/internal/lib/geo"
	"github.com/dpup/transit.paths/server/internal/lib/routing"
)

// The match service multiplies radiuses by this factor
const radiusMultiplier = 3

// HTTPDoer executes HTTP requests, usually an *http.Client
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client provides access to the OSRM match service
type Client struct {
	baseURL    string
	geometries string
	httpClient HTTPDoer
	geoUtils   geo.GeoUtils
}

// NewClient creates a new OSRM client
func NewClient(cfg config.OSRMConfig, timeout time.Duration) *Client {
	return NewClientWithHTTPDoer(cfg.BaseURL, cfg.Geometries, &http.Client{
		Timeout: timeout,
	})
}

// NewClientWithHTTPDoer creates a client that sends its requests through httpClient
func NewClientWithHTTPDoer(baseURL, geometries string, httpClient HTTPDoer) *Client {
	if geometries == "" {
		geometries = "polyline"
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		geometries: geometries,
		httpClient: httpClient,
		geoUtils:   geo.NewGeoUtils(),
	}
}

// MapMatch snaps the request points to the road network. A response with a
// code other than Ok is returned as an unmatched result, not as an error.
func (c *Client) MapMatch(ctx context.Context, req routing.MapMatchRequest) (*routing.MapMatchResult, error) {
	if len(req.Points) < 2 {
		return nil, fmt.Errorf("at least 2 points are required for map matching, got %d", len(req.Points))
	}

	httpReq, err := http.NewRequestWithContext(ctx, "GET", c.matchURL(req), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == 429 {
		return nil, fmt.Errorf("rate limit exceeded")
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("OSRM error %d: %s", resp.StatusCode, string(body))
	}

	var response MatchResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if response.Code != "Ok" {
		return routing.UnmatchedResult(len(req.Points)), nil
	}

	return c.processMatchResponse(response)
}

// matchURL builds /match/v1/{profile}/{lon,lat;...}?{options}. Options are
// written by hand since OSRM expects literal ';' separators.
func (c *Client) matchURL(req routing.MapMatchRequest) string {
	coordinates := make([]string, len(req.Points))
	radiuses := make([]string, len(req.Points))
	timestamps := make([]string, len(req.Points))
	for i, point := range req.Points {
		coordinates[i] = formatFloat(point.Coordinates.Lon()) + "," + formatFloat(point.Coordinates.Lat())
		radiuses[i] = strconv.Itoa(int(math.Ceil(point.Radius / radiusMultiplier)))
		timestamps[i] = strconv.FormatInt(point.Timestamp, 10)
	}

	options := []string{
		"radiuses=" + strings.Join(radiuses, ";"),
		"timestamps=" + strings.Join(timestamps, ";"),
		"steps=true",
		"annotations=false",
		"gaps=ignore",
		"geometries=" + c.geometries,
		"overview=full",
	}
	return fmt.Sprintf("%s/match/v1/%s/%s?%s",
		c.baseURL, profile(req.Mode), strings.Join(coordinates, ";"), strings.Join(options, "&"))
}

// processMatchResponse converts an OSRM response to a routing result
func (c *Client) processMatchResponse(response MatchResponse) (*routing.MapMatchResult, error) {
	result := &routing.MapMatchResult{
		Tracepoints: make([]*orb.Point, len(response.Tracepoints)),
		Matchings:   make([]routing.Matching, 0, len(response.Matchings)),
	}
	for i, tp := range response.Tracepoints {
		if tp == nil {
			continue
		}
		location := orb.Point{tp.Location[0], tp.Location[1]}
		result.Tracepoints[i] = &location
	}

	for _, m := range response.Matchings {
		matching := routing.Matching{
			Confidence: m.Confidence,
			Distance:   m.Distance,
			Duration:   m.Duration,
			Legs:       make([]routing.Leg, 0, len(m.Legs)),
		}
		for _, l := range m.Legs {
			leg := routing.Leg{
				Distance: l.Distance,
				Duration: l.Duration,
				Steps:    make([]routing.Step, 0, len(l.Steps)),
			}
			for _, s := range l.Steps {
				geometry, err := c.decodeGeometry(s.Geometry)
				if err != nil {
					return nil, fmt.Errorf("failed to decode step geometry: %w", err)
				}
				leg.Steps = append(leg.Steps, routing.Step{
					Distance: s.Distance,
					Duration: s.Duration,
					Geometry: geometry,
				})
			}
			matching.Legs = append(matching.Legs, leg)
		}
		result.Matchings = append(result.Matchings, matching)
	}
	return result, nil
}

// decodeGeometry reads a step geometry, either an encoded polyline string or
// a GeoJSON line string
func (c *Client) decodeGeometry(raw json.RawMessage) (orb.LineString, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return orb.LineString{}, nil
	}

	if raw[0] == '"' {
		var encoded string
		if err := json.Unmarshal(raw, &encoded); err != nil {
			return nil, err
		}
		if encoded == "" {
			return orb.LineString{}, nil
		}
		return c.geoUtils.DecodePolyline(encoded)
	}

	geometry, err := geojson.UnmarshalGeometry(raw)
	if err != nil {
		return nil, err
	}
	switch g := geometry.Geometry().(type) {
	case orb.LineString:
		return g, nil
	case orb.Point:
		return orb.LineString{g}, nil
	default:
		return nil, fmt.Errorf("unexpected geometry type %s", geometry.Type)
	}
}

// profile camel cases the mode, as OSRM profiles are named
func profile(mode string) string {
	words := strings.FieldsFunc(mode, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	var b strings.Builder
	for i, word := range words {
		word = strings.ToLower(word)
		if i > 0 {
			runes := []rune(word)
			runes[0] = unicode.ToUpper(runes[0])
			word = string(runes)
		}
		b.WriteString(word)
	}
	return b.String()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// MatchResponse represents the match service response
type MatchResponse struct {
	Code        string            `json:"code"`
	Message     string            `json:"message,omitempty"`
	Tracepoints []*OSRMTracepoint `json:"tracepoints"`
	Matchings   []OSRMMatching    `json:"matchings"`
}

// OSRMTracepoint is the network location a request point was matched to
type OSRMTracepoint struct {
	Location      [2]float64 `json:"location"`
	MatchingIndex int        `json:"matchings_index"`
	WaypointIndex int        `json:"waypoint_index"`
}

// OSRMMatching represents one matched route
type OSRMMatching struct {
	Confidence float64   `json:"confidence"`
	Distance   float64   `json:"distance"`
	Duration   float64   `json:"duration"`
	Legs       []OSRMLeg `json:"legs"`
}

// OSRMLeg represents the route between two matched tracepoints
type OSRMLeg struct {
	Distance float64    `json:"distance"`
	Duration float64    `json:"duration"`
	Steps    []OSRMStep `json:"steps"`
}

// OSRMStep represents a maneuver and the geometry up to the next one
type OSRMStep struct {
	Distance float64         `json:"distance"`
	Duration float64         `json:"duration"`
	Geometry json.RawMessage `json:"geometry"`
}
