package routing

import (
	"context"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManualMatcher_MapMatch(t *testing.T) {
	matcher := NewManualMatcher()

	req := MapMatchRequest{
		Mode:                "bus",
		DefaultRunningSpeed: 10,
		Points: []MatchPoint{
			{Coordinates: orb.Point{-73.0, 45.0}, IsNode: true, Type: EngineManual},
			{Coordinates: orb.Point{-73.0, 45.01}, Type: EngineManual},
			{Coordinates: orb.Point{-73.0, 45.02}, IsNode: true, Type: EngineManual},
		},
	}

	result, err := matcher.MapMatch(context.Background(), req)
	require.NoError(t, err)

	require.Len(t, result.Tracepoints, 3)
	assert.False(t, result.HasUnmatchedPoint())
	require.Len(t, result.Matchings, 1)
	require.Len(t, result.Matchings[0].Legs, 2)

	leg := result.Matchings[0].Legs[0]
	assert.InDelta(t, 1113, leg.Distance, 2)
	assert.InDelta(t, leg.Distance/10, leg.Duration, 1e-9)
	require.Len(t, leg.Steps, 1)
	assert.Equal(t, orb.LineString{{-73.0, 45.0}, {-73.0, 45.01}}, leg.Steps[0].Geometry)
	assert.InDelta(t, 2*leg.Distance, result.Matchings[0].Distance, 1e-6)
}

func TestManualMatcher_InvalidRequests(t *testing.T) {
	matcher := NewManualMatcher()

	_, err := matcher.MapMatch(context.Background(), MapMatchRequest{
		DefaultRunningSpeed: 10,
		Points:              []MatchPoint{{Coordinates: orb.Point{-73, 45}}},
	})
	assert.Error(t, err, "a single point cannot be routed")

	_, err = matcher.MapMatch(context.Background(), MapMatchRequest{
		Points: []MatchPoint{{Coordinates: orb.Point{-73, 45}}, {Coordinates: orb.Point{-73, 45.1}}},
	})
	assert.Error(t, err, "running speed is required")
}

func TestRegistry(t *testing.T) {
	registry := NewRegistry()

	matcher, err := registry.MatcherForEngine(EngineManual)
	require.NoError(t, err)
	assert.NotNil(t, matcher)

	_, err = registry.MatcherForEngine(EngineNative)
	assert.Error(t, err)

	registry.Register(EngineNative, matcher)
	resolved, err := registry.MatcherForEngine(EngineNative)
	require.NoError(t, err)
	assert.Same(t, matcher, resolved)
}

func TestUnmatchedResult(t *testing.T) {
	result := UnmatchedResult(3)
	assert.Len(t, result.Tracepoints, 3)
	assert.True(t, result.HasUnmatchedPoint())
	assert.Empty(t, result.Matchings)
}
