package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dpup/prefab/logging"

	"github.com/dpup/transit.paths/server/internal/lib/routing"
)

// CachedMatcher serves repeated map matching requests from the cache.
// Unmatched results are cached, errors are not.
type CachedMatcher struct {
	matcher routing.Matcher
	cache   *Cache
	engine  routing.Engine
	ttl     time.Duration
}

// NewCachedMatcher wraps matcher. A zero ttl disables caching.
func NewCachedMatcher(matcher routing.Matcher, cache *Cache, engine routing.Engine, ttl time.Duration) *CachedMatcher {
	return &CachedMatcher{
		matcher: matcher,
		cache:   cache,
		engine:  engine,
		ttl:     ttl,
	}
}

// MapMatch implements routing.Matcher
func (m *CachedMatcher) MapMatch(ctx context.Context, req routing.MapMatchRequest) (*routing.MapMatchResult, error) {
	if m.ttl <= 0 {
		return m.matcher.MapMatch(ctx, req)
	}

	ctx = logging.EnsureLogger(ctx)
	key, err := RequestKey(m.engine, req)
	if err != nil {
		return nil, err
	}

	var cached routing.MapMatchResult
	found, err := m.cache.Get(key, &cached)
	if err != nil {
		logging.Warnw(ctx, "Failed to read cached map matching result", "engine", m.engine, "error", err)
	} else if found {
		return &cached, nil
	}

	result, err := m.matcher.MapMatch(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := m.cache.Set(key, result, m.ttl, string(m.engine)); err != nil {
		logging.Warnw(ctx, "Failed to cache map matching result", "engine", m.engine, "error", err)
	}
	return result, nil
}

// RequestKey hashes the engine and request content
func RequestKey(engine routing.Engine, req routing.MapMatchRequest) (string, error) {
	content, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to marshal map matching request: %w", err)
	}
	hash := sha256.Sum256(append([]byte(string(engine)+"|"), content...))
	return fmt.Sprintf("match:%x", hash), nil
}
