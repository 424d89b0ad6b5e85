package routing

import (
	"fmt"
	"sync"
)

// registry implements the Registry interface
type registry struct {
	matchers   map[Engine]Matcher
	cacheMutex sync.RWMutex
}

// NewRegistry creates a Registry with the manual matcher already registered
func NewRegistry() Registry {
	return &registry{
		matchers: map[Engine]Matcher{
			EngineManual: NewManualMatcher(),
		},
	}
}

// MatcherForEngine returns the matcher registered for engine
func (r *registry) MatcherForEngine(engine Engine) (Matcher, error) {
	r.cacheMutex.RLock()
	defer r.cacheMutex.RUnlock()

	matcher, ok := r.matchers[engine]
	if !ok {
		return nil, fmt.Errorf("no matcher registered for routing engine %q", engine)
	}
	return matcher, nil
}

// Register sets the matcher used for engine
func (r *registry) Register(engine Engine, matcher Matcher) {
	r.cacheMutex.Lock()
	defer r.cacheMutex.Unlock()

	r.matchers[engine] = matcher
}
