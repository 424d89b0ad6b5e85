package services

import (
	"context"
	"log"
	"runtime/debug"
	"sync"
	"time"

	prefaberrors "github.com/dpup/prefab/errors"
	"github.com/dpup/prefab/logging"

	"github.com/dpup/transit.paths/server/internal/config"
)

// PeriodicRefreshService retries the routing of failed paths on an interval,
// so that paths recover once the routing backend is reachable again
type PeriodicRefreshService struct {
	pathService *PathService
	config      config.RefreshConfig

	stopChan chan struct{}
	running  bool
	mutex    sync.Mutex
}

// NewPeriodicRefreshService creates a new periodic refresh service
func NewPeriodicRefreshService(pathService *PathService, config config.RefreshConfig) *PeriodicRefreshService {
	return &PeriodicRefreshService{
		pathService: pathService,
		config:      config,
	}
}

// StartPeriodicRefresh starts retrying failed paths every config.Interval
func (p *PeriodicRefreshService) StartPeriodicRefresh(ctx context.Context) error {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if p.running {
		return nil // Already running
	}
	p.running = true
	p.stopChan = make(chan struct{})
	ctx = logging.EnsureLogger(ctx)

	log.Printf("Starting periodic refresh of failed paths every %v", p.config.Interval)
	go p.refreshLoop(ctx, p.config.Interval, p.stopChan)
	return nil
}

// Stop stops the periodic refresh
func (p *PeriodicRefreshService) Stop() {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if !p.running {
		return
	}
	p.running = false
	close(p.stopChan)
	log.Printf("Stopped periodic refresh service")
}

// IsRunning returns whether periodic refresh is active
func (p *PeriodicRefreshService) IsRunning() bool {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.running
}

func (p *PeriodicRefreshService) refreshLoop(ctx context.Context, interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Printf("Periodic refresh stopping due to context cancellation")
			return
		case <-stop:
			return
		case <-ticker.C:
			p.retryFailedPaths(ctx)
		}
	}
}

// retryFailedPaths recomputes the failed paths once
func (p *PeriodicRefreshService) retryFailedPaths(ctx context.Context) {
	ctx = logging.EnsureLogger(ctx)
	defer func() {
		if r := recover(); r != nil {
			err, _ := prefaberrors.ParseStack(debug.Stack())
			logging.Errorw(ctx, "panic in periodic refresh", "panic", r, "stack", err.MinimalStack(3, 5))
		}
	}()

	refreshCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	results := p.pathService.RecomputeFailed(refreshCtx)
	if len(results) == 0 {
		return
	}
	recovered := 0
	for _, r := range results {
		if r.Error == "" && r.Result.IsOK() {
			recovered++
		}
	}
	log.Printf("Periodic refresh: %d of %d failed paths recovered", recovered, len(results))
}
