package geography

import (
	"context"

	"github.com/dpup/transit.paths/server/internal/lib/path"
)

// Generator interface defines the geography update of a path
type Generator interface {
	// Route the path nodes and waypoints and store the resulting geography
	// and statistics in the path. change is the last edit made to the path,
	// nil for a full recomputation.
	UpdateGeography(ctx context.Context, p *path.Path, change *path.PendingChange) Result
}

// NewGenerator is implemented in generator.go
