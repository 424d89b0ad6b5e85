package store

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"github.com/dpup/transit.paths/server/internal/lib/path"
)

// NodeStore keeps nodes in memory
type NodeStore struct {
	nodes map[string]*path.Node
	mutex sync.RWMutex
}

// NewNodeStore creates a NodeStore holding nodes
func NewNodeStore(nodes ...*path.Node) *NodeStore {
	s := &NodeStore{nodes: make(map[string]*path.Node, len(nodes))}
	for _, node := range nodes {
		s.nodes[node.ID] = node
	}
	return s
}

// NodeByID implements path.NodeRepository
func (s *NodeStore) NodeByID(ctx context.Context, id string) (*path.Node, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	node, ok := s.nodes[id]
	if !ok {
		return nil, errors.Wrapf(path.ErrNodeNotFound, "node %s", id)
	}
	return node, nil
}

// Put adds or replaces a node
func (s *NodeStore) Put(node *path.Node) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.nodes[node.ID] = node
}

// Len returns the number of nodes
func (s *NodeStore) Len() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return len(s.nodes)
}

// LineStore keeps lines in memory
type LineStore struct {
	lines map[string]*path.Line
	mutex sync.RWMutex
}

func NewLineStore(lines ...*path.Line) *LineStore {
	s := &LineStore{lines: make(map[string]*path.Line, len(lines))}
	for _, line := range lines {
		s.lines[line.ID] = line
	}
	return s
}

// LineByID implements path.LineRepository. The returned line is a copy.
func (s *LineStore) LineByID(ctx context.Context, id string) (*path.Line, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	line, ok := s.lines[id]
	if !ok {
		return nil, errors.Wrapf(path.ErrLineNotFound, "line %s", id)
	}
	copied := *line
	copied.PathIDs = slices.Clone(line.PathIDs)
	return &copied, nil
}

func (s *LineStore) Put(line *path.Line) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.lines[line.ID] = line
}

// SetPathIDs replaces the paths of a line
func (s *LineStore) SetPathIDs(ctx context.Context, lineID string, pathIDs []string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	line, ok := s.lines[lineID]
	if !ok {
		return errors.Wrapf(path.ErrLineNotFound, "line %s", lineID)
	}
	line.PathIDs = slices.Clone(pathIDs)
	return nil
}

// PathStore keeps paths in memory. Paths are stored as given, callers
// serialize edits of the same path.
type PathStore struct {
	paths map[string]*path.Path
	mutex sync.RWMutex
}

func NewPathStore(paths ...*path.Path) *PathStore {
	s := &PathStore{paths: make(map[string]*path.Path, len(paths))}
	for _, p := range paths {
		s.paths[p.ID] = p
	}
	return s
}

// Get returns the path with the given id
func (s *PathStore) Get(ctx context.Context, id string) (*path.Path, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	p, ok := s.paths[id]
	if !ok {
		return nil, errors.Wrapf(path.ErrPathNotFound, "path %s", id)
	}
	return p, nil
}

// Save adds or replaces a path
func (s *PathStore) Save(ctx context.Context, p *path.Path) error {
	if p.ID == "" {
		return errors.New("path has no id")
	}
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.paths[p.ID] = p
	return nil
}

// ByLine returns the paths of a line, sorted by id
func (s *PathStore) ByLine(ctx context.Context, lineID string) []*path.Path {
	return s.filter(func(p *path.Path) bool {
		return p.LineID == lineID
	})
}

// RoutingFailed returns the paths whose last routing failed, sorted by id
func (s *PathStore) RoutingFailed(ctx context.Context) []*path.Path {
	return s.filter(func(p *path.Path) bool {
		return p.Data.RoutingFailed
	})
}

func (s *PathStore) filter(keep func(p *path.Path) bool) []*path.Path {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	paths := []*path.Path{}
	for _, p := range s.paths {
		if keep(p) {
			paths = append(paths, p)
		}
	}
	slices.SortFunc(paths, func(a, b *path.Path) int {
		return strings.Compare(a.ID, b.ID)
	})
	return paths
}
