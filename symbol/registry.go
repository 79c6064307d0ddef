package symbol

import (
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/skyleague/therefore-sub001/graph"
)

// ErrHomeConflict is returned when a node is claimed by two output files.
var ErrHomeConflict = errors.New("node already homed in another file")

// Registry is the per-dialect side table shared by all files of a run. It
// records which file declares each node and the name it is exported under.
// Entries are written at most once; rewriting the same value is a no-op.
type Registry struct {
	mu       sync.Mutex
	homes    map[graph.ID]string
	exported map[graph.ID]string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		homes:    make(map[graph.ID]string),
		exported: make(map[graph.ID]string),
	}
}

// Claim homes n in the file at path.
func (r *Registry) Claim(n graph.Node, path string) error {
	id := n.Base().ID
	r.mu.Lock()
	defer r.mu.Unlock()
	if home, ok := r.homes[id]; ok {
		if home == path {
			return nil
		}
		return errors.Wrapf(ErrHomeConflict, "%s %q: homed in %s, claimed by %s", n.Kind(), n.Base().Name, home, path)
	}
	r.homes[id] = path
	return nil
}

// Adopt returns the home of n, claiming it for path when it has none. The
// second result reports whether this call made the claim.
func (r *Registry) Adopt(n graph.Node, path string) (string, bool) {
	id := n.Base().ID
	r.mu.Lock()
	defer r.mu.Unlock()
	if home, ok := r.homes[id]; ok {
		return home, false
	}
	r.homes[id] = path
	return path, true
}

// Home returns the file that declares id.
func (r *Registry) Home(id graph.ID) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	home, ok := r.homes[id]
	return home, ok
}

// Publish records the final exported name of id.
func (r *Registry) Publish(id graph.ID, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if prev, ok := r.exported[id]; ok && prev != name {
		return errors.AssertionFailedf("symbol: %s already exported as %q, cannot publish %q", id, prev, name)
	}
	r.exported[id] = name
	return nil
}

// Exported returns the published name of id.
func (r *Registry) Exported(id graph.ID) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	name, ok := r.exported[id]
	return name, ok
}
