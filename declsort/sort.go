// Package declsort orders the declarations of one output file so that
// runtime values are defined before they are used.
//
// Declarations are grouped into roots. A validator and the type it
// validates form a single root and are always emitted together, type
// first. Dependencies between roots come from the node graph; references
// to type-only declarations never force an order, and lazily defined nodes
// are not descended into. Roots are then sorted with Kahn's algorithm using
// symbol.Compare to break ties. Cycles are reported and the remaining
// declarations appended in their incoming order, so no declaration is ever
// dropped.
package declsort

import (
	"log/slog"
	"slices"

	"github.com/skyleague/therefore-sub001/graph"
	"github.com/skyleague/therefore-sub001/symbol"
)

// Unit is one rendered declaration.
type Unit struct {
	Node graph.Node
	Text string

	// Subtype names the strategy that rendered the unit.
	Subtype string

	// TypeOnly marks declarations that exist only at compile time.
	TypeOnly bool
}

// Options configures Sort.
type Options struct {
	// Logger receives cycle diagnostics. Defaults to slog.Default().
	Logger *slog.Logger

	// File names the output file in diagnostics.
	File string

	// Edges memoizes edge computation across calls. Optional.
	Edges *graph.EdgeCache
}

// Sort returns units in emission order and the ids of the roots that were
// part of a dependency cycle. Units are expected in their pre-sorted
// structural order; that order is kept among cyclic roots.
func Sort(units []Unit, opts Options) ([]Unit, []graph.ID) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	s := &sorter{
		opts:      opts,
		roots:     make(map[graph.ID]graph.Node),
		units:     make(map[graph.ID][]Unit),
		typeOnly:  make(map[graph.ID]bool),
		effective: make(map[graph.ID]graph.ID),
		validated: make(map[graph.ID]graph.ID),
		owner:     make(map[graph.Node]graph.ID),
		deps:      make(map[graph.ID]map[graph.ID]bool),
	}
	s.resolveRoots(units)
	s.mapNodesToRoots()
	s.buildDependencyGraph()
	order, cyclic := s.kahn()

	out := make([]Unit, 0, len(units))
	emitted := make(map[graph.ID]bool, len(s.order))
	emit := func(id graph.ID) {
		if emitted[id] {
			return
		}
		emitted[id] = true
		if t, ok := s.validated[id]; ok {
			out = append(out, s.units[t]...)
		}
		out = append(out, s.units[id]...)
	}
	for _, id := range order {
		emit(id)
	}

	if len(cyclic) > 0 {
		names := make([]string, len(cyclic))
		for i, id := range cyclic {
			names[i] = s.describe(id)
		}
		opts.Logger.Warn("dependency cycle between declarations, emitting remainder in structural order",
			slog.String("file", opts.File),
			slog.Any("roots", names))
		for _, id := range s.order {
			emit(s.eff(id))
		}
	}
	return out, cyclic
}

type sorter struct {
	opts Options

	roots map[graph.ID]graph.Node
	order []graph.ID
	units map[graph.ID][]Unit

	// typeOnly is true when every unit of the node is type-only.
	typeOnly map[graph.ID]bool

	// effective maps both members of a validator pair to the validator.
	effective map[graph.ID]graph.ID

	// validated maps a validator to the type it is paired with.
	validated map[graph.ID]graph.ID

	owner map[graph.Node]graph.ID
	deps  map[graph.ID]map[graph.ID]bool
}

func (s *sorter) eff(id graph.ID) graph.ID {
	if e, ok := s.effective[id]; ok {
		return e
	}
	return id
}

func (s *sorter) isRoot(n graph.Node) bool {
	r, ok := s.roots[n.Base().ID]
	return ok && r == n
}

// foreign reports whether n is a named declaration that lives elsewhere.
func (s *sorter) foreign(n graph.Node) bool {
	return graph.Referenceable(n) && !s.isRoot(n)
}

func (s *sorter) edges(n graph.Node) graph.Edges {
	if s.opts.Edges != nil {
		return s.opts.Edges.Edges(n)
	}
	return graph.EdgesOf(n)
}

func (s *sorter) describe(id graph.ID) string {
	n := s.roots[id]
	if name := n.Base().Name; name != "" {
		return name
	}
	return string(id)
}

// resolveRoots makes every unit's node a candidate root and collapses
// validator pairs onto the validator.
func (s *sorter) resolveRoots(units []Unit) {
	for _, u := range units {
		id := u.Node.Base().ID
		if _, ok := s.roots[id]; !ok {
			s.roots[id] = u.Node
			s.order = append(s.order, id)
			s.typeOnly[id] = true
		}
		if !u.TypeOnly {
			s.typeOnly[id] = false
		}
		s.units[id] = append(s.units[id], u)
	}

	for _, id := range s.order {
		v, ok := s.roots[id].(*graph.ValidatorNode)
		if !ok {
			continue
		}
		t := validatedType(v)
		if t == nil || !s.isRoot(t) {
			continue
		}
		tid := t.Base().ID
		if _, paired := s.effective[tid]; paired || tid == id {
			continue
		}
		s.effective[tid] = id
		s.effective[id] = id
		s.validated[id] = tid
	}
}

// validatedType follows references from a validator to the validated type.
func validatedType(v *graph.ValidatorNode) graph.Node {
	n := v.Child
	for range 16 {
		ref, ok := n.(*graph.RefNode)
		if !ok || ref.Target == nil {
			return n
		}
		n = ref.Target
	}
	return n
}

// mapNodesToRoots assigns every inline node to the first root that reaches
// it. Each root walks with its own visited set and stops at other roots
// and at declarations of other files.
func (s *sorter) mapNodesToRoots() {
	for _, id := range s.order {
		r := s.eff(id)
		visited := make(map[graph.Node]bool)
		var visit func(graph.Node)
		visit = func(n graph.Node) {
			e := s.edges(n)
			for _, c := range slices.Concat(e.Connections, e.Children) {
				if visited[c] {
					continue
				}
				visited[c] = true
				if s.isRoot(c) || s.foreign(c) {
					continue
				}
				if _, owned := s.owner[c]; !owned {
					s.owner[c] = r
				}
				visit(c)
			}
		}
		visit(s.roots[id])
	}
}

// buildDependencyGraph records an edge A->B whenever the walk from root A
// reaches a node that belongs to root B.
func (s *sorter) buildDependencyGraph() {
	for _, id := range s.order {
		root := s.roots[id]
		if root.Base().Lazy {
			continue
		}
		a := s.eff(id)
		visited := make(map[graph.Node]bool)
		var visit func(graph.Node)
		visit = func(n graph.Node) {
			e := s.edges(n)
			for _, c := range slices.Concat(e.Connections, e.Children) {
				if visited[c] {
					continue
				}
				visited[c] = true
				if s.isRoot(c) {
					cid := c.Base().ID
					if !s.typeOnly[cid] {
						s.addEdge(a, s.eff(cid))
					}
					continue
				}
				if s.foreign(c) {
					continue
				}
				if o, ok := s.owner[c]; ok && o != a {
					if !s.typeOnly[o] {
						s.addEdge(a, o)
					}
					continue
				}
				if c.Base().Lazy {
					continue
				}
				visit(c)
			}
		}
		visit(root)
	}
}

func (s *sorter) addEdge(from, to graph.ID) {
	if from == to {
		return
	}
	if s.deps[from] == nil {
		s.deps[from] = make(map[graph.ID]bool)
	}
	s.deps[from][to] = true
}

func (s *sorter) compare(a, b graph.ID) int {
	return symbol.Compare(s.roots[a], s.roots[b])
}

// kahn sorts the effective roots. Dependers are dequeued before their
// dependencies, so the result is reversed before returning.
func (s *sorter) kahn() (order, cyclic []graph.ID) {
	var nodes []graph.ID
	for _, id := range s.order {
		if s.eff(id) == id {
			nodes = append(nodes, id)
		}
	}

	indeg := make(map[graph.ID]int, len(nodes))
	for _, id := range nodes {
		for to := range s.deps[id] {
			indeg[to]++
		}
	}

	var ready []graph.ID
	for _, id := range nodes {
		if indeg[id] == 0 {
			ready = append(ready, id)
		}
	}

	for len(ready) > 0 {
		slices.SortFunc(ready, s.compare)
		id := ready[0]
		ready = ready[1:]
		order = append(order, id)

		next := make([]graph.ID, 0, len(s.deps[id]))
		for to := range s.deps[id] {
			next = append(next, to)
		}
		slices.SortFunc(next, s.compare)
		for _, to := range next {
			indeg[to]--
			if indeg[to] == 0 {
				ready = append(ready, to)
			}
		}
	}
	slices.Reverse(order)

	if len(order) < len(nodes) {
		done := make(map[graph.ID]bool, len(order))
		for _, id := range order {
			done[id] = true
		}
		var left []graph.ID
		for _, id := range nodes {
			if !done[id] {
				left = append(left, id)
			}
		}
		onCycle := s.cycleMembers(left)
		for _, id := range left {
			if onCycle[id] {
				cyclic = append(cyclic, id)
			}
		}
	}
	return order, cyclic
}

// cycleMembers returns the nodes of ids that lie on a dependency cycle,
// that is every member of a strongly connected component with more than
// one node. Nodes Kahn could not place only because they are depended on
// by a cycle are left out.
func (s *sorter) cycleMembers(ids []graph.ID) map[graph.ID]bool {
	in := make(map[graph.ID]bool, len(ids))
	for _, id := range ids {
		in[id] = true
	}

	var (
		next    int
		index   = make(map[graph.ID]int, len(ids))
		low     = make(map[graph.ID]int, len(ids))
		onStack = make(map[graph.ID]bool, len(ids))
		stack   []graph.ID
		members = make(map[graph.ID]bool)
	)
	var connect func(graph.ID)
	connect = func(v graph.ID) {
		index[v] = next
		low[v] = next
		next++
		stack = append(stack, v)
		onStack[v] = true

		targets := make([]graph.ID, 0, len(s.deps[v]))
		for w := range s.deps[v] {
			if in[w] {
				targets = append(targets, w)
			}
		}
		slices.SortFunc(targets, s.compare)
		for _, w := range targets {
			if _, visited := index[w]; !visited {
				connect(w)
				low[v] = min(low[v], low[w])
			} else if onStack[w] {
				low[v] = min(low[v], index[w])
			}
		}

		if low[v] != index[v] {
			return
		}
		var scc []graph.ID
		for {
			w := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			onStack[w] = false
			scc = append(scc, w)
			if w == v {
				break
			}
		}
		if len(scc) > 1 {
			for _, w := range scc {
				members[w] = true
			}
		}
	}
	for _, id := range ids {
		if _, visited := index[id]; !visited {
			connect(id)
		}
	}
	return members
}
