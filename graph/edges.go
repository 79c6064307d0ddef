package graph

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// Edges are the outgoing edges of a node.
type Edges struct {
	// Children are structurally owned nodes (properties, elements, members).
	Children []Node

	// Connections are referenced but not owned nodes (ref targets,
	// service payloads).
	Connections []Node
}

// EdgesOf computes the edges of n from its fields.
func EdgesOf(n Node) Edges {
	switch t := n.(type) {
	case *ObjectNode:
		children := make([]Node, 0, len(t.Properties)+1)
		for _, p := range t.Properties {
			children = append(children, p.Node)
		}
		if t.Additional != nil {
			children = append(children, t.Additional)
		}
		return Edges{Children: children}
	case *ArrayNode:
		return Edges{Children: nonNil(t.Element)}
	case *TupleNode:
		return Edges{Children: nonNil(t.Items...)}
	case *RecordNode:
		return Edges{Children: nonNil(t.Value)}
	case *UnionNode:
		return Edges{Children: nonNil(t.Members...)}
	case *IntersectionNode:
		return Edges{Children: nonNil(t.Members...)}
	case *EnumNode, *ConstNode, *PrimitiveNode:
		return Edges{}
	case *OptionalNode:
		return Edges{Children: nonNil(t.Inner)}
	case *NullableNode:
		return Edges{Children: nonNil(t.Inner)}
	case *RefNode:
		return Edges{Connections: nonNil(t.Target)}
	case *ValidatorNode:
		return Edges{Children: nonNil(t.Child)}
	case *ServiceNode:
		var conns []Node
		for _, ep := range t.Endpoints {
			conns = append(conns, nonNil(ep.Request, ep.Response)...)
		}
		return Edges{Connections: conns}
	default:
		return Edges{}
	}
}

func nonNil(nodes ...Node) []Node {
	out := make([]Node, 0, len(nodes))
	for _, n := range nodes {
		if n != nil {
			out = append(out, n)
		}
	}
	return out
}

// Transparent reports whether n is a pass-through wrapper (optional or
// nullable) that renders as its inner node plus a modifier.
func Transparent(n Node) bool {
	switch n.(type) {
	case *OptionalNode, *NullableNode:
		return true
	}
	return false
}

// Unwrap strips transparent wrappers and reports whether an optional and
// a nullable wrapper were seen.
func Unwrap(n Node) (inner Node, optional, nullable bool) {
	for Transparent(n) {
		switch t := n.(type) {
		case *OptionalNode:
			optional = true
			n = t.Inner
		case *NullableNode:
			nullable = true
			n = t.Inner
		}
	}
	return n, optional, nullable
}

// Referenceable reports whether n can be referenced by name from other
// declarations: it has a declared name and a known source or was retained.
func Referenceable(n Node) bool {
	m := n.Base()
	return m.Name != "" && (m.Source != "" || m.Retained)
}

// Walk visits n and every node reachable from it once, connections before
// children. Returning false from fn stops descent below that node.
func Walk(n Node, fn func(Node) bool) {
	seen := make(map[Node]bool)
	var visit func(Node)
	visit = func(n Node) {
		if seen[n] {
			return
		}
		seen[n] = true
		if !fn(n) {
			return
		}
		e := EdgesOf(n)
		for _, c := range e.Connections {
			visit(c)
		}
		for _, c := range e.Children {
			visit(c)
		}
	}
	visit(n)
}

// EdgeCache memoizes EdgesOf for repeated traversals of the same graph.
type EdgeCache struct {
	cache *lru.Cache[ID, Edges]
}

// NewEdgeCache returns a cache holding at most size entries.
func NewEdgeCache(size int) *EdgeCache {
	if size <= 0 {
		size = 1024
	}
	c, err := lru.New[ID, Edges](size)
	if err != nil {
		// lru.New only fails for non-positive sizes.
		panic(err)
	}
	return &EdgeCache{cache: c}
}

// Edges returns the cached edges of n, computing them on a miss.
func (c *EdgeCache) Edges(n Node) Edges {
	id := n.Base().ID
	if e, ok := c.cache.Get(id); ok {
		return e
	}
	e := EdgesOf(n)
	c.cache.Add(id, e)
	return e
}
