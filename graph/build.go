package graph

import "strconv"

// Constructors for inline nodes. Named declarations are usually built by the
// loader; these helpers keep hand-written graphs in tests and examples short.

// String returns an inline string primitive.
func String() *PrimitiveNode { return &PrimitiveNode{Type: PrimitiveString} }

// Number returns an inline number primitive.
func Number() *PrimitiveNode { return &PrimitiveNode{Type: PrimitiveNumber} }

// Integer returns an inline integer primitive.
func Integer() *PrimitiveNode { return &PrimitiveNode{Type: PrimitiveInteger} }

// Boolean returns an inline boolean primitive.
func Boolean() *PrimitiveNode { return &PrimitiveNode{Type: PrimitiveBoolean} }

// Unknown returns an inline unknown primitive.
func Unknown() *PrimitiveNode { return &PrimitiveNode{Type: PrimitiveUnknown} }

// Optional wraps inner as optional.
func Optional(inner Node) *OptionalNode { return &OptionalNode{Inner: inner} }

// Nullable wraps inner as nullable.
func Nullable(inner Node) *NullableNode { return &NullableNode{Inner: inner} }

// Ref returns an inline reference to target.
func Ref(target Node) *RefNode { return &RefNode{Target: target} }

// ArrayOf returns an inline array of element.
func ArrayOf(element Node) *ArrayNode { return &ArrayNode{Element: element} }

// Prop returns a property.
func Prop(name string, n Node) Property { return Property{Name: name, Node: n} }

// Named sets the declared name and source of n and returns it.
func Named[N Node](n N, id ID, name, source string) N {
	m := n.Base()
	m.ID = id
	m.Name = name
	m.Source = source
	return n
}

// AssignIDs gives every reachable node without an id a deterministic id
// derived from prefix and its discovery position.
func AssignIDs(prefix string, roots ...Node) {
	counter := 0
	for _, r := range roots {
		Walk(r, func(n Node) bool {
			m := n.Base()
			if m.ID == "" {
				counter++
				m.ID = ID(prefix + "-" + strconv.Itoa(counter))
			}
			return true
		})
	}
}
