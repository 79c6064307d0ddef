// Package graph defines the schema node graph consumed by the generator.
// Nodes form a closed set of kinds; callers dispatch on them with a type
// switch. Resolved per-dialect symbol data is not stored on nodes, see the
// symbol package.
package graph

import "strings"

// ID is a stable opaque node identity. IDs never contain '{', '}' or ':'
// so they can be embedded in symbol placeholders.
type ID string

// Valid reports whether the id can be embedded in a placeholder.
func (id ID) Valid() bool {
	return id != "" && !strings.ContainsAny(string(id), "{}:")
}

// Meta holds the attributes shared by every node.
type Meta struct {
	// ID is unique per node instance and stable for a generation run.
	ID ID

	// Name is the declared name. Empty for inline nodes.
	Name string

	// Description is emitted as a doc comment where the dialect supports it.
	Description string

	// Source is the schema document the node was declared in.
	Source string

	// Retained marks a named node without a Source as referenceable anyway.
	Retained bool

	// Alias is a caller-chosen disambiguated name. Nodes with an alias are
	// never suffixed during collision resolution.
	Alias string

	// Lazy marks a node whose definition must be deferred (recursive types).
	Lazy bool

	// Generated marks machine-produced content; files containing it carry
	// the generated banner.
	Generated bool
}

// Base returns the shared attributes. It is promoted into every node type.
func (m *Meta) Base() *Meta { return m }

// Node is implemented by every schema node kind in this package.
type Node interface {
	// Kind returns the node kind for dispatch and ordering.
	Kind() Kind

	// Base returns the shared attributes.
	Base() *Meta

	sealed()
}

// Property is a named member of an object.
type Property struct {
	Name string
	Node Node
}

// ObjectNode is an object with ordered properties.
type ObjectNode struct {
	Meta
	Properties []Property

	// Additional is the schema for undeclared keys, nil when closed.
	Additional Node
}

// ArrayNode is a homogeneous list.
type ArrayNode struct {
	Meta
	Element  Node
	MinItems *int
	MaxItems *int
}

// TupleNode is a fixed positional list.
type TupleNode struct {
	Meta
	Items []Node
}

// RecordNode is a string-keyed dictionary.
type RecordNode struct {
	Meta
	Value Node
}

// UnionNode accepts any one of its members.
type UnionNode struct {
	Meta
	Members []Node
}

// IntersectionNode requires all of its members.
type IntersectionNode struct {
	Meta
	Members []Node
}

// EnumNode is a closed set of literal values. Values are string, int64,
// float64 or bool.
type EnumNode struct {
	Meta
	Values []any
}

// ConstNode is a single literal value.
type ConstNode struct {
	Meta
	Value any
}

// PrimitiveNode is a built-in scalar.
type PrimitiveNode struct {
	Meta
	Type PrimitiveType

	// Format is an optional string format such as "date-time" or "uuid".
	Format string

	// Validate holds go-playground style rules, e.g. "required,min=3,email".
	Validate string
}

// OptionalNode marks its inner node as possibly absent.
type OptionalNode struct {
	Meta
	Inner Node
}

// NullableNode marks its inner node as possibly null.
type NullableNode struct {
	Meta
	Inner Node
}

// RefNode points at another node without owning it.
type RefNode struct {
	Meta
	Target Node
}

// ValidatorNode wraps the validated type. The validated type is its only
// child and is always declared immediately before the validator.
type ValidatorNode struct {
	Meta
	Child Node
}

// Endpoint is a single operation of a service.
type Endpoint struct {
	Name     string
	Method   string
	Path     string
	Request  Node
	Response Node
	Summary  string
}

// ServiceNode is a REST service rendered as a client class.
type ServiceNode struct {
	Meta
	Endpoints []Endpoint
}

func (*ObjectNode) Kind() Kind       { return KindObject }
func (*ArrayNode) Kind() Kind        { return KindArray }
func (*TupleNode) Kind() Kind        { return KindTuple }
func (*RecordNode) Kind() Kind       { return KindRecord }
func (*UnionNode) Kind() Kind        { return KindUnion }
func (*IntersectionNode) Kind() Kind { return KindIntersection }
func (*EnumNode) Kind() Kind         { return KindEnum }
func (*ConstNode) Kind() Kind        { return KindConst }
func (*PrimitiveNode) Kind() Kind    { return KindPrimitive }
func (*OptionalNode) Kind() Kind     { return KindOptional }
func (*NullableNode) Kind() Kind     { return KindNullable }
func (*RefNode) Kind() Kind          { return KindRef }
func (*ValidatorNode) Kind() Kind    { return KindValidator }
func (*ServiceNode) Kind() Kind      { return KindService }

func (*ObjectNode) sealed()       {}
func (*ArrayNode) sealed()        {}
func (*TupleNode) sealed()        {}
func (*RecordNode) sealed()       {}
func (*UnionNode) sealed()        {}
func (*IntersectionNode) sealed() {}
func (*EnumNode) sealed()         {}
func (*ConstNode) sealed()        {}
func (*PrimitiveNode) sealed()    {}
func (*OptionalNode) sealed()     {}
func (*NullableNode) sealed()     {}
func (*RefNode) sealed()          {}
func (*ValidatorNode) sealed()    {}
func (*ServiceNode) sealed()      {}
