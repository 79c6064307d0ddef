// Package typescript renders schema nodes as TypeScript type declarations.
package typescript

import (
	"strconv"
	"strings"

	"github.com/skyleague/therefore-sub001/dialect"
	"github.com/skyleague/therefore-sub001/emit"
	"github.com/skyleague/therefore-sub001/graph"
)

// Subtype of the type strategy.
const Subtype = "type"

// Options configures the type strategy. Field tags name the dialect spec
// options, e.g. "typescript?readonly=true".
type Options struct {
	// Interfaces renders named objects as interfaces instead of type
	// aliases.
	Interfaces bool `schema:"interfaces"`

	// ReadonlyArrays renders arrays as readonly T[].
	ReadonlyArrays bool `schema:"readonly"`

	// UnknownType is the type used for unknown values: "unknown" or "any".
	UnknownType string `schema:"unknown" validate:"oneof=unknown any"`
}

// DefaultOptions returns the options used when the dialect spec sets none.
func DefaultOptions() Options {
	return Options{Interfaces: true, UnknownType: "unknown"}
}

// TypeStrategy renders declarations that exist only at compile time.
type TypeStrategy struct {
	opts      Options
	localOnly bool

	// via is the subtype that declares referenced and hoisted nodes.
	via string

	// refType overrides how a named node is referenced when it reports ok.
	refType func(ctx *emit.Context, n graph.Node) (string, bool)
}

// NewTypeStrategy returns a type strategy.
func NewTypeStrategy(opts Options) *TypeStrategy {
	if opts.UnknownType == "" {
		opts.UnknownType = "unknown"
	}
	return &TypeStrategy{opts: opts, via: Subtype}
}

// LocalOnly returns a copy of s that only declares unnamed nodes. Files
// whose own strategies render values use it to hold hoisted inline types.
func (s *TypeStrategy) LocalOnly() *TypeStrategy {
	c := *s
	c.localOnly = true
	return &c
}

// DeclaredBy returns a copy of s whose references are declared by the
// strategy with the given subtype instead of by type declarations.
func (s *TypeStrategy) DeclaredBy(subtype string) *TypeStrategy {
	c := *s
	c.via = subtype
	return &c
}

// WithReferenceType returns a copy of s that asks fn first how to refer to
// a named node. Strategies that do not declare a type for every node use
// it to spell the type some other way.
func (s *TypeStrategy) WithReferenceType(fn func(ctx *emit.Context, n graph.Node) (string, bool)) *TypeStrategy {
	c := *s
	c.refType = fn
	return &c
}

func (s *TypeStrategy) Subtype() string             { return Subtype }
func (s *TypeStrategy) IsTypeOnly() bool            { return true }
func (s *TypeStrategy) IsGenerated(graph.Node) bool { return true }
func (s *TypeStrategy) OnExport() []emit.ExportHook { return nil }

// Enabled excludes validators and services, which have no type of their
// own.
func (s *TypeStrategy) Enabled(n graph.Node) bool {
	if s.localOnly && n.Base().Name != "" {
		return false
	}
	switch n.(type) {
	case *graph.ValidatorNode, *graph.ServiceNode:
		return false
	}
	return true
}

// Definition renders n as an interface or a type alias.
func (s *TypeStrategy) Definition(n graph.Node, ctx *emit.Context) (string, bool) {
	name := ctx.TypeName(n)
	doc := dialect.DocComment(n.Base().Description, "")
	if obj, ok := n.(*graph.ObjectNode); ok && s.opts.Interfaces {
		return doc + ctx.Declare("interface", n) + " " + s.object(ctx, obj, name, ""), true
	}
	return doc + ctx.Declare("type", n) + " = " + s.body(ctx, n, name, ""), true
}

// Expr returns the type expression for n. Named nodes are referenced,
// anything else is written inline. hint names hoisted array elements.
func (s *TypeStrategy) Expr(ctx *emit.Context, n graph.Node, hint string) string {
	return s.expr(ctx, n, hint, "")
}

// Body returns the type expression for n itself, without referencing n
// by name.
func (s *TypeStrategy) Body(ctx *emit.Context, n graph.Node, hint string) string {
	return s.body(ctx, n, hint, "")
}

func (s *TypeStrategy) expr(ctx *emit.Context, n graph.Node, hint, indent string) string {
	if n.Base().Name != "" {
		return s.reference(ctx, n, hint, indent)
	}
	return s.body(ctx, n, hint, indent)
}

func (s *TypeStrategy) reference(ctx *emit.Context, n graph.Node, hint, indent string) string {
	// A validator is referenced as the type it validates.
	if v, ok := n.(*graph.ValidatorNode); ok {
		return s.expr(ctx, v.Child, hint, indent)
	}
	if s.refType != nil {
		if out, ok := s.refType(ctx, n); ok {
			return out
		}
	}
	return ctx.Reference(n, emit.Via(s.via)).String()
}

func (s *TypeStrategy) body(ctx *emit.Context, n graph.Node, hint, indent string) string {
	switch t := n.(type) {
	case *graph.ObjectNode:
		return s.object(ctx, t, hint, indent)
	case *graph.ArrayNode:
		var elem string
		if obj, ok := t.Element.(*graph.ObjectNode); ok && obj.Name == "" {
			elem = ctx.Local(obj, hint+"Item", emit.Via(s.via)).String()
		} else {
			elem = group(s.expr(ctx, t.Element, hint+"Item", indent))
		}
		if s.opts.ReadonlyArrays {
			return "readonly " + elem + "[]"
		}
		return elem + "[]"
	case *graph.TupleNode:
		items := make([]string, len(t.Items))
		for i, item := range t.Items {
			items[i] = s.expr(ctx, item, hint+strconv.Itoa(i), indent)
		}
		return "[" + strings.Join(items, ", ") + "]"
	case *graph.RecordNode:
		return "Record<string, " + s.expr(ctx, t.Value, hint+"Value", indent) + ">"
	case *graph.UnionNode:
		return s.join(ctx, t.Members, " | ", hint, indent)
	case *graph.IntersectionNode:
		return s.join(ctx, t.Members, " & ", hint, indent)
	case *graph.EnumNode:
		values := make([]string, len(t.Values))
		for i, v := range t.Values {
			values[i] = dialect.Literal(v)
		}
		if len(values) == 0 {
			return "never"
		}
		return strings.Join(values, " | ")
	case *graph.ConstNode:
		return dialect.Literal(t.Value)
	case *graph.PrimitiveNode:
		return s.primitive(t)
	case *graph.OptionalNode:
		return s.expr(ctx, t.Inner, hint, indent) + " | undefined"
	case *graph.NullableNode:
		return s.expr(ctx, t.Inner, hint, indent) + " | null"
	case *graph.RefNode:
		if t.Target == nil {
			return s.opts.UnknownType
		}
		return s.expr(ctx, t.Target, hint, indent)
	case *graph.ValidatorNode:
		return s.expr(ctx, t.Child, hint, indent)
	}
	return s.opts.UnknownType
}

func (s *TypeStrategy) join(ctx *emit.Context, members []graph.Node, sep, hint, indent string) string {
	if len(members) == 0 {
		if sep == " | " {
			return "never"
		}
		return s.opts.UnknownType
	}
	parts := make([]string, len(members))
	for i, m := range members {
		part := s.expr(ctx, m, hint+strconv.Itoa(i), indent)
		if sep == " & " {
			part = group(part)
		}
		parts[i] = part
	}
	return strings.Join(parts, sep)
}

func (s *TypeStrategy) primitive(p *graph.PrimitiveNode) string {
	switch p.Type {
	case graph.PrimitiveString:
		return "string"
	case graph.PrimitiveNumber, graph.PrimitiveInteger:
		return "number"
	case graph.PrimitiveBoolean:
		return "boolean"
	case graph.PrimitiveNull:
		return "null"
	}
	return s.opts.UnknownType
}

func (s *TypeStrategy) object(ctx *emit.Context, obj *graph.ObjectNode, hint, indent string) string {
	if len(obj.Properties) == 0 && obj.Additional == nil {
		return "{}"
	}
	inner := indent + "  "
	var b strings.Builder
	b.WriteString("{\n")
	for _, p := range obj.Properties {
		node, optional, nullable := graph.Unwrap(p.Node)
		description := node.Base().Description
		if description == "" {
			description = p.Node.Base().Description
		}
		b.WriteString(dialect.DocComment(description, inner))
		b.WriteString(inner)
		b.WriteString(dialect.PropertyKey(p.Name))
		if optional {
			b.WriteByte('?')
		}
		b.WriteString(": ")
		b.WriteString(s.expr(ctx, node, hint+dialect.Pascal(p.Name), inner))
		if nullable {
			b.WriteString(" | null")
		}
		b.WriteByte('\n')
	}
	if obj.Additional != nil {
		b.WriteString(inner)
		b.WriteString("[key: string]: ")
		b.WriteString(s.expr(ctx, obj.Additional, hint+"Value", inner))
		b.WriteByte('\n')
	}
	b.WriteString(indent)
	b.WriteString("}")
	return b.String()
}

// group parenthesizes compound type expressions used as operands.
func group(t string) string {
	if strings.Contains(t, " | ") || strings.Contains(t, " & ") {
		return "(" + t + ")"
	}
	return t
}
