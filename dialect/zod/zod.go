// Package zod renders schema nodes as Zod schemas with inferred types.
package zod

import (
	"log/slog"
	"strconv"
	"strings"

	"github.com/skyleague/therefore-sub001/dialect"
	"github.com/skyleague/therefore-sub001/dialect/typescript"
	"github.com/skyleague/therefore-sub001/emit"
	"github.com/skyleague/therefore-sub001/graph"
)

// Subtype of the zod strategy.
const Subtype = "zod"

// Options configures the zod strategy.
type Options struct {
	// Infer adds `export type X = z.infer<typeof X>` after each schema.
	Infer bool `schema:"infer"`

	// Strict rejects unknown keys on closed objects.
	Strict bool `schema:"strict"`
}

// DefaultOptions returns the options used when the dialect spec sets none.
func DefaultOptions() Options {
	return Options{Infer: true}
}

// ZodStrategy renders every type node as a Zod schema constant.
type ZodStrategy struct {
	opts  Options
	types *typescript.TypeStrategy
}

// NewZodStrategy returns a zod strategy.
func NewZodStrategy(opts Options) *ZodStrategy {
	types := typescript.NewTypeStrategy(typescript.Options{}).DeclaredBy(Subtype)
	if !opts.Infer {
		types = types.WithReferenceType(inferred)
	}
	return &ZodStrategy{opts: opts, types: types}
}

// inferred spells the type of a schema that has no type alias. Only
// recursive schemas declare one when inference is off.
func inferred(ctx *emit.Context, n graph.Node) (string, bool) {
	if n.Base().Lazy {
		return "", false
	}
	z := ctx.External("zod", "z", true)
	return z + ".infer<typeof " + ctx.Value(n).String() + ">", true
}

func (s *ZodStrategy) Subtype() string             { return Subtype }
func (s *ZodStrategy) IsTypeOnly() bool            { return false }
func (s *ZodStrategy) IsGenerated(graph.Node) bool { return true }
func (s *ZodStrategy) OnExport() []emit.ExportHook { return nil }

// Enabled excludes validators, a Zod schema validates itself, and
// services.
func (s *ZodStrategy) Enabled(n graph.Node) bool {
	switch n.(type) {
	case *graph.ValidatorNode, *graph.ServiceNode:
		return false
	}
	return true
}

// Definition renders n as a schema constant. Recursive nodes get an
// explicit type since z.infer cannot see through z.lazy, and their schema
// is built on first use so it may refer to constants declared later.
func (s *ZodStrategy) Definition(n graph.Node, ctx *emit.Context) (string, bool) {
	z := ctx.External("zod", "z", true)
	name := ctx.TypeName(n)
	self := ctx.Reference(n).String()

	var b strings.Builder
	b.WriteString(dialect.DocComment(n.Base().Description, ""))
	if n.Base().Lazy {
		b.WriteString(ctx.Declare("type", n) + " = " + s.types.Body(ctx, n, name) + "\n")
		b.WriteString(ctx.Declare("const", n) + ": " + z + ".ZodType<" + self + "> = " + z + ".lazy(() => " + s.body(ctx, n, name, "") + ")")
		return b.String(), true
	}
	b.WriteString(ctx.Declare("const", n) + " = " + s.body(ctx, n, name, ""))
	if s.opts.Infer {
		b.WriteString("\n" + ctx.Declare("type", n) + " = " + z + ".infer<typeof " + self + ">")
	}
	return b.String(), true
}

func (s *ZodStrategy) expr(ctx *emit.Context, n graph.Node, hint, indent string) string {
	if v, ok := n.(*graph.ValidatorNode); ok {
		return s.expr(ctx, v.Child, hint, indent)
	}
	if n.Base().Name == "" {
		return s.body(ctx, n, hint, indent)
	}
	ref := ctx.Value(n).String()
	if n.Base().Lazy {
		return "z.lazy(() => " + ref + ")"
	}
	return ref
}

func (s *ZodStrategy) body(ctx *emit.Context, n graph.Node, hint, indent string) string {
	switch t := n.(type) {
	case *graph.ObjectNode:
		return s.object(ctx, t, hint, indent)
	case *graph.ArrayNode:
		out := "z.array(" + s.expr(ctx, t.Element, hint+"Item", indent) + ")"
		if t.MinItems != nil {
			out += ".min(" + strconv.Itoa(*t.MinItems) + ")"
		}
		if t.MaxItems != nil {
			out += ".max(" + strconv.Itoa(*t.MaxItems) + ")"
		}
		return out
	case *graph.TupleNode:
		return "z.tuple([" + s.list(ctx, t.Items, hint, indent) + "])"
	case *graph.RecordNode:
		return "z.record(z.string(), " + s.expr(ctx, t.Value, hint+"Value", indent) + ")"
	case *graph.UnionNode:
		switch len(t.Members) {
		case 0:
			return "z.never()"
		case 1:
			return s.expr(ctx, t.Members[0], hint, indent)
		}
		return "z.union([" + s.list(ctx, t.Members, hint, indent) + "])"
	case *graph.IntersectionNode:
		if len(t.Members) == 0 {
			return "z.unknown()"
		}
		out := s.expr(ctx, t.Members[0], hint+"0", indent)
		for i, m := range t.Members[1:] {
			out = "z.intersection(" + out + ", " + s.expr(ctx, m, hint+strconv.Itoa(i+1), indent) + ")"
		}
		return out
	case *graph.EnumNode:
		return enum(t.Values)
	case *graph.ConstNode:
		return literal(t.Value)
	case *graph.PrimitiveNode:
		return s.primitive(ctx, t)
	case *graph.OptionalNode:
		return s.expr(ctx, t.Inner, hint, indent) + ".optional()"
	case *graph.NullableNode:
		return s.expr(ctx, t.Inner, hint, indent) + ".nullable()"
	case *graph.RefNode:
		if t.Target == nil {
			return "z.unknown()"
		}
		return s.expr(ctx, t.Target, hint, indent)
	case *graph.ValidatorNode:
		return s.expr(ctx, t.Child, hint, indent)
	}
	return "z.unknown()"
}

func (s *ZodStrategy) list(ctx *emit.Context, nodes []graph.Node, hint, indent string) string {
	parts := make([]string, len(nodes))
	for i, n := range nodes {
		parts[i] = s.expr(ctx, n, hint+strconv.Itoa(i), indent)
	}
	return strings.Join(parts, ", ")
}

func (s *ZodStrategy) object(ctx *emit.Context, obj *graph.ObjectNode, hint, indent string) string {
	var b strings.Builder
	if len(obj.Properties) == 0 {
		b.WriteString("z.object({})")
	} else {
		inner := indent + "  "
		b.WriteString("z.object({\n")
		for _, p := range obj.Properties {
			b.WriteString(dialect.DocComment(p.Node.Base().Description, inner))
			b.WriteString(inner + dialect.PropertyKey(p.Name) + ": ")
			b.WriteString(s.expr(ctx, p.Node, hint+dialect.Pascal(p.Name), inner))
			b.WriteString(",\n")
		}
		b.WriteString(indent + "})")
	}
	switch {
	case obj.Additional != nil:
		b.WriteString(".catchall(" + s.expr(ctx, obj.Additional, hint+"Value", indent) + ")")
	case s.opts.Strict:
		b.WriteString(".strict()")
	}
	return b.String()
}

func (s *ZodStrategy) primitive(ctx *emit.Context, p *graph.PrimitiveNode) string {
	rules := dialect.ParseValidateTag(p.Validate)
	var out string
	switch p.Type {
	case graph.PrimitiveString:
		if values, ok := oneOf(rules); ok {
			quoted := make([]string, len(values))
			for i, v := range values {
				quoted[i] = strconv.Quote(v)
			}
			return "z.enum([" + strings.Join(quoted, ", ") + "])"
		}
		out = "z.string()"
		if m, ok := formatChecks[p.Format]; ok {
			out += m
		}
	case graph.PrimitiveNumber:
		out = "z.number()"
	case graph.PrimitiveInteger:
		out = "z.number().int()"
	case graph.PrimitiveBoolean:
		out = "z.boolean()"
	case graph.PrimitiveNull:
		return "z.null()"
	default:
		return "z.unknown()"
	}

	isString := p.Type == graph.PrimitiveString
	for _, r := range rules {
		if r.Name == "oneof" && isString {
			continue
		}
		m, sup := check(r, isString)
		switch sup {
		case supported:
			out += m
		case unsupported:
			ctx.Logger().Warn("validate rule has no zod equivalent, dropping it",
				slog.String("file", ctx.Path()),
				slog.String("rule", r.Name),
				slog.String("type", p.Type.String()))
		}
	}
	return out
}

func enum(values []any) string {
	switch len(values) {
	case 0:
		return "z.never()"
	case 1:
		return literal(values[0])
	}
	strs := make([]string, 0, len(values))
	for _, v := range values {
		str, ok := v.(string)
		if !ok {
			break
		}
		strs = append(strs, strconv.Quote(str))
	}
	if len(strs) == len(values) {
		return "z.enum([" + strings.Join(strs, ", ") + "])"
	}
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = literal(v)
	}
	return "z.union([" + strings.Join(parts, ", ") + "])"
}

func literal(v any) string {
	if v == nil {
		return "z.null()"
	}
	return "z.literal(" + dialect.Literal(v) + ")"
}
