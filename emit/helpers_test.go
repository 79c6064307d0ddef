package emit

import (
	"bytes"
	"log/slog"
	"strings"

	"github.com/skyleague/therefore-sub001/graph"
)

// typeStrategy renders objects as interfaces and hoists unnamed array
// elements, mirroring the shape of the real type dialect.
type typeStrategy struct{}

func (typeStrategy) Subtype() string             { return "type" }
func (typeStrategy) IsTypeOnly() bool            { return true }
func (typeStrategy) IsGenerated(graph.Node) bool { return true }
func (typeStrategy) OnExport() []ExportHook      { return nil }
func (typeStrategy) Enabled(n graph.Node) bool {
	_, ok := n.(*graph.ObjectNode)
	return ok
}

func (s typeStrategy) Definition(n graph.Node, ctx *Context) (string, bool) {
	obj := n.(*graph.ObjectNode)
	var b strings.Builder
	b.WriteString(ctx.Declare("interface", n))
	b.WriteString(" {\n")
	for _, p := range obj.Properties {
		b.WriteString("  " + p.Name + ": " + s.expr(obj, p.Name, p.Node, ctx) + "\n")
	}
	b.WriteString("}")
	return b.String(), true
}

func (s typeStrategy) expr(parent graph.Node, prop string, n graph.Node, ctx *Context) string {
	switch t := n.(type) {
	case *graph.PrimitiveNode:
		return t.Type.String()
	case *graph.RefNode:
		return ctx.Reference(t.Target).String()
	case *graph.ArrayNode:
		return s.expr(parent, prop, t.Element, ctx) + "[]"
	case *graph.ObjectNode:
		if t.Name != "" {
			return ctx.Reference(t).String()
		}
		return ctx.Local(t, ctx.TypeName(parent)+strings.ToUpper(prop[:1])+prop[1:]+"Item").String()
	}
	return "unknown"
}

// valueStrategy renders validators as runtime constants.
type valueStrategy struct {
	hooks []ExportHook
}

func (valueStrategy) Subtype() string             { return "validator" }
func (valueStrategy) IsTypeOnly() bool            { return false }
func (valueStrategy) IsGenerated(graph.Node) bool { return true }
func (v valueStrategy) OnExport() []ExportHook    { return v.hooks }
func (valueStrategy) Enabled(n graph.Node) bool {
	_, ok := n.(*graph.ValidatorNode)
	return ok
}

func (valueStrategy) Definition(n graph.Node, ctx *Context) (string, bool) {
	v := n.(*graph.ValidatorNode)
	ajv := ctx.ExternalDefault("ajv", "Ajv")
	return ctx.Declare("const", n) + " = new " + ajv + "().compile<" + ctx.Reference(v.Child).String() + ">({})", true
}

// refStrategy references whatever it is given, as a value.
type refStrategy struct {
	subtype string
	target  graph.Node
	via     []string
}

func (r refStrategy) Subtype() string           { return r.subtype }
func (refStrategy) IsTypeOnly() bool            { return false }
func (refStrategy) IsGenerated(graph.Node) bool { return false }
func (refStrategy) OnExport() []ExportHook      { return nil }
func (refStrategy) Enabled(n graph.Node) bool   { return true }
func (r refStrategy) Definition(n graph.Node, ctx *Context) (string, bool) {
	var opts []RefOption
	if len(r.via) > 0 {
		opts = append(opts, Via(r.via...))
	}
	return ctx.Declare("const", n) + " = " + ctx.Value(r.target, opts...).String(), true
}

func obj(id graph.ID, name, source string, props ...graph.Property) *graph.ObjectNode {
	return graph.Named(&graph.ObjectNode{Properties: props}, id, name, source)
}

func quietOptions() (Options, *bytes.Buffer) {
	var buf bytes.Buffer
	return Options{Logger: slog.New(slog.NewTextHandler(&buf, nil))}, &buf
}
