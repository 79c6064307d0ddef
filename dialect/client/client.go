// Package client renders service nodes as fetch based REST clients.
package client

import (
	"regexp"
	"strings"

	"github.com/skyleague/therefore-sub001/dialect"
	"github.com/skyleague/therefore-sub001/dialect/ajv"
	"github.com/skyleague/therefore-sub001/dialect/typescript"
	"github.com/skyleague/therefore-sub001/emit"
	"github.com/skyleague/therefore-sub001/graph"
)

// Subtype of the client strategy.
const Subtype = "client"

var pathParamRE = regexp.MustCompile(`\{([^{}/]+)\}`)

// ClientStrategy renders one class per service with an async method per
// endpoint.
type ClientStrategy struct {
	types *typescript.TypeStrategy

	// checked enables response validation through Ajv validators.
	checked bool
}

// NewClientStrategy returns a client strategy. types renders parameter and
// result types. When checked is set, responses typed by a validator node
// are validated with it; the validator must be rendered by the ajv
// strategy somewhere in the run.
func NewClientStrategy(types *typescript.TypeStrategy, checked bool) *ClientStrategy {
	return &ClientStrategy{types: types, checked: checked}
}

func (s *ClientStrategy) Subtype() string             { return Subtype }
func (s *ClientStrategy) IsTypeOnly() bool            { return false }
func (s *ClientStrategy) IsGenerated(graph.Node) bool { return true }

func (s *ClientStrategy) Enabled(n graph.Node) bool {
	_, ok := n.(*graph.ServiceNode)
	return ok
}

func (s *ClientStrategy) OnExport() []emit.ExportHook {
	return []emit.ExportHook{func(_ graph.Node, name string) string {
		if name == "" || strings.HasSuffix(name, "Client") {
			return name
		}
		return name + "Client"
	}}
}

func (s *ClientStrategy) Definition(n graph.Node, ctx *emit.Context) (string, bool) {
	svc := n.(*graph.ServiceNode)
	name := ctx.TypeName(n)

	var b strings.Builder
	b.WriteString(dialect.DocComment(svc.Description, ""))
	b.WriteString(ctx.Declare("class", n))
	b.WriteString(" {\n")
	b.WriteString("  public constructor(\n")
	b.WriteString("    public readonly baseUrl: string,\n")
	b.WriteString("    private readonly fetcher: typeof fetch = fetch,\n")
	b.WriteString("  ) {}\n")
	for _, ep := range svc.Endpoints {
		b.WriteByte('\n')
		s.endpoint(&b, ctx, name, ep)
	}
	b.WriteString("}")
	return b.String(), true
}

func (s *ClientStrategy) endpoint(b *strings.Builder, ctx *emit.Context, service string, ep graph.Endpoint) {
	method := dialect.Identifier(ep.Name)
	hint := service + dialect.Pascal(ep.Name)

	var params []string
	url := pathParamRE.ReplaceAllStringFunc(ep.Path, func(m string) string {
		p := dialect.Identifier(m[1 : len(m)-1])
		params = append(params, p+": string")
		return "${encodeURIComponent(" + p + ")}"
	})
	if ep.Request != nil {
		params = append(params, "body: "+s.types.Expr(ctx, ep.Request, hint+"Request"))
	}

	result := "void"
	var validator graph.Node
	if ep.Response != nil {
		result = s.types.Expr(ctx, ep.Response, hint+"Response")
		if v, ok := unref(ep.Response).(*graph.ValidatorNode); ok && s.checked {
			validator = v
		}
	}

	b.WriteString(dialect.DocComment(ep.Summary, "  "))
	b.WriteString("  public async " + method + "(" + strings.Join(params, ", ") + "): Promise<" + result + "> {\n")
	b.WriteString("    const response = await this.fetcher(`${this.baseUrl}" + url + "`, {\n")
	b.WriteString("      method: '" + ep.Method + "',\n")
	if ep.Request != nil {
		b.WriteString("      headers: { 'content-type': 'application/json' },\n")
		b.WriteString("      body: JSON.stringify(body),\n")
	}
	b.WriteString("    })\n")
	b.WriteString("    if (!response.ok) {\n")
	b.WriteString("      throw new Error(`" + method + ": ${response.status} ${response.statusText}`)\n")
	b.WriteString("    }\n")
	switch {
	case ep.Response == nil:
	case validator != nil:
		check := ctx.Value(validator, emit.Via(ajv.Subtype)).String()
		b.WriteString("    const result: unknown = await response.json()\n")
		b.WriteString("    if (!" + check + "(result)) {\n")
		b.WriteString("      throw new Error(`" + method + ": invalid response`)\n")
		b.WriteString("    }\n")
		b.WriteString("    return result\n")
	default:
		b.WriteString("    return (await response.json()) as " + result + "\n")
	}
	b.WriteString("  }\n")
}

// unref follows references to the node they name. A chain that loops
// stops at the first reference seen twice.
func unref(n graph.Node) graph.Node {
	seen := make(map[graph.Node]bool)
	for !seen[n] {
		seen[n] = true
		r, ok := n.(*graph.RefNode)
		if !ok || r.Target == nil {
			return n
		}
		n = r.Target
	}
	return n
}
