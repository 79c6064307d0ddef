package ajv

import (
	"strings"

	"github.com/skyleague/therefore-sub001/dialect"
	"github.com/skyleague/therefore-sub001/dialect/typescript"
	"github.com/skyleague/therefore-sub001/emit"
	"github.com/skyleague/therefore-sub001/graph"
)

// Subtype of the validator strategy.
const Subtype = "validator"

// Options configures the generated Ajv instances.
type Options struct {
	// Formats registers ajv-formats so "format" keywords are checked.
	Formats bool `schema:"formats"`

	// Coerce enables Ajv type coercion.
	Coerce bool `schema:"coerce"`

	// AllErrors collects every error instead of stopping at the first.
	AllErrors bool `schema:"allErrors"`
}

// ValidatorStrategy renders validator nodes as compiled Ajv validators.
type ValidatorStrategy struct {
	opts  Options
	types *typescript.TypeStrategy
}

// NewValidatorStrategy returns a validator strategy. types renders the
// type argument of compile.
func NewValidatorStrategy(opts Options, types *typescript.TypeStrategy) *ValidatorStrategy {
	return &ValidatorStrategy{opts: opts, types: types}
}

func (s *ValidatorStrategy) Subtype() string             { return Subtype }
func (s *ValidatorStrategy) IsTypeOnly() bool            { return false }
func (s *ValidatorStrategy) IsGenerated(graph.Node) bool { return true }

func (s *ValidatorStrategy) Enabled(n graph.Node) bool {
	_, ok := n.(*graph.ValidatorNode)
	return ok
}

func (s *ValidatorStrategy) OnExport() []emit.ExportHook {
	return []emit.ExportHook{NameAfterChild}
}

// NameAfterChild names an unnamed validator after the type it validates.
func NameAfterChild(n graph.Node, name string) string {
	v, ok := n.(*graph.ValidatorNode)
	if !ok || name != "" || v.Child == nil {
		return name
	}
	child := v.Child.Base().Alias
	if child == "" {
		child = v.Child.Base().Name
	}
	return child + "Validator"
}

func (s *ValidatorStrategy) Definition(n graph.Node, ctx *emit.Context) (string, bool) {
	v := n.(*graph.ValidatorNode)
	if v.Child == nil {
		ctx.Errorf("validator %s has no child", v.ID)
		return "", false
	}
	schema, err := MarshalSchema(v, "")
	if err != nil {
		ctx.Errorf("validator %s: %v", v.ID, err)
		return "", false
	}

	instance := "new " + ctx.ExternalDefault("ajv", "Ajv") + "(" + s.config() + ")"
	if s.opts.Formats {
		instance = ctx.ExternalDefault("ajv-formats", "addFormats") + "(" + instance + ")"
	}
	typ := s.types.Expr(ctx, v.Child, ctx.TypeName(v))

	var b strings.Builder
	b.WriteString(dialect.DocComment(v.Description, ""))
	b.WriteString(ctx.Declare("const", n))
	b.WriteString(" = ")
	b.WriteString(instance)
	b.WriteString(".compile<")
	b.WriteString(typ)
	b.WriteString(">(")
	b.Write(schema)
	b.WriteString(")")
	return b.String(), true
}

func (s *ValidatorStrategy) config() string {
	parts := []string{"strict: true", "strictSchema: false"}
	if s.opts.AllErrors {
		parts = append(parts, "allErrors: true")
	}
	if s.opts.Coerce {
		parts = append(parts, "coerceTypes: true")
	}
	return "{ " + strings.Join(parts, ", ") + " }"
}
