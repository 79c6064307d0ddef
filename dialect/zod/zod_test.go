package zod

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skyleague/therefore-sub001/dialect"
	"github.com/skyleague/therefore-sub001/emit"
	"github.com/skyleague/therefore-sub001/graph"
	"github.com/skyleague/therefore-sub001/symbol"
)

func renderFile(t *testing.T, opts Options, logger *slog.Logger, roots ...graph.Node) string {
	t.Helper()
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := NewZodStrategy(opts)
	f := emit.NewFile("pets.zod.ts", []emit.Strategy{s}, emit.Options{Logger: logger})
	for _, n := range roots {
		require.NoError(t, f.AddSymbol(n, s, true))
	}
	out, err := f.Render()
	require.NoError(t, err)
	require.False(t, symbol.HasPlaceholder(out), out)
	return out
}

func TestObjectSchema(t *testing.T) {
	pet := graph.Named(&graph.ObjectNode{Properties: []graph.Property{
		graph.Prop("name", &graph.PrimitiveNode{Type: graph.PrimitiveString, Validate: "required,max=50"}),
		graph.Prop("age", graph.Optional(&graph.PrimitiveNode{Type: graph.PrimitiveInteger, Validate: "gte=0"})),
		graph.Prop("nick", graph.Optional(graph.Nullable(graph.String()))),
		graph.Prop("status", &graph.EnumNode{Values: []any{"available", "sold"}}),
		graph.Prop("email", &graph.PrimitiveNode{Type: graph.PrimitiveString, Format: "email"}),
	}}, "pet", "Pet", "pets.yaml")
	graph.AssignIDs("n", pet)

	out := renderFile(t, DefaultOptions(), nil, pet)
	assert.Contains(t, out, "import { z } from 'zod'\n")
	assert.Contains(t, out, "export const Pet = z.object({\n"+
		"  name: z.string().min(1).max(50),\n"+
		"  age: z.number().int().gte(0).optional(),\n"+
		"  nick: z.string().nullable().optional(),\n"+
		"  status: z.enum([\"available\", \"sold\"]),\n"+
		"  email: z.string().email(),\n"+
		"})\n"+
		"export type Pet = z.infer<typeof Pet>\n")
}

func TestLazyNodeGetsExplicitType(t *testing.T) {
	tree := graph.Named(&graph.ObjectNode{}, "tree", "Tree", "tree.yaml")
	tree.Lazy = true
	tree.Properties = []graph.Property{
		graph.Prop("value", graph.String()),
		graph.Prop("children", graph.ArrayOf(graph.Ref(tree))),
	}
	graph.AssignIDs("n", tree)

	out := renderFile(t, DefaultOptions(), nil, tree)
	assert.Contains(t, out, "export type Tree = {\n  value: string\n  children: Tree[]\n}\n"+
		"export const Tree: z.ZodType<Tree> = z.lazy(() => z.object({\n"+
		"  value: z.string(),\n"+
		"  children: z.array(z.lazy(() => Tree)),\n"+
		"}))\n")
	assert.NotContains(t, out, "z.infer")
}

func TestLazyTypeReferencesWithoutInference(t *testing.T) {
	leaf := graph.Named(&graph.ObjectNode{Properties: []graph.Property{
		graph.Prop("label", graph.String()),
	}}, "leaf", "Leaf", "tree.yaml")
	tree := graph.Named(&graph.ObjectNode{}, "tree", "Tree", "tree.yaml")
	tree.Lazy = true
	tree.Properties = []graph.Property{
		graph.Prop("leaf", graph.Ref(leaf)),
		graph.Prop("children", graph.ArrayOf(graph.Ref(tree))),
	}
	graph.AssignIDs("n", leaf, tree)

	tests := []struct {
		name     string
		opts     Options
		leafType string
	}{
		{"infer", Options{Infer: true}, "Leaf"},
		{"no infer", Options{Infer: false}, "z.infer<typeof Leaf>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := renderFile(t, tt.opts, nil, leaf, tree)
			assert.Contains(t, out, "export type Tree = {\n  leaf: "+tt.leafType+"\n  children: Tree[]\n}\n")
			assert.Contains(t, out, "export const Leaf = z.object({\n  label: z.string(),\n})")
			if !tt.opts.Infer {
				assert.NotContains(t, out, "export type Leaf")
			}
		})
	}
}

func TestOptions(t *testing.T) {
	point := graph.Named(&graph.ObjectNode{Properties: []graph.Property{
		graph.Prop("x", graph.Number()),
	}}, "point", "Point", "geo.yaml")
	graph.AssignIDs("n", point)

	out := renderFile(t, Options{Infer: false, Strict: true}, nil, point)
	assert.Contains(t, out, "export const Point = z.object({\n  x: z.number(),\n}).strict()\n")
	assert.NotContains(t, out, "export type Point")
}

func TestReferencesAcrossFiles(t *testing.T) {
	category := graph.Named(&graph.ObjectNode{Properties: []graph.Property{
		graph.Prop("id", graph.Integer()),
	}}, "category", "Category", "categories.yaml")
	pet := graph.Named(&graph.ObjectNode{Properties: []graph.Property{
		graph.Prop("category", graph.Ref(category)),
		graph.Prop("labels", &graph.RecordNode{Value: graph.String()}),
		graph.Prop("kind", &graph.UnionNode{Members: []graph.Node{&graph.ConstNode{Value: "cat"}, &graph.ConstNode{Value: int64(2)}}}),
	}}, "pet", "Pet", "pets.yaml")
	graph.AssignIDs("n", category, pet)

	s := NewZodStrategy(DefaultOptions())
	reg := symbol.NewRegistry()
	opts := emit.Options{Logger: slog.New(slog.DiscardHandler), Registry: reg}
	cats := emit.NewFile("categories.zod.ts", []emit.Strategy{s}, opts)
	pets := emit.NewFile("pets.zod.ts", []emit.Strategy{s}, opts)
	require.NoError(t, reg.Claim(category, cats.Path()))
	require.NoError(t, reg.Claim(pet, pets.Path()))
	require.NoError(t, cats.AddSymbol(category, s, true))
	require.NoError(t, pets.AddSymbol(pet, s, true))
	require.NoError(t, cats.Bind())
	require.NoError(t, pets.Bind())

	out, err := pets.Render()
	require.NoError(t, err)
	assert.Contains(t, out, "import { z } from 'zod'\n\nimport { Category } from './categories.zod.js'\n")
	assert.Contains(t, out, "  category: Category,\n")
	assert.Contains(t, out, "  labels: z.record(z.string(), z.string()),\n")
	assert.Contains(t, out, "  kind: z.union([z.literal(\"cat\"), z.literal(2)]),\n")
	assert.NotContains(t, out, "export const Category")
}

func TestUnsupportedRuleIsLogged(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	code := graph.Named(&graph.PrimitiveNode{Type: graph.PrimitiveString, Validate: "excluded_with=Other,alpha"}, "code", "Code", "codes.yaml")

	out := renderFile(t, DefaultOptions(), logger, code)
	assert.Contains(t, out, "export const Code = z.string().regex(/^[a-zA-Z]+$/)\n")
	assert.Contains(t, buf.String(), "validate rule has no zod equivalent")
	assert.Contains(t, buf.String(), "rule=excluded_with")
}

func TestCheck(t *testing.T) {
	tests := []struct {
		rule     string
		isString bool
		want     string
		support  support
	}{
		{"required", true, ".min(1)", supported},
		{"required", false, "", skipped},
		{"min=3", true, ".min(3)", supported},
		{"max=9.5", false, ".max(9.5)", supported},
		{"len=4", true, ".length(4)", supported},
		{"len=4", false, "", unsupported},
		{"gt=0", false, ".gt(0)", supported},
		{"gt=0", true, "", unsupported},
		{"eq=ok", true, `.refine((v) => v === "ok")`, supported},
		{"ne=3", false, ".refine((v) => v !== 3)", supported},
		{"uuid", true, ".uuid()", supported},
		{"uuid", false, "", unsupported},
		{"startswith=ab", true, `.startsWith("ab")`, supported},
		{"min=x", true, "", unsupported},
		{"omitempty", true, "", skipped},
	}
	for _, tt := range tests {
		t.Run(tt.rule, func(t *testing.T) {
			rules := dialect.ParseValidateTag(tt.rule)
			require.Len(t, rules, 1)
			got, sup := check(rules[0], tt.isString)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.support, sup)
		})
	}
}

func TestOneOfBecomesEnum(t *testing.T) {
	size := graph.Named(&graph.PrimitiveNode{Type: graph.PrimitiveString, Validate: "oneof=s m l"}, "size", "Size", "sizes.yaml")
	out := renderFile(t, DefaultOptions(), nil, size)
	assert.Contains(t, out, "export const Size = z.enum([\"s\", \"m\", \"l\"])\n")
}
