package ajv

import (
	"log/slog"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skyleague/therefore-sub001/dialect/typescript"
	"github.com/skyleague/therefore-sub001/emit"
	"github.com/skyleague/therefore-sub001/graph"
)

func TestSchemaShapes(t *testing.T) {
	tag := graph.Named(&graph.ObjectNode{Properties: []graph.Property{
		graph.Prop("label", &graph.PrimitiveNode{Type: graph.PrimitiveString, Validate: "required,max=20"}),
	}}, "tag", "Tag", "pets.yaml")
	pet := graph.Named(&graph.ObjectNode{Properties: []graph.Property{
		graph.Prop("name", graph.String()),
		graph.Prop("age", graph.Optional(&graph.PrimitiveNode{Type: graph.PrimitiveInteger, Validate: "gte=0"})),
		graph.Prop("email", graph.Nullable(&graph.PrimitiveNode{Type: graph.PrimitiveString, Validate: "email"})),
		graph.Prop("tags", graph.ArrayOf(graph.Ref(tag))),
	}}, "pet", "Pet", "pets.yaml")
	graph.AssignIDs("n", pet)

	s, err := Schema(pet)
	require.NoError(t, err)

	data, err := json.Marshal(s)
	require.NoError(t, err)
	want := `{"$defs":{"Tag":{"additionalProperties":false,"properties":{"label":{"maxLength":20,"minLength":1,"type":"string"}},"required":["label"],"type":"object"}},` +
		`"additionalProperties":false,"properties":{"age":{"minimum":0,"type":"integer"},"email":{"anyOf":[{"format":"email","type":"string"},{"type":"null"}]},` +
		`"name":{"type":"string"},"tags":{"items":{"$ref":"#/$defs/Tag"},"type":"array"}},"required":["name","email","tags"],"title":"Pet","type":"object"}`
	assert.JSONEq(t, want, string(data))
}

func TestSchemaSelfRecursion(t *testing.T) {
	tree := &graph.ObjectNode{}
	graph.Named(tree, "tree", "Tree", "tree.yaml")
	tree.Properties = []graph.Property{
		graph.Prop("value", graph.String()),
		graph.Prop("children", graph.ArrayOf(graph.Ref(tree))),
	}
	v := graph.Named(&graph.ValidatorNode{Child: tree}, "tree-validator", "TreeValidator", "tree.yaml")

	s, err := Schema(v)
	require.NoError(t, err)
	props := s["properties"].(map[string]any)
	children := props["children"].(map[string]any)
	assert.Equal(t, map[string]any{"$ref": "#"}, children["items"])
	assert.NotContains(t, s, "$defs")
}

func TestSchemaMutualRecursion(t *testing.T) {
	a := graph.Named(&graph.ObjectNode{}, "a", "A", "x.yaml")
	b := graph.Named(&graph.ObjectNode{}, "b", "B", "x.yaml")
	a.Properties = []graph.Property{graph.Prop("b", graph.Optional(graph.Ref(b)))}
	b.Properties = []graph.Property{graph.Prop("a", graph.Ref(a))}

	s, err := Schema(a)
	require.NoError(t, err)
	defs := s["$defs"].(map[string]any)
	require.Contains(t, defs, "B")
	bdef := defs["B"].(map[string]any)
	assert.Equal(t, map[string]any{"$ref": "#"}, bdef["properties"].(map[string]any)["a"])
}

func TestSchemaRejectsServices(t *testing.T) {
	_, err := Schema(graph.Named(&graph.ServiceNode{}, "svc", "Pets", "pets.yaml"))
	require.Error(t, err)
}

func TestNameAfterChild(t *testing.T) {
	pet := graph.Named(&graph.ObjectNode{}, "pet", "Pet", "pets.yaml")
	assert.Equal(t, "PetValidator", NameAfterChild(&graph.ValidatorNode{Child: pet}, ""))
	assert.Equal(t, "Custom", NameAfterChild(&graph.ValidatorNode{Child: pet}, "Custom"))
	assert.Equal(t, "", NameAfterChild(pet, ""))
}

func TestValidatorDeclaration(t *testing.T) {
	pet := graph.Named(&graph.ObjectNode{Properties: []graph.Property{
		graph.Prop("name", graph.String()),
	}}, "pet", "Pet", "pets.yaml")
	v := &graph.ValidatorNode{Child: pet}
	v.ID = "pet-validator"
	v.Source = "pets.yaml"
	graph.AssignIDs("n", v)

	types := typescript.NewTypeStrategy(typescript.DefaultOptions())
	validators := NewValidatorStrategy(Options{Formats: true, AllErrors: true}, types)
	strategies := []emit.Strategy{types, validators}
	f := emit.NewFile("pets.type.ts", strategies, emit.Options{Logger: slog.New(slog.DiscardHandler)})
	for _, n := range []graph.Node{pet, v} {
		for _, s := range strategies {
			require.NoError(t, f.AddSymbol(n, s, true))
		}
	}
	out, err := f.Render()
	require.NoError(t, err)

	assert.Contains(t, out, "import Ajv from 'ajv'\nimport addFormats from 'ajv-formats'\n")
	assert.Contains(t, out, "export const PetValidator = addFormats(new Ajv({ strict: true, strictSchema: false, allErrors: true })).compile<Pet>({\n")
	assert.Contains(t, out, `"title": "Pet"`)
	// The validated type is declared before its validator.
	assert.Less(t, strings.Index(out, "export interface Pet"), strings.Index(out, "export const PetValidator"))
}
