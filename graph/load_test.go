package graph

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const petsDoc = `
nodes:
  Category:
    type: object
    description: A pet category.
    properties:
      id: {type: integer}
      name: {type: string, validate: "min=1"}
  Pet:
    type: object
    validator: true
    properties:
      category: {$ref: Category}
      tags: {type: array, items: {type: object, properties: {label: {type: string}}}}
      status: {enum: [available, sold]}
      nickname: {type: string, optional: true, nullable: true}
      extra: {additionalProperties: {type: number}}
      pair: {type: array, prefixItems: [{type: string}, {type: boolean}]}
      anything: {}
services:
  PetStore:
    endpoints:
      - {name: getPet, path: "/pets/{id}", response: {$ref: PetValidator}}
      - {name: addPet, method: post, path: /pets, request: {$ref: Pet}}
`

func parse(t *testing.T, docs map[string]string) *Graph {
	t.Helper()
	sources := make(map[string][]byte, len(docs))
	for p, d := range docs {
		sources[p] = []byte(d)
	}
	g, err := Parse(sources)
	require.NoError(t, err)
	return g
}

func TestParseDocument(t *testing.T) {
	g := parse(t, map[string]string{"pets.yaml": petsDoc})
	require.Len(t, g.Documents, 1)
	doc := g.Documents[0]

	var names []string
	for _, n := range doc.Nodes {
		names = append(names, n.Base().Name)
	}
	assert.Equal(t, []string{"Category", "Pet", "PetValidator"}, names)

	category := doc.Lookup("Category").(*ObjectNode)
	assert.Equal(t, "A pet category.", category.Description)
	assert.Equal(t, "pets.yaml", category.Source)
	assert.Equal(t, "min=1", category.Properties[1].Node.(*PrimitiveNode).Validate)

	pet := doc.Lookup("Pet").(*ObjectNode)
	var props []string
	for _, p := range pet.Properties {
		props = append(props, p.Name)
	}
	assert.Equal(t, []string{"category", "tags", "status", "nickname", "extra", "pair", "anything"}, props)

	ref := pet.Properties[0].Node.(*RefNode)
	assert.Same(t, category, ref.Target)
	assert.IsType(t, &ArrayNode{}, pet.Properties[1].Node)
	assert.Equal(t, []any{"available", "sold"}, pet.Properties[2].Node.(*EnumNode).Values)

	inner, optional, nullable := Unwrap(pet.Properties[3].Node)
	assert.True(t, optional)
	assert.True(t, nullable)
	assert.IsType(t, &OptionalNode{}, pet.Properties[3].Node)
	assert.Equal(t, PrimitiveString, inner.(*PrimitiveNode).Type)

	assert.IsType(t, &RecordNode{}, pet.Properties[4].Node)
	assert.Len(t, pet.Properties[5].Node.(*TupleNode).Items, 2)
	assert.Equal(t, PrimitiveUnknown, pet.Properties[6].Node.(*PrimitiveNode).Type)

	v := doc.Lookup("PetValidator").(*ValidatorNode)
	assert.Same(t, pet, v.Child)
	assert.True(t, v.Generated)

	require.Len(t, doc.Services, 1)
	svc := doc.Services[0]
	assert.Equal(t, "PetStore", svc.Name)
	require.Len(t, svc.Endpoints, 2)
	assert.Equal(t, "GET", svc.Endpoints[0].Method)
	assert.Same(t, v, svc.Endpoints[0].Response.(*RefNode).Target)
	assert.Equal(t, "POST", svc.Endpoints[1].Method)
	assert.Nil(t, svc.Endpoints[1].Response)

	assert.Len(t, g.Roots(), 4)
	assert.Same(t, doc, g.Document("pets.yaml"))
	assert.Nil(t, g.Document("other.yaml"))
}

func TestIDsAreStable(t *testing.T) {
	docs := map[string]string{"pets.yaml": petsDoc}
	a := parse(t, docs).Documents[0]
	b := parse(t, docs).Documents[0]
	for i := range a.Nodes {
		assert.Equal(t, a.Nodes[i].Base().ID, b.Nodes[i].Base().ID)
		assert.True(t, a.Nodes[i].Base().ID.Valid())
	}
	assert.NotEqual(t, a.Nodes[0].Base().ID, a.Nodes[1].Base().ID)

	g := parse(t, map[string]string{"a.yaml": "nodes:\n  A: {id: my-a, type: string}\n"})
	assert.Equal(t, ID("my-a"), g.Documents[0].Nodes[0].Base().ID)
}

func TestCrossDocumentReferences(t *testing.T) {
	g := parse(t, map[string]string{
		"schemas/pets.yaml": "nodes:\n  Pet: {type: object, properties: {name: {type: string}}}\n",
		"schemas/store/store.yaml": `
nodes:
  Order:
    type: object
    properties:
      pet: {$ref: "../pets.yaml#Pet"}
      self: {$ref: "#/Order", optional: true}
`,
	})
	pet := g.Document("schemas/pets.yaml").Lookup("Pet")
	order := g.Document("schemas/store/store.yaml").Lookup("Order").(*ObjectNode)
	assert.Same(t, pet, order.Properties[0].Node.(*RefNode).Target)

	self, optional, _ := Unwrap(order.Properties[1].Node)
	assert.True(t, optional)
	assert.Same(t, order, self.(*RefNode).Target)
	assert.True(t, order.Lazy)
	assert.False(t, pet.Base().Lazy)
}

func TestMutualRecursionIsLazy(t *testing.T) {
	g := parse(t, map[string]string{"tree.yaml": `
nodes:
  Tree:
    type: object
    properties:
      children: {type: array, items: {$ref: Forest}}
  Forest:
    oneOf: [{$ref: Tree}, {type: "null"}]
  Leaf: {type: string}
`})
	doc := g.Documents[0]
	assert.True(t, doc.Lookup("Tree").Base().Lazy)
	assert.True(t, doc.Lookup("Forest").Base().Lazy)
	assert.False(t, doc.Lookup("Leaf").Base().Lazy)
}

func TestLiterals(t *testing.T) {
	g := parse(t, map[string]string{"lit.yaml": `
nodes:
  Mixed: {enum: [a, 1, true, 1.5]}
  Answer: {const: 42}
  Greeting: {const: hello}
  Off: {const: false}
  Nothing: {const: null}
`})
	doc := g.Documents[0]
	assert.Equal(t, []any{"a", int64(1), true, 1.5}, doc.Lookup("Mixed").(*EnumNode).Values)
	assert.Equal(t, int64(42), doc.Lookup("Answer").(*ConstNode).Value)
	assert.Equal(t, "hello", doc.Lookup("Greeting").(*ConstNode).Value)
	assert.Equal(t, false, doc.Lookup("Off").(*ConstNode).Value)
	require.IsType(t, &ConstNode{}, doc.Lookup("Nothing"))
	assert.Nil(t, doc.Lookup("Nothing").(*ConstNode).Value)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"unknown ref", "nodes:\n  A: {$ref: Missing}\n", `a.yaml#/A: unknown reference "Missing"`},
		{"unknown document", "nodes:\n  A: {$ref: \"other.yaml#B\"}\n", `unknown document "other.yaml"`},
		{"unknown type", "nodes:\n  A: {type: date}\n", `a.yaml#/A: unknown type "date"`},
		{"array without items", "nodes:\n  A: {type: array}\n", "array requires items"},
		{"invalid id", "nodes:\n  A: {id: \"a:b\", type: string}\n", "invalid id"},
		{"duplicate id", "nodes:\n  A: {id: same, type: string}\n  B: {id: same, type: string}\n", `a.yaml#/B: duplicate id "same", already used by a.yaml#/A`},
		{"duplicate inline id", "nodes:\n  A:\n    properties:\n      x: {id: same, type: string}\n      y: {id: same, type: number}\n", `duplicate id "same"`},
		{"reference cycle", "nodes:\n  A: {$ref: B}\n  B: {$ref: A}\n", `a.yaml#/A: reference cycle: "B" only leads back to itself`},
		{"self reference", "nodes:\n  A: {$ref: A}\n", "reference cycle"},
		{"validator collision", "nodes:\n  A: {type: string, validator: true}\n  AValidator: {type: string}\n", "duplicate declaration \"AValidator\""},
		{"service collision", "nodes:\n  A: {type: string}\nservices:\n  A: {endpoints: []}\n", "collides with a node declaration"},
		{"endpoint name", "services:\n  S:\n    endpoints:\n      - {path: /x}\n", "endpoint name is required"},
		{"yaml", "nodes: [\n", "a.yaml: parse:"},
		{"nodes not a mapping", "nodes: [a, b]\n", "expected a mapping"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(map[string][]byte{"a.yaml": []byte(tt.doc)})
			require.ErrorContains(t, err, tt.want)
		})
	}
}

func TestParseCollectsEveryError(t *testing.T) {
	_, err := Parse(map[string][]byte{
		"a.yaml": []byte("nodes:\n  A: {$ref: X}\n  B: {type: date}\n"),
	})
	var errs LoadErrors
	require.True(t, errors.As(err, &errs))
	assert.Len(t, errs, 2)
	assert.True(t, errors.Is(err, ErrUnknownRef))
}
