// Package ajv renders validator nodes as precompiled Ajv validators. The
// JSON Schema handed to Ajv is derived from the node graph.
package ajv

import (
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/goccy/go-json"

	"github.com/skyleague/therefore-sub001/dialect"
	"github.com/skyleague/therefore-sub001/graph"
)

// Schema returns the JSON Schema for root. Named nodes reached from root
// are collected under $defs and referenced by name, so recursive types
// terminate.
func Schema(root graph.Node) (map[string]any, error) {
	b := &builder{
		root:  root,
		defs:  make(map[string]any),
		names: make(map[graph.Node]string),
		taken: make(map[string]bool),
	}
	if v, ok := root.(*graph.ValidatorNode); ok {
		b.root = v.Child
	}
	out, err := b.schema(b.root, true)
	if err != nil {
		return nil, err
	}
	if name := b.root.Base().Name; name != "" {
		out["title"] = name
	}
	if len(b.defs) > 0 {
		out["$defs"] = b.defs
	}
	return out, nil
}

// MarshalSchema returns the schema of root as indented JSON.
func MarshalSchema(root graph.Node, indent string) ([]byte, error) {
	s, err := Schema(root)
	if err != nil {
		return nil, err
	}
	data, err := json.MarshalIndent(s, indent, "  ")
	if err != nil {
		return nil, errors.Wrap(err, "marshal schema")
	}
	return data, nil
}

type builder struct {
	root  graph.Node
	defs  map[string]any
	names map[graph.Node]string
	taken map[string]bool
	depth int
}

const maxDepth = 256

func (b *builder) schema(n graph.Node, top bool) (map[string]any, error) {
	if n == nil {
		return map[string]any{}, nil
	}
	b.depth++
	defer func() { b.depth-- }()
	if b.depth > maxDepth {
		return nil, errors.Newf("schema nesting exceeds %d levels at %s %s", maxDepth, n.Kind(), n.Base().ID)
	}

	if !top {
		if n == b.root {
			return map[string]any{"$ref": "#"}, nil
		}
		if n.Base().Name != "" {
			if _, ok := n.(*graph.ValidatorNode); !ok {
				return b.ref(n)
			}
		}
	}

	out := make(map[string]any)
	if d := n.Base().Description; d != "" {
		out["description"] = d
	}

	switch t := n.(type) {
	case *graph.ObjectNode:
		out["type"] = "object"
		props := make(map[string]any, len(t.Properties))
		var required []string
		for _, p := range t.Properties {
			_, optional, _ := graph.Unwrap(p.Node)
			s, err := b.schema(p.Node, false)
			if err != nil {
				return nil, err
			}
			props[p.Name] = s
			if !optional {
				required = append(required, p.Name)
			}
		}
		out["properties"] = props
		if len(required) > 0 {
			out["required"] = required
		}
		if t.Additional != nil {
			s, err := b.schema(t.Additional, false)
			if err != nil {
				return nil, err
			}
			out["additionalProperties"] = s
		} else {
			out["additionalProperties"] = false
		}
	case *graph.ArrayNode:
		items, err := b.schema(t.Element, false)
		if err != nil {
			return nil, err
		}
		out["type"] = "array"
		out["items"] = items
		if t.MinItems != nil {
			out["minItems"] = *t.MinItems
		}
		if t.MaxItems != nil {
			out["maxItems"] = *t.MaxItems
		}
	case *graph.TupleNode:
		items, err := b.list(t.Items)
		if err != nil {
			return nil, err
		}
		out["type"] = "array"
		out["items"] = items
		out["minItems"] = len(items)
		out["additionalItems"] = false
	case *graph.RecordNode:
		value, err := b.schema(t.Value, false)
		if err != nil {
			return nil, err
		}
		out["type"] = "object"
		out["additionalProperties"] = value
	case *graph.UnionNode:
		members, err := b.list(t.Members)
		if err != nil {
			return nil, err
		}
		out["anyOf"] = members
	case *graph.IntersectionNode:
		members, err := b.list(t.Members)
		if err != nil {
			return nil, err
		}
		out["allOf"] = members
	case *graph.EnumNode:
		out["enum"] = t.Values
	case *graph.ConstNode:
		out["const"] = t.Value
	case *graph.PrimitiveNode:
		primitive(out, t)
	case *graph.OptionalNode:
		return b.schema(t.Inner, false)
	case *graph.NullableNode:
		inner, err := b.schema(t.Inner, false)
		if err != nil {
			return nil, err
		}
		out["anyOf"] = []any{inner, map[string]any{"type": "null"}}
	case *graph.RefNode:
		return b.schema(t.Target, false)
	case *graph.ValidatorNode:
		return b.schema(t.Child, false)
	case *graph.ServiceNode:
		return nil, errors.AssertionFailedf("ajv: service %s has no schema", t.Name)
	}
	return out, nil
}

func (b *builder) list(nodes []graph.Node) ([]any, error) {
	out := make([]any, len(nodes))
	for i, n := range nodes {
		s, err := b.schema(n, false)
		if err != nil {
			return nil, err
		}
		out[i] = s
	}
	return out, nil
}

// ref returns a $ref to the definition of the named node n, adding it to
// $defs on first use.
func (b *builder) ref(n graph.Node) (map[string]any, error) {
	name, ok := b.names[n]
	if !ok {
		name = n.Base().Name
		for i := 2; b.taken[name]; i++ {
			name = n.Base().Name + strconv.Itoa(i)
		}
		b.taken[name] = true
		b.names[n] = name
		// Reserve the slot before recursing so cycles end at the $ref.
		b.defs[name] = map[string]any{}
		def, err := b.schema(n, true)
		if err != nil {
			return nil, err
		}
		b.defs[name] = def
	}
	return map[string]any{"$ref": "#/$defs/" + name}, nil
}

// primitive fills the keywords for a scalar, translating validate rules
// where JSON Schema has an equivalent.
func primitive(out map[string]any, p *graph.PrimitiveNode) {
	switch p.Type {
	case graph.PrimitiveString:
		out["type"] = "string"
	case graph.PrimitiveNumber:
		out["type"] = "number"
	case graph.PrimitiveInteger:
		out["type"] = "integer"
	case graph.PrimitiveBoolean:
		out["type"] = "boolean"
	case graph.PrimitiveNull:
		out["type"] = "null"
	default:
		return
	}
	if p.Format != "" {
		out["format"] = p.Format
	}
	isString := p.Type == graph.PrimitiveString
	for _, r := range dialect.ParseValidateTag(p.Validate) {
		n, numErr := strconv.ParseFloat(r.Param, 64)
		switch r.Name {
		case "required":
			if isString {
				out["minLength"] = 1
			}
		case "min", "gte":
			if numErr == nil {
				if isString {
					out["minLength"] = int(n)
				} else {
					out["minimum"] = n
				}
			}
		case "max", "lte":
			if numErr == nil {
				if isString {
					out["maxLength"] = int(n)
				} else {
					out["maximum"] = n
				}
			}
		case "len":
			if numErr == nil && isString {
				out["minLength"] = int(n)
				out["maxLength"] = int(n)
			}
		case "gt":
			if numErr == nil && !isString {
				out["exclusiveMinimum"] = n
			}
		case "lt":
			if numErr == nil && !isString {
				out["exclusiveMaximum"] = n
			}
		case "email", "uuid", "ipv4", "ipv6", "hostname":
			out["format"] = r.Name
		case "url", "uri":
			out["format"] = "uri"
		case "datetime":
			out["format"] = "date-time"
		}
	}
}
