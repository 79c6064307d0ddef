package graph

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// ErrUnknownRef is returned when a $ref names a node that does not exist.
var ErrUnknownRef = errors.New("unknown reference")

// idNamespace seeds the version 5 UUIDs assigned to nodes without an
// explicit id, so ids depend only on document path and node position.
var idNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://therefore.dev/schema"))

// LoadError describes a problem at a location in a schema document.
type LoadError struct {
	Path    string // document path
	Pointer string // location inside the document, e.g. "#/Pet/properties/id"
	Msg     string
	Err     error
}

func (e *LoadError) Error() string {
	if e.Pointer == "" {
		return e.Path + ": " + e.Msg
	}
	return e.Path + e.Pointer + ": " + e.Msg
}

func (e *LoadError) Unwrap() error { return e.Err }

// LoadErrors collects every problem found while loading.
type LoadErrors []*LoadError

func (es LoadErrors) Error() string {
	msgs := make([]string, len(es))
	for i, e := range es {
		msgs[i] = e.Error()
	}
	return strings.Join(msgs, "\n")
}

// Is lets errors.Is see through to the individual errors.
func (es LoadErrors) Is(target error) bool {
	for _, e := range es {
		if errors.Is(e, target) {
			return true
		}
	}
	return false
}

// Document is one parsed schema document.
type Document struct {
	// Path identifies the document and is used as the Source of its nodes.
	Path string

	// Nodes are the named declarations in document order, including
	// validators declared through `validator: true`.
	Nodes []Node

	// Services are the declared services in document order.
	Services []*ServiceNode

	byName map[string]Node
}

// Lookup returns the named declaration or nil.
func (d *Document) Lookup(name string) Node {
	return d.byName[name]
}

// Graph is a set of documents whose references have been resolved.
type Graph struct {
	Documents []*Document
}

// Roots returns every declaration of every document: named nodes followed
// by services, in document order.
func (g *Graph) Roots() []Node {
	var roots []Node
	for _, d := range g.Documents {
		roots = append(roots, d.Nodes...)
		for _, s := range d.Services {
			roots = append(roots, s)
		}
	}
	return roots
}

// Document returns the document with the given path or nil.
func (g *Graph) Document(path string) *Document {
	for _, d := range g.Documents {
		if d.Path == path {
			return d
		}
	}
	return nil
}

// Load reads and parses the schema documents at paths. YAML and JSON
// documents are both accepted.
func Load(paths ...string) (*Graph, error) {
	sources := make(map[string][]byte, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, errors.Wrapf(err, "read schema %s", p)
		}
		sources[filepath.ToSlash(p)] = data
	}
	return Parse(sources)
}

// Parse builds a graph from in-memory documents keyed by path. References
// may cross documents using "other.yaml#Name".
func Parse(sources map[string][]byte) (*Graph, error) {
	paths := make([]string, 0, len(sources))
	for p := range sources {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	l := &loader{docs: make(map[string]*Document)}
	g := &Graph{}
	raws := make(map[string]*rawDocument, len(paths))
	for _, p := range paths {
		var raw rawDocument
		if err := yaml.Unmarshal(sources[p], &raw); err != nil {
			l.errs = append(l.errs, &LoadError{Path: p, Msg: "parse: " + err.Error(), Err: err})
			continue
		}
		raws[p] = &raw
		doc := &Document{Path: p, byName: make(map[string]Node)}
		l.docs[p] = doc
		g.Documents = append(g.Documents, doc)
	}

	// Declare every named node before building bodies so forward and
	// cross-document references resolve.
	for _, doc := range g.Documents {
		l.declare(doc, raws[doc.Path])
	}
	for _, doc := range g.Documents {
		l.define(doc, raws[doc.Path])
	}
	l.resolve()
	l.rejectRefCycles()

	if len(l.errs) > 0 {
		return nil, l.errs
	}
	for _, doc := range g.Documents {
		markLazy(doc.Nodes)
	}
	return g, nil
}

type pendingRef struct {
	node    *RefNode
	doc     *Document
	ref     string
	pointer string
}

type loader struct {
	docs    map[string]*Document
	bodies  map[Node]*rawSchema
	pending []pendingRef
	errs    LoadErrors

	// ids maps every assigned id to the location that claimed it.
	ids map[ID]string
}

func (l *loader) fail(doc *Document, pointer, format string, args ...any) {
	l.errs = append(l.errs, &LoadError{Path: doc.Path, Pointer: pointer, Msg: fmt.Sprintf(format, args...)})
}

func (l *loader) id(doc *Document, explicit, pointer string) ID {
	id := ID(uuid.NewSHA1(idNamespace, []byte(doc.Path+pointer)).String())
	if explicit != "" {
		id = ID(explicit)
		if !id.Valid() {
			l.fail(doc, pointer, "invalid id %q: ids must not contain '{', '}' or ':'", explicit)
		}
	}
	if l.ids == nil {
		l.ids = make(map[ID]string)
	}
	if prev, dup := l.ids[id]; dup {
		l.fail(doc, pointer, "duplicate id %q, already used by %s", id, prev)
		return id
	}
	l.ids[id] = doc.Path + pointer
	return id
}

// declare allocates the top-level named nodes of doc.
func (l *loader) declare(doc *Document, raw *rawDocument) {
	if l.bodies == nil {
		l.bodies = make(map[Node]*rawSchema)
	}
	for _, entry := range raw.Nodes {
		pointer := "#/" + entry.Key
		n := l.alloc(doc, entry.Value, pointer)
		if n == nil {
			continue
		}
		m := n.Base()
		m.Name = entry.Key
		m.Source = doc.Path
		if _, dup := doc.byName[entry.Key]; dup {
			l.fail(doc, pointer, "duplicate declaration %q", entry.Key)
			continue
		}
		doc.byName[entry.Key] = n
		doc.Nodes = append(doc.Nodes, n)
		l.bodies[n] = entry.Value

		if entry.Value.Validator {
			name := entry.Key + "Validator"
			v := &ValidatorNode{Child: n}
			v.ID = l.id(doc, "", pointer+"/validator")
			v.Name = name
			v.Source = doc.Path
			v.Generated = true
			if _, dup := doc.byName[name]; dup {
				l.fail(doc, pointer, "validator name %q is already declared", name)
				continue
			}
			doc.byName[name] = v
			doc.Nodes = append(doc.Nodes, v)
		}
	}
}

// define fills the bodies of the declared nodes and builds services.
func (l *loader) define(doc *Document, raw *rawDocument) {
	for _, n := range doc.Nodes {
		body, ok := l.bodies[n]
		if !ok {
			continue
		}
		l.fill(doc, n, body, "#/"+n.Base().Name)
	}
	for _, entry := range raw.Services {
		pointer := "#/services/" + entry.Key
		svc := &ServiceNode{}
		svc.ID = l.id(doc, entry.Value.ID, pointer)
		svc.Name = entry.Key
		svc.Description = entry.Value.Description
		svc.Source = doc.Path
		svc.Generated = true
		for i, ep := range entry.Value.Endpoints {
			epPointer := fmt.Sprintf("%s/endpoints/%d", pointer, i)
			if ep.Name == "" {
				l.fail(doc, epPointer, "endpoint name is required")
			}
			method := strings.ToUpper(ep.Method)
			if method == "" {
				method = "GET"
			}
			out := Endpoint{Name: ep.Name, Method: method, Path: ep.Path, Summary: ep.Summary}
			if ep.Request != nil {
				out.Request = l.build(doc, ep.Request, epPointer+"/request")
			}
			if ep.Response != nil {
				out.Response = l.build(doc, ep.Response, epPointer+"/response")
			}
			svc.Endpoints = append(svc.Endpoints, out)
		}
		if _, dup := doc.byName[entry.Key]; dup {
			l.fail(doc, pointer, "service %q collides with a node declaration", entry.Key)
			continue
		}
		doc.byName[entry.Key] = svc
		doc.Services = append(doc.Services, svc)
	}
}

// alloc creates an empty node of the right kind for raw.
func (l *loader) alloc(doc *Document, raw *rawSchema, pointer string) Node {
	if raw == nil {
		l.fail(doc, pointer, "empty schema")
		return nil
	}
	var n Node
	switch {
	case raw.Ref != "":
		n = &RefNode{}
	case len(raw.Enum) > 0:
		n = &EnumNode{}
	case raw.Const.Kind != 0:
		n = &ConstNode{}
	case len(raw.OneOf) > 0:
		n = &UnionNode{}
	case len(raw.AllOf) > 0:
		n = &IntersectionNode{}
	default:
		switch raw.Type {
		case "object", "":
			if raw.Type == "" && raw.Properties == nil && raw.AdditionalProperties == nil {
				n = &PrimitiveNode{Type: PrimitiveUnknown}
				break
			}
			if len(raw.Properties) == 0 && raw.AdditionalProperties != nil {
				n = &RecordNode{}
				break
			}
			n = &ObjectNode{}
		case "array":
			if len(raw.PrefixItems) > 0 {
				n = &TupleNode{}
			} else {
				n = &ArrayNode{}
			}
		case "tuple":
			n = &TupleNode{}
		case "record":
			n = &RecordNode{}
		default:
			prim, ok := ParsePrimitive(raw.Type)
			if !ok {
				l.fail(doc, pointer, "unknown type %q", raw.Type)
				return nil
			}
			n = &PrimitiveNode{Type: prim}
		}
	}
	m := n.Base()
	m.ID = l.id(doc, raw.ID, pointer)
	m.Description = raw.Description
	m.Alias = raw.Alias
	m.Lazy = raw.Lazy
	return n
}

// build allocates and fills an inline node, applying optional and nullable
// wrappers.
func (l *loader) build(doc *Document, raw *rawSchema, pointer string) Node {
	n := l.alloc(doc, raw, pointer)
	if n == nil {
		return nil
	}
	m := n.Base()
	m.Source = doc.Path
	l.fill(doc, n, raw, pointer)
	return l.wrap(doc, n, raw, pointer)
}

func (l *loader) wrap(doc *Document, n Node, raw *rawSchema, pointer string) Node {
	if raw.Nullable {
		w := &NullableNode{Inner: n}
		w.ID = l.id(doc, "", pointer+"/nullable")
		n = w
	}
	if raw.Optional {
		w := &OptionalNode{Inner: n}
		w.ID = l.id(doc, "", pointer+"/optional")
		n = w
	}
	return n
}

func (l *loader) fill(doc *Document, n Node, raw *rawSchema, pointer string) {
	switch t := n.(type) {
	case *RefNode:
		l.pending = append(l.pending, pendingRef{node: t, doc: doc, ref: raw.Ref, pointer: pointer})
	case *EnumNode:
		for _, v := range raw.Enum {
			t.Values = append(t.Values, normalizeLiteral(v))
		}
	case *ConstNode:
		var v any
		if err := raw.Const.Decode(&v); err != nil {
			l.fail(doc, pointer, "const: %v", err)
		}
		t.Value = normalizeLiteral(v)
	case *UnionNode:
		for i, member := range raw.OneOf {
			if c := l.build(doc, member, fmt.Sprintf("%s/oneOf/%d", pointer, i)); c != nil {
				t.Members = append(t.Members, c)
			}
		}
	case *IntersectionNode:
		for i, member := range raw.AllOf {
			if c := l.build(doc, member, fmt.Sprintf("%s/allOf/%d", pointer, i)); c != nil {
				t.Members = append(t.Members, c)
			}
		}
	case *ObjectNode:
		for _, p := range raw.Properties {
			if c := l.build(doc, p.Value, pointer+"/properties/"+p.Key); c != nil {
				t.Properties = append(t.Properties, Property{Name: p.Key, Node: c})
			}
		}
		if raw.AdditionalProperties != nil {
			t.Additional = l.build(doc, raw.AdditionalProperties, pointer+"/additionalProperties")
		}
	case *RecordNode:
		if raw.AdditionalProperties != nil {
			t.Value = l.build(doc, raw.AdditionalProperties, pointer+"/additionalProperties")
		} else if raw.Items != nil {
			t.Value = l.build(doc, raw.Items, pointer+"/items")
		} else {
			t.Value = &PrimitiveNode{Meta: Meta{ID: l.id(doc, "", pointer+"/additionalProperties")}, Type: PrimitiveUnknown}
		}
	case *ArrayNode:
		if raw.Items == nil {
			l.fail(doc, pointer, "array requires items")
			return
		}
		t.Element = l.build(doc, raw.Items, pointer+"/items")
		t.MinItems = raw.MinItems
		t.MaxItems = raw.MaxItems
	case *TupleNode:
		for i, item := range raw.PrefixItems {
			if c := l.build(doc, item, fmt.Sprintf("%s/prefixItems/%d", pointer, i)); c != nil {
				t.Items = append(t.Items, c)
			}
		}
	case *PrimitiveNode:
		t.Format = raw.Format
		t.Validate = raw.Validate
	}
}

func (l *loader) resolve() {
	for _, p := range l.pending {
		docPath, name := p.doc.Path, p.ref
		if i := strings.LastIndex(p.ref, "#"); i >= 0 {
			if i > 0 {
				docPath = relativeTo(p.doc.Path, p.ref[:i])
			}
			name = strings.TrimPrefix(p.ref[i+1:], "/")
		}
		target, ok := l.docs[docPath]
		if !ok {
			l.errs = append(l.errs, &LoadError{Path: p.doc.Path, Pointer: p.pointer, Msg: fmt.Sprintf("unknown document %q", docPath), Err: ErrUnknownRef})
			continue
		}
		n := target.Lookup(name)
		if n == nil {
			l.errs = append(l.errs, &LoadError{Path: p.doc.Path, Pointer: p.pointer, Msg: fmt.Sprintf("unknown reference %q", p.ref), Err: ErrUnknownRef})
			continue
		}
		p.node.Target = n
	}
}

// rejectRefCycles reports references that lead back to themselves through
// nothing but other references. Such a chain names no type at all.
func (l *loader) rejectRefCycles() {
	for _, p := range l.pending {
		seen := make(map[*RefNode]bool)
		for r := p.node; r != nil && !seen[r]; {
			seen[r] = true
			next, ok := r.Target.(*RefNode)
			if !ok {
				break
			}
			if next == p.node {
				l.fail(p.doc, p.pointer, "reference cycle: %q only leads back to itself", p.ref)
				break
			}
			r = next
		}
	}
}

// relativeTo resolves ref against the directory of from.
func relativeTo(from, ref string) string {
	if filepath.IsAbs(ref) {
		return filepath.ToSlash(ref)
	}
	return filepath.ToSlash(filepath.Join(filepath.Dir(from), ref))
}

// markLazy flags every declaration that can reach itself.
func markLazy(nodes []Node) {
	for _, n := range nodes {
		if n.Base().Lazy {
			continue
		}
		recursive := false
		e := EdgesOf(n)
		for _, c := range append(e.Connections, e.Children...) {
			Walk(c, func(x Node) bool {
				if x == n {
					recursive = true
				}
				return !recursive
			})
			if recursive {
				break
			}
		}
		n.Base().Lazy = recursive
	}
}

// normalizeLiteral converts decoded YAML scalars to string, int64, float64,
// bool or nil.
func normalizeLiteral(v any) any {
	switch t := v.(type) {
	case int:
		return int64(t)
	case int64, float64, string, bool, nil:
		return t
	case uint64:
		return int64(t)
	default:
		return fmt.Sprint(t)
	}
}
