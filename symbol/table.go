package symbol

import (
	"slices"
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/skyleague/therefore-sub001/graph"
)

// Record accumulates how a node was referenced within one file.
type Record struct {
	Node graph.Node

	// Tags lists the distinct tags requested, in first-request order.
	Tags []Tag

	// Value is set once any usage required a runtime binding.
	Value bool
}

// Has reports whether tag was requested.
func (r *Record) Has(tag Tag) bool {
	return slices.Contains(r.Tags, tag)
}

// RefOption configures a single Reference call.
type RefOption func(*refConfig)

type refConfig struct {
	value bool
}

// AsValue marks the usage as a runtime value rather than a type.
func AsValue() RefOption {
	return func(c *refConfig) { c.value = true }
}

// Option configures a Table.
type Option func(*Table)

// WithFallback sets the name used by TypeName when a node's natural name
// is reserved in the file, e.g. by an import from an external module.
func WithFallback(fn func(n graph.Node, name string) string) Option {
	return func(t *Table) { t.fallback = fn }
}

// Table is the symbol table of one output file. It is not safe for
// concurrent use; each file owns its table.
type Table struct {
	nodes      map[graph.ID]graph.Node
	records    map[graph.ID]*Record
	order      []graph.ID
	names      map[graph.ID]string
	final      map[graph.ID]string
	transforms map[graph.ID][]func(string) string
	reserved   map[string]bool
	fallback   func(graph.Node, string) string
}

// NewTable returns an empty table.
func NewTable(opts ...Option) *Table {
	t := &Table{
		nodes:      make(map[graph.ID]graph.Node),
		records:    make(map[graph.ID]*Record),
		names:      make(map[graph.ID]string),
		final:      make(map[graph.ID]string),
		transforms: make(map[graph.ID][]func(string) string),
		reserved:   make(map[string]bool),
	}
	t.fallback = t.suffixFallback
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Track makes n known to the table without recording a reference, so it
// takes part in ordering when collisions are resolved.
func (t *Table) Track(n graph.Node) {
	t.nodes[n.Base().ID] = n
}

// Reference records a usage of n under tag and returns its pending
// reference. Repeated calls for the same (node, tag) return the same
// placeholder.
func (t *Table) Reference(n graph.Node, tag Tag, opts ...RefOption) Ref {
	var cfg refConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	id := n.Base().ID
	t.nodes[id] = n
	rec, ok := t.records[id]
	if !ok {
		rec = &Record{Node: n}
		t.records[id] = rec
		t.order = append(t.order, id)
	}
	if !rec.Has(tag) {
		rec.Tags = append(rec.Tags, tag)
	}
	if cfg.value {
		rec.Value = true
	}
	return Pending(id, tag)
}

// Lookup returns the reference record of id.
func (t *Table) Lookup(id graph.ID) (*Record, bool) {
	rec, ok := t.records[id]
	return rec, ok
}

// Records returns every reference record in first-reference order.
func (t *Table) Records() []*Record {
	out := make([]*Record, len(t.order))
	for i, id := range t.order {
		out[i] = t.records[id]
	}
	return out
}

// SetName overrides the provisional name of id. Export hooks and hoisted
// locals use it; the node itself is never mutated.
func (t *Table) SetName(id graph.ID, name string) {
	t.names[id] = name
}

// Name returns the provisional name of n: an override set through SetName,
// else its alias, else its declared name.
func (t *Table) Name(n graph.Node) string {
	m := n.Base()
	if name, ok := t.names[m.ID]; ok {
		return name
	}
	if m.Alias != "" {
		return m.Alias
	}
	return m.Name
}

// Reserve marks name as taken by something that is not a node, such as an
// import from an external module.
func (t *Table) Reserve(name string) {
	t.reserved[name] = true
}

// TypeName returns the name to print for n right now. Once collisions are
// resolved this is the final name. Before that it is the provisional name,
// passed through the fallback when the name is reserved.
func (t *Table) TypeName(n graph.Node) (string, error) {
	m := n.Base()
	if name, ok := t.final[m.ID]; ok {
		return name, nil
	}
	name := t.Name(n)
	if name == "" {
		return "", errors.AssertionFailedf("symbol: %s node %s has no name", n.Kind(), m.ID)
	}
	if t.reserved[name] && t.fallback != nil {
		return t.fallback(n, name), nil
	}
	return name, nil
}

func (t *Table) suffixFallback(n graph.Node, name string) string {
	if alias := n.Base().Alias; alias != "" && !t.reserved[alias] {
		return alias
	}
	for i := 2; ; i++ {
		candidate := name + strconv.Itoa(i)
		if !t.reserved[candidate] {
			return candidate
		}
	}
}

// Transform layers fn onto the resolved name of id. Transforms compose in
// registration order.
func (t *Table) Transform(id graph.ID, fn func(string) string) {
	t.transforms[id] = append(t.transforms[id], fn)
}

func (t *Table) apply(id graph.ID, name string) string {
	for _, fn := range t.transforms[id] {
		name = fn(name)
	}
	return name
}

// ResolveData turns provisional names into final names. Distinct ids with
// the same provisional name form a collision group. Ids that already have
// a final name, ids whose node carries an alias and names that still
// contain placeholders are left untouched. The remaining members of each
// group are ordered by Compare and suffixed "", "2", "3" and so on, skipping
// suffixed names that are already taken. The returned map covers every id
// in raw.
func (t *Table) ResolveData(raw map[graph.ID]string) map[graph.ID]string {
	out := make(map[graph.ID]string, len(raw))
	taken := make(map[string]bool, len(raw)+len(t.reserved))
	for name := range t.reserved {
		taken[name] = true
	}
	for _, name := range t.final {
		taken[name] = true
	}

	groups := make(map[string][]graph.ID)
	for id, name := range raw {
		if final, ok := t.final[id]; ok {
			out[id] = final
			continue
		}
		if n, ok := t.nodes[id]; (ok && n.Base().Alias != "") || HasPlaceholder(name) {
			final := t.apply(id, name)
			t.final[id] = final
			out[id] = final
			taken[final] = true
			continue
		}
		groups[name] = append(groups[name], id)
	}

	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	slices.Sort(names)

	// The first member of a group may keep its name unless something
	// outside the group holds it.
	free := make(map[string]bool, len(names))
	for _, name := range names {
		free[name] = !taken[name]
		taken[name] = true
	}

	for _, name := range names {
		members := groups[name]
		slices.SortFunc(members, t.compareIDs)
		n := 0
		for _, id := range members {
			var candidate string
			for {
				if n == 0 {
					candidate = name
				} else {
					candidate = name + strconv.Itoa(n+1)
				}
				n++
				if n == 1 {
					if free[name] {
						break
					}
					continue
				}
				if !taken[candidate] {
					break
				}
			}
			taken[candidate] = true
			if suffix := candidate[len(name):]; suffix != "" {
				t.Transform(id, func(s string) string { return s + suffix })
			}
			final := t.apply(id, name)
			t.final[id] = final
			out[id] = final
		}
	}
	return out
}

func (t *Table) compareIDs(a, b graph.ID) int {
	na, aok := t.nodes[a]
	nb, bok := t.nodes[b]
	if aok && bok {
		return Compare(na, nb)
	}
	// Untracked ids only order by id, descending.
	switch {
	case a > b:
		return -1
	case a < b:
		return 1
	}
	return 0
}

// Final returns the resolved name of id.
func (t *Table) Final(id graph.ID) (string, bool) {
	name, ok := t.final[id]
	return name, ok
}

func (t *Table) resolve(id graph.ID, tag Tag) (string, bool) {
	if !tag.Known() {
		return "", false
	}
	name, ok := t.final[id]
	if !ok {
		return "", false
	}
	if tag == TagAliasName {
		if n, ok := t.nodes[id]; ok && n.Base().Alias != "" {
			return n.Base().Alias, true
		}
	}
	return name, true
}

// Render substitutes every placeholder in text. Placeholders with an
// unknown tag or an unresolved id are left as they are.
func (t *Table) Render(text string) string {
	return placeholderRE.ReplaceAllStringFunc(text, func(m string) string {
		sub := placeholderRE.FindStringSubmatch(m)
		if name, ok := t.resolve(graph.ID(sub[1]), Tag(sub[2])); ok {
			return name
		}
		return m
	})
}
