package emit

import (
	"cmp"
	"log/slog"
	"slices"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/skyleague/therefore-sub001/declsort"
	"github.com/skyleague/therefore-sub001/graph"
	"github.com/skyleague/therefore-sub001/symbol"
)

// Options configures a File.
type Options struct {
	// Logger receives diagnostics. Defaults to slog.Default().
	Logger *slog.Logger

	// Registry is shared by every file of a dialect. A private registry is
	// created when nil, which only suits single-file use.
	Registry *symbol.Registry

	// ExportLocal decides whether a hoisted node is exported. By default
	// referenceable named nodes are exported and everything else stays
	// file-local.
	ExportLocal func(graph.Node) bool

	// Banner replaces DefaultBanner.
	Banner []string

	// LintDirectives follow the banner, e.g. "/* eslint-disable */".
	LintDirectives []string

	// ImportPath turns the path of another output file into the module
	// specifier used to import it from this file. Defaults to
	// RelativeImport.
	ImportPath func(from, to string) (string, error)

	// Fallback is passed to the symbol table, see symbol.WithFallback.
	Fallback func(graph.Node, string) string

	// Edges memoizes graph edges while sorting.
	Edges *graph.EdgeCache
}

type seenKey struct {
	id      graph.ID
	subtype string
}

type pendingLocal struct {
	node   graph.Node
	via    []string
	export bool
}

type external struct {
	module    string
	name      string
	isDefault bool
	value     bool
}

// File aggregates the declarations of one output file.
type File struct {
	path       string
	strategies []Strategy
	opts       Options
	table      *symbol.Table

	decls     []Declaration
	seen      map[seenKey]bool
	pending   []pendingLocal
	exports   map[graph.ID]bool
	imports   map[graph.ID]string
	externals []external
	generated bool
	bound     bool
	cyclic    []graph.ID
}

// NewFile returns a file at path. strategies are the strategies that write
// into this file; hoisted nodes are offered to each of them.
func NewFile(path string, strategies []Strategy, opts Options) *File {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Registry == nil {
		opts.Registry = symbol.NewRegistry()
	}
	if opts.ExportLocal == nil {
		opts.ExportLocal = graph.Referenceable
	}
	if opts.ImportPath == nil {
		opts.ImportPath = RelativeImport
	}
	var tableOpts []symbol.Option
	if opts.Fallback != nil {
		tableOpts = append(tableOpts, symbol.WithFallback(opts.Fallback))
	}
	return &File{
		path:       path,
		strategies: strategies,
		opts:       opts,
		table:      symbol.NewTable(tableOpts...),
		seen:       make(map[seenKey]bool),
		exports:    make(map[graph.ID]bool),
		imports:    make(map[graph.ID]string),
	}
}

// Path returns the output path.
func (f *File) Path() string { return f.path }

// Generated reports whether any declaration is machine generated.
func (f *File) Generated() bool { return f.generated }

// Declarations returns the declarations added so far. After Bind they are
// in structural order.
func (f *File) Declarations() []Declaration { return f.decls }

// Table returns the file's symbol table.
func (f *File) Table() *symbol.Table { return f.table }

// Cyclic returns the roots found in a dependency cycle by the last Render.
func (f *File) Cyclic() []graph.ID { return f.cyclic }

// Export is a name exported by a file.
type Export struct {
	Node graph.Node
	Name string
}

// Exports returns the exported declarations with their final names. It is
// only meaningful after Bind.
func (f *File) Exports() []Export {
	var out []Export
	done := make(map[graph.ID]bool)
	for _, d := range f.decls {
		id := d.Node.Base().ID
		if done[id] || !f.exports[id] {
			continue
		}
		done[id] = true
		name, _ := f.table.Final(id)
		out = append(out, Export{Node: d.Node, Name: name})
	}
	return out
}

// AddSymbol renders n with s into this file. Adding the same node with the
// same strategy twice is a no-op. Errors reported by the strategy through
// its Context are returned.
func (f *File) AddSymbol(n graph.Node, s Strategy, export bool) error {
	id := n.Base().ID
	key := seenKey{id: id, subtype: s.Subtype()}
	if f.seen[key] {
		return nil
	}
	f.seen[key] = true
	if !s.Enabled(n) {
		return nil
	}
	if err := f.opts.Registry.Claim(n, f.path); err != nil {
		return err
	}
	f.table.Track(n)
	if s.IsGenerated(n) {
		f.generated = true
	}
	if export {
		f.exports[id] = true
	}

	current := f.table.Name(n)
	name := current
	for _, hook := range s.OnExport() {
		name = hook(n, name)
	}
	if name != current {
		f.table.SetName(id, name)
	}

	ctx := &Context{file: f, strategy: s, node: n}
	text, ok := s.Definition(n, ctx)
	if err := ctx.err(); err != nil {
		return errors.Wrapf(err, "%s: render %s with %s", f.path, describe(n), s.Subtype())
	}
	if ok {
		f.decls = append(f.decls, Declaration{Node: n, Text: text, Strategy: s})
	}
	return nil
}

// track routes a referenced node: nodes homed elsewhere become imports,
// nodes homed here (or claimed now) are queued for declaration.
func (f *File) track(n graph.Node, via []string) {
	id := n.Base().ID
	home, _ := f.opts.Registry.Adopt(n, f.path)
	f.table.Track(n)
	if home != f.path {
		f.imports[id] = home
		return
	}
	f.pending = append(f.pending, pendingLocal{node: n, via: via, export: f.opts.ExportLocal(n)})
}

func (f *File) addExternal(module, name string, isDefault, value bool) {
	f.table.Reserve(name)
	for i, e := range f.externals {
		if e.module == module && e.name == name && e.isDefault == isDefault {
			f.externals[i].value = e.value || value
			return
		}
	}
	f.externals = append(f.externals, external{module: module, name: name, isDefault: isDefault, value: value})
}

// Bind declares every queued local, resolves name collisions among the
// file's declarations and publishes exported names to the registry. It can
// be called again after more symbols are added.
func (f *File) Bind() error {
	for len(f.pending) > 0 {
		l := f.pending[0]
		f.pending = f.pending[1:]
		for _, s := range f.strategies {
			if !slices.Contains(l.via, s.Subtype()) {
				continue
			}
			if err := f.AddSymbol(l.node, s, l.export); err != nil {
				return err
			}
		}
	}

	raw := make(map[graph.ID]string, len(f.decls))
	for _, d := range f.decls {
		id := d.Node.Base().ID
		name := f.table.Name(d.Node)
		if name == "" {
			return errors.AssertionFailedf("emit: %s: declared %s has no name", f.path, describe(d.Node))
		}
		raw[id] = name
	}
	final := f.table.ResolveData(raw)

	for _, d := range f.decls {
		id := d.Node.Base().ID
		if !f.exports[id] {
			continue
		}
		if err := f.opts.Registry.Publish(id, final[id]); err != nil {
			return errors.Wrapf(err, "%s: publish %s", f.path, describe(d.Node))
		}
	}

	slices.SortStableFunc(f.decls, func(a, b Declaration) int {
		if c := symbol.Compare(a.Node, b.Node); c != 0 {
			return c
		}
		return cmp.Compare(b.Strategy.Subtype(), a.Strategy.Subtype())
	})
	f.bound = true
	return nil
}

// Render returns the file contents. It returns "" when the file has no
// declarations. Every file of the run must be bound before any is
// rendered, so that names imported from other files are published.
func (f *File) Render() (string, error) {
	if !f.bound || len(f.pending) > 0 {
		if err := f.Bind(); err != nil {
			return "", err
		}
	}
	if len(f.decls) == 0 {
		return "", nil
	}

	var b strings.Builder
	if f.generated {
		banner := f.opts.Banner
		if banner == nil {
			banner = DefaultBanner
		}
		for _, line := range banner {
			b.WriteString(line)
			b.WriteByte('\n')
		}
		for _, d := range f.opts.LintDirectives {
			b.WriteString(d)
			b.WriteByte('\n')
		}
		b.WriteByte('\n')
	}

	if imports := f.renderImports(); imports != "" {
		b.WriteString(imports)
		b.WriteString("\n\n")
	}

	units := make([]declsort.Unit, len(f.decls))
	for i, d := range f.decls {
		units[i] = declsort.Unit{
			Node:     d.Node,
			Text:     d.Text,
			Subtype:  d.Strategy.Subtype(),
			TypeOnly: d.Strategy.IsTypeOnly(),
		}
	}
	sorted, cyclic := declsort.Sort(units, declsort.Options{
		Logger: f.opts.Logger,
		File:   f.path,
		Edges:  f.opts.Edges,
	})
	f.cyclic = cyclic
	for _, u := range sorted {
		b.WriteString(strings.TrimRight(u.Text, "\n"))
		b.WriteString("\n\n")
	}

	out := f.table.Render(b.String())
	return strings.TrimRight(out, "\n") + "\n", nil
}
