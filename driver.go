package therefore

import (
	"log/slog"
	"path"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/skyleague/therefore-sub001/dialect"
	"github.com/skyleague/therefore-sub001/emit"
	"github.com/skyleague/therefore-sub001/graph"
	"github.com/skyleague/therefore-sub001/symbol"
)

// Result is the outcome of a generation run.
type Result struct {
	// Files are the non-empty files, sorted by path.
	Files []File

	// Removed are stale files deleted by Clean.
	Removed []string
}

// File is one generated file.
type File struct {
	Path    string
	Dialect string
	Content []byte

	// Exports are the exported names, in declaration order.
	Exports []string

	// Cyclic lists declarations found in a dependency cycle.
	Cyclic []graph.ID
}

// Get returns the file at path, or nil.
func (r *Result) Get(path string) *File {
	for i := range r.Files {
		if r.Files[i].Path == path {
			return &r.Files[i]
		}
	}
	return nil
}

type runOptions struct {
	root   string
	banner []string
	logger *slog.Logger
}

// output pairs a dialect output with its file.
type output struct {
	dialect.Output
	file *emit.File
}

// run renders every document of gr with d. Homes are claimed for all roots
// before any symbol is added so cross-file references resolve to the
// file that declares them.
func run(gr *graph.Graph, d dialect.Dialect, opts runOptions) ([]File, error) {
	reg := symbol.NewRegistry()
	fileOpts := emit.Options{
		Logger:         opts.logger.With(slog.String("dialect", d.Name())),
		Registry:       reg,
		Banner:         opts.banner,
		LintDirectives: d.LintDirectives(),
		Edges:          graph.NewEdgeCache(4096),
	}

	var files []*emit.File
	byPath := make(map[string]*emit.File)
	outputs := make(map[*graph.Document][]output, len(gr.Documents))
	for _, doc := range gr.Documents {
		rel, err := relativeTo(opts.root, doc.Path)
		if err != nil {
			return nil, err
		}
		for _, o := range d.Outputs(rel) {
			f, ok := byPath[o.Path]
			if !ok {
				f = emit.NewFile(o.Path, o.Strategies, fileOpts)
				byPath[o.Path] = f
				files = append(files, f)
			}
			outputs[doc] = append(outputs[doc], output{Output: o, file: f})
		}
	}

	roots := func(doc *graph.Document) []graph.Node {
		nodes := append([]graph.Node(nil), doc.Nodes...)
		for _, s := range doc.Services {
			nodes = append(nodes, s)
		}
		return nodes
	}

	for _, doc := range gr.Documents {
		for _, n := range roots(doc) {
			for _, o := range outputs[doc] {
				if enabled(o.Strategies, n) {
					if err := reg.Claim(n, o.Path); err != nil {
						return nil, err
					}
					break
				}
			}
		}
	}

	for _, doc := range gr.Documents {
		for _, n := range roots(doc) {
			home, ok := reg.Home(n.Base().ID)
			if !ok {
				fileOpts.Logger.Debug("no strategy renders declaration",
					slog.String("document", doc.Path),
					slog.String("name", n.Base().Name))
				continue
			}
			for _, o := range outputs[doc] {
				if o.Path != home {
					continue
				}
				for _, s := range o.Strategies {
					if err := o.file.AddSymbol(n, s, true); err != nil {
						return nil, err
					}
				}
			}
		}
	}

	for _, f := range files {
		if err := f.Bind(); err != nil {
			return nil, err
		}
	}

	var out []File
	for _, f := range files {
		text, err := f.Render()
		if err != nil {
			return nil, errors.Wrapf(err, "render %s", f.Path())
		}
		if text == "" {
			continue
		}
		gf := File{Path: f.Path(), Dialect: d.Name(), Content: []byte(text), Cyclic: f.Cyclic()}
		for _, e := range f.Exports() {
			gf.Exports = append(gf.Exports, e.Name)
		}
		out = append(out, gf)
	}
	return out, nil
}

func enabled(strategies []emit.Strategy, n graph.Node) bool {
	for _, s := range strategies {
		if s.Enabled(n) {
			return true
		}
	}
	return false
}

// relativeTo returns doc relative to root, slash separated.
func relativeTo(root, doc string) (string, error) {
	root = path.Clean(filepath.ToSlash(root))
	doc = path.Clean(filepath.ToSlash(doc))
	if root == "." && !path.IsAbs(doc) && !strings.HasPrefix(doc, "../") {
		return doc, nil
	}
	rel, ok := strings.CutPrefix(doc, strings.TrimSuffix(root, "/")+"/")
	if !ok {
		return "", errors.Newf("schema %s is outside root %s", doc, root)
	}
	return rel, nil
}
