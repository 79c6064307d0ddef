// Package therefore generates TypeScript sources from schema documents.
//
// Schema documents are loaded into a node graph and rendered by one or
// more dialects. Each dialect writes its own set of files; declarations
// referenced across files are imported under collision-free local names.
//
// Example:
//
//	res, err := therefore.FromFiles("schemas/pets.yaml", "schemas/store.yaml").
//	    WithDialect("typescript").
//	    WithDialect("zod?infer=false").
//	    ToDir(ctx, "./src/generated")
package therefore

import (
	"context"
	"log/slog"
	"path"
	"slices"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/skyleague/therefore-sub001/dialect"
	"github.com/skyleague/therefore-sub001/emit"
	"github.com/skyleague/therefore-sub001/graph"
	"github.com/skyleague/therefore-sub001/sink"
)

// DefaultDialect is used when no dialect is selected.
const DefaultDialect = "typescript"

// Config holds the configuration for a generation run.
type Config struct {
	// Dialects are dialect specs such as "typescript" or "zod?infer=false".
	// Default: []string{"typescript"}
	Dialects []string

	// Root is the directory output paths are made relative to. Default:
	// the deepest directory containing every schema document.
	Root string

	// Banner replaces the generated file banner. It must still contain
	// emit.BannerMarker for Clean to recognise the files.
	Banner []string

	// Manifest writes ManifestPath listing every file and its exports.
	Manifest bool

	// Clean removes generated files from earlier runs that this run did
	// not produce. Only sinks implementing sink.Cleaner support it.
	Clean bool

	// Logger receives diagnostics. Default: slog.Default().
	Logger *slog.Logger
}

// Generator provides a fluent API for code generation. Create one with
// FromFiles, FromSources or FromGraph and finish with ToDir, WriteTo or
// Generate.
type Generator struct {
	paths   []string
	sources map[string][]byte
	graph   *graph.Graph
	cfg     Config
}

// FromFiles returns a Generator for the schema documents at paths.
func FromFiles(paths ...string) *Generator {
	return &Generator{paths: paths}
}

// FromSources returns a Generator for in-memory schema documents keyed by
// path.
func FromSources(sources map[string][]byte) *Generator {
	return &Generator{sources: sources}
}

// FromGraph returns a Generator for an already loaded graph.
func FromGraph(g *graph.Graph) *Generator {
	return &Generator{graph: g}
}

// WithConfig replaces the whole configuration.
func (g *Generator) WithConfig(cfg Config) *Generator {
	g.cfg = cfg
	return g
}

// WithDialect adds a dialect. Can be called multiple times.
func (g *Generator) WithDialect(spec string) *Generator {
	g.cfg.Dialects = append(g.cfg.Dialects, spec)
	return g
}

// Root sets the directory output paths are relative to.
func (g *Generator) Root(dir string) *Generator {
	g.cfg.Root = dir
	return g
}

// Banner replaces the generated file banner.
func (g *Generator) Banner(lines ...string) *Generator {
	g.cfg.Banner = lines
	return g
}

// Logger sets the logger for diagnostics.
func (g *Generator) Logger(l *slog.Logger) *Generator {
	g.cfg.Logger = l
	return g
}

// WithManifest enables the manifest file.
func (g *Generator) WithManifest() *Generator {
	g.cfg.Manifest = true
	return g
}

// WithClean removes stale generated files after writing.
func (g *Generator) WithClean() *Generator {
	g.cfg.Clean = true
	return g
}

// ToDir generates files into dir.
func (g *Generator) ToDir(ctx context.Context, dir string) (*Result, error) {
	return g.WriteTo(ctx, sink.NewFilesystemSink(dir))
}

// WriteTo generates files into out.
func (g *Generator) WriteTo(ctx context.Context, out sink.OutputSink) (*Result, error) {
	res, err := g.Generate(ctx)
	if err != nil {
		return nil, err
	}
	keep := make([]string, 0, len(res.Files)+1)
	for _, f := range res.Files {
		if err := out.WriteFile(ctx, f.Path, f.Content); err != nil {
			return nil, errors.Wrapf(err, "write %s", f.Path)
		}
		keep = append(keep, f.Path)
	}
	if g.cfg.Manifest {
		data, err := res.Manifest().Marshal()
		if err != nil {
			return nil, err
		}
		if err := out.WriteFile(ctx, ManifestPath, data); err != nil {
			return nil, errors.Wrapf(err, "write %s", ManifestPath)
		}
		keep = append(keep, ManifestPath)
	}
	if g.cfg.Clean {
		c, ok := out.(sink.Cleaner)
		if !ok {
			return nil, errors.Newf("clean: sink %T cannot remove files", out)
		}
		removed, err := c.Clean(ctx, keep, emit.BannerMarker)
		if err != nil {
			return nil, errors.Wrap(err, "clean")
		}
		for _, p := range removed {
			g.logger().Info("removed stale generated file", slog.String("file", p))
		}
		res.Removed = removed
	}
	return res, nil
}

// Generate renders every file in memory without writing it.
func (g *Generator) Generate(ctx context.Context) (*Result, error) {
	gr, err := g.load()
	if err != nil {
		return nil, err
	}
	if err := checkIDs(gr); err != nil {
		return nil, err
	}
	specs := g.cfg.Dialects
	if len(specs) == 0 {
		specs = []string{DefaultDialect}
	}
	root := g.cfg.Root
	if root == "" {
		root = commonDir(gr)
	}

	res := &Result{}
	for _, spec := range specs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		d, err := dialect.Get(spec)
		if err != nil {
			return nil, err
		}
		files, err := run(gr, d, runOptions{
			root:   root,
			banner: g.cfg.Banner,
			logger: g.logger(),
		})
		if err != nil {
			return nil, errors.Wrapf(err, "dialect %s", d.Name())
		}
		res.Files = append(res.Files, files...)
	}

	seen := make(map[string]string, len(res.Files))
	for _, f := range res.Files {
		if other, dup := seen[f.Path]; dup {
			return nil, errors.Newf("dialects %s and %s both write %s", other, f.Dialect, f.Path)
		}
		seen[f.Path] = f.Dialect
	}
	slices.SortFunc(res.Files, func(a, b File) int { return strings.Compare(a.Path, b.Path) })
	return res, nil
}

func (g *Generator) load() (*graph.Graph, error) {
	switch {
	case g.graph != nil:
		return g.graph, nil
	case g.sources != nil:
		return graph.Parse(g.sources)
	case len(g.paths) > 0:
		return graph.Load(g.paths...)
	}
	return nil, errors.New("no schema documents")
}

// checkIDs verifies that every reachable node carries a valid id that no
// other node uses. Parsed graphs always do; hand-built ones may not.
func checkIDs(gr *graph.Graph) error {
	owner := make(map[graph.ID]graph.Node)
	var err error
	for _, r := range gr.Roots() {
		graph.Walk(r, func(n graph.Node) bool {
			if err != nil {
				return false
			}
			m := n.Base()
			switch prev, dup := owner[m.ID]; {
			case m.ID == "":
				err = errors.AssertionFailedf("%s node %q has no id", n.Kind(), m.Name)
			case !m.ID.Valid():
				err = errors.AssertionFailedf("%s node %q has an invalid id %q", n.Kind(), m.Name, m.ID)
			case dup && prev != n:
				err = errors.AssertionFailedf("id %q is used by both %s %q and %s %q",
					m.ID, prev.Kind(), prev.Base().Name, n.Kind(), m.Name)
			}
			owner[m.ID] = n
			return err == nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (g *Generator) logger() *slog.Logger {
	if g.cfg.Logger != nil {
		return g.cfg.Logger
	}
	return slog.Default()
}

// commonDir returns the deepest directory containing every document.
func commonDir(gr *graph.Graph) string {
	var dir []string
	for i, doc := range gr.Documents {
		parts := strings.Split(path.Dir(path.Clean(doc.Path)), "/")
		if i == 0 {
			dir = parts
			continue
		}
		n := 0
		for n < len(dir) && n < len(parts) && dir[n] == parts[n] {
			n++
		}
		dir = dir[:n]
	}
	if len(dir) == 0 {
		return "."
	}
	return strings.Join(dir, "/")
}
