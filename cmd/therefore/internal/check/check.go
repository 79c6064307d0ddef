package check

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	therefore "github.com/skyleague/therefore-sub001"
	"github.com/skyleague/therefore-sub001/cmd/therefore/internal/project"
	"github.com/skyleague/therefore-sub001/graph"
)

type Cmd struct {
	Schemas []string `arg:"" optional:"" help:"Schema documents (default: schemas from the project file)."`
	Dialect []string `help:"Dialect spec, e.g. zod?infer=false. Repeatable." short:"d"`
	Config  string   `help:"Project file (default: therefore.toml or therefore.yaml in the current directory)." short:"c"`
}

func (c *Cmd) Run(logger *slog.Logger) error {
	p, err := project.Resolve(project.Flags{
		ConfigPath: c.Config,
		Schemas:    c.Schemas,
		Dialects:   c.Dialect,
	}, ".")
	if err != nil {
		return err
	}

	gr, err := graph.Load(p.Paths...)
	if err != nil {
		return err
	}
	roots := gr.Roots()
	fmt.Printf("✓ %d documents, %d declarations\n", len(gr.Documents), len(roots))

	cfg := p.Config
	cfg.Logger = logger
	res, err := therefore.FromGraph(gr).WithConfig(cfg).Generate(context.Background())
	if err != nil {
		return err
	}
	fmt.Printf("✓ %d files render\n", len(res.Files))

	// Cycles are legal but usually deserve a look.
	names := make(map[graph.ID]string, len(roots))
	for _, n := range roots {
		names[n.Base().ID] = n.Base().Name
	}
	for _, f := range res.Files {
		if len(f.Cyclic) == 0 {
			continue
		}
		cyclic := make([]string, len(f.Cyclic))
		for i, id := range f.Cyclic {
			if name, ok := names[id]; ok {
				cyclic[i] = name
			} else {
				cyclic[i] = string(id)
			}
		}
		fmt.Printf("! %s: dependency cycle through %s\n", f.Path, strings.Join(cyclic, ", "))
	}
	return nil
}
