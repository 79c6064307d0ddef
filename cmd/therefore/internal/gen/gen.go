package gen

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/cockroachdb/errors"

	therefore "github.com/skyleague/therefore-sub001"
	"github.com/skyleague/therefore-sub001/cmd/therefore/internal/project"
	"github.com/skyleague/therefore-sub001/internal/watch"
)

type Cmd struct {
	Out      string   `arg:"" optional:"" help:"Output directory for generated files (default: out from the project file)."`
	Schemas  []string `arg:"" optional:"" help:"Schema documents (default: schemas from the project file)."`
	Dialect  []string `help:"Dialect spec, e.g. zod?infer=false. Repeatable." short:"d"`
	Config   string   `help:"Project file (default: therefore.toml or therefore.yaml in the current directory)." short:"c"`
	Root     string   `help:"Directory output paths are relative to."`
	Watch    bool     `help:"Watch for changes and regenerate." short:"w"`
	Clean    bool     `help:"Remove stale generated files."`
	Manifest bool     `help:"Write therefore.manifest.json."`
}

func (c *Cmd) Run(logger *slog.Logger) error {
	p, err := project.Resolve(c.flags(), ".")
	if err != nil {
		return err
	}
	if p.Out == "" {
		return errors.New("no output directory: pass it as the first argument or set out in the project file")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := generate(ctx, p, logger); err != nil {
		if !c.Watch {
			return err
		}
		logger.Error("generate failed", slog.Any("error", err))
	}
	if !c.Watch {
		return nil
	}

	w, err := watch.New(p.Watched(), watch.Options{Logger: logger})
	if err != nil {
		return err
	}
	logger.Info("watching for changes", slog.Int("files", len(p.Watched())))
	return w.Run(ctx, func(ctx context.Context) error {
		// The project file may have changed, so resolve again.
		next, err := project.Resolve(c.flags(), ".")
		if err != nil {
			return err
		}
		return generate(ctx, next, logger)
	})
}

func (c *Cmd) flags() project.Flags {
	return project.Flags{
		ConfigPath: c.Config,
		Out:        c.Out,
		Schemas:    c.Schemas,
		Dialects:   c.Dialect,
		Root:       c.Root,
		Clean:      c.Clean,
		Manifest:   c.Manifest,
	}
}

func generate(ctx context.Context, p *project.Project, logger *slog.Logger) error {
	cfg := p.Config
	cfg.Logger = logger
	res, err := therefore.FromFiles(p.Paths...).WithConfig(cfg).ToDir(ctx, p.Out)
	if err != nil {
		return err
	}
	fmt.Printf("✓ %d files written to %s\n", len(res.Files), p.Out)
	if len(res.Removed) > 0 {
		fmt.Printf("✓ %d stale files removed\n", len(res.Removed))
	}
	return nil
}
