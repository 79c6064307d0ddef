package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"github.com/skyleague/therefore-sub001/cmd/therefore/internal/check"
	"github.com/skyleague/therefore-sub001/cmd/therefore/internal/gen"
)

type CLI struct {
	Verbose bool `help:"Log debug output." short:"v"`

	Version VersionCmd `cmd:"" help:"Print version information."`
	Gen     gen.Cmd    `cmd:"" help:"Generate TypeScript sources from schema documents."`
	Check   check.Cmd  `cmd:"" help:"Load and render schema documents without writing files."`
}

type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	fmt.Println(Version())
	return nil
}

func main() {
	cli := &CLI{}
	ctx := kong.Parse(cli,
		kong.Name("therefore"),
		kong.Description("Generate TypeScript types, validators and clients from schema documents."),
		kong.UsageOnError(),
	)

	level := slog.LevelInfo
	if cli.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	err := ctx.Run(logger)
	ctx.FatalIfErrorf(err)
}
