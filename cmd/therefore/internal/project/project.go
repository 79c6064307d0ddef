// Package project merges the project file with command line flags.
package project

import (
	"github.com/cockroachdb/errors"

	therefore "github.com/skyleague/therefore-sub001"
	"github.com/skyleague/therefore-sub001/internal/config"
)

// Flags are the command line values shared by gen and check.
type Flags struct {
	ConfigPath string
	Out        string
	Schemas    []string
	Dialects   []string
	Root       string
	Clean      bool
	Manifest   bool
}

// Project is a resolved run.
type Project struct {
	Out    string
	Paths  []string
	Config therefore.Config

	// File is the project file path, empty when everything came from flags.
	File string
}

// Resolve loads the project file, if any, and applies f on top of it.
// Schemas and dialects given as flags replace the file's lists.
func Resolve(f Flags, dir string) (*Project, error) {
	file, err := config.Discover(f.ConfigPath, dir)
	if err != nil {
		return nil, err
	}

	p := &Project{Out: f.Out}
	if file != nil {
		p.File = file.Path
		p.Config = file.Config()
		if p.Out == "" {
			p.Out = file.OutDir()
		}
		if len(f.Schemas) == 0 {
			if p.Paths, err = file.Paths(); err != nil {
				return nil, err
			}
		}
	}
	if len(f.Schemas) > 0 {
		p.Paths = f.Schemas
	}
	if len(f.Dialects) > 0 {
		p.Config.Dialects = f.Dialects
	}
	if f.Root != "" {
		p.Config.Root = f.Root
	}
	p.Config.Clean = p.Config.Clean || f.Clean
	p.Config.Manifest = p.Config.Manifest || f.Manifest

	if len(p.Paths) == 0 {
		return nil, errors.New("no schema documents: pass them as arguments or list them in " + config.Names[0])
	}
	return p, nil
}

// Watched returns the files whose change should trigger a new run.
func (p *Project) Watched() []string {
	files := append([]string(nil), p.Paths...)
	if p.File != "" {
		files = append(files, p.File)
	}
	return files
}
