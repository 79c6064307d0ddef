// Package config reads therefore.toml and therefore.yaml project files.
package config

import (
	"bytes"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	therefore "github.com/skyleague/therefore-sub001"
)

// Names are the file names Find looks for, in order.
var Names = []string{"therefore.toml", "therefore.yaml", "therefore.yml"}

var validate = validator.New(validator.WithRequiredStructEnabled())

// File is the decoded project file. Relative paths are resolved against
// the directory of the file.
type File struct {
	// Out is the output directory.
	Out string `toml:"out" yaml:"out" validate:"required"`

	// Schemas are schema document paths or glob patterns.
	Schemas []string `toml:"schemas" yaml:"schemas" validate:"required,min=1,dive,required"`

	Dialects []string `toml:"dialects" yaml:"dialects" validate:"dive,required"`
	Root     string   `toml:"root" yaml:"root"`
	Banner   []string `toml:"banner" yaml:"banner"`
	Manifest bool     `toml:"manifest" yaml:"manifest"`
	Clean    bool     `toml:"clean" yaml:"clean"`

	// Path is where the file was read from and Dir its directory.
	Path string `toml:"-" yaml:"-"`
	Dir  string `toml:"-" yaml:"-"`
}

// Find returns the first project file in dir, or "" when there is none.
func Find(dir string) (string, error) {
	for _, name := range Names {
		p := filepath.Join(dir, name)
		_, err := os.Stat(p)
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return "", errors.Wrapf(err, "stat %s", p)
		}
	}
	return "", nil
}

// Discover loads path, or the project file Find locates in dir when path
// is empty. It returns nil when there is neither.
func Discover(path, dir string) (*File, error) {
	if path == "" {
		found, err := Find(dir)
		if err != nil || found == "" {
			return nil, err
		}
		path = found
	}
	return Load(path)
}

// Load reads and validates the project file at path. The format follows
// the extension.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read config")
	}
	f, err := Parse(data, filepath.Ext(path))
	if err != nil {
		return nil, errors.Wrapf(err, "config %s", path)
	}
	f.Path = path
	f.Dir = filepath.Dir(path)
	return f, nil
}

// Parse decodes a project file. ext selects the format: ".toml", ".yaml"
// or ".yml".
func Parse(data []byte, ext string) (*File, error) {
	var f File
	switch strings.ToLower(ext) {
	case ".toml":
		md, err := toml.NewDecoder(bytes.NewReader(data)).Decode(&f)
		if err != nil {
			return nil, errors.Wrap(err, "decode toml")
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, errors.Newf("unknown key %q", undecoded[0].String())
		}
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&f); err != nil {
			return nil, errors.Wrap(err, "decode yaml")
		}
	default:
		return nil, errors.Newf("unsupported config format %q", ext)
	}
	if err := validate.Struct(&f); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}
	return &f, nil
}

// OutDir returns Out resolved against Dir.
func (f *File) OutDir() string {
	return f.resolve(f.Out)
}

// Paths expands Schemas into a sorted list of document paths. A pattern
// matching nothing is an error.
func (f *File) Paths() ([]string, error) {
	seen := make(map[string]bool)
	var paths []string
	for _, pattern := range f.Schemas {
		matches, err := filepath.Glob(f.resolve(pattern))
		if err != nil {
			return nil, errors.Wrapf(err, "schemas pattern %q", pattern)
		}
		if len(matches) == 0 {
			return nil, errors.Newf("schemas pattern %q matches no files", pattern)
		}
		for _, m := range matches {
			if !seen[m] {
				seen[m] = true
				paths = append(paths, m)
			}
		}
	}
	slices.Sort(paths)
	return paths, nil
}

// Config converts f into generator configuration.
func (f *File) Config() therefore.Config {
	cfg := therefore.Config{
		Dialects: slices.Clone(f.Dialects),
		Banner:   slices.Clone(f.Banner),
		Manifest: f.Manifest,
		Clean:    f.Clean,
	}
	if f.Root != "" {
		cfg.Root = f.resolve(f.Root)
	}
	return cfg
}

func (f *File) resolve(p string) string {
	if filepath.IsAbs(p) || f.Dir == "" {
		return p
	}
	return filepath.Join(f.Dir, p)
}
