package project

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlagsOnly(t *testing.T) {
	p, err := Resolve(Flags{
		Out:      "gen",
		Schemas:  []string{"a.yaml"},
		Dialects: []string{"zod"},
		Clean:    true,
	}, t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "gen", p.Out)
	assert.Equal(t, []string{"a.yaml"}, p.Paths)
	assert.Equal(t, []string{"zod"}, p.Config.Dialects)
	assert.True(t, p.Config.Clean)
	assert.False(t, p.Config.Manifest)
	assert.Empty(t, p.File)
	assert.Equal(t, []string{"a.yaml"}, p.Watched())
}

func TestFlagsOverrideProjectFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.yaml"), []byte("nodes: {}\n"), 0o644))
	cfg := filepath.Join(dir, "therefore.toml")
	require.NoError(t, os.WriteFile(cfg, []byte(`
out = "gen"
schemas = ["*.yaml"]
dialects = ["typescript"]
manifest = true
`), 0o644))

	p, err := Resolve(Flags{}, dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "gen"), p.Out)
	assert.Equal(t, []string{filepath.Join(dir, "a.yaml")}, p.Paths)
	assert.Equal(t, []string{"typescript"}, p.Config.Dialects)
	assert.True(t, p.Config.Manifest)
	assert.Equal(t, []string{filepath.Join(dir, "a.yaml"), cfg}, p.Watched())

	p, err = Resolve(Flags{Out: "elsewhere", Dialects: []string{"zod"}, Root: "schemas"}, dir)
	require.NoError(t, err)
	assert.Equal(t, "elsewhere", p.Out)
	assert.Equal(t, []string{"zod"}, p.Config.Dialects)
	assert.Equal(t, "schemas", p.Config.Root)
}

func TestNoSchemas(t *testing.T) {
	_, err := Resolve(Flags{Out: "gen"}, t.TempDir())
	require.ErrorContains(t, err, "no schema documents")

	_, err = Resolve(Flags{ConfigPath: filepath.Join(t.TempDir(), "missing.toml")}, ".")
	require.ErrorContains(t, err, "read config")
}
