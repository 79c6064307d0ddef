package watch

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func start(t *testing.T, files []string) <-chan struct{} {
	t.Helper()
	w, err := New(files, Options{Debounce: 20 * time.Millisecond, Logger: slog.New(slog.DiscardHandler)})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	calls := make(chan struct{}, 16)
	done := make(chan error, 1)
	go func() {
		done <- w.Run(ctx, func(context.Context) error {
			calls <- struct{}{}
			return nil
		})
	}()
	t.Cleanup(func() {
		cancel()
		assert.NoError(t, <-done)
	})
	return calls
}

func TestRunsAfterChange(t *testing.T) {
	dir := t.TempDir()
	schema := filepath.Join(dir, "pets.yaml")
	require.NoError(t, os.WriteFile(schema, []byte("nodes: {}\n"), 0o644))
	calls := start(t, []string{schema})

	for range 3 {
		require.NoError(t, os.WriteFile(schema, []byte("nodes: {A: {type: string}}\n"), 0o644))
	}
	select {
	case <-calls:
	case <-time.After(5 * time.Second):
		t.Fatal("no run after change")
	}
}

func TestIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	schema := filepath.Join(dir, "pets.yaml")
	require.NoError(t, os.WriteFile(schema, []byte("nodes: {}\n"), 0o644))
	calls := start(t, []string{schema})

	require.NoError(t, os.WriteFile(filepath.Join(dir, "pets.type.ts"), []byte("x"), 0o644))
	select {
	case <-calls:
		t.Fatal("ran for an unwatched file")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestNewErrors(t *testing.T) {
	_, err := New(nil, Options{})
	require.ErrorContains(t, err, "no files")

	_, err = New([]string{filepath.Join(t.TempDir(), "missing", "a.yaml")}, Options{})
	require.Error(t, err)
}
