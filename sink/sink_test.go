package sink

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"
)

const marker = "Code generated by therefore. DO NOT EDIT."

func TestValidatePath(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		wantErr string
	}{
		{name: "simple", path: "foo/bar.ts"},
		{name: "nested", path: "a/b/c/pets.type.ts"},
		{name: "dots in name", path: "pets..type.ts"},
		{name: "empty", path: "", wantErr: "empty"},
		{name: "absolute", path: "/abs/path.ts", wantErr: "absolute paths not allowed"},
		{name: "windows drive", path: "C:/x.ts", wantErr: "absolute paths not allowed"},
		{name: "traversal", path: "foo/../bar.ts", wantErr: "path traversal not allowed"},
		{name: "leading traversal", path: "../foo.ts", wantErr: "path traversal not allowed"},
		{name: "dot prefix", path: "./foo.ts", wantErr: "not clean"},
		{name: "double slash", path: "foo//bar.ts", wantErr: "not clean"},
		{name: "trailing slash", path: "foo/", wantErr: "not clean"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePath(tt.path)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("ValidatePath(%q) = %v, want nil", tt.path, err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("ValidatePath(%q) = %v, want error containing %q", tt.path, err, tt.wantErr)
			}
		})
	}
}

func TestMemorySink(t *testing.T) {
	ctx := context.Background()

	t.Run("write and read", func(t *testing.T) {
		s := NewMemorySink()
		if err := s.WriteFile(ctx, "pets.type.ts", []byte("hello")); err != nil {
			t.Fatal(err)
		}
		if got := string(s.Get("pets.type.ts")); got != "hello" {
			t.Errorf("Get() = %q, want %q", got, "hello")
		}
		if s.Get("missing.ts") != nil {
			t.Error("Get() of a missing file should be nil")
		}
	})

	t.Run("copies", func(t *testing.T) {
		s := NewMemorySink()
		content := []byte("original")
		if err := s.WriteFile(ctx, "a.ts", content); err != nil {
			t.Fatal(err)
		}
		content[0] = 'X'
		got := s.Get("a.ts")
		got[1] = 'Y'
		files := s.Files()
		files["b.ts"] = nil
		if string(s.Get("a.ts")) != "original" || len(s.Files()) != 1 {
			t.Errorf("stored content leaked: %q, %d files", s.Get("a.ts"), len(s.Files()))
		}
	})

	t.Run("reset", func(t *testing.T) {
		s := NewMemorySink()
		_ = s.WriteFile(ctx, "a.ts", []byte("a"))
		s.Reset()
		if len(s.Files()) != 0 {
			t.Error("Reset() left files behind")
		}
	})

	t.Run("cancelled", func(t *testing.T) {
		s := NewMemorySink()
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		if err := s.WriteFile(cctx, "a.ts", nil); err == nil {
			t.Error("WriteFile() with a cancelled context should fail")
		}
	})

	t.Run("invalid path", func(t *testing.T) {
		if err := NewMemorySink().WriteFile(ctx, "../escape.ts", nil); err == nil {
			t.Error("WriteFile() with an escaping path should fail")
		}
	})

	t.Run("clean", func(t *testing.T) {
		s := NewMemorySink()
		_ = s.WriteFile(ctx, "keep.ts", []byte(marker))
		_ = s.WriteFile(ctx, "stale.ts", []byte(marker))
		_ = s.WriteFile(ctx, "handwritten.ts", []byte("export const x = 1"))
		removed, err := s.Clean(ctx, []string{"keep.ts"}, marker)
		if err != nil {
			t.Fatal(err)
		}
		if !slices.Equal(removed, []string{"stale.ts"}) {
			t.Errorf("Clean() removed %v, want [stale.ts]", removed)
		}
		if s.Get("keep.ts") == nil || s.Get("handwritten.ts") == nil {
			t.Error("Clean() removed a kept or handwritten file")
		}
	})
}

func TestMemorySinkConcurrent(t *testing.T) {
	s := NewMemorySink()
	ctx := context.Background()
	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			path := fmt.Sprintf("f%d.ts", i)
			if err := s.WriteFile(ctx, path, []byte(path)); err != nil {
				t.Error(err)
			}
			_ = s.Get(path)
		}()
	}
	wg.Wait()
	if n := len(s.Files()); n != 50 {
		t.Errorf("Files() = %d entries, want 50", n)
	}
}

func TestFilesystemSink(t *testing.T) {
	ctx := context.Background()

	t.Run("nested write", func(t *testing.T) {
		root := t.TempDir()
		s := NewFilesystemSink(root)
		if err := s.WriteFile(ctx, "store/store.type.ts", []byte("x")); err != nil {
			t.Fatal(err)
		}
		got, err := os.ReadFile(filepath.Join(root, "store", "store.type.ts"))
		if err != nil || string(got) != "x" {
			t.Fatalf("ReadFile() = %q, %v", got, err)
		}
		info, err := os.Stat(filepath.Join(root, "store", "store.type.ts"))
		if err != nil {
			t.Fatal(err)
		}
		if info.Mode().Perm() != 0o644 {
			t.Errorf("mode = %v, want 0644", info.Mode().Perm())
		}
	})

	t.Run("overwrite", func(t *testing.T) {
		root := t.TempDir()
		s := NewFilesystemSink(root)
		_ = s.WriteFile(ctx, "a.ts", []byte("first"))
		if err := s.WriteFile(ctx, "a.ts", []byte("second")); err != nil {
			t.Fatal(err)
		}
		got, _ := os.ReadFile(filepath.Join(root, "a.ts"))
		if string(got) != "second" {
			t.Errorf("content = %q, want second", got)
		}
	})

	t.Run("no overwrite", func(t *testing.T) {
		root := t.TempDir()
		s := NewFilesystemSink(root)
		s.Overwrite = false
		if err := s.WriteFile(ctx, "a.ts", []byte("first")); err != nil {
			t.Fatal(err)
		}
		err := s.WriteFile(ctx, "a.ts", []byte("second"))
		if err == nil || !strings.Contains(err.Error(), "already exists") {
			t.Fatalf("WriteFile() = %v, want an already exists error", err)
		}
	})

	t.Run("no temp files left", func(t *testing.T) {
		root := t.TempDir()
		s := NewFilesystemSink(root)
		for i := range 5 {
			_ = s.WriteFile(ctx, fmt.Sprintf("f%d.ts", i), []byte("x"))
		}
		entries, _ := os.ReadDir(root)
		for _, e := range entries {
			if strings.HasPrefix(e.Name(), ".therefore-") {
				t.Errorf("temp file left behind: %s", e.Name())
			}
		}
	})

	t.Run("cancelled", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		if err := NewFilesystemSink(t.TempDir()).WriteFile(cctx, "a.ts", nil); err == nil {
			t.Error("WriteFile() with a cancelled context should fail")
		}
	})

	t.Run("clean", func(t *testing.T) {
		root := t.TempDir()
		s := NewFilesystemSink(root)
		for path, content := range map[string]string{
			"pets.type.ts":       marker,
			"old/gone.type.ts":   marker,
			"handwritten.ts":     "export const x = 1",
			"store/store.zod.ts": marker,
		} {
			if err := s.WriteFile(ctx, path, []byte(content)); err != nil {
				t.Fatal(err)
			}
		}
		removed, err := s.Clean(ctx, []string{"pets.type.ts", "store/store.zod.ts"}, marker)
		if err != nil {
			t.Fatal(err)
		}
		if !slices.Equal(removed, []string{"old/gone.type.ts"}) {
			t.Errorf("Clean() removed %v", removed)
		}
		if _, err := os.Stat(filepath.Join(root, "handwritten.ts")); err != nil {
			t.Errorf("handwritten file removed: %v", err)
		}
		if _, err := os.Stat(filepath.Join(root, "pets.type.ts")); err != nil {
			t.Errorf("kept file removed: %v", err)
		}
	})

	t.Run("clean missing root", func(t *testing.T) {
		s := NewFilesystemSink(filepath.Join(t.TempDir(), "missing"))
		removed, err := s.Clean(ctx, nil, marker)
		if err != nil || len(removed) != 0 {
			t.Errorf("Clean() = %v, %v", removed, err)
		}
	})
}
