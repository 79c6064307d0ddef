// Package sink provides output destinations for generated files.
package sink

import (
	"bytes"
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
)

// OutputSink receives generated file content. Implementations must be
// safe for concurrent calls.
type OutputSink interface {
	// WriteFile writes content to path, which is relative to the sink.
	WriteFile(ctx context.Context, path string, content []byte) error
}

// Cleaner is implemented by sinks that can remove files left over from an
// earlier run.
type Cleaner interface {
	// Clean removes files containing marker that are not in keep and
	// returns their paths, sorted.
	Clean(ctx context.Context, keep []string, marker string) ([]string, error)
}

// FilesystemSink writes to a directory on the local filesystem.
type FilesystemSink struct {
	// Root is the base directory for all writes.
	Root string

	// Mode is the file permission mode (default: 0644).
	Mode os.FileMode

	// Overwrite controls behavior for existing files. If false, writing
	// to an existing file fails.
	Overwrite bool
}

// NewFilesystemSink returns a sink writing below root.
func NewFilesystemSink(root string) *FilesystemSink {
	return &FilesystemSink{
		Root:      root,
		Mode:      0o644,
		Overwrite: true,
	}
}

// WriteFile writes content to path below the root. Parent directories are
// created as needed and the write is atomic (temp file + rename).
func (s *FilesystemSink) WriteFile(ctx context.Context, path string, content []byte) error {
	fullPath, err := s.resolve(path)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	dir := filepath.Dir(fullPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrap(err, "create directories")
	}
	mode := s.Mode
	if mode == 0 {
		mode = 0o644
	}

	tmp, err := os.CreateTemp(dir, ".therefore-*.tmp")
	if err != nil {
		return errors.Wrap(err, "create temp file")
	}
	tmpPath := tmp.Name()
	// Leftover temp files carry the .therefore- prefix; removal is best effort.
	cleanup := func() { _ = os.Remove(tmpPath) }

	_, writeErr := tmp.Write(content)
	closeErr := tmp.Close()
	if writeErr != nil {
		cleanup()
		return errors.Wrap(writeErr, "write temp file")
	}
	if closeErr != nil {
		cleanup()
		return errors.Wrap(closeErr, "close temp file")
	}
	if err := os.Chmod(tmpPath, mode); err != nil {
		cleanup()
		return errors.Wrap(err, "set file mode")
	}
	if err := ctx.Err(); err != nil {
		cleanup()
		return err
	}

	if s.Overwrite {
		if err := os.Rename(tmpPath, fullPath); err != nil {
			cleanup()
			return errors.Wrap(err, "rename temp file")
		}
		return nil
	}
	// Link fails with EEXIST instead of racing a stat against the rename.
	if err := os.Link(tmpPath, fullPath); err != nil {
		cleanup()
		if errors.Is(err, os.ErrExist) {
			return errors.Newf("file already exists: %q", path)
		}
		return errors.Wrap(err, "create file")
	}
	cleanup()
	return nil
}

// Clean removes files below the root that contain marker and are not in
// keep. Files without the marker are never touched.
func (s *FilesystemSink) Clean(ctx context.Context, keep []string, marker string) ([]string, error) {
	if marker == "" {
		return nil, errors.New("clean: empty marker")
	}
	kept := make(map[string]bool, len(keep))
	for _, p := range keep {
		kept[filepath.ToSlash(p)] = true
	}

	var removed []string
	err := filepath.WalkDir(s.Root, func(full string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && full == s.Root {
				return filepath.SkipDir
			}
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			if full != s.Root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(s.Root, full)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if kept[rel] || !d.Type().IsRegular() {
			return nil
		}
		content, err := os.ReadFile(full)
		if err != nil {
			return errors.Wrapf(err, "clean: read %s", rel)
		}
		if !bytes.Contains(content, []byte(marker)) {
			return nil
		}
		if err := os.Remove(full); err != nil {
			return errors.Wrapf(err, "clean: remove %s", rel)
		}
		removed = append(removed, rel)
		return nil
	})
	if err != nil {
		return removed, err
	}
	slices.Sort(removed)
	return removed, nil
}

func (s *FilesystemSink) resolve(path string) (string, error) {
	if err := ValidatePath(path); err != nil {
		return "", errors.Wrapf(err, "invalid path %q", path)
	}
	fullPath := filepath.Join(s.Root, filepath.FromSlash(path))
	absRoot, err := filepath.Abs(s.Root)
	if err != nil {
		return "", errors.Wrap(err, "resolve root directory")
	}
	absPath, err := filepath.Abs(fullPath)
	if err != nil {
		return "", errors.Wrap(err, "resolve path")
	}
	if !strings.HasPrefix(absPath, absRoot+string(filepath.Separator)) {
		return "", errors.Newf("path escapes root directory: %q", path)
	}
	return fullPath, nil
}

// MemorySink stores generated files in memory. It is safe for concurrent
// use.
type MemorySink struct {
	mu    sync.RWMutex
	files map[string][]byte
}

// NewMemorySink returns an empty MemorySink.
func NewMemorySink() *MemorySink {
	return &MemorySink{files: make(map[string][]byte)}
}

// WriteFile stores a copy of content under path.
func (s *MemorySink) WriteFile(ctx context.Context, path string, content []byte) error {
	if err := ValidatePath(path); err != nil {
		return errors.Wrapf(err, "invalid path %q", path)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[path] = bytes.Clone(content)
	return nil
}

// Clean drops stored files that contain marker and are not in keep.
func (s *MemorySink) Clean(ctx context.Context, keep []string, marker string) ([]string, error) {
	if marker == "" {
		return nil, errors.New("clean: empty marker")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var removed []string
	for path, content := range s.files {
		if slices.Contains(keep, path) || !bytes.Contains(content, []byte(marker)) {
			continue
		}
		delete(s.files, path)
		removed = append(removed, path)
	}
	slices.Sort(removed)
	return removed, nil
}

// Files returns a copy of all stored files.
func (s *MemorySink) Files() map[string][]byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string][]byte, len(s.files))
	for path, content := range s.files {
		out[path] = bytes.Clone(content)
	}
	return out
}

// Get returns a copy of one file, or nil if it was never written.
func (s *MemorySink) Get(path string) []byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	content, ok := s.files[path]
	if !ok {
		return nil
	}
	return bytes.Clone(content)
}

// Reset clears all stored files.
func (s *MemorySink) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files = make(map[string][]byte)
}

// ValidatePath checks that path is relative, slash separated, clean and
// free of ".." components.
func ValidatePath(path string) error {
	if path == "" {
		return errors.New("path is empty")
	}
	if filepath.IsAbs(path) || strings.HasPrefix(path, "/") {
		return errors.New("absolute paths not allowed")
	}
	if len(path) >= 2 && path[1] == ':' && ((path[0] >= 'A' && path[0] <= 'Z') || (path[0] >= 'a' && path[0] <= 'z')) {
		return errors.New("absolute paths not allowed")
	}
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if part == ".." {
			return errors.New("path traversal not allowed")
		}
	}
	cleaned := filepath.ToSlash(filepath.Clean(path))
	if cleaned != filepath.ToSlash(path) {
		return errors.Newf("path is not clean (expected %q, got %q)", cleaned, path)
	}
	return nil
}
