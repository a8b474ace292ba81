// Package vcs drives the target version-control systems histport exports into.
// Each backend shells out to the system's command-line tool; paths passed to
// a backend are slash-separated and relative to its working directory.
package vcs

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"time"
)

// CommitInfo carries the identity and message of one commit
type CommitInfo struct {
	User    string
	Email   string
	Comment string
	Time    time.Time
}

// TagInfo carries the name, tagger and message of one tag
type TagInfo struct {
	Name    string
	User    string
	Email   string
	Comment string
	Time    time.Time
}

// Backend is the capability set the replay engine needs from a target VCS
type Backend interface {
	// Name returns the backend kind, e.g. "git"
	Name() string
	// Dir returns the working directory being exported into
	Dir() string

	Init(ctx context.Context, reset bool) error
	Configure(ctx context.Context) error

	Add(ctx context.Context, path string) error
	AddDir(ctx context.Context, path string) error
	AddAll(ctx context.Context) error
	RemoveFile(ctx context.Context, path string) error
	RemoveDir(ctx context.Context, path string, recursive bool) error
	RemoveEmptyDir(ctx context.Context, path string) error
	Move(ctx context.Context, src, dst string) error
	MoveEmptyDir(ctx context.Context, src, dst string) error

	// Commit records staged changes. It returns false without error when
	// nothing was staged.
	Commit(ctx context.Context, info CommitInfo) (bool, error)
	Tag(ctx context.Context, info TagInfo) error

	NeedsCommit() bool
	SetNeedsCommit()

	// CompareExcludes lists entry names verification must ignore
	CompareExcludes() []string
	// FindExecutable reports whether the backend's tool is installed
	FindExecutable() bool
}

// Factory creates a backend working in dir
type Factory func(dir string) Backend

var factories = map[string]Factory{
	"git": func(dir string) Backend { return NewGitBackend(dir) },
	"svn": func(dir string) Backend { return NewSvnBackend(dir) },
	"hg":  func(dir string) Backend { return NewHgBackend(dir) },
}

// Kinds returns the names of the supported backends
func Kinds() []string {
	kinds := make([]string, 0, len(factories))
	for k := range factories {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// NewBackend creates the backend named kind working in dir
func NewBackend(kind, dir string) (Backend, error) {
	factory, ok := factories[kind]
	if !ok {
		return nil, fmt.Errorf("unknown backend %q (supported: %v)", kind, Kinds())
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", dir, err)
	}
	return factory(abs), nil
}

// staging tracks whether anything was staged since the last commit
type staging struct {
	needsCommit bool
}

func (s *staging) NeedsCommit() bool {
	return s.needsCommit
}

func (s *staging) SetNeedsCommit() {
	s.needsCommit = true
}

// workTree holds the helpers backends share for operations the tool
// itself does not track, such as empty directories.
type workTree struct {
	dir string
}

func (w workTree) Dir() string {
	return w.dir
}

func (w workTree) abs(path string) string {
	return filepath.Join(w.dir, filepath.FromSlash(path))
}

// reset removes everything inside the working directory
func (w workTree) reset() error {
	entries, err := os.ReadDir(w.dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", w.dir, err)
	}
	for _, e := range entries {
		if err := os.RemoveAll(filepath.Join(w.dir, e.Name())); err != nil {
			return fmt.Errorf("failed to reset %s: %w", w.dir, err)
		}
	}
	return nil
}

func (w workTree) ensure() error {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", w.dir, err)
	}
	return nil
}

func (w workTree) removeDir(path string) error {
	if err := os.RemoveAll(w.abs(path)); err != nil {
		return fmt.Errorf("failed to remove %s: %w", path, err)
	}
	return nil
}

// hasFiles reports whether any regular file lives below path, skipping
// the named metadata directories
func (w workTree) hasFiles(path string, skip ...string) bool {
	found := false
	_ = filepath.WalkDir(w.abs(path), func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if slices.Contains(skip, d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		found = true
		return fs.SkipAll
	})
	return found
}

func (w workTree) renameDir(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(w.abs(dst)), 0o755); err != nil {
		return fmt.Errorf("failed to create parent of %s: %w", dst, err)
	}
	if err := os.Rename(w.abs(src), w.abs(dst)); err != nil {
		return fmt.Errorf("failed to move %s to %s: %w", src, dst, err)
	}
	return nil
}
