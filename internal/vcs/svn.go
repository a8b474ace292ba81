package vcs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

// svnDateFormat is the format of the svn:date revision property
const svnDateFormat = "2006-01-02T15:04:05.000000Z"

// SvnBackend exports into a local Subversion repository. The repository
// lives next to the working copy in "<dir>.svnrepo"; the working copy is a
// checkout of its trunk.
type SvnBackend struct {
	workTree
	staging
	repoDir string
	svn     *CommandRunner
	admin   *CommandRunner
}

// NewSvnBackend creates a new SvnBackend whose working copy is dir
func NewSvnBackend(dir string) *SvnBackend {
	return &SvnBackend{
		workTree: workTree{dir: dir},
		repoDir:  dir + ".svnrepo",
		svn:      NewCommandRunner("svn", dir),
		admin:    NewCommandRunner("svnadmin", filepath.Dir(dir)),
	}
}

// Name returns "svn"
func (s *SvnBackend) Name() string { return "svn" }

func (s *SvnBackend) repoURL(parts ...string) string {
	p := filepath.ToSlash(s.repoDir)
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return "file://" + strings.Join(append([]string{p}, parts...), "/")
}

// Init creates the repository with trunk and tags, then checks out trunk
func (s *SvnBackend) Init(ctx context.Context, reset bool) error {
	if reset {
		if err := os.RemoveAll(s.repoDir); err != nil {
			return fmt.Errorf("failed to remove %s: %w", s.repoDir, err)
		}
		if err := os.RemoveAll(s.dir); err != nil {
			return fmt.Errorf("failed to remove %s: %w", s.dir, err)
		}
	}
	if err := os.MkdirAll(filepath.Dir(s.dir), 0o755); err != nil {
		return fmt.Errorf("failed to create parent of %s: %w", s.dir, err)
	}
	if _, err := s.admin.Run(ctx, "create", s.repoDir); err != nil {
		return fmt.Errorf("failed to create svn repository: %w", err)
	}
	if err := s.installRevpropHook(); err != nil {
		return err
	}

	outside := NewCommandRunner("svn", filepath.Dir(s.dir))
	if _, err := outside.Run(ctx, "mkdir", "-q", "-m", "Create trunk and tags", s.repoURL("trunk"), s.repoURL("tags")); err != nil {
		return fmt.Errorf("failed to create trunk: %w", err)
	}
	if _, err := outside.Run(ctx, "checkout", "-q", s.repoURL("trunk"), s.dir); err != nil {
		return fmt.Errorf("failed to check out trunk: %w", err)
	}
	return nil
}

// installRevpropHook allows author and date to be rewritten after a commit
func (s *SvnBackend) installRevpropHook() error {
	name, body := "pre-revprop-change", "#!/bin/sh\nexit 0\n"
	if runtime.GOOS == "windows" {
		name, body = "pre-revprop-change.bat", "@exit 0\r\n"
	}
	hook := filepath.Join(s.repoDir, "hooks", name)
	if err := os.WriteFile(hook, []byte(body), 0o755); err != nil {
		return fmt.Errorf("failed to install %s hook: %w", name, err)
	}
	return nil
}

// Configure is a no-op; the repository needs no settings
func (s *SvnBackend) Configure(_ context.Context) error {
	return nil
}

func (s *SvnBackend) stage(ctx context.Context, args ...string) error {
	if _, err := s.svn.Run(ctx, args...); err != nil {
		return err
	}
	s.SetNeedsCommit()
	return nil
}

// Add schedules a file and any unversioned parents for addition
func (s *SvnBackend) Add(ctx context.Context, path string) error {
	return s.stage(ctx, "add", "-q", "--parents", "--force", "--no-ignore", path)
}

// AddDir schedules a directory and its contents for addition
func (s *SvnBackend) AddDir(ctx context.Context, path string) error {
	return s.stage(ctx, "add", "-q", "--parents", "--force", "--no-ignore", path)
}

// AddAll schedules every unversioned entry of the working copy
func (s *SvnBackend) AddAll(ctx context.Context) error {
	return s.stage(ctx, "add", "-q", "--force", "--no-ignore", ".")
}

// RemoveFile schedules a file for deletion
func (s *SvnBackend) RemoveFile(ctx context.Context, path string) error {
	return s.stage(ctx, "delete", "-q", "--force", path)
}

// RemoveDir schedules a directory for deletion; svn deletes recursively
func (s *SvnBackend) RemoveDir(ctx context.Context, path string, _ bool) error {
	return s.stage(ctx, "delete", "-q", "--force", path)
}

// RemoveEmptyDir schedules a directory for deletion; svn versions directories
func (s *SvnBackend) RemoveEmptyDir(ctx context.Context, path string) error {
	return s.RemoveDir(ctx, path, true)
}

// Move schedules a copy-with-history and delete
func (s *SvnBackend) Move(ctx context.Context, src, dst string) error {
	return s.stage(ctx, "move", "-q", "--parents", src, dst)
}

// MoveEmptyDir moves a directory; svn versions directories
func (s *SvnBackend) MoveEmptyDir(ctx context.Context, src, dst string) error {
	return s.Move(ctx, src, dst)
}

func (s *SvnBackend) setRevprops(ctx context.Context, rev, user string, t time.Time) error {
	props := [][2]string{
		{"svn:author", user},
		{"svn:date", t.UTC().Format(svnDateFormat)},
	}
	for _, p := range props {
		if _, err := s.svn.Run(ctx, "propset", "-q", "--revprop", "-r", rev, p[0], p[1], s.repoURL()); err != nil {
			return fmt.Errorf("failed to set %s on r%s: %w", p[0], rev, err)
		}
	}
	return nil
}

// Commit commits the working copy, then rewrites the revision's author and date
func (s *SvnBackend) Commit(ctx context.Context, info CommitInfo) (bool, error) {
	s.needsCommit = false

	status, err := s.svn.Run(ctx, "status", "-q")
	if err != nil {
		return false, fmt.Errorf("failed to inspect working copy: %w", err)
	}
	if status == "" {
		return false, nil
	}

	if _, err := s.svn.Run(ctx, "commit", "-q", "-m", info.Comment); err != nil {
		return false, fmt.Errorf("failed to commit: %w", err)
	}
	if _, err := s.svn.Run(ctx, "update", "-q"); err != nil {
		return false, fmt.Errorf("failed to update working copy: %w", err)
	}
	rev, err := s.svn.Run(ctx, "info", "--show-item", "revision")
	if err != nil {
		return false, fmt.Errorf("failed to read committed revision: %w", err)
	}
	if err := s.setRevprops(ctx, rev, info.User, info.Time); err != nil {
		return false, err
	}
	return true, nil
}

// Tag copies trunk to tags/<name> on the server
func (s *SvnBackend) Tag(ctx context.Context, info TagInfo) error {
	target := s.repoURL("tags", info.Name)
	if _, err := s.svn.Run(ctx, "copy", "-q", "-m", info.Comment, s.repoURL("trunk"), target); err != nil {
		return fmt.Errorf("failed to create tag %s: %w", info.Name, err)
	}
	rev, err := s.svn.Run(ctx, "info", "--show-item", "last-changed-revision", target)
	if err != nil {
		return fmt.Errorf("failed to read tag revision: %w", err)
	}
	return s.setRevprops(ctx, rev, info.User, info.Time)
}

// CompareExcludes returns the svn metadata directory
func (s *SvnBackend) CompareExcludes() []string {
	return []string{".svn"}
}

// FindExecutable reports whether both svn and svnadmin are installed
func (s *SvnBackend) FindExecutable() bool {
	return s.svn.Found() && s.admin.Found()
}
