package vcs

import (
	"context"
	"fmt"
	"time"
)

// HgBackend exports into a Mercurial repository
type HgBackend struct {
	workTree
	staging
	runner *CommandRunner
}

// NewHgBackend creates a new HgBackend working in dir
func NewHgBackend(dir string) *HgBackend {
	return &HgBackend{
		workTree: workTree{dir: dir},
		runner:   NewCommandRunner("hg", dir),
	}
}

// Name returns "hg"
func (h *HgBackend) Name() string { return "hg" }

// hgDate formats t as "<unix seconds> <offset west of UTC in seconds>"
func hgDate(t time.Time) string {
	_, offset := t.Zone()
	return fmt.Sprintf("%d %d", t.Unix(), -offset)
}

func hgUser(user, email string) string {
	if email == "" {
		return user
	}
	return fmt.Sprintf("%s <%s>", user, email)
}

// Init creates the repository, wiping the directory first when reset is set
func (h *HgBackend) Init(ctx context.Context, reset bool) error {
	if reset {
		if err := h.reset(); err != nil {
			return err
		}
	}
	if err := h.ensure(); err != nil {
		return err
	}
	if _, err := h.runner.Run(ctx, "init"); err != nil {
		return fmt.Errorf("failed to initialize hg repository: %w", err)
	}
	return nil
}

// Configure is a no-op; identity is passed on every commit
func (h *HgBackend) Configure(_ context.Context) error {
	return nil
}

func (h *HgBackend) stage(ctx context.Context, args ...string) error {
	if _, err := h.runner.Run(ctx, args...); err != nil {
		return err
	}
	h.SetNeedsCommit()
	return nil
}

// Add schedules a file for addition
func (h *HgBackend) Add(ctx context.Context, path string) error {
	return h.stage(ctx, "add", "-q", "--", path)
}

// AddDir schedules every file below a directory
func (h *HgBackend) AddDir(ctx context.Context, path string) error {
	if !h.hasFiles(path, ".hg") {
		return nil
	}
	return h.stage(ctx, "add", "-q", "--", path)
}

// AddAll adds new and forgets missing files
func (h *HgBackend) AddAll(ctx context.Context) error {
	return h.stage(ctx, "addremove", "-q")
}

// RemoveFile removes a tracked file
func (h *HgBackend) RemoveFile(ctx context.Context, path string) error {
	return h.stage(ctx, "remove", "-f", "-q", "--", path)
}

// RemoveDir removes every tracked file below a directory, then the directory
func (h *HgBackend) RemoveDir(ctx context.Context, path string, _ bool) error {
	if err := h.stage(ctx, "remove", "-f", "-q", "--", path); err != nil {
		return err
	}
	return h.removeDir(path)
}

// RemoveEmptyDir deletes a directory hg does not track
func (h *HgBackend) RemoveEmptyDir(_ context.Context, path string) error {
	return h.removeDir(path)
}

// Move renames a tracked file or directory
func (h *HgBackend) Move(ctx context.Context, src, dst string) error {
	return h.stage(ctx, "rename", "-q", "--", src, dst)
}

// MoveEmptyDir renames a directory hg does not track
func (h *HgBackend) MoveEmptyDir(_ context.Context, src, dst string) error {
	return h.renameDir(src, dst)
}

// Commit commits pending changes as user at the given time
func (h *HgBackend) Commit(ctx context.Context, info CommitInfo) (bool, error) {
	h.needsCommit = false

	status, err := h.runner.Run(ctx, "status", "-q")
	if err != nil {
		return false, fmt.Errorf("failed to inspect working directory: %w", err)
	}
	if status == "" {
		return false, nil
	}

	args := []string{"commit", "-q", "-u", hgUser(info.User, info.Email), "-d", hgDate(info.Time), "-l", "-"}
	if _, err := h.runner.RunWithInput(ctx, nil, info.Comment, args...); err != nil {
		return false, fmt.Errorf("failed to commit: %w", err)
	}
	return true, nil
}

// Tag tags the working directory parent; hg records tags as a commit
func (h *HgBackend) Tag(ctx context.Context, info TagInfo) error {
	args := []string{"tag", "-u", hgUser(info.User, info.Email), "-d", hgDate(info.Time), "-m", info.Comment, "--", info.Name}
	if _, err := h.runner.Run(ctx, args...); err != nil {
		return fmt.Errorf("failed to create tag %s: %w", info.Name, err)
	}
	return nil
}

// CompareExcludes returns hg metadata names
func (h *HgBackend) CompareExcludes() []string {
	return []string{".hg", ".hgtags"}
}

// FindExecutable reports whether hg is installed
func (h *HgBackend) FindExecutable() bool {
	return h.runner.Found()
}
