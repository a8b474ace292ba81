package vcs

import (
	"context"
	"fmt"
	"time"
)

// gitDateFormat is an ISO 8601 form git accepts in GIT_*_DATE
const gitDateFormat = "2006-01-02T15:04:05-07:00"

// GitBackend exports into a git repository
type GitBackend struct {
	workTree
	staging
	runner *CommandRunner
}

// NewGitBackend creates a new GitBackend working in dir
func NewGitBackend(dir string) *GitBackend {
	return &GitBackend{
		workTree: workTree{dir: dir},
		runner:   NewCommandRunner("git", dir),
	}
}

// Name returns "git"
func (g *GitBackend) Name() string { return "git" }

// Init creates the repository, wiping the directory first when reset is set
func (g *GitBackend) Init(ctx context.Context, reset bool) error {
	if reset {
		if err := g.reset(); err != nil {
			return err
		}
	}
	if err := g.ensure(); err != nil {
		return err
	}
	if _, err := g.runner.Run(ctx, "init", "-q"); err != nil {
		return fmt.Errorf("failed to initialize git repository: %w", err)
	}
	if _, err := g.runner.Run(ctx, "symbolic-ref", "HEAD", "refs/heads/main"); err != nil {
		return fmt.Errorf("failed to set default branch: %w", err)
	}
	return nil
}

// Configure disables settings that would alter file content or paths
func (g *GitBackend) Configure(ctx context.Context) error {
	settings := [][2]string{
		{"core.autocrlf", "false"},
		{"core.quotepath", "false"},
		{"core.ignorecase", "false"},
	}
	for _, s := range settings {
		if _, err := g.runner.Run(ctx, "config", s[0], s[1]); err != nil {
			return fmt.Errorf("failed to set %s: %w", s[0], err)
		}
	}
	return nil
}

func (g *GitBackend) stage(ctx context.Context, args ...string) error {
	if _, err := g.runner.Run(ctx, args...); err != nil {
		return err
	}
	g.SetNeedsCommit()
	return nil
}

// Add stages a file
func (g *GitBackend) Add(ctx context.Context, path string) error {
	return g.stage(ctx, "add", "-f", "--", path)
}

// AddDir stages everything below a directory. Git does not track empty
// directories, so a directory without files is left alone.
func (g *GitBackend) AddDir(ctx context.Context, path string) error {
	if !g.hasFiles(path, ".git") {
		return nil
	}
	return g.stage(ctx, "add", "-A", "-f", "--", path)
}

// AddAll stages every change in the working tree
func (g *GitBackend) AddAll(ctx context.Context) error {
	return g.stage(ctx, "add", "-A")
}

// RemoveFile removes a file from the index and the working tree
func (g *GitBackend) RemoveFile(ctx context.Context, path string) error {
	return g.stage(ctx, "rm", "-f", "-q", "--", path)
}

// RemoveDir removes a directory from the index and the working tree
func (g *GitBackend) RemoveDir(ctx context.Context, path string, recursive bool) error {
	args := []string{"rm", "-f", "-q"}
	if recursive {
		args = append(args, "-r")
	}
	if err := g.stage(ctx, append(args, "--", path)...); err != nil {
		return err
	}
	// git leaves directories that only held untracked or empty subdirectories
	return g.removeDir(path)
}

// RemoveEmptyDir deletes a directory git does not track
func (g *GitBackend) RemoveEmptyDir(_ context.Context, path string) error {
	return g.removeDir(path)
}

// Move renames a tracked file or directory
func (g *GitBackend) Move(ctx context.Context, src, dst string) error {
	return g.stage(ctx, "mv", "--", src, dst)
}

// MoveEmptyDir renames a directory git does not track
func (g *GitBackend) MoveEmptyDir(_ context.Context, src, dst string) error {
	return g.renameDir(src, dst)
}

func identityEnv(role, user, email string, t time.Time) []string {
	return []string{
		fmt.Sprintf("GIT_%s_NAME=%s", role, user),
		fmt.Sprintf("GIT_%s_EMAIL=%s", role, email),
		fmt.Sprintf("GIT_%s_DATE=%s", role, t.Format(gitDateFormat)),
	}
}

// Commit commits the index as user at the given time
func (g *GitBackend) Commit(ctx context.Context, info CommitInfo) (bool, error) {
	g.needsCommit = false

	stat, err := g.runner.Run(ctx, "diff", "--cached", "--shortstat")
	if err != nil {
		return false, fmt.Errorf("failed to inspect index: %w", err)
	}
	if stat == "" {
		return false, nil
	}

	env := append(identityEnv("AUTHOR", info.User, info.Email, info.Time),
		identityEnv("COMMITTER", info.User, info.Email, info.Time)...)
	if _, err := g.runner.RunWithInput(ctx, env, info.Comment, "commit", "-q", "--allow-empty-message", "--no-verify", "-F", "-"); err != nil {
		return false, fmt.Errorf("failed to commit: %w", err)
	}
	return true, nil
}

// Tag creates an annotated tag on HEAD
func (g *GitBackend) Tag(ctx context.Context, info TagInfo) error {
	env := identityEnv("COMMITTER", info.User, info.Email, info.Time)
	if _, err := g.runner.RunWithInput(ctx, env, info.Comment, "tag", "-a", "-F", "-", "--", info.Name); err != nil {
		return fmt.Errorf("failed to create tag %s: %w", info.Name, err)
	}
	return nil
}

// CompareExcludes returns the git metadata directory
func (g *GitBackend) CompareExcludes() []string {
	return []string{".git"}
}

// FindExecutable reports whether git is installed
func (g *GitBackend) FindExecutable() bool {
	return g.runner.Found()
}
