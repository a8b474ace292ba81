package testhelpers

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// GitRepo reads back a git repository produced by an export
type GitRepo struct {
	Dir string
}

// RunGitCommand runs a git command in the repository
func (r *GitRepo) RunGitCommand(args ...string) error {
	_, err := r.RunGitCommandAndGetOutput(args...)
	return err
}

// RunGitCommandAndGetOutput runs a git command and returns trimmed stdout
func (r *GitRepo) RunGitCommandAndGetOutput(args ...string) (string, error) {
	cmd := exec.Command("git", append([]string{"-C", r.Dir}, args...)...)
	cmd.Env = append(os.Environ(), "GIT_CONFIG_GLOBAL="+os.DevNull)
	output, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return "", fmt.Errorf("git %s: %w: %s", strings.Join(args, " "), err, exitErr.Stderr)
		}
		return "", fmt.Errorf("git %s: %w", strings.Join(args, " "), err)
	}
	return strings.TrimSpace(string(output)), nil
}

// CommitCount returns the number of commits reachable from HEAD
func (r *GitRepo) CommitCount() (int, error) {
	out, err := r.RunGitCommandAndGetOutput("rev-list", "--count", "HEAD")
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(out)
}

// CommitMessages returns commit subjects, newest first
func (r *GitRepo) CommitMessages() ([]string, error) {
	out, err := r.RunGitCommandAndGetOutput("log", "--format=%s")
	if err != nil {
		return nil, err
	}
	return splitLines(out), nil
}

// CommitAuthors returns "name <email>" per commit, newest first
func (r *GitRepo) CommitAuthors() ([]string, error) {
	out, err := r.RunGitCommandAndGetOutput("log", "--format=%an <%ae>")
	if err != nil {
		return nil, err
	}
	return splitLines(out), nil
}

// Files returns the paths tracked at HEAD
func (r *GitRepo) Files() ([]string, error) {
	out, err := r.RunGitCommandAndGetOutput("ls-tree", "-r", "--name-only", "HEAD")
	if err != nil {
		return nil, err
	}
	return splitLines(out), nil
}

// Tags returns the tag names
func (r *GitRepo) Tags() ([]string, error) {
	out, err := r.RunGitCommandAndGetOutput("tag", "--list")
	if err != nil {
		return nil, err
	}
	return splitLines(out), nil
}

// ReadFile reads a file from the working tree
func (r *GitRepo) ReadFile(name string) (string, error) {
	data, err := os.ReadFile(filepath.Join(r.Dir, filepath.FromSlash(name)))
	return string(data), err
}

func splitLines(s string) []string {
	if s == "" {
		return []string{}
	}
	return strings.Split(s, "\n")
}
