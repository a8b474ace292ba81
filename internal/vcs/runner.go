package vcs

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"strings"
	"time"

	histerrors "histport.dev/histport/internal/errors"
)

// DefaultCommandTimeout is the default timeout for backend commands
const DefaultCommandTimeout = 5 * time.Minute

// CommandRunner executes one external VCS tool inside a working directory
type CommandRunner struct {
	executable string
	workingDir string
}

// NewCommandRunner creates a new CommandRunner for executable
func NewCommandRunner(executable, workingDir string) *CommandRunner {
	return &CommandRunner{executable: executable, workingDir: workingDir}
}

// Found reports whether the executable is on PATH
func (r *CommandRunner) Found() bool {
	_, err := exec.LookPath(r.executable)
	return err == nil
}

// Run executes a command with the given context and returns the trimmed output
func (r *CommandRunner) Run(ctx context.Context, args ...string) (string, error) {
	return r.runInternal(ctx, nil, "", args...)
}

// RunWithInput executes a command feeding input on stdin
func (r *CommandRunner) RunWithInput(ctx context.Context, env []string, input string, args ...string) (string, error) {
	return r.runInternal(ctx, env, input, args...)
}

func (r *CommandRunner) runInternal(ctx context.Context, env []string, input string, args ...string) (string, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	// If no timeout/deadline is set in the context, add the default one
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultCommandTimeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, r.executable, args...)
	if r.workingDir != "" {
		cmd.Dir = r.workingDir
	}
	if len(env) > 0 {
		cmd.Env = append(os.Environ(), env...)
	}
	if input != "" {
		cmd.Stdin = strings.NewReader(input)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		if ctx.Err() != nil {
			return "", histerrors.NewCommandError(r.executable, args, stdout.String(), stderr.String(), ctx.Err())
		}
		return "", histerrors.NewCommandError(r.executable, args, stdout.String(), stderr.String(), err)
	}
	return strings.TrimSpace(stdout.String()), nil
}
