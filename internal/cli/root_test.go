package cli

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	histerrors "histport.dev/histport/internal/errors"
)

func TestVersionCommand(t *testing.T) {
	cmd := NewRootCmd("1.2.3", "abc123", "2024-01-01")
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})
	require.NoError(t, cmd.Execute())
	require.Equal(t, "histport 1.2.3 (commit abc123, built 2024-01-01)\n", out.String())
}

func TestCommandsAreRegistered(t *testing.T) {
	cmd := NewRootCmd("dev", "none", "unknown")
	for _, args := range [][]string{{"export"}, {"verify"}, {"changesets"}, {"cs"}, {"archive", "ls"}, {"version"}} {
		found, _, err := cmd.Find(args)
		require.NoError(t, err, args)
		require.NotNil(t, found)
	}

	export, _, err := cmd.Find([]string{"export"})
	require.NoError(t, err)
	for _, name := range []string{"backend", "target", "reset", "reference", "failure-policy", "no-progress", "archive", "root"} {
		require.NotNil(t, export.Flag(name), name)
	}
}

func TestExitCode(t *testing.T) {
	require.Equal(t, 0, ExitCode(nil))
	require.Equal(t, ExitAborted, ExitCode(fmt.Errorf("job: %w", histerrors.ErrAborted)))
	require.Equal(t, ExitMismatch, ExitCode(histerrors.NewVerifyMismatchError(3)))
	require.Equal(t, ExitFailure, ExitCode(fmt.Errorf("boom")))
}
