package vcs

import (
	"context"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"histport.dev/histport/testhelpers"
)

// runTool runs an external command in dir and returns its trimmed output
func runTool(t *testing.T, dir, name string, args ...string) string {
	t.Helper()
	cmd := exec.Command(name, args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, string(out))
	return strings.TrimSpace(string(out))
}

func TestSvnBackend(t *testing.T) {
	testhelpers.RequireTool(t, "svn", "svnadmin")
	scene := testhelpers.NewScene(t, nil)
	ctx := context.Background()
	when := time.Date(2004, 3, 1, 12, 0, 0, 0, time.UTC)

	backend := NewSvnBackend(scene.Target)
	require.True(t, backend.FindExecutable())
	require.NoError(t, backend.Init(ctx, true))
	require.NoError(t, backend.Configure(ctx))

	revprop := func(rev, name string) string {
		return runTool(t, scene.Dir, "svn", "propget", "--revprop", "-r", rev, name, backend.repoURL())
	}

	t.Run("empty working copy does not commit", func(t *testing.T) {
		committed, err := backend.Commit(ctx, CommitInfo{User: "Ann", Comment: "nothing", Time: when})
		require.NoError(t, err)
		require.False(t, committed)
	})

	t.Run("commit carries identity and date", func(t *testing.T) {
		writeFile(t, scene.Target, "src/main.c", "int main;")
		require.NoError(t, backend.Add(ctx, "src/main.c"))
		require.True(t, backend.NeedsCommit())

		committed, err := backend.Commit(ctx, CommitInfo{User: "Ann Smith", Comment: "initial import", Time: when})
		require.NoError(t, err)
		require.True(t, committed)
		require.False(t, backend.NeedsCommit())

		require.Equal(t, "Ann Smith", revprop("HEAD", "svn:author"))
		require.Equal(t, "2004-03-01T12:00:00.000000Z", revprop("HEAD", "svn:date"))
	})

	t.Run("move and remove", func(t *testing.T) {
		require.NoError(t, backend.Move(ctx, "src", "lib"))
		committed, err := backend.Commit(ctx, CommitInfo{User: "Ann", Comment: "move", Time: when.Add(time.Hour)})
		require.NoError(t, err)
		require.True(t, committed)
		require.Equal(t, "lib/\nlib/main.c", runTool(t, scene.Dir, "svn", "list", "-R", backend.repoURL("trunk")))

		require.NoError(t, backend.RemoveDir(ctx, "lib", true))
		committed, err = backend.Commit(ctx, CommitInfo{User: "Ann", Comment: "remove", Time: when.Add(2 * time.Hour)})
		require.NoError(t, err)
		require.True(t, committed)
		require.Empty(t, runTool(t, scene.Dir, "svn", "list", "-R", backend.repoURL("trunk")))
	})

	t.Run("tag is a copy of trunk", func(t *testing.T) {
		require.NoError(t, backend.Tag(ctx, TagInfo{Name: "v1_0", User: "Release Manager", Comment: "release", Time: when.Add(3 * time.Hour)}))
		require.Equal(t, "v1_0/", runTool(t, scene.Dir, "svn", "list", backend.repoURL("tags")))
		require.Equal(t, "Release Manager", revprop("HEAD", "svn:author"))
		require.Equal(t, "2004-03-01T15:00:00.000000Z", revprop("HEAD", "svn:date"))
	})
}
