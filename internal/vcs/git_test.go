package vcs

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	histerrors "histport.dev/histport/internal/errors"
	"histport.dev/histport/testhelpers"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	p := filepath.Join(dir, filepath.FromSlash(name))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
}

func TestGitBackend(t *testing.T) {
	testhelpers.RequireTool(t, "git")
	scene := testhelpers.NewScene(t, nil)
	ctx := context.Background()
	when := time.Date(2004, 3, 1, 12, 0, 0, 0, time.UTC)

	backend, err := NewBackend("git", scene.Target)
	require.NoError(t, err)
	require.True(t, backend.FindExecutable())
	require.NoError(t, backend.Init(ctx, true))
	require.NoError(t, backend.Configure(ctx))

	t.Run("empty index does not commit", func(t *testing.T) {
		committed, err := backend.Commit(ctx, CommitInfo{User: "Ann", Email: "ann@localhost", Comment: "nothing", Time: when})
		require.NoError(t, err)
		require.False(t, committed)
	})

	t.Run("commit carries identity and date", func(t *testing.T) {
		writeFile(t, scene.Target, "src/main.c", "int main;")
		require.NoError(t, backend.Add(ctx, "src/main.c"))
		require.True(t, backend.NeedsCommit())

		committed, err := backend.Commit(ctx, CommitInfo{User: "Ann Smith", Email: "ann.smith@localhost", Comment: "initial import", Time: when})
		require.NoError(t, err)
		require.True(t, committed)
		require.False(t, backend.NeedsCommit())

		repo := scene.TargetRepo()
		authors, err := repo.CommitAuthors()
		require.NoError(t, err)
		require.Equal(t, []string{"Ann Smith <ann.smith@localhost>"}, authors)

		summary, err := InspectGit(scene.Target)
		require.NoError(t, err)
		require.Equal(t, 1, summary.Commits)
		require.Equal(t, "Ann Smith", summary.LastAuthor)
		require.True(t, when.Equal(summary.LastTime))
	})

	t.Run("move and remove", func(t *testing.T) {
		require.NoError(t, backend.Move(ctx, "src", "lib"))
		writeFile(t, scene.Target, "lib/util.c", "void f;")
		require.NoError(t, backend.Add(ctx, "lib/util.c"))
		committed, err := backend.Commit(ctx, CommitInfo{User: "Ann", Email: "ann@localhost", Comment: "move", Time: when.Add(time.Hour)})
		require.NoError(t, err)
		require.True(t, committed)

		files, err := scene.TargetRepo().Files()
		require.NoError(t, err)
		require.Equal(t, []string{"lib/main.c", "lib/util.c"}, files)

		require.NoError(t, backend.RemoveDir(ctx, "lib", true))
		_, err = os.Stat(filepath.Join(scene.Target, "lib"))
		require.True(t, os.IsNotExist(err))
		committed, err = backend.Commit(ctx, CommitInfo{User: "Ann", Email: "ann@localhost", Comment: "remove", Time: when.Add(2 * time.Hour)})
		require.NoError(t, err)
		require.True(t, committed)
	})

	t.Run("annotated tag", func(t *testing.T) {
		require.NoError(t, backend.Tag(ctx, TagInfo{Name: "v1_0", User: "Ann", Email: "ann@localhost", Comment: "release", Time: when}))
		testhelpers.ExpectTags(t, scene.TargetRepo(), []string{"v1_0"})

		message, err := GitTagMessage(scene.Target, "v1_0")
		require.NoError(t, err)
		require.Equal(t, "release\n", message)
	})

	t.Run("untracked directories", func(t *testing.T) {
		require.NoError(t, os.MkdirAll(filepath.Join(scene.Target, "empty", "inner"), 0o755))
		require.NoError(t, backend.AddDir(ctx, "empty"))
		require.NoError(t, backend.MoveEmptyDir(ctx, "empty", "moved/empty"))
		_, err := os.Stat(filepath.Join(scene.Target, "moved", "empty", "inner"))
		require.NoError(t, err)
		require.NoError(t, backend.RemoveEmptyDir(ctx, "moved"))
		_, err = os.Stat(filepath.Join(scene.Target, "moved"))
		require.True(t, os.IsNotExist(err))
	})

	t.Run("command failures are typed", func(t *testing.T) {
		err := backend.RemoveFile(ctx, "does/not/exist")
		var cmdErr *histerrors.CommandError
		require.ErrorAs(t, err, &cmdErr)
		require.Equal(t, "git", cmdErr.Command)
	})
}

func TestNewBackend(t *testing.T) {
	require.Equal(t, []string{"git", "hg", "svn"}, Kinds())

	for _, kind := range Kinds() {
		backend, err := NewBackend(kind, "out")
		require.NoError(t, err)
		require.Equal(t, kind, backend.Name())
		require.True(t, filepath.IsAbs(backend.Dir()))
		require.NotEmpty(t, backend.CompareExcludes())
	}

	_, err := NewBackend("cvs", "out")
	require.Error(t, err)
}

func TestHgDate(t *testing.T) {
	zone := time.FixedZone("CET", 3600)
	when := time.Date(2001, 9, 9, 2, 46, 40, 0, zone)
	require.Equal(t, "1000000000 -3600", hgDate(when))
	require.Equal(t, "Ann <ann@x>", hgUser("Ann", "ann@x"))
	require.Equal(t, "Ann", hgUser("Ann", ""))
}
