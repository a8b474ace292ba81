package archive

import (
	"context"
	"database/sql"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"histport.dev/histport/internal/changeset"
	histerrors "histport.dev/histport/internal/errors"
	"histport.dev/histport/internal/history"
	"histport.dev/histport/internal/replay"
	"histport.dev/histport/internal/source"
	"histport.dev/histport/internal/vcs/vcstest"
)

var epoch = time.Date(2004, 8, 2, 14, 0, 0, 0, time.UTC)

// requireSQLite skips when the driver was built without cgo
func requireSQLite(t *testing.T) {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	defer db.Close()
	if err := db.Ping(); err != nil {
		if strings.Contains(err.Error(), "CGO_ENABLED=0") {
			t.Skip("sqlite3 requires cgo")
		}
		require.NoError(t, err)
	}
}

func sampleHistory() *source.Builder {
	b := source.NewBuilder("ROOT", epoch)
	b.AddProject("ROOT", "APP", "App", "initial import")
	b.AddFile("APP", "MAIN", "main.c", "initial import", []byte("int main() { return 0; }\n"))
	b.AddProject("APP", "LIB", "Lib", "initial import")
	b.AddFile("LIB", "UTIL", "util.c", "initial import", []byte("void util() {}\n"))
	b.AddProject("ROOT", "DOCS", "Docs", "docs")
	b.Share("DOCS", "MAIN", "main.c", "share sample")
	b.Advance(time.Hour)
	b.Edit("MAIN", "fix exit code", []byte("int main() { return 1; }\n"))
	b.Rename("LIB", history.ItemName{ID: "UTIL", Logical: "util.c"}, "helpers.c", "rename")
	b.Label("APP", "v1.0", "first release")
	return b
}

func writeArchive(t *testing.T, db source.Database) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "history.db")
	w, err := Create(path, "ROOT")
	require.NoError(t, err)
	require.NoError(t, Copy(w, db))
	require.NoError(t, w.Close())
	return path
}

func openArchive(t *testing.T, path string) *Archive {
	t.Helper()
	a, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	return a
}

func TestArchive_RoundTrip(t *testing.T) {
	requireSQLite(t)
	mem := sampleHistory().Memory()
	a := openArchive(t, writeArchive(t, mem))

	t.Run("paths resolve case-insensitively", func(t *testing.T) {
		item, err := a.GetItem("$/app/LIB/Helpers.C")
		require.NoError(t, err)
		require.Equal(t, history.ItemID("UTIL"), item.ID)
		require.Equal(t, 1, item.Versions)

		root, err := a.GetItem("$")
		require.NoError(t, err)
		require.Equal(t, []history.ItemID{"APP", "DOCS"}, root.Children)

		_, err = a.GetItem("$/App/missing.c")
		require.ErrorIs(t, err, histerrors.ErrItemNotFound)
		_, err = a.GetItem("App")
		require.ErrorIs(t, err, histerrors.ErrItemNotFound)
	})

	t.Run("revision logs match", func(t *testing.T) {
		for _, id := range []history.ItemID{"ROOT", "APP", "LIB", "MAIN", "UTIL", "DOCS"} {
			want, err := mem.Revisions(id)
			require.NoError(t, err)
			got, err := a.Revisions(id)
			require.NoError(t, err)
			require.Len(t, got, len(want), id)
			for i := range want {
				require.Equal(t, want[i].Version, got[i].Version)
				require.True(t, want[i].Time.Equal(got[i].Time))
				require.Equal(t, want[i].User, got[i].User)
				require.Equal(t, want[i].Comment, got[i].Comment)
				require.Equal(t, want[i].Action, got[i].Action)
			}
		}
	})

	t.Run("content is decompressed", func(t *testing.T) {
		content, err := a.GetRevision("MAIN", 2)
		require.NoError(t, err)
		defer content.Body.Close()
		data, err := io.ReadAll(content.Body)
		require.NoError(t, err)
		require.Equal(t, "int main() { return 1; }\n", string(data))

		_, err = a.GetRevision("MAIN", 7)
		require.ErrorIs(t, err, histerrors.ErrContentMissing)
	})

	t.Run("unknown identity", func(t *testing.T) {
		_, err := a.Item("NOPE")
		require.ErrorIs(t, err, histerrors.ErrItemNotFound)
		require.False(t, a.ItemExists("NOPE"))
		require.True(t, a.ItemExists("MAIN"))
	})
}

func TestArchive_Purge(t *testing.T) {
	requireSQLite(t)
	b := sampleHistory()
	b.Log("APP", "", history.DestroyAction{Name: history.ItemName{ID: "MAIN", Logical: "main.c"}})
	mem := b.Memory()
	mem.Purge("MAIN")

	a := openArchive(t, writeArchive(t, mem))
	require.False(t, a.ItemExists("MAIN"))
	_, err := a.GetRevision("MAIN", 1)
	require.ErrorIs(t, err, histerrors.ErrContentMissing)

	item, err := a.Item("MAIN")
	require.NoError(t, err)
	require.Equal(t, "main.c", item.Name)
}

func TestArchive_List(t *testing.T) {
	requireSQLite(t)
	a := openArchive(t, writeArchive(t, sampleHistory().Memory()))

	entries, err := a.List("$/App")
	require.NoError(t, err)

	var paths []string
	for _, e := range entries {
		paths = append(paths, e.Path)
	}
	require.Equal(t, []string{"$/App", "$/App/main.c", "$/App/Lib", "$/App/Lib/helpers.c"}, paths)

	main := entries[1]
	require.Equal(t, 2, main.Revisions)
	require.Equal(t, 2, main.Contents)
	require.EqualValues(t, 50, main.Size)
	require.False(t, main.Purged)
}

func TestCreate_RefusesExistingFile(t *testing.T) {
	requireSQLite(t)
	path := writeArchive(t, sampleHistory().Memory())
	_, err := Create(path, "ROOT")
	require.Error(t, err)
}

func TestOpen_Errors(t *testing.T) {
	requireSQLite(t)
	_, err := Open(filepath.Join(t.TempDir(), "missing.db"))
	require.Error(t, err)

	path := filepath.Join(t.TempDir(), "other.db")
	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE things (id INTEGER)`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	_, err = Open(path)
	require.ErrorContains(t, err, "not a history archive")
}

func TestArchive_ExportMatchesMemory(t *testing.T) {
	requireSQLite(t)
	mem := sampleHistory().Memory()
	a := openArchive(t, writeArchive(t, mem))

	export := func(db source.Database) *vcstest.Recorder {
		fs := afero.NewMemMapFs()
		rec := vcstest.NewRecorder(fs)
		_, err := replay.Export(context.Background(), replay.Job{
			Source:   db,
			Roots:    []string{"$"},
			Grouping: changeset.Options{AnyCommentThreshold: 30 * time.Second, SameCommentThreshold: 10 * time.Minute},
			Backend:  rec,
			Fs:       fs,
		})
		require.NoError(t, err)
		return rec
	}

	want := export(mem)
	got := export(a)
	require.Equal(t, want.OpNames(), got.OpNames())
	require.Equal(t, want.Commits(), got.Commits())
	require.Equal(t, want.TagNames(), got.TagNames())
}
