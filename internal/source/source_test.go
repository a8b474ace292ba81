package source

import (
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	histerrors "histport.dev/histport/internal/errors"
	"histport.dev/histport/internal/history"
)

var epoch = time.Date(2003, 2, 10, 9, 0, 0, 0, time.UTC)

func sampleBuilder() *Builder {
	b := NewBuilder("ROOT", epoch)
	b.AddProject("ROOT", "PROJ", "Proj", "start")
	b.AddFile("PROJ", "F1", "readme.txt", "docs", []byte("hello"))
	b.AddFile("PROJ", "F2", "tool.exe", "binary", []byte{0x4d, 0x5a})
	b.AddProject("PROJ", "SUB", "Sub", "")
	b.AddFile("SUB", "F3", "main.c", "code", []byte("int main;"))
	b.Edit("F1", "more docs", []byte("hello world"))
	return b
}

func TestMemory_GetItem(t *testing.T) {
	mem := sampleBuilder().Memory()

	t.Run("resolves nested paths case-insensitively", func(t *testing.T) {
		item, err := mem.GetItem("$/proj/SUB/Main.c")
		require.NoError(t, err)
		require.Equal(t, history.ItemID("F3"), item.ID)
		require.False(t, item.Project)
	})

	t.Run("root path", func(t *testing.T) {
		item, err := mem.GetItem("$")
		require.NoError(t, err)
		require.True(t, item.Project)
	})

	t.Run("missing path", func(t *testing.T) {
		_, err := mem.GetItem("$/Proj/nope")
		require.ErrorIs(t, err, histerrors.ErrItemNotFound)

		_, err = mem.GetItem("Proj")
		require.ErrorIs(t, err, histerrors.ErrItemNotFound)
	})
}

func TestMemory_GetRevision(t *testing.T) {
	mem := sampleBuilder().Memory()

	content, err := mem.GetRevision("F1", 2)
	require.NoError(t, err)
	data, err := io.ReadAll(content.Body)
	require.NoError(t, err)
	require.Equal(t, "hello world", string(data))

	_, err = mem.GetRevision("F1", 9)
	require.ErrorIs(t, err, histerrors.ErrContentMissing)

	require.True(t, mem.ItemExists("F1"))
	mem.Purge("F1")
	require.False(t, mem.ItemExists("F1"))
	_, err = mem.GetRevision("F1", 1)
	require.ErrorIs(t, err, histerrors.ErrContentMissing)
}

func TestCollect(t *testing.T) {
	t.Run("returns every revision of the subtree in time order", func(t *testing.T) {
		mem := sampleBuilder().Memory()

		log, err := Collect(mem, []string{"$/Proj"}, nil)
		require.NoError(t, err)
		require.Len(t, log.Roots, 1)
		require.Equal(t, history.ItemID("PROJ"), log.Roots[0].ID)

		for i := 1; i < len(log.Revisions); i++ {
			require.False(t, log.Revisions[i].Time.Before(log.Revisions[i-1].Time))
		}
		// root's own "Add Proj" revision is outside the subtree
		for _, rev := range log.Revisions {
			require.NotEqual(t, history.ItemID("ROOT"), rev.Item)
		}
		// PROJ create+3 adds, SUB create+add, 3 file creates, 1 edit
		require.Len(t, log.Revisions, 1+3+1+1+3+1)
	})

	t.Run("drops excluded files and the actions naming them", func(t *testing.T) {
		mem := sampleBuilder().Memory()
		filter, err := history.NewFilter("*.exe")
		require.NoError(t, err)

		log, err := Collect(mem, []string{"$/Proj"}, filter)
		require.NoError(t, err)
		require.Equal(t, []history.ItemID{"F2"}, log.Excluded)
		for _, rev := range log.Revisions {
			require.NotEqual(t, history.ItemID("F2"), rev.Item)
			if target, ok := history.Target(rev.Action); ok {
				require.NotEqual(t, history.ItemID("F2"), target.ID)
			}
		}
	})

	t.Run("input errors", func(t *testing.T) {
		mem := sampleBuilder().Memory()

		_, err := Collect(mem, []string{"$/Missing"}, nil)
		require.ErrorIs(t, err, histerrors.ErrItemNotFound)

		_, err = Collect(mem, []string{"$/Proj/readme.txt"}, nil)
		require.ErrorIs(t, err, histerrors.ErrNotProject)

		_, err = Collect(mem, nil, nil)
		require.Error(t, err)
	})
}
