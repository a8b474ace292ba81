package history

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestActionKindNames(t *testing.T) {
	for kind := ActionLabel; kind <= ActionEdit; kind++ {
		name := kind.String()
		require.NotEqual(t, "unknown", name, "kind %d has no name", kind)

		parsed, err := ParseActionKind(name)
		require.NoError(t, err)
		require.Equal(t, kind, parsed)
	}

	_, err := ParseActionKind("checkout")
	require.Error(t, err)
}

func TestTarget(t *testing.T) {
	name := ItemName{ID: "AAAA", Logical: "a.txt"}

	got, ok := Target(AddAction{Name: name})
	require.True(t, ok)
	require.Equal(t, name, got)

	_, ok = Target(EditAction{})
	require.False(t, ok)

	_, ok = Target(LabelAction{Label: "v1"})
	require.False(t, ok)
}

func TestSortRevisionsIsStable(t *testing.T) {
	base := time.Date(2004, 5, 1, 12, 0, 0, 0, time.UTC)
	revs := []Revision{
		{Item: "B", Version: 1, Time: base.Add(time.Minute)},
		{Item: "A", Version: 1, Time: base},
		{Item: "C", Version: 1, Time: base.Add(time.Minute)},
		{Item: "D", Version: 1, Time: base},
	}

	SortRevisions(revs)

	var order []ItemID
	for _, r := range revs {
		order = append(order, r.Item)
	}
	require.Equal(t, []ItemID{"A", "D", "B", "C"}, order)
}

func TestFilter(t *testing.T) {
	t.Run("empty pattern list excludes nothing", func(t *testing.T) {
		f, err := NewFilter(" ; ")
		require.NoError(t, err)
		require.True(t, f.Empty())
		require.False(t, f.Excludes("bin/tool.exe"))
	})

	t.Run("matches bare names and relative paths", func(t *testing.T) {
		f, err := NewFilter("*.exe;docs/*.tmp")
		require.NoError(t, err)
		require.True(t, f.Excludes("bin/tool.exe"))
		require.True(t, f.Excludes("docs/a.tmp"))
		require.False(t, f.Excludes("src/a.tmp"))
		require.False(t, f.Excludes("src/main.c"))
	})

	t.Run("rejects malformed patterns", func(t *testing.T) {
		_, err := NewFilter("[a-")
		require.Error(t, err)
	})
}
