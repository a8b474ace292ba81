package pathmap

import (
	"path"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"

	"histport.dev/histport/internal/history"
)

func proj(id history.ItemID, name string) history.ItemName {
	return history.ItemName{ID: id, Logical: name, Project: true}
}

func file(id history.ItemID, name string) history.ItemName {
	return history.ItemName{ID: id, Logical: name}
}

// treePaths walks down from the roots and returns, for every file, the set
// of paths it is reachable at.
func treePaths(m *Mapper) map[history.ItemID][]string {
	out := make(map[history.ItemID][]string)
	var walk func(p *projectInfo, dir string, seen map[history.ItemID]bool)
	walk = func(p *projectInfo, dir string, seen map[history.ItemID]bool) {
		if seen[p.id] {
			return
		}
		seen[p.id] = true
		for fid, ms := range p.files {
			out[fid] = append(out[fid], path.Join(dir, ms.name))
		}
		for sid := range p.projects {
			sub := m.projects[sid]
			walk(sub, path.Join(dir, sub.name), seen)
		}
	}
	for _, p := range m.projects {
		if p.root {
			walk(p, p.rootPath, make(map[history.ItemID]bool))
		}
	}
	for id := range out {
		sort.Strings(out[id])
	}
	return out
}

func requireConsistent(t *testing.T, m *Mapper) {
	t.Helper()
	expected := treePaths(m)
	for id, f := range m.files {
		if f.destroyed {
			continue
		}
		require.Equal(t, expected[id], m.FilePaths(id, false), "paths of %s", id)
	}
}

func TestMapper_PathsFollowStructure(t *testing.T) {
	m := New()
	m.SetRoot("R", "Root", "")

	steps := []struct {
		name  string
		apply func()
	}{
		{"add project", func() { m.AddItem("R", proj("A", "a")) }},
		{"add file", func() { m.AddItem("A", file("F", "f.txt")) }},
		{"add nested project", func() { m.AddItem("A", proj("B", "b")) }},
		{"share file", func() { m.AddItem("B", file("F", "shared.txt")) }},
		{"rename project", func() { m.RenameItem("R", proj("A", "a"), "alpha") }},
		{"rename file in one share", func() { m.RenameItem("B", file("F", "shared.txt"), "s.txt") }},
		{"project outside root", func() { m.AddItem("X", proj("Y", "y")) }},
		{"file in unrooted project", func() { m.AddItem("Y", file("G", "g.txt")) }},
		{"move rooted project out", func() { m.MoveProjectFrom("X", proj("B", "b")) }},
		{"move it back", func() { m.MoveProjectFrom("R", proj("B", "beta")) }},
		{"delete share", func() { m.DeleteItem("A", file("F", "f.txt")) }},
		{"recover share", func() { m.RecoverItem("A", file("F", "f.txt")) }},
		{"branch file", func() { m.BranchFile("B", file("F2", ""), file("F", "s.txt")) }},
		{"destroy file", func() { m.DestroyItem("A", file("F", "f.txt")) }},
		{"delete project", func() { m.DeleteItem("R", proj("A", "alpha")) }},
	}

	for _, step := range steps {
		step.apply()
		t.Run(step.name, func(t *testing.T) {
			requireConsistent(t, m)
		})
	}

	require.Nil(t, m.FilePaths("G", false))
	require.Equal(t, []string{"beta/s.txt"}, m.FilePaths("F2", false))
	require.True(t, m.IsDestroyed("F"))
	require.False(t, m.IsRooted("A"))
	require.True(t, m.IsRooted("B"))
}

func TestMapper_ProjectPath(t *testing.T) {
	m := New()
	m.SetRoot("R1", "One", "One")
	m.SetRoot("R2", "Two", "Two")
	m.AddItem("R1", proj("A", "a"))
	m.AddItem("A", proj("B", "b"))

	dir, ok := m.ProjectPath("B")
	require.True(t, ok)
	require.Equal(t, "One/a/b", dir)

	m.MoveProjectFrom("R2", proj("A", "a"))
	dir, ok = m.ProjectPath("B")
	require.True(t, ok)
	require.Equal(t, "Two/a/b", dir)

	_, ok = m.ProjectPath("unknown")
	require.False(t, ok)

	t.Run("cycles are not rooted", func(t *testing.T) {
		m.AddItem("B", proj("C", "c"))
		m.projects["C"].projects["B"] = true
		m.projects["B"].parent = "C"
		_, ok := m.ProjectPath("B")
		require.False(t, ok)
	})
}

func TestMapper_SharedFileVersions(t *testing.T) {
	m := New()
	m.SetRoot("R", "Root", "")
	m.AddItem("R", proj("A", "a"))
	m.AddItem("R", proj("B", "b"))

	info := m.AddItem("A", file("F", "f"))
	require.Equal(t, 1, info.Version)
	require.False(t, info.Destroyed)

	m.SetFileVersion("F", 3)
	info = m.AddItem("B", file("F", "f"))
	require.Equal(t, 3, info.Version)
	require.Equal(t, []string{"a/f", "b/f"}, m.FilePaths("F", false))
	require.True(t, m.IsInScope("F"))
}

func TestMapper_Pinning(t *testing.T) {
	m := New()
	m.SetRoot("R", "Root", "")
	m.AddItem("R", proj("A", "a"))
	m.AddItem("R", proj("B", "b"))
	m.AddItem("A", file("F", "f"))
	m.AddItem("B", file("F", "f"))

	m.PinItem("A", "F", 1)
	m.SetFileVersion("F", 2)

	require.Equal(t, []string{"b/f"}, m.FilePaths("F", true))
	require.Equal(t, []string{"a/f", "b/f"}, m.FilePaths("F", false))
	require.Equal(t, 1, m.PinnedVersion("A", "F"))

	entries := m.Subtree("R")
	versions := map[string]int{}
	for _, e := range entries {
		versions[e.Path] = e.Version
	}
	require.Equal(t, 1, versions["a/f"])
	require.Equal(t, 2, versions["b/f"])

	m.UnpinItem("A", "F")
	require.Equal(t, []string{"a/f", "b/f"}, m.FilePaths("F", true))
	require.Equal(t, 0, m.PinnedVersion("A", "F"))
}

func TestMapper_BranchFile(t *testing.T) {
	m := New()
	m.SetRoot("R", "Root", "")
	m.AddItem("R", proj("A", "a"))
	m.AddItem("R", proj("B", "b"))
	m.AddItem("A", file("F", "f"))
	m.AddItem("B", file("F", "f"))
	m.SetFileVersion("F", 4)

	info := m.BranchFile("B", file("G", ""), file("F", "f"))
	require.Equal(t, 4, info.Version)
	require.Equal(t, []string{"a/f"}, m.FilePaths("F", false))
	require.Equal(t, []string{"b/f"}, m.FilePaths("G", false))

	m.SetFileVersion("F", 5)
	require.Equal(t, 4, m.FileVersion("G"))
}

func TestMapper_Subtree(t *testing.T) {
	m := New()
	m.AddItem("P", proj("S", "sub"))
	m.AddItem("P", file("F1", "one.txt"))
	m.AddItem("S", file("F2", "two.txt"))
	require.Nil(t, m.Subtree("P"))

	m.SetRoot("R", "Root", "")
	m.RecoverItem("R", proj("P", "moved"))

	entries := m.Subtree("P")
	require.Equal(t, []Entry{
		{ID: "F1", Path: "moved/one.txt", Version: 1},
		{ID: "S", Path: "moved/sub", Project: true},
		{ID: "F2", Path: "moved/sub/two.txt", Version: 1},
	}, entries)
}

func TestMapper_Destroy(t *testing.T) {
	m := New()
	m.SetRoot("R", "Root", "")
	m.AddItem("R", file("F", "f"))

	info := m.DestroyItem("R", file("F", "f"))
	require.True(t, info.Destroyed)
	require.True(t, m.IsDestroyed("F"))
	require.Empty(t, m.FilePaths("F", false))

	// destruction is permanent even if the identity is referenced again
	info = m.AddItem("R", file("F", "f"))
	require.True(t, info.Destroyed)

	m.AddItem("R", proj("P", "p"))
	m.DestroyItem("R", proj("P", "p"))
	require.True(t, m.IsDestroyed("P"))
	require.False(t, m.IsRooted("P"))
}
