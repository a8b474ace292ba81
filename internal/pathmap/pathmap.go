// Package pathmap tracks where every legacy item lives in the working tree
// while history is replayed.
//
// Projects and files are kept in two arenas keyed by physical identity.
// Projects point at their parent; each project lists its file memberships,
// and each file keeps back-references to the projects containing it, so the
// set of paths a shared file occupies is a reverse-index lookup.
package pathmap

import (
	"path"
	"sort"

	"histport.dev/histport/internal/history"
)

// membership is one appearance of a file inside a project
type membership struct {
	name   string
	pinned int // 0 when not pinned
}

type projectInfo struct {
	id        history.ItemID
	name      string
	parent    history.ItemID
	root      bool
	rootPath  string
	destroyed bool
	projects  map[history.ItemID]bool
	files     map[history.ItemID]*membership
}

type fileInfo struct {
	id        history.ItemID
	version   int
	destroyed bool
	projects  map[history.ItemID]bool
}

// ItemInfo describes an item after a mapper operation
type ItemInfo struct {
	ID        history.ItemID
	Project   bool
	Version   int
	Destroyed bool
}

// Entry is one materializable item of a project subtree
type Entry struct {
	ID      history.ItemID
	Path    string
	Project bool
	// Version is the content version the path should hold; pinned
	// memberships report their pinned version.
	Version int
}

// Mapper is the model of the working tree during a replay
type Mapper struct {
	projects map[history.ItemID]*projectInfo
	files    map[history.ItemID]*fileInfo
}

// New creates an empty mapper with no roots
func New() *Mapper {
	return &Mapper{
		projects: make(map[history.ItemID]*projectInfo),
		files:    make(map[history.ItemID]*fileInfo),
	}
}

func (m *Mapper) project(id history.ItemID) *projectInfo {
	p, ok := m.projects[id]
	if !ok {
		p = &projectInfo{
			id:       id,
			projects: make(map[history.ItemID]bool),
			files:    make(map[history.ItemID]*membership),
		}
		m.projects[id] = p
	}
	return p
}

func (m *Mapper) file(id history.ItemID) *fileInfo {
	f, ok := m.files[id]
	if !ok {
		f = &fileInfo{id: id, version: 1, projects: make(map[history.ItemID]bool)}
		m.files[id] = f
	}
	return f
}

// SetRoot declares project id in scope, materialized at dir relative to
// the working tree ("" is the working tree itself).
func (m *Mapper) SetRoot(id history.ItemID, name, dir string) {
	p := m.project(id)
	p.name = name
	p.root = true
	p.rootPath = dir
}

func (m *Mapper) detach(p *projectInfo) {
	if p.parent == "" {
		return
	}
	if parent, ok := m.projects[p.parent]; ok {
		delete(parent.projects, p.id)
	}
	p.parent = ""
}

func (m *Mapper) attach(parent history.ItemID, child history.ItemName) ItemInfo {
	owner := m.project(parent)
	if child.Project {
		p := m.project(child.ID)
		m.detach(p)
		p.parent = parent
		p.name = child.Logical
		owner.projects[child.ID] = true
		return ItemInfo{ID: child.ID, Project: true, Destroyed: p.destroyed}
	}

	f := m.file(child.ID)
	if ms, ok := owner.files[child.ID]; ok {
		ms.name = child.Logical
	} else {
		owner.files[child.ID] = &membership{name: child.Logical}
	}
	f.projects[parent] = true
	return ItemInfo{ID: child.ID, Version: f.version, Destroyed: f.destroyed}
}

// AddItem registers child under project. Files seen for the first time
// start at version 1; shared files keep their current version.
func (m *Mapper) AddItem(project history.ItemID, child history.ItemName) ItemInfo {
	return m.attach(project, child)
}

// RecoverItem reinstates a deleted child under project. A project recovered
// from elsewhere is reparented.
func (m *Mapper) RecoverItem(project history.ItemID, child history.ItemName) ItemInfo {
	return m.attach(project, child)
}

// DeleteItem removes child from the project's listing. Content survives in
// other projects sharing it.
func (m *Mapper) DeleteItem(project history.ItemID, child history.ItemName) ItemInfo {
	if child.Project {
		p := m.project(child.ID)
		if p.parent == project {
			m.detach(p)
		}
		return ItemInfo{ID: child.ID, Project: true, Destroyed: p.destroyed}
	}

	f := m.file(child.ID)
	if owner, ok := m.projects[project]; ok {
		delete(owner.files, child.ID)
	}
	delete(f.projects, project)
	return ItemInfo{ID: child.ID, Version: f.version, Destroyed: f.destroyed}
}

// DestroyItem deletes child and flags its identity as permanently gone
func (m *Mapper) DestroyItem(project history.ItemID, child history.ItemName) ItemInfo {
	info := m.DeleteItem(project, child)
	m.SetDestroyed(child.ID, child.Project)
	info.Destroyed = true
	return info
}

// RenameItem changes the logical name of child within project
func (m *Mapper) RenameItem(project history.ItemID, child history.ItemName, newName string) ItemInfo {
	if child.Project {
		p := m.project(child.ID)
		p.name = newName
		return ItemInfo{ID: child.ID, Project: true, Destroyed: p.destroyed}
	}
	f := m.file(child.ID)
	if owner, ok := m.projects[project]; ok {
		if ms, ok := owner.files[child.ID]; ok {
			ms.name = newName
		}
	}
	return ItemInfo{ID: child.ID, Version: f.version, Destroyed: f.destroyed}
}

// MoveProjectFrom reparents subproject under project with the given name
func (m *Mapper) MoveProjectFrom(project history.ItemID, subproject history.ItemName) ItemInfo {
	subproject.Project = true
	return m.attach(project, subproject)
}

// PinItem freezes the content of file inside project at version
func (m *Mapper) PinItem(project, file history.ItemID, version int) {
	owner := m.project(project)
	if ms, ok := owner.files[file]; ok {
		ms.pinned = version
	}
}

// UnpinItem releases a pin so the membership follows the latest version again
func (m *Mapper) UnpinItem(project, file history.ItemID) {
	owner := m.project(project)
	if ms, ok := owner.files[file]; ok {
		ms.pinned = 0
	}
}

// BranchFile replaces the membership of source in project with a new
// identity whose lineage starts at source's current version.
func (m *Mapper) BranchFile(project history.ItemID, branch, source history.ItemName) ItemInfo {
	version := 1
	if src, ok := m.files[source.ID]; ok {
		version = src.version
		delete(src.projects, project)
	}
	owner := m.project(project)
	name := branch.Logical
	if ms, ok := owner.files[source.ID]; ok {
		if name == "" {
			name = ms.name
		}
		delete(owner.files, source.ID)
	}
	info := m.attach(project, history.ItemName{ID: branch.ID, Logical: name})
	f := m.files[branch.ID]
	f.version = version
	info.Version = version
	return info
}

// SetFileVersion records the latest version of a file
func (m *Mapper) SetFileVersion(id history.ItemID, version int) {
	m.file(id).version = version
}

// SetDestroyed marks an identity as irretrievable
func (m *Mapper) SetDestroyed(id history.ItemID, project bool) {
	if project {
		m.project(id).destroyed = true
		return
	}
	m.file(id).destroyed = true
}

// IsDestroyed reports whether id was destroyed
func (m *Mapper) IsDestroyed(id history.ItemID) bool {
	if f, ok := m.files[id]; ok {
		return f.destroyed
	}
	if p, ok := m.projects[id]; ok {
		return p.destroyed
	}
	return false
}

// FileVersion returns the latest known version of a file, or 0
func (m *Mapper) FileVersion(id history.ItemID) int {
	if f, ok := m.files[id]; ok {
		return f.version
	}
	return 0
}

// PinnedVersion returns the version file is pinned to inside project, or 0
func (m *Mapper) PinnedVersion(project, file history.ItemID) int {
	if owner, ok := m.projects[project]; ok {
		if ms, ok := owner.files[file]; ok {
			return ms.pinned
		}
	}
	return 0
}

// ProjectPath returns the working-tree path of a project, or false when the
// project is not reachable from any root.
func (m *Mapper) ProjectPath(id history.ItemID) (string, bool) {
	var segments []string
	seen := make(map[history.ItemID]bool)
	for {
		p, ok := m.projects[id]
		if !ok || seen[id] {
			return "", false
		}
		seen[id] = true
		if p.root {
			for i, j := 0, len(segments)-1; i < j; i, j = i+1, j-1 {
				segments[i], segments[j] = segments[j], segments[i]
			}
			return path.Join(append([]string{p.rootPath}, segments...)...), true
		}
		if p.parent == "" {
			return "", false
		}
		segments = append(segments, p.name)
		id = p.parent
	}
}

// IsRooted reports whether project is reachable from a root
func (m *Mapper) IsRooted(project history.ItemID) bool {
	_, ok := m.ProjectPath(project)
	return ok
}

// IsInScope reports whether an item currently appears in the working tree.
// Files are in scope when at least one containing project is rooted.
func (m *Mapper) IsInScope(id history.ItemID) bool {
	if _, ok := m.projects[id]; ok {
		return m.IsRooted(id)
	}
	if f, ok := m.files[id]; ok {
		for project := range f.projects {
			if m.IsRooted(project) {
				return true
			}
		}
	}
	return false
}

// FilePath returns the path of file inside project
func (m *Mapper) FilePath(project, file history.ItemID) (string, bool) {
	owner, ok := m.projects[project]
	if !ok {
		return "", false
	}
	ms, ok := owner.files[file]
	if !ok {
		return "", false
	}
	dir, ok := m.ProjectPath(project)
	if !ok {
		return "", false
	}
	return path.Join(dir, ms.name), true
}

// FilePaths returns every working-tree path file occupies, sorted.
// With unpinnedOnly, pinned memberships are left out.
func (m *Mapper) FilePaths(id history.ItemID, unpinnedOnly bool) []string {
	f, ok := m.files[id]
	if !ok {
		return nil
	}
	var paths []string
	for project := range f.projects {
		if unpinnedOnly && m.PinnedVersion(project, id) != 0 {
			continue
		}
		if p, ok := m.FilePath(project, id); ok {
			paths = append(paths, p)
		}
	}
	sort.Strings(paths)
	return paths
}

// Subtree lists every project and file below project, parents before
// children, with paths relative to the working tree. It returns nil when
// project is not rooted.
func (m *Mapper) Subtree(project history.ItemID) []Entry {
	dir, ok := m.ProjectPath(project)
	if !ok {
		return nil
	}
	var entries []Entry
	seen := make(map[history.ItemID]bool)
	var walk func(id history.ItemID, dir string)
	walk = func(id history.ItemID, dir string) {
		if seen[id] {
			return
		}
		seen[id] = true
		p := m.projects[id]

		files := make([]history.ItemID, 0, len(p.files))
		for fid := range p.files {
			files = append(files, fid)
		}
		sort.Slice(files, func(i, j int) bool { return p.files[files[i]].name < p.files[files[j]].name })
		for _, fid := range files {
			ms := p.files[fid]
			version := ms.pinned
			if version == 0 {
				version = m.files[fid].version
			}
			entries = append(entries, Entry{ID: fid, Path: path.Join(dir, ms.name), Version: version})
		}

		subs := make([]history.ItemID, 0, len(p.projects))
		for sid := range p.projects {
			subs = append(subs, sid)
		}
		sort.Slice(subs, func(i, j int) bool { return m.projects[subs[i]].name < m.projects[subs[j]].name })
		for _, sid := range subs {
			sub := m.projects[sid]
			subDir := path.Join(dir, sub.name)
			entries = append(entries, Entry{ID: sid, Path: subDir, Project: true})
			walk(sid, subDir)
		}
	}
	walk(project, dir)
	return entries
}
