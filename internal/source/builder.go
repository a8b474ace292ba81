package source

import (
	"time"

	"histport.dev/histport/internal/history"
)

// Builder records a legacy history into a Memory database one action at a time.
// Every call advances an internal clock by Step unless At is used to set it.
type Builder struct {
	mem      *Memory
	now      time.Time
	Step     time.Duration
	User     string
	versions map[history.ItemID]int
}

// NewBuilder creates a builder whose root project is "$" with identity root
func NewBuilder(root history.ItemID, start time.Time) *Builder {
	return &Builder{
		mem:      NewMemory(root),
		now:      start,
		Step:     time.Second,
		User:     "Admin",
		versions: make(map[history.ItemID]int),
	}
}

// Memory returns the database built so far
func (b *Builder) Memory() *Memory {
	return b.mem
}

// Now returns the timestamp the next revision will get
func (b *Builder) Now() time.Time {
	return b.now
}

// At sets the clock
func (b *Builder) At(t time.Time) *Builder {
	b.now = t
	return b
}

// Advance moves the clock forward
func (b *Builder) Advance(d time.Duration) *Builder {
	b.now = b.now.Add(d)
	return b
}

// As sets the user recorded on subsequent revisions
func (b *Builder) As(user string) *Builder {
	b.User = user
	return b
}

// Log appends a revision to item's log with the next version number
func (b *Builder) Log(item history.ItemID, comment string, action history.Action) history.Revision {
	b.versions[item]++
	rev := history.Revision{
		Item:    item,
		Version: b.versions[item],
		Time:    b.now,
		User:    b.User,
		Comment: comment,
		Action:  action,
	}
	b.mem.PutRevision(rev)
	b.now = b.now.Add(b.Step)
	return rev
}

// AddProject creates a project under parent
func (b *Builder) AddProject(parent, id history.ItemID, name, comment string) {
	b.mem.PutItem(history.Item{ID: id, Name: name, Project: true})
	b.mem.AddChild(parent, id)
	target := history.ItemName{ID: id, Logical: name, Project: true}
	b.Log(id, "", history.CreateAction{Name: target})
	b.Log(parent, comment, history.AddAction{Name: target})
}

// AddFile creates a file under parent with data as version 1
func (b *Builder) AddFile(parent, id history.ItemID, name, comment string, data []byte) {
	b.mem.PutItem(history.Item{ID: id, Name: name})
	b.mem.AddChild(parent, id)
	target := history.ItemName{ID: id, Logical: name}
	rev := b.Log(id, comment, history.CreateAction{Name: target})
	b.mem.PutContent(id, rev.Version, data, rev.Time)
	b.Log(parent, comment, history.AddAction{Name: target})
}

// Edit records a new version of a file
func (b *Builder) Edit(id history.ItemID, comment string, data []byte) history.Revision {
	rev := b.Log(id, comment, history.EditAction{})
	b.mem.PutContent(id, rev.Version, data, rev.Time)
	return rev
}

// Share makes file reachable from project
func (b *Builder) Share(project, file history.ItemID, name, comment string) {
	b.mem.AddChild(project, file)
	b.Log(project, comment, history.ShareAction{Name: history.ItemName{ID: file, Logical: name}})
}

// Delete removes a child from project
func (b *Builder) Delete(project history.ItemID, target history.ItemName, comment string) {
	b.Log(project, comment, history.DeleteAction{Name: target})
}

// Label labels project
func (b *Builder) Label(project history.ItemID, label, comment string) {
	b.Log(project, comment, history.LabelAction{Label: label})
}

// Rename renames a child of project
func (b *Builder) Rename(project history.ItemID, target history.ItemName, newName, comment string) {
	if item, err := b.mem.Item(target.ID); err == nil {
		item.Name = newName
		b.mem.PutItem(*item)
	}
	old := target.Logical
	target.Logical = newName
	b.Log(project, comment, history.RenameAction{Name: target, OriginalName: old})
}
