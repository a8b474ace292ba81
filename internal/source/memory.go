package source

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	histerrors "histport.dev/histport/internal/errors"
	"histport.dev/histport/internal/history"
)

type memoryContent struct {
	data []byte
	time time.Time
}

// Memory is an in-memory Database
type Memory struct {
	mu        sync.RWMutex
	root      history.ItemID
	items     map[history.ItemID]*history.Item
	revisions map[history.ItemID][]history.Revision
	contents  map[history.ItemID]map[int]memoryContent
	missing   map[history.ItemID]bool
}

// NewMemory creates an empty database whose top-level project has the given identity
func NewMemory(root history.ItemID) *Memory {
	m := &Memory{
		root:      root,
		items:     make(map[history.ItemID]*history.Item),
		revisions: make(map[history.ItemID][]history.Revision),
		contents:  make(map[history.ItemID]map[int]memoryContent),
		missing:   make(map[history.ItemID]bool),
	}
	m.items[root] = &history.Item{ID: root, Name: RootPath, Project: true}
	return m
}

// PutItem stores an item, replacing any item with the same identity
func (m *Memory) PutItem(item history.Item) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := item
	cp.Children = append([]history.ItemID(nil), item.Children...)
	m.items[item.ID] = &cp
}

// AddChild lists child under project if it is not listed already
func (m *Memory) AddChild(project, child history.ItemID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.items[project]
	if !ok {
		return
	}
	for _, c := range p.Children {
		if c == child {
			return
		}
	}
	p.Children = append(p.Children, child)
}

// PutRevision appends a revision to its item's log
func (m *Memory) PutRevision(rev history.Revision) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.revisions[rev.Item] = append(m.revisions[rev.Item], rev)
	if item, ok := m.items[rev.Item]; ok && rev.Version > item.Versions {
		item.Versions = rev.Version
		if rev.Version == 1 {
			item.Created = rev.Time
		}
	}
}

// PutContent stores the body of one file version
func (m *Memory) PutContent(id history.ItemID, version int, data []byte, t time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.contents[id] == nil {
		m.contents[id] = make(map[int]memoryContent)
	}
	m.contents[id][version] = memoryContent{data: append([]byte(nil), data...), time: t}
}

// Purge makes the identity absent, as a destroyed item is after the fact
func (m *Memory) Purge(id history.ItemID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.missing[id] = true
	delete(m.contents, id)
}

// GetItem resolves a logical path
func (m *Memory) GetItem(path string) (*history.Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	current, ok := m.items[m.root]
	if !ok {
		return nil, histerrors.NewItemNotFoundError(path)
	}
	if path != RootPath && !strings.HasPrefix(path, RootPath+PathSeparator) {
		return nil, histerrors.NewItemNotFoundError(path)
	}
	for _, segment := range SplitPath(path) {
		var next *history.Item
		for _, childID := range current.Children {
			child, ok := m.items[childID]
			if ok && strings.EqualFold(child.Name, segment) {
				next = child
				break
			}
		}
		if next == nil {
			return nil, histerrors.NewItemNotFoundError(path)
		}
		current = next
	}
	cp := *current
	return &cp, nil
}

// Item returns the item with the given identity
func (m *Memory) Item(id history.ItemID) (*history.Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	item, ok := m.items[id]
	if !ok {
		return nil, histerrors.NewItemNotFoundError(string(id))
	}
	cp := *item
	return &cp, nil
}

// Revisions returns the item's log
func (m *Memory) Revisions(id history.ItemID) ([]history.Revision, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.items[id]; !ok {
		return nil, histerrors.NewItemNotFoundError(string(id))
	}
	return append([]history.Revision(nil), m.revisions[id]...), nil
}

// GetRevision opens the content of one version
func (m *Memory) GetRevision(id history.ItemID, version int) (*Content, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	versions, ok := m.contents[id]
	if !ok {
		return nil, histerrors.NewContentError(string(id), version, fmt.Errorf("no content stored"))
	}
	c, ok := versions[version]
	if !ok {
		return nil, histerrors.NewContentError(string(id), version, nil)
	}
	return &Content{Body: io.NopCloser(bytes.NewReader(c.data)), Time: c.time}, nil
}

// ItemExists reports whether the identity is still present
func (m *Memory) ItemExists(id history.ItemID) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.items[id]
	return ok && !m.missing[id]
}
