// Package source defines the contract histport uses to read a legacy
// repository, plus an in-memory implementation and the revision collector
// that turns a subtree into one time-ordered log.
package source

import (
	"io"
	"strings"
	"time"

	"histport.dev/histport/internal/history"
)

// PathSeparator separates segments of a legacy item path such as "$/Project/Sub"
const PathSeparator = "/"

// RootPath is the path of the top-level project of a legacy database
const RootPath = "$"

// Content is the body of one historical file version
type Content struct {
	Body io.ReadCloser
	Time time.Time
}

// Database is the read side of a legacy repository
type Database interface {
	// GetItem resolves a logical path like "$/Project/Sub"
	GetItem(path string) (*history.Item, error)
	// Item returns the item with the given physical identity
	Item(id history.ItemID) (*history.Item, error)
	// Revisions returns the item's own log in version order
	Revisions(id history.ItemID) ([]history.Revision, error)
	// GetRevision opens the content of one version of a file
	GetRevision(id history.ItemID, version int) (*Content, error)
	// ItemExists reports whether the physical identity is still present
	ItemExists(id history.ItemID) bool
}

// SplitPath splits a legacy path into its segments below the root
func SplitPath(path string) []string {
	path = strings.TrimPrefix(path, RootPath)
	var parts []string
	for _, p := range strings.Split(path, PathSeparator) {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}
