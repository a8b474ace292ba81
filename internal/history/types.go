// Package history defines the legacy repository model replayed by histport:
// items identified by physical identity, and the per-item revision log.
package history

import (
	"fmt"
	"sort"
	"time"
)

// ItemID is the physical identity of an item. It never changes across renames or moves.
type ItemID string

// ItemName names the child item a project-level action applies to
type ItemName struct {
	ID      ItemID
	Logical string
	Project bool
}

func (n ItemName) String() string {
	if n.Project {
		return fmt.Sprintf("%s/ (%s)", n.Logical, n.ID)
	}
	return fmt.Sprintf("%s (%s)", n.Logical, n.ID)
}

// Item is a project or file as it exists in the source database today
type Item struct {
	ID       ItemID
	Name     string
	Project  bool
	Created  time.Time
	Children []ItemID
	// Versions is the number of the item's latest revision
	Versions int
}

// Revision is one entry of an item's history
type Revision struct {
	Item    ItemID
	Version int
	Time    time.Time
	User    string
	Comment string
	Action  Action
}

func (r Revision) String() string {
	return fmt.Sprintf("%s %s v%d by %s at %s", r.Action.Kind(), r.Item, r.Version, r.User, r.Time.Format(time.RFC3339))
}

// SortRevisions orders revisions by timestamp. The sort is stable so ties keep log order.
func SortRevisions(revs []Revision) {
	sort.SliceStable(revs, func(i, j int) bool {
		return revs[i].Time.Before(revs[j].Time)
	})
}
