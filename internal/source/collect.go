package source

import (
	"fmt"
	"path"

	histerrors "histport.dev/histport/internal/errors"
	"histport.dev/histport/internal/history"
)

// Log is the revision history of one or more root projects
type Log struct {
	Roots     []*history.Item
	Revisions []history.Revision
	// Excluded lists files left out by the filter
	Excluded []history.ItemID
}

// Collect walks every root's subtree and returns all revisions of all
// reachable items in timestamp order. Files matched by filter are dropped
// together with the project actions that target them.
func Collect(db Database, roots []string, filter *history.Filter) (*Log, error) {
	if len(roots) == 0 {
		return nil, fmt.Errorf("no root project given")
	}

	log := &Log{}
	visited := make(map[history.ItemID]bool)
	excluded := make(map[history.ItemID]bool)
	var order []history.ItemID

	var walk func(item *history.Item, rel string) error
	walk = func(item *history.Item, rel string) error {
		if visited[item.ID] {
			return nil
		}
		visited[item.ID] = true
		if !item.Project {
			if filter.Excludes(rel) {
				excluded[item.ID] = true
				log.Excluded = append(log.Excluded, item.ID)
				return nil
			}
			order = append(order, item.ID)
			return nil
		}
		order = append(order, item.ID)
		for _, childID := range item.Children {
			child, err := db.Item(childID)
			if err != nil {
				return fmt.Errorf("failed to read child %s of %s: %w", childID, item.ID, err)
			}
			if err := walk(child, path.Join(rel, child.Name)); err != nil {
				return err
			}
		}
		return nil
	}

	for _, rootPath := range roots {
		root, err := db.GetItem(rootPath)
		if err != nil {
			return nil, fmt.Errorf("invalid root %s: %w", rootPath, err)
		}
		if !root.Project {
			return nil, fmt.Errorf("invalid root %s: %w", rootPath, histerrors.ErrNotProject)
		}
		log.Roots = append(log.Roots, root)
		if err := walk(root, ""); err != nil {
			return nil, err
		}
	}

	for _, id := range order {
		revs, err := db.Revisions(id)
		if err != nil {
			return nil, fmt.Errorf("failed to read history of %s: %w", id, err)
		}
		for _, rev := range revs {
			if target, ok := history.Target(rev.Action); ok && excluded[target.ID] {
				continue
			}
			log.Revisions = append(log.Revisions, rev)
		}
	}

	history.SortRevisions(log.Revisions)
	return log, nil
}
