package replay

import (
	"context"
	"fmt"

	"histport.dev/histport/internal/history"
	"histport.dev/histport/internal/pathmap"
)

// apply replays one revision
func (e *Engine) apply(ctx context.Context, rev history.Revision) error {
	e.log.Debug(rev.String())
	project := rev.Item

	switch a := rev.Action.(type) {
	case history.LabelAction:
		e.labels = append(e.labels, pendingLabel{rev: rev, label: a.Label})
		return nil

	case history.CreateAction:
		// content is realized when the item is added to a project
		return nil

	case history.AddAction:
		return e.attach(ctx, project, a.Name, false)

	case history.ShareAction:
		return e.attach(ctx, project, a.Name, false)

	case history.RecoverAction:
		return e.attach(ctx, project, a.Name, true)

	case history.RestoreAction:
		return e.attach(ctx, project, a.Name, true)

	case history.DeleteAction:
		return e.remove(ctx, project, a.Name, false)

	case history.DestroyAction:
		return e.remove(ctx, project, a.Name, true)

	case history.RenameAction:
		return e.renameItem(ctx, project, a.Name, a.Name.Logical)

	case history.MoveFromAction:
		return e.moveFrom(ctx, project, a)

	case history.MoveToAction:
		return e.moveTo(ctx, project, a)

	case history.PinAction:
		return e.pin(ctx, project, a)

	case history.UnpinAction:
		return e.unpin(ctx, project, a)

	case history.BranchAction:
		return e.branch(ctx, project, a)

	case history.ArchiveAction:
		// archived content stays recoverable from the source
		return nil

	case history.EditAction:
		return e.edit(ctx, rev)

	default:
		e.diagnose("unsupported action %T on %s", rev.Action, rev.Item)
		return nil
	}
}

// attach adds or recovers name under project and materializes it. A
// destroyed project is never attached again.
func (e *Engine) attach(ctx context.Context, project history.ItemID, name history.ItemName, recover bool) error {
	if name.Project && e.projectGone(name.ID) {
		return nil
	}
	var info pathmap.ItemInfo
	if recover {
		info = e.mapper.RecoverItem(project, name)
	} else {
		info = e.mapper.AddItem(project, name)
	}
	return e.materialize(ctx, project, name, info)
}

// materialize creates the working-tree presence of an item just added to project
func (e *Engine) materialize(ctx context.Context, project history.ItemID, name history.ItemName, info pathmap.ItemInfo) error {
	if name.Project {
		if _, ok := e.mapper.ProjectPath(name.ID); !ok {
			return nil
		}
		return e.materializeProject(ctx, name.ID)
	}

	p, ok := e.mapper.FilePath(project, name.ID)
	if !ok {
		return nil
	}
	if e.isGone(name.ID) {
		return nil
	}
	version := info.Version
	if pinned := e.mapper.PinnedVersion(project, name.ID); pinned != 0 {
		version = pinned
	}
	return e.writeFile(ctx, name.ID, version, p, true)
}

// materializeProject creates a project directory and everything the
// mapper knows to be inside it
func (e *Engine) materializeProject(ctx context.Context, id history.ItemID) error {
	if e.projectGone(id) {
		return nil
	}
	dir, _ := e.mapper.ProjectPath(id)
	entries := e.mapper.Subtree(id)
	if err := e.mkdir(ctx, dir); err != nil {
		return err
	}
	if len(entries) == 0 {
		return e.do(ctx, "add-dir", dir, func() error { return e.backend.AddDir(ctx, dir) })
	}

	e.log.Debug(fmt.Sprintf("materializing %d item(s) below %s", len(entries), dir))
	for _, entry := range entries {
		if err := e.checkAbort(ctx); err != nil {
			return err
		}
		if entry.Project {
			if err := e.mkdir(ctx, entry.Path); err != nil {
				return err
			}
			continue
		}
		if e.isGone(entry.ID) {
			continue
		}
		if err := e.writeFile(ctx, entry.ID, entry.Version, entry.Path, false); err != nil {
			return err
		}
	}
	return e.do(ctx, "add-all", "", func() error { return e.backend.AddAll(ctx) })
}

// remove handles Delete and Destroy
func (e *Engine) remove(ctx context.Context, project history.ItemID, name history.ItemName, destroy bool) error {
	var target string
	var rooted bool
	if name.Project {
		target, rooted = e.mapper.ProjectPath(name.ID)
	} else {
		target, rooted = e.mapper.FilePath(project, name.ID)
	}

	if destroy {
		e.mapper.DestroyItem(project, name)
	} else {
		e.mapper.DeleteItem(project, name)
	}

	if !rooted {
		return nil
	}
	if name.Project {
		if _, still := e.mapper.ProjectPath(name.ID); still {
			// the delete was recorded on a project that no longer holds it
			return nil
		}
		return e.removeDir(ctx, target)
	}
	return e.removeFile(ctx, target)
}

func (e *Engine) renameItem(ctx context.Context, project history.ItemID, name history.ItemName, newName string) error {
	var oldPath, newPath string
	var wasRooted, isRooted bool

	if name.Project {
		oldPath, wasRooted = e.mapper.ProjectPath(name.ID)
		e.mapper.RenameItem(project, name, newName)
		newPath, isRooted = e.mapper.ProjectPath(name.ID)
	} else {
		oldPath, wasRooted = e.mapper.FilePath(project, name.ID)
		e.mapper.RenameItem(project, name, newName)
		newPath, isRooted = e.mapper.FilePath(project, name.ID)
	}

	if !wasRooted || !isRooted || oldPath == newPath {
		return nil
	}
	if !e.exists(oldPath) {
		return nil
	}
	return e.rename(ctx, oldPath, newPath)
}

func (e *Engine) moveFrom(ctx context.Context, project history.ItemID, a history.MoveFromAction) error {
	name := a.Name
	name.Project = true
	if e.projectGone(name.ID) {
		return nil
	}
	oldPath, wasRooted := e.mapper.ProjectPath(name.ID)

	if e.mapper.IsRooted(a.OriginalProject) {
		e.mapper.MoveProjectFrom(project, name)
	} else {
		// no record of its earlier life in scope: adopt it as new
		e.mapper.RecoverItem(project, name)
	}
	newPath, isRooted := e.mapper.ProjectPath(name.ID)

	switch {
	case wasRooted && isRooted:
		if oldPath == newPath || !e.exists(oldPath) {
			return nil
		}
		return e.rename(ctx, oldPath, newPath)
	case wasRooted:
		return e.removeDir(ctx, oldPath)
	case isRooted:
		return e.materializeProject(ctx, name.ID)
	}
	return nil
}

func (e *Engine) moveTo(ctx context.Context, project history.ItemID, a history.MoveToAction) error {
	if e.mapper.IsRooted(a.NewProject) {
		// the paired MoveFrom performs the move
		return nil
	}
	name := a.Name
	name.Project = true
	return e.remove(ctx, project, name, false)
}

func (e *Engine) pin(ctx context.Context, project history.ItemID, a history.PinAction) error {
	e.mapper.PinItem(project, a.Name.ID, a.Version)
	if a.Version == e.mapper.FileVersion(a.Name.ID) {
		return nil
	}
	p, ok := e.mapper.FilePath(project, a.Name.ID)
	if !ok || e.isGone(a.Name.ID) {
		return nil
	}
	return e.writeFile(ctx, a.Name.ID, a.Version, p, true)
}

func (e *Engine) unpin(ctx context.Context, project history.ItemID, a history.UnpinAction) error {
	e.mapper.UnpinItem(project, a.Name.ID)
	p, ok := e.mapper.FilePath(project, a.Name.ID)
	if !ok || e.isGone(a.Name.ID) {
		return nil
	}
	return e.writeFile(ctx, a.Name.ID, e.mapper.FileVersion(a.Name.ID), p, true)
}

func (e *Engine) branch(ctx context.Context, project history.ItemID, a history.BranchAction) error {
	info := e.mapper.BranchFile(project, a.Name, a.Source)
	p, ok := e.mapper.FilePath(project, a.Name.ID)
	if !ok || e.isGone(a.Source.ID) {
		return nil
	}
	return e.writeFile(ctx, a.Source.ID, info.Version, p, true)
}

func (e *Engine) edit(ctx context.Context, rev history.Revision) error {
	e.mapper.SetFileVersion(rev.Item, rev.Version)
	paths := e.mapper.FilePaths(rev.Item, true)
	if len(paths) == 0 || e.isGone(rev.Item) {
		return nil
	}
	for _, p := range paths {
		if err := e.writeFile(ctx, rev.Item, rev.Version, p, true); err != nil {
			return err
		}
	}
	return nil
}

// isGone applies the destroyed-item guard: an identity flagged destroyed,
// or one the source no longer has, is never written again.
func (e *Engine) isGone(id history.ItemID) bool {
	if !e.mapper.IsDestroyed(id) && e.src.ItemExists(id) {
		return false
	}
	e.mapper.SetDestroyed(id, false)
	e.diagnose("skipping %s: item was destroyed", id)
	return true
}

// projectGone is the destroyed-item guard for projects
func (e *Engine) projectGone(id history.ItemID) bool {
	if !e.mapper.IsDestroyed(id) && e.src.ItemExists(id) {
		return false
	}
	e.mapper.SetDestroyed(id, true)
	e.diagnose("skipping project %s: project was destroyed", id)
	return true
}
