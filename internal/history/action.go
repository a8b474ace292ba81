package history

import "fmt"

// ActionKind identifies the kind of structural or content change a revision records.
type ActionKind int

const (
	ActionLabel ActionKind = iota
	ActionCreate
	ActionAdd
	ActionShare
	ActionRecover
	ActionDelete
	ActionDestroy
	ActionRename
	ActionMoveFrom
	ActionMoveTo
	ActionPin
	ActionUnpin
	ActionBranch
	ActionArchive
	ActionRestore
	ActionEdit
)

var actionKindNames = map[ActionKind]string{
	ActionLabel:    "label",
	ActionCreate:   "create",
	ActionAdd:      "add",
	ActionShare:    "share",
	ActionRecover:  "recover",
	ActionDelete:   "delete",
	ActionDestroy:  "destroy",
	ActionRename:   "rename",
	ActionMoveFrom: "move-from",
	ActionMoveTo:   "move-to",
	ActionPin:      "pin",
	ActionUnpin:    "unpin",
	ActionBranch:   "branch",
	ActionArchive:  "archive",
	ActionRestore:  "restore",
	ActionEdit:     "edit",
}

func (k ActionKind) String() string {
	if name, ok := actionKindNames[k]; ok {
		return name
	}
	return "unknown"
}

// ParseActionKind returns the ActionKind with the given name
func ParseActionKind(name string) (ActionKind, error) {
	for kind, n := range actionKindNames {
		if n == name {
			return kind, nil
		}
	}
	return 0, fmt.Errorf("unknown action kind %q", name)
}

// Action is the payload of a revision. The set of implementations is closed;
// consumers dispatch with a type switch over the concrete types below.
type Action interface {
	Kind() ActionKind
	isAction()
}

// LabelAction attaches a label to the item's current state.
type LabelAction struct {
	Label string
}

// CreateAction records the creation of an item's own history.
type CreateAction struct {
	Name ItemName
}

// AddAction adds a new child to a project.
type AddAction struct {
	Name ItemName
}

// ShareAction makes an existing file reachable from another project.
type ShareAction struct {
	Name            ItemName
	OriginalProject string
}

// RecoverAction reinstates a previously deleted child.
type RecoverAction struct {
	Name ItemName
}

// DeleteAction removes a child from a project; content stays recoverable.
type DeleteAction struct {
	Name ItemName
}

// DestroyAction permanently removes a child and its content.
type DestroyAction struct {
	Name ItemName
}

// RenameAction changes the logical name of a child. Name carries the new name.
type RenameAction struct {
	Name         ItemName
	OriginalName string
}

// MoveFromAction is recorded in the destination project when a project moves into it.
type MoveFromAction struct {
	Name            ItemName
	OriginalProject ItemID
}

// MoveToAction is recorded in the origin project when a project moves out of it.
type MoveToAction struct {
	Name       ItemName
	NewProject ItemID
}

// PinAction freezes a file share at a specific version.
type PinAction struct {
	Name    ItemName
	Version int
}

// UnpinAction releases a pinned file share.
type UnpinAction struct {
	Name    ItemName
	Version int
}

// BranchAction replaces a shared file with an independent copy. Name is the
// new physical identity and Source the identity it was branched from.
type BranchAction struct {
	Name   ItemName
	Source ItemName
}

// ArchiveAction records that a child was written to an archive.
type ArchiveAction struct {
	Name        ItemName
	ArchivePath string
}

// RestoreAction re-adds a child from an archive.
type RestoreAction struct {
	Name        ItemName
	ArchivePath string
}

// EditAction records a new content version of a file.
type EditAction struct{}

func (LabelAction) Kind() ActionKind    { return ActionLabel }
func (CreateAction) Kind() ActionKind   { return ActionCreate }
func (AddAction) Kind() ActionKind      { return ActionAdd }
func (ShareAction) Kind() ActionKind    { return ActionShare }
func (RecoverAction) Kind() ActionKind  { return ActionRecover }
func (DeleteAction) Kind() ActionKind   { return ActionDelete }
func (DestroyAction) Kind() ActionKind  { return ActionDestroy }
func (RenameAction) Kind() ActionKind   { return ActionRename }
func (MoveFromAction) Kind() ActionKind { return ActionMoveFrom }
func (MoveToAction) Kind() ActionKind   { return ActionMoveTo }
func (PinAction) Kind() ActionKind      { return ActionPin }
func (UnpinAction) Kind() ActionKind    { return ActionUnpin }
func (BranchAction) Kind() ActionKind   { return ActionBranch }
func (ArchiveAction) Kind() ActionKind  { return ActionArchive }
func (RestoreAction) Kind() ActionKind  { return ActionRestore }
func (EditAction) Kind() ActionKind     { return ActionEdit }

func (LabelAction) isAction()    {}
func (CreateAction) isAction()   {}
func (AddAction) isAction()      {}
func (ShareAction) isAction()    {}
func (RecoverAction) isAction()  {}
func (DeleteAction) isAction()   {}
func (DestroyAction) isAction()  {}
func (RenameAction) isAction()   {}
func (MoveFromAction) isAction() {}
func (MoveToAction) isAction()   {}
func (PinAction) isAction()      {}
func (UnpinAction) isAction()    {}
func (BranchAction) isAction()   {}
func (ArchiveAction) isAction()  {}
func (RestoreAction) isAction()  {}
func (EditAction) isAction()     {}

// Target returns the child item a project-level action applies to, if any.
func Target(a Action) (ItemName, bool) {
	switch a := a.(type) {
	case CreateAction:
		return a.Name, true
	case AddAction:
		return a.Name, true
	case ShareAction:
		return a.Name, true
	case RecoverAction:
		return a.Name, true
	case DeleteAction:
		return a.Name, true
	case DestroyAction:
		return a.Name, true
	case RenameAction:
		return a.Name, true
	case MoveFromAction:
		return a.Name, true
	case MoveToAction:
		return a.Name, true
	case PinAction:
		return a.Name, true
	case UnpinAction:
		return a.Name, true
	case BranchAction:
		return a.Name, true
	case ArchiveAction:
		return a.Name, true
	case RestoreAction:
		return a.Name, true
	}
	return ItemName{}, false
}
