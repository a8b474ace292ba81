package archive

import (
	"encoding/json"
	"fmt"
	"time"

	"histport.dev/histport/internal/history"
)

const schema = `
CREATE TABLE IF NOT EXISTS meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS items (
	id       TEXT PRIMARY KEY,
	name     TEXT NOT NULL,
	project  INTEGER NOT NULL,
	created  TEXT NOT NULL DEFAULT '',
	versions INTEGER NOT NULL DEFAULT 0,
	purged   INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS children (
	project  TEXT NOT NULL,
	child    TEXT NOT NULL,
	position INTEGER NOT NULL,
	PRIMARY KEY (project, child)
);
CREATE TABLE IF NOT EXISTS revisions (
	item    TEXT NOT NULL,
	version INTEGER NOT NULL,
	time    TEXT NOT NULL,
	user    TEXT NOT NULL,
	comment TEXT NOT NULL,
	kind    TEXT NOT NULL,
	payload TEXT NOT NULL,
	PRIMARY KEY (item, version)
);
CREATE TABLE IF NOT EXISTS contents (
	item    TEXT NOT NULL,
	version INTEGER NOT NULL,
	time    TEXT NOT NULL,
	size    INTEGER NOT NULL,
	data    BLOB NOT NULL,
	PRIMARY KEY (item, version)
);
`

const (
	metaRoot    = "root"
	metaVersion = "format"

	formatVersion = "1"
)

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, s)
}

func encodeAction(a history.Action) (string, string, error) {
	if a == nil {
		return "", "", fmt.Errorf("revision has no action")
	}
	payload, err := json.Marshal(a)
	if err != nil {
		return "", "", fmt.Errorf("encoding %s action: %w", a.Kind(), err)
	}
	return a.Kind().String(), string(payload), nil
}

func decode[T history.Action](payload []byte) (history.Action, error) {
	var v T
	if err := json.Unmarshal(payload, &v); err != nil {
		return nil, err
	}
	return v, nil
}

var decoders = map[history.ActionKind]func([]byte) (history.Action, error){
	history.ActionLabel:    decode[history.LabelAction],
	history.ActionCreate:   decode[history.CreateAction],
	history.ActionAdd:      decode[history.AddAction],
	history.ActionShare:    decode[history.ShareAction],
	history.ActionRecover:  decode[history.RecoverAction],
	history.ActionDelete:   decode[history.DeleteAction],
	history.ActionDestroy:  decode[history.DestroyAction],
	history.ActionRename:   decode[history.RenameAction],
	history.ActionMoveFrom: decode[history.MoveFromAction],
	history.ActionMoveTo:   decode[history.MoveToAction],
	history.ActionPin:      decode[history.PinAction],
	history.ActionUnpin:    decode[history.UnpinAction],
	history.ActionBranch:   decode[history.BranchAction],
	history.ActionArchive:  decode[history.ArchiveAction],
	history.ActionRestore:  decode[history.RestoreAction],
	history.ActionEdit:     decode[history.EditAction],
}

func decodeAction(kind, payload string) (history.Action, error) {
	k, err := history.ParseActionKind(kind)
	if err != nil {
		return nil, err
	}
	fn, ok := decoders[k]
	if !ok {
		return nil, fmt.Errorf("no decoder for %s actions", kind)
	}
	a, err := fn([]byte(payload))
	if err != nil {
		return nil, fmt.Errorf("decoding %s action: %w", kind, err)
	}
	return a, nil
}
