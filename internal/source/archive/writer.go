package archive

import (
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/klauspost/compress/zstd"
	_ "github.com/mattn/go-sqlite3" // sqlite3 driver

	"histport.dev/histport/internal/history"
	"histport.dev/histport/internal/source"
)

// Writer builds a history archive. Everything written is kept in one
// transaction that Close commits.
type Writer struct {
	db  *sql.DB
	tx  *sql.Tx
	enc *zstd.Encoder
}

// Create makes a new archive at path whose top-level project has the
// identity root. It refuses to overwrite an existing file.
func Create(path string, root history.ItemID) (*Writer, error) {
	if _, err := os.Stat(path); err == nil {
		return nil, fmt.Errorf("archive %s already exists", path)
	}

	db, err := sql.Open("sqlite3", "file:"+path+"?_journal_mode=DELETE&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening archive %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating archive schema: %w", err)
	}
	tx, err := db.Begin()
	if err != nil {
		db.Close()
		return nil, err
	}
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		tx.Rollback()
		db.Close()
		return nil, err
	}

	w := &Writer{db: db, tx: tx, enc: enc}
	for key, value := range map[string]string{metaRoot: string(root), metaVersion: formatVersion} {
		if _, err := tx.Exec(`INSERT INTO meta (key, value) VALUES (?, ?)`, key, value); err != nil {
			w.abort()
			return nil, err
		}
	}
	if err := w.PutItem(history.Item{ID: root, Name: source.RootPath, Project: true}); err != nil {
		w.abort()
		return nil, err
	}
	return w, nil
}

func (w *Writer) abort() {
	w.enc.Close()
	w.tx.Rollback()
	w.db.Close()
}

// PutItem stores an item and its child list, replacing any item with the
// same identity
func (w *Writer) PutItem(item history.Item) error {
	_, err := w.tx.Exec(`INSERT INTO items (id, name, project, created, versions) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name, project = excluded.project,
			created = excluded.created, versions = excluded.versions`,
		string(item.ID), item.Name, item.Project, formatTime(item.Created), item.Versions)
	if err != nil {
		return fmt.Errorf("storing item %s: %w", item.ID, err)
	}
	if _, err := w.tx.Exec(`DELETE FROM children WHERE project = ?`, string(item.ID)); err != nil {
		return err
	}
	for _, child := range item.Children {
		if err := w.AddChild(item.ID, child); err != nil {
			return err
		}
	}
	return nil
}

// AddChild lists child under project if it is not listed already
func (w *Writer) AddChild(project, child history.ItemID) error {
	_, err := w.tx.Exec(`INSERT OR IGNORE INTO children (project, child, position)
		VALUES (?, ?, (SELECT COUNT(*) FROM children WHERE project = ?))`,
		string(project), string(child), string(project))
	if err != nil {
		return fmt.Errorf("adding %s to %s: %w", child, project, err)
	}
	return nil
}

// PutRevision appends a revision to its item's log
func (w *Writer) PutRevision(rev history.Revision) error {
	kind, payload, err := encodeAction(rev.Action)
	if err != nil {
		return fmt.Errorf("revision %d of %s: %w", rev.Version, rev.Item, err)
	}
	_, err = w.tx.Exec(`INSERT INTO revisions (item, version, time, user, comment, kind, payload) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		string(rev.Item), rev.Version, formatTime(rev.Time), rev.User, rev.Comment, kind, payload)
	if err != nil {
		return fmt.Errorf("storing revision %d of %s: %w", rev.Version, rev.Item, err)
	}
	_, err = w.tx.Exec(`UPDATE items SET versions = ?1,
			created = CASE WHEN ?1 = 1 THEN ?2 ELSE created END
		WHERE id = ?3 AND versions < ?1`,
		rev.Version, formatTime(rev.Time), string(rev.Item))
	return err
}

// PutContent stores the body of one file version
func (w *Writer) PutContent(id history.ItemID, version int, data []byte, t time.Time) error {
	blob := w.enc.EncodeAll(data, make([]byte, 0, len(data)/2))
	_, err := w.tx.Exec(`INSERT OR REPLACE INTO contents (item, version, time, size, data) VALUES (?, ?, ?, ?, ?)`,
		string(id), version, formatTime(t), len(data), blob)
	if err != nil {
		return fmt.Errorf("storing content of %s version %d: %w", id, version, err)
	}
	return nil
}

// Purge makes the identity absent and drops its content
func (w *Writer) Purge(id history.ItemID) error {
	if _, err := w.tx.Exec(`UPDATE items SET purged = 1 WHERE id = ?`, string(id)); err != nil {
		return err
	}
	_, err := w.tx.Exec(`DELETE FROM contents WHERE item = ?`, string(id))
	return err
}

// Close commits the archive
func (w *Writer) Close() error {
	w.enc.Close()
	err := w.tx.Commit()
	return errors.Join(err, w.db.Close())
}

// Copy writes every item reachable from db's root project into w,
// including items only named by actions, with all readable content.
func Copy(w *Writer, db source.Database) error {
	root, err := db.GetItem(source.RootPath)
	if err != nil {
		return err
	}

	seen := make(map[history.ItemID]bool)
	queue := []history.ItemID{root.ID}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if seen[id] {
			continue
		}
		seen[id] = true

		item, err := db.Item(id)
		if err != nil {
			continue
		}
		if err := w.PutItem(*item); err != nil {
			return err
		}
		queue = append(queue, item.Children...)

		revs, err := db.Revisions(id)
		if err != nil {
			return err
		}
		for _, rev := range revs {
			if err := w.PutRevision(rev); err != nil {
				return err
			}
			if target, ok := history.Target(rev.Action); ok {
				queue = append(queue, target.ID)
			}
			if b, ok := rev.Action.(history.BranchAction); ok {
				queue = append(queue, b.Source.ID)
			}
			if item.Project {
				continue
			}
			if err := copyContent(w, db, id, rev.Version); err != nil {
				return err
			}
		}
		if !db.ItemExists(id) {
			if err := w.Purge(id); err != nil {
				return err
			}
		}
	}
	return nil
}

func copyContent(w *Writer, db source.Database, id history.ItemID, version int) error {
	content, err := db.GetRevision(id, version)
	if err != nil {
		// versions without stored content stay missing in the archive too
		return nil
	}
	defer content.Body.Close()
	data, err := io.ReadAll(content.Body)
	if err != nil {
		return fmt.Errorf("reading %s version %d: %w", id, version, err)
	}
	return w.PutContent(id, version, data, content.Time)
}
