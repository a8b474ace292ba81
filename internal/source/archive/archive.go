// Package archive stores a legacy repository's history in a single SQLite
// file. Items, child lists and revision logs are plain tables; file
// contents are zstd-compressed blobs. An opened archive is a
// source.Database.
package archive

import (
	"bytes"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/klauspost/compress/zstd"

	histerrors "histport.dev/histport/internal/errors"
	"histport.dev/histport/internal/history"
	"histport.dev/histport/internal/source"
)

// Archive is a read-only history archive
type Archive struct {
	db   *sql.DB
	root history.ItemID
	path string

	decOnce sync.Once
	dec     *zstd.Decoder
	decErr  error
}

var _ source.Database = (*Archive)(nil)

// Entry is one item as listed by List
type Entry struct {
	Path      string
	Item      history.Item
	Revisions int
	Contents  int
	Size      int64
	Purged    bool
}

// Open opens an existing archive for reading
func Open(path string) (*Archive, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("opening archive: %w", err)
	}
	db, err := sql.Open("sqlite3", "file:"+path+"?mode=ro&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening archive %s: %w", path, err)
	}

	meta := make(map[string]string)
	rows, err := db.Query(`SELECT key, value FROM meta`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("%s is not a history archive: %w", path, err)
	}
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			rows.Close()
			db.Close()
			return nil, err
		}
		meta[k] = v
	}
	rows.Close()

	if meta[metaVersion] != formatVersion {
		db.Close()
		return nil, fmt.Errorf("%s: unsupported archive format %q", path, meta[metaVersion])
	}
	if meta[metaRoot] == "" {
		db.Close()
		return nil, fmt.Errorf("%s: archive has no root project", path)
	}
	return &Archive{db: db, root: history.ItemID(meta[metaRoot]), path: path}, nil
}

// Path returns the archive's file name
func (a *Archive) Path() string {
	return a.path
}

// Close releases the database handle
func (a *Archive) Close() error {
	if a.dec != nil {
		a.dec.Close()
	}
	return a.db.Close()
}

func (a *Archive) decoder() (*zstd.Decoder, error) {
	a.decOnce.Do(func() {
		a.dec, a.decErr = zstd.NewReader(nil)
	})
	return a.dec, a.decErr
}

type itemRow struct {
	item   history.Item
	purged bool
}

func (a *Archive) load(id history.ItemID) (*itemRow, error) {
	var (
		row     itemRow
		created string
	)
	err := a.db.QueryRow(`SELECT id, name, project, created, versions, purged FROM items WHERE id = ?`, string(id)).
		Scan(&row.item.ID, &row.item.Name, &row.item.Project, &created, &row.item.Versions, &row.purged)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, histerrors.NewItemNotFoundError(string(id))
	}
	if err != nil {
		return nil, fmt.Errorf("loading item %s: %w", id, err)
	}
	if row.item.Created, err = parseTime(created); err != nil {
		return nil, fmt.Errorf("item %s: %w", id, err)
	}

	rows, err := a.db.Query(`SELECT child FROM children WHERE project = ? ORDER BY position`, string(id))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var child string
		if err := rows.Scan(&child); err != nil {
			return nil, err
		}
		row.item.Children = append(row.item.Children, history.ItemID(child))
	}
	return &row, rows.Err()
}

// GetItem resolves a logical path like "$/Project/Sub". Names match
// case-insensitively.
func (a *Archive) GetItem(path string) (*history.Item, error) {
	if path != source.RootPath && !strings.HasPrefix(path, source.RootPath+source.PathSeparator) {
		return nil, histerrors.NewItemNotFoundError(path)
	}
	current, err := a.load(a.root)
	if err != nil {
		return nil, histerrors.NewItemNotFoundError(path)
	}
	for _, segment := range source.SplitPath(path) {
		var next *itemRow
		for _, childID := range current.item.Children {
			child, err := a.load(childID)
			if err != nil {
				continue
			}
			if strings.EqualFold(child.item.Name, segment) {
				next = child
				break
			}
		}
		if next == nil {
			return nil, histerrors.NewItemNotFoundError(path)
		}
		current = next
	}
	return &current.item, nil
}

// Item returns the item with the given identity
func (a *Archive) Item(id history.ItemID) (*history.Item, error) {
	row, err := a.load(id)
	if err != nil {
		return nil, err
	}
	return &row.item, nil
}

// Revisions returns the item's log in version order
func (a *Archive) Revisions(id history.ItemID) ([]history.Revision, error) {
	if _, err := a.load(id); err != nil {
		return nil, err
	}
	rows, err := a.db.Query(`SELECT version, time, user, comment, kind, payload FROM revisions
		WHERE item = ? ORDER BY version`, string(id))
	if err != nil {
		return nil, fmt.Errorf("loading revisions of %s: %w", id, err)
	}
	defer rows.Close()

	var revs []history.Revision
	for rows.Next() {
		var (
			rev                 history.Revision
			when, kind, payload string
		)
		if err := rows.Scan(&rev.Version, &when, &rev.User, &rev.Comment, &kind, &payload); err != nil {
			return nil, err
		}
		rev.Item = id
		if rev.Time, err = parseTime(when); err != nil {
			return nil, fmt.Errorf("revision %d of %s: %w", rev.Version, id, err)
		}
		if rev.Action, err = decodeAction(kind, payload); err != nil {
			return nil, fmt.Errorf("revision %d of %s: %w", rev.Version, id, err)
		}
		revs = append(revs, rev)
	}
	return revs, rows.Err()
}

// GetRevision decompresses the content of one file version
func (a *Archive) GetRevision(id history.ItemID, version int) (*source.Content, error) {
	var (
		when string
		size int64
		blob []byte
	)
	err := a.db.QueryRow(`SELECT time, size, data FROM contents WHERE item = ? AND version = ?`, string(id), version).
		Scan(&when, &size, &blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, histerrors.NewContentError(string(id), version, nil)
	}
	if err != nil {
		return nil, histerrors.NewContentError(string(id), version, err)
	}

	dec, err := a.decoder()
	if err != nil {
		return nil, histerrors.NewContentError(string(id), version, err)
	}
	data, err := dec.DecodeAll(blob, make([]byte, 0, size))
	if err != nil {
		return nil, histerrors.NewContentError(string(id), version, fmt.Errorf("decompressing: %w", err))
	}
	if int64(len(data)) != size {
		return nil, histerrors.NewContentError(string(id), version, fmt.Errorf("expected %d bytes, got %d", size, len(data)))
	}
	t, err := parseTime(when)
	if err != nil {
		return nil, histerrors.NewContentError(string(id), version, err)
	}
	return &source.Content{Body: io.NopCloser(bytes.NewReader(data)), Time: t}, nil
}

// ItemExists reports whether the identity is present and was not purged
func (a *Archive) ItemExists(id history.ItemID) bool {
	row, err := a.load(id)
	return err == nil && !row.purged
}

// List walks the project tree below path depth-first, returning one entry
// per reachable item. Shared files appear once per path.
func (a *Archive) List(path string) ([]Entry, error) {
	start, err := a.GetItem(path)
	if err != nil {
		return nil, err
	}
	var entries []Entry
	var walk func(id history.ItemID, p string, visiting map[history.ItemID]bool) error
	walk = func(id history.ItemID, p string, visiting map[history.ItemID]bool) error {
		if visiting[id] {
			return nil
		}
		visiting[id] = true
		defer delete(visiting, id)

		row, err := a.load(id)
		if err != nil {
			return err
		}
		entry := Entry{Path: p, Item: row.item, Purged: row.purged}
		err = a.db.QueryRow(`SELECT
				(SELECT COUNT(*) FROM revisions WHERE item = ?1),
				(SELECT COUNT(*) FROM contents WHERE item = ?1),
				(SELECT COALESCE(SUM(size), 0) FROM contents WHERE item = ?1)`, string(id)).
			Scan(&entry.Revisions, &entry.Contents, &entry.Size)
		if err != nil {
			return err
		}
		entries = append(entries, entry)

		for _, child := range row.item.Children {
			c, err := a.load(child)
			if err != nil {
				continue
			}
			if err := walk(child, p+source.PathSeparator+c.item.Name, visiting); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(start.ID, strings.TrimSuffix(path, source.PathSeparator), make(map[history.ItemID]bool)); err != nil {
		return nil, err
	}
	return entries, nil
}
