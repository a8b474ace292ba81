package replay

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"histport.dev/histport/internal/history"
)

// fsPath maps a working-tree path onto the engine's filesystem
func fsPath(rel string) string {
	return path.Join("/", rel)
}

func (e *Engine) exists(rel string) bool {
	ok, err := afero.Exists(e.fs, fsPath(rel))
	return err == nil && ok
}

func (e *Engine) mkdir(ctx context.Context, rel string) error {
	return e.do(ctx, "mkdir", rel, func() error {
		return e.fs.MkdirAll(fsPath(rel), 0o755)
	})
}

// writeFile writes one version of id to rel, stamps it with the version's
// time and optionally stages it. Missing content is a diagnostic.
func (e *Engine) writeFile(ctx context.Context, id history.ItemID, version int, rel string, stage bool) error {
	content, err := e.src.GetRevision(id, version)
	if err != nil {
		e.diagnose("skipping write of %s: %v", rel, err)
		return nil
	}
	data, err := io.ReadAll(content.Body)
	content.Body.Close()
	if err != nil {
		e.diagnose("skipping write of %s: failed to read %s version %d: %v", rel, id, version, err)
		return nil
	}

	e.log.Debug(fmt.Sprintf("writing %s version %d to %s", id, version, rel))
	written, err := e.try(ctx, "write", rel, func() error {
		p := fsPath(rel)
		if err := e.fs.MkdirAll(path.Dir(p), 0o755); err != nil {
			return err
		}
		if err := afero.WriteFile(e.fs, p, data, 0o644); err != nil {
			return err
		}
		if !content.Time.IsZero() {
			return e.fs.Chtimes(p, content.Time, content.Time)
		}
		return nil
	})
	if err != nil || !written {
		return err
	}
	e.stats.files.Add(1)
	e.backend.SetNeedsCommit()

	if !stage {
		return nil
	}
	return e.do(ctx, "add", rel, func() error { return e.backend.Add(ctx, rel) })
}

func (e *Engine) removeFile(ctx context.Context, rel string) error {
	if !e.exists(rel) {
		return nil
	}
	return e.do(ctx, "remove-file", rel, func() error { return e.backend.RemoveFile(ctx, rel) })
}

func (e *Engine) removeDir(ctx context.Context, rel string) error {
	if rel == "" || !e.exists(rel) {
		return nil
	}
	if e.containsFiles(rel) {
		return e.do(ctx, "remove-dir", rel, func() error { return e.backend.RemoveDir(ctx, rel, true) })
	}
	return e.do(ctx, "remove-empty-dir", rel, func() error { return e.backend.RemoveEmptyDir(ctx, rel) })
}

// containsFiles reports whether any file lives below rel, ignoring backend
// metadata directories
func (e *Engine) containsFiles(rel string) bool {
	found := false
	_ = afero.Walk(e.fs, fsPath(rel), func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if info.IsDir() {
			if e.excludes[info.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		found = true
		return io.EOF
	})
	return found
}

// move relocates a file or directory without caring about case
func (e *Engine) move(ctx context.Context, src, dst string) error {
	if parent := path.Dir(dst); parent != "." {
		if err := e.mkdir(ctx, parent); err != nil {
			return err
		}
	}
	isDir, err := afero.IsDir(e.fs, fsPath(src))
	if err == nil && isDir && !e.containsFiles(src) {
		return e.do(ctx, "move-empty-dir", src, func() error { return e.backend.MoveEmptyDir(ctx, src, dst) })
	}
	return e.do(ctx, "move", src, func() error { return e.backend.Move(ctx, src, dst) })
}

// rename moves src to dst. When the two differ only in case the move goes
// through a temporary name, parent segments first, so that it takes effect
// on case-insensitive filesystems.
func (e *Engine) rename(ctx context.Context, src, dst string) error {
	if src == dst {
		return nil
	}
	if !strings.EqualFold(src, dst) {
		return e.move(ctx, src, dst)
	}

	srcDir, dstDir := path.Dir(src), path.Dir(dst)
	if srcDir != dstDir {
		if err := e.rename(ctx, srcDir, dstDir); err != nil {
			return err
		}
		src = path.Join(dstDir, path.Base(src))
		if src == dst {
			return nil
		}
	}

	tmp := path.Join(dstDir, path.Base(src)+".histport-"+uuid.NewString())
	if err := e.move(ctx, src, tmp); err != nil {
		return err
	}
	return e.move(ctx, tmp, dst)
}
