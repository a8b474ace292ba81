// Package verify compares an exported working tree against a reference tree.
package verify

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"sort"

	"github.com/spf13/afero"
)

// chunkSize is how much of each file is compared per step
const chunkSize = 64 * 1024

// Tree is a directory on some filesystem
type Tree struct {
	Fs   afero.Fs
	Root string
}

// OSTree returns a tree rooted at dir on the OS filesystem
func OSTree(dir string) Tree {
	return Tree{Fs: afero.NewBasePathFs(afero.NewOsFs(), dir), Root: "/"}
}

// Options controls the comparison
type Options struct {
	// Excludes lists entry names ignored on both sides, such as ".git"
	Excludes []string
}

// Result is the outcome of a comparison
type Result struct {
	Differences int
	// Paths lists the relative paths that differ
	Paths []string
}

// Identical reports whether no differences were found
func (r *Result) Identical() bool {
	return r.Differences == 0
}

type comparer struct {
	ref, out Tree
	excludes map[string]bool
	result   *Result
	bufA     []byte
	bufB     []byte
}

// Compare walks both trees in lockstep. An entry present on only one side
// counts as one difference, as does a file whose length or content differs
// or an entry that is a directory on one side and a file on the other.
func Compare(ctx context.Context, ref, out Tree, opts Options) (*Result, error) {
	c := &comparer{
		ref:      ref,
		out:      out,
		excludes: make(map[string]bool),
		result:   &Result{},
		bufA:     make([]byte, chunkSize),
		bufB:     make([]byte, chunkSize),
	}
	for _, name := range opts.Excludes {
		c.excludes[name] = true
	}
	if err := c.compareDirs(ctx, ""); err != nil {
		return nil, err
	}
	return c.result, nil
}

func (c *comparer) differ(rel string) {
	c.result.Differences++
	c.result.Paths = append(c.result.Paths, rel)
}

func (c *comparer) list(t Tree, rel string) ([]os.FileInfo, error) {
	infos, err := afero.ReadDir(t.Fs, path.Join(t.Root, rel))
	if err != nil {
		return nil, err
	}
	kept := infos[:0]
	for _, info := range infos {
		if !c.excludes[info.Name()] {
			kept = append(kept, info)
		}
	}
	sort.Slice(kept, func(i, j int) bool { return kept[i].Name() < kept[j].Name() })
	return kept, nil
}

func (c *comparer) compareDirs(ctx context.Context, rel string) error {
	refs, err := c.list(c.ref, rel)
	if err != nil {
		return fmt.Errorf("failed to read reference %s: %w", rel, err)
	}
	outs, err := c.list(c.out, rel)
	if err != nil {
		return fmt.Errorf("failed to read export %s: %w", rel, err)
	}

	i, j := 0, 0
	for i < len(refs) || j < len(outs) {
		if err := ctx.Err(); err != nil {
			return err
		}
		switch {
		case j >= len(outs) || (i < len(refs) && refs[i].Name() < outs[j].Name()):
			c.differ(path.Join(rel, refs[i].Name()))
			i++
		case i >= len(refs) || outs[j].Name() < refs[i].Name():
			c.differ(path.Join(rel, outs[j].Name()))
			j++
		default:
			if err := c.compareEntry(ctx, path.Join(rel, refs[i].Name()), refs[i], outs[j]); err != nil {
				return err
			}
			i++
			j++
		}
	}
	return nil
}

func (c *comparer) compareEntry(ctx context.Context, rel string, ref, out os.FileInfo) error {
	switch {
	case ref.IsDir() && out.IsDir():
		return c.compareDirs(ctx, rel)
	case ref.IsDir() != out.IsDir():
		c.differ(rel)
		return nil
	case ref.Size() != out.Size():
		c.differ(rel)
		return nil
	}

	same, err := c.compareFiles(ctx, rel)
	if err != nil {
		return err
	}
	if !same {
		c.differ(rel)
	}
	return nil
}

func (c *comparer) compareFiles(ctx context.Context, rel string) (bool, error) {
	a, err := c.ref.Fs.Open(path.Join(c.ref.Root, rel))
	if err != nil {
		return false, fmt.Errorf("failed to open reference %s: %w", rel, err)
	}
	defer a.Close()
	b, err := c.out.Fs.Open(path.Join(c.out.Root, rel))
	if err != nil {
		return false, fmt.Errorf("failed to open export %s: %w", rel, err)
	}
	defer b.Close()

	for {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		n, errA := io.ReadFull(a, c.bufA)
		m, errB := io.ReadFull(b, c.bufB)
		if n != m || !bytes.Equal(c.bufA[:n], c.bufB[:m]) {
			return false, nil
		}
		doneA := errA == io.EOF || errA == io.ErrUnexpectedEOF
		doneB := errB == io.EOF || errB == io.ErrUnexpectedEOF
		if errA != nil && !doneA {
			return false, fmt.Errorf("failed to read reference %s: %w", rel, errA)
		}
		if errB != nil && !doneB {
			return false, fmt.Errorf("failed to read export %s: %w", rel, errB)
		}
		if doneA || doneB {
			return doneA == doneB, nil
		}
	}
}
