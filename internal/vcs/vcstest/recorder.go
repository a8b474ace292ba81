// Package vcstest provides an in-memory vcs.Backend for engine tests.
package vcstest

import (
	"context"
	"fmt"
	"os"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/spf13/afero"

	"histport.dev/histport/internal/vcs"
)

// Op is one recorded backend call
type Op struct {
	Name string
	Args []string
}

func (o Op) String() string {
	return strings.TrimSpace(o.Name + " " + strings.Join(o.Args, " "))
}

// Commit is a snapshot taken at every successful commit
type Commit struct {
	vcs.CommitInfo
	Files map[string]string
}

// Recorder is a vcs.Backend that records every call and keeps its working
// tree in an afero filesystem. Staged state is modelled as a dirty flag;
// Commit snapshots the whole tree.
type Recorder struct {
	mu          sync.Mutex
	fs          afero.Fs
	ops         []Op
	commits     []Commit
	tags        []vcs.TagInfo
	needsCommit bool
	dirty       bool
	last        map[string]string

	// FailOn makes the named operation fail the given number of times
	FailOn map[string]int
}

// NewRecorder creates a recorder working on fs
func NewRecorder(fs afero.Fs) *Recorder {
	return &Recorder{fs: fs, FailOn: make(map[string]int), last: map[string]string{}}
}

var _ vcs.Backend = (*Recorder)(nil)

func (r *Recorder) record(name string, args ...string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops = append(r.ops, Op{Name: name, Args: args})
	if n := r.FailOn[name]; n > 0 {
		r.FailOn[name] = n - 1
		return fmt.Errorf("%s %s: injected failure", name, strings.Join(args, " "))
	}
	return nil
}

func (r *Recorder) stage(name string, args ...string) error {
	if err := r.record(name, args...); err != nil {
		return err
	}
	r.mu.Lock()
	r.needsCommit = true
	r.dirty = true
	r.mu.Unlock()
	return nil
}

// Ops returns the recorded calls
func (r *Recorder) Ops() []Op {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Op(nil), r.ops...)
}

// OpNames returns the recorded calls rendered as strings
func (r *Recorder) OpNames() []string {
	var out []string
	for _, op := range r.Ops() {
		out = append(out, op.String())
	}
	return out
}

// Commits returns the commits made so far
func (r *Recorder) Commits() []Commit {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Commit(nil), r.commits...)
}

// Tags returns the tags made so far
func (r *Recorder) Tags() []vcs.TagInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]vcs.TagInfo(nil), r.tags...)
}

func (r *Recorder) Name() string { return "recorder" }
func (r *Recorder) Dir() string  { return "/" }

func (r *Recorder) Init(_ context.Context, reset bool) error {
	if err := r.record("init", fmt.Sprint(reset)); err != nil {
		return err
	}
	if reset {
		entries, _ := afero.ReadDir(r.fs, "/")
		for _, e := range entries {
			if err := r.fs.RemoveAll("/" + e.Name()); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *Recorder) Configure(_ context.Context) error {
	return r.record("configure")
}

func (r *Recorder) Add(_ context.Context, p string) error {
	return r.stage("add", p)
}

func (r *Recorder) AddDir(_ context.Context, p string) error {
	return r.stage("add-dir", p)
}

func (r *Recorder) AddAll(_ context.Context) error {
	return r.stage("add-all")
}

func (r *Recorder) RemoveFile(_ context.Context, p string) error {
	if err := r.stage("remove-file", p); err != nil {
		return err
	}
	return r.fs.Remove(abs(p))
}

func (r *Recorder) RemoveDir(_ context.Context, p string, recursive bool) error {
	if err := r.stage("remove-dir", p, fmt.Sprint(recursive)); err != nil {
		return err
	}
	return r.fs.RemoveAll(abs(p))
}

func (r *Recorder) RemoveEmptyDir(_ context.Context, p string) error {
	if err := r.record("remove-empty-dir", p); err != nil {
		return err
	}
	return r.fs.RemoveAll(abs(p))
}

func (r *Recorder) Move(_ context.Context, src, dst string) error {
	if err := r.stage("move", src, dst); err != nil {
		return err
	}
	return r.rename(src, dst)
}

func (r *Recorder) MoveEmptyDir(_ context.Context, src, dst string) error {
	if err := r.record("move-empty-dir", src, dst); err != nil {
		return err
	}
	return r.rename(src, dst)
}

func (r *Recorder) rename(src, dst string) error {
	if err := r.fs.MkdirAll(path.Dir(abs(dst)), 0o755); err != nil {
		return err
	}
	return r.fs.Rename(abs(src), abs(dst))
}

// abs maps a working-tree path onto the recorder's filesystem
func abs(p string) string {
	return path.Join("/", p)
}

// Snapshot returns every file in the working tree with its content
func (r *Recorder) Snapshot() (map[string]string, error) {
	files := map[string]string{}
	err := afero.Walk(r.fs, "/", func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		data, err := afero.ReadFile(r.fs, p)
		if err != nil {
			return err
		}
		files[strings.TrimPrefix(p, "/")] = string(data)
		return nil
	})
	return files, err
}

func equalFiles(a, b map[string]string) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if w, ok := b[k]; !ok || w != v {
			return false
		}
	}
	return true
}

// Commit snapshots the tree when anything was staged and the tree differs
// from the previous commit.
func (r *Recorder) Commit(_ context.Context, info vcs.CommitInfo) (bool, error) {
	if err := r.record("commit", info.Comment); err != nil {
		return false, err
	}
	r.mu.Lock()
	dirty := r.dirty
	r.needsCommit = false
	r.dirty = false
	r.mu.Unlock()
	if !dirty {
		return false, nil
	}

	files, err := r.Snapshot()
	if err != nil {
		return false, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if equalFiles(files, r.last) {
		return false, nil
	}
	r.last = files
	r.commits = append(r.commits, Commit{CommitInfo: info, Files: files})
	return true, nil
}

func (r *Recorder) Tag(_ context.Context, info vcs.TagInfo) error {
	if err := r.record("tag", info.Name); err != nil {
		return err
	}
	r.mu.Lock()
	r.tags = append(r.tags, info)
	r.mu.Unlock()
	return nil
}

func (r *Recorder) NeedsCommit() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.needsCommit
}

func (r *Recorder) SetNeedsCommit() {
	r.mu.Lock()
	r.needsCommit = true
	r.mu.Unlock()
}

func (r *Recorder) CompareExcludes() []string {
	return []string{".recorder"}
}

func (r *Recorder) FindExecutable() bool {
	return true
}

// TagNames returns the names of the tags made so far, sorted
func (r *Recorder) TagNames() []string {
	var names []string
	for _, tag := range r.Tags() {
		names = append(names, tag.Name)
	}
	sort.Strings(names)
	return names
}
