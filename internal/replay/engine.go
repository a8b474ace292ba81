// Package replay turns changesets of legacy revisions into commits in a
// target repository.
//
// The engine owns a path mapper for the duration of a run. For each
// revision it updates the mapper, performs the filesystem and backend
// operations the action implies, and after each changeset commits and
// applies the labels the changeset carried.
package replay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/afero"

	"histport.dev/histport/internal/changeset"
	histerrors "histport.dev/histport/internal/errors"
	"histport.dev/histport/internal/history"
	"histport.dev/histport/internal/pathmap"
	"histport.dev/histport/internal/source"
	"histport.dev/histport/internal/vcs"
)

// DefaultComment is the commit message used for changesets without a comment
const DefaultComment = "(no comment)"

// Options configures an Engine
type Options struct {
	// Reset wipes the target before initializing it
	Reset bool
	// DefaultComment replaces empty changeset comments
	DefaultComment string
	Emails         *EmailResolver
	Policy         FailurePolicy
	Logger         *slog.Logger
	// Report receives every diagnostic
	Report func(error)
	Stats  *Stats
}

type pendingLabel struct {
	rev   history.Revision
	label string
}

// Engine replays changesets into a backend
type Engine struct {
	src     source.Database
	backend vcs.Backend
	fs      afero.Fs
	opts    Options
	log     *slog.Logger
	stats   *Stats

	mapper    *pathmap.Mapper
	tags      *TagRegistry
	labels    []pendingLabel
	committed bool
	excludes  map[string]bool
}

// New creates an engine reading from src and writing the working tree
// through fs, which must be rooted at the backend's working directory.
func New(src source.Database, backend vcs.Backend, fs afero.Fs, opts Options) *Engine {
	if opts.DefaultComment == "" {
		opts.DefaultComment = DefaultComment
	}
	if opts.Emails == nil {
		opts.Emails = NewEmailResolver("", nil)
	}
	if opts.Policy == nil {
		opts.Policy = AbortPolicy{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if opts.Stats == nil {
		opts.Stats = &Stats{}
	}
	e := &Engine{
		src:      src,
		backend:  backend,
		fs:       fs,
		opts:     opts,
		log:      opts.Logger,
		stats:    opts.Stats,
		mapper:   pathmap.New(),
		tags:     NewTagRegistry(),
		excludes: make(map[string]bool),
	}
	for _, name := range backend.CompareExcludes() {
		e.excludes[name] = true
	}
	return e
}

// Stats returns the engine's counters
func (e *Engine) Stats() *Stats {
	return e.stats
}

// RootDirs returns the working-tree directory of each root: the tree itself
// for a single root, otherwise one directory per root named after it.
func RootDirs(roots []*history.Item) (map[history.ItemID]string, error) {
	dirs := make(map[history.ItemID]string, len(roots))
	if len(roots) == 1 {
		dirs[roots[0].ID] = ""
		return dirs, nil
	}
	used := make(map[string]bool)
	for _, root := range roots {
		if used[root.Name] {
			return nil, fmt.Errorf("two roots are both named %q", root.Name)
		}
		used[root.Name] = true
		dirs[root.ID] = root.Name
	}
	return dirs, nil
}

// Run initializes the backend and replays changesets in order. It returns
// an error wrapping ErrAborted when ctx is cancelled, or the operational
// error the failure policy chose to abort on.
func (e *Engine) Run(ctx context.Context, roots []*history.Item, changesets []changeset.Changeset) (err error) {
	e.stats.setState(StateInit)
	e.stats.total.Store(int64(len(changesets)))
	defer func() {
		switch {
		case err == nil:
		case errors.Is(err, histerrors.ErrAborted):
			e.stats.setState(StateAborted)
		default:
			e.stats.setState(StateFailed)
		}
	}()

	dirs, err := RootDirs(roots)
	if err != nil {
		return err
	}

	if err := e.do(ctx, "init", "", func() error { return e.backend.Init(ctx, e.opts.Reset) }); err != nil {
		return err
	}
	if err := e.do(ctx, "configure", "", func() error { return e.backend.Configure(ctx) }); err != nil {
		return err
	}

	for _, root := range roots {
		dir := dirs[root.ID]
		e.mapper.SetRoot(root.ID, root.Name, dir)
		if err := e.mkdir(ctx, dir); err != nil {
			return err
		}
	}

	for i, cs := range changesets {
		if err := e.checkAbort(ctx); err != nil {
			return err
		}
		e.stats.current.Store(int64(i))
		if err := e.replayChangeset(ctx, cs); err != nil {
			return err
		}
		e.stats.changesets.Add(1)
	}
	return nil
}

func (e *Engine) checkAbort(ctx context.Context) error {
	if ctx.Err() != nil {
		return fmt.Errorf("%w: %w", histerrors.ErrAborted, ctx.Err())
	}
	return nil
}

func (e *Engine) replayChangeset(ctx context.Context, cs changeset.Changeset) error {
	e.stats.setState(StateReplaying)
	e.log.Debug(fmt.Sprintf("changeset by %s at %s: %d revision(s)", cs.User, cs.Time.Format("2006-01-02 15:04:05"), len(cs.Revisions)))

	for _, rev := range cs.Revisions {
		if err := e.checkAbort(ctx); err != nil {
			return err
		}
		if err := e.apply(ctx, rev); err != nil {
			return err
		}
		e.stats.revisions.Add(1)
	}

	e.stats.setState(StateCommitting)
	if err := e.commit(ctx, cs); err != nil {
		return err
	}

	e.stats.setState(StateTagging)
	return e.flushLabels(ctx)
}

func (e *Engine) commit(ctx context.Context, cs changeset.Changeset) error {
	if !e.backend.NeedsCommit() {
		return nil
	}
	comment := cs.Comment
	if comment == "" {
		comment = e.opts.DefaultComment
	}
	info := vcs.CommitInfo{
		User:    cs.User,
		Email:   e.opts.Emails.Email(cs.User),
		Comment: comment,
		Time:    cs.Time,
	}

	var committed bool
	err := e.do(ctx, "commit", "", func() error {
		var err error
		committed, err = e.backend.Commit(ctx, info)
		return err
	})
	if err != nil {
		return err
	}
	if committed {
		e.committed = true
		e.stats.commits.Add(1)
		e.log.Debug(fmt.Sprintf("committed %q", comment))
	} else {
		e.log.Debug("nothing to commit")
	}
	return nil
}

func (e *Engine) flushLabels(ctx context.Context) error {
	labels := e.labels
	e.labels = nil

	for _, l := range labels {
		if l.label == "" {
			e.diagnose("skipping empty label on %s at %s", l.rev.Item, l.rev.Time.Format("2006-01-02 15:04:05"))
			continue
		}
		if !e.committed {
			e.diagnose("skipping label %q: nothing has been committed yet", l.label)
			continue
		}
		message := l.rev.Comment
		if message == "" {
			message = l.label
		}
		info := vcs.TagInfo{
			Name:    e.tags.Unique(l.label),
			User:    l.rev.User,
			Email:   e.opts.Emails.Email(l.rev.User),
			Comment: message,
			Time:    l.rev.Time,
		}
		if err := e.do(ctx, "tag", info.Name, func() error { return e.backend.Tag(ctx, info) }); err != nil {
			return err
		}
		e.stats.tags.Add(1)
		e.log.Debug(fmt.Sprintf("tagged %s for label %q", info.Name, l.label))
	}
	return nil
}

// diagnose records a non-fatal problem
func (e *Engine) diagnose(format string, args ...any) {
	err := fmt.Errorf(format, args...)
	e.stats.diagnostics.Add(1)
	e.log.Warn(err.Error())
	if e.opts.Report != nil {
		e.opts.Report(err)
	}
}

// do runs fn under the failure policy
func (e *Engine) do(ctx context.Context, op, path string, fn func() error) error {
	_, err := e.try(ctx, op, path, fn)
	return err
}

// try runs fn under the failure policy. It reports false when a failure was
// ignored, so the operation did not take effect.
func (e *Engine) try(ctx context.Context, op, path string, fn func() error) (bool, error) {
	for attempt := 1; ; attempt++ {
		err := fn()
		if err == nil {
			return true, nil
		}
		if ctx.Err() != nil {
			return false, fmt.Errorf("%w: %w", histerrors.ErrAborted, ctx.Err())
		}

		decision := e.opts.Policy.Decide(ctx, Failure{Op: op, Path: path, Err: err, Attempt: attempt})
		e.log.Debug(fmt.Sprintf("%s %s failed (attempt %d): %v; %s", op, path, attempt, err, decision))
		switch decision {
		case Retry:
			continue
		case Ignore:
			e.diagnose("ignored failed %s %s: %v", op, path, err)
			return false, nil
		default:
			if ctx.Err() != nil {
				return false, fmt.Errorf("%w: %w", histerrors.ErrAborted, ctx.Err())
			}
			if path != "" {
				return false, fmt.Errorf("%s %s: %w", op, path, err)
			}
			return false, fmt.Errorf("%s: %w", op, err)
		}
	}
}
