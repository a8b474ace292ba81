package replay

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/afero"

	"histport.dev/histport/internal/changeset"
	histerrors "histport.dev/histport/internal/errors"
	"histport.dev/histport/internal/history"
	"histport.dev/histport/internal/source"
	"histport.dev/histport/internal/vcs"
	"histport.dev/histport/internal/verify"
)

// Job is one complete export
type Job struct {
	Source   source.Database
	Roots    []string
	Filter   *history.Filter
	Grouping changeset.Options
	Backend  vcs.Backend
	// Fs is the working tree; it defaults to the backend's directory on disk
	Fs afero.Fs
	// Reference, when set, is compared against the working tree after replay
	Reference *verify.Tree
	Options   Options
}

// Export collects the history below the job's roots, groups it into
// changesets, replays them and optionally verifies the result. A
// verification mismatch is reported as *errors.VerifyMismatchError once
// every commit has been made.
func Export(ctx context.Context, job Job) (*Summary, error) {
	start := time.Now()
	if job.Options.Stats == nil {
		job.Options.Stats = &Stats{}
	}
	stats := job.Options.Stats
	summary := func() *Summary {
		return &Summary{Snapshot: stats.Snapshot(), Elapsed: time.Since(start)}
	}

	log, err := source.Collect(job.Source, job.Roots, job.Filter)
	if err != nil {
		stats.setState(StateFailed)
		return summary(), err
	}
	changesets := changeset.Build(log.Revisions, job.Grouping)

	fs := job.Fs
	if fs == nil {
		fs = afero.NewBasePathFs(afero.NewOsFs(), job.Backend.Dir())
	}
	engine := New(job.Source, job.Backend, fs, job.Options)
	engine.log.Info(fmt.Sprintf("replaying %d revision(s) in %d changeset(s)", len(log.Revisions), len(changesets)))
	if len(log.Excluded) > 0 {
		engine.log.Info(fmt.Sprintf("%d file(s) excluded by filter", len(log.Excluded)))
	}

	if err := engine.Run(ctx, log.Roots, changesets); err != nil {
		return summary(), err
	}

	if job.Reference == nil {
		stats.setState(StateDone)
		return summary(), nil
	}

	stats.setState(StateVerifying)
	result, err := verify.Compare(ctx, *job.Reference, verify.Tree{Fs: fs, Root: "/"}, verify.Options{Excludes: job.Backend.CompareExcludes()})
	if err != nil {
		if ctx.Err() != nil {
			stats.setState(StateAborted)
			return summary(), fmt.Errorf("%w: %w", histerrors.ErrAborted, err)
		}
		stats.setState(StateFailed)
		return summary(), fmt.Errorf("verification failed: %w", err)
	}

	out := summary()
	out.Verified = true
	out.Differences = result.Differences
	for _, p := range result.Paths {
		engine.log.Warn(fmt.Sprintf("differs from reference: %s", p))
	}
	if result.Differences > 0 {
		stats.setState(StateFailed)
		out.State = StateFailed
		return out, histerrors.NewVerifyMismatchError(result.Differences)
	}
	stats.setState(StateDone)
	out.State = StateDone
	return out, nil
}
