package actions

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/afero"

	"histport.dev/histport/internal/changeset"
	"histport.dev/histport/internal/config"
	histerrors "histport.dev/histport/internal/errors"
	"histport.dev/histport/internal/replay"
	"histport.dev/histport/internal/runtime"
	"histport.dev/histport/internal/source"
	"histport.dev/histport/internal/tui"
	"histport.dev/histport/internal/vcs"
	"histport.dev/histport/internal/verify"
	"histport.dev/histport/internal/worker"
)

// ExportOptions contains options for the export command
type ExportOptions struct {
	// Source replaces the configured history archive
	Source source.Database
	// Backend replaces the backend named by target.backend
	Backend vcs.Backend
	// Fs is the working tree. It defaults to the backend's directory.
	Fs afero.Fs
	// Interactive shows the progress view instead of plain log output
	Interactive bool
}

// ExportAction replays the configured history into the target repository
// and prints a summary. Ctrl-C aborts after the current operation.
func ExportAction(ctx *runtime.Context, opts ExportOptions) (*replay.Summary, error) {
	settings := ctx.Settings
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	db, closeSource, err := openSource(settings.Source.Archive, opts.Source)
	if err != nil {
		return nil, err
	}
	defer closeSource()

	backend := opts.Backend
	if backend == nil {
		backend, err = vcs.NewBackend(settings.Target.Backend, settings.Target.Dir)
		if err != nil {
			return nil, err
		}
	}
	if !backend.FindExecutable() {
		return nil, fmt.Errorf("%s is not installed or not on PATH", backend.Name())
	}

	job, err := exportJob(ctx, settings, db, backend, opts.Fs)
	if err != nil {
		return nil, err
	}
	interactive := opts.Interactive && settings.Failure.Policy != config.PolicyPrompt

	ctx.Splog.Info("Exporting %s to %s repository %s", strings.Join(settings.Source.Roots, ", "), backend.Name(), backend.Dir())
	summary, runErr := runExport(ctx, job, interactive)
	if summary == nil {
		return nil, runErr
	}

	if err := printSummary(ctx, backend, summary); err != nil {
		ctx.Splog.Debug("failed to print summary: %v", err)
	}
	switch {
	case errors.Is(runErr, histerrors.ErrAborted):
		ctx.Splog.Warn("Export aborted. The target repository holds the changesets committed so far.")
		ctx.Splog.Tip("Run the export again with --reset to start from an empty repository.")
	case errors.Is(runErr, histerrors.ErrVerifyMismatch):
		ctx.Splog.Error("The exported tree differs from the reference in %d place(s).", summary.Differences)
	case runErr != nil:
		ctx.Splog.Error("Export failed: %v", runErr)
	default:
		ctx.Splog.Info("%s", tui.ColorGreen("Export complete."))
	}
	return summary, runErr
}

func exportJob(ctx *runtime.Context, settings *config.Settings, db source.Database, backend vcs.Backend, fs afero.Fs) (replay.Job, error) {
	filter, err := excludeFilter(settings.Source.Exclude)
	if err != nil {
		return replay.Job{}, err
	}
	emails, err := settings.Emails()
	if err != nil {
		return replay.Job{}, err
	}
	policy, err := failurePolicy(ctx, settings)
	if err != nil {
		return replay.Job{}, err
	}

	job := replay.Job{
		Source: db,
		Roots:  settings.Source.Roots,
		Filter: filter,
		Grouping: changeset.Options{
			AnyCommentThreshold:  settings.Grouping.AnyComment,
			SameCommentThreshold: settings.Grouping.SameComment,
		},
		Backend: backend,
		Fs:      fs,
		Options: replay.Options{
			Reset:          settings.Target.Reset,
			DefaultComment: settings.DefaultComment,
			Emails:         replay.NewEmailResolver(settings.Email.Domain, emails),
			Policy:         policy,
			Logger:         ctx.Splog.Logger(),
			Report: func(err error) {
				ctx.Splog.Warn("%v", err)
			},
			Stats: &replay.Stats{},
		},
	}
	if settings.Reference != "" {
		info, err := os.Stat(settings.Reference)
		if err != nil {
			return replay.Job{}, fmt.Errorf("reference tree: %w", err)
		}
		if !info.IsDir() {
			return replay.Job{}, fmt.Errorf("reference tree %s is not a directory", settings.Reference)
		}
		ref := verify.OSTree(settings.Reference)
		job.Reference = &ref
	}
	return job, nil
}

func failurePolicy(ctx *runtime.Context, settings *config.Settings) (replay.FailurePolicy, error) {
	switch settings.Failure.Policy {
	case config.PolicyAbort, "":
		return replay.AbortPolicy{}, nil
	case config.PolicyIgnore:
		return replay.IgnorePolicy{}, nil
	case config.PolicyRetry:
		return replay.NewRetryPolicy(settings.Failure.MaxElapsed), nil
	case config.PolicyPrompt:
		return tui.NewPromptPolicy(ctx.Splog), nil
	}
	return nil, fmt.Errorf("unknown failure policy %q", settings.Failure.Policy)
}

// runExport runs job on the worker and waits for it, with the progress
// view on top when interactive is set
func runExport(ctx *runtime.Context, job replay.Job, interactive bool) (*replay.Summary, error) {
	w := ctx.Worker()
	stats := job.Options.Stats

	var (
		summary *replay.Summary
		runErr  error
	)
	err := w.Queue("export", func(jobCtx context.Context) error {
		w.SetStatus(fmt.Sprintf("replaying into %s", job.Backend.Dir()))
		summary, runErr = replay.Export(jobCtx, job)
		return runErr
	})
	if errors.Is(err, worker.ErrStopped) && ctx.Err() != nil {
		return nil, fmt.Errorf("%w: %w", histerrors.ErrAborted, ctx.Err())
	}
	if err != nil {
		return nil, err
	}

	done := make(chan struct{})
	defer close(done)
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(signals)
	go func() {
		select {
		case <-signals:
			ctx.Splog.Warn("Interrupted, aborting after the current operation...")
			w.Abort()
		case <-done:
		}
	}()

	if interactive {
		ctx.Splog.SetQuiet(true)
		if err := tui.RunProgress("Exporting history", stats, w, w.Abort); err != nil {
			ctx.Splog.Debug("progress view failed: %v", err)
		}
		ctx.Splog.SetQuiet(false)
	}
	w.Wait()
	w.DrainErrors()
	if summary == nil && runErr == nil {
		// the job was dropped before it started
		return nil, histerrors.ErrAborted
	}
	return summary, runErr
}

func printSummary(ctx *runtime.Context, backend vcs.Backend, s *replay.Summary) error {
	rows := [][]string{
		{"State", s.State.String()},
		{"Changesets", fmt.Sprintf("%s of %s", humanize.Comma(s.Changesets), humanize.Comma(s.Total))},
		{"Revisions", humanize.Comma(s.Revisions)},
		{"Files written", humanize.Comma(s.Files)},
		{"Commits", humanize.Comma(s.Commits)},
		{"Tags", humanize.Comma(s.Tags)},
		{"Diagnostics", humanize.Comma(s.Diagnostics)},
		{"Elapsed", s.Elapsed.Round(time.Millisecond).String()},
	}
	if s.Verified {
		rows = append(rows, []string{"Verification", verificationResult(s.Differences)})
	}

	if backend.Name() == "git" {
		if g, err := vcs.InspectGit(backend.Dir()); err == nil && g.Head != "" {
			rows = append(rows,
				[]string{"HEAD", g.Head[:12]},
				[]string{"Last commit", fmt.Sprintf("%s, %s", g.LastAuthor, humanize.Time(g.LastTime))},
			)
		} else if err != nil {
			ctx.Splog.Debug("could not inspect %s: %v", backend.Dir(), err)
		}
	}

	ctx.Splog.Newline()
	return renderTable(ctx.Out, []string{"Export", ""}, rows)
}

func verificationResult(differences int) string {
	if differences == 0 {
		return tui.ColorGreen("identical to reference")
	}
	return tui.ColorRed(fmt.Sprintf("%d difference(s)", differences))
}
