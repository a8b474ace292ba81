package actions

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"histport.dev/histport/internal/changeset"
	"histport.dev/histport/internal/runtime"
	"histport.dev/histport/internal/source"
)

const maxCommentWidth = 60

// ChangesetsOptions contains options for the changesets command
type ChangesetsOptions struct {
	// Source replaces the configured history archive
	Source source.Database
	// Limit shows only the first Limit changesets (0 = all)
	Limit int
}

// ChangesetsAction previews how the configured roots group into commits
// without touching any target repository
func ChangesetsAction(ctx *runtime.Context, opts ChangesetsOptions) ([]changeset.Changeset, error) {
	settings := ctx.Settings
	if len(settings.Source.Roots) == 0 {
		return nil, fmt.Errorf("no root project given; set source.roots or pass --root")
	}
	db, closeSource, err := openSource(settings.Source.Archive, opts.Source)
	if err != nil {
		return nil, err
	}
	defer closeSource()

	filter, err := excludeFilter(settings.Source.Exclude)
	if err != nil {
		return nil, err
	}
	log, err := source.Collect(db, settings.Source.Roots, filter)
	if err != nil {
		return nil, err
	}
	changesets := changeset.Build(log.Revisions, changeset.Options{
		AnyCommentThreshold:  settings.Grouping.AnyComment,
		SameCommentThreshold: settings.Grouping.SameComment,
	})

	shown := changesets
	if opts.Limit > 0 && len(shown) > opts.Limit {
		shown = shown[:opts.Limit]
	}
	rows := make([][]string, 0, len(shown))
	for i, cs := range shown {
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			cs.Time.Format(time.DateTime),
			cs.User,
			strconv.Itoa(len(cs.Revisions)),
			truncate(firstLine(cs.Comment), maxCommentWidth),
		})
	}
	if err := renderTable(ctx.Out, []string{"#", "Time", "User", "Revisions", "Comment"}, rows); err != nil {
		return nil, err
	}
	ctx.Splog.Info("%s revision(s) in %s changeset(s)", humanize.Comma(int64(len(log.Revisions))), humanize.Comma(int64(len(changesets))))
	if len(log.Excluded) > 0 {
		ctx.Splog.Info("%d file(s) excluded by filter", len(log.Excluded))
	}
	return changesets, nil
}

func firstLine(s string) string {
	if i := strings.IndexAny(s, "\r\n"); i >= 0 {
		return s[:i]
	}
	return s
}

func truncate(s string, width int) string {
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	return string(r[:width-3]) + "..."
}
