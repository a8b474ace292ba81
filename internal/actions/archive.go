package actions

import (
	"strconv"

	"github.com/dustin/go-humanize"

	"histport.dev/histport/internal/runtime"
	"histport.dev/histport/internal/source"
	"histport.dev/histport/internal/source/archive"
	"histport.dev/histport/internal/tui"
)

// ArchiveListOptions contains options for the archive ls command
type ArchiveListOptions struct {
	// Archive defaults to source.archive
	Archive string
	// Path is the legacy project to list, "$" by default
	Path string
}

// ArchiveListAction prints the items stored in a history archive below
// a project
func ArchiveListAction(ctx *runtime.Context, opts ArchiveListOptions) ([]archive.Entry, error) {
	path := opts.Archive
	if path == "" {
		path = ctx.Settings.Source.Archive
	}
	item := opts.Path
	if item == "" {
		item = source.RootPath
	}

	a, err := archive.Open(path)
	if err != nil {
		return nil, err
	}
	defer a.Close()

	entries, err := a.List(item)
	if err != nil {
		return nil, err
	}

	var (
		rows  [][]string
		total int64
	)
	for _, e := range entries {
		kind := "file"
		if e.Item.Project {
			kind = "project"
		}
		status := ""
		if e.Purged {
			status = tui.ColorDim("destroyed")
		}
		rows = append(rows, []string{
			e.Path,
			kind,
			string(e.Item.ID),
			strconv.Itoa(e.Revisions),
			strconv.Itoa(e.Contents),
			humanize.Bytes(uint64(e.Size)),
			status,
		})
		total += e.Size
	}
	if err := renderTable(ctx.Out, []string{"Path", "Kind", "ID", "Revisions", "Versions", "Size", ""}, rows); err != nil {
		return nil, err
	}
	ctx.Splog.Info("%d item(s), %s of content in %s", len(entries), humanize.Bytes(uint64(total)), a.Path())
	return entries, nil
}
