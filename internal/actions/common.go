package actions

import (
	"fmt"
	"io"
	"strings"

	"github.com/olekukonko/tablewriter"

	"histport.dev/histport/internal/history"
	"histport.dev/histport/internal/source"
	"histport.dev/histport/internal/source/archive"
)

// openSource returns db when it is set and opens the archive at path
// otherwise. The returned func releases whatever was opened.
func openSource(path string, db source.Database) (source.Database, func() error, error) {
	if db != nil {
		return db, func() error { return nil }, nil
	}
	if path == "" {
		return nil, nil, fmt.Errorf("no history archive configured")
	}
	a, err := archive.Open(path)
	if err != nil {
		return nil, nil, err
	}
	return a, a.Close, nil
}

func excludeFilter(patterns []string) (*history.Filter, error) {
	return history.NewFilter(strings.Join(patterns, ";"))
}

// renderTable writes rows under header in the style every command shares
func renderTable(w io.Writer, header []string, rows [][]string) error {
	table := tablewriter.NewWriter(w)
	cells := make([]any, len(header))
	for i, h := range header {
		cells[i] = h
	}
	table.Header(cells...)
	if err := table.Bulk(rows); err != nil {
		return err
	}
	return table.Render()
}
