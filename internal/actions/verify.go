package actions

import (
	"fmt"
	"os"

	histerrors "histport.dev/histport/internal/errors"
	"histport.dev/histport/internal/runtime"
	"histport.dev/histport/internal/tui"
	"histport.dev/histport/internal/verify"
)

// DefaultVerifyExcludes are the administrative directories of every backend
var DefaultVerifyExcludes = []string{".git", ".svn", ".hg"}

// VerifyOptions contains options for the verify command
type VerifyOptions struct {
	Reference string
	Exported  string
	// Excludes defaults to DefaultVerifyExcludes
	Excludes []string
}

// VerifyAction compares an exported working tree with a reference tree
// and lists every path that differs
func VerifyAction(ctx *runtime.Context, opts VerifyOptions) (*verify.Result, error) {
	for _, dir := range []string{opts.Reference, opts.Exported} {
		info, err := os.Stat(dir)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("%s is not a directory", dir)
		}
	}
	excludes := opts.Excludes
	if excludes == nil {
		excludes = DefaultVerifyExcludes
	}

	result, err := verify.Compare(ctx, verify.OSTree(opts.Reference), verify.OSTree(opts.Exported), verify.Options{Excludes: excludes})
	if err != nil {
		return nil, err
	}
	if result.Identical() {
		ctx.Splog.Info("%s matches %s", tui.Bold(opts.Exported), tui.Bold(opts.Reference))
		return result, nil
	}
	for _, p := range result.Paths {
		ctx.Splog.Info("  %s %s", tui.ColorRed("differs"), p)
	}
	ctx.Splog.Error("%d difference(s) found", result.Differences)
	return result, histerrors.NewVerifyMismatchError(result.Differences)
}
