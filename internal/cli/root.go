package cli

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"histport.dev/histport/internal/config"
	"histport.dev/histport/internal/runtime"
)

// runner resolves the runtime context for every command from the shared
// config loader
type runner struct {
	loader     *config.Loader
	configPath string
}

// run provides a runtime context to a command's execution function and
// releases it afterwards
func (r *runner) run(cmd *cobra.Command, fn func(ctx *runtime.Context) error) error {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, err := runtime.GetContext(parent, r.loader, r.configPath)
	if err != nil {
		return err
	}
	defer ctx.Close()
	ctx.Out = cmd.OutOrStdout()
	return fn(ctx)
}

// bind makes each flag override its configuration key when set
func (r *runner) bind(flags *pflag.FlagSet, keys map[string]string) {
	for name, key := range keys {
		if err := r.loader.BindFlag(key, flags.Lookup(name)); err != nil {
			panic(err)
		}
	}
}

// NewRootCmd creates the root cobra command
func NewRootCmd(version, commit, date string) *cobra.Command {
	r := &runner{loader: config.NewLoader()}

	rootCmd := &cobra.Command{
		Use:   "histport",
		Short: "Histport replays the history of a legacy version control database into git, svn or hg",
		Long: `Histport replays the history of a legacy version control database into git,
Subversion or Mercurial.

Revisions are read from a history archive, grouped into changesets by user,
time and comment, and committed one changeset at a time. Labels become tags.

Settings come from histport.yaml in the working directory (or --config),
HISTPORT_* environment variables and command-line flags, in increasing
precedence.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&r.configPath, "config", "c", "", "Configuration file (default histport.yaml in the working directory)")
	flags.String("archive", "", "History archive to read")
	flags.StringSlice("root", nil, "Legacy project to export, e.g. $/Project (repeatable)")
	flags.StringSlice("exclude", nil, "Glob pattern of files to leave out (repeatable)")
	flags.Duration("any-comment-threshold", 0, "Merge revisions by one user at most this far apart")
	flags.Duration("same-comment-threshold", 0, "Merge revisions by one user with the same comment at most this far apart")
	flags.String("log-file", "", "Write a detailed log to this file")
	flags.Bool("debug", false, "Show debug output")
	r.bind(flags, map[string]string{
		"archive":                config.KeySourceArchive,
		"root":                   config.KeySourceRoots,
		"exclude":                config.KeySourceExclude,
		"any-comment-threshold":  config.KeyGroupingAnyComment,
		"same-comment-threshold": config.KeyGroupingSameComment,
		"log-file":               config.KeyLogFile,
		"debug":                  config.KeyLogDebug,
	})

	rootCmd.AddCommand(newExportCmd(r))
	rootCmd.AddCommand(newVerifyCmd(r))
	rootCmd.AddCommand(newChangesetsCmd(r))
	rootCmd.AddCommand(newArchiveCmd(r))
	rootCmd.AddCommand(newVersionCmd(version, commit, date))

	return rootCmd
}
