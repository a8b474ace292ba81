package cli

import (
	"github.com/spf13/cobra"

	"histport.dev/histport/internal/actions"
	"histport.dev/histport/internal/config"
	"histport.dev/histport/internal/runtime"
	"histport.dev/histport/internal/tui"
)

// newExportCmd creates the export command
func newExportCmd(r *runner) *cobra.Command {
	var noProgress bool

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Replay the configured history into the target repository",
		Long: `Replay the history below the configured root projects into the target
repository, one commit per changeset, and tag every label.

When verify.reference (or --reference) names a directory, the exported tree
is compared with it afterwards and any difference fails the command.

Press Ctrl-C to abort after the current operation. The target then holds
every changeset committed so far.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return r.run(cmd, func(ctx *runtime.Context) error {
				_, err := actions.ExportAction(ctx, actions.ExportOptions{
					Interactive: !noProgress && tui.IsTTY(),
				})
				return err
			})
		},
	}

	flags := cmd.Flags()
	flags.StringP("backend", "b", "", "Target backend: git, svn or hg (default git)")
	flags.StringP("target", "t", "", "Directory of the target working copy")
	flags.Bool("reset", false, "Delete the target before exporting")
	flags.String("email-domain", "", "Domain of generated commit email addresses")
	flags.String("email-map", "", "YAML file mapping legacy user names to email addresses")
	flags.String("default-comment", "", "Commit message for changesets without a comment")
	flags.String("reference", "", "Directory to compare the exported tree against")
	flags.String("failure-policy", "", "What to do when a repository operation fails: abort, ignore, retry or prompt")
	flags.Duration("max-elapsed", 0, "How long the retry policy keeps retrying one operation")
	flags.BoolVar(&noProgress, "no-progress", false, "Log plain output instead of showing the progress view")
	r.bind(flags, map[string]string{
		"backend":         config.KeyTargetBackend,
		"target":          config.KeyTargetDir,
		"reset":           config.KeyTargetReset,
		"email-domain":    config.KeyEmailDomain,
		"email-map":       config.KeyEmailMap,
		"default-comment": config.KeyCommitDefaultComment,
		"reference":       config.KeyVerifyReference,
		"failure-policy":  config.KeyFailurePolicy,
		"max-elapsed":     config.KeyFailureMaxElapsed,
	})

	return cmd
}
