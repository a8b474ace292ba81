package cli

import (
	"github.com/spf13/cobra"

	"histport.dev/histport/internal/actions"
	"histport.dev/histport/internal/runtime"
)

// newArchiveCmd creates the archive command
func newArchiveCmd(r *runner) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "archive",
		Short: "Inspect history archives",
	}

	cmd.AddCommand(newArchiveListCmd(r))

	return cmd
}

// newArchiveListCmd creates the archive ls command
func newArchiveListCmd(r *runner) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ls [project]",
		Short: "List the items stored below a project, $ by default",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.run(cmd, func(ctx *runtime.Context) error {
				opts := actions.ArchiveListOptions{}
				if len(args) == 1 {
					opts.Path = args[0]
				}
				_, err := actions.ArchiveListAction(ctx, opts)
				return err
			})
		},
	}

	return cmd
}
