package cli

import (
	"github.com/spf13/cobra"

	"histport.dev/histport/internal/actions"
	"histport.dev/histport/internal/runtime"
)

// newChangesetsCmd creates the changesets command
func newChangesetsCmd(r *runner) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:     "changesets",
		Aliases: []string{"cs"},
		Short:   "Preview how the history groups into commits",
		Long: `Collect the history below the configured root projects and list the
changesets an export would commit, without touching any repository.

Use it to tune grouping.anyComment and grouping.sameComment.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return r.run(cmd, func(ctx *runtime.Context) error {
				_, err := actions.ChangesetsAction(ctx, actions.ChangesetsOptions{Limit: limit})
				return err
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Show only the first n changesets (0 = all)")

	return cmd
}
