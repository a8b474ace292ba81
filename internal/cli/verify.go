package cli

import (
	"github.com/spf13/cobra"

	"histport.dev/histport/internal/actions"
	"histport.dev/histport/internal/runtime"
)

// newVerifyCmd creates the verify command
func newVerifyCmd(r *runner) *cobra.Command {
	var ignore []string

	cmd := &cobra.Command{
		Use:   "verify <reference> <exported>",
		Short: "Compare an exported working tree with a reference tree",
		Long: `Compare an exported working tree with a reference tree byte for byte.

The administrative directories of git, svn and hg are ignored on both sides.
The command fails when any file or directory differs.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.run(cmd, func(ctx *runtime.Context) error {
				excludes := actions.DefaultVerifyExcludes
				if len(ignore) > 0 {
					excludes = append(append([]string(nil), excludes...), ignore...)
				}
				_, err := actions.VerifyAction(ctx, actions.VerifyOptions{
					Reference: args[0],
					Exported:  args[1],
					Excludes:  excludes,
				})
				return err
			})
		},
	}

	cmd.Flags().StringSliceVar(&ignore, "ignore", nil, "Additional entry names to ignore (repeatable)")

	return cmd
}
