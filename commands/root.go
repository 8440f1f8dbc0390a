package commands

import (
	"github.com/spf13/cobra"
)

// NewRoot builds the kdd root command with every subcommand attached.
func NewRoot(app *App, version string) *cobra.Command {
	root := &cobra.Command{
		Use:           "kdd",
		Short:         "Knowledge retrieval engine for KDD specification artifacts",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newIndexCmd(app),
		newSearchCmd(app),
		newGraphCmd(app),
		newImpactCmd(app),
		newCoverageCmd(app),
		newViolationsCmd(app),
		newOrphansCmd(app),
		newContextCmd(app),
		newMergeCmd(app),
		newStatusCmd(app),
	)
	return root
}
