package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/c360studio/kddindex/merge"
	"github.com/c360studio/kddindex/query"
)

func newMergeCmd(app *App) *cobra.Command {
	var (
		output   string
		strategy string
	)
	cmd := &cobra.Command{
		Use:   "merge <source>... -o <dst>",
		Short: "Merge multiple artifact roots into one",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if output == "" {
				return fmt.Errorf("--output is required")
			}
			result, err := merge.Run(merge.Options{
				Sources:  args,
				Output:   output,
				Strategy: merge.Strategy(strategy),
				Bus:      app.Bus,
				Logger:   app.Logger,
			})
			if err != nil {
				return err
			}
			printf("merged %d nodes, %d edges, %d embeddings (%d conflicts resolved, %d deleted)\n",
				result.Nodes, result.Edges, result.Embeddings, result.ConflictsResolved, result.Deleted)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output artifact root")
	cmd.Flags().StringVar(&strategy, "strategy", string(merge.LastWriteWins), "last_write_wins or fail_on_conflict")
	return cmd
}

func newStatusCmd(app *App) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the index manifest and health",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store := app.Store()
			manifest, err := store.ReadManifest()
			if err != nil {
				return err
			}
			engine, err := app.Engine()
			if err != nil {
				return err
			}
			orphans, err := engine.Orphans(cmd.Context(), query.OrphansInput{})
			if err != nil {
				return err
			}

			if asJSON {
				return printJSON(map[string]any{
					"manifest":    manifest,
					"orphan_rate": orphans.OrphanRate,
				})
			}
			printf("index:      %s\n", store.Root())
			printf("level:      %s\n", manifest.IndexLevel)
			printf("structure:  %s\n", manifest.Structure)
			printf("nodes:      %d\n", manifest.Stats.Nodes)
			printf("edges:      %d\n", manifest.Stats.Edges)
			printf("embeddings: %d\n", manifest.Stats.Embeddings)
			if manifest.EmbeddingModel != "" {
				printf("model:      %s (%d dims)\n", manifest.EmbeddingModel, manifest.EmbeddingDimensions)
			}
			if manifest.GitCommit != "" {
				printf("commit:     %s\n", manifest.GitCommit)
			}
			printf("orphans:    %.2f%%\n", orphans.OrphanRate)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "emit JSON")
	return cmd
}
