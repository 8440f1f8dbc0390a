package commands

import (
	"github.com/spf13/cobra"

	"github.com/c360studio/kddindex/gitdiff"
	"github.com/c360studio/kddindex/indexer"
)

func newIndexCmd(app *App) *cobra.Command {
	var (
		full   bool
		force  bool
		domain string
	)

	cmd := &cobra.Command{
		Use:   "index [path]",
		Short: "Index the spec tree (incremental by default)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo := app.Config.Index.RepoPath
			if len(args) == 1 {
				repo = args[0]
			}

			embedder, err := app.Embedder()
			if err != nil {
				app.Logger.Warn("embedder unavailable, indexing at L1", "error", err.Error())
				embedder = nil
			}

			ix := indexer.New(indexer.Options{
				Store:    app.Store(),
				Bus:      app.Bus,
				Logger:   app.Logger,
				Embedder: embedder,
				Timeout:  app.EmbedTimeout(),
			})
			driver := indexer.NewDriver(ix, gitdiff.NewGit(repo), repo, app.Logger)

			result, err := driver.Run(cmd.Context(), indexer.RunOptions{
				Full:      full,
				Force:     force,
				Domain:    domain,
				Structure: app.Config.Index.Structure,
			})
			if err != nil {
				return err
			}

			mode := "incremental"
			if result.FullReindex {
				mode = "full"
			}
			printf("indexed %d, deleted %d, skipped %d, failed %d (%s, level %s)\n",
				result.Indexed, result.Deleted, result.Skipped, result.Failed, mode, ix.Level())
			return result.Err()
		},
	}

	cmd.Flags().BoolVar(&full, "full", false, "reindex every spec file")
	cmd.Flags().BoolVar(&force, "force", false, "reindex files even when unchanged")
	cmd.Flags().StringVar(&domain, "domain", "", "restrict indexing to one domain")
	return cmd
}
