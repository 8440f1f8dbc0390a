package commands

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/c360studio/kddindex/model"
	"github.com/c360studio/kddindex/query"
)

func filtersFromFlags(kinds, layers []string, respectLayers bool) query.Filters {
	f := query.Filters{RespectLayers: respectLayers}
	for _, k := range kinds {
		f.IncludeKinds = append(f.IncludeKinds, model.Kind(strings.TrimSpace(k)))
	}
	for _, l := range layers {
		f.IncludeLayers = append(f.IncludeLayers, model.Layer(strings.TrimSpace(l)))
	}
	return f
}

func newSearchCmd(app *App) *cobra.Command {
	var (
		kinds    []string
		layers   []string
		limit    int
		depth    int
		minScore float64
		asJSON   bool
		strategy string
	)

	cmd := &cobra.Command{
		Use:   "search <text>",
		Short: "Hybrid search across the index",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := app.Engine()
			if err != nil {
				return err
			}

			if strategy == "semantic" {
				res, err := engine.Semantic(cmd.Context(), query.SemanticInput{
					QueryText: args[0],
					MinScore:  minScore,
					Limit:     limit,
					Filters:   filtersFromFlags(kinds, layers, true),
				})
				if err != nil {
					return err
				}
				if asJSON {
					return printJSON(res)
				}
				for _, r := range res.Results {
					printf("%.3f  %-30s %s\n", r.Score, r.NodeID, r.Snippet)
				}
				return nil
			}

			res, err := engine.Hybrid(cmd.Context(), query.HybridInput{
				QueryText: args[0],
				Depth:     &depth,
				MinScore:  minScore,
				Limit:     limit,
				Filters:   filtersFromFlags(kinds, layers, true),
			})
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(res)
			}
			for _, w := range res.Warnings {
				printf("warning: %s\n", w)
			}
			for _, r := range res.Results {
				printf("%.3f  %-10s %-30s %s\n", r.Score, r.MatchSource, r.NodeID, firstLine(r.Snippet))
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&kinds, "kind", nil, "filter by kind")
	cmd.Flags().StringSliceVar(&layers, "layer", nil, "filter by layer")
	cmd.Flags().IntVar(&limit, "limit", 10, "maximum results")
	cmd.Flags().IntVar(&depth, "depth", 2, "graph expansion depth (0..5; 0 disables expansion)")
	cmd.Flags().Float64Var(&minScore, "min-score", 0, "minimum fused score")
	cmd.Flags().BoolVar(&asJSON, "json", false, "emit JSON")
	cmd.Flags().StringVar(&strategy, "strategy", "hybrid", "hybrid or semantic")
	return cmd
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
