package commands

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/c360studio/kddindex/query"
)

func newGraphCmd(app *App) *cobra.Command {
	var (
		depth  int
		types  []string
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "graph <node>",
		Short: "Traverse the graph from a node",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := app.Engine()
			if err != nil {
				return err
			}
			res, err := engine.Graph(cmd.Context(), query.GraphInput{
				RootNode:  args[0],
				Depth:     &depth,
				EdgeTypes: types,
				Filters:   query.Filters{RespectLayers: true},
			})
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(res)
			}
			printf("center: %s\n", res.Center.ID)
			for _, r := range res.Related {
				printf("  d=%d %.3f %-30s %s\n", r.Distance, r.Score, r.NodeID, firstLine(r.Snippet))
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&depth, "depth", 2, "traversal depth (0..5; 0 returns only the root)")
	cmd.Flags().StringSliceVar(&types, "types", nil, "edge types to follow")
	cmd.Flags().BoolVar(&asJSON, "json", false, "emit JSON")
	return cmd
}

func newImpactCmd(app *App) *cobra.Command {
	var (
		depth  int
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "impact <node>",
		Short: "Analyze what depends on a node",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := app.Engine()
			if err != nil {
				return err
			}
			res, err := engine.Impact(cmd.Context(), query.ImpactInput{NodeID: args[0], Depth: &depth})
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(res)
			}
			printf("directly affected (%d):\n", res.TotalDirect)
			for _, d := range res.Direct {
				printf("  %-30s %s — %s\n", d.NodeID, d.EdgeType, d.Description)
			}
			printf("transitively affected (%d):\n", res.TotalIndirect)
			for _, tn := range res.Transitive {
				printf("  %-30s via %s\n", tn.NodeID, strings.Join(tn.Path, " → "))
			}
			for _, sc := range res.Scenarios {
				printf("rerun: %s (%s)\n", sc.NodeID, sc.Reason)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&depth, "depth", 3, "analysis depth (0..5)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "emit JSON")
	return cmd
}

func newCoverageCmd(app *App) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "coverage <node>",
		Short: "Report governance coverage for a node",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := app.Engine()
			if err != nil {
				return err
			}
			res, err := engine.Coverage(cmd.Context(), query.CoverageInput{NodeID: args[0]})
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(res)
			}
			for _, c := range res.Categories {
				printf("%-8s %-16s %s\n", c.Status, c.Name, strings.Join(c.Found, ", "))
			}
			printf("coverage: %.2f%%\n", res.CoveragePercent)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "emit JSON")
	return cmd
}

func newViolationsCmd(app *App) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "violations",
		Short: "List layer dependency violations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := app.Engine()
			if err != nil {
				return err
			}
			res, err := engine.Violations(cmd.Context(), query.ViolationsInput{})
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(res)
			}
			for _, v := range res.Violations {
				printf("%s → %s (%s): %s\n", v.FromNode, v.ToNode, v.EdgeType, v.Explanation)
			}
			printf("violation rate: %.2f%% of %d edges\n", res.ViolationRate, res.TotalEdges)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "emit JSON")
	return cmd
}

func newOrphansCmd(app *App) *cobra.Command {
	var (
		types  []string
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "orphans",
		Short: "List edges pointing at missing nodes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := app.Engine()
			if err != nil {
				return err
			}
			res, err := engine.Orphans(cmd.Context(), query.OrphansInput{IncludeEdgeTypes: types})
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(res)
			}
			for _, o := range res.Orphans {
				printf("%s → %s (%s): %s\n", o.Edge.FromNode, o.Edge.ToNode, o.Edge.EdgeType, o.Reason)
			}
			printf("orphan rate: %.2f%% (%d of %d edges on disk)\n", res.OrphanRate, res.TotalOrphan, res.TotalEdgesOnDisk)
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&types, "types", nil, "edge types to include")
	cmd.Flags().BoolVar(&asJSON, "json", false, "emit JSON")
	return cmd
}

func newContextCmd(app *App) *cobra.Command {
	var (
		depth     int
		maxTokens int
		asJSON    bool
	)
	cmd := &cobra.Command{
		Use:   "context <hint> [hint...]",
		Short: "Amplify hints into constraints and behavior context",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := app.Engine()
			if err != nil {
				return err
			}
			res, err := engine.Context(cmd.Context(), query.ContextInput{
				Hints:     args,
				Depth:     &depth,
				MaxTokens: maxTokens,
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
			printf("constraints:\n")
			for _, c := range res.Constraints {
				printf("  %-30s %s\n", c.NodeID, firstLine(c.Content))
			}
			printf("behavior:\n")
			for _, b := range res.Behavior {
				printf("  %-30s %s\n", b.NodeID, firstLine(b.Content))
			}
			printf("tokens: %d\n", res.TotalTokens)
			return nil
		},
	}
	cmd.Flags().IntVar(&depth, "depth", 1, "discovery depth")
	cmd.Flags().IntVar(&maxTokens, "max-tokens", 4000, "token budget")
	cmd.Flags().BoolVar(&asJSON, "json", false, "emit JSON")
	return cmd
}
