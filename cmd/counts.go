package main

import (
	"context"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/mgbpm/clingen-ai-tools/internal/config"
	"github.com/mgbpm/clingen-ai-tools/internal/metadata"
	"github.com/mgbpm/clingen-ai-tools/internal/pipeline"
)

var (
	countsSources []string
	countsColumns []string
	countsValues  bool
)

var countsCmd = &cobra.Command{
	Use:   "counts",
	Short: "Show unique-value counts per column of the raw sources",
	Long: "Loads each selected source without transformations and prints the number of distinct and " +
		"missing values per column. With --values, also prints value frequencies of map-flagged columns.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate(config.ModeInspect); err != nil {
			return err
		}
		return executeCounts(cmd.Context(), os.Stdout, sourcesPath(cmd), countsSources, countsColumns, countsValues, cfg.Pipeline.Concurrency)
	},
}

func executeCounts(ctx context.Context, w io.Writer, root string, names, columns []string, values bool, concurrency int) error {
	md, err := metadata.Load(ctx, root)
	if err != nil {
		return err
	}
	sources, err := md.Select(names)
	if err != nil {
		return err
	}

	runner := pipeline.NewRunner(pipeline.Options{Columns: columns}, concurrency)
	results, err := runner.ProcessAll(ctx, sources)
	if err != nil {
		return err
	}
	for _, res := range results {
		renderCounts(w, res.Source.Name(), res.Table.Len(), pipeline.UniqueCounts(res.Table))
		if !values {
			continue
		}
		for _, col := range pipeline.MapColumns(res.Dictionary) {
			if res.Table.Has(col) {
				renderValueCounts(w, col, pipeline.ValueCounts(res.Table, col))
			}
		}
	}
	return nil
}

func init() {
	countsCmd.Flags().StringSliceVar(&countsSources, "sources", nil, "sources to count (default all)")
	countsCmd.Flags().StringSliceVar(&countsColumns, "columns", nil, "restrict to these dictionary columns")
	countsCmd.Flags().BoolVar(&countsValues, "values", false, "print value frequencies of map-flagged columns")
	rootCmd.AddCommand(countsCmd)
}
