package main

import (
	"context"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mgbpm/clingen-ai-tools/internal/config"
	"github.com/mgbpm/clingen-ai-tools/internal/metadata"
	"github.com/mgbpm/clingen-ai-tools/internal/pipeline"
)

var checkSources []string

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Compare dictionaries and mappings with data file headers",
	Long: "Reports dictionary columns missing from the data, data columns with no dictionary entry, " +
		"map-flagged columns without mappings and template fields naming unknown columns. " +
		"Exits non-zero when any drift is found.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate(config.ModeInspect); err != nil {
			return err
		}
		return executeCheck(cmd.Context(), os.Stdout, sourcesPath(cmd), checkSources)
	},
}

func executeCheck(ctx context.Context, w io.Writer, root string, names []string) error {
	md, err := metadata.Load(ctx, root)
	if err != nil {
		return err
	}
	sources, err := md.Select(names)
	if err != nil {
		return err
	}

	reports := make([]pipeline.CheckReport, 0, len(sources))
	drift := 0
	for _, src := range sources {
		r, err := pipeline.Check(ctx, src)
		if err != nil {
			return err
		}
		if !r.OK() {
			drift++
			zap.L().Warn("check: metadata drift", zap.String("source", src.Name()))
		}
		reports = append(reports, r)
	}
	renderCheck(w, reports)

	if drift > 0 {
		return eris.Errorf("check: %d of %d sources have metadata drift", drift, len(sources))
	}
	return nil
}

func init() {
	checkCmd.Flags().StringSliceVar(&checkSources, "sources", nil, "sources to check (default all)")
	rootCmd.AddCommand(checkCmd)
}
