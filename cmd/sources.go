package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/mgbpm/clingen-ai-tools/internal/config"
	"github.com/mgbpm/clingen-ai-tools/internal/metadata"
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List configured sources",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate(config.ModeInspect); err != nil {
			return err
		}
		md, err := metadata.Load(cmd.Context(), sourcesPath(cmd))
		if err != nil {
			return err
		}
		renderSources(os.Stdout, md.All())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sourcesCmd)
}
