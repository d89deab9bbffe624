package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mgbpm/clingen-ai-tools/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "clingen-ai-tools",
	Short: "Transform and merge genomic data sources",
	Long: "Loads locally staged genomic sources described by config.yml and dictionary.csv, " +
		"applies per-column transformations and optionally left-joins the sources on shared join groups.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().String("sources-path", "", "directory holding one sub-directory per source (overrides sources_path)")
}

// sourcesPath returns the --sources-path flag when given, else the configured path.
func sourcesPath(cmd *cobra.Command) string {
	if p, _ := cmd.Flags().GetString("sources-path"); p != "" {
		return p
	}
	return cfg.SourcesPath
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
