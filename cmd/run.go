package main

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mgbpm/clingen-ai-tools/internal/config"
	"github.com/mgbpm/clingen-ai-tools/internal/join"
	"github.com/mgbpm/clingen-ai-tools/internal/metadata"
	"github.com/mgbpm/clingen-ai-tools/internal/pipeline"
	"github.com/mgbpm/clingen-ai-tools/internal/store"
	"github.com/mgbpm/clingen-ai-tools/internal/table"
	"github.com/mgbpm/clingen-ai-tools/internal/transform"
)

var errJoinNeedsSources = eris.New("run: --join requires at least one source specified with --sources")

// runParams is the parsed form of the run command's flags.
type runParams struct {
	sources     []string
	columns     []string
	genes       []string
	variants    []string
	naValue     *string
	transform   transform.Options
	join        bool
	individual  bool
	output      string
	concurrency int
}

// runSummary reports what a run wrote.
type runSummary struct {
	Outputs []string
	Rows    int64
}

var (
	runSources    []string
	runColumns    []string
	runGenes      []string
	runVariants   []string
	runNAValue    string
	runMap        bool
	runOneHot     bool
	runCategories bool
	runExpand     bool
	runAge        bool
	runDays       bool
	runTemplate   bool
	runJoin       bool
	runIndividual bool
	runOutput     string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Transform sources and write per-source or merged output",
	Long: "Loads the selected sources (all when --sources is omitted), applies the requested column " +
		"transformations, then writes each source with --individual and the left-joined result with --join.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate(config.ModeRun); err != nil {
			return err
		}

		p := runParams{
			sources:    runSources,
			columns:    runColumns,
			genes:      runGenes,
			variants:   runVariants,
			join:       runJoin,
			individual: runIndividual,
			output:     runOutput,
			transform: transform.Options{
				Map:        runMap,
				OneHot:     runOneHot,
				Categories: runCategories,
				Expand:     runExpand,
				Age:        runAge,
				Days:       runDays,
				Template:   runTemplate,
			},
			concurrency: cfg.Pipeline.Concurrency,
		}
		if p.output == "" {
			p.output = cfg.Output
		}
		if cmd.Flags().Changed("na-value") {
			na := runNAValue
			p.naValue = &na
		}

		ctx := cmd.Context()
		st, err := initStore(ctx, cfg.Store)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		sum, err := executeRun(ctx, sourcesPath(cmd), st, p)
		if err != nil {
			return err
		}
		zap.L().Info("run: complete",
			zap.Strings("outputs", sum.Outputs),
			zap.Int64("rows", sum.Rows),
		)
		return nil
	},
}

// validate rejects flag combinations before any source is read and returns
// the parsed --variant identifiers.
func (p runParams) validate() ([]int64, error) {
	if p.join && len(p.sources) == 0 {
		return nil, errJoinNeedsSources
	}
	ids, err := transform.ParseVariantIDs(p.variants)
	if err != nil {
		return nil, eris.Wrap(err, "run: --variant")
	}
	return ids, nil
}

// executeRun loads metadata from root, transforms the selected sources and
// writes the requested outputs to st. Database stores also record the run.
func executeRun(ctx context.Context, root string, st store.Store, p runParams) (sum *runSummary, err error) {
	variants, err := p.validate()
	if err != nil {
		return nil, err
	}

	md, err := metadata.Load(ctx, root)
	if err != nil {
		return nil, err
	}
	sources, err := md.Select(p.sources)
	if err != nil {
		return nil, err
	}
	if len(sources) == 0 {
		return nil, eris.Errorf("run: no sources found in %s", root)
	}

	sum = &runSummary{}
	if runLog, ok := st.(store.RunLog); ok {
		names := make([]string, len(sources))
		for i, s := range sources {
			names[i] = s.Name()
		}
		run, cerr := runLog.CreateRun(ctx, names, p.join)
		if cerr != nil {
			return nil, cerr
		}
		log := zap.L().With(zap.String("run_id", run.ID))
		log.Info("run: started", zap.Strings("sources", names))
		defer func() {
			run.Tables, run.Rows = len(sum.Outputs), sum.Rows
			run.Complete(err)
			if ferr := runLog.FinishRun(context.WithoutCancel(ctx), run); ferr != nil {
				log.Warn("run: failed to record run", zap.Error(ferr))
			}
		}()
	}

	runner := pipeline.NewRunner(pipeline.Options{
		Columns:   p.columns,
		Genes:     p.genes,
		Variants:  variants,
		NAValue:   p.naValue,
		Transform: p.transform,
	}, p.concurrency)

	results, err := runner.ProcessAll(ctx, sources)
	if err != nil {
		return sum, err
	}

	write := func(name string, t *table.Table) error {
		n, err := st.WriteTable(ctx, name, t)
		if err != nil {
			return err
		}
		sum.Outputs = append(sum.Outputs, name)
		sum.Rows += n
		return nil
	}

	if p.individual {
		for _, res := range results {
			name := res.Source.Name() + "-" + p.output
			if err := write(name, res.Table); err != nil {
				return sum, err
			}
		}
	}

	if p.join {
		inputs := make([]join.Input, len(results))
		for i, res := range results {
			inputs[i] = join.Input{Name: res.Source.Name(), Table: res.Table, Dictionary: res.Dictionary}
		}
		zap.L().Info("run: merging sources", zap.Strings("sources", p.sources))
		merged, err := join.Merge(inputs, join.Options{NAValue: p.naValue})
		if err != nil {
			return sum, err
		}
		if err := write(p.output, merged.Table); err != nil {
			return sum, err
		}
	}

	if !p.individual && !p.join {
		zap.L().Warn("run: no output requested; pass --individual or --join",
			zap.String("sources", strings.Join(p.sources, ",")))
	}
	return sum, nil
}

func init() {
	f := runCmd.Flags()
	f.StringSliceVar(&runSources, "sources", nil, "sources to process, in join order (default all)")
	f.StringSliceVar(&runColumns, "columns", nil, "restrict every source to these dictionary columns")
	f.StringSliceVar(&runGenes, "gene", nil, "keep only rows whose gene-symbol columns match")
	f.StringSliceVar(&runVariants, "variant", nil, "keep only rows whose variation-id columns match")
	f.StringVar(&runNAValue, "na-value", "", "fill missing cells with this value")
	f.BoolVar(&runMap, "map", false, "apply value mappings from mapping.csv")
	f.BoolVar(&runOneHot, "onehot", false, "one-hot encode flagged columns")
	f.BoolVar(&runCategories, "categories", false, "add integer category codes for flagged columns")
	f.BoolVar(&runExpand, "expand", false, "split comma-separated values of flagged columns into rows")
	f.BoolVar(&runAge, "age", false, "add age in years for flagged date columns")
	f.BoolVar(&runDays, "days", false, "add age in days for flagged date columns")
	f.BoolVar(&runTemplate, "template", false, "render each source's template into a column")
	f.BoolVar(&runJoin, "join", false, "left-join the --sources in order into one output")
	f.BoolVar(&runIndividual, "individual", false, "write each source as {source}-{output}")
	f.StringVar(&runOutput, "output", "", "output name (default from config)")
	rootCmd.AddCommand(runCmd)
}
