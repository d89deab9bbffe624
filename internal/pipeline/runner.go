// Package pipeline runs the per-source transformation pipeline: load, expand,
// filter, column transforms, NA fill and template.
package pipeline

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mgbpm/clingen-ai-tools/internal/fetcher"
	"github.com/mgbpm/clingen-ai-tools/internal/metadata"
	"github.com/mgbpm/clingen-ai-tools/internal/model"
	"github.com/mgbpm/clingen-ai-tools/internal/table"
	"github.com/mgbpm/clingen-ai-tools/internal/transform"
)

// Options holds the run parameters shared by every source.
type Options struct {
	Columns   []string // column allow-list; nil keeps all dictionary columns
	Genes     []string
	Variants  []int64
	NAValue   *string // global NA literal; nil leaves missing cells alone
	Transform transform.Options
}

// Loader reads a source's raw table.
type Loader func(ctx context.Context, cfg model.SourceConfig, opts fetcher.TableOptions) (*table.Table, *fetcher.LoadStats, error)

// StageResult records one pipeline stage.
type StageResult struct {
	Name     string
	Rows     int
	Duration time.Duration
}

// Result is the transformed table of one source.
type Result struct {
	Source     *metadata.Source
	Dictionary *model.Dictionary // restricted to the column allow-list
	Table      *table.Table
	Load       *fetcher.LoadStats
	Stages     []StageResult
}

// Runner transforms sources with a fixed set of options.
type Runner struct {
	opts        Options
	concurrency int
	load        Loader
}

// NewRunner creates a Runner. Concurrency below 1 is treated as 1.
func NewRunner(opts Options, concurrency int) *Runner {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Runner{opts: opts, concurrency: concurrency, load: fetcher.ReadTable}
}

// ProcessAll runs every source, up to the configured concurrency, and
// returns results in input order. The first failure cancels the rest.
func (r *Runner) ProcessAll(ctx context.Context, sources []*metadata.Source) ([]*Result, error) {
	results := make([]*Result, len(sources))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for i, src := range sources {
		i, src := i, src
		g.Go(func() error {
			res, err := r.Process(gCtx, src)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Process loads and transforms one source.
func (r *Runner) Process(ctx context.Context, src *metadata.Source) (*Result, error) {
	log := zap.L().With(zap.String("source", src.Name()))
	log.Info("pipeline: processing source")

	dict := src.Dictionary.Restrict(r.opts.Columns)
	res := &Result{Source: src, Dictionary: dict}

	var t *table.Table
	stage := func(name string, fn func() error) error {
		if err := ctx.Err(); err != nil {
			return eris.Wrapf(err, "pipeline: %s: cancelled before %s", src.Name(), name)
		}
		start := time.Now()
		if err := fn(); err != nil {
			return err
		}
		sr := StageResult{Name: name, Rows: t.Len(), Duration: time.Since(start)}
		res.Stages = append(res.Stages, sr)
		log.Debug("pipeline: stage complete",
			zap.String("stage", name),
			zap.Int("rows", sr.Rows),
			zap.Duration("duration", sr.Duration),
		)
		return nil
	}

	err := stage("load", func() error {
		var topts fetcher.TableOptions
		if r.opts.Columns != nil {
			topts.Columns = dict.Columns()
		}
		loaded, stats, err := r.load(ctx, src.Config, topts)
		if err != nil {
			return eris.Wrapf(err, "pipeline: load %s", src.Name())
		}
		t, res.Load = loaded, stats
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, e := range dict.Entries {
		if !t.Has(e.Column) {
			log.Warn("pipeline: dictionary column missing from data", zap.String("column", e.Column))
		}
	}

	if r.opts.Transform.Expand {
		if err := stage("expand", func() error {
			var steps []transform.Step
			for _, e := range dict.Entries {
				if e.Expand.IsTrue() {
					steps = append(steps, &transform.Expand{Column: e.Column})
				}
			}
			var err error
			t, err = transform.Run(t, steps)
			return err
		}); err != nil {
			return nil, err
		}
	}

	if len(r.opts.Genes) > 0 || len(r.opts.Variants) > 0 {
		if err := stage("filter", func() error {
			t = transform.FilterGenes(t, dict, r.opts.Genes)
			t = transform.FilterVariants(t, dict, r.opts.Variants)
			return nil
		}); err != nil {
			return nil, err
		}
	}

	if err := stage("columns", func() error {
		for _, e := range dict.Entries {
			steps := transform.Plan(e, src.MappingsFor(e.Column), r.opts.Transform)
			next, err := transform.Run(t, steps)
			if err != nil {
				return eris.Wrapf(err, "pipeline: %s column %q", src.Name(), e.Column)
			}
			t = next
		}
		return nil
	}); err != nil {
		return nil, err
	}

	if r.opts.NAValue != nil {
		if err := stage("na-value", func() error {
			t = t.Clone()
			n := t.FillMissing("", *r.opts.NAValue)
			log.Debug("pipeline: filled missing cells", zap.Int("cells", n))
			return nil
		}); err != nil {
			return nil, err
		}
	}

	if r.opts.Transform.Template && src.Config.Template != "" {
		if err := stage("template", func() error {
			var err error
			t, err = transform.NewTemplate(src.Name(), src.Config.Template).Apply(t)
			return err
		}); err != nil {
			return nil, err
		}
	}

	res.Table = t
	log.Info("pipeline: source complete", zap.Int("rows", t.Len()), zap.Int("columns", len(t.Columns)))
	return res, nil
}
