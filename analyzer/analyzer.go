package analyzer

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hiroki-yamauchi/notebook-health-analyzer/logging"
	"github.com/hiroki-yamauchi/notebook-health-analyzer/notebook"
)

// Engine runs the registered analyzers over notebooks and assembles reports
type Engine struct {
	registry    *Registry
	thresholds  Thresholds
	parallelism int
	lggr        logging.Logger
	now         func() time.Time
}

// Option configures an Engine
type Option func(*Engine)

// WithThresholds sets the quality level thresholds
func WithThresholds(th Thresholds) Option {
	return func(e *Engine) { e.thresholds = th }
}

// WithParallelism bounds the number of analyzers running at once
func WithParallelism(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.parallelism = n
		}
	}
}

// WithLogger sets the engine logger
func WithLogger(lggr logging.Logger) Option {
	return func(e *Engine) { e.lggr = lggr.Named("engine") }
}

// WithClock overrides the report timestamp source
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// NewEngine creates an Engine for the registry
func NewEngine(reg *Registry, opts ...Option) *Engine {
	e := &Engine{
		registry:    reg,
		thresholds:  DefaultThresholds(),
		parallelism: 4,
		lggr:        logging.Nop(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Analyze performs comprehensive analysis on one notebook
func (e *Engine) Analyze(ctx context.Context, nb *notebook.Notebook) (*Report, error) {
	if nb == nil {
		return nil, errors.New("nil notebook")
	}

	// Extract code and markdown streams; an empty notebook still gets a baseline report
	src, err := notebook.Extract(nb)
	if errors.Is(err, notebook.ErrEmptyNotebook) {
		e.lggr.Infow("notebook has no cells, using baseline scores", "notebook", nb.Name)
	} else if err != nil {
		return nil, err
	}

	// Fan analyzers out; each task owns one slot of results
	entries := e.registry.Entries()
	results := make([]MetricResult, len(entries))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.parallelism)
	for i, entry := range entries {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = Invoke(entry.Analyzer, src)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	// Partial results are discarded on cancellation
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for _, r := range results {
		switch r.Status {
		case StatusFailed:
			e.lggr.Warnw("metric failed", "notebook", nb.Name, "metric", r.MetricID, "reason", r.Evidence["error"])
		case StatusDegraded:
			e.lggr.Warnw("metric degraded", "notebook", nb.Name, "metric", r.MetricID, "score", *r.Score)
		default:
			e.lggr.Debugw("metric computed", "notebook", nb.Name, "metric", r.MetricID, "score", *r.Score)
		}
	}

	// Aggregate and assemble
	agg := Aggregate(results, e.registry)
	report := Assemble(nb, src, results, agg, e.thresholds, e.now())

	e.lggr.Infow("notebook analyzed", "notebook", nb.Name, "notebook_id", report.NotebookID,
		"overall_score", report.OverallScore, "level", report.OverallLevel)
	return report, nil
}

// AnalyzeFile loads and analyzes the notebook at path
func (e *Engine) AnalyzeFile(ctx context.Context, path string) (*Report, error) {
	nb, err := notebook.Load(path)
	if err != nil {
		return nil, err
	}
	return e.Analyze(ctx, nb)
}

// AnalyzePath analyzes a notebook file, or every notebook found under a directory
func (e *Engine) AnalyzePath(ctx context.Context, targetPath string, excludeDirs []string) ([]*Report, error) {
	// Normalize the target path
	absPath, err := filepath.Abs(targetPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path: %w", err)
	}

	paths, err := notebook.Discover(absPath, excludeDirs)
	if err != nil {
		return nil, fmt.Errorf("failed to discover notebooks: %w", err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no notebooks found in %s", targetPath)
	}

	var reports []*Report
	for _, p := range paths {
		report, err := e.AnalyzeFile(ctx, p)
		if err != nil {
			return nil, err
		}
		reports = append(reports, report)
	}
	return reports, nil
}
