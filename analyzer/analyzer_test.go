package analyzer

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/hiroki-yamauchi/notebook-health-analyzer/logging"
	"github.com/hiroki-yamauchi/notebook-health-analyzer/notebook"
)

var fixedClock = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }

func salesNotebook() *notebook.Notebook {
	return notebook.New("sales.ipynb",
		notebook.Markdown("# Monthly sales\nLoads the sales extract and charts the monthly totals."),
		notebook.Code("import pandas as pd\nimport matplotlib.pyplot as plt\n"),
		notebook.Code("def load(path):\n    \"\"\"Read the sales extract.\"\"\"\n    return pd.read_csv(path)\n"),
		notebook.Code("# Join sales with the region lookup\nsales = load('sales.csv')\nregions = load('regions.csv')\n"+
			"merged = sales.merge(regions, on='region_id', how='left')\n"),
		notebook.Code("monthly = merged.groupby('month')['total'].sum()\nplt.bar(monthly.index, monthly)\n"+
			"plt.title('Monthly sales')\nplt.xlabel('Month')\nplt.ylabel('Total')\n"),
	)
}

func TestEngine_Analyze(t *testing.T) {
	engine := NewEngine(DefaultRegistry(), WithClock(fixedClock))

	report, err := engine.Analyze(context.Background(), salesNotebook())
	require.NoError(t, err)

	assert.Equal(t, NotebookID(salesNotebook()), report.NotebookID)
	assert.Equal(t, "sales.ipynb", report.Notebook.Name)
	assert.Equal(t, 5, report.Notebook.TotalCells)
	assert.Equal(t, 4, report.Notebook.CodeCells)
	assert.Equal(t, 1, report.Notebook.MarkdownCells)
	assert.Equal(t, fixedClock(), report.GeneratedAt)

	require.Len(t, report.Metrics, 9)
	for i, id := range MetricIDs() {
		m := report.Metrics[i]
		assert.Equal(t, id, m.MetricID)
		require.NotNil(t, m.Score, id)
		assert.NotEmpty(t, m.Level, id)
	}

	require.Len(t, report.Categories, 2)
	require.NotNil(t, report.OverallScore)
	assert.GreaterOrEqual(t, *report.OverallScore, 0.0)
	assert.LessOrEqual(t, *report.OverallScore, 100.0)
	assert.Equal(t, DefaultThresholds().Level(*report.OverallScore), report.OverallLevel)
}

func TestEngine_Deterministic(t *testing.T) {
	first, err := NewEngine(DefaultRegistry(), WithParallelism(1)).Analyze(context.Background(), salesNotebook())
	require.NoError(t, err)
	second, err := NewEngine(DefaultRegistry(), WithParallelism(8)).Analyze(context.Background(), salesNotebook())
	require.NoError(t, err)

	if diff := cmp.Diff(first, second, cmpopts.IgnoreFields(Report{}, "GeneratedAt")); diff != "" {
		t.Errorf("reports differ (-first +second):\n%s", diff)
	}
}

func TestEngine_EmptyNotebook(t *testing.T) {
	report, err := NewEngine(DefaultRegistry()).Analyze(context.Background(), notebook.New("empty.ipynb"))
	require.NoError(t, err)

	require.NotNil(t, report.OverallScore)
	assert.Equal(t, 50.0, *report.OverallScore)
	assert.Equal(t, LevelPoor, report.OverallLevel)
	assert.Zero(t, report.Notebook.TotalCells)
}

func TestEngine_FailureIsolation(t *testing.T) {
	reg := DefaultRegistry()
	entries := reg.Entries()
	for i, e := range entries {
		if e.Analyzer.Category() == CategoryBusiness {
			entries[i].Analyzer = panicking(e.Analyzer.ID(), CategoryBusiness)
		}
	}
	custom := &Registry{entries: entries, categoryWeights: reg.categoryWeights}

	lggr, logs := logging.TestObserved(t, zapcore.WarnLevel)
	report, err := NewEngine(custom, WithLogger(lggr)).Analyze(context.Background(), salesNotebook())
	require.NoError(t, err)

	business := report.Categories[1]
	assert.Equal(t, CategoryUnavailable, business.Status)
	assert.Nil(t, business.Score)

	builder := report.Categories[0]
	require.NotNil(t, builder.Score)
	require.NotNil(t, report.OverallScore)
	assert.InDelta(t, *builder.Score, *report.OverallScore, 1e-9)

	types := diagnosticTypes(report.Diagnostics)
	assert.Contains(t, types, "Analyzer Failure")
	assert.Contains(t, types, "Unavailable Category")

	failedLogs := logs.FilterMessage("metric failed")
	assert.Equal(t, 2, failedLogs.Len())
	assert.Equal(t, "engine", failedLogs.All()[0].LoggerName)
}

func TestEngine_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := NewEngine(DefaultRegistry()).Analyze(ctx, salesNotebook())
	require.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, report)
}

func TestEngine_ScoresStayInRange(t *testing.T) {
	corpus := []*notebook.Notebook{
		notebook.New("blank.ipynb", notebook.Code("")),
		notebook.New("magic.ipynb", notebook.Code("%%timeit\nx = 1\n")),
		notebook.New("broken.ipynb", notebook.Code("x = (1,\n")),
		notebook.New("noisy.ipynb", notebook.Code("x=1;y=2;z=3;\n\tif x==None :print(x,y,z)   \n")),
		salesNotebook(),
	}
	engine := NewEngine(DefaultRegistry())

	for _, nb := range corpus {
		t.Run(nb.Name, func(t *testing.T) {
			report, err := engine.Analyze(context.Background(), nb)
			require.NoError(t, err)
			for _, m := range report.Metrics {
				require.NotNil(t, m.Score, m.MetricID)
				assert.GreaterOrEqual(t, *m.Score, 0.0, m.MetricID)
				assert.LessOrEqual(t, *m.Score, 100.0, m.MetricID)
			}
		})
	}
}

func TestEngine_AnalyzePath(t *testing.T) {
	dir := t.TempDir()
	doc := `{"nbformat": 4, "nbformat_minor": 5, "cells": [{"cell_type": "code", "source": "x = 1\n"}]}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.ipynb"), []byte(doc), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.ipynb"), []byte(doc), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".ipynb_checkpoints"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".ipynb_checkpoints", "a-checkpoint.ipynb"), []byte(doc), 0o644))

	engine := NewEngine(DefaultRegistry())
	reports, err := engine.AnalyzePath(context.Background(), dir, nil)
	require.NoError(t, err)
	require.Len(t, reports, 2)
	assert.Equal(t, "a.ipynb", reports[0].Notebook.Name)
	assert.Equal(t, "b.ipynb", reports[1].Notebook.Name)

	// Same content under different names yields different identities
	assert.NotEqual(t, reports[0].NotebookID, reports[1].NotebookID)

	_, err = engine.AnalyzePath(context.Background(), t.TempDir(), nil)
	assert.ErrorContains(t, err, "no notebooks found")
}
