package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/hiroki-yamauchi/notebook-health-analyzer/history"
	"github.com/hiroki-yamauchi/notebook-health-analyzer/notebook"
	"github.com/hiroki-yamauchi/notebook-health-analyzer/reporter"
)

const churnNotebook = `{"nbformat": 4, "nbformat_minor": 5, "cells": [
  {"cell_type": "markdown", "source": "# Churn\nMonthly churn by plan."},
  {"cell_type": "code", "source": ["import pandas as pd\n", "import matplotlib.pyplot as plt\n"]},
  {"cell_type": "code", "source": ["df = pd.read_csv('churn.csv')\n", "plt.bar(df['plan'], df['churn'])\n", "plt.title('Churn by plan')\n"]}
]}`

// execute runs the CLI with args and returns stdout and stderr
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv("NBHEALTH_HISTORY_PATH", filepath.Join(t.TempDir(), "history.db"))

	cmd := newRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--log-level", "error"}, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestAnalyze_JSONToStdout(t *testing.T) {
	path := writeFile(t, t.TempDir(), "churn.ipynb", churnNotebook)

	stdout, stderr, err := execute(t, "analyze", path)
	require.NoError(t, err)

	var report map[string]any
	require.NoError(t, json.Unmarshal([]byte(stdout), &report))
	assert.Equal(t, "churn.ipynb", report["notebook"].(map[string]any)["name"])
	assert.Contains(t, stderr, "Analysis complete!")
}

func TestAnalyze_OutputFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "churn.ipynb", churnNotebook)
	out := filepath.Join(dir, "report.html")

	stdout, stderr, err := execute(t, "analyze", path, "--format", "html", "-o", out, "-q")
	require.NoError(t, err)
	assert.Empty(t, stdout)
	assert.Contains(t, stderr, "Report saved to:")
	assert.NotContains(t, stderr, "Analysis complete!")

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), "churn.ipynb")
}

func TestAnalyze_DirectoryWithOutputDir(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.ipynb", churnNotebook)
	writeFile(t, dir, "drafts/b.ipynb", churnNotebook)
	writeFile(t, dir, "nested/c.ipynb", churnNotebook)
	reports := filepath.Join(t.TempDir(), "reports")

	_, _, err := execute(t, "analyze", dir, "--format", "markdown", "--output-dir", reports, "--exclude", "drafts")
	require.NoError(t, err)

	entries, err := os.ReadDir(reports)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.Equal(t, []string{"a.health.md", "nested"}, names)
	assert.FileExists(t, filepath.Join(reports, "nested", "c.health.md"))
}

func TestAnalyze_SameNameInDifferentDirectories(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "q1/analysis.ipynb", churnNotebook)
	writeFile(t, dir, "q2/analysis.ipynb", churnNotebook)
	reports := filepath.Join(t.TempDir(), "reports")

	_, stderr, err := execute(t, "analyze", dir, "--output-dir", reports, "-q")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(reports, "q1", "analysis.health.json"))
	assert.FileExists(t, filepath.Join(reports, "q2", "analysis.health.json"))
	assert.Equal(t, 2, strings.Count(stderr, "Report saved to:"))
}

func TestAnalyze_Errors(t *testing.T) {
	dir := t.TempDir()
	good := writeFile(t, dir, "good.ipynb", churnNotebook)
	bad := writeFile(t, t.TempDir(), "bad.ipynb", `{"cells": [{"source": "x = 1"}]}`)

	t.Run("malformed", func(t *testing.T) {
		_, _, err := execute(t, "analyze", bad)
		require.ErrorIs(t, err, notebook.ErrMalformed)
		assert.Contains(t, err.Error(), `cells[0]: missing "cell_type"`)
	})

	t.Run("unsupported format", func(t *testing.T) {
		_, _, err := execute(t, "analyze", good, "--format", "pdf")
		assert.ErrorIs(t, err, reporter.ErrUnsupportedFormat)
	})

	t.Run("missing path", func(t *testing.T) {
		_, _, err := execute(t, "analyze", filepath.Join(dir, "absent.ipynb"))
		assert.ErrorContains(t, err, "target path does not exist")
	})

	t.Run("exclusive outputs", func(t *testing.T) {
		_, _, err := execute(t, "analyze", good, "-o", filepath.Join(dir, "r.json"), "--output-dir", dir)
		assert.ErrorContains(t, err, "mutually exclusive")
	})
}

func TestHistory_AfterRecord(t *testing.T) {
	path := writeFile(t, t.TempDir(), "churn.ipynb", churnNotebook)
	t.Setenv("NBHEALTH_HISTORY_PATH", filepath.Join(t.TempDir(), "history.db"))
	historyPath := os.Getenv("NBHEALTH_HISTORY_PATH")

	run := func(args ...string) string {
		cmd := newRootCmd()
		var stdout bytes.Buffer
		cmd.SetOut(&stdout)
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs(append([]string{"--log-level", "error"}, args...))
		require.NoError(t, cmd.Execute())
		return stdout.String()
	}

	assert.Contains(t, run("history"), "No recorded runs found.")

	run("analyze", path, "--record", "-q")
	run("analyze", path, "--record", "-q")
	_, err := os.Stat(historyPath)
	require.NoError(t, err)

	out := run("history", "churn.ipynb", "--limit", "5")
	assert.Contains(t, out, "churn.ipynb")
	assert.Contains(t, out, "Change since previous run: +0.0")

	shown := run("history", "--show", "1", "--format", "json")
	var report map[string]any
	require.NoError(t, json.Unmarshal([]byte(shown), &report))
	assert.Equal(t, "churn.ipynb", report["notebook"].(map[string]any)["name"])
}

func TestHistory_ShowUnknownRun(t *testing.T) {
	_, _, err := execute(t, "history", "--show", "42")
	require.ErrorIs(t, err, history.ErrNotFound)
}

func TestConfig_Dump(t *testing.T) {
	t.Setenv("NBHEALTH_ANALYSIS_PARALLELISM", "3")
	stdout, _, err := execute(t, "config")
	require.NoError(t, err)

	var dumped map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(stdout), &dumped))
	assert.Equal(t, 3, dumped["analysis"].(map[string]any)["parallelism"])
	assert.Equal(t, "error", dumped["log"].(map[string]any)["level"])
}

func TestConfig_Invalid(t *testing.T) {
	cfgPath := writeFile(t, t.TempDir(), "nbhealth.yaml", "thresholds:\n  good: 95\n")
	_, _, err := execute(t, "--config", cfgPath, "config")
	assert.ErrorContains(t, err, "invalid configuration")
}
