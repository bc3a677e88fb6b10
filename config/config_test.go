package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/hiroki-yamauchi/notebook-health-analyzer/analyzer"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nbhealth.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	if diff := cmp.Diff(Default(), cfg); diff != "" {
		t.Errorf("defaults differ (-want +got):\n%s", diff)
	}
	require.NoError(t, cfg.Validate())
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
log:
  level: debug
analysis:
  parallelism: 2
  formatting_k: 4
  ignore_magic_commands: false
weights:
  metrics:
    code_formatting: 0.3
  categories:
    business_intelligence: 0.25
report:
  format: markdown
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 2, cfg.Analysis.Parallelism)
	assert.Equal(t, 4.0, cfg.Analysis.FormattingK)
	assert.False(t, cfg.Analysis.IgnoreMagics)
	assert.Equal(t, 79, cfg.Analysis.MaxLineLength)
	assert.Equal(t, 0.3, cfg.Weights.Metrics[analyzer.MetricFormatting])
	assert.Equal(t, 0.15, cfg.Weights.Metrics[analyzer.MetricComments])
	assert.Equal(t, 0.25, cfg.Weights.Categories[analyzer.CategoryBusiness])
	assert.Equal(t, "markdown", cfg.Report.Format)
	require.NoError(t, cfg.Validate())

	reg, err := cfg.Registry()
	require.NoError(t, err)
	assert.Equal(t, 0.3, reg.Weight(analyzer.MetricFormatting))
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "analysis:\n  parallelism: 2\n")
	t.Setenv("NBHEALTH_ANALYSIS_PARALLELISM", "8")
	t.Setenv("NBHEALTH_WEIGHTS_METRICS_DATASET_JOIN", "0.05")
	t.Setenv("NBHEALTH_HISTORY_ENABLED", "true")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Analysis.Parallelism)
	assert.Equal(t, 0.05, cfg.Weights.Metrics[analyzer.MetricDatasetJoin])
	assert.True(t, cfg.History.Enabled)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.ErrorContains(t, err, "failed to read config")
}

func TestEnvName(t *testing.T) {
	assert.Equal(t, "NBHEALTH_ANALYSIS_PARALLELISM", EnvName("analysis.parallelism"))
	assert.Equal(t, "NBHEALTH_WEIGHTS_METRICS_CODE_COMMENTS", EnvName("weights.metrics.code_comments"))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"parallelism", func(c *Config) { c.Analysis.Parallelism = 0 }, "parallelism must be at least 1"},
		{"negative weight", func(c *Config) { c.Weights.Metrics[analyzer.MetricComments] = -1 }, "must be positive"},
		{"unknown metric", func(c *Config) { c.Weights.Metrics["notebook_length"] = 1 }, "unknown metric"},
		{"thresholds", func(c *Config) { c.Thresholds.Good = 95 }, "strictly descend"},
		{"format", func(c *Config) { c.Report.Format = "pdf" }, "unsupported report format"},
		{"log level", func(c *Config) { c.Log.Level = "chatty" }, "invalid log level"},
		{"history path", func(c *Config) { c.History.Enabled = true; c.History.Path = "" }, "history.path"},
		{"analyzer params", func(c *Config) { c.Analysis.MaxLineLength = 0 }, "max_line_length"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.ErrorIs(t, err, ErrInvalid)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDump(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Dump(&buf, Default()))

	out := buf.String()
	assert.Contains(t, out, "parallelism: 4")
	assert.Contains(t, out, "max_line_length: 79")
	assert.Contains(t, out, "code_formatting: 0.15")

	// The dump is a loadable config file
	path := writeConfig(t, out)
	cfg, err := Load(path)
	require.NoError(t, err)
	if diff := cmp.Diff(Default(), cfg); diff != "" {
		t.Errorf("reloaded dump differs (-want +got):\n%s", diff)
	}

	var generic map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &generic))
	assert.Contains(t, generic, "thresholds")
}
